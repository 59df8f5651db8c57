// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package cloze rewrites the document's cloze markers into Anki cloze syntax.
//
//	((CLOZE1))answer((HINT))hint((CLEND))  ->  {{c1::answer::hint}}
package cloze

import "regexp"

var (
	openRe  = regexp.MustCompile(`\(\(CLOZE(\d+)\)\)`)
	hintRe  = regexp.MustCompile(`\(\(HINT\)\)`)
	closeRe = regexp.MustCompile(`\(\(CLEND\)\)`)
)

// Rewrite replaces every cloze marker in s. Markers are matched
// case-sensitively and without regard to nesting; unbalanced markers are
// rewritten individually and never rejected.
func Rewrite(s string) string {
	s = openRe.ReplaceAllString(s, "{{c${1}::")
	s = hintRe.ReplaceAllLiteralString(s, "::")
	return closeRe.ReplaceAllLiteralString(s, "}}")
}

// Balance counts cloze markers in un-rewritten text.
type Balance struct {
	Open  int
	Hint  int
	Close int
}

// Balanced reports whether every opening marker has a closing marker and
// no hint appears outside a deletion count.
func (b Balance) Balanced() bool {
	return b.Open == b.Close && b.Hint <= b.Open
}

// Check counts the markers in s. It is a diagnostic aid only.
func Check(s string) Balance {
	return Balance{
		Open:  len(openRe.FindAllStringIndex(s, -1)),
		Hint:  len(hintRe.FindAllStringIndex(s, -1)),
		Close: len(closeRe.FindAllStringIndex(s, -1)),
	}
}
