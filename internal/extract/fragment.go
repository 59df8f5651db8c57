// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// mediaSelector matches elements that count as content even without text.
const mediaSelector = "img, svg, math, video, audio"

// fragment is an isolated piece of markup parsed in a <div> context. Edits
// made to a fragment never touch the document it was cut from.
type fragment struct {
	root *goquery.Selection
}

// parseFragment parses markup as the children of a detached <div>.
func parseFragment(markup string) (*fragment, error) {
	ctx := &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div}
	nodes, err := html.ParseFragment(strings.NewReader(markup), ctx)
	if err != nil {
		return nil, fmt.Errorf("parsing fragment: %w", err)
	}
	root := &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div}
	for _, n := range nodes {
		root.AppendChild(n)
	}
	return &fragment{root: goquery.NewDocumentFromNode(root).Selection}, nil
}

// find returns the elements with the given tag carrying class.
func (f *fragment) find(tag, class string) *goquery.Selection {
	return f.root.Find(tag + "." + class)
}

// remove detaches sel from the fragment.
func (f *fragment) remove(sel *goquery.Selection) {
	sel.Remove()
}

// replaceWithText swaps every element in sel for a text node holding text.
func (f *fragment) replaceWithText(sel *goquery.Selection, text string) {
	sel.Each(func(_ int, s *goquery.Selection) {
		s.ReplaceWithNodes(&html.Node{Type: html.TextNode, Data: text})
	})
}

// html serializes the fragment's children.
func (f *fragment) html() (string, error) {
	out, err := f.root.Html()
	if err != nil {
		return "", fmt.Errorf("rendering fragment: %w", err)
	}
	return out, nil
}

// hasContent reports whether the fragment carries visible text or media.
func (f *fragment) hasContent() bool {
	if strings.TrimSpace(f.root.Text()) != "" {
		return true
	}
	return f.root.Find(mediaSelector).Length() > 0
}
