// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package extract turns rendered note HTML into Anki records.
//
// The renderer wraps every note in <div class="note">, puts the note's
// identifier in a <div class="uuid"> child and marks the start of each field
// with <br class="fieldseparator"/>. Each note is cut out, edited as an
// isolated fragment and split into fields.
package extract

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"

	"github.com/pdiddy/latex2anki/internal/cloze"
	"github.com/pdiddy/latex2anki/pkg/types"
)

const (
	noteSelector   = "div.note"
	idTag          = "div"
	idClass        = "uuid"
	separatorTag   = "br"
	separatorClass = "fieldseparator"
)

// Extractor converts rendered HTML documents into records.
type Extractor struct {
	logger   *slog.Logger
	sentinel string
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithLogger sets the logger used for per-note diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Extractor) {
		e.logger = logger
	}
}

// New returns an Extractor. The field separator sentinel is random per
// Extractor so it cannot occur in note content.
func New(opts ...Option) *Extractor {
	e := &Extractor{
		sentinel: "###FIELDSEPARATOR-" + uuid.NewString() + "###",
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	return e
}

// ExtractFile opens the HTML file at path and extracts its records.
func (e *Extractor) ExtractFile(path string) ([]types.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening rendered HTML %s: %w", path, err)
	}
	defer f.Close()

	records, err := e.Extract(f)
	if err != nil {
		return nil, fmt.Errorf("extracting %s: %w", path, err)
	}
	return records, nil
}

// Extract returns one record per note container in r, in document order.
// A note without an identifier is logged and yields an empty first field.
func (e *Extractor) Extract(r io.Reader) ([]types.Record, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parsing document: %w", err)
	}

	notes := doc.Find(noteSelector)
	records := make([]types.Record, 0, notes.Length())
	for i := range notes.Nodes {
		inner, err := notes.Eq(i).Html()
		if err != nil {
			return nil, fmt.Errorf("note %d: %w", i+1, err)
		}
		rec, err := e.extractNote(i+1, inner)
		if err != nil {
			return nil, fmt.Errorf("note %d: %w", i+1, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// extractNote builds the record for a single note container's inner markup.
// index is 1-based and only used in diagnostics.
func (e *Extractor) extractNote(index int, inner string) (types.Record, error) {
	frag, err := parseFragment(inner)
	if err != nil {
		return types.Record{}, err
	}

	var id string
	if sel := frag.find(idTag, idClass).First(); sel.Length() > 0 {
		id = strings.TrimSpace(sel.Text())
		frag.remove(sel)
	} else {
		e.logger.Warn("note without identifier", slog.Int("note", index))
	}

	frag.replaceWithText(frag.find(separatorTag, separatorClass), e.sentinel)
	markup, err := frag.html()
	if err != nil {
		return types.Record{}, err
	}

	fields := []string{id}
	for i, raw := range strings.Split(markup, e.sentinel) {
		text, visible, err := cleanSegment(raw)
		if err != nil {
			return types.Record{}, fmt.Errorf("field %d: %w", i, err)
		}
		// Markup ahead of the first separator is renderer scaffolding
		// unless it carries content of its own.
		if i == 0 && !visible {
			continue
		}
		if b := cloze.Check(text); !b.Balanced() {
			e.logger.Debug("unbalanced cloze markers",
				slog.Int("note", index),
				slog.String("id", id),
				slog.Int("open", b.Open),
				slog.Int("close", b.Close),
				slog.Int("hint", b.Hint))
		}
		fields = append(fields, cloze.Rewrite(text))
	}
	return types.Record{Fields: fields}, nil
}

// cleanSegment re-parses one raw field, serializes it, deletes newlines and
// trims surrounding whitespace. visible reports whether the segment holds
// text or media.
func cleanSegment(raw string) (text string, visible bool, err error) {
	frag, err := parseFragment(raw)
	if err != nil {
		return "", false, err
	}
	out, err := frag.html()
	if err != nil {
		return "", false, err
	}
	out = strings.TrimSpace(strings.ReplaceAll(out, "\n", ""))
	return out, frag.hasContent(), nil
}
