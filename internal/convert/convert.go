// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package convert runs the LaTeX -> HTML -> Anki import pipeline for one or
// more documents.
package convert

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/pdiddy/latex2anki/internal/deck"
	"github.com/pdiddy/latex2anki/internal/extract"
	"github.com/pdiddy/latex2anki/internal/render"
	"github.com/pdiddy/latex2anki/pkg/types"
)

// ErrNoDocuments is returned when a pattern matches no input documents.
var ErrNoDocuments = errors.New("no documents matched")

// Recorder persists the records exported from a document. The ledger
// implements it; a nil Recorder disables recording.
type Recorder interface {
	Record(ctx context.Context, doc types.Document, records []types.Record) (types.Run, error)
}

// Result holds the outcome of converting one document.
type Result struct {
	Document   types.Document
	Status     types.ConversionStatus
	Records    int
	MissingIDs int
}

// BatchResult holds the outcome of a batch conversion run.
type BatchResult struct {
	Converted int
	Failed    int
	Records   int
	// Documents holds one entry per source in input order. Sources left
	// unprocessed after cancellation have status ConversionNone.
	Documents []Result
}

// Total returns the total number of documents processed.
func (r BatchResult) Total() int {
	return r.Converted + r.Failed
}

// HasFailures reports whether any document failed conversion.
func (r BatchResult) HasFailures() bool {
	return r.Failed > 0
}

// Skipped returns the number of documents that were never attempted.
func (r BatchResult) Skipped() int {
	n := 0
	for _, d := range r.Documents {
		if d.Status == types.ConversionNone {
			n++
		}
	}
	return n
}

// Pipeline converts LaTeX documents into Anki import files.
type Pipeline struct {
	renderer  render.Renderer
	extractor *extract.Extractor
	recorder  Recorder
	logger    *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithRecorder records every successful conversion with rec.
func WithRecorder(rec Recorder) Option {
	return func(p *Pipeline) {
		p.recorder = rec
	}
}

// WithLogger sets the pipeline logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// New returns a Pipeline that renders with r and extracts with e.
func New(r render.Renderer, e *extract.Extractor, opts ...Option) *Pipeline {
	p := &Pipeline{renderer: r, extractor: e}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	return p
}

// PathsFor derives the renderer and output paths for a source document:
// dir/name.tex renders to dir/name/name.html and exports to dir/name/name.csv.
func PathsFor(src string) types.Document {
	dir := filepath.Dir(src)
	stem := strings.TrimSuffix(filepath.Base(src), filepath.Ext(src))
	out := filepath.Join(dir, stem, stem)
	return types.Document{
		Source:   src,
		HTMLName: stem + ".html",
		HTMLPath: out + ".html",
		CSVPath:  out + ".csv",
	}
}

// ConvertDocument renders src, extracts its notes and writes the import
// file, printing progress to w.
func (p *Pipeline) ConvertDocument(ctx context.Context, src string, w io.Writer) (Result, error) {
	doc := PathsFor(src)
	failed := Result{Document: doc, Status: types.ConversionFailed}

	fmt.Fprintf(w, "\nSTEP 1: Converting %s to %s...\n\n", doc.Source, doc.HTMLPath)
	htmlPath, err := render.RenderDocument(ctx, p.renderer, doc.Source, doc.HTMLName)
	if err != nil {
		return failed, err
	}
	if htmlPath != doc.HTMLPath {
		p.logger.Debug("renderer wrote to an unexpected path",
			slog.String("expected", doc.HTMLPath),
			slog.String("actual", htmlPath))
		doc.HTMLPath = htmlPath
		failed.Document = doc
	}

	fmt.Fprintf(w, "\nSTEP 2: Converting %s to %s...\n\n", doc.HTMLPath, doc.CSVPath)
	records, err := p.extractor.ExtractFile(doc.HTMLPath)
	if err != nil {
		return failed, err
	}

	if err := deck.WriteFile(doc.CSVPath, records); err != nil {
		return failed, err
	}

	res := Result{
		Document:   doc,
		Status:     types.ConversionDone,
		Records:    len(records),
		MissingIDs: countMissingIDs(records),
	}
	if p.recorder != nil {
		if _, err := p.recorder.Record(ctx, doc, records); err != nil {
			res.Status = types.ConversionFailed
			return res, fmt.Errorf("recording export of %s: %w", doc.Source, err)
		}
	}

	fmt.Fprintf(w, "Wrote %d rows to %s\n", res.Records, doc.CSVPath)
	return res, nil
}

// ConvertBatch converts each source in turn, printing per-document status
// to w and returning a summary. A failed document does not stop the batch.
func (p *Pipeline) ConvertBatch(ctx context.Context, sources []string, w io.Writer) BatchResult {
	result := BatchResult{Documents: make([]Result, 0, len(sources))}
	for _, src := range sources {
		if ctx.Err() != nil {
			result.Documents = append(result.Documents, Result{Document: PathsFor(src), Status: types.ConversionNone})
			continue
		}
		res, err := p.ConvertDocument(ctx, src, w)
		result.Documents = append(result.Documents, res)
		switch res.Status {
		case types.ConversionDone:
			fmt.Fprintf(w, "converted: %s (%d notes)\n", src, res.Records)
			result.Converted++
			result.Records += res.Records
		case types.ConversionFailed:
			fmt.Fprintf(w, "failed:    %s (%v)\n", src, err)
			result.Failed++
		}
	}
	fmt.Fprintf(w, "\nBatch summary: %d converted, %d failed, %d skipped (total: %d, notes: %d)\n",
		result.Converted, result.Failed, result.Skipped(), result.Total(), result.Records)
	return result
}

// ExpandSources resolves a document argument. A plain path is returned
// as-is; a pattern with glob metacharacters (including **) is expanded and
// must match at least one file.
func ExpandSources(arg string) ([]string, error) {
	if !strings.ContainsAny(arg, "*?[{") {
		return []string{arg}, nil
	}
	if !doublestar.ValidatePathPattern(arg) {
		return nil, fmt.Errorf("invalid pattern %q", arg)
	}
	matches, err := doublestar.FilepathGlob(arg, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("expanding %s: %w", arg, err)
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoDocuments, arg)
	}
	sort.Strings(matches)
	return matches, nil
}

func countMissingIDs(records []types.Record) int {
	n := 0
	for _, r := range records {
		if r.ID() == "" {
			n++
		}
	}
	return n
}
