// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/latex2anki/internal/extract"
	"github.com/pdiddy/latex2anki/pkg/types"
)

const sampleHTML = `<html><body>
<div class="note">
     <div class="uuid">u-1</div>
     <br class="fieldseparator"/>What is ((CLOZE1))Go((HINT))lang((CLEND))?
     <br class="fieldseparator"/>A language
</div>
<div class="note">
     <br class="fieldseparator"/>no id
</div>
</body></html>`

// fakeRenderer writes canned HTML where plasTeX would, or fails.
type fakeRenderer struct {
	html  string
	err   error
	calls []string
}

func (f *fakeRenderer) Render(_ context.Context, doc, templateDir, outputName string) (string, error) {
	f.calls = append(f.calls, doc)
	if f.err != nil {
		return "", f.err
	}
	stem := strings.TrimSuffix(filepath.Base(doc), filepath.Ext(doc))
	out := filepath.Join(filepath.Dir(doc), stem, outputName)
	if f.html == "" {
		return out, nil
	}
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return "", err
	}
	return out, os.WriteFile(out, []byte(f.html), 0o644)
}

// fakeRecorder captures recorded exports.
type fakeRecorder struct {
	docs    []types.Document
	records [][]types.Record
	err     error
}

func (f *fakeRecorder) Record(_ context.Context, doc types.Document, records []types.Record) (types.Run, error) {
	if f.err != nil {
		return types.Run{}, f.err
	}
	f.docs = append(f.docs, doc)
	f.records = append(f.records, records)
	return types.Run{ID: int64(len(f.docs)), Document: doc.Source, Records: len(records)}, nil
}

func quietExtractor() *extract.Extractor {
	return extract.New(extract.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
}

// setupTeX creates an empty LaTeX source and returns its path.
func setupTeX(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(`\begin{note}\end{note}`), 0o644))
	return path
}

func TestPathsFor(t *testing.T) {
	tests := []struct {
		src  string
		want types.Document
	}{
		{
			src: filepath.Join("decks", "bio.tex"),
			want: types.Document{
				Source:   filepath.Join("decks", "bio.tex"),
				HTMLName: "bio.html",
				HTMLPath: filepath.Join("decks", "bio", "bio.html"),
				CSVPath:  filepath.Join("decks", "bio", "bio.csv"),
			},
		},
		{
			src: "notes.ltx",
			want: types.Document{
				Source:   "notes.ltx",
				HTMLName: "notes.html",
				HTMLPath: filepath.Join("notes", "notes.html"),
				CSVPath:  filepath.Join("notes", "notes.csv"),
			},
		},
		{
			src: filepath.Join("a.b", "c.d.tex"),
			want: types.Document{
				Source:   filepath.Join("a.b", "c.d.tex"),
				HTMLName: "c.d.html",
				HTMLPath: filepath.Join("a.b", "c.d", "c.d.html"),
				CSVPath:  filepath.Join("a.b", "c.d", "c.d.csv"),
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			assert.Equal(t, tt.want, PathsFor(tt.src))
		})
	}
}

func TestConvertDocument(t *testing.T) {
	src := setupTeX(t, "go.tex")
	rec := &fakeRecorder{}
	p := New(&fakeRenderer{html: sampleHTML}, quietExtractor(), WithRecorder(rec))

	var log bytes.Buffer
	res, err := p.ConvertDocument(context.Background(), src, &log)
	require.NoError(t, err)

	assert.Equal(t, types.ConversionDone, res.Status)
	assert.Equal(t, 2, res.Records)
	assert.Equal(t, 1, res.MissingIDs)
	assert.Equal(t, PathsFor(src), res.Document)

	data, err := os.ReadFile(res.Document.CSVPath)
	require.NoError(t, err)
	assert.Equal(t,
		"#separator:|\n#html:true\nu-1|What is {{c1::Go::lang}}?|A language\n|no id\n",
		string(data))

	assert.Contains(t, log.String(), "STEP 1:")
	assert.Contains(t, log.String(), "STEP 2:")
	assert.Contains(t, log.String(), "Wrote 2 rows to "+res.Document.CSVPath)

	require.Len(t, rec.docs, 1)
	assert.Equal(t, src, rec.docs[0].Source)
	assert.Len(t, rec.records[0], 2)
}

func TestConvertDocument_NoNotes(t *testing.T) {
	src := setupTeX(t, "empty.tex")
	p := New(&fakeRenderer{html: "<html><body><p>intro</p></body></html>"}, quietExtractor())

	res, err := p.ConvertDocument(context.Background(), src, io.Discard)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Records)

	data, err := os.ReadFile(res.Document.CSVPath)
	require.NoError(t, err)
	assert.Equal(t, "#separator:|\n#html:true\n", string(data))
}

func TestConvertDocument_Failures(t *testing.T) {
	tests := []struct {
		name     string
		renderer *fakeRenderer
		recorder *fakeRecorder
		wantErr  string
	}{
		{
			name:     "renderer error",
			renderer: &fakeRenderer{err: errors.New("plastex exploded")},
			wantErr:  "plastex exploded",
		},
		{
			name:     "renderer wrote nothing",
			renderer: &fakeRenderer{},
			wantErr:  "renderer produced no output",
		},
		{
			name:     "recorder error",
			renderer: &fakeRenderer{html: sampleHTML},
			recorder: &fakeRecorder{err: errors.New("disk full")},
			wantErr:  "recording export",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := setupTeX(t, "deck.tex")
			var opts []Option
			if tt.recorder != nil {
				opts = append(opts, WithRecorder(tt.recorder))
			}
			p := New(tt.renderer, quietExtractor(), opts...)
			res, err := p.ConvertDocument(context.Background(), src, io.Discard)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.Equal(t, types.ConversionFailed, res.Status)
		})
	}
}

func TestConvertBatch(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.tex")
	bad := filepath.Join(dir, "bad.tex")
	for _, p := range []string{good, bad} {
		require.NoError(t, os.WriteFile(p, nil, 0o644))
	}

	r := &selectiveRenderer{fail: bad, html: sampleHTML}
	p := New(r, quietExtractor())

	var log bytes.Buffer
	result := p.ConvertBatch(context.Background(), []string{good, bad}, &log)

	assert.Equal(t, 1, result.Converted)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, 2, result.Records)
	assert.Equal(t, 2, result.Total())
	assert.Equal(t, 0, result.Skipped())
	assert.True(t, result.HasFailures())
	require.Len(t, result.Documents, 2)
	assert.Equal(t, types.ConversionDone, result.Documents[0].Status)
	assert.Equal(t, types.ConversionFailed, result.Documents[1].Status)
	assert.Contains(t, log.String(), "converted: "+good)
	assert.Contains(t, log.String(), "failed:    "+bad)
	assert.Contains(t, log.String(), "Batch summary: 1 converted, 1 failed")
}

func TestConvertBatch_StopsOnCancel(t *testing.T) {
	r := &fakeRenderer{html: sampleHTML}
	p := New(r, quietExtractor())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var log bytes.Buffer
	result := p.ConvertBatch(ctx, []string{setupTeX(t, "a.tex")}, &log)
	assert.Equal(t, 0, result.Total())
	assert.Equal(t, 1, result.Skipped())
	require.Len(t, result.Documents, 1)
	assert.Equal(t, types.ConversionNone, result.Documents[0].Status)
	assert.Contains(t, log.String(), "0 converted, 0 failed, 1 skipped")
	assert.Empty(t, r.calls)
}

// selectiveRenderer fails for one document and succeeds for the rest.
type selectiveRenderer struct {
	fail string
	html string
}

func (s *selectiveRenderer) Render(ctx context.Context, doc, templateDir, outputName string) (string, error) {
	if doc == s.fail {
		return "", errors.New("bad latex")
	}
	return (&fakeRenderer{html: s.html}).Render(ctx, doc, templateDir, outputName)
}

func TestExpandSources(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub", "deep"), 0o755))
	for _, p := range []string{"a.tex", "b.tex", "notes.txt", "sub/c.tex", "sub/deep/d.tex"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, p), nil, 0o644))
	}

	t.Run("plain path passes through", func(t *testing.T) {
		got, err := ExpandSources("missing.tex")
		require.NoError(t, err)
		assert.Equal(t, []string{"missing.tex"}, got)
	})

	t.Run("single level glob", func(t *testing.T) {
		got, err := ExpandSources(filepath.Join(dir, "*.tex"))
		require.NoError(t, err)
		assert.Equal(t, []string{filepath.Join(dir, "a.tex"), filepath.Join(dir, "b.tex")}, got)
	})

	t.Run("recursive glob", func(t *testing.T) {
		got, err := ExpandSources(filepath.Join(dir, "**", "*.tex"))
		require.NoError(t, err)
		assert.Equal(t, []string{
			filepath.Join(dir, "a.tex"),
			filepath.Join(dir, "b.tex"),
			filepath.Join(dir, "sub", "c.tex"),
			filepath.Join(dir, "sub", "deep", "d.tex"),
		}, got)
	})

	t.Run("no match", func(t *testing.T) {
		_, err := ExpandSources(filepath.Join(dir, "*.ltx"))
		assert.ErrorIs(t, err, ErrNoDocuments)
	})
}

func TestWatch(t *testing.T) {
	src := setupTeX(t, "watched.tex")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changed := make(chan string, 4)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, []string{src}, 20*time.Millisecond, nil, func(s string) { changed <- s })
	}()

	// Give the watcher time to register before writing.
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(filepath.Dir(src), "other.tex"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(src, []byte("changed"), 0o644))

	select {
	case got := <-changed:
		assert.Equal(t, src, got)
	case <-time.After(5 * time.Second):
		t.Fatal("no change notification")
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Watch did not return after cancel")
	}
}
