// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// ConversionStatus indicates the outcome of converting one LaTeX document.
type ConversionStatus string

// ConversionNone marks a document that was never attempted, for example
// because the batch was cancelled first.
const (
	ConversionNone   ConversionStatus = "none"
	ConversionDone   ConversionStatus = "converted"
	ConversionFailed ConversionStatus = "failed"
)

// Record is one Anki note as it will appear in the output file.
// Fields[0] is always the note identifier (possibly empty); the remaining
// entries are the cleaned field contents in document order.
type Record struct {
	Fields []string `json:"fields" yaml:"fields"`
}

// NewRecord returns a Record whose first field is id.
func NewRecord(id string, fields ...string) Record {
	f := make([]string, 0, len(fields)+1)
	f = append(f, id)
	f = append(f, fields...)
	return Record{Fields: f}
}

// ID returns the note identifier.
func (r Record) ID() string {
	if len(r.Fields) == 0 {
		return ""
	}
	return r.Fields[0]
}

// Content returns the fields after the identifier.
func (r Record) Content() []string {
	if len(r.Fields) < 2 {
		return nil
	}
	return r.Fields[1:]
}

// Document describes one LaTeX source and the files derived from it.
type Document struct {
	// Source is the path of the LaTeX input as given by the user.
	Source string `json:"source" yaml:"source"`

	// HTMLName is the bare file name handed to the renderer (e.g. "deck.html").
	HTMLName string `json:"html_name" yaml:"html_name"`

	// HTMLPath is where the renderer is expected to write its output.
	HTMLPath string `json:"html_path" yaml:"html_path"`

	// CSVPath is where the Anki import file is written.
	CSVPath string `json:"csv_path" yaml:"csv_path"`
}

// ExportedNote is a ledger entry for one note written to an import file.
type ExportedNote struct {
	RunID      int64     `json:"run_id" yaml:"run_id"`
	Document   string    `json:"document" yaml:"document"`
	NoteID     string    `json:"note_id" yaml:"note_id"`
	FieldCount int       `json:"field_count" yaml:"field_count"`
	ExportedAt time.Time `json:"exported_at" yaml:"exported_at"`
}

// Run summarises one conversion recorded in the ledger.
type Run struct {
	ID         int64     `json:"id" yaml:"id"`
	Document   string    `json:"document" yaml:"document"`
	CSVPath    string    `json:"csv_path" yaml:"csv_path"`
	Records    int       `json:"records" yaml:"records"`
	MissingIDs int       `json:"missing_ids" yaml:"missing_ids"`
	ExportedAt time.Time `json:"exported_at" yaml:"exported_at"`
}
