// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package ledger keeps a SQLite history of exported notes. It lets the CLI
// report which identifiers were exported when and from which document, and
// warn when one identifier turns up in two places.
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/latex2anki/pkg/types"
)

// ErrDisabled is returned by commands that need the ledger when no ledger
// path is configured.
var ErrDisabled = errors.New("ledger disabled: set --ledger or ledger.path")

const defaultLimit = 20

// Ledger manages the export history database.
type Ledger struct {
	db     *sql.DB
	logger *slog.Logger
	now    func() time.Time
}

// Open opens or creates the ledger database at path and creates the schema
// if it does not exist.
func Open(path string, logger *slog.Logger) (*Ledger, error) {
	if path == "" {
		return nil, ErrDisabled
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating ledger directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening ledger: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	l := &Ledger{
		db:     db,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
	if err := l.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return l, nil
}

// Close releases the database connection.
func (l *Ledger) Close() error {
	return l.db.Close()
}

func (l *Ledger) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			document TEXT NOT NULL,
			csv_path TEXT NOT NULL,
			records INTEGER NOT NULL,
			missing_ids INTEGER NOT NULL,
			exported_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS notes (
			run_id INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			note_id TEXT NOT NULL,
			document TEXT NOT NULL,
			field_count INTEGER NOT NULL,
			exported_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_notes_note_id ON notes(note_id)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_document ON runs(document)`,
	}
	for _, stmt := range statements {
		if _, err := l.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Record stores one conversion of doc. Notes without an identifier are
// counted but not stored. Identifiers repeated within the document, or
// previously exported from a different document, are logged as warnings.
func (l *Ledger) Record(ctx context.Context, doc types.Document, records []types.Record) (types.Run, error) {
	source := doc.Source
	if abs, err := filepath.Abs(source); err == nil {
		source = abs
	}
	ts := l.now()
	stamp := ts.Format(time.RFC3339Nano)

	run := types.Run{
		Document:   source,
		CSVPath:    doc.CSVPath,
		Records:    len(records),
		ExportedAt: ts,
	}
	for _, r := range records {
		if r.ID() == "" {
			run.MissingIDs++
		}
	}

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return types.Run{}, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO runs (document, csv_path, records, missing_ids, exported_at) VALUES (?, ?, ?, ?, ?)`,
		run.Document, run.CSVPath, run.Records, run.MissingIDs, stamp)
	if err != nil {
		return types.Run{}, fmt.Errorf("inserting run: %w", err)
	}
	if run.ID, err = res.LastInsertId(); err != nil {
		return types.Run{}, fmt.Errorf("reading run id: %w", err)
	}

	seen := make(map[string]bool, len(records))
	for _, r := range records {
		id := r.ID()
		if id == "" {
			continue
		}
		if seen[id] {
			l.logger.Warn("duplicate identifier in document",
				slog.String("id", id), slog.String("document", source))
		}
		seen[id] = true

		var other string
		err := tx.QueryRowContext(ctx,
			`SELECT document FROM notes WHERE note_id = ? AND document <> ? ORDER BY exported_at DESC LIMIT 1`,
			id, source).Scan(&other)
		switch {
		case err == nil:
			l.logger.Warn("identifier previously exported from another document",
				slog.String("id", id),
				slog.String("document", source),
				slog.String("previous", other))
		case !errors.Is(err, sql.ErrNoRows):
			return types.Run{}, fmt.Errorf("checking identifier %s: %w", id, err)
		}

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO notes (run_id, note_id, document, field_count, exported_at) VALUES (?, ?, ?, ?, ?)`,
			run.ID, id, source, len(r.Fields), stamp); err != nil {
			return types.Run{}, fmt.Errorf("inserting note %s: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return types.Run{}, fmt.Errorf("committing run: %w", err)
	}
	return run, nil
}

// Runs returns the most recent runs, newest first. limit <= 0 uses a
// default of 20.
func (l *Ledger) Runs(ctx context.Context, limit int) ([]types.Run, error) {
	if limit <= 0 {
		limit = defaultLimit
	}
	rows, err := l.db.QueryContext(ctx,
		`SELECT id, document, csv_path, records, missing_ids, exported_at
		 FROM runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	runs := []types.Run{}
	for rows.Next() {
		var r types.Run
		var stamp string
		if err := rows.Scan(&r.ID, &r.Document, &r.CSVPath, &r.Records, &r.MissingIDs, &stamp); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		if r.ExportedAt, err = time.Parse(time.RFC3339Nano, stamp); err != nil {
			return nil, fmt.Errorf("parsing run time %q: %w", stamp, err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Notes returns every export of the note with the given identifier,
// newest first.
func (l *Ledger) Notes(ctx context.Context, noteID string) ([]types.ExportedNote, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT run_id, document, note_id, field_count, exported_at
		 FROM notes WHERE note_id = ? ORDER BY run_id DESC`, noteID)
	if err != nil {
		return nil, fmt.Errorf("querying notes: %w", err)
	}
	defer rows.Close()

	notes := []types.ExportedNote{}
	for rows.Next() {
		var n types.ExportedNote
		var stamp string
		if err := rows.Scan(&n.RunID, &n.Document, &n.NoteID, &n.FieldCount, &stamp); err != nil {
			return nil, fmt.Errorf("scanning note: %w", err)
		}
		if n.ExportedAt, err = time.Parse(time.RFC3339Nano, stamp); err != nil {
			return nil, fmt.Errorf("parsing note time %q: %w", stamp, err)
		}
		notes = append(notes, n)
	}
	return notes, rows.Err()
}
