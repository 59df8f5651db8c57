// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package deck writes records as an Anki text import file.
package deck

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/pdiddy/latex2anki/pkg/types"
)

// Separator is the field delimiter announced in the file header.
const Separator = '|'

// emptyRow is a record holding a single empty field. encoding/csv writes
// that as a blank line, which Anki skips, so it is written quoted.
const emptyRow = `""` + "\n"

// header lines tell Anki which separator is used and that fields hold HTML.
var header = []string{
	"#separator:" + string(Separator),
	"#html:true",
}

// Write writes the header followed by one row per record. Fields are quoted
// only when they contain the separator, a double quote or a line break.
func Write(w io.Writer, records []types.Record) error {
	bw := bufio.NewWriter(w)
	for _, line := range header {
		if _, err := bw.WriteString(line + "\n"); err != nil {
			return fmt.Errorf("writing header: %w", err)
		}
	}

	cw := csv.NewWriter(bw)
	cw.Comma = Separator
	for i, rec := range records {
		if len(rec.Fields) == 1 && rec.Fields[0] == "" {
			cw.Flush()
			if _, err := bw.WriteString(emptyRow); err != nil {
				return fmt.Errorf("writing record %d: %w", i+1, err)
			}
			continue
		}
		if err := cw.Write(rec.Fields); err != nil {
			return fmt.Errorf("writing record %d: %w", i+1, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("writing records: %w", err)
	}
	return bw.Flush()
}

// WriteFile writes records to path, creating its directory if needed.
func WriteFile(path string, records []types.Record) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("closing %s: %w", path, cerr)
		}
	}()
	if err := Write(f, records); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
