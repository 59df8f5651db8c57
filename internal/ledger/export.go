// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"go.yaml.in/yaml/v3"
)

// ExportYAML writes the most recent runs to w as a YAML list.
func (l *Ledger) ExportYAML(ctx context.Context, w io.Writer, limit int) error {
	runs, err := l.Runs(ctx, limit)
	if err != nil {
		return err
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(runs); err != nil {
		return fmt.Errorf("marshaling YAML: %w", err)
	}
	return enc.Close()
}

// ExportJSON writes the most recent runs to w as indented JSON.
func (l *Ledger) ExportJSON(ctx context.Context, w io.Writer, limit int) error {
	runs, err := l.Runs(ctx, limit)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(runs); err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	return nil
}
