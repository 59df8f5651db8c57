// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package render

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
)

// TemplateFile is the name of the template override file inside the
// template directory handed to the renderer.
const TemplateFile = "latex2anki.jinja2s"

// templateAsset maps the note and field objects to the markup the extractor
// expects: a div.note holding a div.uuid, and a br.fieldseparator per field.
//
//go:embed templates/latex2anki.jinja2s
var templateAsset []byte

// Template returns a copy of the embedded template overrides.
func Template() []byte {
	return append([]byte(nil), templateAsset...)
}

// WithTemplateDir creates a temporary directory holding the template
// overrides, calls fn with its path and removes the directory afterwards,
// whether or not fn fails.
func WithTemplateDir(fn func(dir string) error) (err error) {
	dir, err := os.MkdirTemp("", "latex2anki-templates-")
	if err != nil {
		return fmt.Errorf("creating template directory: %w", err)
	}
	defer func() {
		if rmErr := os.RemoveAll(dir); rmErr != nil && err == nil {
			err = fmt.Errorf("removing template directory %s: %w", dir, rmErr)
		}
	}()

	if err := os.WriteFile(filepath.Join(dir, TemplateFile), templateAsset, 0o644); err != nil {
		return fmt.Errorf("writing template: %w", err)
	}
	return fn(dir)
}
