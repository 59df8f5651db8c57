// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package render runs the external LaTeX-to-HTML renderer.
package render

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/pdiddy/latex2anki/pkg/types"
)

// DefaultBinary is the renderer executable used when none is configured.
const DefaultBinary = "plastex"

// Renderer converts a LaTeX document into HTML using the template overrides
// in templateDir. It returns the path of the HTML file it produced.
type Renderer interface {
	Render(ctx context.Context, doc, templateDir, outputName string) (string, error)
}

// executor abstracts command execution for testing.
type executor interface {
	LookPath(file string) (string, error)
	Run(ctx context.Context, dir, name string, args []string, stdout, stderr io.Writer) error
}

// osExecutor is the production executor backed by os/exec.
type osExecutor struct{}

func (o *osExecutor) LookPath(file string) (string, error) {
	return exec.LookPath(file)
}

func (o *osExecutor) Run(ctx context.Context, dir, name string, args []string, stdout, stderr io.Writer) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	return cmd.Run()
}

// exitError is satisfied by *exec.ExitError.
type exitError interface {
	error
	ExitCode() int
}

var defaultExec = &osExecutor{}

// PlastexRenderer renders documents by shelling out to plasTeX. The process
// runs in the document's directory, so plasTeX writes its output to
// <dir>/<stem>/<outputName>.
type PlastexRenderer struct {
	binary string
	args   []string
	out    io.Writer
	logger *slog.Logger
	exec   executor
}

// NewPlastexRenderer returns a renderer for cfg. Renderer output is copied
// to out. It fails if the configured binary is not on PATH.
func NewPlastexRenderer(cfg types.RendererConfig, out io.Writer, logger *slog.Logger) (*PlastexRenderer, error) {
	return newPlastexRenderer(cfg, out, logger, defaultExec)
}

func newPlastexRenderer(cfg types.RendererConfig, out io.Writer, logger *slog.Logger, exec executor) (*PlastexRenderer, error) {
	bin := cfg.Binary
	if bin == "" {
		bin = DefaultBinary
	}
	if _, err := exec.LookPath(bin); err != nil {
		return nil, fmt.Errorf("renderer %s not available: %w", bin, err)
	}
	if out == nil {
		out = io.Discard
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PlastexRenderer{
		binary: bin,
		args:   cfg.Args,
		out:    out,
		logger: logger,
		exec:   exec,
	}, nil
}

// commandArgs returns the command line used to render doc.
func (p *PlastexRenderer) commandArgs(doc, templateDir, outputName string) []string {
	args := make([]string, 0, len(p.args)+3)
	args = append(args, p.args...)
	args = append(args,
		"--extra-templates="+templateDir,
		"--filename="+outputName,
		filepath.Base(doc),
	)
	return args
}

// Render runs plasTeX on doc. A renderer that exits non-zero is only
// logged: plasTeX reports recoverable LaTeX errors that way and still
// writes output. Callers detect a real failure by the missing HTML file.
func (p *PlastexRenderer) Render(ctx context.Context, doc, templateDir, outputName string) (string, error) {
	absTemplates, err := filepath.Abs(templateDir)
	if err != nil {
		return "", fmt.Errorf("resolving template directory: %w", err)
	}
	dir := filepath.Dir(doc)
	base := filepath.Base(doc)
	stem := strings.TrimSuffix(base, filepath.Ext(base))

	args := p.commandArgs(doc, absTemplates, outputName)
	p.logger.Debug("running renderer",
		slog.String("binary", p.binary),
		slog.String("dir", dir),
		slog.Any("args", args))

	if err := p.exec.Run(ctx, dir, p.binary, args, p.out, p.out); err != nil {
		var exitErr exitError
		if !errors.As(err, &exitErr) {
			return "", fmt.Errorf("running %s on %s: %w", p.binary, doc, err)
		}
		p.logger.Warn("renderer exited with an error",
			slog.String("binary", p.binary),
			slog.String("document", doc),
			slog.Int("exit_code", exitErr.ExitCode()))
	}
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("rendering %s: %w", doc, err)
	}

	return filepath.Join(dir, stem, outputName), nil
}

// RenderDocument provisions the template directory, renders doc with r and
// removes the templates again before returning.
func RenderDocument(ctx context.Context, r Renderer, doc, outputName string) (string, error) {
	var htmlPath string
	err := WithTemplateDir(func(dir string) error {
		p, err := r.Render(ctx, doc, dir, outputName)
		if err != nil {
			return err
		}
		htmlPath = p
		return nil
	})
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(htmlPath); err != nil {
		return "", fmt.Errorf("renderer produced no output at %s: %w", htmlPath, err)
	}
	return htmlPath, nil
}
