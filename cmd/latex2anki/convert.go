// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/pdiddy/latex2anki/internal/convert"
	"github.com/pdiddy/latex2anki/internal/extract"
	"github.com/pdiddy/latex2anki/internal/ledger"
	"github.com/pdiddy/latex2anki/internal/render"
	"github.com/pdiddy/latex2anki/pkg/types"
)

func runConvert(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	sources, err := convert.ExpandSources(args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	pipeline, closeFn, err := newPipeline(cfg, out)
	if err != nil {
		return err
	}
	defer closeFn()

	ctx := cmd.Context()
	watch, _ := cmd.Flags().GetBool("watch")

	err = convertAll(ctx, pipeline, sources, out)
	if !watch {
		return err
	}
	if err != nil {
		logger.Error("conversion failed", slog.Any("error", err))
	}

	fmt.Fprintf(out, "\nWatching %d document(s) for changes (Ctrl-C to stop)...\n", len(sources))
	return convert.Watch(ctx, sources, cfg.Watch.Debounce, logger, func(src string) {
		if _, err := pipeline.ConvertDocument(ctx, src, out); err != nil {
			logger.Error("conversion failed", slog.String("document", src), slog.Any("error", err))
		}
	})
}

// convertAll converts a single document directly, or several as a batch.
func convertAll(ctx context.Context, p *convert.Pipeline, sources []string, out io.Writer) error {
	if len(sources) == 1 {
		_, err := p.ConvertDocument(ctx, sources[0], out)
		return err
	}
	result := p.ConvertBatch(ctx, sources, out)
	if result.HasFailures() {
		return fmt.Errorf("%d of %d document(s) failed", result.Failed, result.Total())
	}
	return ctx.Err()
}

// newPipeline wires the renderer, extractor and optional ledger. The
// returned func releases the ledger.
func newPipeline(cfg types.Config, out io.Writer) (*convert.Pipeline, func(), error) {
	r, err := render.NewPlastexRenderer(cfg.Renderer, out, logger)
	if err != nil {
		return nil, nil, err
	}
	opts := []convert.Option{convert.WithLogger(logger)}
	closeFn := func() {}

	if cfg.Ledger.Path != "" {
		l, err := ledger.Open(cfg.Ledger.Path, logger)
		if err != nil {
			return nil, nil, err
		}
		opts = append(opts, convert.WithRecorder(l))
		closeFn = func() {
			if err := l.Close(); err != nil {
				logger.Warn("closing ledger", slog.Any("error", err))
			}
		}
	}

	return convert.New(r, extract.New(extract.WithLogger(logger)), opts...), closeFn, nil
}
