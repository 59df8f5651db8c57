// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/latex2anki/internal/deck"
	"github.com/pdiddy/latex2anki/internal/extract"
	"github.com/pdiddy/latex2anki/pkg/types"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <file.html>",
	Short: "Show the records extracted from already rendered HTML",
	Long: `Inspect runs only the extraction step over an HTML file produced by
plasTeX and prints the resulting records. Use it to check note templates
without re-rendering the LaTeX source.`,
	Args: cobra.ExactArgs(1),
	RunE: runInspect,
}

func runInspect(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")

	records, err := extract.New(extract.WithLogger(logger)).ExtractFile(args[0])
	if err != nil {
		return err
	}
	return formatRecords(cmd.OutOrStdout(), records, format)
}

func formatRecords(w io.Writer, records []types.Record, format string) error {
	switch format {
	case "yaml", "":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(records); err != nil {
			return fmt.Errorf("marshaling YAML: %w", err)
		}
		return enc.Close()
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	case "csv":
		return deck.Write(w, records)
	default:
		return fmt.Errorf("unknown format %q (use yaml, json, or csv)", format)
	}
}

func init() {
	inspectCmd.Flags().String("format", "yaml", "output format: yaml, json, or csv")

	rootCmd.AddCommand(inspectCmd)
}
