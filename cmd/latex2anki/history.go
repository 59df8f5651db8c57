// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/latex2anki/internal/ledger"
	"github.com/pdiddy/latex2anki/pkg/types"
)

var historyCmd = &cobra.Command{
	Use:   "history [note-id]",
	Short: "List recent conversions recorded in the ledger",
	Long: `History reads the ledger database (--ledger or ledger.path) and lists
recent conversions. With a note identifier it lists every export of that
note instead, which helps track down identifiers reused across documents.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHistory,
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	limit, _ := cmd.Flags().GetInt("limit")
	format, _ := cmd.Flags().GetString("format")

	l, err := ledger.Open(cfg.Ledger.Path, logger)
	if err != nil {
		return err
	}
	defer l.Close()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	if len(args) == 1 {
		notes, err := l.Notes(ctx, args[0])
		if err != nil {
			return err
		}
		printNotes(out, notes)
		return nil
	}

	switch format {
	case "yaml":
		return l.ExportYAML(ctx, out, limit)
	case "json":
		return l.ExportJSON(ctx, out, limit)
	case "table", "":
		runs, err := l.Runs(ctx, limit)
		if err != nil {
			return err
		}
		printRuns(out, runs)
		return nil
	default:
		return fmt.Errorf("unknown format %q (use table, yaml, or json)", format)
	}
}

func printRuns(w io.Writer, runs []types.Run) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No conversions recorded.")
		return
	}
	fmt.Fprintf(w, "%-5s  %-20s  %-7s  %-7s  %s\n", "Run", "Exported", "Notes", "No ID", "Document")
	fmt.Fprintln(w, strings.Repeat("-", 80))
	for _, r := range runs {
		fmt.Fprintf(w, "%-5d  %-20s  %-7d  %-7d  %s\n",
			r.ID, r.ExportedAt.Format("2006-01-02 15:04:05"), r.Records, r.MissingIDs, r.Document)
	}
}

func printNotes(w io.Writer, notes []types.ExportedNote) {
	if len(notes) == 0 {
		fmt.Fprintln(w, "Note not found in ledger.")
		return
	}
	for _, n := range notes {
		fmt.Fprintf(w, "run %d  %s  %d fields  %s\n",
			n.RunID, n.ExportedAt.Format("2006-01-02 15:04:05"), n.FieldCount, n.Document)
	}
}

func init() {
	historyCmd.Flags().Int("limit", 20, "maximum number of conversions to list")
	historyCmd.Flags().String("format", "table", "output format: table, yaml, or json")

	rootCmd.AddCommand(historyCmd)
}
