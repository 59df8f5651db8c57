// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the latex2anki CLI.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/latex2anki/internal/convert"
	"github.com/pdiddy/latex2anki/internal/render"
	"github.com/pdiddy/latex2anki/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// logger is configured from --log-level before any command runs.
var logger = slog.Default()

// rootCmd converts a LaTeX document; subcommands inspect and report.
var rootCmd = &cobra.Command{
	Use:   "latex2anki <document.tex>",
	Short: "Convert LaTeX flashcard notes into an Anki import file",
	Long: `latex2anki renders a LaTeX document with plasTeX, collects every note
environment from the HTML output and writes an Anki text import file.

For dir/name.tex the rendered HTML is dir/name/name.html and the import
file is dir/name/name.csv. The first column holds the note's uuid, the
remaining columns its fields. Cloze markers ((CLOZEn)), ((HINT)) and
((CLEND)) become Anki's {{cn::...::...}} syntax.

The argument may be a glob such as 'decks/**/*.tex' to convert several
documents in one run.`,
	Args:              cobra.ExactArgs(1),
	SilenceUsage:      true,
	PersistentPreRunE: setupLogging,
	RunE:              runConvert,
}

func init() {
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "config file (default: ./latex2anki.yaml or ~/.config/latex2anki/config.yaml)")
	pf.String("log-level", "info", "log level: debug, info, warn, or error")
	pf.String("ledger", "", "SQLite file recording exported notes (empty disables)")
	_ = viper.BindPFlag("log.level", pf.Lookup("log-level"))
	_ = viper.BindPFlag("ledger.path", pf.Lookup("ledger"))

	f := rootCmd.Flags()
	f.String("renderer", render.DefaultBinary, "LaTeX-to-HTML renderer executable")
	f.Bool("watch", false, "convert again whenever the document changes")
	_ = viper.BindPFlag("renderer.binary", f.Lookup("renderer"))

	viper.SetDefault("renderer.binary", render.DefaultBinary)
	viper.SetDefault("log.level", "info")
	viper.SetDefault("watch.debounce", convert.DefaultDebounce)
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("latex2anki")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "latex2anki"))
		}
	}

	viper.SetEnvPrefix("LATEX2ANKI")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// loadConfig decodes the merged flag, env and file settings.
func loadConfig() (types.Config, error) {
	var cfg types.Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return types.Config{}, fmt.Errorf("decoding config: %w", err)
	}
	return cfg, nil
}

// setupLogging installs a text logger on stderr at the configured level.
func setupLogging(cmd *cobra.Command, args []string) error {
	level, err := parseLevel(viper.GetString("log.level"))
	if err != nil {
		return err
	}
	logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return nil
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("invalid log level %q: %w", s, err)
	}
	return level, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
