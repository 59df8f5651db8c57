package types

import "time"

// RendererConfig holds settings for the LaTeX-to-HTML renderer.
type RendererConfig struct {
	// Binary is the renderer executable (default "plastex").
	Binary string `json:"binary" yaml:"binary" mapstructure:"binary"`

	// Args are extra arguments passed before the template and filename flags.
	Args []string `json:"args,omitempty" yaml:"args,omitempty" mapstructure:"args"`
}

// LedgerConfig holds settings for the export history database.
type LedgerConfig struct {
	// Path is the SQLite database file. Empty disables the ledger.
	Path string `json:"path" yaml:"path" mapstructure:"path"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	// Level is one of debug, info, warn, error (default info).
	Level string `json:"level" yaml:"level" mapstructure:"level"`
}

// WatchConfig holds settings for watch mode.
type WatchConfig struct {
	// Debounce is how long to wait after the last change before reconverting (default 300ms).
	Debounce time.Duration `json:"debounce" yaml:"debounce" mapstructure:"debounce"`
}

// Config groups all latex2anki settings.
type Config struct {
	Renderer RendererConfig `json:"renderer" yaml:"renderer" mapstructure:"renderer"`
	Ledger   LedgerConfig   `json:"ledger" yaml:"ledger" mapstructure:"ledger"`
	Log      LogConfig      `json:"log" yaml:"log" mapstructure:"log"`
	Watch    WatchConfig    `json:"watch" yaml:"watch" mapstructure:"watch"`
}
