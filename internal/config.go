package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/assetcook/internal/ledger"
	"github.com/starford/assetcook/internal/logfields"
)

// Log formats.
const (
	LogFormatText = "text"
	LogFormatJSON = "json"
)

// Config represents the tool configuration. It is separate from the
// per-tree settings document, which lives inside the source root.
type Config struct {
	App     ApplicationConfig `yaml:"app"`
	Ledger  LedgerConfig      `yaml:"ledger"`
	Metrics MetricsConfig     `yaml:"metrics"`
	Watch   WatchConfig       `yaml:"watch"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Ledger.Validate(); err != nil {
		return err
	}
	return c.Watch.Validate()
}

// ApplicationConfig holds application-level configuration.
//
// LogLevel accepts TRACE, DEBUG, INFO, WARN or ERROR.
type ApplicationConfig struct {
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	if c.LogFormat == "" {
		c.LogFormat = LogFormatText
	}
	if c.LogLevel == "" {
		c.LogLevel = "INFO"
	}
	if _, err := logfields.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("app: log_level: %w", err)
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.LogFormat, validation.In(LogFormatText, LogFormatJSON)),
	)
}

// Level returns the parsed log level, INFO when unset or invalid.
func (c *ApplicationConfig) Level() slog.Level {
	lvl, err := logfields.ParseLevel(c.LogLevel)
	if err != nil {
		return slog.LevelInfo
	}
	return lvl
}

// LedgerConfig controls where the build ledger is persisted.
//
// Dir is the directory holding one ledger per platform and configuration.
// Backend is "text" (default, one line per record) or "sqlite".
type LedgerConfig struct {
	Dir     string `yaml:"dir"`
	Backend string `yaml:"backend"`
}

// Validate validates the ledger configuration.
func (c *LedgerConfig) Validate() error {
	if c.Backend == "" {
		c.Backend = ledger.BackendText
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.Dir, validation.Required),
		validation.Field(&c.Backend, validation.Required, validation.In(ledger.BackendText, ledger.BackendSQLite)),
	)
}

// MetricsConfig holds optional metrics export settings. An empty Textfile
// disables metrics.
type MetricsConfig struct {
	Textfile string `yaml:"textfile"`
}

// Enabled returns true when metrics should be collected and written.
func (c *MetricsConfig) Enabled() bool {
	return c.Textfile != ""
}

// WatchConfig holds watch mode settings.
type WatchConfig struct {
	Debounce time.Duration `yaml:"debounce"`
}

// Validate validates the watch configuration.
func (c *WatchConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Debounce, validation.Min(10*time.Millisecond)),
	)
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel:  "INFO",
			LogFormat: LogFormatText,
		},
		Ledger: LedgerConfig{
			Dir:     ".",
			Backend: ledger.BackendText,
		},
		Watch: WatchConfig{
			Debounce: 300 * time.Millisecond,
		},
	}
}
