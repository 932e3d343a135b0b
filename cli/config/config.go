package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/ltwin/communication-translator/output"
	"github.com/ltwin/communication-translator/types"
)

// Defaults applied by Resolve when neither the file nor a flag sets a value.
const (
	DefaultEndpoint  = "http://localhost:8080"
	DefaultTimeout   = 30 * time.Second
	DefaultFormatter = "markdown"
	DefaultLogLevel  = "info"
)

// Config represents a commtrans.yaml configuration file.
// All values are optional and act as defaults for command flags.
// CLI flags always override config values.
type Config struct {
	Endpoint  string        `yaml:"endpoint"`
	Timeout   Duration      `yaml:"timeout"`
	Direction string        `yaml:"direction"`
	Formatter string        `yaml:"formatter"`
	Theme     string        `yaml:"theme"`
	Wrap      int           `yaml:"wrap"`
	Export    string        `yaml:"export"`
	Log       LogConfig     `yaml:"log"`
	History   HistoryConfig `yaml:"history"`
	S3        S3Config      `yaml:"s3"`
	Adapter   AdapterConfig `yaml:"adapter"`
}

// LogConfig holds logging defaults.
type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// HistoryConfig controls the local session history.
type HistoryConfig struct {
	Path     string `yaml:"path"`
	Disabled bool   `yaml:"disabled"`
}

// S3Config holds settings for s3:// export targets.
type S3Config struct {
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint"`
	PathStyle bool   `yaml:"path_style"`
}

// AdapterConfig holds session-finished notification settings.
type AdapterConfig struct {
	Type    string            `yaml:"type"`
	URL     string            `yaml:"url"`
	Channel string            `yaml:"channel,omitempty"`
	Dataset string            `yaml:"dataset,omitempty"`
	Headers map[string]string `yaml:"headers,omitempty"`
	Timeout Duration          `yaml:"timeout,omitempty"`
	Retries *int              `yaml:"retries,omitempty"`
}

// Enabled reports whether a notification adapter is configured.
func (a AdapterConfig) Enabled() bool {
	return a.Type != ""
}

// Duration wraps time.Duration for YAML string parsing (e.g. "30s", "2m").
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses a duration string like "10s" or "5m30s".
func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	if s == "" {
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	if parsed < 0 {
		return fmt.Errorf("invalid duration %q: must not be negative", s)
	}
	d.Duration = parsed
	return nil
}

// MarshalYAML writes the duration in time.Duration string form.
func (d Duration) MarshalYAML() (any, error) {
	if d.Duration == 0 {
		return "", nil
	}
	return d.String(), nil
}

// Default returns a Config with every default filled in.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Endpoint == "" {
		c.Endpoint = DefaultEndpoint
	}
	if c.Timeout.Duration == 0 {
		c.Timeout.Duration = DefaultTimeout
	}
	if c.Direction == "" {
		c.Direction = string(types.ModeAuto)
	}
	if c.Formatter == "" {
		c.Formatter = DefaultFormatter
	}
	if c.Theme == "" {
		c.Theme = string(output.ThemeDark)
	}
	if c.Wrap == 0 {
		c.Wrap = output.DefaultWrap
	}
	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
}

// Validate checks enumerated values. All problems are reported together.
func (c *Config) Validate() error {
	var errs []error
	if _, err := types.ParseMode(c.Direction); err != nil {
		errs = append(errs, err)
	}
	switch c.Formatter {
	case "", "markdown", "plain":
	default:
		errs = append(errs, fmt.Errorf("invalid formatter: %q (must be markdown or plain)", c.Formatter))
	}
	if _, err := output.ParseTheme(c.Theme); err != nil {
		errs = append(errs, err)
	}
	if c.Wrap < 0 {
		errs = append(errs, fmt.Errorf("wrap must be >= 0, got %d", c.Wrap))
	}
	switch c.Adapter.Type {
	case "":
	case "webhook", "redis", "archive":
		if c.Adapter.URL == "" {
			errs = append(errs, fmt.Errorf("adapter %s requires a url", c.Adapter.Type))
		}
		if c.Adapter.Retries != nil && *c.Adapter.Retries < 0 {
			errs = append(errs, fmt.Errorf("adapter retries must be >= 0, got %d", *c.Adapter.Retries))
		}
	default:
		errs = append(errs, fmt.Errorf("invalid adapter type: %q (must be webhook, redis, or archive)", c.Adapter.Type))
	}
	return errors.Join(errs...)
}
