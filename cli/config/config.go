package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/pithecene-io/plandesk/poll"
)

// DefaultPath is the config file read when --config is not given.
const DefaultPath = "plandesk.yaml"

// Config represents a plandesk.yaml configuration file.
// All values are optional; CLI flags always override them.
type Config struct {
	Service ServiceConfig `yaml:"service"`
	Poll    PollConfig    `yaml:"poll"`
	Chat    ChatConfig    `yaml:"chat"`
	Journal JournalConfig `yaml:"journal"`
	Export  ExportConfig  `yaml:"export"`
	Adapter AdapterConfig `yaml:"adapter"`
	Log     LogConfig     `yaml:"log"`
}

// ServiceConfig locates the remote API.
type ServiceConfig struct {
	URL     string            `yaml:"url"`
	Token   string            `yaml:"token"`
	Headers map[string]string `yaml:"headers,omitempty"`
	Timeout Duration          `yaml:"timeout,omitempty"`
}

// PollConfig holds the status polling schedule.
type PollConfig struct {
	Interval    Duration `yaml:"interval"`
	MaxAttempts int      `yaml:"max_attempts"`
}

// ChatConfig holds interactive chat defaults.
type ChatConfig struct {
	Greeting   *string `yaml:"greeting,omitempty"`
	ChartsDir  string  `yaml:"charts_dir"`
	ReportsDir string  `yaml:"reports_dir"`
}

// JournalConfig enables the session journal.
type JournalConfig struct {
	Path string `yaml:"path"`
}

// ExportConfig holds result export settings.
type ExportConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Dataset     string `yaml:"dataset"`
	Backend     string `yaml:"backend"`
	Path        string `yaml:"path"`
	Region      string `yaml:"region"`
	Endpoint    string `yaml:"endpoint"`
	S3PathStyle bool   `yaml:"s3_path_style"`
}

// AdapterConfig holds completion notification settings.
type AdapterConfig struct {
	Type    string            `yaml:"type"`
	URL     string            `yaml:"url"`
	Channel string            `yaml:"channel,omitempty"`
	Headers map[string]string `yaml:"headers,omitempty"`
	Timeout Duration          `yaml:"timeout,omitempty"`
	Retries *int              `yaml:"retries,omitempty"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `yaml:"level"`
	// Path receives logs of interactive sessions; empty discards them.
	Path string `yaml:"path"`
}

// Duration wraps time.Duration for YAML string parsing (e.g. "10s", "5m").
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
	d.Duration = parsed
	return nil
}

// PollSchedule returns the configured schedule, with defaults for unset
// values.
func (c *Config) PollSchedule() poll.Config {
	cfg := poll.DefaultConfig()
	if c.Poll.Interval.Duration > 0 {
		cfg.Interval = c.Poll.Interval.Duration
	}
	if c.Poll.MaxAttempts > 0 {
		cfg.MaxAttempts = c.Poll.MaxAttempts
	}
	return cfg
}

// Validate checks enumerated values and numeric ranges.
func (c *Config) Validate() error {
	var errs []error
	if c.Poll.Interval.Duration < 0 {
		errs = append(errs, fmt.Errorf("poll.interval must be positive, got %s", c.Poll.Interval))
	}
	if c.Poll.MaxAttempts < 0 {
		errs = append(errs, fmt.Errorf("poll.max_attempts must be positive, got %d", c.Poll.MaxAttempts))
	}
	switch c.Export.Backend {
	case "", "fs", "s3":
	default:
		errs = append(errs, fmt.Errorf("export.backend must be fs or s3, got %q", c.Export.Backend))
	}
	if c.Export.Enabled && c.Export.Path == "" {
		errs = append(errs, errors.New("export.path is required when export is enabled"))
	}
	switch c.Adapter.Type {
	case "":
	case "webhook", "redis":
		if c.Adapter.URL == "" {
			errs = append(errs, fmt.Errorf("adapter.url is required for %s adapter", c.Adapter.Type))
		}
	default:
		errs = append(errs, fmt.Errorf("adapter.type must be webhook or redis, got %q", c.Adapter.Type))
	}
	if c.Adapter.Retries != nil && *c.Adapter.Retries < 0 {
		errs = append(errs, fmt.Errorf("adapter.retries must be >= 0, got %d", *c.Adapter.Retries))
	}
	return errors.Join(errs...)
}
