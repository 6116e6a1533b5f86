package logger

import (
	"fmt"
	"slices"
)

var (
	levels  = []string{"trace", "debug", "info", "warn", "error", "fatal"}
	formats = []string{"json", "console", "text"}
)

// Config is the logging section of the service config.
type Config struct {
	Level     string `yaml:"level" mapstructure:"level"`
	Format    string `yaml:"format" mapstructure:"format"` // json, console or text
	Output    string `yaml:"output" mapstructure:"output"` // stdout, stderr or discard
	NoColor   bool   `yaml:"no_color" mapstructure:"no_color"`
	Timestamp bool   `yaml:"timestamp" mapstructure:"timestamp"`
	Caller    bool   `yaml:"caller" mapstructure:"caller"`

	// ServiceName is filled from the service config, never from the file.
	ServiceName string `yaml:"-" mapstructure:"-"`
}

// ApplyDefaults selects info-level console output on stdout. Timestamps are
// always on.
func (c *Config) ApplyDefaults() {
	if c.Level == "" {
		c.Level = "info"
	}
	if c.Format == "" {
		c.Format = "console"
	}
	if c.Output == "" {
		c.Output = "stdout"
	}
	c.Timestamp = true
}

func (c *Config) Validate() error {
	switch {
	case !slices.Contains(levels, c.Level):
		return fmt.Errorf("logging.level %q is not one of %v", c.Level, levels)
	case !slices.Contains(formats, c.Format):
		return fmt.Errorf("logging.format %q is not one of %v", c.Format, formats)
	}
	return nil
}
