package server

import "github.com/kbukum/rendergraph/validation"

// Config holds console server configuration.
type Config struct {
	Enabled      bool   `yaml:"enabled" mapstructure:"enabled"`
	Host         string `yaml:"host" mapstructure:"host"`
	Port         int    `yaml:"port" mapstructure:"port"`
	ReadTimeout  int    `yaml:"read_timeout" mapstructure:"read_timeout"`   // seconds
	WriteTimeout int    `yaml:"write_timeout" mapstructure:"write_timeout"` // seconds
	IdleTimeout  int    `yaml:"idle_timeout" mapstructure:"idle_timeout"`   // seconds
}

// ApplyDefaults binds the console to loopback. Port 0 stays 0 and picks a
// free port on Start.
func (c *Config) ApplyDefaults() {
	if c.Host == "" {
		c.Host = "127.0.0.1"
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 15
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = 15
	}
	if c.IdleTimeout == 0 {
		c.IdleTimeout = 60
	}
}

// Validate reports every invalid field at once.
func (c *Config) Validate() error {
	return validation.New().
		Range("console.port", c.Port, 0, 65535).
		Custom(c.ReadTimeout >= 0, "console.read_timeout", "must be non-negative").
		Custom(c.WriteTimeout >= 0, "console.write_timeout", "must be non-negative").
		Custom(c.IdleTimeout >= 0, "console.idle_timeout", "must be non-negative").
		Validate()
}
