package main

import (
	"fmt"
	"time"

	"github.com/kbukum/rendergraph/config"
	"github.com/kbukum/rendergraph/observability"
	"github.com/kbukum/rendergraph/server"
	"github.com/kbukum/rendergraph/validation"
)

// AppConfig is the render binary's configuration.
type AppConfig struct {
	config.ServiceConfig `yaml:",inline" mapstructure:",squash"`

	Rendering     config.RenderingSettings `yaml:"rendering" mapstructure:"rendering"`
	Display       DisplayConfig            `yaml:"display" mapstructure:"display"`
	Loop          LoopConfig               `yaml:"loop" mapstructure:"loop"`
	Pipeline      PipelineConfig           `yaml:"pipeline" mapstructure:"pipeline"`
	Console       server.Config            `yaml:"console" mapstructure:"console"`
	Observability observability.Config     `yaml:"observability" mapstructure:"observability"`
}

// DisplayConfig is the initial display resolution.
type DisplayConfig struct {
	Width  int `yaml:"width" mapstructure:"width" validate:"gt=0"`
	Height int `yaml:"height" mapstructure:"height" validate:"gt=0"`
}

// LoopConfig controls the frame loop.
type LoopConfig struct {
	Interval time.Duration `yaml:"interval" mapstructure:"interval" validate:"gte=0"`
	Frames   int           `yaml:"frames" mapstructure:"frames" validate:"gte=0"`
}

// PipelineConfig locates the pipeline definition.
type PipelineConfig struct {
	Dir  string `yaml:"dir" mapstructure:"dir" validate:"required"`
	Name string `yaml:"name" mapstructure:"name" validate:"required"`
}

// ApplyDefaults fills every section.
func (c *AppConfig) ApplyDefaults() {
	if c.Name == "" {
		c.Name = serviceName
	}
	c.ServiceConfig.ApplyDefaults()
	if c.Display.Width == 0 {
		c.Display.Width = 1920
	}
	if c.Display.Height == 0 {
		c.Display.Height = 1080
	}
	if c.Loop.Interval == 0 {
		c.Loop.Interval = 16 * time.Millisecond
	}
	if c.Pipeline.Dir == "" {
		c.Pipeline.Dir = "pipelines"
	}
	if c.Pipeline.Name == "" {
		c.Pipeline.Name = "default"
	}
	c.Console.ApplyDefaults()
	c.Observability.ApplyDefaults()
}

// Validate checks every section.
func (c *AppConfig) Validate() error {
	if err := c.ServiceConfig.Validate(); err != nil {
		return err
	}
	if err := validation.Validate(c.Display); err != nil {
		return fmt.Errorf("config.display: %w", err)
	}
	if err := validation.Validate(c.Loop); err != nil {
		return fmt.Errorf("config.loop: %w", err)
	}
	if err := validation.Validate(c.Pipeline); err != nil {
		return fmt.Errorf("config.pipeline: %w", err)
	}
	if err := c.Console.Validate(); err != nil {
		return err
	}
	return c.Observability.Validate()
}
