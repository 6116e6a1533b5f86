package fbo

import (
	"fmt"
	"strconv"

	"go.yaml.in/yaml/v3"

	"github.com/kbukum/rendergraph/validation"
)

// Scale is the fraction of the display resolution a framebuffer covers.
type Scale float32

// Scaling policies.
const (
	FullScale         Scale = 1
	HalfScale         Scale = 0.5
	QuarterScale      Scale = 0.25
	OneEighthScale    Scale = 0.125
	OneSixteenthScale Scale = 0.0625
)

// ParseScale maps a config keyword to a Scale.
func ParseScale(s string) (Scale, error) {
	switch s {
	case "", "full":
		return FullScale, nil
	case "half":
		return HalfScale, nil
	case "quarter":
		return QuarterScale, nil
	case "one_eighth":
		return OneEighthScale, nil
	case "one_sixteenth":
		return OneSixteenthScale, nil
	}
	return 0, fmt.Errorf("unknown framebuffer scale %q", s)
}

// UnmarshalYAML accepts either a keyword ("half") or a number (0.5).
func (s *Scale) UnmarshalYAML(value *yaml.Node) error {
	if f, err := strconv.ParseFloat(value.Value, 32); err == nil {
		*s = Scale(f)
		return nil
	}
	parsed, err := ParseScale(value.Value)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

func (s Scale) String() string {
	switch s {
	case FullScale:
		return "full"
	case HalfScale:
		return "half"
	case QuarterScale:
		return "quarter"
	case OneEighthScale:
		return "one_eighth"
	case OneSixteenthScale:
		return "one_sixteenth"
	}
	return fmt.Sprintf("%g", float32(s))
}

// Format is the pixel format of a framebuffer's color attachment.
type Format string

// Framebuffer formats.
const (
	FormatDefault Format = "default" // RGBA8
	FormatHDR     Format = "hdr"     // RGBA16F
	FormatNoColor Format = "no_color"
)

// Config describes a framebuffer.
type Config struct {
	URN    string `yaml:"urn" mapstructure:"urn" validate:"required,urn"`
	Scale  Scale  `yaml:"scale" mapstructure:"scale" validate:"gt=0,lte=1"`
	Format Format `yaml:"format" mapstructure:"format" validate:"omitempty,oneof=default hdr no_color"`
}

// ApplyDefaults fills in a full-scale default-format framebuffer.
func (c *Config) ApplyDefaults() {
	if c.Scale == 0 {
		c.Scale = FullScale
	}
	if c.Format == "" {
		c.Format = FormatDefault
	}
}

// Validate checks the config's tags.
func (c Config) Validate() error {
	return validation.Validate(c)
}

// dimensions returns the framebuffer size for a display resolution. Neither
// side drops below one pixel.
func (c Config) dimensions(width, height int) (int, int) {
	w := int(float32(width) * float32(c.Scale))
	h := int(float32(height) * float32(c.Scale))
	return max(w, 1), max(h, 1)
}
