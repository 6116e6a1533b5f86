// Package validation checks configuration and node descriptors before they
// reach the render graph.
//
// Struct tag validation wraps go-playground/validator and adds a "urn" tag
// for resource identifiers of the form namespace:name:
//
//	type BlurConfig struct {
//	    Label  string  `validate:"required"`
//	    Radius float32 `validate:"gt=0"`
//	}
//	err := validation.Validate(cfg)
//
// Hand-written checks chain on a Validator and report every field at once:
//
//	err := validation.New().
//	    Required("config.name", c.Name).
//	    Range("console.port", c.Port, 0, 65535).
//	    Validate()
package validation
