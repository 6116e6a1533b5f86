package validation

import (
	"fmt"
	"slices"
	"strings"

	"github.com/kbukum/rendergraph/errors"
)

// FieldError is one failed check, keyed by config path.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Validator accumulates failed checks so a config or pipeline file reports
// all of its problems in one error. Checks chain:
//
//	err := validation.New().Required("name", p.Name).Range("port", port, 0, 65535).Validate()
type Validator struct {
	failed []FieldError
}

func New() *Validator { return &Validator{} }

func (v *Validator) AddError(field, message string) {
	v.failed = append(v.failed, FieldError{Field: field, Message: message})
}

func (v *Validator) HasErrors() bool { return len(v.failed) > 0 }

func (v *Validator) Errors() []FieldError { return v.failed }

// Validate returns nil or one INVALID_INPUT error whose "fields" detail
// lists every failure.
func (v *Validator) Validate() error {
	if !v.HasErrors() {
		return nil
	}
	parts := make([]string, 0, len(v.failed))
	for _, f := range v.failed {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return errors.Validation(strings.Join(parts, "; ")).WithDetail("fields", v.failed)
}

// Required rejects blank strings.
func (v *Validator) Required(field, value string) *Validator {
	return v.Custom(strings.TrimSpace(value) != "", field, "is required")
}

// Range accepts min <= value <= max.
func (v *Validator) Range(field string, value, minVal, maxVal int) *Validator {
	return v.Custom(value >= minVal && value <= maxVal, field,
		fmt.Sprintf("must be between %d and %d", minVal, maxVal))
}

// OneOf accepts an empty value or any of allowed.
func (v *Validator) OneOf(field, value string, allowed []string) *Validator {
	return v.Custom(value == "" || slices.Contains(allowed, value), field,
		"must be one of: "+strings.Join(allowed, ", "))
}

// Custom records message against field unless ok.
func (v *Validator) Custom(ok bool, field, message string) *Validator {
	if !ok {
		v.AddError(field, message)
	}
	return v
}

// IsURN reports whether s is namespace:name with both parts non-empty and
// no whitespace.
func IsURN(s string) bool {
	ns, name, ok := strings.Cut(s, ":")
	return ok && ns != "" && name != "" && !strings.ContainsAny(s, " \t\n")
}
