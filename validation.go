// Package interop exposes the configuration checks shared by the interop
// host and its command line.
package interop

import (
	"github.com/go-playground/validator/v10"
	"github.com/reglet-dev/interop/domain/ports"
)

// validate is a package-level singleton for better performance.
// Creating a new validator on each call is expensive; reusing is recommended.
var validate = validator.New(validator.WithRequiredStructEnabled())

// Validator implements ports.StructValidator with go-playground/validator.
type Validator struct{}

var _ ports.StructValidator = Validator{}

// NewValidator returns the shared struct validator.
func NewValidator() Validator {
	return Validator{}
}

// ValidateStruct implements ports.StructValidator.
func (Validator) ValidateStruct(v any) error {
	return ValidateStruct(v)
}

// ValidateStruct runs the `validate` tags on v. The returned error is a
// validator.ValidationErrors when a field fails.
func ValidateStruct(v any) error {
	return validate.Struct(v)
}
