package validation

import (
	validatorv10 "github.com/go-playground/validator/v10"
)

// New returns a configured validator.
//
// Cross-restaurant cart rejection deliberately lives in the lifecycle service,
// not here: it has its own error type and must hold for every caller, not just
// the HTTP surface.
func New() *validatorv10.Validate {
	return validatorv10.New()
}
