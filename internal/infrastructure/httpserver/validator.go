package httpserver

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/taskhive/taskhive/internal/domain/errs"
)

// RequestValidator adapts go-playground/validator to echo's Validator
// interface. Struct tag violations surface as ErrInvalidInput so the central
// error mapping turns them into a 400.
type RequestValidator struct {
	validate *validator.Validate
}

// NewRequestValidator creates a validator for request DTOs.
func NewRequestValidator() *RequestValidator {
	return &RequestValidator{
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// Validate implements echo.Validator.
func (v *RequestValidator) Validate(i any) error {
	if err := v.validate.Struct(i); err != nil {
		return fmt.Errorf("%w: %s", errs.ErrInvalidInput, err.Error())
	}
	return nil
}
