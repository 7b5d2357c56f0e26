package validators

import (
	"github.com/go-playground/validator/v10"
)

// CustomValidator wraps go-playground/validator for echo's Validator interface
type CustomValidator struct {
	validate *validator.Validate
}

// NewValidator creates a new CustomValidator
func NewValidator() *CustomValidator {
	return &CustomValidator{validate: validator.New()}
}

// Validate validates the struct i against its validate tags
func (v *CustomValidator) Validate(i interface{}) error {
	return v.validate.Struct(i)
}
