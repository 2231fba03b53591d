package contextutils

import (
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// ValidateStruct validates a struct using its `validate` tags and returns an
// AppError with code INVALID_INPUT describing the first failing field.
func ValidateStruct(v interface{}) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	if errs, ok := err.(validator.ValidationErrors); ok && len(errs) > 0 {
		first := errs[0]
		return NewAppErrorWithCause(
			ErrorCodeInvalidInput,
			SeverityWarn,
			"Invalid input",
			"field '"+first.Field()+"' failed validation '"+first.Tag()+"'",
			err,
		)
	}

	return WrapError(err, "validation failed")
}

// IsNonEmptyID reports whether an opaque identifier is usable as a lookup key.
func IsNonEmptyID(id string) bool {
	return validate.Var(id, "required") == nil
}
