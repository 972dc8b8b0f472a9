package apperr

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Validate checks v against its `validate` struct tags and converts the first
// failure into a *ValidationError.
func Validate(v interface{}) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return fmt.Errorf("validating: %w", err)
	}

	fe := verrs[0]
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required", "min":
		if fe.Param() == "" || fe.Param() == "1" {
			return Invalid(field, "must not be empty")
		}
		return Invalid(field, fmt.Sprintf("must be at least %s characters", fe.Param()))
	case "max":
		return Invalid(field, fmt.Sprintf("must be at most %s characters", fe.Param()))
	case "oneof":
		return Invalid(field, fmt.Sprintf("must be one of: %s", fe.Param()))
	default:
		return Invalid(field, fmt.Sprintf("failed %s check", fe.Tag()))
	}
}
