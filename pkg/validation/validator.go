package validation

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

var (
	// validate is a singleton validator instance
	validate *validator.Validate
)

func init() {
	validate = validator.New()
}

// RegisterValidation adds a custom struct tag to the shared validator. It
// must be called before the tag is used, typically from an init function.
func RegisterValidation(tag string, fn func(value string) bool) {
	if err := validate.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
		return fn(fl.Field().String())
	}); err != nil {
		panic(fmt.Sprintf("validation: register %q: %v", tag, err))
	}
}

// Struct validates v using its struct tags and returns the first failure in
// a user-friendly form.
func Struct(v any) error {
	errs := StructErrors(v)
	if len(errs) == 0 {
		return nil
	}
	return errs[0]
}

// StructErrors validates v using its struct tags and returns every failure.
func StructErrors(v any) []error {
	if v == nil {
		return []error{errors.New("value cannot be nil")}
	}
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return []error{err}
	}
	out := make([]error, 0, len(validationErrs))
	for _, e := range validationErrs {
		out = append(out, formatFieldError(e))
	}
	return out
}

// formatFieldError converts a validator error to a more user-friendly format
func formatFieldError(e validator.FieldError) error {
	field := e.Field()
	param := e.Param()

	switch e.Tag() {
	case "required":
		return fmt.Errorf("%s: field is required", field)
	case "min", "gte":
		return fmt.Errorf("%s: must be at least %s", field, param)
	case "max", "lte":
		return fmt.Errorf("%s: must not exceed %s", field, param)
	case "oneof":
		return fmt.Errorf("%s: must be one of [%s]", field, param)
	case "dive":
		return fmt.Errorf("%s: invalid element in array", field)
	default:
		return fmt.Errorf("%s: validation failed (%s)", field, e.Tag())
	}
}
