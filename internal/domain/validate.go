package domain

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report wire names ("streetaddress") rather than Go names.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	return v
}

// validateStruct runs struct-tag validation and converts the result into a
// ValidationError keyed by wire field name.
func validateStruct(op string, s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return Internal(err, op, "validation could not run")
	}

	fields := make(map[string]string, len(verrs))
	for _, e := range verrs {
		fields[e.Field()] = fieldMessage(e)
	}
	return &ValidationError{Op: op, Fields: fields}
}

func fieldMessage(e validator.FieldError) string {
	switch e.ActualTag() {
	case "required":
		return fmt.Sprintf("field %s is required", e.Field())
	case "email":
		return fmt.Sprintf("field %s must be a valid email address", e.Field())
	case "url":
		return fmt.Sprintf("field %s must be a resource link", e.Field())
	case "gt":
		return fmt.Sprintf("field %s must be greater than %s", e.Field(), e.Param())
	default:
		return fmt.Sprintf("field %s is invalid", e.Field())
	}
}
