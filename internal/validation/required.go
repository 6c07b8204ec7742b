// Package validation turns go-playground/validator results into the domain's
// ValidationError so handlers can report exactly which fields were missing.
package validation

import (
	"errors"
	"reflect"
	"strings"

	"github.com/Togather-Foundation/nko-directory/internal/domain/apperr"
	"github.com/go-playground/validator/v10"
)

// New returns a validator that reports field names using their json tags,
// matching what API clients send.
func New() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			return field.Name
		}
		return name
	})
	return v
}

// Struct validates s and converts failures into an apperr.ValidationError
// listing the offending fields in declaration order. Errors that are not
// field failures are returned unchanged.
func Struct(v *validator.Validate, s any) error {
	err := v.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	fields := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		fields = append(fields, fe.Field())
	}
	return apperr.Missing(fields...)
}
