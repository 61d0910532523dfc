package common

import (
	"errors"
	"reflect"
	"regexp"
	"strings"

	validator "github.com/go-playground/validator/v10"
)

var phonePattern = regexp.MustCompile(`^\+?[0-9]{7,15}$`)

// NewValidator returns a validator using json field names and the "phone" tag.
func NewValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return phonePattern.MatchString(strings.TrimSpace(fl.Field().String()))
	})
	return v
}

// ValidationDetails flattens validator errors into field -> failed rule.
func ValidationDetails(err error) map[string]string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	out := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		out[fe.Field()] = fe.Tag()
	}
	return out
}
