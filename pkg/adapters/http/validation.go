package http

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// requestValidate runs struct tag validation on decoded request bodies and
// reports failures with JSON field names.
type requestValidate struct {
	validate *validator.Validate
}

func newRequestValidate() *requestValidate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &requestValidate{validate: v}
}

func (rv *requestValidate) Struct(s any) error {
	err := rv.validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, describe(fe))
	}
	return errors.New(strings.Join(msgs, "; "))
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "required_without":
		return fmt.Sprintf("%s is required when %s is missing", fe.Field(), strings.ToLower(fe.Param()))
	case "min":
		return fmt.Sprintf("%s must contain at least %s item(s)", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s failed on '%s'", fe.Field(), fe.Tag())
	}
}
