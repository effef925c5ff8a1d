package roomstore

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks required fields and lengths of a create request.
func (c CreateRoom) Validate() error {
	if err := validate.Struct(c); err != nil {
		return describe(err)
	}
	return nil
}

// Validate checks the lengths of an update request.
func (u UpdateRoom) Validate() error {
	if err := validate.Struct(u); err != nil {
		return describe(err)
	}
	return nil
}

// describe flattens validator errors into one readable message.
func describe(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	var missing, invalid []string
	for _, fe := range verrs {
		if fe.Tag() == "required" {
			missing = append(missing, fe.Field())
			continue
		}
		invalid = append(invalid, fmt.Sprintf("%s (%s=%s)", fe.Field(), fe.Tag(), fe.Param()))
	}

	var parts []string
	if len(missing) > 0 {
		parts = append(parts, "Missing required fields: "+strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		parts = append(parts, "Invalid fields: "+strings.Join(invalid, ", "))
	}
	return errors.New(strings.Join(parts, "; "))
}
