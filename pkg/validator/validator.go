package validator

import (
	"fmt"
	"net/url"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var handlePattern = regexp.MustCompile(`^@?[A-Za-z0-9._-]{1,64}$`)

type Validator struct {
	validate *validator.Validate
}

func New() *Validator {
	v := &Validator{
		validate: validator.New(),
	}
	v.registerCustomValidations()
	return v
}

func (v *Validator) Validate(i interface{}) error {
	if err := v.validate.Struct(i); err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			var errMessages []string
			for _, e := range validationErrors {
				errMessages = append(errMessages, fmt.Sprintf(
					"Field '%s' failed validation '%s'",
					e.Field(),
					e.Tag(),
				))
			}
			return fmt.Errorf("validation failed: %v", errMessages)
		}
		return err
	}
	return nil
}

// FailedFields returns the struct field names that failed validation, or nil.
func (v *Validator) FailedFields(i interface{}) []string {
	err := v.validate.Struct(i)
	if err == nil {
		return nil
	}
	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return []string{"_global"}
	}
	fields := make([]string, 0, len(validationErrors))
	for _, e := range validationErrors {
		fields = append(fields, e.StructField())
	}
	return fields
}

func (v *Validator) registerCustomValidations() {
	// decimal.Decimal is compared as float64 for gt/lt tags only;
	// money arithmetic never goes through this path.
	v.validate.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if val, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := val.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})

	_ = v.validate.RegisterValidation("link", func(fl validator.FieldLevel) bool {
		return IsLink(fl.Field().String())
	})
}

// IsLink accepts an absolute http(s) URL or a bare account handle.
func IsLink(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	if IsURL(s) {
		return true
	}
	return handlePattern.MatchString(s)
}

// IsURL reports whether s is an absolute http or https URL with a host.
func IsURL(s string) bool {
	u, err := url.Parse(strings.TrimSpace(s))
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
