package transport

import (
	"regexp"

	"github.com/go-playground/validator/v10"
)

var (
	phoneRe  = regexp.MustCompile(`^\+?[1-9]\d{6,14}$`)
	postalRe = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9 \-]{2,9}$`)
)

// NewValidator builds the request validator with the storefront's custom
// tags. Validation collects every violation, not just the first.
func NewValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	_ = v.RegisterValidation("phone_e164", func(fl validator.FieldLevel) bool {
		return phoneRe.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("postal_code", func(fl validator.FieldLevel) bool {
		return postalRe.MatchString(fl.Field().String())
	})

	return v
}

// Violations flattens validator output into field names for the client.
func Violations(err error) []string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return []string{"body"}
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fe.Namespace())
	}
	return fields
}
