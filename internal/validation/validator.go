package validation

import (
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
	_ = validate.RegisterValidation("install_id", validateInstallID)
}

// Get returns the shared validator instance.
func Get() *validator.Validate {
	return validate
}

// Struct validates v against its `validate` tags.
func Struct(v interface{}) error {
	return validate.Struct(v)
}

// Var validates a single value against tag.
func Var(v interface{}, tag string) error {
	return validate.Var(v, tag)
}

// IsInstallID reports whether s is a canonical RFC 4122 UUID (versions 1-5),
// in the 8-4-4-4-12 textual form, case-insensitive.
func IsInstallID(s string) bool {
	if len(s) != 36 {
		return false
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return false
	}
	if id.Variant() != uuid.RFC4122 {
		return false
	}
	v := id.Version()
	return v >= 1 && v <= 5
}

func validateInstallID(fl validator.FieldLevel) bool {
	return IsInstallID(fl.Field().String())
}

// FirstField returns the struct field name of the first failed rule, or "".
func FirstField(err error) string {
	if ve, ok := err.(validator.ValidationErrors); ok && len(ve) > 0 {
		return ve[0].Field()
	}
	return ""
}
