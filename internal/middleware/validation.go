package middleware

import (
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// ValidateStruct runs the shared validator over a bound request body.
func ValidateStruct(v any) error {
	return validate.Struct(v)
}

var controlChars = regexp.MustCompile(`[\x00-\x08\x0B\x0C\x0E-\x1F\x7F]`)

// SanitizeString removes control characters (except newlines and tabs) and
// trims whitespace. Applied to free-form text inputs before persistence.
func SanitizeString(input string) string {
	return strings.TrimSpace(controlChars.ReplaceAllString(input, ""))
}
