package utils

import (
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var userIDPattern = regexp.MustCompile(`^[A-Za-z0-9._@:\-]{1,128}$`)

// RegisterValidators adds the custom binding tags used by request payloads:
//
//	decimal   a finite decimal number, e.g. "12.50"
//	udecimal  a finite decimal number that is not negative
//	userid    an opaque user identifier
func RegisterValidators(v *validator.Validate) error {
	if err := v.RegisterValidation("decimal", isDecimal); err != nil {
		return err
	}
	if err := v.RegisterValidation("udecimal", isNonNegativeDecimal); err != nil {
		return err
	}
	return v.RegisterValidation("userid", isUserID)
}

func parseDecimalField(fl validator.FieldLevel) (decimal.Decimal, bool) {
	raw := strings.TrimSpace(fl.Field().String())
	if raw == "" {
		// emptiness is the business of the required tag
		return decimal.Zero, true
	}
	d, err := decimal.NewFromString(raw)
	return d, err == nil
}

func isDecimal(fl validator.FieldLevel) bool {
	_, ok := parseDecimalField(fl)
	return ok
}

func isNonNegativeDecimal(fl validator.FieldLevel) bool {
	d, ok := parseDecimalField(fl)
	return ok && !d.IsNegative()
}

func isUserID(fl validator.FieldLevel) bool {
	return ValidUserID(fl.Field().String())
}

// ValidUserID reports whether id is an acceptable opaque user identifier
func ValidUserID(id string) bool {
	return userIDPattern.MatchString(id)
}

// SanitizeString removes control characters
func SanitizeString(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, s)
}
