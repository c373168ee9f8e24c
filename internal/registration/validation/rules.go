// Package validation holds the pure field rules both forms are checked
// against before anything touches the network.
package validation

import (
	"regexp"
	"slices"
	"strings"
)

// Rule checks one raw value. It returns the rejection reason and false when
// the value is rejected. Rules are pure.
type Rule func(value string) (reason string, ok bool)

var emailPattern = regexp.MustCompile(`(?i)^[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}$`)

// DefaultCountryCode is the dialing code accepted in the +<cc> phone form.
const DefaultCountryCode = "98"

// Required rejects empty or whitespace-only input.
func Required(msg string) Rule {
	return func(value string) (string, bool) {
		if strings.TrimSpace(value) == "" {
			return msg, false
		}
		return "", true
	}
}

// EmailPattern rejects input not shaped like localpart@domain.tld.
// Empty input is left to Required.
func EmailPattern(msg string) Rule {
	return func(value string) (string, bool) {
		if value == "" || emailPattern.MatchString(value) {
			return "", true
		}
		return msg, false
	}
}

// PhonePattern accepts a mobile number written either with a leading 0 or
// with +countryCode, followed by the mobile prefix 9 and nine more digits.
// Empty input is left to Required.
func PhonePattern(countryCode, msg string) Rule {
	re := phoneRegexp(countryCode)
	return func(value string) (string, bool) {
		if value == "" || re.MatchString(value) {
			return "", true
		}
		return msg, false
	}
}

func phoneRegexp(countryCode string) *regexp.Regexp {
	countryCode = strings.TrimPrefix(strings.TrimSpace(countryCode), "+")
	if countryCode == "" {
		countryCode = DefaultCountryCode
	}
	return regexp.MustCompile(`^(?:0|\+` + regexp.QuoteMeta(countryCode) + `)9\d{9}$`)
}

// OneOf rejects values outside the closed set. Empty input is left to Required.
func OneOf[T ~string](set []T, msg string) Rule {
	return func(value string) (string, bool) {
		if value == "" || slices.Contains(set, T(value)) {
			return "", true
		}
		return msg, false
	}
}

func joinSet[T ~string](set []T) string {
	parts := make([]string, len(set))
	for i, v := range set {
		parts[i] = string(v)
	}
	return strings.Join(parts, ", ")
}
