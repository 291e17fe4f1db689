package phone

import (
	"errors"
	"strings"
)

// countryCode is the fixed country calling code assumed for bare local numbers.
// Every stored and queried phone number must go through Normalize first, since
// the Users collection keys on the canonical form.
const countryCode = "91"

var ErrInvalidFormat = errors.New("phone: invalid phone number format")

// Normalize canonicalizes a phone number to E.164 (+<cc><subscriber>).
//
// Accepted inputs, first match wins after stripping non-digits:
//   - 10 digits (bare local number)
//   - 11 digits with a leading trunk 0
//   - 12 digits already starting with the country code
//
// A "+<cc>..." input falls into the 12-digit case once the plus is stripped.
// Anything else returns ErrInvalidFormat; callers must reject rather than guess.
func Normalize(raw string) (string, error) {
	digits := stripNonDigits(raw)

	switch {
	case len(digits) == 10:
		return "+" + countryCode + digits, nil
	case len(digits) == 11 && digits[0] == '0':
		return "+" + countryCode + digits[1:], nil
	case len(digits) == 12 && strings.HasPrefix(digits, countryCode):
		return "+" + digits, nil
	default:
		return "", ErrInvalidFormat
	}
}

func stripNonDigits(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
