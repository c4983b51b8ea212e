package phone

import (
	"fmt"
	"strings"
	"unicode"
)

// Normalize reduces a phone number to its last 10 digits for reliable
// comparisons. Non-digits are removed and a leading US country code 1 is
// stripped. Returns "" when the input carries no digits at all.
func Normalize(number string) string {
	var b strings.Builder
	for _, ch := range number {
		if unicode.IsDigit(ch) {
			b.WriteRune(ch)
		}
	}

	digits := b.String()
	if digits == "" {
		return ""
	}
	if len(digits) == 11 && strings.HasPrefix(digits, "1") {
		digits = digits[1:]
	}
	if len(digits) >= 10 {
		return digits[len(digits)-10:]
	}
	return digits
}

// Format renders a number as (NXX) NXX-XXXX when it normalizes to 10
// digits, otherwise returns the normalized digits unchanged.
func Format(number string) string {
	normalized := Normalize(number)
	if normalized == "" {
		return ""
	}
	if len(normalized) == 10 {
		return fmt.Sprintf("(%s) %s-%s", normalized[:3], normalized[3:6], normalized[6:])
	}
	return normalized
}

// LooksLikeNumber reports whether a string is plausibly a phone number
// rather than a contact name (at least 7 digits).
func LooksLikeNumber(value string) bool {
	if Normalize(value) == "" {
		return false
	}

	count := 0
	for _, ch := range value {
		if unicode.IsDigit(ch) {
			count++
		}
	}
	return count >= 7
}
