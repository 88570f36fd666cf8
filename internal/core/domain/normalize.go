package domain

import (
	"strings"
	"unicode"
)

const MobileNumberLength = 10

// NormalizeMobile keeps only the digits of a phone number.
func NormalizeMobile(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// NormalizeOrderID upper-cases an order id and drops whitespace and hyphens.
func NormalizeOrderID(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range strings.ToUpper(raw) {
		if unicode.IsSpace(r) || r == '-' {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// MaskMobile hides all but the last four digits.
func MaskMobile(mobile string) string {
	digits := NormalizeMobile(mobile)
	if len(digits) <= 4 {
		return digits
	}
	return strings.Repeat("*", len(digits)-4) + digits[len(digits)-4:]
}
