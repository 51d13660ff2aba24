package checkout

import (
	"regexp"
	"strings"
)

var (
	nonDigits    = regexp.MustCompile(`[^0-9]`)
	cardDigitRun = regexp.MustCompile(`\d{4,16}`)
)

// DigitsOnly strips every non-digit character.
func DigitsOnly(value string) string {
	return nonDigits.ReplaceAllString(value, "")
}

// FormatCardNumber groups up to 16 digits in blocks of four, e.g. "4111 1111 1111 1111".
// Input with fewer than four digits is reduced to its digits.
func FormatCardNumber(value string) string {
	match := cardDigitRun.FindString(DigitsOnly(value))
	if match == "" {
		return DigitsOnly(value)
	}
	parts := make([]string, 0, 4)
	for i := 0; i < len(match); i += 4 {
		end := i + 4
		if end > len(match) {
			end = len(match)
		}
		parts = append(parts, match[i:end])
	}
	return strings.Join(parts, " ")
}

// FormatExpiryDate inserts "/" after the month digits, e.g. "1225" → "12/25".
func FormatExpiryDate(value string) string {
	digits := DigitsOnly(value)
	if len(digits) < 2 {
		return digits
	}
	year := digits[2:]
	if len(year) > 2 {
		year = year[:2]
	}
	return digits[:2] + "/" + year
}

// LastFour returns the trailing four digits of a card number.
func LastFour(cardNumber string) string {
	digits := DigitsOnly(cardNumber)
	if len(digits) <= 4 {
		return digits
	}
	return digits[len(digits)-4:]
}
