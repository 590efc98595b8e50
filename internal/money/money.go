// Package money normalises user-entered amounts into fixed-point decimals.
package money

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/rinde/rinde/internal/platform/httpx"
)

// CodeAmountInvalid is reported for malformed, negative or zero amounts.
const CodeAmountInvalid = "AMOUNT_INVALID"

var canonical = regexp.MustCompile(`^\d+(\.\d{1,2})?$`)

// Normalize rewrites a locale-formatted amount into canonical dot notation.
// With a comma present, dots group thousands and the first comma is the
// decimal mark. Without one, a final dot followed by one or two digits is the
// decimal mark and every other dot groups thousands:
// "15.000,50" -> "15000.50", "15000.50" -> "15000.50", "1.000" -> "1000".
func Normalize(raw string) string {
	s := strings.TrimSpace(raw)
	if strings.Contains(s, ",") {
		s = strings.ReplaceAll(s, ".", "")
		return strings.Replace(s, ",", ".", 1)
	}
	i := strings.LastIndex(s, ".")
	if i < 0 {
		return s
	}
	if frac := len(s) - i - 1; frac == 1 || frac == 2 {
		return strings.ReplaceAll(s[:i], ".", "") + s[i:]
	}
	return strings.ReplaceAll(s, ".", "")
}

// ParseAmount parses a user-entered amount that must be strictly positive with
// at most two fractional digits. Exponents, signs and letters are rejected.
func ParseAmount(raw string) (decimal.Decimal, error) {
	d, err := parse(raw)
	if err != nil {
		return decimal.Zero, err
	}
	if !d.IsPositive() {
		return decimal.Zero, httpx.Validation(CodeAmountInvalid, "amount must be greater than zero")
	}
	return d, nil
}

// ParseSlotAmount parses a day-editor value. Empty input means zero.
func ParseSlotAmount(raw string) (decimal.Decimal, error) {
	if strings.TrimSpace(raw) == "" {
		return decimal.Zero, nil
	}
	return parse(raw)
}

func parse(raw string) (decimal.Decimal, error) {
	s := Normalize(raw)
	if !canonical.MatchString(s) {
		return decimal.Zero, httpx.Validation(CodeAmountInvalid, "amount must be a decimal with up to two fraction digits")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, httpx.Validation(CodeAmountInvalid, err.Error())
	}
	return d, nil
}

// Format renders d with exactly two fraction digits.
func Format(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// Round2 rounds half away from zero to cents.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}
