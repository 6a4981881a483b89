// Package money converts between user-entered decimal amounts, integer cents
// and display strings.
package money

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var ErrInvalidAmount = errors.New("invalid amount")

var hundred = decimal.NewFromInt(100)

// ParseCents parses a dot-decimal amount such as "1234.56" or "1,234.56" into cents.
func ParseCents(s string) (int64, error) {
	clean := strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	clean = strings.TrimPrefix(clean, "$")

	if clean == "" {
		return 0, ErrInvalidAmount
	}

	d, err := decimal.NewFromString(clean)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}

	return d.Mul(hundred).Round(0).IntPart(), nil
}

// ParseEuropeanCents parses "1.234,56" style amounts into cents.
func ParseEuropeanCents(s string) (int64, error) {
	clean := strings.ReplaceAll(strings.TrimSpace(s), ".", "")
	clean = strings.ReplaceAll(clean, ",", ".")

	d, err := decimal.NewFromString(clean)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}

	return d.Mul(hundred).Round(0).IntPart(), nil
}

// Compact renders cents in major units without trailing zeros, e.g.
// 5000 -> "50" and 4990 -> "49.9".
func Compact(cents int64) string {
	return decimal.New(cents, -2).String()
}

// Format renders cents with the currency symbol for the given ISO code,
// falling back to USD for unknown or empty codes.
func Format(cents int64, code string) string {
	unit, err := currency.ParseISO(strings.ToUpper(code))
	if err != nil {
		unit = currency.USD
	}

	amount, _ := decimal.New(cents, -2).Float64()
	p := message.NewPrinter(language.AmericanEnglish)

	return p.Sprint(currency.Symbol(unit.Amount(amount)))
}
