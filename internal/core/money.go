// Package core holds the domain model of the savings club: members,
// payments, and the filtering, aggregation and ranking logic that the
// HTTP layer and the ledger worker consume.
//
// Amounts are stored as integer cents so that summation never suffers
// floating-point drift.
package core

import (
	"strconv"
	"strings"
	"unicode"
)

// MaxAmountCents is the upper bound for a single payment: 1,000,000.00.
const MaxAmountCents int64 = 100_000_000

type Money struct {
	Cents int64
}

// Validate checks payment amount bounds: at least one cent, at most
// MaxAmountCents inclusive.
func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	if m.Cents > MaxAmountCents {
		return ErrAmountTooLarge
	}
	return nil
}

// Euros returns the value as a float64 for display purposes only.
// Calculations always use cents.
func (m Money) Euros() float64 {
	return float64(m.Cents) / 100.0
}

// String renders the amount with exactly two fractional digits, e.g. "12.34".
func (m Money) String() string {
	cents := m.Cents
	neg := cents < 0
	if neg {
		cents = -cents
	}
	s := strconv.FormatInt(cents/100, 10) + "." + twoDigits(cents%100)
	if neg {
		return "-" + s
	}
	return s
}

func twoDigits(n int64) string {
	if n < 10 {
		return "0" + strconv.FormatInt(n, 10)
	}
	return strconv.FormatInt(n, 10)
}

// ParseDecimalToCents converts a decimal string to positive cents with
// half-up rounding on the third fractional digit.
//
// Both dot (12.34) and comma (12,34) decimal separators are accepted.
// Signed values, empty strings and malformed numbers fail with
// ErrInvalidAmount.
func ParseDecimalToCents(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return 0, ErrInvalidAmount
	}
	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return 0, ErrInvalidAmount
	}
	intPart := parts[0]
	fracPart := ""
	if len(parts) == 2 {
		fracPart = parts[1]
	}
	if intPart == "" {
		intPart = "0"
	}
	if intPart == "0" && fracPart == "" {
		return 0, ErrInvalidAmount
	}
	for _, r := range intPart {
		if !unicode.IsDigit(r) {
			return 0, ErrInvalidAmount
		}
	}
	for _, r := range fracPart {
		if !unicode.IsDigit(r) {
			return 0, ErrInvalidAmount
		}
	}
	iv, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	if iv > (1<<63-1)/100-1 {
		return 0, ErrInvalidAmount
	}
	// First two fractional digits become cents, the third rounds half-up.
	var fracCents int64
	if len(fracPart) > 0 {
		fracCents = int64(fracPart[0]-'0') * 10
		if len(fracPart) > 1 {
			fracCents += int64(fracPart[1] - '0')
			if len(fracPart) > 2 && fracPart[2] >= '5' {
				fracCents++
			}
		}
	}
	cents := iv*100 + fracCents
	if cents <= 0 {
		return 0, ErrInvalidAmount
	}
	return cents, nil
}
