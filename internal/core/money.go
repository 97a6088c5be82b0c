package core

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/dustin/go-humanize"
)

// ParseAmount converts a shilling amount typed by a user to cents.
//
// Commas, spaces and underscores are thousands separators; a single dot
// separates the fractional part. The third fractional digit rounds half-up.
// Zero, negative and malformed values return ErrInvalidAmount.
//
//	ParseAmount("12,500")    -> 1250000
//	ParseAmount("1 000.50")  -> 100050
//	ParseAmount("10.005")    -> 1001
func ParseAmount(s string) (int64, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(strings.TrimPrefix(s, "TZS"), "Tsh")
	s = strings.Map(func(r rune) rune {
		switch r {
		case ',', ' ', '_':
			return -1
		}
		return r
	}, s)
	if s == "" || strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
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
	for _, r := range intPart + fracPart {
		if !unicode.IsDigit(r) {
			return 0, ErrInvalidAmount
		}
	}
	iv, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	const maxSafeInt64 = (1<<63 - 1) / 100
	if iv > maxSafeInt64 {
		return 0, ErrInvalidAmount
	}
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

// Shillings returns the value as a float64 for charts only.
func (m Money) Shillings() float64 {
	return float64(m.Cents) / 100.0
}

// Add returns m+o.
func (m Money) Add(o Money) Money { return Money{Cents: m.Cents + o.Cents} }

// Sub returns m-o.
func (m Money) Sub(o Money) Money { return Money{Cents: m.Cents - o.Cents} }

// Plain formats the amount with thousands separators and no currency.
// Cents are printed only when present.
func (m Money) Plain() string {
	c := m.Cents
	sign := ""
	if c < 0 {
		sign = "-"
		c = -c
	}
	whole := humanize.Comma(c / 100)
	if frac := c % 100; frac != 0 {
		return fmt.Sprintf("%s%s.%02d", sign, whole, frac)
	}
	return sign + whole
}

func (m Money) String() string {
	return "TZS " + m.Plain()
}
