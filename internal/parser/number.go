package parser

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// NumberFormat describes how numeric text is written in the feed. It is
// passed to the Parser explicitly instead of relying on process locale.
type NumberFormat struct {
	Decimal  rune
	Grouping rune
}

var (
	// German formatting: "1.234,5" is 1234.5.
	German = NumberFormat{Decimal: ',', Grouping: '.'}
	// English formatting: "1,234.5" is 1234.5.
	English = NumberFormat{Decimal: '.', Grouping: ','}
)

var errEmptyNumber = errors.New("empty number")

// Parse converts s into an exact decimal.
func (f NumberFormat) Parse(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, errEmptyNumber
	}

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case f.Grouping != 0 && r == f.Grouping:
		case r == f.Decimal:
			b.WriteByte('.')
		default:
			b.WriteRune(r)
		}
	}

	d, err := decimal.NewFromString(b.String())
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid number %q: %w", s, err)
	}
	return d, nil
}

var ErrUnknownFormat = errors.New("unknown number format")

// FormatByName returns the format named "german" (or "de") or "english" (or "en").
func FormatByName(name string) (NumberFormat, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "german", "de":
		return German, nil
	case "english", "en":
		return English, nil
	default:
		return NumberFormat{}, fmt.Errorf("%w: %q", ErrUnknownFormat, name)
	}
}
