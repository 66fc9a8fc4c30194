package statement

import (
	"strings"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// parseCents turns an amount cell into signed cents, e.g. "-1.234,56" with
// decimalComma gives -123456. Currency markers and spaces are ignored.
func parseCents(s string, f numberFormat) (int64, error) {
	clean := strings.Map(func(r rune) rune {
		switch {
		case r >= '0' && r <= '9', r == '-', r == '+', r == '.', r == ',':
			return r
		}

		return -1
	}, s)

	switch f {
	case decimalComma:
		clean = strings.ReplaceAll(clean, ".", "")
		clean = strings.ReplaceAll(clean, ",", ".")
	case decimalPoint:
		clean = strings.ReplaceAll(clean, ",", "")
	}

	d, err := decimal.NewFromString(clean)
	if err != nil {
		return 0, err
	}

	return d.Mul(hundred).Round(0).IntPart(), nil
}
