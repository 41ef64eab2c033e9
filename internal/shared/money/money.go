package money

import (
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
)

const defaultScale int32 = 2

// Scale returns the minor-unit precision of an ISO 4217 currency code.
// Unknown codes fall back to two decimals.
func Scale(code string) int32 {
	unit, err := currency.ParseISO(strings.ToUpper(strings.TrimSpace(code)))
	if err != nil {
		return defaultScale
	}
	scale, _ := currency.Standard.Rounding(unit)
	return int32(scale)
}

// Valid reports whether code is a recognised ISO 4217 currency.
func Valid(code string) bool {
	_, err := currency.ParseISO(strings.ToUpper(strings.TrimSpace(code)))
	return err == nil
}

func Round(amount decimal.Decimal, code string) decimal.Decimal {
	return amount.Round(Scale(code))
}

// ToMinor converts an amount to integer minor units (pence, cents, kobo).
func ToMinor(amount decimal.Decimal, code string) int64 {
	return amount.Shift(Scale(code)).Round(0).IntPart()
}

func Format(amount decimal.Decimal, code string) string {
	return amount.StringFixed(Scale(code))
}

// MinorUnit is the value of one minor unit, e.g. 0.01 for GBP and 1 for JPY.
func MinorUnit(code string) decimal.Decimal {
	return decimal.New(1, -Scale(code))
}

func Sum(amounts ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}
