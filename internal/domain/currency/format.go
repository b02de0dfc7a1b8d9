package currency

import (
	"math"

	"github.com/shopspring/decimal"
)

// Format renders an amount for display: the currency symbol directly
// followed by the amount at the currency's precision. Zero-decimal
// currencies truncate the fraction instead of rounding, matching how
// stored legacy amounts were displayed.
func Format(d decimal.Decimal, c Currency) string {
	if c.DecimalPlaces == 0 {
		return c.Symbol + d.Truncate(0).String()
	}
	return c.Symbol + d.StringFixed(c.DecimalPlaces)
}

// FormatFloat is Format for raw float inputs. Non-finite amounts render
// as zero; display formatting never fails.
func FormatFloat(amount float64, c Currency) string {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return Format(decimal.Zero, c)
	}
	return Format(decimal.NewFromFloatWithExponent(amount, -8), c)
}
