package currency

import (
	"errors"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// DefaultCode is the process-wide fallback currency.
const DefaultCode = "USD"

// Domain errors
var (
	ErrEmptyCode           = errors.New("currency code is required")
	ErrInvalidLength       = errors.New("currency code must be exactly 3 characters")
	ErrUnsupportedCode     = errors.New("unsupported currency code")
	ErrInvalidAmount       = errors.New("amount is not a finite number")
	ErrNegativeAmount      = errors.New("amount must not be negative")
	ErrDecimalNotSupported = errors.New("currency does not support decimal amounts")
)

// Currency is an immutable catalog entry. PopularityRank is unique across
// the catalog; lower means more popular. DecimalPlaces ranges 0-4.
type Currency struct {
	Code           string `json:"code"`
	Symbol         string `json:"symbol"`
	DisplayName    string `json:"displayName"`
	PopularityRank int    `json:"popularityRank"`
	DecimalPlaces  int32  `json:"decimalPlaces"`
}

// ValidateCode checks a currency code against the catalog. Matching is
// case-insensitive and ignores surrounding whitespace.
func ValidateCode(code string) (Currency, error) {
	trimmed := strings.TrimSpace(code)
	if trimmed == "" {
		return Currency{}, ErrEmptyCode
	}
	if len(trimmed) != 3 {
		return Currency{}, ErrInvalidLength
	}
	c, ok := Lookup(trimmed)
	if !ok {
		return Currency{}, ErrUnsupportedCode
	}
	return c, nil
}

// FallbackCode returns the input unchanged when it names a supported
// currency, and the catalog default otherwise.
func FallbackCode(code string) string {
	if _, err := ValidateCode(code); err != nil {
		return DefaultCode
	}
	return code
}

// ValidateAmount checks that a raw amount can be represented in the given
// currency. Zero-decimal currencies reject fractional amounts.
func ValidateAmount(amount float64, c Currency) error {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return ErrInvalidAmount
	}
	if amount < 0 {
		return ErrNegativeAmount
	}
	if c.DecimalPlaces == 0 && amount != math.Trunc(amount) {
		return ErrDecimalNotSupported
	}
	return nil
}

// AmountFromFloat validates a raw amount and converts it to a decimal.
// This is the boundary between float inputs (query params, JSON) and the
// decimal arithmetic used everywhere else.
func AmountFromFloat(amount float64, c Currency) (decimal.Decimal, error) {
	if err := ValidateAmount(amount, c); err != nil {
		return decimal.Decimal{}, err
	}
	return decimal.NewFromFloat(amount), nil
}
