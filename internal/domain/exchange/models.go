package exchange

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Domain errors
var (
	ErrRateSourceUnavailable = errors.New("rate source unavailable")
	ErrConversionUnavailable = errors.New("conversion unavailable")
)

// Quote is a single rate observation returned by a rate source.
type Quote struct {
	Rate      decimal.Decimal
	Timestamp time.Time
}

// RateSource fetches the current rate for one (base, target) pair. Any
// failure (network, parse, non-2xx, missing pair) must be reported as
// ErrRateSourceUnavailable, wrapped with detail.
type RateSource interface {
	FetchRate(ctx context.Context, base, target string) (Quote, error)
}

// Rate is a cached rate for one exact (base, target) pair. Pairs are
// cached independently in both directions; a cached A->B says nothing
// about B->A.
type Rate struct {
	Base      string          `json:"base"`
	Target    string          `json:"target"`
	Value     decimal.Decimal `json:"rate"`
	FetchedAt time.Time       `json:"fetchedAt"`
}

// Conversion is the outcome of converting an amount between currencies.
// Stale marks results served from an expired cache entry after a failed
// refresh; the amount is still usable for display.
type Conversion struct {
	Amount    decimal.Decimal `json:"amount"`
	Rate      decimal.Decimal `json:"rate"`
	FetchedAt time.Time       `json:"fetchedAt"`
	Stale     bool            `json:"stale"`
}
