package usage

import "time"

// CurrencyUsage is a per-user counter for one currency code. Counters are
// created on first use and only ever incremented while the user exists.
type CurrencyUsage struct {
	CurrencyCode string    `json:"currencyCode"`
	Count        int64     `json:"usageCount"`
	LastUsedAt   time.Time `json:"lastUsedAt"`
}

// CurrencyUse is a single dated occurrence of a currency in the user's
// records, the raw material a recount derives counters from.
type CurrencyUse struct {
	CurrencyCode string
	UsedAt       time.Time
}
