package usage

import (
	"context"
	"time"
)

// Repository persists per-user usage counters.
type Repository interface {
	// Increment adds one use of code for the user, creating the counter if
	// absent. The increment must be atomic at the store level.
	Increment(ctx context.Context, userKey, code string, usedAt time.Time) error
	ListByUser(ctx context.Context, userKey string) ([]CurrencyUsage, error)
	// Replace swaps all of the user's counters for a freshly derived set.
	Replace(ctx context.Context, userKey string, counters []CurrencyUsage) error
	ListUserKeys(ctx context.Context) ([]string, error)
}

// PreferenceStore reads a user's configured default display currency.
type PreferenceStore interface {
	DefaultCurrency(ctx context.Context, userKey string) (string, error)
}

// UseSource supplies the dated currency occurrences a recount is derived
// from, in batches ordered by date.
type UseSource interface {
	ListCurrencyUses(ctx context.Context, userKey string, limit, offset int) ([]CurrencyUse, error)
}
