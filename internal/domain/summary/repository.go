package summary

import (
	"context"
	"time"
)

// Store supplies the inputs for one aggregation call. Window scoping is
// coarse: the engine applies the exact period filters itself once data
// arrives. Implementations must return, regardless of the window, recurring
// transactions (they belong to every period they are active for) and the
// parent transactions of installments due inside the window (long splits
// have parents dated far before the period).
type Store interface {
	ListTransactions(ctx context.Context, userKey string, from, to time.Time) ([]Transaction, error)
	ListInstallments(ctx context.Context, userKey string, from, to time.Time) ([]Installment, error)
	ListCardConfigs(ctx context.Context, userKey string) ([]CardConfig, error)
}
