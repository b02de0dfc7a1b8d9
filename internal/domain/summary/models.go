package summary

import (
	"time"

	"github.com/shopspring/decimal"

	"fatura/internal/domain/billing"
)

// PaymentMethod identifies how an expense was paid.
type PaymentMethod string

const (
	MethodCash       PaymentMethod = "CASH"
	MethodCheque     PaymentMethod = "CHEQUE"
	MethodCreditCard PaymentMethod = "CREDIT_CARD"
)

// IsValid reports whether m is one of the known payment methods.
func (m PaymentMethod) IsValid() bool {
	switch m {
	case MethodCash, MethodCheque, MethodCreditCard:
		return true
	}
	return false
}

// Transaction is a read-only expense record supplied by the store.
// A transaction with InstallmentCount > 1 is the parent of a split payment
// and contributes to totals only through its installments.
type Transaction struct {
	ID                string          `json:"id"`
	Amount            decimal.Decimal `json:"amount"`
	CurrencyCode      string          `json:"currencyCode"`
	Date              time.Time       `json:"date"`
	IsRecurring       bool            `json:"isRecurring"`
	PaymentMethod     PaymentMethod   `json:"paymentMethod"`
	CardConfigID      string          `json:"cardConfigId,omitempty"`
	InstallmentCount  int             `json:"installmentCount,omitempty"`
	HasDelayedBilling bool            `json:"hasDelayedBilling,omitempty"`
}

// Installment is one slice of a split payment. It belongs to the billing
// period of its own DueDate, never the parent's date.
type Installment struct {
	ID                  string          `json:"id"`
	ParentTransactionID string          `json:"parentTransactionId"`
	Amount              decimal.Decimal `json:"amount"`
	DueDate             time.Time       `json:"dueDate"`
	SequenceIndex       int             `json:"sequenceIndex"`
}

// CardConfig describes one credit card. WithdrawDay is the nominal
// day-of-month the statement closes, clamped to each month's length when
// turned into a date.
type CardConfig struct {
	ID          string `json:"id"`
	Alias       string `json:"alias"`
	WithdrawDay int    `json:"withdrawDay"`
}

// MethodSummary is the rollup for one payment method, or for one card when
// the method is CREDIT_CARD.
type MethodSummary struct {
	Method       PaymentMethod              `json:"method"`
	DisplayName  string                     `json:"displayName"`
	CardConfigID string                     `json:"cardConfigId,omitempty"`
	Total        decimal.Decimal            `json:"total"`
	Formatted    string                     `json:"formatted"`
	CurrencyCode string                     `json:"currencyCode"`
	NativeTotals map[string]decimal.Decimal `json:"nativeTotals,omitempty"`
	Count        int                        `json:"count"`
	Degraded     bool                       `json:"degraded,omitempty"`
	Cycle        *billing.Cycle             `json:"cycle,omitempty"`
	Progress     *float64                   `json:"progress,omitempty"`
}

// MonthSummary is the full aggregation for one reference month.
type MonthSummary struct {
	Year     int             `json:"year"`
	Month    time.Month      `json:"month"`
	Currency string          `json:"currency"`
	Methods  []MethodSummary `json:"methods"`
}

// WeekBucket is one week's subtotal inside the reference month, for the
// drill-down view. Weeks without transactions are omitted.
type WeekBucket struct {
	Index     int             `json:"index"`
	Start     time.Time       `json:"start"`
	End       time.Time       `json:"end"`
	Total     decimal.Decimal `json:"total"`
	Formatted string          `json:"formatted"`
	Count     int             `json:"count"`
	Degraded  bool            `json:"degraded,omitempty"`
}
