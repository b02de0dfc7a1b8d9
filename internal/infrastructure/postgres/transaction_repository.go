package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"fatura/internal/domain/summary"
	"fatura/internal/domain/usage"
)

type TransactionRepository struct {
	db *DB
}

var (
	_ summary.Store   = (*TransactionRepository)(nil)
	_ usage.UseSource = (*TransactionRepository)(nil)
)

func NewTransactionRepository(db *DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// ListTransactions returns the user's transactions dated inside [from, to],
// plus recurring ones and the parents of installments due inside the window.
// The aggregation engine does the exact per-cycle windowing itself; this
// query only has to be wide enough to never starve it.
func (r *TransactionRepository) ListTransactions(ctx context.Context, userKey string, from, to time.Time) ([]summary.Transaction, error) {
	query := `
		SELECT t.id, t.amount, t.currency_code, t.transaction_date, t.is_recurring,
		       t.payment_method, t.card_config_id, t.installment_count, t.has_delayed_billing
		FROM transactions t
		WHERE t.user_key = $1
		  AND (
		      t.transaction_date BETWEEN $2 AND $3
		      OR t.is_recurring
		      OR EXISTS (
		          SELECT 1 FROM installments i
		          WHERE i.parent_transaction_id = t.id
		            AND i.due_date BETWEEN $2 AND $3
		      )
		  )
		ORDER BY t.transaction_date ASC, t.id ASC
	`

	rows, err := r.db.QueryContext(ctx, query, userKey, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	var txns []summary.Transaction
	for rows.Next() {
		var (
			t                summary.Transaction
			method           string
			cardConfigID     sql.NullString
			installmentCount sql.NullInt64
		)
		if err := rows.Scan(
			&t.ID, &t.Amount, &t.CurrencyCode, &t.Date, &t.IsRecurring,
			&method, &cardConfigID, &installmentCount, &t.HasDelayedBilling,
		); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		t.PaymentMethod = summary.PaymentMethod(method)
		if cardConfigID.Valid {
			t.CardConfigID = cardConfigID.String
		}
		if installmentCount.Valid {
			t.InstallmentCount = int(installmentCount.Int64)
		}
		txns = append(txns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transactions: %w", err)
	}

	return txns, nil
}

// ListInstallments returns the user's installments due inside [from, to].
func (r *TransactionRepository) ListInstallments(ctx context.Context, userKey string, from, to time.Time) ([]summary.Installment, error) {
	query := `
		SELECT i.id, i.parent_transaction_id, i.amount, i.due_date, i.sequence_index
		FROM installments i
		JOIN transactions t ON t.id = i.parent_transaction_id
		WHERE t.user_key = $1
		  AND i.due_date BETWEEN $2 AND $3
		ORDER BY i.due_date ASC, i.sequence_index ASC
	`

	rows, err := r.db.QueryContext(ctx, query, userKey, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list installments: %w", err)
	}
	defer rows.Close()

	var installments []summary.Installment
	for rows.Next() {
		var ins summary.Installment
		if err := rows.Scan(&ins.ID, &ins.ParentTransactionID, &ins.Amount, &ins.DueDate, &ins.SequenceIndex); err != nil {
			return nil, fmt.Errorf("failed to scan installment: %w", err)
		}
		installments = append(installments, ins)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate installments: %w", err)
	}

	return installments, nil
}

// ListCardConfigs returns the user's credit card configurations.
func (r *TransactionRepository) ListCardConfigs(ctx context.Context, userKey string) ([]summary.CardConfig, error) {
	query := `
		SELECT id, alias, withdraw_day
		FROM card_configs
		WHERE user_key = $1
		ORDER BY alias ASC
	`

	rows, err := r.db.QueryContext(ctx, query, userKey)
	if err != nil {
		return nil, fmt.Errorf("failed to list card configs: %w", err)
	}
	defer rows.Close()

	var configs []summary.CardConfig
	for rows.Next() {
		var c summary.CardConfig
		if err := rows.Scan(&c.ID, &c.Alias, &c.WithdrawDay); err != nil {
			return nil, fmt.Errorf("failed to scan card config: %w", err)
		}
		configs = append(configs, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate card configs: %w", err)
	}

	return configs, nil
}

// ListCurrencyUses streams the dated currency occurrences a usage recount
// is derived from, ordered oldest first for stable batching.
func (r *TransactionRepository) ListCurrencyUses(ctx context.Context, userKey string, limit, offset int) ([]usage.CurrencyUse, error) {
	query := `
		SELECT currency_code, transaction_date
		FROM transactions
		WHERE user_key = $1
		ORDER BY transaction_date ASC, id ASC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.QueryContext(ctx, query, userKey, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list currency uses: %w", err)
	}
	defer rows.Close()

	var uses []usage.CurrencyUse
	for rows.Next() {
		var u usage.CurrencyUse
		if err := rows.Scan(&u.CurrencyCode, &u.UsedAt); err != nil {
			return nil, fmt.Errorf("failed to scan currency use: %w", err)
		}
		uses = append(uses, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate currency uses: %w", err)
	}

	return uses, nil
}
