package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"fatura/internal/domain/usage"
)

type UsageRepository struct {
	db *DB
}

var _ usage.Repository = (*UsageRepository)(nil)

func NewUsageRepository(db *DB) *UsageRepository {
	return &UsageRepository{db: db}
}

// Increment bumps the counter for one currency, creating the row on first
// use. The upsert keeps concurrent increments atomic at the database.
func (r *UsageRepository) Increment(ctx context.Context, userKey, code string, usedAt time.Time) error {
	query := `
		INSERT INTO currency_usage (id, user_key, currency_code, usage_count, last_used_at)
		VALUES ($1, $2, $3, 1, $4)
		ON CONFLICT (user_key, currency_code) DO UPDATE SET
			usage_count = currency_usage.usage_count + 1,
			last_used_at = EXCLUDED.last_used_at
	`

	_, err := r.db.ExecContext(ctx, query, uuid.New().String(), userKey, code, usedAt)
	if err != nil {
		return fmt.Errorf("failed to increment currency usage: %w", err)
	}

	return nil
}

func (r *UsageRepository) ListByUser(ctx context.Context, userKey string) ([]usage.CurrencyUsage, error) {
	query := `
		SELECT currency_code, usage_count, last_used_at
		FROM currency_usage
		WHERE user_key = $1
		ORDER BY usage_count DESC, last_used_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, userKey)
	if err != nil {
		return nil, fmt.Errorf("failed to list currency usage: %w", err)
	}
	defer rows.Close()

	var counters []usage.CurrencyUsage
	for rows.Next() {
		var c usage.CurrencyUsage
		if err := rows.Scan(&c.CurrencyCode, &c.Count, &c.LastUsedAt); err != nil {
			return nil, fmt.Errorf("failed to scan currency usage: %w", err)
		}
		counters = append(counters, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate currency usage: %w", err)
	}

	return counters, nil
}

// Replace swaps all of the user's counters for the given set in a single
// transaction, so concurrent readers never observe a half-written recount.
func (r *UsageRepository) Replace(ctx context.Context, userKey string, counters []usage.CurrencyUsage) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM currency_usage WHERE user_key = $1`, userKey); err != nil {
		return fmt.Errorf("failed to clear currency usage: %w", err)
	}

	insert := `
		INSERT INTO currency_usage (id, user_key, currency_code, usage_count, last_used_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	for _, c := range counters {
		if _, err := tx.ExecContext(ctx, insert, uuid.New().String(), userKey, c.CurrencyCode, c.Count, c.LastUsedAt); err != nil {
			return fmt.Errorf("failed to insert counter for %s: %w", c.CurrencyCode, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit usage replace: %w", err)
	}

	return nil
}

func (r *UsageRepository) ListUserKeys(ctx context.Context) ([]string, error) {
	query := `
		SELECT DISTINCT user_key
		FROM currency_usage
		ORDER BY user_key
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list user keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("failed to scan user key: %w", err)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate user keys: %w", err)
	}

	return keys, nil
}
