package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"fatura/internal/domain/currency"
	"fatura/internal/domain/usage"
)

type PreferenceRepository struct {
	db *DB
}

var _ usage.PreferenceStore = (*PreferenceRepository)(nil)

func NewPreferenceRepository(db *DB) *PreferenceRepository {
	return &PreferenceRepository{db: db}
}

// DefaultCurrency returns the user's configured display currency. Users
// without a stored preference get the catalog default.
func (r *PreferenceRepository) DefaultCurrency(ctx context.Context, userKey string) (string, error) {
	query := `
		SELECT default_currency
		FROM user_preferences
		WHERE user_key = $1
	`

	var code string
	err := r.db.QueryRowContext(ctx, query, userKey).Scan(&code)
	if errors.Is(err, sql.ErrNoRows) {
		return currency.DefaultCode, nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get default currency: %w", err)
	}

	return currency.FallbackCode(code), nil
}
