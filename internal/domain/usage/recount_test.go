package usage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

type MockUseSource struct {
	ListCurrencyUsesFunc func(ctx context.Context, userKey string, limit, offset int) ([]CurrencyUse, error)
}

func (m *MockUseSource) ListCurrencyUses(ctx context.Context, userKey string, limit, offset int) ([]CurrencyUse, error) {
	if m.ListCurrencyUsesFunc != nil {
		return m.ListCurrencyUsesFunc(ctx, userKey, limit, offset)
	}
	return nil, nil
}

// batchedSource serves a fixed slice of uses through the limit/offset window.
func batchedSource(uses []CurrencyUse) *MockUseSource {
	return &MockUseSource{
		ListCurrencyUsesFunc: func(ctx context.Context, userKey string, limit, offset int) ([]CurrencyUse, error) {
			if offset >= len(uses) {
				return nil, nil
			}
			end := offset + limit
			if end > len(uses) {
				end = len(uses)
			}
			return uses[offset:end], nil
		},
	}
}

func TestRecountUser_DerivesCounters(t *testing.T) {
	day := func(d int) time.Time {
		return time.Date(2026, time.March, d, 0, 0, 0, 0, time.UTC)
	}
	uses := []CurrencyUse{
		{CurrencyCode: "EUR", UsedAt: day(1)},
		{CurrencyCode: "GBP", UsedAt: day(2)},
		{CurrencyCode: "EUR", UsedAt: day(3)},
		{CurrencyCode: "ZZZ", UsedAt: day(4)}, // unsupported, skipped
		{CurrencyCode: "EUR", UsedAt: day(2)},
	}

	var replaced []CurrencyUsage
	repo := &MockUsageRepo{
		ReplaceFunc: func(ctx context.Context, userKey string, counters []CurrencyUsage) error {
			replaced = counters
			return nil
		},
	}

	svc := NewRecountService(repo, batchedSource(uses), nil, zerolog.Nop())
	svc.batchSize = 2 // force multiple batches

	result, err := svc.RecountUser(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("RecountUser failed: %v", err)
	}

	if result.RowsScanned != 5 {
		t.Errorf("RowsScanned = %d, want 5", result.RowsScanned)
	}
	if result.CountersKept != 2 {
		t.Errorf("CountersKept = %d, want 2", result.CountersKept)
	}

	byCode := make(map[string]CurrencyUsage, len(replaced))
	for _, c := range replaced {
		byCode[c.CurrencyCode] = c
	}
	eur, ok := byCode["EUR"]
	if !ok {
		t.Fatal("EUR counter missing from replaced set")
	}
	if eur.Count != 3 {
		t.Errorf("EUR count = %d, want 3", eur.Count)
	}
	if !eur.LastUsedAt.Equal(day(3)) {
		t.Errorf("EUR lastUsedAt = %v, want %v", eur.LastUsedAt, day(3))
	}
	if gbp := byCode["GBP"]; gbp.Count != 1 {
		t.Errorf("GBP count = %d, want 1", gbp.Count)
	}
	if _, ok := byCode["ZZZ"]; ok {
		t.Error("unsupported code survived the recount")
	}
}

func TestRecountUser_SourceError(t *testing.T) {
	source := &MockUseSource{
		ListCurrencyUsesFunc: func(ctx context.Context, userKey string, limit, offset int) ([]CurrencyUse, error) {
			return nil, errors.New("query failed")
		},
	}
	svc := NewRecountService(&MockUsageRepo{}, source, nil, zerolog.Nop())

	if _, err := svc.RecountUser(context.Background(), "user-1"); err == nil {
		t.Error("expected error from failing source, got nil")
	}
}

func TestRecountUser_ReplaceError(t *testing.T) {
	repo := &MockUsageRepo{
		ReplaceFunc: func(ctx context.Context, userKey string, counters []CurrencyUsage) error {
			return errors.New("write failed")
		},
	}
	svc := NewRecountService(repo, batchedSource(nil), nil, zerolog.Nop())

	if _, err := svc.RecountUser(context.Background(), "user-1"); err == nil {
		t.Error("expected error from failing replace, got nil")
	}
}

func TestRecountUser_InvalidatesTrackerCache(t *testing.T) {
	listCalls := 0
	trackerRepo := &MockUsageRepo{
		ListByUserFunc: func(ctx context.Context, userKey string) ([]CurrencyUsage, error) {
			listCalls++
			return nil, nil
		},
	}
	tracker := NewService(trackerRepo, &MockPreferenceStore{}, time.Hour, zerolog.Nop())
	tracker.SortedCurrencies(context.Background(), "user-1") // prime

	svc := NewRecountService(&MockUsageRepo{}, batchedSource(nil), tracker, zerolog.Nop())
	if _, err := svc.RecountUser(context.Background(), "user-1"); err != nil {
		t.Fatal(err)
	}

	tracker.SortedCurrencies(context.Background(), "user-1")
	if listCalls != 2 {
		t.Errorf("ListByUser called %d times, want 2 (recount must invalidate)", listCalls)
	}
}

func TestRecountAll_AggregatesAndCollectsErrors(t *testing.T) {
	repo := &MockUsageRepo{
		ListUserKeysFunc: func(ctx context.Context) ([]string, error) {
			return []string{"good-1", "bad", "good-2"}, nil
		},
	}
	source := &MockUseSource{
		ListCurrencyUsesFunc: func(ctx context.Context, userKey string, limit, offset int) ([]CurrencyUse, error) {
			if userKey == "bad" {
				return nil, errors.New("query failed")
			}
			if offset > 0 {
				return nil, nil
			}
			return []CurrencyUse{{CurrencyCode: "EUR", UsedAt: time.Now()}}, nil
		},
	}

	svc := NewRecountService(repo, source, nil, zerolog.Nop())
	result, err := svc.RecountAll(context.Background())
	if err != nil {
		t.Fatalf("RecountAll failed: %v", err)
	}

	if result.UsersProcessed != 2 {
		t.Errorf("UsersProcessed = %d, want 2", result.UsersProcessed)
	}
	if result.RowsScanned != 2 {
		t.Errorf("RowsScanned = %d, want 2", result.RowsScanned)
	}
	if len(result.Errors) != 1 {
		t.Errorf("Errors = %v, want exactly one entry", result.Errors)
	}
}

func TestRecountAll_ListUserKeysError(t *testing.T) {
	repo := &MockUsageRepo{
		ListUserKeysFunc: func(ctx context.Context) ([]string, error) {
			return nil, errors.New("store down")
		},
	}
	svc := NewRecountService(repo, &MockUseSource{}, nil, zerolog.Nop())

	if _, err := svc.RecountAll(context.Background()); err == nil {
		t.Error("expected error when user listing fails, got nil")
	}
}
