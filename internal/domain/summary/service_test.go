package summary

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"fatura/internal/domain/exchange"
)

type MockStore struct {
	ListTransactionsFunc func(ctx context.Context, userKey string, from, to time.Time) ([]Transaction, error)
	ListInstallmentsFunc func(ctx context.Context, userKey string, from, to time.Time) ([]Installment, error)
	ListCardConfigsFunc  func(ctx context.Context, userKey string) ([]CardConfig, error)
}

func (m *MockStore) ListTransactions(ctx context.Context, userKey string, from, to time.Time) ([]Transaction, error) {
	if m.ListTransactionsFunc != nil {
		return m.ListTransactionsFunc(ctx, userKey, from, to)
	}
	return nil, nil
}
func (m *MockStore) ListInstallments(ctx context.Context, userKey string, from, to time.Time) ([]Installment, error) {
	if m.ListInstallmentsFunc != nil {
		return m.ListInstallmentsFunc(ctx, userKey, from, to)
	}
	return nil, nil
}
func (m *MockStore) ListCardConfigs(ctx context.Context, userKey string) ([]CardConfig, error) {
	if m.ListCardConfigsFunc != nil {
		return m.ListCardConfigsFunc(ctx, userKey)
	}
	return nil, nil
}

type MockConverter struct {
	ConvertFunc func(ctx context.Context, amount decimal.Decimal, from, to string) (exchange.Conversion, error)
}

func (m *MockConverter) Convert(ctx context.Context, amount decimal.Decimal, from, to string) (exchange.Conversion, error) {
	if m.ConvertFunc != nil {
		return m.ConvertFunc(ctx, amount, from, to)
	}
	return exchange.Conversion{Amount: amount, Rate: decimal.NewFromInt(1)}, nil
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func staticStore(txns []Transaction, insts []Installment, configs []CardConfig) *MockStore {
	return &MockStore{
		ListTransactionsFunc: func(ctx context.Context, userKey string, from, to time.Time) ([]Transaction, error) {
			return txns, nil
		},
		ListInstallmentsFunc: func(ctx context.Context, userKey string, from, to time.Time) ([]Installment, error) {
			return insts, nil
		},
		ListCardConfigsFunc: func(ctx context.Context, userKey string) ([]CardConfig, error) {
			return configs, nil
		},
	}
}

func amt(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func TestMonthSummary_CardCycleFiltering(t *testing.T) {
	// Withdraw day 15, reference March: cycle is [Feb 15, Mar 14]. Mar 10 and
	// Feb 20 fall inside, Mar 20 falls outside.
	txns := []Transaction{
		{ID: "t1", Amount: amt(10), CurrencyCode: "USD", Date: date(2026, time.March, 10), PaymentMethod: MethodCreditCard, CardConfigID: "card-1"},
		{ID: "t2", Amount: amt(20), CurrencyCode: "USD", Date: date(2026, time.March, 20), PaymentMethod: MethodCreditCard, CardConfigID: "card-1"},
		{ID: "t3", Amount: amt(40), CurrencyCode: "USD", Date: date(2026, time.February, 20), PaymentMethod: MethodCreditCard, CardConfigID: "card-1"},
	}
	configs := []CardConfig{{ID: "card-1", Alias: "Visa", WithdrawDay: 15}}

	svc := NewService(staticStore(txns, nil, configs), &MockConverter{}, zerolog.Nop())
	got, err := svc.MonthSummary(context.Background(), "user-1", 2026, time.March, "USD")
	if err != nil {
		t.Fatalf("MonthSummary failed: %v", err)
	}

	if len(got.Methods) != 1 {
		t.Fatalf("got %d summaries, want 1", len(got.Methods))
	}
	card := got.Methods[0]
	if !card.Total.Equal(amt(50)) {
		t.Errorf("card total = %s, want 50 (Mar 10 + Feb 20)", card.Total)
	}
	if card.Count != 2 {
		t.Errorf("card count = %d, want 2", card.Count)
	}
	if card.DisplayName != "Visa" {
		t.Errorf("display name = %q, want Visa", card.DisplayName)
	}
	if card.Cycle == nil {
		t.Fatal("card summary missing cycle")
	}
	if !card.Cycle.Start.Equal(date(2026, time.February, 15)) || !card.Cycle.End.Equal(date(2026, time.March, 14)) {
		t.Errorf("cycle = [%v, %v], want [Feb 15, Mar 14]", card.Cycle.Start, card.Cycle.End)
	}
}

func TestMonthSummary_CashCalendarMonth(t *testing.T) {
	txns := []Transaction{
		{ID: "t1", Amount: amt(10), CurrencyCode: "USD", Date: date(2026, time.March, 5), PaymentMethod: MethodCash},
		{ID: "t2", Amount: amt(20), CurrencyCode: "USD", Date: date(2026, time.February, 28), PaymentMethod: MethodCash},
		{ID: "t3", Amount: amt(40), CurrencyCode: "USD", Date: date(2026, time.April, 1), PaymentMethod: MethodCash},
	}

	svc := NewService(staticStore(txns, nil, nil), &MockConverter{}, zerolog.Nop())
	got, err := svc.MonthSummary(context.Background(), "user-1", 2026, time.March, "USD")
	if err != nil {
		t.Fatal(err)
	}

	if len(got.Methods) != 1 {
		t.Fatalf("got %d summaries, want 1", len(got.Methods))
	}
	if !got.Methods[0].Total.Equal(amt(10)) {
		t.Errorf("cash total = %s, want 10 (calendar month only)", got.Methods[0].Total)
	}
	if got.Methods[0].Cycle != nil {
		t.Error("cash summary carries a cycle, want none")
	}
}

func TestMonthSummary_RecurringAlwaysIncluded(t *testing.T) {
	txns := []Transaction{
		{ID: "t1", Amount: amt(99), CurrencyCode: "USD", Date: date(2020, time.January, 1), IsRecurring: true, PaymentMethod: MethodCash},
	}

	svc := NewService(staticStore(txns, nil, nil), &MockConverter{}, zerolog.Nop())
	got, err := svc.MonthSummary(context.Background(), "user-1", 2026, time.March, "USD")
	if err != nil {
		t.Fatal(err)
	}

	if len(got.Methods) != 1 || !got.Methods[0].Total.Equal(amt(99)) {
		t.Errorf("recurring transaction not included: %+v", got.Methods)
	}
}

func TestMonthSummary_SplitPaymentUsesInstallments(t *testing.T) {
	// The parent is a 300 charge split in three; only the installment due
	// inside the cycle counts, never the parent's face amount.
	txns := []Transaction{
		{ID: "parent", Amount: amt(300), CurrencyCode: "USD", Date: date(2026, time.January, 10), PaymentMethod: MethodCreditCard, CardConfigID: "card-1", InstallmentCount: 3},
	}
	insts := []Installment{
		{ID: "i1", ParentTransactionID: "parent", Amount: amt(100), DueDate: date(2026, time.January, 20), SequenceIndex: 1},
		{ID: "i2", ParentTransactionID: "parent", Amount: amt(100), DueDate: date(2026, time.February, 20), SequenceIndex: 2},
		{ID: "i3", ParentTransactionID: "parent", Amount: amt(100), DueDate: date(2026, time.March, 20), SequenceIndex: 3},
	}
	configs := []CardConfig{{ID: "card-1", Alias: "Visa", WithdrawDay: 15}}

	svc := NewService(staticStore(txns, insts, configs), &MockConverter{}, zerolog.Nop())
	got, err := svc.MonthSummary(context.Background(), "user-1", 2026, time.March, "USD")
	if err != nil {
		t.Fatal(err)
	}

	if len(got.Methods) != 1 {
		t.Fatalf("got %d summaries, want 1", len(got.Methods))
	}
	if !got.Methods[0].Total.Equal(amt(100)) {
		t.Errorf("total = %s, want 100 (one installment in cycle, parent excluded)", got.Methods[0].Total)
	}
	if got.Methods[0].Count != 1 {
		t.Errorf("count = %d, want 1", got.Methods[0].Count)
	}
}

func TestMonthSummary_OrphanInstallmentExcluded(t *testing.T) {
	insts := []Installment{
		{ID: "i1", ParentTransactionID: "missing", Amount: amt(100), DueDate: date(2026, time.March, 5), SequenceIndex: 1},
	}

	svc := NewService(staticStore(nil, insts, nil), &MockConverter{}, zerolog.Nop())
	got, err := svc.MonthSummary(context.Background(), "user-1", 2026, time.March, "USD")
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Methods) != 0 {
		t.Errorf("orphan installment produced summaries: %+v", got.Methods)
	}
}

func TestMonthSummary_ConversionApplied(t *testing.T) {
	converter := &MockConverter{
		ConvertFunc: func(ctx context.Context, amount decimal.Decimal, from, to string) (exchange.Conversion, error) {
			if from == to {
				return exchange.Conversion{Amount: amount, Rate: decimal.NewFromInt(1)}, nil
			}
			return exchange.Conversion{Amount: amount.Mul(decimal.NewFromInt(2)), Rate: decimal.NewFromInt(2)}, nil
		},
	}
	txns := []Transaction{
		{ID: "t1", Amount: amt(100), CurrencyCode: "EUR", Date: date(2026, time.March, 5), PaymentMethod: MethodCash},
	}

	svc := NewService(staticStore(txns, nil, nil), converter, zerolog.Nop())
	got, err := svc.MonthSummary(context.Background(), "user-1", 2026, time.March, "USD")
	if err != nil {
		t.Fatal(err)
	}

	ms := got.Methods[0]
	if !ms.Total.Equal(amt(200)) {
		t.Errorf("total = %s, want 200 (100 EUR at rate 2)", ms.Total)
	}
	if ms.Formatted != "$200.00" {
		t.Errorf("formatted = %q, want $200.00", ms.Formatted)
	}
	if !ms.NativeTotals["EUR"].Equal(amt(100)) {
		t.Errorf("native EUR = %s, want 100", ms.NativeTotals["EUR"])
	}
	if ms.Degraded {
		t.Error("successful conversion marked degraded")
	}
}

func TestMonthSummary_ConversionFailureDegrades(t *testing.T) {
	converter := &MockConverter{
		ConvertFunc: func(ctx context.Context, amount decimal.Decimal, from, to string) (exchange.Conversion, error) {
			return exchange.Conversion{}, exchange.ErrConversionUnavailable
		},
	}
	txns := []Transaction{
		{ID: "t1", Amount: amt(100), CurrencyCode: "EUR", Date: date(2026, time.March, 5), PaymentMethod: MethodCash},
	}

	svc := NewService(staticStore(txns, nil, nil), converter, zerolog.Nop())
	got, err := svc.MonthSummary(context.Background(), "user-1", 2026, time.March, "USD")
	if err != nil {
		t.Fatalf("conversion failure must not propagate, got %v", err)
	}

	ms := got.Methods[0]
	if !ms.Total.Equal(amt(100)) {
		t.Errorf("total = %s, want face value 100", ms.Total)
	}
	if !ms.Degraded {
		t.Error("failed conversion did not mark the summary degraded")
	}
}

func TestMonthSummary_ZeroTotalOmitted(t *testing.T) {
	txns := []Transaction{
		{ID: "t1", Amount: decimal.Zero, CurrencyCode: "USD", Date: date(2026, time.March, 5), PaymentMethod: MethodCash},
	}

	svc := NewService(staticStore(txns, nil, nil), &MockConverter{}, zerolog.Nop())
	got, err := svc.MonthSummary(context.Background(), "user-1", 2026, time.March, "USD")
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Methods) != 0 {
		t.Errorf("zero-total partition emitted: %+v", got.Methods)
	}
}

func TestMonthSummary_MissingCardConfigFallsBack(t *testing.T) {
	// No config for card-x: the partition keeps the raw id as its name and
	// filters by calendar month instead of a cycle.
	txns := []Transaction{
		{ID: "t1", Amount: amt(10), CurrencyCode: "USD", Date: date(2026, time.March, 5), PaymentMethod: MethodCreditCard, CardConfigID: "card-x"},
		{ID: "t2", Amount: amt(20), CurrencyCode: "USD", Date: date(2026, time.February, 20), PaymentMethod: MethodCreditCard, CardConfigID: "card-x"},
	}

	svc := NewService(staticStore(txns, nil, nil), &MockConverter{}, zerolog.Nop())
	got, err := svc.MonthSummary(context.Background(), "user-1", 2026, time.March, "USD")
	if err != nil {
		t.Fatal(err)
	}

	if len(got.Methods) != 1 {
		t.Fatalf("got %d summaries, want 1", len(got.Methods))
	}
	card := got.Methods[0]
	if card.DisplayName != "card-x" {
		t.Errorf("display name = %q, want raw id card-x", card.DisplayName)
	}
	if card.Cycle != nil {
		t.Error("unlabeled card carries a cycle, want none")
	}
	if !card.Total.Equal(amt(10)) {
		t.Errorf("total = %s, want 10 (calendar month filter)", card.Total)
	}
}

func TestMonthSummary_DelayedBillingShiftsForward(t *testing.T) {
	// Cycle [Feb 15, Mar 14]. A delayed charge dated Feb 20 bills Mar 20
	// (next statement, out); one dated Jan 20 bills Feb 20 (in).
	txns := []Transaction{
		{ID: "t1", Amount: amt(10), CurrencyCode: "USD", Date: date(2026, time.February, 20), PaymentMethod: MethodCreditCard, CardConfigID: "card-1", HasDelayedBilling: true},
		{ID: "t2", Amount: amt(20), CurrencyCode: "USD", Date: date(2026, time.January, 20), PaymentMethod: MethodCreditCard, CardConfigID: "card-1", HasDelayedBilling: true},
	}
	configs := []CardConfig{{ID: "card-1", Alias: "Visa", WithdrawDay: 15}}

	svc := NewService(staticStore(txns, nil, configs), &MockConverter{}, zerolog.Nop())
	got, err := svc.MonthSummary(context.Background(), "user-1", 2026, time.March, "USD")
	if err != nil {
		t.Fatal(err)
	}

	if len(got.Methods) != 1 {
		t.Fatalf("got %d summaries, want 1", len(got.Methods))
	}
	if !got.Methods[0].Total.Equal(amt(20)) {
		t.Errorf("total = %s, want 20 (only the Jan 20 delayed charge)", got.Methods[0].Total)
	}
}

func TestMonthSummary_ProgressOnlyInsideCycle(t *testing.T) {
	txns := []Transaction{
		{ID: "t1", Amount: amt(10), CurrencyCode: "USD", Date: date(2026, time.March, 1), PaymentMethod: MethodCreditCard, CardConfigID: "card-1"},
	}
	configs := []CardConfig{{ID: "card-1", Alias: "Visa", WithdrawDay: 15}}

	svc := NewService(staticStore(txns, nil, configs), &MockConverter{}, zerolog.Nop())
	svc.now = func() time.Time { return date(2026, time.March, 1) }

	got, err := svc.MonthSummary(context.Background(), "user-1", 2026, time.March, "USD")
	if err != nil {
		t.Fatal(err)
	}
	ms := got.Methods[0]
	if ms.Progress == nil {
		t.Fatal("today is inside the cycle but progress is nil")
	}
	// Feb 15 through Mar 1 is day 15 of a 28-day cycle.
	if want := 15.0 / 28.0; math.Abs(*ms.Progress-want) > 1e-9 {
		t.Errorf("progress = %f, want %f", *ms.Progress, want)
	}

	// Same data viewed when today is outside the cycle: no progress.
	svc.now = func() time.Time { return date(2026, time.June, 1) }
	got, err = svc.MonthSummary(context.Background(), "user-1", 2026, time.March, "USD")
	if err != nil {
		t.Fatal(err)
	}
	if got.Methods[0].Progress != nil {
		t.Errorf("today outside cycle but progress = %f", *got.Methods[0].Progress)
	}
}

func TestMonthSummary_MethodOrdering(t *testing.T) {
	txns := []Transaction{
		{ID: "t1", Amount: amt(1), CurrencyCode: "USD", Date: date(2026, time.March, 5), PaymentMethod: MethodCreditCard, CardConfigID: "card-b"},
		{ID: "t2", Amount: amt(1), CurrencyCode: "USD", Date: date(2026, time.March, 5), PaymentMethod: MethodCash},
		{ID: "t3", Amount: amt(1), CurrencyCode: "USD", Date: date(2026, time.March, 5), PaymentMethod: MethodCreditCard, CardConfigID: "card-a"},
		{ID: "t4", Amount: amt(1), CurrencyCode: "USD", Date: date(2026, time.March, 5), PaymentMethod: MethodCheque},
	}
	configs := []CardConfig{
		{ID: "card-a", Alias: "Amex", WithdrawDay: 15},
		{ID: "card-b", Alias: "Visa", WithdrawDay: 15},
	}

	svc := NewService(staticStore(txns, nil, configs), &MockConverter{}, zerolog.Nop())
	got, err := svc.MonthSummary(context.Background(), "user-1", 2026, time.March, "USD")
	if err != nil {
		t.Fatal(err)
	}

	want := []string{"Cash", "Cheque", "Amex", "Visa"}
	if len(got.Methods) != len(want) {
		t.Fatalf("got %d summaries, want %d", len(got.Methods), len(want))
	}
	for i, name := range want {
		if got.Methods[i].DisplayName != name {
			t.Errorf("position %d = %q, want %q", i, got.Methods[i].DisplayName, name)
		}
	}
}

func TestMonthSummary_StoreError(t *testing.T) {
	store := &MockStore{
		ListTransactionsFunc: func(ctx context.Context, userKey string, from, to time.Time) ([]Transaction, error) {
			return nil, errors.New("query failed")
		},
	}
	svc := NewService(store, &MockConverter{}, zerolog.Nop())

	if _, err := svc.MonthSummary(context.Background(), "user-1", 2026, time.March, "USD"); err == nil {
		t.Error("expected error from failing store, got nil")
	}
}

func TestWeekBuckets_BucketsByWeekIndex(t *testing.T) {
	txns := []Transaction{
		{ID: "t1", Amount: amt(10), CurrencyCode: "USD", Date: date(2026, time.March, 1), PaymentMethod: MethodCash},
		{ID: "t2", Amount: amt(20), CurrencyCode: "USD", Date: date(2026, time.March, 7), PaymentMethod: MethodCash},
		{ID: "t3", Amount: amt(30), CurrencyCode: "USD", Date: date(2026, time.March, 8), PaymentMethod: MethodCreditCard, CardConfigID: "card-1"},
		{ID: "t4", Amount: amt(40), CurrencyCode: "USD", Date: date(2026, time.March, 31), PaymentMethod: MethodCash},
		{ID: "t5", Amount: amt(99), CurrencyCode: "USD", Date: date(2026, time.March, 10), IsRecurring: true, PaymentMethod: MethodCash},
		{ID: "t6", Amount: amt(99), CurrencyCode: "USD", Date: date(2026, time.March, 10), PaymentMethod: MethodCreditCard, CardConfigID: "card-1", HasDelayedBilling: true},
	}

	svc := NewService(staticStore(txns, nil, nil), &MockConverter{}, zerolog.Nop())
	got, err := svc.WeekBuckets(context.Background(), "user-1", 2026, time.March, "USD")
	if err != nil {
		t.Fatal(err)
	}

	if len(got) != 3 {
		t.Fatalf("got %d buckets, want 3 (weeks 1, 2, 5): %+v", len(got), got)
	}

	w1 := got[0]
	if w1.Index != 1 || !w1.Total.Equal(amt(30)) || w1.Count != 2 {
		t.Errorf("week 1 = index %d total %s count %d, want 1/30/2", w1.Index, w1.Total, w1.Count)
	}
	w2 := got[1]
	if w2.Index != 2 || !w2.Total.Equal(amt(30)) {
		t.Errorf("week 2 = index %d total %s, want 2/30", w2.Index, w2.Total)
	}
	w5 := got[2]
	if w5.Index != 5 || !w5.Total.Equal(amt(40)) {
		t.Errorf("week 5 = index %d total %s, want 5/40", w5.Index, w5.Total)
	}
	if !w5.Start.Equal(date(2026, time.March, 29)) || !w5.End.Equal(date(2026, time.March, 31)) {
		t.Errorf("week 5 range = [%v, %v], want [Mar 29, Mar 31]", w5.Start, w5.End)
	}
}

func TestWeekBuckets_ConversionFailureDegrades(t *testing.T) {
	converter := &MockConverter{
		ConvertFunc: func(ctx context.Context, amount decimal.Decimal, from, to string) (exchange.Conversion, error) {
			return exchange.Conversion{}, exchange.ErrConversionUnavailable
		},
	}
	txns := []Transaction{
		{ID: "t1", Amount: amt(100), CurrencyCode: "EUR", Date: date(2026, time.March, 5), PaymentMethod: MethodCash},
	}

	svc := NewService(staticStore(txns, nil, nil), converter, zerolog.Nop())
	got, err := svc.WeekBuckets(context.Background(), "user-1", 2026, time.March, "USD")
	if err != nil {
		t.Fatalf("conversion failure must not propagate, got %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d buckets, want 1", len(got))
	}
	if !got[0].Total.Equal(amt(100)) || !got[0].Degraded {
		t.Errorf("bucket = total %s degraded %v, want face value 100 and degraded", got[0].Total, got[0].Degraded)
	}
}
