package summary

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"fatura/internal/domain/billing"
	"fatura/internal/domain/currency"
	"fatura/internal/domain/exchange"
)

var (
	summaryMeter     = otel.Meter("fatura/summary")
	buildDuration, _ = summaryMeter.Float64Histogram("summary.build.duration", metric.WithDescription("Month summary build time in seconds"))
)

// Converter is the slice of the exchange converter the engine depends on.
type Converter interface {
	Convert(ctx context.Context, amount decimal.Decimal, from, to string) (exchange.Conversion, error)
}

// Service aggregates transactions, recurring entries, and split-payment
// installments into per-payment-method totals for one reference month.
// Nothing in here is fatal: conversion failures degrade to face-value sums,
// missing card configs degrade to unlabeled calendar-month partitions.
type Service struct {
	store     Store
	converter Converter
	log       zerolog.Logger
	now       func() time.Time
}

// NewService creates a new aggregation service
func NewService(store Store, converter Converter, log zerolog.Logger) *Service {
	return &Service{
		store:     store,
		converter: converter,
		log:       log,
		now:       time.Now,
	}
}

// partition accumulates one payment method (or one card) while aggregating.
type partition struct {
	method       PaymentMethod
	cardID       string
	displayName  string
	cycle        *billing.Cycle
	period       billing.Cycle
	total        decimal.Decimal
	native       map[string]decimal.Decimal
	count        int
	degraded     bool
	delayShifted bool
}

// MonthSummary builds one MethodSummary per active payment method (and per
// distinct card) for the reference month, converted to the display currency.
func (s *Service) MonthSummary(ctx context.Context, userKey string, year int, month time.Month, displayCode string) (*MonthSummary, error) {
	started := time.Now()
	defer func() {
		buildDuration.Record(ctx, time.Since(started).Seconds(),
			metric.WithAttributes(attribute.String("view", "month")))
	}()

	display, _ := currency.Lookup(currency.FallbackCode(displayCode))
	monthRange := billing.CalendarMonth(year, month)

	// Cycles reach into the previous month and delayed billing shifts dates
	// forward, so fetch a window wide enough to cover both.
	fetchFrom := monthRange.Start.AddDate(0, -2, 0)

	txns, err := s.store.ListTransactions(ctx, userKey, fetchFrom, monthRange.End)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	installments, err := s.store.ListInstallments(ctx, userKey, fetchFrom, monthRange.End)
	if err != nil {
		return nil, fmt.Errorf("failed to list installments: %w", err)
	}
	configs, err := s.store.ListCardConfigs(ctx, userKey)
	if err != nil {
		return nil, fmt.Errorf("failed to list card configs: %w", err)
	}

	configByID := make(map[string]CardConfig, len(configs))
	for _, cfg := range configs {
		configByID[cfg.ID] = cfg
	}

	partitions := make(map[string]*partition)
	parentByID := make(map[string]Transaction, len(txns))

	for _, t := range txns {
		parentByID[t.ID] = t

		// Split parents contribute through their installments only.
		if t.InstallmentCount > 1 {
			continue
		}

		p := s.partitionFor(partitions, configByID, t.PaymentMethod, t.CardConfigID, year, month, monthRange)
		if !t.IsRecurring && !p.period.Contains(s.billingDate(t, p)) {
			continue
		}
		s.addAmount(ctx, p, t.Amount, t.CurrencyCode, display)
	}

	for _, inst := range installments {
		parent, ok := parentByID[inst.ParentTransactionID]
		if !ok {
			// Unresolvable parent: excluding beats mis-attributing.
			s.log.Debug().Str("installment", inst.ID).Str("parent", inst.ParentTransactionID).
				Msg("skipping installment with unresolvable parent")
			continue
		}

		p := s.partitionFor(partitions, configByID, parent.PaymentMethod, parent.CardConfigID, year, month, monthRange)
		if !p.period.Contains(inst.DueDate) {
			continue
		}
		s.addAmount(ctx, p, inst.Amount, parent.CurrencyCode, display)
	}

	result := &MonthSummary{
		Year:     year,
		Month:    month,
		Currency: display.Code,
		Methods:  make([]MethodSummary, 0, len(partitions)),
	}

	today := dateOnly(s.now())
	for _, p := range partitions {
		if !p.total.IsPositive() {
			continue
		}
		ms := MethodSummary{
			Method:       p.method,
			DisplayName:  p.displayName,
			CardConfigID: p.cardID,
			Total:        p.total,
			Formatted:    currency.Format(p.total, display),
			CurrencyCode: display.Code,
			NativeTotals: p.native,
			Count:        p.count,
			Degraded:     p.degraded,
			Cycle:        p.cycle,
		}
		if p.cycle != nil && p.cycle.Contains(today) {
			elapsed := today.Sub(p.cycle.Start).Hours()/24 + 1
			progress := elapsed / float64(p.cycle.Days())
			ms.Progress = &progress
		}
		result.Methods = append(result.Methods, ms)
	}

	sort.Slice(result.Methods, func(i, j int) bool {
		a, b := result.Methods[i], result.Methods[j]
		if a.Method != b.Method {
			return methodOrder(a.Method) < methodOrder(b.Method)
		}
		if a.DisplayName != b.DisplayName {
			return a.DisplayName < b.DisplayName
		}
		return a.CardConfigID < b.CardConfigID
	})

	return result, nil
}

// WeekBuckets buckets the month's non-recurring, non-delayed transactions
// into week-indexed subtotals for the drill-down view.
func (s *Service) WeekBuckets(ctx context.Context, userKey string, year int, month time.Month, displayCode string) ([]WeekBucket, error) {
	started := time.Now()
	defer func() {
		buildDuration.Record(ctx, time.Since(started).Seconds(),
			metric.WithAttributes(attribute.String("view", "weeks")))
	}()

	display, _ := currency.Lookup(currency.FallbackCode(displayCode))
	period := billing.CalendarMonth(year, month)

	txns, err := s.store.ListTransactions(ctx, userKey, period.Start, period.End)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}

	buckets := make(map[int]*WeekBucket)
	for _, t := range txns {
		if t.IsRecurring || t.HasDelayedBilling {
			continue
		}
		if !period.Contains(t.Date) {
			continue
		}

		idx := billing.WeekIndex(t.Date, period.Start)
		b, ok := buckets[idx]
		if !ok {
			start, end, valid := billing.WeekRange(idx, period)
			if !valid {
				continue
			}
			b = &WeekBucket{Index: idx, Start: start, End: end}
			buckets[idx] = b
		}

		conv, err := s.converter.Convert(ctx, t.Amount, t.CurrencyCode, display.Code)
		if err != nil {
			b.Total = b.Total.Add(t.Amount)
			b.Degraded = true
		} else {
			b.Total = b.Total.Add(conv.Amount)
		}
		b.Count++
	}

	out := make([]WeekBucket, 0, len(buckets))
	for _, b := range buckets {
		b.Formatted = currency.Format(b.Total, display)
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })

	return out, nil
}

// partitionFor returns the partition for (method, cardID), creating it with
// its filter period on first sight. Credit cards with a known config filter
// by their resolved billing cycle; cards with a missing config degrade to an
// unlabeled calendar-month partition.
func (s *Service) partitionFor(partitions map[string]*partition, configs map[string]CardConfig, method PaymentMethod, cardID string, year int, month time.Month, monthRange billing.Cycle) *partition {
	if method != MethodCreditCard {
		cardID = ""
	}
	key := string(method) + ":" + cardID
	if p, ok := partitions[key]; ok {
		return p
	}

	p := &partition{
		method:      method,
		cardID:      cardID,
		displayName: methodDisplayName(method),
		period:      monthRange,
		native:      make(map[string]decimal.Decimal),
	}

	if method == MethodCreditCard {
		if cfg, ok := configs[cardID]; ok {
			if cycle, err := billing.Resolve(cfg.WithdrawDay, year, month); err == nil {
				p.cycle = &cycle
				p.period = cycle
				p.displayName = cfg.Alias
				p.delayShifted = true
			} else {
				s.log.Warn().Str("card", cardID).Int("withdrawDay", cfg.WithdrawDay).
					Msg("card config has invalid withdraw day, using calendar month")
				p.displayName = unlabeledName(cardID)
			}
		} else {
			p.displayName = unlabeledName(cardID)
		}
	}

	partitions[key] = p
	return p
}

// billingDate is the date a transaction counts against. Delayed billing on
// a cycle-resolved card lands the charge on the following statement.
func (s *Service) billingDate(t Transaction, p *partition) time.Time {
	if t.HasDelayedBilling && p.delayShifted {
		return t.Date.AddDate(0, 1, 0)
	}
	return t.Date
}

// addAmount converts and accumulates one amount into the partition. A failed
// conversion contributes face value and marks the partition degraded.
func (s *Service) addAmount(ctx context.Context, p *partition, amount decimal.Decimal, code string, display currency.Currency) {
	conv, err := s.converter.Convert(ctx, amount, code, display.Code)
	if err != nil {
		s.log.Warn().Err(err).Str("from", code).Str("to", display.Code).
			Msg("conversion unavailable, summing at face value")
		p.total = p.total.Add(amount)
		p.degraded = true
	} else {
		p.total = p.total.Add(conv.Amount)
	}
	p.native[code] = p.native[code].Add(amount)
	p.count++
}

func methodOrder(m PaymentMethod) int {
	switch m {
	case MethodCash:
		return 0
	case MethodCheque:
		return 1
	case MethodCreditCard:
		return 2
	}
	return 3
}

func methodDisplayName(m PaymentMethod) string {
	switch m {
	case MethodCash:
		return "Cash"
	case MethodCheque:
		return "Cheque"
	case MethodCreditCard:
		return "Credit Card"
	}
	return string(m)
}

func unlabeledName(cardID string) string {
	if cardID == "" {
		return methodDisplayName(MethodCreditCard)
	}
	return cardID
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
