package scheduler

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"fatura/internal/domain/currency"
	"fatura/internal/domain/exchange"
	"fatura/internal/domain/usage"
)

// Converter is the slice of the exchange converter the warm job needs.
type Converter interface {
	Convert(ctx context.Context, amount decimal.Decimal, from, to string) (exchange.Conversion, error)
}

// RateWarmJob pre-fetches exchange rates for one user by converting a unit
// amount of each currency the user has used into their default currency.
// Interactive conversions then hit a warm cache instead of the provider.
type RateWarmJob struct {
	userKey   string
	runID     string
	usageRepo usage.Repository
	prefs     usage.PreferenceStore
	converter Converter
	log       zerolog.Logger
}

// NewRateWarmJob creates a rate warm job for a user.
func NewRateWarmJob(userKey string, usageRepo usage.Repository, prefs usage.PreferenceStore, converter Converter, log zerolog.Logger) *RateWarmJob {
	return &RateWarmJob{
		userKey:   userKey,
		runID:     uuid.New().String(),
		usageRepo: usageRepo,
		prefs:     prefs,
		converter: converter,
		log:       log,
	}
}

// Execute warms the rate cache for the job's user. Individual pair failures
// are collected rather than aborting the run; the job fails only if at
// least one pair could not be warmed.
func (j *RateWarmJob) Execute(ctx context.Context) error {
	log := j.log.With().Str("user", j.userKey).Str("run_id", j.runID).Logger()

	code, err := j.prefs.DefaultCurrency(ctx, j.userKey)
	if err != nil {
		log.Warn().Err(err).Msg("failed to load default currency, warming into catalog default")
		code = currency.DefaultCode
	}
	target := currency.FallbackCode(code)

	counters, err := j.usageRepo.ListByUser(ctx, j.userKey)
	if err != nil {
		return fmt.Errorf("failed to list currency usage: %w", err)
	}

	one := decimal.NewFromInt(1)
	warmed, failed := 0, 0
	for _, c := range counters {
		if c.CurrencyCode == target {
			continue
		}
		if _, ok := currency.Lookup(c.CurrencyCode); !ok {
			continue
		}

		if _, err := j.converter.Convert(ctx, one, c.CurrencyCode, target); err != nil {
			failed++
			log.Warn().Err(err).Str("from", c.CurrencyCode).Str("to", target).Msg("failed to warm rate")
			continue
		}
		warmed++
	}

	if failed > 0 {
		return fmt.Errorf("warmed %d of %d pairs for user %s", warmed, warmed+failed, j.userKey)
	}

	log.Debug().Int("pairs", warmed).Str("target", target).Msg("rate cache warmed")
	return nil
}

// UserKey returns the key of the user this job warms rates for.
func (j *RateWarmJob) UserKey() string {
	return j.userKey
}

// Description returns a human-readable description of the job.
func (j *RateWarmJob) Description() string {
	return fmt.Sprintf("Rate cache warm for user %s", j.userKey)
}

// WarmJobProvider returns a provider that builds one warm job per known
// user, for the scheduler to run at its configured times.
func WarmJobProvider(usageRepo usage.Repository, prefs usage.PreferenceStore, converter Converter, log zerolog.Logger) func(context.Context) ([]Job, error) {
	return func(ctx context.Context) ([]Job, error) {
		keys, err := usageRepo.ListUserKeys(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list user keys: %w", err)
		}

		jobs := make([]Job, 0, len(keys))
		for _, key := range keys {
			jobs = append(jobs, NewRateWarmJob(key, usageRepo, prefs, converter, log))
		}
		return jobs, nil
	}
}
