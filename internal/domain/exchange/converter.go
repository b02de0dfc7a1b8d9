package exchange

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/singleflight"

	"fatura/internal/domain/currency"
)

const (
	// DefaultTTL is how long a fetched rate stays usable before a refresh.
	DefaultTTL = 24 * time.Hour

	// DefaultFetchTimeout bounds one outbound rate-source call.
	DefaultFetchTimeout = 10 * time.Second
)

var (
	convMeter         = otel.Meter("fatura/exchange")
	rateFetchTotal, _ = convMeter.Int64Counter("exchange.rate_fetch.total", metric.WithDescription("Rate-source fetches by outcome"))
	rateCacheTotal, _ = convMeter.Int64Counter("exchange.rate_cache.total", metric.WithDescription("Rate cache lookups by outcome"))
)

// Converter converts amounts between currencies through a TTL cache of
// rates keyed by the exact (base, target) pair. Cache misses and expiries
// for the same pair coalesce into one outbound fetch; reciprocals are
// never derived from the opposite direction.
type Converter struct {
	source       RateSource
	ttl          time.Duration
	fetchTimeout time.Duration
	log          zerolog.Logger

	mu    sync.RWMutex
	cache map[string]Rate

	group singleflight.Group
	now   func() time.Time
}

// NewConverter creates a converter over the given rate source. Zero ttl
// and fetchTimeout fall back to the package defaults.
func NewConverter(source RateSource, ttl, fetchTimeout time.Duration, log zerolog.Logger) *Converter {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if fetchTimeout <= 0 {
		fetchTimeout = DefaultFetchTimeout
	}
	return &Converter{
		source:       source,
		ttl:          ttl,
		fetchTimeout: fetchTimeout,
		log:          log,
		cache:        make(map[string]Rate),
		now:          time.Now,
	}
}

// Convert converts amount from one currency to another. Identical source
// and target short-circuit with rate 1 and never touch the cache. A dead
// rate source degrades to a stale cache entry when one exists; with
// nothing cached the call fails with ErrConversionUnavailable and the
// caller is expected to show the original amount.
func (c *Converter) Convert(ctx context.Context, amount decimal.Decimal, from, to string) (Conversion, error) {
	fromCur, err := currency.ValidateCode(from)
	if err != nil {
		return Conversion{}, fmt.Errorf("invalid source currency %q: %w", from, err)
	}
	toCur, err := currency.ValidateCode(to)
	if err != nil {
		return Conversion{}, fmt.Errorf("invalid target currency %q: %w", to, err)
	}

	if fromCur.Code == toCur.Code {
		return Conversion{Amount: amount, Rate: decimal.NewFromInt(1), FetchedAt: c.now()}, nil
	}

	rate, stale, err := c.pairRate(ctx, fromCur.Code, toCur.Code)
	if err != nil {
		return Conversion{}, err
	}

	return Conversion{
		Amount:    amount.Mul(rate.Value),
		Rate:      rate.Value,
		FetchedAt: rate.FetchedAt,
		Stale:     stale,
	}, nil
}

// pairRate returns a usable rate for the pair, fetching through the
// single-flight group on miss or expiry.
func (c *Converter) pairRate(ctx context.Context, base, target string) (Rate, bool, error) {
	key := base + ":" + target

	c.mu.RLock()
	cached, hasCached := c.cache[key]
	c.mu.RUnlock()

	if hasCached && c.fresh(cached) {
		rateCacheTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "hit")))
		return cached, false, nil
	}
	rateCacheTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "miss")))

	v, err, _ := c.group.Do(key, func() (any, error) {
		// A concurrent caller may have refreshed the pair while this one
		// waited on the flight lock.
		c.mu.RLock()
		current, ok := c.cache[key]
		c.mu.RUnlock()
		if ok && c.fresh(current) {
			return current, nil
		}
		return c.fetch(ctx, key, base, target)
	})
	if err != nil {
		if hasCached {
			// Expired entry beats no answer at all.
			c.log.Warn().Str("base", base).Str("target", target).Err(err).
				Msg("rate refresh failed, serving stale cache entry")
			return cached, true, nil
		}
		return Rate{}, false, fmt.Errorf("%w: %s->%s: %v", ErrConversionUnavailable, base, target, err)
	}

	return v.(Rate), false, nil
}

// fetch performs one bounded rate-source call and stores the result.
func (c *Converter) fetch(ctx context.Context, key, base, target string) (Rate, error) {
	fctx, cancel := context.WithTimeout(ctx, c.fetchTimeout)
	defer cancel()

	quote, err := c.source.FetchRate(fctx, base, target)
	if err != nil {
		rateFetchTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "error")))
		return Rate{}, fmt.Errorf("failed to fetch rate: %w", err)
	}
	if !quote.Rate.IsPositive() {
		rateFetchTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "invalid")))
		return Rate{}, fmt.Errorf("%w: non-positive rate %s for %s->%s", ErrRateSourceUnavailable, quote.Rate, base, target)
	}

	fetchedAt := quote.Timestamp
	if fetchedAt.IsZero() {
		fetchedAt = c.now()
	}

	rate := Rate{Base: base, Target: target, Value: quote.Rate, FetchedAt: fetchedAt}

	c.mu.Lock()
	c.cache[key] = rate
	c.mu.Unlock()

	rateFetchTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "success")))
	c.log.Debug().Str("base", base).Str("target", target).Str("rate", quote.Rate.String()).
		Msg("cached exchange rate")

	return rate, nil
}

func (c *Converter) fresh(r Rate) bool {
	return c.now().Sub(r.FetchedAt) < c.ttl
}

// CachedRate exposes the cache entry for one exact pair, primarily for
// warm-up checks. The boolean reports presence, fresh or stale.
func (c *Converter) CachedRate(base, target string) (Rate, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	r, ok := c.cache[base+":"+target]
	return r, ok
}
