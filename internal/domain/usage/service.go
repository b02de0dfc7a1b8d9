package usage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"fatura/internal/domain/currency"
)

// DefaultListTTL is how long a cached sorted list is served before a rebuild.
// Independent of the exchange-rate cache TTL.
const DefaultListTTL = 30 * time.Second

type sortedEntry struct {
	currencies []currency.Currency
	builtAt    time.Time
}

// Service tracks which currencies a user actually spends in and produces the
// ordered list the currency picker renders: used currencies first (most used
// on top), then the user's default, then the rest of the catalog by global
// popularity.
type Service struct {
	repo  Repository
	prefs PreferenceStore
	ttl   time.Duration
	log   zerolog.Logger

	mu    sync.Mutex
	cache map[string]sortedEntry
	gens  map[string]uint64

	now func() time.Time
}

// NewService creates a new usage tracking service
func NewService(repo Repository, prefs PreferenceStore, ttl time.Duration, log zerolog.Logger) *Service {
	if ttl <= 0 {
		ttl = DefaultListTTL
	}
	return &Service{
		repo:  repo,
		prefs: prefs,
		ttl:   ttl,
		log:   log,
		cache: make(map[string]sortedEntry),
		gens:  make(map[string]uint64),
		now:   time.Now,
	}
}

// RecordUsage increments the user's counter for code and invalidates the
// user's cached sorted list. Store failures are logged and swallowed: usage
// tracking must never block the expense-save path that triggers it.
func (s *Service) RecordUsage(ctx context.Context, userKey, code string) {
	cur, err := currency.ValidateCode(code)
	if err != nil {
		cur = currency.Default()
	}

	if err := s.repo.Increment(ctx, userKey, cur.Code, s.now()); err != nil {
		s.log.Warn().Err(err).Str("user", userKey).Str("currency", cur.Code).
			Msg("failed to record currency usage")
		return
	}

	s.Invalidate(userKey)
}

// Invalidate drops the user's cached sorted list so the next read rebuilds it.
func (s *Service) Invalidate(userKey string) {
	s.mu.Lock()
	s.gens[userKey]++
	delete(s.cache, userKey)
	s.mu.Unlock()
}

// SortedCurrencies returns the catalog ordered for the user:
//  1. currencies the user has used, by descending count (ties broken by the
//     more recent last use);
//  2. the user's configured default currency, if not already listed;
//  3. everything else by ascending popularity rank.
//
// The list is cached per user until RecordUsage invalidates it or the TTL
// expires. If the backing store is unreachable the pure popularity ordering
// is returned instead; this method never fails.
func (s *Service) SortedCurrencies(ctx context.Context, userKey string) []currency.Currency {
	s.mu.Lock()
	entry, ok := s.cache[userKey]
	gen := s.gens[userKey]
	s.mu.Unlock()

	if ok && s.now().Sub(entry.builtAt) < s.ttl {
		return append([]currency.Currency(nil), entry.currencies...)
	}

	counters, err := s.repo.ListByUser(ctx, userKey)
	if err != nil {
		s.log.Warn().Err(err).Str("user", userKey).
			Msg("usage store unavailable, serving popularity order")
		return currency.Currencies()
	}

	list := s.buildSorted(ctx, userKey, counters)

	// Only repopulate if no invalidation raced with the rebuild; a list built
	// from pre-increment counters must not outlive the increment.
	s.mu.Lock()
	if s.gens[userKey] == gen {
		s.cache[userKey] = sortedEntry{currencies: list, builtAt: s.now()}
	}
	s.mu.Unlock()

	return append([]currency.Currency(nil), list...)
}

func (s *Service) buildSorted(ctx context.Context, userKey string, counters []CurrencyUsage) []currency.Currency {
	used := make([]CurrencyUsage, 0, len(counters))
	for _, c := range counters {
		if _, ok := currency.Lookup(c.CurrencyCode); ok {
			used = append(used, c)
		}
	}
	sort.Slice(used, func(i, j int) bool {
		if used[i].Count != used[j].Count {
			return used[i].Count > used[j].Count
		}
		if !used[i].LastUsedAt.Equal(used[j].LastUsedAt) {
			return used[i].LastUsedAt.After(used[j].LastUsedAt)
		}
		return used[i].CurrencyCode < used[j].CurrencyCode
	})

	seen := make(map[string]bool, len(used)+1)
	list := make([]currency.Currency, 0, len(currency.Currencies()))
	for _, c := range used {
		cur, _ := currency.Lookup(c.CurrencyCode)
		if !seen[cur.Code] {
			seen[cur.Code] = true
			list = append(list, cur)
		}
	}

	if def := s.defaultCurrency(ctx, userKey); !seen[def.Code] {
		seen[def.Code] = true
		list = append(list, def)
	}

	for _, cur := range currency.Currencies() {
		if !seen[cur.Code] {
			list = append(list, cur)
		}
	}

	return list
}

// defaultCurrency resolves the user's configured default, falling back to the
// process-wide default when the preference is missing or unreadable.
func (s *Service) defaultCurrency(ctx context.Context, userKey string) currency.Currency {
	code, err := s.prefs.DefaultCurrency(ctx, userKey)
	if err != nil {
		s.log.Debug().Err(err).Str("user", userKey).
			Msg("failed to read default currency, using process default")
		return currency.Default()
	}
	cur, err := currency.ValidateCode(code)
	if err != nil {
		return currency.Default()
	}
	return cur
}
