package usage

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"fatura/internal/domain/currency"
)

const (
	// DefaultRecountWorkers is the number of users recounted concurrently
	DefaultRecountWorkers = 4

	// DefaultRecountBatchSize is the batch size for scanning a user's records
	DefaultRecountBatchSize = 500
)

// RecountResult summarizes one recount run.
type RecountResult struct {
	UsersProcessed int
	RowsScanned    int
	CountersKept   int
	Errors         []string
}

// RecountService rebuilds usage counters from the record history. Counters
// drift when records are deleted or edited outside the tracked save path;
// a recount re-derives them from the source of truth and replaces the stored
// set wholesale.
type RecountService struct {
	repo        Repository
	source      UseSource
	tracker     *Service
	workerCount int
	batchSize   int
	log         zerolog.Logger
}

// NewRecountService creates a new recount service
func NewRecountService(repo Repository, source UseSource, tracker *Service, log zerolog.Logger) *RecountService {
	return &RecountService{
		repo:        repo,
		source:      source,
		tracker:     tracker,
		workerCount: DefaultRecountWorkers,
		batchSize:   DefaultRecountBatchSize,
		log:         log,
	}
}

// NewRecountServiceWithWorkers creates a new recount service with a custom worker count
func NewRecountServiceWithWorkers(repo Repository, source UseSource, tracker *Service, workerCount int, log zerolog.Logger) *RecountService {
	if workerCount <= 0 {
		workerCount = DefaultRecountWorkers
	}
	s := NewRecountService(repo, source, tracker, log)
	s.workerCount = workerCount
	return s
}

// RecountUser re-derives one user's counters from their record history and
// replaces the stored set. Records are scanned in batches to keep memory
// bounded for large histories.
func (s *RecountService) RecountUser(ctx context.Context, userKey string) (*RecountResult, error) {
	result := &RecountResult{Errors: []string{}}

	counters := make(map[string]*CurrencyUsage)
	offset := 0

	for {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}

		uses, err := s.source.ListCurrencyUses(ctx, userKey, s.batchSize, offset)
		if err != nil {
			return result, err
		}
		if len(uses) == 0 {
			break
		}

		for _, use := range uses {
			result.RowsScanned++
			cur, ok := currency.Lookup(use.CurrencyCode)
			if !ok {
				continue
			}
			c, exists := counters[cur.Code]
			if !exists {
				c = &CurrencyUsage{CurrencyCode: cur.Code}
				counters[cur.Code] = c
			}
			c.Count++
			if use.UsedAt.After(c.LastUsedAt) {
				c.LastUsedAt = use.UsedAt
			}
		}

		offset += len(uses)
		if len(uses) < s.batchSize {
			break
		}
	}

	derived := make([]CurrencyUsage, 0, len(counters))
	for _, c := range counters {
		derived = append(derived, *c)
	}

	if err := s.repo.Replace(ctx, userKey, derived); err != nil {
		return result, err
	}
	if s.tracker != nil {
		s.tracker.Invalidate(userKey)
	}

	result.UsersProcessed = 1
	result.CountersKept = len(derived)

	s.log.Info().Str("user", userKey).Int("rows", result.RowsScanned).
		Int("counters", result.CountersKept).Msg("usage recount completed")

	return result, nil
}

// RecountAll recounts every known user, processing up to workerCount users
// concurrently. Per-user failures are collected rather than aborting the run.
func (s *RecountService) RecountAll(ctx context.Context) (*RecountResult, error) {
	userKeys, err := s.repo.ListUserKeys(ctx)
	if err != nil {
		return nil, err
	}

	total := &RecountResult{Errors: []string{}}

	sem := make(chan struct{}, s.workerCount)
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, userKey := range userKeys {
		wg.Add(1)
		go func(key string) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				mu.Lock()
				total.Errors = append(total.Errors, key+": "+ctx.Err().Error())
				mu.Unlock()
				return
			}

			result, err := s.RecountUser(ctx, key)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				total.Errors = append(total.Errors, key+": "+err.Error())
			}
			if result != nil {
				total.UsersProcessed += result.UsersProcessed
				total.RowsScanned += result.RowsScanned
				total.CountersKept += result.CountersKept
			}
		}(userKey)
	}

	wg.Wait()

	s.log.Info().Int("users", total.UsersProcessed).Int("rows", total.RowsScanned).
		Int("errors", len(total.Errors)).Msg("full usage recount completed")

	return total, nil
}
