package main

import (
	"github.com/rs/zerolog"

	"fatura/internal/domain/exchange"
	"fatura/internal/domain/summary"
	"fatura/internal/domain/usage"
	"fatura/internal/infrastructure/postgres"
	"fatura/internal/infrastructure/rates"
	httphandlers "fatura/internal/interfaces/http"
	"fatura/internal/shared/config"
)

// Dependencies holds all initialized application components.
type Dependencies struct {
	DB *postgres.DB

	// Handlers
	CurrencyHandler *httphandlers.CurrencyHandler
	ConvertHandler  *httphandlers.ConvertHandler
	CycleHandler    *httphandlers.CycleHandler
	SummaryHandler  *httphandlers.SummaryHandler

	// Shared with the scheduler's warm job provider
	Converter *exchange.Converter
	UsageRepo *postgres.UsageRepository
	PrefRepo  *postgres.PreferenceRepository
}

// NewDependencies initializes all application dependencies.
func NewDependencies(cfg *config.Config, log zerolog.Logger) (*Dependencies, error) {
	db, err := postgres.New(cfg.Database.ConnectionString())
	if err != nil {
		return nil, err
	}
	log.Info().Msg("connected to database")

	// Repositories
	usageRepo := postgres.NewUsageRepository(db)
	prefRepo := postgres.NewPreferenceRepository(db)
	txRepo := postgres.NewTransactionRepository(db)

	// Domain services
	tracker := usage.NewService(usageRepo, prefRepo, cfg.Currency.ListCacheTTL, log)

	rateSource := rates.NewClient(rates.Config{
		BaseURL:  cfg.Rates.BaseURL,
		Pivot:    cfg.Rates.Pivot,
		APIToken: cfg.Rates.APIToken,
		Timeout:  cfg.Rates.Timeout,
	})
	converter := exchange.NewConverter(rateSource, cfg.Rates.CacheTTL, cfg.Rates.Timeout, log)

	summaryService := summary.NewService(txRepo, converter, log)

	return &Dependencies{
		DB:              db,
		CurrencyHandler: httphandlers.NewCurrencyHandler(tracker, log),
		ConvertHandler:  httphandlers.NewConvertHandler(converter, log),
		CycleHandler:    httphandlers.NewCycleHandler(log),
		SummaryHandler:  httphandlers.NewSummaryHandler(summaryService, log),
		Converter:       converter,
		UsageRepo:       usageRepo,
		PrefRepo:        prefRepo,
	}, nil
}

// Close releases all resources held by dependencies.
func (d *Dependencies) Close() {
	if d.DB != nil {
		d.DB.Close()
	}
}
