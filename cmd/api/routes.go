package main

import (
	"net/http"

	"github.com/rs/zerolog"

	httphandlers "fatura/internal/interfaces/http"
	"fatura/internal/shared/config"
	"fatura/internal/shared/middleware"
)

// SetupRoutes configures all HTTP routes and returns the final handler with middleware.
func SetupRoutes(deps *Dependencies, cfg *config.Config, log zerolog.Logger) http.Handler {
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("/health", httphandlers.HandleHealth)

	// API routes, all scoped to the caller's user key
	userKey := middleware.UserKey

	mux.Handle("/api/currencies", userKey(http.HandlerFunc(deps.CurrencyHandler.HandleListCurrencies)))
	mux.Handle("/api/currencies/usage", userKey(http.HandlerFunc(deps.CurrencyHandler.HandleRecordUsage)))
	mux.Handle("/api/convert", userKey(http.HandlerFunc(deps.ConvertHandler.HandleConvert)))
	mux.Handle("/api/cycle", userKey(http.HandlerFunc(deps.CycleHandler.HandleCycle)))
	mux.Handle("/api/summary", userKey(http.HandlerFunc(deps.SummaryHandler.HandleMonthSummary)))
	mux.Handle("/api/summary/weeks", userKey(http.HandlerFunc(deps.SummaryHandler.HandleWeekBuckets)))

	// Apply global middleware
	handler := middleware.Logging(log)(middleware.CORS(cfg.Server.AllowedHosts)(mux))

	// Wrap requests in server spans when telemetry is enabled
	if cfg.Telemetry.Enabled {
		handler = middleware.Telemetry(handler)
	}

	// Apply security middleware when TLS is enabled
	if cfg.TLS.Enabled {
		handler = middleware.HSTS(middleware.SecureCookies(handler))
		log.Info().Msg("TLS security middleware enabled (HSTS + SecureCookies)")
	}

	return handler
}
