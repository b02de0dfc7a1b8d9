package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"fatura/internal/domain/summary"
	"fatura/internal/shared/middleware"
)

type SummaryHandler struct {
	service *summary.Service
	log     zerolog.Logger
}

func NewSummaryHandler(service *summary.Service, log zerolog.Logger) *SummaryHandler {
	return &SummaryHandler{service: service, log: log}
}

// HandleMonthSummary returns per-payment-method totals for the reference
// month, converted into the requested display currency.
func (h *SummaryHandler) HandleMonthSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	userKey, ok := middleware.UserKeyFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	year, month, err := parseMonthParam(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	result, err := h.service.MonthSummary(r.Context(), userKey, year, month, r.URL.Query().Get("currency"))
	if err != nil {
		h.log.Error().Err(err).Str("user", userKey).Msg("failed to build month summary")
		http.Error(w, "Failed to build summary", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

// HandleWeekBuckets returns the per-week totals of the reference month for
// the drill-down view.
func (h *SummaryHandler) HandleWeekBuckets(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	userKey, ok := middleware.UserKeyFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	year, month, err := parseMonthParam(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	buckets, err := h.service.WeekBuckets(r.Context(), userKey, year, month, r.URL.Query().Get("currency"))
	if err != nil {
		h.log.Error().Err(err).Str("user", userKey).Msg("failed to build week buckets")
		http.Error(w, "Failed to build summary", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(buckets)
}

// parseMonthParam reads the optional month=YYYY-MM query parameter,
// defaulting to the current month.
func parseMonthParam(r *http.Request) (int, time.Month, error) {
	raw := r.URL.Query().Get("month")
	if raw == "" {
		now := time.Now().UTC()
		return now.Year(), now.Month(), nil
	}

	t, err := time.Parse("2006-01", raw)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid month %q, expected YYYY-MM", raw)
	}
	return t.Year(), t.Month(), nil
}
