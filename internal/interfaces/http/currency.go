package http

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"fatura/internal/domain/currency"
	"fatura/internal/domain/usage"
	"fatura/internal/shared/middleware"
)

type CurrencyHandler struct {
	tracker *usage.Service
	log     zerolog.Logger
}

func NewCurrencyHandler(tracker *usage.Service, log zerolog.Logger) *CurrencyHandler {
	return &CurrencyHandler{tracker: tracker, log: log}
}

// Request/Response DTOs

type RecordUsageRequest struct {
	Code string `json:"code"`
}

type CurrencyResponse struct {
	Code          string `json:"code"`
	Symbol        string `json:"symbol"`
	DisplayName   string `json:"displayName"`
	DecimalPlaces int32  `json:"decimalPlaces"`
}

func toCurrencyResponse(c currency.Currency) CurrencyResponse {
	return CurrencyResponse{
		Code:          c.Code,
		Symbol:        c.Symbol,
		DisplayName:   c.DisplayName,
		DecimalPlaces: c.DecimalPlaces,
	}
}

// HandleListCurrencies returns the full catalog ordered for the user:
// their used currencies first, then the rest by popularity.
func (h *CurrencyHandler) HandleListCurrencies(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	userKey, ok := middleware.UserKeyFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	currencies := h.tracker.SortedCurrencies(r.Context(), userKey)

	response := make([]CurrencyResponse, 0, len(currencies))
	for _, c := range currencies {
		response = append(response, toCurrencyResponse(c))
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// HandleRecordUsage notes that the user saved a record in the given
// currency. Recording never fails the caller's save; invalid codes are the
// only rejection.
func (h *CurrencyHandler) HandleRecordUsage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	userKey, ok := middleware.UserKeyFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req RecordUsageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Warn().Err(err).Msg("failed to decode record usage request")
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	cur, err := currency.ValidateCode(req.Code)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	h.tracker.RecordUsage(r.Context(), userKey, cur.Code)

	w.WriteHeader(http.StatusNoContent)
}
