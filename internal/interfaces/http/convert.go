package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"fatura/internal/domain/currency"
	"fatura/internal/domain/exchange"
	"fatura/internal/shared/middleware"
)

type ConvertHandler struct {
	converter *exchange.Converter
	log       zerolog.Logger
}

func NewConvertHandler(converter *exchange.Converter, log zerolog.Logger) *ConvertHandler {
	return &ConvertHandler{converter: converter, log: log}
}

type ConvertResponse struct {
	Amount    decimal.Decimal `json:"amount"`
	From      string          `json:"from"`
	To        string          `json:"to"`
	Converted decimal.Decimal `json:"converted"`
	Rate      decimal.Decimal `json:"rate"`
	Formatted string          `json:"formatted"`
	Stale     bool            `json:"stale"`
	FetchedAt time.Time       `json:"fetchedAt"`
}

type ConvertErrorResponse struct {
	Amount decimal.Decimal `json:"amount"`
	From   string          `json:"from"`
	To     string          `json:"to"`
	Error  string          `json:"error"`
}

// HandleConvert converts an amount between two currencies through the rate
// cache. A stale cached rate still answers 200, flagged; no rate at all is
// a 502 with the face-value amount echoed so clients can show something.
func (h *ConvertHandler) HandleConvert(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if _, ok := middleware.UserKeyFromContext(r.Context()); !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	q := r.URL.Query()

	rawAmount, err := strconv.ParseFloat(q.Get("amount"), 64)
	if err != nil {
		http.Error(w, "Invalid amount", http.StatusBadRequest)
		return
	}

	from, err := currency.ValidateCode(q.Get("from"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	to, err := currency.ValidateCode(q.Get("to"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	amount, err := currency.AmountFromFloat(rawAmount, from)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	conv, err := h.converter.Convert(r.Context(), amount, from.Code, to.Code)
	if errors.Is(err, exchange.ErrConversionUnavailable) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadGateway)
		json.NewEncoder(w).Encode(ConvertErrorResponse{
			Amount: amount,
			From:   from.Code,
			To:     to.Code,
			Error:  "conversion unavailable",
		})
		return
	}
	if err != nil {
		h.log.Error().Err(err).Str("from", from.Code).Str("to", to.Code).Msg("conversion failed")
		http.Error(w, "Failed to convert", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(ConvertResponse{
		Amount:    amount,
		From:      from.Code,
		To:        to.Code,
		Converted: conv.Amount,
		Rate:      conv.Rate,
		Formatted: currency.Format(conv.Amount, to),
		Stale:     conv.Stale,
		FetchedAt: conv.FetchedAt,
	})
}
