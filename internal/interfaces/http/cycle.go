package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"fatura/internal/domain/billing"
)

type CycleHandler struct {
	log zerolog.Logger
}

func NewCycleHandler(log zerolog.Logger) *CycleHandler {
	return &CycleHandler{log: log}
}

type WeekRangeResponse struct {
	Index int       `json:"index"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

type CycleResponse struct {
	WithdrawDay int                 `json:"withdrawDay"`
	Start       time.Time           `json:"start"`
	End         time.Time           `json:"end"`
	Days        int                 `json:"days"`
	Weeks       []WeekRangeResponse `json:"weeks"`
}

// HandleCycle resolves the billing cycle a reference month falls into for a
// given statement withdraw day, including its week subdivisions.
func (h *CycleHandler) HandleCycle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	withdrawDay, err := strconv.Atoi(r.URL.Query().Get("withdrawDay"))
	if err != nil {
		http.Error(w, "Invalid withdrawDay", http.StatusBadRequest)
		return
	}

	year, month, err := parseMonthParam(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	cycle, err := billing.Resolve(withdrawDay, year, month)
	if errors.Is(err, billing.ErrInvalidWithdrawDay) {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err != nil {
		h.log.Error().Err(err).Int("withdraw_day", withdrawDay).Msg("cycle resolution failed")
		http.Error(w, "Failed to resolve cycle", http.StatusInternalServerError)
		return
	}

	var weeks []WeekRangeResponse
	for i := 1; ; i++ {
		start, end, ok := billing.WeekRange(i, cycle)
		if !ok {
			break
		}
		weeks = append(weeks, WeekRangeResponse{Index: i, Start: start, End: end})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(CycleResponse{
		WithdrawDay: withdrawDay,
		Start:       cycle.Start,
		End:         cycle.End,
		Days:        cycle.Days(),
		Weeks:       weeks,
	})
}
