package billing

import (
	"errors"
	"time"
)

// Domain errors
var ErrInvalidWithdrawDay = errors.New("withdraw day must be between 1 and 31")

// Cycle is the inclusive date range between two consecutive statement
// dates. Derived on demand, never persisted.
type Cycle struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains reports whether a date falls inside the cycle, inclusive on
// both ends. Comparison is by calendar day.
func (c Cycle) Contains(date time.Time) bool {
	d := dateOf(date)
	return !d.Before(c.Start) && !d.After(c.End)
}

// Days returns the cycle length in days, counting both endpoints.
func (c Cycle) Days() int {
	return int(c.End.Sub(c.Start).Hours()/24) + 1
}

// Resolve computes the billing cycle a reference month belongs to. For
// month M and withdraw day D the cycle runs from day min(D, daysIn(M-1))
// of the previous month through the day before min(D, daysIn(M)) of M.
// Clamping keeps configs with day 29-31 valid in short months; the result
// always satisfies Start <= End (27-31 days).
func Resolve(withdrawDay int, year int, month time.Month) (Cycle, error) {
	if withdrawDay < 1 || withdrawDay > 31 {
		return Cycle{}, ErrInvalidWithdrawDay
	}

	prev := time.Date(year, month-1, 1, 0, 0, 0, 0, time.UTC)
	start := time.Date(prev.Year(), prev.Month(), ClampDay(withdrawDay, prev.Year(), prev.Month()), 0, 0, 0, 0, time.UTC)
	end := time.Date(year, month, ClampDay(withdrawDay, year, month), 0, 0, 0, 0, time.UTC).AddDate(0, 0, -1)

	return Cycle{Start: start, End: end}, nil
}

// CalendarMonth returns the month itself as a cycle, first day through
// last day. Used for payment methods that settle by calendar month.
func CalendarMonth(year int, month time.Month) Cycle {
	start := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	return Cycle{Start: start, End: start.AddDate(0, 1, -1)}
}

// ClampDay limits a nominal day-of-month to the month's actual length.
func ClampDay(day, year int, month time.Month) int {
	last := time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
	if day > last {
		return last
	}
	return day
}

// WeekIndex returns the 1-based week number of a date within a cycle
// starting at cycleStart. Dates before the start clamp to week 1 rather
// than underflowing; correct filtering upstream should prevent them.
func WeekIndex(date, cycleStart time.Time) int {
	days := int(dateOf(date).Sub(dateOf(cycleStart)).Hours() / 24)
	if days < 0 {
		return 1
	}
	return days/7 + 1
}

// WeekRange returns the inclusive date range of the given week within the
// cycle. The final week is cut short at the cycle end. ok is false when
// the index is below 1 or past the cycle.
func WeekRange(index int, c Cycle) (start, end time.Time, ok bool) {
	if index < 1 {
		return time.Time{}, time.Time{}, false
	}
	start = c.Start.AddDate(0, 0, (index-1)*7)
	if start.After(c.End) {
		return time.Time{}, time.Time{}, false
	}
	end = start.AddDate(0, 0, 6)
	if end.After(c.End) {
		end = c.End
	}
	return start, end, true
}

// dateOf strips the time-of-day and normalizes to UTC so all cycle math
// compares calendar days.
func dateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
