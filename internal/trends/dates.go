package trends

import (
	"errors"
	"fmt"
	"time"

	"pulsegin/trends/internal/db"
)

// ErrMalformedDate is returned for dates that are not calendar days in
// YYYY-MM-DD form. It is always reported before anything is written.
var ErrMalformedDate = errors.New("malformed date")

// ParseDate parses a YYYY-MM-DD calendar day as midnight UTC.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(db.DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrMalformedDate, s)
	}
	return t, nil
}

// FormatDate renders t's calendar day as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format(db.DateLayout)
}

// DateRange returns every calendar day from start to end inclusive, ascending.
func DateRange(start, end time.Time) []string {
	var days []string
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		days = append(days, FormatDate(d))
	}
	return days
}

func validateWindow(windowDays int) error {
	if windowDays < 1 {
		return fmt.Errorf("window must be at least 1 day (got %d)", windowDays)
	}
	return nil
}
