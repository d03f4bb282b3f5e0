package appointment

import (
	"strings"
	"time"

	"github.com/hackgods/hospital-appointment-booking/internal/apperr"
)

const DayLayout = "2006-01-02"

var ErrInvalidDate = apperr.Validation("invalid_date", "date must be YYYY-MM-DD or RFC 3339")

// ParseDay reads a calendar day. For RFC 3339 input the date part is kept as
// written, whatever the offset.
func ParseDay(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(DayLayout, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return DayOf(t), nil
	}
	return time.Time{}, ErrInvalidDate
}

// DayOf reads the calendar date of t in t's own zone and returns that date
// at midnight UTC.
func DayOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func FormatDay(t time.Time) string {
	return t.Format(DayLayout)
}

// longDate renders dates the way notification text shows them.
func longDate(t time.Time) string {
	return t.Format("January 2, 2006")
}
