// Package dates provides the ISO-week arithmetic used to build the
// upstream API's date-range filter strings.
package dates

import (
	"fmt"
	"time"
)

// WeekNumber returns the ISO 8601 year and week number of the given
// instant. Note that around the new year the ISO year may differ from
// the calendar year (2022-12-25 falls in 2022-W51, but 2024-12-30 is
// already 2025-W1).
func WeekNumber(t time.Time) (year, week int) {
	return t.ISOWeek()
}

// Range formats an ISO-week span such as "2024-W50--2024-W51" covering
// the weeks of the two given instants. Week numbers are not zero-padded.
func Range(from, to time.Time) string {
	fromYear, fromWeek := WeekNumber(from)
	toYear, toWeek := WeekNumber(to)
	return fmt.Sprintf("%d-W%d--%d-W%d", fromYear, fromWeek, toYear, toWeek)
}

// DefaultRange returns the default fetch window: the ISO week of now
// through the ISO week one week later.
func DefaultRange(now time.Time) string {
	return Range(now, now.Add(7*24*time.Hour))
}
