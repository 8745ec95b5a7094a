package timesheet

import (
	"strconv"
	"strings"
	"time"

	"github.com/cmlabs-hris/timesheet-go/internal/domain/timesheet"
)

const dateLayout = "2006-01-02"

// ParseLocalDate reads the leading YYYY-MM-DD of s and builds a local calendar date from its
// components. Timestamps are never parsed as instants, so "2024-03-01T00:00:00Z" stays March 1st
// whatever the server time zone is.
func ParseLocalDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if len(s) < 10 {
		return time.Time{}, false
	}

	parts := strings.Split(s[:10], "-")
	if len(parts) != 3 || len(parts[0]) != 4 || len(parts[1]) != 2 || len(parts[2]) != 2 {
		return time.Time{}, false
	}

	year, err := strconv.Atoi(parts[0])
	if err != nil {
		return time.Time{}, false
	}
	month, err := strconv.Atoi(parts[1])
	if err != nil || month < 1 || month > 12 {
		return time.Time{}, false
	}
	day, err := strconv.Atoi(parts[2])
	if err != nil || day < 1 || day > daysIn(year, time.Month(month)) {
		return time.Time{}, false
	}

	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.Local), true
}

func formatDate(t time.Time) string {
	return t.Format(dateLayout)
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.Local).Day()
}

// DaysInMonth returns the number of calendar days of the window.
func DaysInMonth(w timesheet.MonthWindow) int {
	return daysIn(w.Year, time.Month(w.Month))
}

// StandardHours returns the expected hours for the weekday of d.
func StandardHours(d time.Time, rules timesheet.WorkRules) float64 {
	switch d.Weekday() {
	case time.Sunday:
		return 0
	case time.Saturday:
		return rules.SaturdayHours
	default:
		return rules.WeekdayHours
	}
}

// DayCredit is the standard-day credit of d: 0 on Sunday, 0.5 on Saturday, 1 otherwise.
func DayCredit(d time.Time) float64 {
	switch d.Weekday() {
	case time.Sunday:
		return 0
	case time.Saturday:
		return 0.5
	default:
		return 1
	}
}

func later(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

func earlier(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}
