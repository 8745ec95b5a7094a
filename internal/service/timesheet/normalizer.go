package timesheet

import (
	"math"
	"strings"
	"time"

	"github.com/cmlabs-hris/timesheet-go/internal/domain/timesheet"
	"github.com/shopspring/decimal"
	"golang.org/x/text/unicode/norm"
)

// Free-text markers, checked in order. The platform stores status as text, so these stay
// substring heuristics.
var (
	leaveMarkers   = []string{"phép", "leave"}
	lateMarkers    = []string{"trễ", "late"}
	offMarkers     = []string{"nghỉ", "off"}
	holidayMarkers = []string{"lễ", "holiday", "tết", "company off"}
)

var missingPunches = []string{"", "00:00", "00:00:00", "--:--", "--:--:--"}

var punchLayouts = []string{
	"15:04:05",
	"15:04",
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// NormalizeAttendance converts one raw attendance row into a DayRecord. The second return
// value is false when the row date cannot be read, in which case the row has no calendar slot.
func NormalizeAttendance(row timesheet.AttendanceRow, rules timesheet.WorkRules) (timesheet.DayRecord, bool) {
	day, ok := ParseLocalDate(row.Date)
	if !ok {
		return timesheet.DayRecord{}, false
	}

	hours := sanitizeHours(row.HoursWorked)
	status := classifyStatus(deref(row.StatusLabel), deref(row.Note))

	sunday := day.Weekday() == time.Sunday
	if sunday && status == timesheet.StatusLate {
		status = timesheet.StatusNormal
	}
	if status == timesheet.StatusNormal && !sunday && (!hasPunch(row.CheckIn) || !hasPunch(row.CheckOut)) {
		status = timesheet.StatusWarning
	}

	record := timesheet.DayRecord{
		Date:        formatDate(day),
		HoursWorked: hours,
		Status:      status,
		WorkValue:   WorkValue(day, hours, rules),
		CheckIn:     cloneString(row.CheckIn),
		CheckOut:    cloneString(row.CheckOut),
		Note:        nonEmpty(row.Note),
	}
	if row.RowID != "" {
		id := row.RowID
		record.RecordID = &id
	}

	return record, true
}

// WorkValue credits hours against the standard hours of the day.
func WorkValue(day time.Time, hours float64, rules timesheet.WorkRules) float64 {
	standard := StandardHours(day, rules)
	if standard <= 0 {
		return 0
	}

	maxCredit := DayCredit(day)
	if hours >= standard {
		return maxCredit
	}

	return decimal.NewFromFloat(hours).
		Div(decimal.NewFromFloat(standard)).
		Mul(decimal.NewFromFloat(maxCredit)).
		Round(2).
		InexactFloat64()
}

func classifyStatus(label, note string) timesheet.Status {
	text := strings.ToLower(norm.NFC.String(label + " " + note))

	switch {
	case containsAny(text, leaveMarkers):
		return timesheet.StatusLeave
	case containsAny(text, lateMarkers):
		return timesheet.StatusLate
	case containsAny(text, offMarkers):
		return timesheet.StatusOff
	case containsAny(text, holidayMarkers):
		return timesheet.StatusHoliday
	default:
		return timesheet.StatusNormal
	}
}

func containsAny(text string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(text, m) {
			return true
		}
	}
	return false
}

// hasPunch reports whether v holds a usable check-in/check-out time. Midnight is the
// platform's placeholder for "not punched".
func hasPunch(v *string) bool {
	if v == nil {
		return false
	}

	s := strings.TrimSpace(*v)
	for _, m := range missingPunches {
		if s == m {
			return false
		}
	}

	t, ok := parsePunch(s)
	if !ok {
		return false
	}
	return t.Hour() != 0 || t.Minute() != 0 || t.Second() != 0
}

func parsePunch(s string) (time.Time, bool) {
	for _, layout := range punchLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func sanitizeHours(h *float64) float64 {
	if h == nil || math.IsNaN(*h) || math.IsInf(*h, 0) || *h < 0 {
		return 0
	}
	return *h
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func nonEmpty(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	v := *s
	return &v
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
