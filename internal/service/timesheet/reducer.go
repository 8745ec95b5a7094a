package timesheet

import (
	"log/slog"
	"sort"
	"time"

	"github.com/cmlabs-hris/timesheet-go/internal/domain/timesheet"
	"github.com/shopspring/decimal"
)

const registrationNotePrefix = "DK: "

// MergeMonth combines attendance rows and approved registrations into one record per date.
// Attendance wins when hours were logged; otherwise the registration fills the day.
func MergeMonth(
	rows []timesheet.AttendanceRow,
	registrations []timesheet.RegistrationRow,
	window timesheet.MonthWindow,
	rules timesheet.WorkRules,
) map[string]timesheet.DayRecord {
	byDate := make(map[string]timesheet.DayRecord, len(rows))

	for _, row := range rows {
		record, ok := NormalizeAttendance(row, rules)
		if !ok {
			slog.Debug("Skipping attendance row with unreadable date", "row_id", row.RowID, "date", row.Date)
			continue
		}
		day, _ := ParseLocalDate(record.Date)
		if !window.Contains(day) {
			continue
		}
		byDate[record.Date] = record
	}

	for _, registration := range registrations {
		for _, c := range ProjectRegistration(registration, window, rules) {
			applyContribution(byDate, c)
		}
	}

	return byDate
}

func applyContribution(byDate map[string]timesheet.DayRecord, c Contribution) {
	summary := c.Registration
	note := registrationNotePrefix + c.Reason

	existing, ok := byDate[c.Date]
	if !ok || existing.HoursWorked == 0 {
		record := timesheet.DayRecord{
			Date:         c.Date,
			HoursWorked:  c.HoursWorked,
			Status:       c.Status,
			WorkValue:    c.WorkValue,
			Note:         &note,
			Registration: &summary,
		}
		if ok {
			record.RecordID = existing.RecordID
		}
		byDate[c.Date] = record
		return
	}

	existing.Registration = &summary
	if existing.Note != nil && *existing.Note != "" {
		joined := *existing.Note + " | " + note
		existing.Note = &joined
	} else {
		existing.Note = &note
	}
	byDate[c.Date] = existing
}

// SortedRecords flattens a merged month into date order.
func SortedRecords(byDate map[string]timesheet.DayRecord) []timesheet.DayRecord {
	records := make([]timesheet.DayRecord, 0, len(byDate))
	for _, r := range byDate {
		records = append(records, r)
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].Date < records[j].Date
	})
	return records
}

// Summarize reduces a month of records into its totals. Standard days come from the calendar,
// so days without any record still count toward the expectation.
func Summarize(records []timesheet.DayRecord, window timesheet.MonthWindow, rules timesheet.WorkRules) timesheet.MonthSummary {
	standard := decimal.Zero
	for d := window.Start(); window.Contains(d); d = d.AddDate(0, 0, 1) {
		standard = standard.Add(decimal.NewFromFloat(DayCredit(d)))
	}

	actual := decimal.Zero
	insufficient := make([]timesheet.DayRecord, 0)
	for _, r := range records {
		actual = actual.Add(decimal.NewFromFloat(r.WorkValue))

		day, ok := ParseLocalDate(r.Date)
		if !ok {
			continue
		}
		hours := StandardHours(day, rules)
		if hours > 0 && r.HoursWorked < hours && !excusedStatus(r.Status) {
			insufficient = append(insufficient, r)
		}
	}

	return timesheet.MonthSummary{
		StandardDays:     standard.InexactFloat64(),
		ActualDays:       actual.InexactFloat64(),
		InsufficientDays: insufficient,
	}
}

func excusedStatus(s timesheet.Status) bool {
	switch s {
	case timesheet.StatusLeave, timesheet.StatusOff, timesheet.StatusHoliday:
		return true
	}
	return false
}

// PatchRecord applies a time edit to the record backed by recordID, recomputing its work
// value and warning state. Only the optimistic path after a save uses it; a full refetch
// supersedes the result.
func PatchRecord(records []timesheet.DayRecord, recordID string, patch timesheet.TimePatch, rules timesheet.WorkRules) ([]timesheet.DayRecord, bool) {
	patched := make([]timesheet.DayRecord, len(records))
	copy(patched, records)

	for i, r := range patched {
		if r.RecordID == nil || *r.RecordID != recordID {
			continue
		}

		day, ok := ParseLocalDate(r.Date)
		if !ok {
			return records, false
		}

		if patch.CheckIn != nil {
			r.CheckIn = cloneString(patch.CheckIn)
		}
		if patch.CheckOut != nil {
			r.CheckOut = cloneString(patch.CheckOut)
		}
		if patch.Note != nil {
			r.Note = nonEmpty(patch.Note)
		}
		if patch.HoursWorked != nil {
			r.HoursWorked = sanitizeHours(patch.HoursWorked)
			r.WorkValue = WorkValue(day, r.HoursWorked, rules)
		}

		if r.Status == timesheet.StatusNormal || r.Status == timesheet.StatusWarning {
			r.Status = timesheet.StatusNormal
			if day.Weekday() != time.Sunday && (!hasPunch(r.CheckIn) || !hasPunch(r.CheckOut)) {
				r.Status = timesheet.StatusWarning
			}
		}

		patched[i] = r
		return patched, true
	}

	return records, false
}
