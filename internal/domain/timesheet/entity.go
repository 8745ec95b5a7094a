package timesheet

import "time"

// Status is the per-day classification shown on the calendar.
type Status string

const (
	StatusNormal  Status = "normal"
	StatusLeave   Status = "leave"
	StatusLate    Status = "late"
	StatusOff     Status = "off"
	StatusHoliday Status = "holiday"
	StatusWarning Status = "warning"
)

// RegistrationType is the closed set of registration kinds the CRM knows about.
type RegistrationType int

const (
	RegistrationLeave RegistrationType = iota + 1
	RegistrationWorkFromHome
	RegistrationOvertime
	RegistrationBusinessTrip
	RegistrationLateEarly
	RegistrationUnpaidLeave
)

var RegistrationTypes = []RegistrationType{
	RegistrationLeave,
	RegistrationWorkFromHome,
	RegistrationOvertime,
	RegistrationBusinessTrip,
	RegistrationLateEarly,
	RegistrationUnpaidLeave,
}

// Valid reports whether t is one of the known registration types.
func (t RegistrationType) Valid() bool {
	return t >= RegistrationLeave && t <= RegistrationUnpaidLeave
}

// Name returns the display name used on the calendar.
func (t RegistrationType) Name() string {
	switch t {
	case RegistrationLeave:
		return "Nghỉ phép"
	case RegistrationWorkFromHome:
		return "Làm việc tại nhà"
	case RegistrationOvertime:
		return "Tăng ca"
	case RegistrationBusinessTrip:
		return "Công tác"
	case RegistrationLateEarly:
		return "Đi trễ / Về sớm"
	case RegistrationUnpaidLeave:
		return "Nghỉ không lương"
	}
	return "Không xác định"
}

// Code returns the API code of the registration type.
func (t RegistrationType) Code() string {
	switch t {
	case RegistrationLeave:
		return "leave"
	case RegistrationWorkFromHome:
		return "work_from_home"
	case RegistrationOvertime:
		return "overtime"
	case RegistrationBusinessTrip:
		return "business_trip"
	case RegistrationLateEarly:
		return "late_early"
	case RegistrationUnpaidLeave:
		return "unpaid_leave"
	}
	return ""
}

// ParseRegistrationType maps an API code back to a RegistrationType.
func ParseRegistrationType(code string) (RegistrationType, bool) {
	for _, t := range RegistrationTypes {
		if t.Code() == code {
			return t, true
		}
	}
	return 0, false
}

type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalRejected ApprovalStatus = "rejected"
)

// AttendanceRow is one raw timekeeping row (one employee, one day) as read from the CRM.
type AttendanceRow struct {
	RowID       string
	Date        string
	CheckIn     *string
	CheckOut    *string
	HoursWorked *float64
	StatusLabel *string
	Note        *string
}

// RegistrationRow is a leave/overtime/... request covering an inclusive date range.
type RegistrationRow struct {
	ID             string
	EmployeeID     string
	StartDate      string
	EndDate        string
	Type           RegistrationType
	Hours          *float64
	ApprovalStatus ApprovalStatus
	Reason         *string
	CreatedAt      *time.Time
}

// RegistrationSummary is attached to a DayRecord touched by an approved registration.
type RegistrationSummary struct {
	ID       string  `json:"id"`
	Type     string  `json:"type"`
	TypeName string  `json:"type_name"`
	Hours    float64 `json:"hours"`
	Status   string  `json:"status"`
}

// DayRecord is the calendar view model for one date of a month.
type DayRecord struct {
	Date         string               `json:"date"`
	HoursWorked  float64              `json:"hours_worked"`
	Status       Status               `json:"status"`
	WorkValue    float64              `json:"work_value"`
	CheckIn      *string              `json:"check_in,omitempty"`
	CheckOut     *string              `json:"check_out,omitempty"`
	Note         *string              `json:"note,omitempty"`
	RecordID     *string              `json:"record_id,omitempty"`
	Registration *RegistrationSummary `json:"registration,omitempty"`
}

type MonthSummary struct {
	StandardDays     float64     `json:"standard_days"`
	ActualDays       float64     `json:"actual_days"`
	InsufficientDays []DayRecord `json:"insufficient_days"`
}

// MonthWindow is a one-based (year, month) query window.
type MonthWindow struct {
	Year  int
	Month int
}

// Start returns the first day of the window as a local calendar date.
func (w MonthWindow) Start() time.Time {
	return time.Date(w.Year, time.Month(w.Month), 1, 0, 0, 0, 0, time.Local)
}

// End returns the last day of the window.
func (w MonthWindow) End() time.Time {
	return w.Start().AddDate(0, 1, -1)
}

// Contains reports whether d falls on a day inside the window.
func (w MonthWindow) Contains(d time.Time) bool {
	return d.Year() == w.Year && int(d.Month()) == w.Month
}

// WorkRules holds the configured standard hours.
type WorkRules struct {
	WeekdayHours         float64
	SaturdayHours        float64
	RegistrationDayHours float64
}

func DefaultWorkRules() WorkRules {
	return WorkRules{
		WeekdayHours:         8,
		SaturdayHours:        4,
		RegistrationDayHours: 8,
	}
}

// TimePatch is the editable part of an attendance row.
type TimePatch struct {
	CheckIn     *string
	CheckOut    *string
	HoursWorked *float64
	Note        *string
}

// Snapshot is the last successfully computed month for one employee.
type Snapshot struct {
	EmployeeID string
	Window     MonthWindow
	Records    []DayRecord
	Summary    MonthSummary
	CapturedAt time.Time
}
