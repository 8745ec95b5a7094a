package timesheet

import (
	"fmt"

	"github.com/cmlabs-hris/timesheet-go/internal/pkg/validator"
)

// ========================================
// MONTH DTOs
// ========================================

type MonthQuery struct {
	EmployeeID string `json:"-"`
	Year       int    `json:"year"`
	Month      int    `json:"month"` // 1-12
}

func (q *MonthQuery) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(q.EmployeeID) {
		errs = append(errs, validator.ValidationError{
			Field:   "employee_id",
			Message: "employee_id is required",
		})
	}

	if q.Year < 2000 || q.Year > 2100 {
		errs = append(errs, validator.ValidationError{
			Field:   "year",
			Message: "year must be between 2000 and 2100",
		})
	}

	if q.Month < 1 || q.Month > 12 {
		errs = append(errs, validator.ValidationError{
			Field:   "month",
			Message: "month must be between 1 and 12",
		})
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

func (q MonthQuery) Window() MonthWindow {
	return MonthWindow{Year: q.Year, Month: q.Month}
}

// MonthResponse is the calendar payload. Stale is set when the upstream platform failed and
// the last successful result for the same month is served instead.
type MonthResponse struct {
	EmployeeID  string       `json:"employee_id"`
	Year        int          `json:"year"`
	Month       int          `json:"month"`
	Records     []DayRecord  `json:"records"`
	Summary     MonthSummary `json:"summary"`
	Stale       bool         `json:"stale"`
	StaleReason *string      `json:"stale_reason,omitempty"`
	CapturedAt  string       `json:"captured_at"`
}

// UpdateTimesRequest edits the punches of one attendance row.
type UpdateTimesRequest struct {
	RecordID    string   `json:"-"`
	EmployeeID  string   `json:"-"`
	Year        int      `json:"year"`
	Month       int      `json:"month"`
	CheckIn     *string  `json:"check_in,omitempty"`  // HH:MM[:SS] or full datetime
	CheckOut    *string  `json:"check_out,omitempty"` // HH:MM[:SS] or full datetime
	HoursWorked *float64 `json:"hours_worked,omitempty"`
	Note        *string  `json:"note,omitempty"`
}

func (r *UpdateTimesRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.RecordID) {
		errs = append(errs, validator.ValidationError{
			Field:   "record_id",
			Message: "record_id is required",
		})
	}

	if r.Month < 1 || r.Month > 12 {
		errs = append(errs, validator.ValidationError{
			Field:   "month",
			Message: "month must be between 1 and 12",
		})
	}

	if r.Year < 2000 || r.Year > 2100 {
		errs = append(errs, validator.ValidationError{
			Field:   "year",
			Message: "year must be between 2000 and 2100",
		})
	}

	if r.CheckIn == nil && r.CheckOut == nil && r.HoursWorked == nil && r.Note == nil {
		errs = append(errs, validator.ValidationError{
			Field:   "body",
			Message: "at least one of check_in, check_out, hours_worked, note is required",
		})
	}

	if r.CheckIn != nil && *r.CheckIn != "" && !validator.IsValidClock(*r.CheckIn) {
		errs = append(errs, validator.ValidationError{
			Field:   "check_in",
			Message: "check_in must be HH:MM, HH:MM:SS or an ISO8601 datetime",
		})
	}

	if r.CheckOut != nil && *r.CheckOut != "" && !validator.IsValidClock(*r.CheckOut) {
		errs = append(errs, validator.ValidationError{
			Field:   "check_out",
			Message: "check_out must be HH:MM, HH:MM:SS or an ISO8601 datetime",
		})
	}

	if r.HoursWorked != nil && (*r.HoursWorked < 0 || *r.HoursWorked > 24) {
		errs = append(errs, validator.ValidationError{
			Field:   "hours_worked",
			Message: "hours_worked must be between 0 and 24",
		})
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

func (r UpdateTimesRequest) Patch() TimePatch {
	return TimePatch{
		CheckIn:     r.CheckIn,
		CheckOut:    r.CheckOut,
		HoursWorked: r.HoursWorked,
		Note:        r.Note,
	}
}

// ========================================
// REGISTRATION DTOs
// ========================================

type RegistrationFilter struct {
	EmployeeID string          `json:"-"`
	StartDate  string          `json:"start_date"` // YYYY-MM-DD
	EndDate    string          `json:"end_date"`   // YYYY-MM-DD
	Status     *ApprovalStatus `json:"status,omitempty"`
}

func (f *RegistrationFilter) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(f.EmployeeID) {
		errs = append(errs, validator.ValidationError{
			Field:   "employee_id",
			Message: "employee_id is required",
		})
	}

	start, startOK := validator.IsValidDate(f.StartDate)
	if !startOK {
		errs = append(errs, validator.ValidationError{
			Field:   "start_date",
			Message: "start_date must be in YYYY-MM-DD format",
		})
	}

	end, endOK := validator.IsValidDate(f.EndDate)
	if !endOK {
		errs = append(errs, validator.ValidationError{
			Field:   "end_date",
			Message: "end_date must be in YYYY-MM-DD format",
		})
	}

	if startOK && endOK && end.Before(start) {
		errs = append(errs, validator.ValidationError{
			Field:   "end_date",
			Message: "end_date must not be before start_date",
		})
	}

	if f.Status != nil {
		valid := []string{string(ApprovalPending), string(ApprovalApproved), string(ApprovalRejected)}
		if !validator.IsInSlice(string(*f.Status), valid) {
			errs = append(errs, validator.ValidationError{
				Field:   "status",
				Message: "status must be one of: pending, approved, rejected",
			})
		}
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

type RegistrationResponse struct {
	ID             string   `json:"id"`
	Type           string   `json:"type"`
	TypeName       string   `json:"type_name"`
	StartDate      string   `json:"start_date"`
	EndDate        string   `json:"end_date"`
	Hours          *float64 `json:"hours,omitempty"`
	ApprovalStatus string   `json:"approval_status"`
	Reason         *string  `json:"reason,omitempty"`
	CreatedAt      *string  `json:"created_at,omitempty"`
}

type ListRegistrationResponse struct {
	TotalCount    int                    `json:"total_count"`
	Registrations []RegistrationResponse `json:"registrations"`
}

type CreateRegistrationRequest struct {
	EmployeeID string   `json:"-"`
	Type       string   `json:"type"`
	StartDate  string   `json:"start_date"` // YYYY-MM-DD
	EndDate    string   `json:"end_date"`   // YYYY-MM-DD
	Hours      *float64 `json:"hours,omitempty"`
	Reason     string   `json:"reason"`
}

func (r *CreateRegistrationRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.EmployeeID) {
		errs = append(errs, validator.ValidationError{
			Field:   "employee_id",
			Message: "employee_id is required",
		})
	}

	if _, ok := ParseRegistrationType(r.Type); !ok {
		codes := make([]string, 0, len(RegistrationTypes))
		for _, t := range RegistrationTypes {
			codes = append(codes, t.Code())
		}
		errs = append(errs, validator.ValidationError{
			Field:   "type",
			Message: fmt.Sprintf("type must be one of: %v", codes),
		})
	}

	start, startOK := validator.IsValidDate(r.StartDate)
	if !startOK {
		errs = append(errs, validator.ValidationError{
			Field:   "start_date",
			Message: "start_date must be in YYYY-MM-DD format",
		})
	}

	end, endOK := validator.IsValidDate(r.EndDate)
	if !endOK {
		errs = append(errs, validator.ValidationError{
			Field:   "end_date",
			Message: "end_date must be in YYYY-MM-DD format",
		})
	}

	if startOK && endOK && end.Before(start) {
		errs = append(errs, validator.ValidationError{
			Field:   "end_date",
			Message: "end_date must not be before start_date",
		})
	}

	if r.Hours != nil && (*r.Hours <= 0 || *r.Hours > 24) {
		errs = append(errs, validator.ValidationError{
			Field:   "hours",
			Message: "hours must be greater than 0 and at most 24",
		})
	}

	if validator.IsEmpty(r.Reason) {
		errs = append(errs, validator.ValidationError{
			Field:   "reason",
			Message: "reason is required",
		})
	}
	if len(r.Reason) > 2000 {
		errs = append(errs, validator.ValidationError{
			Field:   "reason",
			Message: "reason must not exceed 2000 characters",
		})
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

type RegistrationTypeResponse struct {
	Code         string  `json:"code"`
	Name         string  `json:"name"`
	Status       Status  `json:"status"`
	DefaultHours float64 `json:"default_hours"`
	WorkValue    float64 `json:"work_value"`
}
