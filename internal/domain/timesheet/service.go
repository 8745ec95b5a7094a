package timesheet

import "context"

// TimesheetService defines the calendar and registration operations
type TimesheetService interface {
	// GetMonth fetches, merges and summarizes one employee's month
	GetMonth(ctx context.Context, query MonthQuery) (MonthResponse, error)

	// UpdateTimes edits one attendance row and returns the recomputed month
	UpdateTimes(ctx context.Context, req UpdateTimesRequest) (MonthResponse, error)

	// ListRegistrations lists registrations in every approval state for a date range
	ListRegistrations(ctx context.Context, filter RegistrationFilter) (ListRegistrationResponse, error)

	// CreateRegistration submits a pending registration
	CreateRegistration(ctx context.Context, req CreateRegistrationRequest) (RegistrationResponse, error)

	// RegistrationTypes returns the registration type catalogue
	RegistrationTypes() []RegistrationTypeResponse
}
