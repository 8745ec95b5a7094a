package timesheet

import "errors"

// Timesheet domain errors
var (
	ErrUpstreamUnavailable  = errors.New("timekeeping data is temporarily unavailable")
	ErrSnapshotNotFound     = errors.New("no previous timesheet snapshot for this month")
	ErrRecordNotFound       = errors.New("attendance record not found")
	ErrRecordNotInMonth     = errors.New("attendance record does not belong to the requested month")
	ErrEmployeeNotAllowed   = errors.New("not allowed to view another employee's timesheet")
	ErrRegistrationRejected = errors.New("registration was rejected by the data platform")
)
