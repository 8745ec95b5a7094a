package timesheet

import (
	"context"
	"time"
)

// AttendanceRepository reads and edits daily timekeeping rows on the data platform.
type AttendanceRepository interface {
	// ListByMonth returns every attendance row of the employee inside the window.
	ListByMonth(ctx context.Context, employeeID string, window MonthWindow) ([]AttendanceRow, error)

	// UpdateTimes writes a time edit to one row. Last write wins.
	UpdateTimes(ctx context.Context, recordID string, patch TimePatch) error
}

// RegistrationRepository reads and submits leave/overtime registrations.
type RegistrationRepository interface {
	// ListOverlapping returns registrations whose [start, end] range overlaps [from, to].
	// A nil status returns every approval state.
	ListOverlapping(ctx context.Context, employeeID string, from, to time.Time, status *ApprovalStatus) ([]RegistrationRow, error)

	// Create submits a new registration and returns it as stored.
	Create(ctx context.Context, row RegistrationRow) (RegistrationRow, error)
}

// SnapshotRepository keeps the last successfully computed month per employee.
type SnapshotRepository interface {
	Get(ctx context.Context, employeeID string, window MonthWindow) (Snapshot, error)
	Save(ctx context.Context, snapshot Snapshot) error
}
