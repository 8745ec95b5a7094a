package postgresql

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cmlabs-hris/timesheet-go/internal/domain/timesheet"
	"github.com/cmlabs-hris/timesheet-go/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

type snapshotPayload struct {
	Records []timesheet.DayRecord  `json:"records"`
	Summary timesheet.MonthSummary `json:"summary"`
}

type SnapshotRepositoryImpl struct {
	db *database.DB
}

func NewSnapshotRepository(db *database.DB) *SnapshotRepositoryImpl {
	return &SnapshotRepositoryImpl{db: db}
}

// Get implements timesheet.SnapshotRepository.
func (r *SnapshotRepositoryImpl) Get(ctx context.Context, employeeID string, window timesheet.MonthWindow) (timesheet.Snapshot, error) {
	query := `
		SELECT payload, captured_at
		FROM timesheet_snapshots
		WHERE employee_id = $1 AND year = $2 AND month = $3
	`

	var (
		raw        []byte
		capturedAt time.Time
	)
	err := r.db.QueryRow(ctx, query, employeeID, window.Year, window.Month).Scan(&raw, &capturedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return timesheet.Snapshot{}, timesheet.ErrSnapshotNotFound
		}
		return timesheet.Snapshot{}, fmt.Errorf("failed to get timesheet snapshot: %w", err)
	}

	var payload snapshotPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return timesheet.Snapshot{}, fmt.Errorf("failed to decode timesheet snapshot: %w", err)
	}

	return timesheet.Snapshot{
		EmployeeID: employeeID,
		Window:     window,
		Records:    payload.Records,
		Summary:    payload.Summary,
		CapturedAt: capturedAt.UTC(),
	}, nil
}

// Save implements timesheet.SnapshotRepository.
func (r *SnapshotRepositoryImpl) Save(ctx context.Context, snapshot timesheet.Snapshot) error {
	raw, err := json.Marshal(snapshotPayload{Records: snapshot.Records, Summary: snapshot.Summary})
	if err != nil {
		return fmt.Errorf("failed to encode timesheet snapshot: %w", err)
	}

	query := `
		INSERT INTO timesheet_snapshots (employee_id, year, month, payload, captured_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (employee_id, year, month)
		DO UPDATE SET payload = EXCLUDED.payload, captured_at = EXCLUDED.captured_at
		WHERE timesheet_snapshots.captured_at <= EXCLUDED.captured_at
	`

	_, err = r.db.Exec(ctx, query,
		snapshot.EmployeeID,
		snapshot.Window.Year,
		snapshot.Window.Month,
		raw,
		snapshot.CapturedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save timesheet snapshot: %w", err)
	}

	return nil
}

// DeleteCapturedBefore removes snapshots older than cutoff and returns how many were removed.
func (r *SnapshotRepositoryImpl) DeleteCapturedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM timesheet_snapshots WHERE captured_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old timesheet snapshots: %w", err)
	}

	return tag.RowsAffected(), nil
}
