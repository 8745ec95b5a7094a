package cachestore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cmlabs-hris/timesheet-go/internal/domain/timesheet"
	"github.com/cmlabs-hris/timesheet-go/internal/pkg/cache"
)

type snapshotPayload struct {
	Records    []timesheet.DayRecord  `json:"records"`
	Summary    timesheet.MonthSummary `json:"summary"`
	CapturedAt time.Time              `json:"captured_at"`
}

type snapshotRepositoryImpl struct {
	cache cache.Cache
	ttl   time.Duration
}

// NewSnapshotRepository keeps last-good months in c for ttl. A ttl <= 0 keeps them until cleared.
func NewSnapshotRepository(c cache.Cache, ttl time.Duration) timesheet.SnapshotRepository {
	return &snapshotRepositoryImpl{cache: c, ttl: ttl}
}

func snapshotKey(employeeID string, window timesheet.MonthWindow) string {
	return fmt.Sprintf("snapshot:%s:%04d-%02d", employeeID, window.Year, window.Month)
}

// Get implements timesheet.SnapshotRepository.
func (r *snapshotRepositoryImpl) Get(ctx context.Context, employeeID string, window timesheet.MonthWindow) (timesheet.Snapshot, error) {
	raw, ok, err := r.cache.Get(ctx, snapshotKey(employeeID, window))
	if err != nil {
		return timesheet.Snapshot{}, fmt.Errorf("failed to get timesheet snapshot: %w", err)
	}
	if !ok {
		return timesheet.Snapshot{}, timesheet.ErrSnapshotNotFound
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
		CapturedAt: payload.CapturedAt,
	}, nil
}

// Save implements timesheet.SnapshotRepository.
func (r *snapshotRepositoryImpl) Save(ctx context.Context, snapshot timesheet.Snapshot) error {
	raw, err := json.Marshal(snapshotPayload{
		Records:    snapshot.Records,
		Summary:    snapshot.Summary,
		CapturedAt: snapshot.CapturedAt,
	})
	if err != nil {
		return fmt.Errorf("failed to encode timesheet snapshot: %w", err)
	}

	if err := r.cache.Set(ctx, snapshotKey(snapshot.EmployeeID, snapshot.Window), raw, r.ttl); err != nil {
		return fmt.Errorf("failed to save timesheet snapshot: %w", err)
	}
	return nil
}
