package cron

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/timesheet-go/internal/domain/master/warehouse"
)

// WarehouseLister refreshes the warehouse reference list.
type WarehouseLister interface {
	ListWarehouses(ctx context.Context, refresh bool) (warehouse.ListWarehouseResponse, error)
}

// SnapshotPruner deletes snapshots captured before a cutoff.
type SnapshotPruner interface {
	DeleteCapturedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// MaintenanceJobs keeps reference caches warm and old snapshots pruned.
type MaintenanceJobs struct {
	warehouses WarehouseLister
	snapshots  SnapshotPruner
	retention  time.Duration
	now        func() time.Time
}

// NewMaintenanceJobs builds the job set. snapshots may be nil when the
// snapshot store expires entries on its own.
func NewMaintenanceJobs(warehouses WarehouseLister, snapshots SnapshotPruner, retention time.Duration) *MaintenanceJobs {
	return &MaintenanceJobs{
		warehouses: warehouses,
		snapshots:  snapshots,
		retention:  retention,
		now:        time.Now,
	}
}

// RegisterJobs adds the jobs to scheduler. warmInterval should be shorter
// than the reference cache TTL.
func (j *MaintenanceJobs) RegisterJobs(scheduler *Scheduler, warmInterval time.Duration) error {
	if err := scheduler.AddJob(Job{
		Name:     "warm_warehouse_cache",
		Interval: warmInterval,
		Timeout:  30 * time.Second,
		Fn:       j.WarmWarehouseCache,
	}); err != nil {
		return err
	}

	if j.snapshots == nil || j.retention <= 0 {
		return nil
	}
	return scheduler.AddJob(Job{
		Name:     "prune_timesheet_snapshots",
		Interval: 6 * time.Hour,
		Timeout:  time.Minute,
		Fn:       j.PruneSnapshots,
	})
}

func (j *MaintenanceJobs) WarmWarehouseCache(ctx context.Context) error {
	resp, err := j.warehouses.ListWarehouses(ctx, true)
	if err != nil {
		return fmt.Errorf("failed to refresh warehouses: %w", err)
	}
	slog.Debug("warehouse cache refreshed", "count", len(resp.Warehouses))
	return nil
}

func (j *MaintenanceJobs) PruneSnapshots(ctx context.Context) error {
	cutoff := j.now().Add(-j.retention)
	deleted, err := j.snapshots.DeleteCapturedBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("failed to prune snapshots: %w", err)
	}
	if deleted > 0 {
		slog.Info("timesheet snapshots pruned", "deleted", deleted, "cutoff", cutoff)
	}
	return nil
}
