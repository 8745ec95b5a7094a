package crm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/cmlabs-hris/timesheet-go/internal/domain/timesheet"
	crmapi "github.com/cmlabs-hris/timesheet-go/internal/pkg/crm"
)

type timekeepingRow struct {
	ID          string          `json:"cr_timekeepingid"`
	Date        string          `json:"cr_date"`
	CheckIn     *string         `json:"cr_checkin"`
	CheckOut    *string         `json:"cr_checkout"`
	HoursWorked json.RawMessage `json:"cr_hoursworked"`
	Status      *string         `json:"cr_status"`
	Note        *string         `json:"cr_note"`
}

type attendanceRepositoryImpl struct {
	client *crmapi.Client
}

func NewAttendanceRepository(client *crmapi.Client) timesheet.AttendanceRepository {
	return &attendanceRepositoryImpl{client: client}
}

// ListByMonth implements timesheet.AttendanceRepository.
func (r *attendanceRepositoryImpl) ListByMonth(ctx context.Context, employeeID string, window timesheet.MonthWindow) ([]timesheet.AttendanceRow, error) {
	q := crmapi.NewQuery().
		Select("cr_timekeepingid", "cr_date", "cr_checkin", "cr_checkout", "cr_hoursworked", "cr_status", "cr_note").
		Filter(crmapi.EqID("_cr_employee_value", employeeID)).
		Filter("cr_date ge " + crmapi.Date(window.Start())).
		Filter("cr_date le " + crmapi.Date(window.End())).
		OrderBy("cr_date", false)

	raw, err := r.client.List(ctx, timekeepingSet, q)
	if err != nil {
		return nil, fmt.Errorf("failed to list attendance rows: %w", err)
	}

	rows := make([]timesheet.AttendanceRow, 0, len(raw))
	for _, item := range raw {
		var row timekeepingRow
		if err := json.Unmarshal(item, &row); err != nil {
			slog.Warn("Skipping undecodable attendance row", "employee_id", employeeID, "error", err)
			continue
		}
		rows = append(rows, timesheet.AttendanceRow{
			RowID:       row.ID,
			Date:        row.Date,
			CheckIn:     row.CheckIn,
			CheckOut:    row.CheckOut,
			HoursWorked: decodeNumber(row.HoursWorked),
			StatusLabel: row.Status,
			Note:        row.Note,
		})
	}

	return rows, nil
}

// UpdateTimes implements timesheet.AttendanceRepository.
func (r *attendanceRepositoryImpl) UpdateTimes(ctx context.Context, recordID string, patch timesheet.TimePatch) error {
	body := make(map[string]any)
	if patch.CheckIn != nil {
		body["cr_checkin"] = optionalString(patch.CheckIn)
	}
	if patch.CheckOut != nil {
		body["cr_checkout"] = optionalString(patch.CheckOut)
	}
	if patch.HoursWorked != nil {
		body["cr_hoursworked"] = *patch.HoursWorked
	}
	if patch.Note != nil {
		body["cr_note"] = optionalString(patch.Note)
	}

	if err := r.client.Patch(ctx, timekeepingSet, recordID, body); err != nil {
		if crmapi.IsNotFound(err) {
			return timesheet.ErrRecordNotFound
		}
		return fmt.Errorf("failed to update attendance row: %w", err)
	}

	return nil
}
