package crm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/timesheet-go/internal/domain/timesheet"
	crmapi "github.com/cmlabs-hris/timesheet-go/internal/pkg/crm"
)

type registrationRow struct {
	ID             string          `json:"cr_registrationid"`
	EmployeeID     string          `json:"_cr_employee_value"`
	StartDate      string          `json:"cr_startdate"`
	EndDate        string          `json:"cr_enddate"`
	Type           int             `json:"cr_type"`
	Hours          json.RawMessage `json:"cr_hours"`
	ApprovalStatus int             `json:"cr_approvalstatus"`
	Reason         *string         `json:"cr_reason"`
	CreatedOn      *time.Time      `json:"createdon"`
}

type registrationRepositoryImpl struct {
	client *crmapi.Client
}

func NewRegistrationRepository(client *crmapi.Client) timesheet.RegistrationRepository {
	return &registrationRepositoryImpl{client: client}
}

// ListOverlapping implements timesheet.RegistrationRepository.
func (r *registrationRepositoryImpl) ListOverlapping(ctx context.Context, employeeID string, from, to time.Time, status *timesheet.ApprovalStatus) ([]timesheet.RegistrationRow, error) {
	q := crmapi.NewQuery().
		Select("cr_registrationid", "_cr_employee_value", "cr_startdate", "cr_enddate", "cr_type",
			"cr_hours", "cr_approvalstatus", "cr_reason", "createdon").
		Filter(crmapi.EqID("_cr_employee_value", employeeID)).
		Filter("cr_startdate le " + crmapi.Date(to)).
		Filter("cr_enddate ge " + crmapi.Date(from)).
		OrderBy("cr_startdate", false)
	if status != nil {
		q.Filter(fmt.Sprintf("cr_approvalstatus eq %d", approvalCode(*status)))
	}

	raw, err := r.client.List(ctx, registrationSet, q)
	if err != nil {
		return nil, fmt.Errorf("failed to list registrations: %w", err)
	}

	rows := make([]timesheet.RegistrationRow, 0, len(raw))
	for _, item := range raw {
		var row registrationRow
		if err := json.Unmarshal(item, &row); err != nil {
			slog.Warn("Skipping undecodable registration", "employee_id", employeeID, "error", err)
			continue
		}
		rows = append(rows, timesheet.RegistrationRow{
			ID:             row.ID,
			EmployeeID:     row.EmployeeID,
			StartDate:      row.StartDate,
			EndDate:        row.EndDate,
			Type:           registrationTypeFromCode(row.Type),
			Hours:          decodeNumber(row.Hours),
			ApprovalStatus: approvalFromCode(row.ApprovalStatus),
			Reason:         row.Reason,
			CreatedAt:      row.CreatedOn,
		})
	}

	return rows, nil
}

// Create implements timesheet.RegistrationRepository.
func (r *registrationRepositoryImpl) Create(ctx context.Context, row timesheet.RegistrationRow) (timesheet.RegistrationRow, error) {
	body := map[string]any{
		"cr_Employee@odata.bind": fmt.Sprintf("/%s(%s)", employeeSet, row.EmployeeID),
		"cr_startdate":           row.StartDate,
		"cr_enddate":             row.EndDate,
		"cr_type":                registrationTypeCode(row.Type),
		"cr_approvalstatus":      approvalCode(row.ApprovalStatus),
	}
	if row.Hours != nil {
		body["cr_hours"] = *row.Hours
	}
	if row.Reason != nil {
		body["cr_reason"] = *row.Reason
	}

	id, err := r.client.Create(ctx, registrationSet, body)
	if err != nil {
		if crmapi.IsClientError(err) {
			return timesheet.RegistrationRow{}, fmt.Errorf("%w: %w", timesheet.ErrRegistrationRejected, err)
		}
		return timesheet.RegistrationRow{}, fmt.Errorf("failed to create registration: %w", err)
	}

	row.ID = id
	return row, nil
}
