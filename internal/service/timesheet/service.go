package timesheet

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sort"
	"time"

	"github.com/cmlabs-hris/timesheet-go/internal/domain/timesheet"
	"github.com/cmlabs-hris/timesheet-go/internal/pkg/crm"
	"github.com/cmlabs-hris/timesheet-go/internal/pkg/metrics"
	"golang.org/x/sync/errgroup"
)

type TimesheetServiceImpl struct {
	attendanceRepo   timesheet.AttendanceRepository
	registrationRepo timesheet.RegistrationRepository
	snapshotRepo     timesheet.SnapshotRepository
	rules            timesheet.WorkRules
	now              func() time.Time
}

// NewTimesheetService wires the month engine to its data sources. snapshotRepo may be nil, in
// which case upstream failures are reported without a fallback.
func NewTimesheetService(
	attendanceRepo timesheet.AttendanceRepository,
	registrationRepo timesheet.RegistrationRepository,
	snapshotRepo timesheet.SnapshotRepository,
	rules timesheet.WorkRules,
) timesheet.TimesheetService {
	return &TimesheetServiceImpl{
		attendanceRepo:   attendanceRepo,
		registrationRepo: registrationRepo,
		snapshotRepo:     snapshotRepo,
		rules:            rules,
		now:              time.Now,
	}
}

// GetMonth implements timesheet.TimesheetService.
func (s *TimesheetServiceImpl) GetMonth(ctx context.Context, query timesheet.MonthQuery) (timesheet.MonthResponse, error) {
	if err := query.Validate(); err != nil {
		return timesheet.MonthResponse{}, err
	}
	window := query.Window()

	snapshot, err := s.compute(ctx, query.EmployeeID, window)
	if err != nil {
		return s.fallback(ctx, query.EmployeeID, window, err)
	}

	return toMonthResponse(snapshot, nil), nil
}

// UpdateTimes implements timesheet.TimesheetService.
func (s *TimesheetServiceImpl) UpdateTimes(ctx context.Context, req timesheet.UpdateTimesRequest) (timesheet.MonthResponse, error) {
	if err := req.Validate(); err != nil {
		return timesheet.MonthResponse{}, err
	}
	window := timesheet.MonthWindow{Year: req.Year, Month: req.Month}

	// The row must belong to the caller's month before anything is written.
	rows, err := s.attendanceRepo.ListByMonth(ctx, req.EmployeeID, window)
	if err != nil {
		return timesheet.MonthResponse{}, fmt.Errorf("%w: %w", timesheet.ErrUpstreamUnavailable, err)
	}
	if !containsRow(rows, req.RecordID) {
		return timesheet.MonthResponse{}, timesheet.ErrRecordNotInMonth
	}

	if err := s.attendanceRepo.UpdateTimes(ctx, req.RecordID, req.Patch()); err != nil {
		if errors.Is(err, timesheet.ErrRecordNotFound) {
			return timesheet.MonthResponse{}, err
		}
		return timesheet.MonthResponse{}, fmt.Errorf("%w: %w", timesheet.ErrUpstreamUnavailable, err)
	}

	slog.Info("Attendance times updated", "record_id", req.RecordID, "employee_id", req.EmployeeID)

	snapshot, err := s.compute(ctx, req.EmployeeID, window)
	if err == nil {
		return toMonthResponse(snapshot, nil), nil
	}

	// The write went through but the refetch did not: serve the last snapshot with the edit applied.
	slog.Warn("Refetch after time edit failed", "record_id", req.RecordID, "error", err)
	previous, ok := s.lastGood(ctx, req.EmployeeID, window)
	if !ok {
		return timesheet.MonthResponse{}, fmt.Errorf("%w: %w", timesheet.ErrUpstreamUnavailable, err)
	}
	if patched, found := PatchRecord(previous.Records, req.RecordID, req.Patch(), s.rules); found {
		previous.Records = patched
		previous.Summary = Summarize(patched, window, s.rules)
	}
	metrics.RecordStaleResponse()
	return toMonthResponse(previous, err), nil
}

// ListRegistrations implements timesheet.TimesheetService.
func (s *TimesheetServiceImpl) ListRegistrations(ctx context.Context, filter timesheet.RegistrationFilter) (timesheet.ListRegistrationResponse, error) {
	if err := filter.Validate(); err != nil {
		return timesheet.ListRegistrationResponse{}, err
	}

	from, _ := ParseLocalDate(filter.StartDate)
	to, _ := ParseLocalDate(filter.EndDate)

	rows, err := s.registrationRepo.ListOverlapping(ctx, filter.EmployeeID, from, to, filter.Status)
	if err != nil {
		return timesheet.ListRegistrationResponse{}, fmt.Errorf("%w: %w", timesheet.ErrUpstreamUnavailable, err)
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].StartDate < rows[j].StartDate
	})

	registrations := make([]timesheet.RegistrationResponse, 0, len(rows))
	for _, row := range rows {
		registrations = append(registrations, mapRegistrationToResponse(row))
	}

	return timesheet.ListRegistrationResponse{
		TotalCount:    len(registrations),
		Registrations: registrations,
	}, nil
}

// CreateRegistration implements timesheet.TimesheetService.
func (s *TimesheetServiceImpl) CreateRegistration(ctx context.Context, req timesheet.CreateRegistrationRequest) (timesheet.RegistrationResponse, error) {
	if err := req.Validate(); err != nil {
		return timesheet.RegistrationResponse{}, err
	}

	registrationType, _ := timesheet.ParseRegistrationType(req.Type)
	reason := req.Reason

	created, err := s.registrationRepo.Create(ctx, timesheet.RegistrationRow{
		EmployeeID:     req.EmployeeID,
		StartDate:      req.StartDate,
		EndDate:        req.EndDate,
		Type:           registrationType,
		Hours:          req.Hours,
		ApprovalStatus: timesheet.ApprovalPending,
		Reason:         &reason,
	})
	if err != nil {
		if errors.Is(err, timesheet.ErrRegistrationRejected) {
			return timesheet.RegistrationResponse{}, err
		}
		return timesheet.RegistrationResponse{}, fmt.Errorf("%w: %w", timesheet.ErrUpstreamUnavailable, err)
	}

	slog.Info("Registration submitted", "registration_id", created.ID, "employee_id", req.EmployeeID, "type", req.Type)

	return mapRegistrationToResponse(created), nil
}

// RegistrationTypes implements timesheet.TimesheetService.
func (s *TimesheetServiceImpl) RegistrationTypes() []timesheet.RegistrationTypeResponse {
	types := make([]timesheet.RegistrationTypeResponse, 0, len(timesheet.RegistrationTypes))
	for _, t := range timesheet.RegistrationTypes {
		profile, ok := profileFor(t, s.rules)
		if !ok {
			continue
		}
		types = append(types, timesheet.RegistrationTypeResponse{
			Code:         t.Code(),
			Name:         t.Name(),
			Status:       profile.status,
			DefaultHours: profile.defaultHours,
			WorkValue:    profile.workValue,
		})
	}
	return types
}

// compute fetches both sources concurrently and only merges when both succeeded.
func (s *TimesheetServiceImpl) compute(ctx context.Context, employeeID string, window timesheet.MonthWindow) (timesheet.Snapshot, error) {
	var (
		rows          []timesheet.AttendanceRow
		registrations []timesheet.RegistrationRow
	)
	approved := timesheet.ApprovalApproved

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		data, err := s.attendanceRepo.ListByMonth(gCtx, employeeID, window)
		if err != nil {
			metrics.RecordUpstreamFailure("attendance")
			return fmt.Errorf("failed to fetch attendance rows: %w", err)
		}
		rows = data
		return nil
	})

	g.Go(func() error {
		data, err := s.registrationRepo.ListOverlapping(gCtx, employeeID, window.Start(), window.End(), &approved)
		if err != nil {
			metrics.RecordUpstreamFailure("registration")
			return fmt.Errorf("failed to fetch registrations: %w", err)
		}
		registrations = data
		return nil
	})

	if err := g.Wait(); err != nil {
		return timesheet.Snapshot{}, err
	}

	records := SortedRecords(MergeMonth(rows, registrations, window, s.rules))
	snapshot := timesheet.Snapshot{
		EmployeeID: employeeID,
		Window:     window,
		Records:    records,
		Summary:    Summarize(records, window, s.rules),
		CapturedAt: s.now().UTC(),
	}

	if s.snapshotRepo != nil {
		if err := s.snapshotRepo.Save(ctx, snapshot); err != nil {
			slog.Warn("Failed to save timesheet snapshot", "employee_id", employeeID, "year", window.Year, "month", window.Month, "error", err)
		}
	}

	return snapshot, nil
}

func (s *TimesheetServiceImpl) fallback(ctx context.Context, employeeID string, window timesheet.MonthWindow, cause error) (timesheet.MonthResponse, error) {
	slog.Error("Timesheet upstream fetch failed", "employee_id", employeeID, "year", window.Year, "month", window.Month, "error", cause)

	previous, ok := s.lastGood(ctx, employeeID, window)
	if !ok {
		return timesheet.MonthResponse{}, fmt.Errorf("%w: %w", timesheet.ErrUpstreamUnavailable, cause)
	}

	metrics.RecordStaleResponse()
	return toMonthResponse(previous, cause), nil
}

func (s *TimesheetServiceImpl) lastGood(ctx context.Context, employeeID string, window timesheet.MonthWindow) (timesheet.Snapshot, bool) {
	if s.snapshotRepo == nil {
		return timesheet.Snapshot{}, false
	}

	snapshot, err := s.snapshotRepo.Get(ctx, employeeID, window)
	if err != nil {
		if !errors.Is(err, timesheet.ErrSnapshotNotFound) {
			slog.Warn("Failed to load timesheet snapshot", "employee_id", employeeID, "error", err)
		}
		return timesheet.Snapshot{}, false
	}
	return snapshot, true
}

// toMonthResponse marks the response stale when staleCause is non-nil.
func toMonthResponse(snapshot timesheet.Snapshot, staleCause error) timesheet.MonthResponse {
	records := snapshot.Records
	if records == nil {
		records = []timesheet.DayRecord{}
	}
	summary := snapshot.Summary
	if summary.InsufficientDays == nil {
		summary.InsufficientDays = []timesheet.DayRecord{}
	}

	resp := timesheet.MonthResponse{
		EmployeeID: snapshot.EmployeeID,
		Year:       snapshot.Window.Year,
		Month:      snapshot.Window.Month,
		Records:    records,
		Summary:    summary,
		Stale:      staleCause != nil,
		CapturedAt: snapshot.CapturedAt.Format(time.RFC3339),
	}
	if staleCause != nil {
		reason := staleReason(staleCause)
		resp.StaleReason = &reason
	}
	return resp
}

// staleReason describes an upstream failure without leaking request URLs.
func staleReason(cause error) string {
	detail := cause.Error()

	var apiErr *crm.APIError
	var urlErr *url.Error
	switch {
	case errors.As(cause, &apiErr):
		detail = fmt.Sprintf("data platform returned HTTP %d", apiErr.StatusCode)
		if apiErr.Code != "" {
			detail += " (" + apiErr.Code + ")"
		}
	case errors.Is(cause, context.DeadlineExceeded):
		detail = "data platform request timed out"
	case errors.As(cause, &urlErr):
		detail = urlErr.Err.Error()
	}

	return timesheet.ErrUpstreamUnavailable.Error() + ": " + detail
}

func mapRegistrationToResponse(row timesheet.RegistrationRow) timesheet.RegistrationResponse {
	resp := timesheet.RegistrationResponse{
		ID:             row.ID,
		Type:           row.Type.Code(),
		TypeName:       row.Type.Name(),
		StartDate:      row.StartDate,
		EndDate:        row.EndDate,
		Hours:          row.Hours,
		ApprovalStatus: string(row.ApprovalStatus),
		Reason:         row.Reason,
	}
	if row.CreatedAt != nil {
		created := row.CreatedAt.Format(time.RFC3339)
		resp.CreatedAt = &created
	}
	return resp
}

func containsRow(rows []timesheet.AttendanceRow, recordID string) bool {
	for _, r := range rows {
		if r.RowID == recordID {
			return true
		}
	}
	return false
}
