package timesheet

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cmlabs-hris/timesheet-go/internal/domain/timesheet"
	"github.com/cmlabs-hris/timesheet-go/internal/pkg/crm"
	"github.com/cmlabs-hris/timesheet-go/internal/pkg/validator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errPlatformDown = errors.New("platform returned 503")

type fakeAttendanceRepo struct {
	mu        sync.Mutex
	rows      []timesheet.AttendanceRow
	listErr   error
	updateErr error
	// failAfter makes ListByMonth fail once it has been called this many times.
	failAfter int
	calls     int
	updated   map[string]timesheet.TimePatch
}

func (f *fakeAttendanceRepo) ListByMonth(ctx context.Context, employeeID string, window timesheet.MonthWindow) ([]timesheet.AttendanceRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	if f.failAfter > 0 && f.calls > f.failAfter {
		return nil, errPlatformDown
	}
	return append([]timesheet.AttendanceRow(nil), f.rows...), nil
}

func (f *fakeAttendanceRepo) UpdateTimes(ctx context.Context, recordID string, patch timesheet.TimePatch) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return f.updateErr
	}
	if f.updated == nil {
		f.updated = make(map[string]timesheet.TimePatch)
	}
	f.updated[recordID] = patch
	return nil
}

type fakeRegistrationRepo struct {
	rows    []timesheet.RegistrationRow
	listErr error
	created []timesheet.RegistrationRow
	// gotStatus records the approval filter of the last ListOverlapping call.
	gotStatus *timesheet.ApprovalStatus
}

func (f *fakeRegistrationRepo) ListOverlapping(ctx context.Context, employeeID string, from, to time.Time, status *timesheet.ApprovalStatus) ([]timesheet.RegistrationRow, error) {
	f.gotStatus = status
	if f.listErr != nil {
		return nil, f.listErr
	}
	result := make([]timesheet.RegistrationRow, 0, len(f.rows))
	for _, r := range f.rows {
		if status == nil || r.ApprovalStatus == *status {
			result = append(result, r)
		}
	}
	return result, nil
}

func (f *fakeRegistrationRepo) Create(ctx context.Context, row timesheet.RegistrationRow) (timesheet.RegistrationRow, error) {
	row.ID = "reg-new"
	created := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	row.CreatedAt = &created
	f.created = append(f.created, row)
	return row, nil
}

type fakeSnapshotRepo struct {
	snapshots map[string]timesheet.Snapshot
	saveErr   error
}

func snapshotKey(employeeID string, w timesheet.MonthWindow) string {
	return employeeID + "/" + formatDate(w.Start())
}

func (f *fakeSnapshotRepo) Get(ctx context.Context, employeeID string, window timesheet.MonthWindow) (timesheet.Snapshot, error) {
	s, ok := f.snapshots[snapshotKey(employeeID, window)]
	if !ok {
		return timesheet.Snapshot{}, timesheet.ErrSnapshotNotFound
	}
	return s, nil
}

func (f *fakeSnapshotRepo) Save(ctx context.Context, snapshot timesheet.Snapshot) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	if f.snapshots == nil {
		f.snapshots = make(map[string]timesheet.Snapshot)
	}
	f.snapshots[snapshotKey(snapshot.EmployeeID, snapshot.Window)] = snapshot
	return nil
}

func newTestService(att *fakeAttendanceRepo, reg *fakeRegistrationRepo, snap *fakeSnapshotRepo) *TimesheetServiceImpl {
	var snapshots timesheet.SnapshotRepository
	if snap != nil {
		snapshots = snap
	}
	svc := NewTimesheetService(att, reg, snapshots, timesheet.DefaultWorkRules()).(*TimesheetServiceImpl)
	svc.now = func() time.Time { return time.Date(2024, 3, 20, 10, 0, 0, 0, time.UTC) }
	return svc
}

func marchAttendance() []timesheet.AttendanceRow {
	return []timesheet.AttendanceRow{
		attendanceRow("r1", "2024-03-01", "08:00", "17:00", 8),
		attendanceRow("r2", "2024-03-04", "08:00", "", 6),
	}
}

func TestTimesheetService_GetMonth_Success(t *testing.T) {
	ctx := context.Background()
	att := &fakeAttendanceRepo{rows: marchAttendance()}
	pending := approvedRegistration("reg-p", timesheet.RegistrationLeave, "2024-03-06", "2024-03-06")
	pending.ApprovalStatus = timesheet.ApprovalPending
	reg := &fakeRegistrationRepo{rows: []timesheet.RegistrationRow{
		approvedRegistration("reg-1", timesheet.RegistrationLeave, "2024-03-05", "2024-03-05"),
		pending,
	}}
	snap := &fakeSnapshotRepo{}
	svc := newTestService(att, reg, snap)

	// Act
	resp, err := svc.GetMonth(ctx, timesheet.MonthQuery{EmployeeID: "emp-1", Year: 2024, Month: 3})

	// Assert
	require.NoError(t, err)
	assert.False(t, resp.Stale)
	assert.Nil(t, resp.StaleReason)
	assert.Equal(t, "emp-1", resp.EmployeeID)
	require.Len(t, resp.Records, 3)
	assert.Equal(t, []string{"2024-03-01", "2024-03-04", "2024-03-05"},
		[]string{resp.Records[0].Date, resp.Records[1].Date, resp.Records[2].Date})
	assert.Equal(t, 23.5, resp.Summary.StandardDays)
	assert.InDelta(t, 2.75, resp.Summary.ActualDays, 1e-9)
	assert.Equal(t, "2024-03-20T10:00:00Z", resp.CapturedAt)
	require.NotNil(t, reg.gotStatus)
	assert.Equal(t, timesheet.ApprovalApproved, *reg.gotStatus)

	saved, err := snap.Get(ctx, "emp-1", march2024)
	require.NoError(t, err)
	assert.Equal(t, resp.Records, saved.Records)
}

func TestTimesheetService_GetMonth_ValidationError(t *testing.T) {
	svc := newTestService(&fakeAttendanceRepo{}, &fakeRegistrationRepo{}, nil)

	_, err := svc.GetMonth(context.Background(), timesheet.MonthQuery{EmployeeID: "emp-1", Year: 2024, Month: 13})

	var validationErrs validator.ValidationErrors
	require.ErrorAs(t, err, &validationErrs)
	assert.Contains(t, validationErrs.ToMap(), "month")
}

func TestTimesheetService_GetMonth_UpstreamFailureWithoutSnapshot(t *testing.T) {
	att := &fakeAttendanceRepo{rows: marchAttendance()}
	reg := &fakeRegistrationRepo{listErr: errPlatformDown}
	svc := newTestService(att, reg, &fakeSnapshotRepo{})

	resp, err := svc.GetMonth(context.Background(), timesheet.MonthQuery{EmployeeID: "emp-1", Year: 2024, Month: 3})

	require.Error(t, err)
	assert.ErrorIs(t, err, timesheet.ErrUpstreamUnavailable)
	assert.ErrorIs(t, err, errPlatformDown)
	assert.Empty(t, resp.Records)
}

func TestTimesheetService_GetMonth_UpstreamFailureServesLastGood(t *testing.T) {
	ctx := context.Background()
	att := &fakeAttendanceRepo{rows: marchAttendance()}
	reg := &fakeRegistrationRepo{}
	snap := &fakeSnapshotRepo{}
	svc := newTestService(att, reg, snap)

	fresh, err := svc.GetMonth(ctx, timesheet.MonthQuery{EmployeeID: "emp-1", Year: 2024, Month: 3})
	require.NoError(t, err)

	att.listErr = errPlatformDown

	// Act
	stale, err := svc.GetMonth(ctx, timesheet.MonthQuery{EmployeeID: "emp-1", Year: 2024, Month: 3})

	// Assert
	require.NoError(t, err)
	assert.True(t, stale.Stale)
	require.NotNil(t, stale.StaleReason)
	assert.Contains(t, *stale.StaleReason, timesheet.ErrUpstreamUnavailable.Error())
	assert.Contains(t, *stale.StaleReason, errPlatformDown.Error())
	assert.Equal(t, fresh.Records, stale.Records)
	assert.Equal(t, fresh.Summary, stale.Summary)

	// A different month has no snapshot to fall back on.
	_, err = svc.GetMonth(ctx, timesheet.MonthQuery{EmployeeID: "emp-1", Year: 2024, Month: 4})
	assert.ErrorIs(t, err, timesheet.ErrUpstreamUnavailable)
}

func TestStaleReason(t *testing.T) {
	tests := []struct {
		name    string
		cause   error
		want    string
		notWant string
	}{
		{
			name:  "api error keeps status and code",
			cause: fmt.Errorf("failed to fetch attendance rows: %w", &crm.APIError{StatusCode: 503, Code: "ServiceUnavailable", Message: "try later"}),
			want:  "data platform returned HTTP 503 (ServiceUnavailable)",
		},
		{
			name:    "transport error drops the url",
			cause:   &url.Error{Op: "Get", URL: "https://org.crm.example/api/data/v9.2/cr_timekeepings?$filter=x", Err: errors.New("connection refused")},
			want:    "connection refused",
			notWant: "org.crm.example",
		},
		{
			name:  "timeout",
			cause: fmt.Errorf("failed to fetch registrations: %w", context.DeadlineExceeded),
			want:  "data platform request timed out",
		},
		{
			name:  "other errors keep their text",
			cause: errPlatformDown,
			want:  errPlatformDown.Error(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := staleReason(tt.cause)

			assert.True(t, strings.HasPrefix(got, timesheet.ErrUpstreamUnavailable.Error()+": "), got)
			assert.Contains(t, got, tt.want)
			if tt.notWant != "" {
				assert.NotContains(t, got, tt.notWant)
			}
		})
	}
}

func TestTimesheetService_GetMonth_SnapshotSaveFailureIsNotFatal(t *testing.T) {
	att := &fakeAttendanceRepo{rows: marchAttendance()}
	svc := newTestService(att, &fakeRegistrationRepo{}, &fakeSnapshotRepo{saveErr: errors.New("disk full")})

	resp, err := svc.GetMonth(context.Background(), timesheet.MonthQuery{EmployeeID: "emp-1", Year: 2024, Month: 3})

	require.NoError(t, err)
	assert.Len(t, resp.Records, 2)
}

func TestTimesheetService_UpdateTimes_RefetchesMonth(t *testing.T) {
	ctx := context.Background()
	att := &fakeAttendanceRepo{rows: marchAttendance()}
	svc := newTestService(att, &fakeRegistrationRepo{}, &fakeSnapshotRepo{})

	resp, err := svc.UpdateTimes(ctx, timesheet.UpdateTimesRequest{
		RecordID:   "r2",
		EmployeeID: "emp-1",
		Year:       2024,
		Month:      3,
		CheckOut:   strPtr("17:00"),
	})

	require.NoError(t, err)
	assert.False(t, resp.Stale)
	require.Contains(t, att.updated, "r2")
	assert.Equal(t, "17:00", *att.updated["r2"].CheckOut)
	assert.Equal(t, 2, att.calls)
}

func TestTimesheetService_UpdateTimes_RecordOutsideMonth(t *testing.T) {
	att := &fakeAttendanceRepo{rows: marchAttendance()}
	svc := newTestService(att, &fakeRegistrationRepo{}, nil)

	_, err := svc.UpdateTimes(context.Background(), timesheet.UpdateTimesRequest{
		RecordID:   "someone-else",
		EmployeeID: "emp-1",
		Year:       2024,
		Month:      3,
		CheckIn:    strPtr("08:00"),
	})

	assert.ErrorIs(t, err, timesheet.ErrRecordNotInMonth)
	assert.Empty(t, att.updated)
}

func TestTimesheetService_UpdateTimes_RecordNotFound(t *testing.T) {
	att := &fakeAttendanceRepo{rows: marchAttendance(), updateErr: timesheet.ErrRecordNotFound}
	svc := newTestService(att, &fakeRegistrationRepo{}, nil)

	_, err := svc.UpdateTimes(context.Background(), timesheet.UpdateTimesRequest{
		RecordID:   "r1",
		EmployeeID: "emp-1",
		Year:       2024,
		Month:      3,
		Note:       strPtr("fixed"),
	})

	assert.ErrorIs(t, err, timesheet.ErrRecordNotFound)
	assert.NotErrorIs(t, err, timesheet.ErrUpstreamUnavailable)
}

func TestTimesheetService_UpdateTimes_RefetchFailurePatchesSnapshot(t *testing.T) {
	ctx := context.Background()
	att := &fakeAttendanceRepo{rows: marchAttendance()}
	snap := &fakeSnapshotRepo{}
	svc := newTestService(att, &fakeRegistrationRepo{}, snap)

	_, err := svc.GetMonth(ctx, timesheet.MonthQuery{EmployeeID: "emp-1", Year: 2024, Month: 3})
	require.NoError(t, err)

	// Ownership check succeeds, the refetch after the write does not.
	att.failAfter = 2

	resp, err := svc.UpdateTimes(ctx, timesheet.UpdateTimesRequest{
		RecordID:    "r2",
		EmployeeID:  "emp-1",
		Year:        2024,
		Month:       3,
		CheckOut:    strPtr("17:00"),
		HoursWorked: floatPtr(8),
	})

	require.NoError(t, err)
	assert.True(t, resp.Stale)
	require.Len(t, resp.Records, 2)
	assert.Equal(t, timesheet.StatusNormal, resp.Records[1].Status)
	assert.Equal(t, 1.0, resp.Records[1].WorkValue)
	assert.InDelta(t, 2.0, resp.Summary.ActualDays, 1e-9)
}

func TestTimesheetService_ListRegistrations(t *testing.T) {
	pending := approvedRegistration("reg-2", timesheet.RegistrationOvertime, "2024-03-01", "2024-03-01")
	pending.ApprovalStatus = timesheet.ApprovalPending
	reg := &fakeRegistrationRepo{rows: []timesheet.RegistrationRow{
		approvedRegistration("reg-1", timesheet.RegistrationLeave, "2024-03-10", "2024-03-11"),
		pending,
	}}
	svc := newTestService(&fakeAttendanceRepo{}, reg, nil)

	resp, err := svc.ListRegistrations(context.Background(), timesheet.RegistrationFilter{
		EmployeeID: "emp-1",
		StartDate:  "2024-03-01",
		EndDate:    "2024-03-31",
	})

	require.NoError(t, err)
	assert.Nil(t, reg.gotStatus)
	assert.Equal(t, 2, resp.TotalCount)
	assert.Equal(t, "reg-2", resp.Registrations[0].ID)
	assert.Equal(t, "pending", resp.Registrations[0].ApprovalStatus)
	assert.Equal(t, "overtime", resp.Registrations[0].Type)
	assert.Equal(t, "reg-1", resp.Registrations[1].ID)
}

func TestTimesheetService_CreateRegistration(t *testing.T) {
	reg := &fakeRegistrationRepo{}
	svc := newTestService(&fakeAttendanceRepo{}, reg, nil)

	resp, err := svc.CreateRegistration(context.Background(), timesheet.CreateRegistrationRequest{
		EmployeeID: "emp-1",
		Type:       "work_from_home",
		StartDate:  "2024-03-11",
		EndDate:    "2024-03-12",
		Reason:     "internet install",
	})

	require.NoError(t, err)
	assert.Equal(t, "reg-new", resp.ID)
	assert.Equal(t, "pending", resp.ApprovalStatus)
	require.NotNil(t, resp.CreatedAt)
	require.Len(t, reg.created, 1)
	assert.Equal(t, timesheet.RegistrationWorkFromHome, reg.created[0].Type)
	assert.Equal(t, timesheet.ApprovalPending, reg.created[0].ApprovalStatus)
}

func TestTimesheetService_CreateRegistration_Invalid(t *testing.T) {
	reg := &fakeRegistrationRepo{}
	svc := newTestService(&fakeAttendanceRepo{}, reg, nil)

	_, err := svc.CreateRegistration(context.Background(), timesheet.CreateRegistrationRequest{
		EmployeeID: "emp-1",
		Type:       "sabbatical",
		StartDate:  "2024-03-12",
		EndDate:    "2024-03-11",
	})

	var validationErrs validator.ValidationErrors
	require.ErrorAs(t, err, &validationErrs)
	fields := validationErrs.ToMap()
	assert.Contains(t, fields, "type")
	assert.Contains(t, fields, "end_date")
	assert.Contains(t, fields, "reason")
	assert.Empty(t, reg.created)
}

func TestTimesheetService_RegistrationTypes(t *testing.T) {
	svc := newTestService(&fakeAttendanceRepo{}, &fakeRegistrationRepo{}, nil)

	types := svc.RegistrationTypes()

	require.Len(t, types, len(timesheet.RegistrationTypes))
	assert.Equal(t, "leave", types[0].Code)
	assert.Equal(t, timesheet.StatusLeave, types[0].Status)
	for _, rt := range types {
		assert.NotEmpty(t, rt.Name)
	}
}
