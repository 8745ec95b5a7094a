package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cmlabs-hris/timesheet-go/internal/domain/timesheet"
	"github.com/cmlabs-hris/timesheet-go/internal/handler/http/response"
	"github.com/cmlabs-hris/timesheet-go/internal/pkg/jwt"
	"github.com/cmlabs-hris/timesheet-go/internal/pkg/validator"
	"github.com/go-chi/chi/v5"
)

type TimesheetHandler interface {
	GetMonth(w http.ResponseWriter, r *http.Request)
	UpdateTimes(w http.ResponseWriter, r *http.Request)

	ListRegistrations(w http.ResponseWriter, r *http.Request)
	CreateRegistration(w http.ResponseWriter, r *http.Request)
	ListRegistrationTypes(w http.ResponseWriter, r *http.Request)
}

type TimesheetHandlerImpl struct {
	timesheetService timesheet.TimesheetService
	now              func() time.Time
}

func NewTimesheetHandler(timesheetService timesheet.TimesheetService) TimesheetHandler {
	return &TimesheetHandlerImpl{
		timesheetService: timesheetService,
		now:              time.Now,
	}
}

// GetMonth implements TimesheetHandler. Year and month default to the current month.
func (h *TimesheetHandlerImpl) GetMonth(w http.ResponseWriter, r *http.Request) {
	employeeID, err := resolveEmployeeID(r)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	now := h.now()
	var errs validator.ValidationErrors
	year := queryInt(r, "year", now.Year(), &errs)
	month := queryInt(r, "month", int(now.Month()), &errs)
	if len(errs) > 0 {
		response.HandleError(w, errs)
		return
	}

	result, err := h.timesheetService.GetMonth(r.Context(), timesheet.MonthQuery{
		EmployeeID: employeeID,
		Year:       year,
		Month:      month,
	})
	if err != nil {
		response.HandleError(w, err)
		return
	}

	writeMonth(w, result, "")
}

// UpdateTimes implements TimesheetHandler.
func (h *TimesheetHandlerImpl) UpdateTimes(w http.ResponseWriter, r *http.Request) {
	var req timesheet.UpdateTimesRequest

	employeeID, err := resolveEmployeeID(r)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Error("Failed to decode update times request", "error", err)
		response.BadRequest(w, "Invalid request format", nil)
		return
	}

	req.RecordID = chi.URLParam(r, "id")
	req.EmployeeID = employeeID

	result, err := h.timesheetService.UpdateTimes(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	writeMonth(w, result, "Attendance times updated")
}

// ListRegistrations implements TimesheetHandler.
func (h *TimesheetHandlerImpl) ListRegistrations(w http.ResponseWriter, r *http.Request) {
	employeeID, err := resolveEmployeeID(r)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	query := r.URL.Query()
	filter := timesheet.RegistrationFilter{
		EmployeeID: employeeID,
		StartDate:  query.Get("start_date"),
		EndDate:    query.Get("end_date"),
	}
	if status := query.Get("status"); status != "" {
		s := timesheet.ApprovalStatus(strings.ToLower(status))
		filter.Status = &s
	}

	result, err := h.timesheetService.ListRegistrations(r.Context(), filter)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

// CreateRegistration implements TimesheetHandler. Registrations are always
// submitted for the caller's own employee record.
func (h *TimesheetHandlerImpl) CreateRegistration(w http.ResponseWriter, r *http.Request) {
	var req timesheet.CreateRegistrationRequest

	claims, err := jwt.ClaimsFromContext(r.Context())
	if err != nil {
		response.HandleError(w, err)
		return
	}
	if claims.EmployeeID == "" {
		response.HandleError(w, jwt.ErrEmployeeIDMissing)
		return
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Error("Failed to decode registration request", "error", err)
		response.BadRequest(w, "Invalid request format", nil)
		return
	}

	req.EmployeeID = claims.EmployeeID

	result, err := h.timesheetService.CreateRegistration(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Registration submitted", result)
}

// ListRegistrationTypes implements TimesheetHandler.
func (h *TimesheetHandlerImpl) ListRegistrationTypes(w http.ResponseWriter, r *http.Request) {
	response.Success(w, h.timesheetService.RegistrationTypes())
}

// resolveEmployeeID returns the employee the request acts on. The employee_id
// query parameter is honoured only for roles that may view other employees.
func resolveEmployeeID(r *http.Request) (string, error) {
	claims, err := jwt.ClaimsFromContext(r.Context())
	if err != nil {
		return "", err
	}

	requested := strings.TrimSpace(r.URL.Query().Get("employee_id"))
	if requested != "" && requested != claims.EmployeeID {
		if !claims.CanActForOthers() {
			return "", timesheet.ErrEmployeeNotAllowed
		}
		return requested, nil
	}

	if claims.EmployeeID == "" {
		return "", jwt.ErrEmployeeIDMissing
	}
	return claims.EmployeeID, nil
}

func queryInt(r *http.Request, key string, fallback int, errs *validator.ValidationErrors) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		*errs = append(*errs, validator.ValidationError{
			Field:   key,
			Message: key + " must be an integer",
		})
		return 0
	}
	return v
}

func writeMonth(w http.ResponseWriter, result timesheet.MonthResponse, message string) {
	if result.Stale {
		w.Header().Set("Warning", `110 - "Response is Stale"`)
		response.SuccessWithMessage(w, "Showing the last successful sync; the data platform is unavailable", result)
		return
	}
	if message != "" {
		response.SuccessWithMessage(w, message, result)
		return
	}
	response.Success(w, result)
}
