package response

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/cmlabs-hris/timesheet-go/internal/domain/master/warehouse"
	"github.com/cmlabs-hris/timesheet-go/internal/domain/timesheet"
	"github.com/cmlabs-hris/timesheet-go/internal/pkg/jwt"
	"github.com/cmlabs-hris/timesheet-go/internal/pkg/validator"
)

// HandleError maps domain errors to HTTP responses
func HandleError(w http.ResponseWriter, err error) {
	// Check if it's a validation error
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		ValidationError(w, validationErrs.ToMap())
		return
	}

	switch {
	// Auth errors
	case errors.Is(err, jwt.ErrInvalidToken):
		Unauthorized(w, err.Error())
	case errors.Is(err, jwt.ErrEmployeeIDMissing):
		Forbidden(w, "Employee ID not found in token")

	// Timesheet domain errors
	case errors.Is(err, timesheet.ErrUpstreamUnavailable):
		BadGateway(w, err.Error())
	case errors.Is(err, timesheet.ErrRecordNotFound):
		NotFound(w, "Attendance record not found")
	case errors.Is(err, timesheet.ErrRecordNotInMonth):
		Forbidden(w, err.Error())
	case errors.Is(err, timesheet.ErrEmployeeNotAllowed):
		Forbidden(w, err.Error())
	case errors.Is(err, timesheet.ErrRegistrationRejected):
		Conflict(w, err.Error())

	// Master data errors
	case errors.Is(err, warehouse.ErrWarehouseSourceUnavailable):
		BadGateway(w, "Warehouse list is temporarily unavailable")

	// Default
	default:
		slog.Error("unhandled error", "error", err)
		InternalServerError(w, "An unexpected error occurred")
	}
}
