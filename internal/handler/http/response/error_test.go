package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cmlabs-hris/timesheet-go/internal/domain/master/warehouse"
	"github.com/cmlabs-hris/timesheet-go/internal/domain/timesheet"
	"github.com/cmlabs-hris/timesheet-go/internal/pkg/jwt"
	"github.com/cmlabs-hris/timesheet-go/internal/pkg/validator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleError_StatusMapping(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantErr  string
	}{
		{"validation", validator.ValidationErrors{{Field: "month", Message: "bad"}}, http.StatusUnprocessableEntity, "VALIDATION_ERROR"},
		{"upstream wrapped", fmt.Errorf("%w: %w", timesheet.ErrUpstreamUnavailable, errors.New("503")), http.StatusBadGateway, "UPSTREAM_UNAVAILABLE"},
		{"warehouse source", fmt.Errorf("%w: timeout", warehouse.ErrWarehouseSourceUnavailable), http.StatusBadGateway, "UPSTREAM_UNAVAILABLE"},
		{"record not found", timesheet.ErrRecordNotFound, http.StatusNotFound, "NOT_FOUND"},
		{"record not in month", timesheet.ErrRecordNotInMonth, http.StatusForbidden, "FORBIDDEN"},
		{"employee not allowed", timesheet.ErrEmployeeNotAllowed, http.StatusForbidden, "FORBIDDEN"},
		{"registration rejected", timesheet.ErrRegistrationRejected, http.StatusConflict, "CONFLICT"},
		{"invalid token", jwt.ErrInvalidToken, http.StatusUnauthorized, "UNAUTHORIZED"},
		{"missing employee claim", jwt.ErrEmployeeIDMissing, http.StatusForbidden, "FORBIDDEN"},
		{"unknown", errors.New("kaboom"), http.StatusInternalServerError, "INTERNAL_SERVER_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()

			HandleError(rec, tt.err)

			assert.Equal(t, tt.wantCode, rec.Code)
			var body Response
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.False(t, body.Success)
			require.NotNil(t, body.Error)
			assert.Equal(t, tt.wantErr, body.Error.Code)
		})
	}
}

func TestHandleError_ValidationDetails(t *testing.T) {
	rec := httptest.NewRecorder()

	HandleError(rec, validator.ValidationErrors{{Field: "year", Message: "year must be between 2000 and 2100"}})

	var body Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "year must be between 2000 and 2100", body.Error.Details["year"])
}
