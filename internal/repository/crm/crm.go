package crm

import (
	"encoding/json"
	"strings"

	"github.com/cmlabs-hris/timesheet-go/internal/domain/timesheet"
	"github.com/shopspring/decimal"
)

// Entity sets on the data platform.
const (
	timekeepingSet       = "cr_timekeepings"
	registrationSet      = "cr_registrations"
	warehouseLocationSet = "cr_warehouselocations"
	employeeSet          = "cr_employees"
)

// Option set values are offset by the publisher prefix.
const optionBase = 100000000

const (
	approvalPendingCode  = optionBase
	approvalApprovedCode = optionBase + 1
	approvalRejectedCode = optionBase + 2
)

func registrationTypeFromCode(code int) timesheet.RegistrationType {
	t := timesheet.RegistrationType(code - optionBase + 1)
	if !t.Valid() {
		return 0
	}
	return t
}

func registrationTypeCode(t timesheet.RegistrationType) int {
	return optionBase + int(t) - 1
}

func approvalFromCode(code int) timesheet.ApprovalStatus {
	switch code {
	case approvalApprovedCode:
		return timesheet.ApprovalApproved
	case approvalRejectedCode:
		return timesheet.ApprovalRejected
	default:
		return timesheet.ApprovalPending
	}
}

func approvalCode(s timesheet.ApprovalStatus) int {
	switch s {
	case timesheet.ApprovalApproved:
		return approvalApprovedCode
	case timesheet.ApprovalRejected:
		return approvalRejectedCode
	default:
		return approvalPendingCode
	}
}

// decodeNumber accepts a JSON number or a numeric string. Anything else, null included,
// is reported as absent so one bad column does not fail the whole row.
func decodeNumber(raw json.RawMessage) *float64 {
	if len(raw) == 0 {
		return nil
	}

	var d decimal.NullDecimal
	if err := json.Unmarshal(raw, &d); err != nil || !d.Valid {
		return nil
	}

	f := d.Decimal.InexactFloat64()
	return &f
}

// optionalString trims s and treats an empty result as absent.
func optionalString(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
