package timesheet

import (
	"time"

	"github.com/cmlabs-hris/timesheet-go/internal/domain/timesheet"
	"github.com/shopspring/decimal"
)

// Contribution is what one approved registration adds to one calendar day.
type Contribution struct {
	Date         string
	Status       timesheet.Status
	HoursWorked  float64
	WorkValue    float64
	Reason       string
	Registration timesheet.RegistrationSummary
}

type typeProfile struct {
	status       timesheet.Status
	defaultHours float64
	workValue    float64
}

func profileFor(t timesheet.RegistrationType, rules timesheet.WorkRules) (typeProfile, bool) {
	switch t {
	case timesheet.RegistrationLeave:
		return typeProfile{status: timesheet.StatusLeave, defaultHours: 0, workValue: 1}, true
	case timesheet.RegistrationWorkFromHome:
		return typeProfile{status: timesheet.StatusNormal, defaultHours: rules.RegistrationDayHours, workValue: 1}, true
	case timesheet.RegistrationBusinessTrip:
		return typeProfile{status: timesheet.StatusNormal, defaultHours: rules.RegistrationDayHours, workValue: 1}, true
	case timesheet.RegistrationUnpaidLeave:
		return typeProfile{status: timesheet.StatusOff, defaultHours: 0, workValue: 0}, true
	case timesheet.RegistrationLateEarly:
		return typeProfile{status: timesheet.StatusLate, defaultHours: rules.RegistrationDayHours, workValue: 1}, true
	case timesheet.RegistrationOvertime:
		return typeProfile{status: timesheet.StatusNormal, defaultHours: rules.RegistrationDayHours, workValue: 1}, true
	}
	return typeProfile{}, false
}

// ProjectRegistration expands an approved registration into one contribution per day of its
// range that falls inside window. Pending and rejected registrations, unknown types and
// unreadable or inverted ranges project nothing.
func ProjectRegistration(row timesheet.RegistrationRow, window timesheet.MonthWindow, rules timesheet.WorkRules) []Contribution {
	if row.ApprovalStatus != timesheet.ApprovalApproved {
		return nil
	}

	profile, ok := profileFor(row.Type, rules)
	if !ok {
		return nil
	}

	start, okStart := ParseLocalDate(row.StartDate)
	end, okEnd := ParseLocalDate(row.EndDate)
	if !okStart || !okEnd || end.Before(start) {
		return nil
	}

	from := later(start, window.Start())
	to := earlier(end, window.End())
	if to.Before(from) {
		return nil
	}

	hours := profile.defaultHours
	workValue := profile.workValue
	if row.Hours != nil && *row.Hours > 0 {
		hours = *row.Hours
		if hours < rules.RegistrationDayHours && row.Type != timesheet.RegistrationOvertime {
			workValue = decimal.NewFromFloat(hours).
				Div(decimal.NewFromFloat(rules.RegistrationDayHours)).
				InexactFloat64()
		}
	}

	summary := timesheet.RegistrationSummary{
		ID:       row.ID,
		Type:     row.Type.Code(),
		TypeName: row.Type.Name(),
		Hours:    hours,
		Status:   string(row.ApprovalStatus),
	}

	contributions := make([]Contribution, 0, int(to.Sub(from).Hours()/24)+1)
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		c := Contribution{
			Date:         formatDate(d),
			Status:       profile.status,
			HoursWorked:  hours,
			WorkValue:    workValue,
			Reason:       deref(row.Reason),
			Registration: summary,
		}
		// A day never earns more than its standard credit: half on Saturday, none on Sunday.
		c.WorkValue = min(c.WorkValue, DayCredit(d))
		if d.Weekday() == time.Sunday && c.Status == timesheet.StatusLate {
			c.Status = timesheet.StatusNormal
		}
		contributions = append(contributions, c)
	}

	return contributions
}
