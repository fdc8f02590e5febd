package workflow

import "github.com/medreport/medreport/internal/platform/api"

// SickLeaveForm is the leave sub-form: an inclusive date range and a note.
// The day count is always derived from the dates at the moment it is read,
// so it can never go stale when either date changes.
type SickLeaveForm struct {
	StartDate api.Date
	EndDate   api.Date
	Note      string
}

// Days returns the inclusive day count, counting the same start and end day
// as 1. It is 0 until both dates are set.
func (f *SickLeaveForm) Days() int {
	if f.StartDate.IsZero() || f.EndDate.IsZero() {
		return 0
	}
	return f.StartDate.DaysUntil(f.EndDate)
}

// Complete reports whether both dates have been entered.
func (f *SickLeaveForm) Complete() bool {
	return !f.StartDate.IsZero() && !f.EndDate.IsZero()
}

// Validate rejects missing dates and ranges that end before they start,
// before any network call is made.
func (f *SickLeaveForm) Validate() error {
	if f.StartDate.IsZero() {
		return &ValidationError{Field: "startDate", Message: "start date is required"}
	}
	if f.EndDate.IsZero() {
		return &ValidationError{Field: "endDate", Message: "end date is required"}
	}
	if f.EndDate.Before(f.StartDate) {
		return &ValidationError{Field: "endDate", Message: "end date must not be before start date"}
	}
	return nil
}
