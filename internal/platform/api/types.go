package api

import (
	"fmt"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// Date is a calendar date exchanged with the backend as "YYYY-MM-DD".
type Date struct {
	t time.Time
}

// NewDate builds a Date from its parts.
func NewDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses "YYYY-MM-DD".
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: want YYYY-MM-DD", s)
	}
	return Date{t: t}, nil
}

// IsZero reports whether the date is unset.
func (d Date) IsZero() bool { return d.t.IsZero() }

// Before reports whether d falls before other.
func (d Date) Before(other Date) bool { return d.t.Before(other.t) }

// DaysUntil returns the inclusive day count from d through end: the same day
// counts as 1. Zero or negative when end precedes d.
func (d Date) DaysUntil(end Date) int {
	return int(end.t.Sub(d.t).Hours()/24) + 1
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.t.Format(dateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Examination mirrors the backend's examination record.
type Examination struct {
	ID              int64   `json:"id"`
	ExaminationDate Date    `json:"examinationDate"`
	Treatment       string  `json:"treatment"`
	DoctorID        int64   `json:"doctorId"`
	PatientID       int64   `json:"patientId"`
	DiagnosisIDs    []int64 `json:"diagnosisIds"`
	SickLeaveID     *int64  `json:"sickLeaveId,omitempty"`
}

// SickLeave is a leave certificate owned by exactly one examination.
type SickLeave struct {
	ID            int64  `json:"id"`
	StartDate     Date   `json:"startDate"`
	EndDate       Date   `json:"endDate"`
	Days          int    `json:"days"`
	Note          string `json:"note"`
	ExaminationID int64  `json:"examinationId"`
}

// Diagnosis is read-only reference data.
type Diagnosis struct {
	ID          int64  `json:"id"`
	Diagnosis   string `json:"diagnosis"`
	Description string `json:"description"`
}

// Patient is the subset of patient detail the workflow displays.
type Patient struct {
	ID        int64  `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	EGN       string `json:"egn"`
}

// Doctor is the subset of doctor detail the workflow displays.
type Doctor struct {
	ID        int64  `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
}

// CreateExaminationRequest is the creation payload.
type CreateExaminationRequest struct {
	ExaminationDate Date    `json:"examinationDate"`
	Treatment       string  `json:"treatment"`
	DiagnosisIDs    []int64 `json:"diagnosisIds"`
}

// UpdateExaminationRequest carries the full examination fields. The sick
// leave is referenced by id, never nested.
type UpdateExaminationRequest struct {
	ExaminationDate Date    `json:"examinationDate"`
	Treatment       string  `json:"treatment"`
	DoctorID        int64   `json:"doctorId"`
	PatientID       int64   `json:"patientId"`
	DiagnosisIDs    []int64 `json:"diagnosisIds"`
	SickLeaveID     *int64  `json:"sickLeaveId"`
}

// CreateSickLeaveRequest issues a leave for an examination. The day count is
// derived server-side on creation.
type CreateSickLeaveRequest struct {
	StartDate Date   `json:"startDate"`
	EndDate   Date   `json:"endDate"`
	Note      string `json:"note"`
}

// UpdateSickLeaveRequest edits an existing leave, day count included.
type UpdateSickLeaveRequest struct {
	StartDate Date   `json:"startDate"`
	EndDate   Date   `json:"endDate"`
	Days      int    `json:"days"`
	Note      string `json:"note"`
}
