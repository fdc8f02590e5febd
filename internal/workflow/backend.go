package workflow

import (
	"context"

	"github.com/medreport/medreport/internal/platform/api"
	"github.com/medreport/medreport/internal/session"
)

// Backend is the slice of the REST API the workflow drives. The api.Client
// implements it; tests substitute fakes.
type Backend interface {
	CreateExamination(ctx context.Context, doctorID, patientID int64, req api.CreateExaminationRequest) (*api.Examination, error)
	GetExamination(ctx context.Context, id int64) (*api.Examination, error)
	UpdateExamination(ctx context.Context, id int64, req api.UpdateExaminationRequest) (*api.Examination, error)

	CreateSickLeave(ctx context.Context, examinationID int64, req api.CreateSickLeaveRequest) (*api.SickLeave, error)
	GetSickLeave(ctx context.Context, id int64) (*api.SickLeave, error)
	UpdateSickLeave(ctx context.Context, id int64, req api.UpdateSickLeaveRequest) (*api.SickLeave, error)
	DeleteSickLeave(ctx context.Context, id int64) error

	GetDiagnosis(ctx context.Context, id int64) (*api.Diagnosis, error)
	ListDiagnoses(ctx context.Context) ([]api.Diagnosis, error)
	GetPatient(ctx context.Context, id int64) (*api.Patient, error)
	GetDoctor(ctx context.Context, id int64) (*api.Doctor, error)
}

// Identity supplies the acting user. The session manager implements it.
type Identity interface {
	Current() *session.Session
}
