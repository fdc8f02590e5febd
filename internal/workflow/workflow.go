// Package workflow drives a medical examination from creation through
// diagnosis review to a terminal event: plain completion or issuing a
// sick-leave certificate. Each transition is confirmed by a server round
// trip before the workflow advances, and a failed round trip never moves
// the state forward.
package workflow

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/medreport/medreport/internal/platform/api"
)

// State is a position in the examination state machine.
type State string

const (
	StateDraft       State = "DRAFT"
	StateCreated     State = "CREATED"
	StateReviewing   State = "REVIEWING"
	StateCompleted   State = "COMPLETED"
	StateLeaveIssued State = "LEAVE_ISSUED"
)

// Draft is the examination form before the first round trip. It is passed by
// value so a failed submit leaves the caller's input untouched and a retry
// produces the identical payload.
type Draft struct {
	PatientID       int64
	ExaminationDate api.Date
	Treatment       string
	DiagnosisIDs    []int64
}

// Validate rejects incomplete drafts before any network call.
func (d *Draft) Validate() error {
	if d.PatientID <= 0 {
		return &ValidationError{Field: "patientId", Message: "patient is required"}
	}
	if d.ExaminationDate.IsZero() {
		return &ValidationError{Field: "examinationDate", Message: "examination date is required"}
	}
	if strings.TrimSpace(d.Treatment) == "" {
		return &ValidationError{Field: "treatment", Message: "treatment is required"}
	}
	return nil
}

// Workflow is the state machine for one examination. Its state is mutated
// only by its own transition methods; two in-flight operations never write
// the same field concurrently.
type Workflow struct {
	backend  Backend
	identity Identity
	log      zerolog.Logger

	state State
	view  *EnrichedView
}

// New starts a workflow at DRAFT on behalf of the current session.
func New(backend Backend, identity Identity, log zerolog.Logger) *Workflow {
	return &Workflow{
		backend:  backend,
		identity: identity,
		log:      log,
		state:    StateDraft,
	}
}

// State returns the current position in the state machine.
func (w *Workflow) State() State { return w.state }

// View returns the enriched examination once the workflow has reached
// REVIEWING, or nil before that.
func (w *Workflow) View() *EnrichedView { return w.view }

// Submit creates the examination from the draft: the acting doctor comes
// from the session, the patient from the draft. On success the server-issued
// id moves the workflow to CREATED and the persisted record is enriched for
// review. On failure the state stays DRAFT and the draft is unchanged, so
// the user may retry with no data loss.
func (w *Workflow) Submit(ctx context.Context, draft Draft) (*EnrichedView, error) {
	if w.state != StateDraft {
		return nil, &TransitionError{From: w.state, Action: "submit"}
	}

	sess := w.identity.Current()
	if sess == nil {
		return nil, ErrNotAuthenticated
	}
	if err := draft.Validate(); err != nil {
		return nil, err
	}

	exam, err := w.backend.CreateExamination(ctx, sess.User.ID, draft.PatientID, api.CreateExaminationRequest{
		ExaminationDate: draft.ExaminationDate,
		Treatment:       draft.Treatment,
		DiagnosisIDs:    draft.DiagnosisIDs,
	})
	if err != nil {
		return nil, err
	}
	w.state = StateCreated
	w.log.Info().Int64("examination_id", exam.ID).Msg("examination created")

	w.view = enrich(ctx, w.backend, w.log, *exam)
	w.state = StateReviewing
	return w.view, nil
}

// Preview loads an existing examination for review. The examination fetch
// itself is load-bearing; the related fetches are best-effort and partial
// enrichment is displayed as-is.
func (w *Workflow) Preview(ctx context.Context, examinationID int64) (*EnrichedView, error) {
	exam, err := w.backend.GetExamination(ctx, examinationID)
	if err != nil {
		return nil, err
	}
	w.view = enrich(ctx, w.backend, w.log, *exam)
	w.state = StateReviewing
	return w.view, nil
}

// Complete closes the review without issuing a leave. It is a confirmation
// with no further mutation; the caller returns to the dashboard.
func (w *Workflow) Complete() error {
	if w.state != StateReviewing {
		return &TransitionError{From: w.state, Action: "complete"}
	}
	w.state = StateCompleted
	w.log.Info().Int64("examination_id", w.view.Examination.ID).Msg("examination completed")
	return nil
}

// IssueSickLeave finalizes the review by creating a leave certificate bound
// to the examination. Date validation happens before the round trip; a
// failed call leaves the workflow at REVIEWING with the form retained so the
// user may retry.
func (w *Workflow) IssueSickLeave(ctx context.Context, form SickLeaveForm) (*api.SickLeave, error) {
	if w.state != StateReviewing {
		return nil, &TransitionError{From: w.state, Action: "issue sick leave"}
	}
	if err := form.Validate(); err != nil {
		return nil, err
	}

	leave, err := w.backend.CreateSickLeave(ctx, w.view.Examination.ID, api.CreateSickLeaveRequest{
		StartDate: form.StartDate,
		EndDate:   form.EndDate,
		Note:      form.Note,
	})
	if err != nil {
		return nil, err
	}

	leaveID := leave.ID
	w.view.Examination.SickLeaveID = &leaveID
	w.view.SickLeave = Result[*api.SickLeave]{Value: leave}
	w.state = StateLeaveIssued
	w.log.Info().
		Int64("examination_id", w.view.Examination.ID).
		Int64("sick_leave_id", leave.ID).
		Int("days", form.Days()).
		Msg("sick leave issued")
	return leave, nil
}
