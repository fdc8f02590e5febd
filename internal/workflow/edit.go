package workflow

import (
	"context"
	"strings"
	"sync"

	"github.com/medreport/medreport/internal/platform/api"
)

// EditSession is the re-entrant edit path: the full examination with its
// related detail loaded, mutable until Save pushes a single combined update.
// Diagnosis changes are purely client-side until then.
type EditSession struct {
	w *Workflow

	// Examination carries the mutable form fields. DiagnosisIDs is kept in
	// step with Selected through AddDiagnosis and RemoveDiagnosis.
	Examination api.Examination
	Patient     Result[api.Patient]
	Selected    []api.Diagnosis
	Catalog     []api.Diagnosis
	SickLeave   *api.SickLeave

	// LeaveForm is the sick-leave sub-form; nil while closed.
	LeaveForm *SickLeaveForm
}

// Edit re-enters review for an existing examination, from either terminal
// display state. The examination fetch is load-bearing; the patient, each
// selected diagnosis, the sick leave, and the diagnosis catalog are fetched
// in parallel and each failure degrades only its own slot. Reopening the
// edit view always re-fetches canonical state rather than trusting stale
// in-memory data.
func (w *Workflow) Edit(ctx context.Context, examinationID int64) (*EditSession, error) {
	exam, err := w.backend.GetExamination(ctx, examinationID)
	if err != nil {
		return nil, err
	}

	e := &EditSession{w: w, Examination: *exam}

	var wg sync.WaitGroup
	selected := make([]*api.Diagnosis, len(exam.DiagnosisIDs))

	wg.Add(1)
	go func() {
		defer wg.Done()
		p, err := w.backend.GetPatient(ctx, exam.PatientID)
		if err != nil {
			w.log.Warn().Err(err).Int64("patient_id", exam.PatientID).Msg("patient fetch failed")
			e.Patient = Result[api.Patient]{Err: err}
			return
		}
		e.Patient = Result[api.Patient]{Value: *p}
	}()

	// The list endpoint returns summaries, so each selected diagnosis is
	// fetched individually for full detail.
	for i, id := range exam.DiagnosisIDs {
		wg.Add(1)
		go func(i int, id int64) {
			defer wg.Done()
			d, err := w.backend.GetDiagnosis(ctx, id)
			if err != nil {
				w.log.Warn().Err(err).Int64("diagnosis_id", id).Msg("diagnosis fetch failed")
				return
			}
			selected[i] = d
		}(i, id)
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		catalog, err := w.backend.ListDiagnoses(ctx)
		if err != nil {
			w.log.Warn().Err(err).Msg("diagnosis catalog fetch failed")
			return
		}
		e.Catalog = catalog
	}()

	if exam.SickLeaveID != nil {
		leaveID := *exam.SickLeaveID
		wg.Add(1)
		go func() {
			defer wg.Done()
			sl, err := w.backend.GetSickLeave(ctx, leaveID)
			if err != nil {
				w.log.Warn().Err(err).Int64("sick_leave_id", leaveID).Msg("sick leave fetch failed")
				return
			}
			e.SickLeave = sl
		}()
	}

	wg.Wait()

	for _, d := range selected {
		if d != nil {
			e.Selected = append(e.Selected, *d)
		}
	}

	w.state = StateReviewing
	return e, nil
}

// AddDiagnosis selects a diagnosis from the catalog. Already-selected ids
// are ignored.
func (e *EditSession) AddDiagnosis(d api.Diagnosis) {
	for _, id := range e.Examination.DiagnosisIDs {
		if id == d.ID {
			return
		}
	}
	e.Examination.DiagnosisIDs = append(e.Examination.DiagnosisIDs, d.ID)
	e.Selected = append(e.Selected, d)
}

// RemoveDiagnosis deselects a diagnosis. Purely client-side until Save.
func (e *EditSession) RemoveDiagnosis(id int64) {
	for i, have := range e.Examination.DiagnosisIDs {
		if have == id {
			e.Examination.DiagnosisIDs = append(e.Examination.DiagnosisIDs[:i], e.Examination.DiagnosisIDs[i+1:]...)
			break
		}
	}
	for i, d := range e.Selected {
		if d.ID == id {
			e.Selected = append(e.Selected[:i], e.Selected[i+1:]...)
			break
		}
	}
}

// AvailableDiagnoses returns catalog entries not yet selected, filtered by a
// case-insensitive match on code or description. An empty filter returns all
// unselected entries.
func (e *EditSession) AvailableDiagnoses(filter string) []api.Diagnosis {
	filter = strings.ToLower(filter)
	var out []api.Diagnosis
	for _, d := range e.Catalog {
		if e.isSelected(d.ID) {
			continue
		}
		if filter != "" &&
			!strings.Contains(strings.ToLower(d.Diagnosis), filter) &&
			!strings.Contains(strings.ToLower(d.Description), filter) {
			continue
		}
		out = append(out, d)
	}
	return out
}

func (e *EditSession) isSelected(id int64) bool {
	for _, have := range e.Examination.DiagnosisIDs {
		if have == id {
			return true
		}
	}
	return false
}

// OpenLeaveForm opens the sick-leave sub-form, prefilled from the existing
// leave when one is loaded. Opening an already-open form is a no-op.
func (e *EditSession) OpenLeaveForm() *SickLeaveForm {
	if e.LeaveForm != nil {
		return e.LeaveForm
	}
	form := &SickLeaveForm{}
	if e.SickLeave != nil {
		form.StartDate = e.SickLeave.StartDate
		form.EndDate = e.SickLeave.EndDate
		form.Note = e.SickLeave.Note
	}
	e.LeaveForm = form
	return form
}

// CloseLeaveForm discards the sub-form without saving.
func (e *EditSession) CloseLeaveForm() {
	e.LeaveForm = nil
}

// Save pushes the combined update. When the sick-leave sub-form is open with
// both dates present, the leave is created or updated first and its id
// merged into the examination payload before the examination update runs;
// the ordering matters because the examination references the leave by id,
// not as a nested object. Any failed round trip halts the save with local
// state retained for retry.
func (e *EditSession) Save(ctx context.Context) (*api.Examination, error) {
	if e.Examination.ExaminationDate.IsZero() {
		return nil, &ValidationError{Field: "examinationDate", Message: "examination date is required"}
	}
	if strings.TrimSpace(e.Examination.Treatment) == "" {
		return nil, &ValidationError{Field: "treatment", Message: "treatment is required"}
	}

	if e.LeaveForm != nil && e.LeaveForm.Complete() {
		if err := e.LeaveForm.Validate(); err != nil {
			return nil, err
		}
		if err := e.saveLeave(ctx); err != nil {
			return nil, err
		}
	}

	updated, err := e.w.backend.UpdateExamination(ctx, e.Examination.ID, api.UpdateExaminationRequest{
		ExaminationDate: e.Examination.ExaminationDate,
		Treatment:       e.Examination.Treatment,
		DoctorID:        e.Examination.DoctorID,
		PatientID:       e.Examination.PatientID,
		DiagnosisIDs:    e.Examination.DiagnosisIDs,
		SickLeaveID:     e.Examination.SickLeaveID,
	})
	if err != nil {
		return nil, err
	}

	e.Examination = *updated
	e.w.log.Info().Int64("examination_id", updated.ID).Msg("examination updated")
	return updated, nil
}

func (e *EditSession) saveLeave(ctx context.Context) error {
	form := e.LeaveForm
	if e.Examination.SickLeaveID != nil {
		updated, err := e.w.backend.UpdateSickLeave(ctx, *e.Examination.SickLeaveID, api.UpdateSickLeaveRequest{
			StartDate: form.StartDate,
			EndDate:   form.EndDate,
			Days:      form.Days(),
			Note:      form.Note,
		})
		if err != nil {
			return err
		}
		e.SickLeave = updated
		return nil
	}

	created, err := e.w.backend.CreateSickLeave(ctx, e.Examination.ID, api.CreateSickLeaveRequest{
		StartDate: form.StartDate,
		EndDate:   form.EndDate,
		Note:      form.Note,
	})
	if err != nil {
		return err
	}
	leaveID := created.ID
	e.Examination.SickLeaveID = &leaveID
	e.SickLeave = created
	return nil
}

// DeleteSickLeave removes the examination's leave certificate and clears the
// back-reference on the examination in the same operation. Deleting the
// leave never deletes the examination, but the examination must not keep
// pointing at a leave that no longer exists.
func (e *EditSession) DeleteSickLeave(ctx context.Context) error {
	if e.Examination.SickLeaveID == nil {
		return &ValidationError{Field: "sickLeaveId", Message: "examination has no sick leave"}
	}

	leaveID := *e.Examination.SickLeaveID
	if err := e.w.backend.DeleteSickLeave(ctx, leaveID); err != nil {
		return err
	}

	e.Examination.SickLeaveID = nil
	e.SickLeave = nil
	e.LeaveForm = nil

	if _, err := e.w.backend.UpdateExamination(ctx, e.Examination.ID, api.UpdateExaminationRequest{
		ExaminationDate: e.Examination.ExaminationDate,
		Treatment:       e.Examination.Treatment,
		DoctorID:        e.Examination.DoctorID,
		PatientID:       e.Examination.PatientID,
		DiagnosisIDs:    e.Examination.DiagnosisIDs,
		SickLeaveID:     nil,
	}); err != nil {
		return err
	}

	e.w.log.Info().
		Int64("examination_id", e.Examination.ID).
		Int64("sick_leave_id", leaveID).
		Msg("sick leave deleted")
	return nil
}
