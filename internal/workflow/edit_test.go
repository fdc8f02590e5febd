package workflow

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/medreport/medreport/internal/platform/api"
)

func editBackend(t *testing.T) *fakeBackend {
	t.Helper()
	leaveID := int64(81)
	b := backendWithEnrichment()
	b.getExamination = func(id int64) (*api.Examination, error) {
		return &api.Examination{
			ID:              id,
			ExaminationDate: date(t, "2024-06-01"),
			Treatment:       "Rest and fluids",
			DoctorID:        7,
			PatientID:       42,
			DiagnosisIDs:    []int64{3, 9},
			SickLeaveID:     &leaveID,
		}, nil
	}
	b.getSickLeave = func(id int64) (*api.SickLeave, error) {
		return &api.SickLeave{
			ID: id, StartDate: date(t, "2024-06-01"), EndDate: date(t, "2024-06-03"),
			Days: 3, Note: "bed rest", ExaminationID: 501,
		}, nil
	}
	b.listDiagnoses = func() ([]api.Diagnosis, error) {
		return []api.Diagnosis{
			{ID: 3, Diagnosis: "J06.9", Description: "Acute upper respiratory infection"},
			{ID: 9, Diagnosis: "J11", Description: "Influenza"},
			{ID: 12, Diagnosis: "A09", Description: "Gastroenteritis"},
			{ID: 15, Diagnosis: "M54.5", Description: "Low back pain"},
		}, nil
	}
	return b
}

func newEdit(t *testing.T, backend *fakeBackend) *EditSession {
	t.Helper()
	w := New(backend, doctorIdentity(), zerolog.Nop())
	e, err := w.Edit(context.Background(), 501)
	if err != nil {
		t.Fatalf("edit failed: %v", err)
	}
	return e
}

func TestEdit_LoadsFullState(t *testing.T) {
	backend := editBackend(t)
	w := New(backend, doctorIdentity(), zerolog.Nop())
	e, err := w.Edit(context.Background(), 501)
	if err != nil {
		t.Fatalf("edit failed: %v", err)
	}

	if w.State() != StateReviewing {
		t.Errorf("state = %s, want REVIEWING (re-entrant)", w.State())
	}
	if e.Examination.Treatment != "Rest and fluids" {
		t.Errorf("treatment = %q", e.Examination.Treatment)
	}
	if !e.Patient.Ok() {
		t.Error("expected patient detail")
	}
	if len(e.Selected) != 2 {
		t.Errorf("selected diagnoses = %d, want 2 (fetched individually)", len(e.Selected))
	}
	if backend.callCount("GetDiagnosis") != 2 {
		t.Errorf("GetDiagnosis calls = %d, want one per selected id", backend.callCount("GetDiagnosis"))
	}
	if len(e.Catalog) != 4 {
		t.Errorf("catalog = %d entries, want 4", len(e.Catalog))
	}
	if e.SickLeave == nil || e.SickLeave.ID != 81 {
		t.Errorf("sick leave = %+v", e.SickLeave)
	}
}

func TestEdit_DegradesWithoutSickLeaveDetail(t *testing.T) {
	backend := editBackend(t)
	backend.getSickLeave = func(id int64) (*api.SickLeave, error) {
		return nil, &api.RemoteError{Op: "GET", StatusCode: 503, Message: "unavailable"}
	}

	e := newEdit(t, backend)
	if e.SickLeave != nil {
		t.Error("failed leave fetch must leave the slot unresolved")
	}
	// the rest of the edit state is intact
	if len(e.Selected) != 2 || !e.Patient.Ok() {
		t.Error("other slots must not be affected by the failed fetch")
	}
}

func TestEditSession_AddRemoveDiagnosis(t *testing.T) {
	e := newEdit(t, editBackend(t))

	e.AddDiagnosis(api.Diagnosis{ID: 12, Diagnosis: "A09", Description: "Gastroenteritis"})
	if len(e.Examination.DiagnosisIDs) != 3 || len(e.Selected) != 3 {
		t.Fatalf("ids = %v, selected = %d", e.Examination.DiagnosisIDs, len(e.Selected))
	}

	// adding an already-selected diagnosis is a no-op
	e.AddDiagnosis(api.Diagnosis{ID: 3})
	if len(e.Examination.DiagnosisIDs) != 3 {
		t.Errorf("duplicate add changed ids: %v", e.Examination.DiagnosisIDs)
	}

	e.RemoveDiagnosis(9)
	if len(e.Examination.DiagnosisIDs) != 2 {
		t.Fatalf("ids after remove = %v", e.Examination.DiagnosisIDs)
	}
	for _, id := range e.Examination.DiagnosisIDs {
		if id == 9 {
			t.Error("id 9 still selected after removal")
		}
	}
}

func TestEditSession_AvailableDiagnoses(t *testing.T) {
	e := newEdit(t, editBackend(t))

	available := e.AvailableDiagnoses("")
	if len(available) != 2 {
		t.Fatalf("available = %d, want catalog minus the 2 selected", len(available))
	}
	for _, d := range available {
		if d.ID == 3 || d.ID == 9 {
			t.Errorf("selected diagnosis %d offered as available", d.ID)
		}
	}

	filtered := e.AvailableDiagnoses("back pain")
	if len(filtered) != 1 || filtered[0].ID != 15 {
		t.Errorf("filtered = %+v, want only M54.5", filtered)
	}
	if got := e.AvailableDiagnoses("GASTRO"); len(got) != 1 || got[0].ID != 12 {
		t.Errorf("filter must be case-insensitive, got %+v", got)
	}
}

func TestEditSession_SaveOrdersLeaveBeforeExamination(t *testing.T) {
	backend := editBackend(t)
	// examination without an existing leave
	backend.getExamination = func(id int64) (*api.Examination, error) {
		return &api.Examination{
			ID: id, ExaminationDate: date(t, "2024-06-01"), Treatment: "Rest",
			DoctorID: 7, PatientID: 42, DiagnosisIDs: []int64{3},
		}, nil
	}

	var examPayload api.UpdateExaminationRequest
	backend.createSickLeave = func(examinationID int64, req api.CreateSickLeaveRequest) (*api.SickLeave, error) {
		return &api.SickLeave{ID: 81, StartDate: req.StartDate, EndDate: req.EndDate, Days: 3, ExaminationID: examinationID}, nil
	}
	backend.updateExamination = func(id int64, req api.UpdateExaminationRequest) (*api.Examination, error) {
		examPayload = req
		leaveID := int64(81)
		return &api.Examination{
			ID: id, ExaminationDate: req.ExaminationDate, Treatment: req.Treatment,
			DoctorID: req.DoctorID, PatientID: req.PatientID, DiagnosisIDs: req.DiagnosisIDs,
			SickLeaveID: &leaveID,
		}, nil
	}

	e := newEdit(t, backend)
	form := e.OpenLeaveForm()
	form.StartDate = date(t, "2024-06-01")
	form.EndDate = date(t, "2024-06-03")
	form.Note = "bed rest"

	if _, err := e.Save(context.Background()); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	// the leave round trip must complete first so the examination payload
	// can reference the new id by value
	var ordered []string
	for _, c := range backend.calls {
		if c == "CreateSickLeave" || c == "UpdateExamination" {
			ordered = append(ordered, c)
		}
	}
	if len(ordered) != 2 || ordered[0] != "CreateSickLeave" || ordered[1] != "UpdateExamination" {
		t.Fatalf("call order = %v, want leave before examination", ordered)
	}
	if examPayload.SickLeaveID == nil || *examPayload.SickLeaveID != 81 {
		t.Errorf("examination payload sickLeaveId = %v, want 81 merged in", examPayload.SickLeaveID)
	}
}

func TestEditSession_SaveUpdatesExistingLeaveWithRecomputedDays(t *testing.T) {
	backend := editBackend(t)
	var leavePayload api.UpdateSickLeaveRequest
	backend.updateSickLeave = func(id int64, req api.UpdateSickLeaveRequest) (*api.SickLeave, error) {
		leavePayload = req
		return &api.SickLeave{ID: id, StartDate: req.StartDate, EndDate: req.EndDate, Days: req.Days, Note: req.Note, ExaminationID: 501}, nil
	}
	backend.updateExamination = func(id int64, req api.UpdateExaminationRequest) (*api.Examination, error) {
		return &api.Examination{
			ID: id, ExaminationDate: req.ExaminationDate, Treatment: req.Treatment,
			DoctorID: req.DoctorID, PatientID: req.PatientID, DiagnosisIDs: req.DiagnosisIDs,
			SickLeaveID: req.SickLeaveID,
		}, nil
	}

	e := newEdit(t, backend)
	form := e.OpenLeaveForm()
	// prefilled from the existing leave
	if form.StartDate.String() != "2024-06-01" || form.Note != "bed rest" {
		t.Fatalf("form not prefilled: %+v", form)
	}

	form.EndDate = date(t, "2024-06-05")
	if _, err := e.Save(context.Background()); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	if backend.callCount("UpdateSickLeave") != 1 {
		t.Fatal("expected the existing leave to be updated, not recreated")
	}
	if leavePayload.Days != 5 {
		t.Errorf("days = %d, want 5 recomputed from the new range", leavePayload.Days)
	}
}

func TestEditSession_SaveLeaveFailureHaltsExaminationUpdate(t *testing.T) {
	backend := editBackend(t)
	backend.updateSickLeave = func(int64, api.UpdateSickLeaveRequest) (*api.SickLeave, error) {
		return nil, &api.RemoteError{Op: "PUT", StatusCode: 500, Message: "boom"}
	}

	e := newEdit(t, backend)
	form := e.OpenLeaveForm()
	form.EndDate = date(t, "2024-06-05")

	if _, err := e.Save(context.Background()); err == nil {
		t.Fatal("expected save to fail")
	}
	if backend.callCount("UpdateExamination") != 0 {
		t.Error("examination update must not run after the leave round trip failed")
	}
}

func TestEditSession_SaveValidation(t *testing.T) {
	backend := editBackend(t)
	e := newEdit(t, backend)

	e.Examination.Treatment = "  "
	_, err := e.Save(context.Background())
	vErr := &ValidationError{}
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if backend.callCount("UpdateExamination") != 0 {
		t.Error("validation must block the update round trip")
	}
}

func TestEditSession_IgnoresIncompleteLeaveForm(t *testing.T) {
	backend := editBackend(t)
	// no existing leave on the examination
	backend.getExamination = func(id int64) (*api.Examination, error) {
		return &api.Examination{
			ID: id, ExaminationDate: date(t, "2024-06-01"), Treatment: "Rest",
			DoctorID: 7, PatientID: 42, DiagnosisIDs: []int64{3},
		}, nil
	}
	backend.updateExamination = func(id int64, req api.UpdateExaminationRequest) (*api.Examination, error) {
		return &api.Examination{ID: id, ExaminationDate: req.ExaminationDate, Treatment: req.Treatment, DoctorID: req.DoctorID, PatientID: req.PatientID, DiagnosisIDs: req.DiagnosisIDs}, nil
	}

	e := newEdit(t, backend)
	form := e.OpenLeaveForm()
	form.StartDate = date(t, "2024-06-01") // end date never entered

	if _, err := e.Save(context.Background()); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if backend.callCount("CreateSickLeave") != 0 {
		t.Error("an incomplete leave sub-form must not trigger a leave round trip")
	}
}

func TestEditSession_DeleteSickLeaveClearsReference(t *testing.T) {
	backend := editBackend(t)
	var examPayload api.UpdateExaminationRequest
	backend.deleteSickLeave = func(id int64) error {
		if id != 81 {
			t.Errorf("deleting leave %d, want 81", id)
		}
		return nil
	}
	backend.updateExamination = func(id int64, req api.UpdateExaminationRequest) (*api.Examination, error) {
		examPayload = req
		return &api.Examination{ID: id, ExaminationDate: req.ExaminationDate, Treatment: req.Treatment, DoctorID: req.DoctorID, PatientID: req.PatientID, DiagnosisIDs: req.DiagnosisIDs}, nil
	}

	e := newEdit(t, backend)
	if err := e.DeleteSickLeave(context.Background()); err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	if e.Examination.SickLeaveID != nil {
		t.Error("local sickLeaveId must be cleared")
	}
	if e.SickLeave != nil {
		t.Error("local leave detail must be cleared")
	}
	if backend.callCount("UpdateExamination") != 1 {
		t.Fatal("deleting the leave must also update the owning examination")
	}
	if examPayload.SickLeaveID != nil {
		t.Error("examination update must clear the leave reference")
	}
}

func TestEditSession_DeleteSickLeaveWithoutLeave(t *testing.T) {
	backend := editBackend(t)
	backend.getExamination = func(id int64) (*api.Examination, error) {
		return &api.Examination{ID: id, ExaminationDate: date(t, "2024-06-01"), Treatment: "Rest", DoctorID: 7, PatientID: 42}, nil
	}

	e := newEdit(t, backend)
	err := e.DeleteSickLeave(context.Background())
	vErr := &ValidationError{}
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if backend.callCount("DeleteSickLeave") != 0 {
		t.Error("no round trip for an examination without a leave")
	}
}
