package workflow

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/medreport/medreport/internal/platform/api"
)

// Result wraps one enrichment fetch. Each fetch is wrapped individually so a
// failure degrades its own slot instead of cancelling or failing the rest.
type Result[T any] struct {
	Value T
	Err   error
}

// Ok reports whether the fetch succeeded.
func (r Result[T]) Ok() bool { return r.Err == nil }

// EnrichedView is an examination plus whatever related detail could be
// fetched. Partial enrichment is a displayed state, not an error: a slot
// whose fetch failed stays unresolved and the rest render normally.
type EnrichedView struct {
	Examination api.Examination
	Patient     Result[api.Patient]
	Doctor      Result[api.Doctor]
	// Diagnoses is index-aligned with Examination.DiagnosisIDs.
	Diagnoses []Result[api.Diagnosis]
	// SickLeave is only fetched when the examination references one.
	SickLeave Result[*api.SickLeave]
}

// ResolvedDiagnoses returns the diagnoses that fetched successfully.
func (v *EnrichedView) ResolvedDiagnoses() []api.Diagnosis {
	var out []api.Diagnosis
	for _, r := range v.Diagnoses {
		if r.Ok() {
			out = append(out, r.Value)
		}
	}
	return out
}

// enrich fetches the related patient, doctor, diagnoses, and sick leave in
// parallel and joins them. It never returns an error; failures land in the
// individual result slots and are logged.
func enrich(ctx context.Context, b Backend, log zerolog.Logger, exam api.Examination) *EnrichedView {
	view := &EnrichedView{
		Examination: exam,
		Diagnoses:   make([]Result[api.Diagnosis], len(exam.DiagnosisIDs)),
	}

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		p, err := b.GetPatient(ctx, exam.PatientID)
		if err != nil {
			log.Warn().Err(err).Int64("patient_id", exam.PatientID).Msg("patient enrichment failed")
			view.Patient = Result[api.Patient]{Err: err}
			return
		}
		view.Patient = Result[api.Patient]{Value: *p}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		d, err := b.GetDoctor(ctx, exam.DoctorID)
		if err != nil {
			log.Warn().Err(err).Int64("doctor_id", exam.DoctorID).Msg("doctor enrichment failed")
			view.Doctor = Result[api.Doctor]{Err: err}
			return
		}
		view.Doctor = Result[api.Doctor]{Value: *d}
	}()

	for i, id := range exam.DiagnosisIDs {
		wg.Add(1)
		go func(i int, id int64) {
			defer wg.Done()
			d, err := b.GetDiagnosis(ctx, id)
			if err != nil {
				log.Warn().Err(err).Int64("diagnosis_id", id).Msg("diagnosis enrichment failed")
				view.Diagnoses[i] = Result[api.Diagnosis]{Err: err}
				return
			}
			view.Diagnoses[i] = Result[api.Diagnosis]{Value: *d}
		}(i, id)
	}

	if exam.SickLeaveID != nil {
		leaveID := *exam.SickLeaveID
		wg.Add(1)
		go func() {
			defer wg.Done()
			sl, err := b.GetSickLeave(ctx, leaveID)
			if err != nil {
				log.Warn().Err(err).Int64("sick_leave_id", leaveID).Msg("sick leave enrichment failed")
				view.SickLeave = Result[*api.SickLeave]{Err: err}
				return
			}
			view.SickLeave = Result[*api.SickLeave]{Value: sl}
		}()
	}

	wg.Wait()
	return view
}
