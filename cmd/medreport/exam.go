package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/medreport/medreport/internal/platform/api"
	"github.com/medreport/medreport/internal/session"
	"github.com/medreport/medreport/internal/workflow"
)

func examCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "exam",
		Short: "Work with medical examinations",
	}
	cmd.AddCommand(examCreateCmd())
	cmd.AddCommand(examPreviewCmd())
	cmd.AddCommand(examCompleteCmd())
	cmd.AddCommand(examSickLeaveCmd())
	cmd.AddCommand(examEditCmd())
	cmd.AddCommand(examListCmd())
	return cmd
}

func examCreateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an examination for a patient",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			if err := a.enter(session.RoleDoctor); err != nil {
				return err
			}

			patientID, _ := cmd.Flags().GetInt64("patient")
			dateStr, _ := cmd.Flags().GetString("date")
			treatment, _ := cmd.Flags().GetString("treatment")
			diagnosisIDs, _ := cmd.Flags().GetInt64Slice("diagnosis")

			var date api.Date
			if dateStr != "" {
				date, err = api.ParseDate(dateStr)
				if err != nil {
					return err
				}
			}

			w := workflow.New(a.client, a.sessions, a.log)
			view, err := w.Submit(cmd.Context(), workflow.Draft{
				PatientID:       patientID,
				ExaminationDate: date,
				Treatment:       treatment,
				DiagnosisIDs:    diagnosisIDs,
			})
			if err != nil {
				return a.remoteErr(err)
			}

			fmt.Printf("Examination %d created.\n\n", view.Examination.ID)
			printView(view)
			return nil
		},
	}
	cmd.Flags().Int64("patient", 0, "Patient id")
	cmd.Flags().String("date", "", "Examination date (YYYY-MM-DD)")
	cmd.Flags().String("treatment", "", "Treatment narrative")
	cmd.Flags().Int64Slice("diagnosis", nil, "Diagnosis id (repeatable)")
	return cmd
}

func examPreviewCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "preview <examination-id>",
		Short: "Review an examination with its related detail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			if err := a.enter(session.RoleDoctor, session.RoleAdmin); err != nil {
				return err
			}
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid examination id %q", args[0])
			}

			w := workflow.New(a.client, a.sessions, a.log)
			view, err := w.Preview(cmd.Context(), id)
			if err != nil {
				return a.remoteErr(err)
			}
			printView(view)
			return nil
		},
	}
}

func examCompleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "complete <examination-id>",
		Short: "Close the review without issuing sick leave",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			if err := a.enter(session.RoleDoctor); err != nil {
				return err
			}
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid examination id %q", args[0])
			}

			w := workflow.New(a.client, a.sessions, a.log)
			if _, err := w.Preview(cmd.Context(), id); err != nil {
				return a.remoteErr(err)
			}
			if err := w.Complete(); err != nil {
				return err
			}

			fmt.Printf("Examination %d completed. Returning to %s.\n", id, "/doctor/dashboard")
			return nil
		},
	}
}

func examSickLeaveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sick-leave <examination-id>",
		Short: "Finalize the review by issuing a sick-leave certificate",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			if err := a.enter(session.RoleDoctor); err != nil {
				return err
			}
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid examination id %q", args[0])
			}

			form, err := leaveFormFromFlags(cmd)
			if err != nil {
				return err
			}

			w := workflow.New(a.client, a.sessions, a.log)
			if _, err := w.Preview(cmd.Context(), id); err != nil {
				return a.remoteErr(err)
			}
			leave, err := w.IssueSickLeave(cmd.Context(), form)
			if err != nil {
				return a.remoteErr(err)
			}

			fmt.Printf("Sick leave %d issued for examination %d: %s to %s (%d days).\n",
				leave.ID, id, leave.StartDate, leave.EndDate, form.Days())
			return nil
		},
	}
	addLeaveFlags(cmd)
	return cmd
}

func examEditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "edit <examination-id>",
		Short: "Edit an examination, its diagnoses, and its sick leave",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			if err := a.enter(session.RoleDoctor); err != nil {
				return err
			}
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid examination id %q", args[0])
			}

			w := workflow.New(a.client, a.sessions, a.log)
			edit, err := w.Edit(cmd.Context(), id)
			if err != nil {
				return a.remoteErr(err)
			}

			if dateStr, _ := cmd.Flags().GetString("date"); dateStr != "" {
				date, err := api.ParseDate(dateStr)
				if err != nil {
					return err
				}
				edit.Examination.ExaminationDate = date
			}
			if treatment, _ := cmd.Flags().GetString("treatment"); treatment != "" {
				edit.Examination.Treatment = treatment
			}

			addIDs, _ := cmd.Flags().GetInt64Slice("add-diagnosis")
			for _, did := range addIDs {
				d, err := a.client.GetDiagnosis(cmd.Context(), did)
				if err != nil {
					return a.remoteErr(err)
				}
				edit.AddDiagnosis(*d)
			}
			removeIDs, _ := cmd.Flags().GetInt64Slice("remove-diagnosis")
			for _, did := range removeIDs {
				edit.RemoveDiagnosis(did)
			}

			if deleteLeave, _ := cmd.Flags().GetBool("delete-leave"); deleteLeave {
				if err := edit.DeleteSickLeave(cmd.Context()); err != nil {
					return a.remoteErr(err)
				}
				fmt.Println("Sick leave deleted.")
			}

			startStr, _ := cmd.Flags().GetString("leave-start")
			endStr, _ := cmd.Flags().GetString("leave-end")
			if startStr != "" || endStr != "" {
				form := edit.OpenLeaveForm()
				if startStr != "" {
					if form.StartDate, err = api.ParseDate(startStr); err != nil {
						return err
					}
				}
				if endStr != "" {
					if form.EndDate, err = api.ParseDate(endStr); err != nil {
						return err
					}
				}
				if note, _ := cmd.Flags().GetString("leave-note"); note != "" {
					form.Note = note
				}
			}

			updated, err := edit.Save(cmd.Context())
			if err != nil {
				return a.remoteErr(err)
			}

			fmt.Printf("Examination %d updated.\n", updated.ID)
			if updated.SickLeaveID != nil {
				fmt.Printf("Sick leave: %d\n", *updated.SickLeaveID)
			}
			return nil
		},
	}
	cmd.Flags().String("date", "", "New examination date (YYYY-MM-DD)")
	cmd.Flags().String("treatment", "", "New treatment narrative")
	cmd.Flags().Int64Slice("add-diagnosis", nil, "Diagnosis id to add (repeatable)")
	cmd.Flags().Int64Slice("remove-diagnosis", nil, "Diagnosis id to remove (repeatable)")
	cmd.Flags().String("leave-start", "", "Sick-leave start date (YYYY-MM-DD)")
	cmd.Flags().String("leave-end", "", "Sick-leave end date (YYYY-MM-DD)")
	cmd.Flags().String("leave-note", "", "Sick-leave note")
	cmd.Flags().Bool("delete-leave", false, "Delete the existing sick leave")
	return cmd
}

func examListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the current user's examinations",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			if err := a.enter(session.RoleDoctor, session.RolePatient); err != nil {
				return err
			}

			sess := a.sessions.Current()
			var exams []api.Examination
			if sess.HasRole(session.RoleDoctor) {
				exams, err = a.client.ListExaminationsByDoctor(cmd.Context(), sess.User.ID)
			} else {
				exams, err = a.client.ListExaminationsByPatient(cmd.Context(), sess.User.ID)
			}
			if err != nil {
				return a.remoteErr(err)
			}

			fmt.Printf("%-8s %-12s %-10s %-10s %s\n", "ID", "DATE", "PATIENT", "LEAVE", "TREATMENT")
			for _, e := range exams {
				leave := "-"
				if e.SickLeaveID != nil {
					leave = strconv.FormatInt(*e.SickLeaveID, 10)
				}
				fmt.Printf("%-8d %-12s %-10d %-10s %s\n", e.ID, e.ExaminationDate, e.PatientID, leave, e.Treatment)
			}
			return nil
		},
	}
}

func addLeaveFlags(cmd *cobra.Command) {
	cmd.Flags().String("start", "", "Leave start date (YYYY-MM-DD)")
	cmd.Flags().String("end", "", "Leave end date (YYYY-MM-DD)")
	cmd.Flags().String("note", "", "Leave note")
}

func leaveFormFromFlags(cmd *cobra.Command) (workflow.SickLeaveForm, error) {
	form := workflow.SickLeaveForm{}
	var err error
	if startStr, _ := cmd.Flags().GetString("start"); startStr != "" {
		if form.StartDate, err = api.ParseDate(startStr); err != nil {
			return form, err
		}
	}
	if endStr, _ := cmd.Flags().GetString("end"); endStr != "" {
		if form.EndDate, err = api.ParseDate(endStr); err != nil {
			return form, err
		}
	}
	form.Note, _ = cmd.Flags().GetString("note")
	return form, nil
}

// printView renders the enriched examination, leaving unresolved slots
// marked rather than hiding them.
func printView(view *workflow.EnrichedView) {
	exam := view.Examination
	fmt.Printf("Examination %d on %s\n", exam.ID, exam.ExaminationDate)
	fmt.Printf("Treatment: %s\n", exam.Treatment)

	if view.Patient.Ok() {
		p := view.Patient.Value
		fmt.Printf("Patient:   %s %s (id %d)\n", p.FirstName, p.LastName, p.ID)
	} else {
		fmt.Printf("Patient:   id %d (detail unavailable)\n", exam.PatientID)
	}
	if view.Doctor.Ok() {
		d := view.Doctor.Value
		fmt.Printf("Doctor:    %s %s (id %d)\n", d.FirstName, d.LastName, d.ID)
	} else {
		fmt.Printf("Doctor:    id %d (detail unavailable)\n", exam.DoctorID)
	}

	if len(view.Diagnoses) == 0 {
		fmt.Println("Diagnoses: none")
	} else {
		fmt.Println("Diagnoses:")
		for i, r := range view.Diagnoses {
			if r.Ok() {
				fmt.Printf("  - %s: %s\n", r.Value.Diagnosis, r.Value.Description)
			} else {
				fmt.Printf("  - id %d (detail unavailable)\n", exam.DiagnosisIDs[i])
			}
		}
	}

	if exam.SickLeaveID != nil {
		if view.SickLeave.Ok() && view.SickLeave.Value != nil {
			sl := view.SickLeave.Value
			fmt.Printf("Sick leave %d: %s to %s (%d days)\n", sl.ID, sl.StartDate, sl.EndDate, sl.Days)
		} else {
			fmt.Printf("Sick leave: id %d (detail unavailable)\n", *exam.SickLeaveID)
		}
	}
}
