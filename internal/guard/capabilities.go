package guard

import "github.com/medreport/medreport/internal/session"

// Capabilities is the per-role permission table. UI branching consults this
// once per render context instead of comparing role strings ad hoc.
type Capabilities struct {
	CanCreateExamination bool
	CanEditExamination   bool
	CanIssueSickLeave    bool
	CanViewOwnRecords    bool
	CanViewAdminPanel    bool
	CanManageDiagnoses   bool
}

var capabilityTable = map[session.Role]Capabilities{
	session.RoleAdmin: {
		CanViewAdminPanel:  true,
		CanManageDiagnoses: true,
	},
	session.RoleDoctor: {
		CanCreateExamination: true,
		CanEditExamination:   true,
		CanIssueSickLeave:    true,
	},
	session.RolePatient: {
		CanViewOwnRecords: true,
	},
}

// CapabilitiesForRole returns the permission set for a single role. Unknown
// roles get the zero value (no capabilities).
func CapabilitiesForRole(r session.Role) Capabilities {
	return capabilityTable[r]
}

// CapabilitiesFor unions the capabilities of every role the session holds.
// A nil session has no capabilities.
func CapabilitiesFor(s *session.Session) Capabilities {
	var out Capabilities
	if s == nil {
		return out
	}
	for _, r := range s.Authorities {
		c := capabilityTable[r]
		out.CanCreateExamination = out.CanCreateExamination || c.CanCreateExamination
		out.CanEditExamination = out.CanEditExamination || c.CanEditExamination
		out.CanIssueSickLeave = out.CanIssueSickLeave || c.CanIssueSickLeave
		out.CanViewOwnRecords = out.CanViewOwnRecords || c.CanViewOwnRecords
		out.CanViewAdminPanel = out.CanViewAdminPanel || c.CanViewAdminPanel
		out.CanManageDiagnoses = out.CanManageDiagnoses || c.CanManageDiagnoses
	}
	return out
}

// HomeDestination picks the post-login landing view for a session, checked
// in the order admin, patient, doctor. Sessions with no recognized role land
// on the public welcome view.
func HomeDestination(s *session.Session) string {
	switch {
	case s == nil:
		return "/"
	case s.HasRole(session.RoleAdmin):
		return "/admin/dashboard"
	case s.HasRole(session.RolePatient):
		return "/patient/dashboard"
	case s.HasRole(session.RoleDoctor):
		return "/doctor/dashboard"
	default:
		return "/"
	}
}
