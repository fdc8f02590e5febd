package guard

import (
	"testing"

	"github.com/medreport/medreport/internal/session"
)

func doctorSession() *session.Session {
	return &session.Session{
		AccessToken: "tok",
		Authorities: []session.Role{session.RoleDoctor},
		User:        session.User{ID: 7},
	}
}

func TestAuthorize_PublicDestination(t *testing.T) {
	// empty required list is public, with or without a session
	if d := Authorize(nil, nil); !d.Allowed {
		t.Error("expected ALLOW for public destination without session")
	}
	if d := Authorize([]session.Role{}, doctorSession()); !d.Allowed {
		t.Error("expected ALLOW for public destination with session")
	}
}

func TestAuthorize_NoSession(t *testing.T) {
	d := Authorize([]session.Role{session.RoleDoctor}, nil)
	if d.Allowed {
		t.Fatal("expected DENY without session")
	}
	if d.Reason != ReasonNoSession {
		t.Errorf("reason = %q, want %q", d.Reason, ReasonNoSession)
	}
}

func TestAuthorize_InsufficientRole(t *testing.T) {
	d := Authorize([]session.Role{session.RoleAdmin}, doctorSession())
	if d.Allowed {
		t.Fatal("expected DENY for missing role")
	}
	if d.Reason != ReasonInsufficientRole {
		t.Errorf("reason = %q, want %q", d.Reason, ReasonInsufficientRole)
	}
}

func TestAuthorize_RoleIntersection(t *testing.T) {
	s := doctorSession()
	// any overlap between required and held roles allows
	d := Authorize([]session.Role{session.RoleAdmin, session.RoleDoctor}, s)
	if !d.Allowed {
		t.Error("expected ALLOW when one required role is held")
	}
}

// Totality: every combination of required roles and session yields exactly
// one ALLOW or DENY decision with a reason on denial.
func TestAuthorize_Totality(t *testing.T) {
	requiredSets := [][]session.Role{
		nil,
		{},
		{session.RoleAdmin},
		{session.RoleDoctor},
		{session.RolePatient},
		{session.RoleAdmin, session.RoleDoctor, session.RolePatient},
		{session.Role("ROLE_UNKNOWN")},
	}
	sessions := []*session.Session{
		nil,
		doctorSession(),
		{AccessToken: "t", Authorities: []session.Role{session.RoleAdmin, session.RolePatient}, User: session.User{ID: 1}},
		{AccessToken: "t", Authorities: []session.Role{}, User: session.User{ID: 2}},
	}

	for _, required := range requiredSets {
		for _, s := range sessions {
			d := Authorize(required, s)
			if !d.Allowed && d.Reason != ReasonNoSession && d.Reason != ReasonInsufficientRole {
				t.Errorf("Authorize(%v, %v) denied without a reason", required, s)
			}
			if d.Allowed && d.Reason != "" {
				t.Errorf("Authorize(%v, %v) allowed with reason %q", required, s, d.Reason)
			}
		}
	}
}

func TestCapabilitiesForRole(t *testing.T) {
	if c := CapabilitiesForRole(session.RoleDoctor); !c.CanCreateExamination || !c.CanIssueSickLeave {
		t.Error("doctor must be able to create examinations and issue leave")
	}
	if c := CapabilitiesForRole(session.RoleAdmin); !c.CanViewAdminPanel {
		t.Error("admin must see the admin panel")
	}
	if c := CapabilitiesForRole(session.RolePatient); c.CanEditExamination {
		t.Error("patient must not edit examinations")
	}
	if c := CapabilitiesForRole(session.Role("ROLE_UNKNOWN")); c != (Capabilities{}) {
		t.Error("unknown role must have no capabilities")
	}
}

func TestCapabilitiesFor_UnionsRoles(t *testing.T) {
	s := &session.Session{
		AccessToken: "t",
		Authorities: []session.Role{session.RoleAdmin, session.RoleDoctor},
		User:        session.User{ID: 1},
	}
	c := CapabilitiesFor(s)
	if !c.CanViewAdminPanel || !c.CanCreateExamination {
		t.Error("expected union of admin and doctor capabilities")
	}

	if CapabilitiesFor(nil) != (Capabilities{}) {
		t.Error("nil session must have no capabilities")
	}
}

func TestHomeDestination(t *testing.T) {
	cases := []struct {
		roles []session.Role
		want  string
	}{
		{[]session.Role{session.RoleAdmin}, "/admin/dashboard"},
		{[]session.Role{session.RolePatient}, "/patient/dashboard"},
		{[]session.Role{session.RoleDoctor}, "/doctor/dashboard"},
		// admin wins over doctor, mirroring the login redirect order
		{[]session.Role{session.RoleDoctor, session.RoleAdmin}, "/admin/dashboard"},
		{[]session.Role{session.Role("ROLE_UNKNOWN")}, "/"},
	}
	for _, tc := range cases {
		s := &session.Session{AccessToken: "t", Authorities: tc.roles, User: session.User{ID: 1}}
		if got := HomeDestination(s); got != tc.want {
			t.Errorf("HomeDestination(%v) = %q, want %q", tc.roles, got, tc.want)
		}
	}
	if got := HomeDestination(nil); got != "/" {
		t.Errorf("HomeDestination(nil) = %q, want /", got)
	}
}
