// Package guard decides whether the current session may enter a destination.
// Authorize is a pure function over the required-role list and the session;
// it is re-evaluated on every navigation and never cached, since login and
// logout can change the role set between navigations.
package guard

import "github.com/medreport/medreport/internal/session"

// Reason explains a denial.
type Reason string

const (
	// ReasonNoSession means no authenticated session exists; the caller
	// should send the user to the authentication entry point.
	ReasonNoSession Reason = "NO_SESSION"
	// ReasonInsufficientRole means the session is authenticated but holds
	// none of the required roles.
	ReasonInsufficientRole Reason = "INSUFFICIENT_ROLE"
)

// Decision is the outcome of an authorization check.
type Decision struct {
	Allowed bool
	Reason  Reason
}

// Allow is the positive decision.
var Allow = Decision{Allowed: true}

func deny(r Reason) Decision {
	return Decision{Allowed: false, Reason: r}
}

// Authorize grants access iff the session holds at least one of the required
// roles. An empty required list marks a public destination and always allows,
// even with no session. A nil session with a non-empty required list denies
// with ReasonNoSession.
func Authorize(required []session.Role, s *session.Session) Decision {
	if len(required) == 0 {
		return Allow
	}
	if s == nil {
		return deny(ReasonNoSession)
	}
	for _, want := range required {
		if s.HasRole(want) {
			return Allow
		}
	}
	return deny(ReasonInsufficientRole)
}
