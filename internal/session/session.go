// Package session owns the authenticated identity: logging in, persisting
// the session across restarts, and exposing the current role set to the rest
// of the application.
package session

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Role is a backend authority string. Values are matched exactly and
// case-sensitively, never abbreviated or normalized on this side.
type Role string

const (
	RoleAdmin   Role = "ROLE_ADMIN"
	RoleDoctor  Role = "ROLE_DOCTOR"
	RolePatient Role = "ROLE_PATIENT"
)

// User is the identity snapshot carried in the login response, used for
// display and for deriving resource ownership such as the acting doctor id.
type User struct {
	ID        int64  `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Username  string `json:"username"`
	Email     string `json:"email"`
}

// Session is the client-held record of an authenticated principal. It is
// either fully present (token, user, roles) or absent; no partial session is
// ever stored or restored.
type Session struct {
	AccessToken string `json:"accessToken"`
	Authorities []Role `json:"authorities"`
	User        User   `json:"userDTO"`
}

// Valid reports whether the session is fully formed.
func (s *Session) Valid() error {
	if s.AccessToken == "" {
		return fmt.Errorf("session is missing an access token")
	}
	if len(s.Authorities) == 0 {
		return fmt.Errorf("session has no authorities")
	}
	if s.User.ID == 0 {
		return fmt.Errorf("session has no user identity")
	}
	return nil
}

// HasRole reports whether the session holds the given role.
func (s *Session) HasRole(r Role) bool {
	for _, have := range s.Authorities {
		if have == r {
			return true
		}
	}
	return false
}

// TokenExpired inspects the access token's exp claim without verifying the
// signature (verification is the backend's job; the token is otherwise
// opaque). Tokens that do not parse as JWTs or carry no expiry are reported
// as not expired and left for the backend to reject.
func (s *Session) TokenExpired(now time.Time) bool {
	parser := jwt.NewParser()
	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(s.AccessToken, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return exp.Before(now)
}
