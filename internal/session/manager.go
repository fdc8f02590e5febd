package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/medreport/medreport/internal/platform/sessionstore"
)

// Credentials are what the user types at the login prompt.
type Credentials struct {
	UsernameOrEmail string
	Password        string
}

// Authenticator exchanges credentials for a session at the auth endpoint.
// The API client implements it.
type Authenticator interface {
	Authenticate(ctx context.Context, creds Credentials) (*Session, error)
}

// Manager holds the current session and keeps it in lockstep with durable
// storage: every successful Login and every Logout leaves memory and storage
// in agreement. A store write that fails rolls the operation back to the
// prior consistent state.
type Manager struct {
	store sessionstore.Store
	log   zerolog.Logger

	mu      sync.RWMutex
	current *Session
}

// NewManager creates a manager with no current session. Call Restore to pick
// up a persisted one.
func NewManager(store sessionstore.Store, log zerolog.Logger) *Manager {
	return &Manager{store: store, log: log}
}

// Login authenticates against the backend and, on success, persists the
// session and makes it current. Credential failures are returned as-is and
// never retried here. If persisting fails the in-memory session is left
// untouched and the login reports failure.
func (m *Manager) Login(ctx context.Context, auth Authenticator, creds Credentials) (*Session, error) {
	if creds.UsernameOrEmail == "" || creds.Password == "" {
		return nil, fmt.Errorf("username and password are required")
	}

	sess, err := auth.Authenticate(ctx, creds)
	if err != nil {
		return nil, err
	}
	if err := sess.Valid(); err != nil {
		return nil, fmt.Errorf("malformed login response: %w", err)
	}

	data, err := json.Marshal(sess)
	if err != nil {
		return nil, fmt.Errorf("encoding session: %w", err)
	}
	if err := m.store.Write(data); err != nil {
		return nil, fmt.Errorf("persisting session: %w", err)
	}

	m.mu.Lock()
	m.current = sess
	m.mu.Unlock()

	m.log.Info().Int64("user_id", sess.User.ID).Msg("logged in")
	return sess, nil
}

// Logout clears the in-memory session and durable storage unconditionally.
// It is idempotent and involves no server round trip.
func (m *Manager) Logout() {
	if err := m.store.Clear(); err != nil {
		m.log.Error().Err(err).Msg("clearing stored session")
	}
	m.mu.Lock()
	m.current = nil
	m.mu.Unlock()
}

// Invalidate discards the session after the backend reported the credential
// invalid (expired or unauthorized). The caller re-authenticates afterwards.
func (m *Manager) Invalidate() {
	m.log.Warn().Msg("session invalidated by backend")
	m.Logout()
}

// Restore reads the persisted session on application start and makes it
// current. Missing or malformed data yields nil, with storage cleared
// defensively so the bad record is never read twice. A session whose token
// has already expired is discarded the same way, so no round trip is wasted
// on a credential the backend is guaranteed to reject.
func (m *Manager) Restore() *Session {
	data, err := m.store.Read()
	if err != nil {
		if err != sessionstore.ErrNotFound {
			m.log.Warn().Err(err).Msg("reading stored session")
			m.clearDefensively()
		}
		return nil
	}

	sess := &Session{}
	if err := json.Unmarshal(data, sess); err != nil {
		m.log.Warn().Err(err).Msg("stored session is not valid JSON")
		m.clearDefensively()
		return nil
	}
	if err := sess.Valid(); err != nil {
		m.log.Warn().Err(err).Msg("stored session is incomplete")
		m.clearDefensively()
		return nil
	}
	if sess.TokenExpired(time.Now()) {
		m.log.Warn().Int64("user_id", sess.User.ID).Msg("stored session token has expired")
		m.clearDefensively()
		return nil
	}

	m.mu.Lock()
	m.current = sess
	m.mu.Unlock()
	return sess
}

func (m *Manager) clearDefensively() {
	if err := m.store.Clear(); err != nil {
		m.log.Error().Err(err).Msg("clearing malformed session record")
	}
}

// Current returns the current session, or nil when logged out.
func (m *Manager) Current() *Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Roles returns the current session's roles, or an empty set when logged
// out.
func (m *Manager) Roles() []Role {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.current == nil {
		return nil
	}
	return append([]Role(nil), m.current.Authorities...)
}

// Token returns the current bearer token, or "" when logged out. The API
// client consumes this as its token source.
func (m *Manager) Token() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.current == nil {
		return ""
	}
	return m.current.AccessToken
}
