// Package api is the typed HTTP client for the medical-records backend. All
// endpoints speak JSON against a single host; the access token is an opaque
// bearer credential supplied by the session manager.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/medreport/medreport/internal/session"
)

const maxErrorBody = 64 << 10

// TokenSource supplies the current bearer token, or "" when logged out.
type TokenSource interface {
	Token() string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.http = c }
}

// WithTokenSource sets the bearer token source for protected calls.
func WithTokenSource(ts TokenSource) Option {
	return func(cl *Client) { cl.tokens = ts }
}

// WithLogger sets the request logger.
func WithLogger(log zerolog.Logger) Option {
	return func(cl *Client) { cl.log = log }
}

// Client calls the backend REST API.
type Client struct {
	baseURL string
	http    *http.Client
	tokens  TokenSource
	log     zerolog.Logger
}

// NewClient creates a client for the backend at baseURL.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Timeout: 10 * time.Second,
		},
		log: zerolog.Nop(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Authenticate exchanges credentials for a session. A rejection carries the
// server-provided message when present, otherwise a generic one; transport
// failures surface as RemoteError.
func (c *Client) Authenticate(ctx context.Context, creds session.Credentials) (*session.Session, error) {
	payload := map[string]string{
		"usernameOrEmail": creds.UsernameOrEmail,
		"password":        creds.Password,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encoding login request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/auth/login", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &RemoteError{Op: "POST /api/v1/auth/login", Message: err.Error()}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return nil, &RemoteError{Op: "POST /api/v1/auth/login", Message: err.Error()}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := serverMessage(data)
		if msg == "" {
			msg = "invalid credentials"
		}
		c.log.Debug().Int("status", resp.StatusCode).Msg("login rejected")
		return nil, &AuthError{Message: msg}
	}

	sess := &session.Session{}
	if err := json.Unmarshal(data, sess); err != nil {
		return nil, fmt.Errorf("decoding login response: %w", err)
	}
	return sess, nil
}

// --- Examinations ---

func (c *Client) CreateExamination(ctx context.Context, doctorID, patientID int64, req CreateExaminationRequest) (*Examination, error) {
	out := &Examination{}
	path := fmt.Sprintf("/api/v1/examination/doctor/%d/patient/%d", doctorID, patientID)
	if err := c.do(ctx, http.MethodPost, path, req, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetExamination(ctx context.Context, id int64) (*Examination, error) {
	out := &Examination{}
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/v1/examination/%d", id), nil, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) UpdateExamination(ctx context.Context, id int64, req UpdateExaminationRequest) (*Examination, error) {
	out := &Examination{}
	if err := c.do(ctx, http.MethodPut, fmt.Sprintf("/api/v1/examination/%d", id), req, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ListExaminationsByDoctor(ctx context.Context, doctorID int64) ([]Examination, error) {
	var out []Examination
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/v1/examination/doctor/%d", doctorID), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ListExaminationsByPatient(ctx context.Context, patientID int64) ([]Examination, error) {
	var out []Examination
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/v1/examination/patient/%d", patientID), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// --- Sick leaves ---

func (c *Client) CreateSickLeave(ctx context.Context, examinationID int64, req CreateSickLeaveRequest) (*SickLeave, error) {
	out := &SickLeave{}
	path := fmt.Sprintf("/api/v1/sick-leave/examination/%d", examinationID)
	if err := c.do(ctx, http.MethodPost, path, req, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetSickLeave(ctx context.Context, id int64) (*SickLeave, error) {
	out := &SickLeave{}
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/v1/sick-leave/%d", id), nil, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) UpdateSickLeave(ctx context.Context, id int64, req UpdateSickLeaveRequest) (*SickLeave, error) {
	out := &SickLeave{}
	if err := c.do(ctx, http.MethodPut, fmt.Sprintf("/api/v1/sick-leave/%d", id), req, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) DeleteSickLeave(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/v1/sick-leave/%d", id), nil, nil)
}

// --- Reference data ---

func (c *Client) GetDiagnosis(ctx context.Context, id int64) (*Diagnosis, error) {
	out := &Diagnosis{}
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/v1/diagnosis/%d", id), nil, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ListDiagnoses(ctx context.Context) ([]Diagnosis, error) {
	var out []Diagnosis
	if err := c.do(ctx, http.MethodGet, "/api/v1/diagnosis/list", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetPatient(ctx context.Context, id int64) (*Patient, error) {
	out := &Patient{}
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/v1/patient/%d", id), nil, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetDoctor(ctx context.Context, id int64) (*Doctor, error) {
	out := &Doctor{}
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/v1/doctor/%d", id), nil, out); err != nil {
		return nil, err
	}
	return out, nil
}

// do performs one JSON round trip. A 401 maps to ErrUnauthorized so callers
// can tear down the session; any other non-2xx or transport failure becomes
// a RemoteError carrying the server message when one is present.
func (c *Client) do(ctx context.Context, method, path string, in, out interface{}) error {
	op := method + " " + path

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: encoding request: %w", op, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("%s: building request: %w", op, err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if c.tokens != nil {
		if token := c.tokens.Token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return &RemoteError{Op: op, Message: err.Error()}
	}
	defer resp.Body.Close()

	c.log.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("latency", time.Since(start)).
		Msg("api call")

	if resp.StatusCode == http.StatusUnauthorized {
		return fmt.Errorf("%s: %w", op, ErrUnauthorized)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &RemoteError{Op: op, StatusCode: resp.StatusCode, Message: serverMessage(data)}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: decoding response: %w", op, err)
	}
	return nil
}

// serverMessage extracts the backend's {"message": ...} field, falling back
// to the raw body.
func serverMessage(body []byte) string {
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Message != "" {
		return payload.Message
	}
	return strings.TrimSpace(string(body))
}
