// Package backend is a client for the remote REST API that owns users,
// authentication and appointments.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// maxResponseSize caps how much of a response body is read (4 MB).
const maxResponseSize = 4 << 20

// MetricsRecorder is an optional interface for recording backend call metrics.
type MetricsRecorder interface {
	ObserveBackendCall(endpoint string, statusCode int, seconds float64)
	IncBackendError(errorType string)
}

type tokenKey struct{}

// WithToken returns a context whose backend calls carry token as a bearer
// credential.
func WithToken(ctx context.Context, token string) context.Context {
	if token == "" {
		return ctx
	}
	return context.WithValue(ctx, tokenKey{}, token)
}

func tokenFromContext(ctx context.Context) string {
	t, _ := ctx.Value(tokenKey{}).(string)
	return t
}

// Client calls the backend API.
type Client struct {
	baseURL string
	client  *http.Client
	metrics MetricsRecorder
}

// NewClient creates a client rooted at baseURL, e.g. "https://host/api".
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// SetMetrics sets the optional metrics recorder.
func (c *Client) SetMetrics(m MetricsRecorder) {
	c.metrics = m
}

// Register creates an account.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (*Envelope[json.RawMessage], error) {
	var out Envelope[json.RawMessage]
	return &out, c.do(ctx, "auth_register", http.MethodPost, "/Auth/Register", nil, req, &out)
}

// Login exchanges credentials for a token, carried in Data.
func (c *Client) Login(ctx context.Context, req LoginRequest) (*Envelope[string], error) {
	var out Envelope[string]
	return &out, c.do(ctx, "auth_login", http.MethodPost, "/Auth/Login", nil, req, &out)
}

// ResetPassword sets a new password using a one-time code.
func (c *Client) ResetPassword(ctx context.Context, req ResetPasswordRequest) (*Envelope[bool], error) {
	var out Envelope[bool]
	return &out, c.do(ctx, "auth_reset_password", http.MethodPost, "/Auth/reset-password", nil, req, &out)
}

// GetUser fetches a user by id.
func (c *Client) GetUser(ctx context.Context, id string) (*Envelope[User], error) {
	var out Envelope[User]
	return &out, c.do(ctx, "user_get", http.MethodGet, "/User/"+url.PathEscape(id), nil, nil, &out)
}

// FindUser looks a user up by email or phone number.
func (c *Client) FindUser(ctx context.Context, emailOrPhone string) (*Envelope[User], error) {
	var out Envelope[User]
	q := url.Values{"emailOrPhone": {emailOrPhone}}
	return &out, c.do(ctx, "user_find", http.MethodGet, "/User/find", q, nil, &out)
}

// ListUsers lists every user. Admin only.
func (c *Client) ListUsers(ctx context.Context) ([]User, error) {
	var out Envelope[[]User]
	if err := c.do(ctx, "user_list", http.MethodGet, "/User", nil, nil, &out); err != nil {
		return nil, err
	}
	return out.Data, rejected(out.Success, out.Message)
}

// UpdateUser replaces a user's profile.
func (c *Client) UpdateUser(ctx context.Context, id string, req UpdateUser) (*Envelope[bool], error) {
	var out Envelope[bool]
	return &out, c.do(ctx, "user_update", http.MethodPut, "/User/"+url.PathEscape(id), nil, req, &out)
}

// DeleteUser removes a user.
func (c *Client) DeleteUser(ctx context.Context, id string) (*Envelope[bool], error) {
	var out Envelope[bool]
	return &out, c.do(ctx, "user_delete", http.MethodDelete, "/User/"+url.PathEscape(id), nil, nil, &out)
}

// CheckTaken reports whether an email or phone number is already registered.
func (c *Client) CheckTaken(ctx context.Context, emailOrPhone string) (bool, error) {
	var out Envelope[bool]
	q := url.Values{"emailOrPhone": {emailOrPhone}}
	if err := c.do(ctx, "user_check", http.MethodGet, "/User/check", q, nil, &out); err != nil {
		return false, err
	}
	return out.Data, nil
}

// AssignRole grants role to a user.
func (c *Client) AssignRole(ctx context.Context, id, role string) (*Envelope[bool], error) {
	var out Envelope[bool]
	return &out, c.do(ctx, "user_assign_role", http.MethodPost, "/User/"+url.PathEscape(id)+"/roles", nil, role, &out)
}

// RemoveRole revokes role from a user.
func (c *Client) RemoveRole(ctx context.Context, id, role string) (*Envelope[bool], error) {
	var out Envelope[bool]
	path := "/User/" + url.PathEscape(id) + "/roles/" + url.PathEscape(role)
	return &out, c.do(ctx, "user_remove_role", http.MethodDelete, path, nil, nil, &out)
}

// CreateAppointment files an appointment request. Data is the new id.
func (c *Client) CreateAppointment(ctx context.Context, req CreateAppointment) (*Envelope[int], error) {
	var out Envelope[int]
	return &out, c.do(ctx, "appointment_create", http.MethodPost, "/Appointment", nil, req, &out)
}

// ListUserAppointments lists the appointments a user has filed.
func (c *Client) ListUserAppointments(ctx context.Context, userID string) ([]Appointment, error) {
	var out Envelope[[]Appointment]
	path := "/Appointment/GetAllUserAppointmentAsync/" + url.PathEscape(userID)
	if err := c.do(ctx, "appointment_list_user", http.MethodGet, path, nil, nil, &out); err != nil {
		return nil, err
	}
	return out.Data, rejected(out.Success, out.Message)
}

// ListAppointments lists every appointment with its user. Admin only.
func (c *Client) ListAppointments(ctx context.Context) ([]Appointment, error) {
	var out Envelope[[]Appointment]
	if err := c.do(ctx, "appointment_list", http.MethodGet, "/Appointment", nil, nil, &out); err != nil {
		return nil, err
	}
	return out.Data, rejected(out.Success, out.Message)
}

// UpdateAppointmentStatus moves an appointment to status. Admin only.
func (c *Client) UpdateAppointmentStatus(ctx context.Context, id int, status AppointmentStatus) (*Envelope[bool], error) {
	var out Envelope[bool]
	body := struct {
		Status AppointmentStatus `json:"status"`
	}{status}
	path := "/Appointment/" + strconv.Itoa(id) + "/status"
	return &out, c.do(ctx, "appointment_update_status", http.MethodPut, path, nil, body, &out)
}

// DeleteAppointment removes an appointment. Admin only.
func (c *Client) DeleteAppointment(ctx context.Context, id int) (*Envelope[bool], error) {
	var out Envelope[bool]
	return &out, c.do(ctx, "appointment_delete", http.MethodDelete, "/Appointment/"+strconv.Itoa(id), nil, nil, &out)
}

func rejected(success bool, message string) error {
	if success {
		return nil
	}
	if message != "" {
		return fmt.Errorf("%w: %s", ErrRejected, message)
	}
	return ErrRejected
}

// do sends one request. A non-2xx response is returned as *APIError; a 2xx
// body is decoded into out.
func (c *Client) do(ctx context.Context, endpoint, method, path string, query url.Values, in, out any) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encoding %s request: %w", endpoint, err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return fmt.Errorf("building %s request: %w", endpoint, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := tokenFromContext(ctx); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	elapsed := time.Since(start).Seconds()
	if err != nil {
		if c.metrics != nil {
			c.metrics.ObserveBackendCall(endpoint, 0, elapsed)
			c.metrics.IncBackendError(classifyError(err))
		}
		return fmt.Errorf("calling %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if c.metrics != nil {
		c.metrics.ObserveBackendCall(endpoint, resp.StatusCode, elapsed)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return fmt.Errorf("reading %s response: %w", endpoint, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		problem, ok := ParseProblem(data)
		return &APIError{Status: resp.StatusCode, Problem: problem, HasProblem: ok}
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		if c.metrics != nil {
			c.metrics.IncBackendError("decode")
		}
		return fmt.Errorf("decoding %s response: %w", endpoint, err)
	}
	return nil
}

// classifyError categorizes a transport error.
func classifyError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	if errors.Is(err, context.Canceled) {
		return "canceled"
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return "dns"
	}
	var netErr *net.OpError
	if errors.As(err, &netErr) {
		if netErr.Op == "dial" {
			return "connection_refused"
		}
		return "network"
	}
	var timeoutErr net.Error
	if errors.As(err, &timeoutErr) && timeoutErr.Timeout() {
		return "timeout"
	}
	return "other"
}
