// Package submit runs a form submission against the backend: validate,
// call, then react with notifications, session changes and navigation.
package submit

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/alecgard/mbnakom/internal/backend"
	"github.com/alecgard/mbnakom/internal/form"
	"github.com/alecgard/mbnakom/internal/i18n"
)

// ErrBusy is returned when a submission for the same form instance is still
// in flight.
var ErrBusy = errors.New("submission already in progress")

// Level is the severity of a notification.
type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

// Reactor receives the side effects of a submission, in order.
type Reactor interface {
	Notify(level Level, message string)
	Reset()
	Login(token string) error
	Navigate(path string)
}

// Response is the interpreted reply of an endpoint.
type Response struct {
	Success bool
	Message string
	// Token is the session token returned by login endpoints.
	Token string
}

// Endpoint calls the backend with the submitted values.
type Endpoint func(ctx context.Context, values form.Values) (Response, error)

// Pattern maps a known server message onto field errors.
type Pattern struct {
	Contains   string
	MessageKey string
	Fields     []string
}

// Action describes one kind of form submission.
type Action struct {
	// Name labels metrics and logs.
	Name       string
	Schema     func(t form.Messages) *form.Schema
	Call       Endpoint
	SuccessKey string
	// FailureKey is shown when the server gives no message.
	FailureKey string
	Patterns   []Pattern
	Reset      bool
	StoreToken bool
	// Target is the locale-less path navigated to on success.
	Target string
}

// Result is the kind of outcome a submission reached.
type Result string

const (
	ResultInvalid   Result = "invalid"
	ResultSucceeded Result = "succeeded"
	ResultFailed    Result = "failed"
)

// Outcome is what a submission produced.
type Outcome struct {
	Result  Result
	Errors  form.Errors
	Message string
	Target  string
}

// Input is one submission of a form instance.
type Input struct {
	InstanceID string
	Values     form.Values
	Locale     string
	T          form.Messages
}

// MetricsRecorder is an optional interface for recording submission results.
type MetricsRecorder interface {
	IncSubmission(action, result string)
}

// Controller submits one Action.
type Controller struct {
	action  Action
	busy    *Registry
	metrics MetricsRecorder
}

// New creates a controller. Controllers sharing a registry share the busy
// state of form instances.
func New(action Action, busy *Registry) *Controller {
	if busy == nil {
		busy = NewRegistry()
	}
	return &Controller{action: action, busy: busy}
}

// SetMetrics sets the optional metrics recorder.
func (c *Controller) SetMetrics(m MetricsRecorder) {
	c.metrics = m
}

// Name returns the action name.
func (c *Controller) Name() string { return c.action.Name }

// Submit validates in.Values and, when valid, calls the endpoint. Invalid
// values never reach the network. On success the reactor sees Login (when
// the action stores a token), Notify, Reset (when configured) and Navigate
// in that order. On failure it sees a single error notification.
func (c *Controller) Submit(ctx context.Context, in Input, r Reactor) (Outcome, error) {
	if !c.busy.Acquire(in.InstanceID) {
		return Outcome{}, ErrBusy
	}
	defer c.busy.Release(in.InstanceID)

	t := in.T
	if t == nil {
		t = func(key string) string { return key }
	}

	if st := form.NewState(c.action.Schema(t), in.Values); !st.Submit() {
		c.record(ResultInvalid)
		return Outcome{Result: ResultInvalid, Errors: st.Errors}, nil
	}

	resp, err := c.action.Call(ctx, in.Values)
	if err == nil && resp.Success {
		if c.action.StoreToken {
			if loginErr := r.Login(resp.Token); loginErr != nil {
				slog.Debug("submit: session token rejected", "action", c.action.Name, "error", loginErr)
				return c.fail(t, r, Response{}, loginErr), nil
			}
		}
		msg := t(c.action.SuccessKey)
		r.Notify(LevelSuccess, msg)
		if c.action.Reset {
			r.Reset()
		}
		out := Outcome{Result: ResultSucceeded, Message: msg}
		if c.action.Target != "" {
			locale := in.Locale
			if !i18n.IsSupported(locale) {
				locale = i18n.Default
			}
			out.Target = i18n.Path(locale, c.action.Target)
			r.Navigate(out.Target)
		}
		c.record(ResultSucceeded)
		return out, nil
	}

	if err != nil {
		slog.Warn("submit: backend call failed", "action", c.action.Name, "error", err)
	}
	return c.fail(t, r, resp, err), nil
}

// fail resolves the error message: a known server message mapped to field
// errors first, then any server message, then the action's fallback.
func (c *Controller) fail(t form.Messages, r Reactor, resp Response, err error) Outcome {
	server, ok := backend.ServerMessage(err)
	if !ok && err == nil {
		server = strings.TrimSpace(resp.Message)
	}

	out := Outcome{Result: ResultFailed}
	for _, p := range c.action.Patterns {
		if server != "" && strings.Contains(server, p.Contains) {
			out.Message = t(p.MessageKey)
			out.Errors = form.Errors{}
			for _, f := range p.Fields {
				out.Errors[f] = out.Message
			}
			break
		}
	}
	if out.Message == "" {
		out.Message = server
	}
	if out.Message == "" {
		key := c.action.FailureKey
		if key == "" {
			key = "notifications.error_generic"
		}
		out.Message = t(key)
	}

	r.Notify(LevelError, out.Message)
	c.record(ResultFailed)
	return out
}

func (c *Controller) record(result Result) {
	if c.metrics != nil {
		c.metrics.IncSubmission(c.action.Name, string(result))
	}
}

// Registry tracks which form instances have a submission in flight.
type Registry struct {
	mu       sync.Mutex
	inflight map[string]struct{}
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{inflight: make(map[string]struct{})}
}

// Acquire marks id busy. It reports false when id is already busy.
func (r *Registry) Acquire(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.inflight[id]; ok {
		return false
	}
	r.inflight[id] = struct{}{}
	return true
}

// Release marks id idle.
func (r *Registry) Release(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.inflight, id)
}

// Busy reports whether id has a submission in flight.
func (r *Registry) Busy(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.inflight[id]
	return ok
}
