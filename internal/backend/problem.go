package backend

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrRejected is returned by listing endpoints when the backend answers with
// success=false.
var ErrRejected = errors.New("backend rejected request")

// Problem is the error payload of a failed backend call. Message is the first
// non-empty of "message", "detail" and "title".
type Problem struct {
	Message string              `json:"message"`
	Status  int                 `json:"status,omitempty"`
	Errors  map[string][]string `json:"errors,omitempty"`
}

// ParseProblem extracts a Problem from a response body. It reports false
// when the body carries no usable message.
func ParseProblem(body []byte) (Problem, bool) {
	var raw struct {
		Message string              `json:"message"`
		Detail  string              `json:"detail"`
		Title   string              `json:"title"`
		Status  int                 `json:"status"`
		Errors  map[string][]string `json:"errors"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return Problem{}, false
	}
	p := Problem{Status: raw.Status, Errors: raw.Errors}
	for _, m := range []string{raw.Message, raw.Detail, raw.Title} {
		if m = strings.TrimSpace(m); m != "" {
			p.Message = m
			break
		}
	}
	return p, p.Message != ""
}

// APIError is a non-2xx backend response.
type APIError struct {
	Status  int
	Problem Problem
	// HasProblem is false when the body did not parse as a problem.
	HasProblem bool
}

func (e *APIError) Error() string {
	if e.HasProblem {
		return fmt.Sprintf("backend: status %d: %s", e.Status, e.Problem.Message)
	}
	return fmt.Sprintf("backend: status %d", e.Status)
}

// ServerMessage returns the message the backend attached to err, if any.
func ServerMessage(err error) (string, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.HasProblem {
		return apiErr.Problem.Message, true
	}
	return "", false
}

// StatusCode returns the HTTP status of an APIError, or 0.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}
