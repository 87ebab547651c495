package web

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// errorEnvelope is the JSON error shape of the non-page endpoints.
type errorEnvelope struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, statusCode int, code, message string) {
	writeJSON(w, statusCode, errorEnvelope{Error: errorDetail{Code: code, Message: message}})
}

func writeJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

// renderError renders the localized error page. Template failures fall back
// to plain text.
func (s *server) renderError(w http.ResponseWriter, r *http.Request, status int) {
	d := s.page(w, r, "notifications.error_title")
	d.Status = status
	if err := s.renderer.Render(w, status, "error", d); err != nil {
		slog.Error("rendering error page", "error", err, "request_id", RequestIDFromContext(r.Context()))
		http.Error(w, http.StatusText(status), status)
	}
}

// render writes page, turning a template failure into a 500.
func (s *server) render(w http.ResponseWriter, r *http.Request, status int, page string, d *pageData) {
	if err := s.renderer.Render(w, status, page, d); err != nil {
		slog.Error("rendering page", "page", page, "error", err, "request_id", RequestIDFromContext(r.Context()))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}
