package contact

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/alecgard/mbnakom/internal/i18n"
)

// maxBodySize is the maximum allowed request body size (64 KB).
const maxBodySize = 64 << 10

type errorBody struct {
	Error string `json:"error"`
}

type messageBody struct {
	Message string `json:"message"`
}

// Handler serves POST /api/contact.
type Handler struct {
	service *Service
}

// NewHandler creates a Handler.
func NewHandler(s *Service) *Handler {
	return &Handler{service: s}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeJSON(w, http.StatusMethodNotAllowed, errorBody{"Method not allowed"})
		return
	}

	var m Message
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodySize)).Decode(&m); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{"Missing required fields"})
		return
	}

	err := h.service.Send(r.Context(), m, i18n.Negotiate(r))
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, messageBody{"Email sent successfully"})
	case errors.Is(err, ErrMissingFields):
		writeJSON(w, http.StatusBadRequest, errorBody{"Missing required fields"})
	default:
		writeJSON(w, http.StatusInternalServerError, errorBody{"Failed to send email"})
	}
}

// RateLimited answers a throttled contact request.
func RateLimited(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusTooManyRequests, errorBody{"Too many requests. Try again later."})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
