// Package contact accepts contact-form enquiries and forwards them by email.
package contact

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/alecgard/mbnakom/internal/leads"
)

var (
	// ErrMissingFields is returned when any of the five fields is blank.
	ErrMissingFields = errors.New("missing required fields")
	// ErrSend is returned when the mail transport fails.
	ErrSend = errors.New("failed to send email")
	// ErrNotConfigured is returned by Unconfigured.
	ErrNotConfigured = errors.New("mail transport not configured")
)

// Message is one contact-form enquiry.
type Message struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Service string `json:"service"`
	Message string `json:"message"`
}

// Complete reports whether every field is filled in.
func (m Message) Complete() bool {
	for _, v := range []string{m.Name, m.Email, m.Phone, m.Service, m.Message} {
		if strings.TrimSpace(v) == "" {
			return false
		}
	}
	return true
}

// Mailer delivers an enquiry to the site owner.
type Mailer interface {
	Send(ctx context.Context, m Message) error
}

// Unconfigured is the Mailer used when no SMTP credentials are set. Every
// send fails, so enquiries are still archived and answered with a 500.
type Unconfigured struct{}

func (Unconfigured) Send(context.Context, Message) error { return ErrNotConfigured }

// Archiver keeps a copy of every accepted enquiry.
type Archiver interface {
	Record(l leads.Lead)
}

// MetricsRecorder is an optional interface for recording mail results.
type MetricsRecorder interface {
	IncContactMail(result string)
}

// Service validates, mails and archives enquiries.
type Service struct {
	mailer  Mailer
	archive Archiver
	metrics MetricsRecorder
}

// NewService creates a Service that sends through mailer.
func NewService(mailer Mailer) *Service {
	return &Service{mailer: mailer}
}

// SetArchive sets the optional lead archive.
func (s *Service) SetArchive(a Archiver) {
	s.archive = a
}

// SetMetrics sets the optional metrics recorder.
func (s *Service) SetMetrics(m MetricsRecorder) {
	s.metrics = m
}

// Send mails m. The enquiry is archived whether or not the mail went out.
func (s *Service) Send(ctx context.Context, m Message, locale string) error {
	if !m.Complete() {
		s.record("invalid")
		return ErrMissingFields
	}

	err := s.mailer.Send(ctx, m)
	if s.archive != nil {
		l := leads.New(leads.SourceContact, m.Name, m.Email, m.Phone, m.Service, m.Message, locale)
		l.Mailed = err == nil
		s.archive.Record(l)
	}
	if err != nil {
		slog.Error("email sending error", "error", err)
		s.record("error")
		return fmt.Errorf("%w: %v", ErrSend, err)
	}
	s.record("sent")
	return nil
}

func (s *Service) record(result string) {
	if s.metrics != nil {
		s.metrics.IncContactMail(result)
	}
}
