// Package leads archives contact-form and appointment leads in Postgres so
// they survive a failed notification email.
package leads

import (
	"time"

	"github.com/google/uuid"
)

// Sources of a lead.
const (
	SourceContact     = "contact"
	SourceAppointment = "appointment"
)

// Lead is one inbound enquiry.
type Lead struct {
	ID        uuid.UUID `json:"id"`
	Source    string    `json:"source"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Service   string    `json:"service"`
	Message   string    `json:"message"`
	Locale    string    `json:"locale"`
	Mailed    bool      `json:"mailed"`
	CreatedAt time.Time `json:"created_at"`
}

// New stamps a lead with a fresh id and the current time.
func New(source, name, email, phone, service, message, locale string) Lead {
	return Lead{
		ID:        uuid.New(),
		Source:    source,
		Name:      name,
		Email:     email,
		Phone:     phone,
		Service:   service,
		Message:   message,
		Locale:    locale,
		CreatedAt: time.Now().UTC(),
	}
}

// Query selects a page of leads, newest first.
type Query struct {
	Source string
	Cursor string
	Limit  int
}
