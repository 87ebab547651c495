package backend

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Envelope is the uniform response wrapper used by every backend endpoint.
type Envelope[T any] struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    T      `json:"data"`
}

// AppointmentStatus is the lifecycle state of an appointment. The backend
// serializes it as its ordinal.
type AppointmentStatus int

const (
	StatusPending AppointmentStatus = iota
	StatusConfirmed
	StatusCompleted
	StatusCancelled
	StatusNoShow
)

var statusNames = [...]string{"Pending", "Confirmed", "Completed", "Cancelled", "NoShow"}

// Statuses lists every appointment status in ordinal order.
func Statuses() []AppointmentStatus {
	return []AppointmentStatus{StatusPending, StatusConfirmed, StatusCompleted, StatusCancelled, StatusNoShow}
}

func (s AppointmentStatus) String() string {
	if s < 0 || int(s) >= len(statusNames) {
		return "Unknown"
	}
	return statusNames[s]
}

// Valid reports whether s is a known status.
func (s AppointmentStatus) Valid() bool {
	return s >= StatusPending && s <= StatusNoShow
}

// ParseAppointmentStatus accepts a status name (case-insensitive) or its
// ordinal.
func ParseAppointmentStatus(v string) (AppointmentStatus, error) {
	v = strings.TrimSpace(v)
	if n, err := strconv.Atoi(v); err == nil {
		s := AppointmentStatus(n)
		if !s.Valid() {
			return 0, fmt.Errorf("unknown appointment status %d", n)
		}
		return s, nil
	}
	for i, name := range statusNames {
		if strings.EqualFold(name, v) {
			return AppointmentStatus(i), nil
		}
	}
	return 0, fmt.Errorf("unknown appointment status %q", v)
}

func (s AppointmentStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(int(s))
}

func (s *AppointmentStatus) UnmarshalJSON(b []byte) error {
	var n int
	if err := json.Unmarshal(b, &n); err == nil {
		*s = AppointmentStatus(n)
		return nil
	}
	var name string
	if err := json.Unmarshal(b, &name); err != nil {
		return fmt.Errorf("appointment status: %w", err)
	}
	parsed, err := ParseAppointmentStatus(name)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// User is a user record as returned by the backend.
type User struct {
	ID          string   `json:"id"`
	UserName    string   `json:"userName"`
	Email       string   `json:"email"`
	FirstName   string   `json:"firstName"`
	LastName    string   `json:"lastName"`
	DateOfBirth string   `json:"dateOfBirth"`
	PhoneNumber string   `json:"phoneNumber"`
	Bio         *string  `json:"bio"`
	Occupation  *string  `json:"occupation"`
	Location    *string  `json:"location"`
	Interests   []string `json:"interests"`
	Gender      string   `json:"gender"`
}

// FullName joins the first and last name.
func (u User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// BirthDate parses DateOfBirth. The backend sends either a date or a
// date-time.
func (u User) BirthDate() (time.Time, bool) {
	return parseDate(u.DateOfBirth)
}

// UpdateUser is the body of a profile update.
type UpdateUser struct {
	UserName    string   `json:"userName"`
	Email       string   `json:"email"`
	FirstName   string   `json:"firstName"`
	LastName    string   `json:"lastName"`
	DateOfBirth string   `json:"dateOfBirth"`
	PhoneNumber string   `json:"phoneNumber"`
	Bio         *string  `json:"bio"`
	Gender      string   `json:"gender"`
	Occupation  *string  `json:"occupation"`
	Location    *string  `json:"location"`
	Interests   []string `json:"interests"`
}

// RegisterRequest is the body of a registration.
type RegisterRequest struct {
	Email           string `json:"email"`
	UserName        string `json:"userName"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
	FirstName       string `json:"firstName"`
	LastName        string `json:"lastName"`
	DateOfBirth     string `json:"dateOfBirth"`
	PhoneNumber     string `json:"phoneNumber"`
	Gender          string `json:"gender"`
	TermsAccepted   bool   `json:"termsAccepted"`
}

// LoginRequest is the body of a login.
type LoginRequest struct {
	LoginIdentifier string `json:"loginIdentifier"`
	Password        string `json:"password"`
}

// ResetPasswordRequest is the body of a one-time-code password reset.
type ResetPasswordRequest struct {
	EmailOrPhone    string `json:"emailOrPhone"`
	OTP             string `json:"otp"`
	NewPassword     string `json:"newPassword"`
	ConfirmPassword string `json:"confirmPassword"`
}

// CreateAppointment is the body of an appointment request.
type CreateAppointment struct {
	UserID         *string `json:"userId"`
	FirstName      string  `json:"firstName"`
	LastName       string  `json:"lastName"`
	Email          string  `json:"email"`
	Phone          string  `json:"phone"`
	ServiceType    string  `json:"serviceType"`
	PropertyType   string  `json:"propertyType,omitempty"`
	PreferredDate  string  `json:"preferredDate"`
	PreferredTime  string  `json:"preferredTime"`
	ProjectDetails string  `json:"projectDetails"`
	TermsAccepted  bool    `json:"termsAccepted"`
}

// Appointment is an appointment as listed by the backend. The user fields
// are only populated on the admin listing.
type Appointment struct {
	ID             int               `json:"id"`
	FirstName      string            `json:"firstName"`
	LastName       string            `json:"lastName"`
	Email          string            `json:"email"`
	Phone          string            `json:"phone"`
	ServiceType    string            `json:"serviceType"`
	PropertyType   string            `json:"propertyType,omitempty"`
	PreferredDate  string            `json:"preferredDate"`
	PreferredTime  string            `json:"preferredTime"`
	ProjectDetails string            `json:"projectDetails"`
	TermsAccepted  bool              `json:"termsAccepted"`
	Status         AppointmentStatus `json:"status"`
	CreatedAt      string            `json:"createdAt,omitempty"`
	UpdatedAt      string            `json:"updatedAt,omitempty"`

	UserID        string `json:"userId,omitempty"`
	UserFirstName string `json:"userFirstName,omitempty"`
	UserLastName  string `json:"userLastName,omitempty"`
	UserEmail     string `json:"userEmail,omitempty"`
	UserPhone     string `json:"userPhone,omitempty"`
}

// FullName joins the first and last name given on the request.
func (a Appointment) FullName() string {
	return strings.TrimSpace(a.FirstName + " " + a.LastName)
}

// PreferredDay parses PreferredDate.
func (a Appointment) PreferredDay() (time.Time, bool) {
	return parseDate(a.PreferredDate)
}

var dateLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"}

func parseDate(v string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
