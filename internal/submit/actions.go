package submit

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/alecgard/mbnakom/internal/backend"
	"github.com/alecgard/mbnakom/internal/form"
)

// Known backend messages.
const (
	MessageTaken          = "Email or Phone is already taken."
	MessageMissingDetails = "Invalid registration details. Something is missing."
)

// Backend is the part of the backend client the site forms write to.
type Backend interface {
	Login(ctx context.Context, req backend.LoginRequest) (*backend.Envelope[string], error)
	Register(ctx context.Context, req backend.RegisterRequest) (*backend.Envelope[json.RawMessage], error)
	UpdateUser(ctx context.Context, id string, req backend.UpdateUser) (*backend.Envelope[bool], error)
	CreateAppointment(ctx context.Context, req backend.CreateAppointment) (*backend.Envelope[int], error)
}

// LoginAction signs a visitor in and stores the returned token.
func LoginAction(b Backend) Action {
	return Action{
		Name:       "login",
		Schema:     form.LoginSchema,
		SuccessKey: "notifications.login_success",
		Patterns: []Pattern{
			{Contains: MessageTaken, MessageKey: "notifications.error_user_exists",
				Fields: []string{form.FieldLoginIdentifier, form.FieldPassword}},
		},
		StoreToken: true,
		Target:     "/",
		Call: func(ctx context.Context, v form.Values) (Response, error) {
			env, err := b.Login(ctx, backend.LoginRequest{
				LoginIdentifier: v.Get(form.FieldLoginIdentifier),
				Password:        v.Get(form.FieldPassword),
			})
			if err != nil {
				return Response{}, err
			}
			return Response{Success: env.Success && env.Data != "", Message: env.Message, Token: env.Data}, nil
		},
	}
}

// SignUpAction registers an account and sends the visitor to the login page.
func SignUpAction(b Backend, now func() time.Time) Action {
	return Action{
		Name: "signup",
		Schema: func(t form.Messages) *form.Schema {
			return form.SignUpSchema(t, now)
		},
		SuccessKey: "notifications.signup_success",
		Patterns: []Pattern{
			{Contains: MessageTaken, MessageKey: "notifications.error_user_exists",
				Fields: []string{form.FieldEmail}},
			{Contains: MessageMissingDetails, MessageKey: "notifications.error_registration_details",
				Fields: []string{form.FieldUsername}},
		},
		Target: "/login",
		Call: func(ctx context.Context, v form.Values) (Response, error) {
			env, err := b.Register(ctx, backend.RegisterRequest{
				Email:           v.Get(form.FieldEmail),
				UserName:        v.Get(form.FieldUsername),
				Password:        v.Get(form.FieldPassword),
				ConfirmPassword: v.Get(form.FieldConfirmPassword),
				FirstName:       v.Get(form.FieldFirstName),
				LastName:        v.Get(form.FieldLastName),
				DateOfBirth:     v.Get(form.FieldDateOfBirth),
				PhoneNumber:     v.Get(form.FieldPhoneNumber),
				Gender:          v.Get(form.FieldGender),
				TermsAccepted:   form.IsChecked(v.Get(form.FieldTermsAccepted)),
			})
			return envelopeResponse(env, err)
		},
	}
}

// Optional profile fields, kept when blank as null.
const (
	FieldBio        = "bio"
	FieldOccupation = "occupation"
	FieldLocation   = "location"
)

// FieldInterests holds the profile interests as a comma-separated list.
const FieldInterests = "interests"

// ProfileAction updates the signed-in user's profile.
func ProfileAction(b Backend, now func() time.Time, userID string) Action {
	return Action{
		Name: "profile",
		Schema: func(t form.Messages) *form.Schema {
			return form.ProfileSchema(t, now)
		},
		SuccessKey: "notifications.profile_updated",
		FailureKey: "notifications.error_updating_profile",
		Target:     "/profile",
		Call: func(ctx context.Context, v form.Values) (Response, error) {
			env, err := b.UpdateUser(ctx, userID, backend.UpdateUser{
				UserName:    v.Get(form.FieldUserName),
				Email:       v.Get(form.FieldEmail),
				FirstName:   v.Get(form.FieldFirstName),
				LastName:    v.Get(form.FieldLastName),
				DateOfBirth: v.Get(form.FieldDateOfBirth),
				PhoneNumber: v.Get(form.FieldPhoneNumber),
				Gender:      v.Get(form.FieldGender),
				Bio:         optional(v.Get(FieldBio)),
				Occupation:  optional(v.Get(FieldOccupation)),
				Location:    optional(v.Get(FieldLocation)),
				Interests:   splitList(v.Get(FieldInterests)),
			})
			return envelopeResponse(env, err)
		},
	}
}

// AppointmentAction files an appointment request. userID is empty for
// anonymous visitors.
func AppointmentAction(b Backend, userID string) Action {
	return Action{
		Name:       "appointment",
		Schema:     form.AppointmentSchema,
		SuccessKey: "notifications.appointment_success",
		FailureKey: "notifications.appointment_error",
		Reset:      true,
		Target:     "/",
		Call: func(ctx context.Context, v form.Values) (Response, error) {
			env, err := b.CreateAppointment(ctx, backend.CreateAppointment{
				UserID:         optional(userID),
				FirstName:      v.Get(form.FieldFirstName),
				LastName:       v.Get(form.FieldLastName),
				Email:          v.Get(form.FieldEmail),
				Phone:          v.Get(form.FieldPhone),
				ServiceType:    v.Get(form.FieldServiceType),
				PropertyType:   v.Get(form.FieldPropertyType),
				PreferredDate:  v.Get(form.FieldPreferredDate),
				PreferredTime:  v.Get(form.FieldPreferredTime),
				ProjectDetails: v.Get(form.FieldProjectDetails),
				TermsAccepted:  form.IsChecked(v.Get(form.FieldTermsAccepted)),
			})
			return envelopeResponse(env, err)
		},
	}
}

func envelopeResponse[T any](env *backend.Envelope[T], err error) (Response, error) {
	if err != nil {
		return Response{}, err
	}
	return Response{Success: env.Success, Message: env.Message}, nil
}

// splitList parses a comma-separated list, dropping blank items. The result
// is never nil, so it encodes as [] rather than null.
func splitList(v string) []string {
	out := []string{}
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func optional(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
