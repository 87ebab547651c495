package form

import (
	"regexp"
	"time"
)

// Messages resolves a message key for the visitor's locale.
type Messages func(key string) string

// Field names shared by the site forms.
const (
	FieldLoginIdentifier = "loginIdentifier"
	FieldPassword        = "password"
	FieldConfirmPassword = "confirmPassword"
	FieldUsername        = "username"
	FieldUserName        = "userName"
	FieldEmail           = "email"
	FieldFirstName       = "firstName"
	FieldLastName        = "lastName"
	FieldPhoneNumber     = "phoneNumber"
	FieldPhone           = "phone"
	FieldGender          = "gender"
	FieldDateOfBirth     = "dateOfBirth"
	FieldTermsAccepted   = "termsAccepted"
	FieldServiceType     = "serviceType"
	FieldPropertyType    = "propertyType"
	FieldPreferredDate   = "preferredDate"
	FieldPreferredTime   = "preferredTime"
	FieldProjectDetails  = "projectDetails"
	FieldName            = "name"
	FieldService         = "service"
	FieldMessage         = "message"
)

// MinimumAge is the youngest age allowed to register.
const MinimumAge = 13

var (
	identifierEmail    = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	identifierPhone    = regexp.MustCompile(`^\+?\d{7,15}$`)
	identifierUsername = regexp.MustCompile(`^[a-zA-Z0-9_.-]{3,}$`)
	usernamePattern    = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)
)

// IsLoginIdentifier reports whether v is an email, a phone number or a
// username.
func IsLoginIdentifier(v string) bool {
	return identifierEmail.MatchString(v) || identifierPhone.MatchString(v) || identifierUsername.MatchString(v)
}

// LoginSchema validates the login form.
func LoginSchema(t Messages) *Schema {
	return NewSchema(
		Field(FieldLoginIdentifier,
			Required(t("validation.identifier_required")),
			Rule{Message: t("validation.identifier_invalid"), Test: func(v string, _ Values) bool {
				return IsLoginIdentifier(v)
			}},
		),
		Field(FieldPassword, Required(t("validation.password_required"))),
	)
}

// SignUpSchema validates the registration form.
func SignUpSchema(t Messages, now func() time.Time) *Schema {
	return NewSchema(
		Field(FieldUsername,
			MinLen(3, t("validation.username_min")),
			MaxLen(20, t("validation.username_max")),
			Matches(usernamePattern, t("validation.username_regex")),
		),
		Field(FieldEmail,
			Required(t("validation.email_required")),
			Email(t("validation.email_invalid")),
		),
		Field(FieldPassword,
			Required(t("validation.password_required")),
			MinLen(8, t("validation.password_min")),
			ContainsUpper(t("validation.password_uppercase")),
			ContainsDigit(t("validation.password_number")),
		),
		Field(FieldConfirmPassword,
			Required(t("validation.confirm_password_required")),
			EqualsField(FieldPassword, t("validation.passwords_match")),
		),
		Field(FieldFirstName, Required(t("validation.first_name_required"))),
		Field(FieldLastName, Required(t("validation.last_name_required"))),
		Field(FieldPhoneNumber,
			Required(t("validation.phone_required")),
			Phone(t("validation.phone_invalid")),
		),
		Field(FieldGender, Required(t("validation.gender_required"))),
		birthDate(t, now),
		Field(FieldTermsAccepted, Checked(t("validation.terms_required"))),
	)
}

// ProfileSchema validates the profile update form.
func ProfileSchema(t Messages, now func() time.Time) *Schema {
	return NewSchema(
		Field(FieldUserName, Required(t("validation.user_name_required"))),
		Field(FieldFirstName, Required(t("validation.first_name_required"))),
		Field(FieldLastName, Required(t("validation.last_name_required"))),
		Field(FieldPhoneNumber,
			Required(t("validation.phone_required")),
			Phone(t("validation.phone_invalid")),
		),
		Field(FieldGender, Required(t("validation.gender_required"))),
		birthDate(t, now),
	)
}

// AppointmentSchema validates the appointment request form.
func AppointmentSchema(t Messages) *Schema {
	return NewSchema(
		Field(FieldFirstName, Required(t("validation.first_name_required"))),
		Field(FieldLastName, Required(t("validation.last_name_required"))),
		Field(FieldEmail,
			Required(t("validation.email_required")),
			Email(t("validation.email_invalid")),
		),
		Field(FieldPhone,
			Required(t("validation.phone_required")),
			Phone(t("validation.phone_invalid")),
		),
		Field(FieldServiceType, Required(t("validation.service_type_required"))),
		Field(FieldPreferredDate,
			Required(t("validation.date_required")),
			Date(t("validation.date_required")),
		),
		Field(FieldPreferredTime, Required(t("validation.time_required"))),
		Field(FieldProjectDetails,
			MinLen(10, t("validation.details_min")),
			MaxLen(1000, t("validation.details_max")),
		),
		Field(FieldTermsAccepted, Checked(t("validation.terms_required"))),
	)
}

// ContactSchema validates the contact form.
func ContactSchema(t Messages) *Schema {
	return NewSchema(
		Field(FieldName, Required(t("validation.name_required"))),
		Field(FieldEmail, Email(t("validation.email_invalid"))),
		Field(FieldPhone, MinLen(5, t("validation.phone_required"))),
		Field(FieldService, Required(t("validation.service_required"))),
		Field(FieldMessage, Required(t("validation.message_required"))),
	)
}

func birthDate(t Messages, now func() time.Time) FieldSpec {
	return Field(FieldDateOfBirth,
		Required(t("validation.birth_date_required")),
		Date(t("validation.birth_date_required")),
		MinAge(MinimumAge, now, t("validation.age_minimum")),
	)
}
