package form

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// echo returns message keys untranslated so tests can assert on them.
func echo(key string) string { return key }

func fixedNow(y int, m time.Month, d int) func() time.Time {
	return func() time.Time { return time.Date(y, m, d, 10, 0, 0, 0, time.UTC) }
}

func TestValidate_FirstFailingMessagePerField(t *testing.T) {
	s := NewSchema(
		Field("a", Required("a.required"), MinLen(3, "a.min")),
		Field("b", Required("b.required")),
	)

	errs := s.Validate(Values{"a": "x", "b": "ok"})
	assert.Equal(t, Errors{"a": "a.min"}, errs)

	errs = s.Validate(Values{})
	assert.Equal(t, Errors{"a": "a.required", "b": "b.required"}, errs)

	assert.Empty(t, s.Validate(Values{"a": "xyz", "b": "ok"}))
	assert.Equal(t, []string{"a", "b"}, s.Fields())
}

func TestValidateField(t *testing.T) {
	s := NewSchema(Field("a", Required("a.required")))

	msg, ok := s.ValidateField("a", Values{})
	assert.False(t, ok)
	assert.Equal(t, "a.required", msg)

	_, ok = s.ValidateField("unknown", Values{})
	assert.True(t, ok)
}

func TestAgeAt(t *testing.T) {
	today := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		birth string
		want  int
	}{
		{"2012-06-15", 13},
		{"2012-06-16", 12},
		{"2012-07-01", 12},
		{"2012-05-31", 13},
		{"2000-02-29", 25},
		{"2025-06-15", 0},
	}
	for _, tt := range tests {
		birth, err := time.Parse(DateLayout, tt.birth)
		require.NoError(t, err)
		assert.Equal(t, tt.want, AgeAt(birth, today), tt.birth)
	}
}

func TestMinAgeBoundary(t *testing.T) {
	s := NewSchema(Field(FieldDateOfBirth, MinAge(13, fixedNow(2025, time.June, 15), "too.young")))

	assert.Empty(t, s.Validate(Values{FieldDateOfBirth: "2012-06-15"}))
	assert.Equal(t, Errors{FieldDateOfBirth: "too.young"}, s.Validate(Values{FieldDateOfBirth: "2012-06-16"}))
	assert.Equal(t, Errors{FieldDateOfBirth: "too.young"}, s.Validate(Values{FieldDateOfBirth: "not a date"}))
}

func TestIsPhone(t *testing.T) {
	valid := []string{"0501234567", "+966501234567", "+1 (555) 123-4567", "123456789012345"}
	invalid := []string{"", "12345", "+12345678", "1234567890123456", "050-abc-4567", "++966501234567", "phone 0501234567"}

	for _, v := range valid {
		assert.True(t, IsPhone(v), v)
	}
	for _, v := range invalid {
		assert.False(t, IsPhone(v), v)
	}
	assert.Equal(t, "15551234567", Digits("+1 (555) 123-4567"))
}

func TestIsEmail(t *testing.T) {
	assert.True(t, IsEmail("a@b.com"))
	assert.False(t, IsEmail(""))
	assert.False(t, IsEmail("a@"))
	assert.False(t, IsEmail("not an email"))
}

func TestIsLoginIdentifier(t *testing.T) {
	for _, v := range []string{"a@b.com", "+9665012345", "0501234", "alice", "a.b-c"} {
		assert.True(t, IsLoginIdentifier(v), v)
	}
	for _, v := range []string{"ab", "a b", "x@y", "!!!"} {
		assert.False(t, IsLoginIdentifier(v), v)
	}
}

func TestLoginSchema(t *testing.T) {
	s := LoginSchema(echo)

	assert.Equal(t, Errors{
		FieldLoginIdentifier: "validation.identifier_required",
		FieldPassword:        "validation.password_required",
	}, s.Validate(Values{}))

	assert.Equal(t, Errors{FieldLoginIdentifier: "validation.identifier_invalid"},
		s.Validate(Values{FieldLoginIdentifier: "a b", FieldPassword: "x"}))

	assert.Empty(t, s.Validate(Values{FieldLoginIdentifier: "a@b.com", FieldPassword: "x"}))
}

func validSignUp() Values {
	return Values{
		FieldUsername:        "alice_1",
		FieldEmail:           "alice@example.com",
		FieldPassword:        "Secret123",
		FieldConfirmPassword: "Secret123",
		FieldFirstName:       "Alice",
		FieldLastName:        "Hassan",
		FieldPhoneNumber:     "+966 50 123 4567",
		FieldGender:          "female",
		FieldDateOfBirth:     "2000-01-01",
		FieldTermsAccepted:   "on",
	}
}

func TestSignUpSchema(t *testing.T) {
	s := SignUpSchema(echo, fixedNow(2025, time.June, 15))
	require.Empty(t, s.Validate(validSignUp()))

	tests := []struct {
		name  string
		field string
		value string
		want  string
	}{
		{"short username", FieldUsername, "al", "validation.username_min"},
		{"long username", FieldUsername, "abcdefghijklmnopqrstu", "validation.username_max"},
		{"username chars", FieldUsername, "alice!", "validation.username_regex"},
		{"missing email", FieldEmail, "", "validation.email_required"},
		{"bad email", FieldEmail, "alice@", "validation.email_invalid"},
		{"missing password", FieldPassword, "", "validation.password_required"},
		{"short password", FieldPassword, "Ab1", "validation.password_min"},
		{"no uppercase", FieldPassword, "secret123", "validation.password_uppercase"},
		{"no digit", FieldPassword, "Secretsss", "validation.password_number"},
		{"missing phone", FieldPhoneNumber, "", "validation.phone_required"},
		{"bad phone", FieldPhoneNumber, "12345", "validation.phone_invalid"},
		{"missing gender", FieldGender, "", "validation.gender_required"},
		{"missing birth date", FieldDateOfBirth, "", "validation.birth_date_required"},
		{"bad birth date", FieldDateOfBirth, "15/06/2000", "validation.birth_date_required"},
		{"too young", FieldDateOfBirth, "2012-06-16", "validation.age_minimum"},
		{"terms not accepted", FieldTermsAccepted, "", "validation.terms_required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := validSignUp()
			v[tt.field] = tt.value
			if tt.field == FieldPassword {
				v[FieldConfirmPassword] = tt.value
			}
			errs := s.Validate(v)
			assert.Equal(t, tt.want, errs[tt.field])
		})
	}
}

func TestSignUpSchema_ConfirmPasswordCarriesMismatch(t *testing.T) {
	s := SignUpSchema(echo, fixedNow(2025, time.June, 15))
	v := validSignUp()
	v[FieldConfirmPassword] = "Different123"

	errs := s.Validate(v)
	assert.Equal(t, Errors{FieldConfirmPassword: "validation.passwords_match"}, errs)
}

func TestAppointmentSchema(t *testing.T) {
	s := AppointmentSchema(echo)
	v := Values{
		FieldFirstName:      "Omar",
		FieldLastName:       "Ali",
		FieldEmail:          "omar@example.com",
		FieldPhone:          "0501234567",
		FieldServiceType:    "renovation",
		FieldPreferredDate:  "2025-07-01",
		FieldPreferredTime:  "10:00",
		FieldProjectDetails: "Two-floor villa, full finishing.",
		FieldTermsAccepted:  "true",
	}
	require.Empty(t, s.Validate(v))

	v[FieldProjectDetails] = "short"
	assert.Equal(t, "validation.details_min", s.Validate(v)[FieldProjectDetails])

	long := make([]rune, 1001)
	for i := range long {
		long[i] = 'ب'
	}
	v[FieldProjectDetails] = string(long)
	assert.Equal(t, "validation.details_max", s.Validate(v)[FieldProjectDetails])
}

func TestContactSchema(t *testing.T) {
	s := ContactSchema(echo)
	errs := s.Validate(Values{})
	assert.Equal(t, Errors{
		FieldName:    "validation.name_required",
		FieldEmail:   "validation.email_invalid",
		FieldPhone:   "validation.phone_required",
		FieldService: "validation.service_required",
		FieldMessage: "validation.message_required",
	}, errs)
}

func TestState_BlurChangeSubmit(t *testing.T) {
	s := SignUpSchema(echo, fixedNow(2025, time.June, 15))
	initial := validSignUp()
	initial[FieldConfirmPassword] = ""
	st := NewState(s, initial)

	// Untouched fields are not reported until blur or submit.
	assert.Empty(t, st.Errors)

	st.Blur(FieldConfirmPassword)
	assert.Equal(t, "validation.confirm_password_required", st.Errors[FieldConfirmPassword])

	st.Change(FieldConfirmPassword, "Other999")
	assert.Equal(t, "validation.passwords_match", st.Errors[FieldConfirmPassword])

	// Editing the password re-checks the dependent, touched confirmation.
	st.Change(FieldPassword, "Other999")
	assert.NotContains(t, st.Errors, FieldConfirmPassword)

	assert.True(t, st.Submit())

	st.Change(FieldEmail, "broken")
	assert.False(t, st.Submit())
	assert.Equal(t, "validation.email_invalid", st.Errors[FieldEmail])

	st.SetErrors(Errors{FieldUsername: "taken"})
	assert.Equal(t, "taken", st.Errors[FieldUsername])

	st.Reset()
	assert.Empty(t, st.Errors)
	assert.Equal(t, "", st.Values[FieldConfirmPassword])
	assert.Equal(t, initial[FieldEmail], st.Values[FieldEmail])
}

func TestErrorsAny(t *testing.T) {
	assert.False(t, Errors{}.Any())
	assert.False(t, Errors{"a": ""}.Any())
	assert.True(t, Errors{"a": "x"}.Any())
}
