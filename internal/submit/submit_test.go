package submit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alecgard/mbnakom/internal/backend"
	"github.com/alecgard/mbnakom/internal/form"
	"github.com/alecgard/mbnakom/internal/i18n"
)

// --- Fakes ---

type recorder struct {
	events   []string
	loginErr error
}

func (r *recorder) Notify(level Level, message string) {
	r.events = append(r.events, fmt.Sprintf("notify:%s:%s", level, message))
}

func (r *recorder) Reset() { r.events = append(r.events, "reset") }

func (r *recorder) Login(token string) error {
	r.events = append(r.events, "login:"+token)
	return r.loginErr
}

func (r *recorder) Navigate(path string) { r.events = append(r.events, "navigate:"+path) }

type fakeBackend struct {
	mu    sync.Mutex
	calls int

	login       *backend.Envelope[string]
	appointment *backend.Envelope[int]
	err         error
	release     chan struct{}
}

func (f *fakeBackend) count() {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
}

func (f *fakeBackend) Login(_ context.Context, _ backend.LoginRequest) (*backend.Envelope[string], error) {
	f.count()
	if f.release != nil {
		<-f.release
	}
	return f.login, f.err
}

func (f *fakeBackend) Register(_ context.Context, _ backend.RegisterRequest) (*backend.Envelope[json.RawMessage], error) {
	f.count()
	return &backend.Envelope[json.RawMessage]{Success: true}, f.err
}

func (f *fakeBackend) UpdateUser(_ context.Context, _ string, _ backend.UpdateUser) (*backend.Envelope[bool], error) {
	f.count()
	return &backend.Envelope[bool]{Success: true, Data: true}, f.err
}

func (f *fakeBackend) CreateAppointment(_ context.Context, _ backend.CreateAppointment) (*backend.Envelope[int], error) {
	f.count()
	return f.appointment, f.err
}

type fakeMetrics struct{ results []string }

func (f *fakeMetrics) IncSubmission(action, result string) {
	f.results = append(f.results, action+":"+result)
}

// --- Helpers ---

func echo(key string) string { return key }

func english(t *testing.T) form.Messages {
	t.Helper()
	cat, err := i18n.LoadCatalog()
	require.NoError(t, err)
	return cat.Localizer(i18n.English).T
}

func loginInput() Input {
	return Input{
		InstanceID: "form-1",
		Values:     form.Values{form.FieldLoginIdentifier: "a@b.com", form.FieldPassword: "x"},
		Locale:     i18n.English,
		T:          echo,
	}
}

func validSignUp() form.Values {
	return form.Values{
		form.FieldUsername:        "alice",
		form.FieldEmail:           "alice@example.com",
		form.FieldPassword:        "Secret123",
		form.FieldConfirmPassword: "Secret123",
		form.FieldFirstName:       "Alice",
		form.FieldLastName:        "Hassan",
		form.FieldPhoneNumber:     "0501234567",
		form.FieldGender:          "female",
		form.FieldDateOfBirth:     "1990-01-01",
		form.FieldTermsAccepted:   "on",
	}
}

// --- Tests ---

func TestLoginSuccess_Ordering(t *testing.T) {
	b := &fakeBackend{login: &backend.Envelope[string]{Success: true, Data: "<token>"}}
	c := New(LoginAction(b), nil)
	m := &fakeMetrics{}
	c.SetMetrics(m)
	r := &recorder{}

	out, err := c.Submit(context.Background(), loginInput(), r)
	require.NoError(t, err)

	assert.Equal(t, ResultSucceeded, out.Result)
	assert.Equal(t, "/en/", out.Target)
	assert.Equal(t, []string{
		"login:<token>",
		"notify:success:notifications.login_success",
		"navigate:/en/",
	}, r.events)
	assert.Equal(t, []string{"login:succeeded"}, m.results)
}

func TestLoginTaken_AttachesToIdentifierAndPassword(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"message":"Email or Phone is already taken."}`)
	}))
	defer srv.Close()

	c := New(LoginAction(backend.NewClient(srv.URL, 5*time.Second)), nil)
	r := &recorder{}
	in := loginInput()
	in.T = english(t)

	out, err := c.Submit(context.Background(), in, r)
	require.NoError(t, err)

	assert.Equal(t, ResultFailed, out.Result)
	assert.Equal(t, form.Errors{
		form.FieldLoginIdentifier: "User already exists.",
		form.FieldPassword:        "User already exists.",
	}, out.Errors)
	assert.Equal(t, []string{"notify:error:User already exists."}, r.events)
}

func TestInvalidValues_NoNetworkCall(t *testing.T) {
	b := &fakeBackend{}
	c := New(LoginAction(b), nil)
	r := &recorder{}
	in := loginInput()
	in.Values = form.Values{form.FieldLoginIdentifier: "a b"}

	out, err := c.Submit(context.Background(), in, r)
	require.NoError(t, err)

	assert.Equal(t, ResultInvalid, out.Result)
	assert.Equal(t, "validation.identifier_invalid", out.Errors[form.FieldLoginIdentifier])
	assert.Equal(t, "validation.password_required", out.Errors[form.FieldPassword])
	assert.Zero(t, b.calls)
	assert.Empty(t, r.events)
}

func TestFailureMessagePriority(t *testing.T) {
	tests := []struct {
		name string
		env  *backend.Envelope[string]
		err  error
		want string
	}{
		{
			name: "server message on http error",
			err:  &backend.APIError{Status: 401, Problem: backend.Problem{Message: "Invalid credentials."}, HasProblem: true},
			want: "Invalid credentials.",
		},
		{
			name: "server message on success=false",
			env:  &backend.Envelope[string]{Success: false, Message: "Account locked."},
			want: "Account locked.",
		},
		{
			name: "generic on transport error",
			err:  errors.New("dial tcp: connection refused"),
			want: "notifications.error_generic",
		},
		{
			name: "generic on http error without problem",
			err:  &backend.APIError{Status: 502},
			want: "notifications.error_generic",
		},
		{
			name: "success without token",
			env:  &backend.Envelope[string]{Success: true},
			want: "notifications.error_generic",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := &fakeBackend{login: tt.env, err: tt.err}
			r := &recorder{}

			out, err := New(LoginAction(b), nil).Submit(context.Background(), loginInput(), r)
			require.NoError(t, err)

			assert.Equal(t, ResultFailed, out.Result)
			assert.Equal(t, tt.want, out.Message)
			assert.Empty(t, out.Errors)
			assert.Equal(t, []string{"notify:error:" + tt.want}, r.events)
		})
	}
}

func TestLoginRejectedToken_NoNavigation(t *testing.T) {
	b := &fakeBackend{login: &backend.Envelope[string]{Success: true, Data: "garbage"}}
	r := &recorder{loginErr: errors.New("malformed")}

	out, err := New(LoginAction(b), nil).Submit(context.Background(), loginInput(), r)
	require.NoError(t, err)

	assert.Equal(t, ResultFailed, out.Result)
	assert.Equal(t, []string{"login:garbage", "notify:error:notifications.error_generic"}, r.events)
}

func TestBusyInstance_BlocksReentry(t *testing.T) {
	b := &fakeBackend{
		login:   &backend.Envelope[string]{Success: true, Data: "tok"},
		release: make(chan struct{}),
	}
	busy := NewRegistry()
	c := New(LoginAction(b), busy)

	done := make(chan error, 1)
	go func() {
		_, err := c.Submit(context.Background(), loginInput(), &recorder{})
		done <- err
	}()

	require.Eventually(t, func() bool { return busy.Busy("form-1") }, time.Second, time.Millisecond)

	_, err := c.Submit(context.Background(), loginInput(), &recorder{})
	assert.ErrorIs(t, err, ErrBusy)

	// Another instance of the same form is independent.
	assert.False(t, busy.Busy("form-2"))

	close(b.release)
	require.NoError(t, <-done)

	other := loginInput()
	other.InstanceID = "form-2"
	_, err = c.Submit(context.Background(), other, &recorder{})
	require.NoError(t, err)
	assert.False(t, busy.Busy("form-1"))
}

func TestSignUpPatterns(t *testing.T) {
	tests := []struct {
		message string
		field   string
		want    string
	}{
		{MessageTaken, form.FieldEmail, "notifications.error_user_exists"},
		{MessageMissingDetails, form.FieldUsername, "notifications.error_registration_details"},
	}
	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			b := &fakeBackend{err: &backend.APIError{Status: 400, Problem: backend.Problem{Message: tt.message}, HasProblem: true}}
			now := func() time.Time { return time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC) }
			r := &recorder{}

			out, err := New(SignUpAction(b, now), nil).Submit(context.Background(), Input{
				InstanceID: "s", Values: validSignUp(), Locale: i18n.Arabic, T: echo,
			}, r)
			require.NoError(t, err)

			assert.Equal(t, form.Errors{tt.field: tt.want}, out.Errors)
			assert.Equal(t, []string{"notify:error:" + tt.want}, r.events)
		})
	}
}

func TestSignUpSuccess_NavigatesToLogin(t *testing.T) {
	b := &fakeBackend{}
	now := func() time.Time { return time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC) }
	r := &recorder{}

	out, err := New(SignUpAction(b, now), nil).Submit(context.Background(), Input{
		InstanceID: "s", Values: validSignUp(), Locale: i18n.Arabic, T: echo,
	}, r)
	require.NoError(t, err)

	assert.Equal(t, "/ar/login", out.Target)
	assert.Equal(t, []string{"notify:success:notifications.signup_success", "navigate:/ar/login"}, r.events)
}

func TestAppointment_ResetsBeforeNavigate(t *testing.T) {
	b := &fakeBackend{appointment: &backend.Envelope[int]{Success: true, Data: 7}}
	r := &recorder{}
	values := form.Values{
		form.FieldFirstName:      "Omar",
		form.FieldLastName:       "Ali",
		form.FieldEmail:          "omar@example.com",
		form.FieldPhone:          "0501234567",
		form.FieldServiceType:    "design",
		form.FieldPreferredDate:  "2025-07-01",
		form.FieldPreferredTime:  "10:00",
		form.FieldProjectDetails: "A small kitchen remodel.",
		form.FieldTermsAccepted:  "on",
	}

	_, err := New(AppointmentAction(b, ""), nil).Submit(context.Background(), Input{
		InstanceID: "a", Values: values, Locale: "xx", T: echo,
	}, r)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"notify:success:notifications.appointment_success",
		"reset",
		"navigate:/en/",
	}, r.events)
}

func TestAppointment_FallbackMessage(t *testing.T) {
	b := &fakeBackend{appointment: &backend.Envelope[int]{Success: false}}
	r := &recorder{}
	values := form.Values{
		form.FieldFirstName:      "Omar",
		form.FieldLastName:       "Ali",
		form.FieldEmail:          "omar@example.com",
		form.FieldPhone:          "0501234567",
		form.FieldServiceType:    "design",
		form.FieldPreferredDate:  "2025-07-01",
		form.FieldPreferredTime:  "10:00",
		form.FieldProjectDetails: "A small kitchen remodel.",
		form.FieldTermsAccepted:  "on",
	}

	out, err := New(AppointmentAction(b, "u1"), nil).Submit(context.Background(), Input{
		InstanceID: "a", Values: values, Locale: i18n.English, T: echo,
	}, r)
	require.NoError(t, err)
	assert.Equal(t, "notifications.appointment_error", out.Message)
}

func TestProfileSave_SendsInterests(t *testing.T) {
	cases := map[string]struct {
		posted string
		want   string
	}{
		"kept":  {posted: "tiling, roofing ,", want: `["tiling","roofing"]`},
		"empty": {posted: "", want: `[]`},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			var body map[string]json.RawMessage
			var method, path string
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				method, path = r.Method, r.URL.Path
				assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
				_, _ = io.WriteString(w, `{"success":true,"data":true}`)
			}))
			defer srv.Close()

			now := func() time.Time { return time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC) }
			c := New(ProfileAction(backend.NewClient(srv.URL, 5*time.Second), now, "u1"), nil)
			out, err := c.Submit(context.Background(), Input{
				InstanceID: "profile-1",
				Values: form.Values{
					form.FieldUserName:    "alice",
					form.FieldFirstName:   "Alice",
					form.FieldLastName:    "Hassan",
					form.FieldPhoneNumber: "0501234567",
					form.FieldGender:      "Female",
					form.FieldDateOfBirth: "1990-01-01",
					FieldInterests:        tc.posted,
				},
				Locale: i18n.English,
				T:      echo,
			}, &recorder{})
			require.NoError(t, err)
			require.Equal(t, ResultSucceeded, out.Result)

			assert.Equal(t, http.MethodPut, method)
			assert.Equal(t, "/User/u1", path)
			assert.JSONEq(t, tc.want, string(body["interests"]))
		})
	}
}
