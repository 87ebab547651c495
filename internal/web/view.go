package web

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/alecgard/mbnakom/internal/admin"
	"github.com/alecgard/mbnakom/internal/backend"
	"github.com/alecgard/mbnakom/internal/form"
	"github.com/alecgard/mbnakom/internal/i18n"
	"github.com/alecgard/mbnakom/internal/session"
	"github.com/alecgard/mbnakom/internal/token"
)

// pageData is what every page template receives.
type pageData struct {
	L     i18n.Localizer
	Title string
	// Path is the current path without its locale segment.
	Path        string
	Here        string
	OtherLocale string
	User        *token.Claims
	IsAdmin     bool
	Flash       *Flash
	Form        *FormView
	Status      int

	Profile      *backend.User
	Appointments []backend.Appointment

	Tab               string
	Query             string
	Stats             admin.Stats
	Users             *admin.Page[backend.User]
	AdminAppointments *admin.Page[backend.Appointment]
	Statuses          []backend.AppointmentStatus
}

func (s *server) page(w http.ResponseWriter, r *http.Request, titleKey string) *pageData {
	locale := i18n.FromContext(r.Context())
	l := s.catalog.Localizer(locale)
	_, rest, _ := i18n.SplitPath(r.URL.Path)

	d := &pageData{
		L:           l,
		Title:       l.T(titleKey),
		Path:        rest,
		Here:        i18n.Path(locale, rest),
		OtherLocale: otherLocale(locale),
		User:        session.FromContext(r.Context()).CurrentUser(),
		Flash:       takeFlash(w, r),
	}
	d.IsAdmin = d.User != nil && d.User.HasRole(token.RoleAdmin)
	return d
}

func otherLocale(locale string) string {
	if locale == i18n.Arabic {
		return i18n.English
	}
	return i18n.Arabic
}

// secretFields are never echoed back into a re-rendered form.
var secretFields = map[string]bool{
	form.FieldPassword:        true,
	form.FieldConfirmPassword: true,
}

// FormView is one rendered form instance.
type FormView struct {
	// ID identifies the instance so a double submit is refused.
	ID     string
	Values form.Values
	Errors form.Errors
}

func newForm(values form.Values) *FormView {
	if values == nil {
		values = form.Values{}
	}
	return &FormView{ID: uuid.NewString(), Values: values, Errors: form.Errors{}}
}

// FieldView is the view model of one input.
type FieldView struct {
	Name    string
	Label   string
	Type    string
	Value   string
	Error   string
	Checked bool
	Options []string
}

// Field describes a text-like input.
func (f *FormView) Field(name, label, typ string) FieldView {
	v := f.Values.Get(name)
	if secretFields[name] {
		v = ""
	}
	return FieldView{Name: name, Label: label, Type: typ, Value: v, Error: f.Errors[name]}
}

// Check describes a checkbox.
func (f *FormView) Check(name, label string) FieldView {
	return FieldView{Name: name, Label: label, Type: "checkbox",
		Checked: form.IsChecked(f.Values.Get(name)), Error: f.Errors[name]}
}

// Select describes a drop-down of options. The current value selects the
// option it matches case-insensitively.
func (f *FormView) Select(name, label string, options ...string) FieldView {
	v := f.Values.Get(name)
	for _, o := range options {
		if strings.EqualFold(o, v) {
			v = o
			break
		}
	}
	return FieldView{Name: name, Label: label, Type: "select",
		Value: v, Error: f.Errors[name], Options: options}
}
