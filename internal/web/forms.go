package web

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/alecgard/mbnakom/internal/auth"
	"github.com/alecgard/mbnakom/internal/backend"
	"github.com/alecgard/mbnakom/internal/contact"
	"github.com/alecgard/mbnakom/internal/form"
	"github.com/alecgard/mbnakom/internal/i18n"
	"github.com/alecgard/mbnakom/internal/leads"
	"github.com/alecgard/mbnakom/internal/session"
	"github.com/alecgard/mbnakom/internal/submit"
)

// instanceField carries the form instance id.
const instanceField = "_form"

// formPage is a page built around one form.
type formPage struct {
	template string
	title    string
	action   func(s *server, r *http.Request) submit.Action
	// load fills page data. initial is true on GET, when it may also seed
	// the form values.
	load func(s *server, r *http.Request, d *pageData, initial bool)
}

var (
	homePage = formPage{
		template: "home",
		title:    "pages.home.title",
		action: func(s *server, r *http.Request) submit.Action {
			return contactAction(s.contact, i18n.FromContext(r.Context()))
		},
	}
	loginPage = formPage{
		template: "login",
		title:    "pages.login.title",
		action: func(s *server, _ *http.Request) submit.Action {
			return submit.LoginAction(s.backend)
		},
	}
	signUpPage = formPage{
		template: "signUp",
		title:    "pages.signup.title",
		action: func(s *server, _ *http.Request) submit.Action {
			return submit.SignUpAction(s.backend, s.now)
		},
	}
	appointmentPage = formPage{
		template: "appointments",
		title:    "pages.appointments.title",
		action:   (*server).appointmentAction,
		load:     loadAppointment,
	}
	profilePage = formPage{
		template: "profile",
		title:    "pages.profile.title",
		action: func(s *server, r *http.Request) submit.Action {
			return submit.ProfileAction(s.backend, s.now, currentUserID(r))
		},
		load: loadProfile,
	}
)

func (s *server) showForm(p formPage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d := s.page(w, r, p.title)
		d.Form = newForm(nil)
		if p.load != nil {
			p.load(s, r, d, true)
		}
		s.render(w, r, http.StatusOK, p.template, d)
	}
}

// submitForm runs the page's action. A success follows the action's
// navigation with the notification carried in the flash cookie; anything
// else re-renders the form with its errors.
func (s *server) submitForm(p formPage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			s.renderError(w, r, http.StatusBadRequest)
			return
		}
		values, id := postedValues(r)
		locale := i18n.FromContext(r.Context())
		l := s.catalog.Localizer(locale)

		act := p.action(s, r)
		ctrl := submit.New(act, s.busy)
		if s.metrics != nil {
			ctrl.SetMetrics(s.metrics)
		}

		sess := session.FromContext(r.Context())
		rc := &reactor{session: sess}
		ctx := backend.WithToken(r.Context(), sess.Token())

		out, err := ctrl.Submit(ctx, submit.Input{InstanceID: id, Values: values, Locale: locale, T: l.T}, rc)

		if err == nil && out.Result == submit.ResultSucceeded {
			s.afterSuccess(ctrl.Name(), values, locale)
			setFlash(w, rc.flash)
			target := rc.target
			if target == "" {
				target = r.URL.Path
			}
			http.Redirect(w, r, target, http.StatusSeeOther)
			return
		}

		d := s.page(w, r, p.title)
		st := form.NewState(act.Schema(l.T), nil)
		for k, v := range values {
			st.Change(k, v)
		}
		status := http.StatusUnprocessableEntity

		switch {
		case errors.Is(err, submit.ErrBusy):
			d.Flash = &Flash{Level: string(submit.LevelError), Message: l.T("notifications.busy")}
			status = http.StatusConflict
		case err != nil:
			slog.Error("form submission", "action", ctrl.Name(), "error", err)
			s.renderError(w, r, http.StatusInternalServerError)
			return
		default:
			st.SetErrors(out.Errors)
			if rc.flash != nil {
				d.Flash = rc.flash
			}
		}

		d.Form = &FormView{ID: id, Values: st.Values, Errors: st.Errors}
		if rc.reset {
			st.Reset()
			d.Form = newForm(st.Values)
		}
		if p.load != nil {
			p.load(s, r, d, false)
		}
		s.render(w, r, status, p.template, d)
	}
}

// afterSuccess archives appointment requests as leads.
func (s *server) afterSuccess(action string, v form.Values, locale string) {
	if action != "appointment" || s.leads == nil {
		return
	}
	name := strings.TrimSpace(v.Get(form.FieldFirstName) + " " + v.Get(form.FieldLastName))
	l := leads.New(leads.SourceAppointment, name, v.Get(form.FieldEmail), v.Get(form.FieldPhone),
		v.Get(form.FieldServiceType), v.Get(form.FieldProjectDetails), locale)
	s.leads.Record(l)
}

func postedValues(r *http.Request) (form.Values, string) {
	values := form.Values{}
	for k := range r.PostForm {
		if k == instanceField {
			continue
		}
		values[k] = r.PostForm.Get(k)
	}
	id := r.PostForm.Get(instanceField)
	if id == "" {
		id = newForm(nil).ID
	}
	return values, id
}

// reactor collects the side effects of one submission.
type reactor struct {
	session *session.Session
	flash   *Flash
	reset   bool
	target  string
}

func (rc *reactor) Notify(level submit.Level, message string) {
	rc.flash = &Flash{Level: string(level), Message: message}
}

func (rc *reactor) Reset() { rc.reset = true }

func (rc *reactor) Login(tok string) error { return rc.session.Login(tok) }

func (rc *reactor) Navigate(path string) { rc.target = path }

func (s *server) appointmentAction(r *http.Request) submit.Action {
	return submit.AppointmentAction(s.backend, currentUserID(r))
}

// contactAction sends the home page contact form through the contact
// service.
func contactAction(svc *contact.Service, locale string) submit.Action {
	return submit.Action{
		Name:       "contact",
		Schema:     form.ContactSchema,
		SuccessKey: "notifications.contact_success",
		FailureKey: "notifications.contact_error",
		Reset:      true,
		Target:     "/",
		Call: func(ctx context.Context, v form.Values) (submit.Response, error) {
			err := svc.Send(ctx, contact.Message{
				Name:    v.Get(form.FieldName),
				Email:   v.Get(form.FieldEmail),
				Phone:   v.Get(form.FieldPhone),
				Service: v.Get(form.FieldService),
				Message: v.Get(form.FieldMessage),
			}, locale)
			if err != nil {
				return submit.Response{}, err
			}
			return submit.Response{Success: true}, nil
		},
	}
}

func currentUserID(r *http.Request) string {
	if c := auth.ClaimsFromContext(r.Context()); c != nil {
		return c.ID
	}
	if u := session.FromContext(r.Context()).CurrentUser(); u != nil {
		return u.ID
	}
	return ""
}

// loadAppointment prefills contact details for signed-in visitors.
func loadAppointment(_ *server, r *http.Request, d *pageData, initial bool) {
	if !initial || d.User == nil {
		return
	}
	d.Form.Values[form.FieldFirstName] = d.User.FirstName
	d.Form.Values[form.FieldLastName] = d.User.LastName
	d.Form.Values[form.FieldEmail] = d.User.Email
	d.Form.Values[form.FieldPhone] = d.User.PhoneNumber
}

// loadProfile fetches the user and their appointments. Backend failures are
// shown as an error notification over whatever could be loaded.
func loadProfile(s *server, r *http.Request, d *pageData, initial bool) {
	id := currentUserID(r)
	ctx := backend.WithToken(r.Context(), session.FromContext(r.Context()).Token())

	env, err := s.backend.GetUser(ctx, id)
	if err != nil || !env.Success {
		slog.Warn("loading profile", "user_id", id, "error", err)
		if d.Flash == nil {
			d.Flash = &Flash{Level: string(submit.LevelError), Message: d.L.T("notifications.error_generic")}
		}
	} else {
		u := env.Data
		d.Profile = &u
		if initial {
			d.Form.Values = profileValues(u)
		}
	}

	appts, err := s.backend.ListUserAppointments(ctx, id)
	if err != nil {
		slog.Warn("loading user appointments", "user_id", id, "error", err)
		return
	}
	d.Appointments = appts
}

func profileValues(u backend.User) form.Values {
	v := form.Values{
		form.FieldUserName:    u.UserName,
		form.FieldEmail:       u.Email,
		form.FieldFirstName:   u.FirstName,
		form.FieldLastName:    u.LastName,
		form.FieldPhoneNumber: u.PhoneNumber,
		form.FieldGender:      u.Gender,
		submit.FieldInterests: strings.Join(u.Interests, ", "),
	}
	if t, ok := u.BirthDate(); ok {
		v[form.FieldDateOfBirth] = t.Format("2006-01-02")
	}
	for name, p := range map[string]*string{
		submit.FieldBio:        u.Bio,
		submit.FieldOccupation: u.Occupation,
		submit.FieldLocation:   u.Location,
	} {
		if p != nil {
			v[name] = *p
		}
	}
	return v
}

func (s *server) logout(w http.ResponseWriter, r *http.Request) {
	locale := i18n.FromContext(r.Context())
	target := session.FromContext(r.Context()).Logout(locale)
	setFlash(w, &Flash{Level: string(submit.LevelSuccess), Message: s.catalog.Localizer(locale).T("notifications.logged_out")})
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// language switches the visitor to another locale and keeps them on the
// same page.
func (s *server) language(w http.ResponseWriter, r *http.Request) {
	locale := r.PostFormValue("locale")
	if !i18n.IsSupported(locale) {
		locale = i18n.Default
	}
	p := r.PostFormValue("path")
	if !strings.HasPrefix(p, "/") || strings.HasPrefix(p, "//") || strings.Contains(p, "\\") {
		p = "/"
	}
	i18n.SetCookie(w, locale)
	http.Redirect(w, r, i18n.Path(locale, p), http.StatusSeeOther)
}
