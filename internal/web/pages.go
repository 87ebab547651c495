package web

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"github.com/alecgard/mbnakom/internal/admin"
	"github.com/alecgard/mbnakom/internal/backend"
	"github.com/alecgard/mbnakom/internal/i18n"
	"github.com/alecgard/mbnakom/internal/session"
	"github.com/alecgard/mbnakom/internal/submit"
)

func (s *server) static(template, title string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.render(w, r, http.StatusOK, template, s.page(w, r, title))
	}
}

func (s *server) unauthorized(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "unAuthorized", s.page(w, r, "unauthorized.title"))
}

const (
	tabUsers        = "users"
	tabAppointments = "appointments"
)

// adminDashboard lists users or appointments, filtered by ?q and paginated
// by ?page. Both collections are fetched for the summary counts.
func (s *server) adminDashboard(w http.ResponseWriter, r *http.Request) {
	d := s.page(w, r, "pages.admin.title")
	d.Tab = r.URL.Query().Get("tab")
	if d.Tab != tabAppointments {
		d.Tab = tabUsers
	}
	d.Query = r.URL.Query().Get("q")
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))

	var (
		users []backend.User
		appts []backend.Appointment
	)
	ctx := backend.WithToken(r.Context(), session.FromContext(r.Context()).Token())
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		users, err = s.backend.ListUsers(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		appts, err = s.backend.ListAppointments(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		slog.Warn("loading admin dashboard", "error", err)
		d.Flash = &Flash{Level: string(submit.LevelError), Message: d.L.T("notifications.error_generic")}
	}

	d.Stats = admin.ComputeStats(users, appts, s.now())
	d.Statuses = backend.Statuses()
	if d.Tab == tabUsers {
		p := admin.List(users, d.Query, admin.UserFields, page, admin.DefaultPageSize)
		d.Users = &p
	} else {
		p := admin.List(appts, d.Query, admin.AppointmentFields, page, admin.DefaultPageSize)
		d.AdminAppointments = &p
	}
	s.render(w, r, http.StatusOK, "adminDashboard", d)
}

func (s *server) updateAppointmentStatus(w http.ResponseWriter, r *http.Request) {
	s.appointmentCommand(w, r, "notifications.status_updated", "notifications.status_error",
		func(r *http.Request, id int) (*backend.Envelope[bool], error) {
			status, err := backend.ParseAppointmentStatus(r.PostFormValue("status"))
			if err != nil {
				return nil, err
			}
			return s.backend.UpdateAppointmentStatus(r.Context(), id, status)
		})
}

func (s *server) deleteAppointment(w http.ResponseWriter, r *http.Request) {
	s.appointmentCommand(w, r, "notifications.deleted", "notifications.delete_error",
		func(r *http.Request, id int) (*backend.Envelope[bool], error) {
			return s.backend.DeleteAppointment(r.Context(), id)
		})
}

// appointmentCommand runs an admin action on one appointment and returns to
// the appointments tab with a notification.
func (s *server) appointmentCommand(w http.ResponseWriter, r *http.Request, okKey, failKey string,
	call func(r *http.Request, id int) (*backend.Envelope[bool], error)) {
	locale := i18n.FromContext(r.Context())
	l := s.catalog.Localizer(locale)

	f := &Flash{Level: string(submit.LevelSuccess), Message: l.T(okKey)}
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err == nil {
		ctx := backend.WithToken(r.Context(), session.FromContext(r.Context()).Token())
		var env *backend.Envelope[bool]
		env, err = call(r.WithContext(ctx), id)
		if err == nil && !env.Success {
			err = backend.ErrRejected
		}
	}
	if err != nil {
		slog.Warn("admin appointment command", "id", chi.URLParam(r, "id"), "error", err)
		f = &Flash{Level: string(submit.LevelError), Message: l.T(failKey)}
		if msg, ok := backend.ServerMessage(err); ok {
			f.Message = msg
		}
	}

	setFlash(w, f)
	http.Redirect(w, r, i18n.Path(locale, "/adminDashboard")+"?tab="+tabAppointments, http.StatusSeeOther)
}
