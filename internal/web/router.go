// Package web serves the localized site: pages, form posts, the contact
// endpoint and the operational endpoints.
package web

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/alecgard/mbnakom/internal/auth"
	"github.com/alecgard/mbnakom/internal/backend"
	"github.com/alecgard/mbnakom/internal/contact"
	"github.com/alecgard/mbnakom/internal/i18n"
	"github.com/alecgard/mbnakom/internal/leads"
	"github.com/alecgard/mbnakom/internal/metrics"
	"github.com/alecgard/mbnakom/internal/ratelimit"
	"github.com/alecgard/mbnakom/internal/session"
	"github.com/alecgard/mbnakom/internal/submit"
	"github.com/alecgard/mbnakom/internal/token"
	"github.com/alecgard/mbnakom/internal/ui"
)

// Backend is the part of the backend API the site uses.
type Backend interface {
	submit.Backend
	GetUser(ctx context.Context, id string) (*backend.Envelope[backend.User], error)
	ListUserAppointments(ctx context.Context, userID string) ([]backend.Appointment, error)
	ListUsers(ctx context.Context) ([]backend.User, error)
	ListAppointments(ctx context.Context) ([]backend.Appointment, error)
	UpdateAppointmentStatus(ctx context.Context, id int, status backend.AppointmentStatus) (*backend.Envelope[bool], error)
	DeleteAppointment(ctx context.Context, id int) (*backend.Envelope[bool], error)
}

// Archiver keeps a copy of appointment requests.
type Archiver interface {
	Record(l leads.Lead)
}

// Recorder receives the web layer's metrics.
type Recorder interface {
	submit.MetricsRecorder
	IncRateLimitRejection(limiter string)
}

// RouterDeps holds all dependencies for the site router.
type RouterDeps struct {
	Backend  Backend
	Sessions *session.Manager
	Guard    *auth.Guard
	Catalog  *i18n.Catalog
	Renderer *ui.Renderer
	Contact  *contact.Service
	// Optional.
	Leads          Archiver
	Metrics        *metrics.Metrics
	ContactLimiter *ratelimit.Limiter
	FormLimiter    *ratelimit.Limiter
	Now            func() time.Time
}

type server struct {
	backend  Backend
	sessions *session.Manager
	catalog  *i18n.Catalog
	renderer *ui.Renderer
	contact  *contact.Service
	leads    Archiver
	busy     *submit.Registry
	metrics  Recorder
	now      func() time.Time
}

// NewRouter builds the chi router with all routes and middleware.
func NewRouter(deps RouterDeps) http.Handler {
	s := &server{
		backend:  deps.Backend,
		sessions: deps.Sessions,
		catalog:  deps.Catalog,
		renderer: deps.Renderer,
		contact:  deps.Contact,
		leads:    deps.Leads,
		busy:     submit.NewRegistry(),
		now:      deps.Now,
	}
	if s.now == nil {
		s.now = time.Now
	}
	if deps.Metrics != nil {
		s.metrics = deps.Metrics
	}

	r := chi.NewRouter()

	// Global middleware.
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	r.Use(requestIDMiddleware)
	r.Use(secureHeaders)
	r.Use(slogRequestLogger)
	if deps.Metrics != nil {
		r.Use(deps.Metrics.Middleware)
	}
	r.Use(i18n.Middleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if deps.Metrics != nil {
		r.Handle("/metrics", deps.Metrics.Exposition())
		r.Get("/metrics/summary", deps.Metrics.Handler())
	}
	r.Handle("/static/*", deps.Renderer.Static())

	// The contact handler answers every method itself so non-POST requests
	// get its 405 body.
	var contactHandler http.Handler = contact.NewHandler(deps.Contact)
	if deps.ContactLimiter != nil {
		contactHandler = ratelimit.Middleware(deps.ContactLimiter, ratelimit.ClientIP,
			s.rejected("contact", contact.RateLimited))(contactHandler)
	}
	r.Handle("/api/contact", contactHandler)
	r.Handle("/api/*", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not_found", "no such endpoint")
	}))

	limitForms := func(next http.Handler) http.Handler { return next }
	if deps.FormLimiter != nil {
		limitForms = ratelimit.Middleware(deps.FormLimiter, ratelimit.ClientIP,
			s.rejected("forms", func(w http.ResponseWriter, r *http.Request) {
				s.renderError(w, r, http.StatusTooManyRequests)
			}))
	}

	guard := deps.Guard
	r.Route("/{locale}", func(lr chi.Router) {
		lr.Use(requireLocale)
		lr.Use(deps.Sessions.Middleware)

		lr.Get("/", s.showForm(homePage))
		lr.Get("/about", s.static("about", "pages.about.title"))
		lr.Get("/services", s.static("services", "pages.services.title"))
		lr.Get("/projects", s.static("projects", "pages.projects.title"))
		lr.Get("/unAuthorized", s.unauthorized)

		lr.With(guard.RedirectAuthenticated("/profile")).Get("/login", s.showForm(loginPage))
		lr.With(guard.RedirectAuthenticated("/profile")).Get("/signUp", s.showForm(signUpPage))
		lr.Get("/appointments", s.showForm(appointmentPage))

		lr.Group(func(fr chi.Router) {
			fr.Use(limitForms)
			fr.Post("/contact", s.submitForm(homePage))
			fr.Post("/login", s.submitForm(loginPage))
			fr.Post("/signUp", s.submitForm(signUpPage))
			fr.Post("/appointments", s.submitForm(appointmentPage))
		})
		lr.Post("/logout", s.logout)
		lr.Post("/language", s.language)

		lr.Group(func(ar chi.Router) {
			ar.Use(guard.RequireAuth)
			ar.Get("/profile", s.showForm(profilePage))
			ar.With(limitForms).Post("/profile", s.submitForm(profilePage))
		})

		lr.Group(func(ar chi.Router) {
			ar.Use(guard.RequireRole(token.RoleAdmin))
			ar.Get("/adminDashboard", s.adminDashboard)
			ar.Post("/adminDashboard/appointments/{id}/status", s.updateAppointmentStatus)
			ar.Post("/adminDashboard/appointments/{id}/delete", s.deleteAppointment)
		})

		lr.NotFound(func(w http.ResponseWriter, r *http.Request) {
			s.renderError(w, r, http.StatusNotFound)
		})
	})

	return r
}

// requireLocale refuses first segments that are not a supported locale,
// such as public files the locale middleware lets through.
func requireLocale(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !i18n.IsSupported(chi.URLParam(r, "locale")) {
			http.NotFound(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// rejected counts a throttled request before answering it.
func (s *server) rejected(limiter string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slog.Warn("rate limit exceeded", "limiter", limiter, "client", ratelimit.ClientIP(r))
		if s.metrics != nil {
			s.metrics.IncRateLimitRejection(limiter)
		}
		next(w, r)
	}
}

// slogRequestLogger is a simple structured logging middleware using slog.
func slogRequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		slog.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"bytes", ww.BytesWritten(),
			"request_id", RequestIDFromContext(r.Context()),
		)
	})
}
