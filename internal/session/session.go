// Package session holds the signed-in identity of the visitor for the
// lifetime of one request. The raw token lives in a cookie; each request
// rebuilds the Session from it.
package session

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/alecgard/mbnakom/internal/i18n"
	"github.com/alecgard/mbnakom/internal/token"
)

const (
	// DefaultCookieName is the cookie carrying the session token.
	DefaultCookieName = "token"
	// DefaultMaxAge is how long the browser keeps the session cookie.
	DefaultMaxAge = 30 * 24 * time.Hour
)

// Options configures a Manager.
type Options struct {
	CookieName string
	MaxAge     time.Duration
	Secure     bool
}

// Manager builds Sessions from requests.
type Manager struct {
	decoder token.Decoder
	opts    Options
	now     func() time.Time
}

// NewManager returns a Manager that decodes session cookies with decoder.
func NewManager(decoder token.Decoder, opts Options) *Manager {
	if opts.CookieName == "" {
		opts.CookieName = DefaultCookieName
	}
	if opts.MaxAge <= 0 {
		opts.MaxAge = DefaultMaxAge
	}
	return &Manager{decoder: decoder, opts: opts, now: time.Now}
}

// CookieName returns the name of the session cookie.
func (m *Manager) CookieName() string { return m.opts.CookieName }

// Decoder returns the token decoder shared with the guard.
func (m *Manager) Decoder() token.Decoder { return m.decoder }

// Load reads the session cookie of r. A cookie that does not decode or has
// expired is cleared on w.
func (m *Manager) Load(w http.ResponseWriter, r *http.Request) *Session {
	s := &Session{manager: m, w: w}

	c, err := r.Cookie(m.opts.CookieName)
	if err != nil || c.Value == "" {
		return s
	}

	claims, err := m.decoder.Decode(c.Value)
	if err != nil {
		slog.Debug("discarding session cookie", "error", err)
		s.clear()
		return s
	}
	if !claims.Valid(m.now()) {
		slog.Debug("discarding expired session cookie", "user_id", claims.ID)
		s.clear()
		return s
	}

	s.user = claims
	s.raw = c.Value
	return s
}

// Session is the identity of the current visitor.
type Session struct {
	manager *Manager
	w       http.ResponseWriter
	user    *token.Claims
	raw     string
}

// CurrentUser returns the decoded claims, or nil for anonymous visitors.
func (s *Session) CurrentUser() *token.Claims {
	if s == nil {
		return nil
	}
	return s.user
}

// IsAuthenticated reports whether a user is signed in.
func (s *Session) IsAuthenticated() bool {
	return s.CurrentUser() != nil
}

// Token returns the raw session token for authenticated backend calls.
func (s *Session) Token() string {
	if s == nil {
		return ""
	}
	return s.raw
}

// Login decodes raw and, if it decodes, stores it in the session cookie and
// adopts its claims. On failure the session is left untouched.
func (s *Session) Login(raw string) error {
	claims, err := s.manager.decoder.Decode(raw)
	if err != nil {
		slog.Warn("login token did not decode", "error", err)
		return err
	}

	http.SetCookie(s.w, &http.Cookie{
		Name:     s.manager.opts.CookieName,
		Value:    raw,
		Path:     "/",
		MaxAge:   int(s.manager.opts.MaxAge.Seconds()),
		Secure:   s.manager.opts.Secure,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
	s.user = claims
	s.raw = raw
	return nil
}

// Logout expires the cookie, forgets the user and returns the localized home
// route the caller should navigate to.
func (s *Session) Logout(locale string) string {
	s.clear()
	return i18n.Path(locale, "/")
}

func (s *Session) clear() {
	http.SetCookie(s.w, &http.Cookie{
		Name:     s.manager.opts.CookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(1, 0),
		MaxAge:   -1,
		Secure:   s.manager.opts.Secure,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
	s.user = nil
	s.raw = ""
}

type contextKey struct{}

// ContextWith returns a context carrying s.
func ContextWith(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, contextKey{}, s)
}

// FromContext returns the request Session, or nil when the middleware did not
// run.
func FromContext(ctx context.Context) *Session {
	s, _ := ctx.Value(contextKey{}).(*Session)
	return s
}

// Middleware loads the Session once per request and stores it in the context.
func (m *Manager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s := m.Load(w, r)
		next.ServeHTTP(w, r.WithContext(ContextWith(r.Context(), s)))
	})
}
