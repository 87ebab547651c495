package auth

import (
	"net/http"

	"github.com/alecgard/mbnakom/internal/i18n"
)

// UnauthorizedPath is the page visitors are sent to when a guard refuses them.
const UnauthorizedPath = "/unAuthorized"

// Decision labels recorded by the guard middlewares.
const (
	DecisionAllow           = "allow"
	DecisionUnauthenticated = "unauthenticated"
	DecisionForbidden       = "forbidden"
	DecisionSignedIn        = "signed_in"
)

// RequireAuth redirects visitors without a valid session to the unauthorized
// page. On success the claims are injected into the request context.
func (g *Guard) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		res := g.Authorize(r)
		if !res.Authenticated {
			g.record(DecisionUnauthenticated)
			redirectUnauthorized(w, r)
			return
		}

		g.record(DecisionAllow)
		next.ServeHTTP(w, r.WithContext(ContextWithClaims(r.Context(), res.Claims)))
	})
}

// RequireRole redirects visitors whose claims lack role to the unauthorized
// page.
func (g *Guard) RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			res := g.Authorize(r)
			if !res.Authenticated {
				g.record(DecisionUnauthenticated)
				redirectUnauthorized(w, r)
				return
			}
			if !res.Claims.HasRole(role) {
				g.record(DecisionForbidden)
				redirectUnauthorized(w, r)
				return
			}

			g.record(DecisionAllow)
			next.ServeHTTP(w, r.WithContext(ContextWithClaims(r.Context(), res.Claims)))
		})
	}
}

// RedirectAuthenticated sends signed-in visitors to target, a path relative
// to the request locale. Used on the login and sign-up pages.
func (g *Guard) RedirectAuthenticated(target string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if g.Authorize(r).Authenticated {
				g.record(DecisionSignedIn)
				http.Redirect(w, r, i18n.Path(i18n.FromContext(r.Context()), target), http.StatusFound)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func redirectUnauthorized(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, i18n.Path(i18n.FromContext(r.Context()), UnauthorizedPath), http.StatusFound)
}
