package i18n

import (
	"net/http"
	"path"
	"strings"
)

// skipPrefixes are served without a locale segment.
var skipPrefixes = []string{"/api/", "/static/", "/health", "/metrics"}

// Middleware redirects page requests that lack a locale segment to the
// negotiated locale and stores the locale of localized requests in the
// request context.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if skip(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		locale, _, ok := SplitPath(r.URL.Path)
		if !ok {
			target := Path(Negotiate(r), r.URL.Path)
			if r.URL.RawQuery != "" {
				target += "?" + r.URL.RawQuery
			}
			http.Redirect(w, r, target, http.StatusFound)
			return
		}

		next.ServeHTTP(w, r.WithContext(ContextWithLocale(r.Context(), locale)))
	})
}

func skip(p string) bool {
	for _, prefix := range skipPrefixes {
		if strings.HasPrefix(p, prefix) {
			return true
		}
	}
	// Public files such as /favicon.ico.
	return path.Ext(p) != ""
}
