package ratelimit

import (
	"net"
	"net/http"
	"strconv"
)

// KeyFunc derives the bucket key of a request.
type KeyFunc func(r *http.Request) string

// ClientIP keys requests by remote IP. Run chi's RealIP middleware first
// when the server sits behind a proxy.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// Middleware enforces limiter per key. Rate-limit headers are always set:
//
//	X-RateLimit-Limit     - requests allowed per window
//	X-RateLimit-Remaining - tokens left in the current window
//	X-RateLimit-Reset     - Unix time at which the bucket is full again
//
// Rejected requests are handed to onReject, which writes the response.
func Middleware(limiter *Limiter, key KeyFunc, onReject http.HandlerFunc) func(http.Handler) http.Handler {
	if key == nil {
		key = ClientIP
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			k := key(r)
			allowed := limiter.Allow(k)

			limit, remaining, resetAt := limiter.Status(k)
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))

			if !allowed {
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter(resetAt.Unix()-limiter.now().Unix())))
				onReject(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func retryAfter(seconds int64) int {
	if seconds < 1 {
		return 1
	}
	return int(seconds)
}
