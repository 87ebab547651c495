// Package auth decides, before a page renders, whether the visitor may see
// it.
//
// The token is decoded, not verified, unless a verifying decoder is supplied.
// These checks gate what the site renders; the backend API enforces
// authorization on every call it serves.
package auth

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/alecgard/mbnakom/internal/token"
)

// Result is the outcome of Authorize.
type Result struct {
	Authenticated bool
	Claims        *token.Claims
}

// DecisionRecorder counts guard outcomes.
type DecisionRecorder interface {
	IncAuthDecision(decision string)
}

// Guard authorizes page requests from the session cookie or a bearer header.
type Guard struct {
	decoder    token.Decoder
	cookieName string
	now        func() time.Time
	metrics    DecisionRecorder
}

// NewGuard creates a Guard reading the token from cookieName.
func NewGuard(decoder token.Decoder, cookieName string) *Guard {
	return &Guard{
		decoder:    decoder,
		cookieName: cookieName,
		now:        time.Now,
	}
}

// SetMetrics sets the optional decision recorder.
func (g *Guard) SetMetrics(m DecisionRecorder) {
	g.metrics = m
}

// Authorize reports whether r carries a decodable, unexpired token.
func (g *Guard) Authorize(r *http.Request) Result {
	raw := ""
	if c, err := r.Cookie(g.cookieName); err == nil {
		raw = c.Value
	}
	if raw == "" {
		raw = extractBearerToken(r)
	}
	if raw == "" {
		return Result{}
	}

	claims, err := g.decoder.Decode(raw)
	if err != nil {
		slog.Debug("auth token did not decode", "error", err)
		return Result{}
	}
	if !claims.Valid(g.now()) {
		return Result{}
	}
	return Result{Authenticated: true, Claims: claims}
}

func (g *Guard) record(decision string) {
	if g.metrics != nil {
		g.metrics.IncAuthDecision(decision)
	}
}

func extractBearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return ""
	}
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

type contextKey int

const claimsContextKey contextKey = iota

// ContextWithClaims returns a new context carrying the given claims.
func ContextWithClaims(ctx context.Context, c *token.Claims) context.Context {
	return context.WithValue(ctx, claimsContextKey, c)
}

// ClaimsFromContext extracts the claims from the context, or nil if not present.
func ClaimsFromContext(ctx context.Context) *token.Claims {
	c, _ := ctx.Value(claimsContextKey).(*token.Claims)
	return c
}
