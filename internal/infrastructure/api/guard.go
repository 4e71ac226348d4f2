package api

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	domain "github.com/richclaudfelixjp/storefront/internal/domain/session"
	"github.com/richclaudfelixjp/storefront/internal/observability"
)

const loginPath = "/auth/login"

// loginCallKey marks requests to the login endpoint on their context. The
// final URL path is useless for this check once a base path is configured.
type loginCallKey struct{}

func markLoginCall(ctx context.Context) context.Context {
	return context.WithValue(ctx, loginCallKey{}, true)
}

func isLoginCall(req *http.Request) bool {
	marked, _ := req.Context().Value(loginCallKey{}).(bool)
	return marked
}

// sessionGuard is an http.RoundTripper that attaches the bearer token to every
// outgoing call and treats 401/403 responses, except from the login call
// itself, as session-invalidating events. Every request made through the
// client passes through it; components that skip the guard risk rendering a
// cart or order view for a revoked identity.
type sessionGuard struct {
	next          http.RoundTripper
	sessions      domain.Store
	onInvalidate  func()
	log           observability.Logger
	invalidations observability.Counter
}

func newSessionGuard(
	next http.RoundTripper,
	sessions domain.Store,
	onInvalidate func(),
	tel observability.Observability,
) *sessionGuard {
	logger := observability.NopLogger()
	metrics := observability.NopMetrics()
	if tel != nil {
		logger = tel.Logger()
		metrics = tel.Metrics()
	}
	return &sessionGuard{
		next:          next,
		sessions:      sessions,
		onInvalidate:  onInvalidate,
		log:           logger.With(observability.F("component", "session_guard")),
		invalidations: metrics.Counter(observability.MSessionInvalidated),
	}
}

func (g *sessionGuard) RoundTrip(req *http.Request) (*http.Response, error) {
	// Per the RoundTripper contract the original request is not mutated.
	out := req.Clone(req.Context())
	out.Header.Set("X-Request-ID", uuid.NewString())
	if s := g.sessions.Current(); s != nil && s.Token != "" {
		out.Header.Set("Authorization", "Bearer "+s.Token)
	}

	resp, err := g.next.RoundTrip(out)
	if err != nil {
		return nil, err
	}

	if unauthorized(resp.StatusCode) && !isLoginCall(req) {
		// Clear reports true exactly once per held session, so the forced
		// navigation runs once even when invalidating responses pile up.
		if g.sessions.Clear() {
			g.invalidations.Add(1)
			g.log.Warn("session_invalidated",
				observability.F("status", resp.StatusCode),
				observability.F("path", req.URL.Path),
			)
			if g.onInvalidate != nil {
				g.onInvalidate()
			}
		}
	}

	return resp, nil
}

func unauthorized(status int) bool {
	return status == http.StatusUnauthorized || status == http.StatusForbidden
}
