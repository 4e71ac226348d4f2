package session

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrExpired = errors.New("session: expired")

// Session is the bearer identity held for the lifetime of a login. Absence
// means anonymous.
type Session struct {
	Username string `json:"username"`
	Token    string `json:"token"`
}

// ExpiresAt peeks at the token's exp claim without verifying the signature.
// Verification is the server's job; the client only uses this for logging and
// proactive warnings. ok is false when the token carries no readable expiry.
func (s Session) ExpiresAt() (time.Time, bool) {
	claims := jwt.MapClaims{}
	_, _, err := jwt.NewParser().ParseUnverified(s.Token, claims)
	if err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

// ExpiresSoon reports whether the token expires within the given window.
func (s Session) ExpiresSoon(window time.Duration) bool {
	exp, ok := s.ExpiresAt()
	if !ok {
		return false
	}
	return time.Until(exp) < window
}

// Store holds the process-wide session. The Session Guard is the only caller
// of Clear on invalidation; auth login/logout are the other writers.
type Store interface {
	// Current returns the held session, or nil when anonymous.
	Current() *Session
	Establish(s Session)
	// Clear removes the held session. It reports true only for the call that
	// actually removed one, so invalidation side effects run exactly once.
	Clear() bool
}
