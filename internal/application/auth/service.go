// Package auth drives the session lifecycle against the shop's auth
// endpoints and is the only writer of session establishment.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	domain "github.com/richclaudfelixjp/storefront/internal/domain/session"
	"github.com/richclaudfelixjp/storefront/internal/observability"
	"github.com/richclaudfelixjp/storefront/internal/observability/logctx"
)

var ErrBadCredentials = errors.New("auth: invalid username or password")

// Gateway is the outbound port for the auth endpoints. Login's own 401 is a
// credentials failure, not a session invalidation; the transport guard
// already exempts it.
type Gateway interface {
	Login(ctx context.Context, username, password string) (domain.Session, error)
	Register(ctx context.Context, username, password string) (string, error)
	Logout(ctx context.Context) error
}

type Service struct {
	gateway  Gateway
	sessions domain.Store
	log      observability.Logger
}

func NewService(gateway Gateway, sessions domain.Store, tel observability.Observability) *Service {
	logger := observability.NopLogger()
	if tel != nil {
		logger = tel.Logger()
	}
	return &Service{
		gateway:  gateway,
		sessions: sessions,
		log:      logger.With(observability.F("component", "auth")),
	}
}

// Authenticated reports whether a session is currently held.
func (s *Service) Authenticated() bool {
	return s.sessions.Current() != nil
}

func (s *Service) Login(ctx context.Context, username, password string) error {
	logger := logctx.FromOr(ctx, s.log)
	sess, err := s.gateway.Login(ctx, username, password)
	if err != nil {
		if badCredentials(err) {
			return ErrBadCredentials
		}
		return fmt.Errorf("auth: login: %w", err)
	}

	s.sessions.Establish(sess)
	fields := []observability.Field{observability.F("username", sess.Username)}
	if exp, ok := sess.ExpiresAt(); ok {
		fields = append(fields, observability.F("token_expires_in", time.Until(exp).String()))
	}
	logger.Info("login_success", fields...)
	return nil
}

// Register creates an account. The server responds with a human-readable
// message and no session; the user logs in afterwards.
func (s *Service) Register(ctx context.Context, username, password string) (string, error) {
	msg, err := s.gateway.Register(ctx, username, password)
	if err != nil {
		return "", fmt.Errorf("auth: register: %w", err)
	}
	return msg, nil
}

// Logout tells the server, then clears locally. The local clear happens even
// when the call fails; a dead token on the server is not worth keeping the
// client authenticated for.
func (s *Service) Logout(ctx context.Context) error {
	logger := logctx.FromOr(ctx, s.log)
	err := s.gateway.Logout(ctx)
	if s.sessions.Clear() {
		logger.Info("logged_out")
	}
	if err != nil {
		return fmt.Errorf("auth: logout: %w", err)
	}
	return nil
}

type statusError interface {
	error
	StatusCode() int
}

func badCredentials(err error) bool {
	var se statusError
	return errors.As(err, &se) && (se.StatusCode() == 401 || se.StatusCode() == 403)
}
