package api

import (
	"context"
	"net/http"

	domain "github.com/richclaudfelixjp/storefront/internal/domain/session"
)

// AuthGateway binds the /auth endpoints. The guard exempts /auth/login from
// invalidation handling, so a bad-credentials 401 reaches this gateway as a
// plain error.
type AuthGateway struct {
	client *Client
}

func NewAuthGateway(client *Client) *AuthGateway {
	return &AuthGateway{client: client}
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (g *AuthGateway) Login(ctx context.Context, username, password string) (domain.Session, error) {
	var out domain.Session
	err := g.client.do(ctx, call{
		Method:   http.MethodPost,
		Endpoint: "auth.login",
		Path:     "/auth/login",
		Body:     credentials{Username: username, Password: password},
		Out:      &out,
	})
	if err != nil {
		return domain.Session{}, err
	}
	return out, nil
}

// Register returns the server's confirmation message; no session is issued.
func (g *AuthGateway) Register(ctx context.Context, username, password string) (string, error) {
	var out string
	err := g.client.do(ctx, call{
		Method:   http.MethodPost,
		Endpoint: "auth.register",
		Path:     "/auth/register",
		Body:     credentials{Username: username, Password: password},
		Out:      &out,
	})
	if err != nil {
		return "", err
	}
	return out, nil
}

func (g *AuthGateway) Logout(ctx context.Context) error {
	return g.client.do(ctx, call{
		Method:   http.MethodPost,
		Endpoint: "auth.logout",
		Path:     "/auth/logout",
	})
}
