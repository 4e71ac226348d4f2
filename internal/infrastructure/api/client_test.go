package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	domsession "github.com/richclaudfelixjp/storefront/internal/domain/session"
	"github.com/richclaudfelixjp/storefront/internal/infrastructure/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.Handler, sessions domsession.Store, onInvalidate func()) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewClient(srv.URL, 5*time.Second, sessions, onInvalidate, nil)
	require.NoError(t, err)
	return client
}

func TestRequestDecoration(t *testing.T) {
	var gotAuth, gotReqID string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotReqID = r.Header.Get("X-Request-ID")
		_, _ = w.Write([]byte(`{"items":[]}`))
	})

	sessions := memory.NewSessionStore()
	sessions.Establish(domsession.Session{Username: "alice", Token: "tok-123"})
	client := newTestClient(t, handler, sessions, nil)

	_, err := NewCartGateway(client).Fetch(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "Bearer tok-123", gotAuth)
	assert.NotEmpty(t, gotReqID)
}

func TestSessionInvalidation(t *testing.T) {
	t.Run("403 outside login clears the session and redirects once", func(t *testing.T) {
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
		})

		sessions := memory.NewSessionStore()
		sessions.Establish(domsession.Session{Username: "alice", Token: "tok"})
		invalidations := 0
		client := newTestClient(t, handler, sessions, func() { invalidations++ })

		_, err := NewCartGateway(client).Fetch(context.Background())
		require.ErrorIs(t, err, ErrSessionExpired)

		assert.Nil(t, sessions.Current())
		assert.Equal(t, 1, invalidations)
	})

	t.Run("piled-up 401s trigger the side effects exactly once", func(t *testing.T) {
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		})

		sessions := memory.NewSessionStore()
		sessions.Establish(domsession.Session{Username: "alice", Token: "tok"})
		invalidations := 0
		client := newTestClient(t, handler, sessions, func() { invalidations++ })

		gw := NewOrderGateway(client)
		_, err1 := gw.List(context.Background())
		_, err2 := gw.List(context.Background())
		require.ErrorIs(t, err1, ErrSessionExpired)
		require.ErrorIs(t, err2, ErrSessionExpired)

		assert.Equal(t, 1, invalidations)
	})

	t.Run("login exemption holds when the base url carries a path prefix", func(t *testing.T) {
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/api/auth/login", r.URL.Path)
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"message":"Bad credentials"}`))
		})
		srv := httptest.NewServer(handler)
		t.Cleanup(srv.Close)

		sessions := memory.NewSessionStore()
		sessions.Establish(domsession.Session{Username: "alice", Token: "tok"})
		invalidations := 0
		client, err := NewClient(srv.URL+"/api", 5*time.Second, sessions, func() { invalidations++ }, nil)
		require.NoError(t, err)

		_, loginErr := NewAuthGateway(client).Login(context.Background(), "alice", "wrong")
		require.Error(t, loginErr)
		assert.NotErrorIs(t, loginErr, ErrSessionExpired)
		assert.Zero(t, invalidations)
		assert.NotNil(t, sessions.Current())
	})

	t.Run("invalidation still fires under a base path prefix", func(t *testing.T) {
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/api/user/cart", r.URL.Path)
			w.WriteHeader(http.StatusForbidden)
		})
		srv := httptest.NewServer(handler)
		t.Cleanup(srv.Close)

		sessions := memory.NewSessionStore()
		sessions.Establish(domsession.Session{Username: "alice", Token: "tok"})
		invalidations := 0
		client, err := NewClient(srv.URL+"/api", 5*time.Second, sessions, func() { invalidations++ }, nil)
		require.NoError(t, err)

		_, fetchErr := NewCartGateway(client).Fetch(context.Background())
		require.ErrorIs(t, fetchErr, ErrSessionExpired)
		assert.Equal(t, 1, invalidations)
		assert.Nil(t, sessions.Current())
	})

	t.Run("login 401 is a credentials failure, not an invalidation", func(t *testing.T) {
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/auth/login", r.URL.Path)
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"message":"Bad credentials"}`))
		})

		sessions := memory.NewSessionStore()
		invalidations := 0
		client := newTestClient(t, handler, sessions, func() { invalidations++ })

		_, err := NewAuthGateway(client).Login(context.Background(), "alice", "wrong")
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrSessionExpired)

		var apiErr *Error
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode())
		assert.Equal(t, "Bad credentials", apiErr.ServerMessage())
		assert.Zero(t, invalidations)
	})
}

func TestErrorTaxonomy(t *testing.T) {
	t.Run("400 with message payload is a validation conflict", func(t *testing.T) {
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"message":"Not enough stock for product 5"}`))
		})
		client := newTestClient(t, handler, memory.NewSessionStore(), nil)

		_, err := NewOrderGateway(client).Create(context.Background())
		require.Error(t, err)
		assert.True(t, IsValidationConflict(err))
		assert.Equal(t, "Not enough stock for product 5", ServerMessage(err))
	})

	t.Run("error-shaped payloads are read too", func(t *testing.T) {
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusConflict)
			_, _ = w.Write([]byte(`{"error":"duplicate product name"}`))
		})
		client := newTestClient(t, handler, memory.NewSessionStore(), nil)

		_, err := NewOrderGateway(client).Create(context.Background())
		require.Error(t, err)
		assert.True(t, IsResourceConflict(err))
		assert.Equal(t, "duplicate product name", ServerMessage(err))
	})

	t.Run("unreachable server maps to a network failure", func(t *testing.T) {
		sessions := memory.NewSessionStore()
		client, err := NewClient("http://127.0.0.1:1", 500*time.Millisecond, sessions, nil, nil)
		require.NoError(t, err)

		_, err = NewCartGateway(client).Fetch(context.Background())
		assert.ErrorIs(t, err, ErrNetwork)
	})
}

func TestOrdersEnvelope(t *testing.T) {
	t.Run("create unwraps the first order from the envelope", func(t *testing.T) {
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/user/orders/create", r.URL.Path)
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"orders":[{"id":42,"status":"PENDING","totalAmount":1600}]}`))
		})
		client := newTestClient(t, handler, memory.NewSessionStore(), nil)

		order, err := NewOrderGateway(client).Create(context.Background())
		require.NoError(t, err)
		assert.Equal(t, int64(42), order.ID)
		assert.Equal(t, int64(1600), order.TotalAmount)
	})

	t.Run("empty envelope on create is an error", func(t *testing.T) {
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"orders":[]}`))
		})
		client := newTestClient(t, handler, memory.NewSessionStore(), nil)

		_, err := NewOrderGateway(client).Create(context.Background())
		assert.Error(t, err)
	})
}

func TestBareTextResponses(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/auth/register", r.URL.Path)
		_, _ = w.Write([]byte("User registered successfully"))
	})
	client := newTestClient(t, handler, memory.NewSessionStore(), nil)

	msg, err := NewAuthGateway(client).Register(context.Background(), "bob", "pw")
	require.NoError(t, err)
	assert.Equal(t, "User registered successfully", msg)
}

func TestCartEndpoints(t *testing.T) {
	t.Run("add sends ids through the query string", func(t *testing.T) {
		var gotPath, gotQuery string
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.Path
			gotQuery = r.URL.RawQuery
			w.WriteHeader(http.StatusOK)
		})
		client := newTestClient(t, handler, memory.NewSessionStore(), nil)

		require.NoError(t, NewCartGateway(client).Add(context.Background(), 5, 2))
		assert.Equal(t, "/user/cart/add", gotPath)
		assert.Contains(t, gotQuery, "productId=5")
		assert.Contains(t, gotQuery, "quantity=2")
	})

	t.Run("update and remove address the line item in the path", func(t *testing.T) {
		var paths []string
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			paths = append(paths, r.Method+" "+r.URL.Path)
			w.WriteHeader(http.StatusOK)
		})
		client := newTestClient(t, handler, memory.NewSessionStore(), nil)
		gw := NewCartGateway(client)

		require.NoError(t, gw.UpdateQuantity(context.Background(), 10, 3))
		require.NoError(t, gw.Remove(context.Background(), 10))

		assert.Equal(t, []string{
			"PUT /user/cart/update/10",
			"DELETE /user/cart/remove/10",
		}, paths)
	})
}
