package checkout

import (
	"errors"
	"net/http"
)

// rejection is satisfied by gateway errors carrying an HTTP status and the
// server's verbatim message, without binding this package to the transport.
type rejection interface {
	error
	StatusCode() int
	ServerMessage() string
}

// isRejection classifies 400-class create failures the server detected
// against its authoritative state. 401/403 are session invalidation, handled
// by the guard, never a placement rejection.
func isRejection(err error) (bool, string) {
	var r rejection
	if !errors.As(err, &r) {
		return false, ""
	}
	status := r.StatusCode()
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		return false, ""
	}
	if status >= 400 && status < 500 {
		return true, r.ServerMessage()
	}
	return false, ""
}
