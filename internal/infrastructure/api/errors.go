package api

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrSessionExpired signals a 401/403 outside the login call. The guard
	// has already cleared the session and forced navigation by the time a
	// caller sees this.
	ErrSessionExpired = errors.New("api: session expired")
	// ErrNetwork marks transport-level failures where no response arrived.
	// The operation was left unsubmitted as far as the client can tell.
	ErrNetwork = errors.New("api: network failure")
)

// Error is a failed API exchange. Message carries the server payload verbatim
// when one was readable; Status is zero for transport failures.
type Error struct {
	Status   int
	Message  string
	Endpoint string
	Err      error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("api: %s: %v", e.Endpoint, e.Err)
	}
	if e.Message != "" {
		return fmt.Sprintf("api: %s: status %d: %s", e.Endpoint, e.Status, e.Message)
	}
	return fmt.Sprintf("api: %s: status %d", e.Endpoint, e.Status)
}

func (e *Error) Unwrap() error { return e.Err }

// StatusCode and ServerMessage let callers classify failures structurally
// without importing this package.
func (e *Error) StatusCode() int { return e.Status }

func (e *Error) ServerMessage() string { return e.Message }

// IsValidationConflict reports an HTTP 400: the server rejected the request
// against its authoritative state (e.g. stock changed under the client).
func IsValidationConflict(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusBadRequest
}

// IsResourceConflict reports an HTTP 409, e.g. a duplicate SKU on admin create.
func IsResourceConflict(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusConflict
}

// ServerMessage extracts the verbatim server message from an API error, or
// empty when none was readable.
func ServerMessage(err error) string {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return ""
}
