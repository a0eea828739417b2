package academia

import (
	"net/http"

	"github.com/pkg/errors"
)

// BlockedAccountMessage is the exact message the backend sends with a 403
// when the account has been disabled by an admin.
const BlockedAccountMessage = "Access denied. Your account has been blocked."

var (
	ErrTimeout        = errors.New("request timed out")
	ErrNetwork        = errors.New("network error, check your connection")
	ErrSessionExpired = errors.New("session expired, please log in again")
	ErrAccountBlocked = errors.New("account blocked")
)

// APIError is a normalized backend error, carrying the server-provided
// message when present.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return e.Message
}

func normalizeError(code int, env Envelope) error {
	msg := env.Message
	if msg == "" {
		msg = http.StatusText(code)
	}
	if msg == "" {
		msg = "something went wrong"
	}
	return &APIError{StatusCode: code, Message: msg}
}
