package api

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrUnavailable is returned while the circuit breaker refuses calls.
var ErrUnavailable = errors.New("backend unavailable")

// FieldError is one entry of the envelope's errors list.
type FieldError struct {
	Msg   string `json:"msg"`
	Param string `json:"param,omitempty"`
}

// Error is a backend answer that was not a success: a non-2xx status or an
// envelope with success=false.
type Error struct {
	Status  int
	Message string
	Errors  []FieldError
}

func (e *Error) Error() string {
	msg := e.UserMessage()
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	return fmt.Sprintf("api: status %d: %s", e.Status, msg)
}

// UserMessage is the text the backend meant for the shopper: message first,
// then the first field error. Empty when the backend sent neither.
func (e *Error) UserMessage() string {
	if e.Message != "" {
		return e.Message
	}
	if len(e.Errors) > 0 {
		return e.Errors[0].Msg
	}
	return ""
}

// AuthRejected reports whether the backend refused the bearer token.
func (e *Error) AuthRejected() bool {
	return e.Status == http.StatusUnauthorized
}

// IsStatus reports whether err is an *Error with the given status.
func IsStatus(err error, status int) bool {
	var ae *Error
	return errors.As(err, &ae) && ae.Status == status
}
