package api

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrUnauthorized matches any RemoteError carrying HTTP 401. Callers drop the
// stored session when they see it.
var ErrUnauthorized = errors.New("unauthorized")

// RemoteError is a business failure reported by the server, e.g. a declined
// withdrawal. Message is the server's own text and is safe to show.
type RemoteError struct {
	Op         string
	Message    string
	StatusCode int
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("%s: %s (status %d)", e.Op, e.Message, e.StatusCode)
}

// Is lets errors.Is(err, ErrUnauthorized) match 401 responses.
func (e *RemoteError) Is(target error) bool {
	return target == ErrUnauthorized && e.StatusCode == http.StatusUnauthorized
}

// Temporary reports whether the server signalled a transient failure.
func (e *RemoteError) Temporary() bool {
	return e.StatusCode >= http.StatusInternalServerError || e.StatusCode == http.StatusTooManyRequests
}

// TransportError is a network or decoding failure with no structured
// message from the server.
type TransportError struct {
	Err error
	Op  string
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// UserMessage returns the single line shown to the user for err.
func UserMessage(err error) string {
	var remote *RemoteError
	if errors.As(err, &remote) {
		if remote.StatusCode == http.StatusUnauthorized {
			return "Your session has expired. Please log in again."
		}
		return remote.Message
	}

	var transport *TransportError
	if errors.As(err, &transport) {
		return "Could not reach the bank. Please try again."
	}

	return err.Error()
}
