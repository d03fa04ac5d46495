package api

import (
	"errors"
	"fmt"
)

// Failure classes of the invoice backend
var (
	// ErrTransport is returned when no HTTP response was received at all
	// (connection refused, DNS failure, TLS handshake failure, CORS-style
	// rejection by an intermediary).
	ErrTransport = errors.New("invoice backend unreachable")

	// ErrStatus is returned when the backend answered with a non-2xx status.
	ErrStatus = errors.New("invoice backend returned an error status")

	// ErrRejected is returned when the backend answered 2xx but the payload
	// reports a logical failure (success:false) or carries no usable record.
	ErrRejected = errors.New("invoice backend rejected the request")

	// ErrMalformedResponse is returned when a 2xx body is not valid JSON.
	ErrMalformedResponse = errors.New("malformed response from invoice backend")
)

// ErrorKind names a failure class of the transport error taxonomy.
type ErrorKind string

const (
	KindTransport ErrorKind = "transport"
	KindStatus    ErrorKind = "status"
	KindRejected  ErrorKind = "rejected"
)

// APIError describes a failed backend call.
type APIError struct {
	// Op is the client operation that failed (e.g., "GetByID", "Upload").
	Op string

	Kind ErrorKind

	// Status is the HTTP status code, zero for transport failures.
	Status int

	URL string

	// Message is the user-facing description. Server-supplied messages are
	// kept verbatim.
	Message string

	// ServerMessage is the payload's own "message", empty when the backend
	// sent none.
	ServerMessage string

	// Err is the underlying error.
	Err error
}

// Error returns the user-facing message.
func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("api: %s failed: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *APIError) Unwrap() error {
	return e.Err
}

// Is matches the sentinel for the error's kind as well as the wrapped error.
func (e *APIError) Is(target error) bool {
	switch e.Kind {
	case KindTransport:
		if target == ErrTransport {
			return true
		}
	case KindStatus:
		if target == ErrStatus {
			return true
		}
	case KindRejected:
		if target == ErrRejected {
			return true
		}
	}
	return errors.Is(e.Err, target)
}

// transportMessage is shown for the dominant local-development failure: the
// backend is not running or does not accept requests from this client.
func transportMessage(baseURL string) string {
	return fmt.Sprintf("Cannot connect to server. Please check if the backend is running on %s "+
		"and CORS is configured to allow requests from this client", baseURL)
}

func statusMessage(status int, serverMessage string) string {
	if serverMessage != "" {
		return serverMessage
	}
	return fmt.Sprintf("Server Error: %d", status)
}

// IsKind reports whether err is an APIError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Kind == kind
}

// Message returns the user-facing text of err, or fallback if err carries no
// message of its own.
func Message(err error, fallback string) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}

// ServerMessage returns the message the backend put in its payload, or "".
func ServerMessage(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.ServerMessage
	}
	return ""
}
