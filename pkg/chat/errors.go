package chat

import (
	"errors"
	"fmt"
)

var (
	// ErrIncomplete is returned when the stream ends before a complete event.
	ErrIncomplete = errors.New("stream ended without completion")

	// ErrStreamUnavailable is returned when the response has no readable body.
	ErrStreamUnavailable = errors.New("stream unavailable")

	// ErrIdleTimeout is the cause recorded when no bytes arrive within the
	// configured idle timeout. It is always reported together with
	// ErrIncomplete.
	ErrIdleTimeout = errors.New("stream idle timeout")

	// ErrRequestTimeout is the cause recorded when a call outlives the
	// configured request timeout. Like ErrIdleTimeout it is reported
	// together with ErrIncomplete.
	ErrRequestTimeout = errors.New("chat request timeout")
)

// unknownServerError is used when an error event carries no message.
const unknownServerError = "unknown error"

// StatusError is returned for a non-2xx response. The body is not parsed.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("chat endpoint returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("chat endpoint returned status %d: %s", e.StatusCode, e.Body)
}

// ServerError is returned when the backend sends an error event.
type ServerError struct {
	Message string
}

func (e *ServerError) Error() string {
	return "server error: " + e.Message
}

// PartialError reports a stream that failed before completion. It exposes
// whatever was accumulated for diagnostics. It matches ErrIncomplete and, when
// set, Cause via errors.Is.
type PartialError struct {
	Cause     error
	SessionID string
	Text      string
}

func (e *PartialError) Error() string {
	if e.Cause != nil {
		return ErrIncomplete.Error() + ": " + e.Cause.Error()
	}
	return ErrIncomplete.Error()
}

func (e *PartialError) Unwrap() []error {
	if e.Cause != nil {
		return []error{ErrIncomplete, e.Cause}
	}
	return []error{ErrIncomplete}
}
