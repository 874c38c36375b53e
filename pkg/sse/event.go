// Package sse provides a minimal, purpose-built SSE (Server-Sent Events)
// decoder for consuming streaming answers from the counsel backend.
//
// The Decoder is push-based: callers hand it raw byte chunks exactly as they
// come off the wire, with no alignment to lines, events or UTF-8 characters,
// and it returns the events completed by that chunk. Reader and TeeReader wrap
// a Decoder around an io.Reader for pull-style consumption.
//
// This package intentionally does NOT provide SSE writer or server
// capabilities.
//
// See the SSE specification:
// https://html.spec.whatwg.org/multipage/server-sent-events.html
package sse

// Event represents a single parsed SSE event, delimited by a blank line
// in the upstream byte stream.
type Event struct {
	// Type is the SSE event type from the "event:" field.
	// An empty string means the default "message" type per the SSE spec.
	Type string

	// Data is the concatenated contents of all "data:" lines for this event,
	// joined with "\n" (per the SSE spec, multiple data fields are joined
	// with a single newline).
	Data string

	// ID is the last event ID from the "id:" field, if present.
	ID string
}
