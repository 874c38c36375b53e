package sse

import (
	"errors"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Decoder incrementally turns raw SSE bytes into Events.
//
// Two kinds of partial state are carried between calls to Write:
//
//   - pending: trailing bytes of an incomplete multi-byte UTF-8 sequence,
//     held back by the streaming UTF-8 transformer until the rest arrives.
//   - line: decoded text after the last "\n", i.e. an unfinished line.
//
// A Decoder is owned by a single stream and is not safe for concurrent use.
type Decoder struct {
	utf8    transform.Transformer
	pending []byte
	line    strings.Builder

	// current accumulates fields for the event being built.
	current Event
	hasData bool
	// sawData is set once a data line arrives, even an empty one.
	sawData bool
	closed  bool
}

// NewDecoder returns an empty Decoder.
func NewDecoder() *Decoder {
	return &Decoder{
		utf8: unicode.UTF8.NewDecoder(),
	}
}

// Write feeds one chunk of raw bytes to the decoder and returns every event
// completed (terminated by a blank line) within it. Events that are still
// incomplete stay buffered for the next call.
func (d *Decoder) Write(chunk []byte) []Event {
	if d.closed || len(chunk) == 0 {
		return nil
	}

	return d.scanLines(d.decode(chunk, false))
}

// Close flushes the decoder at end of stream and reports whether undispatched
// input was discarded. Incomplete UTF-8 bytes, an unterminated final line and
// an event never terminated by a blank line are all dropped, matching the SSE
// dispatch rules. Write is a no-op after Close.
func (d *Decoder) Close() (discarded bool) {
	if d.closed {
		return false
	}

	discarded = d.Pending()

	d.closed = true
	d.pending = nil
	d.line.Reset()
	d.utf8.Reset()
	d.reset()

	return discarded
}

// Pending reports whether the decoder holds any buffered bytes, text or
// event fields that have not yet been dispatched.
func (d *Decoder) Pending() bool {
	return len(d.pending) > 0 || d.line.Len() > 0 || d.hasData
}

// decode runs chunk through the streaming UTF-8 transformer. Bytes belonging
// to a character that is split across chunks are kept in d.pending.
func (d *Decoder) decode(chunk []byte, atEOF bool) string {
	src := make([]byte, 0, len(d.pending)+len(chunk))
	src = append(src, d.pending...)
	src = append(src, chunk...)
	d.pending = d.pending[:0]

	// Invalid bytes expand to the 3-byte replacement character.
	dst := make([]byte, 3*len(src)+4)

	var out strings.Builder
	for {
		nDst, nSrc, err := d.utf8.Transform(dst, src, atEOF)
		out.Write(dst[:nDst])
		src = src[nSrc:]

		switch {
		case err == nil:
			if atEOF {
				d.utf8.Reset()
			}
			return out.String()
		case errors.Is(err, transform.ErrShortSrc):
			d.pending = append(d.pending, src...)
			return out.String()
		case errors.Is(err, transform.ErrShortDst):
			if nDst == 0 && nSrc == 0 {
				dst = make([]byte, 2*len(dst))
			}
		default:
			// The UTF-8 decoder replaces invalid input rather than failing;
			// anything else is dropped along with the remaining bytes.
			d.utf8.Reset()
			return out.String()
		}
	}
}

// scanLines appends text to the partial line buffer and processes every
// complete "\n"-terminated line.
func (d *Decoder) scanLines(text string) []Event {
	var events []Event

	for {
		i := strings.IndexByte(text, '\n')
		if i < 0 {
			d.line.WriteString(text)
			return events
		}

		var line string
		if d.line.Len() > 0 {
			d.line.WriteString(text[:i])
			line = d.line.String()
			d.line.Reset()
		} else {
			line = text[:i]
		}
		text = text[i+1:]

		if ev, ok := d.processLine(line); ok {
			events = append(events, ev)
		}
	}
}

// processLine handles one complete line. It returns an event when the line
// is the blank line that terminates an event carrying at least one field.
func (d *Decoder) processLine(line string) (Event, bool) {
	line = strings.TrimSuffix(line, "\r")

	// A blank line signals the end of the current event.
	if line == "" {
		if !d.hasData {
			// Blank line with no accumulated fields, e.g. keep-alive newlines.
			return Event{}, false
		}
		ev := d.current
		d.reset()
		return ev, true
	}

	// Lines starting with ':' are comments.
	if strings.HasPrefix(line, ":") {
		return Event{}, false
	}

	d.parseField(line)
	return Event{}, false
}

// parseField accumulates a single "field:value" line into the current event.
// The first space after the colon is optional and stripped if present.
func (d *Decoder) parseField(line string) {
	field, value, ok := strings.Cut(line, ":")
	if ok {
		value = strings.TrimPrefix(value, " ")
	} else {
		// Line with no colon: the entire line is the field name with an
		// empty value.
		field = line
	}

	switch field {
	case "data":
		if d.sawData {
			d.current.Data += "\n"
		}
		d.current.Data += value
		d.sawData = true
		d.hasData = true
	case "event":
		d.current.Type = strings.TrimSpace(value)
		d.hasData = true
	case "id":
		d.current.ID = value
		d.hasData = true
	default:
		// "retry" and unknown fields are ignored per the SSE spec.
	}
}

func (d *Decoder) reset() {
	d.current = Event{}
	d.hasData = false
	d.sawData = false
}
