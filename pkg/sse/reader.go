package sse

import (
	"io"
)

// defaultChunkSize is the read size used when pulling from the source.
const defaultChunkSize = 4 * 1024

// TeeReader reads SSE events from a source io.Reader while simultaneously
// writing all raw bytes verbatim to a destination io.Writer.
// This effectively enables "tee" shaped reading where TeeReader.Next
// returns the Event for consumption while writing to a separate destination.
//
// ┌──────────────────┐
// │ source io.Reader │
// └──────────────────┘
// │
// ▼
// ┌──────────────────┐   ┌───────────────────────┐
// │ TeeReader.Next() │──▶│ destination io.Writer │
// └──────────────────┘   └───────────────────────┘
// │
// ▼
// ┌──────────────────┐
// │      Event       │
// └──────────────────┘
//
// The destination receives the exact bytes read, chunk by chunk, so it can
// be used to capture a stream for debugging while the caller inspects
// parsed events.
type TeeReader struct {
	src  io.Reader
	dest io.Writer
	dec  *Decoder
	buf  []byte

	// queue holds events decoded from the last chunk but not yet returned.
	queue []Event
	done  bool
}

// NewReader returns a TeeReader without a destination.
func NewReader(src io.Reader) *TeeReader {
	return NewTeeReader(src, io.Discard)
}

// NewTeeReader returns a Reader that parses SSE events from the src io.Reader
// and writes all raw bytes through to dest.
func NewTeeReader(src io.Reader, dest io.Writer) *TeeReader {
	return NewTeeReaderSize(src, dest, defaultChunkSize)
}

// NewTeeReaderSize is NewTeeReader with an explicit read size. Small sizes
// are mostly useful in tests that exercise chunk boundaries.
func NewTeeReaderSize(src io.Reader, dest io.Writer, size int) *TeeReader {
	if size <= 0 {
		size = defaultChunkSize
	}
	if dest == nil {
		dest = io.Discard
	}

	return &TeeReader{
		src:  src,
		dest: dest,
		dec:  NewDecoder(),
		buf:  make([]byte, size),
	}
}

// Next returns the next parsed SSE event. It blocks until a complete event
// is available (terminated by a blank line in the stream).
// Next returns nil, nil when the source is exhausted.
func (r *TeeReader) Next() (*Event, error) {
	for {
		if len(r.queue) > 0 {
			ev := r.queue[0]
			r.queue = r.queue[1:]
			return &ev, nil
		}

		if r.done {
			return nil, nil
		}

		n, err := r.src.Read(r.buf)
		if n > 0 {
			if _, werr := r.dest.Write(r.buf[:n]); werr != nil {
				return nil, werr
			}
			r.queue = append(r.queue, r.dec.Write(r.buf[:n])...)
		}

		if err == io.EOF {
			r.dec.Close()
			r.done = true
			continue
		}
		if err != nil {
			return nil, err
		}
	}
}
