package chat

import (
	"context"
	"io"
	"time"
)

// idleTimer cancels a stream when no bytes have been read for a while.
// It is armed before the request is sent, so waiting for response headers
// counts as idle time too.
type idleTimer struct {
	timeout time.Duration
	timer   *time.Timer
}

func newIdleTimer(timeout time.Duration, cancel context.CancelCauseFunc) *idleTimer {
	t := &idleTimer{timeout: timeout}
	if timeout > 0 {
		t.timer = time.AfterFunc(timeout, func() {
			cancel(ErrIdleTimeout)
		})
	}
	return t
}

// touch pushes the deadline out by another timeout.
func (t *idleTimer) touch() {
	if t.timer != nil {
		t.timer.Reset(t.timeout)
	}
}

func (t *idleTimer) stop() {
	if t.timer != nil {
		t.timer.Stop()
	}
}

// wrap returns a reader that touches the timer whenever bytes arrive.
func (t *idleTimer) wrap(r io.Reader) io.Reader {
	if t.timer == nil {
		return r
	}
	return &idleReader{r: r, t: t}
}

type idleReader struct {
	r io.Reader
	t *idleTimer
}

func (r *idleReader) Read(p []byte) (int, error) {
	n, err := r.r.Read(p)
	if n > 0 {
		r.t.touch()
	}
	return n, err
}
