package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/papercomputeco/counsel/pkg/logger"
	"github.com/papercomputeco/counsel/pkg/sse"
)

const (
	// maxErrorBody caps how much of a non-2xx response body is kept.
	maxErrorBody = 64 * 1024
)

// Config is the chat client configuration.
type Config struct {
	// Endpoint is the full URL of the streaming chat endpoint.
	Endpoint string

	// AuthToken is the default bearer token. It can be overridden per call
	// with WithAuthToken.
	AuthToken string

	// IdleTimeout fails the stream when no bytes arrive for this long.
	// Zero disables the idle timeout.
	IdleTimeout time.Duration

	// RequestTimeout bounds a whole SendMessage call, streaming included.
	// When it fires mid-stream the call fails as an incomplete stream.
	// Zero leaves the limit to the caller's context.
	RequestTimeout time.Duration

	// HTTPClient is used for requests. Its own Timeout should be zero, or
	// it will cut long streams off with a transport error.
	HTTPClient *http.Client

	// Logger is the provided slog logger. Defaults to a nop logger.
	Logger *slog.Logger
}

// Client sends chat messages to the backend and decodes the streamed answer.
// A Client holds no per-request state and is safe for concurrent use; each
// SendMessage call owns its own decoder and accumulator.
type Client struct {
	endpoint       string
	token          string
	idleTimeout    time.Duration
	requestTimeout time.Duration
	httpClient     *http.Client
	logger         *slog.Logger
}

// NewClient creates a new chat Client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("chat endpoint is required")
	}

	u, err := url.Parse(cfg.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("parsing chat endpoint: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("chat endpoint must be an http(s) URL: %q", cfg.Endpoint)
	}

	if cfg.IdleTimeout < 0 {
		return nil, fmt.Errorf("idle timeout must not be negative: %s", cfg.IdleTimeout)
	}
	if cfg.RequestTimeout < 0 {
		return nil, fmt.Errorf("request timeout must not be negative: %s", cfg.RequestTimeout)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	return &Client{
		endpoint:    u.String(),
		token:       cfg.AuthToken,
		idleTimeout:    cfg.IdleTimeout,
		requestTimeout: cfg.RequestTimeout,
		httpClient:     httpClient,
		logger:         logger.OrNop(cfg.Logger),
	}, nil
}

// Endpoint returns the chat endpoint URL.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// SendMessage posts content to the chat endpoint and blocks until the stream
// completes, fails, or ctx is cancelled.
//
// On success it returns exactly one Result, built from the complete event.
// Cancelling ctx closes the connection and returns an error wrapping
// ctx.Err(); no callback fires after SendMessage returns.
func (c *Client) SendMessage(ctx context.Context, content, language string, opts ...SendOption) (*Result, error) {
	o := sendOptions{token: c.token}
	for _, opt := range opts {
		opt(&o)
	}

	body, err := json.Marshal(Request{Query: content, Language: language})
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	streamCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	if c.requestTimeout > 0 {
		var cancelTimeout context.CancelFunc
		streamCtx, cancelTimeout = context.WithTimeoutCause(streamCtx, c.requestTimeout, ErrRequestTimeout)
		defer cancelTimeout()
	}

	req, err := http.NewRequestWithContext(streamCtx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	if o.token != "" {
		req.Header.Set("Authorization", "Bearer "+o.token)
	}

	c.logger.Debug("sending chat request",
		"endpoint", c.endpoint,
		"language", language,
		"query_len", len(content),
	)

	idle := newIdleTimer(c.idleTimeout, cancel)
	defer idle.stop()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, c.abortError(ctx, streamCtx, nil, fmt.Errorf("sending chat request: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		c.logger.Debug("chat endpoint returned error status",
			"status", resp.StatusCode,
			"body", string(respBody),
		)
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	if resp.Body == nil || resp.Body == http.NoBody ||
		resp.StatusCode == http.StatusNoContent || resp.ContentLength == 0 {
		return nil, ErrStreamUnavailable
	}

	s := newStream(c.logger, o.onPartial)
	counted := &countingReader{r: idle.wrap(resp.Body)}
	reader := sse.NewTeeReader(counted, o.tap)

	for {
		ev, err := reader.Next()
		if err != nil {
			return nil, c.abortError(ctx, streamCtx, s, fmt.Errorf("reading chat stream: %w", err))
		}

		if ev == nil {
			if counted.n == 0 {
				return nil, ErrStreamUnavailable
			}
			c.logger.Debug("chat stream ended without completion",
				"session_id", s.sessionID,
				"partial_len", s.text.Len(),
			)
			return nil, s.incomplete(nil)
		}

		s.handle(*ev)

		switch s.state {
		case stateCompleted:
			// Returning closes the body; anything the server sends after
			// the complete event is never read.
			c.logger.Debug("chat stream completed",
				"session_id", s.result.SessionID,
				"sources", len(s.result.Sources),
			)
			return s.result, nil
		case stateFailed:
			return nil, s.err
		}
	}
}

// abortError classifies a transport failure. Caller cancellation wins, then
// the idle and request timeouts, then the raw transport error.
func (c *Client) abortError(parent, streamCtx context.Context, s *stream, err error) error {
	if parent.Err() != nil {
		return fmt.Errorf("chat stream aborted: %w", parent.Err())
	}

	if errors.Is(context.Cause(streamCtx), ErrIdleTimeout) {
		if s == nil {
			s = newStream(c.logger, nil)
		}
		c.logger.Warn("chat stream idle timeout", "timeout", c.idleTimeout)
		return s.incomplete(ErrIdleTimeout)
	}

	if errors.Is(context.Cause(streamCtx), ErrRequestTimeout) {
		if s == nil {
			s = newStream(c.logger, nil)
		}
		c.logger.Warn("chat request timeout", "timeout", c.requestTimeout)
		return s.incomplete(ErrRequestTimeout)
	}

	// The connection dropped in the middle of the body: the stream ended
	// without completion just like a clean EOF would.
	if s != nil && errors.Is(err, io.ErrUnexpectedEOF) {
		return s.incomplete(err)
	}

	return err
}

// countingReader counts the body bytes read.
type countingReader struct {
	r io.Reader
	n int64
}

func (r *countingReader) Read(p []byte) (int, error) {
	n, err := r.r.Read(p)
	r.n += int64(n)
	return n, err
}

// SendOption configures a single SendMessage call.
type SendOption func(*sendOptions)

type sendOptions struct {
	token     string
	onPartial func(string)
	tap       io.Writer
}

// WithAuthToken overrides the client's bearer token for one call.
func WithAuthToken(token string) SendOption {
	return func(o *sendOptions) {
		o.token = token
	}
}

// WithPartial registers a callback invoked with the cumulative answer text
// after every message event. It runs on the calling goroutine.
func WithPartial(fn func(text string)) SendOption {
	return func(o *sendOptions) {
		o.onPartial = fn
	}
}

// WithTap copies the raw response stream to w as it is read.
func WithTap(w io.Writer) SendOption {
	return func(o *sendOptions) {
		o.tap = w
	}
}
