package voice

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"github.com/papercomputeco/counsel/pkg/logger"
)

const (
	voiceQueryPath = "/voice-query"

	// recordingName is the filename sent with the audio form field.
	recordingName = "recording.wav"

	maxReplySize = 32 << 20
	maxErrorBody = 64 * 1024
)

// ErrEmptyAudio is returned when Query is called without audio.
var ErrEmptyAudio = errors.New("audio is empty")

// Config is the voice client configuration.
type Config struct {
	// Endpoint is the API base URL; requests go to Endpoint + "/voice-query".
	Endpoint string

	// AuthToken is an optional bearer token.
	AuthToken string

	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Client posts recorded questions to the voice endpoint.
type Client struct {
	url        string
	token      string
	httpClient *http.Client
	logger     *slog.Logger
}

// Reply is the spoken answer returned by the backend.
type Reply struct {
	ContentType string
	Audio       []byte
}

// ResponseError is returned when the backend does not answer with audio.
type ResponseError struct {
	StatusCode  int
	ContentType string
	Body        string
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("voice endpoint returned status %d (%s): %s", e.StatusCode, e.ContentType, e.Body)
}

// NewClient creates a new voice Client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("voice endpoint is required")
	}

	u, err := url.Parse(cfg.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("parsing voice endpoint: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("voice endpoint must be an http(s) URL: %q", cfg.Endpoint)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 2 * time.Minute}
	}

	return &Client{
		url:        strings.TrimSuffix(u.String(), "/") + voiceQueryPath,
		token:      cfg.AuthToken,
		httpClient: httpClient,
		logger:     logger.OrNop(cfg.Logger),
	}, nil
}

// URL returns the full voice query URL.
func (c *Client) URL() string {
	return c.url
}

// Query sends WAV audio and the answer language as a multipart form and
// returns the audio reply.
func (c *Client) Query(ctx context.Context, wav []byte, language string) (*Reply, error) {
	if len(wav) == 0 {
		return nil, ErrEmptyAudio
	}

	var body bytes.Buffer
	form := multipart.NewWriter(&body)

	part, err := form.CreatePart(audioPartHeader())
	if err != nil {
		return nil, fmt.Errorf("creating audio part: %w", err)
	}
	if _, err := part.Write(wav); err != nil {
		return nil, fmt.Errorf("writing audio part: %w", err)
	}
	if err := form.WriteField("language", language); err != nil {
		return nil, fmt.Errorf("writing language field: %w", err)
	}
	if err := form.Close(); err != nil {
		return nil, fmt.Errorf("closing form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, &body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	c.logger.Debug("sending voice query",
		"url", c.url,
		"language", language,
		"audio_bytes", len(wav),
	)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sending voice query: %w", err)
	}
	defer resp.Body.Close()

	contentType := resp.Header.Get("Content-Type")
	mediaType, _, _ := mime.ParseMediaType(contentType)

	if resp.StatusCode < 200 || resp.StatusCode > 299 || !strings.HasPrefix(mediaType, "audio/") {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &ResponseError{
			StatusCode:  resp.StatusCode,
			ContentType: contentType,
			Body:        string(respBody),
		}
	}

	audio, err := io.ReadAll(io.LimitReader(resp.Body, maxReplySize))
	if err != nil {
		return nil, fmt.Errorf("reading voice reply: %w", err)
	}

	return &Reply{ContentType: contentType, Audio: audio}, nil
}

func audioPartHeader() textproto.MIMEHeader {
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, recordingName))
	h.Set("Content-Type", "audio/wav")
	return h
}
