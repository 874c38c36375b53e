package chat

import (
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/papercomputeco/counsel/pkg/sse"
)

// streamState is the lifecycle of one chat stream. Completed and failed are
// absorbing: once reached, further events are ignored.
type streamState int

const (
	stateStreaming streamState = iota
	stateCompleted
	stateFailed
)

func (s streamState) String() string {
	switch s {
	case stateStreaming:
		return "streaming"
	case stateCompleted:
		return "completed"
	case stateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// stream holds the accumulation state of a single SendMessage call.
type stream struct {
	state streamState

	sessionID string
	text      strings.Builder
	sources   []Source

	result *Result
	err    error

	onPartial func(text string)
	logger    *slog.Logger
	now       func() time.Time
	newID     func() string
}

func newStream(logger *slog.Logger, onPartial func(string)) *stream {
	return &stream{
		state:     stateStreaming,
		onPartial: onPartial,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
		newID:     uuid.NewString,
	}
}

// done reports whether the stream reached an absorbing state.
func (s *stream) done() bool {
	return s.state != stateStreaming
}

// handle applies one decoded event.
func (s *stream) handle(ev sse.Event) {
	if s.done() {
		return
	}

	switch ev.Type {
	case EventSessionID:
		var p SessionPayload
		if !s.unmarshal(ev, &p) {
			return
		}
		s.sessionID = p.ID
		s.logger.Debug("chat session", "session_id", p.ID)

	case EventMessage:
		var p MessagePayload
		if !s.unmarshal(ev, &p) {
			return
		}
		s.text.WriteString(p.Text)
		s.sources = append(s.sources, p.Sources...)
		if s.onPartial != nil {
			s.onPartial(s.text.String())
		}

	case EventComplete:
		var p CompletePayload
		if !s.unmarshal(ev, &p) {
			return
		}
		s.complete(p)

	case EventError:
		s.fail(ev)

	default:
		s.logger.Debug("ignoring unknown chat event", "type", ev.Type)
	}
}

// unmarshal decodes the event data into v. A malformed payload drops only
// this event.
func (s *stream) unmarshal(ev sse.Event, v any) bool {
	if err := json.Unmarshal([]byte(ev.Data), v); err != nil {
		s.logger.Warn("skipping malformed chat event",
			"type", ev.Type,
			"data", ev.Data,
			"error", err,
		)
		return false
	}
	return true
}

func (s *stream) complete(p CompletePayload) {
	s.text.WriteString(p.Text)
	s.sources = append(s.sources, p.Sources...)

	res := &Result{
		SessionID:          s.sessionID,
		Messages:           []Message{},
		Sources:            s.sources,
		SuggestedQuestions: p.SuggestedQuestions,
	}
	if res.Sources == nil {
		res.Sources = []Source{}
	}
	if res.SuggestedQuestions == nil {
		res.SuggestedQuestions = []string{}
	}

	if s.text.Len() > 0 {
		res.Messages = append(res.Messages, Message{
			ID:        s.newID(),
			Content:   s.text.String(),
			Sender:    SenderAssistant,
			Timestamp: s.now(),
			SessionID: s.sessionID,
		})
	}

	s.result = res
	s.state = stateCompleted
}

// fail records a server error event. The payload is decoded best effort: a
// body that is not JSON is used verbatim as the message.
func (s *stream) fail(ev sse.Event) {
	msg := strings.TrimSpace(ev.Data)

	var p ErrorPayload
	if err := json.Unmarshal([]byte(ev.Data), &p); err == nil {
		msg = p.Message
	}
	if msg == "" {
		msg = unknownServerError
	}

	s.err = &ServerError{Message: msg}
	s.state = stateFailed
}

// incomplete moves the stream to failed because it ended without a complete
// event, and returns the resulting error.
func (s *stream) incomplete(cause error) error {
	s.err = &PartialError{
		Cause:     cause,
		SessionID: s.sessionID,
		Text:      s.text.String(),
	}
	s.state = stateFailed
	return s.err
}
