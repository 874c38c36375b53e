// Package chat implements the streaming client for the counsel legal
// assistant backend.
//
// A chat request is a single POST whose response is an SSE stream of
// session_id, message, complete and error events. The client decodes the
// stream incrementally and resolves with one Result when the complete event
// arrives. Partial answer text is surfaced only through an optional callback
// and is never returned as a Result.
package chat

import (
	"strings"
	"time"
)

// SSE event types emitted by the backend.
const (
	EventSessionID = "session_id"
	EventMessage   = "message"
	EventComplete  = "complete"
	EventError     = "error"
)

// SenderAssistant is the sender of every message in a Result.
const SenderAssistant = "assistant"

// Request is the JSON body of a chat request.
type Request struct {
	Query    string `json:"query"`
	Language string `json:"language"`
}

// Source is a legal reference cited by an answer.
type Source struct {
	Source        string `json:"Source"`
	ArticleNumber string `json:"ArticleNumber"`
}

// Message is a finalized assistant message.
type Message struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Sender    string    `json:"sender"`
	Timestamp time.Time `json:"timestamp"`
	SessionID string    `json:"session_id"`
}

// Result is the terminal value of a chat stream.
type Result struct {
	SessionID          string    `json:"session_id"`
	Messages           []Message `json:"messages"`
	Sources            []Source  `json:"sources"`
	SuggestedQuestions []string  `json:"suggested_questions"`
}

// Answer returns the content of all messages joined together.
func (r *Result) Answer() string {
	if r == nil {
		return ""
	}

	var b strings.Builder
	for _, m := range r.Messages {
		b.WriteString(m.Content)
	}
	return b.String()
}

// SessionPayload is the data of a session_id event.
type SessionPayload struct {
	ID string `json:"id"`
}

// MessagePayload is the data of a message event.
type MessagePayload struct {
	Text    string   `json:"text"`
	Sources []Source `json:"sources,omitempty"`
}

// CompletePayload is the data of a complete event.
type CompletePayload struct {
	Text               string   `json:"text,omitempty"`
	Sources            []Source `json:"sources,omitempty"`
	SuggestedQuestions []string `json:"suggested_questions,omitempty"`
}

// ErrorPayload is the data of an error event.
type ErrorPayload struct {
	Message string `json:"message,omitempty"`
}
