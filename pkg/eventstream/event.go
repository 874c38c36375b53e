// Package eventstream defines the events emitted when counsel records an
// exchange, and the publishers that deliver them.
package eventstream

import (
	"time"

	"github.com/google/uuid"

	"github.com/papercomputeco/counsel/pkg/chat"
	"github.com/papercomputeco/counsel/pkg/history"
)

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypeExchangeRecorded is emitted after an exchange is newly stored.
	EventTypeExchangeRecorded = "counsel.exchange.recorded"
)

// ExchangeRecordedEvent is a transport-neutral event payload for a stored
// exchange.
type ExchangeRecordedEvent struct {
	SchemaVersion int             `json:"schema_version"`
	EventType     string          `json:"event_type"`
	EventID       string          `json:"event_id"`
	EmittedAt     time.Time       `json:"emitted_at"`
	Source        EventSource     `json:"source"`
	Exchange      ExchangePayload `json:"exchange"`
}

// EventSource identifies the client that recorded the exchange.
type EventSource struct {
	Client  string `json:"client"`
	Version string `json:"version,omitempty"`
}

// ExchangePayload is the recorded question and answer.
type ExchangePayload struct {
	ID                 string        `json:"id"`
	SessionID          string        `json:"session_id"`
	Question           string        `json:"question"`
	Answer             string        `json:"answer"`
	Language           string        `json:"language"`
	Sources            []chat.Source `json:"sources"`
	SuggestedQuestions []string      `json:"suggested_questions"`
	CreatedAt          time.Time     `json:"created_at"`
}

// NewExchangeRecordedEvent wraps ex in a new event.
func NewExchangeRecordedEvent(ex *history.Exchange, source EventSource) *ExchangeRecordedEvent {
	return &ExchangeRecordedEvent{
		SchemaVersion: SchemaVersionV1,
		EventType:     EventTypeExchangeRecorded,
		EventID:       uuid.NewString(),
		EmittedAt:     time.Now().UTC(),
		Source:        source,
		Exchange: ExchangePayload{
			ID:                 ex.ID,
			SessionID:          ex.SessionID,
			Question:           ex.Question,
			Answer:             ex.Answer,
			Language:           ex.Language,
			Sources:            ex.Sources,
			SuggestedQuestions: ex.SuggestedQuestions,
			CreatedAt:          ex.CreatedAt,
		},
	}
}
