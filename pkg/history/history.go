// Package history stores completed question/answer exchanges so they can be
// listed and replayed from the CLI.
package history

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/papercomputeco/counsel/pkg/chat"
)

// Exchange is one completed question and its streamed answer.
type Exchange struct {
	ID                 string
	SessionID          string
	Question           string
	Answer             string
	Language           string
	Sources            []chat.Source
	SuggestedQuestions []string
	CreatedAt          time.Time
}

// NewExchange builds an Exchange from a completed chat result.
func NewExchange(question, language string, result *chat.Result) *Exchange {
	ex := &Exchange{
		ID:        uuid.NewString(),
		Question:  question,
		Language:  language,
		CreatedAt: time.Now().UTC().Truncate(time.Millisecond),
	}
	if result == nil {
		return ex
	}

	ex.SessionID = result.SessionID
	ex.Answer = result.Answer()
	ex.Sources = result.Sources
	ex.SuggestedQuestions = result.SuggestedQuestions
	return ex
}

// Driver persists exchanges.
type Driver interface {
	// Put stores an exchange. Returns true if it was newly inserted, false if
	// an exchange with the same ID already exists; in that case Put is a no-op.
	Put(ctx context.Context, ex *Exchange) (bool, error)

	// Get retrieves an exchange by ID.
	Get(ctx context.Context, id string) (*Exchange, error)

	// List returns up to limit exchanges, newest first. A limit <= 0 returns all.
	List(ctx context.Context, limit int) ([]*Exchange, error)

	// Clear deletes every exchange and returns how many were removed.
	Clear(ctx context.Context) (int64, error)

	// Close releases any resources held by the driver.
	Close() error
}

// ErrNotFound matches any NotFoundError via errors.Is.
var ErrNotFound = errors.New("exchange not found")

// NotFoundError is returned when an exchange doesn't exist in the store.
type NotFoundError struct {
	ID string
}

func (e NotFoundError) Error() string {
	if e.ID == "" {
		return ErrNotFound.Error()
	}
	return ErrNotFound.Error() + ": " + e.ID
}

func (e NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}
