// Package kafka publishes exchange events to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/papercomputeco/counsel/pkg/eventstream"
	"github.com/papercomputeco/counsel/pkg/logger"
)

const defaultWriteTimeout = 10 * time.Second

// Config is the Kafka publisher configuration.
type Config struct {
	// Brokers are the bootstrap broker addresses.
	Brokers []string

	// Topic receives one message per exchange event.
	Topic string

	// WriteTimeout bounds a single write (defaults to 10s).
	WriteTimeout time.Duration

	Logger *slog.Logger
}

// messageWriter is the part of *kafka.Writer the publisher uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher writes exchange events as JSON messages keyed by session, so
// events of one session land on one partition in order.
type Publisher struct {
	writer messageWriter
	topic  string
	logger *slog.Logger
}

// NewPublisher creates a Kafka publisher. Connections are opened lazily on
// the first publish.
func NewPublisher(c Config) (*Publisher, error) {
	if len(c.Brokers) == 0 {
		return nil, errors.New("kafka publisher requires at least one broker")
	}
	if c.Topic == "" {
		return nil, errors.New("kafka publisher requires a topic")
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = defaultWriteTimeout
	}

	w := &kafka.Writer{
		Addr:                   kafka.TCP(c.Brokers...),
		Topic:                  c.Topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		WriteTimeout:           c.WriteTimeout,
		AllowAutoTopicCreation: true,
	}

	return newPublisher(w, c.Topic, c.Logger), nil
}

func newPublisher(w messageWriter, topic string, log *slog.Logger) *Publisher {
	return &Publisher{
		writer: w,
		topic:  topic,
		logger: logger.OrNop(log),
	}
}

// PublishExchange writes event to the topic.
func (p *Publisher) PublishExchange(ctx context.Context, event *eventstream.ExchangeRecordedEvent) error {
	if event == nil {
		return eventstream.ErrNilExchangeEvent
	}

	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encoding exchange event: %w", err)
	}

	key := event.Exchange.SessionID
	if key == "" {
		key = event.Exchange.ID
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(key),
		Value: value,
		Time:  event.EmittedAt,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
		},
	})
	if err != nil {
		return fmt.Errorf("publishing to %s: %w", p.topic, err)
	}

	p.logger.Debug("published exchange event",
		"topic", p.topic,
		"event_id", event.EventID,
		"exchange_id", event.Exchange.ID,
	)
	return nil
}

// Close flushes pending writes and closes connections.
func (p *Publisher) Close() error {
	return p.writer.Close()
}

// ParseBrokers splits a comma separated broker list, dropping blanks.
func ParseBrokers(s string) []string {
	var brokers []string
	for _, b := range strings.Split(s, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}
