// Package recorder persists exchanges to a history.Driver from a small pool
// of background workers, off the path that renders answers.
package recorder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/papercomputeco/counsel/pkg/eventstream"
	"github.com/papercomputeco/counsel/pkg/history"
	"github.com/papercomputeco/counsel/pkg/logger"
	"github.com/papercomputeco/counsel/pkg/utils"
)

var (
	defaultNumWorkers uint = 2
	defaultQueueSize  uint = 64

	defaultWriteTimeout = 10 * time.Second
)

// Config is the configuration options for a Recorder.
type Config struct {
	// Driver is the history backend exchanges are written to.
	Driver history.Driver

	// NumWorkers is the number of background workers (defaults to 2).
	NumWorkers uint

	// QueueSize is the capacity of the buffered exchange channel (defaults to 64).
	QueueSize uint

	// WriteTimeout bounds a single Put (defaults to 10s).
	WriteTimeout time.Duration

	// Publisher, when set, receives an event for every newly stored
	// exchange. The Recorder does not close it.
	Publisher eventstream.Publisher

	Logger *slog.Logger
}

// Recorder writes exchanges asynchronously.
type Recorder struct {
	config *Config
	queue  chan *history.Exchange
	wg     sync.WaitGroup
	once   sync.Once
	logger *slog.Logger

	mu    sync.Mutex
	stats Stats
}

// Stats counts the outcome of recorded exchanges.
type Stats struct {
	Stored    int
	Failed    int
	Dropped   int
	Published int

	// PublishFailed counts stored exchanges whose event was not delivered.
	PublishFailed int
}

// New creates a Recorder and starts its workers.
func New(c *Config) (*Recorder, error) {
	if c.Driver == nil {
		return nil, errors.New("recorder requires a history driver")
	}

	if c.NumWorkers == 0 {
		c.NumWorkers = defaultNumWorkers
	}
	if c.QueueSize == 0 {
		c.QueueSize = defaultQueueSize
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = defaultWriteTimeout
	}

	if c.NumWorkers > uint(math.MaxInt) {
		return nil, fmt.Errorf("NumWorkers %d exceeds max int", c.NumWorkers)
	}

	r := &Recorder{
		config: c,
		queue:  make(chan *history.Exchange, c.QueueSize),
		logger: logger.OrNop(c.Logger),
	}

	r.wg.Add(int(c.NumWorkers))
	for i := range c.NumWorkers {
		go r.worker(i)
	}

	return r, nil
}

// Record queues ex for writing. It returns false, dropping ex, when the
// queue is full.
func (r *Recorder) Record(ex *history.Exchange) bool {
	select {
	case r.queue <- ex:
		r.logger.Debug("exchange queued", "id", ex.ID)
		return true
	default:
		r.logger.Error("exchange not queued, queue full, exchange dropped", "id", ex.ID)
		r.count(func(s *Stats) { s.Dropped++ })
		return false
	}
}

// Close stops the workers after the queued exchanges are written. Record
// must not be called after Close.
func (r *Recorder) Close() {
	r.once.Do(func() {
		close(r.queue)
	})
	r.wg.Wait()
}

// Stats returns the counts so far. They are final once Close returns.
func (r *Recorder) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stats
}

func (r *Recorder) worker(id uint) {
	defer r.wg.Done()
	r.logger.Debug("recorder worker started", "worker_id", id)

	for ex := range r.queue {
		r.write(ex)
	}

	r.logger.Debug("recorder worker stopped", "worker_id", id)
}

func (r *Recorder) write(ex *history.Exchange) {
	ctx, cancel := context.WithTimeout(context.Background(), r.config.WriteTimeout)
	defer cancel()

	isNew, err := r.config.Driver.Put(ctx, ex)
	if err != nil {
		r.logger.Warn("failed to record exchange", "id", ex.ID, "error", err)
		r.count(func(s *Stats) { s.Failed++ })
		return
	}

	r.logger.Debug("recorded exchange",
		"id", ex.ID,
		"session_id", ex.SessionID,
		"is_new", isNew,
	)
	r.count(func(s *Stats) { s.Stored++ })

	if isNew && r.config.Publisher != nil {
		r.publish(ctx, ex)
	}
}

func (r *Recorder) publish(ctx context.Context, ex *history.Exchange) {
	event := eventstream.NewExchangeRecordedEvent(ex, eventstream.EventSource{
		Client:  "counsel",
		Version: utils.Version,
	})
	if err := r.config.Publisher.PublishExchange(ctx, event); err != nil {
		r.logger.Warn("failed to publish exchange event", "id", ex.ID, "error", err)
		r.count(func(s *Stats) { s.PublishFailed++ })
		return
	}
	r.count(func(s *Stats) { s.Published++ })
}

func (r *Recorder) count(fn func(*Stats)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fn(&r.stats)
}
