// Package inmemory provides a map-backed history driver for tests and for
// sessions that should not touch disk.
package inmemory

import (
	"cmp"
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/papercomputeco/counsel/pkg/history"
)

// Driver implements history.Driver using an in-memory map.
type Driver struct {
	mu        sync.RWMutex
	exchanges map[string]*history.Exchange
}

// NewDriver creates a new in-memory driver.
func NewDriver() *Driver {
	return &Driver{
		exchanges: make(map[string]*history.Exchange),
	}
}

func (d *Driver) Put(_ context.Context, ex *history.Exchange) (bool, error) {
	if ex == nil {
		return false, errors.New("cannot store nil exchange")
	}
	if ex.ID == "" {
		return false, errors.New("exchange id is required")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.exchanges[ex.ID]; ok {
		return false, nil
	}

	stored := *ex
	d.exchanges[ex.ID] = &stored
	return true, nil
}

func (d *Driver) Get(_ context.Context, id string) (*history.Exchange, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	ex, ok := d.exchanges[id]
	if !ok {
		return nil, history.NotFoundError{ID: id}
	}

	out := *ex
	return &out, nil
}

func (d *Driver) List(_ context.Context, limit int) ([]*history.Exchange, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	result := make([]*history.Exchange, 0, len(d.exchanges))
	for _, ex := range d.exchanges {
		out := *ex
		result = append(result, &out)
	}

	slices.SortFunc(result, func(a, b *history.Exchange) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (d *Driver) Clear(_ context.Context) (int64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	n := int64(len(d.exchanges))
	d.exchanges = make(map[string]*history.Exchange)
	return n, nil
}

func (d *Driver) Close() error {
	return nil
}
