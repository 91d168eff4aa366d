package store

import (
	"context"
	"fmt"
	"time"

	"github.com/fjod/filecart/internal/metrics"
	"github.com/goccy/go-json"
)

// Collection is a typed view over one named document holding a JSON array.
type Collection[T any] struct {
	store *Store
	name  string
}

func NewCollection[T any](s *Store, name string) *Collection[T] {
	return &Collection[T]{store: s, name: name}
}

func (c *Collection[T]) Name() string {
	return c.name
}

// Load reads and decodes the whole collection. It never returns a nil slice
// on success.
func (c *Collection[T]) Load(ctx context.Context) (records []T, err error) {
	defer func(started time.Time) {
		metrics.ObserveStoreOp(c.name, "load", started, err)
	}(time.Now())

	data, err := c.store.backend.Read(ctx, c.name)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrCorrupt, c.name, err)
	}
	if records == nil {
		records = []T{}
	}
	return records, nil
}

// Save replaces the whole collection with records.
func (c *Collection[T]) Save(ctx context.Context, records []T) (err error) {
	defer func(started time.Time) {
		metrics.ObserveStoreOp(c.name, "save", started, err)
	}(time.Now())

	if records == nil {
		records = []T{}
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: encode %s: %w", ErrIO, c.name, err)
	}
	return c.store.backend.Write(ctx, c.name, data)
}

// Update runs load, fn and save while holding the collection lock. If fn
// returns an error nothing is written and the error is returned unchanged.
func (c *Collection[T]) Update(ctx context.Context, fn func([]T) ([]T, error)) error {
	release, err := c.store.acquire(ctx, c.name)
	if err != nil {
		return err
	}
	defer release()

	records, err := c.Load(ctx)
	if err != nil {
		return err
	}
	next, err := fn(records)
	if err != nil {
		return err
	}
	return c.Save(ctx, next)
}

// Ensure creates an empty collection if none exists yet.
func (c *Collection[T]) Ensure(ctx context.Context) error {
	release, err := c.store.acquire(ctx, c.name)
	if err != nil {
		return err
	}
	defer release()

	ok, err := c.store.backend.Exists(ctx, c.name)
	if err != nil {
		return err
	}
	if ok {
		return nil
	}
	return c.Save(ctx, []T{})
}
