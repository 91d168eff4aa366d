// Package store persists whole collections as JSON documents.
//
// A collection is the unit of consistency: it is always read in full and
// written in full. Backends only move opaque document bytes; Collection[T]
// owns the encoding and the per-collection lock that turns a load, mutate and
// save sequence into one exclusive step.
package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/fjod/filecart/internal/metrics"
	"golang.org/x/sync/semaphore"
)

// Every store failure wraps ErrUnavailable.
var (
	ErrUnavailable        = errors.New("store unavailable")
	ErrCollectionNotFound = fmt.Errorf("%w: collection not found", ErrUnavailable)
	ErrCorrupt            = fmt.Errorf("%w: collection document is corrupt", ErrUnavailable)
	ErrIO                 = fmt.Errorf("%w: i/o failure", ErrUnavailable)
	ErrLockTimeout        = fmt.Errorf("%w: timed out waiting for collection lock", ErrUnavailable)
)

const DefaultLockTimeout = 5 * time.Second

// Backend reads and replaces named documents. Write must replace the whole
// document atomically: a failed write leaves the previous document intact.
type Backend interface {
	Read(ctx context.Context, name string) ([]byte, error)
	Write(ctx context.Context, name string, data []byte) error
	Exists(ctx context.Context, name string) (bool, error)
	Close() error
}

// Store couples a backend with one lock per collection name.
type Store struct {
	backend     Backend
	lockTimeout time.Duration

	mu    sync.Mutex
	locks map[string]*semaphore.Weighted
}

type Option func(*Store)

func WithLockTimeout(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.lockTimeout = d
		}
	}
}

func New(backend Backend, opts ...Option) *Store {
	s := &Store{
		backend:     backend,
		lockTimeout: DefaultLockTimeout,
		locks:       make(map[string]*semaphore.Weighted),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Close() error {
	return s.backend.Close()
}

func (s *Store) lockFor(name string) *semaphore.Weighted {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[name]
	if !ok {
		l = semaphore.NewWeighted(1)
		s.locks[name] = l
	}
	return l
}

// acquire waits at most lockTimeout for the collection lock. Running out of
// time, either the lock timeout or the caller's deadline, yields
// ErrLockTimeout; only cancellation is passed through.
func (s *Store) acquire(ctx context.Context, name string) (func(), error) {
	l := s.lockFor(name)
	started := time.Now()

	waitCtx, cancel := context.WithTimeout(ctx, s.lockTimeout)
	defer cancel()

	err := l.Acquire(waitCtx, 1)
	metrics.StoreLockWait.WithLabelValues(name).Observe(time.Since(started).Seconds())
	if err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %s", ErrLockTimeout, name)
	}
	return func() { l.Release(1) }, nil
}
