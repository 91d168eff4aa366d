package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fjod/filecart/internal/metrics"
	"github.com/redis/go-redis/v9"
	gobreaker "github.com/sony/gobreaker/v2"
)

const redisKeyPrefix = "filecart:collection:"

// BreakerConfig tunes the circuit breaker around Redis calls.
type BreakerConfig struct {
	Name             string
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold uint32
}

func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		Name:             "redis-backend",
		MaxRequests:      1,
		Interval:         time.Minute,
		Timeout:          10 * time.Second,
		FailureThreshold: 5,
	}
}

// RedisBackend keeps each collection under a single key. SET replaces the
// value atomically.
type RedisBackend struct {
	client  *redis.Client
	breaker *gobreaker.CircuitBreaker[any]
}

func NewRedisBackend(client *redis.Client, cfg BreakerConfig) *RedisBackend {
	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, _, to gobreaker.State) {
			metrics.BreakerState.WithLabelValues(name).Set(float64(to))
		},
		// a missing collection is an answer, not a broken backend
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrCollectionNotFound)
		},
	}
	return &RedisBackend{
		client:  client,
		breaker: gobreaker.NewCircuitBreaker[any](settings),
	}
}

func (r *RedisBackend) Read(ctx context.Context, name string) ([]byte, error) {
	v, err := r.breaker.Execute(func() (any, error) {
		data, err := r.client.Get(ctx, redisKey(name)).Bytes()
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("%w: %s", ErrCollectionNotFound, name)
		}
		if err != nil {
			return nil, fmt.Errorf("%w: redis get %s: %w", ErrIO, name, err)
		}
		return data, nil
	})
	if err != nil {
		return nil, breakerError(name, err)
	}
	return v.([]byte), nil
}

func (r *RedisBackend) Write(ctx context.Context, name string, data []byte) error {
	_, err := r.breaker.Execute(func() (any, error) {
		if err := r.client.Set(ctx, redisKey(name), data, 0).Err(); err != nil {
			return nil, fmt.Errorf("%w: redis set %s: %w", ErrIO, name, err)
		}
		return nil, nil
	})
	return breakerError(name, err)
}

func (r *RedisBackend) Exists(ctx context.Context, name string) (bool, error) {
	v, err := r.breaker.Execute(func() (any, error) {
		n, err := r.client.Exists(ctx, redisKey(name)).Result()
		if err != nil {
			return nil, fmt.Errorf("%w: redis exists %s: %w", ErrIO, name, err)
		}
		return n > 0, nil
	})
	if err != nil {
		return false, breakerError(name, err)
	}
	return v.(bool), nil
}

func (r *RedisBackend) Close() error {
	return r.client.Close()
}

func breakerError(name string, err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %s: %w", ErrIO, name, err)
	}
	return err
}

func redisKey(name string) string {
	return redisKeyPrefix + name
}
