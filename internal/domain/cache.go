package domain

import (
	"context"
	"time"
)

// RateLimiter provides distributed sliding-window rate limiting.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// LockManager provides distributed locking.
type LockManager interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (unlock func(), err error)
}

// StreamMessage represents a single entry from a Redis stream.
type StreamMessage struct {
	ID      string
	Payload []byte
}

// DecisionStream fans terminal decisions out to other consumers.
type DecisionStream interface {
	Publish(ctx context.Context, rec DecisionRecord) error
	Read(ctx context.Context, lastID string, count int) ([]StreamMessage, error)
}
