package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/alanyoungcy/polycopy/internal/domain"
)

// streamMaxLen is the approximate cap applied with XADD MAXLEN ~.
const streamMaxLen int64 = 10000

// DecisionStream implements domain.DecisionStream on a Redis stream. Each
// entry carries the JSON decision record under "payload" and the outcome
// under "outcome" for cheap filtering by consumers.
type DecisionStream struct {
	c      *Client
	stream string
}

// NewDecisionStream creates a DecisionStream writing to stream.
func NewDecisionStream(c *Client, stream string) *DecisionStream {
	return &DecisionStream{c: c, stream: c.Key(stream)}
}

// Publish appends rec to the stream.
func (s *DecisionStream) Publish(ctx context.Context, rec domain.DecisionRecord) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("redis: marshal decision: %w", err)
	}
	args := &redis.XAddArgs{
		Stream: s.stream,
		MaxLen: streamMaxLen,
		Approx: true,
		Values: map[string]interface{}{
			"payload": payload,
			"outcome": string(rec.Outcome),
		},
	}
	if err := s.c.rdb.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("redis: stream append %s: %w", s.stream, err)
	}
	return nil
}

// Read returns up to count entries after lastID ("0" reads from the
// start). An empty result is not an error.
func (s *DecisionStream) Read(ctx context.Context, lastID string, count int) ([]domain.StreamMessage, error) {
	results, err := s.c.rdb.XRead(ctx, &redis.XReadArgs{
		Streams: []string{s.stream, lastID},
		Count:   int64(count),
		Block:   -1,
	}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("redis: stream read %s: %w", s.stream, err)
	}

	var messages []domain.StreamMessage
	for _, st := range results {
		for _, msg := range st.Messages {
			if data, ok := payloadBytes(msg.Values["payload"]); ok {
				messages = append(messages, domain.StreamMessage{ID: msg.ID, Payload: data})
			}
		}
	}
	return messages, nil
}

func payloadBytes(v any) ([]byte, bool) {
	switch p := v.(type) {
	case string:
		return []byte(p), true
	case []byte:
		return p, true
	default:
		return nil, false
	}
}

var _ domain.DecisionStream = (*DecisionStream)(nil)
