package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/rednet/account-service/internal/core/domain"
	"github.com/rednet/account-service/internal/core/ports"
)

// StreamSink appends account events to a Redis stream. Each entry carries the
// event type in "type" and the JSON-encoded event in "event".
type StreamSink struct {
	client redis.Cmdable
	stream string
}

var _ ports.AccountEventSink = (*StreamSink)(nil)

func NewStreamSink(client redis.Cmdable, stream string) *StreamSink {
	return &StreamSink{client: client, stream: stream}
}

func (s *StreamSink) Send(ctx context.Context, event domain.AccountEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal account event: %w", err)
	}

	args := &redis.XAddArgs{
		Stream: s.stream,
		Values: map[string]any{
			"type":  string(event.Type),
			"event": payload,
		},
	}
	if err := s.client.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("xadd %s: %w", s.stream, err)
	}
	return nil
}
