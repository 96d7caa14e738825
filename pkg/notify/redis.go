package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"bargain-backend/model"
)

// RedisBroker publishes decisions on a per-user Redis channel so any instance
// holding the user's websocket can deliver them.
type RedisBroker struct {
	client *redis.Client
	prefix string
	logger *zap.Logger
}

func NewRedisBroker(client *redis.Client, prefix string, logger *zap.Logger) (*RedisBroker, error) {
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisBroker{client: client, prefix: prefix, logger: logger}, nil
}

// Channel is the pub/sub channel name for userID.
func Channel(prefix, userID string) string {
	return prefix + "bargain:user:" + userID
}

func (b *RedisBroker) Notify(ctx context.Context, userID string, d model.Decision) error {
	data, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("encode decision: %w", err)
	}
	if err := b.client.Publish(ctx, Channel(b.prefix, userID), data).Err(); err != nil {
		return fmt.Errorf("publish decision: %w", err)
	}
	return nil
}

func (b *RedisBroker) Subscribe(ctx context.Context, userID string) (<-chan model.Decision, func()) {
	pubsub := b.client.Subscribe(ctx, Channel(b.prefix, userID))
	out := make(chan model.Decision, bufferSize)

	go func() {
		defer close(out)
		for msg := range pubsub.Channel() {
			var d model.Decision
			if err := json.Unmarshal([]byte(msg.Payload), &d); err != nil {
				b.logger.Warn("dropping malformed decision",
					zap.String("channel", msg.Channel), zap.Error(err))
				continue
			}
			select {
			case out <- d:
			default:
				b.logger.Warn("subscriber buffer full, dropping decision", zap.String("user_id", userID))
			}
		}
	}()

	return out, func() { _ = pubsub.Close() }
}

func (b *RedisBroker) Close() error {
	return b.client.Close()
}
