package changefeed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"asamblea/pkg/requestcontext"
)

const redisChannelPrefix = "asamblea:changes:"

// Redis fans changes out over Redis pub/sub so every server instance sees them.
type Redis struct {
	client *redis.Client
	logger *slog.Logger
}

func NewRedis(client *redis.Client, logger *slog.Logger) *Redis {
	if logger == nil {
		logger = slog.Default()
	}
	return &Redis{client: client, logger: logger}
}

func (r *Redis) Publish(ctx context.Context, change Change) error {
	if change.At.IsZero() {
		change.At = requestcontext.Now(ctx)
	}
	payload, err := json.Marshal(change)
	if err != nil {
		return fmt.Errorf("marshal change: %w", err)
	}
	if err := r.client.Publish(ctx, redisChannelPrefix+topic(change.EntityType, change.EntityID), payload).Err(); err != nil {
		return fmt.Errorf("publish change: %w", err)
	}
	return nil
}

func (r *Redis) Subscribe(ctx context.Context, entityType EntityType, entityID string, fn func(Change)) (func(), error) {
	pubsub := r.client.Subscribe(ctx, redisChannelPrefix+topic(entityType, entityID))
	// Receive blocks until the subscription is confirmed.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("subscribe: %w", err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var change Change
				if err := json.Unmarshal([]byte(msg.Payload), &change); err != nil {
					r.logger.WarnContext(ctx, "dropping malformed change", "error", err, "channel", msg.Channel)
					continue
				}
				fn(change)
			}
		}
	}()

	return func() {
		_ = pubsub.Close()
		<-done
	}, nil
}
