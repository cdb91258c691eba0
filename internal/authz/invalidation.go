package authz

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// InvalidationChannel carries cache invalidation fan-out between processes.
const InvalidationChannel = "flow:authz:invalidate"

type invalidationMessage struct {
	// UserID identifies the user whose contexts must be dropped; empty
	// means flush everything.
	UserID string `json:"user_id"`
}

// Broadcaster propagates cache invalidations to peer processes over Redis
// pub/sub. Local eviction always happens synchronously before a mutation
// returns; the broadcast is best effort and only narrows the staleness
// window on other instances.
type Broadcaster struct {
	client *redis.Client
	logger *slog.Logger
}

// NewBroadcaster constructs a Broadcaster. A nil client disables fan-out.
func NewBroadcaster(client *redis.Client, logger *slog.Logger) *Broadcaster {
	if logger == nil {
		logger = slog.Default()
	}
	return &Broadcaster{client: client, logger: logger}
}

// PublishUser announces that one user's contexts were invalidated.
func (b *Broadcaster) PublishUser(ctx context.Context, userID string) {
	b.publish(ctx, invalidationMessage{UserID: userID})
}

// PublishAll announces a full cache flush.
func (b *Broadcaster) PublishAll(ctx context.Context) {
	b.publish(ctx, invalidationMessage{})
}

func (b *Broadcaster) publish(ctx context.Context, msg invalidationMessage) {
	if b == nil || b.client == nil {
		return
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		b.logger.Warn("marshal invalidation", slog.Any("error", err))
		return
	}
	if err := b.client.Publish(ctx, InvalidationChannel, payload).Err(); err != nil {
		b.logger.Warn("publish invalidation", slog.Any("error", err))
	}
}

// Listen applies peer invalidations to the local cache until ctx is done.
// Intended to run in its own goroutine per process.
func (b *Broadcaster) Listen(ctx context.Context, cache *ContextCache) {
	if b == nil || b.client == nil || cache == nil {
		return
	}
	sub := b.client.Subscribe(ctx, InvalidationChannel)
	defer func() {
		if err := sub.Close(); err != nil {
			b.logger.Warn("close invalidation subscription", slog.Any("error", err))
		}
	}()
	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var payload invalidationMessage
			if err := json.Unmarshal([]byte(msg.Payload), &payload); err != nil {
				b.logger.Warn("decode invalidation", slog.Any("error", err))
				continue
			}
			if payload.UserID == "" {
				cache.InvalidateAll()
				continue
			}
			cache.InvalidateUser(payload.UserID)
		}
	}
}
