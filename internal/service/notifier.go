package service

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"

	"video_consultation/internal/domain"
	"video_consultation/pkg/logger"
)

const eventChannel = "video-session-events"

// Notifier publishes lifecycle events for the external notification
// collaborator. Delivery is best effort; failures are logged and
// swallowed.
type Notifier interface {
	Publish(ctx context.Context, event *domain.SessionEvent)
}

type redisNotifier struct {
	redis *redis.Client
	log   logger.Logger
}

func NewNotifier(rdb *redis.Client, log logger.Logger) Notifier {
	return &redisNotifier{redis: rdb, log: log}
}

func (n *redisNotifier) Publish(ctx context.Context, event *domain.SessionEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		n.log.Error("Failed to encode session event", "event_type", event.EventType, "error", err)
		return
	}

	if err := n.redis.Publish(ctx, eventChannel, payload).Err(); err != nil {
		n.log.Warn("Failed to publish session event", "event_type", event.EventType, "error", err)
	}
}
