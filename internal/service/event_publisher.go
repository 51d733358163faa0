package service

import (
	"context"
	"time"

	"swimcoach-be/internal/pkg/logger"
	"swimcoach-be/pkg/events"
)

const eventPublishTimeout = 2 * time.Second

// publishEvent is best effort. A failure is logged and never reaches the caller.
func publishEvent(ctx context.Context, publisher events.Publisher, event events.Event, log logger.ILogger) {
	if publisher == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), eventPublishTimeout)
	defer cancel()

	if err := publisher.Publish(ctx, event); err != nil {
		log.Warn("EventPublisher", "Failed to publish event", map[string]interface{}{
			"type":  event.EventType(),
			"error": err.Error(),
		})
	}
}
