package websocket

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"vidforge-backend/internal/models"
)

// EventPublisher pushes lifecycle events into the per-video pub/sub
// channels the hub subscribes to. Publishing is fire-and-forget; a
// dropped event never fails the pipeline stage that produced it.
type EventPublisher struct {
	redis *redis.Client
}

func NewEventPublisher(redisClient *redis.Client) *EventPublisher {
	return &EventPublisher{redis: redisClient}
}

func (p *EventPublisher) publish(ctx context.Context, videoID uuid.UUID, msg models.WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	p.redis.Publish(ctx, "video_updates:"+videoID.String(), string(data))
}

func (p *EventPublisher) PublishProgress(ctx context.Context, update models.ProgressUpdate) {
	p.publish(ctx, update.VideoID, models.WSMessage{Type: "progress", Payload: update})
}

func (p *EventPublisher) PublishCompleted(ctx context.Context, event models.CompletedEvent) {
	p.publish(ctx, event.VideoID, models.WSMessage{Type: "completed", Payload: event})
}

func (p *EventPublisher) PublishError(ctx context.Context, event models.ErrorEvent) {
	p.publish(ctx, event.VideoID, models.WSMessage{Type: "error", Payload: event})
}
