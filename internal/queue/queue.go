// Package queue moves jobs between the API, the scheduler and the
// worker pool over redis lists.
package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"vidforge-backend/internal/models"
)

// One list per job type so slow uploads never starve generation.
const (
	QueueVideoGeneration = "queue:video-generation"
	QueueVideoUpload     = "queue:video-upload"
	QueueAnalyticsSync   = "queue:analytics-sync"
)

// Queues lists every queue the worker pool consumes, in priority order.
var Queues = []string{QueueVideoGeneration, QueueVideoUpload, QueueAnalyticsSync}

// QueueFor maps a job type to its redis list.
func QueueFor(jobType string) (string, error) {
	switch jobType {
	case models.JobVideoGeneration:
		return QueueVideoGeneration, nil
	case models.JobVideoUpload:
		return QueueVideoUpload, nil
	case models.JobAnalyticsSync:
		return QueueAnalyticsSync, nil
	default:
		return "", fmt.Errorf("unknown job type %q", jobType)
	}
}

type Queue struct {
	redis *redis.Client
}

func NewQueue(redisClient *redis.Client) *Queue {
	return &Queue{redis: redisClient}
}

// Enqueue pushes the job onto its type's list.
func (q *Queue) Enqueue(ctx context.Context, job *models.Job) error {
	name, err := QueueFor(job.Type)
	if err != nil {
		return err
	}

	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job %s: %w", job.ID, err)
	}

	if err := q.redis.LPush(ctx, name, data).Err(); err != nil {
		return fmt.Errorf("failed to enqueue job %s: %w", job.ID, err)
	}
	return nil
}
