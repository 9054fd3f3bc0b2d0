package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"vidforge-backend/internal/models"
	"vidforge-backend/internal/pipeline"
	"vidforge-backend/internal/queue"
	"vidforge-backend/internal/repository"
)

// Dispatcher is the slice of the orchestrator the pool drives.
type Dispatcher interface {
	Generate(ctx context.Context, videoID uuid.UUID) (*pipeline.Result, error)
	Upload(ctx context.Context, videoID uuid.UUID, payload models.UploadPayload) (*pipeline.Result, error)
	SyncAnalytics(ctx context.Context, videoID uuid.UUID) (*pipeline.Result, error)
}

// JobStore is the slice of the job repository the pool needs.
type JobStore interface {
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
	UpdateError(ctx context.Context, id uuid.UUID, errMsg string, retryCount int) error
}

type Pool struct {
	redis       *redis.Client
	dispatcher  Dispatcher
	jobRepo     JobStore
	workerCount int
	stopChan    chan struct{}
}

func NewPool(redisClient *redis.Client, dispatcher Dispatcher, jobRepo JobStore, workerCount int) *Pool {
	return &Pool{
		redis:       redisClient,
		dispatcher:  dispatcher,
		jobRepo:     jobRepo,
		workerCount: workerCount,
		stopChan:    make(chan struct{}),
	}
}

func (p *Pool) Start() {
	for i := 0; i < p.workerCount; i++ {
		go p.worker(i)
	}

	log.Printf("Started %d worker goroutines", p.workerCount)
}

func (p *Pool) Stop() {
	close(p.stopChan)
}

func (p *Pool) worker(id int) {
	for {
		select {
		case <-p.stopChan:
			log.Printf("Worker %d shutting down", id)
			return
		default:
		}

		ctx := context.Background()

		// BLPOP with 30s timeout
		result, err := p.redis.BLPop(ctx, 30*time.Second, queue.Queues...).Result()
		if err != nil {
			continue // Timeout or error, retry
		}

		if len(result) < 2 {
			continue
		}

		var job models.Job
		if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
			log.Printf("Worker %d: failed to parse job: %v", id, err)
			continue
		}

		// One worker per video at a time, across the whole pool.
		lockKey := fmt.Sprintf("video_lock:%s", job.VideoID.String())
		locked, err := p.redis.SetNX(ctx, lockKey, job.ID.String(), 10*time.Minute).Result()
		if err != nil || !locked {
			continue // Another worker owns this video
		}

		log.Printf("Worker %d: processing job %s (type: %s, video: %s)", id, job.ID, job.Type, job.VideoID)

		p.jobRepo.UpdateStatus(ctx, job.ID, "processing")

		stageResult, processErr := p.process(ctx, &job)
		if processErr != nil {
			p.handleFailure(ctx, &job, processErr)
		} else {
			p.handleSuccess(ctx, &job, stageResult)
		}

		p.redis.Del(ctx, lockKey)
	}
}

func (p *Pool) process(ctx context.Context, job *models.Job) (*pipeline.Result, error) {
	switch job.Type {
	case models.JobVideoGeneration:
		return p.dispatcher.Generate(ctx, job.VideoID)
	case models.JobVideoUpload:
		var payload models.UploadPayload
		if len(job.PayloadJSON) > 0 {
			json.Unmarshal(job.PayloadJSON, &payload)
		}
		return p.dispatcher.Upload(ctx, job.VideoID, payload)
	case models.JobAnalyticsSync:
		return p.dispatcher.SyncAnalytics(ctx, job.VideoID)
	default:
		return nil, fmt.Errorf("unknown job type: %s", job.Type)
	}
}

// handleSuccess covers every outcome the orchestrator resolved itself,
// including final domain failures: nothing is left for this job to retry.
func (p *Pool) handleSuccess(ctx context.Context, job *models.Job, result *pipeline.Result) {
	p.jobRepo.UpdateStatus(ctx, job.ID, "completed")

	switch {
	case result == nil:
		log.Printf("Job %s completed", job.ID)
	case result.Skipped:
		log.Printf("Job %s skipped: %s", job.ID, result.Message)
	case result.Status == models.VideoFailed:
		p.jobRepo.UpdateError(ctx, job.ID, result.Message, job.RetryCount)
		log.Printf("Job %s finished with a final video failure: %s", job.ID, result.Message)
	default:
		log.Printf("Job %s completed (video %s now %s)", job.ID, result.VideoID, result.Status)
	}
}

// handleFailure re-queues infrastructure failures with exponential
// backoff until the retry budget runs out. A missing video is final:
// retrying a job whose record is gone can never succeed.
func (p *Pool) handleFailure(ctx context.Context, job *models.Job, err error) {
	if errors.Is(err, repository.ErrNotFound) {
		log.Printf("Job %s failed permanently: video %s not found", job.ID, job.VideoID)
		p.jobRepo.UpdateStatus(ctx, job.ID, "failed")
		p.jobRepo.UpdateError(ctx, job.ID, err.Error(), job.RetryCount)
		return
	}

	job.RetryCount++
	errMsg := err.Error()

	maxRetries := job.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}

	if job.RetryCount < maxRetries {
		log.Printf("Job %s failed (attempt %d): %s, retrying", job.ID, job.RetryCount, errMsg)
		p.jobRepo.UpdateStatus(ctx, job.ID, "pending")
		p.jobRepo.UpdateError(ctx, job.ID, errMsg, job.RetryCount)

		queueName, qErr := queue.QueueFor(job.Type)
		if qErr != nil {
			log.Printf("Job %s: %v", job.ID, qErr)
			return
		}

		jobBytes, _ := json.Marshal(job)
		backoff := time.Duration(1<<uint(job.RetryCount)) * time.Second
		time.AfterFunc(backoff, func() {
			p.redis.LPush(context.Background(), queueName, string(jobBytes))
		})
		return
	}

	log.Printf("Job %s failed permanently: %s", job.ID, errMsg)
	p.jobRepo.UpdateStatus(ctx, job.ID, "failed")
	p.jobRepo.UpdateError(ctx, job.ID, errMsg, job.RetryCount)
}
