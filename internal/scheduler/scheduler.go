// Package scheduler runs the recurring campaigns: daily idea
// generation, daily uploads and hourly analytics refresh.
package scheduler

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
	"vidforge-backend/internal/repository"
	"vidforge-backend/internal/services"
)

const (
	autoGenerateLastRunKey = "scheduler:auto_generate_last_run_at"
	autoUploadLastRunKey   = "scheduler:auto_upload_last_run_at"
	analyticsLastRunKey    = "scheduler:analytics_sync_last_run_at"

	autoGenerateInterval = 24 * time.Hour
	autoUploadInterval   = 24 * time.Hour
	analyticsInterval    = 1 * time.Hour

	pollInterval = 5 * time.Minute
)

type ChannelSource interface {
	ListAutoGenerate(ctx context.Context) ([]*models.Channel, error)
	ListAutoUpload(ctx context.Context) ([]*models.Channel, error)
}

type VideoSource interface {
	Create(ctx context.Context, v *models.Video) error
	OldestGenerated(ctx context.Context, channelID uuid.UUID) (*models.Video, error)
	ListUploaded(ctx context.Context) ([]*models.Video, error)
}

type IdeaGenerator interface {
	GenerateCompleteIdea(ctx context.Context, niche string, targetSeconds int) (*services.IdeaResult, error)
}

type JobDispatcher interface {
	Create(ctx context.Context, j *models.Job) error
}

type Enqueuer interface {
	Enqueue(ctx context.Context, job *models.Job) error
}

// CampaignResult reports one campaign run for logging and tests.
type CampaignResult struct {
	Eligible int
	Queued   int
	Failed   int
}

// Scheduler wakes up every few minutes and fires whichever campaigns
// are due, tracking last-run stamps in redis so restarts do not
// double-fire.
type Scheduler struct {
	channels ChannelSource
	videos   VideoSource
	ideas    IdeaGenerator
	jobs     JobDispatcher
	queue    Enqueuer
	redis    *redis.Client

	autoGenerateEnabled bool
	autoUploadEnabled   bool
	defaultDuration     int
	defaultPrivacy      string

	stopChan chan struct{}
}

func NewScheduler(
	channels ChannelSource,
	videos VideoSource,
	ideas IdeaGenerator,
	jobs JobDispatcher,
	queue Enqueuer,
	redisClient *redis.Client,
	autoGenerateEnabled, autoUploadEnabled bool,
	defaultDuration int,
	defaultPrivacy string,
) *Scheduler {
	if defaultDuration <= 0 {
		defaultDuration = 300
	}
	if defaultPrivacy == "" {
		defaultPrivacy = "private"
	}
	return &Scheduler{
		channels:            channels,
		videos:              videos,
		ideas:               ideas,
		jobs:                jobs,
		queue:               queue,
		redis:               redisClient,
		autoGenerateEnabled: autoGenerateEnabled,
		autoUploadEnabled:   autoUploadEnabled,
		defaultDuration:     defaultDuration,
		defaultPrivacy:      defaultPrivacy,
		stopChan:            make(chan struct{}),
	}
}

func (s *Scheduler) Start() {
	go s.loop(autoGenerateLastRunKey, autoGenerateInterval, s.autoGenerateEnabled, func(ctx context.Context) {
		result := s.RunAutoGenerate(ctx)
		log.Printf("scheduler: auto-generate done (eligible=%d queued=%d failed=%d)", result.Eligible, result.Queued, result.Failed)
	})
	go s.loop(autoUploadLastRunKey, autoUploadInterval, s.autoUploadEnabled, func(ctx context.Context) {
		result := s.RunAutoUpload(ctx)
		log.Printf("scheduler: auto-upload done (eligible=%d queued=%d failed=%d)", result.Eligible, result.Queued, result.Failed)
	})
	go s.loop(analyticsLastRunKey, analyticsInterval, true, func(ctx context.Context) {
		result := s.RunAnalyticsSync(ctx)
		log.Printf("scheduler: analytics sync done (eligible=%d queued=%d failed=%d)", result.Eligible, result.Queued, result.Failed)
	})

	log.Printf("Scheduler started")
}

func (s *Scheduler) Stop() {
	select {
	case <-s.stopChan:
		return
	default:
		close(s.stopChan)
	}
}

func (s *Scheduler) loop(lastRunKey string, interval time.Duration, enabled bool, runFn func(ctx context.Context)) {
	if !enabled {
		return
	}

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		ctx := context.Background()
		if s.due(ctx, lastRunKey, interval, time.Now().UTC()) {
			runFn(ctx)
			s.stamp(ctx, lastRunKey, time.Now().UTC())
		}

		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
		}
	}
}

func (s *Scheduler) due(ctx context.Context, key string, interval time.Duration, now time.Time) bool {
	raw, err := s.redis.Get(ctx, key).Result()
	if err == redis.Nil {
		return true
	}
	if err != nil {
		log.Printf("scheduler: failed to read %s: %v", key, err)
		return false
	}

	lastRun, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return true
	}
	return now.Sub(lastRun) >= interval
}

func (s *Scheduler) stamp(ctx context.Context, key string, now time.Time) {
	if err := s.redis.Set(ctx, key, now.Format(time.RFC3339), 0).Err(); err != nil {
		log.Printf("scheduler: failed to stamp %s: %v", key, err)
	}
}

// RunAutoGenerate creates one fresh draft per eligible channel and
// queues its generation. A channel that fails does not stop the rest.
func (s *Scheduler) RunAutoGenerate(ctx context.Context) CampaignResult {
	var result CampaignResult

	channels, err := s.channels.ListAutoGenerate(ctx)
	if err != nil {
		log.Printf("scheduler: auto-generate: failed to list channels: %v", err)
		return result
	}
	result.Eligible = len(channels)

	for _, channel := range channels {
		duration := channel.DefaultDuration
		if duration <= 0 {
			duration = s.defaultDuration
		}

		idea, err := s.ideas.GenerateCompleteIdea(ctx, channel.Niche, duration)
		if err != nil {
			log.Printf("scheduler: auto-generate: idea failed for channel %s: %v", channel.ID, err)
			result.Failed++
			continue
		}

		video := &models.Video{
			ChannelID:      channel.ID,
			Title:          idea.Title,
			Description:    &idea.Description,
			Script:         &idea.Script,
			Tags:           idea.Tags,
			Category:       idea.Category,
			TargetDuration: duration,
		}
		if err := s.videos.Create(ctx, video); err != nil {
			log.Printf("scheduler: auto-generate: create failed for channel %s: %v", channel.ID, err)
			result.Failed++
			continue
		}

		if err := s.dispatch(ctx, models.JobVideoGeneration, video.ID, nil); err != nil {
			log.Printf("scheduler: auto-generate: dispatch failed for video %s: %v", video.ID, err)
			result.Failed++
			continue
		}
		result.Queued++
	}

	return result
}

// RunAutoUpload queues at most one upload per eligible channel, always
// the oldest generated video, so channels drain their backlog in order.
func (s *Scheduler) RunAutoUpload(ctx context.Context) CampaignResult {
	var result CampaignResult

	channels, err := s.channels.ListAutoUpload(ctx)
	if err != nil {
		log.Printf("scheduler: auto-upload: failed to list channels: %v", err)
		return result
	}
	result.Eligible = len(channels)

	for _, channel := range channels {
		video, err := s.videos.OldestGenerated(ctx, channel.ID)
		if errors.Is(err, repository.ErrNotFound) {
			continue
		}
		if err != nil {
			log.Printf("scheduler: auto-upload: lookup failed for channel %s: %v", channel.ID, err)
			result.Failed++
			continue
		}

		payload, _ := json.Marshal(models.UploadPayload{Privacy: s.defaultPrivacy})
		if err := s.dispatch(ctx, models.JobVideoUpload, video.ID, payload); err != nil {
			log.Printf("scheduler: auto-upload: dispatch failed for video %s: %v", video.ID, err)
			result.Failed++
			continue
		}
		result.Queued++
	}

	return result
}

// RunAnalyticsSync queues a metrics refresh for every uploaded video.
func (s *Scheduler) RunAnalyticsSync(ctx context.Context) CampaignResult {
	var result CampaignResult

	videos, err := s.videos.ListUploaded(ctx)
	if err != nil {
		log.Printf("scheduler: analytics sync: failed to list videos: %v", err)
		return result
	}
	result.Eligible = len(videos)

	for _, video := range videos {
		if err := s.dispatch(ctx, models.JobAnalyticsSync, video.ID, nil); err != nil {
			log.Printf("scheduler: analytics sync: dispatch failed for video %s: %v", video.ID, err)
			result.Failed++
			continue
		}
		result.Queued++
	}

	return result
}

func (s *Scheduler) dispatch(ctx context.Context, jobType string, videoID uuid.UUID, payload []byte) error {
	job := &models.Job{Type: jobType, VideoID: videoID, PayloadJSON: payload}
	if err := s.jobs.Create(ctx, job); err != nil {
		return fmt.Errorf("create job: %w", err)
	}
	if err := s.queue.Enqueue(ctx, job); err != nil {
		return fmt.Errorf("enqueue job: %w", err)
	}
	return nil
}
