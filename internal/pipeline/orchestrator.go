package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"vidforge-backend/internal/models"
	"vidforge-backend/internal/services"
)

// PreconditionError rejects an operation the video's current status
// does not allow. It carries enough context for a 409 response.
type PreconditionError struct {
	VideoID uuid.UUID
	Status  models.VideoStatus
	Op      string
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("cannot %s video %s in status %s", e.Op, e.VideoID, e.Status)
}

// VideoStore is the persistence surface the orchestrator needs.
type VideoStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Video, error)
	BeginGeneration(ctx context.Context, id uuid.UUID) (bool, error)
	BeginUpload(ctx context.Context, id uuid.UUID) (bool, error)
	UpdateProgress(ctx context.Context, id uuid.UUID, progress int) error
	SaveScript(ctx context.Context, id uuid.UUID, script string) error
	MarkGenerated(ctx context.Context, id uuid.UUID, videoPath, thumbnailPath string, duration int, fileSize int64) error
	MarkUploaded(ctx context.Context, id uuid.UUID, youtubeVideoID string, publishedAt time.Time) error
	MarkFailed(ctx context.Context, id uuid.UUID, errMsg string) error
}

type AnalyticsStore interface {
	Upsert(ctx context.Context, a *models.VideoAnalytics) error
}

// ScriptGenerator produces narration scripts for drafts without one.
type ScriptGenerator interface {
	GenerateScript(ctx context.Context, title, description string, targetSeconds int) (*services.ScriptResult, error)
}

// Enqueuer pushes jobs onto the work queues.
type Enqueuer interface {
	Enqueue(ctx context.Context, job *models.Job) error
}

type JobStore interface {
	Create(ctx context.Context, j *models.Job) error
}

// ProgressSink broadcasts lifecycle events to connected clients.
type ProgressSink interface {
	PublishProgress(ctx context.Context, update models.ProgressUpdate)
	PublishCompleted(ctx context.Context, event models.CompletedEvent)
	PublishError(ctx context.Context, event models.ErrorEvent)
}

// Result reports the outcome of one pipeline stage. A failed Result
// with a nil error means the failure is final and already persisted;
// the caller must not retry it.
type Result struct {
	VideoID uuid.UUID
	Status  models.VideoStatus
	Skipped bool
	Message string
}

// Orchestrator owns the status transitions. Every stage claims its
// video with a conditional update first, so duplicate jobs and
// concurrent API calls collapse into a single execution.
type Orchestrator struct {
	videos    VideoStore
	analytics AnalyticsStore
	scripts   ScriptGenerator
	renderer  services.Renderer
	publisher services.Publisher
	jobs      JobStore
	queue     Enqueuer
	sink      ProgressSink
}

func NewOrchestrator(
	videos VideoStore,
	analytics AnalyticsStore,
	scripts ScriptGenerator,
	renderer services.Renderer,
	publisher services.Publisher,
	jobs JobStore,
	queue Enqueuer,
	sink ProgressSink,
) *Orchestrator {
	return &Orchestrator{
		videos:    videos,
		analytics: analytics,
		scripts:   scripts,
		renderer:  renderer,
		publisher: publisher,
		jobs:      jobs,
		queue:     queue,
		sink:      sink,
	}
}

// RequestGeneration is the API-facing entry point. It enqueues a
// generation job when the video is eligible. Requesting generation of
// a video that is already generating is not an error: the caller gets
// the current progress and no duplicate job is queued.
func (o *Orchestrator) RequestGeneration(ctx context.Context, videoID uuid.UUID) (*Result, error) {
	video, err := o.videos.GetByID(ctx, videoID)
	if err != nil {
		return nil, err
	}

	if video.Status == models.VideoGenerating {
		return &Result{
			VideoID: videoID,
			Status:  video.Status,
			Skipped: true,
			Message: fmt.Sprintf("generation already in progress (%d%%)", video.GenerationProgress),
		}, nil
	}

	if !Generatable(video.Status) {
		return nil, &PreconditionError{VideoID: videoID, Status: video.Status, Op: "generate"}
	}

	job := &models.Job{Type: models.JobVideoGeneration, VideoID: videoID}
	if err := o.jobs.Create(ctx, job); err != nil {
		return nil, err
	}
	if err := o.queue.Enqueue(ctx, job); err != nil {
		return nil, err
	}

	return &Result{VideoID: videoID, Status: video.Status, Message: "generation queued"}, nil
}

// RequestUpload enqueues an upload job for a generated video. Every
// other status is a precondition failure, including uploading and
// uploaded: unlike generation there is no idempotent re-request.
func (o *Orchestrator) RequestUpload(ctx context.Context, videoID uuid.UUID, payload models.UploadPayload) (*Result, error) {
	video, err := o.videos.GetByID(ctx, videoID)
	if err != nil {
		return nil, err
	}

	if !Uploadable(video.Status) {
		return nil, &PreconditionError{VideoID: videoID, Status: video.Status, Op: "upload"}
	}

	job := &models.Job{Type: models.JobVideoUpload, VideoID: videoID}
	job.PayloadJSON = mustMarshalPayload(payload)
	if err := o.jobs.Create(ctx, job); err != nil {
		return nil, err
	}
	if err := o.queue.Enqueue(ctx, job); err != nil {
		return nil, err
	}

	return &Result{VideoID: videoID, Status: video.Status, Message: "upload queued"}, nil
}

// Generate runs the full generation stage for one video: claim it,
// write a script if the draft has none, render, record the artifacts.
// A nil error with a failed Result means the failure is final.
func (o *Orchestrator) Generate(ctx context.Context, videoID uuid.UUID) (*Result, error) {
	claimed, err := o.videos.BeginGeneration(ctx, videoID)
	if err != nil {
		return nil, err
	}
	if !claimed {
		video, err := o.videos.GetByID(ctx, videoID)
		if err != nil {
			return nil, err
		}
		log.Printf("pipeline: generation claim lost for %s (status %s)", videoID, video.Status)
		return &Result{VideoID: videoID, Status: video.Status, Skipped: true, Message: "not claimable"}, nil
	}

	video, err := o.videos.GetByID(ctx, videoID)
	if err != nil {
		return nil, err
	}

	o.progress(ctx, videoID, models.VideoGenerating, 0, "starting generation")

	script := ""
	if video.Script != nil {
		script = *video.Script
	}
	if script == "" {
		desc := ""
		if video.Description != nil {
			desc = *video.Description
		}
		scriptResult, err := o.scripts.GenerateScript(ctx, video.Title, desc, video.TargetDuration)
		if err != nil {
			if isInfrastructure(err) {
				return nil, err
			}
			return o.fail(ctx, videoID, "script_generation", err)
		}
		script = scriptResult.Script
		if err := o.videos.SaveScript(ctx, videoID, script); err != nil {
			return nil, err
		}
		o.progress(ctx, videoID, models.VideoGenerating, 5, "script written")
	}

	renderResult, err := o.renderer.Render(ctx, services.RenderRequest{
		VideoID:        videoID,
		Title:          video.Title,
		Script:         script,
		TargetDuration: video.TargetDuration,
	}, func(progress int, stage string) {
		if err := o.videos.UpdateProgress(ctx, videoID, progress); err != nil {
			log.Printf("pipeline: progress persist failed for %s: %v", videoID, err)
		}
		o.progress(ctx, videoID, models.VideoGenerating, progress, stage)
	})
	if err != nil {
		if isInfrastructure(err) {
			return nil, err
		}
		return o.fail(ctx, videoID, "rendering", err)
	}

	err = o.videos.MarkGenerated(ctx, videoID,
		renderResult.VideoPath, renderResult.ThumbnailPath,
		renderResult.Duration, renderResult.FileSize)
	if err != nil {
		return nil, err
	}

	o.sink.PublishCompleted(ctx, models.CompletedEvent{VideoID: videoID, Status: models.VideoGenerated})
	log.Printf("pipeline: video %s generated (%d seconds, %d bytes)", videoID, renderResult.Duration, renderResult.FileSize)

	return &Result{VideoID: videoID, Status: models.VideoGenerated}, nil
}

// Upload publishes a generated video. A nil error with a failed
// Result means the failure is final.
func (o *Orchestrator) Upload(ctx context.Context, videoID uuid.UUID, payload models.UploadPayload) (*Result, error) {
	claimed, err := o.videos.BeginUpload(ctx, videoID)
	if err != nil {
		return nil, err
	}
	if !claimed {
		video, err := o.videos.GetByID(ctx, videoID)
		if err != nil {
			return nil, err
		}
		log.Printf("pipeline: upload claim lost for %s (status %s)", videoID, video.Status)
		return &Result{VideoID: videoID, Status: video.Status, Skipped: true, Message: "not claimable"}, nil
	}

	video, err := o.videos.GetByID(ctx, videoID)
	if err != nil {
		return nil, err
	}

	if video.VideoPath == nil || *video.VideoPath == "" {
		return o.fail(ctx, videoID, "upload", fmt.Errorf("video %s has no rendered artifact", videoID))
	}

	o.progress(ctx, videoID, models.VideoUploading, 0, "uploading")

	desc := ""
	if video.Description != nil {
		desc = *video.Description
	}
	thumb := ""
	if video.ThumbnailPath != nil {
		thumb = *video.ThumbnailPath
	}

	publishResult, err := o.publisher.Publish(ctx, services.PublishRequest{
		VideoPath:         *video.VideoPath,
		ThumbnailPath:     thumb,
		Title:             video.Title,
		Description:       desc,
		Tags:              video.Tags,
		CategoryID:        video.Category,
		Privacy:           payload.Privacy,
		NotifySubscribers: payload.NotifySubscribers,
	})
	if err != nil {
		if isInfrastructure(err) {
			return nil, err
		}
		return o.fail(ctx, videoID, "upload", err)
	}

	publishedAt := time.Now().UTC()
	if err := o.videos.MarkUploaded(ctx, videoID, publishResult.ExternalID, publishedAt); err != nil {
		return nil, err
	}

	o.sink.PublishCompleted(ctx, models.CompletedEvent{VideoID: videoID, Status: models.VideoUploaded})
	log.Printf("pipeline: video %s uploaded as %s (%s)", videoID, publishResult.ExternalID, publishResult.URL)

	return &Result{VideoID: videoID, Status: models.VideoUploaded}, nil
}

// SyncAnalytics refreshes the metrics snapshot for one video. Videos
// that are not uploaded, or carry no external identifier, are skipped
// without touching their status. The sync is idempotent: running it
// twice just overwrites the snapshot.
func (o *Orchestrator) SyncAnalytics(ctx context.Context, videoID uuid.UUID) (*Result, error) {
	video, err := o.videos.GetByID(ctx, videoID)
	if err != nil {
		return nil, err
	}

	if video.Status != models.VideoUploaded || video.YouTubeVideoID == nil || *video.YouTubeVideoID == "" {
		return &Result{VideoID: videoID, Status: video.Status, Skipped: true, Message: "not uploaded"}, nil
	}

	metrics, err := o.publisher.FetchMetrics(ctx, *video.YouTubeVideoID)
	if err != nil {
		return nil, err
	}

	snapshot := &models.VideoAnalytics{
		VideoID:             videoID,
		Views:               metrics.Views,
		Likes:               metrics.Likes,
		Dislikes:            metrics.Dislikes,
		Comments:            metrics.Comments,
		Shares:              metrics.Shares,
		WatchTime:           metrics.WatchTime,
		AverageViewDuration: metrics.AverageViewDuration,
		ClickThroughRate:    metrics.ClickThroughRate,
		EngagementRate:      models.EngagementRate(metrics.Likes, metrics.Comments, metrics.Views),
		Revenue:             metrics.Revenue,
	}
	if err := o.analytics.Upsert(ctx, snapshot); err != nil {
		return nil, err
	}

	return &Result{VideoID: videoID, Status: video.Status}, nil
}

// Progress answers the progress query for any video in any status.
func (o *Orchestrator) Progress(ctx context.Context, videoID uuid.UUID) (*models.VideoProgress, error) {
	video, err := o.videos.GetByID(ctx, videoID)
	if err != nil {
		return nil, err
	}

	p := &models.VideoProgress{
		VideoID:  videoID,
		Status:   video.Status,
		Progress: video.GenerationProgress,
		Error:    video.ErrorMessage,
	}
	if Terminal(video.Status) || video.Status == models.VideoGenerated {
		p.Progress = 100
	}
	return p, nil
}

// fail records a final domain failure and reports it as a non-retryable Result.
func (o *Orchestrator) fail(ctx context.Context, videoID uuid.UUID, stage string, cause error) (*Result, error) {
	msg := cause.Error()
	if err := o.videos.MarkFailed(ctx, videoID, msg); err != nil {
		return nil, err
	}
	o.sink.PublishError(ctx, models.ErrorEvent{VideoID: videoID, ErrorCode: stage, ErrorMessage: msg})
	log.Printf("pipeline: video %s failed at %s: %v", videoID, stage, cause)
	return &Result{VideoID: videoID, Status: models.VideoFailed, Message: msg}, nil
}

func (o *Orchestrator) progress(ctx context.Context, videoID uuid.UUID, status models.VideoStatus, progress int, message string) {
	o.sink.PublishProgress(ctx, models.ProgressUpdate{
		VideoID:  videoID,
		Status:   status,
		Progress: progress,
		Message:  message,
	})
}

// isInfrastructure separates failures of the machinery around a video
// from failures of the video itself. Infrastructure errors bubble up
// so the job is retried; everything else is recorded on the video.
// Cancellation means the process is shutting down, not that the video
// is bad, so it must never mark the video failed.
func isInfrastructure(err error) bool {
	return errors.Is(err, context.Canceled)
}

func mustMarshalPayload(payload models.UploadPayload) []byte {
	data, err := json.Marshal(payload)
	if err != nil {
		return []byte("{}")
	}
	return data
}
