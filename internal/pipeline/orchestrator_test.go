package pipeline

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"vidforge-backend/internal/ai"
	"vidforge-backend/internal/models"
	"vidforge-backend/internal/services"
)

// In-memory VideoStore with the same conditional-update semantics as
// the SQL implementation.
type fakeVideoStore struct {
	mu     sync.Mutex
	videos map[uuid.UUID]*models.Video
}

func newFakeVideoStore(videos ...*models.Video) *fakeVideoStore {
	s := &fakeVideoStore{videos: make(map[uuid.UUID]*models.Video)}
	for _, v := range videos {
		s.videos[v.ID] = v
	}
	return s
}

func (s *fakeVideoStore) GetByID(_ context.Context, id uuid.UUID) (*models.Video, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.videos[id]
	if !ok {
		return nil, errors.New("not found")
	}
	clone := *v
	return &clone, nil
}

func (s *fakeVideoStore) BeginGeneration(_ context.Context, id uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.videos[id]
	if !ok || !Generatable(v.Status) {
		return false, nil
	}
	v.Status = models.VideoGenerating
	v.GenerationProgress = 0
	v.ErrorMessage = nil
	return true, nil
}

func (s *fakeVideoStore) BeginUpload(_ context.Context, id uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.videos[id]
	if !ok || v.Status != models.VideoGenerated {
		return false, nil
	}
	v.Status = models.VideoUploading
	return true, nil
}

func (s *fakeVideoStore) UpdateProgress(_ context.Context, id uuid.UUID, progress int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.videos[id]; ok && v.Status == models.VideoGenerating {
		v.GenerationProgress = progress
	}
	return nil
}

func (s *fakeVideoStore) SaveScript(_ context.Context, id uuid.UUID, script string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.videos[id]; ok {
		v.Script = &script
	}
	return nil
}

func (s *fakeVideoStore) MarkGenerated(_ context.Context, id uuid.UUID, videoPath, thumbnailPath string, duration int, fileSize int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.videos[id]; ok {
		v.Status = models.VideoGenerated
		v.GenerationProgress = 100
		v.VideoPath = &videoPath
		v.ThumbnailPath = &thumbnailPath
		v.Duration = &duration
		v.FileSize = &fileSize
	}
	return nil
}

func (s *fakeVideoStore) MarkUploaded(_ context.Context, id uuid.UUID, youtubeVideoID string, publishedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.videos[id]; ok {
		v.Status = models.VideoUploaded
		v.YouTubeVideoID = &youtubeVideoID
		v.PublishedAt = &publishedAt
	}
	return nil
}

func (s *fakeVideoStore) MarkFailed(_ context.Context, id uuid.UUID, errMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.videos[id]; ok {
		v.Status = models.VideoFailed
		v.ErrorMessage = &errMsg
	}
	return nil
}

func (s *fakeVideoStore) status(id uuid.UUID) models.VideoStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.videos[id].Status
}

type fakeAnalyticsStore struct {
	mu      sync.Mutex
	upserts []*models.VideoAnalytics
}

func (s *fakeAnalyticsStore) Upsert(_ context.Context, a *models.VideoAnalytics) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.upserts = append(s.upserts, a)
	return nil
}

type fakeScriptGen struct {
	mu     sync.Mutex
	calls  int
	result *services.ScriptResult
	err    error
}

func (g *fakeScriptGen) GenerateScript(_ context.Context, title, description string, targetSeconds int) (*services.ScriptResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	if g.err != nil {
		return nil, g.err
	}
	return g.result, nil
}

type fakeRenderer struct {
	mu     sync.Mutex
	calls  int
	stages []int
	err    error
}

func (r *fakeRenderer) Render(_ context.Context, req services.RenderRequest, onProgress func(int, string)) (*services.RenderResult, error) {
	r.mu.Lock()
	r.calls++
	r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	if r.stages == nil {
		r.stages = []int{10, 60, 100}
	}
	for _, p := range r.stages {
		if onProgress != nil {
			onProgress(p, "rendering")
		}
	}
	return &services.RenderResult{
		VideoPath:     "/tmp/storage/" + req.VideoID.String() + "/video.mp4",
		ThumbnailPath: "/tmp/storage/" + req.VideoID.String() + "/thumbnail.jpg",
		Duration:      req.TargetDuration,
		FileSize:      2048,
	}, nil
}

type fakePublisher struct {
	mu           sync.Mutex
	publishCalls int
	metricsCalls int
	lastRequest  services.PublishRequest
	publishErr   error
	metrics      *services.VideoMetrics
	metricsErr   error
}

func (p *fakePublisher) Publish(_ context.Context, req services.PublishRequest) (*services.PublishResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.publishCalls++
	p.lastRequest = req
	if p.publishErr != nil {
		return nil, p.publishErr
	}
	return &services.PublishResult{ExternalID: "yt-abc123", URL: "https://www.youtube.com/watch?v=yt-abc123"}, nil
}

func (p *fakePublisher) FetchMetrics(_ context.Context, externalID string) (*services.VideoMetrics, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.metricsCalls++
	if p.metricsErr != nil {
		return nil, p.metricsErr
	}
	return p.metrics, nil
}

type fakeJobStore struct {
	mu   sync.Mutex
	jobs []*models.Job
}

func (s *fakeJobStore) Create(_ context.Context, j *models.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	j.ID = uuid.New()
	s.jobs = append(s.jobs, j)
	return nil
}

type fakeQueue struct {
	mu       sync.Mutex
	enqueued []*models.Job
}

func (q *fakeQueue) Enqueue(_ context.Context, j *models.Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.enqueued = append(q.enqueued, j)
	return nil
}

type fakeSink struct {
	mu        sync.Mutex
	progress  []models.ProgressUpdate
	completed []models.CompletedEvent
	errs      []models.ErrorEvent
}

func (s *fakeSink) PublishProgress(_ context.Context, u models.ProgressUpdate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.progress = append(s.progress, u)
}

func (s *fakeSink) PublishCompleted(_ context.Context, e models.CompletedEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.completed = append(s.completed, e)
}

func (s *fakeSink) PublishError(_ context.Context, e models.ErrorEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errs = append(s.errs, e)
}

type testHarness struct {
	videos    *fakeVideoStore
	analytics *fakeAnalyticsStore
	scripts   *fakeScriptGen
	renderer  *fakeRenderer
	publisher *fakePublisher
	jobs      *fakeJobStore
	queue     *fakeQueue
	sink      *fakeSink
	orch      *Orchestrator
}

func newHarness(videos ...*models.Video) *testHarness {
	h := &testHarness{
		videos:    newFakeVideoStore(videos...),
		analytics: &fakeAnalyticsStore{},
		scripts: &fakeScriptGen{result: &services.ScriptResult{
			Script: "Welcome back to the channel. Today we cover something big.",
			Tags:   []string{"tech"},
		}},
		renderer:  &fakeRenderer{},
		publisher: &fakePublisher{},
		jobs:      &fakeJobStore{},
		queue:     &fakeQueue{},
		sink:      &fakeSink{},
	}
	h.orch = NewOrchestrator(h.videos, h.analytics, h.scripts, h.renderer, h.publisher, h.jobs, h.queue, h.sink)
	return h
}

func draftVideo() *models.Video {
	return &models.Video{
		ID:             uuid.New(),
		ChannelID:      uuid.New(),
		Title:          "Five Hidden Features",
		Status:         models.VideoDraft,
		TargetDuration: 300,
	}
}

func generatedVideo() *models.Video {
	v := draftVideo()
	path := "/tmp/storage/video.mp4"
	thumb := "/tmp/storage/thumbnail.jpg"
	v.Status = models.VideoGenerated
	v.VideoPath = &path
	v.ThumbnailPath = &thumb
	v.GenerationProgress = 100
	return v
}

func TestGenerate_DraftWithoutScript(t *testing.T) {
	video := draftVideo()
	h := newHarness(video)

	result, err := h.orch.Generate(context.Background(), video.ID)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if result.Status != models.VideoGenerated {
		t.Errorf("status = %s, want generated", result.Status)
	}
	if h.scripts.calls != 1 {
		t.Errorf("script generator called %d times, want 1", h.scripts.calls)
	}

	stored, _ := h.videos.GetByID(context.Background(), video.ID)
	if stored.Script == nil || *stored.Script == "" {
		t.Error("script was not persisted")
	}
	if stored.VideoPath == nil || stored.ThumbnailPath == nil {
		t.Error("artifact paths were not persisted")
	}
	if stored.GenerationProgress != 100 {
		t.Errorf("progress = %d, want 100", stored.GenerationProgress)
	}
	if len(h.sink.completed) != 1 || h.sink.completed[0].Status != models.VideoGenerated {
		t.Error("completion event was not published")
	}
}

func TestGenerate_KeepsExistingScript(t *testing.T) {
	video := draftVideo()
	script := "Pre-written narration."
	video.Script = &script
	h := newHarness(video)

	if _, err := h.orch.Generate(context.Background(), video.ID); err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if h.scripts.calls != 0 {
		t.Errorf("script generator called %d times for a video that already has a script", h.scripts.calls)
	}
}

// Two concurrent runs of the same generation job must collapse into a
// single execution.
func TestGenerate_ConcurrentRunsExecuteOnce(t *testing.T) {
	video := draftVideo()
	h := newHarness(video)

	const runners = 4
	results := make(chan *Result, runners)
	var wg sync.WaitGroup
	for i := 0; i < runners; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r, err := h.orch.Generate(context.Background(), video.ID)
			if err != nil {
				t.Errorf("Generate failed: %v", err)
				return
			}
			results <- r
		}()
	}
	wg.Wait()
	close(results)

	executed := 0
	for r := range results {
		if !r.Skipped {
			executed++
		}
	}
	if executed != 1 {
		t.Errorf("%d runs executed, want exactly 1", executed)
	}
	if h.renderer.calls != 1 {
		t.Errorf("renderer called %d times, want 1", h.renderer.calls)
	}
}

func TestGenerate_ScriptFailureIsFinal(t *testing.T) {
	video := draftVideo()
	h := newHarness(video)
	h.scripts.err = &ai.AuthError{Provider: "openai", Err: errors.New("invalid api key")}

	result, err := h.orch.Generate(context.Background(), video.ID)
	if err != nil {
		t.Fatalf("domain failure should not surface an error, got %v", err)
	}
	if result.Status != models.VideoFailed {
		t.Errorf("status = %s, want failed", result.Status)
	}

	stored, _ := h.videos.GetByID(context.Background(), video.ID)
	if stored.Status != models.VideoFailed {
		t.Errorf("persisted status = %s, want failed", stored.Status)
	}
	if stored.ErrorMessage == nil || !strings.Contains(*stored.ErrorMessage, "invalid api key") {
		t.Error("error message was not persisted verbatim")
	}
	if len(h.sink.errs) != 1 {
		t.Errorf("error events = %d, want 1", len(h.sink.errs))
	}
}

// A failed video must be claimable again: retry goes back through
// generation from the top.
func TestGenerate_RetryAfterFailure(t *testing.T) {
	video := draftVideo()
	h := newHarness(video)
	h.renderer.err = &services.RenderError{Stage: "encoding", Err: errors.New("disk full")}

	if _, err := h.orch.Generate(context.Background(), video.ID); err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if got := h.videos.status(video.ID); got != models.VideoFailed {
		t.Fatalf("status after failure = %s, want failed", got)
	}

	h.renderer.err = nil
	result, err := h.orch.Generate(context.Background(), video.ID)
	if err != nil {
		t.Fatalf("retry failed: %v", err)
	}
	if result.Status != models.VideoGenerated {
		t.Errorf("retry status = %s, want generated", result.Status)
	}

	stored, _ := h.videos.GetByID(context.Background(), video.ID)
	if stored.ErrorMessage != nil {
		t.Error("error message should be cleared on retry")
	}
}

func TestRequestGeneration_AlreadyGeneratingIsIdempotent(t *testing.T) {
	video := draftVideo()
	video.Status = models.VideoGenerating
	video.GenerationProgress = 40
	h := newHarness(video)

	result, err := h.orch.RequestGeneration(context.Background(), video.ID)
	if err != nil {
		t.Fatalf("RequestGeneration failed: %v", err)
	}
	if !result.Skipped {
		t.Error("expected an idempotent skip")
	}
	if !strings.Contains(result.Message, "40%") {
		t.Errorf("message %q should report current progress", result.Message)
	}
	if len(h.queue.enqueued) != 0 {
		t.Errorf("%d jobs enqueued, want 0", len(h.queue.enqueued))
	}
}

func TestRequestGeneration_EnqueuesForDraft(t *testing.T) {
	video := draftVideo()
	h := newHarness(video)

	if _, err := h.orch.RequestGeneration(context.Background(), video.ID); err != nil {
		t.Fatalf("RequestGeneration failed: %v", err)
	}
	if len(h.queue.enqueued) != 1 {
		t.Fatalf("%d jobs enqueued, want 1", len(h.queue.enqueued))
	}
	if h.queue.enqueued[0].Type != models.JobVideoGeneration {
		t.Errorf("job type = %s, want %s", h.queue.enqueued[0].Type, models.JobVideoGeneration)
	}
	if h.queue.enqueued[0].VideoID != video.ID {
		t.Error("job does not reference the video")
	}
}

func TestRequestGeneration_RejectsUploaded(t *testing.T) {
	video := draftVideo()
	video.Status = models.VideoUploaded
	h := newHarness(video)

	_, err := h.orch.RequestGeneration(context.Background(), video.ID)
	var pre *PreconditionError
	if !errors.As(err, &pre) {
		t.Fatalf("expected PreconditionError, got %v", err)
	}
	if pre.Status != models.VideoUploaded {
		t.Errorf("error status = %s, want uploaded", pre.Status)
	}
	if len(h.queue.enqueued) != 0 {
		t.Error("precondition failure must not enqueue")
	}
	if got := h.videos.status(video.ID); got != models.VideoUploaded {
		t.Errorf("precondition failure must not mutate status, got %s", got)
	}
}

func TestRequestUpload_EnqueuesForGenerated(t *testing.T) {
	video := generatedVideo()
	h := newHarness(video)

	result, err := h.orch.RequestUpload(context.Background(), video.ID, models.UploadPayload{Privacy: "unlisted"})
	if err != nil {
		t.Fatalf("RequestUpload failed: %v", err)
	}
	if result.Skipped {
		t.Error("upload request for a generated video must not be skipped")
	}
	if len(h.queue.enqueued) != 1 {
		t.Fatalf("%d jobs enqueued, want 1", len(h.queue.enqueued))
	}
	if h.queue.enqueued[0].Type != models.JobVideoUpload {
		t.Errorf("job type = %s, want %s", h.queue.enqueued[0].Type, models.JobVideoUpload)
	}
}

func TestRequestUpload_RejectsNonGenerated(t *testing.T) {
	statuses := []models.VideoStatus{
		models.VideoDraft,
		models.VideoGenerating,
		models.VideoUploading,
		models.VideoUploaded,
		models.VideoFailed,
	}

	for _, status := range statuses {
		t.Run(string(status), func(t *testing.T) {
			video := draftVideo()
			video.Status = status
			h := newHarness(video)

			_, err := h.orch.RequestUpload(context.Background(), video.ID, models.UploadPayload{})
			var pre *PreconditionError
			if !errors.As(err, &pre) {
				t.Fatalf("expected PreconditionError for %s, got %v", status, err)
			}
			if pre.Status != status {
				t.Errorf("error status = %s, want %s", pre.Status, status)
			}
			if len(h.queue.enqueued) != 0 {
				t.Error("precondition failure must not enqueue")
			}
			if got := h.videos.status(video.ID); got != status {
				t.Errorf("precondition failure must not mutate status, got %s", got)
			}
		})
	}
}

func TestUpload_Success(t *testing.T) {
	video := generatedVideo()
	video.Tags = []string{"tech", "tips"}
	h := newHarness(video)

	result, err := h.orch.Upload(context.Background(), video.ID, models.UploadPayload{Privacy: "public", NotifySubscribers: true})
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}
	if result.Status != models.VideoUploaded {
		t.Errorf("status = %s, want uploaded", result.Status)
	}

	if h.publisher.lastRequest.Privacy != "public" || !h.publisher.lastRequest.NotifySubscribers {
		t.Error("payload options were not forwarded to the publisher")
	}
	if len(h.publisher.lastRequest.Tags) != 2 {
		t.Error("video tags were not forwarded")
	}

	stored, _ := h.videos.GetByID(context.Background(), video.ID)
	if stored.YouTubeVideoID == nil || *stored.YouTubeVideoID != "yt-abc123" {
		t.Error("external video id was not persisted")
	}
	if stored.PublishedAt == nil {
		t.Error("published timestamp was not persisted")
	}
}

func TestUpload_NotClaimableFromDraft(t *testing.T) {
	video := draftVideo()
	h := newHarness(video)

	result, err := h.orch.Upload(context.Background(), video.ID, models.UploadPayload{})
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}
	if !result.Skipped {
		t.Error("draft video must not be claimable for upload")
	}
	if h.publisher.publishCalls != 0 {
		t.Error("publisher must not be called")
	}
	if got := h.videos.status(video.ID); got != models.VideoDraft {
		t.Errorf("status = %s, want draft unchanged", got)
	}
}

func TestUpload_PublishFailureIsFinal(t *testing.T) {
	video := generatedVideo()
	h := newHarness(video)
	h.publisher.publishErr = &services.PublishError{Op: "upload", Err: errors.New("invalid category")}

	result, err := h.orch.Upload(context.Background(), video.ID, models.UploadPayload{})
	if err != nil {
		t.Fatalf("domain failure should not surface an error, got %v", err)
	}
	if result.Status != models.VideoFailed {
		t.Errorf("status = %s, want failed", result.Status)
	}

	stored, _ := h.videos.GetByID(context.Background(), video.ID)
	if stored.ErrorMessage == nil || !strings.Contains(*stored.ErrorMessage, "invalid category") {
		t.Error("error message was not persisted")
	}
}

func TestSyncAnalytics_SkipsNonUploaded(t *testing.T) {
	tests := []struct {
		name   string
		status models.VideoStatus
	}{
		{"draft", models.VideoDraft},
		{"generating", models.VideoGenerating},
		{"generated", models.VideoGenerated},
		{"failed", models.VideoFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			video := draftVideo()
			video.Status = tt.status
			h := newHarness(video)

			result, err := h.orch.SyncAnalytics(context.Background(), video.ID)
			if err != nil {
				t.Fatalf("SyncAnalytics failed: %v", err)
			}
			if !result.Skipped {
				t.Error("non-uploaded video must be skipped")
			}
			if h.publisher.metricsCalls != 0 {
				t.Error("metrics must not be fetched")
			}
			if got := h.videos.status(video.ID); got != tt.status {
				t.Errorf("sync must never change status, got %s", got)
			}
		})
	}
}

func TestSyncAnalytics_UpsertsSnapshot(t *testing.T) {
	video := generatedVideo()
	externalID := "yt-abc123"
	video.Status = models.VideoUploaded
	video.YouTubeVideoID = &externalID
	h := newHarness(video)
	h.publisher.metrics = &services.VideoMetrics{Views: 1000, Likes: 50, Comments: 10}

	if _, err := h.orch.SyncAnalytics(context.Background(), video.ID); err != nil {
		t.Fatalf("SyncAnalytics failed: %v", err)
	}
	if len(h.analytics.upserts) != 1 {
		t.Fatalf("%d upserts, want 1", len(h.analytics.upserts))
	}

	snap := h.analytics.upserts[0]
	if snap.Views != 1000 || snap.Likes != 50 || snap.Comments != 10 {
		t.Error("counters were not carried into the snapshot")
	}
	if got, want := snap.EngagementRate, 0.06; got != want {
		t.Errorf("engagement rate = %v, want %v", got, want)
	}

	// Running it again just overwrites the snapshot.
	if _, err := h.orch.SyncAnalytics(context.Background(), video.ID); err != nil {
		t.Fatalf("second sync failed: %v", err)
	}
	if len(h.analytics.upserts) != 2 {
		t.Errorf("second sync should upsert again, got %d total", len(h.analytics.upserts))
	}
	if got := h.videos.status(video.ID); got != models.VideoUploaded {
		t.Errorf("sync must never change status, got %s", got)
	}
}

func TestSyncAnalytics_ZeroViews(t *testing.T) {
	video := generatedVideo()
	externalID := "yt-new"
	video.Status = models.VideoUploaded
	video.YouTubeVideoID = &externalID
	h := newHarness(video)
	h.publisher.metrics = &services.VideoMetrics{Views: 0, Likes: 0, Comments: 3}

	if _, err := h.orch.SyncAnalytics(context.Background(), video.ID); err != nil {
		t.Fatalf("SyncAnalytics failed: %v", err)
	}
	if got := h.analytics.upserts[0].EngagementRate; got != 0 {
		t.Errorf("engagement rate with zero views = %v, want 0", got)
	}
}

func TestProgress(t *testing.T) {
	generating := draftVideo()
	generating.Status = models.VideoGenerating
	generating.GenerationProgress = 40

	done := generatedVideo()

	failed := draftVideo()
	failed.Status = models.VideoFailed
	msg := "render failed at encoding: disk full"
	failed.ErrorMessage = &msg

	h := newHarness(generating, done, failed)

	p, err := h.orch.Progress(context.Background(), generating.ID)
	if err != nil {
		t.Fatalf("Progress failed: %v", err)
	}
	if p.Progress != 40 || p.Status != models.VideoGenerating {
		t.Errorf("got %d%%/%s, want 40%%/generating", p.Progress, p.Status)
	}

	p, _ = h.orch.Progress(context.Background(), done.ID)
	if p.Progress != 100 {
		t.Errorf("generated video progress = %d, want 100", p.Progress)
	}

	p, _ = h.orch.Progress(context.Background(), failed.ID)
	if p.Error == nil || *p.Error != msg {
		t.Error("failed video progress should carry the error message")
	}
}
