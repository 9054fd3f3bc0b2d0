package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// RenderRequest carries everything the renderer needs to produce an
// artifact for one video.
type RenderRequest struct {
	VideoID        uuid.UUID
	Title          string
	Script         string
	TargetDuration int
}

// RenderResult describes the produced artifact.
type RenderResult struct {
	VideoPath     string
	ThumbnailPath string
	Duration      int
	FileSize      int64
}

// RenderError marks a failure inside the rendering stage itself, as
// opposed to infrastructure trouble around it.
type RenderError struct {
	Stage string
	Err   error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render failed at %s: %v", e.Stage, e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }

// Renderer produces a video artifact from a script. onProgress is
// called with a percentage and a human-readable stage name; callers
// persist and broadcast those updates.
type Renderer interface {
	Render(ctx context.Context, req RenderRequest, onProgress func(progress int, stage string)) (*RenderResult, error)
}

// LocalRenderer writes placeholder artifacts to local storage while
// walking through the same stages a real pipeline would report. It
// stands in until a real rendering backend is wired up.
type LocalRenderer struct {
	storagePath string
	stepDelay   time.Duration
}

func NewLocalRenderer(storagePath string) *LocalRenderer {
	return &LocalRenderer{storagePath: storagePath, stepDelay: 200 * time.Millisecond}
}

var renderStages = []struct {
	progress int
	name     string
}{
	{10, "preparing assets"},
	{20, "generating voiceover"},
	{40, "selecting visuals"},
	{60, "compositing scenes"},
	{80, "encoding video"},
	{90, "generating thumbnail"},
	{100, "finalizing"},
}

func (r *LocalRenderer) Render(ctx context.Context, req RenderRequest, onProgress func(progress int, stage string)) (*RenderResult, error) {
	if req.Script == "" {
		return nil, &RenderError{Stage: "validation", Err: fmt.Errorf("video %s has no script", req.VideoID)}
	}

	dir := filepath.Join(r.storagePath, "videos", req.VideoID.String())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, &RenderError{Stage: "storage", Err: err}
	}

	for _, stage := range renderStages {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(r.stepDelay):
		}
		if onProgress != nil {
			onProgress(stage.progress, stage.name)
		}
	}

	videoPath := filepath.Join(dir, "video.mp4")
	content := fmt.Sprintf("placeholder artifact for %q\n\n%s\n", req.Title, req.Script)
	if err := os.WriteFile(videoPath, []byte(content), 0o644); err != nil {
		return nil, &RenderError{Stage: "encoding", Err: err}
	}

	thumbPath := filepath.Join(dir, "thumbnail.jpg")
	if err := os.WriteFile(thumbPath, []byte("placeholder thumbnail for "+req.Title+"\n"), 0o644); err != nil {
		return nil, &RenderError{Stage: "thumbnail", Err: err}
	}

	info, err := os.Stat(videoPath)
	if err != nil {
		return nil, &RenderError{Stage: "finalizing", Err: err}
	}

	duration := req.TargetDuration
	if duration <= 0 {
		duration = estimateSpokenSeconds(req.Script)
	}

	return &RenderResult{
		VideoPath:     videoPath,
		ThumbnailPath: thumbPath,
		Duration:      duration,
		FileSize:      info.Size(),
	}, nil
}
