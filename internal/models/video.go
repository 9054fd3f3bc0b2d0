package models

import (
	"time"

	"github.com/google/uuid"
)

type VideoStatus string

const (
	VideoDraft      VideoStatus = "draft"
	VideoGenerating VideoStatus = "generating"
	VideoGenerated  VideoStatus = "generated"
	VideoUploading  VideoStatus = "uploading"
	VideoUploaded   VideoStatus = "uploaded"
	VideoFailed     VideoStatus = "failed"
)

// Video is one unit of content moving through the production pipeline.
// GenerationProgress is meaningful only while the status is generating;
// it is reset to 0 on entry and forced to 100 once generated.
type Video struct {
	ID                 uuid.UUID   `json:"id"`
	ChannelID          uuid.UUID   `json:"channel_id"`
	Title              string      `json:"title"`
	Description        *string     `json:"description"`
	Script             *string     `json:"script"`
	Status             VideoStatus `json:"status"`
	GenerationProgress int         `json:"generation_progress"`
	ErrorMessage       *string     `json:"error_message"`
	YouTubeVideoID     *string     `json:"youtube_video_id"`
	VideoPath          *string     `json:"video_path"`
	ThumbnailPath      *string     `json:"thumbnail_path"`
	Duration           *int        `json:"duration"`  // seconds
	FileSize           *int64      `json:"file_size"` // bytes
	Tags               []string    `json:"tags"`
	Category           string      `json:"category"`
	TargetDuration     int         `json:"target_duration"` // seconds
	CreatedAt          time.Time   `json:"created_at"`
	UpdatedAt          time.Time   `json:"updated_at"`
	PublishedAt        *time.Time  `json:"published_at"`
}

type CreateVideoRequest struct {
	ChannelID      uuid.UUID `json:"channel_id"`
	Title          string    `json:"title"`
	Description    *string   `json:"description"`
	Script         *string   `json:"script"`
	Tags           []string  `json:"tags"`
	Category       string    `json:"category"`
	TargetDuration int       `json:"target_duration"`
}

type UploadVideoRequest struct {
	Privacy           string `json:"privacy"`
	NotifySubscribers bool   `json:"notify_subscribers"`
}

// VideoProgress is the progress query response exposed to callers.
type VideoProgress struct {
	VideoID  uuid.UUID   `json:"video_id"`
	Status   VideoStatus `json:"status"`
	Progress int         `json:"progress"`
	Message  string      `json:"message,omitempty"`
	Error    *string     `json:"error,omitempty"`
}
