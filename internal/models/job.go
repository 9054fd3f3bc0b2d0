package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Job types consumed by the worker pool.
const (
	JobVideoGeneration = "video-generation"
	JobVideoUpload     = "video-upload"
	JobAnalyticsSync   = "analytics-sync"
)

type Job struct {
	ID           uuid.UUID       `json:"id"`
	Type         string          `json:"type"` // "video-generation" | "video-upload" | "analytics-sync"
	VideoID      uuid.UUID       `json:"video_id"`
	PayloadJSON  json.RawMessage `json:"payload"`
	Status       string          `json:"status"` // "pending" | "processing" | "completed" | "failed"
	RetryCount   int             `json:"retry_count"`
	MaxRetries   int             `json:"max_retries"`
	ErrorMessage *string         `json:"error_message"`
	CreatedAt    time.Time       `json:"created_at"`
	CompletedAt  *time.Time      `json:"completed_at"`
}

// UploadPayload rides along with video-upload jobs.
type UploadPayload struct {
	Privacy           string `json:"privacy"`
	NotifySubscribers bool   `json:"notify_subscribers"`
}

// Progress events published over redis pub/sub to the websocket hub.
type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

type ProgressUpdate struct {
	VideoID  uuid.UUID   `json:"video_id"`
	Status   VideoStatus `json:"status"`
	Progress int         `json:"progress"`
	Message  string      `json:"message"`
}

type CompletedEvent struct {
	VideoID uuid.UUID   `json:"video_id"`
	Status  VideoStatus `json:"status"`
}

type ErrorEvent struct {
	VideoID      uuid.UUID `json:"video_id"`
	ErrorCode    string    `json:"error_code"`
	ErrorMessage string    `json:"error_message"`
}

// API Error response
type APIError struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Fields    map[string]string `json:"fields,omitempty"`
	RequestID string            `json:"request_id"`
}

type ErrorResponse struct {
	Error APIError `json:"error"`
}
