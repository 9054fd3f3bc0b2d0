// Package pipeline drives videos through their production lifecycle:
// draft, generating, generated, uploading, uploaded, with failed as
// the recoverable dead end.
package pipeline

import "vidforge-backend/internal/models"

// transitions lists every legal status move. Anything absent is rejected.
var transitions = map[models.VideoStatus][]models.VideoStatus{
	models.VideoDraft:      {models.VideoGenerating},
	models.VideoGenerating: {models.VideoGenerated, models.VideoFailed},
	models.VideoGenerated:  {models.VideoUploading},
	models.VideoUploading:  {models.VideoUploaded, models.VideoFailed},
	models.VideoFailed:     {models.VideoGenerating},
}

// CanTransition reports whether moving from one status to another is legal.
func CanTransition(from, to models.VideoStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Generatable reports whether a video in this status may start generation.
func Generatable(status models.VideoStatus) bool {
	return status == models.VideoDraft || status == models.VideoFailed
}

// Uploadable reports whether a video in this status may start upload.
func Uploadable(status models.VideoStatus) bool {
	return status == models.VideoGenerated
}

// Terminal reports whether the status is an end state for the happy path.
func Terminal(status models.VideoStatus) bool {
	return status == models.VideoUploaded
}

// InFlight reports whether a worker currently owns the video.
func InFlight(status models.VideoStatus) bool {
	return status == models.VideoGenerating || status == models.VideoUploading
}
