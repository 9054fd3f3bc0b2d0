package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"vidforge-backend/internal/models"
	"vidforge-backend/internal/pipeline"
	"vidforge-backend/internal/repository"
)

type VideoHandler struct {
	videoRepo     *repository.VideoRepo
	channelRepo   *repository.ChannelRepo
	analyticsRepo *repository.AnalyticsRepo
	orchestrator  *pipeline.Orchestrator
}

func NewVideoHandler(
	videoRepo *repository.VideoRepo,
	channelRepo *repository.ChannelRepo,
	analyticsRepo *repository.AnalyticsRepo,
	orchestrator *pipeline.Orchestrator,
) *VideoHandler {
	return &VideoHandler{
		videoRepo:     videoRepo,
		channelRepo:   channelRepo,
		analyticsRepo: analyticsRepo,
		orchestrator:  orchestrator,
	}
}

func (h *VideoHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreateVideoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	fields := map[string]string{}
	if req.Title == "" {
		fields["title"] = "Title is required"
	}
	if req.ChannelID == uuid.Nil {
		fields["channel_id"] = "Channel id is required"
	}
	if len(fields) > 0 {
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed", fields, r))
		return
	}

	if _, err := h.channelRepo.GetByID(r.Context(), req.ChannelID); err != nil {
		handleRepoError(w, r, err, "Channel not found")
		return
	}

	video := &models.Video{
		ChannelID:      req.ChannelID,
		Title:          req.Title,
		Description:    req.Description,
		Script:         req.Script,
		Tags:           req.Tags,
		Category:       req.Category,
		TargetDuration: req.TargetDuration,
	}
	if err := h.videoRepo.Create(r.Context(), video); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL", "Failed to create video", r))
		return
	}

	writeJSON(w, http.StatusCreated, video)
}

func (h *VideoHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid video id", r))
		return
	}

	video, err := h.videoRepo.GetByID(r.Context(), id)
	if err != nil {
		handleRepoError(w, r, err, "Video not found")
		return
	}

	writeJSON(w, http.StatusOK, video)
}

func (h *VideoHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid video id", r))
		return
	}

	video, err := h.videoRepo.GetByID(r.Context(), id)
	if err != nil {
		handleRepoError(w, r, err, "Video not found")
		return
	}
	if pipeline.InFlight(video.Status) {
		writeJSON(w, http.StatusConflict, errorResp("INVALID_STATE", "Cannot delete a video while a worker owns it", r))
		return
	}

	if err := h.videoRepo.Delete(r.Context(), id); err != nil {
		handleRepoError(w, r, err, "Video not found")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Video deleted"})
}

// Generate queues the generation stage. Calling it again while the
// video is generating returns the current progress instead of a
// duplicate job.
func (h *VideoHandler) Generate(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid video id", r))
		return
	}

	result, err := h.orchestrator.RequestGeneration(r.Context(), id)
	if err != nil {
		handlePipelineError(w, r, err)
		return
	}

	if result.Skipped {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"video_id": result.VideoID,
			"status":   result.Status,
			"message":  result.Message,
		})
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"video_id": result.VideoID,
		"message":  result.Message,
	})
}

func (h *VideoHandler) Upload(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid video id", r))
		return
	}

	req := models.UploadVideoRequest{Privacy: "private"}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	switch req.Privacy {
	case "public", "private", "unlisted":
	default:
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed",
			map[string]string{"privacy": "Must be one of: public, private, unlisted"}, r))
		return
	}

	result, err := h.orchestrator.RequestUpload(r.Context(), id, models.UploadPayload{
		Privacy:           req.Privacy,
		NotifySubscribers: req.NotifySubscribers,
	})
	if err != nil {
		handlePipelineError(w, r, err)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"video_id": result.VideoID,
		"message":  result.Message,
	})
}

func (h *VideoHandler) Progress(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid video id", r))
		return
	}

	progress, err := h.orchestrator.Progress(r.Context(), id)
	if err != nil {
		handleRepoError(w, r, err, "Video not found")
		return
	}

	writeJSON(w, http.StatusOK, progress)
}

func (h *VideoHandler) Analytics(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid video id", r))
		return
	}

	if _, err := h.videoRepo.GetByID(r.Context(), id); err != nil {
		handleRepoError(w, r, err, "Video not found")
		return
	}

	analytics, err := h.analyticsRepo.GetByVideoID(r.Context(), id)
	if err != nil {
		handleRepoError(w, r, err, "No analytics recorded for this video yet")
		return
	}

	writeJSON(w, http.StatusOK, analytics)
}
