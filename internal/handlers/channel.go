package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"vidforge-backend/internal/models"
	"vidforge-backend/internal/pipeline"
	"vidforge-backend/internal/repository"
)

type ChannelHandler struct {
	channelRepo *repository.ChannelRepo
	videoRepo   *repository.VideoRepo
}

func NewChannelHandler(channelRepo *repository.ChannelRepo, videoRepo *repository.VideoRepo) *ChannelHandler {
	return &ChannelHandler{channelRepo: channelRepo, videoRepo: videoRepo}
}

func (h *ChannelHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreateChannelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	fields := map[string]string{}
	if req.Name == "" {
		fields["name"] = "Name is required"
	}
	if req.Niche == "" {
		fields["niche"] = "Niche is required"
	}
	if len(fields) > 0 {
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed", fields, r))
		return
	}

	channel := &models.Channel{
		Name:            req.Name,
		Description:     req.Description,
		Niche:           req.Niche,
		AutoGenerate:    req.AutoGenerate,
		AutoUpload:      req.AutoUpload,
		DefaultDuration: req.DefaultDuration,
	}
	if err := h.channelRepo.Create(r.Context(), channel); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL", "Failed to create channel", r))
		return
	}

	writeJSON(w, http.StatusCreated, channel)
}

func (h *ChannelHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	channels, err := h.channelRepo.List(r.Context(), limit, offset)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL", "Failed to list channels", r))
		return
	}
	if channels == nil {
		channels = []*models.Channel{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"channels": channels})
}

func (h *ChannelHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid channel id", r))
		return
	}

	channel, err := h.channelRepo.GetByID(r.Context(), id)
	if err != nil {
		handleRepoError(w, r, err, "Channel not found")
		return
	}

	writeJSON(w, http.StatusOK, channel)
}

func (h *ChannelHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid channel id", r))
		return
	}

	var req struct {
		Status models.ChannelStatus `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	switch req.Status {
	case models.ChannelActive, models.ChannelInactive, models.ChannelSuspended:
	default:
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed",
			map[string]string{"status": "Must be one of: active, inactive, suspended"}, r))
		return
	}

	if err := h.channelRepo.UpdateStatus(r.Context(), id, req.Status); err != nil {
		handleRepoError(w, r, err, "Channel not found")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Channel status updated"})
}

func (h *ChannelHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid channel id", r))
		return
	}

	if err := h.channelRepo.Delete(r.Context(), id); err != nil {
		handleRepoError(w, r, err, "Channel not found")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Channel deleted"})
}

func (h *ChannelHandler) ListVideos(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid channel id", r))
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	videos, err := h.videoRepo.ListByChannel(r.Context(), id, limit, offset)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL", "Failed to list videos", r))
		return
	}
	if videos == nil {
		videos = []*models.Video{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"videos": videos})
}

// Shared helpers

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func errorResp(code, message string, r *http.Request) models.ErrorResponse {
	return models.ErrorResponse{
		Error: models.APIError{
			Code:      code,
			Message:   message,
			RequestID: r.Header.Get("X-Request-ID"),
		},
	}
}

func errorRespWithFields(code, message string, fields map[string]string, r *http.Request) models.ErrorResponse {
	return models.ErrorResponse{
		Error: models.APIError{
			Code:      code,
			Message:   message,
			Fields:    fields,
			RequestID: r.Header.Get("X-Request-ID"),
		},
	}
}

func handleRepoError(w http.ResponseWriter, r *http.Request, err error, notFoundMsg string) {
	if errors.Is(err, repository.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", notFoundMsg, r))
		return
	}
	writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL", "Something went wrong", r))
}

func handlePipelineError(w http.ResponseWriter, r *http.Request, err error) {
	var pre *pipeline.PreconditionError
	if errors.As(err, &pre) {
		writeJSON(w, http.StatusConflict, errorResp("INVALID_STATE", pre.Error(), r))
		return
	}
	handleRepoError(w, r, err, "Video not found")
}
