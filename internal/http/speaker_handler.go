package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/example/seminar-scheduler/internal/application"
	"github.com/example/seminar-scheduler/internal/persistence"
)

type speakerService interface {
	CreateSpeaker(ctx context.Context, input application.SpeakerInput) (persistence.Speaker, error)
	UpdateSpeaker(ctx context.Context, id int64, input application.SpeakerInput) (persistence.Speaker, error)
	GetSpeaker(ctx context.Context, id int64) (persistence.Speaker, error)
	ListSpeakers(ctx context.Context) ([]persistence.Speaker, error)
}

type speakerDeleter interface {
	DeleteSpeaker(ctx context.Context, id int64) error
}

type SpeakerHandler struct {
	service   speakerService
	deleter   speakerDeleter
	responder responder
	logger    *slog.Logger
}

func NewSpeakerHandler(service speakerService, deleter speakerDeleter, logger *slog.Logger) *SpeakerHandler {
	base := defaultLogger(logger)
	return &SpeakerHandler{service: service, deleter: deleter, responder: newResponder(base), logger: base}
}

func (h *SpeakerHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "SpeakerHandler", operation, attrs...)
}

type speakerDTO struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	Affiliation string `json:"affiliation"`
	Bio         string `json:"bio"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

func toSpeakerDTO(speaker persistence.Speaker) speakerDTO {
	return speakerDTO{
		ID:          speaker.ID,
		Name:        speaker.Name,
		Email:       speaker.Email,
		Affiliation: speaker.Affiliation,
		Bio:         speaker.Bio,
		CreatedAt:   speaker.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   speaker.UpdatedAt.Format(time.RFC3339),
	}
}

type speakerRequest struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	Affiliation string `json:"affiliation"`
	Bio         string `json:"bio"`
}

func (req speakerRequest) toInput() application.SpeakerInput {
	return application.SpeakerInput{
		Name:        req.Name,
		Email:       req.Email,
		Affiliation: req.Affiliation,
		Bio:         req.Bio,
	}
}

func (h *SpeakerHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req speakerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Create", "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode speaker request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Create")

	speaker, err := h.service.CreateSpeaker(r.Context(), req.toInput())
	if err != nil {
		logger.ErrorContext(r.Context(), "speaker creation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("speaker_id", speaker.ID).InfoContext(r.Context(), "speaker created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, toSpeakerDTO(speaker))
}

func (h *SpeakerHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	speakers, err := h.service.ListSpeakers(r.Context())
	if err != nil {
		h.log(r.Context(), "List").ErrorContext(r.Context(), "speaker listing failed", "error", err)
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	dtos := make([]speakerDTO, 0, len(speakers))
	for _, speaker := range speakers {
		dtos = append(dtos, toSpeakerDTO(speaker))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, map[string][]speakerDTO{"speakers": dtos})
}

func (h *SpeakerHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	speakerID, ok := SpeakerIDFromContext(r.Context())
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidSpeakerID)
		return
	}

	speaker, err := h.service.GetSpeaker(r.Context(), speakerID)
	if err != nil {
		h.log(r.Context(), "Get", "speaker_id", speakerID).ErrorContext(r.Context(), "speaker lookup failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, toSpeakerDTO(speaker))
}

func (h *SpeakerHandler) Update(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	speakerID, ok := SpeakerIDFromContext(r.Context())
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidSpeakerID)
		return
	}

	var req speakerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Update", "speaker_id", speakerID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode speaker request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Update", "speaker_id", speakerID)

	speaker, err := h.service.UpdateSpeaker(r.Context(), speakerID, req.toInput())
	if err != nil {
		logger.ErrorContext(r.Context(), "speaker update failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "speaker updated")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toSpeakerDTO(speaker))
}

func (h *SpeakerHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.deleter == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	speakerID, ok := SpeakerIDFromContext(r.Context())
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidSpeakerID)
		return
	}

	logger := h.log(r.Context(), "Delete", "speaker_id", speakerID)
	if err := h.deleter.DeleteSpeaker(r.Context(), speakerID); err != nil {
		logger.ErrorContext(r.Context(), "speaker delete failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "speaker deleted")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}
