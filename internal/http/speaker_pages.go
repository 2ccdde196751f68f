package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/example/seminar-scheduler/internal/application"
	"github.com/example/seminar-scheduler/internal/persistence"
)

type tokenResolver interface {
	Resolve(ctx context.Context, value string, kind persistence.TokenKind) (persistence.SpeakerToken, persistence.SpeakerSuggestion, error)
}

type availabilityService interface {
	SubmitAvailability(ctx context.Context, suggestionID int64, submissions []application.AvailabilitySubmission) error
	ListAvailability(ctx context.Context, suggestionID int64) ([]persistence.AvailabilityEntry, error)
}

type planSlotLister interface {
	ListSlots(ctx context.Context, planID int64) ([]persistence.SeminarSlot, error)
}

type suggestionSeminarService interface {
	GetSeminarForSuggestion(ctx context.Context, suggestionID int64) (persistence.Seminar, error)
	UpsertDetails(ctx context.Context, seminarID int64, input application.DetailsInput, actor string) (persistence.SeminarDetails, error)
	GetDetails(ctx context.Context, seminarID int64) (persistence.SeminarDetails, error)
}

// SpeakerPageHandler serves the token-gated speaker surface. Every endpoint
// authenticates with an opaque token passed as the token query parameter;
// no admin password is involved.
type SpeakerPageHandler struct {
	tokens       tokenResolver
	availability availabilityService
	slots        planSlotLister
	seminars     suggestionSeminarService
	responder    responder
	logger       *slog.Logger
}

func NewSpeakerPageHandler(
	tokens tokenResolver,
	availability availabilityService,
	slots planSlotLister,
	seminars suggestionSeminarService,
	logger *slog.Logger,
) *SpeakerPageHandler {
	base := defaultLogger(logger)
	return &SpeakerPageHandler{
		tokens:       tokens,
		availability: availability,
		slots:        slots,
		seminars:     seminars,
		responder:    newResponder(base),
		logger:       base,
	}
}

func (h *SpeakerPageHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "SpeakerPageHandler", operation, attrs...)
}

func (h *SpeakerPageHandler) resolve(w http.ResponseWriter, r *http.Request, kind persistence.TokenKind, operation string) (persistence.SpeakerSuggestion, bool) {
	value := r.URL.Query().Get("token")
	if value == "" {
		h.responder.writeError(r.Context(), w, http.StatusUnauthorized, errMissingSpeakerToken)
		return persistence.SpeakerSuggestion{}, false
	}

	_, suggestion, err := h.tokens.Resolve(r.Context(), value, kind)
	if err != nil {
		h.log(r.Context(), operation).WarnContext(r.Context(), "token resolution failed", "kind", string(kind), "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return persistence.SpeakerSuggestion{}, false
	}
	return suggestion, true
}

type offeredDateDTO struct {
	Date      string `json:"date"`
	StartTime string `json:"start_time,omitempty"`
	EndTime   string `json:"end_time,omitempty"`
	Open      bool   `json:"open"`
}

type availabilityPageDTO struct {
	SpeakerName  string            `json:"speaker_name"`
	Topic        string            `json:"topic,omitempty"`
	OfferedDates []offeredDateDTO  `json:"offered_dates"`
	Availability []availabilityDTO `json:"availability"`
}

func (h *SpeakerPageHandler) GetAvailability(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.tokens == nil || h.availability == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	suggestion, ok := h.resolve(w, r, persistence.TokenAvailability, "GetAvailability")
	if !ok {
		return
	}

	page := availabilityPageDTO{
		SpeakerName:  suggestion.SpeakerName,
		Topic:        suggestion.Topic,
		OfferedDates: []offeredDateDTO{},
	}

	if suggestion.SemesterPlanID != nil && h.slots != nil {
		slots, err := h.slots.ListSlots(r.Context(), *suggestion.SemesterPlanID)
		if err != nil {
			h.log(r.Context(), "GetAvailability", "suggestion_id", suggestion.ID).ErrorContext(r.Context(), "slot listing failed", "error", err)
			h.responder.handleServiceError(r.Context(), w, err)
			return
		}
		for _, slot := range slots {
			page.OfferedDates = append(page.OfferedDates, offeredDateDTO{
				Date:      slot.Date,
				StartTime: slot.StartTime,
				EndTime:   slot.EndTime,
				Open:      slot.Status == persistence.SlotAvailable,
			})
		}
	}

	entries, err := h.availability.ListAvailability(r.Context(), suggestion.ID)
	if err != nil {
		h.log(r.Context(), "GetAvailability", "suggestion_id", suggestion.ID).ErrorContext(r.Context(), "availability listing failed", "error", err)
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	page.Availability = toAvailabilityDTOs(entries)

	h.responder.writeJSON(r.Context(), w, http.StatusOK, page)
}

type availabilitySubmitRequest struct {
	Dates []struct {
		Date       string `json:"date"`
		Preference string `json:"preference"`
	} `json:"dates"`
}

func (h *SpeakerPageHandler) SubmitAvailability(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.tokens == nil || h.availability == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	suggestion, ok := h.resolve(w, r, persistence.TokenAvailability, "SubmitAvailability")
	if !ok {
		return
	}

	var req availabilitySubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "SubmitAvailability", "suggestion_id", suggestion.ID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode availability request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	submissions := make([]application.AvailabilitySubmission, 0, len(req.Dates))
	for _, entry := range req.Dates {
		submissions = append(submissions, application.AvailabilitySubmission{
			Date:       entry.Date,
			Preference: persistence.AvailabilityPreference(entry.Preference),
		})
	}

	logger := h.log(r.Context(), "SubmitAvailability", "suggestion_id", suggestion.ID)
	if err := h.availability.SubmitAvailability(r.Context(), suggestion.ID, submissions); err != nil {
		logger.ErrorContext(r.Context(), "availability submission failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("count", len(submissions)).InfoContext(r.Context(), "availability recorded")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, map[string]int{"accepted": len(submissions)})
}

type infoPageDTO struct {
	SpeakerName string      `json:"speaker_name"`
	Seminar     seminarDTO  `json:"seminar"`
	Details     *detailsDTO `json:"details,omitempty"`
}

func (h *SpeakerPageHandler) GetInfo(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.tokens == nil || h.seminars == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	suggestion, ok := h.resolve(w, r, persistence.TokenInfo, "GetInfo")
	if !ok {
		return
	}

	seminar, err := h.seminars.GetSeminarForSuggestion(r.Context(), suggestion.ID)
	if err != nil {
		h.log(r.Context(), "GetInfo", "suggestion_id", suggestion.ID).ErrorContext(r.Context(), "seminar lookup failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	page := infoPageDTO{SpeakerName: suggestion.SpeakerName, Seminar: toSeminarDTO(seminar)}

	details, err := h.seminars.GetDetails(r.Context(), seminar.ID)
	switch {
	case err == nil:
		dto := toDetailsDTO(details)
		page.Details = &dto
	case errors.Is(err, application.ErrNotFound):
		// no details yet; the page starts blank
	default:
		h.log(r.Context(), "GetInfo", "seminar_id", seminar.ID).ErrorContext(r.Context(), "details lookup failed", "error", err)
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, page)
}

func (h *SpeakerPageHandler) SubmitInfo(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.tokens == nil || h.seminars == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	suggestion, ok := h.resolve(w, r, persistence.TokenInfo, "SubmitInfo")
	if !ok {
		return
	}

	seminar, err := h.seminars.GetSeminarForSuggestion(r.Context(), suggestion.ID)
	if err != nil {
		h.log(r.Context(), "SubmitInfo", "suggestion_id", suggestion.ID).ErrorContext(r.Context(), "seminar lookup failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	var req detailsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "SubmitInfo", "seminar_id", seminar.ID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode details request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "SubmitInfo", "suggestion_id", suggestion.ID, "seminar_id", seminar.ID)

	details, err := h.seminars.UpsertDetails(r.Context(), seminar.ID, req.toInput(), "speaker")
	if err != nil {
		logger.ErrorContext(r.Context(), "details upsert failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "speaker info submitted")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toDetailsDTO(details))
}

type statusPageDTO struct {
	SpeakerName string      `json:"speaker_name"`
	Topic       string      `json:"topic,omitempty"`
	Workflow    workflowDTO `json:"workflow"`
	Seminar     *seminarDTO `json:"seminar,omitempty"`
}

func (h *SpeakerPageHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.tokens == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	suggestion, ok := h.resolve(w, r, persistence.TokenStatus, "GetStatus")
	if !ok {
		return
	}

	page := statusPageDTO{
		SpeakerName: suggestion.SpeakerName,
		Topic:       suggestion.Topic,
		Workflow:    toWorkflowDTO(suggestion.Workflow),
	}

	if h.seminars != nil {
		seminar, err := h.seminars.GetSeminarForSuggestion(r.Context(), suggestion.ID)
		switch {
		case err == nil:
			dto := toSeminarDTO(seminar)
			page.Seminar = &dto
		case errors.Is(err, application.ErrNotFound):
			// not assigned yet
		default:
			h.log(r.Context(), "GetStatus", "suggestion_id", suggestion.ID).ErrorContext(r.Context(), "seminar lookup failed", "error", err)
			h.responder.handleServiceError(r.Context(), w, err)
			return
		}
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, page)
}
