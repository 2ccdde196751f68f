package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/example/seminar-scheduler/internal/application"
	"github.com/example/seminar-scheduler/internal/persistence"
)

type suggestionService interface {
	CreateSuggestion(ctx context.Context, input application.SuggestionInput) (persistence.SpeakerSuggestion, error)
	GetSuggestion(ctx context.Context, id int64) (persistence.SpeakerSuggestion, []persistence.AvailabilityEntry, error)
	ListSuggestions(ctx context.Context, filter persistence.SuggestionFilter) ([]persistence.SpeakerSuggestion, error)
	UpdateSuggestion(ctx context.Context, id int64, input application.SuggestionInput) (persistence.SpeakerSuggestion, error)
}

type suggestionDeleter interface {
	DeleteSuggestion(ctx context.Context, id int64) error
}

type workflowService interface {
	PatchWorkflow(ctx context.Context, suggestionID int64, patch application.WorkflowPatch) (persistence.WorkflowFlags, error)
}

type tokenIssuer interface {
	Issue(ctx context.Context, suggestionID int64, kind persistence.TokenKind) (persistence.SpeakerToken, error)
	ListForSuggestion(ctx context.Context, suggestionID int64) ([]persistence.SpeakerToken, error)
}

type assignmentService interface {
	Assign(ctx context.Context, suggestionID, slotID int64) (persistence.Seminar, error)
	EligibleSlots(ctx context.Context, suggestionID int64) ([]persistence.SeminarSlot, error)
}

type SuggestionHandler struct {
	service     suggestionService
	deleter     suggestionDeleter
	workflow    workflowService
	tokens      tokenIssuer
	assignments assignmentService
	responder   responder
	logger      *slog.Logger
}

func NewSuggestionHandler(
	service suggestionService,
	deleter suggestionDeleter,
	workflow workflowService,
	tokens tokenIssuer,
	assignments assignmentService,
	logger *slog.Logger,
) *SuggestionHandler {
	base := defaultLogger(logger)
	return &SuggestionHandler{
		service:     service,
		deleter:     deleter,
		workflow:    workflow,
		tokens:      tokens,
		assignments: assignments,
		responder:   newResponder(base),
		logger:      base,
	}
}

func (h *SuggestionHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "SuggestionHandler", operation, attrs...)
}

type workflowDTO struct {
	RequestSent          bool `json:"request_sent"`
	AvailabilityReceived bool `json:"availability_received"`
	DateNotified         bool `json:"date_notified"`
	MealConfirmed        bool `json:"meal_confirmed"`
	AccommodationBooked  bool `json:"accommodation_booked"`
	InfoSubmitted        bool `json:"info_submitted"`
	Approved             bool `json:"approved"`
	Stage                int  `json:"stage"`
}

func toWorkflowDTO(flags persistence.WorkflowFlags) workflowDTO {
	return workflowDTO{
		RequestSent:          flags.RequestSent,
		AvailabilityReceived: flags.AvailabilityReceived,
		DateNotified:         flags.DateNotified,
		MealConfirmed:        flags.MealConfirmed,
		AccommodationBooked:  flags.AccommodationBooked,
		InfoSubmitted:        flags.InfoSubmitted,
		Approved:             flags.Approved,
		Stage:                application.Stage(flags),
	}
}

type suggestionDTO struct {
	ID             int64       `json:"id"`
	SemesterPlanID *int64      `json:"semester_plan_id,omitempty"`
	SpeakerID      *int64      `json:"speaker_id,omitempty"`
	SpeakerName    string      `json:"speaker_name"`
	SpeakerEmail   string      `json:"speaker_email"`
	Affiliation    string      `json:"affiliation,omitempty"`
	SuggestedBy    string      `json:"suggested_by,omitempty"`
	Priority       int         `json:"priority"`
	Topic          string      `json:"topic,omitempty"`
	Reason         string      `json:"reason,omitempty"`
	Status         string      `json:"status,omitempty"`
	Workflow       workflowDTO `json:"workflow"`
	CreatedAt      string      `json:"created_at"`
	UpdatedAt      string      `json:"updated_at"`
}

func toSuggestionDTO(suggestion persistence.SpeakerSuggestion) suggestionDTO {
	return suggestionDTO{
		ID:             suggestion.ID,
		SemesterPlanID: suggestion.SemesterPlanID,
		SpeakerID:      suggestion.SpeakerID,
		SpeakerName:    suggestion.SpeakerName,
		SpeakerEmail:   suggestion.SpeakerEmail,
		Affiliation:    suggestion.Affiliation,
		SuggestedBy:    suggestion.SuggestedBy,
		Priority:       suggestion.Priority,
		Topic:          suggestion.Topic,
		Reason:         suggestion.Reason,
		Status:         suggestion.Status,
		Workflow:       toWorkflowDTO(suggestion.Workflow),
		CreatedAt:      suggestion.CreatedAt.Format(time.RFC3339),
		UpdatedAt:      suggestion.UpdatedAt.Format(time.RFC3339),
	}
}

type availabilityDTO struct {
	Date       string `json:"date"`
	Preference string `json:"preference"`
}

func toAvailabilityDTOs(entries []persistence.AvailabilityEntry) []availabilityDTO {
	dtos := make([]availabilityDTO, 0, len(entries))
	for _, entry := range entries {
		dtos = append(dtos, availabilityDTO{Date: entry.Date, Preference: string(entry.Preference)})
	}
	return dtos
}

type tokenDTO struct {
	ID           int64  `json:"id"`
	SuggestionID int64  `json:"suggestion_id"`
	Kind         string `json:"kind"`
	Token        string `json:"token"`
	ExpiresAt    string `json:"expires_at"`
	UsedAt       string `json:"used_at,omitempty"`
	CreatedAt    string `json:"created_at"`
}

func toTokenDTO(token persistence.SpeakerToken) tokenDTO {
	dto := tokenDTO{
		ID:           token.ID,
		SuggestionID: token.SuggestionID,
		Kind:         string(token.Kind),
		Token:        token.Token,
		ExpiresAt:    token.ExpiresAt.Format(time.RFC3339),
		CreatedAt:    token.CreatedAt.Format(time.RFC3339),
	}
	if token.UsedAt != nil {
		dto.UsedAt = token.UsedAt.Format(time.RFC3339)
	}
	return dto
}

type suggestionRequest struct {
	SemesterPlanID *int64 `json:"semester_plan_id"`
	SpeakerName    string `json:"speaker_name"`
	SpeakerEmail   string `json:"speaker_email"`
	Affiliation    string `json:"affiliation"`
	SuggestedBy    string `json:"suggested_by"`
	Priority       int    `json:"priority"`
	Topic          string `json:"topic"`
	Reason         string `json:"reason"`
	Status         string `json:"status"`
}

func (req suggestionRequest) toInput() application.SuggestionInput {
	return application.SuggestionInput{
		SemesterPlanID: req.SemesterPlanID,
		SpeakerName:    req.SpeakerName,
		SpeakerEmail:   req.SpeakerEmail,
		Affiliation:    req.Affiliation,
		SuggestedBy:    req.SuggestedBy,
		Priority:       req.Priority,
		Topic:          req.Topic,
		Reason:         req.Reason,
		Status:         req.Status,
	}
}

type workflowPatchRequest struct {
	RequestSent          *bool `json:"request_sent"`
	AvailabilityReceived *bool `json:"availability_received"`
	DateNotified         *bool `json:"date_notified"`
	MealConfirmed        *bool `json:"meal_confirmed"`
	AccommodationBooked  *bool `json:"accommodation_booked"`
	InfoSubmitted        *bool `json:"info_submitted"`
	Approved             *bool `json:"approved"`
}

type issueTokenRequest struct {
	Kind string `json:"kind"`
}

type assignRequest struct {
	SlotID int64 `json:"slot_id"`
}

func (h *SuggestionHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req suggestionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Create", "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode suggestion request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Create")

	suggestion, err := h.service.CreateSuggestion(r.Context(), req.toInput())
	if err != nil {
		logger.ErrorContext(r.Context(), "suggestion creation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("suggestion_id", suggestion.ID).InfoContext(r.Context(), "suggestion created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, toSuggestionDTO(suggestion))
}

func (h *SuggestionHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var filter persistence.SuggestionFilter
	if raw := r.URL.Query().Get("plan_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidPlanID)
			return
		}
		filter.PlanID = &id
	}
	if raw := r.URL.Query().Get("speaker_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidSpeakerID)
			return
		}
		filter.SpeakerID = &id
	}

	suggestions, err := h.service.ListSuggestions(r.Context(), filter)
	if err != nil {
		h.log(r.Context(), "List").ErrorContext(r.Context(), "suggestion listing failed", "error", err)
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	dtos := make([]suggestionDTO, 0, len(suggestions))
	for _, suggestion := range suggestions {
		dtos = append(dtos, toSuggestionDTO(suggestion))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, map[string][]suggestionDTO{"suggestions": dtos})
}

func (h *SuggestionHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	suggestionID, ok := SuggestionIDFromContext(r.Context())
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidSuggestionID)
		return
	}

	suggestion, entries, err := h.service.GetSuggestion(r.Context(), suggestionID)
	if err != nil {
		h.log(r.Context(), "Get", "suggestion_id", suggestionID).ErrorContext(r.Context(), "suggestion lookup failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	payload := struct {
		suggestionDTO
		Availability []availabilityDTO `json:"availability"`
	}{
		suggestionDTO: toSuggestionDTO(suggestion),
		Availability:  toAvailabilityDTOs(entries),
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, payload)
}

func (h *SuggestionHandler) Update(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	suggestionID, ok := SuggestionIDFromContext(r.Context())
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidSuggestionID)
		return
	}

	var req suggestionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Update", "suggestion_id", suggestionID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode suggestion request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Update", "suggestion_id", suggestionID)

	suggestion, err := h.service.UpdateSuggestion(r.Context(), suggestionID, req.toInput())
	if err != nil {
		logger.ErrorContext(r.Context(), "suggestion update failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "suggestion updated")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toSuggestionDTO(suggestion))
}

func (h *SuggestionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.deleter == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	suggestionID, ok := SuggestionIDFromContext(r.Context())
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidSuggestionID)
		return
	}

	logger := h.log(r.Context(), "Delete", "suggestion_id", suggestionID)
	if err := h.deleter.DeleteSuggestion(r.Context(), suggestionID); err != nil {
		logger.ErrorContext(r.Context(), "suggestion delete failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "suggestion deleted")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

func (h *SuggestionHandler) PatchWorkflow(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.workflow == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	suggestionID, ok := SuggestionIDFromContext(r.Context())
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidSuggestionID)
		return
	}

	var req workflowPatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "PatchWorkflow", "suggestion_id", suggestionID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode workflow patch", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "PatchWorkflow", "suggestion_id", suggestionID)

	flags, err := h.workflow.PatchWorkflow(r.Context(), suggestionID, application.WorkflowPatch{
		RequestSent:          req.RequestSent,
		AvailabilityReceived: req.AvailabilityReceived,
		DateNotified:         req.DateNotified,
		MealConfirmed:        req.MealConfirmed,
		AccommodationBooked:  req.AccommodationBooked,
		InfoSubmitted:        req.InfoSubmitted,
		Approved:             req.Approved,
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "workflow patch failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "workflow patched")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toWorkflowDTO(flags))
}

func (h *SuggestionHandler) IssueToken(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.tokens == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	suggestionID, ok := SuggestionIDFromContext(r.Context())
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidSuggestionID)
		return
	}

	var req issueTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "IssueToken", "suggestion_id", suggestionID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode token request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "IssueToken", "suggestion_id", suggestionID, "kind", req.Kind)

	token, err := h.tokens.Issue(r.Context(), suggestionID, persistence.TokenKind(req.Kind))
	if err != nil {
		logger.ErrorContext(r.Context(), "token issue failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("token_id", token.ID).InfoContext(r.Context(), "token issued")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, toTokenDTO(token))
}

func (h *SuggestionHandler) ListTokens(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.tokens == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	suggestionID, ok := SuggestionIDFromContext(r.Context())
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidSuggestionID)
		return
	}

	tokens, err := h.tokens.ListForSuggestion(r.Context(), suggestionID)
	if err != nil {
		h.log(r.Context(), "ListTokens", "suggestion_id", suggestionID).ErrorContext(r.Context(), "token listing failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	dtos := make([]tokenDTO, 0, len(tokens))
	for _, token := range tokens {
		dtos = append(dtos, toTokenDTO(token))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, map[string][]tokenDTO{"tokens": dtos})
}

func (h *SuggestionHandler) EligibleSlots(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.assignments == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	suggestionID, ok := SuggestionIDFromContext(r.Context())
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidSuggestionID)
		return
	}

	slots, err := h.assignments.EligibleSlots(r.Context(), suggestionID)
	if err != nil {
		h.log(r.Context(), "EligibleSlots", "suggestion_id", suggestionID).ErrorContext(r.Context(), "eligible slot listing failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, map[string][]slotDTO{"slots": toSlotDTOs(slots)})
}

func (h *SuggestionHandler) Assign(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.assignments == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	suggestionID, ok := SuggestionIDFromContext(r.Context())
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidSuggestionID)
		return
	}

	var req assignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Assign", "suggestion_id", suggestionID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode assignment request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}
	if req.SlotID <= 0 {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidSlotID)
		return
	}

	logger := h.log(r.Context(), "Assign", "suggestion_id", suggestionID, "slot_id", req.SlotID)

	seminar, err := h.assignments.Assign(r.Context(), suggestionID, req.SlotID)
	if err != nil {
		logger.ErrorContext(r.Context(), "assignment failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("seminar_id", seminar.ID).InfoContext(r.Context(), "suggestion assigned")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, toSeminarDTO(seminar))
}
