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

type planService interface {
	CreatePlan(ctx context.Context, name string) (persistence.SemesterPlan, error)
	GetPlan(ctx context.Context, id int64) (persistence.SemesterPlan, error)
	ListPlans(ctx context.Context) ([]persistence.SemesterPlan, error)
	CreateSlots(ctx context.Context, planID int64, inputs []application.SlotInput) ([]persistence.SeminarSlot, error)
	ListSlots(ctx context.Context, planID int64) ([]persistence.SeminarSlot, error)
}

type planDeleter interface {
	DeletePlan(ctx context.Context, id int64) error
}

type PlanHandler struct {
	service   planService
	deleter   planDeleter
	responder responder
	logger    *slog.Logger
}

func NewPlanHandler(service planService, deleter planDeleter, logger *slog.Logger) *PlanHandler {
	base := defaultLogger(logger)
	return &PlanHandler{service: service, deleter: deleter, responder: newResponder(base), logger: base}
}

func (h *PlanHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "PlanHandler", operation, attrs...)
}

type planDTO struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

func toPlanDTO(plan persistence.SemesterPlan) planDTO {
	return planDTO{
		ID:        plan.ID,
		Name:      plan.Name,
		CreatedAt: plan.CreatedAt.Format(time.RFC3339),
		UpdatedAt: plan.UpdatedAt.Format(time.RFC3339),
	}
}

type slotDTO struct {
	ID                   int64  `json:"id"`
	SemesterPlanID       int64  `json:"semester_plan_id"`
	Date                 string `json:"date"`
	StartTime            string `json:"start_time,omitempty"`
	EndTime              string `json:"end_time,omitempty"`
	RoomID               *int64 `json:"room_id,omitempty"`
	Status               string `json:"status"`
	AssignedSeminarID    *int64 `json:"assigned_seminar_id,omitempty"`
	AssignedSuggestionID *int64 `json:"assigned_suggestion_id,omitempty"`
}

func toSlotDTO(slot persistence.SeminarSlot) slotDTO {
	return slotDTO{
		ID:                   slot.ID,
		SemesterPlanID:       slot.SemesterPlanID,
		Date:                 slot.Date,
		StartTime:            slot.StartTime,
		EndTime:              slot.EndTime,
		RoomID:               slot.RoomID,
		Status:               string(slot.Status),
		AssignedSeminarID:    slot.AssignedSeminarID,
		AssignedSuggestionID: slot.AssignedSuggestionID,
	}
}

func toSlotDTOs(slots []persistence.SeminarSlot) []slotDTO {
	dtos := make([]slotDTO, 0, len(slots))
	for _, slot := range slots {
		dtos = append(dtos, toSlotDTO(slot))
	}
	return dtos
}

type planRequest struct {
	Name string `json:"name"`
}

type slotRequest struct {
	Date      string `json:"date"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	RoomID    *int64 `json:"room_id"`
}

type createSlotsRequest struct {
	Slots []slotRequest `json:"slots"`
}

func (h *PlanHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req planRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Create", "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode plan request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Create")

	plan, err := h.service.CreatePlan(r.Context(), req.Name)
	if err != nil {
		logger.ErrorContext(r.Context(), "plan creation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("plan_id", plan.ID).InfoContext(r.Context(), "plan created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, toPlanDTO(plan))
}

func (h *PlanHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	plans, err := h.service.ListPlans(r.Context())
	if err != nil {
		h.log(r.Context(), "List").ErrorContext(r.Context(), "plan listing failed", "error", err)
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	dtos := make([]planDTO, 0, len(plans))
	for _, plan := range plans {
		dtos = append(dtos, toPlanDTO(plan))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, map[string][]planDTO{"plans": dtos})
}

func (h *PlanHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	planID, ok := PlanIDFromContext(r.Context())
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidPlanID)
		return
	}

	plan, err := h.service.GetPlan(r.Context(), planID)
	if err != nil {
		h.log(r.Context(), "Get", "plan_id", planID).ErrorContext(r.Context(), "plan lookup failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, toPlanDTO(plan))
}

func (h *PlanHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.deleter == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	planID, ok := PlanIDFromContext(r.Context())
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidPlanID)
		return
	}

	logger := h.log(r.Context(), "Delete", "plan_id", planID)
	if err := h.deleter.DeletePlan(r.Context(), planID); err != nil {
		logger.ErrorContext(r.Context(), "plan delete failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "plan deleted")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

func (h *PlanHandler) CreateSlots(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	planID, ok := PlanIDFromContext(r.Context())
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidPlanID)
		return
	}

	var req createSlotsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "CreateSlots", "plan_id", planID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode slots request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	inputs := make([]application.SlotInput, 0, len(req.Slots))
	for _, slot := range req.Slots {
		inputs = append(inputs, application.SlotInput{
			Date:      slot.Date,
			StartTime: slot.StartTime,
			EndTime:   slot.EndTime,
			RoomID:    slot.RoomID,
		})
	}

	logger := h.log(r.Context(), "CreateSlots", "plan_id", planID)

	slots, err := h.service.CreateSlots(r.Context(), planID, inputs)
	if err != nil {
		logger.ErrorContext(r.Context(), "slot creation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("count", len(slots)).InfoContext(r.Context(), "slots created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, map[string][]slotDTO{"slots": toSlotDTOs(slots)})
}

func (h *PlanHandler) ListSlots(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	planID, ok := PlanIDFromContext(r.Context())
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidPlanID)
		return
	}

	slots, err := h.service.ListSlots(r.Context(), planID)
	if err != nil {
		h.log(r.Context(), "ListSlots", "plan_id", planID).ErrorContext(r.Context(), "slot listing failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, map[string][]slotDTO{"slots": toSlotDTOs(slots)})
}
