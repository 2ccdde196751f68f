package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"github.com/example/seminar-scheduler/internal/application"
	"github.com/example/seminar-scheduler/internal/persistence"
	"github.com/example/seminar-scheduler/internal/persistence/sqlite/backup"
)

type adminService interface {
	CreateBackup(ctx context.Context) (string, error)
	ListBackups(ctx context.Context) ([]application.BackupInfo, error)
	InspectBackup(ctx context.Context, backupName string) (map[string][]string, error)
	RequestRestore(ctx context.Context, backupName string) (application.Confirmation, error)
	ConfirmRestore(ctx context.Context, token string) (*backup.RestoreReport, error)
	RequestReset(ctx context.Context) (application.Confirmation, error)
	ConfirmReset(ctx context.Context, token string) error
}

type activityLister interface {
	History(ctx context.Context, entityType string, entityID int64) ([]persistence.ActivityEvent, error)
}

type AdminHandler struct {
	service   adminService
	activity  activityLister
	responder responder
	logger    *slog.Logger
}

func NewAdminHandler(service adminService, activity activityLister, logger *slog.Logger) *AdminHandler {
	base := defaultLogger(logger)
	return &AdminHandler{service: service, activity: activity, responder: newResponder(base), logger: base}
}

func (h *AdminHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "AdminHandler", operation, attrs...)
}

type backupDTO struct {
	Name      string `json:"name"`
	Size      int64  `json:"size"`
	CreatedAt string `json:"created_at"`
}

type confirmationDTO struct {
	ConfirmToken string `json:"confirm_token"`
	ExpiresAt    string `json:"expires_at"`
	Message      string `json:"message"`
}

func toConfirmationDTO(confirmation application.Confirmation) confirmationDTO {
	return confirmationDTO{
		ConfirmToken: confirmation.Token,
		ExpiresAt:    confirmation.ExpiresAt.Format(time.RFC3339),
		Message:      confirmation.Message,
	}
}

type restoreReportDTO struct {
	Rows     map[string]int `json:"rows"`
	Warnings []string       `json:"warnings"`
}

type restoreRequestBody struct {
	Backup string `json:"backup"`
}

type confirmRequestBody struct {
	ConfirmToken string `json:"confirm_token"`
}

func (h *AdminHandler) CreateBackup(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	logger := h.log(r.Context(), "CreateBackup")

	path, err := h.service.CreateBackup(r.Context())
	if err != nil {
		logger.ErrorContext(r.Context(), "backup failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("backup", filepath.Base(path)).InfoContext(r.Context(), "backup created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, map[string]string{"name": filepath.Base(path)})
}

func (h *AdminHandler) ListBackups(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	backups, err := h.service.ListBackups(r.Context())
	if err != nil {
		h.log(r.Context(), "ListBackups").ErrorContext(r.Context(), "backup listing failed", "error", err)
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	dtos := make([]backupDTO, 0, len(backups))
	for _, info := range backups {
		dtos = append(dtos, backupDTO{
			Name:      info.Name,
			Size:      info.Size,
			CreatedAt: info.CreatedAt.Format(time.RFC3339),
		})
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, map[string][]backupDTO{"backups": dtos})
}

func (h *AdminHandler) InspectBackup(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	name, ok := BackupNameFromContext(r.Context())
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	tables, err := h.service.InspectBackup(r.Context(), name)
	if err != nil {
		h.log(r.Context(), "InspectBackup", "backup", name).ErrorContext(r.Context(), "backup inspection failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, map[string]map[string][]string{"tables": tables})
}

func (h *AdminHandler) RequestRestore(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req restoreRequestBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Backup == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "RequestRestore", "backup", req.Backup)

	confirmation, err := h.service.RequestRestore(r.Context(), req.Backup)
	if err != nil {
		logger.ErrorContext(r.Context(), "restore request failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "restore requested")
	h.responder.writeJSON(r.Context(), w, http.StatusAccepted, toConfirmationDTO(confirmation))
}

func (h *AdminHandler) ConfirmRestore(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req confirmRequestBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ConfirmToken == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "ConfirmRestore")

	report, err := h.service.ConfirmRestore(r.Context(), req.ConfirmToken)
	if err != nil {
		logger.ErrorContext(r.Context(), "restore failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	dto := restoreReportDTO{Rows: report.Rows, Warnings: make([]string, 0, len(report.Warnings))}
	for _, warning := range report.Warnings {
		dto.Warnings = append(dto.Warnings, warning.String())
	}

	logger.With("warnings", len(report.Warnings)).InfoContext(r.Context(), "restore completed")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, dto)
}

func (h *AdminHandler) RequestReset(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	logger := h.log(r.Context(), "RequestReset")

	confirmation, err := h.service.RequestReset(r.Context())
	if err != nil {
		logger.ErrorContext(r.Context(), "reset request failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "reset requested")
	h.responder.writeJSON(r.Context(), w, http.StatusAccepted, toConfirmationDTO(confirmation))
}

func (h *AdminHandler) ConfirmReset(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req confirmRequestBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ConfirmToken == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "ConfirmReset")

	if err := h.service.ConfirmReset(r.Context(), req.ConfirmToken); err != nil {
		logger.ErrorContext(r.Context(), "reset failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "database reset")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, map[string]string{"status": "reset"})
}

type activityEventDTO struct {
	ID         int64           `json:"id"`
	Actor      string          `json:"actor"`
	Action     string          `json:"action"`
	EntityType string          `json:"entity_type"`
	EntityID   int64           `json:"entity_id,omitempty"`
	Detail     json.RawMessage `json:"detail,omitempty"`
	CreatedAt  string          `json:"created_at"`
}

func (h *AdminHandler) ListActivity(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.activity == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	entityType := r.URL.Query().Get("entity_type")
	var entityID int64
	if raw := r.URL.Query().Get("entity_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
			return
		}
		entityID = id
	}

	events, err := h.activity.History(r.Context(), entityType, entityID)
	if err != nil {
		h.log(r.Context(), "ListActivity").ErrorContext(r.Context(), "activity listing failed", "error", err)
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	dtos := make([]activityEventDTO, 0, len(events))
	for _, event := range events {
		dto := activityEventDTO{
			ID:         event.ID,
			Actor:      event.Actor,
			Action:     event.Action,
			EntityType: event.EntityType,
			EntityID:   event.EntityID,
			CreatedAt:  event.CreatedAt.Format(time.RFC3339),
		}
		if json.Valid([]byte(event.Detail)) {
			dto.Detail = json.RawMessage(event.Detail)
		}
		dtos = append(dtos, dto)
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, map[string][]activityEventDTO{"events": dtos})
}
