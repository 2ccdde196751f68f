package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/example/seminar-scheduler/internal/application"
)

type slotReleaser interface {
	ReleaseSlot(ctx context.Context, slotID int64) error
}

type slotDeleter interface {
	DeleteSlot(ctx context.Context, id int64) error
}

type SlotHandler struct {
	releaser  slotReleaser
	deleter   slotDeleter
	responder responder
	logger    *slog.Logger
}

func NewSlotHandler(releaser slotReleaser, deleter slotDeleter, logger *slog.Logger) *SlotHandler {
	base := defaultLogger(logger)
	return &SlotHandler{releaser: releaser, deleter: deleter, responder: newResponder(base), logger: base}
}

func (h *SlotHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "SlotHandler", operation, attrs...)
}

func (h *SlotHandler) Release(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.releaser == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	slotID, ok := SlotIDFromContext(r.Context())
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidSlotID)
		return
	}

	logger := h.log(r.Context(), "Release", "slot_id", slotID)
	if err := h.releaser.ReleaseSlot(r.Context(), slotID); err != nil {
		logger.ErrorContext(r.Context(), "slot release failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "slot released")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

func (h *SlotHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.deleter == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	slotID, ok := SlotIDFromContext(r.Context())
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidSlotID)
		return
	}

	logger := h.log(r.Context(), "Delete", "slot_id", slotID)
	if err := h.deleter.DeleteSlot(r.Context(), slotID); err != nil {
		logger.ErrorContext(r.Context(), "slot delete failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "slot deleted")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}
