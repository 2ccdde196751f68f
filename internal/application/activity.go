package application

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/example/seminar-scheduler/internal/persistence"
)

// ActivityService appends audit events. Recording failures are logged and
// swallowed: an audit hiccup must never fail the operation it describes.
type ActivityService struct {
	events persistence.ActivityRepository
	logger *slog.Logger
	now    func() time.Time
}

// NewActivityService wires dependencies for activity recording.
func NewActivityService(events persistence.ActivityRepository, logger *slog.Logger) *ActivityService {
	return &ActivityService{
		events: events,
		logger: defaultLogger(logger),
		now:    time.Now,
	}
}

// changeDiff is the structured before/after payload stored in the detail
// column.
type changeDiff struct {
	Before interface{} `json:"before,omitempty"`
	After  interface{} `json:"after,omitempty"`
}

// Record writes one audit event with a JSON before/after diff.
func (s *ActivityService) Record(ctx context.Context, actor, action, entityType string, entityID int64, before, after interface{}) {
	if s == nil || s.events == nil {
		return
	}

	detail := ""
	if before != nil || after != nil {
		encoded, err := json.Marshal(changeDiff{Before: before, After: after})
		if err != nil {
			serviceLogger(ctx, s.logger, "activity", "record").Warn("failed to encode activity diff",
				slog.String("action", action), slog.String("error", err.Error()))
		} else {
			detail = string(encoded)
		}
	}

	_, err := s.events.RecordEvent(ctx, persistence.ActivityEvent{
		Actor:      actor,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Detail:     detail,
	})
	if err != nil {
		serviceLogger(ctx, s.logger, "activity", "record").Warn("failed to record activity event",
			slog.String("action", action),
			slog.String("entity_type", entityType),
			slog.Int64("entity_id", entityID),
			slog.String("error", err.Error()))
	}
}

// History lists the audit trail of a single entity, newest first.
func (s *ActivityService) History(ctx context.Context, entityType string, entityID int64) ([]persistence.ActivityEvent, error) {
	return s.events.ListEvents(ctx, entityType, entityID)
}
