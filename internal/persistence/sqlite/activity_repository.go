package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/example/seminar-scheduler/internal/persistence"
)

// ActivityRepository implements persistence.ActivityRepository using SQLite.
type ActivityRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewActivityRepository creates a new SQLite activity repository.
func NewActivityRepository(pool *ConnectionPool) *ActivityRepository {
	return &ActivityRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

// RecordEvent appends an audit event. Events are never updated or deleted.
func (r *ActivityRepository) RecordEvent(ctx context.Context, event persistence.ActivityEvent) (persistence.ActivityEvent, error) {
	if event.Action == "" || event.EntityType == "" {
		return persistence.ActivityEvent{}, persistence.ErrConstraintViolation
	}

	event.CreatedAt = time.Now().UTC()

	result, err := r.helper.Exec(ctx, `
		INSERT INTO activity_events (actor, action, entity_type, entity_id, detail, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, event.Actor, event.Action, event.EntityType, event.EntityID, event.Detail, formatTime(event.CreatedAt))
	if err != nil {
		return persistence.ActivityEvent{}, r.mapper.MapError(err)
	}

	event.ID, err = result.LastInsertId()
	if err != nil {
		return persistence.ActivityEvent{}, fmt.Errorf("failed to read inserted id: %w", err)
	}

	return event, nil
}

// ListEvents returns the audit trail for an entity, newest first. An empty
// entityType lists events across all entities.
func (r *ActivityRepository) ListEvents(ctx context.Context, entityType string, entityID int64) ([]persistence.ActivityEvent, error) {
	query := `
		SELECT id, actor, action, entity_type, entity_id, detail, created_at
		FROM activity_events
	`
	var args []interface{}
	if entityType != "" {
		query += ` WHERE entity_type = ? AND entity_id = ?`
		args = append(args, entityType, entityID)
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := r.helper.Query(ctx, query, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var events []persistence.ActivityEvent
	for rows.Next() {
		var event persistence.ActivityEvent
		var createdAtStr string

		err := rows.Scan(&event.ID, &event.Actor, &event.Action, &event.EntityType, &event.EntityID, &event.Detail, &createdAtStr)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, persistence.ErrNotFound
			}
			return nil, r.mapper.MapError(err)
		}

		if event.CreatedAt, err = parseTime(createdAtStr); err != nil {
			return nil, fmt.Errorf("failed to parse created_at: %w", err)
		}

		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}

	return events, nil
}
