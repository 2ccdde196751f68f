package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/example/seminar-scheduler/internal/persistence"
)

// SlotRepository implements persistence.SlotRepository using SQLite.
type SlotRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewSlotRepository creates a new SQLite slot repository.
func NewSlotRepository(pool *ConnectionPool) *SlotRepository {
	return &SlotRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

const slotColumns = `id, semester_plan_id, date, start_time, end_time, room_id, status,
	assigned_seminar_id, assigned_suggestion_id, created_at, updated_at`

// CreateSlot inserts a new seminar slot.
func (r *SlotRepository) CreateSlot(ctx context.Context, slot persistence.SeminarSlot) (persistence.SeminarSlot, error) {
	if slot.SemesterPlanID == 0 || slot.Date == "" {
		return persistence.SeminarSlot{}, persistence.ErrConstraintViolation
	}
	if slot.Status == "" {
		slot.Status = persistence.SlotAvailable
	}

	now := time.Now().UTC()
	slot.CreatedAt = now
	slot.UpdatedAt = now

	result, err := r.helper.Exec(ctx, `
		INSERT INTO seminar_slots (semester_plan_id, date, start_time, end_time, room_id, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		slot.SemesterPlanID,
		slot.Date,
		slot.StartTime,
		slot.EndTime,
		nullInt64(slot.RoomID),
		string(slot.Status),
		formatTime(slot.CreatedAt),
		formatTime(slot.UpdatedAt),
	)
	if err != nil {
		return persistence.SeminarSlot{}, r.mapper.MapError(err)
	}

	slot.ID, err = result.LastInsertId()
	if err != nil {
		return persistence.SeminarSlot{}, fmt.Errorf("failed to read inserted id: %w", err)
	}

	return slot, nil
}

// GetSlot retrieves a slot by ID.
func (r *SlotRepository) GetSlot(ctx context.Context, id int64) (persistence.SeminarSlot, error) {
	return scanSlot(r.helper.QueryRow(ctx, `
		SELECT `+slotColumns+`
		FROM seminar_slots
		WHERE id = ?
	`, id))
}

// ListSlotsForPlan returns the plan's slots ordered by date then ID.
func (r *SlotRepository) ListSlotsForPlan(ctx context.Context, planID int64) ([]persistence.SeminarSlot, error) {
	rows, err := r.helper.Query(ctx, `
		SELECT `+slotColumns+`
		FROM seminar_slots
		WHERE semester_plan_id = ?
		ORDER BY date ASC, start_time ASC, id ASC
	`, planID)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var slots []persistence.SeminarSlot
	for rows.Next() {
		slot, err := scanSlot(rows)
		if err != nil {
			return nil, err
		}
		slots = append(slots, slot)
	}

	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}

	return slots, nil
}

// ListSlotDates returns the distinct slot dates of a plan in ascending order.
func (r *SlotRepository) ListSlotDates(ctx context.Context, planID int64) ([]string, error) {
	rows, err := r.helper.Query(ctx, `
		SELECT DISTINCT date
		FROM seminar_slots
		WHERE semester_plan_id = ?
		ORDER BY date ASC
	`, planID)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var dates []string
	for rows.Next() {
		var date string
		if err := rows.Scan(&date); err != nil {
			return nil, r.mapper.MapError(err)
		}
		dates = append(dates, date)
	}

	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}

	return dates, nil
}

// UpdateSlotStatus changes a slot's lifecycle status.
func (r *SlotRepository) UpdateSlotStatus(ctx context.Context, id int64, status persistence.SlotStatus) error {
	result, err := r.helper.Exec(ctx, `
		UPDATE seminar_slots SET status = ?, updated_at = ? WHERE id = ?
	`, string(status), formatTime(time.Now().UTC()), id)
	if err != nil {
		return r.mapper.MapError(err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return persistence.ErrNotFound
	}

	return nil
}

// ReleaseSlot clears the assignment linkage and returns the slot to
// available. The seminar itself is untouched; it becomes an orphan seminar
// discoverable for re-linking.
func (r *SlotRepository) ReleaseSlot(ctx context.Context, id int64) error {
	result, err := r.helper.Exec(ctx, `
		UPDATE seminar_slots
		SET status = 'available', assigned_seminar_id = NULL, assigned_suggestion_id = NULL, updated_at = ?
		WHERE id = ?
	`, formatTime(time.Now().UTC()), id)
	if err != nil {
		return r.mapper.MapError(err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return persistence.ErrNotFound
	}

	return nil
}

// DeleteSlot removes a slot. Slots with a live assigned seminar cannot be
// deleted; the caller must release or delete the seminar first.
func (r *SlotRepository) DeleteSlot(ctx context.Context, id int64) error {
	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		var assigned sql.NullInt64
		err := r.helper.QueryRowTx(tx, `SELECT assigned_seminar_id FROM seminar_slots WHERE id = ?`, id).Scan(&assigned)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return persistence.ErrNotFound
			}
			return r.mapper.MapError(err)
		}

		if assigned.Valid {
			return persistence.ErrForeignKeyViolation
		}

		if _, err := r.helper.ExecTx(tx, `DELETE FROM seminar_slots WHERE id = ?`, id); err != nil {
			return r.mapper.MapError(err)
		}

		return nil
	})
}

func scanSlot(row rowScanner) (persistence.SeminarSlot, error) {
	var slot persistence.SeminarSlot
	var roomID, seminarID, suggestionID sql.NullInt64
	var status, createdAtStr, updatedAtStr string

	err := row.Scan(
		&slot.ID,
		&slot.SemesterPlanID,
		&slot.Date,
		&slot.StartTime,
		&slot.EndTime,
		&roomID,
		&status,
		&seminarID,
		&suggestionID,
		&createdAtStr,
		&updatedAtStr,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.SeminarSlot{}, persistence.ErrNotFound
		}
		return persistence.SeminarSlot{}, NewErrorMapper().MapError(err)
	}

	slot.RoomID = int64Ptr(roomID)
	slot.AssignedSeminarID = int64Ptr(seminarID)
	slot.AssignedSuggestionID = int64Ptr(suggestionID)
	slot.Status = persistence.SlotStatus(status)

	if slot.CreatedAt, err = parseTime(createdAtStr); err != nil {
		return persistence.SeminarSlot{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if slot.UpdatedAt, err = parseTime(updatedAtStr); err != nil {
		return persistence.SeminarSlot{}, fmt.Errorf("failed to parse updated_at: %w", err)
	}

	return slot, nil
}
