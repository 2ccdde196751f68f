package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/example/seminar-scheduler/internal/persistence"
)

// RoomRepository implements persistence.RoomRepository using SQLite.
type RoomRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewRoomRepository creates a new SQLite room repository.
func NewRoomRepository(pool *ConnectionPool) *RoomRepository {
	return &RoomRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

// CreateRoom inserts a new room.
func (r *RoomRepository) CreateRoom(ctx context.Context, room persistence.Room) (persistence.Room, error) {
	room.Name = strings.TrimSpace(room.Name)
	if room.Name == "" {
		return persistence.Room{}, persistence.ErrConstraintViolation
	}

	now := time.Now().UTC()
	room.CreatedAt = now
	room.UpdatedAt = now

	result, err := r.helper.Exec(ctx, `
		INSERT INTO rooms (name, location, capacity, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`, room.Name, room.Location, room.Capacity, formatTime(room.CreatedAt), formatTime(room.UpdatedAt))
	if err != nil {
		return persistence.Room{}, r.mapper.MapError(err)
	}

	room.ID, err = result.LastInsertId()
	if err != nil {
		return persistence.Room{}, fmt.Errorf("failed to read inserted id: %w", err)
	}

	return room, nil
}

// UpdateRoom updates an existing room.
func (r *RoomRepository) UpdateRoom(ctx context.Context, room persistence.Room) error {
	room.Name = strings.TrimSpace(room.Name)
	if room.Name == "" {
		return persistence.ErrConstraintViolation
	}

	result, err := r.helper.Exec(ctx, `
		UPDATE rooms
		SET name = ?, location = ?, capacity = ?, updated_at = ?
		WHERE id = ?
	`, room.Name, room.Location, room.Capacity, formatTime(time.Now().UTC()), room.ID)
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

// GetRoom retrieves a room by ID.
func (r *RoomRepository) GetRoom(ctx context.Context, id int64) (persistence.Room, error) {
	return scanRoom(r.helper.QueryRow(ctx, `
		SELECT id, name, location, capacity, created_at, updated_at
		FROM rooms
		WHERE id = ?
	`, id))
}

// ListRooms returns all rooms ordered by name.
func (r *RoomRepository) ListRooms(ctx context.Context) ([]persistence.Room, error) {
	rows, err := r.helper.Query(ctx, `
		SELECT id, name, location, capacity, created_at, updated_at
		FROM rooms
		ORDER BY name ASC, id ASC
	`)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var rooms []persistence.Room
	for rows.Next() {
		room, err := scanRoom(rows)
		if err != nil {
			return nil, err
		}
		rooms = append(rooms, room)
	}

	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}

	return rooms, nil
}

// DeleteRoom removes a room. While seminars or slots still reference the
// room the deletion is refused, unless reassignTo names a replacement room
// that takes over every reference.
func (r *RoomRepository) DeleteRoom(ctx context.Context, id int64, reassignTo *int64) error {
	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		var seminarCount, slotCount int
		err := r.helper.QueryRowTx(tx, `SELECT COUNT(*) FROM seminars WHERE room_id = ?`, id).Scan(&seminarCount)
		if err != nil {
			return r.mapper.MapError(err)
		}
		err = r.helper.QueryRowTx(tx, `SELECT COUNT(*) FROM seminar_slots WHERE room_id = ?`, id).Scan(&slotCount)
		if err != nil {
			return r.mapper.MapError(err)
		}

		if seminarCount+slotCount > 0 {
			if reassignTo == nil {
				return persistence.ErrForeignKeyViolation
			}
			if *reassignTo == id {
				return persistence.ErrConstraintViolation
			}

			var exists int
			err = r.helper.QueryRowTx(tx, `SELECT COUNT(*) FROM rooms WHERE id = ?`, *reassignTo).Scan(&exists)
			if err != nil {
				return r.mapper.MapError(err)
			}
			if exists == 0 {
				return persistence.ErrNotFound
			}

			if _, err := r.helper.ExecTx(tx, `UPDATE seminars SET room_id = ? WHERE room_id = ?`, *reassignTo, id); err != nil {
				return r.mapper.MapError(err)
			}
			if _, err := r.helper.ExecTx(tx, `UPDATE seminar_slots SET room_id = ? WHERE room_id = ?`, *reassignTo, id); err != nil {
				return r.mapper.MapError(err)
			}
		}

		result, err := r.helper.ExecTx(tx, `DELETE FROM rooms WHERE id = ?`, id)
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
	})
}

func scanRoom(row rowScanner) (persistence.Room, error) {
	var room persistence.Room
	var createdAtStr, updatedAtStr string

	err := row.Scan(&room.ID, &room.Name, &room.Location, &room.Capacity, &createdAtStr, &updatedAtStr)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.Room{}, persistence.ErrNotFound
		}
		return persistence.Room{}, NewErrorMapper().MapError(err)
	}

	if room.CreatedAt, err = parseTime(createdAtStr); err != nil {
		return persistence.Room{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if room.UpdatedAt, err = parseTime(updatedAtStr); err != nil {
		return persistence.Room{}, fmt.Errorf("failed to parse updated_at: %w", err)
	}

	return room, nil
}
