package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/seminar-scheduler/internal/persistence"
)

// RoomInput carries the editable fields of a room.
type RoomInput struct {
	Name     string
	Location string
	Capacity int
}

// RoomService orchestrates validation and persistence for the room catalog.
type RoomService struct {
	rooms    persistence.RoomRepository
	activity *ActivityService
	logger   *slog.Logger
	now      func() time.Time
}

// NewRoomService wires dependencies for room operations.
func NewRoomService(rooms persistence.RoomRepository, activity *ActivityService, logger *slog.Logger, now func() time.Time) *RoomService {
	if now == nil {
		now = time.Now
	}
	return &RoomService{
		rooms:    rooms,
		activity: activity,
		logger:   defaultLogger(logger),
		now:      now,
	}
}

func validateRoomInput(input RoomInput, vErr *ValidationError) {
	if strings.TrimSpace(input.Name) == "" {
		vErr.add("name", "name is required")
	}
	if len(input.Name) > 200 {
		vErr.add("name", "name must be 200 characters or less")
	}
	if input.Capacity < 0 {
		vErr.add("capacity", "capacity cannot be negative")
	}
}

// CreateRoom validates and creates a room.
func (s *RoomService) CreateRoom(ctx context.Context, input RoomInput) (persistence.Room, error) {
	if s == nil {
		return persistence.Room{}, fmt.Errorf("RoomService is nil")
	}

	vErr := &ValidationError{}
	validateRoomInput(input, vErr)
	if vErr.HasErrors() {
		return persistence.Room{}, vErr
	}

	room, err := s.rooms.CreateRoom(ctx, persistence.Room{
		Name:     strings.TrimSpace(input.Name),
		Location: strings.TrimSpace(input.Location),
		Capacity: input.Capacity,
	})
	if err != nil {
		if errors.Is(err, persistence.ErrDuplicate) {
			vErr.add("name", "a room with this name already exists")
			return persistence.Room{}, vErr
		}
		return persistence.Room{}, err
	}

	serviceLogger(ctx, s.logger, "room", "create", "room_id", room.ID).Info("room created",
		slog.String("name", room.Name))
	s.activity.Record(ctx, "", "room.create", "room", room.ID, nil, room)

	return room, nil
}

// UpdateRoom validates and updates a room.
func (s *RoomService) UpdateRoom(ctx context.Context, id int64, input RoomInput) (persistence.Room, error) {
	before, err := s.rooms.GetRoom(ctx, id)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return persistence.Room{}, ErrNotFound
		}
		return persistence.Room{}, err
	}

	vErr := &ValidationError{}
	validateRoomInput(input, vErr)
	if vErr.HasErrors() {
		return persistence.Room{}, vErr
	}

	updated := before
	updated.Name = strings.TrimSpace(input.Name)
	updated.Location = strings.TrimSpace(input.Location)
	updated.Capacity = input.Capacity

	if err := s.rooms.UpdateRoom(ctx, updated); err != nil {
		if errors.Is(err, persistence.ErrDuplicate) {
			vErr.add("name", "a room with this name already exists")
			return persistence.Room{}, vErr
		}
		if errors.Is(err, persistence.ErrNotFound) {
			return persistence.Room{}, ErrNotFound
		}
		return persistence.Room{}, err
	}

	s.activity.Record(ctx, "", "room.update", "room", id, before, updated)

	return updated, nil
}

// GetRoom retrieves one room.
func (s *RoomService) GetRoom(ctx context.Context, id int64) (persistence.Room, error) {
	room, err := s.rooms.GetRoom(ctx, id)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return persistence.Room{}, ErrNotFound
		}
		return persistence.Room{}, err
	}
	return room, nil
}

// ListRooms lists the room catalog.
func (s *RoomService) ListRooms(ctx context.Context) ([]persistence.Room, error) {
	return s.rooms.ListRooms(ctx)
}
