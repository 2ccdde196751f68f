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

// PlanService orchestrates validation and persistence for semester plans and
// their slots.
type PlanService struct {
	plans    persistence.PlanRepository
	slots    persistence.SlotRepository
	rooms    persistence.RoomRepository
	activity *ActivityService
	logger   *slog.Logger
	now      func() time.Time
}

// NewPlanService wires dependencies for plan operations.
func NewPlanService(
	plans persistence.PlanRepository,
	slots persistence.SlotRepository,
	rooms persistence.RoomRepository,
	activity *ActivityService,
	logger *slog.Logger,
	now func() time.Time,
) *PlanService {
	if now == nil {
		now = time.Now
	}
	return &PlanService{
		plans:    plans,
		slots:    slots,
		rooms:    rooms,
		activity: activity,
		logger:   defaultLogger(logger),
		now:      now,
	}
}

// CreatePlan validates and creates a semester plan.
func (s *PlanService) CreatePlan(ctx context.Context, name string) (persistence.SemesterPlan, error) {
	if s == nil {
		return persistence.SemesterPlan{}, fmt.Errorf("PlanService is nil")
	}

	name = strings.TrimSpace(name)

	vErr := &ValidationError{}
	if name == "" {
		vErr.add("name", "name is required")
	}
	if len(name) > 200 {
		vErr.add("name", "name must be 200 characters or less")
	}
	if vErr.HasErrors() {
		return persistence.SemesterPlan{}, vErr
	}

	plan, err := s.plans.CreatePlan(ctx, persistence.SemesterPlan{Name: name})
	if err != nil {
		if errors.Is(err, persistence.ErrDuplicate) {
			vErr.add("name", "a plan with this name already exists")
			return persistence.SemesterPlan{}, vErr
		}
		return persistence.SemesterPlan{}, err
	}

	serviceLogger(ctx, s.logger, "plan", "create", "plan_id", plan.ID).Info("plan created",
		slog.String("name", plan.Name))
	s.activity.Record(ctx, "", "plan.create", "plan", plan.ID, nil, plan)

	return plan, nil
}

// GetPlan retrieves one plan.
func (s *PlanService) GetPlan(ctx context.Context, id int64) (persistence.SemesterPlan, error) {
	plan, err := s.plans.GetPlan(ctx, id)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return persistence.SemesterPlan{}, ErrNotFound
		}
		return persistence.SemesterPlan{}, err
	}
	return plan, nil
}

// ListPlans lists all plans.
func (s *PlanService) ListPlans(ctx context.Context) ([]persistence.SemesterPlan, error) {
	return s.plans.ListPlans(ctx)
}

// SlotInput describes one slot to create within a plan.
type SlotInput struct {
	Date      string
	StartTime string
	EndTime   string
	RoomID    *int64
}

// CreateSlots validates and creates a batch of slots in a plan. The batch is
// all-or-nothing at the validation stage; persistence inserts one by one.
func (s *PlanService) CreateSlots(ctx context.Context, planID int64, inputs []SlotInput) ([]persistence.SeminarSlot, error) {
	if _, err := s.plans.GetPlan(ctx, planID); err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	vErr := &ValidationError{}
	if len(inputs) == 0 {
		vErr.add("slots", "at least one slot is required")
		return nil, vErr
	}

	for i, input := range inputs {
		field := fmt.Sprintf("slots[%d]", i)
		if _, err := time.Parse("2006-01-02", input.Date); err != nil {
			vErr.add(field+".date", "date must be in YYYY-MM-DD format")
		}
		if input.StartTime != "" {
			if _, err := time.Parse("15:04", input.StartTime); err != nil {
				vErr.add(field+".start_time", "start time must be in HH:MM format")
			}
		}
		if input.EndTime != "" {
			if _, err := time.Parse("15:04", input.EndTime); err != nil {
				vErr.add(field+".end_time", "end time must be in HH:MM format")
			}
		}
		if input.StartTime != "" && input.EndTime != "" && input.EndTime <= input.StartTime {
			vErr.add(field+".end_time", "end time must be after start time")
		}
		if input.RoomID != nil {
			if _, err := s.rooms.GetRoom(ctx, *input.RoomID); err != nil {
				if errors.Is(err, persistence.ErrNotFound) {
					vErr.add(field+".room_id", "room does not exist")
				} else {
					return nil, err
				}
			}
		}
	}
	if vErr.HasErrors() {
		return nil, vErr
	}

	created := make([]persistence.SeminarSlot, 0, len(inputs))
	for _, input := range inputs {
		slot, err := s.slots.CreateSlot(ctx, persistence.SeminarSlot{
			SemesterPlanID: planID,
			Date:           input.Date,
			StartTime:      input.StartTime,
			EndTime:        input.EndTime,
			RoomID:         input.RoomID,
			Status:         persistence.SlotAvailable,
		})
		if err != nil {
			return created, err
		}
		created = append(created, slot)
	}

	serviceLogger(ctx, s.logger, "plan", "create_slots", "plan_id", planID).Info("slots created",
		slog.Int("count", len(created)))
	s.activity.Record(ctx, "", "plan.create_slots", "plan", planID, nil, map[string]interface{}{
		"count": len(created),
	})

	return created, nil
}

// ListSlots lists the slots of a plan.
func (s *PlanService) ListSlots(ctx context.Context, planID int64) ([]persistence.SeminarSlot, error) {
	if _, err := s.plans.GetPlan(ctx, planID); err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return s.slots.ListSlotsForPlan(ctx, planID)
}
