package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/seminar-scheduler/internal/matcher"
	"github.com/example/seminar-scheduler/internal/persistence"
)

// AssignmentService turns suggestions into seminars and manages the slot
// side of the linkage.
type AssignmentService struct {
	suggestions persistence.SuggestionRepository
	slots       persistence.SlotRepository
	seminars    persistence.SeminarRepository
	activity    *ActivityService
	logger      *slog.Logger
	now         func() time.Time
}

// NewAssignmentService wires dependencies for assignment operations.
func NewAssignmentService(
	suggestions persistence.SuggestionRepository,
	slots persistence.SlotRepository,
	seminars persistence.SeminarRepository,
	activity *ActivityService,
	logger *slog.Logger,
	now func() time.Time,
) *AssignmentService {
	if now == nil {
		now = time.Now
	}
	return &AssignmentService{
		suggestions: suggestions,
		slots:       slots,
		seminars:    seminars,
		activity:    activity,
		logger:      defaultLogger(logger),
		now:         now,
	}
}

// Assign creates a seminar from a suggestion and a slot. Eligibility against
// the speaker's declared availability is checked first; the slot state and
// double-assignment preconditions are re-checked inside the repository
// transaction, so a concurrent assignment loses cleanly.
func (s *AssignmentService) Assign(ctx context.Context, suggestionID, slotID int64) (persistence.Seminar, error) {
	if s == nil {
		return persistence.Seminar{}, fmt.Errorf("AssignmentService is nil")
	}

	logger := serviceLogger(ctx, s.logger, "assignment", "assign",
		"suggestion_id", suggestionID, "slot_id", slotID)

	slot, err := s.slots.GetSlot(ctx, slotID)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return persistence.Seminar{}, ErrNotFound
		}
		return persistence.Seminar{}, err
	}
	if slot.Status != persistence.SlotAvailable {
		return persistence.Seminar{}, ErrSlotNotAvailable
	}

	suggestion, err := s.suggestions.GetSuggestion(ctx, suggestionID)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return persistence.Seminar{}, ErrNotFound
		}
		return persistence.Seminar{}, err
	}

	if suggestion.SemesterPlanID == nil || *suggestion.SemesterPlanID != slot.SemesterPlanID {
		vErr := &ValidationError{}
		vErr.add("slot_id", "slot belongs to a different plan")
		return persistence.Seminar{}, vErr
	}

	entries, err := s.suggestions.ListAvailability(ctx, suggestionID)
	if err != nil {
		return persistence.Seminar{}, err
	}
	if !matcher.IsEligible(entries, slot) {
		vErr := &ValidationError{}
		vErr.add("slot_id", "speaker has not declared availability for this date")
		return persistence.Seminar{}, vErr
	}

	seminar, err := s.seminars.Assign(ctx, persistence.AssignParams{
		SuggestionID: suggestionID,
		SlotID:       slotID,
		Title:        suggestion.Topic,
		Speaker: persistence.Speaker{
			Name:        suggestion.SpeakerName,
			Email:       suggestion.SpeakerEmail,
			Affiliation: suggestion.Affiliation,
		},
	})
	if err != nil {
		switch {
		case errors.Is(err, persistence.ErrConstraintViolation):
			return persistence.Seminar{}, ErrSlotNotAvailable
		case errors.Is(err, persistence.ErrDuplicate):
			return persistence.Seminar{}, ErrSuggestionAlreadyAssigned
		case errors.Is(err, persistence.ErrNotFound):
			return persistence.Seminar{}, ErrNotFound
		}
		return persistence.Seminar{}, err
	}

	logger.Info("seminar assigned", slog.Int64("seminar_id", seminar.ID), slog.String("date", seminar.Date))
	s.activity.Record(ctx, "", "seminar.assign", "seminar", seminar.ID,
		map[string]interface{}{"slot_id": slotID, "slot_status": string(slot.Status)},
		seminar)

	return seminar, nil
}

// EligibleSlots lists the open slots of the suggestion's plan whose dates the
// speaker has declared, preserving plan order. Staff use this to see where a
// suggestion can land before assigning it. A suggestion without a plan has no
// candidate slots.
func (s *AssignmentService) EligibleSlots(ctx context.Context, suggestionID int64) ([]persistence.SeminarSlot, error) {
	if s == nil {
		return nil, fmt.Errorf("AssignmentService is nil")
	}

	suggestion, err := s.suggestions.GetSuggestion(ctx, suggestionID)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if suggestion.SemesterPlanID == nil {
		return []persistence.SeminarSlot{}, nil
	}

	entries, err := s.suggestions.ListAvailability(ctx, suggestionID)
	if err != nil {
		return nil, err
	}
	slots, err := s.slots.ListSlotsForPlan(ctx, *suggestion.SemesterPlanID)
	if err != nil {
		return nil, err
	}

	return matcher.EligibleSlots(entries, slots), nil
}

// ReleaseSlot frees a slot while keeping its seminar. The seminar becomes an
// orphan, listed separately so it can be re-linked or deleted later.
func (s *AssignmentService) ReleaseSlot(ctx context.Context, slotID int64) error {
	slot, err := s.slots.GetSlot(ctx, slotID)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}

	if err := s.slots.ReleaseSlot(ctx, slotID); err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}

	serviceLogger(ctx, s.logger, "assignment", "release_slot", "slot_id", slotID).Info("slot released")
	s.activity.Record(ctx, "", "slot.release", "slot", slotID, slot, nil)

	return nil
}

// ListOrphanSeminars returns seminars no slot currently points at.
func (s *AssignmentService) ListOrphanSeminars(ctx context.Context) ([]persistence.Seminar, error) {
	return s.seminars.ListOrphanSeminars(ctx)
}
