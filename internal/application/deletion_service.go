package application

import (
	"context"
	"errors"
	"log/slog"

	"github.com/example/seminar-scheduler/internal/blob"
	"github.com/example/seminar-scheduler/internal/persistence"
)

// DeletionService is the single entry point for destructive operations. Each
// entity type has its own strategy carrying that entity's cascade and
// blocking rules; handlers never call repository deletes directly.
type DeletionService struct {
	plans       *planDeletion
	rooms       *roomDeletion
	speakers    *speakerDeletion
	suggestions *suggestionDeletion
	seminars    *seminarDeletion
	slots       *slotDeletion

	activity *ActivityService
	logger   *slog.Logger
}

// NewDeletionService wires the per-entity deletion strategies.
func NewDeletionService(
	plans persistence.PlanRepository,
	rooms persistence.RoomRepository,
	speakers persistence.SpeakerRepository,
	suggestions persistence.SuggestionRepository,
	seminars persistence.SeminarRepository,
	slots persistence.SlotRepository,
	blobs *blob.Store,
	activity *ActivityService,
	logger *slog.Logger,
) *DeletionService {
	logger = defaultLogger(logger)
	return &DeletionService{
		plans:       &planDeletion{repo: plans},
		rooms:       &roomDeletion{repo: rooms},
		speakers:    &speakerDeletion{repo: speakers},
		suggestions: &suggestionDeletion{repo: suggestions},
		seminars:    &seminarDeletion{repo: seminars, blobs: blobs, logger: logger},
		slots:       &slotDeletion{repo: slots},
		activity:    activity,
		logger:      logger,
	}
}

func (s *DeletionService) audit(ctx context.Context, action, entityType string, id int64, before interface{}) {
	serviceLogger(ctx, s.logger, "deletion", action, "entity_id", id).Info("entity deleted")
	s.activity.Record(ctx, "", action, entityType, id, before, nil)
}

// DeletePlan removes a plan: its slots go with it, its suggestions are
// detached and kept.
func (s *DeletionService) DeletePlan(ctx context.Context, id int64) error {
	before, err := s.plans.repo.GetPlan(ctx, id)
	if err != nil {
		return mapDeletionError(err)
	}
	if err := s.plans.delete(ctx, id); err != nil {
		return err
	}
	s.audit(ctx, "plan.delete", "plan", id, before)
	return nil
}

// DeleteRoom removes a room. While seminars or slots reference it the
// deletion is blocked with ErrRoomInUse unless a reassignment target is
// given.
func (s *DeletionService) DeleteRoom(ctx context.Context, id int64, reassignTo *int64) error {
	before, err := s.rooms.repo.GetRoom(ctx, id)
	if err != nil {
		return mapDeletionError(err)
	}
	if err := s.rooms.delete(ctx, id, reassignTo); err != nil {
		return err
	}
	s.audit(ctx, "room.delete", "room", id, before)
	return nil
}

// DeleteSpeaker removes a speaker identity. Seminars and suggestions are
// unlinked, never deleted: the historical record survives.
func (s *DeletionService) DeleteSpeaker(ctx context.Context, id int64) error {
	before, err := s.speakers.repo.GetSpeaker(ctx, id)
	if err != nil {
		return mapDeletionError(err)
	}
	if err := s.speakers.delete(ctx, id); err != nil {
		return err
	}
	s.audit(ctx, "speaker.delete", "speaker", id, before)
	return nil
}

// DeleteSuggestion removes a suggestion together with its availability
// entries and tokens, and clears any slot still pointing at it.
func (s *DeletionService) DeleteSuggestion(ctx context.Context, id int64) error {
	before, err := s.suggestions.repo.GetSuggestion(ctx, id)
	if err != nil {
		return mapDeletionError(err)
	}
	if err := s.suggestions.delete(ctx, id); err != nil {
		return err
	}
	s.audit(ctx, "suggestion.delete", "suggestion", id, before)
	return nil
}

// DeleteSeminar removes a seminar with its details, file rows and blob
// content, and frees the slot that carried it. Suggestion-bound tokens stay
// with the suggestion.
func (s *DeletionService) DeleteSeminar(ctx context.Context, id int64) error {
	before, err := s.seminars.repo.GetSeminar(ctx, id)
	if err != nil {
		return mapDeletionError(err)
	}
	if err := s.seminars.delete(ctx, id); err != nil {
		return err
	}
	s.audit(ctx, "seminar.delete", "seminar", id, before)
	return nil
}

// DeleteSlot removes a slot. It refuses with ErrSlotOccupied while a seminar
// is assigned; release or delete the seminar first.
func (s *DeletionService) DeleteSlot(ctx context.Context, id int64) error {
	before, err := s.slots.repo.GetSlot(ctx, id)
	if err != nil {
		return mapDeletionError(err)
	}
	if err := s.slots.delete(ctx, id); err != nil {
		return err
	}
	s.audit(ctx, "slot.delete", "slot", id, before)
	return nil
}

func mapDeletionError(err error) error {
	if errors.Is(err, persistence.ErrNotFound) {
		return ErrNotFound
	}
	return err
}

// --- per-entity strategies ---

type planDeletion struct {
	repo persistence.PlanRepository
}

func (d *planDeletion) delete(ctx context.Context, id int64) error {
	return mapDeletionError(d.repo.DeletePlan(ctx, id))
}

type roomDeletion struct {
	repo persistence.RoomRepository
}

func (d *roomDeletion) delete(ctx context.Context, id int64, reassignTo *int64) error {
	err := d.repo.DeleteRoom(ctx, id, reassignTo)
	if errors.Is(err, persistence.ErrForeignKeyViolation) {
		return ErrRoomInUse
	}
	return mapDeletionError(err)
}

type speakerDeletion struct {
	repo persistence.SpeakerRepository
}

func (d *speakerDeletion) delete(ctx context.Context, id int64) error {
	return mapDeletionError(d.repo.DeleteSpeaker(ctx, id))
}

type suggestionDeletion struct {
	repo persistence.SuggestionRepository
}

func (d *suggestionDeletion) delete(ctx context.Context, id int64) error {
	return mapDeletionError(d.repo.DeleteSuggestion(ctx, id))
}

type seminarDeletion struct {
	repo   persistence.SeminarRepository
	blobs  *blob.Store
	logger *slog.Logger
}

func (d *seminarDeletion) delete(ctx context.Context, id int64) error {
	paths, err := d.repo.DeleteSeminar(ctx, id)
	if err != nil {
		return mapDeletionError(err)
	}

	// Blob cleanup happens after the transaction committed. A failed remove
	// leaves unreferenced content behind, which is preferable to a deleted
	// blob for a row that rolled back.
	for _, p := range paths {
		if err := d.blobs.Remove(p); err != nil {
			d.logger.Warn("failed to remove blob for deleted seminar",
				slog.Int64("seminar_id", id),
				slog.String("path", p),
				slog.String("error", err.Error()))
		}
	}
	return nil
}

type slotDeletion struct {
	repo persistence.SlotRepository
}

func (d *slotDeletion) delete(ctx context.Context, id int64) error {
	err := d.repo.DeleteSlot(ctx, id)
	if errors.Is(err, persistence.ErrForeignKeyViolation) {
		return ErrSlotOccupied
	}
	return mapDeletionError(err)
}
