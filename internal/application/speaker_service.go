package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/example/seminar-scheduler/internal/persistence"
)

// SpeakerInput carries the editable fields of a speaker identity.
type SpeakerInput struct {
	Name        string
	Email       string
	Affiliation string
	Bio         string
}

// SpeakerService orchestrates validation and persistence for canonical
// speaker identities.
type SpeakerService struct {
	speakers persistence.SpeakerRepository
	activity *ActivityService
	logger   *slog.Logger
	now      func() time.Time
}

// NewSpeakerService wires dependencies for speaker operations.
func NewSpeakerService(speakers persistence.SpeakerRepository, activity *ActivityService, logger *slog.Logger, now func() time.Time) *SpeakerService {
	if now == nil {
		now = time.Now
	}
	return &SpeakerService{
		speakers: speakers,
		activity: activity,
		logger:   defaultLogger(logger),
		now:      now,
	}
}

func validateSpeakerInput(input SpeakerInput, vErr *ValidationError) {
	if strings.TrimSpace(input.Name) == "" {
		vErr.add("name", "name is required")
	}
	if len(input.Name) > 200 {
		vErr.add("name", "name must be 200 characters or less")
	}
	if input.Email != "" {
		if _, err := mail.ParseAddress(input.Email); err != nil {
			vErr.add("email", "email address is invalid")
		}
	}
}

// CreateSpeaker validates and creates a speaker.
func (s *SpeakerService) CreateSpeaker(ctx context.Context, input SpeakerInput) (persistence.Speaker, error) {
	if s == nil {
		return persistence.Speaker{}, fmt.Errorf("SpeakerService is nil")
	}

	vErr := &ValidationError{}
	validateSpeakerInput(input, vErr)
	if vErr.HasErrors() {
		return persistence.Speaker{}, vErr
	}

	speaker, err := s.speakers.CreateSpeaker(ctx, persistence.Speaker{
		Name:        strings.TrimSpace(input.Name),
		Email:       strings.TrimSpace(input.Email),
		Affiliation: strings.TrimSpace(input.Affiliation),
		Bio:         input.Bio,
	})
	if err != nil {
		if errors.Is(err, persistence.ErrDuplicate) {
			vErr.add("name", "a speaker with this name already exists")
			return persistence.Speaker{}, vErr
		}
		return persistence.Speaker{}, err
	}

	serviceLogger(ctx, s.logger, "speaker", "create", "speaker_id", speaker.ID).Info("speaker created",
		slog.String("name", speaker.Name))
	s.activity.Record(ctx, "", "speaker.create", "speaker", speaker.ID, nil, speaker)

	return speaker, nil
}

// UpdateSpeaker validates and updates a speaker. Suggestions keep their own
// denormalized snapshot, so edits here never rewrite suggestion history.
func (s *SpeakerService) UpdateSpeaker(ctx context.Context, id int64, input SpeakerInput) (persistence.Speaker, error) {
	before, err := s.speakers.GetSpeaker(ctx, id)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return persistence.Speaker{}, ErrNotFound
		}
		return persistence.Speaker{}, err
	}

	vErr := &ValidationError{}
	validateSpeakerInput(input, vErr)
	if vErr.HasErrors() {
		return persistence.Speaker{}, vErr
	}

	updated := before
	updated.Name = strings.TrimSpace(input.Name)
	updated.Email = strings.TrimSpace(input.Email)
	updated.Affiliation = strings.TrimSpace(input.Affiliation)
	updated.Bio = input.Bio

	if err := s.speakers.UpdateSpeaker(ctx, updated); err != nil {
		if errors.Is(err, persistence.ErrDuplicate) {
			vErr.add("name", "a speaker with this name already exists")
			return persistence.Speaker{}, vErr
		}
		if errors.Is(err, persistence.ErrNotFound) {
			return persistence.Speaker{}, ErrNotFound
		}
		return persistence.Speaker{}, err
	}

	s.activity.Record(ctx, "", "speaker.update", "speaker", id, before, updated)

	return updated, nil
}

// GetSpeaker retrieves one speaker.
func (s *SpeakerService) GetSpeaker(ctx context.Context, id int64) (persistence.Speaker, error) {
	speaker, err := s.speakers.GetSpeaker(ctx, id)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return persistence.Speaker{}, ErrNotFound
		}
		return persistence.Speaker{}, err
	}
	return speaker, nil
}

// ListSpeakers lists all speakers.
func (s *SpeakerService) ListSpeakers(ctx context.Context) ([]persistence.Speaker, error) {
	return s.speakers.ListSpeakers(ctx)
}
