package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/example/seminar-scheduler/internal/matcher"
	"github.com/example/seminar-scheduler/internal/persistence"
)

// SuggestionInput carries the fields of a new or edited suggestion. The
// speaker name/email/affiliation become a snapshot on the suggestion row;
// linking to a canonical Speaker happens at assignment time, never here.
type SuggestionInput struct {
	SemesterPlanID *int64
	SpeakerName    string
	SpeakerEmail   string
	Affiliation    string
	SuggestedBy    string
	Priority       int
	Topic          string
	Reason         string
	Status         string
}

// AvailabilitySubmission is one availability date sent in by a speaker.
type AvailabilitySubmission struct {
	Date       string
	Preference persistence.AvailabilityPreference
}

// SuggestionService orchestrates validation and persistence for speaker
// suggestions and their availability.
type SuggestionService struct {
	suggestions persistence.SuggestionRepository
	plans       persistence.PlanRepository
	slots       persistence.SlotRepository
	activity    *ActivityService
	logger      *slog.Logger
	now         func() time.Time
}

// NewSuggestionService wires dependencies for suggestion operations.
func NewSuggestionService(
	suggestions persistence.SuggestionRepository,
	plans persistence.PlanRepository,
	slots persistence.SlotRepository,
	activity *ActivityService,
	logger *slog.Logger,
	now func() time.Time,
) *SuggestionService {
	if now == nil {
		now = time.Now
	}
	return &SuggestionService{
		suggestions: suggestions,
		plans:       plans,
		slots:       slots,
		activity:    activity,
		logger:      defaultLogger(logger),
		now:         now,
	}
}

func (s *SuggestionService) validateInput(ctx context.Context, input SuggestionInput, vErr *ValidationError) error {
	if strings.TrimSpace(input.SpeakerName) == "" {
		vErr.add("speaker_name", "speaker name is required")
	}
	if len(input.SpeakerName) > 200 {
		vErr.add("speaker_name", "speaker name must be 200 characters or less")
	}
	if input.SpeakerEmail != "" {
		if _, err := mail.ParseAddress(input.SpeakerEmail); err != nil {
			vErr.add("speaker_email", "email address is invalid")
		}
	}
	if input.Priority < 0 || input.Priority > 10 {
		vErr.add("priority", "priority must be between 0 and 10")
	}
	if input.SemesterPlanID != nil {
		if _, err := s.plans.GetPlan(ctx, *input.SemesterPlanID); err != nil {
			if errors.Is(err, persistence.ErrNotFound) {
				vErr.add("semester_plan_id", "plan does not exist")
			} else {
				return err
			}
		}
	}
	return nil
}

// CreateSuggestion validates and creates a suggestion.
func (s *SuggestionService) CreateSuggestion(ctx context.Context, input SuggestionInput) (persistence.SpeakerSuggestion, error) {
	if s == nil {
		return persistence.SpeakerSuggestion{}, fmt.Errorf("SuggestionService is nil")
	}

	vErr := &ValidationError{}
	if err := s.validateInput(ctx, input, vErr); err != nil {
		return persistence.SpeakerSuggestion{}, err
	}
	if vErr.HasErrors() {
		return persistence.SpeakerSuggestion{}, vErr
	}

	suggestion, err := s.suggestions.CreateSuggestion(ctx, persistence.SpeakerSuggestion{
		SemesterPlanID: input.SemesterPlanID,
		SpeakerName:    strings.TrimSpace(input.SpeakerName),
		SpeakerEmail:   strings.TrimSpace(input.SpeakerEmail),
		Affiliation:    strings.TrimSpace(input.Affiliation),
		SuggestedBy:    strings.TrimSpace(input.SuggestedBy),
		Priority:       input.Priority,
		Topic:          input.Topic,
		Reason:         input.Reason,
		Status:         input.Status,
	})
	if err != nil {
		return persistence.SpeakerSuggestion{}, err
	}

	serviceLogger(ctx, s.logger, "suggestion", "create", "suggestion_id", suggestion.ID).Info("suggestion created",
		slog.String("speaker_name", suggestion.SpeakerName))
	s.activity.Record(ctx, "", "suggestion.create", "suggestion", suggestion.ID, nil, suggestion)

	return suggestion, nil
}

// GetSuggestion retrieves one suggestion with its availability entries.
func (s *SuggestionService) GetSuggestion(ctx context.Context, id int64) (persistence.SpeakerSuggestion, []persistence.AvailabilityEntry, error) {
	suggestion, err := s.suggestions.GetSuggestion(ctx, id)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return persistence.SpeakerSuggestion{}, nil, ErrNotFound
		}
		return persistence.SpeakerSuggestion{}, nil, err
	}

	entries, err := s.suggestions.ListAvailability(ctx, id)
	if err != nil {
		return persistence.SpeakerSuggestion{}, nil, err
	}

	return suggestion, entries, nil
}

// ListSuggestions lists suggestions, optionally narrowed by plan or speaker.
func (s *SuggestionService) ListSuggestions(ctx context.Context, filter persistence.SuggestionFilter) ([]persistence.SpeakerSuggestion, error) {
	return s.suggestions.ListSuggestions(ctx, filter)
}

// UpdateSuggestion validates and updates a suggestion's descriptive fields.
// Workflow flags go through the workflow service, never this path.
func (s *SuggestionService) UpdateSuggestion(ctx context.Context, id int64, input SuggestionInput) (persistence.SpeakerSuggestion, error) {
	before, err := s.suggestions.GetSuggestion(ctx, id)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return persistence.SpeakerSuggestion{}, ErrNotFound
		}
		return persistence.SpeakerSuggestion{}, err
	}

	vErr := &ValidationError{}
	if err := s.validateInput(ctx, input, vErr); err != nil {
		return persistence.SpeakerSuggestion{}, err
	}
	if vErr.HasErrors() {
		return persistence.SpeakerSuggestion{}, vErr
	}

	updated := before
	updated.SemesterPlanID = input.SemesterPlanID
	updated.SpeakerName = strings.TrimSpace(input.SpeakerName)
	updated.SpeakerEmail = strings.TrimSpace(input.SpeakerEmail)
	updated.Affiliation = strings.TrimSpace(input.Affiliation)
	updated.SuggestedBy = strings.TrimSpace(input.SuggestedBy)
	updated.Priority = input.Priority
	updated.Topic = input.Topic
	updated.Reason = input.Reason
	updated.Status = input.Status

	if err := s.suggestions.UpdateSuggestion(ctx, updated); err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return persistence.SpeakerSuggestion{}, ErrNotFound
		}
		return persistence.SpeakerSuggestion{}, err
	}

	s.activity.Record(ctx, "", "suggestion.update", "suggestion", id, before, updated)

	return updated, nil
}

// SubmitAvailability replaces a suggestion's availability entries with the
// submitted dates. Dates are checked against the plan's slot dates; entries
// for a suggestion without a plan are rejected outright. Submission never
// touches workflow flags, the coordinator confirms receipt explicitly.
func (s *SuggestionService) SubmitAvailability(ctx context.Context, suggestionID int64, submissions []AvailabilitySubmission) error {
	suggestion, err := s.suggestions.GetSuggestion(ctx, suggestionID)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}

	vErr := &ValidationError{}
	if suggestion.SemesterPlanID == nil {
		vErr.add("suggestion", "suggestion is not attached to a plan")
		return vErr
	}

	entries := make([]persistence.AvailabilityEntry, 0, len(submissions))
	for _, sub := range submissions {
		preference := sub.Preference
		if preference == "" {
			preference = persistence.PreferencePossible
		}
		if preference != persistence.PreferencePreferred && preference != persistence.PreferencePossible {
			vErr.add("preference", "preference must be preferred or possible")
			return vErr
		}
		entries = append(entries, persistence.AvailabilityEntry{
			SuggestionID: suggestionID,
			Date:         sub.Date,
			Preference:   preference,
		})
	}

	planDates, err := s.slots.ListSlotDates(ctx, *suggestion.SemesterPlanID)
	if err != nil {
		return err
	}

	for _, invalid := range matcher.ValidateDates(entries, planDates) {
		vErr.add("dates."+invalid.Date, invalid.Reason)
	}
	if vErr.HasErrors() {
		return vErr
	}

	previous, err := s.suggestions.ListAvailability(ctx, suggestionID)
	if err != nil {
		return err
	}

	if err := s.suggestions.ReplaceAvailability(ctx, suggestionID, entries); err != nil {
		return err
	}

	serviceLogger(ctx, s.logger, "suggestion", "submit_availability", "suggestion_id", suggestionID).Info(
		"availability submitted", slog.Int("dates", len(entries)))
	s.activity.Record(ctx, "speaker", "suggestion.submit_availability", "suggestion", suggestionID, previous, entries)

	return nil
}

// ListAvailability returns a suggestion's availability entries.
func (s *SuggestionService) ListAvailability(ctx context.Context, suggestionID int64) ([]persistence.AvailabilityEntry, error) {
	return s.suggestions.ListAvailability(ctx, suggestionID)
}
