package application

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/example/seminar-scheduler/internal/persistence"
)

// WorkflowPatch carries a partial update to a suggestion's checklist. Nil
// fields are left untouched.
type WorkflowPatch struct {
	RequestSent          *bool
	AvailabilityReceived *bool
	DateNotified         *bool
	MealConfirmed        *bool
	AccommodationBooked  *bool
	InfoSubmitted        *bool
	Approved             *bool
}

// Stage derives the external progress stage from the checklist. The stage is
// never stored; flags are the single source of truth.
//
//	4: approved
//	3: speaker info submitted
//	2: date notified
//	1: everything earlier
func Stage(flags persistence.WorkflowFlags) int {
	switch {
	case flags.Approved:
		return 4
	case flags.InfoSubmitted:
		return 3
	case flags.DateNotified:
		return 2
	default:
		return 1
	}
}

// WorkflowService applies checklist updates and audits exactly which flags
// flipped.
type WorkflowService struct {
	suggestions persistence.SuggestionRepository
	activity    *ActivityService
	logger      *slog.Logger
	now         func() time.Time
}

// NewWorkflowService wires dependencies for workflow operations.
func NewWorkflowService(suggestions persistence.SuggestionRepository, activity *ActivityService, logger *slog.Logger, now func() time.Time) *WorkflowService {
	if now == nil {
		now = time.Now
	}
	return &WorkflowService{
		suggestions: suggestions,
		activity:    activity,
		logger:      defaultLogger(logger),
		now:         now,
	}
}

// flagChange records one flipped flag for the audit diff.
type flagChange struct {
	Flag string `json:"flag"`
	From bool   `json:"from"`
	To   bool   `json:"to"`
}

// PatchWorkflow applies the non-nil fields of the patch to a suggestion's
// checklist. Flags flip independently in either direction; the patch carries
// what the coordinator asserts, not a state machine transition.
func (s *WorkflowService) PatchWorkflow(ctx context.Context, suggestionID int64, patch WorkflowPatch) (persistence.WorkflowFlags, error) {
	suggestion, err := s.suggestions.GetSuggestion(ctx, suggestionID)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return persistence.WorkflowFlags{}, ErrNotFound
		}
		return persistence.WorkflowFlags{}, err
	}

	before := suggestion.Workflow
	after := before
	var changes []flagChange

	apply := func(name string, target *bool, value *bool) {
		if value == nil || *target == *value {
			return
		}
		changes = append(changes, flagChange{Flag: name, From: *target, To: *value})
		*target = *value
	}

	apply("request_sent", &after.RequestSent, patch.RequestSent)
	apply("availability_received", &after.AvailabilityReceived, patch.AvailabilityReceived)
	apply("date_notified", &after.DateNotified, patch.DateNotified)
	apply("meal_confirmed", &after.MealConfirmed, patch.MealConfirmed)
	apply("accommodation_booked", &after.AccommodationBooked, patch.AccommodationBooked)
	apply("info_submitted", &after.InfoSubmitted, patch.InfoSubmitted)
	apply("approved", &after.Approved, patch.Approved)

	if len(changes) == 0 {
		return before, nil
	}

	if err := s.suggestions.UpdateWorkflow(ctx, suggestionID, after); err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return persistence.WorkflowFlags{}, ErrNotFound
		}
		return persistence.WorkflowFlags{}, err
	}

	serviceLogger(ctx, s.logger, "workflow", "patch", "suggestion_id", suggestionID).Info("workflow updated",
		slog.Int("changed_flags", len(changes)),
		slog.Int("stage", Stage(after)))
	s.activity.Record(ctx, "", "workflow.patch", "suggestion", suggestionID, nil, changes)

	return after, nil
}
