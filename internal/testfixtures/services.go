package testfixtures

import (
	"log/slog"
	"testing"
	"time"

	"github.com/example/seminar-scheduler/internal/application"
	"github.com/example/seminar-scheduler/internal/blob"
)

// ServiceFactory wires application services against a temporary SQLite store
// using a controllable clock and deterministic token values.
type ServiceFactory struct {
	Harness *SQLiteHarness
	Clock   *Clock
	Tokens  *IDGenerator
	Blobs   *blob.Store
	Logger  *slog.Logger

	Activity *application.ActivityService
}

// ServiceFactoryOption configures a ServiceFactory instance.
type ServiceFactoryOption func(*ServiceFactory)

// WithClock overrides the clock used by the factory.
func WithClock(clock *Clock) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Clock = clock
	}
}

// WithTokenGenerator overrides the deterministic token source.
func WithTokenGenerator(generator *IDGenerator) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Tokens = generator
	}
}

// NewServiceFactory constructs a factory backed by a fresh temporary store.
func NewServiceFactory(tb testing.TB, opts ...ServiceFactoryOption) *ServiceFactory {
	tb.Helper()

	factory := &ServiceFactory{
		Harness: NewSQLiteHarness(tb),
		Clock:   NewClock(time.Time{}),
		Tokens:  NewIDGenerator("token"),
	}
	for _, opt := range opts {
		opt(factory)
	}
	if factory.Clock == nil {
		factory.Clock = NewClock(time.Time{})
	}
	if factory.Tokens == nil {
		factory.Tokens = NewIDGenerator("token")
	}
	if factory.Blobs == nil {
		blobs, err := blob.NewStore(tb.TempDir())
		if err != nil {
			tb.Fatalf("failed to prepare blob store: %v", err)
		}
		factory.Blobs = blobs
	}
	factory.Activity = application.NewActivityService(factory.Harness.Store.Activity, factory.Logger)
	return factory
}

// PlanService builds a plan service bound to the factory store.
func (f *ServiceFactory) PlanService() *application.PlanService {
	store := f.Harness.Store
	return application.NewPlanService(store.Plans, store.Slots, store.Rooms, f.Activity, f.Logger, f.Clock.NowFunc())
}

// RoomService builds a room service bound to the factory store.
func (f *ServiceFactory) RoomService() *application.RoomService {
	return application.NewRoomService(f.Harness.Store.Rooms, f.Activity, f.Logger, f.Clock.NowFunc())
}

// SpeakerService builds a speaker service bound to the factory store.
func (f *ServiceFactory) SpeakerService() *application.SpeakerService {
	return application.NewSpeakerService(f.Harness.Store.Speakers, f.Activity, f.Logger, f.Clock.NowFunc())
}

// SuggestionService builds a suggestion service bound to the factory store.
func (f *ServiceFactory) SuggestionService() *application.SuggestionService {
	store := f.Harness.Store
	return application.NewSuggestionService(store.Suggestions, store.Plans, store.Slots, f.Activity, f.Logger, f.Clock.NowFunc())
}

// WorkflowService builds a workflow service bound to the factory store.
func (f *ServiceFactory) WorkflowService() *application.WorkflowService {
	return application.NewWorkflowService(f.Harness.Store.Suggestions, f.Activity, f.Logger, f.Clock.NowFunc())
}

// TokenService builds a token service with deterministic token values.
func (f *ServiceFactory) TokenService() *application.TokenService {
	store := f.Harness.Store
	return application.NewTokenService(store.Tokens, store.Suggestions, f.Activity, f.Logger, f.Tokens.NextFunc(), f.Clock.NowFunc())
}

// AssignmentService builds an assignment service bound to the factory store.
func (f *ServiceFactory) AssignmentService() *application.AssignmentService {
	store := f.Harness.Store
	return application.NewAssignmentService(store.Suggestions, store.Slots, store.Seminars, f.Activity, f.Logger, f.Clock.NowFunc())
}

// SeminarService builds a seminar service bound to the factory store.
func (f *ServiceFactory) SeminarService() *application.SeminarService {
	store := f.Harness.Store
	return application.NewSeminarService(store.Seminars, store.Rooms, f.Blobs, f.Activity, f.Logger, f.Clock.NowFunc())
}

// DeletionService builds a deletion service bound to the factory store.
func (f *ServiceFactory) DeletionService() *application.DeletionService {
	store := f.Harness.Store
	return application.NewDeletionService(store.Plans, store.Rooms, store.Speakers, store.Suggestions, store.Seminars, store.Slots, f.Blobs, f.Activity, f.Logger)
}
