package testfixtures

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/example/seminar-scheduler/internal/persistence"
	"github.com/example/seminar-scheduler/internal/persistence/sqlite"
)

// SQLiteHarness provides repository access backed by a temporary SQLite
// database for integration-style persistence tests.
type SQLiteHarness struct {
	Store *sqlite.Store
	Path  string

	cleanup func()
}

// Close releases resources associated with the harness.
func (h *SQLiteHarness) Close() {
	if h != nil && h.cleanup != nil {
		h.cleanup()
		h.cleanup = nil
	}
}

// NewSQLiteHarness constructs a SQLiteHarness using a temporary file that is
// migrated automatically. Callers may optionally invoke Close, but the helper
// also registers a cleanup callback with the provided testing.TB.
func NewSQLiteHarness(tb testing.TB) *SQLiteHarness {
	tb.Helper()

	dir := tb.TempDir()
	path := filepath.Join(dir, "seminars.db")

	store, err := sqlite.Open(path)
	if err != nil {
		tb.Fatalf("failed to open storage: %v", err)
	}

	if err := store.Migrate(context.Background()); err != nil {
		_ = store.Close()
		tb.Fatalf("failed to migrate storage: %v", err)
	}

	harness := &SQLiteHarness{
		Store: store,
		Path:  path,
		cleanup: func() {
			_ = store.Close()
		},
	}

	tb.Cleanup(harness.Close)
	return harness
}

// SeedPlan inserts a plan fixture and returns the stored row.
func (h *SQLiteHarness) SeedPlan(tb testing.TB, opts ...PlanOption) persistence.SemesterPlan {
	tb.Helper()
	plan, err := h.Store.Plans.CreatePlan(context.Background(), NewPlanFixture(opts...).Persistence())
	if err != nil {
		tb.Fatalf("failed to seed plan: %v", err)
	}
	return plan
}

// SeedRoom inserts a room fixture and returns the stored row.
func (h *SQLiteHarness) SeedRoom(tb testing.TB, opts ...RoomOption) persistence.Room {
	tb.Helper()
	room, err := h.Store.Rooms.CreateRoom(context.Background(), NewRoomFixture(opts...).Persistence())
	if err != nil {
		tb.Fatalf("failed to seed room: %v", err)
	}
	return room
}

// SeedSpeaker inserts a speaker fixture and returns the stored row.
func (h *SQLiteHarness) SeedSpeaker(tb testing.TB, opts ...SpeakerOption) persistence.Speaker {
	tb.Helper()
	speaker, err := h.Store.Speakers.CreateSpeaker(context.Background(), NewSpeakerFixture(opts...).Persistence())
	if err != nil {
		tb.Fatalf("failed to seed speaker: %v", err)
	}
	return speaker
}

// SeedSuggestion inserts a suggestion fixture and returns the stored row.
func (h *SQLiteHarness) SeedSuggestion(tb testing.TB, opts ...SuggestionOption) persistence.SpeakerSuggestion {
	tb.Helper()
	suggestion, err := h.Store.Suggestions.CreateSuggestion(context.Background(), NewSuggestionFixture(opts...).Persistence())
	if err != nil {
		tb.Fatalf("failed to seed suggestion: %v", err)
	}
	return suggestion
}

// SeedSlot inserts one slot for the plan on the given date and returns the
// stored row.
func (h *SQLiteHarness) SeedSlot(tb testing.TB, planID int64, date string) persistence.SeminarSlot {
	tb.Helper()
	slot, err := h.Store.Slots.CreateSlot(context.Background(), persistence.SeminarSlot{
		SemesterPlanID: planID,
		Date:           date,
		StartTime:      "15:00",
		EndTime:        "16:30",
		Status:         persistence.SlotAvailable,
	})
	if err != nil {
		tb.Fatalf("failed to seed slot: %v", err)
	}
	return slot
}
