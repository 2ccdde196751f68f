package backup_test

import (
	"context"
	"database/sql"
	"os"
	"testing"

	"github.com/example/seminar-scheduler/internal/application"
	"github.com/example/seminar-scheduler/internal/persistence"
	"github.com/example/seminar-scheduler/internal/persistence/sqlite/backup"
	"github.com/example/seminar-scheduler/internal/testfixtures"
)

func newReconciler(f *testfixtures.ServiceFactory) *backup.Reconciler {
	return backup.NewReconciler(f.Harness.Store.Pool(), f.Logger)
}

func TestSnapshotWritesStandaloneDatabase(t *testing.T) {
	f := testfixtures.NewServiceFactory(t)
	f.Harness.SeedPlan(t)
	r := newReconciler(f)
	dir := t.TempDir()
	ctx := context.Background()

	first, err := r.Snapshot(ctx, dir)
	if err != nil {
		t.Fatalf("snapshot failed: %v", err)
	}
	second, err := r.Snapshot(ctx, dir)
	if err != nil {
		t.Fatalf("second snapshot failed: %v", err)
	}
	if first == second {
		t.Fatal("expected distinct snapshot paths")
	}

	for _, path := range []string{first, second} {
		info, err := os.Stat(path)
		if err != nil {
			t.Fatalf("stat %s failed: %v", path, err)
		}
		if info.Size() == 0 {
			t.Fatalf("expected non-empty snapshot %s", path)
		}
	}

	db, err := sql.Open("sqlite", first)
	if err != nil {
		t.Fatalf("open snapshot failed: %v", err)
	}
	defer db.Close()

	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM semester_plans`).Scan(&count); err != nil {
		t.Fatalf("query snapshot failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 plan in the snapshot, got %d", count)
	}
}

func TestRestoreRoundTripPreservesLinkage(t *testing.T) {
	f := testfixtures.NewServiceFactory(t)
	plan := f.Harness.SeedPlan(t)
	slot := f.Harness.SeedSlot(t, plan.ID, "2025-05-01")
	suggestion := f.Harness.SeedSuggestion(t, testfixtures.WithSuggestionPlan(plan.ID))
	ctx := context.Background()

	if err := f.SuggestionService().SubmitAvailability(ctx, suggestion.ID, []application.AvailabilitySubmission{
		{Date: "2025-05-01", Preference: persistence.PreferencePreferred},
	}); err != nil {
		t.Fatalf("failed to declare availability: %v", err)
	}
	seminar, err := f.AssignmentService().Assign(ctx, suggestion.ID, slot.ID)
	if err != nil {
		t.Fatalf("assign failed: %v", err)
	}

	r := newReconciler(f)
	path, err := r.Snapshot(ctx, t.TempDir())
	if err != nil {
		t.Fatalf("snapshot failed: %v", err)
	}

	if err := f.Harness.Store.Reset(ctx); err != nil {
		t.Fatalf("reset failed: %v", err)
	}
	if plans, err := f.Harness.Store.Plans.ListPlans(ctx); err != nil || len(plans) != 0 {
		t.Fatalf("expected an empty store before restore, got %v (%v)", plans, err)
	}

	report, err := r.Restore(ctx, path)
	if err != nil {
		t.Fatalf("restore failed: %v", err)
	}
	for table, want := range map[string]int{
		"semester_plans":      1,
		"seminar_slots":       1,
		"speaker_suggestions": 1,
		"seminars":            1,
		"speakers":            1,
	} {
		if report.Rows[table] != want {
			t.Fatalf("table %s: expected %d rows, got %d", table, want, report.Rows[table])
		}
	}

	plans, err := f.Harness.Store.Plans.ListPlans(ctx)
	if err != nil || len(plans) != 1 {
		t.Fatalf("expected 1 restored plan, got %v (%v)", plans, err)
	}
	if plans[0].Name != plan.Name {
		t.Fatalf("expected plan %q, got %q", plan.Name, plans[0].Name)
	}

	slots, err := f.Harness.Store.Slots.ListSlotsForPlan(ctx, plans[0].ID)
	if err != nil || len(slots) != 1 {
		t.Fatalf("expected 1 restored slot, got %v (%v)", slots, err)
	}
	restored := slots[0]
	if restored.Status != persistence.SlotConfirmed {
		t.Fatalf("expected confirmed slot, got %s", restored.Status)
	}
	if restored.AssignedSeminarID == nil || restored.AssignedSuggestionID == nil {
		t.Fatalf("expected rewritten back-references, got %+v", restored)
	}

	restoredSeminar, err := f.Harness.Store.Seminars.GetSeminar(ctx, *restored.AssignedSeminarID)
	if err != nil {
		t.Fatalf("expected the back-reference to resolve: %v", err)
	}
	if restoredSeminar.Title != seminar.Title || restoredSeminar.Date != seminar.Date {
		t.Fatalf("unexpected restored seminar: %+v", restoredSeminar)
	}

	entries, err := f.Harness.Store.Suggestions.ListAvailability(ctx, *restored.AssignedSuggestionID)
	if err != nil {
		t.Fatalf("list availability failed: %v", err)
	}
	if len(entries) != 1 || entries[0].Date != "2025-05-01" {
		t.Fatalf("expected restored availability, got %v", entries)
	}
}

func TestMigrateSchemaBackfillsMissingColumn(t *testing.T) {
	f := testfixtures.NewServiceFactory(t)
	plan := f.Harness.SeedPlan(t)
	f.Harness.SeedSuggestion(t,
		testfixtures.WithSuggestionPlan(plan.ID),
		testfixtures.WithSuggestionPriority(7))
	ctx := context.Background()

	r := newReconciler(f)
	path, err := r.Snapshot(ctx, t.TempDir())
	if err != nil {
		t.Fatalf("snapshot failed: %v", err)
	}

	// Age the backup: drop a column the live schema has.
	old, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open backup failed: %v", err)
	}
	if _, err := old.ExecContext(ctx, `ALTER TABLE speaker_suggestions DROP COLUMN priority`); err != nil {
		old.Close()
		t.Fatalf("failed to age backup: %v", err)
	}
	old.Close()

	warnings, err := r.MigrateSchema(ctx, path)
	if err != nil {
		t.Fatalf("migrate failed: %v", err)
	}
	found := false
	for _, w := range warnings {
		if w.Table == "speaker_suggestions" && w.Column == "priority" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a drift warning for the backfilled column, got %v", warnings)
	}

	if _, err := r.Restore(ctx, path); err != nil {
		t.Fatalf("restore failed: %v", err)
	}

	suggestions, err := f.Harness.Store.Suggestions.ListSuggestions(ctx, persistence.SuggestionFilter{})
	if err != nil || len(suggestions) != 1 {
		t.Fatalf("expected 1 restored suggestion, got %v (%v)", suggestions, err)
	}
	if suggestions[0].Priority != 0 {
		t.Fatalf("expected the backfilled column to default to 0, got %d", suggestions[0].Priority)
	}
}

func TestRestoreSkipsMissingTableWithWarning(t *testing.T) {
	f := testfixtures.NewServiceFactory(t)
	f.Harness.SeedPlan(t)
	ctx := context.Background()

	r := newReconciler(f)
	path, err := r.Snapshot(ctx, t.TempDir())
	if err != nil {
		t.Fatalf("snapshot failed: %v", err)
	}

	old, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open backup failed: %v", err)
	}
	if _, err := old.ExecContext(ctx, `DROP TABLE activity_events`); err != nil {
		old.Close()
		t.Fatalf("failed to drop table: %v", err)
	}
	old.Close()

	report, err := r.Restore(ctx, path)
	if err != nil {
		t.Fatalf("restore failed: %v", err)
	}

	found := false
	for _, w := range report.Warnings {
		if w.Table == "activity_events" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a warning for the missing table, got %v", report.Warnings)
	}
}
