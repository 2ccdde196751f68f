package sqlite_test

import (
	"context"
	"testing"

	"github.com/example/seminar-scheduler/internal/application"
	"github.com/example/seminar-scheduler/internal/persistence"
	"github.com/example/seminar-scheduler/internal/persistence/sqlite"
	"github.com/example/seminar-scheduler/internal/testfixtures"
)

func TestCheckIntegrityCleanAfterAssignment(t *testing.T) {
	f := testfixtures.NewServiceFactory(t)
	plan := f.Harness.SeedPlan(t)
	slot := f.Harness.SeedSlot(t, plan.ID, "2025-05-01")
	suggestion := f.Harness.SeedSuggestion(t, testfixtures.WithSuggestionPlan(plan.ID))
	ctx := context.Background()

	if err := f.SuggestionService().SubmitAvailability(ctx, suggestion.ID, []application.AvailabilitySubmission{
		{Date: "2025-05-01"},
	}); err != nil {
		t.Fatalf("failed to declare availability: %v", err)
	}
	if _, err := f.AssignmentService().Assign(ctx, suggestion.ID, slot.ID); err != nil {
		t.Fatalf("assign failed: %v", err)
	}

	issues, err := sqlite.CheckIntegrity(ctx, f.Harness.Store.Pool())
	if err != nil {
		t.Fatalf("integrity check failed: %v", err)
	}
	if len(issues) != 0 {
		t.Fatalf("expected a consistent database, got %v", issues)
	}
}

func TestCheckIntegrityReportsDanglingSeminarReference(t *testing.T) {
	f := testfixtures.NewServiceFactory(t)
	plan := f.Harness.SeedPlan(t)
	slot := f.Harness.SeedSlot(t, plan.ID, "2025-05-01")
	ctx := context.Background()

	// Point the slot at a seminar that does not exist.
	if _, err := f.Harness.Store.Pool().DB().ExecContext(ctx, `
		UPDATE seminar_slots SET status = 'confirmed', assigned_seminar_id = 9999 WHERE id = ?
	`, slot.ID); err != nil {
		t.Fatalf("failed to inject inconsistency: %v", err)
	}

	issues, err := sqlite.CheckIntegrity(ctx, f.Harness.Store.Pool())
	if err != nil {
		t.Fatalf("integrity check failed: %v", err)
	}
	if len(issues) == 0 {
		t.Fatal("expected the dangling reference to be reported")
	}

	found := false
	for _, issue := range issues {
		if issue.Table == "seminar_slots" && issue.RowID == slot.ID {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected an issue for slot %d, got %v", slot.ID, issues)
	}
}

func TestCheckIntegrityReportsOrphanToken(t *testing.T) {
	f := testfixtures.NewServiceFactory(t)
	suggestion := f.Harness.SeedSuggestion(t)
	ctx := context.Background()

	token, err := f.Harness.Store.Tokens.CreateToken(ctx, persistence.SpeakerToken{
		SuggestionID: suggestion.ID,
		Kind:         persistence.TokenStatus,
		Token:        "orphan-check",
		ExpiresAt:    testfixtures.ReferenceTime().AddDate(1, 0, 0),
	})
	if err != nil {
		t.Fatalf("failed to create token: %v", err)
	}

	// Remove the suggestion row underneath the token.
	if _, err := f.Harness.Store.Pool().DB().ExecContext(ctx, `
		DELETE FROM speaker_suggestions WHERE id = ?
	`, suggestion.ID); err != nil {
		t.Fatalf("failed to inject inconsistency: %v", err)
	}

	issues, err := sqlite.CheckIntegrity(ctx, f.Harness.Store.Pool())
	if err != nil {
		t.Fatalf("integrity check failed: %v", err)
	}

	found := false
	for _, issue := range issues {
		if issue.Table == "speaker_tokens" && issue.RowID == token.ID {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected an issue for token %d, got %v", token.ID, issues)
	}
}
