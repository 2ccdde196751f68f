package application_test

import (
	"context"
	"errors"
	"testing"

	"github.com/example/seminar-scheduler/internal/application"
	"github.com/example/seminar-scheduler/internal/persistence"
	"github.com/example/seminar-scheduler/internal/testfixtures"
)

// assignmentScene seeds a plan with one available slot and a suggestion whose
// speaker has declared availability for the slot date.
type assignmentScene struct {
	factory    *testfixtures.ServiceFactory
	plan       persistence.SemesterPlan
	slot       persistence.SeminarSlot
	suggestion persistence.SpeakerSuggestion
}

func newAssignmentScene(t *testing.T) assignmentScene {
	t.Helper()

	f := testfixtures.NewServiceFactory(t)
	plan := f.Harness.SeedPlan(t)
	slot := f.Harness.SeedSlot(t, plan.ID, "2025-05-01")
	suggestion := f.Harness.SeedSuggestion(t, testfixtures.WithSuggestionPlan(plan.ID))

	err := f.SuggestionService().SubmitAvailability(context.Background(), suggestion.ID, []application.AvailabilitySubmission{
		{Date: "2025-05-01", Preference: persistence.PreferencePreferred},
	})
	if err != nil {
		t.Fatalf("failed to declare availability: %v", err)
	}

	return assignmentScene{factory: f, plan: plan, slot: slot, suggestion: suggestion}
}

func TestAssignCreatesSeminarAndConfirmsSlot(t *testing.T) {
	scene := newAssignmentScene(t)
	svc := scene.factory.AssignmentService()
	ctx := context.Background()

	seminar, err := svc.Assign(ctx, scene.suggestion.ID, scene.slot.ID)
	if err != nil {
		t.Fatalf("assign failed: %v", err)
	}
	if seminar.Date != scene.slot.Date || seminar.StartTime != scene.slot.StartTime {
		t.Fatalf("expected seminar to copy slot timing, got %s %s", seminar.Date, seminar.StartTime)
	}
	if seminar.Title != scene.suggestion.Topic {
		t.Fatalf("expected title %q, got %q", scene.suggestion.Topic, seminar.Title)
	}
	if seminar.SuggestionID == nil || *seminar.SuggestionID != scene.suggestion.ID {
		t.Fatalf("expected suggestion back-reference, got %v", seminar.SuggestionID)
	}

	slot, err := scene.factory.Harness.Store.Slots.GetSlot(ctx, scene.slot.ID)
	if err != nil {
		t.Fatalf("get slot failed: %v", err)
	}
	if slot.Status != persistence.SlotConfirmed {
		t.Fatalf("expected confirmed slot, got %s", slot.Status)
	}
	if slot.AssignedSeminarID == nil || *slot.AssignedSeminarID != seminar.ID {
		t.Fatalf("expected slot to point at seminar %d, got %v", seminar.ID, slot.AssignedSeminarID)
	}
	if slot.AssignedSuggestionID == nil || *slot.AssignedSuggestionID != scene.suggestion.ID {
		t.Fatalf("expected slot to remember suggestion %d, got %v", scene.suggestion.ID, slot.AssignedSuggestionID)
	}
}

func TestAssignLinksCanonicalSpeakerByName(t *testing.T) {
	scene := newAssignmentScene(t)
	svc := scene.factory.AssignmentService()
	ctx := context.Background()

	seminar, err := svc.Assign(ctx, scene.suggestion.ID, scene.slot.ID)
	if err != nil {
		t.Fatalf("assign failed: %v", err)
	}
	if seminar.SpeakerID == nil {
		t.Fatal("expected a linked speaker")
	}

	speaker, err := scene.factory.Harness.Store.Speakers.GetSpeakerByName(ctx, scene.suggestion.SpeakerName)
	if err != nil {
		t.Fatalf("expected speaker row %q to exist: %v", scene.suggestion.SpeakerName, err)
	}
	if speaker.ID != *seminar.SpeakerID {
		t.Fatalf("expected seminar speaker %d, got %d", speaker.ID, *seminar.SpeakerID)
	}
	if speaker.Email != scene.suggestion.SpeakerEmail {
		t.Fatalf("expected email carried over, got %q", speaker.Email)
	}

	stored, err := scene.factory.Harness.Store.Suggestions.GetSuggestion(ctx, scene.suggestion.ID)
	if err != nil {
		t.Fatalf("get suggestion failed: %v", err)
	}
	if stored.SpeakerID == nil || *stored.SpeakerID != speaker.ID {
		t.Fatalf("expected suggestion linked to speaker %d, got %v", speaker.ID, stored.SpeakerID)
	}
}

func TestAssignReusesExistingSpeakerRow(t *testing.T) {
	f := testfixtures.NewServiceFactory(t)
	plan := f.Harness.SeedPlan(t)
	slot := f.Harness.SeedSlot(t, plan.ID, "2025-05-08")
	speaker := f.Harness.SeedSpeaker(t)
	suggestion := f.Harness.SeedSuggestion(t,
		testfixtures.WithSuggestionPlan(plan.ID),
		testfixtures.WithSuggestionSpeakerName(speaker.Name))
	ctx := context.Background()

	if err := f.SuggestionService().SubmitAvailability(ctx, suggestion.ID, []application.AvailabilitySubmission{
		{Date: "2025-05-08"},
	}); err != nil {
		t.Fatalf("failed to declare availability: %v", err)
	}

	seminar, err := f.AssignmentService().Assign(ctx, suggestion.ID, slot.ID)
	if err != nil {
		t.Fatalf("assign failed: %v", err)
	}
	if seminar.SpeakerID == nil || *seminar.SpeakerID != speaker.ID {
		t.Fatalf("expected existing speaker %d to be reused, got %v", speaker.ID, seminar.SpeakerID)
	}
}

func TestAssignRejectsDoubleAssignment(t *testing.T) {
	scene := newAssignmentScene(t)
	svc := scene.factory.AssignmentService()
	ctx := context.Background()

	if _, err := svc.Assign(ctx, scene.suggestion.ID, scene.slot.ID); err != nil {
		t.Fatalf("first assign failed: %v", err)
	}

	// Same suggestion, different slot in the same plan.
	second := scene.factory.Harness.SeedSlot(t, scene.plan.ID, "2025-05-08")
	if err := scene.factory.SuggestionService().SubmitAvailability(ctx, scene.suggestion.ID, []application.AvailabilitySubmission{
		{Date: "2025-05-01"}, {Date: "2025-05-08"},
	}); err != nil {
		t.Fatalf("failed to extend availability: %v", err)
	}

	_, err := svc.Assign(ctx, scene.suggestion.ID, second.ID)
	if !errors.Is(err, application.ErrSuggestionAlreadyAssigned) {
		t.Fatalf("expected ErrSuggestionAlreadyAssigned, got %v", err)
	}
}

func TestAssignRejectsOccupiedSlot(t *testing.T) {
	scene := newAssignmentScene(t)
	svc := scene.factory.AssignmentService()
	ctx := context.Background()

	if _, err := svc.Assign(ctx, scene.suggestion.ID, scene.slot.ID); err != nil {
		t.Fatalf("first assign failed: %v", err)
	}

	// A different suggestion targets the now-confirmed slot.
	other := scene.factory.Harness.SeedSuggestion(t, testfixtures.WithSuggestionPlan(scene.plan.ID))
	if err := scene.factory.SuggestionService().SubmitAvailability(ctx, other.ID, []application.AvailabilitySubmission{
		{Date: "2025-05-01"},
	}); err != nil {
		t.Fatalf("failed to declare availability: %v", err)
	}

	_, err := svc.Assign(ctx, other.ID, scene.slot.ID)
	if !errors.Is(err, application.ErrSlotNotAvailable) {
		t.Fatalf("expected ErrSlotNotAvailable, got %v", err)
	}
}

func TestAssignRejectsSlotFromOtherPlan(t *testing.T) {
	scene := newAssignmentScene(t)
	otherPlan := scene.factory.Harness.SeedPlan(t)
	foreign := scene.factory.Harness.SeedSlot(t, otherPlan.ID, "2025-05-01")

	_, err := scene.factory.AssignmentService().Assign(context.Background(), scene.suggestion.ID, foreign.ID)
	var vErr *application.ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if vErr.FieldErrors["slot_id"] == "" {
		t.Fatalf("expected a slot_id field error, got %v", vErr.FieldErrors)
	}
}

func TestAssignRequiresDeclaredAvailability(t *testing.T) {
	f := testfixtures.NewServiceFactory(t)
	plan := f.Harness.SeedPlan(t)
	slot := f.Harness.SeedSlot(t, plan.ID, "2025-05-01")
	suggestion := f.Harness.SeedSuggestion(t, testfixtures.WithSuggestionPlan(plan.ID))

	_, err := f.AssignmentService().Assign(context.Background(), suggestion.ID, slot.ID)
	var vErr *application.ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if vErr.FieldErrors["slot_id"] == "" {
		t.Fatalf("expected a slot_id field error, got %v", vErr.FieldErrors)
	}
}

func TestAssignUnknownSlot(t *testing.T) {
	scene := newAssignmentScene(t)

	_, err := scene.factory.AssignmentService().Assign(context.Background(), scene.suggestion.ID, 9999)
	if !errors.Is(err, application.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestReleaseSlotOrphansSeminar(t *testing.T) {
	scene := newAssignmentScene(t)
	svc := scene.factory.AssignmentService()
	ctx := context.Background()

	seminar, err := svc.Assign(ctx, scene.suggestion.ID, scene.slot.ID)
	if err != nil {
		t.Fatalf("assign failed: %v", err)
	}

	if err := svc.ReleaseSlot(ctx, scene.slot.ID); err != nil {
		t.Fatalf("release failed: %v", err)
	}

	slot, err := scene.factory.Harness.Store.Slots.GetSlot(ctx, scene.slot.ID)
	if err != nil {
		t.Fatalf("get slot failed: %v", err)
	}
	if slot.Status != persistence.SlotAvailable {
		t.Fatalf("expected released slot to be available, got %s", slot.Status)
	}
	if slot.AssignedSeminarID != nil || slot.AssignedSuggestionID != nil {
		t.Fatalf("expected cleared back-references, got %v / %v", slot.AssignedSeminarID, slot.AssignedSuggestionID)
	}

	orphans, err := svc.ListOrphanSeminars(ctx)
	if err != nil {
		t.Fatalf("list orphans failed: %v", err)
	}
	if len(orphans) != 1 || orphans[0].ID != seminar.ID {
		t.Fatalf("expected seminar %d orphaned, got %v", seminar.ID, orphans)
	}
}

func TestReleaseSlotUnknown(t *testing.T) {
	f := testfixtures.NewServiceFactory(t)

	err := f.AssignmentService().ReleaseSlot(context.Background(), 777)
	if !errors.Is(err, application.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestEligibleSlotsListsOnlyOpenDeclaredSlots(t *testing.T) {
	scene := newAssignmentScene(t)
	f := scene.factory
	svc := f.AssignmentService()
	ctx := context.Background()

	second := f.Harness.SeedSlot(t, scene.plan.ID, "2025-05-08")
	f.Harness.SeedSlot(t, scene.plan.ID, "2025-05-15")

	if err := f.SuggestionService().SubmitAvailability(ctx, scene.suggestion.ID, []application.AvailabilitySubmission{
		{Date: "2025-05-01", Preference: persistence.PreferencePreferred},
		{Date: "2025-05-08", Preference: persistence.PreferencePossible},
	}); err != nil {
		t.Fatalf("failed to declare availability: %v", err)
	}

	eligible, err := svc.EligibleSlots(ctx, scene.suggestion.ID)
	if err != nil {
		t.Fatalf("eligible slots failed: %v", err)
	}
	if len(eligible) != 2 || eligible[0].ID != scene.slot.ID || eligible[1].ID != second.ID {
		t.Fatalf("expected both declared slots, got %v", eligible)
	}

	if _, err := svc.Assign(ctx, scene.suggestion.ID, scene.slot.ID); err != nil {
		t.Fatalf("assign failed: %v", err)
	}

	eligible, err = svc.EligibleSlots(ctx, scene.suggestion.ID)
	if err != nil {
		t.Fatalf("eligible slots failed: %v", err)
	}
	if len(eligible) != 1 || eligible[0].ID != second.ID {
		t.Fatalf("expected the confirmed slot to drop out, got %v", eligible)
	}
}

func TestEligibleSlotsWithoutPlan(t *testing.T) {
	f := testfixtures.NewServiceFactory(t)
	suggestion := f.Harness.SeedSuggestion(t)

	eligible, err := f.AssignmentService().EligibleSlots(context.Background(), suggestion.ID)
	if err != nil {
		t.Fatalf("eligible slots failed: %v", err)
	}
	if len(eligible) != 0 {
		t.Fatalf("expected no candidates for an unplanned suggestion, got %v", eligible)
	}
}

func TestEligibleSlotsUnknownSuggestion(t *testing.T) {
	f := testfixtures.NewServiceFactory(t)

	_, err := f.AssignmentService().EligibleSlots(context.Background(), 404)
	if !errors.Is(err, application.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
