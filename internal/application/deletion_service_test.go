package application_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/example/seminar-scheduler/internal/application"
	"github.com/example/seminar-scheduler/internal/persistence"
	"github.com/example/seminar-scheduler/internal/testfixtures"
)

func TestDeletePlanCascadesToSlotsAndDetachesSuggestions(t *testing.T) {
	f := testfixtures.NewServiceFactory(t)
	plan := f.Harness.SeedPlan(t)
	slot := f.Harness.SeedSlot(t, plan.ID, "2025-05-01")
	suggestion := f.Harness.SeedSuggestion(t, testfixtures.WithSuggestionPlan(plan.ID))
	ctx := context.Background()

	if err := f.DeletionService().DeletePlan(ctx, plan.ID); err != nil {
		t.Fatalf("delete plan failed: %v", err)
	}

	if _, err := f.Harness.Store.Plans.GetPlan(ctx, plan.ID); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected plan gone, got %v", err)
	}
	if _, err := f.Harness.Store.Slots.GetSlot(ctx, slot.ID); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected slot gone, got %v", err)
	}

	kept, err := f.Harness.Store.Suggestions.GetSuggestion(ctx, suggestion.ID)
	if err != nil {
		t.Fatalf("expected suggestion to survive: %v", err)
	}
	if kept.SemesterPlanID != nil {
		t.Fatalf("expected detached suggestion, got plan %d", *kept.SemesterPlanID)
	}
}

func TestDeleteRoomBlockedWhileReferenced(t *testing.T) {
	f := testfixtures.NewServiceFactory(t)
	plan := f.Harness.SeedPlan(t)
	room := f.Harness.SeedRoom(t)
	ctx := context.Background()

	if _, err := f.Harness.Store.Slots.CreateSlot(ctx, persistence.SeminarSlot{
		SemesterPlanID: plan.ID,
		Date:           "2025-05-01",
		StartTime:      "15:00",
		EndTime:        "16:30",
		RoomID:         &room.ID,
		Status:         persistence.SlotAvailable,
	}); err != nil {
		t.Fatalf("failed to seed slot: %v", err)
	}

	err := f.DeletionService().DeleteRoom(ctx, room.ID, nil)
	if !errors.Is(err, application.ErrRoomInUse) {
		t.Fatalf("expected ErrRoomInUse, got %v", err)
	}

	if _, err := f.Harness.Store.Rooms.GetRoom(ctx, room.ID); err != nil {
		t.Fatalf("expected room to survive a blocked delete: %v", err)
	}
}

func TestDeleteRoomWithReassignment(t *testing.T) {
	f := testfixtures.NewServiceFactory(t)
	plan := f.Harness.SeedPlan(t)
	oldRoom := f.Harness.SeedRoom(t)
	newRoom := f.Harness.SeedRoom(t)
	ctx := context.Background()

	slot, err := f.Harness.Store.Slots.CreateSlot(ctx, persistence.SeminarSlot{
		SemesterPlanID: plan.ID,
		Date:           "2025-05-01",
		StartTime:      "15:00",
		EndTime:        "16:30",
		RoomID:         &oldRoom.ID,
		Status:         persistence.SlotAvailable,
	})
	if err != nil {
		t.Fatalf("failed to seed slot: %v", err)
	}

	if err := f.DeletionService().DeleteRoom(ctx, oldRoom.ID, &newRoom.ID); err != nil {
		t.Fatalf("delete with reassignment failed: %v", err)
	}

	if _, err := f.Harness.Store.Rooms.GetRoom(ctx, oldRoom.ID); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected room gone, got %v", err)
	}

	moved, err := f.Harness.Store.Slots.GetSlot(ctx, slot.ID)
	if err != nil {
		t.Fatalf("get slot failed: %v", err)
	}
	if moved.RoomID == nil || *moved.RoomID != newRoom.ID {
		t.Fatalf("expected slot moved to room %d, got %v", newRoom.ID, moved.RoomID)
	}
}

func TestDeleteSpeakerUnlinksButKeepsRecords(t *testing.T) {
	f := testfixtures.NewServiceFactory(t)
	speaker := f.Harness.SeedSpeaker(t)
	suggestion := f.Harness.SeedSuggestion(t, testfixtures.WithSuggestionSpeaker(speaker.ID))
	ctx := context.Background()

	if err := f.DeletionService().DeleteSpeaker(ctx, speaker.ID); err != nil {
		t.Fatalf("delete speaker failed: %v", err)
	}

	kept, err := f.Harness.Store.Suggestions.GetSuggestion(ctx, suggestion.ID)
	if err != nil {
		t.Fatalf("expected suggestion to survive: %v", err)
	}
	if kept.SpeakerID != nil {
		t.Fatalf("expected speaker link cleared, got %v", kept.SpeakerID)
	}
	if kept.SpeakerName != suggestion.SpeakerName {
		t.Fatalf("expected name snapshot to survive, got %q", kept.SpeakerName)
	}
}

func TestDeleteSuggestionClearsTokensAndSlotBackRef(t *testing.T) {
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
	issued, err := f.TokenService().Issue(ctx, suggestion.ID, persistence.TokenStatus)
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	seminar, err := f.AssignmentService().Assign(ctx, suggestion.ID, slot.ID)
	if err != nil {
		t.Fatalf("assign failed: %v", err)
	}

	if err := f.DeletionService().DeleteSuggestion(ctx, suggestion.ID); err != nil {
		t.Fatalf("delete suggestion failed: %v", err)
	}

	if _, err := f.Harness.Store.Tokens.GetToken(ctx, issued.Token); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected token gone, got %v", err)
	}

	cleared, err := f.Harness.Store.Slots.GetSlot(ctx, slot.ID)
	if err != nil {
		t.Fatalf("get slot failed: %v", err)
	}
	if cleared.AssignedSuggestionID != nil {
		t.Fatalf("expected suggestion back-reference cleared, got %v", cleared.AssignedSuggestionID)
	}
	if cleared.Status != persistence.SlotConfirmed {
		t.Fatalf("expected the slot to stay confirmed, got %s", cleared.Status)
	}

	survivor, err := f.Harness.Store.Seminars.GetSeminar(ctx, seminar.ID)
	if err != nil {
		t.Fatalf("expected seminar to survive: %v", err)
	}
	if survivor.SuggestionID != nil {
		t.Fatalf("expected seminar suggestion link cleared, got %v", survivor.SuggestionID)
	}
}

func TestDeleteSeminarFreesSlotAndRemovesBlobs(t *testing.T) {
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
	seminar, err := f.AssignmentService().Assign(ctx, suggestion.ID, slot.ID)
	if err != nil {
		t.Fatalf("assign failed: %v", err)
	}

	file, err := f.SeminarService().AddFile(ctx, seminar.ID, persistence.FileCV, "cv.pdf", strings.NewReader("curriculum vitae"), "speaker")
	if err != nil {
		t.Fatalf("add file failed: %v", err)
	}

	if err := f.DeletionService().DeleteSeminar(ctx, seminar.ID); err != nil {
		t.Fatalf("delete seminar failed: %v", err)
	}

	if _, err := f.Harness.Store.Seminars.GetSeminar(ctx, seminar.ID); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected seminar gone, got %v", err)
	}
	if _, err := f.Harness.Store.Seminars.GetFile(ctx, file.ID); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected file row gone, got %v", err)
	}
	if _, err := f.Blobs.Open(file.Path); err == nil {
		t.Fatal("expected blob content removed")
	}

	freed, err := f.Harness.Store.Slots.GetSlot(ctx, slot.ID)
	if err != nil {
		t.Fatalf("get slot failed: %v", err)
	}
	if freed.Status != persistence.SlotAvailable {
		t.Fatalf("expected freed slot, got %s", freed.Status)
	}
	if freed.AssignedSeminarID != nil || freed.AssignedSuggestionID != nil {
		t.Fatalf("expected cleared back-references, got %v / %v", freed.AssignedSeminarID, freed.AssignedSuggestionID)
	}
}

func TestDeleteSlotRefusesWhileOccupied(t *testing.T) {
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

	err := f.DeletionService().DeleteSlot(ctx, slot.ID)
	if !errors.Is(err, application.ErrSlotOccupied) {
		t.Fatalf("expected ErrSlotOccupied, got %v", err)
	}

	if err := f.AssignmentService().ReleaseSlot(ctx, slot.ID); err != nil {
		t.Fatalf("release failed: %v", err)
	}
	if err := f.DeletionService().DeleteSlot(ctx, slot.ID); err != nil {
		t.Fatalf("expected released slot to delete, got %v", err)
	}
}

func TestDeleteUnknownEntities(t *testing.T) {
	f := testfixtures.NewServiceFactory(t)
	svc := f.DeletionService()
	ctx := context.Background()

	if err := svc.DeletePlan(ctx, 404); !errors.Is(err, application.ErrNotFound) {
		t.Fatalf("plan: expected ErrNotFound, got %v", err)
	}
	if err := svc.DeleteRoom(ctx, 404, nil); !errors.Is(err, application.ErrNotFound) {
		t.Fatalf("room: expected ErrNotFound, got %v", err)
	}
	if err := svc.DeleteSuggestion(ctx, 404); !errors.Is(err, application.ErrNotFound) {
		t.Fatalf("suggestion: expected ErrNotFound, got %v", err)
	}
	if err := svc.DeleteSeminar(ctx, 404); !errors.Is(err, application.ErrNotFound) {
		t.Fatalf("seminar: expected ErrNotFound, got %v", err)
	}
	if err := svc.DeleteSlot(ctx, 404); !errors.Is(err, application.ErrNotFound) {
		t.Fatalf("slot: expected ErrNotFound, got %v", err)
	}
}
