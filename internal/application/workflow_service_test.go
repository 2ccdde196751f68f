package application_test

import (
	"context"
	"errors"
	"testing"

	"github.com/example/seminar-scheduler/internal/application"
	"github.com/example/seminar-scheduler/internal/persistence"
	"github.com/example/seminar-scheduler/internal/testfixtures"
)

func boolPtr(v bool) *bool { return &v }

func TestStageDerivation(t *testing.T) {
	cases := []struct {
		name  string
		flags persistence.WorkflowFlags
		want  int
	}{
		{"nothing done", persistence.WorkflowFlags{}, 1},
		{"request sent only", persistence.WorkflowFlags{RequestSent: true}, 1},
		{"availability received", persistence.WorkflowFlags{RequestSent: true, AvailabilityReceived: true}, 1},
		{"date notified", persistence.WorkflowFlags{DateNotified: true}, 2},
		{"info submitted", persistence.WorkflowFlags{DateNotified: true, InfoSubmitted: true}, 3},
		{"approved", persistence.WorkflowFlags{Approved: true}, 4},
		{"approved wins over earlier flags", persistence.WorkflowFlags{DateNotified: true, InfoSubmitted: true, Approved: true}, 4},
		{"info submitted without notification", persistence.WorkflowFlags{InfoSubmitted: true}, 3},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := application.Stage(tc.flags); got != tc.want {
				t.Fatalf("expected stage %d, got %d", tc.want, got)
			}
		})
	}
}

func TestPatchWorkflowFlipsFlags(t *testing.T) {
	f := testfixtures.NewServiceFactory(t)
	suggestion := f.Harness.SeedSuggestion(t)
	svc := f.WorkflowService()
	ctx := context.Background()

	flags, err := svc.PatchWorkflow(ctx, suggestion.ID, application.WorkflowPatch{
		RequestSent:  boolPtr(true),
		DateNotified: boolPtr(true),
	})
	if err != nil {
		t.Fatalf("patch failed: %v", err)
	}
	if !flags.RequestSent || !flags.DateNotified {
		t.Fatalf("expected patched flags set, got %+v", flags)
	}
	if flags.Approved || flags.InfoSubmitted {
		t.Fatalf("expected untouched flags to stay false, got %+v", flags)
	}
	if application.Stage(flags) != 2 {
		t.Fatalf("expected stage 2, got %d", application.Stage(flags))
	}

	stored, err := f.Harness.Store.Suggestions.GetSuggestion(ctx, suggestion.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if stored.Workflow != flags {
		t.Fatalf("stored flags %+v differ from returned %+v", stored.Workflow, flags)
	}
}

func TestPatchWorkflowClearsFlags(t *testing.T) {
	f := testfixtures.NewServiceFactory(t)
	suggestion := f.Harness.SeedSuggestion(t)
	svc := f.WorkflowService()
	ctx := context.Background()

	if _, err := svc.PatchWorkflow(ctx, suggestion.ID, application.WorkflowPatch{Approved: boolPtr(true)}); err != nil {
		t.Fatalf("approve failed: %v", err)
	}

	flags, err := svc.PatchWorkflow(ctx, suggestion.ID, application.WorkflowPatch{Approved: boolPtr(false)})
	if err != nil {
		t.Fatalf("revoke failed: %v", err)
	}
	if flags.Approved {
		t.Fatal("expected approval to be cleared")
	}
	if application.Stage(flags) != 1 {
		t.Fatalf("expected stage 1 after clearing, got %d", application.Stage(flags))
	}
}

func TestPatchWorkflowNoChanges(t *testing.T) {
	f := testfixtures.NewServiceFactory(t)
	suggestion := f.Harness.SeedSuggestion(t)
	svc := f.WorkflowService()

	// Nil fields and settings that match the current state are both no-ops.
	flags, err := svc.PatchWorkflow(context.Background(), suggestion.ID, application.WorkflowPatch{
		RequestSent: boolPtr(false),
	})
	if err != nil {
		t.Fatalf("patch failed: %v", err)
	}
	if flags != (persistence.WorkflowFlags{}) {
		t.Fatalf("expected pristine flags, got %+v", flags)
	}
}

func TestPatchWorkflowUnknownSuggestion(t *testing.T) {
	f := testfixtures.NewServiceFactory(t)
	svc := f.WorkflowService()

	_, err := svc.PatchWorkflow(context.Background(), 12345, application.WorkflowPatch{RequestSent: boolPtr(true)})
	if !errors.Is(err, application.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
