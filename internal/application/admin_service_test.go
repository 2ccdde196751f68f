package application_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/example/seminar-scheduler/internal/application"
	"github.com/example/seminar-scheduler/internal/persistence"
	"github.com/example/seminar-scheduler/internal/persistence/sqlite/backup"
	"github.com/example/seminar-scheduler/internal/testfixtures"
)

const adminTestPassword = "correct horse battery staple"

func newAdminService(t *testing.T, f *testfixtures.ServiceFactory) (*application.AdminService, string) {
	t.Helper()

	hash, err := application.CreatePasswordHash(adminTestPassword, application.DefaultArgon2idParams)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	backupDir := t.TempDir()
	reconciler := backup.NewReconciler(f.Harness.Store.Pool(), f.Logger)
	svc := application.NewAdminService(f.Harness.Store, reconciler, f.Activity, f.Logger,
		backupDir, hash, f.Tokens.NextFunc(), f.Clock.NowFunc())

	return svc, backupDir
}

func TestAdminAuthenticate(t *testing.T) {
	f := testfixtures.NewServiceFactory(t)
	svc, _ := newAdminService(t, f)

	if err := svc.Authenticate(adminTestPassword); err != nil {
		t.Fatalf("expected the configured password to authenticate: %v", err)
	}
	if err := svc.Authenticate("wrong"); !errors.Is(err, application.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestAdminAuthenticateDisabledWithoutHash(t *testing.T) {
	f := testfixtures.NewServiceFactory(t)
	reconciler := backup.NewReconciler(f.Harness.Store.Pool(), f.Logger)
	svc := application.NewAdminService(f.Harness.Store, reconciler, f.Activity, f.Logger,
		t.TempDir(), "", nil, f.Clock.NowFunc())

	if err := svc.Authenticate(""); !errors.Is(err, application.ErrUnauthorized) {
		t.Fatalf("expected an empty hash to reject everything, got %v", err)
	}
}

func TestAdminCreateAndListBackups(t *testing.T) {
	f := testfixtures.NewServiceFactory(t)
	svc, _ := newAdminService(t, f)
	f.Harness.SeedPlan(t)
	ctx := context.Background()

	path, err := svc.CreateBackup(ctx)
	if err != nil {
		t.Fatalf("backup failed: %v", err)
	}
	if filepath.Ext(path) != ".db" {
		t.Fatalf("expected a .db snapshot, got %s", path)
	}

	if _, err := svc.CreateBackup(ctx); err != nil {
		t.Fatalf("second backup failed: %v", err)
	}

	backups, err := svc.ListBackups(ctx)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(backups) != 2 {
		t.Fatalf("expected 2 backups, got %d", len(backups))
	}
	for _, b := range backups {
		if b.Size == 0 {
			t.Fatalf("expected non-empty backup %s", b.Name)
		}
	}
}

func TestAdminResetProtocol(t *testing.T) {
	f := testfixtures.NewServiceFactory(t)
	svc, _ := newAdminService(t, f)
	plan := f.Harness.SeedPlan(t)
	f.Harness.SeedSuggestion(t, testfixtures.WithSuggestionPlan(plan.ID))
	ctx := context.Background()

	confirmation, err := svc.RequestReset(ctx)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if confirmation.Token == "" {
		t.Fatal("expected a confirmation token")
	}

	if err := svc.ConfirmReset(ctx, confirmation.Token); err != nil {
		t.Fatalf("confirm failed: %v", err)
	}

	if _, err := f.Harness.Store.Plans.GetPlan(ctx, plan.ID); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected wiped store, got %v", err)
	}

	// The token was consumed; replaying it fails.
	if err := svc.ConfirmReset(ctx, confirmation.Token); !errors.Is(err, application.ErrConfirmationExpired) {
		t.Fatalf("expected ErrConfirmationExpired on replay, got %v", err)
	}
}

func TestAdminResetConfirmationExpires(t *testing.T) {
	f := testfixtures.NewServiceFactory(t)
	svc, _ := newAdminService(t, f)
	plan := f.Harness.SeedPlan(t)
	ctx := context.Background()

	confirmation, err := svc.RequestReset(ctx)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	f.Clock.Advance(application.DefaultConfirmationTTL + time.Second)

	if err := svc.ConfirmReset(ctx, confirmation.Token); !errors.Is(err, application.ErrConfirmationExpired) {
		t.Fatalf("expected ErrConfirmationExpired, got %v", err)
	}
	if _, err := f.Harness.Store.Plans.GetPlan(ctx, plan.ID); err != nil {
		t.Fatalf("expected data to survive an expired confirmation: %v", err)
	}
}

func TestAdminConfirmationIsActionScoped(t *testing.T) {
	f := testfixtures.NewServiceFactory(t)
	svc, _ := newAdminService(t, f)
	f.Harness.SeedPlan(t)
	ctx := context.Background()

	path, err := svc.CreateBackup(ctx)
	if err != nil {
		t.Fatalf("backup failed: %v", err)
	}

	restore, err := svc.RequestRestore(ctx, filepath.Base(path))
	if err != nil {
		t.Fatalf("request restore failed: %v", err)
	}

	// A restore token must not confirm a reset.
	if err := svc.ConfirmReset(ctx, restore.Token); !errors.Is(err, application.ErrConfirmationExpired) {
		t.Fatalf("expected ErrConfirmationExpired, got %v", err)
	}
}

func TestAdminRestoreRoundTrip(t *testing.T) {
	f := testfixtures.NewServiceFactory(t)
	svc, _ := newAdminService(t, f)
	plan := f.Harness.SeedPlan(t, testfixtures.WithPlanName("Winter term"))
	f.Harness.SeedSlot(t, plan.ID, "2025-05-01")
	ctx := context.Background()

	path, err := svc.CreateBackup(ctx)
	if err != nil {
		t.Fatalf("backup failed: %v", err)
	}

	// Mutate the live data after the snapshot.
	if err := f.DeletionService().DeletePlan(ctx, plan.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	late := f.Harness.SeedPlan(t, testfixtures.WithPlanName("Post-backup plan"))

	confirmation, err := svc.RequestRestore(ctx, filepath.Base(path))
	if err != nil {
		t.Fatalf("request restore failed: %v", err)
	}
	report, err := svc.ConfirmRestore(ctx, confirmation.Token)
	if err != nil {
		t.Fatalf("confirm restore failed: %v", err)
	}
	if report.Rows["semester_plans"] != 1 {
		t.Fatalf("expected 1 restored plan row, got %d", report.Rows["semester_plans"])
	}

	plans, err := f.Harness.Store.Plans.ListPlans(ctx)
	if err != nil {
		t.Fatalf("list plans failed: %v", err)
	}
	if len(plans) != 1 || plans[0].Name != "Winter term" {
		t.Fatalf("expected the backed-up plan only, got %v", plans)
	}
	if plans[0].ID == late.ID && plans[0].Name == late.Name {
		t.Fatal("expected post-backup data to be replaced")
	}

	slots, err := f.Harness.Store.Slots.ListSlotsForPlan(ctx, plans[0].ID)
	if err != nil {
		t.Fatalf("list slots failed: %v", err)
	}
	if len(slots) != 1 || slots[0].Date != "2025-05-01" {
		t.Fatalf("expected the backed-up slot, got %v", slots)
	}
}

func TestAdminRequestRestoreRejectsTraversal(t *testing.T) {
	f := testfixtures.NewServiceFactory(t)
	svc, _ := newAdminService(t, f)
	ctx := context.Background()

	for _, name := range []string{"", "../outside.db", ".hidden.db"} {
		_, err := svc.RequestRestore(ctx, name)
		var vErr *application.ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("name %q: expected ValidationError, got %v", name, err)
		}
	}

	if _, err := svc.RequestRestore(ctx, "missing.db"); !errors.Is(err, application.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for a missing backup, got %v", err)
	}
}

func TestAdminInspectBackup(t *testing.T) {
	f := testfixtures.NewServiceFactory(t)
	svc, _ := newAdminService(t, f)
	f.Harness.SeedPlan(t)
	ctx := context.Background()

	path, err := svc.CreateBackup(ctx)
	if err != nil {
		t.Fatalf("backup failed: %v", err)
	}

	tables, err := svc.InspectBackup(ctx, filepath.Base(path))
	if err != nil {
		t.Fatalf("inspect failed: %v", err)
	}

	columns, ok := tables["semester_plans"]
	if !ok {
		t.Fatalf("expected semester_plans in the report, got %v", tables)
	}
	found := map[string]bool{}
	for _, column := range columns {
		found[column] = true
	}
	if !found["id"] || !found["name"] {
		t.Fatalf("expected id and name columns, got %v", columns)
	}
	if _, ok := tables["speaker_suggestions"]; !ok {
		t.Fatalf("expected speaker_suggestions in the report, got %v", tables)
	}
}

func TestAdminInspectBackupRejectsBadNames(t *testing.T) {
	f := testfixtures.NewServiceFactory(t)
	svc, _ := newAdminService(t, f)
	ctx := context.Background()

	for _, name := range []string{"", "../outside.db", ".hidden.db"} {
		var vErr *application.ValidationError
		if _, err := svc.InspectBackup(ctx, name); !errors.As(err, &vErr) {
			t.Fatalf("name %q: expected a validation error, got %v", name, err)
		}
	}

	if _, err := svc.InspectBackup(ctx, "missing.db"); !errors.Is(err, application.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for an absent file, got %v", err)
	}
}
