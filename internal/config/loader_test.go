package config

import (
	"strings"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"SEMINARD_HTTP_PORT",
		"SEMINARD_DB_PATH",
		"SEMINARD_BLOB_DIR",
		"SEMINARD_BACKUP_DIR",
		"SEMINARD_ADMIN_PASSWORD_HASH",
		"SEMINARD_SNAPSHOT_CRON",
		"SEMINARD_TOKEN_SWEEP_CRON",
		"SEMINARD_TOKEN_SWEEP_GRACE",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.HTTPPort != 8080 {
		t.Fatalf("expected default port 8080, got %d", cfg.HTTPPort)
	}
	if cfg.SQLitePath != "data/seminars.db" {
		t.Fatalf("unexpected default database path %q", cfg.SQLitePath)
	}
	if cfg.BlobDir != "data/blobs" || cfg.BackupDir != "data/backups" {
		t.Fatalf("unexpected default directories: %q, %q", cfg.BlobDir, cfg.BackupDir)
	}
	if cfg.AdminPasswordHash != "" {
		t.Fatal("expected the admin surface to be disabled by default")
	}
	if cfg.TokenSweepGrace != 30*24*time.Hour {
		t.Fatalf("unexpected default sweep grace %v", cfg.TokenSweepGrace)
	}
	if cfg.SnapshotSchedule == "" || cfg.TokenSweepSchedule == "" {
		t.Fatal("expected default cron schedules")
	}
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("SEMINARD_HTTP_PORT", "9090")
	t.Setenv("SEMINARD_DB_PATH", "/var/lib/seminard/app.db")
	t.Setenv("SEMINARD_ADMIN_PASSWORD_HASH", "$argon2id$v=19$m=65536,t=3,p=2$c2FsdA$aGFzaA")
	t.Setenv("SEMINARD_SNAPSHOT_CRON", "0 4 * * *")
	t.Setenv("SEMINARD_TOKEN_SWEEP_GRACE", "72h")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.HTTPPort != 9090 {
		t.Fatalf("expected port 9090, got %d", cfg.HTTPPort)
	}
	if cfg.SQLitePath != "/var/lib/seminard/app.db" {
		t.Fatalf("unexpected database path %q", cfg.SQLitePath)
	}
	if cfg.AdminPasswordHash == "" {
		t.Fatal("expected the admin hash to be accepted")
	}
	if cfg.SnapshotSchedule != "0 4 * * *" {
		t.Fatalf("unexpected schedule %q", cfg.SnapshotSchedule)
	}
	if cfg.TokenSweepGrace != 72*time.Hour {
		t.Fatalf("expected 72h grace, got %v", cfg.TokenSweepGrace)
	}
}

func TestLoadInvalidValues(t *testing.T) {
	cases := []struct {
		name  string
		key   string
		value string
	}{
		{"non-numeric port", "SEMINARD_HTTP_PORT", "eighty"},
		{"negative port", "SEMINARD_HTTP_PORT", "-1"},
		{"non-argon2id hash", "SEMINARD_ADMIN_PASSWORD_HASH", "plaintext-password"},
		{"unparsable grace", "SEMINARD_TOKEN_SWEEP_GRACE", "three days"},
		{"negative grace", "SEMINARD_TOKEN_SWEEP_GRACE", "-24h"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tc.key, tc.value)

			_, err := Load()
			if err == nil {
				t.Fatal("expected an error")
			}
			if !strings.Contains(err.Error(), tc.key) {
				t.Fatalf("expected the offending variable in the message, got %v", err)
			}
		})
	}
}
