package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config captures environment driven configuration values for the seminar service.
type Config struct {
	HTTPPort           int
	SQLitePath         string
	BlobDir            string
	BackupDir          string
	AdminPasswordHash  string
	SnapshotSchedule   string
	TokenSweepSchedule string
	TokenSweepGrace    time.Duration
}

// Load parses configuration values from the current process environment.
// A .env file in the working directory is folded in first when present.
//
// The loader applies sensible defaults for optional fields while validating
// values and reporting localized error messages for invalid entries.
func Load() (Config, error) {
	// Missing .env is the normal production case.
	_ = godotenv.Load()

	cfg := Config{
		HTTPPort:           8080,
		SQLitePath:         "data/seminars.db",
		BlobDir:            "data/blobs",
		BackupDir:          "data/backups",
		SnapshotSchedule:   "47 2 * * *",
		TokenSweepSchedule: "17 3 * * *",
		TokenSweepGrace:    30 * 24 * time.Hour,
	}

	invalid := make([]string, 0, 2)

	if portValue := strings.TrimSpace(os.Getenv("SEMINARD_HTTP_PORT")); portValue != "" {
		port, err := strconv.Atoi(portValue)
		if err != nil || port <= 0 {
			invalid = append(invalid, "SEMINARD_HTTP_PORT")
		} else {
			cfg.HTTPPort = port
		}
	}

	if path := strings.TrimSpace(os.Getenv("SEMINARD_DB_PATH")); path != "" {
		cfg.SQLitePath = path
	}

	if dir := strings.TrimSpace(os.Getenv("SEMINARD_BLOB_DIR")); dir != "" {
		cfg.BlobDir = dir
	}

	if dir := strings.TrimSpace(os.Getenv("SEMINARD_BACKUP_DIR")); dir != "" {
		cfg.BackupDir = dir
	}

	if hash := strings.TrimSpace(os.Getenv("SEMINARD_ADMIN_PASSWORD_HASH")); hash != "" {
		if !strings.HasPrefix(hash, "$argon2id$") {
			invalid = append(invalid, "SEMINARD_ADMIN_PASSWORD_HASH")
		} else {
			cfg.AdminPasswordHash = hash
		}
	}

	if schedule := strings.TrimSpace(os.Getenv("SEMINARD_SNAPSHOT_CRON")); schedule != "" {
		cfg.SnapshotSchedule = schedule
	}

	if schedule := strings.TrimSpace(os.Getenv("SEMINARD_TOKEN_SWEEP_CRON")); schedule != "" {
		cfg.TokenSweepSchedule = schedule
	}

	if graceValue := strings.TrimSpace(os.Getenv("SEMINARD_TOKEN_SWEEP_GRACE")); graceValue != "" {
		grace, err := time.ParseDuration(graceValue)
		if err != nil || grace < 0 {
			invalid = append(invalid, "SEMINARD_TOKEN_SWEEP_GRACE")
		} else {
			cfg.TokenSweepGrace = grace
		}
	}

	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("環境変数の値が不正です: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}
