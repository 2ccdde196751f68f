package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/example/seminar-scheduler/internal/persistence/sqlite"
	"github.com/example/seminar-scheduler/internal/persistence/sqlite/backup"
)

// DefaultConfirmationTTL bounds how long a destructive operation may sit
// between request and confirmation.
const DefaultConfirmationTTL = 5 * time.Minute

// Confirmation is the first-step response of a destructive operation.
type Confirmation struct {
	Token     string
	ExpiresAt time.Time
	Message   string
}

// BackupInfo describes one backup file on disk.
type BackupInfo struct {
	Name      string
	Size      int64
	CreatedAt time.Time
}

// pendingConfirmation is one requested-but-unconfirmed destructive
// operation.
type pendingConfirmation struct {
	action    string
	payload   string
	expiresAt time.Time
}

// AdminService guards the destructive surface: backups, restore and reset.
// Restore and reset follow a two-step protocol: the first request returns a
// short-lived confirmation token, the second presents it. Both steps require
// the admin password; a pre-operation snapshot is always taken.
type AdminService struct {
	store        *sqlite.Store
	reconciler   *backup.Reconciler
	activity     *ActivityService
	logger       *slog.Logger
	backupDir    string
	passwordHash string
	confirmTTL   time.Duration

	tokenGenerator func() string
	now            func() time.Time

	mu      sync.Mutex
	pending map[string]pendingConfirmation
}

// NewAdminService wires dependencies for admin operations. passwordHash is
// the argon2id hash of the admin password; an empty hash disables the whole
// admin surface.
func NewAdminService(
	store *sqlite.Store,
	reconciler *backup.Reconciler,
	activity *ActivityService,
	logger *slog.Logger,
	backupDir string,
	passwordHash string,
	tokenGenerator func() string,
	now func() time.Time,
) *AdminService {
	if tokenGenerator == nil {
		tokenGenerator = DefaultTokenGenerator
	}
	if now == nil {
		now = time.Now
	}
	return &AdminService{
		store:          store,
		reconciler:     reconciler,
		activity:       activity,
		logger:         defaultLogger(logger),
		backupDir:      backupDir,
		passwordHash:   passwordHash,
		confirmTTL:     DefaultConfirmationTTL,
		tokenGenerator: tokenGenerator,
		now:            now,
		pending:        make(map[string]pendingConfirmation),
	}
}

// Authenticate checks the admin password against the configured hash.
func (s *AdminService) Authenticate(password string) error {
	if s.passwordHash == "" {
		return ErrUnauthorized
	}
	if err := VerifyPassword(s.passwordHash, password); err != nil {
		return ErrUnauthorized
	}
	return nil
}

// CreateBackup takes a snapshot into the backup directory.
func (s *AdminService) CreateBackup(ctx context.Context) (string, error) {
	path, err := s.reconciler.Snapshot(ctx, s.backupDir)
	if err != nil {
		return "", err
	}
	s.activity.Record(ctx, "admin", "backup.create", "backup", 0, nil, map[string]interface{}{
		"path": filepath.Base(path),
	})
	return path, nil
}

// ListBackups lists the backup files in the backup directory, newest first.
func (s *AdminService) ListBackups(ctx context.Context) ([]BackupInfo, error) {
	entries, err := os.ReadDir(s.backupDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read backup directory: %w", err)
	}

	var backups []BackupInfo
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".db") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		backups = append(backups, BackupInfo{
			Name:      entry.Name(),
			Size:      info.Size(),
			CreatedAt: info.ModTime().UTC(),
		})
	}

	sort.Slice(backups, func(i, j int) bool {
		return backups[i].CreatedAt.After(backups[j].CreatedAt)
	})

	return backups, nil
}

// InspectBackup reports the tables and columns a named backup file actually
// contains, so drift against the live schema can be reviewed before a
// restore is requested.
func (s *AdminService) InspectBackup(ctx context.Context, backupName string) (map[string][]string, error) {
	path, err := s.backupPath(backupName)
	if err != nil {
		return nil, err
	}

	tables, err := backup.Inspect(path)
	if err != nil {
		if errors.Is(err, backup.ErrBackupNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	serviceLogger(ctx, s.logger, "admin", "inspect", "backup", backupName).Info("backup inspected",
		slog.Int("tables", len(tables)))
	return tables, nil
}

// RequestRestore starts the restore protocol for a named backup file.
func (s *AdminService) RequestRestore(ctx context.Context, backupName string) (Confirmation, error) {
	path, err := s.backupPath(backupName)
	if err != nil {
		return Confirmation{}, err
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return Confirmation{}, ErrNotFound
		}
		return Confirmation{}, err
	}

	return s.request(ctx, "restore", path,
		fmt.Sprintf("Restoring from %s replaces all current data. Confirm within %s.", backupName, s.confirmTTL)), nil
}

// ConfirmRestore completes the restore protocol: a fresh snapshot is taken,
// the backup's schema is reconciled with the live one, then its rows replace
// the live data.
func (s *AdminService) ConfirmRestore(ctx context.Context, token string) (*backup.RestoreReport, error) {
	path, err := s.take(token, "restore")
	if err != nil {
		return nil, err
	}

	logger := serviceLogger(ctx, s.logger, "admin", "restore", "backup", filepath.Base(path))

	preOp, err := s.reconciler.Snapshot(ctx, s.backupDir)
	if err != nil {
		return nil, fmt.Errorf("pre-restore snapshot failed: %w", err)
	}
	logger.Info("pre-restore snapshot taken", slog.String("path", preOp))

	warnings, err := s.reconciler.MigrateSchema(ctx, path)
	if err != nil {
		return nil, err
	}

	report, err := s.reconciler.Restore(ctx, path)
	if err != nil {
		return nil, err
	}
	report.Warnings = append(warnings, report.Warnings...)

	s.activity.Record(ctx, "admin", "backup.restore", "backup", 0, nil, map[string]interface{}{
		"backup":   filepath.Base(path),
		"rows":     report.Rows,
		"warnings": len(report.Warnings),
	})

	return report, nil
}

// RequestReset starts the reset protocol.
func (s *AdminService) RequestReset(ctx context.Context) (Confirmation, error) {
	return s.request(ctx, "reset", "",
		fmt.Sprintf("Resetting deletes all data. Confirm within %s.", s.confirmTTL)), nil
}

// ConfirmReset completes the reset protocol: snapshot, then wipe every
// table.
func (s *AdminService) ConfirmReset(ctx context.Context, token string) error {
	if _, err := s.take(token, "reset"); err != nil {
		return err
	}

	preOp, err := s.reconciler.Snapshot(ctx, s.backupDir)
	if err != nil {
		return fmt.Errorf("pre-reset snapshot failed: %w", err)
	}
	serviceLogger(ctx, s.logger, "admin", "reset").Info("pre-reset snapshot taken",
		slog.String("path", preOp))

	if err := s.store.Reset(ctx); err != nil {
		return err
	}

	s.activity.Record(ctx, "admin", "store.reset", "store", 0, nil, map[string]interface{}{
		"snapshot": filepath.Base(preOp),
	})

	return nil
}

// request registers a pending confirmation and returns its token.
func (s *AdminService) request(ctx context.Context, action, payload, message string) Confirmation {
	token := s.tokenGenerator()
	expiresAt := s.now().UTC().Add(s.confirmTTL)

	s.mu.Lock()
	s.prune()
	s.pending[token] = pendingConfirmation{
		action:    action,
		payload:   payload,
		expiresAt: expiresAt,
	}
	s.mu.Unlock()

	serviceLogger(ctx, s.logger, "admin", action).Info("confirmation requested",
		slog.Time("expires_at", expiresAt))

	return Confirmation{
		Token:     token,
		ExpiresAt: expiresAt,
		Message:   message,
	}
}

// take consumes a pending confirmation. Unknown, stale and wrong-action
// tokens all fail the same way.
func (s *AdminService) take(token, action string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.pending[token]
	if !ok {
		return "", ErrConfirmationExpired
	}
	delete(s.pending, token)

	if entry.action != action || !entry.expiresAt.After(s.now().UTC()) {
		return "", ErrConfirmationExpired
	}

	return entry.payload, nil
}

// prune drops stale pending entries. Caller holds the lock.
func (s *AdminService) prune() {
	now := s.now().UTC()
	for token, entry := range s.pending {
		if !entry.expiresAt.After(now) {
			delete(s.pending, token)
		}
	}
}

// backupPath resolves a backup file name inside the backup directory,
// rejecting traversal.
func (s *AdminService) backupPath(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		vErr := &ValidationError{}
		vErr.add("backup", "invalid backup name")
		return "", vErr
	}
	return filepath.Join(s.backupDir, name), nil
}
