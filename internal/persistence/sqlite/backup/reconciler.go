package backup

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/example/seminar-scheduler/internal/persistence/sqlite"
)

// Reconciler performs snapshot, schema drift and restore operations against
// the live store.
type Reconciler struct {
	pool   *sqlite.ConnectionPool
	logger *slog.Logger

	// now is swappable for tests.
	now func() time.Time
}

// NewReconciler creates a reconciler bound to the live connection pool.
func NewReconciler(pool *sqlite.ConnectionPool, logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{
		pool:   pool,
		logger: logger,
		now:    time.Now,
	}
}

// Snapshot writes a consistent copy of the live database into dir and returns
// the path of the new file. The copy is produced with VACUUM INTO, so it is a
// compacted standalone SQLite database.
func (r *Reconciler) Snapshot(ctx context.Context, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", NewBackupError(dir, "", "snapshot", err)
	}

	stamp := r.now().UTC().Format("20060102-150405")
	path := filepath.Join(dir, fmt.Sprintf("seminars-%s.db", stamp))

	// Snapshots taken within the same second get a numeric suffix.
	for n := 2; ; n++ {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			break
		}
		path = filepath.Join(dir, fmt.Sprintf("seminars-%s-%d.db", stamp, n))
	}

	start := r.now()
	if _, err := r.pool.DB().ExecContext(ctx, `VACUUM INTO ?`, path); err != nil {
		return "", NewBackupError(path, "", "snapshot",
			fmt.Errorf("%w: %v", ErrSnapshotFailed, err))
	}

	r.logger.InfoContext(ctx, "snapshot written",
		slog.String("path", path),
		slog.Duration("elapsed", r.now().Sub(start)))

	return path, nil
}

// MigrateSchema brings a backup file's tables up to the live schema by adding
// the columns the backup lacks. Added integer columns default to 0, required
// timestamp columns to the current time, everything else to NULL. Returned
// warnings describe every compensation made. A backup table without its
// identity column cannot be restored and fails with ErrMissingIdentityColumn.
func (r *Reconciler) MigrateSchema(ctx context.Context, path string) ([]DriftWarning, error) {
	backupDB, err := openBackupFile(path)
	if err != nil {
		return nil, err
	}
	defer backupDB.Close()

	backupTables, err := listTables(backupDB)
	if err != nil {
		return nil, NewBackupError(path, "", "migrate", err)
	}
	backupHas := make(map[string]bool, len(backupTables))
	for _, t := range backupTables {
		backupHas[t] = true
	}

	var warnings []DriftWarning

	liveDB := r.pool.DB()
	for _, spec := range restoreTables {
		if !backupHas[spec.name] {
			warnings = append(warnings, DriftWarning{
				Table:   spec.name,
				Message: "table missing from backup, nothing to restore",
			})
			continue
		}

		liveColumns, err := tableColumns(liveDB, spec.name)
		if err != nil {
			return nil, NewBackupError(path, spec.name, "migrate", err)
		}

		backupColumns, err := tableColumns(backupDB, spec.name)
		if err != nil {
			return nil, NewBackupError(path, spec.name, "migrate", err)
		}
		backupColumnSet := make(map[string]bool, len(backupColumns))
		for _, col := range backupColumns {
			backupColumnSet[col.Name] = true
		}

		liveColumnSet := make(map[string]bool, len(liveColumns))
		for _, col := range liveColumns {
			liveColumnSet[col.Name] = true
		}

		if !backupColumnSet[spec.id] {
			return nil, NewBackupError(path, spec.name, "migrate", ErrMissingIdentityColumn)
		}

		for _, col := range liveColumns {
			if backupColumnSet[col.Name] {
				continue
			}

			stmt := fmt.Sprintf(`ALTER TABLE %q ADD COLUMN %q %s%s`,
				spec.name, col.Name, col.Type, addColumnDefault(col, r.now().UTC()))
			if _, err := backupDB.ExecContext(ctx, stmt); err != nil {
				return nil, NewBackupError(path, spec.name, "migrate",
					fmt.Errorf("failed to add column %s: %w", col.Name, err))
			}

			warnings = append(warnings, DriftWarning{
				Table:   spec.name,
				Column:  col.Name,
				Message: "column missing from backup, added with default",
			})
		}

		for _, col := range backupColumns {
			if !liveColumnSet[col.Name] {
				warnings = append(warnings, DriftWarning{
					Table:   spec.name,
					Column:  col.Name,
					Message: "column unknown to the live schema, ignored",
				})
			}
		}
	}

	for _, warning := range warnings {
		r.logger.WarnContext(ctx, "schema drift",
			slog.String("backup", path),
			slog.String("detail", warning.String()))
	}

	return warnings, nil
}

// addColumnDefault picks the ADD COLUMN default clause for a live column
// being backfilled into an old backup.
func addColumnDefault(col columnInfo, now time.Time) string {
	if strings.EqualFold(col.Type, "INTEGER") {
		return " DEFAULT 0"
	}
	if col.NotNull && strings.HasSuffix(col.Name, "_at") {
		return fmt.Sprintf(" DEFAULT '%s'", now.Format(time.RFC3339))
	}
	if col.NotNull {
		return " DEFAULT ''"
	}
	return ""
}
