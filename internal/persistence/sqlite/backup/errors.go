package backup

import (
	"errors"
	"fmt"
)

var (
	// ErrBackupNotFound indicates that the backup file does not exist.
	ErrBackupNotFound = errors.New("backup file not found")

	// ErrSnapshotFailed indicates that snapshot creation failed.
	ErrSnapshotFailed = errors.New("snapshot creation failed")

	// ErrRestoreFailed indicates that a restore run failed and was rolled back.
	ErrRestoreFailed = errors.New("restore failed")

	// ErrMissingIdentityColumn indicates that a backup table lacks its primary
	// key column. Rows without identity cannot be remapped, so this is fatal.
	ErrMissingIdentityColumn = errors.New("backup table is missing its identity column")
)

// BackupError wraps backup and restore failures with file and operation
// context.
type BackupError struct {
	Path      string // Backup file path
	Table     string // Table being processed, if applicable
	Operation string // Operation being performed (snapshot, inspect, restore, ...)
	Err       error  // Underlying error
}

// Error implements the error interface.
func (e *BackupError) Error() string {
	if e.Table != "" {
		return fmt.Sprintf("backup %s (%s), table %s: %v", e.Operation, e.Path, e.Table, e.Err)
	}
	return fmt.Sprintf("backup %s (%s): %v", e.Operation, e.Path, e.Err)
}

// Unwrap returns the underlying error.
func (e *BackupError) Unwrap() error {
	return e.Err
}

// Is checks if the error matches a target error.
func (e *BackupError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewBackupError creates a new BackupError with context.
func NewBackupError(path, table, operation string, err error) *BackupError {
	return &BackupError{
		Path:      path,
		Table:     table,
		Operation: operation,
		Err:       err,
	}
}

// DriftWarning records one non-fatal difference between a backup's schema and
// the live schema. Drift is reported and compensated, never treated as an
// error.
type DriftWarning struct {
	Table   string
	Column  string
	Message string
}

func (w DriftWarning) String() string {
	if w.Column != "" {
		return fmt.Sprintf("%s.%s: %s", w.Table, w.Column, w.Message)
	}
	return fmt.Sprintf("%s: %s", w.Table, w.Message)
}
