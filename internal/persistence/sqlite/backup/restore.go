package backup

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// tableSpec describes one restorable table: its identity column and the
// columns that reference other tables.
type tableSpec struct {
	name string
	id   string
	// refs maps a reference column to the table it points at. Values are
	// rewritten through the id maps after all tables are imported.
	refs map[string]string
}

// restoreTables lists the tables in dependency order. Parents precede
// children so that most references can be resolved as rows arrive; the
// remaining forward references (slot back-references to seminars) are
// resolved by the final rewrite pass.
var restoreTables = []tableSpec{
	{name: "semester_plans", id: "id"},
	{name: "rooms", id: "id"},
	{name: "speakers", id: "id"},
	{name: "speaker_suggestions", id: "id", refs: map[string]string{
		"semester_plan_id": "semester_plans",
		"speaker_id":       "speakers",
	}},
	{name: "availability_entries", id: "id", refs: map[string]string{
		"suggestion_id": "speaker_suggestions",
	}},
	{name: "seminar_slots", id: "id", refs: map[string]string{
		"semester_plan_id":       "semester_plans",
		"room_id":                "rooms",
		"assigned_seminar_id":    "seminars",
		"assigned_suggestion_id": "speaker_suggestions",
	}},
	{name: "seminars", id: "id", refs: map[string]string{
		"room_id":       "rooms",
		"speaker_id":    "speakers",
		"suggestion_id": "speaker_suggestions",
	}},
	{name: "seminar_details", id: "seminar_id", refs: map[string]string{
		"seminar_id": "seminars",
	}},
	{name: "speaker_tokens", id: "id", refs: map[string]string{
		"suggestion_id": "speaker_suggestions",
	}},
	{name: "uploaded_files", id: "id", refs: map[string]string{
		"seminar_id": "seminars",
	}},
	{name: "activity_events", id: "id"},
}

// restoreTimeLayouts is the fallback chain of timestamp formats accepted in
// backup files. Older backups stored timestamps in more than one layout.
var restoreTimeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// RestoreReport summarizes a completed restore.
type RestoreReport struct {
	// Rows holds the number of rows imported per table.
	Rows map[string]int
	// Warnings lists every non-fatal compensation made during the import.
	Warnings []DriftWarning
}

// pendingRef is a reference column awaiting rewrite once the referenced
// table's id map is complete.
type pendingRef struct {
	table    string
	idColumn string
	newID    int64
	column   string
	refTable string
	oldRef   int64
}

// Restore replaces the live database's contents with the rows of the backup
// file. Tables are imported in dependency order with fresh auto-assigned
// ids; a final pass rewrites every reference column through the resulting
// old-id-to-new-id maps. The whole import runs in a single transaction with
// foreign key checks deferred to commit, so a failed restore leaves the live
// database untouched.
//
// The caller is responsible for taking a snapshot first and for holding off
// concurrent writers.
func (r *Reconciler) Restore(ctx context.Context, path string) (*RestoreReport, error) {
	backupDB, err := openBackupFile(path)
	if err != nil {
		return nil, err
	}
	defer backupDB.Close()

	backupTables, err := listTables(backupDB)
	if err != nil {
		return nil, NewBackupError(path, "", "restore", err)
	}
	backupHas := make(map[string]bool, len(backupTables))
	for _, t := range backupTables {
		backupHas[t] = true
	}

	report := &RestoreReport{Rows: make(map[string]int)}
	idMaps := make(map[string]map[int64]int64)
	var pending []pendingRef

	start := r.now()

	err = r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		if _, err := tx.Exec(`PRAGMA defer_foreign_keys = ON`); err != nil {
			return fmt.Errorf("failed to defer foreign keys: %w", err)
		}

		// Clear live data children-first so the import starts from empty
		// tables.
		for i := len(restoreTables) - 1; i >= 0; i-- {
			if _, err := tx.Exec(fmt.Sprintf(`DELETE FROM %q`, restoreTables[i].name)); err != nil {
				return NewBackupError(path, restoreTables[i].name, "restore",
					fmt.Errorf("failed to clear table: %w", err))
			}
		}

		for _, spec := range restoreTables {
			if !backupHas[spec.name] {
				report.Warnings = append(report.Warnings, DriftWarning{
					Table:   spec.name,
					Message: "table missing from backup, skipped",
				})
				continue
			}

			count, err := r.importTable(ctx, tx, backupDB, spec, idMaps, &pending, report)
			if err != nil {
				return NewBackupError(path, spec.name, "restore", err)
			}
			report.Rows[spec.name] = count
		}

		return r.rewriteReferences(tx, idMaps, pending, report)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRestoreFailed, err)
	}

	r.logger.InfoContext(ctx, "restore complete",
		slog.String("backup", path),
		slog.Int("warnings", len(report.Warnings)),
		slog.Duration("elapsed", r.now().Sub(start)))

	return report, nil
}

// importTable copies one table's rows from the backup into the live
// transaction, recording the identity mapping and the reference columns
// that need rewriting.
func (r *Reconciler) importTable(
	ctx context.Context,
	tx *sql.Tx,
	backupDB *sql.DB,
	spec tableSpec,
	idMaps map[string]map[int64]int64,
	pending *[]pendingRef,
	report *RestoreReport,
) (int, error) {
	backupColumns, err := tableColumns(backupDB, spec.name)
	if err != nil {
		return 0, err
	}

	liveColumns, err := tableColumns(r.pool.DB(), spec.name)
	if err != nil {
		return 0, err
	}
	liveColumnSet := make(map[string]bool, len(liveColumns))
	for _, col := range liveColumns {
		liveColumnSet[col.Name] = true
	}

	// Columns present in both schemas, in backup order, identity excluded.
	// Unknown backup columns are dropped with a warning.
	var shared []string
	hasIdentity := false
	for _, col := range backupColumns {
		if col.Name == spec.id {
			hasIdentity = true
			continue
		}
		if !liveColumnSet[col.Name] {
			report.Warnings = append(report.Warnings, DriftWarning{
				Table:   spec.name,
				Column:  col.Name,
				Message: "column unknown to the live schema, ignored",
			})
			continue
		}
		shared = append(shared, col.Name)
	}
	if !hasIdentity {
		return 0, ErrMissingIdentityColumn
	}

	// seminar_details has no surrogate key: its identity column is itself a
	// reference, mapped through the parent table at insert time.
	identityIsRef := spec.refs[spec.id] != ""

	selectColumns := append([]string{spec.id}, shared...)
	rows, err := backupDB.QueryContext(ctx, fmt.Sprintf(`SELECT %s FROM %q`,
		quoteColumns(selectColumns), spec.name))
	if err != nil {
		return 0, fmt.Errorf("failed to read backup rows: %w", err)
	}
	defer rows.Close()

	insertColumns := shared
	if identityIsRef {
		insertColumns = append([]string{spec.id}, shared...)
	}
	insertStmt := fmt.Sprintf(`INSERT INTO %q (%s) VALUES (%s)`,
		spec.name, quoteColumns(insertColumns), placeholders(len(insertColumns)))

	idMaps[spec.name] = make(map[int64]int64)

	count := 0
	for rows.Next() {
		values := make([]interface{}, len(selectColumns))
		scanTargets := make([]interface{}, len(selectColumns))
		for i := range values {
			scanTargets[i] = &values[i]
		}
		if err := rows.Scan(scanTargets...); err != nil {
			return 0, fmt.Errorf("failed to scan backup row: %w", err)
		}

		oldID, ok := asInt64(values[0])
		if !ok {
			return 0, fmt.Errorf("%w: non-integer identity value %v", ErrMissingIdentityColumn, values[0])
		}

		args := make([]interface{}, 0, len(insertColumns))
		if identityIsRef {
			mapped, ok := idMaps[spec.refs[spec.id]][oldID]
			if !ok {
				report.Warnings = append(report.Warnings, DriftWarning{
					Table:   spec.name,
					Column:  spec.id,
					Message: fmt.Sprintf("row %d references a missing parent, dropped", oldID),
				})
				continue
			}
			args = append(args, mapped)
		}
		for i, column := range shared {
			args = append(args, normalizeValue(column, values[i+1]))
		}

		result, err := tx.Exec(insertStmt, args...)
		if err != nil {
			return 0, fmt.Errorf("failed to insert row (old id %d): %w", oldID, err)
		}

		var newID int64
		if identityIsRef {
			newID = args[0].(int64)
		} else {
			newID, err = result.LastInsertId()
			if err != nil {
				return 0, fmt.Errorf("failed to read inserted id: %w", err)
			}
		}
		idMaps[spec.name][oldID] = newID
		count++

		for i, column := range shared {
			refTable, isRef := spec.refs[column]
			if !isRef {
				continue
			}
			oldRef, ok := asInt64(values[i+1])
			if !ok {
				continue
			}
			*pending = append(*pending, pendingRef{
				table:    spec.name,
				idColumn: spec.id,
				newID:    newID,
				column:   column,
				refTable: refTable,
				oldRef:   oldRef,
			})
		}
	}
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("failed to iterate backup rows: %w", err)
	}

	return count, nil
}

// rewriteReferences runs the final pass: every recorded reference column is
// pointed at the freshly assigned id of its target row. References whose
// target did not survive the import are nulled with a warning.
func (r *Reconciler) rewriteReferences(
	tx *sql.Tx,
	idMaps map[string]map[int64]int64,
	pending []pendingRef,
	report *RestoreReport,
) error {
	for _, ref := range pending {
		newRef, ok := idMaps[ref.refTable][ref.oldRef]

		stmt := fmt.Sprintf(`UPDATE %q SET %q = ? WHERE %q = ?`, ref.table, ref.column, ref.idColumn)
		var value interface{}
		if ok {
			value = newRef
		} else {
			value = nil
			report.Warnings = append(report.Warnings, DriftWarning{
				Table:  ref.table,
				Column: ref.column,
				Message: fmt.Sprintf("row %d referenced missing %s row %d, reference cleared",
					ref.newID, ref.refTable, ref.oldRef),
			})
		}

		if _, err := tx.Exec(stmt, value, ref.newID); err != nil {
			return NewBackupError("", ref.table, "restore",
				fmt.Errorf("failed to rewrite %s: %w", ref.column, err))
		}
	}

	return nil
}

// normalizeValue re-encodes timestamp columns through the accepted layout
// chain so restored rows carry canonical RFC 3339 strings. Other values pass
// through untouched.
func normalizeValue(column string, value interface{}) interface{} {
	if !strings.HasSuffix(column, "_at") {
		return value
	}

	var raw string
	switch v := value.(type) {
	case string:
		raw = v
	case []byte:
		raw = string(v)
	default:
		return value
	}
	if raw == "" {
		return value
	}

	for _, layout := range restoreTimeLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC().Format(time.RFC3339)
		}
	}
	return value
}

func asInt64(value interface{}) (int64, bool) {
	switch v := value.(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	default:
		return 0, false
	}
}

func quoteColumns(columns []string) string {
	quoted := make([]string, len(columns))
	for i, col := range columns {
		quoted[i] = fmt.Sprintf("%q", col)
	}
	return strings.Join(quoted, ", ")
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
