package sqlite

import (
	"context"
	"fmt"
)

// IntegrityIssue describes one referential inconsistency found by
// CheckIntegrity. Issues are reported, never auto-repaired.
type IntegrityIssue struct {
	Table   string
	RowID   int64
	Message string
}

func (i IntegrityIssue) String() string {
	return fmt.Sprintf("%s[%d]: %s", i.Table, i.RowID, i.Message)
}

type integrityCheck struct {
	table   string
	message string
	query   string
}

// integrityChecks covers the linkage the schema cannot enforce with foreign
// keys: the slot back-references and the symmetry between slots, seminars and
// suggestions.
var integrityChecks = []integrityCheck{
	{
		table:   "seminar_slots",
		message: "assigned_seminar_id references a missing seminar",
		query: `SELECT s.id FROM seminar_slots s
			LEFT JOIN seminars sem ON sem.id = s.assigned_seminar_id
			WHERE s.assigned_seminar_id IS NOT NULL AND sem.id IS NULL`,
	},
	{
		table:   "seminar_slots",
		message: "assigned_suggestion_id references a missing suggestion",
		query: `SELECT s.id FROM seminar_slots s
			LEFT JOIN speaker_suggestions sg ON sg.id = s.assigned_suggestion_id
			WHERE s.assigned_suggestion_id IS NOT NULL AND sg.id IS NULL`,
	},
	{
		table:   "seminar_slots",
		message: "slot carries an assignment but is not confirmed",
		query: `SELECT id FROM seminar_slots
			WHERE assigned_seminar_id IS NOT NULL AND status != 'confirmed'`,
	},
	{
		table:   "seminar_slots",
		message: "confirmed slot has no assigned seminar",
		query: `SELECT id FROM seminar_slots
			WHERE status = 'confirmed' AND assigned_seminar_id IS NULL`,
	},
	{
		table:   "seminar_slots",
		message: "seminar is assigned to more than one slot",
		query: `SELECT id FROM seminar_slots
			WHERE assigned_seminar_id IN (
				SELECT assigned_seminar_id FROM seminar_slots
				WHERE assigned_seminar_id IS NOT NULL
				GROUP BY assigned_seminar_id HAVING COUNT(*) > 1
			)`,
	},
	{
		table:   "seminar_slots",
		message: "suggestion is assigned to more than one slot in the same plan",
		query: `SELECT s.id FROM seminar_slots s
			JOIN (
				SELECT semester_plan_id, assigned_suggestion_id
				FROM seminar_slots
				WHERE assigned_suggestion_id IS NOT NULL
				GROUP BY semester_plan_id, assigned_suggestion_id
				HAVING COUNT(*) > 1
			) d ON d.semester_plan_id = s.semester_plan_id
				AND d.assigned_suggestion_id = s.assigned_suggestion_id`,
	},
	{
		table:   "seminar_slots",
		message: "slot and its seminar disagree about the originating suggestion",
		query: `SELECT s.id FROM seminar_slots s
			JOIN seminars sem ON sem.id = s.assigned_seminar_id
			WHERE s.assigned_suggestion_id IS NOT NULL
				AND (sem.suggestion_id IS NULL OR sem.suggestion_id != s.assigned_suggestion_id)`,
	},
	{
		table:   "seminars",
		message: "room_id references a missing room",
		query: `SELECT sem.id FROM seminars sem
			LEFT JOIN rooms r ON r.id = sem.room_id
			WHERE sem.room_id IS NOT NULL AND r.id IS NULL`,
	},
	{
		table:   "speaker_tokens",
		message: "token references a missing suggestion",
		query: `SELECT t.id FROM speaker_tokens t
			LEFT JOIN speaker_suggestions sg ON sg.id = t.suggestion_id
			WHERE sg.id IS NULL`,
	},
	{
		table:   "availability_entries",
		message: "availability entry references a missing suggestion",
		query: `SELECT a.id FROM availability_entries a
			LEFT JOIN speaker_suggestions sg ON sg.id = a.suggestion_id
			WHERE sg.id IS NULL`,
	},
	{
		table:   "uploaded_files",
		message: "uploaded file references a missing seminar",
		query: `SELECT f.id FROM uploaded_files f
			LEFT JOIN seminars sem ON sem.id = f.seminar_id
			WHERE sem.id IS NULL`,
	},
}

// CheckIntegrity runs every referential check against the live database and
// returns the full list of issues. An empty slice means the database is
// consistent.
func CheckIntegrity(ctx context.Context, pool *ConnectionPool) ([]IntegrityIssue, error) {
	helper := NewQueryHelper(pool)
	mapper := NewErrorMapper()

	var issues []IntegrityIssue
	for _, check := range integrityChecks {
		rows, err := helper.Query(ctx, check.query)
		if err != nil {
			return nil, mapper.MapError(err)
		}

		for rows.Next() {
			var id int64
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return nil, mapper.MapError(err)
			}
			issues = append(issues, IntegrityIssue{
				Table:   check.table,
				RowID:   id,
				Message: check.message,
			})
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, mapper.MapError(err)
		}
		rows.Close()
	}

	return issues, nil
}
