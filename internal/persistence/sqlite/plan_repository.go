package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/example/seminar-scheduler/internal/persistence"
)

// PlanRepository implements persistence.PlanRepository using SQLite.
type PlanRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewPlanRepository creates a new SQLite plan repository.
func NewPlanRepository(pool *ConnectionPool) *PlanRepository {
	return &PlanRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

// CreatePlan inserts a new semester plan.
func (r *PlanRepository) CreatePlan(ctx context.Context, plan persistence.SemesterPlan) (persistence.SemesterPlan, error) {
	plan.Name = strings.TrimSpace(plan.Name)
	if plan.Name == "" {
		return persistence.SemesterPlan{}, persistence.ErrConstraintViolation
	}

	now := time.Now().UTC()
	plan.CreatedAt = now
	plan.UpdatedAt = now

	result, err := r.helper.Exec(ctx, `
		INSERT INTO semester_plans (name, created_at, updated_at)
		VALUES (?, ?, ?)
	`, plan.Name, formatTime(plan.CreatedAt), formatTime(plan.UpdatedAt))
	if err != nil {
		return persistence.SemesterPlan{}, r.mapper.MapError(err)
	}

	plan.ID, err = result.LastInsertId()
	if err != nil {
		return persistence.SemesterPlan{}, fmt.Errorf("failed to read inserted id: %w", err)
	}

	return plan, nil
}

// GetPlan retrieves a plan by ID.
func (r *PlanRepository) GetPlan(ctx context.Context, id int64) (persistence.SemesterPlan, error) {
	row := r.helper.QueryRow(ctx, `
		SELECT id, name, created_at, updated_at
		FROM semester_plans
		WHERE id = ?
	`, id)

	return scanPlan(row)
}

// ListPlans returns all plans ordered by creation timestamp then ID.
func (r *PlanRepository) ListPlans(ctx context.Context) ([]persistence.SemesterPlan, error) {
	rows, err := r.helper.Query(ctx, `
		SELECT id, name, created_at, updated_at
		FROM semester_plans
		ORDER BY created_at ASC, id ASC
	`)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var plans []persistence.SemesterPlan
	for rows.Next() {
		plan, err := scanPlan(rows)
		if err != nil {
			return nil, err
		}
		plans = append(plans, plan)
	}

	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}

	return plans, nil
}

// DeletePlan removes a plan, deletes its slots and detaches its suggestions.
// Suggestions survive with a cleared plan reference; their history remains
// useful for future semesters.
func (r *PlanRepository) DeletePlan(ctx context.Context, id int64) error {
	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		if _, err := r.helper.ExecTx(tx, `
			UPDATE speaker_suggestions SET semester_plan_id = NULL WHERE semester_plan_id = ?
		`, id); err != nil {
			return r.mapper.MapError(err)
		}

		if _, err := r.helper.ExecTx(tx, `
			DELETE FROM seminar_slots WHERE semester_plan_id = ?
		`, id); err != nil {
			return r.mapper.MapError(err)
		}

		result, err := r.helper.ExecTx(tx, `DELETE FROM semester_plans WHERE id = ?`, id)
		if err != nil {
			return r.mapper.MapError(err)
		}

		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if affected == 0 {
			return persistence.ErrNotFound
		}

		return nil
	})
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPlan(row rowScanner) (persistence.SemesterPlan, error) {
	var plan persistence.SemesterPlan
	var createdAtStr, updatedAtStr string

	err := row.Scan(&plan.ID, &plan.Name, &createdAtStr, &updatedAtStr)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.SemesterPlan{}, persistence.ErrNotFound
		}
		return persistence.SemesterPlan{}, NewErrorMapper().MapError(err)
	}

	if plan.CreatedAt, err = parseTime(createdAtStr); err != nil {
		return persistence.SemesterPlan{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if plan.UpdatedAt, err = parseTime(updatedAtStr); err != nil {
		return persistence.SemesterPlan{}, fmt.Errorf("failed to parse updated_at: %w", err)
	}

	return plan, nil
}
