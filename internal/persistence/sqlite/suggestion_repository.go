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

// SuggestionRepository implements persistence.SuggestionRepository using SQLite.
type SuggestionRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewSuggestionRepository creates a new SQLite suggestion repository.
func NewSuggestionRepository(pool *ConnectionPool) *SuggestionRepository {
	return &SuggestionRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

const suggestionColumns = `id, semester_plan_id, speaker_id, speaker_name, speaker_email, affiliation,
	suggested_by, priority, topic, reason, status,
	request_sent, availability_received, date_notified, meal_confirmed,
	accommodation_booked, info_submitted, approved, created_at, updated_at`

// CreateSuggestion inserts a new speaker suggestion. The speaker name fields
// are the denormalized snapshot captured at suggestion time.
func (r *SuggestionRepository) CreateSuggestion(ctx context.Context, suggestion persistence.SpeakerSuggestion) (persistence.SpeakerSuggestion, error) {
	suggestion.SpeakerName = strings.TrimSpace(suggestion.SpeakerName)
	if suggestion.SpeakerName == "" {
		return persistence.SpeakerSuggestion{}, persistence.ErrConstraintViolation
	}

	now := time.Now().UTC()
	suggestion.CreatedAt = now
	suggestion.UpdatedAt = now

	result, err := r.helper.Exec(ctx, `
		INSERT INTO speaker_suggestions (
			semester_plan_id, speaker_id, speaker_name, speaker_email, affiliation,
			suggested_by, priority, topic, reason, status,
			request_sent, availability_received, date_notified, meal_confirmed,
			accommodation_booked, info_submitted, approved, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		nullInt64(suggestion.SemesterPlanID),
		nullInt64(suggestion.SpeakerID),
		suggestion.SpeakerName,
		strings.TrimSpace(suggestion.SpeakerEmail),
		suggestion.Affiliation,
		suggestion.SuggestedBy,
		suggestion.Priority,
		suggestion.Topic,
		suggestion.Reason,
		suggestion.Status,
		suggestion.Workflow.RequestSent,
		suggestion.Workflow.AvailabilityReceived,
		suggestion.Workflow.DateNotified,
		suggestion.Workflow.MealConfirmed,
		suggestion.Workflow.AccommodationBooked,
		suggestion.Workflow.InfoSubmitted,
		suggestion.Workflow.Approved,
		formatTime(suggestion.CreatedAt),
		formatTime(suggestion.UpdatedAt),
	)
	if err != nil {
		return persistence.SpeakerSuggestion{}, r.mapper.MapError(err)
	}

	suggestion.ID, err = result.LastInsertId()
	if err != nil {
		return persistence.SpeakerSuggestion{}, fmt.Errorf("failed to read inserted id: %w", err)
	}

	return suggestion, nil
}

// GetSuggestion retrieves a suggestion by ID.
func (r *SuggestionRepository) GetSuggestion(ctx context.Context, id int64) (persistence.SpeakerSuggestion, error) {
	return scanSuggestion(r.helper.QueryRow(ctx, `
		SELECT `+suggestionColumns+`
		FROM speaker_suggestions
		WHERE id = ?
	`, id))
}

// ListSuggestions returns suggestions matching the filter, newest first by
// priority then creation time.
func (r *SuggestionRepository) ListSuggestions(ctx context.Context, filter persistence.SuggestionFilter) ([]persistence.SpeakerSuggestion, error) {
	query := `SELECT ` + suggestionColumns + ` FROM speaker_suggestions`
	var conditions []string
	var args []interface{}

	if filter.PlanID != nil {
		conditions = append(conditions, "semester_plan_id = ?")
		args = append(args, *filter.PlanID)
	}
	if filter.SpeakerID != nil {
		conditions = append(conditions, "speaker_id = ?")
		args = append(args, *filter.SpeakerID)
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY priority DESC, created_at ASC, id ASC"

	rows, err := r.helper.Query(ctx, query, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var suggestions []persistence.SpeakerSuggestion
	for rows.Next() {
		suggestion, err := scanSuggestion(rows)
		if err != nil {
			return nil, err
		}
		suggestions = append(suggestions, suggestion)
	}

	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}

	return suggestions, nil
}

// UpdateSuggestion updates the mutable descriptive fields of a suggestion.
// Workflow flags are updated through UpdateWorkflow only.
func (r *SuggestionRepository) UpdateSuggestion(ctx context.Context, suggestion persistence.SpeakerSuggestion) error {
	suggestion.SpeakerName = strings.TrimSpace(suggestion.SpeakerName)
	if suggestion.SpeakerName == "" {
		return persistence.ErrConstraintViolation
	}

	result, err := r.helper.Exec(ctx, `
		UPDATE speaker_suggestions
		SET semester_plan_id = ?, speaker_id = ?, speaker_name = ?, speaker_email = ?,
			affiliation = ?, suggested_by = ?, priority = ?, topic = ?, reason = ?,
			status = ?, updated_at = ?
		WHERE id = ?
	`,
		nullInt64(suggestion.SemesterPlanID),
		nullInt64(suggestion.SpeakerID),
		suggestion.SpeakerName,
		strings.TrimSpace(suggestion.SpeakerEmail),
		suggestion.Affiliation,
		suggestion.SuggestedBy,
		suggestion.Priority,
		suggestion.Topic,
		suggestion.Reason,
		suggestion.Status,
		formatTime(time.Now().UTC()),
		suggestion.ID,
	)
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
}

// UpdateWorkflow persists the full set of workflow flags for a suggestion.
func (r *SuggestionRepository) UpdateWorkflow(ctx context.Context, id int64, flags persistence.WorkflowFlags) error {
	result, err := r.helper.Exec(ctx, `
		UPDATE speaker_suggestions
		SET request_sent = ?, availability_received = ?, date_notified = ?,
			meal_confirmed = ?, accommodation_booked = ?, info_submitted = ?,
			approved = ?, updated_at = ?
		WHERE id = ?
	`,
		flags.RequestSent,
		flags.AvailabilityReceived,
		flags.DateNotified,
		flags.MealConfirmed,
		flags.AccommodationBooked,
		flags.InfoSubmitted,
		flags.Approved,
		formatTime(time.Now().UTC()),
		id,
	)
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
}

// ReplaceAvailability swaps the suggestion's availability entries for the
// provided set in one transaction. Dates are re-checked against the plan's
// slot dates here as well as in the service layer, so a direct caller cannot
// persist a date the plan never offers.
func (r *SuggestionRepository) ReplaceAvailability(ctx context.Context, suggestionID int64, entries []persistence.AvailabilityEntry) error {
	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		var planID sql.NullInt64
		err := r.helper.QueryRowTx(tx, `SELECT semester_plan_id FROM speaker_suggestions WHERE id = ?`, suggestionID).Scan(&planID)
		if err != nil {
			return r.mapper.MapError(err)
		}

		offered := make(map[string]bool)
		if len(entries) > 0 && planID.Valid {
			rows, err := r.helper.QueryTx(tx, `SELECT date FROM seminar_slots WHERE semester_plan_id = ?`, planID.Int64)
			if err != nil {
				return r.mapper.MapError(err)
			}
			for rows.Next() {
				var date string
				if err := rows.Scan(&date); err != nil {
					rows.Close()
					return r.mapper.MapError(err)
				}
				offered[date] = true
			}
			if err := rows.Err(); err != nil {
				rows.Close()
				return r.mapper.MapError(err)
			}
			rows.Close()
		}

		if _, err := r.helper.ExecTx(tx, `DELETE FROM availability_entries WHERE suggestion_id = ?`, suggestionID); err != nil {
			return r.mapper.MapError(err)
		}

		for _, entry := range entries {
			if entry.Date == "" || !offered[entry.Date] {
				return persistence.ErrConstraintViolation
			}
			preference := entry.Preference
			if preference == "" {
				preference = persistence.PreferencePossible
			}
			if _, err := r.helper.ExecTx(tx, `
				INSERT INTO availability_entries (suggestion_id, date, preference)
				VALUES (?, ?, ?)
			`, suggestionID, entry.Date, string(preference)); err != nil {
				return r.mapper.MapError(err)
			}
		}

		return nil
	})
}

// ListAvailability returns the suggestion's availability entries ordered by date.
func (r *SuggestionRepository) ListAvailability(ctx context.Context, suggestionID int64) ([]persistence.AvailabilityEntry, error) {
	rows, err := r.helper.Query(ctx, `
		SELECT id, suggestion_id, date, preference
		FROM availability_entries
		WHERE suggestion_id = ?
		ORDER BY date ASC, id ASC
	`, suggestionID)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var entries []persistence.AvailabilityEntry
	for rows.Next() {
		var entry persistence.AvailabilityEntry
		var preference string
		if err := rows.Scan(&entry.ID, &entry.SuggestionID, &entry.Date, &preference); err != nil {
			return nil, r.mapper.MapError(err)
		}
		entry.Preference = persistence.AvailabilityPreference(preference)
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}

	return entries, nil
}

// DeleteSuggestion removes a suggestion with its availability entries and
// tokens, and clears assigned_suggestion_id on any slot. Seminars keep
// their denormalized record; only the suggestion link is cleared.
func (r *SuggestionRepository) DeleteSuggestion(ctx context.Context, id int64) error {
	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		if _, err := r.helper.ExecTx(tx, `DELETE FROM speaker_tokens WHERE suggestion_id = ?`, id); err != nil {
			return r.mapper.MapError(err)
		}
		if _, err := r.helper.ExecTx(tx, `DELETE FROM availability_entries WHERE suggestion_id = ?`, id); err != nil {
			return r.mapper.MapError(err)
		}
		if _, err := r.helper.ExecTx(tx, `
			UPDATE seminar_slots SET assigned_suggestion_id = NULL WHERE assigned_suggestion_id = ?
		`, id); err != nil {
			return r.mapper.MapError(err)
		}
		if _, err := r.helper.ExecTx(tx, `
			UPDATE seminars SET suggestion_id = NULL WHERE suggestion_id = ?
		`, id); err != nil {
			return r.mapper.MapError(err)
		}

		result, err := r.helper.ExecTx(tx, `DELETE FROM speaker_suggestions WHERE id = ?`, id)
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

func scanSuggestion(row rowScanner) (persistence.SpeakerSuggestion, error) {
	var suggestion persistence.SpeakerSuggestion
	var planID, speakerID sql.NullInt64
	var createdAtStr, updatedAtStr string

	err := row.Scan(
		&suggestion.ID,
		&planID,
		&speakerID,
		&suggestion.SpeakerName,
		&suggestion.SpeakerEmail,
		&suggestion.Affiliation,
		&suggestion.SuggestedBy,
		&suggestion.Priority,
		&suggestion.Topic,
		&suggestion.Reason,
		&suggestion.Status,
		&suggestion.Workflow.RequestSent,
		&suggestion.Workflow.AvailabilityReceived,
		&suggestion.Workflow.DateNotified,
		&suggestion.Workflow.MealConfirmed,
		&suggestion.Workflow.AccommodationBooked,
		&suggestion.Workflow.InfoSubmitted,
		&suggestion.Workflow.Approved,
		&createdAtStr,
		&updatedAtStr,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.SpeakerSuggestion{}, persistence.ErrNotFound
		}
		return persistence.SpeakerSuggestion{}, NewErrorMapper().MapError(err)
	}

	suggestion.SemesterPlanID = int64Ptr(planID)
	suggestion.SpeakerID = int64Ptr(speakerID)

	if suggestion.CreatedAt, err = parseTime(createdAtStr); err != nil {
		return persistence.SpeakerSuggestion{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if suggestion.UpdatedAt, err = parseTime(updatedAtStr); err != nil {
		return persistence.SpeakerSuggestion{}, fmt.Errorf("failed to parse updated_at: %w", err)
	}

	return suggestion, nil
}
