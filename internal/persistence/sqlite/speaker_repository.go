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

// SpeakerRepository implements persistence.SpeakerRepository using SQLite.
type SpeakerRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewSpeakerRepository creates a new SQLite speaker repository.
func NewSpeakerRepository(pool *ConnectionPool) *SpeakerRepository {
	return &SpeakerRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

// CreateSpeaker inserts a new canonical speaker identity.
func (r *SpeakerRepository) CreateSpeaker(ctx context.Context, speaker persistence.Speaker) (persistence.Speaker, error) {
	speaker.Name = strings.TrimSpace(speaker.Name)
	if speaker.Name == "" {
		return persistence.Speaker{}, persistence.ErrConstraintViolation
	}

	now := time.Now().UTC()
	speaker.CreatedAt = now
	speaker.UpdatedAt = now

	result, err := r.helper.Exec(ctx, `
		INSERT INTO speakers (name, email, affiliation, bio, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		speaker.Name,
		strings.TrimSpace(speaker.Email),
		speaker.Affiliation,
		speaker.Bio,
		formatTime(speaker.CreatedAt),
		formatTime(speaker.UpdatedAt),
	)
	if err != nil {
		return persistence.Speaker{}, r.mapper.MapError(err)
	}

	speaker.ID, err = result.LastInsertId()
	if err != nil {
		return persistence.Speaker{}, fmt.Errorf("failed to read inserted id: %w", err)
	}

	return speaker, nil
}

// UpdateSpeaker updates an existing speaker.
func (r *SpeakerRepository) UpdateSpeaker(ctx context.Context, speaker persistence.Speaker) error {
	speaker.Name = strings.TrimSpace(speaker.Name)
	if speaker.Name == "" {
		return persistence.ErrConstraintViolation
	}

	result, err := r.helper.Exec(ctx, `
		UPDATE speakers
		SET name = ?, email = ?, affiliation = ?, bio = ?, updated_at = ?
		WHERE id = ?
	`,
		speaker.Name,
		strings.TrimSpace(speaker.Email),
		speaker.Affiliation,
		speaker.Bio,
		formatTime(time.Now().UTC()),
		speaker.ID,
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

// GetSpeaker retrieves a speaker by ID.
func (r *SpeakerRepository) GetSpeaker(ctx context.Context, id int64) (persistence.Speaker, error) {
	return scanSpeaker(r.helper.QueryRow(ctx, `
		SELECT id, name, email, affiliation, bio, created_at, updated_at
		FROM speakers
		WHERE id = ?
	`, id))
}

// GetSpeakerByName retrieves a speaker by exact name. Name lookup exists
// only to avoid duplicate identities at creation; references between tables
// are always by id.
func (r *SpeakerRepository) GetSpeakerByName(ctx context.Context, name string) (persistence.Speaker, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return persistence.Speaker{}, persistence.ErrNotFound
	}

	return scanSpeaker(r.helper.QueryRow(ctx, `
		SELECT id, name, email, affiliation, bio, created_at, updated_at
		FROM speakers
		WHERE name = ?
	`, name))
}

// ListSpeakers returns all speakers ordered by name.
func (r *SpeakerRepository) ListSpeakers(ctx context.Context) ([]persistence.Speaker, error) {
	rows, err := r.helper.Query(ctx, `
		SELECT id, name, email, affiliation, bio, created_at, updated_at
		FROM speakers
		ORDER BY name ASC, id ASC
	`)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var speakers []persistence.Speaker
	for rows.Next() {
		speaker, err := scanSpeaker(rows)
		if err != nil {
			return nil, err
		}
		speakers = append(speakers, speaker)
	}

	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}

	return speakers, nil
}

// DeleteSpeaker removes a speaker and clears speaker_id on seminars and
// suggestions. The historical records survive; suggestions keep their
// denormalized name snapshot.
func (r *SpeakerRepository) DeleteSpeaker(ctx context.Context, id int64) error {
	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		if _, err := r.helper.ExecTx(tx, `UPDATE seminars SET speaker_id = NULL WHERE speaker_id = ?`, id); err != nil {
			return r.mapper.MapError(err)
		}
		if _, err := r.helper.ExecTx(tx, `UPDATE speaker_suggestions SET speaker_id = NULL WHERE speaker_id = ?`, id); err != nil {
			return r.mapper.MapError(err)
		}

		result, err := r.helper.ExecTx(tx, `DELETE FROM speakers WHERE id = ?`, id)
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

func scanSpeaker(row rowScanner) (persistence.Speaker, error) {
	var speaker persistence.Speaker
	var createdAtStr, updatedAtStr string

	err := row.Scan(
		&speaker.ID,
		&speaker.Name,
		&speaker.Email,
		&speaker.Affiliation,
		&speaker.Bio,
		&createdAtStr,
		&updatedAtStr,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.Speaker{}, persistence.ErrNotFound
		}
		return persistence.Speaker{}, NewErrorMapper().MapError(err)
	}

	if speaker.CreatedAt, err = parseTime(createdAtStr); err != nil {
		return persistence.Speaker{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if speaker.UpdatedAt, err = parseTime(updatedAtStr); err != nil {
		return persistence.Speaker{}, fmt.Errorf("failed to parse updated_at: %w", err)
	}

	return speaker, nil
}
