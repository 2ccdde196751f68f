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

// SeminarRepository implements persistence.SeminarRepository using SQLite.
type SeminarRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewSeminarRepository creates a new SQLite seminar repository.
func NewSeminarRepository(pool *ConnectionPool) *SeminarRepository {
	return &SeminarRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

const seminarColumns = `id, title, abstract, date, start_time, end_time, room_id, speaker_id,
	suggestion_id, room_booked, announcement_sent, created_at, updated_at`

// Assign converts a (suggestion, slot) pair into a live seminar in one
// transaction: the speaker row is created first when the suggestion is not
// yet linked, the seminar copies the slot's date/time/room, and the slot is
// flipped to confirmed with both back-references set.
func (r *SeminarRepository) Assign(ctx context.Context, params persistence.AssignParams) (persistence.Seminar, error) {
	var seminar persistence.Seminar

	err := r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		var planID int64
		var date, startTime, endTime, status string
		var roomID, assignedSeminar sql.NullInt64

		err := r.helper.QueryRowTx(tx, `
			SELECT semester_plan_id, date, start_time, end_time, room_id, status, assigned_seminar_id
			FROM seminar_slots
			WHERE id = ?
		`, params.SlotID).Scan(&planID, &date, &startTime, &endTime, &roomID, &status, &assignedSeminar)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return persistence.ErrNotFound
			}
			return r.mapper.MapError(err)
		}

		if status != string(persistence.SlotAvailable) || assignedSeminar.Valid {
			return persistence.ErrConstraintViolation
		}

		var speakerID sql.NullInt64
		var speakerName string
		err = r.helper.QueryRowTx(tx, `
			SELECT speaker_id, speaker_name FROM speaker_suggestions WHERE id = ?
		`, params.SuggestionID).Scan(&speakerID, &speakerName)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return persistence.ErrNotFound
			}
			return r.mapper.MapError(err)
		}

		// Idempotency guard: one seminar per suggestion per plan.
		var alreadyAssigned int
		err = r.helper.QueryRowTx(tx, `
			SELECT COUNT(*) FROM seminar_slots
			WHERE semester_plan_id = ? AND assigned_suggestion_id = ?
		`, planID, params.SuggestionID).Scan(&alreadyAssigned)
		if err != nil {
			return r.mapper.MapError(err)
		}
		if alreadyAssigned > 0 {
			return persistence.ErrDuplicate
		}

		now := time.Now().UTC()

		if !speakerID.Valid {
			name := strings.TrimSpace(params.Speaker.Name)
			if name == "" {
				name = speakerName
			}

			var existingID int64
			err = r.helper.QueryRowTx(tx, `SELECT id FROM speakers WHERE name = ?`, name).Scan(&existingID)
			switch {
			case err == nil:
				speakerID = sql.NullInt64{Int64: existingID, Valid: true}
			case errors.Is(err, sql.ErrNoRows):
				result, insertErr := r.helper.ExecTx(tx, `
					INSERT INTO speakers (name, email, affiliation, bio, created_at, updated_at)
					VALUES (?, ?, ?, ?, ?, ?)
				`, name, params.Speaker.Email, params.Speaker.Affiliation, params.Speaker.Bio, formatTime(now), formatTime(now))
				if insertErr != nil {
					return r.mapper.MapError(insertErr)
				}
				newID, idErr := result.LastInsertId()
				if idErr != nil {
					return fmt.Errorf("failed to read inserted id: %w", idErr)
				}
				speakerID = sql.NullInt64{Int64: newID, Valid: true}
			default:
				return r.mapper.MapError(err)
			}

			if _, err := r.helper.ExecTx(tx, `
				UPDATE speaker_suggestions SET speaker_id = ?, updated_at = ? WHERE id = ?
			`, speakerID, formatTime(now), params.SuggestionID); err != nil {
				return r.mapper.MapError(err)
			}
		}

		result, err := r.helper.ExecTx(tx, `
			INSERT INTO seminars (title, abstract, date, start_time, end_time, room_id, speaker_id, suggestion_id, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			params.Title,
			params.Abstract,
			date,
			startTime,
			endTime,
			roomID,
			speakerID,
			params.SuggestionID,
			formatTime(now),
			formatTime(now),
		)
		if err != nil {
			return r.mapper.MapError(err)
		}

		seminarID, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to read inserted id: %w", err)
		}

		if _, err := r.helper.ExecTx(tx, `
			UPDATE seminar_slots
			SET status = 'confirmed', assigned_seminar_id = ?, assigned_suggestion_id = ?, updated_at = ?
			WHERE id = ?
		`, seminarID, params.SuggestionID, formatTime(now), params.SlotID); err != nil {
			return r.mapper.MapError(err)
		}

		suggestionID := params.SuggestionID
		seminar = persistence.Seminar{
			ID:           seminarID,
			Title:        params.Title,
			Abstract:     params.Abstract,
			Date:         date,
			StartTime:    startTime,
			EndTime:      endTime,
			RoomID:       int64Ptr(roomID),
			SpeakerID:    int64Ptr(speakerID),
			SuggestionID: &suggestionID,
			CreatedAt:    now,
			UpdatedAt:    now,
		}

		return nil
	})
	if err != nil {
		return persistence.Seminar{}, err
	}

	return seminar, nil
}

// GetSeminar retrieves a seminar by ID.
func (r *SeminarRepository) GetSeminar(ctx context.Context, id int64) (persistence.Seminar, error) {
	return scanSeminar(r.helper.QueryRow(ctx, `
		SELECT `+seminarColumns+`
		FROM seminars
		WHERE id = ?
	`, id))
}

// GetSeminarForSuggestion retrieves the seminar created from a suggestion.
func (r *SeminarRepository) GetSeminarForSuggestion(ctx context.Context, suggestionID int64) (persistence.Seminar, error) {
	return scanSeminar(r.helper.QueryRow(ctx, `
		SELECT `+seminarColumns+`
		FROM seminars
		WHERE suggestion_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`, suggestionID))
}

// ListSeminars returns all seminars ordered by date.
func (r *SeminarRepository) ListSeminars(ctx context.Context) ([]persistence.Seminar, error) {
	return r.querySeminars(ctx, `
		SELECT `+seminarColumns+`
		FROM seminars
		ORDER BY date ASC, start_time ASC, id ASC
	`)
}

// ListOrphanSeminars returns seminars no slot currently points at. They
// appear after "keep seminar, free the slot" and stay discoverable for
// re-linking.
func (r *SeminarRepository) ListOrphanSeminars(ctx context.Context) ([]persistence.Seminar, error) {
	return r.querySeminars(ctx, `
		SELECT `+seminarColumns+`
		FROM seminars
		WHERE id NOT IN (
			SELECT assigned_seminar_id FROM seminar_slots WHERE assigned_seminar_id IS NOT NULL
		)
		ORDER BY date ASC, id ASC
	`)
}

func (r *SeminarRepository) querySeminars(ctx context.Context, query string, args ...interface{}) ([]persistence.Seminar, error) {
	rows, err := r.helper.Query(ctx, query, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var seminars []persistence.Seminar
	for rows.Next() {
		seminar, err := scanSeminar(rows)
		if err != nil {
			return nil, err
		}
		seminars = append(seminars, seminar)
	}

	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}

	return seminars, nil
}

// UpdateSeminar updates the mutable fields of a seminar.
func (r *SeminarRepository) UpdateSeminar(ctx context.Context, seminar persistence.Seminar) error {
	result, err := r.helper.Exec(ctx, `
		UPDATE seminars
		SET title = ?, abstract = ?, date = ?, start_time = ?, end_time = ?,
			room_id = ?, speaker_id = ?, room_booked = ?, announcement_sent = ?, updated_at = ?
		WHERE id = ?
	`,
		seminar.Title,
		seminar.Abstract,
		seminar.Date,
		seminar.StartTime,
		seminar.EndTime,
		nullInt64(seminar.RoomID),
		nullInt64(seminar.SpeakerID),
		seminar.RoomBooked,
		seminar.AnnouncementSent,
		formatTime(time.Now().UTC()),
		seminar.ID,
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

// DeleteSeminar removes a seminar, its details record and its file rows,
// and frees the slot that referenced it. The returned paths name the blobs
// the caller must remove from the blob area.
func (r *SeminarRepository) DeleteSeminar(ctx context.Context, id int64) ([]string, error) {
	var paths []string

	err := r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		rows, err := r.helper.QueryTx(tx, `SELECT path FROM uploaded_files WHERE seminar_id = ?`, id)
		if err != nil {
			return r.mapper.MapError(err)
		}
		for rows.Next() {
			var path string
			if err := rows.Scan(&path); err != nil {
				rows.Close()
				return r.mapper.MapError(err)
			}
			paths = append(paths, path)
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return r.mapper.MapError(err)
		}
		rows.Close()

		if _, err := r.helper.ExecTx(tx, `DELETE FROM uploaded_files WHERE seminar_id = ?`, id); err != nil {
			return r.mapper.MapError(err)
		}
		if _, err := r.helper.ExecTx(tx, `DELETE FROM seminar_details WHERE seminar_id = ?`, id); err != nil {
			return r.mapper.MapError(err)
		}
		if _, err := r.helper.ExecTx(tx, `
			UPDATE seminar_slots
			SET status = 'available', assigned_seminar_id = NULL, assigned_suggestion_id = NULL, updated_at = ?
			WHERE assigned_seminar_id = ?
		`, formatTime(time.Now().UTC()), id); err != nil {
			return r.mapper.MapError(err)
		}

		result, err := r.helper.ExecTx(tx, `DELETE FROM seminars WHERE id = ?`, id)
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
	if err != nil {
		return nil, err
	}

	return paths, nil
}

// UpsertDetails creates or replaces the 1:1 details record of a seminar.
func (r *SeminarRepository) UpsertDetails(ctx context.Context, details persistence.SeminarDetails) error {
	if details.SeminarID == 0 {
		return persistence.ErrConstraintViolation
	}

	details.UpdatedAt = time.Now().UTC()

	_, err := r.helper.Exec(ctx, `
		INSERT INTO seminar_details (
			seminar_id, arrival_date, departure_date, travel_notes,
			accommodation_notes, payment_required, bank_details, dietary_notes, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (seminar_id) DO UPDATE SET
			arrival_date = excluded.arrival_date,
			departure_date = excluded.departure_date,
			travel_notes = excluded.travel_notes,
			accommodation_notes = excluded.accommodation_notes,
			payment_required = excluded.payment_required,
			bank_details = excluded.bank_details,
			dietary_notes = excluded.dietary_notes,
			updated_at = excluded.updated_at
	`,
		details.SeminarID,
		details.ArrivalDate,
		details.DepartureDate,
		details.TravelNotes,
		details.AccommodationNotes,
		details.PaymentRequired,
		details.BankDetails,
		details.DietaryNotes,
		formatTime(details.UpdatedAt),
	)
	if err != nil {
		return r.mapper.MapError(err)
	}

	return nil
}

// GetDetails retrieves the details record of a seminar.
func (r *SeminarRepository) GetDetails(ctx context.Context, seminarID int64) (persistence.SeminarDetails, error) {
	var details persistence.SeminarDetails
	var updatedAtStr string

	err := r.helper.QueryRow(ctx, `
		SELECT seminar_id, arrival_date, departure_date, travel_notes,
			accommodation_notes, payment_required, bank_details, dietary_notes, updated_at
		FROM seminar_details
		WHERE seminar_id = ?
	`, seminarID).Scan(
		&details.SeminarID,
		&details.ArrivalDate,
		&details.DepartureDate,
		&details.TravelNotes,
		&details.AccommodationNotes,
		&details.PaymentRequired,
		&details.BankDetails,
		&details.DietaryNotes,
		&updatedAtStr,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.SeminarDetails{}, persistence.ErrNotFound
		}
		return persistence.SeminarDetails{}, r.mapper.MapError(err)
	}

	if details.UpdatedAt, err = parseTime(updatedAtStr); err != nil {
		return persistence.SeminarDetails{}, fmt.Errorf("failed to parse updated_at: %w", err)
	}

	return details, nil
}

// AddFile records an uploaded artifact for a seminar.
func (r *SeminarRepository) AddFile(ctx context.Context, file persistence.UploadedFile) (persistence.UploadedFile, error) {
	if file.SeminarID == 0 || file.Path == "" {
		return persistence.UploadedFile{}, persistence.ErrConstraintViolation
	}
	if file.Category == "" {
		file.Category = persistence.FileOther
	}

	file.UploadedAt = time.Now().UTC()

	result, err := r.helper.Exec(ctx, `
		INSERT INTO uploaded_files (seminar_id, category, filename, path, uploaded_at)
		VALUES (?, ?, ?, ?, ?)
	`, file.SeminarID, string(file.Category), file.Filename, file.Path, formatTime(file.UploadedAt))
	if err != nil {
		return persistence.UploadedFile{}, r.mapper.MapError(err)
	}

	file.ID, err = result.LastInsertId()
	if err != nil {
		return persistence.UploadedFile{}, fmt.Errorf("failed to read inserted id: %w", err)
	}

	return file, nil
}

// ListFiles returns the seminar's uploaded files ordered by upload time.
func (r *SeminarRepository) ListFiles(ctx context.Context, seminarID int64) ([]persistence.UploadedFile, error) {
	rows, err := r.helper.Query(ctx, `
		SELECT id, seminar_id, category, filename, path, uploaded_at
		FROM uploaded_files
		WHERE seminar_id = ?
		ORDER BY uploaded_at ASC, id ASC
	`, seminarID)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var files []persistence.UploadedFile
	for rows.Next() {
		file, err := scanFile(rows)
		if err != nil {
			return nil, err
		}
		files = append(files, file)
	}

	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}

	return files, nil
}

// GetFile retrieves a file record by ID.
func (r *SeminarRepository) GetFile(ctx context.Context, id int64) (persistence.UploadedFile, error) {
	return scanFile(r.helper.QueryRow(ctx, `
		SELECT id, seminar_id, category, filename, path, uploaded_at
		FROM uploaded_files
		WHERE id = ?
	`, id))
}

// DeleteFile removes a file record.
func (r *SeminarRepository) DeleteFile(ctx context.Context, id int64) error {
	result, err := r.helper.Exec(ctx, `DELETE FROM uploaded_files WHERE id = ?`, id)
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

func scanSeminar(row rowScanner) (persistence.Seminar, error) {
	var seminar persistence.Seminar
	var roomID, speakerID, suggestionID sql.NullInt64
	var createdAtStr, updatedAtStr string

	err := row.Scan(
		&seminar.ID,
		&seminar.Title,
		&seminar.Abstract,
		&seminar.Date,
		&seminar.StartTime,
		&seminar.EndTime,
		&roomID,
		&speakerID,
		&suggestionID,
		&seminar.RoomBooked,
		&seminar.AnnouncementSent,
		&createdAtStr,
		&updatedAtStr,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.Seminar{}, persistence.ErrNotFound
		}
		return persistence.Seminar{}, NewErrorMapper().MapError(err)
	}

	seminar.RoomID = int64Ptr(roomID)
	seminar.SpeakerID = int64Ptr(speakerID)
	seminar.SuggestionID = int64Ptr(suggestionID)

	if seminar.CreatedAt, err = parseTime(createdAtStr); err != nil {
		return persistence.Seminar{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if seminar.UpdatedAt, err = parseTime(updatedAtStr); err != nil {
		return persistence.Seminar{}, fmt.Errorf("failed to parse updated_at: %w", err)
	}

	return seminar, nil
}

func scanFile(row rowScanner) (persistence.UploadedFile, error) {
	var file persistence.UploadedFile
	var category, uploadedAtStr string

	err := row.Scan(&file.ID, &file.SeminarID, &category, &file.Filename, &file.Path, &uploadedAtStr)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.UploadedFile{}, persistence.ErrNotFound
		}
		return persistence.UploadedFile{}, NewErrorMapper().MapError(err)
	}

	file.Category = persistence.FileCategory(category)

	if file.UploadedAt, err = parseTime(uploadedAtStr); err != nil {
		return persistence.UploadedFile{}, fmt.Errorf("failed to parse uploaded_at: %w", err)
	}

	return file, nil
}
