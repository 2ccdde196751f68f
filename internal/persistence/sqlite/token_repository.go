package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/example/seminar-scheduler/internal/persistence"
)

// TokenRepository implements persistence.TokenRepository using SQLite.
type TokenRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewTokenRepository creates a new SQLite token repository.
func NewTokenRepository(pool *ConnectionPool) *TokenRepository {
	return &TokenRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

const tokenColumns = `id, suggestion_id, kind, token, expires_at, used_at, created_at`

// CreateToken persists a new token record.
func (r *TokenRepository) CreateToken(ctx context.Context, token persistence.SpeakerToken) (persistence.SpeakerToken, error) {
	if token.SuggestionID == 0 || token.Token == "" {
		return persistence.SpeakerToken{}, persistence.ErrConstraintViolation
	}

	token.CreatedAt = time.Now().UTC()

	result, err := r.helper.Exec(ctx, `
		INSERT INTO speaker_tokens (suggestion_id, kind, token, expires_at, used_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		token.SuggestionID,
		string(token.Kind),
		token.Token,
		formatTime(token.ExpiresAt),
		nullTimeString(token.UsedAt),
		formatTime(token.CreatedAt),
	)
	if err != nil {
		return persistence.SpeakerToken{}, r.mapper.MapError(err)
	}

	token.ID, err = result.LastInsertId()
	if err != nil {
		return persistence.SpeakerToken{}, fmt.Errorf("failed to read inserted id: %w", err)
	}

	return token, nil
}

// GetToken looks a token up by its opaque string value.
func (r *TokenRepository) GetToken(ctx context.Context, token string) (persistence.SpeakerToken, error) {
	return scanToken(r.helper.QueryRow(ctx, `
		SELECT `+tokenColumns+`
		FROM speaker_tokens
		WHERE token = ?
	`, token))
}

// ListTokensForSuggestion returns all tokens of a suggestion, newest first.
func (r *TokenRepository) ListTokensForSuggestion(ctx context.Context, suggestionID int64) ([]persistence.SpeakerToken, error) {
	rows, err := r.helper.Query(ctx, `
		SELECT `+tokenColumns+`
		FROM speaker_tokens
		WHERE suggestion_id = ?
		ORDER BY created_at DESC, id DESC
	`, suggestionID)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var tokens []persistence.SpeakerToken
	for rows.Next() {
		token, err := scanToken(rows)
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, token)
	}

	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}

	return tokens, nil
}

// ExpireActiveTokens force-expires unexpired tokens of the given kind for a
// suggestion. Re-issuing a link revokes the superseded ones through this.
func (r *TokenRepository) ExpireActiveTokens(ctx context.Context, suggestionID int64, kind persistence.TokenKind, at time.Time) error {
	_, err := r.helper.Exec(ctx, `
		UPDATE speaker_tokens
		SET expires_at = ?
		WHERE suggestion_id = ? AND kind = ? AND expires_at > ?
	`, formatTime(at.UTC()), suggestionID, string(kind), formatTime(at.UTC()))
	if err != nil {
		return r.mapper.MapError(err)
	}

	return nil
}

// MarkUsed records first use of a token. Later uses keep the original stamp.
func (r *TokenRepository) MarkUsed(ctx context.Context, id int64, at time.Time) error {
	result, err := r.helper.Exec(ctx, `
		UPDATE speaker_tokens
		SET used_at = ?
		WHERE id = ? AND used_at IS NULL
	`, formatTime(at.UTC()), id)
	if err != nil {
		return r.mapper.MapError(err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		var exists int
		if err := r.helper.QueryRow(ctx, `SELECT COUNT(*) FROM speaker_tokens WHERE id = ?`, id).Scan(&exists); err != nil {
			return r.mapper.MapError(err)
		}
		if exists == 0 {
			return persistence.ErrNotFound
		}
	}

	return nil
}

// DeleteExpiredTokens removes tokens whose expiry lies before the cutoff.
func (r *TokenRepository) DeleteExpiredTokens(ctx context.Context, cutoff time.Time) error {
	_, err := r.helper.Exec(ctx, `
		DELETE FROM speaker_tokens WHERE expires_at < ?
	`, formatTime(cutoff.UTC()))
	if err != nil {
		return r.mapper.MapError(err)
	}

	return nil
}

func scanToken(row rowScanner) (persistence.SpeakerToken, error) {
	var token persistence.SpeakerToken
	var kind, expiresAtStr, createdAtStr string
	var usedAtStr sql.NullString

	err := row.Scan(
		&token.ID,
		&token.SuggestionID,
		&kind,
		&token.Token,
		&expiresAtStr,
		&usedAtStr,
		&createdAtStr,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.SpeakerToken{}, persistence.ErrNotFound
		}
		return persistence.SpeakerToken{}, NewErrorMapper().MapError(err)
	}

	token.Kind = persistence.TokenKind(kind)

	if token.ExpiresAt, err = parseTime(expiresAtStr); err != nil {
		return persistence.SpeakerToken{}, fmt.Errorf("failed to parse expires_at: %w", err)
	}
	if token.CreatedAt, err = parseTime(createdAtStr); err != nil {
		return persistence.SpeakerToken{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if usedAtStr.Valid {
		usedAt, parseErr := parseTime(usedAtStr.String)
		if parseErr != nil {
			return persistence.SpeakerToken{}, fmt.Errorf("failed to parse used_at: %w", parseErr)
		}
		token.UsedAt = &usedAt
	}

	return token, nil
}
