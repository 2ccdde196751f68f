package application

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/example/seminar-scheduler/internal/persistence"
)

// Token lifetimes per kind. Availability links are short-lived nags, info
// links cover the run-up to the visit, status links last the academic year.
const (
	AvailabilityTokenTTL = 30 * 24 * time.Hour
	InfoTokenTTL         = 60 * 24 * time.Hour
	StatusTokenTTL       = 365 * 24 * time.Hour
)

// TokenService issues and resolves the opaque links speakers use to reach
// their availability, info and status pages.
type TokenService struct {
	tokens      persistence.TokenRepository
	suggestions persistence.SuggestionRepository
	activity    *ActivityService
	logger      *slog.Logger

	tokenGenerator func() string
	now            func() time.Time
}

// NewTokenService wires dependencies for token operations.
func NewTokenService(
	tokens persistence.TokenRepository,
	suggestions persistence.SuggestionRepository,
	activity *ActivityService,
	logger *slog.Logger,
	tokenGenerator func() string,
	now func() time.Time,
) *TokenService {
	if tokenGenerator == nil {
		tokenGenerator = DefaultTokenGenerator
	}
	if now == nil {
		now = time.Now
	}
	return &TokenService{
		tokens:         tokens,
		suggestions:    suggestions,
		activity:       activity,
		logger:         defaultLogger(logger),
		tokenGenerator: tokenGenerator,
		now:            now,
	}
}

// DefaultTokenGenerator produces opaque, unguessable token strings. Two
// random UUIDs concatenated without separators give 256 bits of randomness.
func DefaultTokenGenerator() string {
	return strings.ReplaceAll(uuid.NewString()+uuid.NewString(), "-", "")
}

// TTLForKind returns the configured lifetime of a token kind.
func TTLForKind(kind persistence.TokenKind) (time.Duration, bool) {
	switch kind {
	case persistence.TokenAvailability:
		return AvailabilityTokenTTL, true
	case persistence.TokenInfo:
		return InfoTokenTTL, true
	case persistence.TokenStatus:
		return StatusTokenTTL, true
	default:
		return 0, false
	}
}

// Issue creates a fresh token of the given kind for a suggestion. Issuing
// revokes earlier unexpired tokens of the same kind, so at most one link of
// each kind is live per suggestion.
func (s *TokenService) Issue(ctx context.Context, suggestionID int64, kind persistence.TokenKind) (persistence.SpeakerToken, error) {
	logger := serviceLogger(ctx, s.logger, "token", "issue",
		"suggestion_id", suggestionID, "kind", string(kind))

	ttl, ok := TTLForKind(kind)
	if !ok {
		vErr := &ValidationError{}
		vErr.add("kind", "unknown token kind")
		return persistence.SpeakerToken{}, vErr
	}

	if _, err := s.suggestions.GetSuggestion(ctx, suggestionID); err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return persistence.SpeakerToken{}, ErrNotFound
		}
		return persistence.SpeakerToken{}, err
	}

	issuedAt := s.now().UTC()

	if err := s.tokens.ExpireActiveTokens(ctx, suggestionID, kind, issuedAt); err != nil {
		return persistence.SpeakerToken{}, err
	}

	token, err := s.tokens.CreateToken(ctx, persistence.SpeakerToken{
		SuggestionID: suggestionID,
		Kind:         kind,
		Token:        s.tokenGenerator(),
		ExpiresAt:    issuedAt.Add(ttl),
	})
	if err != nil {
		return persistence.SpeakerToken{}, err
	}

	logger.Info("token issued", slog.Time("expires_at", token.ExpiresAt))
	s.activity.Record(ctx, "", "token.issue", "suggestion", suggestionID, nil, map[string]interface{}{
		"kind":       string(kind),
		"expires_at": token.ExpiresAt.Format(time.RFC3339),
	})

	return token, nil
}

// Resolve validates an incoming token string. Unknown tokens fail with
// ErrTokenNotFound, stale ones with ErrTokenExpired. First use is recorded
// in used_at; the token itself stays valid until expiry.
func (s *TokenService) Resolve(ctx context.Context, value string, kind persistence.TokenKind) (persistence.SpeakerToken, persistence.SpeakerSuggestion, error) {
	token, err := s.tokens.GetToken(ctx, value)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return persistence.SpeakerToken{}, persistence.SpeakerSuggestion{}, ErrTokenNotFound
		}
		return persistence.SpeakerToken{}, persistence.SpeakerSuggestion{}, err
	}

	if token.Kind != kind {
		return persistence.SpeakerToken{}, persistence.SpeakerSuggestion{}, ErrTokenNotFound
	}

	now := s.now().UTC()
	if !token.ExpiresAt.After(now) {
		return persistence.SpeakerToken{}, persistence.SpeakerSuggestion{}, ErrTokenExpired
	}

	suggestion, err := s.suggestions.GetSuggestion(ctx, token.SuggestionID)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return persistence.SpeakerToken{}, persistence.SpeakerSuggestion{}, ErrTokenNotFound
		}
		return persistence.SpeakerToken{}, persistence.SpeakerSuggestion{}, err
	}

	if token.UsedAt == nil {
		if err := s.tokens.MarkUsed(ctx, token.ID, now); err != nil {
			serviceLogger(ctx, s.logger, "token", "resolve").Warn("failed to record token use",
				slog.Int64("token_id", token.ID), slog.String("error", err.Error()))
		} else {
			token.UsedAt = &now
		}
	}

	return token, suggestion, nil
}

// ListForSuggestion returns a suggestion's tokens, newest first.
func (s *TokenService) ListForSuggestion(ctx context.Context, suggestionID int64) ([]persistence.SpeakerToken, error) {
	return s.tokens.ListTokensForSuggestion(ctx, suggestionID)
}

// SweepExpired deletes tokens that expired more than grace ago. Ran from the
// maintenance cron.
func (s *TokenService) SweepExpired(ctx context.Context, grace time.Duration) error {
	cutoff := s.now().UTC().Add(-grace)
	if err := s.tokens.DeleteExpiredTokens(ctx, cutoff); err != nil {
		return err
	}
	serviceLogger(ctx, s.logger, "token", "sweep").Info("expired tokens swept",
		slog.Time("cutoff", cutoff))
	return nil
}
