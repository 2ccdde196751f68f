package application_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/seminar-scheduler/internal/application"
	"github.com/example/seminar-scheduler/internal/persistence"
	"github.com/example/seminar-scheduler/internal/testfixtures"
)

func TestDefaultTokenGeneratorShape(t *testing.T) {
	first := application.DefaultTokenGenerator()
	second := application.DefaultTokenGenerator()

	if len(first) != 64 {
		t.Fatalf("expected 64 characters, got %d", len(first))
	}
	if first == second {
		t.Fatal("expected successive tokens to differ")
	}
	for _, r := range first {
		if r == '-' {
			t.Fatal("token must not contain separators")
		}
	}
}

func TestTTLForKind(t *testing.T) {
	cases := []struct {
		kind persistence.TokenKind
		ttl  time.Duration
		ok   bool
	}{
		{persistence.TokenAvailability, application.AvailabilityTokenTTL, true},
		{persistence.TokenInfo, application.InfoTokenTTL, true},
		{persistence.TokenStatus, application.StatusTokenTTL, true},
		{persistence.TokenKind("session"), 0, false},
	}
	for _, tc := range cases {
		ttl, ok := application.TTLForKind(tc.kind)
		if ok != tc.ok || ttl != tc.ttl {
			t.Fatalf("kind %q: expected (%v, %v), got (%v, %v)", tc.kind, tc.ttl, tc.ok, ttl, ok)
		}
	}
}

func TestTokenIssueAndResolve(t *testing.T) {
	f := testfixtures.NewServiceFactory(t)
	suggestion := f.Harness.SeedSuggestion(t)
	svc := f.TokenService()
	ctx := context.Background()

	issued, err := svc.Issue(ctx, suggestion.ID, persistence.TokenAvailability)
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	if issued.Token == "" {
		t.Fatal("expected a token value")
	}
	wantExpiry := f.Clock.Current().UTC().Add(application.AvailabilityTokenTTL)
	if !issued.ExpiresAt.Equal(wantExpiry) {
		t.Fatalf("expected expiry %v, got %v", wantExpiry, issued.ExpiresAt)
	}

	token, resolved, err := svc.Resolve(ctx, issued.Token, persistence.TokenAvailability)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if resolved.ID != suggestion.ID {
		t.Fatalf("expected suggestion %d, got %d", suggestion.ID, resolved.ID)
	}
	if token.UsedAt == nil {
		t.Fatal("expected used_at to be stamped on first resolve")
	}
	firstUse := *token.UsedAt

	// A later resolve keeps the original first-use timestamp.
	f.Clock.Advance(time.Hour)
	token, _, err = svc.Resolve(ctx, issued.Token, persistence.TokenAvailability)
	if err != nil {
		t.Fatalf("second resolve failed: %v", err)
	}
	if token.UsedAt == nil || !token.UsedAt.Equal(firstUse) {
		t.Fatalf("expected used_at to stay %v, got %v", firstUse, token.UsedAt)
	}
}

func TestTokenResolveUnknown(t *testing.T) {
	f := testfixtures.NewServiceFactory(t)
	svc := f.TokenService()

	_, _, err := svc.Resolve(context.Background(), "no-such-token", persistence.TokenAvailability)
	if !errors.Is(err, application.ErrTokenNotFound) {
		t.Fatalf("expected ErrTokenNotFound, got %v", err)
	}
}

func TestTokenResolveKindMismatch(t *testing.T) {
	f := testfixtures.NewServiceFactory(t)
	suggestion := f.Harness.SeedSuggestion(t)
	svc := f.TokenService()
	ctx := context.Background()

	issued, err := svc.Issue(ctx, suggestion.ID, persistence.TokenInfo)
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	// An info link must not open the status page.
	_, _, err = svc.Resolve(ctx, issued.Token, persistence.TokenStatus)
	if !errors.Is(err, application.ErrTokenNotFound) {
		t.Fatalf("expected ErrTokenNotFound, got %v", err)
	}
}

func TestTokenExpiryBoundary(t *testing.T) {
	f := testfixtures.NewServiceFactory(t)
	suggestion := f.Harness.SeedSuggestion(t)
	svc := f.TokenService()
	ctx := context.Background()

	issued, err := svc.Issue(ctx, suggestion.ID, persistence.TokenAvailability)
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	f.Clock.Advance(application.AvailabilityTokenTTL - time.Second)
	if _, _, err := svc.Resolve(ctx, issued.Token, persistence.TokenAvailability); err != nil {
		t.Fatalf("expected token to still resolve just before expiry, got %v", err)
	}

	f.Clock.Advance(time.Second)
	_, _, err = svc.Resolve(ctx, issued.Token, persistence.TokenAvailability)
	if !errors.Is(err, application.ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired at the expiry instant, got %v", err)
	}
}

func TestTokenReissueRevokesPrevious(t *testing.T) {
	f := testfixtures.NewServiceFactory(t)
	suggestion := f.Harness.SeedSuggestion(t)
	svc := f.TokenService()
	ctx := context.Background()

	first, err := svc.Issue(ctx, suggestion.ID, persistence.TokenAvailability)
	if err != nil {
		t.Fatalf("first issue failed: %v", err)
	}

	f.Clock.Advance(time.Minute)
	second, err := svc.Issue(ctx, suggestion.ID, persistence.TokenAvailability)
	if err != nil {
		t.Fatalf("second issue failed: %v", err)
	}
	if first.Token == second.Token {
		t.Fatal("expected a fresh token value on reissue")
	}

	_, _, err = svc.Resolve(ctx, first.Token, persistence.TokenAvailability)
	if !errors.Is(err, application.ErrTokenExpired) {
		t.Fatalf("expected revoked token to report ErrTokenExpired, got %v", err)
	}
	if _, _, err := svc.Resolve(ctx, second.Token, persistence.TokenAvailability); err != nil {
		t.Fatalf("expected replacement token to resolve, got %v", err)
	}
}

func TestTokenReissueLeavesOtherKindsAlone(t *testing.T) {
	f := testfixtures.NewServiceFactory(t)
	suggestion := f.Harness.SeedSuggestion(t)
	svc := f.TokenService()
	ctx := context.Background()

	status, err := svc.Issue(ctx, suggestion.ID, persistence.TokenStatus)
	if err != nil {
		t.Fatalf("status issue failed: %v", err)
	}
	if _, err := svc.Issue(ctx, suggestion.ID, persistence.TokenAvailability); err != nil {
		t.Fatalf("availability issue failed: %v", err)
	}

	if _, _, err := svc.Resolve(ctx, status.Token, persistence.TokenStatus); err != nil {
		t.Fatalf("expected status token to survive an availability reissue, got %v", err)
	}
}

func TestTokenIssueUnknownKind(t *testing.T) {
	f := testfixtures.NewServiceFactory(t)
	suggestion := f.Harness.SeedSuggestion(t)
	svc := f.TokenService()

	_, err := svc.Issue(context.Background(), suggestion.ID, persistence.TokenKind("magic"))
	var vErr *application.ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if vErr.FieldErrors["kind"] == "" {
		t.Fatalf("expected a kind field error, got %v", vErr.FieldErrors)
	}
}

func TestTokenIssueUnknownSuggestion(t *testing.T) {
	f := testfixtures.NewServiceFactory(t)
	svc := f.TokenService()

	_, err := svc.Issue(context.Background(), 9999, persistence.TokenAvailability)
	if !errors.Is(err, application.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestTokenSweepExpired(t *testing.T) {
	f := testfixtures.NewServiceFactory(t)
	suggestion := f.Harness.SeedSuggestion(t)
	svc := f.TokenService()
	ctx := context.Background()

	availability, err := svc.Issue(ctx, suggestion.ID, persistence.TokenAvailability)
	if err != nil {
		t.Fatalf("availability issue failed: %v", err)
	}
	if _, err := svc.Issue(ctx, suggestion.ID, persistence.TokenStatus); err != nil {
		t.Fatalf("status issue failed: %v", err)
	}

	// Past the availability TTL plus grace, but well inside the status TTL.
	f.Clock.Advance(application.AvailabilityTokenTTL + 48*time.Hour)
	if err := svc.SweepExpired(ctx, 24*time.Hour); err != nil {
		t.Fatalf("sweep failed: %v", err)
	}

	remaining, err := svc.ListForSuggestion(ctx, suggestion.ID)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(remaining) != 1 {
		t.Fatalf("expected 1 surviving token, got %d", len(remaining))
	}
	if remaining[0].Kind != persistence.TokenStatus {
		t.Fatalf("expected the status token to survive, got %s", remaining[0].Kind)
	}
	if remaining[0].Token == availability.Token {
		t.Fatal("expected the expired availability token to be swept")
	}
}
