package application_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/example/seminar-scheduler/internal/application"
)

func TestPasswordHashRoundTrip(t *testing.T) {
	hash, err := application.CreatePasswordHash("s3cret", application.DefaultArgon2idParams)
	if err != nil {
		t.Fatalf("hashing failed: %v", err)
	}
	if !strings.HasPrefix(hash, "$argon2id$v=19$") {
		t.Fatalf("unexpected hash encoding %q", hash)
	}

	if err := application.VerifyPassword(hash, "s3cret"); err != nil {
		t.Fatalf("expected the original password to verify: %v", err)
	}
	if err := application.VerifyPassword(hash, "wrong"); !errors.Is(err, application.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestPasswordHashesAreSalted(t *testing.T) {
	first, err := application.CreatePasswordHash("s3cret", application.DefaultArgon2idParams)
	if err != nil {
		t.Fatalf("hashing failed: %v", err)
	}
	second, err := application.CreatePasswordHash("s3cret", application.DefaultArgon2idParams)
	if err != nil {
		t.Fatalf("hashing failed: %v", err)
	}
	if first == second {
		t.Fatal("expected distinct salts to yield distinct hashes")
	}
}

func TestVerifyPasswordRejectsMalformedHashes(t *testing.T) {
	malformed := []string{
		"",
		"plaintext",
		"$argon2i$v=19$m=65536,t=3,p=2$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=65536,t=3,p=2$not base64!$aGFzaA",
	}
	for _, hash := range malformed {
		if err := application.VerifyPassword(hash, "whatever"); !errors.Is(err, application.ErrInvalidPasswordHash) {
			t.Fatalf("hash %q: expected ErrInvalidPasswordHash, got %v", hash, err)
		}
	}

	wrongVersion := "$argon2id$v=18$m=65536,t=3,p=2$c2FsdA$aGFzaA"
	if err := application.VerifyPassword(wrongVersion, "whatever"); !errors.Is(err, application.ErrIncompatiblePasswordVersion) {
		t.Fatalf("expected ErrIncompatiblePasswordVersion, got %v", err)
	}
}
