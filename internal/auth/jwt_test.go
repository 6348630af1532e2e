package auth_test

import (
	"testing"
	"time"

	"github.com/pamperspets/petshaus/internal/auth"
	"github.com/pamperspets/petshaus/internal/domain/user"
)

func testIdentity() user.Identity {
	return user.Identity{ID: "u-1", Name: "Ana", Email: "ana@x.com"}
}

func newTestManager() *auth.Manager {
	return auth.NewManager("test-secret-key", 15*time.Minute, 7*24*time.Hour)
}

func TestAccessToken_RoundTrip(t *testing.T) {
	m := newTestManager()

	raw, err := m.GenerateAccessToken(testIdentity())
	if err != nil {
		t.Fatalf("GenerateAccessToken failed: %v", err)
	}

	claims, err := m.VerifyAccessToken(raw)
	if err != nil {
		t.Fatalf("VerifyAccessToken failed: %v", err)
	}

	if claims.Identity() != testIdentity() {
		t.Fatalf("identity mismatch: got %+v", claims.Identity())
	}
}

func TestVerifyAccessToken_RejectsRefreshToken(t *testing.T) {
	m := newTestManager()

	raw, _, _, err := m.GenerateRefreshToken(testIdentity())
	if err != nil {
		t.Fatalf("GenerateRefreshToken failed: %v", err)
	}

	if _, err := m.VerifyAccessToken(raw); err == nil {
		t.Fatal("refresh token accepted as access token")
	}
}

func TestVerifyAccessToken_RejectsForeignSecret(t *testing.T) {
	raw, err := auth.NewManager("other-secret", time.Minute, time.Hour).GenerateAccessToken(testIdentity())
	if err != nil {
		t.Fatalf("GenerateAccessToken failed: %v", err)
	}

	if _, err := newTestManager().VerifyAccessToken(raw); err == nil {
		t.Fatal("token signed with another secret was accepted")
	}
}

func TestHashRefreshToken_DeterministicAndOpaque(t *testing.T) {
	m := newTestManager()

	raw, _, _, err := m.GenerateRefreshToken(testIdentity())
	if err != nil {
		t.Fatalf("GenerateRefreshToken failed: %v", err)
	}

	h1 := m.HashRefreshToken(raw)
	h2 := m.HashRefreshToken(raw)

	if h1 != h2 {
		t.Fatal("hash of the same token differs between calls")
	}

	if h1 == raw || h1 == "" {
		t.Fatalf("hash should not equal or embed the raw token")
	}
}
