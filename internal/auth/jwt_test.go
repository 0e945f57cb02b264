package auth

import (
	"testing"
	"time"
)

func TestTokenRoundTrip(t *testing.T) {
	m, err := NewManager("test-secret", time.Hour)
	if err != nil {
		t.Fatalf("manager: %v", err)
	}
	token, err := m.IssueToken("user-123")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	got, err := m.VerifyToken(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if got != "user-123" {
		t.Fatalf("user got %q", got)
	}
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	a, _ := NewManager("secret-a", time.Hour)
	b, _ := NewManager("secret-b", time.Hour)
	token, err := a.IssueToken("user-123")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := b.VerifyToken(token); err == nil {
		t.Fatalf("expected token signed with another secret to fail")
	}
}

func TestVerifyRejectsExpired(t *testing.T) {
	m, _ := NewManager("test-secret", time.Hour)
	m.ttl = -time.Hour
	token, err := m.IssueToken("user-123")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := m.VerifyToken(token); err == nil {
		t.Fatalf("expected expired token to fail")
	}
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("correct horse battery")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if !CheckPassword(hash, "correct horse battery") {
		t.Fatalf("expected matching password to verify")
	}
	if CheckPassword(hash, "wrong password") {
		t.Fatalf("expected wrong password to fail")
	}
	if _, err := HashPassword("short"); err == nil {
		t.Fatalf("expected short password to be rejected")
	}
}
