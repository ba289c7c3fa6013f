package auth

import (
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	apperrors "portfolio/internal/errors"
	"portfolio/internal/storage"
)

func newTestManager(t *testing.T, allowed []string) *Manager {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	db, err := storage.Open(filepath.Join(t.TempDir(), "portfolio.db"), logger)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	m, err := NewManager(db, allowed, logger)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}
	return m
}

func TestGenerateTokenFormat(t *testing.T) {
	token, prefix, err := GenerateToken()
	if err != nil {
		t.Fatalf("Failed to generate token: %v", err)
	}

	if !strings.HasPrefix(token, TokenPrefix) {
		t.Errorf("Expected token to start with %s, got %s", TokenPrefix, MaskToken(token))
	}
	if !IsValidTokenFormat(token) {
		t.Error("Generated token failed its own format check")
	}
	if len(prefix) != TokenPrefixLength {
		t.Errorf("Expected prefix length %d, got %d", TokenPrefixLength, len(prefix))
	}
	if ExtractTokenPrefix(token) != prefix {
		t.Error("Extracted prefix does not match generated prefix")
	}

	second, _, err := GenerateToken()
	if err != nil {
		t.Fatalf("Failed to generate second token: %v", err)
	}
	if token == second {
		t.Error("Two generated tokens must differ")
	}
}

func TestHashAndVerifyToken(t *testing.T) {
	token, _, err := GenerateToken()
	if err != nil {
		t.Fatalf("Failed to generate token: %v", err)
	}

	hash, err := HashToken(token)
	if err != nil {
		t.Fatalf("Failed to hash token: %v", err)
	}
	if strings.Contains(hash, strings.TrimPrefix(token, TokenPrefix)) {
		t.Error("Hash must not contain the secret")
	}

	if !VerifyToken(token, hash) {
		t.Error("Token must verify against its own hash")
	}
	other, _, _ := GenerateToken()
	if VerifyToken(other, hash) {
		t.Error("A different token must not verify")
	}
}

func TestIsAllowedCaseInsensitive(t *testing.T) {
	m := newTestManager(t, []string{"Alice@Example.com", " bob@example.com "})

	if !m.IsAllowed("alice@example.com") || !m.IsAllowed("BOB@EXAMPLE.COM") {
		t.Error("Allow-list must match case-insensitively and ignore whitespace")
	}
	if m.IsAllowed("mallory@example.com") {
		t.Error("Unlisted user must not be allowed")
	}
}

func TestIssueAndVerify(t *testing.T) {
	m := newTestManager(t, []string{"alice@example.com"})

	token, err := m.Issue("alice@example.com")
	if err != nil {
		t.Fatalf("Failed to issue token: %v", err)
	}

	email, err := m.Verify(token)
	if err != nil {
		t.Fatalf("Failed to verify token: %v", err)
	}
	if email != "alice@example.com" {
		t.Errorf("Expected alice@example.com, got %s", email)
	}

	tokens, err := m.Tokens("alice@example.com")
	if err != nil {
		t.Fatalf("Failed to list tokens: %v", err)
	}
	if len(tokens) != 1 {
		t.Fatalf("Expected one token record, got %d", len(tokens))
	}
	if tokens[0].LastUsedAt == nil {
		t.Error("Expected last_used_at to be stamped after verification")
	}
}

func TestIssueRejectsUnlistedUser(t *testing.T) {
	m := newTestManager(t, []string{"alice@example.com"})

	if _, err := m.Issue("mallory@example.com"); !apperrors.IsUnauthorized(err) {
		t.Errorf("Expected unauthorized error, got %v", err)
	}
}

func TestVerifyRejectsBadTokens(t *testing.T) {
	m := newTestManager(t, []string{"alice@example.com"})

	if _, err := m.Verify("not-a-token"); !apperrors.IsUnauthorized(err) {
		t.Errorf("Expected unauthorized error for malformed token, got %v", err)
	}

	// Well-formed but never issued.
	fabricated, _, err := GenerateToken()
	if err != nil {
		t.Fatalf("Failed to generate token: %v", err)
	}
	if _, err := m.Verify(fabricated); !apperrors.IsUnauthorized(err) {
		t.Errorf("Expected unauthorized error for unknown token, got %v", err)
	}
}

func TestRevokeInvalidatesTokens(t *testing.T) {
	m := newTestManager(t, []string{"alice@example.com"})

	token, err := m.Issue("alice@example.com")
	if err != nil {
		t.Fatalf("Failed to issue token: %v", err)
	}

	n, err := m.Revoke("alice@example.com")
	if err != nil {
		t.Fatalf("Failed to revoke tokens: %v", err)
	}
	if n != 1 {
		t.Errorf("Expected one revoked token, got %d", n)
	}

	if _, err := m.Verify(token); !apperrors.IsUnauthorized(err) {
		t.Errorf("Expected revoked token to be rejected, got %v", err)
	}
}
