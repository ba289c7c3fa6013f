package auth

import (
	"log/slog"
	"strings"
	"time"

	apperrors "portfolio/internal/errors"
	"portfolio/internal/storage"
)

// Manager combines the configured allow-list with the token store. Identity
// is an opaque email string; every mutating call downstream receives it for
// audit attribution.
type Manager struct {
	store   *TokenStore
	allowed map[string]bool
	logger  *slog.Logger
}

// NewManager creates a manager over the database with the given allow-list.
func NewManager(db *storage.DB, allowedUsers []string, logger *slog.Logger) (*Manager, error) {
	store, err := NewTokenStore(db, logger)
	if err != nil {
		return nil, err
	}

	allowed := make(map[string]bool, len(allowedUsers))
	for _, email := range allowedUsers {
		allowed[strings.ToLower(strings.TrimSpace(email))] = true
	}

	return &Manager{store: store, allowed: allowed, logger: logger}, nil
}

// IsAllowed reports whether an email is on the allow-list.
func (m *Manager) IsAllowed(email string) bool {
	return m.allowed[strings.ToLower(strings.TrimSpace(email))]
}

// Issue creates a new access token for an allowed user and returns the raw
// token, shown exactly once.
func (m *Manager) Issue(email string) (string, error) {
	if !m.IsAllowed(email) {
		return "", apperrors.Newf(apperrors.Unauthorized, "user %q is not authorized", email)
	}

	token, prefix, err := GenerateToken()
	if err != nil {
		return "", apperrors.Wrap(apperrors.StorageFailure, "issue token", err)
	}
	hash, err := HashToken(token)
	if err != nil {
		return "", apperrors.Wrap(apperrors.StorageFailure, "issue token", err)
	}

	rec := &TokenRecord{
		Email:     strings.ToLower(strings.TrimSpace(email)),
		Prefix:    prefix,
		Hash:      hash,
		CreatedAt: time.Now(),
	}
	if err := m.store.Save(rec); err != nil {
		return "", apperrors.Wrap(apperrors.StorageFailure, "issue token", err)
	}

	m.logger.Info("access token issued", "email", rec.Email, "token", MaskToken(token))
	return token, nil
}

// Verify resolves a raw token to its owner's email. The owner must still be
// on the allow-list: removing a user from configuration invalidates their
// tokens without touching storage.
func (m *Manager) Verify(token string) (string, error) {
	if !IsValidTokenFormat(token) {
		return "", apperrors.New(apperrors.Unauthorized, "malformed access token")
	}

	records, err := m.store.ActiveByPrefix(ExtractTokenPrefix(token))
	if err != nil {
		return "", apperrors.Wrap(apperrors.StorageFailure, "verify token", err)
	}

	for _, rec := range records {
		if !VerifyToken(token, rec.Hash) {
			continue
		}
		if !m.IsAllowed(rec.Email) {
			return "", apperrors.Newf(apperrors.Unauthorized, "user %q is no longer authorized", rec.Email)
		}
		if err := m.store.TouchLastUsed(rec.ID); err != nil {
			m.logger.Warn("failed to stamp token use", "error", err)
		}
		return rec.Email, nil
	}

	return "", apperrors.New(apperrors.Unauthorized, "unknown access token")
}

// Revoke invalidates every token issued to one user.
func (m *Manager) Revoke(email string) (int64, error) {
	return m.store.Revoke(strings.ToLower(strings.TrimSpace(email)))
}

// Tokens lists a user's tokens for display.
func (m *Manager) Tokens(email string) ([]*TokenRecord, error) {
	return m.store.ListByEmail(strings.ToLower(strings.TrimSpace(email)))
}
