package auth

import (
	"fmt"
	"log/slog"
	"time"

	"portfolio/internal/storage"
)

const tokenTimeLayout = time.RFC3339

// TokenRecord is one persisted access token. The raw secret never touches
// storage; Hash is its bcrypt digest and Prefix the clear lookup key.
type TokenRecord struct {
	ID         int64
	Email      string
	Prefix     string
	Hash       string
	CreatedAt  time.Time
	LastUsedAt *time.Time
	Revoked    bool
}

// TokenStore persists access tokens in the portfolio database.
type TokenStore struct {
	db     *storage.DB
	logger *slog.Logger
}

// NewTokenStore creates a token store and ensures its table exists.
func NewTokenStore(db *storage.DB, logger *slog.Logger) (*TokenStore, error) {
	s := &TokenStore{db: db, logger: logger}

	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS access_tokens (
			id INTEGER PRIMARY KEY,
			email TEXT NOT NULL,
			token_prefix TEXT NOT NULL,
			token_hash TEXT NOT NULL,
			created_at TEXT NOT NULL,
			last_used_at TEXT,
			revoked INTEGER NOT NULL DEFAULT 0
		)
	`)
	if err != nil {
		return nil, fmt.Errorf("init access token table: %w", err)
	}
	if _, err := db.Exec(
		"CREATE INDEX IF NOT EXISTS idx_access_tokens_prefix ON access_tokens(token_prefix)"); err != nil {
		return nil, fmt.Errorf("init access token index: %w", err)
	}
	return s, nil
}

// Save persists a new token record.
func (s *TokenStore) Save(rec *TokenRecord) error {
	res, err := s.db.Exec(`
		INSERT INTO access_tokens (email, token_prefix, token_hash, created_at, revoked)
		VALUES (?, ?, ?, ?, 0)
	`, rec.Email, rec.Prefix, rec.Hash, rec.CreatedAt.Format(tokenTimeLayout))
	if err != nil {
		return fmt.Errorf("insert access token: %w", err)
	}
	rec.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("read new access token id: %w", err)
	}

	s.logger.Debug("access token saved", "email", rec.Email, "prefix", rec.Prefix)
	return nil
}

// ActiveByPrefix returns non-revoked tokens matching a lookup prefix.
// Typically zero or one; collisions are resolved by hash comparison.
func (s *TokenStore) ActiveByPrefix(prefix string) ([]*TokenRecord, error) {
	rows, err := s.db.Query(`
		SELECT id, email, token_prefix, token_hash, created_at, last_used_at, revoked
		FROM access_tokens
		WHERE token_prefix = ? AND revoked = 0
	`, prefix)
	if err != nil {
		return nil, fmt.Errorf("query access tokens by prefix: %w", err)
	}
	defer rows.Close()

	var records []*TokenRecord
	for rows.Next() {
		rec, err := scanToken(rows.Scan)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// ListByEmail returns every token, live or revoked, issued to one user.
func (s *TokenStore) ListByEmail(email string) ([]*TokenRecord, error) {
	rows, err := s.db.Query(`
		SELECT id, email, token_prefix, token_hash, created_at, last_used_at, revoked
		FROM access_tokens
		WHERE email = ?
		ORDER BY created_at DESC
	`, email)
	if err != nil {
		return nil, fmt.Errorf("query access tokens by email: %w", err)
	}
	defer rows.Close()

	var records []*TokenRecord
	for rows.Next() {
		rec, err := scanToken(rows.Scan)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// TouchLastUsed stamps a successful verification.
func (s *TokenStore) TouchLastUsed(id int64) error {
	_, err := s.db.Exec("UPDATE access_tokens SET last_used_at = ? WHERE id = ?",
		time.Now().Format(tokenTimeLayout), id)
	if err != nil {
		return fmt.Errorf("touch access token: %w", err)
	}
	return nil
}

// Revoke marks every token of one user as revoked.
func (s *TokenStore) Revoke(email string) (int64, error) {
	res, err := s.db.Exec("UPDATE access_tokens SET revoked = 1 WHERE email = ? AND revoked = 0", email)
	if err != nil {
		return 0, fmt.Errorf("revoke access tokens: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("read rows affected: %w", err)
	}

	s.logger.Info("access tokens revoked", "email", email, "count", n)
	return n, nil
}

func scanToken(scan func(...interface{}) error) (*TokenRecord, error) {
	var (
		rec       TokenRecord
		createdAt string
		lastUsed  *string
		revoked   int
	)
	if err := scan(&rec.ID, &rec.Email, &rec.Prefix, &rec.Hash, &createdAt, &lastUsed, &revoked); err != nil {
		return nil, fmt.Errorf("scan access token: %w", err)
	}

	t, err := time.Parse(tokenTimeLayout, createdAt)
	if err != nil {
		return nil, fmt.Errorf("invalid token timestamp %q: %w", createdAt, err)
	}
	rec.CreatedAt = t

	if lastUsed != nil {
		t, err := time.Parse(tokenTimeLayout, *lastUsed)
		if err != nil {
			return nil, fmt.Errorf("invalid token timestamp %q: %w", *lastUsed, err)
		}
		rec.LastUsedAt = &t
	}
	rec.Revoked = revoked != 0
	return &rec, nil
}
