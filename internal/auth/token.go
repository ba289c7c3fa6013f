// Package auth gates mutating access: a static allow-list of authorized
// emails from configuration, plus per-user access tokens for the HTTP API.
// Tokens are random secrets; only a bcrypt hash and a short lookup prefix
// are persisted.
package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

const (
	// TokenPrefix marks portfolio access tokens.
	TokenPrefix = "pfl_sk_"

	// TokenPrefixLength is the number of secret characters stored in clear
	// for lookup.
	TokenPrefixLength = 8

	// TokenLength is the random secret length in bytes before hex encoding.
	TokenLength = 32

	bcryptCost = 12
)

// GenerateToken returns a new raw token and its lookup prefix.
// Format: pfl_sk_<64 hex chars>.
func GenerateToken() (string, string, error) {
	bytes := make([]byte, TokenLength)
	if _, err := rand.Read(bytes); err != nil {
		return "", "", fmt.Errorf("generate token: %w", err)
	}

	hexToken := hex.EncodeToString(bytes)
	return TokenPrefix + hexToken, hexToken[:TokenPrefixLength], nil
}

// HashToken creates a bcrypt hash of the token's secret part.
func HashToken(token string) (string, error) {
	secret := strings.TrimPrefix(token, TokenPrefix)

	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcryptCost)
	if err != nil {
		return "", fmt.Errorf("hash token: %w", err)
	}
	return string(hash), nil
}

// VerifyToken checks a raw token against a stored hash.
func VerifyToken(token, hash string) bool {
	secret := strings.TrimPrefix(token, TokenPrefix)
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret)) == nil
}

// ExtractTokenPrefix returns the lookup prefix of a raw token.
func ExtractTokenPrefix(token string) string {
	secret := strings.TrimPrefix(token, TokenPrefix)
	if len(secret) < TokenPrefixLength {
		return secret
	}
	return secret[:TokenPrefixLength]
}

// IsValidTokenFormat checks shape without touching storage.
func IsValidTokenFormat(token string) bool {
	if !strings.HasPrefix(token, TokenPrefix) {
		return false
	}
	secret := strings.TrimPrefix(token, TokenPrefix)
	if len(secret) != TokenLength*2 {
		return false
	}
	_, err := hex.DecodeString(secret)
	return err == nil
}

// MaskToken renders a token for logs and listings.
func MaskToken(token string) string {
	if len(token) < len(TokenPrefix)+TokenPrefixLength {
		return "****"
	}
	return token[:len(TokenPrefix)+TokenPrefixLength] + "****...****"
}
