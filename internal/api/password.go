package api

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/pbkdf2"

	"discogsography/internal/apperr"
)

const (
	pbkdf2Iterations = 100_000
	pbkdf2KeyLength  = 32
	saltLength       = 16
)

// HashPassword returns the stored form "{salt_hex}:{key_hex}" per spec.md
// §9's password hash format decision.
func HashPassword(password string) (string, error) {
	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("api: generate salt: %w", err)
	}

	key := pbkdf2.Key([]byte(password), salt, pbkdf2Iterations, pbkdf2KeyLength, sha256.New)
	return hex.EncodeToString(salt) + ":" + hex.EncodeToString(key), nil
}

// VerifyPassword checks password against stored, a "{salt_hex}:{key_hex}"
// value produced by HashPassword.
func VerifyPassword(stored, password string) error {
	parts := strings.SplitN(stored, ":", 2)
	if len(parts) != 2 {
		return apperr.Unauthorized("invalid credentials")
	}

	salt, err := hex.DecodeString(parts[0])
	if err != nil {
		return apperr.Unauthorized("invalid credentials")
	}
	wantKey, err := hex.DecodeString(parts[1])
	if err != nil {
		return apperr.Unauthorized("invalid credentials")
	}

	gotKey := pbkdf2.Key([]byte(password), salt, pbkdf2Iterations, pbkdf2KeyLength, sha256.New)
	if subtle.ConstantTimeCompare(gotKey, wantKey) != 1 {
		return apperr.Unauthorized("invalid credentials")
	}
	return nil
}
