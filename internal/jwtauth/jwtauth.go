// Package jwtauth verifies bearer JWTs per spec.md §6's literal contract:
// three dot-separated parts, HMAC-SHA256 over header.payload, constant-time
// signature comparison, a JSON-decodable payload, and an optional `exp`
// boundary check. Verification is hand-rolled rather than routed through
// golang-jwt because the testable properties (constant-time compare, exact
// `exp` boundary behavior) need primitives golang-jwt doesn't expose for
// unit testing in isolation. Issuance (login) uses
// golang-jwt/jwt/v5 directly, grounded on the teacher's
// internal/services/zitadel.service.go token-construction shape.
package jwtauth

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"discogsography/internal/apperr"
)

// Claims is the decoded payload this domain issues and verifies: just a
// subject (the user UUID) and an optional expiry.
type Claims struct {
	Subject   string `json:"sub"`
	ExpiresAt int64  `json:"exp,omitempty"`
}

// Verify checks tokenString against the three conditions spec.md §6 names
// and returns the decoded claims on success.
func Verify(tokenString, secret string) (Claims, error) {
	parts := strings.Split(tokenString, ".")
	if len(parts) != 3 {
		return Claims{}, apperr.Unauthorized("malformed token")
	}
	header, payload, signature := parts[0], parts[1], parts[2]

	expectedSig := hmacSHA256(header+"."+payload, secret)
	decodedSig, err := base64.RawURLEncoding.DecodeString(signature)
	if err != nil {
		return Claims{}, apperr.Unauthorized("malformed token signature")
	}
	if subtle.ConstantTimeCompare(expectedSig, decodedSig) != 1 {
		return Claims{}, apperr.Unauthorized("invalid token signature")
	}

	payloadBytes, err := base64.RawURLEncoding.DecodeString(payload)
	if err != nil {
		return Claims{}, apperr.Unauthorized("malformed token payload")
	}

	var claims Claims
	if err := json.Unmarshal(payloadBytes, &claims); err != nil {
		return Claims{}, apperr.Unauthorized("token payload is not valid JSON")
	}

	if claims.ExpiresAt != 0 && time.Now().Unix() >= claims.ExpiresAt {
		return Claims{}, apperr.Unauthorized("token has expired")
	}

	return claims, nil
}

func hmacSHA256(message, secret string) []byte {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(message))
	return mac.Sum(nil)
}

// Issue signs a new HS256 token for userID with the given TTL, via
// golang-jwt/jwt/v5.
func Issue(userID, secret string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("jwtauth: sign token: %w", err)
	}
	return signed, nil
}
