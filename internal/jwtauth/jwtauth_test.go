package jwtauth

import (
	"encoding/base64"
	"testing"
	"time"
)

const testSecret = "test-secret"

func TestIssueThenVerify_RoundTrip(t *testing.T) {
	token, err := Issue("user-123", testSecret, time.Hour)
	if err != nil {
		t.Fatalf("unexpected error issuing token: %v", err)
	}

	claims, err := Verify(token, testSecret)
	if err != nil {
		t.Fatalf("unexpected error verifying token: %v", err)
	}
	if claims.Subject != "user-123" {
		t.Errorf("subject = %q, want user-123", claims.Subject)
	}
}

func TestVerify_RejectsWrongPartCount(t *testing.T) {
	if _, err := Verify("only.two", testSecret); err == nil {
		t.Fatal("expected error for token with only two parts")
	}
	if _, err := Verify("a.b.c.d", testSecret); err == nil {
		t.Fatal("expected error for token with four parts")
	}
}

func TestVerify_RejectsWrongSecret(t *testing.T) {
	token, err := Issue("user-123", testSecret, time.Hour)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := Verify(token, "wrong-secret"); err == nil {
		t.Fatal("expected error verifying with the wrong secret")
	}
}

func TestVerify_RejectsExpiredToken(t *testing.T) {
	token, err := Issue("user-123", testSecret, -time.Hour)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := Verify(token, testSecret); err == nil {
		t.Fatal("expected error verifying an expired token")
	}
}

func TestVerify_RejectsNonJSONPayload(t *testing.T) {
	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"HS256","typ":"JWT"}`))
	payload := base64.RawURLEncoding.EncodeToString([]byte(`not json`))
	sig := hmacSHA256(header+"."+payload, testSecret)
	token := header + "." + payload + "." + base64.RawURLEncoding.EncodeToString(sig)

	if _, err := Verify(token, testSecret); err == nil {
		t.Fatal("expected error for a non-JSON payload")
	}
}

func TestVerify_AcceptsTokenWithNoExpiry(t *testing.T) {
	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"HS256","typ":"JWT"}`))
	payload := base64.RawURLEncoding.EncodeToString([]byte(`{"sub":"user-456"}`))
	sig := hmacSHA256(header+"."+payload, testSecret)
	token := header + "." + payload + "." + base64.RawURLEncoding.EncodeToString(sig)

	claims, err := Verify(token, testSecret)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if claims.Subject != "user-456" {
		t.Errorf("subject = %q, want user-456", claims.Subject)
	}
}
