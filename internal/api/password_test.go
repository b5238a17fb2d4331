package api

import "testing"

func TestHashPassword_VerifyRoundTrip(t *testing.T) {
	hashed, err := HashPassword("password123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := VerifyPassword(hashed, "password123"); err != nil {
		t.Errorf("unexpected error verifying correct password: %v", err)
	}
}

func TestVerifyPassword_WrongPassword(t *testing.T) {
	hashed, err := HashPassword("password123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := VerifyPassword(hashed, "wrong-password"); err == nil {
		t.Fatal("expected error for wrong password")
	}
}

func TestHashPassword_SaltsDiffer(t *testing.T) {
	a, err := HashPassword("password123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := HashPassword("password123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a == b {
		t.Error("expected two hashes of the same password to differ due to random salt")
	}
}

func TestVerifyPassword_MalformedStoredValue(t *testing.T) {
	if err := VerifyPassword("not-a-valid-format", "password123"); err == nil {
		t.Fatal("expected error for malformed stored value")
	}
}
