package cache

import "testing"

func TestVerifyWebhookSecret_NotConfigured(t *testing.T) {
	if err := VerifyWebhookSecret("", "anything"); err == nil {
		t.Fatal("expected error when no secret is configured")
	}
}

func TestVerifyWebhookSecret_Mismatch(t *testing.T) {
	if err := VerifyWebhookSecret("configured-secret", "wrong-secret"); err == nil {
		t.Fatal("expected error on mismatch")
	}
}

func TestVerifyWebhookSecret_Match(t *testing.T) {
	if err := VerifyWebhookSecret("configured-secret", "configured-secret"); err != nil {
		t.Errorf("unexpected error on match: %v", err)
	}
}
