package oauth1sign

import (
	"crypto/hmac"
	"crypto/sha1" //nolint:gosec // test vector mandated by the OAuth 1.0a spec
	"encoding/base64"
	"testing"
)

// TestSign_S5Vector reproduces spec.md §8 S5's literal deterministic vector.
func TestSign_S5Vector(t *testing.T) {
	req := Request{
		Method:      "GET",
		BaseURL:     "https://api.discogs.com/users/me/wants",
		QueryParams: nil,
	}
	consumer := Credentials{Token: "ck", Secret: "cs"}
	token := Credentials{Token: "tok", Secret: "ts"}

	header, err := SignWithNonce(req, consumer, token, "n", "1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	wantBaseString := "GET&https%3A%2F%2Fapi.discogs.com%2Fusers%2Fme%2Fwants&" +
		"oauth_consumer_key%3Dck%26oauth_nonce%3Dn%26oauth_signature_method%3DHMAC-SHA1" +
		"%26oauth_timestamp%3D1%26oauth_token%3Dtok%26oauth_version%3D1.0"
	mac := hmac.New(sha1.New, []byte("cs&ts"))
	mac.Write([]byte(wantBaseString))
	wantSignature := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	if !containsEncodedSignature(header, wantSignature) {
		t.Errorf("header %q does not contain expected signature %q", header, wantSignature)
	}
}

func TestSignatureBaseString_MatchesS5(t *testing.T) {
	params := map[string]string{
		"oauth_consumer_key":     "ck",
		"oauth_nonce":            "n",
		"oauth_signature_method": "HMAC-SHA1",
		"oauth_timestamp":        "1",
		"oauth_token":            "tok",
		"oauth_version":          "1.0",
	}
	got := signatureBaseString("GET", "https://api.discogs.com/users/me/wants", params)
	want := "GET&https%3A%2F%2Fapi.discogs.com%2Fusers%2Fme%2Fwants&" +
		"oauth_consumer_key%3Dck%26oauth_nonce%3Dn%26oauth_signature_method%3DHMAC-SHA1" +
		"%26oauth_timestamp%3D1%26oauth_token%3Dtok%26oauth_version%3D1.0"
	if got != want {
		t.Errorf("signatureBaseString() = %q, want %q", got, want)
	}
}

func TestEncode_Unreserved(t *testing.T) {
	if got := encode("abcABC123-._~"); got != "abcABC123-._~" {
		t.Errorf("encode(unreserved) = %q, want unchanged", got)
	}
}

func TestEncode_ReservedCharacters(t *testing.T) {
	if got := encode("a b/c:d"); got != "a%20b%2Fc%3Ad" {
		t.Errorf("encode() = %q, want %q", got, "a%20b%2Fc%3Ad")
	}
}

func TestAuthorizationHeader_OmitsQueryParams(t *testing.T) {
	req := Request{
		Method:      "GET",
		BaseURL:     "https://api.discogs.com/database/search",
		QueryParams: map[string]string{"q": "aphex twin"},
	}
	consumer := Credentials{Token: "ck", Secret: "cs"}
	token := Credentials{Token: "tok", Secret: "ts"}

	header, err := SignWithNonce(req, consumer, token, "n", "1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if containsSubstring(header, "q=") || containsSubstring(header, `q="`) {
		t.Errorf("header must not contain query parameters: %q", header)
	}
}

func containsEncodedSignature(header, signature string) bool {
	return containsSubstring(header, encode(signature))
}

func containsSubstring(s, substr string) bool {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}
