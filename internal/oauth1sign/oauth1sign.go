// Package oauth1sign implements OAuth 1.0a request signing per spec.md
// §4.D.1, with no network code: callers assemble the request, this package
// produces the Authorization header value.
//
// Grounded on the signature base-string construction and RFC 3986
// percent-encoding in `ninnemana-go-discogs`'s vendored `gomodule/oauth1`
// dependency; hand-rolled rather than imported because `gomodule/oauth1`
// generates its own nonce and timestamp internally, which makes the
// literal deterministic test vector in spec.md §8 S5 unreproducible
// through its public API. Stdlib crypto/hmac + crypto/sha1 + encoding/base64.
package oauth1sign

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha1" //nolint:gosec // OAuth 1.0a mandates HMAC-SHA1, not a free choice
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Credentials pairs a token with its secret, used for both the app-level
// consumer credentials and the per-user access token.
type Credentials struct {
	Token  string
	Secret string
}

// Request describes a single HTTP request to sign.
type Request struct {
	Method      string
	BaseURL     string            // URL without its query string
	QueryParams map[string]string // query parameters, included in the signed set
}

// Sign computes the OAuth 1.0a Authorization header value for req, signed
// with consumer and token credentials. It generates a fresh nonce and uses
// the current time as the timestamp.
func Sign(req Request, consumer, token Credentials) (string, error) {
	nonce, err := newNonce()
	if err != nil {
		return "", fmt.Errorf("oauth1sign: generate nonce: %w", err)
	}
	timestamp := strconv.FormatInt(time.Now().Unix(), 10)
	return sign(req, consumer, token, nonce, timestamp)
}

// sign is the deterministic core Sign delegates to; it is exported via
// SignWithNonce for tests that need the literal spec.md §8 S5 vector.
func sign(req Request, consumer, token Credentials, nonce, timestamp string) (string, error) {
	oauthParams := map[string]string{
		"oauth_consumer_key":     consumer.Token,
		"oauth_nonce":            nonce,
		"oauth_signature_method": "HMAC-SHA1",
		"oauth_timestamp":        timestamp,
		"oauth_token":            token.Token,
		"oauth_version":          "1.0",
	}

	allParams := make(map[string]string, len(oauthParams)+len(req.QueryParams))
	for k, v := range oauthParams {
		allParams[k] = v
	}
	for k, v := range req.QueryParams {
		allParams[k] = v
	}

	baseString := signatureBaseString(req.Method, req.BaseURL, allParams)
	key := encode(consumer.Secret) + "&" + encode(token.Secret)
	signature := hmacSHA1Base64(key, baseString)

	oauthParams["oauth_signature"] = signature
	return authorizationHeader(oauthParams), nil
}

// SignWithNonce signs req using the supplied nonce and timestamp instead of
// generating fresh ones. Production callers should use Sign; this exists
// so tests can reproduce the literal deterministic vector spec.md §8 S5
// names.
func SignWithNonce(req Request, consumer, token Credentials, nonce, timestamp string) (string, error) {
	return sign(req, consumer, token, nonce, timestamp)
}

// signatureBaseString builds "UPPER(method) & encode(baseURL) &
// encode(sorted_joined(params))" per spec.md §4.D.1.
func signatureBaseString(method, baseURL string, params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, encode(k)+"="+encode(params[k]))
	}
	joined := strings.Join(pairs, "&")

	return strings.ToUpper(method) + "&" + encode(baseURL) + "&" + encode(joined)
}

func hmacSHA1Base64(key, message string) string {
	mac := hmac.New(sha1.New, []byte(key))
	mac.Write([]byte(message))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// authorizationHeader builds the `OAuth k="v", ...` header value. Only the
// oauth_* parameters appear here; query parameters are signed but never
// placed in the header, per spec.md §4.D.1.
func authorizationHeader(oauthParams map[string]string) string {
	keys := make([]string, 0, len(oauthParams))
	for k := range oauthParams {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf(`%s="%s"`, k, encode(oauthParams[k])))
	}
	return "OAuth " + strings.Join(parts, ", ")
}

// encode percent-encodes s per RFC 3986, where unreserved characters are
// ALPHA / DIGIT / "-" / "." / "_" / "~". This differs from net/url's
// QueryEscape (which encodes space as "+" and leaves some reserved
// characters alone), so it is hand-rolled per spec.md §4.D.1.
func encode(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isUnreserved(c) {
			b.WriteByte(c)
		} else {
			b.WriteByte('%')
			b.WriteString(strings.ToUpper(hex.EncodeToString([]byte{c})))
		}
	}
	return b.String()
}

func isUnreserved(c byte) bool {
	switch {
	case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c >= '0' && c <= '9':
		return true
	case c == '-' || c == '.' || c == '_' || c == '~':
		return true
	default:
		return false
	}
}

func newNonce() (string, error) {
	buf := make([]byte, 16) // 128 bits, per spec.md §4.D.1
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
