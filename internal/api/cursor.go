package api

import (
	"encoding/base64"
	"encoding/json"
)

// cursor is the opaque pagination token shape: base64url(json({"offset": N})).
type cursor struct {
	Offset int `json:"offset"`
}

// encodeCursor produces the opaque token for offset.
func encodeCursor(offset int) string {
	body, _ := json.Marshal(cursor{Offset: offset})
	return base64.RawURLEncoding.EncodeToString(body)
}

// decodeCursor never errors: spec.md §8's boundary behavior requires an
// invalid cursor to decode as offset=0 rather than surface a 400.
func decodeCursor(token string) int {
	if token == "" {
		return 0
	}
	body, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return 0
	}
	var c cursor
	if err := json.Unmarshal(body, &c); err != nil {
		return 0
	}
	if c.Offset < 0 {
		return 0
	}
	return c.Offset
}
