// Package canon canonicalizes JSON payloads and derives the content hash
// both sinks use to skip unchanged records.
//
// Generalized from the teacher's internal/utils.HashFields, which hashed a
// map of reflected Go struct fields with sorted keys. The dedup invariant
// here hashes the raw source JSON a message carries, not a struct derived
// from it, so canonicalization walks a decoded interface{} tree instead of
// reflecting over field names.
package canon

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"sort"
)

// JSON re-marshals an arbitrary JSON payload with object keys sorted at
// every nesting level, so that two byte-different-but-semantically-equal
// payloads canonicalize to the same bytes.
func JSON(raw []byte) ([]byte, error) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("canon: decode payload: %w", err)
	}
	return json.Marshal(normalize(v))
}

// Hash returns the hex-encoded SHA-256 of the canonicalized payload.
func Hash(raw []byte) (string, error) {
	c, err := JSON(raw)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(c)
	return fmt.Sprintf("%x", sum), nil
}

// normalize converts a decoded JSON tree into a form whose encoding/json
// output is deterministic: maps become sortedMap, which marshals keys in
// sorted order; everything else passes through unchanged since slices and
// scalars already marshal deterministically.
func normalize(v any) any {
	switch t := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		ordered := make(sortedMap, 0, len(t))
		for _, k := range keys {
			ordered = append(ordered, kv{k, normalize(t[k])})
		}
		return ordered
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = normalize(e)
		}
		return out
	default:
		return t
	}
}

type kv struct {
	key string
	val any
}

// sortedMap marshals as a JSON object preserving insertion order, which
// normalize has already sorted by key.
type sortedMap []kv

func (m sortedMap) MarshalJSON() ([]byte, error) {
	buf := []byte{'{'}
	for i, pair := range m {
		if i > 0 {
			buf = append(buf, ',')
		}
		keyBytes, err := json.Marshal(pair.key)
		if err != nil {
			return nil, err
		}
		valBytes, err := json.Marshal(pair.val)
		if err != nil {
			return nil, err
		}
		buf = append(buf, keyBytes...)
		buf = append(buf, ':')
		buf = append(buf, valBytes...)
	}
	buf = append(buf, '}')
	return buf, nil
}

// Equal compares two previously computed hashes.
func Equal(a, b string) bool {
	return a == b
}

// Valid reports whether s looks like a SHA-256 hex digest.
func Valid(s string) bool {
	if len(s) != 64 {
		return false
	}
	for _, c := range s {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f')) {
			return false
		}
	}
	return true
}
