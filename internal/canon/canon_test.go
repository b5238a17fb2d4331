package canon

import "testing"

func TestHash_KeyOrderIndependent(t *testing.T) {
	a := []byte(`{"id":"1","name":"Radiohead","year":1991}`)
	b := []byte(`{"year":1991,"name":"Radiohead","id":"1"}`)

	ha, err := Hash(a)
	if err != nil {
		t.Fatalf("hash a: %v", err)
	}
	hb, err := Hash(b)
	if err != nil {
		t.Fatalf("hash b: %v", err)
	}

	if ha != hb {
		t.Fatalf("expected identical hashes for reordered keys, got %s != %s", ha, hb)
	}
}

func TestHash_DifferentContentDiffers(t *testing.T) {
	a := []byte(`{"id":"1","name":"Radiohead"}`)
	b := []byte(`{"id":"1","name":"Portishead"}`)

	ha, _ := Hash(a)
	hb, _ := Hash(b)

	if ha == hb {
		t.Fatalf("expected different hashes for different content")
	}
}

func TestHash_NestedKeyOrderIndependent(t *testing.T) {
	a := []byte(`{"id":"1","aliases":[{"id":"2","name":"Thom"},{"b":1,"a":2}]}`)
	b := []byte(`{"aliases":[{"name":"Thom","id":"2"},{"a":2,"b":1}],"id":"1"}`)

	ha, _ := Hash(a)
	hb, _ := Hash(b)

	if ha != hb {
		t.Fatalf("expected identical hashes for nested reordered keys")
	}
}

func TestValid(t *testing.T) {
	ha, _ := Hash([]byte(`{"id":"1"}`))
	if !Valid(ha) {
		t.Fatalf("expected %s to be a valid hash", ha)
	}
	if Valid("not-a-hash") {
		t.Fatalf("expected invalid hash to be rejected")
	}
}

func TestHash_InvalidJSON(t *testing.T) {
	if _, err := Hash([]byte("not json")); err == nil {
		t.Fatalf("expected error for invalid JSON")
	}
}
