package cache

import (
	"testing"
	"time"
)

func TestSnapshotStore_SaveAndLoad(t *testing.T) {
	s := NewSnapshotStore(28, 100)

	nodes := []SnapshotNode{{ID: "a1", Type: "artist"}, {ID: "r1", Type: "release"}}
	center := SnapshotNode{ID: "a1", Type: "artist"}

	token, expiresAt, err := s.Save(nodes, center)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if token == "" {
		t.Fatal("expected non-empty token")
	}
	if !expiresAt.After(time.Now().UTC()) {
		t.Fatalf("expected expiresAt in the future, got %v", expiresAt)
	}

	entry, ok := s.Load(token)
	if !ok {
		t.Fatal("expected snapshot to be found")
	}
	if len(entry.Nodes) != 2 || entry.Center != center {
		t.Fatalf("unexpected entry: %+v", entry)
	}
}

func TestSnapshotStore_LoadUnknownToken(t *testing.T) {
	s := NewSnapshotStore(28, 100)
	if _, ok := s.Load("nope"); ok {
		t.Fatal("expected unknown token to miss")
	}
}

func TestSnapshotStore_ExpiredEntryEvictedOnLoad(t *testing.T) {
	s := NewSnapshotStore(0, 100)

	token, _, err := s.Save([]SnapshotNode{{ID: "a1", Type: "artist"}}, SnapshotNode{ID: "a1", Type: "artist"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	time.Sleep(time.Millisecond)

	if _, ok := s.Load(token); ok {
		t.Fatal("expected expired snapshot to miss")
	}
	if _, ok := s.entries[token]; ok {
		t.Fatal("expected expired entry to be evicted from the map")
	}
}

func TestSnapshotStore_MaxNodes(t *testing.T) {
	s := NewSnapshotStore(28, 42)
	if got := s.MaxNodes(); got != 42 {
		t.Fatalf("MaxNodes() = %d, want 42", got)
	}
}
