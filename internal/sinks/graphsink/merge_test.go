package graphsink

import (
	"testing"

	"discogsography/internal/catalog"
)

func TestNeo4jLabel(t *testing.T) {
	cases := map[catalog.Kind]string{
		catalog.KindArtist:  "Artist",
		catalog.KindLabel:   "Label",
		catalog.KindMaster:  "Master",
		catalog.KindRelease: "Release",
	}
	for kind, want := range cases {
		if got := neo4jLabel(kind); got != want {
			t.Errorf("neo4jLabel(%q) = %q, want %q", kind, got, want)
		}
	}
}

func TestPeekID(t *testing.T) {
	id, err := peekID([]byte(`{"id": "123", "name": "Aphex Twin"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != "123" {
		t.Errorf("got id %q, want 123", id)
	}
}

func TestPeekID_MissingID(t *testing.T) {
	if _, err := peekID([]byte(`{"name": "no id here"}`)); err == nil {
		t.Fatal("expected error for missing id, got nil")
	}
}

func TestPeekID_MalformedJSON(t *testing.T) {
	if _, err := peekID([]byte(`not json`)); err == nil {
		t.Fatal("expected error for malformed json, got nil")
	}
}

func TestIsDataError(t *testing.T) {
	if !isDataError(&dataError{err: errMissingIDInner}) {
		t.Error("expected dataError to be classified as a data error")
	}
	if isDataError(errMissingIDInner) {
		t.Error("expected a plain error not to be classified as a data error")
	}
}
