package discogsclient

import (
	"encoding/json"
	"testing"
)

func TestCollectionPage_ReleaseIDFromBasicInformation(t *testing.T) {
	raw := []byte(`{
		"pagination": {"pages": 2},
		"releases": [
			{"instance_id": 789, "rating": 4, "date_added": "2024-01-01", "basic_information": {"id": 123, "title": "Selected Ambient Works", "year": 1992, "artists": [{"name": "Aphex Twin"}], "labels": [{"name": "Apollo"}], "formats": [{"name": "Vinyl"}]}}
		]
	}`)
	var page collectionPage
	if err := json.Unmarshal(raw, &page); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if page.Pagination.Pages != 2 {
		t.Errorf("pages = %d, want 2", page.Pagination.Pages)
	}
	if len(page.Releases) != 1 || page.Releases[0].BasicInformation.ID != 123 {
		t.Fatalf("unexpected releases: %+v", page.Releases)
	}
	if got := firstArtistName(page.Releases[0].BasicInformation.Artists); got != "Aphex Twin" {
		t.Errorf("firstArtistName() = %q, want Aphex Twin", got)
	}
}

func TestWantlistPage_ReleaseIDFromTopLevel(t *testing.T) {
	raw := []byte(`{
		"pagination": {"pages": 1},
		"wants": [
			{"id": 456, "notes": "want it", "date_added": "2024-02-01", "basic_information": {"title": "Druqks", "year": 2001}}
		]
	}`)
	var page wantlistPage
	if err := json.Unmarshal(raw, &page); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(page.Wants) != 1 || page.Wants[0].ID != 456 {
		t.Fatalf("unexpected wants: %+v", page.Wants)
	}
}

func TestFirstFormatName(t *testing.T) {
	raw := json.RawMessage(`[{"name": "Vinyl", "qty": "2"}, {"name": "CD"}]`)
	if got := firstFormatName(raw); got != "Vinyl" {
		t.Errorf("firstFormatName() = %q, want Vinyl", got)
	}
}

func TestFirstFormatName_Empty(t *testing.T) {
	if got := firstFormatName(nil); got != "" {
		t.Errorf("firstFormatName(nil) = %q, want empty", got)
	}
}
