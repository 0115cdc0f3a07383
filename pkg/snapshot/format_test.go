package snapshot

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/yukifiles/yukifiles/internal/models"
)

func TestPair_MarshalsAsTwoElementArray(t *testing.T) {
	pair := Pair[models.AppSetting]{
		ID:     "theme",
		Record: &models.AppSetting{Key: "theme", Value: "dark"},
	}

	raw, err := json.Marshal(pair)
	if err != nil {
		t.Fatalf("marshal pair: %v", err)
	}

	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil {
		t.Fatalf("unmarshal as array: %v", err)
	}
	if len(elems) != 2 {
		t.Fatalf("expected [id, record] with 2 elements, got %d", len(elems))
	}

	var id string
	if err := json.Unmarshal(elems[0], &id); err != nil || id != "theme" {
		t.Fatalf("expected id %q first, got %q (%v)", "theme", id, err)
	}
}

func TestPair_UnmarshalRejectsWrongArity(t *testing.T) {
	var pair Pair[models.AppSetting]
	if err := json.Unmarshal([]byte(`["only-id"]`), &pair); err == nil {
		t.Fatal("expected error for 1-element pair")
	}
	if err := json.Unmarshal([]byte(`["id", {}, "extra"]`), &pair); err == nil {
		t.Fatal("expected error for 3-element pair")
	}
}

func TestEncodeDecode_RoundTrip(t *testing.T) {
	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	data := &Data{
		Users: []Pair[models.User]{
			{ID: "u1", Record: &models.User{ID: "u1", Email: "a@example.com", CreatedAt: now}},
		},
		Files: []Pair[models.FileNode]{
			{ID: "f1", Record: &models.FileNode{ID: "f1", Name: "a.txt", OwnerID: "u1", Size: 3}},
		},
		ShareLinks: []Pair[models.ShareLink]{
			{ID: "tok", Record: &models.ShareLink{ID: "tok", FileID: "f1", IsActive: true}},
		},
		UserActions: []Pair[models.ActivityEntry]{
			{ID: "a1", Record: &models.ActivityEntry{ID: "a1", UserID: "u1", Action: models.ActionFileUploaded}},
			{ID: "a2", Record: &models.ActivityEntry{ID: "a2", UserID: "u1", Action: models.ActionFileDownload}},
		},
		Settings: []Pair[models.AppSetting]{
			{ID: "theme", Record: &models.AppSetting{Key: "theme", Value: "dark"}},
		},
	}

	raw, err := Encode(data)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	decoded, err := Decode(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	if len(decoded.Users) != 1 || decoded.Users[0].Record.Email != "a@example.com" {
		t.Fatalf("users did not survive the round trip: %+v", decoded.Users)
	}
	if len(decoded.Files) != 1 || decoded.Files[0].Record.Size != 3 {
		t.Fatalf("files did not survive the round trip: %+v", decoded.Files)
	}
	if !decoded.ShareLinks[0].Record.IsActive {
		t.Fatal("share link lost its active flag")
	}

	// The activity log's order is meaningful and must be preserved.
	if decoded.UserActions[0].ID != "a1" || decoded.UserActions[1].ID != "a2" {
		t.Fatalf("activity order changed: %v, %v", decoded.UserActions[0].ID, decoded.UserActions[1].ID)
	}
	if decoded.Settings[0].Record.Value != "dark" {
		t.Fatalf("settings did not survive the round trip: %+v", decoded.Settings)
	}
}

func TestDecode_ToleratesMissingSettingsKey(t *testing.T) {
	// Documents written before the settings key existed must still load.
	raw := []byte(`{"users":[],"files":[],"folders":[],"shareLinks":[],"userActions":[]}`)
	data, err := Decode(raw)
	if err != nil {
		t.Fatalf("decode legacy document: %v", err)
	}
	if len(data.Settings) != 0 {
		t.Fatalf("expected no settings, got %d", len(data.Settings))
	}
}

func TestPairsFromMap_SortsByID(t *testing.T) {
	records := map[string]*models.AppSetting{
		"c": {Key: "c"},
		"a": {Key: "a"},
		"b": {Key: "b"},
	}

	pairs := PairsFromMap(records)
	if len(pairs) != 3 {
		t.Fatalf("expected 3 pairs, got %d", len(pairs))
	}
	for i, want := range []string{"a", "b", "c"} {
		if pairs[i].ID != want {
			t.Fatalf("pair %d: expected id %q, got %q", i, want, pairs[i].ID)
		}
	}
}

func TestMapFromPairs_LaterDuplicateWins(t *testing.T) {
	pairs := []Pair[models.AppSetting]{
		{ID: "k", Record: &models.AppSetting{Key: "k", Value: "old"}},
		{ID: "k", Record: &models.AppSetting{Key: "k", Value: "new"}},
	}

	out := MapFromPairs(pairs)
	if len(out) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(out))
	}
	if out["k"].Value != "new" {
		t.Fatalf("expected later duplicate to win, got %q", out["k"].Value)
	}
}
