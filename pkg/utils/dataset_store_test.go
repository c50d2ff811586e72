package utils

import (
	"testing"
)

func openTestStore(t *testing.T, path string) *DatasetStore {
	t.Helper()
	store, err := OpenDatasetStore(path)
	if err != nil {
		t.Fatalf("OpenDatasetStore failed: %v", err)
	}
	return store
}

func TestDatasetStoreRows(t *testing.T) {
	store := openTestStore(t, t.TempDir())
	defer store.Close()

	rows := []map[string]string{
		{"country_from": "France", "country_to": "Spain", "movement_count": "10"},
		{"country_from": "Germany", "country_to": "Poland", "movement_count": "7"},
	}
	if err := store.PutRows("https://example.com/data.csv", rows); err != nil {
		t.Fatalf("PutRows failed: %v", err)
	}

	got, err := store.GetRows("https://example.com/data.csv")
	if err != nil {
		t.Fatalf("GetRows failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Expected 2 rows back, got %d", len(got))
	}
	if got[0]["country_from"] != "France" || got[1]["movement_count"] != "7" {
		t.Errorf("Rows did not round-trip: %v", got)
	}
}

func TestDatasetStoreGetRowsAbsent(t *testing.T) {
	store := openTestStore(t, t.TempDir())
	defer store.Close()

	rows, err := store.GetRows("https://example.com/missing.csv")
	if err != nil {
		t.Fatalf("GetRows on a missing key should not error: %v", err)
	}
	if rows != nil {
		t.Errorf("Expected nil for a missing key, got %d rows", len(rows))
	}
}

func TestDatasetStoreSeen(t *testing.T) {
	store := openTestStore(t, t.TempDir())
	defer store.Close()

	key := "France|Spain|10|2.35|48.85"
	seen, err := store.Seen(key)
	if err != nil {
		t.Fatalf("Seen failed: %v", err)
	}
	if seen {
		t.Error("Fresh key should not be seen")
	}

	if err := store.MarkSeen(key); err != nil {
		t.Fatalf("MarkSeen failed: %v", err)
	}
	seen, err = store.Seen(key)
	if err != nil {
		t.Fatalf("Seen failed: %v", err)
	}
	if !seen {
		t.Error("Marked key should be seen")
	}
}

func TestDatasetStoreSeenPersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	store := openTestStore(t, dir)
	if err := store.MarkSeen("persistent-key"); err != nil {
		t.Fatalf("MarkSeen failed: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	store = openTestStore(t, dir)
	defer store.Close()
	seen, err := store.Seen("persistent-key")
	if err != nil {
		t.Fatalf("Seen failed after reopen: %v", err)
	}
	if !seen {
		t.Error("Seen keys must survive a reopen")
	}
}

func TestDatasetStoreForEachSeen(t *testing.T) {
	store := openTestStore(t, t.TempDir())
	defer store.Close()

	keys := []string{"a", "b", "c"}
	for _, k := range keys {
		if err := store.MarkSeen(k); err != nil {
			t.Fatalf("MarkSeen(%s) failed: %v", k, err)
		}
	}

	found := make(map[string]bool)
	err := store.ForEachSeen(func(key string) error {
		found[key] = true
		return nil
	})
	if err != nil {
		t.Fatalf("ForEachSeen failed: %v", err)
	}
	for _, k := range keys {
		if !found[k] {
			t.Errorf("Key %s missing from iteration", k)
		}
	}
	if len(found) != len(keys) {
		t.Errorf("Expected %d keys, iterated %d", len(keys), len(found))
	}
}
