package persist

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"pkt.systems/tileboard/schema"
)

func TestStoreLoadMissing(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(filepath.Join(dir, "session.json"))
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	_, ok, err := store.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if ok {
		t.Fatalf("expected missing record")
	}
}

func TestStoreSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(filepath.Join(dir, "session.json"))
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	updatedBy := schema.ParticipantID(1)
	rec := SessionRecord{
		Code:          "x = 1\ny = 2",
		SavedAt:       time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC),
		LastUpdatedBy: &updatedBy,
	}
	if err := store.Save(rec); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, ok, err := store.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !ok {
		t.Fatalf("expected record to exist")
	}
	if got.Code != rec.Code {
		t.Fatalf("code mismatch: %q", got.Code)
	}
	if !got.SavedAt.Equal(rec.SavedAt) {
		t.Fatalf("savedAt mismatch: %v", got.SavedAt)
	}
	if got.LastUpdatedBy == nil || *got.LastUpdatedBy != 1 {
		t.Fatalf("lastUpdatedBy mismatch: %v", got.LastUpdatedBy)
	}
}

func TestStoreLoadInvalidJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "session.json")
	store, err := NewStore(path)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	if err := os.WriteFile(path, []byte("{not-json"), 0o600); err != nil {
		t.Fatalf("write bad json: %v", err)
	}
	if _, _, err := store.Load(); err == nil {
		t.Fatalf("expected error for invalid JSON")
	}
}

func TestStoreClear(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "session.json")
	store, err := NewStore(path)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	if err := store.Clear(); err != nil {
		t.Fatalf("clear missing file: %v", err)
	}
	if err := store.Save(SessionRecord{Code: "x", SavedAt: time.Now()}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := store.Clear(); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("session file still exists")
	}
	if _, ok, err := store.Load(); err != nil || ok {
		t.Fatalf("load after clear: ok=%v err=%v", ok, err)
	}
}
