package storage_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nikbrunner/bmsync/internal/model"
	"github.com/nikbrunner/bmsync/internal/storage"
)

func newStorage(t *testing.T) *storage.JSONStorage {
	t.Helper()
	tmpDir := t.TempDir()
	return storage.NewJSONStorage(
		filepath.Join(tmpDir, "bookmarks.json"),
		filepath.Join(tmpDir, "backups"),
	)
}

func TestJSONStorage_SaveAndLoad(t *testing.T) {
	s := newStorage(t)

	store := model.NewStore()
	dev := model.NewFolder("Dev")
	store.Add(dev, "", "bookmark_bar")
	bm := model.NewBookmark(model.NewBookmarkParams{
		Type: model.TypeURL, Title: "Go", URL: "https://go.dev",
	})
	store.Add(bm, dev.ID, "")

	if err := s.Save(store); err != nil {
		t.Fatalf("failed to save: %v", err)
	}

	loaded, err := s.Load()
	if err != nil {
		t.Fatalf("failed to load: %v", err)
	}

	bar := loaded.Roots["bookmark_bar"]
	if bar == nil || len(bar.Children) != 1 {
		t.Fatal("bookmark_bar lost in save/load")
	}
	if bar.Children[0].Title != "Dev" {
		t.Errorf("expected folder 'Dev', got %q", bar.Children[0].Title)
	}
	if loaded.LastModified == "" {
		t.Error("last_modified should be set on save")
	}
}

func TestJSONStorage_LoadMissingYieldsFreshStore(t *testing.T) {
	s := newStorage(t)

	store, err := s.Load()
	if err != nil {
		t.Fatalf("expected no error for missing file, got: %v", err)
	}

	if store.Roots["bookmark_bar"] == nil || store.Roots["other"] == nil {
		t.Fatal("fresh store should carry the two canonical roots")
	}
	if len(store.AllBookmarks()) != 0 {
		t.Error("fresh store should be empty")
	}
}

func TestJSONStorage_LoadMalformed(t *testing.T) {
	s := newStorage(t)
	if err := os.MkdirAll(filepath.Dir(s.Path()), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(s.Path(), []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := s.Load(); err == nil {
		t.Error("expected error for malformed store file")
	}
}

func TestJSONStorage_BackupCreatesTimestampedCopy(t *testing.T) {
	s := newStorage(t)
	store := model.NewStore()
	if err := s.Save(store); err != nil {
		t.Fatal(err)
	}

	dest, err := s.Backup(store)
	if err != nil {
		t.Fatalf("backup failed: %v", err)
	}

	if !strings.HasPrefix(filepath.Base(dest), "bookmarks_") {
		t.Errorf("unexpected backup name: %s", dest)
	}
	if _, err := os.Stat(dest); err != nil {
		t.Errorf("backup file missing: %v", err)
	}
}

func TestJSONStorage_BackupMaterializesMissingFile(t *testing.T) {
	s := newStorage(t)
	store := model.NewStore()

	// No Save before Backup: the store file does not exist yet.
	if _, err := s.Backup(store); err != nil {
		t.Fatalf("backup should materialize the store file first: %v", err)
	}
	if _, err := os.Stat(s.Path()); err != nil {
		t.Error("store file should exist after backup")
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")

	config, err := storage.LoadConfig(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if config.DefaultRoot != "bookmark_bar" {
		t.Errorf("expected default root bookmark_bar, got %q", config.DefaultRoot)
	}
	if len(config.AuditExcludeDomains) == 0 {
		t.Error("expected default audit exclusions")
	}
}
