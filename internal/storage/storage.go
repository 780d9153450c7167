package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/nikbrunner/bmsync/internal/model"
)

// JSONStorage persists the bookmark store to a JSON file and keeps
// timestamped backups next to it.
type JSONStorage struct {
	path       string
	backupsDir string
}

// NewJSONStorage creates a JSONStorage for the given store file path and
// backups directory.
func NewJSONStorage(path, backupsDir string) *JSONStorage {
	return &JSONStorage{path: path, backupsDir: backupsDir}
}

// Path returns the store file path.
func (s *JSONStorage) Path() string {
	return s.path
}

// BackupsDir returns the directory timestamped backups are written to.
func (s *JSONStorage) BackupsDir() string {
	return s.backupsDir
}

// Load reads the store from the JSON file. A missing file yields a fresh
// store with the two canonical roots.
func (s *JSONStorage) Load() (*model.Store, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return model.NewStore(), nil
		}
		return nil, err
	}

	var store model.Store
	if err := json.Unmarshal(data, &store); err != nil {
		return nil, fmt.Errorf("parse %s: %w", s.path, err)
	}
	store.EnsureRoots()
	if store.Version == 0 {
		store.Version = 1
	}
	return &store, nil
}

// Save writes the store to the JSON file, bumping last_modified. Creates
// the directory if it doesn't exist.
func (s *JSONStorage) Save(store *model.Store) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return err
	}

	store.LastModified = model.NowISO()
	data, err := json.MarshalIndent(store, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(s.path, data, 0644)
}

// Backup copies the current on-disk store file into the backups directory
// under a timestamped name, materializing the file first when it does not
// exist yet. Returns the backup path.
func (s *JSONStorage) Backup(store *model.Store) (string, error) {
	if _, err := os.Stat(s.path); errors.Is(err, os.ErrNotExist) {
		if err := s.Save(store); err != nil {
			return "", fmt.Errorf("materialize store before backup: %w", err)
		}
	}
	return BackupFile(s.path, s.backupsDir, "bookmarks_", ".json")
}

// BackupFile copies src into backupsDir as prefix+timestamp+ext and
// returns the destination path. Every destructive rewrite of a persisted
// artifact is preceded by a call to this.
func BackupFile(src, backupsDir, prefix, ext string) (string, error) {
	if err := os.MkdirAll(backupsDir, 0755); err != nil {
		return "", err
	}

	timestamp := time.Now().Format("20060102_150405")
	dest := filepath.Join(backupsDir, prefix+timestamp+ext)

	in, err := os.Open(src)
	if err != nil {
		return "", fmt.Errorf("open %s for backup: %w", src, err)
	}
	defer in.Close()

	out, err := os.Create(dest)
	if err != nil {
		return "", err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		os.Remove(dest)
		return "", fmt.Errorf("copy backup to %s: %w", dest, err)
	}
	return dest, nil
}
