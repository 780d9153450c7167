// Package storefile exports the store to a standalone JSON file and
// imports foreign store files back, with user-resolvable conflicts.
package storefile

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/nikbrunner/bmsync/internal/model"
)

// Mode selects how an import applies the foreign file.
type Mode string

const (
	// ModeMerge adds missing bookmarks and applies resolved conflicts.
	ModeMerge Mode = "merge"
	// ModeOverwrite replaces the store wholesale with the foreign file.
	ModeOverwrite Mode = "overwrite"
)

// Resolution is the user's decision on one conflict.
type Resolution string

const (
	Unresolved   Resolution = ""
	KeepExisting Resolution = "keep_existing"
	UseImported  Resolution = "use_imported"
)

// Addition is a foreign bookmark absent from the store.
type Addition struct {
	Bookmark   *model.Bookmark
	FolderPath string
}

// Conflict pairs an existing store bookmark with a foreign one at the
// same (normalized url, folder path) but with a different title. It is
// surfaced for user resolution, not a failure.
type Conflict struct {
	Existing   *model.Bookmark
	Imported   *model.Bookmark
	FolderPath string
	Resolution Resolution
}

// Preview is the computed effect of importing a foreign store file.
type Preview struct {
	SourcePath string
	Additions  []Addition
	Conflicts  []*Conflict
}

// Persister is the slice of store persistence the import needs.
// *storage.JSONStorage satisfies it.
type Persister interface {
	Save(store *model.Store) error
	Backup(store *model.Store) (string, error)
}

// Export writes the store as indented JSON to path.
func Export(store *model.Store, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(store, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// loadFile reads a foreign store file.
func loadFile(path string) (*model.Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var store model.Store
	if err := json.Unmarshal(data, &store); err != nil {
		return nil, fmt.Errorf("parse store file %s: %w", path, err)
	}
	store.EnsureRoots()
	return &store, nil
}

// PlanImport compares a foreign store file against the live store. A
// foreign URL bookmark whose (normalized url, folder path) key is
// absent becomes an addition; present with a different title becomes a
// conflict; present with the same title is a true duplicate and is
// silently skipped. The plan mutates nothing.
func PlanImport(store *model.Store, path string) (*Preview, error) {
	foreign, err := loadFile(path)
	if err != nil {
		return nil, err
	}

	existing := make(map[string]*model.Bookmark)
	for _, entry := range store.URLEntries() {
		key := importKey(entry.Bookmark.URL, entry.FolderPath())
		if _, ok := existing[key]; !ok {
			existing[key] = entry.Bookmark
		}
	}

	preview := &Preview{SourcePath: path}
	for _, entry := range foreign.URLEntries() {
		path := entry.FolderPath()
		current, ok := existing[importKey(entry.Bookmark.URL, path)]
		if !ok {
			preview.Additions = append(preview.Additions, Addition{
				Bookmark:   entry.Bookmark,
				FolderPath: path,
			})
			continue
		}
		if current.Title != entry.Bookmark.Title {
			preview.Conflicts = append(preview.Conflicts, &Conflict{
				Existing:   current,
				Imported:   entry.Bookmark,
				FolderPath: path,
			})
		}
	}
	return preview, nil
}

// ExecuteImport applies a previewed import. A backup of the store is
// always taken first; a backup failure aborts before any mutation.
// ModeOverwrite ignores the preview, reloads the foreign file in full
// and replaces the store's contents wholesale. ModeMerge creates every
// addition (creating folder paths as needed) and applies conflicts
// resolved as UseImported; unresolved and keep-existing conflicts are
// no-ops. Returns how many bookmarks were added and updated.
func ExecuteImport(store *model.Store, preview *Preview, mode Mode, p Persister) (added, updated int, err error) {
	if _, err := p.Backup(store); err != nil {
		return 0, 0, fmt.Errorf("backup store before import: %w", err)
	}

	switch mode {
	case ModeOverwrite:
		foreign, err := loadFile(preview.SourcePath)
		if err != nil {
			return 0, 0, err
		}
		store.Roots = foreign.Roots
		store.Version = foreign.Version
		store.LastModified = foreign.LastModified
		added = len(foreign.URLEntries())

	case ModeMerge:
		for _, add := range preview.Additions {
			folder := store.EnsureFolderPath(add.FolderPath)
			if folder == nil {
				folder = store.Roots[model.RootOther]
			}
			bm := model.NewBookmark(model.NewBookmarkParams{
				Type:             model.TypeURL,
				Title:            add.Bookmark.Title,
				URL:              add.Bookmark.URL,
				DateAdded:        add.Bookmark.DateAdded,
				DateModified:     add.Bookmark.DateModified,
				PreferredBrowser: add.Bookmark.PreferredBrowser,
				SourceBrowser:    add.Bookmark.SourceBrowser,
				SourceID:         add.Bookmark.SourceID,
			})
			store.Add(bm, folder.ID, "")
			added++
		}
		for _, conflict := range preview.Conflicts {
			if conflict.Resolution != UseImported {
				continue
			}
			conflict.Existing.Title = conflict.Imported.Title
			conflict.Existing.DateModified = conflict.Imported.DateModified
			conflict.Existing.PreferredBrowser = conflict.Imported.PreferredBrowser
			updated++
		}

	default:
		return 0, 0, fmt.Errorf("unknown import mode %q", mode)
	}

	if err := p.Save(store); err != nil {
		return added, updated, err
	}
	return added, updated, nil
}

func importKey(rawURL, folderPath string) string {
	return model.NormalizeURL(rawURL) + "\x00" + folderPath
}
