package storefile_test

import (
	"errors"
	"path/filepath"
	"testing"

	"gotest.tools/v3/assert"

	"github.com/nikbrunner/bmsync/internal/model"
	"github.com/nikbrunner/bmsync/internal/storage"
	"github.com/nikbrunner/bmsync/internal/storefile"
)

func addURL(t *testing.T, s *model.Store, title, url, folderPath string) *model.Bookmark {
	t.Helper()
	folder := s.EnsureFolderPath(folderPath)
	assert.Assert(t, folder != nil, "unknown root in %q", folderPath)
	bm := model.NewBookmark(model.NewBookmarkParams{Type: model.TypeURL, Title: title, URL: url})
	s.Add(bm, folder.ID, "")
	return bm
}

func exportToFile(t *testing.T, s *model.Store) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "export.json")
	assert.NilError(t, storefile.Export(s, path))
	return path
}

func newPersister(t *testing.T) *storage.JSONStorage {
	t.Helper()
	dir := t.TempDir()
	return storage.NewJSONStorage(filepath.Join(dir, "store.json"), filepath.Join(dir, "backups"))
}

func TestPlanImport_Additions(t *testing.T) {
	foreign := model.NewStore()
	addURL(t, foreign, "Go", "https://go.dev", "bookmark_bar/Dev")
	path := exportToFile(t, foreign)

	preview, err := storefile.PlanImport(model.NewStore(), path)
	assert.NilError(t, err)
	assert.Equal(t, len(preview.Additions), 1)
	assert.Equal(t, len(preview.Conflicts), 0)
	assert.Equal(t, preview.Additions[0].FolderPath, "bookmark_bar/Dev")
}

func TestPlanImport_ExactDuplicateSkipped(t *testing.T) {
	store := model.NewStore()
	addURL(t, store, "Go", "https://go.dev", "bookmark_bar")

	foreign := model.NewStore()
	addURL(t, foreign, "Go", "https://go.dev", "bookmark_bar")
	path := exportToFile(t, foreign)

	preview, err := storefile.PlanImport(store, path)
	assert.NilError(t, err)
	assert.Equal(t, len(preview.Additions), 0)
	assert.Equal(t, len(preview.Conflicts), 0)
}

func TestPlanImport_ConflictOnTitleOnly(t *testing.T) {
	store := model.NewStore()
	addURL(t, store, "Go homepage", "https://go.dev", "bookmark_bar")

	foreign := model.NewStore()
	addURL(t, foreign, "The Go site", "https://go.dev/", "bookmark_bar")
	path := exportToFile(t, foreign)

	preview, err := storefile.PlanImport(store, path)
	assert.NilError(t, err)
	assert.Equal(t, len(preview.Additions), 0)
	assert.Equal(t, len(preview.Conflicts), 1)
	assert.Equal(t, preview.Conflicts[0].Existing.Title, "Go homepage")
	assert.Equal(t, preview.Conflicts[0].Imported.Title, "The Go site")
	assert.Equal(t, preview.Conflicts[0].Resolution, storefile.Unresolved)
}

func TestPlanImport_SamePathDifferentFolderIsAddition(t *testing.T) {
	store := model.NewStore()
	addURL(t, store, "Go", "https://go.dev", "bookmark_bar")

	foreign := model.NewStore()
	addURL(t, foreign, "Go", "https://go.dev", "other")
	path := exportToFile(t, foreign)

	preview, err := storefile.PlanImport(store, path)
	assert.NilError(t, err)
	assert.Equal(t, len(preview.Additions), 1)
}

func TestExecuteImport_Merge(t *testing.T) {
	store := model.NewStore()
	addURL(t, store, "Old title", "https://a.com", "bookmark_bar")

	foreign := model.NewStore()
	addURL(t, foreign, "New title", "https://a.com", "bookmark_bar")
	addURL(t, foreign, "Fresh", "https://fresh.example.com", "other/Inbox")
	path := exportToFile(t, foreign)

	preview, err := storefile.PlanImport(store, path)
	assert.NilError(t, err)
	assert.Equal(t, len(preview.Conflicts), 1)
	preview.Conflicts[0].Resolution = storefile.UseImported

	added, updated, err := storefile.ExecuteImport(store, preview, storefile.ModeMerge, newPersister(t))
	assert.NilError(t, err)
	assert.Equal(t, added, 1)
	assert.Equal(t, updated, 1)

	assert.Equal(t, store.Roots["bookmark_bar"].Children[0].Title, "New title")
	inbox := store.EnsureFolderPath("other/Inbox")
	assert.Equal(t, len(inbox.Children), 1)
	assert.Equal(t, inbox.Children[0].URL, "https://fresh.example.com")
}

func TestExecuteImport_UnresolvedConflictIsNoOp(t *testing.T) {
	store := model.NewStore()
	addURL(t, store, "Keep me", "https://a.com", "bookmark_bar")

	foreign := model.NewStore()
	addURL(t, foreign, "Replace me", "https://a.com", "bookmark_bar")
	path := exportToFile(t, foreign)

	preview, err := storefile.PlanImport(store, path)
	assert.NilError(t, err)

	added, updated, err := storefile.ExecuteImport(store, preview, storefile.ModeMerge, newPersister(t))
	assert.NilError(t, err)
	assert.Equal(t, added, 0)
	assert.Equal(t, updated, 0)
	assert.Equal(t, store.Roots["bookmark_bar"].Children[0].Title, "Keep me")
}

func TestExecuteImport_Overwrite(t *testing.T) {
	store := model.NewStore()
	addURL(t, store, "Doomed", "https://doomed.example.com", "bookmark_bar")

	foreign := model.NewStore()
	addURL(t, foreign, "Survivor", "https://survivor.example.com", "other")
	addURL(t, foreign, "Nested survivor", "https://nested.example.com", "other/Archive")
	path := exportToFile(t, foreign)

	preview, err := storefile.PlanImport(store, path)
	assert.NilError(t, err)

	added, _, err := storefile.ExecuteImport(store, preview, storefile.ModeOverwrite, newPersister(t))
	assert.NilError(t, err)
	// The count covers URL bookmarks only, not the Archive folder.
	assert.Equal(t, added, 2)

	urls := store.URLEntries()
	assert.Equal(t, len(urls), 2)
	assert.Equal(t, urls[0].Bookmark.Title, "Survivor")
	assert.Equal(t, urls[1].FolderPath(), "other/Archive")
}

// failingPersister fails backups to prove the import aborts first.
type failingPersister struct{}

func (failingPersister) Save(*model.Store) error             { return nil }
func (failingPersister) Backup(*model.Store) (string, error) { return "", errors.New("disk full") }

func TestExecuteImport_BackupFailureAborts(t *testing.T) {
	store := model.NewStore()

	foreign := model.NewStore()
	addURL(t, foreign, "Never lands", "https://never.example.com", "bookmark_bar")
	path := exportToFile(t, foreign)

	preview, err := storefile.PlanImport(store, path)
	assert.NilError(t, err)

	added, updated, err := storefile.ExecuteImport(store, preview, storefile.ModeMerge, failingPersister{})
	assert.Assert(t, err != nil, "backup failure must abort the import")
	assert.Equal(t, added, 0)
	assert.Equal(t, updated, 0)
	assert.Equal(t, len(store.AllBookmarks()), 0, "no mutation after aborted backup")
}

func TestExportRoundTrip(t *testing.T) {
	store := model.NewStore()
	addURL(t, store, "Go", "https://go.dev", "bookmark_bar/Dev")
	path := exportToFile(t, store)

	preview, err := storefile.PlanImport(model.NewStore(), path)
	assert.NilError(t, err)
	assert.Equal(t, len(preview.Additions), 1)
	assert.Equal(t, preview.Additions[0].Bookmark.Title, "Go")
}
