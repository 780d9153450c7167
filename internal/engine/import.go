package engine

import (
	"errors"
	"fmt"

	"github.com/nikbrunner/bmsync/internal/model"
)

// Import pulls one browser's bookmarks into the store. Bookmarks already
// present at the same (normalized url, folder path) are skipped; folders
// are matched by exact title. The store is persisted when anything was
// added.
func (e *Engine) Import(name string, store *model.Store) (added, skipped int, err error) {
	info, c, err := e.browserTarget(name)
	if err != nil {
		return 0, 0, err
	}

	e.report("read", "reading "+name+" bookmarks")
	snap, err := c.Read(info.BookmarkPath)
	if err != nil {
		return 0, 0, fmt.Errorf("import from %s: %w", name, err)
	}

	e.report("merge", "merging into store")
	added, skipped = MergeSnapshot(store, snap)

	if added > 0 {
		if err := e.Storage.Save(store); err != nil {
			return added, skipped, err
		}
	}
	e.report("done", fmt.Sprintf("%s: %d added, %d skipped", name, added, skipped))
	return added, skipped, nil
}

// ImportResult is the outcome of one browser within a batch import.
type ImportResult struct {
	Browser string
	Added   int
	Skipped int
	Err     error
}

// ImportAll imports from every installed browser, strictly sequentially
// against the same store. A single browser's failure does not stop the
// batch; all failures are aggregated into the returned error.
func (e *Engine) ImportAll(store *model.Store) ([]ImportResult, error) {
	var results []ImportResult
	var errs []error
	for _, info := range e.Env.Detect() {
		if !info.Installed {
			continue
		}
		added, skipped, err := e.Import(info.Name, store)
		results = append(results, ImportResult{Browser: info.Name, Added: added, Skipped: skipped, Err: err})
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", info.Name, err))
		}
	}
	return results, errors.Join(errs...)
}

// MergeSnapshot merges a browser (or file) snapshot into the store,
// additively. Returns how many URL bookmarks were added and how many
// were skipped as duplicates of an existing (normalized url, folder
// path) entry. Folder matching is title-exact and case-sensitive.
func MergeSnapshot(store, snap *model.Store) (added, skipped int) {
	seen := make(map[string]bool)
	for _, entry := range store.URLEntries() {
		seen[dedupKey(entry.Bookmark.URL, entry.FolderPath())] = true
	}

	var walk func(snapFolder, storeFolder *model.Bookmark, path string)
	walk = func(snapFolder, storeFolder *model.Bookmark, path string) {
		for _, child := range snapFolder.Children {
			if child.IsFolder() {
				target := childFolderByTitle(storeFolder, child.Title)
				if target == nil {
					target = model.NewFolder(child.Title)
					store.Add(target, storeFolder.ID, "")
				}
				walk(child, target, path+"/"+child.Title)
				continue
			}

			key := dedupKey(child.URL, path)
			if seen[key] {
				skipped++
				continue
			}
			bm := model.NewBookmark(model.NewBookmarkParams{
				Type:          model.TypeURL,
				Title:         child.Title,
				URL:           child.URL,
				DateAdded:     child.DateAdded,
				DateModified:  child.DateModified,
				SourceBrowser: child.SourceBrowser,
				SourceID:      child.SourceID,
			})
			store.Add(bm, storeFolder.ID, "")
			seen[key] = true
			added++
		}
	}

	for _, name := range model.RootNames {
		snapRoot := snap.Roots[name]
		storeRoot := store.Roots[name]
		if snapRoot == nil || storeRoot == nil {
			continue
		}
		walk(snapRoot, storeRoot, name)
	}
	return added, skipped
}

func childFolderByTitle(parent *model.Bookmark, title string) *model.Bookmark {
	for _, child := range parent.Children {
		if child.IsFolder() && child.Title == title {
			return child
		}
	}
	return nil
}

func dedupKey(rawURL, folderPath string) string {
	return model.NormalizeURL(rawURL) + "\x00" + folderPath
}
