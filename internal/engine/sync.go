package engine

import (
	"fmt"

	"github.com/nikbrunner/bmsync/internal/codec"
	"github.com/nikbrunner/bmsync/internal/model"
)

// ActionType enumerates what a sync plan can do. There is deliberately
// no delete action: sync is strictly additive, and loss is treated as
// worse than duplication.
type ActionType string

const (
	ActionAddToStore    ActionType = "add_to_store"
	ActionUpdateStore   ActionType = "update_store"
	ActionAddToBrowser  ActionType = "add_to_browser"
	ActionUpdateBrowser ActionType = "update_browser"
)

// Action is one planned reconciliation step. Bookmark carries the node
// holding the new data (a snapshot node for store-directed actions, a
// store node for browser-directed ones); FolderPath is its containing
// folder, root name first.
type Action struct {
	Type       ActionType
	Bookmark   *model.Bookmark
	FolderPath string
}

// PlanSync computes the additive reconciliation between the store and
// one browser without mutating either. The returned snapshot is the
// browser tree the plan was computed against. Store-directed actions
// come before browser-directed ones.
//
// Identity resolution per browser bookmark: the (browser, source id)
// provenance recorded on store nodes wins over the (normalized url,
// folder path) key, since titles and URLs can be edited browser-side
// without the bookmark becoming a different one.
func (e *Engine) PlanSync(store *model.Store, name string) ([]Action, *model.Store, error) {
	info, c, err := e.browserTarget(name)
	if err != nil {
		return nil, nil, err
	}

	e.report("read", "reading "+name+" bookmarks")
	snap, err := c.Read(info.BookmarkPath)
	if err != nil {
		return nil, nil, fmt.Errorf("plan sync with %s: %w", name, err)
	}

	e.report("plan", "comparing store and "+name)

	storeByKey := make(map[string]*model.Bookmark)
	for _, entry := range store.URLEntries() {
		key := dedupKey(entry.Bookmark.URL, entry.FolderPath())
		if _, ok := storeByKey[key]; !ok {
			storeByKey[key] = entry.Bookmark
		}
	}
	storeBySource := make(map[string]*model.Bookmark)
	for _, bm := range store.AllBookmarks() {
		if bm.SourceBrowser == name && bm.SourceID != "" {
			key := bm.SourceBrowser + "\x00" + bm.SourceID
			if _, ok := storeBySource[key]; !ok {
				storeBySource[key] = bm
			}
		}
	}

	browserKeys := make(map[string]bool)
	for _, entry := range snap.URLEntries() {
		browserKeys[dedupKey(entry.Bookmark.URL, entry.FolderPath())] = true
	}

	var storeActions, browserActions []Action

	for _, entry := range snap.URLEntries() {
		bm := entry.Bookmark

		var existing *model.Bookmark
		if bm.SourceID != "" {
			existing = storeBySource[name+"\x00"+bm.SourceID]
		}
		if existing == nil {
			existing = storeByKey[dedupKey(bm.URL, entry.FolderPath())]
		}

		if existing == nil {
			storeActions = append(storeActions, Action{
				Type:       ActionAddToStore,
				Bookmark:   bm,
				FolderPath: entry.FolderPath(),
			})
			continue
		}

		browserTime, err := model.ParseTime(bm.DateModified)
		if err != nil {
			continue
		}
		storeTime, err := model.ParseTime(existing.DateModified)
		if err != nil {
			continue
		}
		if browserTime.After(storeTime) {
			storeActions = append(storeActions, Action{
				Type:       ActionUpdateStore,
				Bookmark:   bm,
				FolderPath: entry.FolderPath(),
			})
		}
	}

	for _, entry := range store.URLEntries() {
		if !browserKeys[dedupKey(entry.Bookmark.URL, entry.FolderPath())] {
			browserActions = append(browserActions, Action{
				Type:       ActionAddToBrowser,
				Bookmark:   entry.Bookmark,
				FolderPath: entry.FolderPath(),
			})
		}
	}

	return append(storeActions, browserActions...), snap, nil
}

// ExecuteSync applies an already-resolved action list. Store-directed
// actions mutate the in-memory store; any browser-directed action
// triggers exactly one full push of the entire current store, never a
// per-action write. If the browser is running at execute time the
// store-side changes still commit and persist, the browser-side count
// is reported as zero, and the running precondition comes back as a
// non-fatal error. The store is persisted only when storeChanges > 0.
func (e *Engine) ExecuteSync(store *model.Store, name string, actions []Action) (storeChanges, browserChanges int, err error) {
	pendingBrowser := 0

	for _, action := range actions {
		switch action.Type {
		case ActionAddToStore:
			folder := store.EnsureFolderPath(action.FolderPath)
			if folder == nil {
				folder = store.Roots[model.RootBookmarkBar]
			}
			bm := model.NewBookmark(model.NewBookmarkParams{
				Type:          model.TypeURL,
				Title:         action.Bookmark.Title,
				URL:           action.Bookmark.URL,
				DateAdded:     action.Bookmark.DateAdded,
				DateModified:  action.Bookmark.DateModified,
				SourceBrowser: name,
				SourceID:      action.Bookmark.SourceID,
			})
			store.Add(bm, folder.ID, "")
			storeChanges++

		case ActionUpdateStore:
			matches := store.FindByURL(action.Bookmark.URL)
			if len(matches) > 0 {
				matches[0].Title = action.Bookmark.Title
				matches[0].DateModified = action.Bookmark.DateModified
				storeChanges++
			}

		case ActionAddToBrowser, ActionUpdateBrowser:
			pendingBrowser++
		}
	}

	var pushErr error
	if pendingBrowser > 0 {
		e.report("push", "pushing store to "+name)
		if pushErr = e.Push(name, store); pushErr == nil {
			browserChanges = pendingBrowser
		}
	}

	if storeChanges > 0 {
		if saveErr := e.Storage.Save(store); saveErr != nil {
			return storeChanges, browserChanges, saveErr
		}
	}

	e.report("done", fmt.Sprintf("%s: %d store changes, %d browser changes", name, storeChanges, browserChanges))
	return storeChanges, browserChanges, pushErr
}

// SyncResult is the outcome of one browser within a batch sync.
type SyncResult struct {
	Browser        string
	StoreChanges   int
	BrowserChanges int
	Err            error
}

// SyncAll plans and executes the full plan against every installed
// browser, strictly sequentially. A running browser only suppresses
// that browser's write; the batch continues.
func (e *Engine) SyncAll(store *model.Store) []SyncResult {
	var results []SyncResult
	for _, info := range e.Env.Detect() {
		if !info.Installed {
			continue
		}
		actions, _, err := e.PlanSync(store, info.Name)
		if err != nil {
			results = append(results, SyncResult{Browser: info.Name, Err: err})
			continue
		}
		sc, bc, err := e.ExecuteSync(store, info.Name, actions)
		results = append(results, SyncResult{Browser: info.Name, StoreChanges: sc, BrowserChanges: bc, Err: err})
	}
	return results
}

// IsRunningError reports whether a sync or push error is the non-fatal
// browser-running precondition.
func IsRunningError(err error) bool {
	return codec.IsRunningError(err)
}
