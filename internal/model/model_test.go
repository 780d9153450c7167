package model_test

import (
	"encoding/json"
	"testing"

	"github.com/nikbrunner/bmsync/internal/model"
)

func newURLBookmark(title, url string) *model.Bookmark {
	return model.NewBookmark(model.NewBookmarkParams{
		Type:  model.TypeURL,
		Title: title,
		URL:   url,
	})
}

func TestNewStore_CreatesCanonicalRoots(t *testing.T) {
	store := model.NewStore()

	for _, name := range []string{"bookmark_bar", "other"} {
		root := store.Roots[name]
		if root == nil {
			t.Fatalf("missing root %q", name)
		}
		if !root.IsFolder() {
			t.Errorf("root %q should be a folder", name)
		}
		if len(root.Children) != 0 {
			t.Errorf("root %q should start empty", name)
		}
	}
}

func TestStore_AddToParentFolder(t *testing.T) {
	store := model.NewStore()
	folder := model.NewFolder("Dev")
	store.Add(folder, "", "bookmark_bar")

	bm := newURLBookmark("Go", "https://go.dev")
	parent := store.Add(bm, folder.ID, "")

	if parent != folder {
		t.Fatalf("expected bookmark under Dev, got parent %v", parent)
	}
	if bm.ParentID != folder.ID {
		t.Errorf("parent_id not set: got %q", bm.ParentID)
	}
	if bm.Position != 0 {
		t.Errorf("expected position 0, got %d", bm.Position)
	}
}

func TestStore_AddFallsBackToRoot(t *testing.T) {
	store := model.NewStore()

	bm := newURLBookmark("Example", "https://example.com")
	parent := store.Add(bm, "no-such-folder", "other")

	if parent == nil || parent.ID != store.Roots["other"].ID {
		t.Fatalf("expected fallback to other root, got %v", parent)
	}
	if bm.ParentID != store.Roots["other"].ID {
		t.Errorf("parent_id should point at the other root")
	}
}

func TestStore_AddToURLNodeFallsBack(t *testing.T) {
	store := model.NewStore()
	urlNode := newURLBookmark("Not a folder", "https://example.com")
	store.Add(urlNode, "", "bookmark_bar")

	bm := newURLBookmark("Child", "https://child.example.com")
	parent := store.Add(bm, urlNode.ID, "bookmark_bar")

	if parent == nil || parent.ID != store.Roots["bookmark_bar"].ID {
		t.Fatal("adding under a URL node should fall back to the root")
	}
	if len(urlNode.Children) != 0 {
		t.Error("URL nodes must never gain children")
	}
}

func TestStore_AddRemoveRestoresContiguousPositions(t *testing.T) {
	store := model.NewStore()
	root := store.Roots["bookmark_bar"]

	var middle *model.Bookmark
	for i, title := range []string{"a", "b", "c", "d"} {
		bm := newURLBookmark(title, "https://"+title+".example.com")
		store.Add(bm, "", "bookmark_bar")
		if i == 1 {
			middle = bm
		}
	}

	removed := store.Remove(middle.ID)
	if removed == nil || removed.ID != middle.ID {
		t.Fatal("expected to remove the middle bookmark")
	}

	for i, child := range root.Children {
		if child.Position != i {
			t.Errorf("position %d not contiguous: got %d", i, child.Position)
		}
	}
	if len(root.Children) != 3 {
		t.Errorf("expected 3 children, got %d", len(root.Children))
	}
}

func TestStore_RemoveBumpsParentNotChild(t *testing.T) {
	store := model.NewStore()
	root := store.Roots["bookmark_bar"]
	bm := newURLBookmark("a", "https://a.example.com")
	store.Add(bm, "", "bookmark_bar")

	before := bm.DateModified
	store.Remove(bm.ID)

	if bm.DateModified != before {
		t.Error("removed node's date_modified must not change")
	}
	if root.DateModified == "" {
		t.Error("parent's date_modified should be set")
	}
}

func TestStore_RemoveMissing(t *testing.T) {
	store := model.NewStore()
	if store.Remove("nope") != nil {
		t.Error("expected nil for missing id")
	}
}

func TestStore_Move(t *testing.T) {
	store := model.NewStore()
	dev := model.NewFolder("Dev")
	store.Add(dev, "", "bookmark_bar")

	a := newURLBookmark("a", "https://a.example.com")
	b := newURLBookmark("b", "https://b.example.com")
	store.Add(a, "", "other")
	store.Add(b, dev.ID, "")

	if !store.Move(a.ID, dev.ID, 0) {
		t.Fatal("move should succeed")
	}
	if dev.Children[0].ID != a.ID || dev.Children[1].ID != b.ID {
		t.Error("expected a inserted before b")
	}
	for i, c := range dev.Children {
		if c.Position != i {
			t.Errorf("position %d not re-indexed: got %d", i, c.Position)
		}
	}
	if len(store.Roots["other"].Children) != 0 {
		t.Error("a should have left the other root")
	}

	// Out-of-range position clamps to append.
	if !store.Move(a.ID, dev.ID, 99) {
		t.Fatal("clamped move should succeed")
	}
	if dev.Children[len(dev.Children)-1].ID != a.ID {
		t.Error("expected a appended at the end")
	}
}

func TestStore_MoveInvalidTarget(t *testing.T) {
	store := model.NewStore()
	a := newURLBookmark("a", "https://a.example.com")
	store.Add(a, "", "bookmark_bar")

	if store.Move(a.ID, "no-such-folder", 0) {
		t.Error("move to a missing folder should fail")
	}
	if store.Move(a.ID, a.ID, 0) {
		t.Error("move under a URL node should fail")
	}
	if store.FindByID(a.ID) == nil {
		t.Error("failed move must not lose the node")
	}
	if store.Move("missing", store.Roots["other"].ID, 0) {
		t.Error("moving a missing id should fail")
	}
}

func TestStore_MoveIntoOwnSubtreeFails(t *testing.T) {
	store := model.NewStore()
	outer := model.NewFolder("Outer")
	store.Add(outer, "", "bookmark_bar")
	inner := model.NewFolder("Inner")
	store.Add(inner, outer.ID, "")
	a := newURLBookmark("a", "https://a.example.com")
	store.Add(a, outer.ID, "")

	if store.Move(outer.ID, inner.ID, -1) {
		t.Error("moving a folder into its own descendant should fail")
	}
	if store.Move(outer.ID, outer.ID, -1) {
		t.Error("moving a folder into itself should fail")
	}

	// The whole subtree must still be reachable from its root.
	if store.FindByID(outer.ID) == nil || store.FindByID(inner.ID) == nil || store.FindByID(a.ID) == nil {
		t.Fatal("rejected move must not detach the subtree")
	}
	if len(store.Roots["bookmark_bar"].Children) != 1 {
		t.Errorf("bookmark_bar has %d children, want 1", len(store.Roots["bookmark_bar"].Children))
	}
	if outer.Children[0].ID != inner.ID || outer.Children[1].ID != a.ID {
		t.Error("rejected move must leave child order untouched")
	}
}

func TestStore_FindByURL_ReturnsAllMatches(t *testing.T) {
	store := model.NewStore()
	store.Add(newURLBookmark("one", "https://example.com/p"), "", "bookmark_bar")
	store.Add(newURLBookmark("two", "HTTPS://EXAMPLE.com/p/"), "", "other")
	store.Add(newURLBookmark("other", "https://different.com"), "", "other")

	matches := store.FindByURL("https://example.com/p#frag")
	if len(matches) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(matches))
	}
}

func TestStore_FindBySource(t *testing.T) {
	store := model.NewStore()
	bm := model.NewBookmark(model.NewBookmarkParams{
		Type:          model.TypeURL,
		Title:         "From Chrome",
		URL:           "https://example.com",
		SourceBrowser: "chrome",
		SourceID:      "42",
	})
	store.Add(bm, "", "bookmark_bar")

	if found := store.FindBySource("chrome", "42"); found == nil || found.ID != bm.ID {
		t.Error("expected to find bookmark by source provenance")
	}
	if store.FindBySource("firefox", "42") != nil {
		t.Error("source browser must match exactly")
	}
}

func TestStore_AllBookmarks_PreOrder(t *testing.T) {
	store := model.NewStore()
	dev := model.NewFolder("Dev")
	store.Add(dev, "", "bookmark_bar")
	inner := newURLBookmark("inner", "https://inner.example.com")
	store.Add(inner, dev.ID, "")
	top := newURLBookmark("top", "https://top.example.com")
	store.Add(top, "", "other")

	all := store.AllBookmarks()
	if len(all) != 3 {
		t.Fatalf("expected 3 nodes, got %d", len(all))
	}
	if all[0].ID != dev.ID || all[1].ID != inner.ID || all[2].ID != top.ID {
		t.Error("expected pre-order: Dev, inner, top")
	}
}

func TestStore_FolderPath(t *testing.T) {
	store := model.NewStore()
	dev := model.NewFolder("Dev")
	store.Add(dev, "", "bookmark_bar")
	golang := model.NewFolder("Go")
	store.Add(golang, dev.ID, "")
	bm := newURLBookmark("docs", "https://go.dev/doc")
	store.Add(bm, golang.ID, "")

	if got := store.FolderPath(bm); got != "bookmark_bar/Dev/Go" {
		t.Errorf("FolderPath = %q, want %q", got, "bookmark_bar/Dev/Go")
	}
	if got := store.FolderPath(dev); got != "bookmark_bar" {
		t.Errorf("FolderPath for top-level folder = %q, want %q", got, "bookmark_bar")
	}
}

func TestStore_EnsureFolderPath(t *testing.T) {
	store := model.NewStore()

	folder := store.EnsureFolderPath("other/Dev/Go")
	if folder == nil || folder.Title != "Go" {
		t.Fatalf("expected Go folder, got %v", folder)
	}

	// Second call reuses the existing folders.
	again := store.EnsureFolderPath("other/Dev/Go")
	if again.ID != folder.ID {
		t.Error("expected existing folder to be reused")
	}
	if len(store.Roots["other"].Children) != 1 {
		t.Error("Dev folder should not be duplicated")
	}

	// Folder matching is case-sensitive by design.
	lower := store.EnsureFolderPath("other/dev")
	if lower.ID == store.Roots["other"].Children[0].ID {
		t.Error("\"dev\" must be distinct from \"Dev\"")
	}

	if store.EnsureFolderPath("synced/Dev") != nil {
		t.Error("unknown root should yield nil")
	}
}

func TestStore_URLEntries(t *testing.T) {
	store := model.NewStore()
	dev := model.NewFolder("Dev")
	store.Add(dev, "", "bookmark_bar")
	store.Add(newURLBookmark("inner", "https://inner.example.com"), dev.ID, "")
	store.Add(newURLBookmark("top", "https://top.example.com"), "", "other")

	entries := store.URLEntries()
	if len(entries) != 2 {
		t.Fatalf("expected 2 URL entries, got %d", len(entries))
	}
	if entries[0].FolderPath() != "bookmark_bar/Dev" {
		t.Errorf("entry 0 path = %q", entries[0].FolderPath())
	}
	if entries[1].FolderPath() != "other" {
		t.Errorf("entry 1 path = %q", entries[1].FolderPath())
	}
}

func TestStore_JSONRoundTrip(t *testing.T) {
	store := model.NewStore()
	dev := model.NewFolder("Dev")
	store.Add(dev, "", "bookmark_bar")
	store.Add(newURLBookmark("Go", "https://go.dev"), dev.ID, "")

	data, err := json.Marshal(store)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var got model.Store
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	bar := got.Roots["bookmark_bar"]
	if bar == nil || len(bar.Children) != 1 {
		t.Fatal("bookmark_bar structure lost in round trip")
	}
	if bar.Children[0].Title != "Dev" || len(bar.Children[0].Children) != 1 {
		t.Error("nested structure lost in round trip")
	}
	if bar.Children[0].Children[0].URL != "https://go.dev" {
		t.Error("URL lost in round trip")
	}
}
