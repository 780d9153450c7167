package model

import "strings"

// Canonical root names. Every store carries exactly these two roots.
const (
	RootBookmarkBar = "bookmark_bar"
	RootOther       = "other"
)

// RootNames lists the canonical roots in traversal order.
var RootNames = []string{RootBookmarkBar, RootOther}

// Store is the canonical, application-owned bookmark tree.
type Store struct {
	Version      int                  `json:"version"`
	LastModified string               `json:"last_modified"`
	Roots        map[string]*Bookmark `json:"roots"`
}

// NewStore creates an empty Store with the two canonical root folders.
func NewStore() *Store {
	now := NowISO()
	bar := NewFolder("Bookmarks Bar")
	other := NewFolder("Other Bookmarks")
	bar.DateAdded, bar.DateModified = now, now
	other.DateAdded, other.DateModified = now, now
	return &Store{
		Version:      1,
		LastModified: now,
		Roots: map[string]*Bookmark{
			RootBookmarkBar: bar,
			RootOther:       other,
		},
	}
}

// EnsureRoots creates any missing canonical root, for stores loaded from
// incomplete files.
func (s *Store) EnsureRoots() {
	if s.Roots == nil {
		s.Roots = make(map[string]*Bookmark)
	}
	titles := map[string]string{
		RootBookmarkBar: "Bookmarks Bar",
		RootOther:       "Other Bookmarks",
	}
	for _, name := range RootNames {
		if s.Roots[name] == nil {
			s.Roots[name] = NewFolder(titles[name])
		}
	}
}

// Add appends bm as the last child of the folder identified by parentID.
// When parentID is empty or does not resolve to an existing folder, the
// node falls back to the named root (bookmark_bar when rootName is empty).
// The returned node is the parent actually used, so callers can observe
// the fallback.
func (s *Store) Add(bm *Bookmark, parentID, rootName string) *Bookmark {
	if parentID != "" {
		if parent := s.FindByID(parentID); parent != nil && parent.IsFolder() {
			s.appendChild(parent, bm)
			return parent
		}
	}
	if rootName == "" {
		rootName = RootBookmarkBar
	}
	root := s.Roots[rootName]
	if root == nil {
		return nil
	}
	s.appendChild(root, bm)
	return root
}

func (s *Store) appendChild(parent, bm *Bookmark) {
	bm.ParentID = parent.ID
	bm.Position = len(parent.Children)
	parent.Children = append(parent.Children, bm)
	parent.Touch()
}

// Remove detaches the node with the given id and returns the removed
// subtree, or nil when no node matches. Remaining siblings are re-indexed
// to contiguous positions.
func (s *Store) Remove(id string) *Bookmark {
	for _, name := range RootNames {
		if root := s.Roots[name]; root != nil {
			if removed := removeFrom(root, id); removed != nil {
				return removed
			}
		}
	}
	return nil
}

func removeFrom(parent *Bookmark, id string) *Bookmark {
	for i, child := range parent.Children {
		if child.ID == id {
			parent.Children = append(parent.Children[:i], parent.Children[i+1:]...)
			reindex(parent.Children)
			parent.Touch()
			return child
		}
		if removed := removeFrom(child, id); removed != nil {
			return removed
		}
	}
	return nil
}

func reindex(children []*Bookmark) {
	for i, c := range children {
		c.Position = i
	}
}

// Move reattaches the node with the given id under newParentID at the
// given position. Out-of-range positions clamp to append. Returns false
// when the node is missing, newParentID is not an existing folder, or
// the destination lies inside the moved subtree (the move would detach
// it from every root); the tree is left untouched in that case.
func (s *Store) Move(id, newParentID string, position int) bool {
	newParent := s.FindByID(newParentID)
	if newParent == nil || !newParent.IsFolder() {
		return false
	}
	node := s.FindByID(id)
	if node == nil {
		return false
	}
	if node.ID == newParentID || findIn(node, newParentID) != nil {
		return false
	}
	bm := s.Remove(id)
	if bm == nil {
		return false
	}

	bm.ParentID = newParentID
	if position < 0 || position > len(newParent.Children) {
		position = len(newParent.Children)
	}
	newParent.Children = append(newParent.Children, nil)
	copy(newParent.Children[position+1:], newParent.Children[position:])
	newParent.Children[position] = bm
	reindex(newParent.Children)
	newParent.Touch()
	return true
}

// FindByID returns the node with the given id, including the roots
// themselves, or nil.
func (s *Store) FindByID(id string) *Bookmark {
	for _, name := range RootNames {
		root := s.Roots[name]
		if root == nil {
			continue
		}
		if root.ID == id {
			return root
		}
		if found := findIn(root, id); found != nil {
			return found
		}
	}
	return nil
}

func findIn(parent *Bookmark, id string) *Bookmark {
	for _, child := range parent.Children {
		if child.ID == id {
			return child
		}
		if found := findIn(child, id); found != nil {
			return found
		}
	}
	return nil
}

// FindByURL returns every URL bookmark matching the normalized URL.
// Duplicates across folders are all returned, in pre-order.
func (s *Store) FindByURL(rawURL string) []*Bookmark {
	target := NormalizeURL(rawURL)
	var results []*Bookmark
	for _, bm := range s.AllBookmarks() {
		if bm.Type == TypeURL && NormalizeURL(bm.URL) == target {
			results = append(results, bm)
		}
	}
	return results
}

// FindBySource returns the first node recorded as originating from the
// given browser-native id, or nil.
func (s *Store) FindBySource(sourceBrowser, sourceID string) *Bookmark {
	for _, bm := range s.AllBookmarks() {
		if bm.SourceBrowser == sourceBrowser && bm.SourceID == sourceID {
			return bm
		}
	}
	return nil
}

// AllBookmarks returns every non-root node across all roots in pre-order.
func (s *Store) AllBookmarks() []*Bookmark {
	var results []*Bookmark
	for _, name := range RootNames {
		if root := s.Roots[name]; root != nil {
			collect(root, &results)
		}
	}
	return results
}

func collect(parent *Bookmark, results *[]*Bookmark) {
	for _, child := range parent.Children {
		*results = append(*results, child)
		collect(child, results)
	}
}

// FolderPath returns the slash-joined path of folders containing bm,
// starting with the root name, e.g. "bookmark_bar/Dev".
func (s *Store) FolderPath(bm *Bookmark) string {
	rootNames := make(map[string]string, len(RootNames))
	for _, name := range RootNames {
		if root := s.Roots[name]; root != nil {
			rootNames[root.ID] = name
		}
	}

	var parts []string
	cur := bm
	for cur.ParentID != "" {
		parent := s.FindByID(cur.ParentID)
		if parent == nil {
			break
		}
		if name, ok := rootNames[parent.ID]; ok {
			parts = append(parts, name)
			break
		}
		parts = append(parts, parent.Title)
		cur = parent
	}
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return strings.Join(parts, "/")
}

// URLEntry pairs a URL bookmark with the location that contains it.
type URLEntry struct {
	Bookmark *Bookmark
	Root     string // root name
	Path     string // folder titles below the root, "" when directly under it
}

// FolderPath returns the entry's containing folder as a single path string.
func (e URLEntry) FolderPath() string {
	if e.Path == "" {
		return e.Root
	}
	return e.Root + "/" + e.Path
}

// URLEntries returns every URL bookmark with its folder location, in
// pre-order across all roots. This is the traversal every dedup index and
// sync lookup is built from.
func (s *Store) URLEntries() []URLEntry {
	var entries []URLEntry
	for _, name := range RootNames {
		if root := s.Roots[name]; root != nil {
			collectURLEntries(root, name, "", &entries)
		}
	}
	return entries
}

func collectURLEntries(parent *Bookmark, rootName, path string, entries *[]URLEntry) {
	for _, child := range parent.Children {
		switch child.Type {
		case TypeURL:
			*entries = append(*entries, URLEntry{Bookmark: child, Root: rootName, Path: path})
		case TypeFolder:
			childPath := child.Title
			if path != "" {
				childPath = path + "/" + child.Title
			}
			collectURLEntries(child, rootName, childPath, entries)
		}
	}
}

// EnsureFolderPath returns the folder at the given path (root name first,
// e.g. "bookmark_bar/Dev/Go"), creating missing folders along the way.
// Returns nil when the root name is unknown. Folder matching is
// title-exact and case-sensitive.
func (s *Store) EnsureFolderPath(path string) *Bookmark {
	parts := strings.Split(path, "/")
	if len(parts) == 0 {
		return nil
	}
	root := s.Roots[parts[0]]
	if root == nil {
		return nil
	}

	current := root
	for _, title := range parts[1:] {
		var found *Bookmark
		for _, child := range current.Children {
			if child.IsFolder() && child.Title == title {
				found = child
				break
			}
		}
		if found == nil {
			found = NewFolder(title)
			s.Add(found, current.ID, "")
		}
		current = found
	}
	return current
}
