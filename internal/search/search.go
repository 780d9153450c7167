// Package search provides fuzzy matching over the store's URL bookmarks.
package search

import (
	"github.com/sahilm/fuzzy"

	"github.com/nikbrunner/bmsync/internal/model"
)

type entrySource []model.URLEntry

func (s entrySource) String(i int) string {
	e := s[i]
	return e.Bookmark.Title + " " + e.Bookmark.URL + " " + e.FolderPath()
}

func (s entrySource) Len() int { return len(s) }

// Bookmarks returns the store's URL bookmarks fuzzy-matched against
// query, best matches first. An empty query returns every bookmark in
// tree order. Title, URL and folder path all participate in matching.
func Bookmarks(store *model.Store, query string) []model.URLEntry {
	entries := store.URLEntries()
	if query == "" {
		return entries
	}

	matches := fuzzy.FindFrom(query, entrySource(entries))
	results := make([]model.URLEntry, len(matches))
	for i, m := range matches {
		results[i] = entries[m.Index]
	}
	return results
}
