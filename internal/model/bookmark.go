package model

import "time"

// Type discriminates URL bookmarks from folders.
type Type string

const (
	TypeURL    Type = "url"
	TypeFolder Type = "folder"
)

// Bookmark is a single node in the bookmark tree: either a URL bookmark or
// a folder owning an ordered list of children.
type Bookmark struct {
	ID               string      `json:"id"`
	Type             Type        `json:"type"`
	Title            string      `json:"title"`
	URL              string      `json:"url"`
	ParentID         string      `json:"parent_id,omitempty"`
	Position         int         `json:"position"`
	DateAdded        string      `json:"date_added"`
	DateModified     string      `json:"date_modified"`
	PreferredBrowser string      `json:"preferred_browser,omitempty"`
	SourceBrowser    string      `json:"source_browser,omitempty"`
	SourceID         string      `json:"source_id,omitempty"`
	Children         []*Bookmark `json:"children,omitempty"`
}

// NewBookmarkParams holds parameters for creating a new Bookmark.
// Empty timestamps default to the current time.
type NewBookmarkParams struct {
	Type             Type
	Title            string
	URL              string
	DateAdded        string
	DateModified     string
	PreferredBrowser string
	SourceBrowser    string
	SourceID         string
}

// NewBookmark creates a Bookmark with a generated UUID.
func NewBookmark(params NewBookmarkParams) *Bookmark {
	now := NowISO()
	added := params.DateAdded
	if added == "" {
		added = now
	}
	modified := params.DateModified
	if modified == "" {
		modified = now
	}
	t := params.Type
	if t == "" {
		t = TypeURL
	}
	return &Bookmark{
		ID:               generateUUID(),
		Type:             t,
		Title:            params.Title,
		URL:              params.URL,
		DateAdded:        added,
		DateModified:     modified,
		PreferredBrowser: params.PreferredBrowser,
		SourceBrowser:    params.SourceBrowser,
		SourceID:         params.SourceID,
	}
}

// NewFolder creates an empty folder Bookmark.
func NewFolder(title string) *Bookmark {
	return NewBookmark(NewBookmarkParams{Type: TypeFolder, Title: title})
}

// IsFolder reports whether the node is a folder.
func (b *Bookmark) IsFolder() bool {
	return b.Type == TypeFolder
}

// Touch bumps the node's modification timestamp.
func (b *Bookmark) Touch() {
	b.DateModified = NowISO()
}

// NowISO returns the current UTC time as an ISO-8601 string.
func NowISO() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

// ParseTime parses an ISO-8601 timestamp as produced by NowISO or by the
// browser codecs. Zone-less timestamps are treated as UTC.
func ParseTime(iso string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, iso)
	if err == nil {
		return t, nil
	}
	return time.ParseInLocation("2006-01-02T15:04:05.999999999", iso, time.UTC)
}
