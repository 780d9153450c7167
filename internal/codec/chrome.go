package codec

import (
	"crypto/md5"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"
	"unicode/utf16"

	"github.com/nikbrunner/bmsync/internal/browser"
	"github.com/nikbrunner/bmsync/internal/model"
)

// Seconds between the Chrome epoch (1601-01-01, Windows FILETIME) and the
// Unix epoch. Chrome timestamps are decimal-string microseconds since the
// Chrome epoch.
const chromeEpochOffset int64 = 11644473600

// ChromeCodec reads and writes Chrome's native Bookmarks JSON. Edge uses
// the identical format via different path and process names.
type ChromeCodec struct {
	browserName string
	checker     browser.ProcessChecker
	backupsDir  string
}

// NewChromeCodec creates a codec for Chrome or Edge.
func NewChromeCodec(browserName string, checker browser.ProcessChecker, backupsDir string) *ChromeCodec {
	return &ChromeCodec{browserName: browserName, checker: checker, backupsDir: backupsDir}
}

type chromeNode struct {
	Children     []*chromeNode `json:"children"`
	DateAdded    string        `json:"date_added"`
	DateLastUsed string        `json:"date_last_used"`
	DateModified string        `json:"date_modified,omitempty"`
	GUID         string        `json:"guid"`
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	Type         string        `json:"type"`
	URL          string        `json:"url,omitempty"`
}

// MarshalJSON writes folders with a children array even when empty, the
// way the browser itself serializes them, and leaves the key off URL
// nodes entirely.
func (n *chromeNode) MarshalJSON() ([]byte, error) {
	if n.Type == "folder" {
		children := n.Children
		if children == nil {
			children = []*chromeNode{}
		}
		return json.Marshal(struct {
			Children     []*chromeNode `json:"children"`
			DateAdded    string        `json:"date_added"`
			DateLastUsed string        `json:"date_last_used"`
			DateModified string        `json:"date_modified,omitempty"`
			GUID         string        `json:"guid"`
			ID           string        `json:"id"`
			Name         string        `json:"name"`
			Type         string        `json:"type"`
		}{children, n.DateAdded, n.DateLastUsed, n.DateModified, n.GUID, n.ID, n.Name, n.Type})
	}
	return json.Marshal(struct {
		DateAdded    string `json:"date_added"`
		DateLastUsed string `json:"date_last_used"`
		GUID         string `json:"guid"`
		ID           string `json:"id"`
		Name         string `json:"name"`
		Type         string `json:"type"`
		URL          string `json:"url"`
	}{n.DateAdded, n.DateLastUsed, n.GUID, n.ID, n.Name, n.Type, n.URL})
}

type chromeFile struct {
	Checksum string                 `json:"checksum"`
	Roots    map[string]*chromeNode `json:"roots"`
	Version  int                    `json:"version"`
}

// Read parses the Bookmarks file into a snapshot store. Only the
// bookmark_bar and other roots are walked; the synced (mobile) root is
// ignored. Every node carries provenance: source_browser plus the
// browser's numeric id as source_id. The embedded checksum is tolerated,
// not re-validated.
func (c *ChromeCodec) Read(path string) (*model.Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s bookmarks: %w", c.browserName, err)
	}

	var file chromeFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse %s bookmarks: %w", c.browserName, err)
	}

	store := model.NewStore()
	for _, rootName := range model.RootNames {
		native := file.Roots[rootName]
		if native == nil {
			continue
		}
		root := store.Roots[rootName]
		for _, child := range native.Children {
			root.Children = append(root.Children, c.parseNode(child))
		}
		setParentIDs(root)
	}
	return store, nil
}

func (c *ChromeCodec) parseNode(node *chromeNode) *model.Bookmark {
	bm := model.NewBookmark(model.NewBookmarkParams{
		Type:          model.TypeURL,
		Title:         node.Name,
		URL:           node.URL,
		DateAdded:     chromeTimeToISO(node.DateAdded),
		DateModified:  chromeTimeToISO(node.DateModified),
		SourceBrowser: c.browserName,
		SourceID:      node.ID,
	})
	if node.Type == "folder" {
		bm.Type = model.TypeFolder
		bm.URL = ""
		for _, child := range node.Children {
			bm.Children = append(bm.Children, c.parseNode(child))
		}
	}
	return bm
}

func setParentIDs(parent *model.Bookmark) {
	for i, child := range parent.Children {
		child.ParentID = parent.ID
		child.Position = i
		if child.IsFolder() {
			setParentIDs(child)
		}
	}
}

// Write serializes the store into Chrome's native format, replacing the
// file's bookmark_bar and other roots. The synced root is always emitted
// empty. Node ids are assigned fresh, sequential in pre-order starting at
// 1, and the embedded checksum matches what the browser itself computes.
func (c *ChromeCodec) Write(store *model.Store, path string) error {
	if err := writeGuard(c.checker, c.browserName, path, c.browserName+"_bookmarks_", ".json", c.backupsDir); err != nil {
		return err
	}

	nextID := 1
	barChildren := c.buildChildren(store.Roots[model.RootBookmarkBar], &nextID)
	otherChildren := c.buildChildren(store.Roots[model.RootOther], &nextID)

	now := isoToChromeTime(model.NowISO())
	file := chromeFile{
		Roots: map[string]*chromeNode{
			"bookmark_bar": {
				Children:     barChildren,
				DateAdded:    now,
				DateModified: now,
				DateLastUsed: "0",
				GUID:         "00000000-0000-4000-0000-000000000000",
				ID:           "0",
				Name:         "Bookmarks bar",
				Type:         "folder",
			},
			"other": {
				Children:     otherChildren,
				DateAdded:    now,
				DateModified: now,
				DateLastUsed: "0",
				GUID:         "00000000-0000-4000-0000-000000000001",
				ID:           strconv.Itoa(nextID),
				Name:         "Other bookmarks",
				Type:         "folder",
			},
			"synced": {
				DateAdded:    now,
				DateModified: "0",
				DateLastUsed: "0",
				GUID:         "00000000-0000-4000-0000-000000000002",
				ID:           strconv.Itoa(nextID + 1),
				Name:         "Mobile bookmarks",
				Type:         "folder",
			},
		},
		Version: 1,
	}
	file.Checksum = calculateChecksum(file.Roots)

	data, err := json.MarshalIndent(file, "", "   ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write %s bookmarks: %w", c.browserName, err)
	}
	return nil
}

func (c *ChromeCodec) buildChildren(root *model.Bookmark, nextID *int) []*chromeNode {
	if root == nil {
		return nil
	}
	children := make([]*chromeNode, 0, len(root.Children))
	for _, child := range root.Children {
		children = append(children, buildNode(child, nextID))
	}
	return children
}

func buildNode(bm *model.Bookmark, nextID *int) *chromeNode {
	id := strconv.Itoa(*nextID)
	*nextID++

	node := &chromeNode{
		DateAdded:    isoToChromeTime(bm.DateAdded),
		DateLastUsed: "0",
		GUID:         fmt.Sprintf("00000000-0000-4000-0000-%012s", id),
		ID:           id,
		Name:         bm.Title,
		Type:         "url",
	}
	if bm.IsFolder() {
		node.Type = "folder"
		node.DateModified = isoToChromeTime(bm.DateModified)
		for _, child := range bm.Children {
			node.Children = append(node.Children, buildNode(child, nextID))
		}
	} else {
		node.URL = bm.URL
	}
	return node
}

// calculateChecksum mirrors Chromium's bookmark_codec.cc: MD5 over the
// bookmark_bar, other and synced roots in that order. Folders feed
// id (ASCII) + name (UTF-16 LE) + "folder" before recursing; URLs feed
// id + name + "url" + url. No delimiters between fields.
func calculateChecksum(roots map[string]*chromeNode) string {
	h := md5.New()

	var digest func(n *chromeNode)
	digest = func(n *chromeNode) {
		io.WriteString(h, n.ID)
		h.Write(utf16LE(n.Name))
		if n.Type == "folder" {
			io.WriteString(h, "folder")
			for _, child := range n.Children {
				digest(child)
			}
		} else {
			io.WriteString(h, "url")
			io.WriteString(h, n.URL)
		}
	}

	digest(roots["bookmark_bar"])
	digest(roots["other"])
	digest(roots["synced"])

	return hex.EncodeToString(h.Sum(nil))
}

func utf16LE(s string) []byte {
	units := utf16.Encode([]rune(s))
	b := make([]byte, len(units)*2)
	for i, u := range units {
		binary.LittleEndian.PutUint16(b[i*2:], u)
	}
	return b
}

// chromeTimeToISO converts a decimal-string microsecond Chrome timestamp
// to ISO-8601. Zero or unparsable values yield the current time, matching
// how the browser itself treats them.
func chromeTimeToISO(chromeTime string) string {
	us, err := strconv.ParseInt(chromeTime, 10, 64)
	if err != nil || us == 0 {
		return model.NowISO()
	}
	return time.UnixMicro(us - chromeEpochOffset*1_000_000).UTC().Format(time.RFC3339Nano)
}

// isoToChromeTime converts an ISO-8601 timestamp to Chrome's
// representation. Unparsable values become "0".
func isoToChromeTime(iso string) string {
	t, err := model.ParseTime(iso)
	if err != nil {
		return "0"
	}
	return strconv.FormatInt(t.UnixMicro()+chromeEpochOffset*1_000_000, 10)
}
