package codec

import (
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/nikbrunner/bmsync/internal/browser"
	"github.com/nikbrunner/bmsync/internal/model"
)

// moz_bookmarks type enum.
const (
	mozTypeBookmark = 1
	mozTypeFolder   = 2
)

// Fixed root row ids in moz_bookmarks.
const (
	mozRootID    = 1
	mozMenuID    = 2
	mozToolbarID = 3
	mozUnfiledID = 5
	mozMobileID  = 6
)

// FirefoxCodec reads and writes Firefox's places.sqlite bookmark tables.
type FirefoxCodec struct {
	checker    browser.ProcessChecker
	backupsDir string
}

// NewFirefoxCodec creates a codec for Firefox.
func NewFirefoxCodec(checker browser.ProcessChecker, backupsDir string) *FirefoxCodec {
	return &FirefoxCodec{checker: checker, backupsDir: backupsDir}
}

type mozRow struct {
	id           int64
	typ          int
	title        string
	parent       int64
	position     int
	dateAdded    int64
	lastModified int64
	url          string
}

// Read loads the bookmark tree from places.sqlite. The live database is
// never read directly — Firefox may be writing it — so a
// transactionally-consistent hot copy is taken into a private temp
// directory first and removed unconditionally afterwards. The Toolbar
// subtree becomes bookmark_bar; Menu and Unfiled both land in other; the
// Mobile root is never imported.
func (c *FirefoxCodec) Read(path string) (*model.Store, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("firefox places database: %w", err)
	}

	tmpDir, err := os.MkdirTemp("", "bmsync-places-")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(tmpDir)

	copyPath := filepath.Join(tmpDir, "places_copy.sqlite")
	if err := hotCopy(path, copyPath); err != nil {
		return nil, fmt.Errorf("copy firefox database: %w", err)
	}

	return readPlaces(copyPath)
}

// hotCopy clones the database through a read-only connection using
// VACUUM INTO, which snapshots a consistent state even while Firefox
// holds the file open.
func hotCopy(src, dst string) error {
	db, err := sql.Open("sqlite", "file:"+src+"?mode=ro")
	if err != nil {
		return err
	}
	defer db.Close()

	_, err = db.Exec("VACUUM INTO '" + strings.ReplaceAll(dst, "'", "''") + "'")
	return err
}

func readPlaces(path string) (*model.Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	rows, err := db.Query(`
		SELECT b.id, b.type, COALESCE(b.title, ''), b.parent, b.position,
		       COALESCE(b.dateAdded, 0), COALESCE(b.lastModified, 0),
		       COALESCE(p.url, '')
		FROM moz_bookmarks b
		LEFT JOIN moz_places p ON b.fk = p.id
		WHERE b.type IN (?, ?)
		ORDER BY b.parent, b.position
	`, mozTypeBookmark, mozTypeFolder)
	if err != nil {
		return nil, fmt.Errorf("query firefox bookmarks: %w", err)
	}
	defer rows.Close()

	childrenOf := make(map[int64][]*mozRow)
	for rows.Next() {
		var r mozRow
		if err := rows.Scan(&r.id, &r.typ, &r.title, &r.parent, &r.position,
			&r.dateAdded, &r.lastModified, &r.url); err != nil {
			return nil, err
		}
		childrenOf[r.parent] = append(childrenOf[r.parent], &r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	store := model.NewStore()
	appendSubtree := func(rootName string, mozRootID int64) {
		root := store.Roots[rootName]
		for _, row := range childrenOf[mozRootID] {
			bm := buildFirefoxNode(row, childrenOf)
			bm.ParentID = root.ID
			root.Children = append(root.Children, bm)
		}
	}

	appendSubtree(model.RootBookmarkBar, mozToolbarID)
	appendSubtree(model.RootOther, mozMenuID)
	appendSubtree(model.RootOther, mozUnfiledID)

	for _, name := range model.RootNames {
		for i, child := range store.Roots[name].Children {
			child.Position = i
		}
	}
	return store, nil
}

func buildFirefoxNode(row *mozRow, childrenOf map[int64][]*mozRow) *model.Bookmark {
	bm := model.NewBookmark(model.NewBookmarkParams{
		Type:          model.TypeURL,
		Title:         row.title,
		URL:           row.url,
		DateAdded:     firefoxTimeToISO(row.dateAdded),
		DateModified:  firefoxTimeToISO(row.lastModified),
		SourceBrowser: browser.Firefox,
		SourceID:      strconv.FormatInt(row.id, 10),
	})
	bm.Position = row.position
	if row.typ == mozTypeFolder {
		bm.Type = model.TypeFolder
		bm.URL = ""
		for _, child := range childrenOf[row.id] {
			node := buildFirefoxNode(child, childrenOf)
			node.ParentID = bm.ID
			bm.Children = append(bm.Children, node)
		}
	}
	return bm
}

// Write replaces the bookmark tables with the store's contents. All
// bookmark and folder rows except the five fixed roots are deleted;
// bookmark_bar lands under Toolbar, other under Unfiled, child order as
// position. The whole rewrite runs in one transaction so a failure rolls
// back without a partial state ever reaching disk.
func (c *FirefoxCodec) Write(store *model.Store, path string) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("firefox places database: %w", err)
	}
	if err := writeGuard(c.checker, browser.Firefox, path, "firefox_places_", ".sqlite", c.backupsDir); err != nil {
		return err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return err
	}
	defer db.Close()
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		return err
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`
		DELETE FROM moz_bookmarks
		WHERE id NOT IN (?, ?, ?, ?, ?) AND type IN (?, ?)
	`, mozRootID, mozMenuID, mozToolbarID, mozUnfiledID, mozMobileID,
		mozTypeBookmark, mozTypeFolder); err != nil {
		return fmt.Errorf("clear firefox bookmarks: %w", err)
	}

	var maxID sql.NullInt64
	if err := tx.QueryRow("SELECT MAX(id) FROM moz_bookmarks").Scan(&maxID); err != nil {
		return err
	}
	nextID := int64(mozMobileID) + 1
	if maxID.Valid && maxID.Int64 >= nextID {
		nextID = maxID.Int64 + 1
	}

	w := &firefoxWriter{tx: tx, nextID: nextID}
	if root := store.Roots[model.RootBookmarkBar]; root != nil {
		for i, bm := range root.Children {
			if err := w.insert(bm, mozToolbarID, i); err != nil {
				return err
			}
		}
	}
	if root := store.Roots[model.RootOther]; root != nil {
		for i, bm := range root.Children {
			if err := w.insert(bm, mozUnfiledID, i); err != nil {
				return err
			}
		}
	}

	return tx.Commit()
}

type firefoxWriter struct {
	tx     *sql.Tx
	nextID int64
}

func (w *firefoxWriter) insert(bm *model.Bookmark, parentID int64, position int) error {
	id := w.nextID
	w.nextID++

	if bm.Type == model.TypeURL {
		placeID, err := w.ensurePlace(bm.URL)
		if err != nil {
			return err
		}
		_, err = w.tx.Exec(`
			INSERT INTO moz_bookmarks (id, type, fk, parent, position, title, dateAdded, lastModified)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, id, mozTypeBookmark, placeID, parentID, position, bm.Title,
			isoToFirefoxTime(bm.DateAdded), isoToFirefoxTime(bm.DateModified))
		return err
	}

	if _, err := w.tx.Exec(`
		INSERT INTO moz_bookmarks (id, type, fk, parent, position, title, dateAdded, lastModified)
		VALUES (?, ?, NULL, ?, ?, ?, ?, ?)
	`, id, mozTypeFolder, parentID, position, bm.Title,
		isoToFirefoxTime(bm.DateAdded), isoToFirefoxTime(bm.DateModified)); err != nil {
		return err
	}
	for i, child := range bm.Children {
		if err := w.insert(child, id, i); err != nil {
			return err
		}
	}
	return nil
}

// ensurePlace returns the moz_places row id for a URL, inserting a new
// row when no exact (non-normalized) match exists.
func (w *firefoxWriter) ensurePlace(rawURL string) (int64, error) {
	var id int64
	err := w.tx.QueryRow("SELECT id FROM moz_places WHERE url = ?", rawURL).Scan(&id)
	if err == nil {
		return id, nil
	}
	if err != sql.ErrNoRows {
		return 0, err
	}

	res, err := w.tx.Exec(`
		INSERT INTO moz_places (url, title, rev_host, visit_count, hidden, typed, frecency, last_visit_date)
		VALUES (?, '', ?, 0, 0, 0, -1, NULL)
	`, rawURL, reverseHost(rawURL))
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// reverseHost builds Firefox's rev_host form: the hostname with its
// labels reversed, wrapped in dots ("www.mozilla.org" -> ".org.mozilla.www.").
func reverseHost(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return ""
	}
	labels := strings.Split(u.Hostname(), ".")
	for i, j := 0, len(labels)-1; i < j; i, j = i+1, j-1 {
		labels[i], labels[j] = labels[j], labels[i]
	}
	return "." + strings.Join(labels, ".") + "."
}

// firefoxTimeToISO converts microseconds since the Unix epoch to
// ISO-8601. Zero yields the current time.
func firefoxTimeToISO(us int64) string {
	if us == 0 {
		return model.NowISO()
	}
	return time.UnixMicro(us).UTC().Format(time.RFC3339Nano)
}

// isoToFirefoxTime converts ISO-8601 to microseconds since the Unix
// epoch. Unparsable values become the current time.
func isoToFirefoxTime(iso string) int64 {
	t, err := model.ParseTime(iso)
	if err != nil {
		return time.Now().UnixMicro()
	}
	return t.UnixMicro()
}
