// Package netscape reads and writes the Netscape bookmark HTML format,
// the lingua franca every browser's manual import/export dialog speaks.
package netscape

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/nikbrunner/bmsync/internal/model"
)

// Parse reads a Netscape bookmark file into a snapshot store. The
// folder marked PERSONAL_TOOLBAR_FOLDER maps onto bookmark_bar;
// everything else lands under other. Timestamps are seconds since the
// Unix epoch.
func Parse(r io.Reader) (*model.Store, error) {
	store := model.NewStore()
	z := html.NewTokenizer(r)

	stack := []*model.Bookmark{store.Roots[model.RootOther]}
	top := func() *model.Bookmark { return stack[len(stack)-1] }
	var pending *model.Bookmark // folder the next <DL> opens

	for {
		switch z.Next() {
		case html.ErrorToken:
			if z.Err() == io.EOF {
				return store, nil
			}
			return nil, fmt.Errorf("parse bookmark html: %w", z.Err())

		case html.StartTagToken:
			name, hasAttr := z.TagName()
			switch string(name) {
			case "h3":
				attrs := readAttrs(z, hasAttr)
				title := textUntil(z, "h3")
				if attrs["personal_toolbar_folder"] == "true" {
					pending = store.Roots[model.RootBookmarkBar]
					continue
				}
				folder := model.NewFolder(title)
				folder.DateAdded = epochSecondsToISO(attrs["add_date"])
				folder.DateModified = epochSecondsToISO(attrs["last_modified"])
				store.Add(folder, top().ID, "")
				pending = folder

			case "a":
				attrs := readAttrs(z, hasAttr)
				title := textUntil(z, "a")
				if attrs["href"] == "" {
					continue
				}
				bm := model.NewBookmark(model.NewBookmarkParams{
					Type:         model.TypeURL,
					Title:        title,
					URL:          attrs["href"],
					DateAdded:    epochSecondsToISO(attrs["add_date"]),
					DateModified: epochSecondsToISO(attrs["last_modified"]),
				})
				store.Add(bm, top().ID, "")

			case "dl":
				if pending != nil {
					stack = append(stack, pending)
					pending = nil
				} else {
					stack = append(stack, top())
				}
			}

		case html.EndTagToken:
			name, _ := z.TagName()
			if string(name) == "dl" && len(stack) > 1 {
				stack = stack[:len(stack)-1]
			}
		}
	}
}

func readAttrs(z *html.Tokenizer, hasAttr bool) map[string]string {
	attrs := make(map[string]string)
	for hasAttr {
		key, val, more := z.TagAttr()
		attrs[strings.ToLower(string(key))] = string(val)
		hasAttr = more
	}
	return attrs
}

// textUntil collects the text content up to the matching end tag.
func textUntil(z *html.Tokenizer, tag string) string {
	var b strings.Builder
	for {
		switch z.Next() {
		case html.TextToken:
			b.Write(z.Text())
		case html.EndTagToken:
			name, _ := z.TagName()
			if string(name) == tag {
				return strings.TrimSpace(b.String())
			}
		case html.ErrorToken, html.StartTagToken:
			return strings.TrimSpace(b.String())
		}
	}
}

// Export writes the store in Netscape bookmark format. bookmark_bar is
// emitted as the PERSONAL_TOOLBAR_FOLDER; other's children follow at
// the top level.
func Export(store *model.Store, w io.Writer) error {
	var b strings.Builder
	b.WriteString("<!DOCTYPE NETSCAPE-Bookmark-file-1>\n")
	b.WriteString("<!-- This is an automatically generated file.\n")
	b.WriteString("     It will be read and overwritten.\n")
	b.WriteString("     DO NOT EDIT! -->\n")
	b.WriteString(`<META HTTP-EQUIV="Content-Type" CONTENT="text/html; charset=UTF-8">` + "\n")
	b.WriteString("<TITLE>Bookmarks</TITLE>\n")
	b.WriteString("<H1>Bookmarks</H1>\n")
	b.WriteString("<DL><p>\n")

	if bar := store.Roots[model.RootBookmarkBar]; bar != nil {
		fmt.Fprintf(&b, `    <DT><H3 ADD_DATE="%s" LAST_MODIFIED="%s" PERSONAL_TOOLBAR_FOLDER="true">%s</H3>`+"\n",
			isoToEpochSeconds(bar.DateAdded), isoToEpochSeconds(bar.DateModified),
			html.EscapeString(bar.Title))
		b.WriteString("    <DL><p>\n")
		writeChildren(&b, bar.Children, 2)
		b.WriteString("    </DL><p>\n")
	}
	if other := store.Roots[model.RootOther]; other != nil {
		writeChildren(&b, other.Children, 1)
	}

	b.WriteString("</DL><p>\n")
	_, err := io.WriteString(w, b.String())
	return err
}

func writeChildren(b *strings.Builder, children []*model.Bookmark, depth int) {
	indent := strings.Repeat("    ", depth)
	for _, child := range children {
		if child.IsFolder() {
			fmt.Fprintf(b, `%s<DT><H3 ADD_DATE="%s" LAST_MODIFIED="%s">%s</H3>`+"\n",
				indent, isoToEpochSeconds(child.DateAdded), isoToEpochSeconds(child.DateModified),
				html.EscapeString(child.Title))
			b.WriteString(indent + "<DL><p>\n")
			writeChildren(b, child.Children, depth+1)
			b.WriteString(indent + "</DL><p>\n")
			continue
		}
		fmt.Fprintf(b, `%s<DT><A HREF="%s" ADD_DATE="%s" LAST_MODIFIED="%s">%s</A>`+"\n",
			indent, html.EscapeString(child.URL),
			isoToEpochSeconds(child.DateAdded), isoToEpochSeconds(child.DateModified),
			html.EscapeString(child.Title))
	}
}

func epochSecondsToISO(s string) string {
	secs, err := strconv.ParseInt(s, 10, 64)
	if err != nil || secs == 0 {
		return model.NowISO()
	}
	return time.Unix(secs, 0).UTC().Format(time.RFC3339Nano)
}

func isoToEpochSeconds(iso string) string {
	t, err := model.ParseTime(iso)
	if err != nil {
		return "0"
	}
	return strconv.FormatInt(t.Unix(), 10)
}
