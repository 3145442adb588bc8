package exporter

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/nikbrunner/bookmarks/internal/model"
)

// HTMLFilename returns bookmarks-export-YYYY-MM-DD.html for now.
func HTMLFilename(now time.Time) string {
	return fmt.Sprintf("bookmarks-export-%s.html", now.Format("2006-01-02"))
}

// ExportHTML renders doc in Netscape bookmark HTML format, one folder per
// directory in directory order.
func ExportHTML(doc model.Backup) string {
	var b strings.Builder

	// Header
	b.WriteString("<!DOCTYPE NETSCAPE-Bookmark-file-1>\n")
	b.WriteString("<META HTTP-EQUIV=\"Content-Type\" CONTENT=\"text/html; charset=UTF-8\">\n")
	b.WriteString("<TITLE>Bookmarks</TITLE>\n")
	b.WriteString("<H1>Bookmarks</H1>\n")
	b.WriteString("<DL><p>\n")

	grouped := make(map[string][]model.Bookmark)
	for _, bm := range doc.Bookmarks {
		dir := model.DirectoryOf(bm)
		grouped[dir] = append(grouped[dir], bm)
	}

	written := make(map[string]bool, len(doc.Directories))
	for _, dir := range doc.Directories {
		if written[dir] {
			continue
		}
		written[dir] = true
		writeFolder(&b, dir, grouped[dir])
	}

	// Bookmarks referencing a directory missing from the list still export.
	for _, bm := range doc.Bookmarks {
		dir := model.DirectoryOf(bm)
		if written[dir] {
			continue
		}
		written[dir] = true
		writeFolder(&b, dir, grouped[dir])
	}

	// Footer
	b.WriteString("</DL><p>\n")

	return b.String()
}

func writeFolder(b *strings.Builder, name string, bookmarks []model.Bookmark) {
	const prefix = "    "

	fmt.Fprintf(b, "%s<DT><H3>%s</H3>\n", prefix, escapeOnce(name))
	fmt.Fprintf(b, "%s<DL><p>\n", prefix)
	for _, bm := range bookmarks {
		writeBookmark(b, prefix+prefix, bm)
	}
	fmt.Fprintf(b, "%s</DL><p>\n", prefix)
}

func writeBookmark(b *strings.Builder, prefix string, bm model.Bookmark) {
	fmt.Fprintf(b, "%s<DT><A HREF=\"%s\"", prefix, html.EscapeString(bm.URL))
	if t := bm.AddedAt(); !t.IsZero() {
		fmt.Fprintf(b, " ADD_DATE=\"%d\"", t.Unix())
	}
	if len(bm.Tags) > 0 {
		fmt.Fprintf(b, " TAGS=\"%s\"", escapeOnce(strings.Join(bm.Tags, ",")))
	}
	fmt.Fprintf(b, ">%s</A>\n", escapeOnce(bm.Title))
}

// escapeOnce escapes s without double-encoding text that was escaped on store.
func escapeOnce(s string) string {
	return html.EscapeString(html.UnescapeString(s))
}
