package exporter

import (
	"strings"
	"testing"
	"time"

	"github.com/nikbrunner/bookmarks/internal/model"
	"gotest.tools/v3/golden"
)

var exportTime = time.Unix(1700000000, 0).UTC()

func sampleBackup() model.Backup {
	return NewBackup([]model.Bookmark{
		{
			ID:        1,
			Title:     "Go",
			URL:       "https://go.dev/",
			Tags:      []string{"golang", "docs"},
			DateAdded: model.FormatDate(exportTime),
			Directory: "Dev",
		},
		{
			ID:        2,
			Title:     "Tom &amp; Jerry",
			URL:       "https://example.com/?a=1&b=2",
			Tags:      []string{},
			DateAdded: model.FormatDate(exportTime),
		},
	}, []string{model.UnsortedDirectory, "Dev"}, exportTime)
}

func TestExportHTML_Golden(t *testing.T) {
	golden.Assert(t, ExportHTML(sampleBackup()), "export.html.golden")
}

func TestExportHTML_EmptyStore(t *testing.T) {
	html := ExportHTML(NewBackup(nil, nil, exportTime))

	// Should have basic structure even when empty
	if !strings.Contains(html, "<!DOCTYPE NETSCAPE-Bookmark-file-1>") {
		t.Error("expected DOCTYPE declaration")
	}
	if !strings.Contains(html, "<TITLE>Bookmarks</TITLE>") {
		t.Error("expected TITLE element")
	}
	if !strings.Contains(html, "<H1>Bookmarks</H1>") {
		t.Error("expected H1 element")
	}
	if strings.Contains(html, "<H3>") {
		t.Error("expected no folders")
	}
}

func TestExportHTML_EmptyDirectoryStillWritten(t *testing.T) {
	html := ExportHTML(NewBackup(nil, []string{"Unsorted", "Reading"}, exportTime))

	if !strings.Contains(html, "<H3>Reading</H3>") {
		t.Error("expected empty directory folder")
	}
}

func TestExportHTML_UnlistedDirectory(t *testing.T) {
	doc := NewBackup([]model.Bookmark{{
		ID: 1, Title: "Orphan", URL: "https://example.com/", Tags: []string{},
		DateAdded: model.FormatDate(exportTime), Directory: "Gone",
	}}, []string{"Unsorted"}, exportTime)

	html := ExportHTML(doc)

	folderIdx := strings.Index(html, "Gone</H3>")
	bookmarkIdx := strings.Index(html, "Orphan</A>")
	if folderIdx == -1 || bookmarkIdx == -1 {
		t.Fatal("missing elements in output")
	}
	if folderIdx > bookmarkIdx {
		t.Error("expected folder to come before its bookmark")
	}
}

func TestExportHTML_EscapesSpecialCharacters(t *testing.T) {
	doc := NewBackup([]model.Bookmark{{
		ID:        1,
		Title:     "Test <script>alert('xss')</script>",
		URL:       "https://example.com?foo=bar&baz=qux",
		Tags:      []string{},
		DateAdded: model.FormatDate(exportTime),
	}}, []string{"Unsorted"}, exportTime)

	html := ExportHTML(doc)

	// Title should be escaped
	if strings.Contains(html, "<script>") {
		t.Error("script tag should be escaped")
	}
	if !strings.Contains(html, "&lt;script&gt;") {
		t.Error("expected escaped script tag")
	}

	// URL should be escaped
	if strings.Contains(html, "foo=bar&baz") {
		t.Error("ampersand should be escaped in URL")
	}
	if !strings.Contains(html, "foo=bar&amp;baz") {
		t.Error("expected escaped ampersand in URL")
	}
}

func TestExportHTML_DoesNotDoubleEscape(t *testing.T) {
	doc := NewBackup([]model.Bookmark{{
		ID: 1, Title: "a &lt;b&gt;", URL: "https://example.com/", Tags: []string{"c&amp;d"},
		DateAdded: model.FormatDate(exportTime),
	}}, []string{"Unsorted"}, exportTime)

	html := ExportHTML(doc)

	if strings.Contains(html, "&amp;lt;") || strings.Contains(html, "&amp;amp;") {
		t.Errorf("double escaped output:\n%s", html)
	}
	if !strings.Contains(html, `TAGS="c&amp;d"`) {
		t.Error("expected escaped tags attribute")
	}
}

func TestExportHTML_SkipsUnparseableDate(t *testing.T) {
	doc := NewBackup([]model.Bookmark{{
		ID: 1, Title: "No date", URL: "https://example.com/", Tags: []string{},
	}}, []string{"Unsorted"}, exportTime)

	if strings.Contains(ExportHTML(doc), "ADD_DATE") {
		t.Error("expected no ADD_DATE for missing date")
	}
}
