package importer_test

import (
	"errors"
	"testing"

	"github.com/nikbrunner/bookmarks/internal/importer"
	"github.com/nikbrunner/bookmarks/internal/model"
	"gotest.tools/v3/assert"
	is "gotest.tools/v3/assert/cmp"
)

const validRecord = `{"id": 1, "url": "https://go.dev/", "title": "Go", "tags": ["golang"], "dateAdded": "2024-01-01T00:00:00.000Z", "archived": false, "directory": "Dev"}`

func TestParseBackup_Valid(t *testing.T) {
	doc, err := importer.ParseBackup([]byte(`{
		"bookmarks": [` + validRecord + `],
		"directories": ["Dev", "Unsorted"],
		"exportDate": "2024-01-02T00:00:00.000Z",
		"version": "1.0"
	}`))
	assert.NilError(t, err)

	assert.DeepEqual(t, doc.Directories, []string{"Unsorted", "Dev"})
	assert.Equal(t, doc.Dropped, 0)
	assert.DeepEqual(t, doc.Bookmarks, []model.Bookmark{{
		ID: 1, URL: "https://go.dev/", Title: "Go", Tags: []string{"golang"},
		DateAdded: "2024-01-01T00:00:00.000Z", Directory: "Dev",
	}})
}

func TestParseBackup_FormatErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"not json", `{bookmarks`, "Invalid backup file format"},
		{"not an object", `[1, 2]`, "Invalid backup file format"},
		{"missing bookmarks", `{"directories": []}`, "bookmarks missing"},
		{"null bookmarks", `{"bookmarks": null}`, "bookmarks missing"},
		{"bookmarks not an array", `{"bookmarks": "not an array"}`, "not an array"},
		{"no valid records", `{"bookmarks": [{"id": "x"}]}`, "No valid bookmarks found in backup file"},
		{"empty array", `{"bookmarks": []}`, "No valid bookmarks found in backup file"},
		{"directories not an array", `{"bookmarks": [` + validRecord + `], "directories": "Dev"}`, "directories is not an array"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := importer.ParseBackup([]byte(tt.input))
			assert.Assert(t, errors.Is(err, importer.ErrImportFormat), "got %v", err)
			assert.ErrorContains(t, err, tt.want)

			var ferr *importer.FormatError
			assert.Assert(t, errors.As(err, &ferr))
		})
	}
}

func TestParseBackup_MissingDirectoriesDefaultsToUnsorted(t *testing.T) {
	doc, err := importer.ParseBackup([]byte(`{"bookmarks": [` + validRecord + `]}`))
	assert.NilError(t, err)

	assert.DeepEqual(t, doc.Directories, []string{"Unsorted"})
	assert.Equal(t, doc.Bookmarks[0].Directory, "Unsorted", "dangling reference remapped")
}

func TestParseBackup_DropsInvalidRecords(t *testing.T) {
	doc, err := importer.ParseBackup([]byte(`{"bookmarks": [
		` + validRecord + `,
		{"id": "7", "url": "https://a.com/", "title": "A", "tags": [], "dateAdded": "2024-01-01"},
		{"id": 8, "url": "ftp://a.com/", "title": "A", "tags": [], "dateAdded": "2024-01-01"},
		{"id": 9, "url": "https://a.com/", "title": "A", "dateAdded": "2024-01-01"},
		{"id": 10, "url": "https://a.com/", "title": "A", "tags": [], "dateAdded": "yesterday"}
	], "directories": ["Dev"]}`))
	assert.NilError(t, err)

	assert.Assert(t, is.Len(doc.Bookmarks, 1))
	assert.Equal(t, doc.Dropped, 4)
}

func TestParseBackup_FiltersDirectories(t *testing.T) {
	doc, err := importer.ParseBackup([]byte(`{"bookmarks": [` + validRecord + `],
		"directories": ["dev", "Dev", "a/b", "", 42, "Tom &amp; Jerry", "unsorted"]}`))
	assert.NilError(t, err)

	assert.DeepEqual(t, doc.Directories, []string{"Unsorted", "dev", "Tom &amp; Jerry"})
	assert.Equal(t, doc.Bookmarks[0].Directory, "Unsorted", "Dev lost to dev, so the reference is dangling")
}

func TestParse_DetectsFormat(t *testing.T) {
	html := []byte(`<DL><p><DT><A HREF="https://example.com">Example</A></DL><p>`)
	jsonDoc := []byte(`{"bookmarks": [` + validRecord + `]}`)

	doc, err := importer.Parse("export.html", html, now)
	assert.NilError(t, err)
	assert.Equal(t, doc.Bookmarks[0].Title, "Example")

	doc, err = importer.Parse("backup", html, now)
	assert.NilError(t, err)
	assert.Equal(t, doc.Bookmarks[0].Title, "Example")

	doc, err = importer.Parse("backup.json", jsonDoc, now)
	assert.NilError(t, err)
	assert.Equal(t, doc.Bookmarks[0].Title, "Go")
}
