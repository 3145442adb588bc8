package validate_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/nikbrunner/bookmarks/internal/model"
	"github.com/nikbrunner/bookmarks/internal/validate"
	"gotest.tools/v3/assert"
	is "gotest.tools/v3/assert/cmp"
)

func TestSanitizeHTML(t *testing.T) {
	assert.Equal(t, validate.SanitizeHTML(""), "")
	assert.Equal(t, validate.SanitizeHTML(`<a href="x">Tom's & Jerry</a>`),
		"&lt;a href=&quot;x&quot;&gt;Tom&#39;s &amp; Jerry&lt;/a&gt;")
}

func TestIsValidURL(t *testing.T) {
	tests := []struct {
		url  string
		want bool
	}{
		{"https://example.com", true},
		{"http://www.site.co.uk/path?q=1#frag", true},
		{"HTTPS://Example.COM/", true},
		{"http://localhost:3000", true},
		{"http://127.0.0.1:8080/", true},
		{"http://[::1]:8080/", true},
		{"http://[2001:db8::1]/", true},
		{"http://asdf", false},
		{"http://test/", false},
		{"ftp://example.com", false},
		{"javascript:alert(1)", false},
		{"example.com", false},
		{"http://a.b", true},
		{"http://ab", false},
		{"http://-bad-.com", false},
		{"http://exa_mple.com", false},
		{"http://example.com:0", false},
		{"http://example.com:65536", false},
		{"http://example.com:65535", true},
		{"http://999.1.1.1/", false},
		{"https://example.com/" + strings.Repeat("a", 2048), false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			assert.Equal(t, validate.IsValidURL(tt.url), tt.want)
		})
	}
}

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"", ""},
		{"   ", ""},
		{"example.com", "https://example.com/"},
		{"  example.com/docs  ", "https://example.com/docs"},
		{"HTTP://Example.COM", "http://example.com/"},
		{"https://example.com?q=1", "https://example.com/?q=1"},
		{"https://bücher.de/", "https://xn--bcher-kva.de/"},
		{"https://example.com:8443/a", "https://example.com:8443/a"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, validate.NormalizeURL(tt.input), tt.want)
		})
	}
}

func TestValidateAndSanitizeURL(t *testing.T) {
	got, err := validate.ValidateAndSanitizeURL("example.com")
	assert.NilError(t, err)
	assert.Assert(t, strings.HasPrefix(got, "https://example.com"))

	_, err = validate.ValidateAndSanitizeURL("http://asdf")
	assert.Assert(t, errors.Is(err, validate.ErrValidation))
	var verr *validate.Error
	assert.Assert(t, errors.As(err, &verr))
	assert.Equal(t, verr.Kind, validate.KindSingleLabelHost)
	assert.Assert(t, is.Contains(verr.Message, "complete domain name"))

	_, err = validate.ValidateAndSanitizeURL("http://exa mple.com")
	assert.Assert(t, errors.As(err, &verr))
	assert.Equal(t, verr.Kind, validate.KindInvalidURL)
}

func TestValidURLsHaveHTTPSchemeAndQualifiedHost(t *testing.T) {
	inputs := []string{
		"example.com", "http://localhost", "https://[::1]/", "10.0.0.1",
		"https://sub.domain.example.org:8080/x", "http://single", "mailto:x@y.z",
	}
	for _, in := range inputs {
		got, err := validate.ValidateAndSanitizeURL(in)
		if err != nil {
			continue
		}
		assert.Assert(t, validate.IsValidURL(got))
		assert.Assert(t, strings.HasPrefix(got, "http://") || strings.HasPrefix(got, "https://"), got)
	}
}

func TestParseAndValidateTags(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"empty", "", []string{}},
		{"only separators", " , ,, ", []string{}},
		{"case-insensitive dedupe keeps first", "tag1, Tag1, TAG1", []string{"tag1"}},
		{"escaped", "a&b, <x>", []string{"a&amp;b", "&lt;x&gt;"}},
		{"over-long dropped", "ok, " + strings.Repeat("x", 51), []string{"ok"}},
		{"exactly fifty kept", strings.Repeat("y", 50), []string{strings.Repeat("y", 50)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.DeepEqual(t, validate.ParseAndValidateTags(tt.input), tt.want)
		})
	}
}

func TestParseAndValidateTags_CapsAtTwenty(t *testing.T) {
	var parts []string
	for i := 0; i < 40; i++ {
		parts = append(parts, "t"+strings.Repeat("x", i%30)+string(rune('a'+i%26)))
	}
	tags := validate.ParseAndValidateTags(strings.Join(parts, ","))
	assert.Assert(t, len(tags) <= validate.MaxTags)
	assert.Equal(t, tags[0], parts[0])
}

func TestValidateDirectoryName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		errKind validate.Kind
		wantErr bool
	}{
		{name: "plain", input: "  Work  ", want: "Work"},
		{name: "escaped ampersand", input: "Work & Projects", want: "Work &amp; Projects"},
		{name: "blank", input: "   ", wantErr: true, errKind: validate.KindEmptyName},
		{name: "too long", input: strings.Repeat("d", 101), wantErr: true, errKind: validate.KindTooLong},
		{name: "slash", input: "a/b", wantErr: true, errKind: validate.KindInvalidChars},
		{name: "question mark", input: "why?", wantErr: true, errKind: validate.KindInvalidChars},
		{name: "control char", input: "tab\there", wantErr: true, errKind: validate.KindInvalidChars},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := validate.ValidateDirectoryName(tt.input)
			if !tt.wantErr {
				assert.NilError(t, err)
				assert.Equal(t, got, tt.want)
				return
			}
			var verr *validate.Error
			assert.Assert(t, errors.As(err, &verr))
			assert.Equal(t, verr.Kind, tt.errKind)
		})
	}
}

func TestSanitizeTitle(t *testing.T) {
	assert.Equal(t, validate.SanitizeTitle("Go <3"), "Go &lt;3")

	long := validate.SanitizeTitle(strings.Repeat("t", 600))
	assert.Equal(t, len(long), validate.MaxTitleLength+3)
	assert.Assert(t, strings.HasSuffix(long, "..."))

	exact := strings.Repeat("t", validate.MaxTitleLength)
	assert.Equal(t, validate.SanitizeTitle(exact), exact)
}

func validRecord(id int64) model.Bookmark {
	return model.Bookmark{
		ID:        id,
		URL:       "https://example.com/",
		Title:     "Example",
		Tags:      []string{},
		DateAdded: "2024-01-01T00:00:00.000Z",
		Directory: "Unsorted",
	}
}

func TestValidBookmark(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*model.Bookmark)
		want   bool
	}{
		{"valid", func(*model.Bookmark) {}, true},
		{"zero id", func(b *model.Bookmark) { b.ID = 0 }, false},
		{"bad url", func(b *model.Bookmark) { b.URL = "http://nohost" }, false},
		{"empty title", func(b *model.Bookmark) { b.Title = "" }, false},
		{"nil tags", func(b *model.Bookmark) { b.Tags = nil }, false},
		{"bad date", func(b *model.Bookmark) { b.DateAdded = "not a date" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := validRecord(7)
			tt.mutate(&b)
			assert.Equal(t, validate.ValidBookmark(b), tt.want)
		})
	}
}

func TestFilterBookmarks(t *testing.T) {
	bad := validRecord(2)
	bad.URL = "nope"
	valid, dropped := validate.FilterBookmarks([]model.Bookmark{validRecord(1), bad, validRecord(3)})

	assert.Equal(t, dropped, 1)
	assert.Assert(t, is.Len(valid, 2))
}

func TestDecodeRecords(t *testing.T) {
	raw := `[
		{"id": "abc", "url": "https://a.com", "title": "A", "tags": [], "dateAdded": "2024-01-01T00:00:00.000Z"},
		{"id": 1.5, "url": "https://b.com", "title": "B", "tags": [], "dateAdded": "2024-01-01T00:00:00.000Z"},
		{"id": 42, "url": "https://c.com/", "title": "C", "tags": ["x"], "dateAdded": "2024-01-01T00:00:00.000Z", "archived": true, "directory": "Work"},
		{"id": 43, "url": "https://d.com/", "title": "D", "dateAdded": "2024-01-01T00:00:00.000Z"},
		"not an object"
	]`

	bookmarks, dropped, err := validate.DecodeRecords([]byte(raw))
	assert.NilError(t, err)
	assert.Equal(t, dropped, 4)
	assert.Assert(t, is.Len(bookmarks, 1))
	assert.Equal(t, bookmarks[0].ID, int64(42))
	assert.Assert(t, bookmarks[0].Archived)
	assert.Equal(t, bookmarks[0].Directory, "Work")
}

func TestDecodeRecords_NotArray(t *testing.T) {
	for _, raw := range []string{`"not an array"`, `{}`, ``, `null`} {
		_, _, err := validate.DecodeRecords([]byte(raw))
		assert.Assert(t, errors.Is(err, validate.ErrNotArray), raw)
	}
}
