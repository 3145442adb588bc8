package model

import (
	"errors"
	"time"
)

// UnsortedDirectory is the reserved default directory. It always exists and
// cannot be deleted.
const UnsortedDirectory = "Unsorted"

// DateLayout is the ISO-8601 layout used for dateAdded and exportDate.
const DateLayout = "2006-01-02T15:04:05.000Z07:00"

// Bookmark represents a saved URL with metadata.
type Bookmark struct {
	ID        int64    `json:"id"`
	URL       string   `json:"url"`
	Title     string   `json:"title"`
	Tags      []string `json:"tags"`
	DateAdded string   `json:"dateAdded"`
	Archived  bool     `json:"archived"`
	Directory string   `json:"directory"`
}

// NewBookmarkParams holds parameters for creating a new Bookmark.
type NewBookmarkParams struct {
	URL       string
	Title     string
	Tags      []string
	Directory string
	Now       time.Time
}

// NewBookmark creates an unsaved Bookmark (ID 0) stamped with params.Now.
func NewBookmark(params NewBookmarkParams) Bookmark {
	tags := params.Tags
	if tags == nil {
		tags = []string{}
	}

	dir := params.Directory
	if dir == "" {
		dir = UnsortedDirectory
	}

	now := params.Now
	if now.IsZero() {
		now = time.Now()
	}

	return Bookmark{
		URL:       params.URL,
		Title:     params.Title,
		Tags:      tags,
		DateAdded: FormatDate(now),
		Directory: dir,
	}
}

// Clone returns a copy that shares no slices with b.
func (b Bookmark) Clone() Bookmark {
	c := b
	if b.Tags != nil {
		c.Tags = append([]string{}, b.Tags...)
	}
	return c
}

// AddedAt parses DateAdded. The zero time is returned for unparseable dates.
func (b Bookmark) AddedAt() time.Time {
	t, err := ParseDate(b.DateAdded)
	if err != nil {
		return time.Time{}
	}
	return t
}

// FormatDate renders t in UTC using DateLayout.
func FormatDate(t time.Time) string {
	return t.UTC().Format(DateLayout)
}

var errBadDate = errors.New("unrecognised date")

var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	DateLayout,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseDate accepts the ISO-8601 variants found in stored and imported data.
func ParseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, errBadDate
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errBadDate
}
