package validate

import (
	"bytes"
	"encoding/json"
	"errors"
	"strconv"

	"github.com/nikbrunner/bookmarks/internal/model"
)

// ErrNotArray is returned by DecodeRecords when the payload is not a JSON array.
var ErrNotArray = errors.New("bookmarks is not an array")

// ValidBookmark reports whether b satisfies the record invariants: positive
// id, valid url, non-empty title, parseable dateAdded and a tags array.
func ValidBookmark(b model.Bookmark) bool {
	if b.ID <= 0 || b.Title == "" || b.Tags == nil {
		return false
	}
	if !IsValidURL(b.URL) {
		return false
	}
	_, err := model.ParseDate(b.DateAdded)
	return err == nil
}

// FilterBookmarks drops invalid records and reports how many were dropped.
func FilterBookmarks(bookmarks []model.Bookmark) ([]model.Bookmark, int) {
	valid := make([]model.Bookmark, 0, len(bookmarks))
	for _, b := range bookmarks {
		if ValidBookmark(b) {
			valid = append(valid, b)
		}
	}
	return valid, len(bookmarks) - len(valid)
}

// record mirrors model.Bookmark but keeps the id raw so non-integer ids can
// be told apart from absent ones.
type record struct {
	ID        json.RawMessage `json:"id"`
	URL       string          `json:"url"`
	Title     string          `json:"title"`
	Tags      []string        `json:"tags"`
	DateAdded string          `json:"dateAdded"`
	Archived  bool            `json:"archived"`
	Directory string          `json:"directory"`
}

// DecodeRecords decodes a JSON array of bookmark records, dropping every
// element that is malformed or fails ValidBookmark.
func DecodeRecords(raw []byte) ([]model.Bookmark, int, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '[' {
		return nil, 0, ErrNotArray
	}

	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil {
		return nil, 0, err
	}

	bookmarks := make([]model.Bookmark, 0, len(elems))
	dropped := 0
	for _, elem := range elems {
		b, ok := decodeRecord(elem)
		if !ok || !ValidBookmark(b) {
			dropped++
			continue
		}
		bookmarks = append(bookmarks, b)
	}
	return bookmarks, dropped, nil
}

func decodeRecord(elem json.RawMessage) (model.Bookmark, bool) {
	var r record
	if err := json.Unmarshal(elem, &r); err != nil {
		return model.Bookmark{}, false
	}

	id, err := strconv.ParseInt(string(bytes.TrimSpace(r.ID)), 10, 64)
	if err != nil {
		return model.Bookmark{}, false
	}

	return model.Bookmark{
		ID:        id,
		URL:       r.URL,
		Title:     r.Title,
		Tags:      r.Tags,
		DateAdded: r.DateAdded,
		Archived:  r.Archived,
		Directory: r.Directory,
	}, true
}
