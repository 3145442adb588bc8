package model

import "strings"

// Store holds the in-memory bookmark and directory collections.
type Store struct {
	Bookmarks   []Bookmark `json:"bookmarks"`
	Directories []string   `json:"directories"`
}

// NewStore creates an empty Store containing only the Unsorted directory.
func NewStore() *Store {
	return &Store{
		Bookmarks:   []Bookmark{},
		Directories: []string{UnsortedDirectory},
	}
}

// GetBookmarkByID finds a bookmark by ID, returns nil if not found.
func (s *Store) GetBookmarkByID(id int64) *Bookmark {
	for i := range s.Bookmarks {
		if s.Bookmarks[i].ID == id {
			return &s.Bookmarks[i]
		}
	}
	return nil
}

// FindByURL returns the first bookmark whose URL equals url after both
// pass through canonical. A nil canonical compares exactly.
func (s *Store) FindByURL(url string, canonical func(string) string) *Bookmark {
	if canonical == nil {
		canonical = func(u string) string { return u }
	}
	want := canonical(url)
	for i := range s.Bookmarks {
		if canonical(s.Bookmarks[i].URL) == want {
			return &s.Bookmarks[i]
		}
	}
	return nil
}

// GetBookmarksInDirectory returns bookmarks filed under name.
// Bookmarks with an empty directory count as Unsorted.
func (s *Store) GetBookmarksInDirectory(name string) []Bookmark {
	var result []Bookmark
	for _, b := range s.Bookmarks {
		if DirectoryOf(b) == name {
			result = append(result, b)
		}
	}
	return result
}

// LookupDirectory resolves name case-insensitively to its stored spelling.
func (s *Store) LookupDirectory(name string) (string, bool) {
	for _, d := range s.Directories {
		if strings.EqualFold(d, name) {
			return d, true
		}
	}
	return "", false
}

// HasDirectory reports whether a directory with exactly this name exists.
func (s *Store) HasDirectory(name string) bool {
	for _, d := range s.Directories {
		if d == name {
			return true
		}
	}
	return false
}

// DirectoryCounts returns the number of bookmarks per directory. Every
// known directory is present, even when empty.
func (s *Store) DirectoryCounts() map[string]int {
	counts := make(map[string]int, len(s.Directories))
	for _, d := range s.Directories {
		counts[d] = 0
	}
	for _, b := range s.Bookmarks {
		counts[DirectoryOf(b)]++
	}
	return counts
}

// Tags returns the distinct tags in first-seen order.
func (s *Store) Tags() []string {
	seen := make(map[string]bool)
	var tags []string
	for _, b := range s.Bookmarks {
		for _, t := range b.Tags {
			key := strings.ToLower(t)
			if !seen[key] {
				seen[key] = true
				tags = append(tags, t)
			}
		}
	}
	return tags
}

// IDs returns the set of bookmark IDs.
func (s *Store) IDs() map[int64]bool {
	ids := make(map[int64]bool, len(s.Bookmarks))
	for _, b := range s.Bookmarks {
		ids[b.ID] = true
	}
	return ids
}

// DirectoryOf returns the effective directory of b.
func DirectoryOf(b Bookmark) string {
	if b.Directory == "" {
		return UnsortedDirectory
	}
	return b.Directory
}
