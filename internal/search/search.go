package search

import (
	"github.com/nikbrunner/bookmarks/internal/model"
	"github.com/sahilm/fuzzy"
)

// SearchResult represents a fuzzy search match.
type SearchResult struct {
	Bookmark       *model.Bookmark
	MatchedIndexes []int
	Score          int
}

// bookmarkSource implements fuzzy.Source over "title url" strings.
type bookmarkSource []*model.Bookmark

func (bs bookmarkSource) String(i int) string {
	return bs[i].Title + " " + bs[i].URL
}

func (bs bookmarkSource) Len() int {
	return len(bs)
}

// FuzzySearchBookmarks ranks bookmarks against query by title and URL.
// Returns results sorted by match score (best first).
func FuzzySearchBookmarks(bookmarks []model.Bookmark, query string) []SearchResult {
	if query == "" {
		return nil
	}

	source := make(bookmarkSource, len(bookmarks))
	for i := range bookmarks {
		source[i] = &bookmarks[i]
	}

	matches := fuzzy.FindFrom(query, source)

	results := make([]SearchResult, len(matches))
	for i, m := range matches {
		results[i] = SearchResult{
			Bookmark:       source[m.Index],
			MatchedIndexes: m.MatchedIndexes,
			Score:          m.Score,
		}
	}

	return results
}

// TitleMatches returns the matched indexes that fall inside the title,
// for highlighting.
func (r SearchResult) TitleMatches() []int {
	n := len(r.Bookmark.Title)
	var out []int
	for _, idx := range r.MatchedIndexes {
		if idx < n {
			out = append(out, idx)
		}
	}
	return out
}
