// Package view derives the filtered, sorted bookmark listing shown to the
// user from the engine's canonical collection.
package view

import (
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/nikbrunner/bookmarks/internal/model"
)

// Filter selects bookmarks by archived state.
type Filter string

const (
	FilterAll      Filter = "all"
	FilterUnread   Filter = "unread"
	FilterArchived Filter = "archived"
)

// Sort orders the listing.
type Sort string

const (
	SortDateDesc  Sort = "date-desc"
	SortDateAsc   Sort = "date-asc"
	SortTitleAsc  Sort = "title-asc"
	SortTitleDesc Sort = "title-desc"
)

// ParseFilter validates s. Empty means FilterAll.
func ParseFilter(s string) (Filter, error) {
	switch f := Filter(strings.ToLower(s)); f {
	case "":
		return FilterAll, nil
	case FilterAll, FilterUnread, FilterArchived:
		return f, nil
	}
	return "", fmt.Errorf("unknown filter %q (want all, unread or archived)", s)
}

// ParseSort validates s. Empty means SortDateDesc.
func ParseSort(s string) (Sort, error) {
	switch o := Sort(strings.ToLower(s)); o {
	case "":
		return SortDateDesc, nil
	case SortDateDesc, SortDateAsc, SortTitleAsc, SortTitleDesc:
		return o, nil
	}
	return "", fmt.Errorf("unknown sort %q (want date-desc, date-asc, title-asc or title-desc)", s)
}

// Query describes one listing.
type Query struct {
	Term      string // case-insensitive substring of title, url or any tag
	Filter    Filter
	Directory string
	Tag       string
	Sort      Sort
	Where     string // optional boolean expression, see Compile
}

// env is the variable set visible to Where expressions.
type env struct {
	ID        int64    `expr:"id"`
	URL       string   `expr:"url"`
	Domain    string   `expr:"domain"`
	Title     string   `expr:"title"`
	Tags      []string `expr:"tags"`
	Directory string   `expr:"directory"`
	Archived  bool     `expr:"archived"`
	DateAdded string   `expr:"dateAdded"`
}

func newEnv(b model.Bookmark) env {
	var domain string
	if u, err := url.Parse(b.URL); err == nil {
		domain = strings.TrimPrefix(u.Hostname(), "www.")
	}
	return env{
		ID:        b.ID,
		URL:       b.URL,
		Domain:    domain,
		Title:     b.Title,
		Tags:      b.Tags,
		Directory: model.DirectoryOf(b),
		Archived:  b.Archived,
		DateAdded: b.DateAdded,
	}
}

// Predicate is a compiled Where expression.
type Predicate struct {
	program *vm.Program
}

// Compile compiles a boolean expression over id, url, domain, title, tags,
// directory, archived and dateAdded, e.g. `domain == "go.dev" && !archived`.
func Compile(expression string) (*Predicate, error) {
	program, err := expr.Compile(expression, expr.Env(env{}), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("compile %q: %w", expression, err)
	}
	return &Predicate{program: program}, nil
}

// Match evaluates the predicate against b.
func (p *Predicate) Match(b model.Bookmark) (bool, error) {
	out, err := expr.Run(p.program, newEnv(b))
	if err != nil {
		return false, err
	}
	ok, _ := out.(bool)
	return ok, nil
}

// Apply returns a filtered, sorted copy of bookmarks.
func Apply(bookmarks []model.Bookmark, q Query) ([]model.Bookmark, error) {
	var where *Predicate
	if strings.TrimSpace(q.Where) != "" {
		p, err := Compile(q.Where)
		if err != nil {
			return nil, err
		}
		where = p
	}

	term := strings.ToLower(strings.TrimSpace(q.Term))
	result := make([]model.Bookmark, 0, len(bookmarks))
	for _, b := range bookmarks {
		if !matchFilter(b, q.Filter) {
			continue
		}
		if q.Directory != "" && model.DirectoryOf(b) != q.Directory {
			continue
		}
		if q.Tag != "" && !hasTag(b, q.Tag) {
			continue
		}
		if term != "" && !matchTerm(b, term) {
			continue
		}
		if where != nil {
			ok, err := where.Match(b)
			if err != nil {
				return nil, fmt.Errorf("evaluate where for bookmark %d: %w", b.ID, err)
			}
			if !ok {
				continue
			}
		}
		result = append(result, b)
	}

	SortBookmarks(result, q.Sort)
	return result, nil
}

// SortBookmarks sorts in place. Ties fall back to newest id first.
func SortBookmarks(bookmarks []model.Bookmark, order Sort) {
	less := func(a, b model.Bookmark) bool {
		switch order {
		case SortDateAsc:
			if ta, tb := a.AddedAt(), b.AddedAt(); !ta.Equal(tb) {
				return ta.Before(tb)
			}
		case SortTitleAsc, SortTitleDesc:
			if ta, tb := strings.ToLower(a.Title), strings.ToLower(b.Title); ta != tb {
				if order == SortTitleAsc {
					return ta < tb
				}
				return ta > tb
			}
		default:
			if ta, tb := a.AddedAt(), b.AddedAt(); !ta.Equal(tb) {
				return ta.After(tb)
			}
		}
		return a.ID > b.ID
	}
	sort.SliceStable(bookmarks, func(i, j int) bool {
		return less(bookmarks[i], bookmarks[j])
	})
}

func matchFilter(b model.Bookmark, f Filter) bool {
	switch f {
	case FilterUnread:
		return !b.Archived
	case FilterArchived:
		return b.Archived
	default:
		return true
	}
}

func matchTerm(b model.Bookmark, term string) bool {
	if strings.Contains(strings.ToLower(b.Title), term) || strings.Contains(strings.ToLower(b.URL), term) {
		return true
	}
	for _, t := range b.Tags {
		if strings.Contains(strings.ToLower(t), term) {
			return true
		}
	}
	return false
}

func hasTag(b model.Bookmark, tag string) bool {
	for _, t := range b.Tags {
		if strings.EqualFold(t, tag) {
			return true
		}
	}
	return false
}
