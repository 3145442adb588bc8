package picker

import (
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nikbrunner/bookmarks/internal/model"
	"github.com/nikbrunner/bookmarks/internal/prefs"
	"github.com/nikbrunner/bookmarks/internal/search"
)

var styles = prefs.NewStyles(prefs.Defaults())

func twoResults() []search.SearchResult {
	return []search.SearchResult{
		{Bookmark: &model.Bookmark{ID: 1, Title: "GitHub", URL: "https://github.com/"}},
		{Bookmark: &model.Bookmark{ID: 2, Title: "GitLab", URL: "https://gitlab.com/"}},
	}
}

func update(p Picker, msg tea.Msg) (Picker, tea.Cmd) {
	m, cmd := p.Update(msg)
	return m.(Picker), cmd
}

func TestPicker_InitialState(t *testing.T) {
	p := New(twoResults(), "git", styles)

	if p.cursor != 0 {
		t.Errorf("expected cursor at 0, got %d", p.cursor)
	}
	if len(p.results) != 2 {
		t.Errorf("expected 2 results, got %d", len(p.results))
	}
}

func TestPicker_NavigateDown(t *testing.T) {
	p := New(twoResults(), "git", styles)
	p, _ = update(p, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'j'}})

	if p.cursor != 1 {
		t.Errorf("expected cursor at 1, got %d", p.cursor)
	}
}

func TestPicker_NavigateUp(t *testing.T) {
	p := New(twoResults(), "git", styles)
	p.cursor = 1

	p, _ = update(p, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'k'}})
	if p.cursor != 0 {
		t.Errorf("expected cursor at 0, got %d", p.cursor)
	}
}

func TestPicker_BoundsCheck(t *testing.T) {
	p := New(twoResults()[:1], "git", styles)

	p, _ = update(p, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'k'}})
	if p.cursor != 0 {
		t.Errorf("expected cursor at 0, got %d", p.cursor)
	}

	p, _ = update(p, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'j'}})
	if p.cursor != 0 {
		t.Errorf("expected cursor at 0 (only 1 item), got %d", p.cursor)
	}
}

func TestPicker_SelectItem(t *testing.T) {
	p := New(twoResults(), "git", styles)
	p.cursor = 1

	p, cmd := update(p, tea.KeyMsg{Type: tea.KeyEnter})
	if !p.selected {
		t.Error("expected selected to be true after Enter")
	}
	if cmd == nil {
		t.Error("expected quit command after selection")
	}
	if got := p.SelectedBookmark(); got == nil || got.ID != 2 {
		t.Errorf("expected GitLab to be selected, got %+v", got)
	}
}

func TestPicker_SelectWithoutResults(t *testing.T) {
	p := New(nil, "zzz", styles)

	p, cmd := update(p, tea.KeyMsg{Type: tea.KeyEnter})
	if p.selected || cmd != nil {
		t.Error("expected Enter to do nothing without results")
	}
	if !strings.Contains(p.View(), "No matches.") {
		t.Error("expected empty message in view")
	}
}

func TestPicker_Cancel(t *testing.T) {
	p := New(twoResults(), "git", styles)

	p, cmd := update(p, tea.KeyMsg{Type: tea.KeyEsc})
	if !p.cancelled {
		t.Error("expected cancelled to be true after Esc")
	}
	if cmd == nil {
		t.Error("expected quit command after cancel")
	}
	if p.SelectedBookmark() != nil {
		t.Error("expected nil when cancelled")
	}
}

func TestPicker_ArrowKeys(t *testing.T) {
	p := New(twoResults(), "git", styles)

	p, _ = update(p, tea.KeyMsg{Type: tea.KeyDown})
	if p.cursor != 1 {
		t.Errorf("expected cursor at 1 after down arrow, got %d", p.cursor)
	}

	p, _ = update(p, tea.KeyMsg{Type: tea.KeyUp})
	if p.cursor != 0 {
		t.Errorf("expected cursor at 0 after up arrow, got %d", p.cursor)
	}
}

func TestPicker_CopyURL(t *testing.T) {
	var copied string
	p := New(twoResults(), "git", styles)
	p.copy = func(s string) error {
		copied = s
		return nil
	}

	p, cmd := update(p, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'y'}})
	if cmd != nil {
		t.Error("expected copy to keep the picker open")
	}
	if copied != "https://github.com/" {
		t.Errorf("expected URL to be copied, got %q", copied)
	}
	if !strings.Contains(p.View(), "Copied https://github.com/") {
		t.Error("expected status line after copy")
	}

	p, _ = update(p, tea.KeyMsg{Type: tea.KeyDown})
	if p.status != "" {
		t.Error("expected status to clear on the next key")
	}
}

func TestPicker_CopyFailure(t *testing.T) {
	p := New(twoResults(), "git", styles)
	p.copy = func(string) error { return errors.New("no clipboard") }

	p, _ = update(p, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'y'}})
	if p.status != "Copy failed: no clipboard" {
		t.Errorf("unexpected status %q", p.status)
	}
}

func TestPicker_ViewUnescapesTitles(t *testing.T) {
	results := []search.SearchResult{
		{Bookmark: &model.Bookmark{ID: 1, Title: "Tom &amp; Jerry", URL: "https://example.com/", Archived: true}},
	}
	view := New(results, "tom", styles).View()

	if !strings.Contains(view, "Tom & Jerry") {
		t.Errorf("expected unescaped title in view:\n%s", view)
	}
	if !strings.Contains(view, "archived") {
		t.Error("expected archived marker")
	}
}

func TestPicker_CompactHidesURL(t *testing.T) {
	compact := prefs.NewStyles(prefs.Preferences{Theme: prefs.ThemeDark, Density: prefs.DensityCompact})
	view := New(twoResults(), "git", compact).View()

	if strings.Contains(view, "https://github.com/") {
		t.Error("expected compact density to hide URLs")
	}
}

func TestPicker_ScrollsToCursor(t *testing.T) {
	var results []search.SearchResult
	for i := 1; i <= 30; i++ {
		results = append(results, search.SearchResult{Bookmark: &model.Bookmark{ID: int64(i), Title: "Item", URL: "https://example.com/"}})
	}
	p := New(results, "item", styles)
	p, _ = update(p, tea.WindowSizeMsg{Width: 80, Height: 12})
	p.cursor = 20

	start, end := p.visibleRange()
	if start > 20 || end <= 20 {
		t.Errorf("cursor 20 outside visible range [%d,%d)", start, end)
	}
}
