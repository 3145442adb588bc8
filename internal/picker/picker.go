// Package picker is a small bubbletea list for choosing one search result.
package picker

import (
	"fmt"
	"html"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/nikbrunner/bookmarks/internal/model"
	"github.com/nikbrunner/bookmarks/internal/prefs"
	"github.com/nikbrunner/bookmarks/internal/search"
)

// KeyMap defines the picker key bindings.
type KeyMap struct {
	Up     key.Binding
	Down   key.Binding
	Select key.Binding
	Copy   key.Binding
	Cancel key.Binding
}

// DefaultKeyMap returns the default vim-style key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("k/up", "move up"),
		),
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("j/down", "move down"),
		),
		Select: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "select"),
		),
		Copy: key.NewBinding(
			key.WithKeys("y"),
			key.WithHelp("y", "copy URL"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("q", "esc", "ctrl+c"),
			key.WithHelp("q/esc", "cancel"),
		),
	}
}

// Picker is a simple TUI for selecting from search results.
type Picker struct {
	results   []search.SearchResult
	query     string
	cursor    int
	selected  bool
	cancelled bool
	status    string
	width     int
	height    int

	keys   KeyMap
	styles prefs.Styles
	copy   func(string) error
}

// New creates a new Picker with the given search results.
func New(results []search.SearchResult, query string, styles prefs.Styles) Picker {
	return Picker{
		results: results,
		query:   query,
		width:   80,
		height:  24,
		keys:    DefaultKeyMap(),
		styles:  styles,
		copy:    clipboard.WriteAll,
	}
}

// Init implements tea.Model.
func (p Picker) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (p Picker) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		p.width = msg.Width
		p.height = msg.Height
		return p, nil

	case tea.KeyMsg:
		p.status = ""
		switch {
		case key.Matches(msg, p.keys.Cancel):
			p.cancelled = true
			return p, tea.Quit

		case key.Matches(msg, p.keys.Select):
			if len(p.results) == 0 {
				return p, nil
			}
			p.selected = true
			return p, tea.Quit

		case key.Matches(msg, p.keys.Down):
			if p.cursor < len(p.results)-1 {
				p.cursor++
			}
			return p, nil

		case key.Matches(msg, p.keys.Up):
			if p.cursor > 0 {
				p.cursor--
			}
			return p, nil

		case key.Matches(msg, p.keys.Copy):
			if b := p.current(); b != nil {
				if err := p.copy(b.URL); err != nil {
					p.status = "Copy failed: " + err.Error()
				} else {
					p.status = "Copied " + b.URL
				}
			}
			return p, nil
		}
	}

	return p, nil
}

func (p Picker) current() *model.Bookmark {
	if p.cursor < len(p.results) {
		return p.results[p.cursor].Bookmark
	}
	return nil
}

// visibleRange returns the window of results that fits the height.
func (p Picker) visibleRange() (int, int) {
	rowHeight := 1 + p.styles.Spacing.RowGap
	if p.styles.Spacing.ShowURL {
		rowHeight++
	}
	rows := max((p.height-6)/rowHeight, 1)

	start := 0
	if p.cursor >= rows {
		start = p.cursor - rows + 1
	}
	return start, min(start+rows, len(p.results))
}

// View implements tea.Model.
func (p Picker) View() string {
	var b strings.Builder
	sp := p.styles.Spacing
	width := max(p.width-2*sp.PadX-4, 10)

	b.WriteString(p.styles.Header.Render(fmt.Sprintf("Search: %s (%d results)", p.query, len(p.results))))
	b.WriteString("\n\n")

	if len(p.results) == 0 {
		b.WriteString(p.styles.Empty.Render("No matches."))
		b.WriteString("\n")
	}

	start, end := p.visibleRange()
	for i := start; i < end; i++ {
		bm := p.results[i].Bookmark
		cursor := "  "
		style := p.styles.Item
		if i == p.cursor {
			cursor = "> "
			style = p.styles.ItemSelected
		}

		title := prefs.Truncate(html.UnescapeString(bm.Title), width)
		line := style.Render(title)
		if bm.Archived {
			line += " " + p.styles.Archived.Render("archived")
		}
		b.WriteString(cursor + line + "\n")
		if sp.ShowURL {
			b.WriteString("   " + p.styles.URL.Render(prefs.Truncate(bm.URL, width)) + "\n")
		}
		b.WriteString(strings.Repeat("\n", sp.RowGap))
	}

	b.WriteString("\n")
	if p.status != "" {
		b.WriteString(p.styles.Status.Render(p.status))
		b.WriteString("\n")
	}
	b.WriteString(p.help())

	return p.styles.App.Render(b.String())
}

func (p Picker) help() string {
	bindings := []key.Binding{p.keys.Down, p.keys.Select, p.keys.Copy, p.keys.Cancel}
	parts := make([]string, len(bindings))
	for i, kb := range bindings {
		h := kb.Help()
		parts[i] = p.styles.HintKey.Render(h.Key) + " " + p.styles.HintDesc.Render(h.Desc)
	}
	return strings.Join(parts, "  ")
}

// SelectedBookmark returns the selected bookmark, or nil if cancelled.
func (p Picker) SelectedBookmark() *model.Bookmark {
	if p.cancelled || !p.selected {
		return nil
	}
	return p.current()
}

// Cancelled returns true if the user cancelled the selection.
func (p Picker) Cancelled() bool {
	return p.cancelled
}
