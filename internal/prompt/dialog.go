// Package prompt asks the user for confirmations and import choices, either
// as a bubbletea dialog on a terminal or as a plain line prompt.
package prompt

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nikbrunner/bookmarks/internal/prefs"
)

// KeyMap defines the dialog key bindings.
type KeyMap struct {
	Left    key.Binding
	Right   key.Binding
	Confirm key.Binding
	Cancel  key.Binding
}

// DefaultKeyMap returns the default vim-style bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Left: key.NewBinding(
			key.WithKeys("h", "left", "shift+tab"),
			key.WithHelp("h/left", "previous"),
		),
		Right: key.NewBinding(
			key.WithKeys("l", "right", "tab"),
			key.WithHelp("l/right", "next"),
		),
		Confirm: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "choose"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("esc", "q", "ctrl+c"),
			key.WithHelp("esc", "cancel"),
		),
	}
}

// Option is one button of a dialog. Pressing Shortcut chooses it directly.
type Option struct {
	Label    string
	Shortcut string
	Danger   bool
}

// Dialog is a modal question with a row of options.
type Dialog struct {
	message string
	options []Option
	cursor  int
	chosen  int
	done    bool
	width   int

	keys   KeyMap
	styles prefs.Styles
}

// NewDialog creates a dialog with the cursor on option def.
func NewDialog(message string, options []Option, def int, styles prefs.Styles) Dialog {
	if def < 0 || def >= len(options) {
		def = 0
	}
	return Dialog{
		message: message,
		options: options,
		cursor:  def,
		chosen:  -1,
		width:   60,
		keys:    DefaultKeyMap(),
		styles:  styles,
	}
}

// NewConfirm creates a Yes/No dialog. Destructive questions start on No.
func NewConfirm(message string, destructive bool, styles prefs.Styles) Dialog {
	def := 0
	if destructive {
		def = 1
	}
	return NewDialog(message, []Option{
		{Label: "Yes", Shortcut: "y", Danger: destructive},
		{Label: "No", Shortcut: "n"},
	}, def, styles)
}

// Init implements tea.Model.
func (d Dialog) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (d Dialog) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		d.width = min(msg.Width-4, 80)
		return d, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, d.keys.Cancel):
			d.done = true
			d.chosen = -1
			return d, tea.Quit
		case key.Matches(msg, d.keys.Confirm):
			d.done = true
			d.chosen = d.cursor
			return d, tea.Quit
		case key.Matches(msg, d.keys.Left):
			if d.cursor > 0 {
				d.cursor--
			}
			return d, nil
		case key.Matches(msg, d.keys.Right):
			if d.cursor < len(d.options)-1 {
				d.cursor++
			}
			return d, nil
		}

		if msg.Type == tea.KeyRunes {
			pressed := strings.ToLower(string(msg.Runes))
			for i, o := range d.options {
				if o.Shortcut != "" && pressed == o.Shortcut {
					d.done = true
					d.chosen = i
					d.cursor = i
					return d, tea.Quit
				}
			}
		}
	}
	return d, nil
}

// View implements tea.Model.
func (d Dialog) View() string {
	if d.done {
		return ""
	}
	var b strings.Builder
	b.WriteString(lipgloss.NewStyle().Width(max(d.width-6, 20)).Render(d.message))
	b.WriteString("\n\n")

	buttons := make([]string, len(d.options))
	for i, o := range d.options {
		label := " " + o.Label + " "
		switch {
		case i == d.cursor:
			buttons[i] = d.styles.ItemSelected.Render(label)
		case o.Danger:
			buttons[i] = d.styles.Danger.Render(label)
		default:
			buttons[i] = d.styles.Item.Render(label)
		}
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, buttons...))
	b.WriteString("\n\n")
	b.WriteString(d.hints())

	return d.styles.Dialog.Render(b.String())
}

func (d Dialog) hints() string {
	var shortcuts []string
	for _, o := range d.options {
		if o.Shortcut != "" {
			shortcuts = append(shortcuts, o.Shortcut)
		}
	}
	parts := []string{
		d.styles.HintKey.Render("h/l") + " " + d.styles.HintDesc.Render("move"),
		d.styles.HintKey.Render("enter") + " " + d.styles.HintDesc.Render("choose"),
	}
	if len(shortcuts) > 0 {
		parts = append(parts, d.styles.HintKey.Render(strings.Join(shortcuts, "/"))+" "+d.styles.HintDesc.Render("shortcut"))
	}
	parts = append(parts, d.styles.HintKey.Render("esc")+" "+d.styles.HintDesc.Render("cancel"))
	return strings.Join(parts, "  ")
}

// Choice returns the chosen option index. ok is false when the dialog was
// cancelled or is still open.
func (d Dialog) Choice() (index int, ok bool) {
	if !d.done || d.chosen < 0 {
		return -1, false
	}
	return d.chosen, true
}
