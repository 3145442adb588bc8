package prompt

import (
	"bytes"
	"context"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nikbrunner/bookmarks/internal/engine"
	"github.com/nikbrunner/bookmarks/internal/prefs"
)

var testStyles = prefs.NewStyles(prefs.Defaults())

func press(d Dialog, msgs ...tea.KeyMsg) (Dialog, tea.Cmd) {
	var cmd tea.Cmd
	for _, msg := range msgs {
		var m tea.Model
		m, cmd = d.Update(msg)
		d = m.(Dialog)
	}
	return d, cmd
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestConfirm_DestructiveStartsOnNo(t *testing.T) {
	d := NewConfirm("Delete?", true, testStyles)
	if d.cursor != 1 {
		t.Errorf("expected cursor on No, got %d", d.cursor)
	}

	d = NewConfirm("Add anyway?", false, testStyles)
	if d.cursor != 0 {
		t.Errorf("expected cursor on Yes, got %d", d.cursor)
	}
}

func TestDialog_Navigate(t *testing.T) {
	d := NewDialog("Import?", importOptions, 0, testStyles)

	d, _ = press(d, runes("l"), tea.KeyMsg{Type: tea.KeyRight})
	if d.cursor != 2 {
		t.Errorf("expected cursor at 2, got %d", d.cursor)
	}

	d, _ = press(d, tea.KeyMsg{Type: tea.KeyRight})
	if d.cursor != 2 {
		t.Errorf("expected cursor to stay at 2, got %d", d.cursor)
	}

	d, _ = press(d, runes("h"), runes("h"), runes("h"))
	if d.cursor != 0 {
		t.Errorf("expected cursor at 0, got %d", d.cursor)
	}
}

func TestDialog_Enter(t *testing.T) {
	d := NewDialog("Import?", importOptions, 0, testStyles)
	d, cmd := press(d, tea.KeyMsg{Type: tea.KeyRight}, tea.KeyMsg{Type: tea.KeyEnter})

	if cmd == nil {
		t.Error("expected quit command after Enter")
	}
	i, ok := d.Choice()
	if !ok || i != 1 {
		t.Errorf("expected choice 1, got %d (ok=%v)", i, ok)
	}
	if d.View() != "" {
		t.Error("expected empty view after choosing")
	}
}

func TestDialog_Shortcut(t *testing.T) {
	d := NewConfirm("Delete?", true, testStyles)
	d, cmd := press(d, runes("Y"))

	if cmd == nil {
		t.Error("expected quit command after shortcut")
	}
	if i, ok := d.Choice(); !ok || i != 0 {
		t.Errorf("expected Yes, got %d (ok=%v)", i, ok)
	}
}

func TestDialog_Cancel(t *testing.T) {
	d := NewConfirm("Delete?", true, testStyles)
	d, cmd := press(d, tea.KeyMsg{Type: tea.KeyEsc})

	if cmd == nil {
		t.Error("expected quit command after cancel")
	}
	if _, ok := d.Choice(); ok {
		t.Error("expected no choice after cancel")
	}
}

func TestDialog_OpenHasNoChoice(t *testing.T) {
	d := NewConfirm("Delete?", false, testStyles)
	if _, ok := d.Choice(); ok {
		t.Error("expected no choice while open")
	}
	view := d.View()
	for _, want := range []string{"Delete?", "Yes", "No", "esc"} {
		if !strings.Contains(view, want) {
			t.Errorf("expected view to contain %q:\n%s", want, view)
		}
	}
}

func TestLine_Confirm(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"y\n", true},
		{"YES\n", true},
		{"n\n", false},
		{"\n", false},
		{"", false},
	}
	for _, tt := range tests {
		var out bytes.Buffer
		l := NewLine(strings.NewReader(tt.input), &out)
		got := l.Confirm(context.Background(), engine.Prompt{Message: "Delete \"Go\"?"})
		if got != tt.want {
			t.Errorf("input %q: got %v, want %v", tt.input, got, tt.want)
		}
		if !strings.Contains(out.String(), "[y/N]") {
			t.Errorf("expected question in output, got %q", out.String())
		}
	}
}

func TestLine_ChooseImportMode(t *testing.T) {
	tests := []struct {
		input string
		want  engine.ImportMode
	}{
		{"m\n", engine.ImportMerge},
		{"replace\n", engine.ImportReplace},
		{"c\n", engine.ImportCancel},
		{"what\nr\n", engine.ImportReplace},
		{"", engine.ImportCancel},
	}
	for _, tt := range tests {
		var out bytes.Buffer
		l := NewLine(strings.NewReader(tt.input), &out)
		got := l.ChooseImportMode(context.Background(), engine.ImportPrompt{Message: "Import 2 bookmark(s)?", Dropped: 1})
		if got != tt.want {
			t.Errorf("input %q: got %v, want %v", tt.input, got, tt.want)
		}
		if !strings.Contains(out.String(), "1 invalid record(s)") {
			t.Errorf("expected dropped count in output, got %q", out.String())
		}
	}
}
