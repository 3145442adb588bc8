package prompt

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"github.com/nikbrunner/bookmarks/internal/engine"
	"github.com/nikbrunner/bookmarks/internal/logging"
	"github.com/nikbrunner/bookmarks/internal/prefs"
)

// importOptions are the buttons of the import dialog, indexed like
// importModes.
var (
	importOptions = []Option{
		{Label: "Merge", Shortcut: "m"},
		{Label: "Replace", Shortcut: "r", Danger: true},
		{Label: "Cancel", Shortcut: "c"},
	}
	importModes = []engine.ImportMode{engine.ImportMerge, engine.ImportReplace, engine.ImportCancel}
)

func destructive(k engine.PromptKind) bool {
	return k != engine.PromptDuplicate
}

func importMessage(p engine.ImportPrompt) string {
	msg := p.Message
	if p.Dropped > 0 {
		msg += fmt.Sprintf("\n\n%d invalid record(s) in the file will be skipped.", p.Dropped)
	}
	return msg
}

// Terminal shows bubbletea dialogs. Prompts are serialized.
type Terminal struct {
	in     io.Reader
	out    io.Writer
	styles prefs.Styles
	logger *log.Logger

	mu sync.Mutex
}

// NewTerminal creates a Terminal prompter reading keys from in and drawing
// on out.
func NewTerminal(in io.Reader, out io.Writer, styles prefs.Styles, logger *log.Logger) *Terminal {
	return &Terminal{in: in, out: out, styles: styles, logger: logging.OrDiscard(logger)}
}

func (t *Terminal) run(ctx context.Context, d Dialog) (int, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	p := tea.NewProgram(d,
		tea.WithInput(t.in),
		tea.WithOutput(t.out),
		tea.WithContext(ctx),
	)
	final, err := p.Run()
	if err != nil {
		t.logger.Warn("prompt aborted", "err", err)
		return -1, false
	}
	return final.(Dialog).Choice()
}

// Confirm implements engine.Prompter. Cancelling answers no.
func (t *Terminal) Confirm(ctx context.Context, p engine.Prompt) bool {
	i, ok := t.run(ctx, NewConfirm(p.Message, destructive(p.Kind), t.styles))
	return ok && i == 0
}

// ChooseImportMode implements engine.Prompter.
func (t *Terminal) ChooseImportMode(ctx context.Context, p engine.ImportPrompt) engine.ImportMode {
	i, ok := t.run(ctx, NewDialog(importMessage(p), importOptions, 0, t.styles))
	if !ok {
		return engine.ImportCancel
	}
	return importModes[i]
}

// Line asks questions as plain text lines, for pipes and dumb terminals.
// End of input answers no and cancels imports.
type Line struct {
	mu  sync.Mutex
	in  *bufio.Reader
	out io.Writer
}

// NewLine creates a Line prompter.
func NewLine(in io.Reader, out io.Writer) *Line {
	return &Line{in: bufio.NewReader(in), out: out}
}

func (l *Line) ask(question string) (string, bool) {
	fmt.Fprint(l.out, question)
	answer, err := l.in.ReadString('\n')
	if err != nil && answer == "" {
		fmt.Fprintln(l.out)
		return "", false
	}
	return strings.ToLower(strings.TrimSpace(answer)), true
}

// Confirm implements engine.Prompter.
func (l *Line) Confirm(_ context.Context, p engine.Prompt) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	answer, ok := l.ask(p.Message + " [y/N] ")
	return ok && (answer == "y" || answer == "yes")
}

// ChooseImportMode implements engine.Prompter.
func (l *Line) ChooseImportMode(_ context.Context, p engine.ImportPrompt) engine.ImportMode {
	l.mu.Lock()
	defer l.mu.Unlock()

	for {
		answer, ok := l.ask(importMessage(p) + "\n[m]erge, [r]eplace or [c]ancel? ")
		if !ok {
			return engine.ImportCancel
		}
		switch answer {
		case "m", "merge":
			return engine.ImportMerge
		case "r", "replace":
			return engine.ImportReplace
		case "", "c", "cancel":
			return engine.ImportCancel
		}
		fmt.Fprintf(l.out, "Unknown answer %q.\n", answer)
	}
}
