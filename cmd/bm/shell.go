package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nikbrunner/bookmarks/internal/engine"
)

func newShellCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Run several commands against one live session",
		Long: `Read commands line by line and run them against one open session, so
undo works across commands and pending writes are flushed in the
background. Type "help" for the command list and "exit" to leave.`,
		Args:        cobra.NoArgs,
		Annotations: map[string]string{skipEngine: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShell(cmd.Context(), a)
		},
	}
}

func runShell(ctx context.Context, a *app) error {
	// Prompts and commands share one buffered reader.
	reader := bufio.NewReader(a.in)
	a.in = reader
	a.session = true
	defer func() { a.session = false }()

	if err := a.open(ctx); err != nil {
		return err
	}

	for {
		if a.interactive() {
			fmt.Fprint(a.out, "bm> ")
		}
		line, err := reader.ReadString('\n')
		if done := a.runShellLine(ctx, line); done {
			return nil
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read command: %w", err)
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}

// runShellLine executes one line and reports whether the shell should exit.
func (a *app) runShellLine(ctx context.Context, line string) bool {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return false
	}

	args, err := splitArgs(line)
	if err != nil {
		fmt.Fprintln(a.errOut, "Error:", err)
		return false
	}
	switch args[0] {
	case "exit", "quit":
		return true
	case "bm":
		args = args[1:]
	}
	if len(args) == 0 {
		return false
	}

	if err := execute(ctx, a, args); err != nil {
		fmt.Fprintln(a.errOut, "Error:", engine.UserMessage(err))
	}
	return false
}

// splitArgs splits a command line into words. Single quotes keep text
// literally; double quotes allow \" and \\ escapes.
func splitArgs(line string) ([]string, error) {
	var (
		args    []string
		current strings.Builder
		inWord  bool
		quote   rune
		escaped bool
	)

	for _, r := range line {
		switch {
		case escaped:
			current.WriteRune(r)
			escaped = false
		case quote == '\'':
			if r == '\'' {
				quote = 0
			} else {
				current.WriteRune(r)
			}
		case r == '\\':
			escaped = true
			inWord = true
		case quote == '"':
			if r == '"' {
				quote = 0
			} else {
				current.WriteRune(r)
			}
		case r == '\'' || r == '"':
			quote = r
			inWord = true
		case r == ' ' || r == '\t':
			if inWord {
				args = append(args, current.String())
				current.Reset()
				inWord = false
			}
		default:
			current.WriteRune(r)
			inWord = true
		}
	}

	if quote != 0 {
		return nil, fmt.Errorf("unterminated %c quote", quote)
	}
	if escaped {
		return nil, errors.New("trailing backslash")
	}
	if inWord {
		args = append(args, current.String())
	}
	return args, nil
}
