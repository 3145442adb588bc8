// Command bm is a local bookmark manager.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime/debug"

	"github.com/nikbrunner/bookmarks/internal/engine"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run executes one bm invocation and returns the exit code.
func run(ctx context.Context, args []string, in io.Reader, out, errOut io.Writer) (code int) {
	a := newApp(in, out, errOut)

	defer func() {
		r := recover()
		if r == nil {
			return
		}
		a.logger.Error("unexpected failure", "panic", r, "stack", string(debug.Stack()))
		closeAfterPanic(a)
		fmt.Fprintf(errOut, `
Something went wrong: %v

Changes made before this point were saved where possible.
Try the command again. If it keeps failing, start over with:

  bm reset

`, r)
		code = 2
	}()

	if err := execute(ctx, a, args); err != nil {
		fmt.Fprintln(errOut, "Error:", engine.UserMessage(err))
		return 1
	}
	return 0
}

// closeAfterPanic flushes what it can. A second panic is swallowed so the
// recovery message still prints.
func closeAfterPanic(a *app) {
	defer func() { _ = recover() }()
	a.session = false
	if err := a.close(context.Background()); err != nil {
		a.logger.Error("failed to save after crash", "err", err)
	}
}
