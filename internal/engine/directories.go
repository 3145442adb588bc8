package engine

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/nikbrunner/bookmarks/internal/model"
	"github.com/nikbrunner/bookmarks/internal/validate"
)

// AddDirectory validates and creates a directory. Names are unique
// ignoring case.
func (e *Engine) AddDirectory(name string) (string, error) {
	name, err := validate.ValidateDirectoryName(name)
	if err != nil {
		return "", err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.readyLocked(); err != nil {
		return "", err
	}
	if existing, ok := e.store.LookupDirectory(name); ok {
		return "", fmt.Errorf("%w: %q", ErrDirectoryExists, existing)
	}

	e.store.Directories = append(e.store.Directories, name)
	e.pending.addDirectory(name)
	e.scheduleFlushLocked()
	return name, nil
}

// DeleteDirectory removes a directory after confirmation and moves its
// bookmarks to Unsorted. It returns the number of bookmarks moved.
func (e *Engine) DeleteDirectory(ctx context.Context, name string) (int, error) {
	if strings.EqualFold(strings.TrimSpace(name), model.UnsortedDirectory) {
		return 0, ErrReservedDirectory
	}

	e.mu.Lock()
	if err := e.readyLocked(); err != nil {
		e.mu.Unlock()
		return 0, err
	}
	dir, err := e.lookupDirectoryLocked(name)
	if err != nil {
		e.mu.Unlock()
		return 0, err
	}
	count := len(e.store.GetBookmarksInDirectory(dir))
	e.mu.Unlock()

	display := html.UnescapeString(dir)
	message := fmt.Sprintf("Delete %q directory?", display)
	if count > 0 {
		message = fmt.Sprintf("Delete %q directory? %d bookmark(s) will be moved to Unsorted.", display, count)
	}
	ok := e.prompter.Confirm(ctx, Prompt{
		Kind:      PromptDeleteDirectory,
		Message:   message,
		Directory: dir,
		Count:     count,
	})
	if !ok {
		return 0, ErrCancelled
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.readyLocked(); err != nil {
		return 0, err
	}
	if !e.store.HasDirectory(dir) {
		return 0, fmt.Errorf("%w: %q", ErrUnknownDirectory, dir)
	}

	e.store.Directories = without(e.store.Directories, dir)
	e.pending.deleteDirectory(dir)

	moved := 0
	for i := range e.store.Bookmarks {
		b := &e.store.Bookmarks[i]
		if b.Directory == dir {
			b.Directory = model.UnsortedDirectory
			e.pending.update(b.ID)
			moved++
		}
	}
	e.scheduleFlushLocked()
	e.logger.Info("directory deleted", "name", dir, "moved", moved)
	return moved, nil
}
