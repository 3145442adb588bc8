package engine

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/nikbrunner/bookmarks/internal/model"
	"github.com/nikbrunner/bookmarks/internal/validate"
)

// NewBookmark is the user input for AddBookmark.
type NewBookmark struct {
	URL       string
	Tags      string // comma separated
	Directory string // empty or unknown means Unsorted
}

// AddBookmark validates and stores a new bookmark. The title starts as the
// URL and is replaced when the background title fetch succeeds. Adding a
// URL that is already saved needs confirmation; declining returns
// ErrCancelled.
func (e *Engine) AddBookmark(ctx context.Context, in NewBookmark) (model.Bookmark, error) {
	url, err := validate.ValidateAndSanitizeURL(in.URL)
	if err != nil {
		return model.Bookmark{}, err
	}
	tags := validate.ParseAndValidateTags(in.Tags)

	e.mu.Lock()
	if err := e.readyLocked(); err != nil {
		e.mu.Unlock()
		return model.Bookmark{}, err
	}
	var dup *model.Bookmark
	if existing := e.store.FindByURL(url, validate.NormalizeURL); existing != nil {
		c := existing.Clone()
		dup = &c
	}
	e.mu.Unlock()

	if dup != nil {
		ok := e.prompter.Confirm(ctx, Prompt{
			Kind: PromptDuplicate,
			Message: fmt.Sprintf("A bookmark with this URL already exists:\n%q\n\nAdd anyway?",
				displayTitle(*dup)),
			Bookmarks: []model.Bookmark{*dup},
			Count:     1,
		})
		if !ok {
			return model.Bookmark{}, ErrCancelled
		}
	}

	e.mu.Lock()
	if err := e.readyLocked(); err != nil {
		e.mu.Unlock()
		return model.Bookmark{}, err
	}

	b := model.NewBookmark(model.NewBookmarkParams{
		URL:       url,
		Title:     validate.SanitizeTitle(url),
		Tags:      tags,
		Directory: e.resolveDirectoryLocked(in.Directory),
		Now:       e.now(),
	})

	saved, err := e.bookmarkStore.Add(ctx, b)
	if err != nil {
		e.storageFailedLocked("add bookmark", err)
		saved = b
		saved.ID, err = e.uniqueIDLocked(e.idTakenLocked)
		if err != nil {
			e.mu.Unlock()
			return model.Bookmark{}, err
		}
		e.pending.update(saved.ID)
		e.scheduleFlushLocked()
	} else {
		e.known[saved.ID] = true
	}

	e.store.Bookmarks = append([]model.Bookmark{saved}, e.store.Bookmarks...)
	e.mu.Unlock()

	e.logger.Info("bookmark added", "id", saved.ID, "url", saved.URL)
	e.scheduleTitle(saved.ID, saved.URL)
	return saved.Clone(), nil
}

// resolveDirectoryLocked maps name to a known directory, defaulting to
// Unsorted.
func (e *Engine) resolveDirectoryLocked(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return model.UnsortedDirectory
	}
	if dir, ok := e.store.LookupDirectory(name); ok {
		return dir
	}
	if dir, ok := e.store.LookupDirectory(validate.SanitizeHTML(name)); ok {
		return dir
	}
	return model.UnsortedDirectory
}

func (e *Engine) scheduleTitle(id int64, url string) {
	if e.titles == nil {
		return
	}
	task := e.titles.Schedule(url, func(title string) {
		e.applyTitle(id, title)
	})

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.store.GetBookmarkByID(id) == nil {
		e.titles.Cancel(task)
		return
	}
	e.titleTasks[id] = task
}

// applyTitle stores a fetched title. Results for bookmarks deleted in the
// meantime are discarded.
func (e *Engine) applyTitle(id int64, title string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	delete(e.titleTasks, id)
	if e.state != StateReady {
		return
	}
	b := e.store.GetBookmarkByID(id)
	if b == nil {
		e.logger.Debug("discarding title for deleted bookmark", "id", id)
		return
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return
	}
	b.Title = validate.SanitizeTitle(title)
	e.pending.update(id)
	e.scheduleFlushLocked()
}

// DeleteBookmark removes a bookmark after confirmation. The deletion can be
// undone.
func (e *Engine) DeleteBookmark(ctx context.Context, id int64) (model.Bookmark, error) {
	e.mu.Lock()
	if err := e.readyLocked(); err != nil {
		e.mu.Unlock()
		return model.Bookmark{}, err
	}
	existing := e.store.GetBookmarkByID(id)
	if existing == nil {
		e.mu.Unlock()
		return model.Bookmark{}, ErrNotFound
	}
	target := existing.Clone()
	e.mu.Unlock()

	ok := e.prompter.Confirm(ctx, Prompt{
		Kind:      PromptDelete,
		Message:   fmt.Sprintf("Are you sure you want to delete %q? You can undo this action.", displayTitle(target)),
		Bookmarks: []model.Bookmark{target},
		Count:     1,
	})
	if !ok {
		return model.Bookmark{}, ErrCancelled
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.readyLocked(); err != nil {
		return model.Bookmark{}, err
	}
	removed := e.removeLocked(map[int64]bool{id: true})
	if len(removed) == 0 {
		return model.Bookmark{}, ErrNotFound
	}
	e.pushUndoLocked(UndoEntry{Action: UndoDelete, Bookmarks: removed})
	e.scheduleFlushLocked()
	return removed[0].Clone(), nil
}

// BulkDelete removes all existing bookmarks among ids after one
// confirmation, as a single undoable action.
func (e *Engine) BulkDelete(ctx context.Context, ids []int64) ([]model.Bookmark, error) {
	e.mu.Lock()
	if err := e.readyLocked(); err != nil {
		e.mu.Unlock()
		return nil, err
	}
	selected := e.existingLocked(ids)
	var targets []model.Bookmark
	for _, b := range e.store.Bookmarks {
		if selected[b.ID] {
			targets = append(targets, b.Clone())
		}
	}
	e.mu.Unlock()

	if len(targets) == 0 {
		return nil, ErrNotFound
	}

	ok := e.prompter.Confirm(ctx, Prompt{
		Kind:      PromptBulkDelete,
		Message:   fmt.Sprintf("Delete %d selected bookmark(s)? You can undo this action.", len(targets)),
		Bookmarks: targets,
		Count:     len(targets),
	})
	if !ok {
		return nil, ErrCancelled
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.readyLocked(); err != nil {
		return nil, err
	}
	removed := e.removeLocked(selected)
	if len(removed) == 0 {
		return nil, ErrNotFound
	}
	e.pushUndoLocked(UndoEntry{Action: UndoBulkDelete, Bookmarks: removed})
	e.scheduleFlushLocked()
	return cloneAll(removed), nil
}

// removeLocked drops the selected bookmarks and marks them for deletion.
func (e *Engine) removeLocked(selected map[int64]bool) []model.Bookmark {
	var removed []model.Bookmark
	kept := e.store.Bookmarks[:0]
	for _, b := range e.store.Bookmarks {
		if !selected[b.ID] {
			kept = append(kept, b)
			continue
		}
		removed = append(removed, b)
		e.pending.remove(b.ID)
		if task, ok := e.titleTasks[b.ID]; ok {
			e.titles.Cancel(task)
			delete(e.titleTasks, b.ID)
		}
	}
	e.store.Bookmarks = kept
	return removed
}

// existingLocked returns the subset of ids present in the collection.
func (e *Engine) existingLocked(ids []int64) map[int64]bool {
	set := make(map[int64]bool, len(ids))
	for _, id := range ids {
		if e.store.GetBookmarkByID(id) != nil {
			set[id] = true
		}
	}
	return set
}

// ToggleArchive flips the archived flag.
func (e *Engine) ToggleArchive(id int64) (model.Bookmark, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.readyLocked(); err != nil {
		return model.Bookmark{}, err
	}
	b := e.store.GetBookmarkByID(id)
	if b == nil {
		return model.Bookmark{}, ErrNotFound
	}
	b.Archived = !b.Archived
	e.pending.update(id)
	e.scheduleFlushLocked()
	return b.Clone(), nil
}

// BulkArchive sets the archived flag on every existing bookmark among ids
// and returns how many changed.
func (e *Engine) BulkArchive(ids []int64, archived bool) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.readyLocked(); err != nil {
		return 0, err
	}
	selected := e.existingLocked(ids)
	if len(selected) == 0 {
		return 0, ErrNotFound
	}
	changed := 0
	for id := range selected {
		b := e.store.GetBookmarkByID(id)
		if b.Archived == archived {
			continue
		}
		b.Archived = archived
		e.pending.update(id)
		changed++
	}
	e.scheduleFlushLocked()
	return changed, nil
}

// MoveBookmark files a bookmark under an existing directory.
func (e *Engine) MoveBookmark(id int64, directory string) (model.Bookmark, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.readyLocked(); err != nil {
		return model.Bookmark{}, err
	}
	dir, err := e.lookupDirectoryLocked(directory)
	if err != nil {
		return model.Bookmark{}, err
	}
	b := e.store.GetBookmarkByID(id)
	if b == nil {
		return model.Bookmark{}, ErrNotFound
	}
	if b.Directory != dir {
		b.Directory = dir
		e.pending.update(id)
		e.scheduleFlushLocked()
	}
	return b.Clone(), nil
}

// BulkMove files every existing bookmark among ids under directory and
// returns how many moved.
func (e *Engine) BulkMove(ids []int64, directory string) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.readyLocked(); err != nil {
		return 0, err
	}
	dir, err := e.lookupDirectoryLocked(directory)
	if err != nil {
		return 0, err
	}
	selected := e.existingLocked(ids)
	if len(selected) == 0 {
		return 0, ErrNotFound
	}
	moved := 0
	for id := range selected {
		b := e.store.GetBookmarkByID(id)
		if b.Directory == dir {
			continue
		}
		b.Directory = dir
		e.pending.update(id)
		moved++
	}
	e.scheduleFlushLocked()
	return moved, nil
}

// Edit holds the fields to change. Nil fields keep their value.
type Edit struct {
	URL       *string
	Title     *string
	Tags      *string // comma separated
	Directory *string // empty means Unsorted
}

// EditBookmark revalidates every given field and applies them together.
// Any validation failure leaves the bookmark untouched.
func (e *Engine) EditBookmark(id int64, edit Edit) (model.Bookmark, error) {
	var url, title string
	var tags []string
	var err error

	if edit.URL != nil {
		if url, err = validate.ValidateAndSanitizeURL(*edit.URL); err != nil {
			return model.Bookmark{}, err
		}
	}
	if edit.Tags != nil {
		tags = validate.ParseAndValidateTags(*edit.Tags)
	}
	if edit.Title != nil {
		title = validate.SanitizeTitle(strings.TrimSpace(*edit.Title))
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.readyLocked(); err != nil {
		return model.Bookmark{}, err
	}

	var dir string
	if edit.Directory != nil {
		if strings.TrimSpace(*edit.Directory) == "" {
			dir = model.UnsortedDirectory
		} else if dir, err = e.lookupDirectoryLocked(*edit.Directory); err != nil {
			return model.Bookmark{}, err
		}
	}

	b := e.store.GetBookmarkByID(id)
	if b == nil {
		return model.Bookmark{}, ErrNotFound
	}

	if edit.URL != nil {
		b.URL = url
	}
	if edit.Title != nil {
		if title == "" {
			title = validate.SanitizeTitle(b.URL)
		}
		b.Title = title
	}
	if edit.Tags != nil {
		b.Tags = tags
	}
	if edit.Directory != nil {
		b.Directory = dir
	}
	e.pending.update(id)
	e.scheduleFlushLocked()
	return b.Clone(), nil
}

// lookupDirectoryLocked resolves name case-insensitively to an existing
// directory.
func (e *Engine) lookupDirectoryLocked(name string) (string, error) {
	name = strings.TrimSpace(name)
	if dir, ok := e.store.LookupDirectory(name); ok {
		return dir, nil
	}
	if dir, ok := e.store.LookupDirectory(validate.SanitizeHTML(name)); ok {
		return dir, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownDirectory, name)
}

func displayTitle(b model.Bookmark) string {
	return html.UnescapeString(b.Title)
}

func cloneAll(bookmarks []model.Bookmark) []model.Bookmark {
	out := make([]model.Bookmark, len(bookmarks))
	for i, b := range bookmarks {
		out[i] = b.Clone()
	}
	return out
}
