package engine

import (
	"context"
	"fmt"
	"io"
	"slices"

	"github.com/nikbrunner/bookmarks/internal/exporter"
	"github.com/nikbrunner/bookmarks/internal/importer"
	"github.com/nikbrunner/bookmarks/internal/model"
)

// Snapshot returns the export document for the current collection.
func (e *Engine) Snapshot() (model.Backup, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.readyLocked(); err != nil {
		return model.Backup{}, err
	}
	return exporter.NewBackup(cloneAll(e.store.Bookmarks), append([]string{}, e.store.Directories...), e.now()), nil
}

// Export writes the collection to w as a JSON backup.
func (e *Engine) Export(w io.Writer) error {
	doc, err := e.Snapshot()
	if err != nil {
		return err
	}
	return exporter.WriteJSON(w, doc)
}

// ExportFile writes a dated JSON backup into dir and returns its path.
func (e *Engine) ExportFile(dir string) (string, error) {
	doc, err := e.Snapshot()
	if err != nil {
		return "", err
	}
	return exporter.WriteFile(dir, doc, e.now())
}

// ImportResult describes a finished import.
type ImportResult struct {
	Mode     ImportMode
	Imported int
	Skipped  int // records without a collision-free id
	Dropped  int // records that failed validation
}

// Import parses a JSON backup and imports it. Malformed input returns an
// importer.FormatError and changes nothing.
func (e *Engine) Import(ctx context.Context, contents []byte) (ImportResult, error) {
	doc, err := importer.ParseBackup(contents)
	if err != nil {
		return ImportResult{}, err
	}
	return e.ImportDocument(ctx, doc)
}

// ImportDocument asks the prompter whether to merge or replace, then
// applies doc. Cancelling returns ErrCancelled.
func (e *Engine) ImportDocument(ctx context.Context, doc importer.Document) (ImportResult, error) {
	e.mu.Lock()
	if err := e.readyLocked(); err != nil {
		e.mu.Unlock()
		return ImportResult{}, err
	}
	existing := len(e.store.Bookmarks)
	e.mu.Unlock()

	mode := e.prompter.ChooseImportMode(ctx, ImportPrompt{
		Message: fmt.Sprintf("Import %d bookmark(s)?\n\n"+
			"  merge:   add to the existing %d bookmark(s)\n"+
			"  replace: delete all existing bookmarks first",
			len(doc.Bookmarks), existing),
		Incoming: len(doc.Bookmarks),
		Existing: existing,
		Dropped:  doc.Dropped,
	})

	var result ImportResult
	var err error
	switch mode {
	case ImportMerge:
		result, err = e.merge(ctx, doc)
	case ImportReplace:
		result, err = e.replace(ctx, doc)
	default:
		return ImportResult{Mode: ImportCancel}, ErrCancelled
	}
	if err != nil {
		return ImportResult{}, err
	}
	result.Mode = mode
	result.Dropped = doc.Dropped
	e.logger.Info("import finished", "mode", mode, "imported", result.Imported, "skipped", result.Skipped, "dropped", result.Dropped)
	return result, nil
}

// merge appends the imported records. Records keep their id unless it is
// taken, in which case a randomized timestamp id is generated.
func (e *Engine) merge(ctx context.Context, doc importer.Document) (ImportResult, error) {
	e.flushMu.Lock()
	defer e.flushMu.Unlock()
	if err := e.flushLocked(ctx); err != nil {
		e.logger.Warn("flush before import failed", "err", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.readyLocked(); err != nil {
		return ImportResult{}, err
	}

	// Imported directories that differ only in case map to the existing one.
	dirMap := make(map[string]string, len(doc.Directories))
	var newDirs []string
	for _, d := range doc.Directories {
		if existing, ok := e.store.LookupDirectory(d); ok {
			dirMap[d] = existing
			continue
		}
		dirMap[d] = d
		newDirs = append(newDirs, d)
	}

	e.refreshKnownLocked(ctx)
	taken := make(map[int64]bool)
	isTaken := func(id int64) bool { return taken[id] || e.idTakenLocked(id) }

	var result ImportResult
	incoming := make([]model.Bookmark, 0, len(doc.Bookmarks))
	for _, b := range doc.Bookmarks {
		r := b.Clone()
		if mapped, ok := dirMap[model.DirectoryOf(r)]; ok {
			r.Directory = mapped
		} else {
			r.Directory = model.UnsortedDirectory
		}
		if r.ID <= 0 || isTaken(r.ID) {
			id, err := e.uniqueIDLocked(isTaken)
			if err != nil {
				e.logger.Error("skipping imported bookmark", "url", r.URL, "err", err)
				result.Skipped++
				continue
			}
			r.ID = id
		}
		taken[r.ID] = true
		incoming = append(incoming, r)
	}

	if len(incoming) > 0 {
		saved, err := e.bookmarkStore.BulkAdd(ctx, incoming)
		if err != nil {
			e.storageFailedLocked("import merge", err)
			for _, r := range incoming {
				e.pending.update(r.ID)
			}
		} else {
			incoming = saved
			for _, r := range incoming {
				e.known[r.ID] = true
			}
		}
	}

	if len(newDirs) > 0 {
		if err := e.directoryStore.BulkAdd(ctx, newDirs); err != nil {
			e.storageFailedLocked("import merge directories", err)
			for _, d := range newDirs {
				e.pending.addDirectory(d)
			}
		}
	}

	e.store.Bookmarks = append(e.store.Bookmarks, incoming...)
	e.store.Directories = append(e.store.Directories, newDirs...)
	e.scheduleFlushLocked()

	result.Imported = len(incoming)
	return result, nil
}

// replace deletes every stored bookmark and directory and inserts the
// imported ones with fresh ids. The undo stack is cleared.
func (e *Engine) replace(ctx context.Context, doc importer.Document) (ImportResult, error) {
	e.flushMu.Lock()
	defer e.flushMu.Unlock()

	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.readyLocked(); err != nil {
		return ImportResult{}, err
	}

	// Stored oldest first so ids ascend with age.
	records := make([]model.Bookmark, len(doc.Bookmarks))
	for i, b := range doc.Bookmarks {
		r := b.Clone()
		r.ID = 0
		records[len(records)-1-i] = r
	}

	previous := e.store.IDs()
	for id := range e.pending.deletes {
		previous[id] = true
	}
	for id := range e.known {
		previous[id] = true
	}
	for _, task := range e.titleTasks {
		e.titles.Cancel(task)
	}
	e.titleTasks = make(map[int64]string)
	e.pending = newPendingSet()
	e.known = make(map[int64]bool)
	e.undo = nil

	saved, err := e.storeReplacement(ctx, records)
	if err != nil {
		e.storageFailedLocked("import replace", err)
		saved = records
		for i := range saved {
			id, err := e.uniqueIDLocked(func(id int64) bool {
				return previous[id] || containsID(saved[:i], id)
			})
			if err != nil {
				return ImportResult{}, err
			}
			saved[i].ID = id
			e.pending.update(id)
		}
		for id := range previous {
			e.pending.remove(id)
		}
	} else {
		for _, b := range saved {
			e.known[b.ID] = true
		}
	}

	slices.Reverse(saved)

	directories := append([]string{}, doc.Directories...)
	if err := e.replaceDirectories(ctx, directories); err != nil {
		e.storageFailedLocked("import replace directories", err)
		for _, d := range e.store.Directories {
			if !contains(directories, d) {
				e.pending.deleteDirectory(d)
			}
		}
		for _, d := range directories {
			e.pending.addDirectory(d)
		}
	}

	e.store.Bookmarks = saved
	e.store.Directories = directories
	e.scheduleFlushLocked()
	return ImportResult{Imported: len(saved)}, nil
}

// refreshKnownLocked adds every stored id to known, covering rows that
// were not loaded. A failed query keeps the current set.
func (e *Engine) refreshKnownLocked(ctx context.Context) {
	ids, err := e.bookmarkStore.IDs(ctx)
	if err != nil {
		e.logger.Warn("could not list stored ids", "err", err)
		return
	}
	for _, id := range ids {
		if !e.pending.deletes[id] {
			e.known[id] = true
		}
	}
}

func (e *Engine) storeReplacement(ctx context.Context, records []model.Bookmark) ([]model.Bookmark, error) {
	if err := e.bookmarkStore.Clear(ctx); err != nil {
		return nil, err
	}
	return e.bookmarkStore.BulkAdd(ctx, records)
}

func (e *Engine) replaceDirectories(ctx context.Context, names []string) error {
	if err := e.directoryStore.Clear(ctx); err != nil {
		return err
	}
	return e.directoryStore.BulkAdd(ctx, names)
}
