package engine

import (
	"context"
	"slices"

	"github.com/nikbrunner/bookmarks/internal/model"
)

// UndoAction names an undoable operation. Only deletions are undoable.
type UndoAction string

const (
	UndoDelete     UndoAction = "delete"
	UndoBulkDelete UndoAction = "bulkDelete"
)

// UndoEntry is one undoable action and the records it removed.
type UndoEntry struct {
	Action    UndoAction
	Bookmarks []model.Bookmark
}

// pushUndoLocked appends entry, evicting the oldest entries beyond capacity.
func (e *Engine) pushUndoLocked(entry UndoEntry) {
	e.undo = append(e.undo, entry)
	if over := len(e.undo) - e.undoCapacity; over > 0 {
		e.undo = append([]UndoEntry(nil), e.undo[over:]...)
	}
}

// Undo restores the records of the most recent deletion. Restored records
// are stored again and receive fresh ids; everything else is preserved.
// Records whose directory no longer exists come back in Unsorted.
func (e *Engine) Undo(ctx context.Context) (UndoEntry, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.readyLocked(); err != nil {
		return UndoEntry{}, err
	}
	if len(e.undo) == 0 {
		return UndoEntry{}, ErrNothingToUndo
	}
	entry := e.undo[len(e.undo)-1]
	e.undo = e.undo[:len(e.undo)-1]

	// Stored oldest first so ids ascend with age.
	records := make([]model.Bookmark, len(entry.Bookmarks))
	for i, b := range entry.Bookmarks {
		r := b.Clone()
		r.ID = 0
		if !e.store.HasDirectory(model.DirectoryOf(r)) {
			r.Directory = model.UnsortedDirectory
		}
		records[len(records)-1-i] = r
	}

	restored, err := e.bookmarkStore.BulkAdd(ctx, records)
	if err != nil {
		e.storageFailedLocked("undo", err)
		restored = records
		for i := range restored {
			id, err := e.uniqueIDLocked(func(id int64) bool {
				return e.idTakenLocked(id) || containsID(restored[:i], id)
			})
			if err != nil {
				e.undo = append(e.undo, entry)
				return UndoEntry{}, err
			}
			restored[i].ID = id
			e.pending.update(id)
		}
		e.scheduleFlushLocked()
	} else {
		for _, b := range restored {
			e.known[b.ID] = true
		}
	}

	slices.Reverse(restored)
	e.store.Bookmarks = append(cloneAll(restored), e.store.Bookmarks...)
	e.logger.Info("undo", "action", entry.Action, "restored", len(restored))
	return UndoEntry{Action: entry.Action, Bookmarks: cloneAll(restored)}, nil
}

func containsID(bookmarks []model.Bookmark, id int64) bool {
	for _, b := range bookmarks {
		if b.ID == id {
			return true
		}
	}
	return false
}
