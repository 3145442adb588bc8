package engine

import (
	"cmp"
	"context"
	"errors"
	"slices"

	"github.com/nikbrunner/bookmarks/internal/model"
	"github.com/nikbrunner/bookmarks/internal/storage"
)

// pendingSet tracks the deltas not yet written to the store.
type pendingSet struct {
	updates    map[int64]bool
	deletes    map[int64]bool
	dirAdds    []string
	dirDeletes []string
}

func newPendingSet() pendingSet {
	return pendingSet{
		updates: make(map[int64]bool),
		deletes: make(map[int64]bool),
	}
}

func (p *pendingSet) update(id int64) {
	p.updates[id] = true
}

func (p *pendingSet) remove(id int64) {
	delete(p.updates, id)
	p.deletes[id] = true
}

func (p *pendingSet) addDirectory(name string) {
	p.dirDeletes = without(p.dirDeletes, name)
	if !contains(p.dirAdds, name) {
		p.dirAdds = append(p.dirAdds, name)
	}
}

func (p *pendingSet) deleteDirectory(name string) {
	p.dirAdds = without(p.dirAdds, name)
	if !contains(p.dirDeletes, name) {
		p.dirDeletes = append(p.dirDeletes, name)
	}
}

func (p *pendingSet) empty() bool {
	return len(p.updates) == 0 && len(p.deletes) == 0 && len(p.dirAdds) == 0 && len(p.dirDeletes) == 0
}

func without(list []string, s string) []string {
	return slices.DeleteFunc(list, func(v string) bool { return v == s })
}

// Pending counts the deltas waiting for the next flush.
type Pending struct {
	Updates          int
	Deletes          int
	DirectoryAdds    int
	DirectoryDeletes int
}

// Total returns the number of pending writes.
func (p Pending) Total() int {
	return p.Updates + p.Deletes + p.DirectoryAdds + p.DirectoryDeletes
}

// Pending returns the current delta counts.
func (e *Engine) Pending() Pending {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Pending{
		Updates:          len(e.pending.updates),
		Deletes:          len(e.pending.deletes),
		DirectoryAdds:    len(e.pending.dirAdds),
		DirectoryDeletes: len(e.pending.dirDeletes),
	}
}

// batch is a snapshot of pending deltas taken for one flush.
type batch struct {
	inserts    []model.Bookmark
	updates    []model.Bookmark
	deletes    []int64
	dirAdds    []string
	dirDeletes []string
}

// takeLocked moves the pending deltas into a batch.
func (e *Engine) takeLocked() batch {
	var b batch
	for id := range e.pending.updates {
		rec := e.store.GetBookmarkByID(id)
		if rec == nil {
			continue
		}
		if e.known[id] {
			b.updates = append(b.updates, rec.Clone())
		} else {
			b.inserts = append(b.inserts, rec.Clone())
		}
	}
	byID := func(x, y model.Bookmark) int { return cmp.Compare(x.ID, y.ID) }
	slices.SortFunc(b.inserts, byID)
	slices.SortFunc(b.updates, byID)
	for id := range e.pending.deletes {
		b.deletes = append(b.deletes, id)
	}
	slices.Sort(b.deletes)
	b.dirAdds = e.pending.dirAdds
	b.dirDeletes = e.pending.dirDeletes

	e.pending = newPendingSet()
	return b
}

// Flush writes every pending delta. Failed writes stay pending and are
// recorded in LastError.
func (e *Engine) Flush(ctx context.Context) error {
	e.flushMu.Lock()
	defer e.flushMu.Unlock()
	return e.flushLocked(ctx)
}

// flushLocked requires flushMu.
func (e *Engine) flushLocked(ctx context.Context) error {
	e.mu.Lock()
	if e.pending.empty() {
		e.mu.Unlock()
		return nil
	}
	b := e.takeLocked()
	e.mu.Unlock()

	var errs []error
	var failedDirDeletes, failedDirAdds []string
	var failedDeletes []int64
	var failedUpdates []int64
	var written []int64

	for _, name := range b.dirDeletes {
		if err := e.directoryStore.Delete(ctx, name); err != nil {
			errs = append(errs, err)
			failedDirDeletes = append(failedDirDeletes, name)
		}
	}
	for _, name := range b.dirAdds {
		if _, err := e.directoryStore.Add(ctx, name); err != nil {
			errs = append(errs, err)
			failedDirAdds = append(failedDirAdds, name)
		}
	}
	if len(b.deletes) > 0 {
		if err := e.bookmarkStore.BulkDelete(ctx, b.deletes); err != nil {
			errs = append(errs, err)
			failedDeletes = b.deletes
		}
	}
	for _, rec := range b.updates {
		err := e.bookmarkStore.Update(ctx, rec)
		if errors.Is(err, storage.ErrNotFound) {
			// Rows deleted outside the engine are written again.
			_, err = e.bookmarkStore.Add(ctx, rec)
		}
		if err != nil {
			errs = append(errs, err)
			failedUpdates = append(failedUpdates, rec.ID)
			continue
		}
		written = append(written, rec.ID)
	}
	for _, rec := range b.inserts {
		if _, err := e.bookmarkStore.Add(ctx, rec); err != nil {
			errs = append(errs, err)
			failedUpdates = append(failedUpdates, rec.ID)
			continue
		}
		written = append(written, rec.ID)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	for _, id := range b.deletes {
		if !slices.Contains(failedDeletes, id) {
			delete(e.known, id)
		}
	}
	// A row written here and deleted since is cleared by the next flush.
	for _, id := range written {
		e.known[id] = true
	}

	// Requeue failures unless a later mutation superseded them.
	for _, name := range failedDirDeletes {
		if !contains(e.pending.dirAdds, name) {
			e.pending.deleteDirectory(name)
		}
	}
	for _, name := range failedDirAdds {
		if !contains(e.pending.dirDeletes, name) {
			e.pending.addDirectory(name)
		}
	}
	for _, id := range failedDeletes {
		if e.store.GetBookmarkByID(id) == nil {
			e.pending.remove(id)
		}
	}
	for _, id := range failedUpdates {
		if !e.pending.deletes[id] && e.store.GetBookmarkByID(id) != nil {
			e.pending.update(id)
		}
	}

	err := errors.Join(errs...)
	if err != nil {
		e.storageFailedLocked("flush", err)
	} else {
		e.logger.Debug("flushed changes",
			"inserts", len(b.inserts),
			"updates", len(b.updates),
			"deletes", len(b.deletes),
			"directory_adds", len(b.dirAdds),
			"directory_deletes", len(b.dirDeletes),
		)
	}
	return err
}

// scheduleFlushLocked wakes the background flusher. Bursts coalesce into
// one flush.
func (e *Engine) scheduleFlushLocked() {
	if e.manualFlush {
		return
	}
	select {
	case e.kick <- struct{}{}:
	default:
	}
}

func (e *Engine) startFlusher() {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	e.mu.Lock()
	if e.state != StateReady {
		e.mu.Unlock()
		cancel()
		return
	}
	e.stopFlusher = cancel
	e.flusherDone = done
	e.mu.Unlock()

	go func() {
		defer close(done)
		for {
			select {
			case <-ctx.Done():
				return
			case <-e.kick:
				if err := e.Flush(ctx); err != nil {
					e.logger.Warn("background flush failed", "err", err)
				}
			}
		}
	}()
}
