// Package engine owns the in-memory bookmark collection of a session. It
// validates every mutation, keeps the undo stack and writes changed records
// back to the store in the background.
package engine

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/nikbrunner/bookmarks/internal/legacy"
	"github.com/nikbrunner/bookmarks/internal/logging"
	"github.com/nikbrunner/bookmarks/internal/model"
	"github.com/nikbrunner/bookmarks/internal/validate"
)

// DefaultUndoCapacity bounds the undo stack.
const DefaultUndoCapacity = 50

// State is the lifecycle state of an Engine.
type State int

const (
	StateUninitialized State = iota
	StateLoading
	StateReady
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// BookmarkStore is the durable bookmark collection.
type BookmarkStore interface {
	GetAll(ctx context.Context) ([]model.Bookmark, error)
	Add(ctx context.Context, b model.Bookmark) (model.Bookmark, error)
	BulkAdd(ctx context.Context, bookmarks []model.Bookmark) ([]model.Bookmark, error)
	Update(ctx context.Context, b model.Bookmark) error
	IDs(ctx context.Context) ([]int64, error)
	BulkDelete(ctx context.Context, ids []int64) error
	Clear(ctx context.Context) error
}

// DirectoryStore is the durable directory collection.
type DirectoryStore interface {
	GetAll(ctx context.Context) ([]string, error)
	Add(ctx context.Context, name string) (string, error)
	BulkAdd(ctx context.Context, names []string) error
	Delete(ctx context.Context, name string) error
	Clear(ctx context.Context) error
	Initialize(ctx context.Context) error
}

// Migrator performs the one-time legacy import during Init.
type Migrator interface {
	Run(ctx context.Context) (legacy.Report, error)
}

// TitleScheduler fetches page titles in the background. fetch.Runner
// implements it.
type TitleScheduler interface {
	Schedule(url string, apply func(title string)) string
	Cancel(id string)
	Wait()
	Close()
}

// Params holds the collaborators of an Engine. Bookmarks and Directories
// are required.
type Params struct {
	Bookmarks   BookmarkStore
	Directories DirectoryStore
	Migrator    Migrator       // optional
	Prompter    Prompter       // nil confirms everything and merges imports
	Titles      TitleScheduler // optional
	Logger      *log.Logger
	Now         func() time.Time
	Rand        *rand.Rand

	UndoCapacity int
	// ManualFlush disables the background flusher; deltas are written only
	// by Flush and Close.
	ManualFlush bool
}

// LoadReport describes what Init loaded.
type LoadReport struct {
	Bookmarks   int
	Directories int
	Dropped     int
	Migration   legacy.Report
}

// Engine is the reconciliation engine. All methods are safe for concurrent
// use.
type Engine struct {
	bookmarkStore  BookmarkStore
	directoryStore DirectoryStore
	migrator       Migrator
	prompter       Prompter
	titles         TitleScheduler
	logger         *log.Logger
	now            func() time.Time
	randN          func(n int64) int64
	undoCapacity   int
	manualFlush    bool

	// flushMu serializes store writes of deltas. Lock order: flushMu, mu.
	flushMu sync.Mutex

	mu         sync.Mutex
	state      State
	store      *model.Store
	undo       []UndoEntry
	pending    pendingSet
	// known holds the ids with a stored row, loaded or not. Flushes update
	// known ids and insert the rest.
	known      map[int64]bool
	titleTasks map[int64]string
	lastErr    error
	idCounter  int64

	kick        chan struct{}
	stopFlusher context.CancelFunc
	flusherDone chan struct{}
}

// New creates an uninitialized Engine.
func New(params Params) *Engine {
	prompter := params.Prompter
	if prompter == nil {
		prompter = AutoPrompter{Answer: true, Mode: ImportMerge}
	}

	now := params.Now
	if now == nil {
		now = time.Now
	}

	randN := rand.Int64N
	if params.Rand != nil {
		randN = params.Rand.Int64N
	}

	capacity := params.UndoCapacity
	if capacity <= 0 {
		capacity = DefaultUndoCapacity
	}

	return &Engine{
		bookmarkStore:  params.Bookmarks,
		directoryStore: params.Directories,
		migrator:       params.Migrator,
		prompter:       prompter,
		titles:         params.Titles,
		logger:         logging.OrDiscard(params.Logger),
		now:            now,
		randN:          randN,
		undoCapacity:   capacity,
		manualFlush:    params.ManualFlush,
		store:          model.NewStore(),
		pending:        newPendingSet(),
		known:          make(map[int64]bool),
		titleTasks:     make(map[int64]string),
		kick:           make(chan struct{}, 1),
	}
}

// Init initializes directories, runs the legacy migration and loads the
// collections. On a load failure the engine still becomes ready, with an
// empty collection and LastError set, and the failure is returned.
func (e *Engine) Init(ctx context.Context) (LoadReport, error) {
	e.mu.Lock()
	if e.state != StateUninitialized {
		e.mu.Unlock()
		return LoadReport{}, ErrAlreadyInitialized
	}
	e.state = StateLoading
	e.mu.Unlock()

	bookmarks, directories, stored, report, err := e.load(ctx)

	e.mu.Lock()
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrLoadFailed, err)
		e.logger.Error("failed to load data", "err", err)
		e.store = model.NewStore()
		e.lastErr = err
	} else {
		e.store = &model.Store{Bookmarks: bookmarks, Directories: directories}
		for _, id := range stored {
			e.known[id] = true
		}
	}
	e.pending = newPendingSet()
	e.state = StateReady
	e.mu.Unlock()

	if !e.manualFlush {
		e.startFlusher()
	}
	return report, err
}

// load returns the valid bookmarks, the directories and the id of every
// stored bookmark row.
func (e *Engine) load(ctx context.Context) ([]model.Bookmark, []string, []int64, LoadReport, error) {
	var report LoadReport

	if err := e.directoryStore.Initialize(ctx); err != nil {
		return nil, nil, nil, report, err
	}

	if e.migrator != nil {
		mrep, err := e.migrator.Run(ctx)
		if err != nil {
			e.logger.Warn("legacy migration incomplete", "err", err)
		}
		report.Migration = mrep
	}

	all, err := e.bookmarkStore.GetAll(ctx)
	if err != nil {
		return nil, nil, nil, report, err
	}
	stored := make([]int64, len(all))
	for i, b := range all {
		stored[i] = b.ID
	}
	bookmarks, dropped := validate.FilterBookmarks(all)
	// The store returns insertion order; sessions show newest first.
	slices.Reverse(bookmarks)
	if dropped > 0 {
		e.logger.Warn("dropped invalid bookmarks", "count", dropped)
	}

	directories, err := e.directoryStore.GetAll(ctx)
	if err != nil {
		return nil, nil, nil, report, err
	}
	if !contains(directories, model.UnsortedDirectory) {
		if _, err := e.directoryStore.Add(ctx, model.UnsortedDirectory); err != nil {
			return nil, nil, nil, report, err
		}
	}
	directories = append([]string{model.UnsortedDirectory}, without(directories, model.UnsortedDirectory)...)

	report.Bookmarks = len(bookmarks)
	report.Directories = len(directories)
	report.Dropped = dropped
	return bookmarks, directories, stored, report, nil
}

// Close cancels title fetches, stops the background flusher and writes the
// remaining deltas. The engine rejects operations afterwards.
func (e *Engine) Close(ctx context.Context) error {
	e.mu.Lock()
	if e.state == StateClosed {
		e.mu.Unlock()
		return nil
	}
	e.state = StateClosed
	stop, done := e.stopFlusher, e.flusherDone
	e.mu.Unlock()

	if e.titles != nil {
		e.titles.Close()
	}
	if stop != nil {
		stop()
		<-done
	}
	return e.Flush(ctx)
}

// WaitTitles blocks until scheduled title fetches finish or ctx is done.
func (e *Engine) WaitTitles(ctx context.Context) error {
	if e.titles == nil {
		return nil
	}
	done := make(chan struct{})
	go func() {
		e.titles.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// State returns the lifecycle state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// LastError returns the most recent storage or load failure, or nil.
func (e *Engine) LastError() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastErr
}

// ClearError dismisses LastError.
func (e *Engine) ClearError() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.lastErr = nil
}

// Bookmarks returns a copy of the collection, newest additions first.
func (e *Engine) Bookmarks() []model.Bookmark {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]model.Bookmark, len(e.store.Bookmarks))
	for i, b := range e.store.Bookmarks {
		out[i] = b.Clone()
	}
	return out
}

// Bookmark returns the bookmark with the given id.
func (e *Engine) Bookmark(id int64) (model.Bookmark, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	b := e.store.GetBookmarkByID(id)
	if b == nil {
		return model.Bookmark{}, false
	}
	return b.Clone(), true
}

// Directories returns the directory names, Unsorted included.
func (e *Engine) Directories() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string{}, e.store.Directories...)
}

// DirectoryCounts returns the number of bookmarks per directory.
func (e *Engine) DirectoryCounts() map[string]int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.DirectoryCounts()
}

// Tags returns the distinct tags in use.
func (e *Engine) Tags() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.Tags()
}

// UndoDepth returns the number of undoable actions.
func (e *Engine) UndoDepth() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.undo)
}

func (e *Engine) readyLocked() error {
	switch e.state {
	case StateReady:
		return nil
	case StateClosed:
		return ErrClosed
	default:
		return ErrNotReady
	}
}

// storageFailedLocked records a storage failure that did not stop the
// in-memory mutation.
func (e *Engine) storageFailedLocked(op string, err error) {
	e.logger.Error("storage write failed", "op", op, "err", err)
	e.lastErr = err
}

const maxIDAttempts = 1000

// idTakenLocked reports whether id is held in memory, has a stored row or
// awaits deletion.
func (e *Engine) idTakenLocked(id int64) bool {
	return e.known[id] || e.pending.deletes[id] || e.store.GetBookmarkByID(id) != nil
}

// uniqueIDLocked generates a randomized timestamp id not rejected by taken.
func (e *Engine) uniqueIDLocked(taken func(int64) bool) (int64, error) {
	for attempt := 0; attempt < maxIDAttempts; attempt++ {
		id := e.now().UnixMilli()*1000 + e.randN(1000) + e.idCounter
		e.idCounter++
		if id > 0 && !taken(id) {
			return id, nil
		}
	}
	return 0, errors.New("no unique id after max attempts")
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
