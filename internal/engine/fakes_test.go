package engine_test

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/nikbrunner/bookmarks/internal/engine"
	"github.com/nikbrunner/bookmarks/internal/model"
	"github.com/nikbrunner/bookmarks/internal/storage"
)

// memBookmarks is an in-memory BookmarkStore that records writes.
type memBookmarks struct {
	mu      sync.Mutex
	records []model.Bookmark
	nextID  int64
	fail    error
	loadErr error

	inserts []int64
	updates []int64
	deletes [][]int64
}

func newMemBookmarks(records ...model.Bookmark) *memBookmarks {
	m := &memBookmarks{nextID: 1}
	for _, r := range records {
		m.records = append(m.records, r.Clone())
		if r.ID >= m.nextID {
			m.nextID = r.ID + 1
		}
	}
	return m
}

func (m *memBookmarks) setFail(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fail = err
}

func (m *memBookmarks) GetAll(context.Context) ([]model.Bookmark, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	out := make([]model.Bookmark, len(m.records))
	for i, r := range m.records {
		out[i] = r.Clone()
	}
	return out, nil
}

func (m *memBookmarks) Add(_ context.Context, b model.Bookmark) (model.Bookmark, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return model.Bookmark{}, m.fail
	}
	saved, err := m.insertLocked(b)
	if err == nil {
		m.inserts = append(m.inserts, saved.ID)
	}
	return saved, err
}

func (m *memBookmarks) insertLocked(b model.Bookmark) (model.Bookmark, error) {
	if b.ID <= 0 {
		b.ID = m.nextID
	}
	if m.indexLocked(b.ID) >= 0 {
		return model.Bookmark{}, fmt.Errorf("duplicate id %d: %w", b.ID, storage.ErrStorageUnavailable)
	}
	if b.ID >= m.nextID {
		m.nextID = b.ID + 1
	}
	m.records = append(m.records, b.Clone())
	return b.Clone(), nil
}

func (m *memBookmarks) BulkAdd(_ context.Context, bookmarks []model.Bookmark) ([]model.Bookmark, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return nil, m.fail
	}
	var saved []model.Bookmark
	for _, b := range bookmarks {
		s, err := m.insertLocked(b)
		if err != nil {
			return nil, err
		}
		saved = append(saved, s)
	}
	return saved, nil
}

func (m *memBookmarks) Update(_ context.Context, b model.Bookmark) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	i := m.indexLocked(b.ID)
	if i < 0 {
		return fmt.Errorf("update %d: %w", b.ID, storage.ErrNotFound)
	}
	m.updates = append(m.updates, b.ID)
	m.records[i] = b.Clone()
	return nil
}

func (m *memBookmarks) IDs(context.Context) ([]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return nil, m.fail
	}
	ids := make([]int64, len(m.records))
	for i, r := range m.records {
		ids[i] = r.ID
	}
	return ids, nil
}

func (m *memBookmarks) BulkDelete(_ context.Context, ids []int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	m.deletes = append(m.deletes, append([]int64{}, ids...))
	m.records = slices.DeleteFunc(m.records, func(b model.Bookmark) bool {
		return slices.Contains(ids, b.ID)
	})
	return nil
}

func (m *memBookmarks) Clear(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	m.records = nil
	return nil
}

func (m *memBookmarks) indexLocked(id int64) int {
	for i, r := range m.records {
		if r.ID == id {
			return i
		}
	}
	return -1
}

func (m *memBookmarks) get(id int64) (model.Bookmark, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if i := m.indexLocked(id); i >= 0 {
		return m.records[i].Clone(), true
	}
	return model.Bookmark{}, false
}

func (m *memBookmarks) writes() (updates []int64, deletes [][]int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]int64{}, m.updates...), append([][]int64{}, m.deletes...)
}

func (m *memBookmarks) inserted() []int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]int64{}, m.inserts...)
}

// memDirectories is an in-memory DirectoryStore.
type memDirectories struct {
	mu    sync.Mutex
	names []string
	fail  error
}

func (m *memDirectories) GetAll(context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string{}, m.names...), nil
}

func (m *memDirectories) Add(_ context.Context, name string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return "", m.fail
	}
	if !slices.Contains(m.names, name) {
		m.names = append(m.names, name)
	}
	return name, nil
}

func (m *memDirectories) BulkAdd(ctx context.Context, names []string) error {
	for _, n := range names {
		if _, err := m.Add(ctx, n); err != nil {
			return err
		}
	}
	return nil
}

func (m *memDirectories) Delete(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	m.names = slices.DeleteFunc(m.names, func(n string) bool { return n == name })
	return nil
}

func (m *memDirectories) Clear(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	m.names = nil
	return nil
}

func (m *memDirectories) Initialize(ctx context.Context) error {
	_, err := m.Add(ctx, model.UnsortedDirectory)
	return err
}

func (m *memDirectories) list() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string{}, m.names...)
}

// fakePrompter answers with fixed values and records every prompt.
type fakePrompter struct {
	mu      sync.Mutex
	answer  bool
	mode    engine.ImportMode
	prompts []engine.Prompt
	imports []engine.ImportPrompt
}

func (p *fakePrompter) Confirm(_ context.Context, prompt engine.Prompt) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.prompts = append(p.prompts, prompt)
	return p.answer
}

func (p *fakePrompter) ChooseImportMode(_ context.Context, prompt engine.ImportPrompt) engine.ImportMode {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.imports = append(p.imports, prompt)
	return p.mode
}

func (p *fakePrompter) last() engine.Prompt {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.prompts[len(p.prompts)-1]
}

// fakeTitles holds scheduled title tasks until the test resolves them.
type fakeTitles struct {
	mu        sync.Mutex
	tasks     map[string]func(string)
	urls      map[string]string
	cancelled []string
	closed    bool
	n         int
}

func newFakeTitles() *fakeTitles {
	return &fakeTitles{tasks: make(map[string]func(string)), urls: make(map[string]string)}
}

func (f *fakeTitles) Schedule(url string, apply func(string)) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.n++
	id := fmt.Sprintf("task-%d", f.n)
	f.tasks[id] = apply
	f.urls[id] = url
	return id
}

func (f *fakeTitles) Cancel(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelled = append(f.cancelled, id)
}

func (f *fakeTitles) Wait() {}

func (f *fakeTitles) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
}

// resolve delivers title to the task scheduled for url, ignoring
// cancellation so late results can be simulated.
func (f *fakeTitles) resolve(url, title string) bool {
	f.mu.Lock()
	var apply func(string)
	for id, u := range f.urls {
		if u == url {
			apply = f.tasks[id]
		}
	}
	f.mu.Unlock()
	if apply == nil {
		return false
	}
	apply(title)
	return true
}

func (f *fakeTitles) cancelCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.cancelled)
}
