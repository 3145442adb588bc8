package legacy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/nikbrunner/bookmarks/internal/logging"
	"github.com/nikbrunner/bookmarks/internal/model"
	"github.com/nikbrunner/bookmarks/internal/storage"
	"github.com/nikbrunner/bookmarks/internal/validate"
)

// BookmarkWriter is the part of the bookmark collection migration needs.
type BookmarkWriter interface {
	Clear(ctx context.Context) error
	BulkAdd(ctx context.Context, bookmarks []model.Bookmark) ([]model.Bookmark, error)
}

// DirectoryWriter is the part of the directory collection migration needs.
type DirectoryWriter interface {
	Clear(ctx context.Context) error
	BulkAdd(ctx context.Context, names []string) error
}

// SettingsStore reads and writes settings.
type SettingsStore interface {
	Get(ctx context.Context, key string) (json.RawMessage, bool, error)
	Set(ctx context.Context, key string, value any) error
}

// Params holds the collaborators of a Migrator.
type Params struct {
	Source      Source
	Bookmarks   BookmarkWriter
	Directories DirectoryWriter
	Settings    SettingsStore
	Logger      *log.Logger
}

// Migrator copies legacy data into the store once.
type Migrator struct {
	source      Source
	bookmarks   BookmarkWriter
	directories DirectoryWriter
	settings    SettingsStore
	logger      *log.Logger
}

// Report describes what a migration run did.
type Report struct {
	Skipped       bool // the migrated flag was already set
	Bookmarks     int
	Dropped       int
	Directories   int
	LayoutDensity string
}

// New creates a Migrator.
func New(params Params) *Migrator {
	return &Migrator{
		source:      params.Source,
		bookmarks:   params.Bookmarks,
		directories: params.Directories,
		settings:    params.Settings,
		logger:      logging.OrDiscard(params.Logger),
	}
}

// Run migrates bookmarks, directories and the layout density, then sets the
// migrated flag. Steps are best-effort: a failing step is logged and
// reported in the joined error, the others still run, and the flag is set
// regardless.
func (m *Migrator) Run(ctx context.Context) (Report, error) {
	migrated, err := storage.GetOr(ctx, m.settings, storage.KeyMigrated, false)
	if err != nil {
		return Report{}, fmt.Errorf("read migrated flag: %w", err)
	}
	if migrated {
		return Report{Skipped: true}, nil
	}

	var report Report
	var errs []error

	steps := []struct {
		name string
		run  func(context.Context, *Report) error
	}{
		{"bookmarks", m.migrateBookmarks},
		{"directories", m.migrateDirectories},
		{"layout density", m.migrateLayoutDensity},
	}
	for _, step := range steps {
		if err := step.run(ctx, &report); err != nil {
			m.logger.Warn("legacy migration step failed", "step", step.name, "err", err)
			errs = append(errs, fmt.Errorf("migrate %s: %w", step.name, err))
		}
	}

	if err := m.settings.Set(ctx, storage.KeyMigrated, true); err != nil {
		errs = append(errs, fmt.Errorf("set migrated flag: %w", err))
	}

	m.logger.Info("legacy migration finished",
		"bookmarks", report.Bookmarks,
		"dropped", report.Dropped,
		"directories", report.Directories,
	)
	return report, errors.Join(errs...)
}

func (m *Migrator) migrateBookmarks(ctx context.Context, report *Report) error {
	raw, ok, err := m.source.Get(ctx, KeyBookmarks)
	if err != nil || !ok {
		return err
	}

	bookmarks, dropped, err := validate.DecodeRecords([]byte(raw))
	if err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	report.Dropped = dropped
	if dropped > 0 {
		m.logger.Warn("dropped invalid legacy bookmarks", "count", dropped)
	}
	if len(bookmarks) == 0 {
		return nil
	}

	if err := m.bookmarks.Clear(ctx); err != nil {
		return err
	}
	saved, err := m.bookmarks.BulkAdd(ctx, bookmarks)
	if err != nil {
		return err
	}
	report.Bookmarks = len(saved)
	return nil
}

func (m *Migrator) migrateDirectories(ctx context.Context, report *Report) error {
	raw, ok, err := m.source.Get(ctx, KeyDirectories)
	if err != nil || !ok {
		return err
	}

	var values []any
	if err := json.Unmarshal([]byte(raw), &values); err != nil {
		return fmt.Errorf("decode: %w", err)
	}

	names := make([]string, 0, len(values))
	for _, v := range values {
		if name, ok := v.(string); ok && strings.TrimSpace(name) != "" {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return nil
	}

	if err := m.directories.Clear(ctx); err != nil {
		return err
	}
	if err := m.directories.BulkAdd(ctx, names); err != nil {
		return err
	}
	report.Directories = len(names)
	return nil
}

func (m *Migrator) migrateLayoutDensity(ctx context.Context, report *Report) error {
	raw, ok, err := m.source.Get(ctx, KeyLayoutDensity)
	if err != nil || !ok {
		return err
	}

	density := strings.TrimSpace(raw)
	var quoted string
	if json.Unmarshal([]byte(density), &quoted) == nil {
		density = quoted
	}
	if density == "" {
		return nil
	}

	if err := m.settings.Set(ctx, storage.KeyLayoutDensity, density); err != nil {
		return err
	}
	report.LayoutDensity = density
	return nil
}
