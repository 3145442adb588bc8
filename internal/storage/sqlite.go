package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

const currentSchemaVersion = 2

// Options tunes a SQLiteStore.
type Options struct {
	// MaxSizeBytes caps the database size. Writes beyond it fail with
	// ErrStorageQuotaExceeded. Zero means unlimited.
	MaxSizeBytes int64
}

// SQLiteStore is the persistent store: three collections (bookmarks,
// directories, settings) in one SQLite database.
type SQLiteStore struct {
	db   *sql.DB
	path string

	bookmarks   *Bookmarks
	directories *Directories
	settings    *Settings
}

// Open opens (creating if needed) the database at path and migrates it to
// the current schema.
func Open(path string, opts Options) (*SQLiteStore, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, wrap("create data dir", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, wrap("open database", err)
	}
	// Pragmas below are per connection.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, wrap("configure database", err)
		}
	}

	s := &SQLiteStore{db: db, path: path}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, wrap("migrate schema", err)
	}

	if opts.MaxSizeBytes > 0 {
		if err := s.limitSize(opts.MaxSizeBytes); err != nil {
			db.Close()
			return nil, wrap("limit size", err)
		}
	}

	s.bookmarks = &Bookmarks{db: db}
	s.directories = &Directories{db: db}
	s.settings = &Settings{db: db}
	return s, nil
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string {
	return s.path
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Bookmarks returns the bookmark collection.
func (s *SQLiteStore) Bookmarks() *Bookmarks { return s.bookmarks }

// Directories returns the directory collection.
func (s *SQLiteStore) Directories() *Directories { return s.directories }

// Settings returns the settings collection.
func (s *SQLiteStore) Settings() *Settings { return s.settings }

// SchemaVersion reports the migrated schema version.
func (s *SQLiteStore) SchemaVersion(ctx context.Context) (int, error) {
	var version int
	if err := s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version); err != nil {
		return 0, wrap("read schema version", err)
	}
	return version, nil
}

func (s *SQLiteStore) limitSize(maxBytes int64) error {
	var pageSize int64
	if err := s.db.QueryRow("PRAGMA page_size").Scan(&pageSize); err != nil {
		return err
	}
	pages := maxBytes / pageSize
	if pages < 1 {
		pages = 1
	}
	_, err := s.db.Exec(fmt.Sprintf("PRAGMA max_page_count = %d", pages))
	return err
}

// migrate runs database migrations.
func (s *SQLiteStore) migrate() error {
	var version int
	err := s.db.QueryRow("SELECT version FROM schema_version LIMIT 1").Scan(&version)
	if err != nil {
		// Table doesn't exist or is empty, start fresh
		version = 0
	}
	if version > currentSchemaVersion {
		return fmt.Errorf("%w: schema v%d is newer than supported v%d", ErrSchemaTooNew, version, currentSchemaVersion)
	}

	if version < 1 {
		if err := s.migrateV1(); err != nil {
			return err
		}
	}

	if version < 2 {
		if err := s.migrateV2(); err != nil {
			return err
		}
	}

	return nil
}

// migrateV1 creates the three collections.
func (s *SQLiteStore) migrateV1() error {
	schema := `
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY
		);

		CREATE TABLE IF NOT EXISTS bookmarks (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			url TEXT NOT NULL,
			title TEXT NOT NULL,
			tags TEXT NOT NULL DEFAULT '[]',
			date_added TEXT NOT NULL,
			archived INTEGER NOT NULL DEFAULT 0,
			directory TEXT NOT NULL DEFAULT ''
		);

		CREATE INDEX IF NOT EXISTS idx_bookmarks_url ON bookmarks(url);
		CREATE INDEX IF NOT EXISTS idx_bookmarks_directory ON bookmarks(directory);

		CREATE TABLE IF NOT EXISTS directories (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL UNIQUE
		);

		CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY NOT NULL,
			value TEXT NOT NULL
		);

		INSERT OR REPLACE INTO schema_version (version) VALUES (1);
	`
	_, err := s.db.Exec(schema)
	return err
}

// migrateV2 indexes archived state and insertion date for filtered listings.
func (s *SQLiteStore) migrateV2() error {
	migration := `
		CREATE INDEX IF NOT EXISTS idx_bookmarks_archived ON bookmarks(archived) WHERE archived = 1;
		CREATE INDEX IF NOT EXISTS idx_bookmarks_date_added ON bookmarks(date_added);
		UPDATE schema_version SET version = 2;
	`
	_, err := s.db.Exec(migration)
	return err
}

// Stats summarises the stored data.
type Stats struct {
	Bookmarks   int
	Directories int
	Migrated    bool
}

// Stats counts records and reads the legacy-migration flag.
func (s *SQLiteStore) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	var migrated bool
	n, err := s.bookmarks.Count(ctx)
	if err != nil {
		return Stats{}, err
	}
	st.Bookmarks = n
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM directories").Scan(&st.Directories); err != nil {
		return Stats{}, wrap("count directories", err)
	}
	migrated, err = GetOr(ctx, s.settings, KeyMigrated, false)
	if err != nil {
		return Stats{}, err
	}
	st.Migrated = migrated
	return st, nil
}

// Wipe deletes every bookmark, directory and setting in one transaction.
func (s *SQLiteStore) Wipe(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return wrap("wipe", err)
	}
	defer tx.Rollback()

	for _, stmt := range []string{
		"DELETE FROM bookmarks",
		"DELETE FROM directories",
		"DELETE FROM settings",
	} {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return wrap("wipe", err)
		}
	}

	return wrap("wipe", tx.Commit())
}
