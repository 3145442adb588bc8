package storage

import (
	"context"
	"database/sql"

	"github.com/nikbrunner/bookmarks/internal/model"
)

// Directories is the directory collection. Names are unique and stored
// case-sensitively.
type Directories struct {
	db *sql.DB
}

// GetAll returns directory names in insertion order.
func (s *Directories) GetAll(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT name FROM directories ORDER BY id")
	if err != nil {
		return nil, wrap("load directories", err)
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, wrap("load directories", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("load directories", err)
	}
	return names, nil
}

// Add stores name if it is not present yet and returns it.
func (s *Directories) Add(ctx context.Context, name string) (string, error) {
	if _, err := s.db.ExecContext(ctx, "INSERT OR IGNORE INTO directories (name) VALUES (?)", name); err != nil {
		return "", wrap("add directory", err)
	}
	return name, nil
}

// BulkAdd stores every name in one transaction, skipping existing ones.
func (s *Directories) BulkAdd(ctx context.Context, names []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return wrap("bulk add directories", err)
	}
	defer tx.Rollback()

	for _, name := range names {
		if _, err := tx.ExecContext(ctx, "INSERT OR IGNORE INTO directories (name) VALUES (?)", name); err != nil {
			return wrap("bulk add directories", err)
		}
	}
	return wrap("bulk add directories", tx.Commit())
}

// Delete removes the directory entry. Bookmarks filed under it are not
// touched.
func (s *Directories) Delete(ctx context.Context, name string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM directories WHERE name = ?", name)
	return wrap("delete directory", err)
}

// Clear removes every directory.
func (s *Directories) Clear(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM directories")
	return wrap("clear directories", err)
}

// Initialize ensures the Unsorted directory exists.
func (s *Directories) Initialize(ctx context.Context) error {
	_, err := s.Add(ctx, model.UnsortedDirectory)
	return err
}
