package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"

	"github.com/nikbrunner/bookmarks/internal/model"
)

// Bookmarks is the bookmark collection.
type Bookmarks struct {
	db *sql.DB
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type scanner interface {
	Scan(dest ...any) error
}

const bookmarkColumns = "id, url, title, tags, date_added, archived, directory"

// GetAll returns every stored bookmark in insertion order.
func (s *Bookmarks) GetAll(ctx context.Context) ([]model.Bookmark, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+bookmarkColumns+" FROM bookmarks ORDER BY id")
	if err != nil {
		return nil, wrap("load bookmarks", err)
	}
	defer rows.Close()

	bookmarks := []model.Bookmark{}
	for rows.Next() {
		b, err := scanBookmark(rows)
		if err != nil {
			return nil, wrap("load bookmarks", err)
		}
		bookmarks = append(bookmarks, b)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("load bookmarks", err)
	}
	return bookmarks, nil
}

// Get returns the bookmark with the given id. ok is false if absent.
func (s *Bookmarks) Get(ctx context.Context, id int64) (b model.Bookmark, ok bool, err error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+bookmarkColumns+" FROM bookmarks WHERE id = ?", id)
	b, err = scanBookmark(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Bookmark{}, false, nil
	}
	if err != nil {
		return model.Bookmark{}, false, wrap("get bookmark", err)
	}
	return b, true, nil
}

// Add inserts b and returns it with its id. A positive b.ID is kept,
// otherwise the store assigns the next id.
func (s *Bookmarks) Add(ctx context.Context, b model.Bookmark) (model.Bookmark, error) {
	saved, err := insertBookmark(ctx, s.db, b)
	if err != nil {
		return model.Bookmark{}, wrap("add bookmark", err)
	}
	return saved, nil
}

// BulkAdd inserts all bookmarks in one transaction.
func (s *Bookmarks) BulkAdd(ctx context.Context, bookmarks []model.Bookmark) ([]model.Bookmark, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, wrap("bulk add bookmarks", err)
	}
	defer tx.Rollback()

	saved := make([]model.Bookmark, 0, len(bookmarks))
	for _, b := range bookmarks {
		sb, err := insertBookmark(ctx, tx, b)
		if err != nil {
			return nil, wrap("bulk add bookmarks", err)
		}
		saved = append(saved, sb)
	}

	if err := tx.Commit(); err != nil {
		return nil, wrap("bulk add bookmarks", err)
	}
	return saved, nil
}

// Update overwrites the stored bookmark with b's id. It returns
// ErrNotFound if no such row exists.
func (s *Bookmarks) Update(ctx context.Context, b model.Bookmark) error {
	tags, err := encodeTags(b.Tags)
	if err != nil {
		return wrap("update bookmark", err)
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE bookmarks
		SET url = ?, title = ?, tags = ?, date_added = ?, archived = ?, directory = ?
		WHERE id = ?
	`, b.URL, b.Title, tags, b.DateAdded, boolInt(b.Archived), b.Directory, b.ID)
	if err != nil {
		return wrap("update bookmark", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return wrap("update bookmark", err)
	}
	if n == 0 {
		return wrap("update bookmark", ErrNotFound)
	}
	return nil
}

// Delete removes the bookmark with the given id. Deleting an absent id is
// not an error.
func (s *Bookmarks) Delete(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM bookmarks WHERE id = ?", id)
	return wrap("delete bookmark", err)
}

// BulkDelete removes all given ids in one statement.
func (s *Bookmarks) BulkDelete(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	_, err := s.db.ExecContext(ctx, "DELETE FROM bookmarks WHERE id IN ("+placeholders+")", args...)
	return wrap("bulk delete bookmarks", err)
}

// Clear removes every bookmark.
func (s *Bookmarks) Clear(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM bookmarks")
	return wrap("clear bookmarks", err)
}

// IDs returns the id of every stored row, including rows that would fail
// validation on load.
func (s *Bookmarks) IDs(ctx context.Context) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id FROM bookmarks ORDER BY id")
	if err != nil {
		return nil, wrap("list bookmark ids", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, wrap("list bookmark ids", err)
		}
		ids = append(ids, id)
	}
	return ids, wrap("list bookmark ids", rows.Err())
}

// Count returns the number of stored bookmarks.
func (s *Bookmarks) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM bookmarks").Scan(&n); err != nil {
		return 0, wrap("count bookmarks", err)
	}
	return n, nil
}

func insertBookmark(ctx context.Context, db execer, b model.Bookmark) (model.Bookmark, error) {
	tags, err := encodeTags(b.Tags)
	if err != nil {
		return model.Bookmark{}, err
	}

	var res sql.Result
	if b.ID > 0 {
		res, err = db.ExecContext(ctx, `
			INSERT INTO bookmarks (id, url, title, tags, date_added, archived, directory)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, b.ID, b.URL, b.Title, tags, b.DateAdded, boolInt(b.Archived), b.Directory)
	} else {
		res, err = db.ExecContext(ctx, `
			INSERT INTO bookmarks (url, title, tags, date_added, archived, directory)
			VALUES (?, ?, ?, ?, ?, ?)
		`, b.URL, b.Title, tags, b.DateAdded, boolInt(b.Archived), b.Directory)
	}
	if err != nil {
		return model.Bookmark{}, err
	}

	id, err := res.LastInsertId()
	if err != nil {
		return model.Bookmark{}, err
	}
	saved := b.Clone()
	saved.ID = id
	if saved.Tags == nil {
		saved.Tags = []string{}
	}
	return saved, nil
}

func scanBookmark(row scanner) (model.Bookmark, error) {
	var b model.Bookmark
	var tagsJSON string
	var archived int

	if err := row.Scan(&b.ID, &b.URL, &b.Title, &tagsJSON, &b.DateAdded, &archived, &b.Directory); err != nil {
		return model.Bookmark{}, err
	}

	// Unreadable tags leave Tags nil so the record fails validation on load.
	if err := json.Unmarshal([]byte(tagsJSON), &b.Tags); err != nil {
		b.Tags = nil
	}
	b.Archived = archived == 1
	return b, nil
}

func encodeTags(tags []string) (string, error) {
	if tags == nil {
		return "[]", nil
	}
	data, err := json.Marshal(tags)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func boolInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
