package exporter

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/nikbrunner/bookmarks/internal/model"
)

// BackupFilename returns bookmarks-backup-YYYY-MM-DD.json for now.
func BackupFilename(now time.Time) string {
	return fmt.Sprintf("bookmarks-backup-%s.json", now.Format("2006-01-02"))
}

// DefaultExportDir returns ~/Downloads, falling back to the working directory.
func DefaultExportDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, "Downloads")
}

// NewBackup builds the export document for a snapshot of the collection.
func NewBackup(bookmarks []model.Bookmark, directories []string, now time.Time) model.Backup {
	if bookmarks == nil {
		bookmarks = []model.Bookmark{}
	}
	if directories == nil {
		directories = []string{}
	}
	return model.Backup{
		Bookmarks:   bookmarks,
		Directories: directories,
		ExportDate:  model.FormatDate(now),
		Version:     model.BackupVersion,
	}
}

// WriteJSON writes doc as two-space indented JSON.
func WriteJSON(w io.Writer, doc model.Backup) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode backup: %w", err)
	}
	return nil
}

// WriteFile writes doc into dir under BackupFilename(now) and returns the
// final path. The file appears atomically; the temporary file is removed
// on any failure.
func WriteFile(dir string, doc model.Backup, now time.Time) (path string, err error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".bookmarks-backup-*.json")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if err = WriteJSON(tmp, doc); err != nil {
		return "", err
	}
	if err = tmp.Close(); err != nil {
		return "", fmt.Errorf("close temp file: %w", err)
	}

	path = filepath.Join(dir, BackupFilename(now))
	if err = os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("rename backup: %w", err)
	}
	return path, nil
}
