// Package importer turns backup files into an import Document: validated
// bookmark records plus the directory list they may reference.
package importer

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/nikbrunner/bookmarks/internal/model"
	"github.com/nikbrunner/bookmarks/internal/validate"
)

// ErrImportFormat matches every *FormatError via errors.Is.
var ErrImportFormat = errors.New("invalid import file")

const (
	msgInvalidFormat = "Invalid backup file format"
	msgNoValid       = "No valid bookmarks found in backup file"
)

// FormatError reports a malformed or empty import file.
type FormatError struct {
	Reason string
	Err    error
}

func (e *FormatError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Reason, e.Err)
	}
	return e.Reason
}

func (e *FormatError) Unwrap() error { return e.Err }

// Is reports whether target is ErrImportFormat.
func (e *FormatError) Is(target error) bool {
	return target == ErrImportFormat
}

// Document is a parsed import file. Every bookmark passed record
// validation and references a directory in Directories, which always
// starts with Unsorted.
type Document struct {
	Bookmarks   []model.Bookmark
	Directories []string
	Dropped     int
}

// Parse picks the JSON or Netscape HTML parser from the file name, falling
// back to sniffing the content.
func Parse(name string, data []byte, now time.Time) (Document, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json":
		return ParseBackup(data)
	case ".html", ".htm":
		return ParseHTML(bytes.NewReader(data), now)
	}
	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '<' {
		return ParseHTML(bytes.NewReader(data), now)
	}
	return ParseBackup(data)
}

// finish applies the rules shared by every format: at least one record,
// directories validated and de-duplicated with Unsorted first, dangling
// directory references remapped to Unsorted.
func finish(bookmarks []model.Bookmark, directories []string, dropped int) (Document, error) {
	if len(bookmarks) == 0 {
		return Document{}, &FormatError{Reason: msgNoValid}
	}

	dirs := NormalizeDirectories(directories)
	known := make(map[string]bool, len(dirs))
	for _, d := range dirs {
		known[d] = true
	}

	remapped := make([]model.Bookmark, len(bookmarks))
	for i, b := range bookmarks {
		b = b.Clone()
		if !known[b.Directory] {
			b.Directory = model.UnsortedDirectory
		}
		remapped[i] = b
	}

	return Document{Bookmarks: remapped, Directories: dirs, Dropped: dropped}, nil
}

// NormalizeDirectories drops names failing directory validation and
// case-insensitive duplicates, and puts Unsorted first. Accepted names are
// kept as written since exported names are already escaped.
func NormalizeDirectories(names []string) []string {
	out := []string{model.UnsortedDirectory}
	seen := map[string]bool{strings.ToLower(model.UnsortedDirectory): true}
	for _, name := range names {
		if _, err := validate.ValidateDirectoryName(name); err != nil {
			continue
		}
		name = strings.TrimSpace(name)
		key := strings.ToLower(name)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, name)
	}
	return out
}
