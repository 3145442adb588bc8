package engine

import (
	"errors"

	"github.com/nikbrunner/bookmarks/internal/importer"
	"github.com/nikbrunner/bookmarks/internal/storage"
	"github.com/nikbrunner/bookmarks/internal/validate"
)

var (
	ErrNotReady           = errors.New("engine not ready")
	ErrAlreadyInitialized = errors.New("engine already initialized")
	ErrClosed             = errors.New("engine closed")
	ErrLoadFailed         = errors.New("load failed")
	ErrNotFound           = errors.New("bookmark not found")
	ErrCancelled          = errors.New("cancelled")
	ErrDirectoryExists    = errors.New("directory already exists")
	ErrReservedDirectory  = errors.New("directory is reserved")
	ErrUnknownDirectory   = errors.New("unknown directory")
	ErrNothingToUndo      = errors.New("nothing to undo")
)

// UserMessage converts err into the text shown to the user. It returns ""
// for nil.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	if msg := validate.Message(err); msg != "" {
		return msg
	}

	var ferr *importer.FormatError
	switch {
	case errors.As(err, &ferr):
		return "Failed to import bookmarks: " + ferr.Error()
	case errors.Is(err, ErrLoadFailed):
		return "Failed to load data from database. Starting fresh."
	case errors.Is(err, ErrDirectoryExists):
		return "Directory already exists!"
	case errors.Is(err, ErrReservedDirectory):
		return "Cannot delete 'Unsorted' directory!"
	case errors.Is(err, ErrUnknownDirectory):
		return "Directory does not exist."
	case errors.Is(err, ErrNothingToUndo):
		return "Nothing to undo."
	case errors.Is(err, ErrNotFound):
		return "Bookmark not found."
	case errors.Is(err, ErrCancelled):
		return "Cancelled."
	case errors.Is(err, ErrNotReady):
		return "Bookmarks are still loading."
	case errors.Is(err, ErrClosed):
		return "The bookmark session has ended."
	case errors.Is(err, storage.ErrStorageQuotaExceeded):
		return "Storage is full. Changes are kept for this session but could not be saved."
	case errors.Is(err, storage.ErrStorageUnavailable):
		return "Failed to save changes to database."
	}
	return err.Error()
}
