package importer

import (
	"bytes"
	"encoding/json"
	"errors"

	"github.com/nikbrunner/bookmarks/internal/model"
	"github.com/nikbrunner/bookmarks/internal/validate"
)

type backupFile struct {
	Bookmarks   json.RawMessage `json:"bookmarks"`
	Directories json.RawMessage `json:"directories"`
}

// ParseBackup parses a JSON backup as written by the exporter. Invalid
// records are dropped and counted; a missing directories list means
// just Unsorted.
func ParseBackup(data []byte) (Document, error) {
	var file backupFile
	if err := json.Unmarshal(data, &file); err != nil {
		return Document{}, &FormatError{Reason: msgInvalidFormat, Err: err}
	}

	if isAbsent(file.Bookmarks) {
		return Document{}, &FormatError{Reason: msgInvalidFormat, Err: errors.New("bookmarks missing")}
	}
	bookmarks, dropped, err := validate.DecodeRecords(file.Bookmarks)
	if err != nil {
		return Document{}, &FormatError{Reason: msgInvalidFormat, Err: err}
	}

	directories := []string{model.UnsortedDirectory}
	if !isAbsent(file.Directories) {
		var raw []json.RawMessage
		if err := json.Unmarshal(file.Directories, &raw); err != nil {
			return Document{}, &FormatError{Reason: msgInvalidFormat, Err: errors.New("directories is not an array")}
		}
		directories = directories[:0]
		for _, r := range raw {
			var name string
			if json.Unmarshal(r, &name) == nil {
				directories = append(directories, name)
			}
		}
	}

	return finish(bookmarks, directories, dropped)
}

func isAbsent(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) == 0 || bytes.Equal(raw, []byte("null"))
}
