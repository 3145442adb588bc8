package model

// BackupVersion is written into every export document.
const BackupVersion = "1.0"

// Backup is the JSON export/import document.
type Backup struct {
	Bookmarks   []Bookmark `json:"bookmarks"`
	Directories []string   `json:"directories"`
	ExportDate  string     `json:"exportDate"`
	Version     string     `json:"version"`
}
