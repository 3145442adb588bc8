package engine

import (
	"context"

	"github.com/nikbrunner/bookmarks/internal/model"
)

// PromptKind identifies the decision a Prompt asks for.
type PromptKind int

const (
	PromptDuplicate PromptKind = iota
	PromptDelete
	PromptBulkDelete
	PromptDeleteDirectory
)

func (k PromptKind) String() string {
	switch k {
	case PromptDuplicate:
		return "duplicate"
	case PromptDelete:
		return "delete"
	case PromptBulkDelete:
		return "bulk-delete"
	case PromptDeleteDirectory:
		return "delete-directory"
	default:
		return "unknown"
	}
}

// Prompt is a yes/no question for the user.
type Prompt struct {
	Kind      PromptKind
	Message   string
	Bookmarks []model.Bookmark // records the answer affects
	Directory string
	Count     int
}

// ImportMode is the answer to an ImportPrompt.
type ImportMode int

const (
	ImportCancel ImportMode = iota
	ImportMerge
	ImportReplace
)

func (m ImportMode) String() string {
	switch m {
	case ImportMerge:
		return "merge"
	case ImportReplace:
		return "replace"
	default:
		return "cancel"
	}
}

// ImportPrompt asks whether an import merges with or replaces the collection.
type ImportPrompt struct {
	Message  string
	Incoming int
	Existing int
	Dropped  int
}

// Prompter supplies user decisions. Calls are made without engine locks
// held and may block.
type Prompter interface {
	Confirm(ctx context.Context, p Prompt) bool
	ChooseImportMode(ctx context.Context, p ImportPrompt) ImportMode
}

// AutoPrompter answers every prompt the same way without asking.
type AutoPrompter struct {
	Answer bool
	Mode   ImportMode
}

func (a AutoPrompter) Confirm(context.Context, Prompt) bool { return a.Answer }

func (a AutoPrompter) ChooseImportMode(context.Context, ImportPrompt) ImportMode { return a.Mode }
