package validate

import "errors"

// ErrValidation matches every *Error via errors.Is.
var ErrValidation = errors.New("validation failed")

// Kind classifies a validation failure.
type Kind int

const (
	KindInvalidURL Kind = iota
	KindSingleLabelHost
	KindEmptyName
	KindTooLong
	KindInvalidChars
)

func (k Kind) String() string {
	switch k {
	case KindInvalidURL:
		return "invalid-url"
	case KindSingleLabelHost:
		return "single-label-host"
	case KindEmptyName:
		return "empty-name"
	case KindTooLong:
		return "too-long"
	case KindInvalidChars:
		return "invalid-chars"
	default:
		return "unknown"
	}
}

// Error is a user-facing validation failure. Message is safe to show as-is.
type Error struct {
	Kind    Kind
	Field   string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Is reports whether target is ErrValidation.
func (e *Error) Is(target error) bool {
	return target == ErrValidation
}

// Message extracts the user-facing text from a validation error, or returns
// "" if err is not one.
func Message(err error) string {
	var verr *Error
	if errors.As(err, &verr) {
		return verr.Message
	}
	return ""
}
