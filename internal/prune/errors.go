package prune

import "errors"

// Validation sentinels. Manual operations wrap these with a specific,
// actionable message; callers match with errors.Is.
var (
	ErrUnknownHash   = errors.New("unknown hash")
	ErrAlreadyPruned = errors.New("already pruned")
	ErrProtectedTool = errors.New("protected tool")
	ErrProtectedPath = errors.New("protected file path")
	ErrBadReason     = errors.New("invalid discard reason")
	ErrBadPattern    = errors.New("malformed target pattern")
	ErrEmptyText     = errors.New("empty replacement text")
)

var validationSentinels = []error{
	ErrUnknownHash,
	ErrAlreadyPruned,
	ErrProtectedTool,
	ErrProtectedPath,
	ErrBadReason,
	ErrBadPattern,
	ErrEmptyText,
}

// IsValidation reports whether err is a validation failure of a manual
// operation, as opposed to an internal error.
func IsValidation(err error) bool {
	for _, sentinel := range validationSentinels {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}
