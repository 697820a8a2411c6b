package strategy

import "github.com/pkg/errors"

// ConfigurationError reports inputs the engine cannot plan with at all.
// Callers are expected to prevent it; it signals a programming error.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "configuration error: " + e.Reason
}

var (
	ErrEmptyRoster = &ConfigurationError{Reason: "driver roster is empty"}

	ErrLastDriver    = errors.New("cannot remove the last driver of the roster")
	ErrUnknownDriver = errors.New("driver is not in the roster")
	ErrInvalidStint  = errors.New("invalid stint index")
	ErrInvalidStop   = errors.New("invalid stop number")
	ErrNothingToUndo = errors.New("no pit stop to undo")
)
