// Package hints labels errors that signal a skipped step rather than a failure.
//
// An empty directory or a disabled hook is not something a caller should
// report as an error. Producers wrap such conditions with New or Wrap and
// consumers test for them with IsHint, without importing the producer's
// sentinel values.
package hints

import (
	"errors"
	"fmt"
)

type hint struct {
	err error
}

func (h *hint) Error() string {
	if h == nil || h.err == nil {
		return "unknown hint"
	}
	return h.err.Error()
}

func (h *hint) IsHint() bool  { return true }
func (h *hint) Unwrap() error { return h.err }

// New creates a hint from a message.
func New(msg string) error {
	return &hint{err: errors.New(msg)}
}

// Newf creates a hint from a format string.
func Newf(format string, args ...any) error {
	return &hint{err: fmt.Errorf(format, args...)}
}

// Wrap marks err as a hint. Wrap(nil) returns nil.
func Wrap(err error) error {
	if err == nil {
		return nil
	}
	return &hint{err: err}
}

// IsHint reports whether any error in the chain is a hint.
func IsHint(err error) bool {
	var h interface{ IsHint() bool }
	return errors.As(err, &h) && h.IsHint()
}

// Is reports whether err is a hint and matches target.
func Is(err, target error) bool {
	return IsHint(err) && errors.Is(err, target)
}
