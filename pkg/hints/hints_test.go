package hints_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/paulschiretz/pgl-gunzip/pkg/hints"
)

func TestHints(t *testing.T) {
	errBase := errors.New("base error")
	errEmpty := hints.New("nothing to extract")

	t.Run("Wrap nil", func(t *testing.T) {
		if hints.Wrap(nil) != nil {
			t.Error("Wrap(nil) should return nil")
		}
	})

	t.Run("Message is preserved", func(t *testing.T) {
		if errEmpty.Error() != "nothing to extract" {
			t.Errorf("expected %q, got %q", "nothing to extract", errEmpty.Error())
		}
		if got := hints.Newf("%d archives", 3).Error(); got != "3 archives" {
			t.Errorf("expected %q, got %q", "3 archives", got)
		}
	})

	t.Run("IsHint", func(t *testing.T) {
		testCases := []struct {
			name     string
			err      error
			expected bool
		}{
			{"nil error", nil, false},
			{"plain error", errBase, false},
			{"new hint", errEmpty, true},
			{"wrapped hint", hints.Wrap(errBase), true},
			{"hint wrapped by fmt", fmt.Errorf("extract: %w", errEmpty), true},
		}
		for _, tc := range testCases {
			t.Run(tc.name, func(t *testing.T) {
				if got := hints.IsHint(tc.err); got != tc.expected {
					t.Errorf("IsHint(%v) = %v, want %v", tc.err, got, tc.expected)
				}
			})
		}
	})

	t.Run("Is", func(t *testing.T) {
		wrapped := hints.Wrap(errBase)
		if !hints.Is(wrapped, errBase) {
			t.Error("expected Is to match the wrapped base error")
		}
		if hints.Is(errBase, errBase) {
			t.Error("expected Is to reject a non-hint error")
		}
		if !hints.Is(fmt.Errorf("outer: %w", errEmpty), errEmpty) {
			t.Error("expected Is to match through fmt wrapping")
		}
	})
}
