package models

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestCodeOf(t *testing.T) {
	direct := NewScrapeError(ErrCodeNavTimeout, "deadline exceeded", nil)
	wrapped := fmt.Errorf("run task: %w", direct)
	doubleWrapped := fmt.Errorf("engine: %w", wrapped)

	cases := []struct {
		name string
		err  error
		want string
	}{
		{"direct", direct, ErrCodeNavTimeout},
		{"wrapped once", wrapped, ErrCodeNavTimeout},
		{"wrapped twice", doubleWrapped, ErrCodeNavTimeout},
		{"plain error", errors.New("boom"), ErrCodeInternal},
		{"bare context error", context.Canceled, ErrCodeInternal},
	}
	for _, tc := range cases {
		if got := CodeOf(tc.err); got != tc.want {
			t.Errorf("%s: CodeOf = %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestScrapeError_UnwrapPreservesCause(t *testing.T) {
	err := NewScrapeError(ErrCodeNavTimeout, "canceled while waiting", context.Canceled)
	if !errors.Is(err, context.Canceled) {
		t.Error("the wrapped cause must stay reachable through errors.Is")
	}
}
