package xerrors

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"nil", nil, ""},
		{"plain", errors.New("boom"), KindUnknown},
		{"not found", Mark(ErrNotFound, "task 7 not found"), KindNotFound},
		{"wrapped conflict", Wrap(Mark(ErrConflict, "dup"), "save"), KindConflict},
		{"deadline", fmt.Errorf("query: %w", context.DeadlineExceeded), KindTimeout},
		{"timeout before unavailable", Join(ErrUnavailable, ErrTimeout), KindTimeout},
		{"canceled", context.Canceled, KindCanceled},
		{"unavailable", Wrap(ErrUnavailable, "dial user-service"), KindUnavailable},
		{"forbidden", ErrForbidden, KindForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.want {
				t.Errorf("KindOf() = %q，期望 %q", got, tt.want)
			}
		})
	}
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind(" Not-Found ")
	if err != nil || k != KindNotFound {
		t.Errorf("ParseKind() = %q, %v，期望 not_found", k, err)
	}

	if _, err := ParseKind("teapot"); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("ParseKind(teapot) err = %v，期望 ErrInvalidInput", err)
	}
}
