package errs

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindOf_Classified(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		err  error
		want Kind
	}{
		{"validation", Validationf("bad window %d", -5), KindValidation},
		{"not_found", NotFound("share not found"), KindNotFound},
		{"conflict", Conflict("job already completed"), KindConflict},
		{"authorization", Authorization("not the owner"), KindAuthorization},
		{"configuration", Configuration("missing secret"), KindConfiguration},
		{"upstream", Upstream("query events", errors.New("boom")), KindUpstream},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := KindOf(tc.err); got != tc.want {
				t.Errorf("KindOf = %s, want %s", got, tc.want)
			}
			if !IsKind(tc.err, tc.want) {
				t.Errorf("IsKind(%s) = false", tc.want)
			}
		})
	}
}

func TestKindOf_Unclassified(t *testing.T) {
	t.Parallel()

	if got := KindOf(errors.New("plain")); got != KindUpstream {
		t.Errorf("KindOf(plain) = %s, want %s", got, KindUpstream)
	}
}

func TestKindOf_Wrapped(t *testing.T) {
	t.Parallel()

	inner := NotFound("import job not found")
	wrapped := fmt.Errorf("get status: %w", inner)

	if got := KindOf(wrapped); got != KindNotFound {
		t.Errorf("KindOf(wrapped) = %s, want %s", got, KindNotFound)
	}
}

func TestError_Unwrap(t *testing.T) {
	t.Parallel()

	cause := errors.New("connection refused")
	err := Upstream("ping postgres", cause)

	if !errors.Is(err, cause) {
		t.Error("expected errors.Is to reach the cause")
	}
}
