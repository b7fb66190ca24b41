package apperror

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindOfWrappedError(t *testing.T) {
	base := NotFound("trip not found")
	wrapped := fmt.Errorf("assign driver: %w", base)

	if got := KindOf(wrapped); got != KindNotFound {
		t.Fatalf("expected %s, got %s", KindNotFound, got)
	}
	if !Is(wrapped, KindNotFound) {
		t.Fatalf("Is should see through fmt wrapping")
	}
}

func TestKindOfPlainErrorIsInternal(t *testing.T) {
	if got := KindOf(errors.New("boom")); got != KindInternal {
		t.Fatalf("expected internal, got %s", got)
	}
	if Is(nil, KindInternal) {
		t.Fatalf("nil error must not match any kind")
	}
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := Wrap(KindUnauthorized, "invalid refresh token", cause)

	if !errors.Is(err, cause) {
		t.Fatalf("wrapped cause lost")
	}
	if err.Error() != "invalid refresh token: connection reset" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}
