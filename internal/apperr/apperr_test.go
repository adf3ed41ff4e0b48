package apperr

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindSurvivesWrapping(t *testing.T) {
	base := NotFound("sprint %d not found", 4)
	wrapped := fmt.Errorf("finalize: %w", base)

	if got := KindOf(wrapped); got != KindNotFound {
		t.Errorf("KindOf = %q, want %q", got, KindNotFound)
	}
	if !Is(wrapped, KindNotFound) || Is(wrapped, KindForbidden) {
		t.Error("Is did not match the wrapped kind")
	}
	if KindOf(errors.New("plain")) != "" {
		t.Error("plain errors have no kind")
	}
}

func TestTxKeepsCause(t *testing.T) {
	cause := errors.New("database is locked")
	err := Tx("failed to finalize sprint", cause)

	if !errors.Is(err, cause) {
		t.Error("Tx should unwrap to its cause")
	}
	if err.Details != cause.Error() {
		t.Errorf("Details = %v", err.Details)
	}
	if err.Error() != "failed to finalize sprint: database is locked" {
		t.Errorf("Error() = %q", err.Error())
	}
}
