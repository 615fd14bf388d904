package termlaunch

import (
	"testing"

	"github.com/rs/zerolog"
)

func TestLaunchRejectsEmptyArgv(t *testing.T) {
	l := New(zerolog.Nop())
	if err := l.Launch(nil); err == nil {
		t.Fatal("expected an empty argv to be rejected")
	}
}

func TestLaunchNonInteractiveDoesNotExecute(t *testing.T) {
	// Under `go test`, stdout is not attached to a terminal, so Launch must
	// take the non-interactive branch: log the composed command and return
	// nil without running it (spec.md §4.E).
	l := New(zerolog.Nop())
	if err := l.Launch([]string{"ssh", "-t", "example.com"}); err != nil {
		t.Fatalf("Launch: %v", err)
	}
}
