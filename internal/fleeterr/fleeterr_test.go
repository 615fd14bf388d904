package fleeterr

import (
	"errors"
	"testing"
)

func TestErrorMessageFormatting(t *testing.T) {
	e := New(InvalidConfig, "disk.1", "missing path")
	if got, want := e.Error(), "disk.1: invalid_config: missing path"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestErrorMessageFormattingNoMessage(t *testing.T) {
	e := New(NotImplemented, "disk.1", "")
	if got, want := e.Error(), "disk.1: not_implemented"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestWrapNilReturnsNil(t *testing.T) {
	if Wrap(Other, "disk.1", nil) != nil {
		t.Error("expected Wrap(nil) to return nil")
	}
}

func TestWrapUnwraps(t *testing.T) {
	underlying := errors.New("boom")
	wrapped := Wrap(ConnectionFailed, "ssh.1", underlying)
	if !errors.Is(wrapped, underlying) {
		t.Error("expected errors.Is to find the wrapped cause")
	}
}

func TestNotImplementedSentinel(t *testing.T) {
	if !NotImplementedSentinel(New(NotImplemented, "cmd.1", "")) {
		t.Error("expected an empty-message NotImplemented error to be the sentinel")
	}
	if NotImplementedSentinel(New(NotImplemented, "cmd.1", "partial support")) {
		t.Error("expected a NotImplemented error with a message to not be the sentinel")
	}
	if NotImplementedSentinel(errors.New("plain error")) {
		t.Error("expected a non-fleeterr error to not be the sentinel")
	}
}

func TestIsUnsupportedPlatform(t *testing.T) {
	if !IsUnsupportedPlatform(New(UnsupportedPlatform, "disk.1", "windows unsupported")) {
		t.Error("expected UnsupportedPlatform kind to be recognized")
	}
	if IsUnsupportedPlatform(New(Other, "disk.1", "")) {
		t.Error("expected other kinds to not be recognized as UnsupportedPlatform")
	}
}
