package sshconn

import (
	"testing"
	"time"

	"github.com/fleetcore/fleetcore/internal/fleeterr"
)

func TestNewDefaultsPortAndTimeout(t *testing.T) {
	c, err := New(Settings{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if c.settings.Port != 22 {
		t.Errorf("Port = %d, want 22", c.settings.Port)
	}
	if c.settings.DialTimeout != 10*time.Second {
		t.Errorf("DialTimeout = %v, want 10s", c.settings.DialTimeout)
	}
}

func TestNewRespectsExplicitSettings(t *testing.T) {
	c, err := New(Settings{Port: 2222, DialTimeout: 5 * time.Second})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if c.settings.Port != 2222 {
		t.Errorf("Port = %d, want 2222", c.settings.Port)
	}
	if c.settings.DialTimeout != 5*time.Second {
		t.Errorf("DialTimeout = %v, want 5s", c.settings.DialTimeout)
	}
}

func TestIsConnectedFalseBeforeConnect(t *testing.T) {
	c, err := New(Settings{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if c.IsConnected() {
		t.Error("expected a fresh connector to report not connected")
	}
}

func TestSendMessageWithoutConnectionFails(t *testing.T) {
	c, err := New(Settings{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_, err = c.SendMessage("echo hi")
	assertConnectionFailed(t, err)
}

func TestDownloadFileWithoutConnectionFails(t *testing.T) {
	c, err := New(Settings{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := c.DownloadFile("/etc/hostname"); err == nil {
		t.Fatal("expected an error without a connection")
	} else {
		assertConnectionFailed(t, err)
	}
}

func TestUploadFileWithoutConnectionFails(t *testing.T) {
	c, err := New(Settings{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := c.UploadFile("/tmp/x", []byte("data")); err == nil {
		t.Fatal("expected an error without a connection")
	} else {
		assertConnectionFailed(t, err)
	}
}

func assertConnectionFailed(t *testing.T, err error) {
	t.Helper()
	fe, ok := err.(*fleeterr.Error)
	if !ok {
		t.Fatalf("expected a *fleeterr.Error, got %T: %v", err, err)
	}
	if fe.Kind != fleeterr.ConnectionFailed {
		t.Errorf("Kind = %v, want %v", fe.Kind, fleeterr.ConnectionFailed)
	}
}

func TestShellQuoteEscapesSingleQuotes(t *testing.T) {
	got := shellQuote("it's a test")
	want := `'it'\''s a test'`
	if got != want {
		t.Errorf("shellQuote() = %q, want %q", got, want)
	}
}

func TestModuleSpecIsWellKnown(t *testing.T) {
	c, err := New(Settings{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if c.ModuleSpec() != Spec {
		t.Errorf("ModuleSpec() = %+v, want %+v", c.ModuleSpec(), Spec)
	}
}
