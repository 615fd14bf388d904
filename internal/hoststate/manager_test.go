package hoststate

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	m := NewManager(zerolog.Nop())
	go m.Run()
	t.Cleanup(func() {
		m.NewStateUpdateSender() <- ExitToken()
		m.Join()
	})
	return m
}

func TestAddHostRejectsDuplicateName(t *testing.T) {
	m := newTestManager(t)
	if err := m.AddHost(Host{Name: "h1"}); err != nil {
		t.Fatalf("AddHost: %v", err)
	}
	if err := m.AddHost(Host{Name: "h1"}); err == nil {
		t.Fatal("expected a duplicate host name to be rejected")
	}
}

func TestGetHostUnknownNamePanics(t *testing.T) {
	m := newTestManager(t)
	defer func() {
		if recover() == nil {
			t.Fatal("expected GetHost on an unknown host to panic")
		}
	}()
	m.GetHost("nope")
}

func TestApplyDataPointUpdatesStatus(t *testing.T) {
	m := newTestManager(t)
	if err := m.AddHost(Host{Name: "h1"}); err != nil {
		t.Fatalf("AddHost: %v", err)
	}
	m.SeedMonitor("h1", "disk", DisplayOptions{Category: "disk"}, true)

	updates := m.NewStateUpdateSender()
	updates <- StateUpdateMessage{
		Kind: UpdateDataPoint, HostName: "h1", ModuleSpecID: "disk",
		DataPoint: DataPoint{Criticality: Critical},
	}

	waitForStatus(t, m, "h1", StatusDown)
}

func TestApplyDataPointUpStatusWhenNotCritical(t *testing.T) {
	m := newTestManager(t)
	if err := m.AddHost(Host{Name: "h1"}); err != nil {
		t.Fatalf("AddHost: %v", err)
	}
	m.SeedMonitor("h1", "disk", DisplayOptions{}, true)

	updates := m.NewStateUpdateSender()
	updates <- StateUpdateMessage{
		Kind: UpdateDataPoint, HostName: "h1", ModuleSpecID: "disk",
		DataPoint: DataPoint{Criticality: Normal},
	}

	waitForStatus(t, m, "h1", StatusUp)
}

func TestApplyPlatformInfoPopulatesHostPlatform(t *testing.T) {
	m := newTestManager(t)
	if err := m.AddHost(Host{Name: "h1"}); err != nil {
		t.Fatalf("AddHost: %v", err)
	}

	updates := m.NewStateUpdateSender()
	updates <- StateUpdateMessage{
		Kind: UpdateDataPoint, HostName: "h1",
		DataPoint: DataPoint{
			Label: PlatformInfoLabel,
			Multivalue: []DataPoint{
				{Label: "os", Value: "linux"},
				{Label: "architecture", Value: "amd64"},
			},
		},
	}

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		hs := m.GetHost("h1")
		if hs.Host.Platform.OS == "linux" && hs.Host.Platform.Architecture == "amd64" {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("platform info was never applied")
}

func TestObserverReceivesExitTokenOnShutdown(t *testing.T) {
	m := NewManager(zerolog.Nop())
	obs := make(Observer, 1)
	m.AddObserver(obs)
	go m.Run()

	m.NewStateUpdateSender() <- ExitToken()
	m.Join()

	select {
	case snap := <-obs:
		if !snap.ExitThread {
			t.Fatal("expected the final broadcast to carry ExitThread=true")
		}
	default:
		t.Fatal("expected an exit snapshot to be broadcast to observers")
	}
}

func waitForStatus(t *testing.T, m *Manager, host string, want Status) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if m.GetHost(host).Status == want {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("status for %q never reached %q", host, want)
}
