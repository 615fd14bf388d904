package registry

import (
	"testing"

	"github.com/fleetcore/fleetcore/internal/connector"
	"github.com/fleetcore/fleetcore/internal/hoststate"
	"github.com/fleetcore/fleetcore/internal/moduleid"
)

type fakeMonitor struct{ meta Metadata }

func (f *fakeMonitor) ModuleSpec() moduleid.Spec { return f.meta.Spec }
func (f *fakeMonitor) Metadata() Metadata        { return f.meta }
func (f *fakeMonitor) Clone() Module             { return f }
func (f *fakeMonitor) GetConnectorMessage(hoststate.Host, *hoststate.DataPoint) (string, error) {
	return "", nil
}
func (f *fakeMonitor) GetConnectorMessages(hoststate.Host, *hoststate.DataPoint) ([]string, error) {
	return nil, nil
}
func (f *fakeMonitor) ProcessResponse(hoststate.Host, *connector.ResponseMessage, *hoststate.DataPoint) (hoststate.DataPoint, error) {
	return hoststate.DataPoint{}, nil
}
func (f *fakeMonitor) ProcessResponses(hoststate.Host, []connector.ResponseMessage, *hoststate.DataPoint) (hoststate.DataPoint, error) {
	return hoststate.DataPoint{}, nil
}

func TestRegisterAndResolveMonitorMeta(t *testing.T) {
	r := New()
	meta := Metadata{Spec: moduleid.New("disk", "1")}
	r.RegisterMonitor(meta, func(Settings) (Monitor, error) { return &fakeMonitor{meta: meta}, nil })

	got, ok := r.ResolveMonitorMeta(moduleid.New("disk", "1"))
	if !ok {
		t.Fatal("expected to resolve a registered monitor")
	}
	if got.Spec != meta.Spec {
		t.Errorf("Spec = %+v, want %+v", got.Spec, meta.Spec)
	}
}

func TestResolveMonitorMetaUnknownID(t *testing.T) {
	r := New()
	if _, ok := r.ResolveMonitorMeta(moduleid.New("nope", "1")); ok {
		t.Error("expected resolution of an unregistered monitor id to fail")
	}
}

func TestRegisterMonitorDuplicatePanics(t *testing.T) {
	r := New()
	meta := Metadata{Spec: moduleid.New("disk", "1")}
	ctor := func(Settings) (Monitor, error) { return &fakeMonitor{meta: meta}, nil }
	r.RegisterMonitor(meta, ctor)

	defer func() {
		if recover() == nil {
			t.Fatal("expected registering the same (id, version) twice to panic")
		}
	}()
	r.RegisterMonitor(meta, ctor)
}

func TestNewMonitorResolvesLatest(t *testing.T) {
	r := New()
	r.RegisterMonitor(Metadata{Spec: moduleid.New("disk", "1")}, func(Settings) (Monitor, error) {
		return &fakeMonitor{meta: Metadata{Spec: moduleid.New("disk", "1")}}, nil
	})
	r.RegisterMonitor(Metadata{Spec: moduleid.New("disk", "3")}, func(Settings) (Monitor, error) {
		return &fakeMonitor{meta: Metadata{Spec: moduleid.New("disk", "3")}}, nil
	})
	r.RegisterMonitor(Metadata{Spec: moduleid.New("disk", "2")}, func(Settings) (Monitor, error) {
		return &fakeMonitor{meta: Metadata{Spec: moduleid.New("disk", "2")}}, nil
	})

	mon, err := r.NewMonitor(moduleid.New("disk", moduleid.Latest), nil)
	if err != nil {
		t.Fatalf("NewMonitor: %v", err)
	}
	if mon.ModuleSpec().Version != "3" {
		t.Errorf("resolved version = %q, want %q", mon.ModuleSpec().Version, "3")
	}
}

func TestNewMonitorUnknownVersionErrors(t *testing.T) {
	r := New()
	r.RegisterMonitor(Metadata{Spec: moduleid.New("disk", "1")}, func(Settings) (Monitor, error) {
		return &fakeMonitor{}, nil
	})
	if _, err := r.NewMonitor(moduleid.New("disk", "9"), nil); err == nil {
		t.Fatal("expected an unregistered version to error")
	}
}

func TestMonitorIDsListsEveryRegisteredID(t *testing.T) {
	r := New()
	r.RegisterMonitor(Metadata{Spec: moduleid.New("disk", "1")}, func(Settings) (Monitor, error) {
		return &fakeMonitor{}, nil
	})
	r.RegisterMonitor(Metadata{Spec: moduleid.New("cpu", "1")}, func(Settings) (Monitor, error) {
		return &fakeMonitor{}, nil
	})
	ids := r.MonitorIDs()
	if len(ids) != 2 {
		t.Fatalf("MonitorIDs() = %v, want 2 entries", ids)
	}
}

func TestMetadataSupportsPlatform(t *testing.T) {
	m := Metadata{Platforms: []PlatformGate{{OS: "linux"}}}
	if !m.SupportsPlatform(hoststate.Platform{OS: "linux"}) {
		t.Error("expected a matching OS gate to pass")
	}
	if m.SupportsPlatform(hoststate.Platform{OS: "windows"}) {
		t.Error("expected a non-matching OS gate to fail")
	}
	if !m.SupportsPlatform(hoststate.Platform{}) {
		t.Error("expected an unset platform to pass eagerly (no rejection before first refresh)")
	}
}

func TestMetadataSupportsPlatformNoGatesAlwaysPasses(t *testing.T) {
	m := Metadata{}
	if !m.SupportsPlatform(hoststate.Platform{OS: "windows"}) {
		t.Error("expected no declared gates to mean any platform")
	}
}

func TestMetadataIsExtension(t *testing.T) {
	parent := moduleid.New("disk", "1")
	if (Metadata{ParentModule: &parent}).IsExtension() != true {
		t.Error("expected a non-nil ParentModule to mark an extension")
	}
	if (Metadata{}).IsExtension() != false {
		t.Error("expected a nil ParentModule to mean not an extension")
	}
}
