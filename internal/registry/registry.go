package registry

import (
	"fmt"
	"sync"

	"github.com/fleetcore/fleetcore/internal/connector"
	"github.com/fleetcore/fleetcore/internal/moduleid"
)

// Settings is the generic per-module configuration bag passed to
// constructors (spec.md §4.A `new_command(spec, settings)` etc.) — string
// key/value pairs merged from YAML config, distinct from the coarse
// boolean Host.Settings flags in package hoststate.
type Settings map[string]string

// MonitorConstructor builds a fresh Monitor instance from module settings.
type MonitorConstructor func(settings Settings) (Monitor, error)

// CommandConstructor builds a fresh Command instance from module settings.
type CommandConstructor func(settings Settings) (Command, error)

// ConnectorConstructor builds a fresh connector.Connector from module
// settings.
type ConnectorConstructor func(settings Settings) (connector.Connector, error)

type monitorEntry struct {
	meta        Metadata
	constructor MonitorConstructor
}

type commandEntry struct {
	meta        Metadata
	constructor CommandConstructor
}

type connectorEntry struct {
	meta        Metadata
	constructor ConnectorConstructor
}

// Registry is the process-wide, initialise-then-read-only module factory
// (spec.md §9 "Global registry"). All Register calls are expected at
// startup; Resolve/New* are read paths used throughout a run.
type Registry struct {
	mu         sync.RWMutex
	monitors   map[string]map[string]monitorEntry   // id -> version -> entry
	commands   map[string]map[string]commandEntry   // id -> version -> entry
	connectors map[string]map[string]connectorEntry // id -> version -> entry
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		monitors:   make(map[string]map[string]monitorEntry),
		commands:   make(map[string]map[string]commandEntry),
		connectors: make(map[string]map[string]connectorEntry),
	}
}

// RegisterMonitor adds a monitor constructor under its declared spec.
// Panics on a duplicate (id, version) pair — a configuration-time bug.
func (r *Registry) RegisterMonitor(meta Metadata, ctor MonitorConstructor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	byVersion, ok := r.monitors[meta.Spec.ID]
	if !ok {
		byVersion = make(map[string]monitorEntry)
		r.monitors[meta.Spec.ID] = byVersion
	}
	if _, exists := byVersion[meta.Spec.Version]; exists {
		panic(fmt.Sprintf("registry: monitor %s already registered", meta.Spec))
	}
	byVersion[meta.Spec.Version] = monitorEntry{meta: meta, constructor: ctor}
}

// RegisterCommand adds a command constructor under its declared spec.
func (r *Registry) RegisterCommand(meta Metadata, ctor CommandConstructor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	byVersion, ok := r.commands[meta.Spec.ID]
	if !ok {
		byVersion = make(map[string]commandEntry)
		r.commands[meta.Spec.ID] = byVersion
	}
	if _, exists := byVersion[meta.Spec.Version]; exists {
		panic(fmt.Sprintf("registry: command %s already registered", meta.Spec))
	}
	byVersion[meta.Spec.Version] = commandEntry{meta: meta, constructor: ctor}
}

// RegisterConnector adds a connector constructor under its declared spec.
func (r *Registry) RegisterConnector(meta Metadata, ctor ConnectorConstructor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	byVersion, ok := r.connectors[meta.Spec.ID]
	if !ok {
		byVersion = make(map[string]connectorEntry)
		r.connectors[meta.Spec.ID] = byVersion
	}
	if _, exists := byVersion[meta.Spec.Version]; exists {
		panic(fmt.Sprintf("registry: connector %s already registered", meta.Spec))
	}
	byVersion[meta.Spec.Version] = connectorEntry{meta: meta, constructor: ctor}
}

func resolveVersion[E any](byVersion map[string]E, want string) (E, bool) {
	var zero E
	if want != moduleid.Latest {
		e, ok := byVersion[want]
		return e, ok
	}
	var candidates []moduleid.Spec
	for v := range byVersion {
		candidates = append(candidates, moduleid.Spec{Version: v})
	}
	best, ok := moduleid.Highest(candidates)
	if !ok {
		return zero, false
	}
	e, ok := byVersion[best.Version]
	return e, ok
}

// ResolveMonitorMeta resolves a spec (honouring the Latest sentinel) to the
// registered metadata, without constructing an instance.
func (r *Registry) ResolveMonitorMeta(spec moduleid.Spec) (Metadata, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	byVersion, ok := r.monitors[spec.ID]
	if !ok {
		return Metadata{}, false
	}
	e, ok := resolveVersion(byVersion, spec.Version)
	return e.meta, ok
}

// ResolveCommandMeta resolves a spec to its registered metadata.
func (r *Registry) ResolveCommandMeta(spec moduleid.Spec) (Metadata, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	byVersion, ok := r.commands[spec.ID]
	if !ok {
		return Metadata{}, false
	}
	e, ok := resolveVersion(byVersion, spec.Version)
	return e.meta, ok
}

// NewMonitor constructs a monitor instance for spec against settings.
func (r *Registry) NewMonitor(spec moduleid.Spec, settings Settings) (Monitor, error) {
	r.mu.RLock()
	byVersion, ok := r.monitors[spec.ID]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("registry: unknown monitor %q", spec.ID)
	}
	e, ok := resolveVersion(byVersion, spec.Version)
	if !ok {
		return nil, fmt.Errorf("registry: no version %q for monitor %q", spec.Version, spec.ID)
	}
	return e.constructor(settings)
}

// NewCommand constructs a command instance for spec against settings.
func (r *Registry) NewCommand(spec moduleid.Spec, settings Settings) (Command, error) {
	r.mu.RLock()
	byVersion, ok := r.commands[spec.ID]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("registry: unknown command %q", spec.ID)
	}
	e, ok := resolveVersion(byVersion, spec.Version)
	if !ok {
		return nil, fmt.Errorf("registry: no version %q for command %q", spec.Version, spec.ID)
	}
	return e.constructor(settings)
}

// NewConnector constructs a connector instance for spec against settings.
func (r *Registry) NewConnector(spec moduleid.Spec, settings Settings) (connector.Connector, error) {
	r.mu.RLock()
	byVersion, ok := r.connectors[spec.ID]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("registry: unknown connector %q", spec.ID)
	}
	e, ok := resolveVersion(byVersion, spec.Version)
	if !ok {
		return nil, fmt.Errorf("registry: no version %q for connector %q", spec.Version, spec.ID)
	}
	return e.constructor(settings)
}

// MonitorIDs returns every registered monitor id (for refresh_host_monitors
// style fan-out when the caller wants "everything").
func (r *Registry) MonitorIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.monitors))
	for id := range r.monitors {
		ids = append(ids, id)
	}
	return ids
}
