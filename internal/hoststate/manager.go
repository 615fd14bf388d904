package hoststate

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

// UpdateKind tags what StateUpdateMessage carries.
type UpdateKind int

const (
	UpdateDataPoint UpdateKind = iota
	UpdateCommandResult
	UpdateExit
)

// StateUpdateMessage is the single message type flowing over the
// HostManager's update channel (spec.md §4.C). Exactly one payload field is
// meaningful, selected by Kind; UpdateExit is the poison pill.
type StateUpdateMessage struct {
	Kind        UpdateKind
	HostName    string
	ModuleSpecID string // monitor or command id
	DataPoint   DataPoint
	CommandResult CommandResult
}

// ExitToken builds the poison-pill message that drains and stops the worker.
func ExitToken() StateUpdateMessage { return StateUpdateMessage{Kind: UpdateExit} }

// Observer receives a HostDisplayData snapshot after every applied update.
// Sends are best-effort: a full or closed observer channel is logged and
// skipped, never allowed to block the worker (spec.md §5).
type Observer chan HostDisplayData

// Manager is the authoritative per-host state store. A single goroutine
// (Run) serialises every mutation; reads taken outside that goroutine
// (GetHost, GetDisplayData) go through the same mutex.
type Manager struct {
	log zerolog.Logger

	mu    sync.Mutex
	hosts map[string]*HostState

	updates chan StateUpdateMessage

	obsMu     sync.Mutex
	observers []Observer

	done chan struct{}
}

// NewManager constructs a Manager. Call Run in its own goroutine once, then
// feed it via NewStateUpdateSender.
func NewManager(log zerolog.Logger) *Manager {
	return &Manager{
		log:     log.With().Str("component", "host_manager").Logger(),
		hosts:   make(map[string]*HostState),
		updates: make(chan StateUpdateMessage, 256),
		done:    make(chan struct{}),
	}
}

// AddHost registers a new host with Pending status. Returns an error if the
// name is already in use (spec.md §4.C) rather than silently overwriting.
func (m *Manager) AddHost(h Host) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.hosts[h.Name]; exists {
		return fmt.Errorf("host %q already registered", h.Name)
	}
	m.hosts[h.Name] = newHostState(h)
	return nil
}

// GetHost returns a copy of a host's current state. Unknown host names are a
// caller bug (spec.md §4.C) and panic rather than return an error.
func (m *Manager) GetHost(name string) HostState {
	m.mu.Lock()
	defer m.mu.Unlock()
	hs, ok := m.hosts[name]
	if !ok {
		panic(fmt.Sprintf("hoststate: unknown host %q", name))
	}
	return cloneState(hs)
}

// HostNames returns the registered host names in no particular order.
func (m *Manager) HostNames() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, 0, len(m.hosts))
	for n := range m.hosts {
		names = append(names, n)
	}
	return names
}

func cloneState(hs *HostState) HostState {
	out := *hs
	out.MonitorData = make(map[string]*MonitoringData, len(hs.MonitorData))
	for id, m := range hs.MonitorData {
		cp := *m
		out.MonitorData[id] = &cp
	}
	out.CommandResults = make(map[string]CommandResult, len(hs.CommandResults))
	for id, r := range hs.CommandResults {
		out.CommandResults[id] = r
	}
	return out
}

// SeedMonitor registers a monitor's display metadata and criticality gating
// before its first refresh, and seeds a NoData point so the UI shows
// "pending" (spec.md §4.D "adding a monitor").
func (m *Manager) SeedMonitor(hostName, monitorID string, display DisplayOptions, isCritical bool) {
	m.mu.Lock()
	hs, ok := m.hosts[hostName]
	if !ok {
		m.mu.Unlock()
		panic(fmt.Sprintf("hoststate: unknown host %q", hostName))
	}
	if _, exists := hs.MonitorData[monitorID]; exists {
		m.mu.Unlock()
		return
	}
	md := &MonitoringData{Display: display, IsCritical: isCritical}
	md.Append(DataPoint{Label: monitorID, Criticality: NoData})
	hs.MonitorData[monitorID] = md
	m.mu.Unlock()
}

// NewStateUpdateSender hands out a producer handle onto the update channel.
func (m *Manager) NewStateUpdateSender() chan<- StateUpdateMessage { return m.updates }

// AddObserver registers a new downstream consumer of HostDisplayData
// snapshots.
func (m *Manager) AddObserver(o Observer) {
	m.obsMu.Lock()
	defer m.obsMu.Unlock()
	m.observers = append(m.observers, o)
}

// GetDisplayData snapshots the full table-form view of every host.
func (m *Manager) GetDisplayData() []HostDisplayData {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]HostDisplayData, 0, len(m.hosts))
	for _, hs := range m.hosts {
		out = append(out, snapshot(hs))
	}
	return out
}

// Run is the single serialising worker: it must be started exactly once,
// typically with `go manager.Run()`. It returns when it receives
// UpdateExit, after notifying every observer.
func (m *Manager) Run() {
	defer close(m.done)
	for msg := range m.updates {
		if msg.Kind == UpdateExit {
			m.broadcast(HostDisplayData{ExitThread: true})
			return
		}
		m.apply(msg)
	}
}

// Join blocks until Run has returned (spec.md §5 graceful shutdown).
func (m *Manager) Join() { <-m.done }

func (m *Manager) apply(msg StateUpdateMessage) {
	m.mu.Lock()
	hs, ok := m.hosts[msg.HostName]
	if !ok {
		m.mu.Unlock()
		m.log.Warn().Str("host", msg.HostName).Msg("state update for unknown host, dropping (shutdown race?)")
		return
	}

	var display HostDisplayData
	switch msg.Kind {
	case UpdateDataPoint:
		if msg.DataPoint.Label == PlatformInfoLabel {
			applyPlatformInfo(hs, msg.DataPoint)
			display = snapshot(hs)
		} else {
			md, ok := hs.MonitorData[msg.ModuleSpecID]
			if !ok {
				md = &MonitoringData{}
				hs.MonitorData[msg.ModuleSpecID] = md
			}
			md.Append(msg.DataPoint)
			recomputeStatus(hs)
			display = snapshot(hs)
			display.NewMonitoringData = map[string]DataPoint{msg.ModuleSpecID: msg.DataPoint}
		}
	case UpdateCommandResult:
		hs.CommandResults[msg.ModuleSpecID] = msg.CommandResult
		display = snapshot(hs)
		display.NewCommandResults = map[string]CommandResult{msg.ModuleSpecID: msg.CommandResult}
	}
	m.mu.Unlock()

	m.broadcast(display)
}

// applyPlatformInfo copies the multivalue children a "_platform_info"
// DataPoint carries, keyed by label, into Host.Platform (spec.md §4.C).
func applyPlatformInfo(hs *HostState, dp DataPoint) {
	p := hs.Host.Platform
	for _, child := range dp.Multivalue {
		switch child.Label {
		case "os":
			p.OS = child.Value
		case "os_version":
			p.OSVersion = child.Value
		case "os_flavor":
			p.OSFlavor = child.Value
		case "architecture":
			p.Architecture = child.Value
		}
	}
	hs.Host.Platform = p
}

// recomputeStatus implements the status law (spec.md §3 invariant 5): Down
// iff some is_critical monitor's latest point is Critical.
func recomputeStatus(hs *HostState) {
	any := false
	down := false
	for _, md := range hs.MonitorData {
		latest, ok := md.Latest()
		if !ok {
			continue
		}
		any = true
		if md.IsCritical && latest.Criticality == Critical {
			down = true
		}
	}
	switch {
	case !any:
		hs.Status = StatusPending
	case down:
		hs.Status = StatusDown
	default:
		hs.Status = StatusUp
	}
}

func (m *Manager) broadcast(data HostDisplayData) {
	m.obsMu.Lock()
	defer m.obsMu.Unlock()
	for _, o := range m.observers {
		func() {
			defer func() {
				if r := recover(); r != nil {
					m.log.Warn().Msg("observer channel closed, dropping snapshot")
				}
			}()
			select {
			case o <- data:
			default:
				m.log.Warn().Msg("observer channel full or blocked, dropping snapshot")
			}
		}()
	}
}
