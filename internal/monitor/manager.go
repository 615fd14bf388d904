// Package monitor implements the MonitorManager dispatcher (CORE-D): turns
// "refresh these monitors on that host" into ConnectorRequests, chains
// extension modules onto their parent's result, and publishes
// StateUpdateMessages, modeled on the teacher's ops.Executor lifecycle
// (internal/ops/executor.go) generalised from a single linear op run to the
// base/extension recursion spec.md §4.D describes.
package monitor

import (
	"sync/atomic"

	"github.com/fleetcore/fleetcore/internal/connector"
	"github.com/fleetcore/fleetcore/internal/fleeterr"
	"github.com/fleetcore/fleetcore/internal/hoststate"
	"github.com/fleetcore/fleetcore/internal/moduleid"
	"github.com/fleetcore/fleetcore/internal/registry"
	"github.com/rs/zerolog"
)

type hostMonitor struct {
	instance   registry.Monitor
	meta       registry.Metadata
	isCritical bool
}

// Manager dispatches monitor refreshes for every registered host.
type Manager struct {
	log zerolog.Logger

	reg *registry.Registry

	requests chan<- connector.Request
	updates  chan<- hoststate.StateUpdateMessage

	// monitors[host][monitorID]
	monitors map[string]map[string]*hostMonitor
	// platformProbes[connectorSpec] is the internal monitor dispatched by
	// RefreshPlatformInfo for hosts using that connector kind.
	platformProbes map[moduleid.Spec]registry.Monitor

	invocationID atomic.Uint64
}

// NewManager wires a MonitorManager onto an already-running
// ConnectionManager's request channel and HostManager's update channel.
func NewManager(log zerolog.Logger, reg *registry.Registry, requests chan<- connector.Request, updates chan<- hoststate.StateUpdateMessage) *Manager {
	return &Manager{
		log:            log.With().Str("component", "monitor_manager").Logger(),
		reg:            reg,
		requests:       requests,
		updates:        updates,
		monitors:       make(map[string]map[string]*hostMonitor),
		platformProbes: make(map[moduleid.Spec]registry.Monitor),
	}
}

// RegisterPlatformProbe installs the internal monitor RefreshPlatformInfo
// dispatches for hosts that use connSpec.
func (m *Manager) RegisterPlatformProbe(connSpec moduleid.Spec, probe registry.Monitor) {
	m.platformProbes[connSpec] = probe
}

// AddMonitor attaches a monitor to a host. Insert-only-if-absent (spec.md
// §3 invariant 2: monitor ids are unique per host). Independent monitors
// (no connector dependency) are fired immediately to bootstrap static
// info (spec.md §4.D).
func (m *Manager) AddMonitor(host hoststate.Host, spec moduleid.Spec, settings registry.Settings, hs *hoststate.Manager, isCritical bool) error {
	byHost, ok := m.monitors[host.Name]
	if !ok {
		byHost = make(map[string]*hostMonitor)
		m.monitors[host.Name] = byHost
	}
	if _, exists := byHost[spec.ID]; exists {
		return nil
	}

	inst, err := m.reg.NewMonitor(spec, settings)
	if err != nil {
		return err
	}
	meta, _ := m.reg.ResolveMonitorMeta(spec)
	hm := &hostMonitor{instance: inst, meta: meta, isCritical: isCritical}
	byHost[spec.ID] = hm

	hs.SeedMonitor(host.Name, spec.ID, meta.Display, isCritical)

	if meta.ConnectorSpec == nil {
		m.dispatchChain(host, []*hostMonitor{hm}, nil, m.nextInvocationID(), spec.ID)
	}
	return nil
}

func (m *Manager) nextInvocationID() uint64 { return m.invocationID.Add(1) }

// RefreshMonitorsByID refreshes a single monitor on a host.
func (m *Manager) RefreshMonitorsByID(host hoststate.Host, monitorID string) {
	hm, ok := m.lookup(host.Name, monitorID)
	if !ok || hm.meta.IsExtension() {
		return
	}
	m.refreshOne(host, hm)
}

// RefreshMonitorsOfCategory refreshes every base monitor on host whose
// display category matches.
func (m *Manager) RefreshMonitorsOfCategory(host hoststate.Host, category string) {
	for _, hm := range m.monitors[host.Name] {
		if hm.meta.IsExtension() || hm.meta.Display.Category != category {
			continue
		}
		m.refreshOne(host, hm)
	}
}

// RefreshPlatformInfo dispatches the registered platform-info probe for
// every connector kind any monitor on the given hosts depends on (spec.md
// §4.D). Its result routes through the normal publish path: a DataPoint
// labelled "_platform_info" that HostManager recognises and diverts into
// Host.Platform instead of monitor history.
func (m *Manager) RefreshPlatformInfo(hosts []hoststate.Host) {
	for _, h := range hosts {
		seen := make(map[moduleid.Spec]bool)
		for _, hm := range m.monitors[h.Name] {
			if hm.meta.ConnectorSpec == nil || seen[*hm.meta.ConnectorSpec] {
				continue
			}
			seen[*hm.meta.ConnectorSpec] = true
			probe, ok := m.platformProbes[*hm.meta.ConnectorSpec]
			if !ok {
				continue
			}
			probeMeta, _ := m.reg.ResolveMonitorMeta(probe.ModuleSpec())
			if probeMeta.Spec.ID == "" {
				probeMeta = registry.Metadata{Spec: probe.ModuleSpec(), ConnectorSpec: hm.meta.ConnectorSpec}
			}
			m.dispatchChain(h, []*hostMonitor{{instance: probe, meta: probeMeta}}, nil, m.nextInvocationID(), probeMeta.Spec.ID)
		}
	}
}

// RefreshHostMonitors refreshes every base monitor on each host in hosts. A
// nil or empty slice refreshes nothing.
func (m *Manager) RefreshHostMonitors(hosts []hoststate.Host) {
	for _, h := range hosts {
		for _, hm := range m.monitors[h.Name] {
			if hm.meta.IsExtension() {
				continue
			}
			m.refreshOne(h, hm)
		}
	}
}

func (m *Manager) lookup(hostName, monitorID string) (*hostMonitor, bool) {
	byHost, ok := m.monitors[hostName]
	if !ok {
		return nil, false
	}
	hm, ok := byHost[monitorID]
	return hm, ok
}

func (m *Manager) findExtension(hostName string, parent moduleid.Spec) *hostMonitor {
	for _, hm := range m.monitors[hostName] {
		if hm.meta.ParentModule != nil && hm.meta.ParentModule.CompatibleWith(parent) {
			return hm
		}
	}
	return nil
}

// refreshOne implements the dispatch algorithm of spec.md §4.D: allocate an
// invocation id, find at most one matching extension, send the chain.
func (m *Manager) refreshOne(host hoststate.Host, base *hostMonitor) {
	if !base.meta.SupportsPlatform(host.Platform) {
		m.log.Debug().Str("host", host.Name).Str("monitor", base.meta.Spec.String()).Msg("skipping unsupported-platform monitor")
		return
	}
	chain := []*hostMonitor{base}
	if ext := m.findExtension(host.Name, base.meta.Spec); ext != nil {
		chain = append(chain, ext)
	}
	m.dispatchChain(host, chain, nil, m.nextInvocationID(), base.meta.Spec.ID)
}

// dispatchChain sends a ConnectorRequest for chain[0], threading the rest of
// the chain, the invocation id, and the base's monitor id through the
// callback so extensions can recurse (spec.md §4.D steps 2-5). publishID is
// always the ORIGINAL base's id: "each base refresh produces exactly one
// published data point per invocation id" (spec.md §4.D invariants) — an
// extension never gets its own published entry, it transforms the base's.
func (m *Manager) dispatchChain(host hoststate.Host, chain []*hostMonitor, parentResult *hoststate.DataPoint, invocationID uint64, publishID string) {
	head := chain[0]
	rest := chain[1:]

	var connSpec *moduleid.Spec
	var messages []string
	var multi bool

	if head.meta.ConnectorSpec != nil {
		connSpec = head.meta.ConnectorSpec
		msgs, err := head.instance.GetConnectorMessages(host, parentResult)
		switch {
		case err == nil:
			messages, multi = msgs, true
		case fleeterr.NotImplementedSentinel(err):
			// multi-message form unsupported; fall back to the single form.
			single, serr := head.instance.GetConnectorMessage(host, parentResult)
			if serr != nil {
				// Eager rejection (e.g. unsupported platform) or any other
				// message-build error aborts before a connector is touched.
				m.publishFailure(host, head, invocationID, publishID, serr)
				return
			}
			messages = []string{single}
		default:
			m.publishFailure(host, head, invocationID, publishID, err)
			return
		}
	}

	clone := head.instance.Clone().(registry.Monitor)
	cloneMeta := head.meta

	corrID := connector.NewCorrelationID()
	req := connector.Request{
		ConnectorSpec: connSpec,
		SourceID:      head.meta.Spec.ID,
		Host:          host,
		Messages:      messages,
		Type:          connector.Command,
		CachePolicy:   connector.UseCache,
		CorrelationID: corrID,
	}
	m.log.Debug().Str("host", host.Name).Str("monitor", head.meta.Spec.String()).Str("correlation_id", corrID.String()).Msg("dispatching monitor refresh")
	req.ResponseHandler = func(results []connector.Result) {
		dp, failed := m.processResponses(host, clone, cloneMeta, results, multi, parentResult, invocationID)
		if len(rest) > 0 && !failed {
			m.dispatchChain(host, rest, &dp, invocationID, publishID)
			return
		}
		m.publish(host, publishID, dp)
	}

	m.requests <- req
}

// processResponses returns the computed point and whether this stage
// failed (connector error or a processing error from the module). A failed
// base must not hand off to its extension (spec.md §4.D invariant: "if the
// base fails before extension, the extension is skipped and the failure is
// published").
func (m *Manager) processResponses(host hoststate.Host, mod registry.Monitor, meta registry.Metadata, results []connector.Result, multi bool, parentResult *hoststate.DataPoint, invocationID uint64) (hoststate.DataPoint, bool) {
	var dp hoststate.DataPoint
	var err error

	switch {
	case len(results) == 0:
		dp, err = mod.ProcessResponse(host, nil, parentResult)
	case len(results) == 1:
		resp, rerr := toResponse(results[0])
		if rerr != nil {
			dp = errorPoint(meta, rerr)
			dp.InvocationID = invocationID
			return dp, true
		}
		dp, err = mod.ProcessResponse(host, &resp, parentResult)
	default:
		resps, rerr := toResponses(results)
		if rerr != nil {
			dp = errorPoint(meta, rerr)
			dp.InvocationID = invocationID
			return dp, true
		}
		dp, err = mod.ProcessResponses(host, resps, parentResult)
		if err != nil && fleeterr.NotImplementedSentinel(err) {
			dp, err = mod.ProcessResponse(host, &resps[0], parentResult)
		}
	}

	if err != nil {
		m.log.Error().Err(err).Str("host", host.Name).Str("monitor", meta.Spec.String()).Msg("monitor processing failed")
		if parentResult != nil {
			dp = *parentResult // extension error leaves parent result unchanged
		} else {
			dp = errorPoint(meta, err)
		}
		dp.InvocationID = invocationID
		return dp, true
	}
	dp.InvocationID = invocationID
	return dp, false
}

func toResponse(r connector.Result) (connector.ResponseMessage, error) {
	if r.IsErr() {
		return connector.ResponseMessage{}, fleeterr.New(fleeterr.Other, "connector", r.Err)
	}
	return r.Response, nil
}

func toResponses(results []connector.Result) ([]connector.ResponseMessage, error) {
	out := make([]connector.ResponseMessage, 0, len(results))
	for _, r := range results {
		if r.IsErr() {
			out = append(out, connector.ResponseMessage{Message: r.Err, IsError: true})
			continue
		}
		out = append(out, r.Response)
	}
	return out, nil
}

func errorPoint(meta registry.Metadata, err error) hoststate.DataPoint {
	return hoststate.DataPoint{
		Label:       meta.Spec.ID,
		Value:       "error",
		Description: err.Error(),
		Criticality: hoststate.Error,
	}
}

func (m *Manager) publishFailure(host hoststate.Host, hm *hostMonitor, invocationID uint64, publishID string, err error) {
	dp := errorPoint(hm.meta, err)
	dp.InvocationID = invocationID
	m.publish(host, publishID, dp)
}

func (m *Manager) publish(host hoststate.Host, monitorID string, dp hoststate.DataPoint) {
	if dp.Label == hoststate.PlatformInfoLabel {
		m.updates <- hoststate.StateUpdateMessage{
			Kind:      hoststate.UpdateDataPoint,
			HostName:  host.Name,
			DataPoint: dp,
		}
		return
	}
	m.updates <- hoststate.StateUpdateMessage{
		Kind:         hoststate.UpdateDataPoint,
		HostName:     host.Name,
		ModuleSpecID: monitorID,
		DataPoint:    dp,
	}
}
