package builtin

import (
	"strconv"
	"strings"

	"github.com/fleetcore/fleetcore/internal/connector"
	"github.com/fleetcore/fleetcore/internal/hoststate"
	"github.com/fleetcore/fleetcore/internal/moduleid"
	"github.com/fleetcore/fleetcore/internal/registry"
	"github.com/fleetcore/fleetcore/internal/sshconn"
)

// diskThresholds are the use% boundaries that promote a reading's
// criticality (spec.md §3 "per-module criticality gating").
const (
	diskWarnPercent     = 80
	diskCriticalPercent = 95
)

// diskUsage is a base monitor: "df -kP /" summarised into one DataPoint.
type diskUsage struct{ base }

// RegisterDiskUsage installs the root-filesystem usage monitor.
func RegisterDiskUsage(reg *registry.Registry) {
	meta := registry.Metadata{
		Spec:          moduleid.New("disk_usage", "1"),
		ConnectorSpec: specPtr(sshconn.Spec),
		Platforms:     []registry.PlatformGate{{OS: "Linux"}, {OS: "linux"}},
		Display:       hoststate.DisplayOptions{Category: "system", Text: "Disk /", Icon: "disk"},
	}
	m := &diskUsage{base{meta: meta}}
	reg.RegisterMonitor(meta, func(registry.Settings) (registry.Monitor, error) { return m.Clone().(registry.Monitor), nil })
}

func (d *diskUsage) Clone() registry.Module { return &diskUsage{d.base} }

func (d *diskUsage) GetConnectorMessage(hoststate.Host, *hoststate.DataPoint) (string, error) {
	return "df -kP /", nil
}

func (d *diskUsage) GetConnectorMessages(hoststate.Host, *hoststate.DataPoint) ([]string, error) {
	return nil, registry.NotImplemented(d.meta.Spec.ID)
}

func (d *diskUsage) ProcessResponse(_ hoststate.Host, resp *connector.ResponseMessage, _ *hoststate.DataPoint) (hoststate.DataPoint, error) {
	if resp == nil || resp.IsError {
		return hoststate.DataPoint{Label: "disk_usage", Criticality: hoststate.Error, Description: "df failed"}, nil
	}
	pct, avail, ok := parseDfRoot(resp.Message)
	if !ok {
		return hoststate.DataPoint{Label: "disk_usage", Criticality: hoststate.Warning, Description: "could not parse df output"}, nil
	}
	crit := hoststate.Normal
	switch {
	case pct >= diskCriticalPercent:
		crit = hoststate.Critical
	case pct >= diskWarnPercent:
		crit = hoststate.Warning
	}
	return hoststate.DataPoint{
		Label:       "disk_usage",
		Value:       strconv.Itoa(pct) + "%",
		Description: avail + " available",
		Criticality: crit,
	}, nil
}

func (d *diskUsage) ProcessResponses(hoststate.Host, []connector.ResponseMessage, *hoststate.DataPoint) (hoststate.DataPoint, error) {
	return hoststate.DataPoint{}, registry.NotImplemented(d.meta.Spec.ID)
}

// parseDfRoot reads the second line of `df -kP /` output: Filesystem
// 1024-blocks Used Available Capacity Mounted.
func parseDfRoot(out string) (usedPercent int, available string, ok bool) {
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) < 2 {
		return 0, "", false
	}
	fields := strings.Fields(lines[len(lines)-1])
	if len(fields) < 5 {
		return 0, "", false
	}
	pctStr := strings.TrimSuffix(fields[4], "%")
	pct, err := strconv.Atoi(pctStr)
	if err != nil {
		return 0, "", false
	}
	availKB, err := strconv.ParseFloat(fields[3], 64)
	if err != nil {
		return pct, fields[3] + "K", true
	}
	return pct, humanKB(availKB), true
}

func humanKB(kb float64) string {
	const unit = 1024.0
	if kb < unit {
		return strconv.FormatFloat(kb, 'f', 0, 64) + "K"
	}
	mb := kb / unit
	if mb < unit {
		return strconv.FormatFloat(mb, 'f', 1, 64) + "M"
	}
	gb := mb / unit
	return strconv.FormatFloat(gb, 'f', 1, 64) + "G"
}

func specPtr(s moduleid.Spec) *moduleid.Spec { return &s }
