package builtin

import (
	"strings"

	"github.com/fleetcore/fleetcore/internal/connector"
	"github.com/fleetcore/fleetcore/internal/hoststate"
	"github.com/fleetcore/fleetcore/internal/moduleid"
	"github.com/fleetcore/fleetcore/internal/registry"
	"github.com/fleetcore/fleetcore/internal/sshconn"
)

// diskUsageDetailCandidates are the directories probed after every
// successful disk_usage reading, to show what's eating the space.
var diskUsageDetailCandidates = []string{"/var/log", "/var/cache", "/home", "/tmp"}

// diskUsageDetail is an extension of diskUsage: replaces the parent's
// DataPoint with one carrying a Multivalue breakdown (spec.md §4.D "extension
// modules ... enrich" — the decided behaviour here is replace, see
// SPEC_FULL.md's recorded Open Question decision).
type diskUsageDetail struct{ base }

// RegisterDiskUsageDetail installs the disk_usage extension.
func RegisterDiskUsageDetail(reg *registry.Registry) {
	parent := moduleid.New("disk_usage", "1")
	meta := registry.Metadata{
		Spec:          moduleid.New("disk_usage_detail", "1"),
		ParentModule:  &parent,
		ConnectorSpec: specPtr(sshconn.Spec),
		Display:       hoststate.DisplayOptions{Category: "system", Text: "Disk /", MultivalueDepth: 1},
	}
	m := &diskUsageDetail{base{meta: meta}}
	reg.RegisterMonitor(meta, func(registry.Settings) (registry.Monitor, error) { return m.Clone().(registry.Monitor), nil })
}

func (d *diskUsageDetail) Clone() registry.Module { return &diskUsageDetail{d.base} }

func (d *diskUsageDetail) GetConnectorMessage(hoststate.Host, *hoststate.DataPoint) (string, error) {
	return "du -sh " + strings.Join(diskUsageDetailCandidates, " ") + " 2>/dev/null", nil
}

func (d *diskUsageDetail) GetConnectorMessages(hoststate.Host, *hoststate.DataPoint) ([]string, error) {
	return nil, registry.NotImplemented(d.meta.Spec.ID)
}

func (d *diskUsageDetail) ProcessResponse(_ hoststate.Host, resp *connector.ResponseMessage, parent *hoststate.DataPoint) (hoststate.DataPoint, error) {
	dp := *parent // carries forward Label/Value/Criticality from the base
	if resp == nil || resp.IsError {
		return dp, nil // parent result stands; detail breakdown just missing
	}
	dp.Multivalue = parseDu(resp.Message)
	return dp, nil
}

func (d *diskUsageDetail) ProcessResponses(hoststate.Host, []connector.ResponseMessage, *hoststate.DataPoint) (hoststate.DataPoint, error) {
	return hoststate.DataPoint{}, registry.NotImplemented(d.meta.Spec.ID)
}

// parseDu turns `du -sh dir...` lines ("12M\t/var/log") into child points.
func parseDu(out string) []hoststate.DataPoint {
	var children []hoststate.DataPoint
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		fields := strings.Fields(line)
		if len(fields) != 2 {
			continue
		}
		children = append(children, hoststate.DataPoint{
			Label:       fields[1],
			Value:       fields[0],
			Criticality: hoststate.Normal,
		})
	}
	return children
}
