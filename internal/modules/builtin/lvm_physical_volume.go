package builtin

import (
	"strings"

	"github.com/fleetcore/fleetcore/internal/connector"
	"github.com/fleetcore/fleetcore/internal/hoststate"
	"github.com/fleetcore/fleetcore/internal/moduleid"
	"github.com/fleetcore/fleetcore/internal/registry"
	"github.com/fleetcore/fleetcore/internal/sshconn"
)

// lvmPhysicalVolume is a base monitor reporting one multivalue DataPoint
// per LVM physical volume, flagging any volume `pvs` marks missing.
// Grounded on original_source's storage-lvm-physical-volume monitor.
type lvmPhysicalVolume struct{ base }

// RegisterLVMPhysicalVolume installs the "lvm_physical_volume" monitor.
func RegisterLVMPhysicalVolume(reg *registry.Registry) {
	meta := registry.Metadata{
		Spec:          moduleid.New("lvm_physical_volume", "1"),
		ConnectorSpec: specPtr(sshconn.Spec),
		Platforms:     []registry.PlatformGate{{OS: "Linux"}, {OS: "linux"}},
		Display:       hoststate.DisplayOptions{Category: "storage", Text: "Physical Volumes", MultivalueDepth: 1},
	}
	m := &lvmPhysicalVolume{base{meta: meta}}
	reg.RegisterMonitor(meta, func(registry.Settings) (registry.Monitor, error) { return m.Clone().(registry.Monitor), nil })
}

func (l *lvmPhysicalVolume) Clone() registry.Module { return &lvmPhysicalVolume{l.base} }

func (l *lvmPhysicalVolume) GetConnectorMessage(hoststate.Host, *hoststate.DataPoint) (string, error) {
	return "pvs --separator '|' --options pv_name,pv_attr,pv_size --units H", nil
}

func (l *lvmPhysicalVolume) GetConnectorMessages(hoststate.Host, *hoststate.DataPoint) ([]string, error) {
	return nil, registry.NotImplemented(l.meta.Spec.ID)
}

func (l *lvmPhysicalVolume) ProcessResponse(_ hoststate.Host, resp *connector.ResponseMessage, _ *hoststate.DataPoint) (hoststate.DataPoint, error) {
	if resp == nil || resp.IsError {
		return hoststate.DataPoint{Label: "lvm_physical_volume", Criticality: hoststate.Error, Description: "pvs failed"}, nil
	}
	if strings.TrimSpace(resp.Message) == "" {
		return hoststate.DataPoint{}, nil
	}
	return hoststate.DataPoint{Label: "lvm_physical_volume", Multivalue: parsePvs(resp.Message)}, nil
}

func (l *lvmPhysicalVolume) ProcessResponses(hoststate.Host, []connector.ResponseMessage, *hoststate.DataPoint) (hoststate.DataPoint, error) {
	return hoststate.DataPoint{}, registry.NotImplemented(l.meta.Spec.ID)
}

// parsePvs reads `pvs --separator '|' --options pv_name,pv_attr,pv_size`
// output: a header line followed by one "name|attr|size" line per volume.
// The third character of attr is 'm' when lvm considers the volume missing.
func parsePvs(out string) []hoststate.DataPoint {
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) < 2 {
		return nil
	}
	var points []hoststate.DataPoint
	for _, line := range lines[1:] {
		parts := strings.Split(line, "|")
		if len(parts) != 3 {
			continue
		}
		name := strings.TrimSpace(parts[0])
		attr := strings.TrimSpace(parts[1])
		size := strings.TrimSpace(parts[2])

		dp := hoststate.DataPoint{
			Label:         name,
			Value:         "OK",
			Description:   "size: " + size,
			Criticality:   hoststate.Normal,
			CommandParams: map[string]string{"pv_name": name},
		}
		if len(attr) >= 3 && attr[2] == 'm' {
			dp.Criticality = hoststate.Critical
			dp.Value = "Missing"
		}
		points = append(points, dp)
	}
	return points
}
