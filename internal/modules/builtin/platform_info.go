package builtin

import (
	"strings"

	"github.com/fleetcore/fleetcore/internal/connector"
	"github.com/fleetcore/fleetcore/internal/hoststate"
	"github.com/fleetcore/fleetcore/internal/moduleid"
	"github.com/fleetcore/fleetcore/internal/registry"
	"github.com/fleetcore/fleetcore/internal/sshconn"
)

// platformInfoMessage is shipped to every host once per connector kind
// (spec.md §4.C). It prints the two sources the response parser reads:
// os-release for distro identity, uname for kernel/arch.
const platformInfoMessage = "cat /etc/os-release 2>/dev/null; uname -sm"

// platformInfo is the internal monitor MonitorManager.RefreshPlatformInfo
// dispatches for every connector kind in use. It never appears in a host's
// module list directly (spec.md §4.C: it is wired via RegisterPlatformProbe,
// not AddMonitor).
type platformInfo struct{ base }

// NewPlatformInfoMonitor builds the platform-info probe for one connector
// kind, registered into both the module registry (so Clone/Metadata work
// like any other monitor) and MonitorManager.RegisterPlatformProbe.
func NewPlatformInfoMonitor(connSpec moduleid.Spec) registry.Monitor {
	meta := registry.Metadata{
		Spec:          moduleid.New("platform_info."+connSpec.ID, "1"),
		ConnectorSpec: &connSpec,
		Display:       hoststate.DisplayOptions{Category: "system", Text: "Platform"},
	}
	return &platformInfo{base{meta: meta}}
}

func (p *platformInfo) Clone() registry.Module { return &platformInfo{p.base} }

func (p *platformInfo) GetConnectorMessage(host hoststate.Host, _ *hoststate.DataPoint) (string, error) {
	return platformInfoMessage, nil
}

func (p *platformInfo) GetConnectorMessages(host hoststate.Host, _ *hoststate.DataPoint) ([]string, error) {
	return nil, registry.NotImplemented(p.meta.Spec.ID)
}

func (p *platformInfo) ProcessResponse(host hoststate.Host, resp *connector.ResponseMessage, _ *hoststate.DataPoint) (hoststate.DataPoint, error) {
	dp := hoststate.DataPoint{Label: hoststate.PlatformInfoLabel, Criticality: hoststate.Normal}
	if resp == nil || resp.IsError {
		dp.Criticality = hoststate.Warning
		dp.Description = "platform probe failed"
		return dp, nil
	}
	plat := parseOSRelease(resp.Message)
	dp.Value = plat.OS
	// HostManager.applyPlatformInfo reads exactly these four child labels
	// out of Multivalue to populate Host.Platform (spec.md §4.C).
	dp.Multivalue = []hoststate.DataPoint{
		{Label: "os", Value: plat.OS},
		{Label: "os_version", Value: plat.OSVersion},
		{Label: "os_flavor", Value: plat.OSFlavor},
		{Label: "architecture", Value: plat.Architecture},
	}
	return dp, nil
}

func (p *platformInfo) ProcessResponses(host hoststate.Host, _ []connector.ResponseMessage, _ *hoststate.DataPoint) (hoststate.DataPoint, error) {
	return hoststate.DataPoint{}, registry.NotImplemented(p.meta.Spec.ID)
}

// parseOSRelease extracts the fields hoststate.Platform needs from the
// concatenated os-release + uname -sm output.
func parseOSRelease(out string) hoststate.Platform {
	var plat hoststate.Platform
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "ID="):
			plat.OSFlavor = unquote(strings.TrimPrefix(line, "ID="))
		case strings.HasPrefix(line, "NAME="):
			if plat.OS == "" {
				plat.OS = unquote(strings.TrimPrefix(line, "NAME="))
			}
		case strings.HasPrefix(line, "VERSION_ID="):
			plat.OSVersion = unquote(strings.TrimPrefix(line, "VERSION_ID="))
		case strings.HasPrefix(line, "Linux ") || strings.HasPrefix(line, "Darwin "):
			fields := strings.Fields(line)
			if plat.OS == "" && len(fields) > 0 {
				plat.OS = fields[0]
			}
			if len(fields) > 1 {
				plat.Architecture = fields[len(fields)-1]
			}
		}
	}
	if plat.OS == "" {
		plat.OS = "unknown"
	}
	return plat
}

func unquote(s string) string {
	return strings.Trim(s, `"`)
}

// RegisterPlatformInfo installs the ssh platform-info probe into the
// registry (so it resolves and clones like any other monitor). The daemon
// wiring additionally feeds it to monitor.Manager.RegisterPlatformProbe —
// RegisterAll only covers registry membership, not that second wiring step,
// since MonitorManager is constructed after the registry is populated.
func RegisterPlatformInfo(reg *registry.Registry) {
	probe := NewPlatformInfoMonitor(sshconn.Spec)
	meta := probe.Metadata()
	reg.RegisterMonitor(meta, func(registry.Settings) (registry.Monitor, error) {
		return probe.Clone().(registry.Monitor), nil
	})
}
