package builtin

import (
	"fmt"

	"github.com/fleetcore/fleetcore/internal/connector"
	"github.com/fleetcore/fleetcore/internal/hoststate"
	"github.com/fleetcore/fleetcore/internal/moduleid"
	"github.com/fleetcore/fleetcore/internal/registry"
	"github.com/fleetcore/fleetcore/internal/sshconn"
)

// serviceMask masks a systemd unit (disables it and symlinks it to
// /dev/null, preventing accidental or dependency-triggered starts).
// Grounded on original_source's systemd-service-mask command module.
type serviceMask struct{ base }

// RegisterServiceMask installs the "mask_service" command.
func RegisterServiceMask(reg *registry.Registry) {
	meta := registry.Metadata{
		Spec:          moduleid.New("mask_service", "1"),
		ConnectorSpec: specPtr(sshconn.Spec),
		Platforms:     []registry.PlatformGate{{OS: "Linux"}, {OS: "linux"}},
		Display:       hoststate.DisplayOptions{Category: "actions", Text: "Mask service", Icon: "cancel"},
		Destructive:   true,
	}
	m := &serviceMask{base{meta: meta}}
	reg.RegisterCommand(meta, func(registry.Settings) (registry.Command, error) { return m.Clone().(registry.Command), nil })
}

func (s *serviceMask) Clone() registry.Module { return &serviceMask{s.base} }

func (s *serviceMask) GetConnectorMessage(_ hoststate.Host, params map[string]string) (string, error) {
	unit, ok := params["unit"]
	if !ok || unit == "" {
		return "", fmt.Errorf("mask_service: missing required param %q", "unit")
	}
	return "systemctl mask " + shellEscapeUnit(unit), nil
}

func (s *serviceMask) GetConnectorMessages(hoststate.Host, map[string]string) ([]string, error) {
	return nil, registry.NotImplemented(s.meta.Spec.ID)
}

func (s *serviceMask) ProcessResponse(_ hoststate.Host, resp *connector.ResponseMessage) (hoststate.CommandResult, error) {
	if resp == nil || resp.Message != "" {
		msg := "mask failed"
		if resp != nil && resp.Message != "" {
			msg = resp.Message
		}
		return hoststate.CommandResult{Message: msg, Criticality: hoststate.Error}, nil
	}
	return hoststate.CommandResult{Message: "masked", Criticality: hoststate.Normal}, nil
}

func (s *serviceMask) ProcessResponses(hoststate.Host, []connector.ResponseMessage) (hoststate.CommandResult, error) {
	return hoststate.CommandResult{}, registry.NotImplemented(s.meta.Spec.ID)
}
