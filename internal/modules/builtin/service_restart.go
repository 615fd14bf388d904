package builtin

import (
	"fmt"

	"github.com/fleetcore/fleetcore/internal/connector"
	"github.com/fleetcore/fleetcore/internal/hoststate"
	"github.com/fleetcore/fleetcore/internal/moduleid"
	"github.com/fleetcore/fleetcore/internal/registry"
	"github.com/fleetcore/fleetcore/internal/sshconn"
)

// serviceRestart restarts one systemd unit (modeled on the teacher's
// opRestart: be careful with restart, not retryable at the command layer —
// the caller re-requests if it needs another attempt).
type serviceRestart struct{ base }

// RegisterServiceRestart installs the "restart_service" command.
func RegisterServiceRestart(reg *registry.Registry) {
	meta := registry.Metadata{
		Spec:          moduleid.New("restart_service", "1"),
		ConnectorSpec: specPtr(sshconn.Spec),
		Platforms:     []registry.PlatformGate{{OS: "Linux"}, {OS: "linux"}},
		Display:       hoststate.DisplayOptions{Category: "actions", Text: "Restart service"},
		Destructive:   true,
	}
	m := &serviceRestart{base{meta: meta}}
	reg.RegisterCommand(meta, func(registry.Settings) (registry.Command, error) { return m.Clone().(registry.Command), nil })
}

func (s *serviceRestart) Clone() registry.Module { return &serviceRestart{s.base} }

func (s *serviceRestart) GetConnectorMessage(_ hoststate.Host, params map[string]string) (string, error) {
	unit, ok := params["unit"]
	if !ok || unit == "" {
		return "", fmt.Errorf("restart_service: missing required param %q", "unit")
	}
	return "systemctl restart " + shellEscapeUnit(unit), nil
}

func (s *serviceRestart) GetConnectorMessages(hoststate.Host, map[string]string) ([]string, error) {
	return nil, registry.NotImplemented(s.meta.Spec.ID)
}

func (s *serviceRestart) ProcessResponse(_ hoststate.Host, resp *connector.ResponseMessage) (hoststate.CommandResult, error) {
	if resp == nil || resp.IsError {
		msg := "restart failed"
		if resp != nil {
			msg = resp.Message
		}
		return hoststate.CommandResult{Message: msg, Criticality: hoststate.Error}, nil
	}
	return hoststate.CommandResult{Message: "restarted", Criticality: hoststate.Normal}, nil
}

func (s *serviceRestart) ProcessResponses(hoststate.Host, []connector.ResponseMessage) (hoststate.CommandResult, error) {
	return hoststate.CommandResult{}, registry.NotImplemented(s.meta.Spec.ID)
}

// shellEscapeUnit allows only unit-name characters, the one params field
// that lands in a shell command line unquoted.
func shellEscapeUnit(unit string) string {
	out := make([]rune, 0, len(unit))
	for _, r := range unit {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.', r == '@':
			out = append(out, r)
		}
	}
	return string(out)
}
