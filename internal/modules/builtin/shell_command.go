package builtin

import (
	"fmt"

	"github.com/fleetcore/fleetcore/internal/connector"
	"github.com/fleetcore/fleetcore/internal/hoststate"
	"github.com/fleetcore/fleetcore/internal/moduleid"
	"github.com/fleetcore/fleetcore/internal/registry"
	"github.com/fleetcore/fleetcore/internal/sshconn"
)

// shellCommand runs a UI-supplied literal shell line, the generic escape
// hatch for ad-hoc host actions (modeled on the teacher's opForceRebuild:
// a direct, parameterised passthrough rather than a validated workflow).
type shellCommand struct{ base }

// RegisterShellCommand installs the "run_shell" command.
func RegisterShellCommand(reg *registry.Registry) {
	meta := registry.Metadata{
		Spec:          moduleid.New("run_shell", "1"),
		ConnectorSpec: specPtr(sshconn.Spec),
		Display:       hoststate.DisplayOptions{Category: "actions", Text: "Run shell command"},
	}
	m := &shellCommand{base{meta: meta}}
	reg.RegisterCommand(meta, func(registry.Settings) (registry.Command, error) { return m.Clone().(registry.Command), nil })
}

func (s *shellCommand) Clone() registry.Module { return &shellCommand{s.base} }

func (s *shellCommand) GetConnectorMessage(_ hoststate.Host, params map[string]string) (string, error) {
	line, ok := params["line"]
	if !ok || line == "" {
		return "", fmt.Errorf("run_shell: missing required param %q", "line")
	}
	return line, nil
}

func (s *shellCommand) GetConnectorMessages(hoststate.Host, map[string]string) ([]string, error) {
	return nil, registry.NotImplemented(s.meta.Spec.ID)
}

func (s *shellCommand) ProcessResponse(_ hoststate.Host, resp *connector.ResponseMessage) (hoststate.CommandResult, error) {
	if resp == nil {
		return hoststate.CommandResult{Message: "no response", Criticality: hoststate.Error}, nil
	}
	crit := hoststate.Normal
	if resp.IsError {
		crit = hoststate.Error
	}
	return hoststate.CommandResult{Message: resp.Message, Criticality: crit}, nil
}

func (s *shellCommand) ProcessResponses(hoststate.Host, []connector.ResponseMessage) (hoststate.CommandResult, error) {
	return hoststate.CommandResult{}, registry.NotImplemented(s.meta.Spec.ID)
}
