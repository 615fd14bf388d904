package builtin

import (
	"github.com/fleetcore/fleetcore/internal/connector"
	"github.com/fleetcore/fleetcore/internal/hoststate"
	"github.com/fleetcore/fleetcore/internal/moduleid"
	"github.com/fleetcore/fleetcore/internal/registry"
	"github.com/fleetcore/fleetcore/internal/sshconn"
)

// fetchFile is a command whose execution never goes through
// GetConnectorMessage/ProcessResponse: it only carries the display metadata
// (ActionHint "edit") the integrated download/edit/upload flow needs.
// Callers drive it via command.Handler.DownloadFile directly (spec.md
// §4.E), not Handler.Execute.
type fetchFile struct{ base }

// RegisterFetchFile installs the "edit_file" command.
func RegisterFetchFile(reg *registry.Registry) {
	meta := registry.Metadata{
		Spec:          moduleid.New("edit_file", "1"),
		ConnectorSpec: specPtr(sshconn.Spec),
		Display:       hoststate.DisplayOptions{Category: "actions", Text: "Edit remote file", ActionHint: "edit"},
	}
	m := &fetchFile{base{meta: meta}}
	reg.RegisterCommand(meta, func(registry.Settings) (registry.Command, error) { return m.Clone().(registry.Command), nil })
}

func (f *fetchFile) Clone() registry.Module { return &fetchFile{f.base} }

func (f *fetchFile) GetConnectorMessage(hoststate.Host, map[string]string) (string, error) {
	return "", registry.NotImplemented(f.meta.Spec.ID)
}

func (f *fetchFile) GetConnectorMessages(hoststate.Host, map[string]string) ([]string, error) {
	return nil, registry.NotImplemented(f.meta.Spec.ID)
}

func (f *fetchFile) ProcessResponse(hoststate.Host, *connector.ResponseMessage) (hoststate.CommandResult, error) {
	return hoststate.CommandResult{}, registry.NotImplemented(f.meta.Spec.ID)
}

func (f *fetchFile) ProcessResponses(hoststate.Host, []connector.ResponseMessage) (hoststate.CommandResult, error) {
	return hoststate.CommandResult{}, registry.NotImplemented(f.meta.Spec.ID)
}
