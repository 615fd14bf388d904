// Package registry implements the module registry and factory (CORE-A):
// resolving (id, version) to a constructed module instance, carrying
// declarative metadata (connector dependency, platform gating, display
// options), modeled on the teacher's ops.Registry (internal/ops/registry.go)
// generalised from a single Op type to three module kinds.
package registry

import (
	"github.com/fleetcore/fleetcore/internal/connector"
	"github.com/fleetcore/fleetcore/internal/fleeterr"
	"github.com/fleetcore/fleetcore/internal/hoststate"
	"github.com/fleetcore/fleetcore/internal/moduleid"
)

// PlatformGate names one supported OS/flavor/min-version triple.
type PlatformGate struct {
	OS         string // empty matches any
	Flavor     string // empty matches any
	MinVersion string // empty means no minimum
}

// Metadata is the declarative data every module kind carries (spec.md §3).
type Metadata struct {
	Spec          moduleid.Spec
	ParentModule  *moduleid.Spec // set iff this module is an extension
	ConnectorSpec *moduleid.Spec // nil means "no connector dependency"
	Platforms     []PlatformGate // empty means "all platforms"
	Display       hoststate.DisplayOptions
	Destructive   bool // requires a verified TOTP code before CommandHandler dispatches it
}

// IsExtension reports whether this module post-processes a parent's result.
func (m Metadata) IsExtension() bool { return m.ParentModule != nil }

// SupportsPlatform reports whether p satisfies at least one gate, or true if
// no gates are declared (spec.md §4.A: gating is metadata, dispatcher
// enforces it).
func (m Metadata) SupportsPlatform(p hoststate.Platform) bool {
	if len(m.Platforms) == 0 {
		return true
	}
	if !p.IsSet() {
		return true // unknown platform: do not eagerly reject before first refresh
	}
	for _, g := range m.Platforms {
		if g.OS != "" && g.OS != p.OS {
			continue
		}
		if g.Flavor != "" && g.Flavor != p.OSFlavor {
			continue
		}
		if g.MinVersion != "" && moduleid.Less(p.OSVersion, g.MinVersion) {
			continue
		}
		return true
	}
	return false
}

// Module is the capability set shared by monitors and commands (spec.md §9
// "module polymorphism"): metadata access and the ability to hand callbacks
// a detached copy of themselves.
type Module interface {
	ModuleSpec() moduleid.Spec
	Metadata() Metadata
	Clone() Module
}

// Monitor produces DataPoints. parentResult is nil for a base monitor and
// carries the parent's point for an extension.
type Monitor interface {
	Module
	// GetConnectorMessage builds a single request message. The dispatcher
	// calls GetConnectorMessages first; a fleeterr.NotImplemented error with
	// an empty message from it signals "use GetConnectorMessage instead"
	// (spec.md §4.A).
	GetConnectorMessage(host hoststate.Host, parentResult *hoststate.DataPoint) (string, error)
	GetConnectorMessages(host hoststate.Host, parentResult *hoststate.DataPoint) ([]string, error)
	ProcessResponse(host hoststate.Host, resp *connector.ResponseMessage, parentResult *hoststate.DataPoint) (hoststate.DataPoint, error)
	ProcessResponses(host hoststate.Host, resps []connector.ResponseMessage, parentResult *hoststate.DataPoint) (hoststate.DataPoint, error)
}

// Command runs a remote action given UI-supplied parameters.
type Command interface {
	Module
	GetConnectorMessage(host hoststate.Host, params map[string]string) (string, error)
	GetConnectorMessages(host hoststate.Host, params map[string]string) ([]string, error)
	ProcessResponse(host hoststate.Host, resp *connector.ResponseMessage) (hoststate.CommandResult, error)
	ProcessResponses(host hoststate.Host, resps []connector.ResponseMessage) (hoststate.CommandResult, error)
}

// NotImplemented is the module-authoring helper for the "try the other
// form" sentinel (spec.md §4.A).
func NotImplemented(sourceID string) error {
	return fleeterr.New(fleeterr.NotImplemented, sourceID, "")
}
