// Package builtin implements a handful of concrete monitor/command modules
// that exercise the registry end to end, modeled on the teacher's DefaultRegistry
// factory-function style (internal/ops/registry.go) generalised from *Op
// values to registry.Metadata + constructor pairs.
package builtin

import (
	"github.com/fleetcore/fleetcore/internal/moduleid"
	"github.com/fleetcore/fleetcore/internal/registry"
)

// base implements the Module portion (ModuleSpec/Metadata/Clone) shared by
// every monitor and command in this package. Concrete types embed it.
type base struct {
	meta registry.Metadata
}

func (b base) ModuleSpec() moduleid.Spec    { return b.meta.Spec }
func (b base) Metadata() registry.Metadata  { return b.meta }

// RegisterAll installs every builtin module into reg. Called once at
// startup, after connectors are registered (spec.md §9 load order).
func RegisterAll(reg *registry.Registry) {
	RegisterPlatformInfo(reg)
	RegisterDiskUsage(reg)
	RegisterDiskUsageDetail(reg)
	RegisterLVMPhysicalVolume(reg)
	RegisterShellCommand(reg)
	RegisterServiceRestart(reg)
	RegisterServiceMask(reg)
	RegisterFetchFile(reg)
}
