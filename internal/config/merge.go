package config

import "fmt"

// Resolve applies group inheritance to every host in doc (spec.md §6):
// groups referenced from hosts must exist; per-host module/connector
// settings are shallow-merged over the group defaults; a non-empty
// host-level module list replaces the group's list rather than appending
// to it; settings maps merge key-wise with host keys winning.
func Resolve(doc HostsDocument, groups GroupsDocument) ([]ResolvedHost, error) {
	out := make([]ResolvedHost, 0, len(doc.Hosts))
	for _, h := range doc.Hosts {
		var group GroupConfig
		if h.Group != "" {
			g, ok := groups.Groups[h.Group]
			if !ok {
				return nil, fmt.Errorf("config: host %q references unknown group %q", h.Name, h.Group)
			}
			group = g
		}
		out = append(out, ResolvedHost{
			Name:      h.Name,
			FQDN:      h.FQDN,
			IPAddress: h.IPAddress,
			Connector: mergeConnectorRef(group.Connector, h.Connector),
			Monitors:  mergeModuleRefs(group.Monitors, h.Monitors),
			Commands:  mergeModuleRefs(group.Commands, h.Commands),
			Settings:  mergeBoolSettings(group.Settings, h.Settings),
		})
	}
	return out, nil
}

// mergeModuleRefs implements "list-valued host-settings replace rather than
// merge": a non-empty host list is used as-is (element-wise settings-merged
// against the group entry of the same id, if present); an empty host list
// inherits the group's list untouched. Per spec.md, the resolved version for
// an id present in both comes from the group.
func mergeModuleRefs(group, host []ModuleRef) []ModuleRef {
	if len(host) == 0 {
		return append([]ModuleRef(nil), group...)
	}
	byID := make(map[string]ModuleRef, len(group))
	for _, g := range group {
		byID[g.ID] = g
	}
	out := make([]ModuleRef, 0, len(host))
	for _, hRef := range host {
		g, ok := byID[hRef.ID]
		if !ok {
			out = append(out, hRef)
			continue
		}
		out = append(out, ModuleRef{
			ID:       g.ID,
			Version:  g.Version, // versions from the group win
			Settings: mergeStringSettings(g.Settings, hRef.Settings),
		})
	}
	return out
}

// mergeConnectorRef resolves the single connector attachment: a host
// connector with a different id than the group's (or with no group
// connector) replaces it entirely; when both name the same id, the group's
// version wins and settings merge key-wise with host keys winning; an
// absent host connector inherits the group's.
func mergeConnectorRef(group, host *ModuleRef) *ModuleRef {
	if host == nil {
		return group
	}
	if group == nil || group.ID != host.ID {
		return host
	}
	return &ModuleRef{
		ID:       group.ID,
		Version:  group.Version,
		Settings: mergeStringSettings(group.Settings, host.Settings),
	}
}

func mergeStringSettings(group, host map[string]string) map[string]string {
	out := make(map[string]string, len(group)+len(host))
	for k, v := range group {
		out[k] = v
	}
	for k, v := range host {
		out[k] = v
	}
	return out
}

func mergeBoolSettings(group, host map[string]bool) map[string]bool {
	out := make(map[string]bool, len(group)+len(host))
	for k, v := range group {
		out[k] = v
	}
	for k, v := range host {
		out[k] = v
	}
	return out
}
