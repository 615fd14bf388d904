// Package config implements the three-document configuration surface
// spec.md §6 names "for completeness, not implemented" by the core: main
// preferences, hosts, groups — loaded with gopkg.in/yaml.v3 (strict
// unknown-field rejection) and overlaid with github.com/spf13/viper for
// environment/flag precedence, modeled on champloo-crook's pkg/config
// (DefaultConfig/LoadConfig/BindFlags) and randybias-nightcrier's env-driven
// internal/config.Load.
package config

// ModuleRef names one monitor/command/connector attachment plus its
// per-module settings bag (spec.md §6, §4.A `new_monitor(spec, settings)`).
type ModuleRef struct {
	ID       string            `yaml:"id" mapstructure:"id"`
	Version  string            `yaml:"version" mapstructure:"version"`
	Settings map[string]string `yaml:"settings" mapstructure:"settings"`
}

// GroupConfig is one named bundle of default monitors/commands/settings a
// host can inherit from.
type GroupConfig struct {
	Connector *ModuleRef      `yaml:"connector" mapstructure:"connector"`
	Monitors  []ModuleRef     `yaml:"monitors" mapstructure:"monitors"`
	Commands  []ModuleRef     `yaml:"commands" mapstructure:"commands"`
	Settings  map[string]bool `yaml:"settings" mapstructure:"settings"`
}

// GroupsDocument is the top-level shape of groups.yaml.
type GroupsDocument struct {
	Groups map[string]GroupConfig `yaml:"groups" mapstructure:"groups"`
}

// HostConfig is one entry of hosts.yaml. An empty Monitors/Commands list
// means "inherit the group's list entirely" (spec.md §6: "list-valued
// host-settings replace rather than merge" — a non-empty host list replaces
// the group's, it is never appended to it).
type HostConfig struct {
	Name      string          `yaml:"name" mapstructure:"name"`
	FQDN      string          `yaml:"fqdn" mapstructure:"fqdn"`
	IPAddress string          `yaml:"ip_address" mapstructure:"ip_address"`
	Group     string          `yaml:"group" mapstructure:"group"`
	Connector *ModuleRef      `yaml:"connector" mapstructure:"connector"`
	Monitors  []ModuleRef     `yaml:"monitors" mapstructure:"monitors"`
	Commands  []ModuleRef     `yaml:"commands" mapstructure:"commands"`
	Settings  map[string]bool `yaml:"settings" mapstructure:"settings"`
}

// HostsDocument is the top-level shape of hosts.yaml.
type HostsDocument struct {
	Hosts []HostConfig `yaml:"hosts" mapstructure:"hosts"`
}

// Preferences is the main preferences document plus CLI/env overlay
// (spec.md §6 "one flag to override the config directory").
type Preferences struct {
	ConfigDir   string `yaml:"config_dir" mapstructure:"config-dir"`
	LogLevel    string `yaml:"log_level" mapstructure:"log-level"`
	HTTPAddr    string `yaml:"http_addr" mapstructure:"http-addr"`
	AuditDBPath string `yaml:"audit_db_path" mapstructure:"audit-db-path"`
	TOTPSecret  string `yaml:"totp_secret" mapstructure:"totp-secret"`
}

// DefaultPreferences returns the preferences in effect before any file/env/
// flag overlay is applied.
func DefaultPreferences() Preferences {
	return Preferences{
		ConfigDir:   "/etc/fleetcore",
		LogLevel:    "info",
		HTTPAddr:    ":8080",
		AuditDBPath: "/var/lib/fleetcore/audit.db",
	}
}

// ResolvedHost is a HostConfig after group inheritance and settings merge.
type ResolvedHost struct {
	Name      string
	FQDN      string
	IPAddress string
	Connector *ModuleRef
	Monitors  []ModuleRef
	Commands  []ModuleRef
	Settings  map[string]bool
}
