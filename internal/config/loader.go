package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// LoadOptions controls preferences loading (spec.md §6 "one flag to
// override the config directory"), modeled on champloo-crook's
// pkg/config.LoadOptions.
type LoadOptions struct {
	ConfigDir string
	Flags     *pflag.FlagSet
}

// LoadResult is the outcome of loading all three configuration documents.
type LoadResult struct {
	Preferences    Preferences
	Hosts          []ResolvedHost
	ConfigFileUsed string
}

// LoadPreferences loads the main preferences document (YAML, optional) with
// env ("FLEETCORE_...") and --config-dir/--log-level/etc flag overlay, the
// way champloo-crook's LoadConfig layers viper defaults/file/env/flags.
func LoadPreferences(opts LoadOptions) (Preferences, string, error) {
	v := viper.New()
	defaults := DefaultPreferences()
	v.SetDefault("config-dir", defaults.ConfigDir)
	v.SetDefault("log-level", defaults.LogLevel)
	v.SetDefault("http-addr", defaults.HTTPAddr)
	v.SetDefault("audit-db-path", defaults.AuditDBPath)
	v.SetDefault("totp-secret", defaults.TOTPSecret)

	replacer := strings.NewReplacer("-", "_")
	v.SetEnvKeyReplacer(replacer)
	v.SetEnvPrefix("FLEETCORE")
	v.AutomaticEnv()

	if opts.Flags != nil {
		if err := BindFlags(v, opts.Flags); err != nil {
			return Preferences{}, "", fmt.Errorf("config: bind flags: %w", err)
		}
	}

	dir := opts.ConfigDir
	if dir == "" {
		dir = v.GetString("config-dir")
	}
	prefPath := filepath.Join(dir, "preferences.yaml")
	if _, err := os.Stat(prefPath); err == nil {
		var strict Preferences
		if err := decodeStrictYAMLInto(prefPath, &strict); err != nil {
			return Preferences{}, "", fmt.Errorf("config: parse preferences: %w", err)
		}
		v.SetConfigFile(prefPath)
		if err := v.ReadInConfig(); err != nil {
			return Preferences{}, "", fmt.Errorf("config: read preferences: %w", err)
		}
		for key, val := range map[string]string{
			"config-dir":    strict.ConfigDir,
			"log-level":     strict.LogLevel,
			"http-addr":     strict.HTTPAddr,
			"audit-db-path": strict.AuditDBPath,
			"totp-secret":   strict.TOTPSecret,
		} {
			if val != "" {
				v.SetDefault(key, val) // file values sit below env and flags
			}
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return Preferences{}, "", fmt.Errorf("config: stat preferences: %w", err)
	}

	var cfg Preferences
	if err := v.Unmarshal(&cfg); err != nil {
		return Preferences{}, "", fmt.Errorf("config: unmarshal preferences: %w", err)
	}
	if cfg.ConfigDir == "" {
		cfg.ConfigDir = dir
	}
	return cfg, v.ConfigFileUsed(), nil
}

// BindFlags binds the CLI flag set's supported flags to viper keys.
func BindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	bindings := map[string]string{
		"config-dir":    "config-dir",
		"log-level":     "log-level",
		"http-addr":     "http-addr",
		"audit-db-path": "audit-db-path",
	}
	for flag, key := range bindings {
		if flags.Lookup(flag) == nil {
			continue
		}
		if err := v.BindPFlag(key, flags.Lookup(flag)); err != nil {
			return fmt.Errorf("bind flag %q: %w", flag, err)
		}
	}
	return nil
}

// LoadHostsAndGroups loads hosts.yaml and groups.yaml from dir with strict
// unknown-field rejection (spec.md §6) and returns the resolved, merged
// host list. Unlike preferences.yaml, these two documents go through
// yaml.v3's Decoder.KnownFields(true) directly — viper's Unmarshal has no
// equivalent strict mode.
func LoadHostsAndGroups(dir string) ([]ResolvedHost, error) {
	var groups GroupsDocument
	groupsPath := filepath.Join(dir, "groups.yaml")
	if _, err := os.Stat(groupsPath); err == nil {
		if err := decodeStrictYAMLInto(groupsPath, &groups); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", groupsPath, err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("config: stat %s: %w", groupsPath, err)
	}

	var hosts HostsDocument
	hostsPath := filepath.Join(dir, "hosts.yaml")
	if err := decodeStrictYAMLInto(hostsPath, &hosts); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", hostsPath, err)
	}

	return Resolve(hosts, groups)
}

// Load loads all three documents (spec.md §6).
func Load(opts LoadOptions) (LoadResult, error) {
	prefs, used, err := LoadPreferences(opts)
	if err != nil {
		return LoadResult{}, err
	}
	hosts, err := LoadHostsAndGroups(prefs.ConfigDir)
	if err != nil {
		return LoadResult{}, err
	}
	return LoadResult{Preferences: prefs, Hosts: hosts, ConfigFileUsed: used}, nil
}

// decodeStrictYAMLInto parses path into out, rejecting any field in the
// document that out's yaml tags do not declare (spec.md §6 "strict
// unknown-field rejection").
func decodeStrictYAMLInto(path string, out interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("strict decode: %w", err)
	}
	return nil
}
