package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoadHostsAndGroupsRejectsUnknownField(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "hosts.yaml", "hosts:\n  - name: web1\n    bogus_field: true\n")

	if _, err := LoadHostsAndGroups(dir); err == nil {
		t.Fatal("expected strict decode to reject unknown field")
	}
}

func TestLoadHostsAndGroupsResolvesGroup(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "groups.yaml", "groups:\n  web:\n    monitors:\n      - id: disk_usage\n        version: \"1\"\n")
	writeFile(t, dir, "hosts.yaml", "hosts:\n  - name: web1\n    group: web\n    ip_address: 10.0.0.1\n")

	resolved, err := LoadHostsAndGroups(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(resolved) != 1 || resolved[0].Name != "web1" {
		t.Fatalf("unexpected resolved hosts: %+v", resolved)
	}
	if len(resolved[0].Monitors) != 1 || resolved[0].Monitors[0].ID != "disk_usage" {
		t.Fatalf("expected inherited monitor, got %+v", resolved[0].Monitors)
	}
}

func TestLoadHostsAndGroupsUnknownGroupReference(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "hosts.yaml", "hosts:\n  - name: web1\n    group: missing\n")

	if _, err := LoadHostsAndGroups(dir); err == nil {
		t.Fatal("expected error for unresolved group reference")
	}
}

func TestLoadPreferencesDefaultsWhenNoFile(t *testing.T) {
	dir := t.TempDir()
	prefs, _, err := LoadPreferences(LoadOptions{ConfigDir: dir})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if prefs.LogLevel != "info" {
		t.Fatalf("expected default log level, got %q", prefs.LogLevel)
	}
	if prefs.ConfigDir != dir {
		t.Fatalf("expected config dir to be set to %q, got %q", dir, prefs.ConfigDir)
	}
}

func TestLoadPreferencesRejectsUnknownField(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "preferences.yaml", "log_level: debug\nbogus: true\n")

	if _, _, err := LoadPreferences(LoadOptions{ConfigDir: dir}); err == nil {
		t.Fatal("expected strict decode to reject unknown field in preferences")
	}
}
