// Package filehandler implements the file-handler contract (spec.md §6):
// deterministic local staging for files moved by Download/Upload
// ConnectorRequests.
package filehandler

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Metadata is returned alongside a staged file's bytes, carrying enough
// context for the Upload flow to rebuild a ConnectorRequest (spec.md §6).
type Metadata struct {
	RemotePath string
	Temporary  bool
}

// Local implements the file-handler contract against a host-scoped
// directory tree under a configured root.
type Local struct {
	root string
	// meta tracks RemotePath/Temporary per local path; the contract has no
	// on-disk sidecar format specified, so an in-memory index keyed by
	// local path is sufficient for a single-process core.
	meta map[string]Metadata
}

// New creates a Local file handler rooted at dir (created if absent).
func New(dir string) (*Local, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("filehandler: create config dir: %w", err)
	}
	return &Local{root: dir, meta: make(map[string]Metadata)}, nil
}

// GetConfigDir returns the root directory files are staged under.
func (l *Local) GetConfigDir() string { return l.root }

// ConvertToLocalPaths derives the deterministic (dir, local path) pair for
// a given host and remote path (spec.md §6).
func (l *Local) ConvertToLocalPaths(host, remotePath string) (dir, localPath string) {
	dir = filepath.Join(l.root, sanitize(host))
	name := sanitize(strings.TrimPrefix(remotePath, "/"))
	localPath = filepath.Join(dir, name)
	return dir, localPath
}

func sanitize(s string) string {
	return strings.NewReplacer("/", "_", "..", "_").Replace(s)
}

// CreateFile stages downloaded bytes for host/remotePath and returns the
// local path they were written to.
func (l *Local) CreateFile(host, remotePath string, data []byte) (string, error) {
	dir, localPath := l.ConvertToLocalPaths(host, remotePath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("filehandler: mkdir: %w", err)
	}
	if err := os.WriteFile(localPath, data, 0o644); err != nil {
		return "", fmt.Errorf("filehandler: write: %w", err)
	}
	l.meta[localPath] = Metadata{RemotePath: remotePath}
	return localPath, nil
}

// ReadFile returns a staged file's bytes plus its remembered metadata.
func (l *Local) ReadFile(localPath string) (Metadata, []byte, error) {
	data, err := os.ReadFile(localPath)
	if err != nil {
		return Metadata{}, nil, fmt.Errorf("filehandler: read: %w", err)
	}
	return l.meta[localPath], data, nil
}

// UpdateFile overwrites a staged file's contents (e.g. after local editing).
func (l *Local) UpdateFile(localPath string, data []byte) error {
	if err := os.WriteFile(localPath, data, 0o644); err != nil {
		return fmt.Errorf("filehandler: update: %w", err)
	}
	return nil
}

// RemoveFile deletes a staged file and forgets its metadata.
func (l *Local) RemoveFile(localPath string) error {
	delete(l.meta, localPath)
	if err := os.Remove(localPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("filehandler: remove: %w", err)
	}
	return nil
}

// MarkTemporary flags a staged file as scratch, to be removed once an
// upload of it succeeds (used by CommandHandler's save/upload flow).
func (l *Local) MarkTemporary(localPath, remotePath string) {
	l.meta[localPath] = Metadata{RemotePath: remotePath, Temporary: true}
}
