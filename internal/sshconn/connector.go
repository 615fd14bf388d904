// Package sshconn implements the SSH Connector (spec.md §6), the primary
// wire-protocol session type a host's monitors and commands depend on.
// Grounded on golang.org/x/crypto/ssh, the same crypto module the teacher
// imports (previously only exercised for its bcrypt-adjacent auth helpers).
package sshconn

import (
	"bytes"
	"fmt"
	"net"
	"os"
	"sync"
	"time"

	"github.com/fleetcore/fleetcore/internal/connector"
	"github.com/fleetcore/fleetcore/internal/fleeterr"
	"github.com/fleetcore/fleetcore/internal/moduleid"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

// Spec is the well-known module spec every host's ssh connector dependency
// resolves to.
var Spec = moduleid.New("ssh", "1")

// Settings configure one host's SSH connector.
type Settings struct {
	Port           int
	User           string
	KeyPath        string
	KnownHostsPath string
	UseSudo        bool
	DialTimeout    time.Duration
}

// Connector is a reusable SSH session to one host. Not reentrant: callers
// must serialise access (the pool's table lock does this, spec.md §6).
type Connector struct {
	mu       sync.Mutex
	settings Settings
	client   *ssh.Client
}

// New constructs an SSH connector from per-host settings.
func New(settings Settings) (*Connector, error) {
	if settings.Port == 0 {
		settings.Port = 22
	}
	if settings.DialTimeout == 0 {
		settings.DialTimeout = 10 * time.Second
	}
	return &Connector{settings: settings}, nil
}

func (c *Connector) ModuleSpec() moduleid.Spec { return Spec }

// Connect dials address (a host IP or FQDN), verifying the server key
// against the configured known_hosts file. A verification failure surfaces
// as fleeterr.HostKeyNotVerified carrying the offending key's fingerprint.
func (c *Connector) Connect(address string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	signer, err := loadSigner(c.settings.KeyPath)
	if err != nil {
		return fleeterr.Wrap(fleeterr.ConnectionFailed, "ssh", err)
	}

	hostKeyCallback, err := hostKeyCallback(c.settings.KnownHostsPath)
	if err != nil {
		return fleeterr.Wrap(fleeterr.ConnectionFailed, "ssh", err)
	}

	var presentedKey string
	cfg := &ssh.ClientConfig{
		User: c.settings.User,
		Auth: []ssh.AuthMethod{ssh.PublicKeys(signer)},
		HostKeyCallback: func(hostname string, remote net.Addr, key ssh.PublicKey) error {
			presentedKey = ssh.FingerprintSHA256(key)
			return hostKeyCallback(hostname, remote, key)
		},
		Timeout: c.settings.DialTimeout,
	}

	addr := net.JoinHostPort(address, fmt.Sprintf("%d", c.settings.Port))
	client, err := ssh.Dial("tcp", addr, cfg)
	if err != nil {
		var keyErr *knownhosts.KeyError
		if asKeyError(err, &keyErr) {
			fe := fleeterr.New(fleeterr.HostKeyNotVerified, "ssh", err.Error())
			fe.KeyID = presentedKey
			return fe
		}
		return fleeterr.Wrap(fleeterr.ConnectionFailed, "ssh", err)
	}
	c.client = client
	return nil
}

func (c *Connector) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.client != nil
}

// SendMessage runs msg as a remote command in a fresh session (SSH sessions
// are single-use per exec), optionally prefixed with sudo.
func (c *Connector) SendMessage(msg string) (connector.ResponseMessage, error) {
	c.mu.Lock()
	client := c.client
	useSudo := c.settings.UseSudo
	c.mu.Unlock()
	if client == nil {
		return connector.ResponseMessage{}, fleeterr.New(fleeterr.ConnectionFailed, "ssh", "not connected")
	}

	session, err := client.NewSession()
	if err != nil {
		c.markDisconnected()
		return connector.ResponseMessage{}, fleeterr.Wrap(fleeterr.ConnectionFailed, "ssh", err)
	}
	defer session.Close()

	cmd := msg
	if useSudo {
		cmd = "sudo -n " + cmd
	}

	var stdout, stderr bytes.Buffer
	session.Stdout = &stdout
	session.Stderr = &stderr

	returnCode := 0
	if err := session.Run(cmd); err != nil {
		if exitErr, ok := err.(*ssh.ExitError); ok {
			returnCode = exitErr.ExitStatus()
		} else {
			return connector.ResponseMessage{}, fleeterr.Wrap(fleeterr.Other, "ssh", err)
		}
	}

	out := stdout.String()
	if returnCode != 0 && stderr.Len() > 0 {
		out = stderr.String()
	}
	return connector.ResponseMessage{
		Message:    out,
		ReturnCode: returnCode,
		IsError:    returnCode != 0,
	}, nil
}

// DownloadFile reads a remote file via `cat`. A real deployment would use
// SFTP; a plain exec keeps this connector's dependency surface to the one
// already wired (golang.org/x/crypto/ssh) rather than adding an SFTP
// client for a demo-scale connector.
func (c *Connector) DownloadFile(remote string) ([]byte, error) {
	c.mu.Lock()
	client := c.client
	c.mu.Unlock()
	if client == nil {
		return nil, fleeterr.New(fleeterr.ConnectionFailed, "ssh", "not connected")
	}
	session, err := client.NewSession()
	if err != nil {
		c.markDisconnected()
		return nil, fleeterr.Wrap(fleeterr.ConnectionFailed, "ssh", err)
	}
	defer session.Close()

	var stdout bytes.Buffer
	session.Stdout = &stdout
	if err := session.Run("cat " + shellQuote(remote)); err != nil {
		return nil, fleeterr.Wrap(fleeterr.Other, "ssh", err)
	}
	return stdout.Bytes(), nil
}

// UploadFile writes data to a remote path by piping it through `cat > path`
// on stdin.
func (c *Connector) UploadFile(remote string, data []byte) error {
	c.mu.Lock()
	client := c.client
	c.mu.Unlock()
	if client == nil {
		return fleeterr.New(fleeterr.ConnectionFailed, "ssh", "not connected")
	}
	session, err := client.NewSession()
	if err != nil {
		c.markDisconnected()
		return fleeterr.Wrap(fleeterr.ConnectionFailed, "ssh", err)
	}
	defer session.Close()

	stdin, err := session.StdinPipe()
	if err != nil {
		return fleeterr.Wrap(fleeterr.Other, "ssh", err)
	}
	if err := session.Start("cat > " + shellQuote(remote)); err != nil {
		return fleeterr.Wrap(fleeterr.Other, "ssh", err)
	}
	if _, err := stdin.Write(data); err != nil {
		return fleeterr.Wrap(fleeterr.Other, "ssh", err)
	}
	if err := stdin.Close(); err != nil {
		return fleeterr.Wrap(fleeterr.Other, "ssh", err)
	}
	if err := session.Wait(); err != nil {
		return fleeterr.Wrap(fleeterr.Other, "ssh", err)
	}
	return nil
}

func (c *Connector) markDisconnected() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.client != nil {
		_ = c.client.Close()
		c.client = nil
	}
}

func shellQuote(s string) string {
	return "'" + replaceAll(s, "'", `'\''`) + "'"
}

func replaceAll(s, old, new string) string {
	out := ""
	for i := 0; i < len(s); {
		if len(old) > 0 && i+len(old) <= len(s) && s[i:i+len(old)] == old {
			out += new
			i += len(old)
			continue
		}
		out += string(s[i])
		i++
	}
	return out
}

func loadSigner(keyPath string) (ssh.Signer, error) {
	key, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, fmt.Errorf("read private key: %w", err)
	}
	signer, err := ssh.ParsePrivateKey(key)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	return signer, nil
}

func hostKeyCallback(knownHostsPath string) (ssh.HostKeyCallback, error) {
	if knownHostsPath == "" {
		return ssh.InsecureIgnoreHostKey(), nil
	}
	cb, err := knownhosts.New(knownHostsPath)
	if err != nil {
		return nil, fmt.Errorf("load known_hosts: %w", err)
	}
	return cb, nil
}

func asKeyError(err error, target **knownhosts.KeyError) bool {
	for err != nil {
		if ke, ok := err.(*knownhosts.KeyError); ok {
			*target = ke
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
