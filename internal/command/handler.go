// Package command implements the CommandHandler dispatcher (CORE-E): turns
// "run this command with these parameters" into a ConnectorRequest, routes
// the response through the owning module, and layers the integrated
// download/upload/edit/terminal flows spec.md §4.E describes, modeled on
// the teacher's ops.Executor (internal/ops/executor.go).
package command

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/fleetcore/fleetcore/internal/connector"
	"github.com/fleetcore/fleetcore/internal/fleeterr"
	"github.com/fleetcore/fleetcore/internal/hoststate"
	"github.com/fleetcore/fleetcore/internal/moduleid"
	"github.com/fleetcore/fleetcore/internal/registry"
	"github.com/rs/zerolog"
)

// UIActionHint values classify what a command's result is used for; the same
// strings appear in module display metadata (spec.md §3), and DownloadFile
// takes one from its caller.
const (
	ActionNone       = ""
	ActionEdit       = "edit"
	ActionTerminal   = "terminal"
)

// Editor launches a local text editor against a staged file. Concrete
// subprocess launching is an external collaborator (spec.md §1); this
// package only composes the call.
type Editor interface {
	Launch(localPath string) error
}

// TerminalLauncher runs (or merely returns, if non-interactive) a composed
// local shell argv opening a remote terminal (spec.md §4.E).
type TerminalLauncher interface {
	Launch(argv []string) error
}

// AuditSink records every executed command for the audit trail (spec.md
// §6 domain stack; internal/audit.Store implements this).
type AuditSink interface {
	RecordCommand(host, commandID, correlationID string, invocationID uint64, params map[string]string, criticality hoststate.Criticality, message string) error
}

// TOTPVerifier gates destructive commands (registry.Metadata.Destructive)
// behind a caller-supplied one-time code (spec.md domain stack;
// internal/totp.SecretVerifier implements this).
type TOTPVerifier interface {
	Verify(code string) bool
}

// totpParamKey is the well-known params key Execute reads the caller's code
// from; it is stripped before the message is built so it never reaches the
// connector.
const totpParamKey = "totp_code"

// FileHandler is the subset of the file-handler contract CommandHandler
// needs directly (beyond what ConnectionManager stages for it).
type FileHandler interface {
	ConvertToLocalPaths(host, remotePath string) (dir, localPath string)
	ReadFile(localPath string) (remotePath string, temporary bool, data []byte, err error)
	UpdateFile(localPath string, data []byte) error
	MarkTemporary(localPath, remotePath string)
}

// SSHSettings is what the terminal flow reads off a host's ssh connector
// settings (spec.md §4.E "port and username come from the ssh connector's
// settings on that host").
type SSHSettings struct {
	Port int
	User string
}

type hostCommand struct {
	instance registry.Command
	meta     registry.Metadata
}

// Handler dispatches command executions for every registered host.
type Handler struct {
	log zerolog.Logger

	reg *registry.Registry

	requests chan<- connector.Request
	updates  chan<- hoststate.StateUpdateMessage

	files   FileHandler
	editor  Editor
	term    TerminalLauncher
	sshInfo func(host string) SSHSettings
	audit   AuditSink
	totp    TOTPVerifier

	commands map[string]map[string]*hostCommand // host -> command id -> entry

	invocationID atomic.Uint64
}

// Option configures optional integrations on a Handler.
type Option func(*Handler)

func WithEditor(e Editor) Option                            { return func(h *Handler) { h.editor = e } }
func WithTerminalLauncher(t TerminalLauncher) Option        { return func(h *Handler) { h.term = t } }
func WithSSHSettingsLookup(f func(host string) SSHSettings) Option { return func(h *Handler) { h.sshInfo = f } }
func WithAuditSink(a AuditSink) Option                             { return func(h *Handler) { h.audit = a } }
func WithTOTPVerifier(v TOTPVerifier) Option                       { return func(h *Handler) { h.totp = v } }

// NewHandler wires a CommandHandler onto an already-running
// ConnectionManager's request channel and HostManager's update channel.
func NewHandler(log zerolog.Logger, reg *registry.Registry, requests chan<- connector.Request, updates chan<- hoststate.StateUpdateMessage, files FileHandler, opts ...Option) *Handler {
	h := &Handler{
		log:      log.With().Str("component", "command_handler").Logger(),
		reg:      reg,
		requests: requests,
		updates:  updates,
		files:    files,
		commands: make(map[string]map[string]*hostCommand),
	}
	for _, o := range opts {
		o(h)
	}
	return h
}

// AddCommand attaches a command to a host (insert-only-if-absent, spec.md
// §3 invariant 2).
func (h *Handler) AddCommand(host hoststate.Host, spec moduleid.Spec, settings registry.Settings) error {
	byHost, ok := h.commands[host.Name]
	if !ok {
		byHost = make(map[string]*hostCommand)
		h.commands[host.Name] = byHost
	}
	if _, exists := byHost[spec.ID]; exists {
		return nil
	}
	inst, err := h.reg.NewCommand(spec, settings)
	if err != nil {
		return err
	}
	meta, _ := h.reg.ResolveCommandMeta(spec)
	byHost[spec.ID] = &hostCommand{instance: inst, meta: meta}
	return nil
}

func (h *Handler) lookup(hostName, commandID string) (*hostCommand, bool) {
	byHost, ok := h.commands[hostName]
	if !ok {
		return nil, false
	}
	c, ok := byHost[commandID]
	return c, ok
}

func (h *Handler) nextInvocationID() uint64 { return h.invocationID.Add(1) }

// Execute runs a command on a host (spec.md §4.E). Returns the invocation
// id, or 0 if dispatch failed before any connector I/O was attempted.
func (h *Handler) Execute(host hoststate.Host, commandID string, params map[string]string) uint64 {
	hc, ok := h.lookup(host.Name, commandID)
	if !ok {
		h.log.Error().Str("host", host.Name).Str("command", commandID).Msg("unknown command for host")
		return 0
	}
	if !host.Platform.IsSet() {
		h.log.Warn().Str("host", host.Name).Str("command", commandID).Msg("executing command against host with unset platform")
	}

	if hc.meta.Destructive {
		code := params[totpParamKey]
		if h.totp == nil || !h.totp.Verify(code) {
			h.publishFailure(host, commandID, 0, fmt.Errorf("command %q requires a valid TOTP code", commandID))
			return 0
		}
	}
	params = stripParam(params, totpParamKey)

	messages, err := h.buildMessages(host, hc, params)
	if err != nil {
		h.publishFailure(host, commandID, 0, err)
		return 0
	}

	invocationID := h.nextInvocationID()
	clone := hc.instance.Clone().(registry.Command)
	meta := hc.meta

	corrID := connector.NewCorrelationID()
	req := connector.Request{
		ConnectorSpec: meta.ConnectorSpec,
		SourceID:      commandID,
		Host:          host,
		Messages:      messages,
		Type:          connector.Command,
		CachePolicy:   connector.BypassCache,
		CorrelationID: corrID,
	}
	h.log.Debug().Str("host", host.Name).Str("command", commandID).Str("correlation_id", corrID.String()).Msg("dispatching command execution")
	req.ResponseHandler = func(results []connector.Result) {
		res := h.processResponses(host, clone, meta, results)
		res.InvocationID = invocationID
		res.CommandID = commandID
		h.recordAudit(host, commandID, corrID.String(), invocationID, params, res.Criticality, res.Message)
		h.publish(host, commandID, res)
	}
	h.requests <- req
	return invocationID
}

func stripParam(params map[string]string, key string) map[string]string {
	if _, ok := params[key]; !ok {
		return params
	}
	out := make(map[string]string, len(params)-1)
	for k, v := range params {
		if k != key {
			out[k] = v
		}
	}
	return out
}

// buildMessages concatenates the multi and single message-builder forms,
// dropping empties, per spec.md §4.E step 1.
func (h *Handler) buildMessages(host hoststate.Host, hc *hostCommand, params map[string]string) ([]string, error) {
	var out []string
	multi, err := hc.instance.GetConnectorMessages(host, params)
	if err != nil && !fleeterr.NotImplementedSentinel(err) {
		return nil, err
	}
	for _, msg := range multi {
		if msg != "" {
			out = append(out, msg)
		}
	}
	single, err := hc.instance.GetConnectorMessage(host, params)
	if err != nil && !fleeterr.NotImplementedSentinel(err) {
		return nil, err
	}
	if single != "" {
		out = append(out, single)
	}
	return out, nil
}

func (h *Handler) processResponses(host hoststate.Host, mod registry.Command, meta registry.Metadata, results []connector.Result) hoststate.CommandResult {
	if len(results) == 0 {
		res, err := mod.ProcessResponse(host, nil)
		if err != nil {
			return errorResult(meta, err)
		}
		return res
	}

	resps := make([]connector.ResponseMessage, 0, len(results))
	for _, r := range results {
		if r.IsErr() {
			resps = append(resps, connector.ResponseMessage{Message: r.Err, IsError: true})
			continue
		}
		resps = append(resps, r.Response)
	}

	if len(resps) == 1 {
		res, err := mod.ProcessResponse(host, &resps[0])
		if err != nil {
			return errorResult(meta, err)
		}
		return res
	}

	res, err := mod.ProcessResponses(host, resps)
	if err != nil {
		if fleeterr.NotImplementedSentinel(err) {
			res, err = mod.ProcessResponse(host, &resps[0])
			if err != nil {
				return errorResult(meta, err)
			}
			return res
		}
		return errorResult(meta, err)
	}
	return res
}

func errorResult(meta registry.Metadata, err error) hoststate.CommandResult {
	return hoststate.CommandResult{
		Message:     err.Error(),
		Criticality: hoststate.Error,
		Time:        time.Now(),
	}
}

// recordAudit is best-effort: a broken audit sink never blocks command
// dispatch, it is only logged.
func (h *Handler) recordAudit(host hoststate.Host, commandID, correlationID string, invocationID uint64, params map[string]string, crit hoststate.Criticality, message string) {
	if h.audit == nil {
		return
	}
	if err := h.audit.RecordCommand(host.Name, commandID, correlationID, invocationID, params, crit, message); err != nil {
		h.log.Warn().Err(err).Str("host", host.Name).Str("command", commandID).Msg("audit record failed")
	}
}

func (h *Handler) publishFailure(host hoststate.Host, commandID string, invocationID uint64, err error) {
	res := hoststate.CommandResult{
		Message:      err.Error(),
		Criticality:  hoststate.Error,
		Time:         time.Now(),
		InvocationID: invocationID,
		CommandID:    commandID,
	}
	h.publish(host, commandID, res)
}

func (h *Handler) publish(host hoststate.Host, commandID string, res hoststate.CommandResult) {
	if res.Time.IsZero() {
		res.Time = time.Now()
	}
	h.updates <- hoststate.StateUpdateMessage{
		Kind:          hoststate.UpdateCommandResult,
		HostName:      host.Name,
		ModuleSpecID:  commandID,
		CommandResult: res,
	}
}

// formatRemoteShellArgv composes the local shell argv for the "open remote
// terminal" flow (spec.md §4.E): ssh -t -p <port> [-l <user>] <host>
// <remote argv>.
func formatRemoteShellArgv(host hoststate.Host, ssh SSHSettings, remoteArgv []string) []string {
	target := host.FQDN
	if target == "" {
		target = host.IPAddress
	}
	argv := []string{"ssh", "-t"}
	if ssh.Port != 0 {
		argv = append(argv, "-p", fmt.Sprintf("%d", ssh.Port))
	}
	if ssh.User != "" {
		argv = append(argv, "-l", ssh.User)
	}
	argv = append(argv, target)
	return append(argv, remoteArgv...)
}
