package command

import (
	"fmt"
	"time"

	"github.com/fleetcore/fleetcore/internal/connector"
	"github.com/fleetcore/fleetcore/internal/hoststate"
)

// DownloadFile performs the integrated download flow: issue the request,
// record the staged local path, and — when actionHint is ActionEdit —
// launch the configured editor on the result.
func (h *Handler) DownloadFile(host hoststate.Host, commandID string, remotePath string, actionHint string) uint64 {
	hc, ok := h.lookup(host.Name, commandID)
	if !ok {
		h.log.Error().Str("host", host.Name).Str("command", commandID).Msg("unknown command for host")
		return 0
	}
	invocationID := h.nextInvocationID()
	req := connector.Request{
		ConnectorSpec: hc.meta.ConnectorSpec,
		SourceID:      commandID,
		Host:          host,
		Messages:      []string{remotePath},
		Type:          connector.Download,
		CachePolicy:   connector.BypassCache,
		CorrelationID: connector.NewCorrelationID(),
	}
	req.ResponseHandler = func(results []connector.Result) {
		if len(results) == 0 || results[0].IsErr() {
			msg := "download failed"
			if len(results) > 0 {
				msg = results[0].Err
			}
			h.publishFailure(host, commandID, invocationID, fmt.Errorf("%s", msg))
			return
		}
		localPath := results[0].Response.Message
		h.publish(host, commandID, hoststate.CommandResult{
			Message:      localPath,
			Criticality:  hoststate.Normal,
			Time:         time.Now(),
			InvocationID: invocationID,
			CommandID:    commandID,
			Hidden:       true,
		})
		if actionHint == ActionEdit && h.editor != nil {
			if err := h.editor.Launch(localPath); err != nil {
				h.log.Warn().Err(err).Str("path", localPath).Msg("editor launch failed")
				return
			}
			h.UploadSavedFile(host, commandID, localPath, remotePath, true)
		}
	}
	h.requests <- req
	return invocationID
}

// UploadSavedFile performs the "save" half of the integrated upload flow:
// read the local file and stage an Upload ConnectorRequest for it
// (spec.md §4.E). temporary marks the local copy as scratch, removed by
// ConnectionManager after a successful upload.
func (h *Handler) UploadSavedFile(host hoststate.Host, commandID string, localPath, remotePath string, temporary bool) uint64 {
	hc, ok := h.lookup(host.Name, commandID)
	if !ok {
		h.log.Error().Str("host", host.Name).Str("command", commandID).Msg("unknown command for host")
		return 0
	}
	invocationID := h.nextInvocationID()
	if h.files != nil && temporary {
		h.files.MarkTemporary(localPath, remotePath)
	}
	req := connector.Request{
		ConnectorSpec: hc.meta.ConnectorSpec,
		SourceID:      commandID,
		Host:          host,
		Type:          connector.Upload,
		UploadMeta: []connector.UploadMeta{{
			RemotePath: remotePath,
			LocalPath:  localPath,
			Temporary:  temporary,
		}},
		CachePolicy:   connector.BypassCache,
		CorrelationID: connector.NewCorrelationID(),
	}
	req.ResponseHandler = func(results []connector.Result) {
		crit := hoststate.Normal
		msg := "upload succeeded"
		if len(results) == 0 || results[0].IsErr() {
			crit = hoststate.Error
			msg = "upload failed"
			if len(results) > 0 {
				msg = results[0].Err
			}
		}
		h.publish(host, commandID, hoststate.CommandResult{
			Message:      msg,
			Criticality:  crit,
			Time:         time.Now(),
			InvocationID: invocationID,
			CommandID:    commandID,
		})
	}
	h.requests <- req
	return invocationID
}

// OpenRemoteTerminal composes the local shell argv for an interactive
// remote session and hands it to the configured TerminalLauncher (spec.md
// §4.E). remoteArgv is produced by the owning module; port/user come from
// the host's ssh connector settings.
func (h *Handler) OpenRemoteTerminal(host hoststate.Host, remoteArgv []string) error {
	if h.term == nil {
		return fmt.Errorf("command: no terminal launcher configured")
	}
	var ssh SSHSettings
	if h.sshInfo != nil {
		ssh = h.sshInfo(host.Name)
	}
	argv := formatRemoteShellArgv(host, ssh, remoteArgv)
	return h.term.Launch(argv)
}
