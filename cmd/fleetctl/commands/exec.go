package commands

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/spf13/cobra"
)

type executeCommandRequest struct {
	Host    string            `json:"host"`
	Command string            `json:"command"`
	Params  map[string]string `json:"params"`
}

type downloadFileRequest struct {
	Host       string `json:"host"`
	Command    string `json:"command"`
	RemotePath string `json:"remote_path"`
	ActionHint string `json:"action_hint"`
}

func newDownloadCmd() *cobra.Command {
	var edit bool
	cmd := &cobra.Command{
		Use:   "download HOST COMMAND REMOTE_PATH",
		Short: "Stage a remote file locally, optionally opening it for edit-and-save-back",
		Long:  "Stage a remote file locally via a registered download command. With --edit, the request carries the \"edit\" action hint; fleetd's command handler is built without an editor, so the file is staged only: no editor is opened and nothing is uploaded back.",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			hint := ""
			if edit {
				hint = "edit"
			}
			return runDownload(cmd, args[0], args[1], args[2], hint)
		},
	}
	cmd.Flags().BoolVar(&edit, "edit", false, "send the \"edit\" action hint with the download (fleetd stages the file only)")
	return cmd
}

func runDownload(cmd *cobra.Command, host, command, remotePath, actionHint string) error {
	body, err := json.Marshal(downloadFileRequest{Host: host, Command: command, RemotePath: remotePath, ActionHint: actionHint})
	if err != nil {
		return fmt.Errorf("fleetctl: encode download request: %w", err)
	}
	resp, err := GlobalOptions.Client.Post(GlobalOptions.ServerURL+"/api/commands/download", "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("fleetctl: download file: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fleetctl: download file: unexpected status %s", resp.Status)
	}

	var out struct {
		InvocationID uint64 `json:"invocation_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return fmt.Errorf("fleetctl: decode download response: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "invocation %d dispatched\n", out.InvocationID)
	return nil
}

func newExecCmd() *cobra.Command {
	var params []string
	var totpCode string

	cmd := &cobra.Command{
		Use:   "exec HOST COMMAND",
		Short: "Execute a registered command on a host",
		Long:  "Execute a registered command on a host. Destructive commands require --totp with a valid code.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := parseParams(params)
			if err != nil {
				return err
			}
			if totpCode != "" {
				p["totp_code"] = totpCode
			}
			return runExec(cmd, args[0], args[1], p)
		},
	}
	cmd.Flags().StringArrayVar(&params, "param", nil, "command parameter in key=value form, may be repeated")
	cmd.Flags().StringVar(&totpCode, "totp", "", "TOTP code, required for destructive commands")

	return cmd
}

func parseParams(raw []string) (map[string]string, error) {
	out := make(map[string]string, len(raw))
	for _, kv := range raw {
		parts := strings.SplitN(kv, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("fleetctl: invalid --param %q, want key=value", kv)
		}
		out[parts[0]] = parts[1]
	}
	return out, nil
}

func runExec(cmd *cobra.Command, host, command string, params map[string]string) error {
	body, err := json.Marshal(executeCommandRequest{Host: host, Command: command, Params: params})
	if err != nil {
		return fmt.Errorf("fleetctl: encode command request: %w", err)
	}
	resp, err := GlobalOptions.Client.Post(GlobalOptions.ServerURL+"/api/commands", "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("fleetctl: execute command: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fleetctl: execute command: unexpected status %s", resp.Status)
	}

	var out struct {
		InvocationID uint64 `json:"invocation_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return fmt.Errorf("fleetctl: decode command response: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "invocation %d dispatched\n", out.InvocationID)
	return nil
}
