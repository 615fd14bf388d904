package commands

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
)

type refreshMonitorRequest struct {
	Host      string `json:"host"`
	MonitorID string `json:"monitor_id"`
	Category  string `json:"category"`
}

func newMonitorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "monitor",
		Short: "Trigger monitor refreshes on a host",
	}

	var monitorID, category string
	refresh := &cobra.Command{
		Use:   "refresh HOST",
		Short: "Re-run a host's monitors: one by id, a category, or all of them",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMonitorRefresh(args[0], monitorID, category)
		},
	}
	refresh.Flags().StringVar(&monitorID, "monitor-id", "", "refresh only the monitor with this id")
	refresh.Flags().StringVar(&category, "category", "", "refresh all monitors of this category")

	cmd.AddCommand(refresh)
	return cmd
}

func runMonitorRefresh(host, monitorID, category string) error {
	body, err := json.Marshal(refreshMonitorRequest{Host: host, MonitorID: monitorID, Category: category})
	if err != nil {
		return fmt.Errorf("fleetctl: encode refresh request: %w", err)
	}
	resp, err := GlobalOptions.Client.Post(GlobalOptions.ServerURL+"/api/monitors/refresh", "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("fleetctl: trigger refresh: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		return fmt.Errorf("fleetctl: trigger refresh: unexpected status %s", resp.Status)
	}
	return nil
}
