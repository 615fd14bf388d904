package commands

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/fleetcore/fleetcore/internal/hoststate"
	"github.com/spf13/cobra"
)

func newHostsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hosts",
		Short: "List known hosts and their latest monitoring snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHostsList(cmd)
		},
	}
	return cmd
}

func runHostsList(cmd *cobra.Command) error {
	resp, err := GlobalOptions.Client.Get(GlobalOptions.ServerURL + "/api/hosts")
	if err != nil {
		return fmt.Errorf("fleetctl: fetch hosts: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fleetctl: fetch hosts: unexpected status %s", resp.Status)
	}

	var hosts map[string]hoststate.HostDisplayData
	if err := json.NewDecoder(resp.Body).Decode(&hosts); err != nil {
		return fmt.Errorf("fleetctl: decode hosts response: %w", err)
	}

	out := cmd.OutOrStdout()
	for name, h := range hosts {
		fmt.Fprintf(out, "%s\t%s\t%s\tstatus=%s monitors=%d commands=%d\n",
			name, h.FQDN, h.IPAddress, h.Status, len(h.MonitoringData), len(h.CommandResults))
	}
	return nil
}
