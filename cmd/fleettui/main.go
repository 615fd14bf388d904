// Command fleettui is a terminal dashboard observer: it connects to
// fleetd's websocket fan-out and renders the same host snapshots
// dashboardobserver.Hub serves to browsers, proving any number of
// independent UIs can observe the same HostManager (spec.md §6),
// grounded on champloo-crook's pkg/tui/models.DashboardModel (a
// Bubble Tea model driven by background updates delivered as tea.Msg).
package main

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fleetcore/fleetcore/internal/hoststate"
	"github.com/spf13/pflag"
)

func main() {
	flags := pflag.NewFlagSet("fleettui", pflag.ExitOnError)
	server := flags.String("server", "http://localhost:8080", "fleetd base URL")
	flags.Parse(os.Args[1:])

	updates := make(chan hoststate.HostDisplayData, 64)
	errs := make(chan error, 4)
	go streamHostUpdates(*server, updates, errs)

	p := tea.NewProgram(newModel(updates, errs))
	if _, err := p.Run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
