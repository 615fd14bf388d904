// Package commands implements the fleetctl subcommands, grounded on
// champloo-crook's cmd/crook/commands (a RootOptions singleton populated by
// config.LoadPreferences in PersistentPreRunE, subcommands registered onto
// one cobra.Command tree).
package commands

import (
	"fmt"
	"net/http"

	"github.com/fleetcore/fleetcore/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// RootOptions holds the options shared by every subcommand.
type RootOptions struct {
	ConfigDir string
	ServerURL string
	Prefs     config.Preferences
	Client    *http.Client
}

// GlobalOptions is populated by PersistentPreRunE before any subcommand runs.
var GlobalOptions = &RootOptions{Client: http.DefaultClient}

// NewRootCmd builds the fleetctl command tree.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "fleetctl",
		Short:         "Operate a fleetcore daemon: hosts, monitors, commands, TOTP enrollment",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return initializeGlobals(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&GlobalOptions.ConfigDir, "config-dir", "", "override the configuration directory")
	flags.StringVar(&GlobalOptions.ServerURL, "server", "http://localhost:8080", "fleetd base URL")

	root.AddCommand(newHostsCmd())
	root.AddCommand(newMonitorCmd())
	root.AddCommand(newExecCmd())
	root.AddCommand(newDownloadCmd())
	root.AddCommand(newTOTPCmd())

	return root
}

func initializeGlobals(cmd *cobra.Command) error {
	flags := pflag.NewFlagSet("config", pflag.ContinueOnError)
	if f := cmd.InheritedFlags().Lookup("config-dir"); f != nil {
		flags.AddFlag(f)
	}
	prefs, _, err := config.LoadPreferences(config.LoadOptions{ConfigDir: GlobalOptions.ConfigDir, Flags: flags})
	if err != nil {
		return fmt.Errorf("fleetctl: load preferences: %w", err)
	}
	GlobalOptions.Prefs = prefs
	return nil
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}
