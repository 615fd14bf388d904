// Command fleetctl is the operator CLI: list hosts, refresh monitors,
// execute commands, and enroll a TOTP secret for destructive commands,
// grounded on champloo-crook's cmd/crook (a cobra root command delegating
// to a commands subpackage, PersistentPreRunE loading config via viper).
package main

import (
	"fmt"
	"os"

	"github.com/fleetcore/fleetcore/cmd/fleetctl/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
