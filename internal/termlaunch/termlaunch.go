// Package termlaunch implements command.TerminalLauncher: it runs the
// composed "open remote terminal" argv against the calling process's own
// terminal when one is attached, and otherwise only reports the composed
// command, matching spec.md §4.E's split between an interactive CLI caller
// and a non-interactive one (e.g. cmd/fleetd's HTTP control surface).
package termlaunch

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/rs/zerolog"
	"golang.org/x/term"
)

// Local launches argv via os/exec, attaching the current process's stdio,
// but only when that stdio is an actual terminal (golang.org/x/term).
type Local struct {
	log zerolog.Logger
}

// New constructs a Local terminal launcher.
func New(log zerolog.Logger) *Local {
	return &Local{log: log.With().Str("component", "terminal_launcher").Logger()}
}

// Launch runs argv attached to the caller's terminal, or logs it and returns
// nil if no terminal is attached to stdout (spec.md §4.E: the flow composes
// the command either way, it only executes it interactively).
func (l *Local) Launch(argv []string) error {
	if len(argv) == 0 {
		return fmt.Errorf("termlaunch: empty argv")
	}
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		l.log.Info().Strs("argv", argv).Msg("non-interactive caller, composed remote terminal command without launching it")
		return nil
	}

	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}
