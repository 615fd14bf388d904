package commands

import (
	"fmt"
	"os"

	"github.com/fleetcore/fleetcore/internal/totp"
	"github.com/spf13/cobra"
)

func newTOTPCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "totp",
		Short: "Enroll a TOTP secret for destructive commands",
	}
	cmd.AddCommand(newTOTPEnrollCmd())
	return cmd
}

func newTOTPEnrollCmd() *cobra.Command {
	var account, qrPath string
	enroll := &cobra.Command{
		Use:   "enroll",
		Short: "Generate a new TOTP secret and QR code for an operator",
		Long: "Generate a new TOTP secret, print the otpauth:// URL and secret, and write a " +
			"scannable QR code PNG. Paste the secret into preferences.yaml's totp_secret field " +
			"(or FLEETCORE_TOTP_SECRET) on the fleetd host to activate it.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTOTPEnroll(cmd, account, qrPath)
		},
	}
	enroll.Flags().StringVar(&account, "account", "operator", "account name embedded in the otpauth URL")
	enroll.Flags().StringVar(&qrPath, "qr-out", "totp-qr.png", "path to write the QR code PNG")
	return enroll
}

func runTOTPEnroll(cmd *cobra.Command, account, qrPath string) error {
	enrollment, err := totp.Generate("fleetcore", account)
	if err != nil {
		return fmt.Errorf("fleetctl: generate TOTP secret: %w", err)
	}

	png, err := enrollment.QRPNG(256)
	if err != nil {
		return fmt.Errorf("fleetctl: render TOTP QR code: %w", err)
	}
	if err := os.WriteFile(qrPath, png, 0o600); err != nil {
		return fmt.Errorf("fleetctl: write TOTP QR code: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "secret:  %s\n", enrollment.Secret)
	fmt.Fprintf(out, "url:     %s\n", enrollment.URL)
	fmt.Fprintf(out, "qr code: %s\n", qrPath)
	return nil
}
