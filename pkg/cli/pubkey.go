package cli

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"adb-host-go/pkg/adb"
)

func newPubkeyCommand() *cobra.Command {
	pubkeyCmd := &cobra.Command{
		Use:   "pubkey",
		Short: "Inspect ADB public keys (adbkey.pub)",
	}

	convertCmd := &cobra.Command{
		Use:   "convert <file>",
		Short: "Converts an ADB-generated public key into PEM or OpenSSH format.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, _ := cmd.Flags().GetString("format")
			key, err := readPublicKey(args[0])
			if err != nil {
				return err
			}

			var text string
			switch format {
			case "pem":
				text, err = key.PEM()
			case "openssh":
				text, err = key.AuthorizedKey()
			default:
				return errors.Errorf("unsupported format %q", format)
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), text)
			return nil
		},
	}
	convertCmd.Flags().StringP("format", "f", "pem", "format (pem or openssh)")

	fingerprintCmd := &cobra.Command{
		Use:   "fingerprint <file>",
		Short: "Outputs the fingerprint of an ADB-generated public key.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := readPublicKey(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", key.Fingerprint, key.Comment)
			return nil
		},
	}

	pubkeyCmd.AddCommand(convertCmd, fingerprintCmd)
	return pubkeyCmd
}

func readPublicKey(path string) (*adb.PublicKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read public key")
	}
	key, err := adb.ParsePublicKey(data)
	if err != nil {
		return nil, errors.Wrapf(err, "parse %s", path)
	}
	return key, nil
}
