package cli

import (
	"fmt"
	"io"
	"net"
	"strconv"

	"github.com/mdp/qrterminal/v3"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"adb-host-go/pkg/adb/command/host"
)

func newConnectCommand(a *app) *cobra.Command {
	var qrcode bool
	cmd := &cobra.Command{
		Use:   "connect [address]",
		Short: "Connect to a device over TCP/IP",
		Long: `Connect to a device over TCP/IP.

With --qrcode, print a QR code for adb://<ip>:<port> instead. When no address is
given the first connected device whose serial is an ip:port is used.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			addr := ""
			if len(args) == 1 {
				addr = args[0]
			}
			if qrcode {
				return a.connectQRCode(cmd, addr)
			}
			if addr == "" {
				return errors.New("no address provided for connection")
			}
			msg, err := a.client.Connect(cmd.Context(), addr)
			if err != nil {
				return err
			}
			a.logger.Info("connected", "address", addr, "server_reply", msg)
			return nil
		},
	}
	cmd.Flags().BoolVar(&qrcode, "qrcode", false, "print a QR code for the device address instead of connecting")
	return cmd
}

func (a *app) connectQRCode(cmd *cobra.Command, addr string) error {
	out := cmd.OutOrStdout()
	if addr != "" {
		parsed, err := host.ParseAddress(addr)
		if err != nil {
			return err
		}
		printQRCode(out, "adb://"+parsed.String())
		return nil
	}

	devices, err := a.client.Devices(cmd.Context())
	if err != nil {
		return err
	}
	if len(devices) == 0 {
		fmt.Fprint(out, "No devices detected by ADB server.\n\n")
		fmt.Fprintln(out, "Troubleshooting:")
		fmt.Fprintln(out, "- Ensure your device is connected and authorized.")
		fmt.Fprint(out, "- Enable wireless debugging or TCP/IP mode on your device (see Developer Options).\n\n")
		fmt.Fprint(out, "- You can manually specify an IP address using: adb-host host connect --qrcode <ADDRESS>\n\n")
		return errors.New("no devices found for QR code generation")
	}

	fmt.Fprintln(out, "Detected devices:")
	for _, d := range devices {
		fmt.Fprintf(out, "- %s\n", d.Serial)
		if ap, ok := d.NetworkAddress(); ok && ap.Addr().Is4() {
			printQRCode(out, "adb://"+net.JoinHostPort(ap.Addr().String(), strconv.Itoa(int(ap.Port()))))
			return nil
		}
	}
	fmt.Fprint(out, "\nNo device with IP:port found.\n\n")
	fmt.Fprint(out, "To use wireless debugging, run 'adb tcpip 5555' and reconnect your device over Wi-Fi.\n\n")
	fmt.Fprint(out, "You can also manually specify an IP address using: adb-host host connect --qrcode <ADDRESS>\n\n")
	return errors.New("no valid device address found for QR code generation")
}

func printQRCode(out io.Writer, content string) {
	fmt.Fprint(out, "Scan this QR code with your Android device (Developer Options > Wireless Debugging > Pair with QR code):\n\n")
	qrterminal.GenerateHalfBlock(content, qrterminal.L, out)
	fmt.Fprintf(out, "\nConnection: %s\n", content)
}
