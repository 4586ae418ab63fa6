package cli

import (
	"fmt"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"adb-host-go/pkg/adb"
	"adb-host-go/pkg/adb/command/host"
)

func newHostCommand(a *app) *cobra.Command {
	hostCmd := &cobra.Command{
		Use:   "host",
		Short: "Commands handled by the ADB server itself",
	}
	hostCmd.AddCommand(
		newVersionCommand(a),
		newKillCommand(a),
		newDevicesCommand(a),
		newTrackDevicesCommand(a),
		newHostPairCommand(a),
		newConnectCommand(a),
		newDisconnectCommand(a),
		newMdnsCommand(a),
		newServerStatusCommand(a),
		newWaitForDeviceCommand(a),
		newHistoryCommand(a),
	)
	return hostCmd
}

func newVersionCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show the ADB server version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			version, err := a.client.Version(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Android Debug Bridge version 1.0.%d\n", version)
			fmt.Fprintf(out, "Package version %s-go\n", Version)
			return nil
		},
	}
}

func newKillCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "kill",
		Short: "Kill the ADB server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.client.Kill(cmd.Context()); err != nil {
				return err
			}
			a.logger.Info("server killed", "server", a.client.Address())
			return nil
		},
	}
}

func newDevicesCommand(a *app) *cobra.Command {
	var long bool
	cmd := &cobra.Command{
		Use:   "devices",
		Short: "List connected devices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if long {
				devices, err := a.client.DevicesLong(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintln(out, "List of devices attached (extended)")
				table := tablewriter.NewWriter(out)
				table.SetHeader([]string{"Serial", "State", "USB", "Product", "Model", "Device", "Transport"})
				table.SetBorder(false)
				table.SetAutoWrapText(false)
				for _, d := range devices {
					table.Append([]string{
						d.Serial, string(d.State), d.USB, d.Product, d.Model, d.Device,
						strconv.FormatUint(d.TransportID, 10),
					})
				}
				table.Render()
				return nil
			}

			devices, err := a.client.Devices(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(out, "List of devices attached")
			for _, d := range devices {
				fmt.Fprintln(out, d)
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&long, "long", "l", false, "show extended device information")
	return cmd
}

func newHostPairCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "pair <address> <code>",
		Short: "Pair with a device using its pairing address and code",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.pair(cmd, args[0], args[1])
		},
	}
}

func (a *app) pair(cmd *cobra.Command, addr, code string) error {
	msg, err := a.client.Pair(cmd.Context(), addr, code)
	if err != nil {
		return err
	}
	a.logger.Info("paired device", "address", addr, "server_reply", msg)
	return nil
}

func newDisconnectCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "disconnect <address>",
		Short: "Disconnect a network device",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			msg, err := a.client.Disconnect(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			a.logger.Info("disconnected", "address", args[0], "server_reply", msg)
			return nil
		},
	}
}

func newServerStatusCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "server-status",
		Short: "Show the ADB server status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			status, err := a.client.ServerStatus(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), status)
			return nil
		},
	}
}

func newWaitForDeviceCommand(a *app) *cobra.Command {
	var transport, state string
	cmd := &cobra.Command{
		Use:   "wait-for-device",
		Short: "Block until a device reaches the given state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := host.ParseTransport(transport)
			if err != nil {
				return err
			}
			s, err := host.ParseState(state)
			if err != nil {
				return err
			}
			a.logger.Info("waiting for device to be connected...", "transport", t, "state", s)
			if err := a.client.WaitForDevice(cmd.Context(), t, s); err != nil {
				return err
			}
			a.logger.Info("device ready")
			return nil
		},
	}
	cmd.Flags().StringVarP(&transport, "transport", "t", string(host.TransportAny), "transport filter (any, usb, local)")
	cmd.Flags().StringVar(&state, "state", string(host.StateDevice), "target state")
	return cmd
}

func newMdnsCommand(a *app) *cobra.Command {
	mdnsCmd := &cobra.Command{
		Use:   "mdns",
		Short: "Query the server's mDNS discovery",
	}
	mdnsCmd.AddCommand(
		&cobra.Command{
			Use:   "check",
			Short: "Check whether the server's mDNS backend is available",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				check, err := a.client.MdnsCheck(cmd.Context())
				if err != nil {
					return err
				}
				status, err := a.client.ServerStatus(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), mdnsCheckMessage(status.MdnsBackend, check))
				return nil
			},
		},
		&cobra.Command{
			Use:   "services",
			Short: "List services discovered over mDNS",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				services, err := a.client.MdnsServices(cmd.Context())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintln(out, "List of discovered mdns services")
				for _, s := range services {
					fmt.Fprintln(out, s)
				}
				return nil
			},
		},
	)
	return mdnsCmd
}

func mdnsCheckMessage(backend adb.MdnsBackend, check bool) string {
	switch backend {
	case adb.MdnsBackendBonjour:
		if check {
			return "mdns daemon version [Bonjour]"
		}
		return "ERROR: mdns daemon unavailable"
	case adb.MdnsBackendOpenScreen:
		return "mdns daemon version [Openscreen discovery 0.0.0]"
	default:
		return "unknown mdns backend..."
	}
}
