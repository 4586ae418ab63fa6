package cli

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/mdp/qrterminal/v3"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"adb-host-go/pkg/adb"
)

// 设备扫描二维码后以此服务类型广播配对端口
const pairingServiceType = "_adb-tls-pairing._tcp"

func newPairCommand(a *app) *cobra.Command {
	pairCmd := &cobra.Command{
		Use:   "pair",
		Short: "Pair with a device for wireless debugging",
	}
	pairCmd.AddCommand(
		&cobra.Command{
			Use:   "host <address> <code>",
			Short: "Pair with a device using host:port and pairing code",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.pair(cmd, args[0], args[1])
			},
		},
		newPairWifiCommand(a),
	)
	return pairCmd
}

func newPairWifiCommand(a *app) *cobra.Command {
	var timeout, interval time.Duration
	cmd := &cobra.Command{
		Use:   "wifi",
		Short: "Pair over Wi-Fi by scanning a QR code on the device",
		Long: `Print a QR code in the "WIFI:T:ADB;S:<name>;P:<password>;;" format used by
Developer Options > Wireless debugging > Pair device with QR code. Once the device
advertises the pairing service over mDNS the pairing request is sent automatically.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			name := "adb-host-" + randomString(6, "abcdefghijklmnopqrstuvwxyz0123456789")
			password := randomString(10, "ABCDEFGHJKLMNPQRSTUVWXYZ23456789")

			out := cmd.OutOrStdout()
			fmt.Fprint(out, "Scan this QR code with your Android device to pair via Wi-Fi:\n\n")
			qrterminal.GenerateHalfBlock(wifiPairingPayload(name, password), qrterminal.L, out)

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			a.logger.Info("waiting for the device to advertise its pairing service", "name", name)
			service, err := waitForPairingService(ctx, a.client, name, interval)
			if err != nil {
				return err
			}
			addr := service.Address.String()
			return a.pair(cmd, addr, password)
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 2*time.Minute, "how long to wait for the device")
	cmd.Flags().DurationVar(&interval, "interval", time.Second, "how often to query mdns services")
	return cmd
}

func wifiPairingPayload(name, password string) string {
	return "WIFI:T:ADB;S:" + name + ";P:" + password + ";;"
}

// waitForPairingService 轮询服务器发现的 mDNS 服务，直到出现指定名称的配对服务
func waitForPairingService(ctx context.Context, client *adb.Client, name string, interval time.Duration) (adb.MdnsService, error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		services, err := client.MdnsServices(ctx)
		if err != nil && ctx.Err() == nil {
			return adb.MdnsService{}, err
		}
		for _, s := range services {
			if s.Name == name && strings.HasPrefix(s.Type, pairingServiceType) {
				return s, nil
			}
		}
		select {
		case <-ctx.Done():
			return adb.MdnsService{}, errors.Wrap(ctx.Err(), "device did not advertise a pairing service")
		case <-ticker.C:
		}
	}
}

func randomString(n int, alphabet string) string {
	var b strings.Builder
	limit := big.NewInt(int64(len(alphabet)))
	for i := 0; i < n; i++ {
		idx, err := rand.Int(rand.Reader, limit)
		if err != nil {
			panic(err)
		}
		b.WriteByte(alphabet[idx.Int64()])
	}
	return b.String()
}
