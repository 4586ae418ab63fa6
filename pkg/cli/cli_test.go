package cli

import (
	"bytes"
	"context"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"adb-host-go/pkg/adb"
	"adb-host-go/pkg/adb/adbtest"
	"adb-host-go/pkg/config"
)

// isolate 让配置与历史数据库落在临时目录
func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv(config.EnvServerAddress, "")
	t.Setenv(config.EnvServerPort, "")
}

func run(t *testing.T, srv *adbtest.Server, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCommand(&stderr)
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	if srv != nil {
		args = append([]string{"--host", srv.Host(), "--port", strconv.Itoa(srv.Port())}, args...)
	}
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func TestVersionCommand(t *testing.T) {
	isolate(t)
	srv := adbtest.NewServer(t, func(c *adbtest.Conn, req string) {
		c.OkayValue("0029")
	})

	out, _, err := run(t, srv, "host", "version")
	require.NoError(t, err)
	assert.Contains(t, out, "Android Debug Bridge version 1.0.41")
	assert.Equal(t, []string{"host:version"}, srv.Requests())
}

func TestDevicesCommand(t *testing.T) {
	isolate(t)
	srv := adbtest.NewServer(t, func(c *adbtest.Conn, req string) {
		switch req {
		case "host:devices":
			c.OkayValue("emulator-5554\tdevice\n")
		case "host:devices-l":
			c.OkayValue("emulator-5554 device product:sdk model:Pixel_8 device:emu64 transport_id:1\n")
		}
	})

	out, _, err := run(t, srv, "host", "devices")
	require.NoError(t, err)
	assert.Equal(t, "List of devices attached\nemulator-5554\tdevice\n", out)

	out, _, err = run(t, srv, "host", "devices", "-l")
	require.NoError(t, err)
	assert.Contains(t, out, "Pixel_8")
	assert.Contains(t, out, "emulator-5554")
}

func TestConnectCommandRejected(t *testing.T) {
	isolate(t)
	srv := adbtest.NewServer(t, func(c *adbtest.Conn, req string) {
		c.OkayValue("failed to connect to '10.0.0.9:5555': No route to host")
	})

	_, _, err := run(t, srv, "host", "connect", "10.0.0.9:5555")
	assert.ErrorIs(t, err, adb.ErrRemote)

	_, _, err = run(t, srv, "host", "connect")
	assert.Error(t, err)
	assert.Len(t, srv.Requests(), 1)
}

func TestConnectQRCodeForAddress(t *testing.T) {
	isolate(t)

	out, _, err := run(t, nil, "host", "connect", "--qrcode", "192.168.1.20:5555")
	require.NoError(t, err)
	assert.Contains(t, out, "Connection: adb://192.168.1.20:5555")
}

func TestConnectQRCodeFromDevices(t *testing.T) {
	isolate(t)
	srv := adbtest.NewServer(t, func(c *adbtest.Conn, req string) {
		c.OkayValue("emulator-5554\tdevice\n192.168.1.20:5555\tdevice\n")
	})

	out, _, err := run(t, srv, "host", "connect", "--qrcode")
	require.NoError(t, err)
	assert.Contains(t, out, "- emulator-5554")
	assert.Contains(t, out, "Connection: adb://192.168.1.20:5555")
}

func TestTrackDevicesRecordsHistory(t *testing.T) {
	isolate(t)
	srv := adbtest.NewServer(t, func(c *adbtest.Conn, req string) {
		c.Okay()
		c.WriteValue("emulator-5554\toffline\n")
		c.WriteValue("emulator-5554\tdevice\n")
	})

	out, _, err := run(t, srv, "host", "track-devices", "--changes", "--record")
	require.NoError(t, err)
	assert.Equal(t, "Live list of devices attached\n+ emulator-5554\toffline\n~ emulator-5554\tdevice\n", out)

	out, _, err = run(t, nil, "host", "history", "--serial", "emulator-5554")
	require.NoError(t, err)
	assert.Contains(t, out, "changed")
	assert.Contains(t, out, "added")

	out, _, err = run(t, nil, "host", "history", "--last")
	require.NoError(t, err)
	assert.Equal(t, "Last recorded list of devices attached\nemulator-5554\tdevice\n", out)
}

func TestHistoryEmpty(t *testing.T) {
	isolate(t)

	out, _, err := run(t, nil, "host", "history")
	require.NoError(t, err)
	assert.Equal(t, "No device events recorded.\n", out)

	out, _, err = run(t, nil, "host", "history", "--last")
	require.NoError(t, err)
	assert.Equal(t, "No device snapshots recorded.\n", out)
}

func TestWaitForDeviceCommand(t *testing.T) {
	isolate(t)
	srv := adbtest.NewServer(t, func(c *adbtest.Conn, req string) {
		c.Okay()
		c.Okay()
	})

	_, stderr, err := run(t, srv, "host", "wait-for-device", "-t", "usb", "--state", "recovery")
	require.NoError(t, err)
	assert.Equal(t, []string{"host:wait-for-usb-recovery"}, srv.Requests())
	assert.Contains(t, stderr, "device ready")

	_, _, err = run(t, srv, "host", "wait-for-device", "--state", "online")
	assert.Error(t, err)
	assert.Len(t, srv.Requests(), 1)
}

func TestInvalidFlagsRejected(t *testing.T) {
	isolate(t)

	_, _, err := run(t, nil, "--port", "70000", "host", "history")
	assert.Error(t, err)

	_, _, err = run(t, nil, "--log-format", "xml", "host", "history")
	assert.Error(t, err)

	_, _, err = run(t, nil, "--log-level", "loud", "host", "history")
	assert.Error(t, err)
}

func TestJSONLogging(t *testing.T) {
	isolate(t)
	srv := adbtest.NewServer(t, func(c *adbtest.Conn, req string) {
		c.Okay()
	})

	_, stderr, err := run(t, srv, "--log-format", "json", "host", "kill")
	require.NoError(t, err)
	assert.Contains(t, stderr, `"msg":"server killed"`)
}

func TestPubkeyMissingFile(t *testing.T) {
	isolate(t)

	_, _, err := run(t, nil, "pubkey", "fingerprint", "/nonexistent/adbkey.pub")
	assert.ErrorContains(t, err, "read public key")
}

func TestMdnsCheckMessage(t *testing.T) {
	assert.Equal(t, "mdns daemon version [Bonjour]", mdnsCheckMessage(adb.MdnsBackendBonjour, true))
	assert.Equal(t, "ERROR: mdns daemon unavailable", mdnsCheckMessage(adb.MdnsBackendBonjour, false))
	assert.Equal(t, "mdns daemon version [Openscreen discovery 0.0.0]", mdnsCheckMessage(adb.MdnsBackendOpenScreen, false))
	assert.Equal(t, "unknown mdns backend...", mdnsCheckMessage(adb.MdnsBackendUnknown, true))
}

func TestWifiPairing(t *testing.T) {
	assert.Equal(t, "WIFI:T:ADB;S:adb-host-abc;P:SECRET;;", wifiPairingPayload("adb-host-abc", "SECRET"))

	s := randomString(32, "AB")
	assert.Len(t, s, 32)
	assert.Empty(t, strings.Trim(s, "AB"))
}

func TestWaitForPairingService(t *testing.T) {
	srv := adbtest.NewServer(t, func(c *adbtest.Conn, req string) {
		c.OkayValue("adb-host-abc\t_adb-tls-connect._tcp\t192.168.1.20:41235\n" +
			"adb-host-abc\t_adb-tls-pairing._tcp\t192.168.1.20:37123\n")
	})
	client := adb.NewClient(&adb.Options{Host: srv.Host(), Port: srv.Port()})

	svc, err := waitForPairingService(context.Background(), client, "adb-host-abc", 10*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, "192.168.1.20:37123", svc.Address.String())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = waitForPairingService(ctx, client, "adb-host-missing", 10*time.Millisecond)
	assert.ErrorContains(t, err, "did not advertise")
}
