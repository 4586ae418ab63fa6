package adb

import (
	"fmt"
	"net/netip"
	"strconv"
	"strings"
)

// DeviceState 服务器报告的设备状态
type DeviceState string

const (
	StateDevice       DeviceState = "device"
	StateOffline      DeviceState = "offline"
	StateUnauthorized DeviceState = "unauthorized"
	StateAuthorizing  DeviceState = "authorizing"
	StateConnecting   DeviceState = "connecting"
	StateNoPermission DeviceState = "no permissions"
	StateBootloader   DeviceState = "bootloader"
	StateRecovery     DeviceState = "recovery"
	StateSideload     DeviceState = "sideload"
	StateRescue       DeviceState = "rescue"
	StateHost         DeviceState = "host"
	StateDetached     DeviceState = "detached"
)

// Device host:devices 返回的一行
type Device struct {
	Serial string
	State  DeviceState
}

// IsOnline 设备处于 device 状态才可通信
func (d Device) IsOnline() bool {
	return d.State == StateDevice
}

// NetworkAddress 序列号是 ip:port 时返回该地址（无线调试设备）
func (d Device) NetworkAddress() (netip.AddrPort, bool) {
	ap, err := netip.ParseAddrPort(d.Serial)
	if err != nil {
		return netip.AddrPort{}, false
	}
	return ap, true
}

func (d Device) String() string {
	return d.Serial + "\t" + string(d.State)
}

// DeviceLong host:devices-l 返回的一行
type DeviceLong struct {
	Serial      string
	State       DeviceState
	USB         string
	Product     string
	Model       string
	Device      string
	TransportID uint64
}

func (d DeviceLong) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%-22s %s", d.Serial, d.State)
	if d.USB != "" {
		fmt.Fprintf(&b, " usb:%s", d.USB)
	}
	if d.Product != "" {
		fmt.Fprintf(&b, " product:%s", d.Product)
	}
	if d.Model != "" {
		fmt.Fprintf(&b, " model:%s", d.Model)
	}
	if d.Device != "" {
		fmt.Fprintf(&b, " device:%s", d.Device)
	}
	fmt.Fprintf(&b, " transport_id:%d", d.TransportID)
	return b.String()
}

// parseDevices 解析 serial\tstate 列表，空负载表示没有设备
func parseDevices(value []byte) ([]Device, error) {
	devices := make([]Device, 0)
	for _, line := range strings.Split(string(value), "\n") {
		line = strings.TrimSuffix(line, "\r")
		if line == "" {
			continue
		}
		parts := strings.Split(line, "\t")
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			return nil, protocolErrorf("", "malformed device line %q", line)
		}
		devices = append(devices, Device{
			Serial: parts[0],
			State:  DeviceState(parts[1]),
		})
	}
	return devices, nil
}

// parseDevicesLong 解析 devices-l 输出：
// serial  state [usb:X | devpath] [product:P model:M device:D] transport_id:N
func parseDevicesLong(value []byte) ([]DeviceLong, error) {
	devices := make([]DeviceLong, 0)
	for _, line := range strings.Split(string(value), "\n") {
		line = strings.TrimSuffix(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		d, err := parseDeviceLongLine(line)
		if err != nil {
			return nil, err
		}
		devices = append(devices, d)
	}
	return devices, nil
}

func parseDeviceLongLine(line string) (DeviceLong, error) {
	fields := strings.Fields(line)
	if len(fields) < 3 {
		return DeviceLong{}, protocolErrorf("", "malformed device line %q", line)
	}
	d := DeviceLong{Serial: fields[0]}
	rest := fields[1:]

	// "no permissions" 状态带空格，并可能跟着括号说明
	if rest[0] == "no" && len(rest) > 1 && rest[1] == "permissions" {
		d.State = StateNoPermission
		rest = rest[2:]
		// 跳过 "(user ...); see [url]" 说明，直到第一个已知字段
		if len(rest) > 0 && strings.HasPrefix(rest[0], "(") {
			for len(rest) > 0 && !isDeviceLongField(rest[0]) {
				rest = rest[1:]
			}
		}
	} else {
		d.State = DeviceState(rest[0])
		rest = rest[1:]
	}

	hasTransport := false
	for i, f := range rest {
		key, val, ok := strings.Cut(f, ":")
		if !ok {
			// 没有 usb: 前缀的设备路径只能出现在状态之后
			if i == 0 {
				d.USB = f
				continue
			}
			return DeviceLong{}, protocolErrorf("", "malformed device field %q in %q", f, line)
		}
		switch key {
		case "usb":
			d.USB = val
		case "product":
			d.Product = val
		case "model":
			d.Model = val
		case "device":
			d.Device = val
		case "transport_id":
			id, err := strconv.ParseUint(val, 10, 64)
			if err != nil {
				return DeviceLong{}, protocolErrorf("", "malformed transport_id %q", val)
			}
			d.TransportID = id
			hasTransport = true
		default:
			if i == 0 {
				d.USB = f
			}
		}
	}
	if !hasTransport {
		return DeviceLong{}, protocolErrorf("", "missing transport_id in %q", line)
	}
	return d, nil
}

func isDeviceLongField(f string) bool {
	key, _, ok := strings.Cut(f, ":")
	if !ok {
		return false
	}
	switch key {
	case "usb", "product", "model", "device", "transport_id":
		return true
	}
	return false
}
