package adb

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"google.golang.org/protobuf/encoding/protowire"

	"adb-host-go/pkg/adb/command/host"
)

// MdnsBackend 服务器使用的 mDNS 实现
type MdnsBackend int

const (
	MdnsBackendUnknown MdnsBackend = iota
	MdnsBackendBonjour
	MdnsBackendOpenScreen
)

func (b MdnsBackend) String() string {
	switch b {
	case MdnsBackendBonjour:
		return "Bonjour"
	case MdnsBackendOpenScreen:
		return "OpenScreen"
	default:
		return "Unknown"
	}
}

// USBBackend 服务器使用的 USB 实现
type USBBackend int

const (
	USBBackendUnknown USBBackend = iota
	USBBackendNative
	USBBackendLibUSB
)

func (b USBBackend) String() string {
	switch b {
	case USBBackendNative:
		return "Native"
	case USBBackendLibUSB:
		return "LibUSB"
	default:
		return "Unknown"
	}
}

// ServerStatus host:server-status 的结果
type ServerStatus struct {
	USBBackend        USBBackend
	USBBackendForced  bool
	MdnsBackend       MdnsBackend
	MdnsBackendForced bool
	Version           string
	Build             string
	ExecutablePath    string
	LogPath           string
	OS                string
}

func (s *ServerStatus) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "usb_backend: %s\n", s.USBBackend)
	if s.USBBackendForced {
		b.WriteString("usb_backend_forced: true\n")
	}
	fmt.Fprintf(&b, "mdns_backend: %s\n", s.MdnsBackend)
	if s.MdnsBackendForced {
		b.WriteString("mdns_backend_forced: true\n")
	}
	fmt.Fprintf(&b, "version: %q\n", s.Version)
	fmt.Fprintf(&b, "build: %q\n", s.Build)
	fmt.Fprintf(&b, "executable_absolute_path: %q\n", s.ExecutablePath)
	fmt.Fprintf(&b, "log_absolute_path: %q\n", s.LogPath)
	fmt.Fprintf(&b, "os: %q", s.OS)
	return b.String()
}

// ServerStatus 查询服务器状态
func (c *Client) ServerStatus(ctx context.Context) (*ServerStatus, error) {
	req := host.ServerStatus()
	value, err := c.roundTrip(ctx, req)
	if err != nil {
		return nil, err
	}
	status, err := parseServerStatus(value)
	if err != nil {
		return nil, classify(req.Op(), err)
	}
	return status, nil
}

// AdbServerStatus 消息字段号
const (
	fieldUSBBackend        protowire.Number = 1
	fieldUSBBackendForced  protowire.Number = 2
	fieldMdnsBackend       protowire.Number = 3
	fieldMdnsBackendForced protowire.Number = 4
	fieldVersion           protowire.Number = 5
	fieldBuild             protowire.Number = 6
	fieldExecutablePath    protowire.Number = 7
	fieldLogPath           protowire.Number = 8
	fieldOS                protowire.Number = 9
)

// parseServerStatus 服务器发送二进制 protobuf；旧版本或代理可能发送 key: value 文本
func parseServerStatus(value []byte) (*ServerStatus, error) {
	if looksLikeStatusText(value) {
		return parseServerStatusText(string(value))
	}
	return parseServerStatusProto(value)
}

func looksLikeStatusText(value []byte) bool {
	s := strings.TrimSpace(string(value))
	return strings.HasPrefix(s, "usb_backend") || strings.HasPrefix(s, "mdns_backend") ||
		strings.HasPrefix(s, "version:")
}

func parseServerStatusProto(b []byte) (*ServerStatus, error) {
	s := &ServerStatus{}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, protocolErrorf("", "server status: %v", protowire.ParseError(n))
		}
		b = b[n:]
		switch typ {
		case protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, protocolErrorf("", "server status field %d: %v", num, protowire.ParseError(n))
			}
			b = b[n:]
			switch num {
			case fieldUSBBackend:
				s.USBBackend = USBBackend(v)
			case fieldUSBBackendForced:
				s.USBBackendForced = v != 0
			case fieldMdnsBackend:
				s.MdnsBackend = MdnsBackend(v)
			case fieldMdnsBackendForced:
				s.MdnsBackendForced = v != 0
			}
		case protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, protocolErrorf("", "server status field %d: %v", num, protowire.ParseError(n))
			}
			b = b[n:]
			switch num {
			case fieldVersion:
				s.Version = string(v)
			case fieldBuild:
				s.Build = string(v)
			case fieldExecutablePath:
				s.ExecutablePath = string(v)
			case fieldLogPath:
				s.LogPath = string(v)
			case fieldOS:
				s.OS = string(v)
			}
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return nil, protocolErrorf("", "server status field %d: %v", num, protowire.ParseError(n))
			}
			b = b[n:]
		}
	}
	return s, nil
}

func parseServerStatusText(text string) (*ServerStatus, error) {
	s := &ServerStatus{}
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		key, val, ok := strings.Cut(line, ":")
		if !ok {
			return nil, protocolErrorf("", "malformed server status line %q", line)
		}
		val = strings.TrimSpace(val)
		if unq, err := strconv.Unquote(val); err == nil {
			val = unq
		}
		switch strings.TrimSpace(key) {
		case "usb_backend":
			switch strings.ToUpper(val) {
			case "NATIVE":
				s.USBBackend = USBBackendNative
			case "LIBUSB":
				s.USBBackend = USBBackendLibUSB
			}
		case "usb_backend_forced":
			s.USBBackendForced = val == "true"
		case "mdns_backend":
			switch strings.ToUpper(val) {
			case "BONJOUR":
				s.MdnsBackend = MdnsBackendBonjour
			case "OPENSCREEN":
				s.MdnsBackend = MdnsBackendOpenScreen
			}
		case "mdns_backend_forced":
			s.MdnsBackendForced = val == "true"
		case "version":
			s.Version = val
		case "build":
			s.Build = val
		case "executable_absolute_path":
			s.ExecutablePath = val
		case "log_absolute_path":
			s.LogPath = val
		case "os":
			s.OS = val
		}
	}
	return s, nil
}
