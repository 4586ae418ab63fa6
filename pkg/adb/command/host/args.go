package host

import (
	"fmt"
	"net"
	"net/netip"
	"strconv"
	"strings"
)

// ArgumentError 请求参数不合法，构造请求时即返回，不会产生任何网络 I/O
type ArgumentError struct {
	Arg    string
	Value  string
	Reason string
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("invalid %s %q: %s", e.Arg, e.Value, e.Reason)
}

// Address 设备网络地址 host:port
type Address struct {
	Host string
	Port int
}

// String 以 host:port 形式输出，IPv6 加方括号
func (a Address) String() string {
	return net.JoinHostPort(a.Host, strconv.Itoa(a.Port))
}

// ParseAddress 解析并校验 host:port
func ParseAddress(addr string) (Address, error) {
	bad := func(reason string) (Address, error) {
		return Address{}, &ArgumentError{Arg: "address", Value: addr, Reason: reason}
	}
	if addr == "" {
		return bad("empty")
	}
	if strings.IndexFunc(addr, isUnsafeRune) >= 0 {
		return bad("contains whitespace or control characters")
	}
	h, p, err := net.SplitHostPort(addr)
	if err != nil {
		return bad("expected host:port")
	}
	if h == "" {
		return bad("empty host")
	}
	// 链路本地 IPv6 可以带 zone，例如 fe80::1%wlan0
	if strings.Contains(h, ":") {
		if _, err := netip.ParseAddr(h); err != nil {
			return bad("malformed IPv6 host")
		}
	}
	port, err := strconv.Atoi(p)
	if err != nil || port < 1 || port > 65535 {
		return bad("port must be 1-65535")
	}
	return Address{Host: h, Port: port}, nil
}

// ValidatePairingCode 配对码必须是非空可打印 ASCII，且不含冒号
func ValidatePairingCode(code string) error {
	if code == "" {
		return &ArgumentError{Arg: "pairing code", Value: code, Reason: "empty"}
	}
	for _, r := range code {
		if r <= ' ' || r > '~' || r == ':' {
			return &ArgumentError{Arg: "pairing code", Value: code, Reason: "must be printable ASCII without ':'"}
		}
	}
	return nil
}

func isUnsafeRune(r rune) bool {
	return r <= ' ' || r == 0x7f
}
