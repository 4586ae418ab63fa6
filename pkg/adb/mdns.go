package adb

import (
	"context"
	"net/netip"
	"strings"

	"adb-host-go/pkg/adb/command/host"
)

// MdnsService 服务器通过 mDNS 发现的服务
type MdnsService struct {
	Name    string
	Type    string // 例如 _adb-tls-connect._tcp
	Address netip.AddrPort
}

func (s MdnsService) String() string {
	return s.Name + "\t" + s.Type + "\t" + s.Address.String()
}

// MdnsCheck 检查服务器的 mDNS 守护进程是否可用
func (c *Client) MdnsCheck(ctx context.Context) (bool, error) {
	value, err := c.roundTrip(ctx, host.MdnsCheck())
	if err != nil {
		return false, err
	}
	return strings.HasPrefix(string(value), "mdns daemon version"), nil
}

// MdnsServices 列出服务器当前发现的 mDNS 服务
func (c *Client) MdnsServices(ctx context.Context) ([]MdnsService, error) {
	req := host.MdnsServices()
	value, err := c.roundTrip(ctx, req)
	if err != nil {
		return nil, err
	}
	services, err := parseMdnsServices(value)
	if err != nil {
		return nil, classify(req.Op(), err)
	}
	return services, nil
}

// parseMdnsServices 每行 name\ttype\tip:port
func parseMdnsServices(value []byte) ([]MdnsService, error) {
	services := make([]MdnsService, 0)
	for _, line := range strings.Split(string(value), "\n") {
		line = strings.TrimRight(line, "\r ")
		if line == "" {
			continue
		}
		parts := strings.Split(line, "\t")
		if len(parts) != 3 || parts[0] == "" || parts[1] == "" {
			return nil, protocolErrorf("", "malformed mdns service line %q", line)
		}
		addr, err := netip.ParseAddrPort(strings.TrimSpace(parts[2]))
		if err != nil {
			return nil, protocolErrorf("", "malformed mdns service address %q", parts[2])
		}
		services = append(services, MdnsService{Name: parts[0], Type: parts[1], Address: addr})
	}
	return services, nil
}
