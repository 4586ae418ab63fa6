package adb

import (
	"context"
	"io"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"time"

	"adb-host-go/pkg/adb/command/host"
)

const (
	DefaultHost           = "127.0.0.1"
	DefaultPort           = 5037
	DefaultConnectTimeout = 10 * time.Second
)

// Options 客户端配置选项
type Options struct {
	Host           string        // ADB服务器地址
	Port           int           // ADB服务器端口
	ConnectTimeout time.Duration // 建立连接超时，0 表示使用默认值
	ReadTimeout    time.Duration // 单次读取超时，0 表示不限制
	Dialer         Dialer
	Logger         *slog.Logger
	Dump           io.Writer // 非空时收发字节都会写入
}

// Address 服务器 host:port
func (o *Options) Address() string {
	return net.JoinHostPort(o.Host, strconv.Itoa(o.Port))
}

// Client ADB客户端，配置只读，可被多个 goroutine 同时使用
type Client struct {
	options *Options
}

// NewClient 创建新的ADB客户端
func NewClient(options *Options) *Client {
	opts := Options{}
	if options != nil {
		opts = *options
	}
	if opts.Host == "" {
		opts.Host = DefaultHost
	}
	if opts.Port == 0 {
		opts.Port = DefaultPort
	}
	if opts.ConnectTimeout == 0 {
		opts.ConnectTimeout = DefaultConnectTimeout
	}
	if opts.Dialer == nil {
		opts.Dialer = &net.Dialer{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.Dump == nil {
		opts.Dump = dumpFromEnv()
	}
	return &Client{options: &opts}
}

// Address 返回服务器地址
func (c *Client) Address() string {
	return c.options.Address()
}

// CreateConnection 创建新的连接，调用方负责关闭
func (c *Client) CreateConnection(ctx context.Context) (*Connection, error) {
	return dialConnection(ctx, c.options)
}

// open 建立连接并发送请求；失败时连接已关闭
func (c *Client) open(ctx context.Context, req host.Request) (*Connection, error) {
	conn, err := c.CreateConnection(ctx)
	if err != nil {
		return nil, err
	}
	if err := conn.Send(req); err != nil {
		conn.Close()
		return nil, err
	}
	return conn, nil
}

// roundTrip 发送请求并读取 OKAY 之后的数据
func (c *Client) roundTrip(ctx context.Context, req host.Request) ([]byte, error) {
	conn, err := c.open(ctx, req)
	if err != nil {
		return nil, err
	}
	defer conn.Close()
	return conn.ReadResponse()
}

// invalidArgument 把参数错误包装为 KindInvalidArgument
func invalidArgument(op string, err error) error {
	return &Error{Kind: KindInvalidArgument, Op: op, Err: err}
}

// Version 获取ADB服务器版本
func (c *Client) Version(ctx context.Context) (int, error) {
	req := host.Version()
	value, err := c.roundTrip(ctx, req)
	if err != nil {
		return 0, err
	}
	version, err := DecodeLength(string(value))
	if err != nil {
		return 0, classify(req.Op(), err)
	}
	return version, nil
}

// Kill 终止ADB服务器
func (c *Client) Kill(ctx context.Context) error {
	conn, err := c.open(ctx, host.Kill())
	if err != nil {
		return err
	}
	defer conn.Close()
	return conn.ReadStatus()
}

// Devices 列出所有设备
func (c *Client) Devices(ctx context.Context) ([]Device, error) {
	req := host.Devices()
	value, err := c.roundTrip(ctx, req)
	if err != nil {
		return nil, err
	}
	devices, err := parseDevices(value)
	if err != nil {
		return nil, classify(req.Op(), err)
	}
	return devices, nil
}

// DevicesLong 列出所有设备及扩展信息
func (c *Client) DevicesLong(ctx context.Context) ([]DeviceLong, error) {
	req := host.DevicesLong()
	value, err := c.roundTrip(ctx, req)
	if err != nil {
		return nil, err
	}
	devices, err := parseDevicesLong(value)
	if err != nil {
		return nil, classify(req.Op(), err)
	}
	return devices, nil
}

// Connect 连接到网络设备。服务器对连接失败同样回复 OKAY，需要检查文本
// 可能的返回值:
// - "connected to 192.168.2.2:5555"
// - "already connected to 192.168.2.2:5555"
// - "failed to connect to 192.168.2.2:5555"
func (c *Client) Connect(ctx context.Context, addr string) (string, error) {
	req, err := host.Connect(addr)
	if err != nil {
		return "", invalidArgument("host:connect", err)
	}
	value, err := c.roundTrip(ctx, req)
	if err != nil {
		return "", err
	}
	msg := strings.TrimSpace(string(value))
	if !strings.HasPrefix(msg, "connected to") && !strings.HasPrefix(msg, "already connected to") {
		return "", remoteError(req.Op(), msg)
	}
	return msg, nil
}

// Disconnect 断开网络设备
func (c *Client) Disconnect(ctx context.Context, addr string) (string, error) {
	req, err := host.Disconnect(addr)
	if err != nil {
		return "", invalidArgument("host:disconnect", err)
	}
	value, err := c.roundTrip(ctx, req)
	if err != nil {
		return "", err
	}
	msg := strings.TrimSpace(string(value))
	if !strings.HasPrefix(msg, "disconnected") {
		return "", remoteError(req.Op(), msg)
	}
	return msg, nil
}

// Pair 使用配对码与开启无线调试的设备配对。
// 参数校验失败时不会发起任何连接
func (c *Client) Pair(ctx context.Context, addr, code string) (string, error) {
	req, err := host.Pair(code, addr)
	if err != nil {
		return "", invalidArgument("host:pair", err)
	}
	value, err := c.roundTrip(ctx, req)
	if err != nil {
		return "", err
	}
	msg := strings.TrimSpace(string(value))
	if !strings.HasPrefix(msg, "Successfully paired") {
		return "", remoteError("host:pair", msg)
	}
	return msg, nil
}

// WaitForDevice 阻塞直到服务器报告有设备达到目标状态。
// 服务器先回复一次 OKAY 表示接受请求，条件满足时再回复一次
func (c *Client) WaitForDevice(ctx context.Context, transport host.Transport, state host.State) error {
	req, err := host.WaitFor(transport, state)
	if err != nil {
		return invalidArgument("host:wait-for", err)
	}
	conn, err := c.open(ctx, req)
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := conn.ReadStatus(); err != nil {
		return err
	}
	c.options.Logger.Debug("waiting for device", "transport", transport, "state", state)
	return conn.ReadStatus()
}
