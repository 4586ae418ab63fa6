package adb

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"sync"
	"time"

	"adb-host-go/pkg/adb/command/host"
)

// Dialer 建立到 ADB 服务器的 TCP 连接，*net.Dialer 满足该接口
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// Connection 单个请求（或一个流式请求）独占的 ADB 连接
type Connection struct {
	socket      net.Conn
	parser      *Parser
	writer      io.Writer
	readTimeout time.Duration
	logger      *slog.Logger
	op          string

	ctx       context.Context
	stopWatch func() bool

	mu        sync.Mutex
	cancelled bool
	closed    bool
}

// dialConnection 连接服务器并把连接绑定到 ctx，ctx 结束时阻塞中的读写立即返回
func dialConnection(ctx context.Context, options *Options) (*Connection, error) {
	addr := options.Address()
	dialCtx := ctx
	if options.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, options.ConnectTimeout)
		defer cancel()
	}

	socket, err := options.Dialer.DialContext(dialCtx, "tcp", addr)
	if err != nil {
		if ctxErr := dialCtx.Err(); ctxErr != nil {
			err = ctxErr
		}
		return nil, classify("dial "+addr, err)
	}

	// 设置TCP选项
	if tcpConn, ok := socket.(*net.TCPConn); ok {
		tcpConn.SetNoDelay(true)
	}

	var reader io.Reader = socket
	var writer io.Writer = socket
	if options.Dump != nil {
		reader = NewDumpReader(socket, options.Dump)
		writer = NewDumpWriter(socket, options.Dump)
	}

	c := &Connection{
		socket:      socket,
		parser:      NewParser(reader),
		writer:      writer,
		readTimeout: options.ReadTimeout,
		logger:      options.Logger,
		ctx:         ctx,
	}
	c.stopWatch = context.AfterFunc(ctx, c.interrupt)
	return c, nil
}

// interrupt 让阻塞中的读写立刻超时返回
func (c *Connection) interrupt() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancelled = true
	if !c.closed {
		c.socket.SetDeadline(time.Unix(1, 0))
	}
}

// armRead 为下一次读取设置截止时间；ctx 已结束时不再覆盖 interrupt 设置的截止时间
func (c *Connection) armRead() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancelled {
		return c.ctx.Err()
	}
	if c.readTimeout > 0 {
		return c.socket.SetReadDeadline(time.Now().Add(c.readTimeout))
	}
	return nil
}

// fail 把读写错误归类；interrupt 造成的超时或关闭按 ctx 的原因归类，
// 在此之前已经收到的协议错误保持原样
func (c *Connection) fail(err error) error {
	if err == nil {
		return nil
	}
	if ctxErr := c.ctx.Err(); ctxErr != nil && interrupted(err) {
		err = ctxErr
	}
	return classify(c.op, err)
}

func interrupted(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, net.ErrClosed) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// Send 发送一个带长度前缀的请求。错误与日志中只出现 req.Op()
func (c *Connection) Send(req host.Request) error {
	c.op = req.Op()
	data, err := EncodeData([]byte(req.String()))
	if err != nil {
		return classify(c.op, err)
	}
	c.logger.Debug("adb request", "op", c.op, "server", c.RemoteAddress())

	c.mu.Lock()
	cancelled := c.cancelled
	c.mu.Unlock()
	if cancelled {
		return c.fail(c.ctx.Err())
	}
	if err := writeFull(c.writer, data); err != nil {
		return c.fail(err)
	}
	return nil
}

// writeFull 循环写入直到全部写出
func writeFull(w io.Writer, data []byte) error {
	for len(data) > 0 {
		n, err := w.Write(data)
		if err != nil {
			return err
		}
		if n == 0 {
			return io.ErrShortWrite
		}
		data = data[n:]
	}
	return nil
}

// ReadStatus 读取 OKAY / FAIL
func (c *Connection) ReadStatus() error {
	if err := c.armRead(); err != nil {
		return c.fail(err)
	}
	if err := c.parser.ReadStatus(); err != nil {
		return c.fail(err)
	}
	return nil
}

// ReadValue 读取一个长度前缀的数据块
func (c *Connection) ReadValue() ([]byte, error) {
	if err := c.armRead(); err != nil {
		return nil, c.fail(err)
	}
	value, err := c.parser.ReadValue()
	if err != nil {
		return nil, c.fail(err)
	}
	return value, nil
}

// ReadResponse 读取状态以及 OKAY 之后的数据
func (c *Connection) ReadResponse() ([]byte, error) {
	if err := c.ReadStatus(); err != nil {
		return nil, err
	}
	value, err := c.ReadValue()
	if err != nil {
		return nil, err
	}
	c.logger.Debug("adb response", "op", c.op, "bytes", len(value))
	return value, nil
}

// Close 关闭连接，可重复调用
func (c *Connection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	if c.stopWatch != nil {
		c.stopWatch()
	}
	return c.socket.Close()
}

// RemoteAddress 获取远程地址
func (c *Connection) RemoteAddress() string {
	if c.socket == nil || c.socket.RemoteAddr() == nil {
		return ""
	}
	return c.socket.RemoteAddr().String()
}
