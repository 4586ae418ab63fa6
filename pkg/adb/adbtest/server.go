// Package adbtest 提供测试用的假 ADB 服务器
package adbtest

import (
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"sync"
	"testing"
	"time"
)

// Handler 处理一个已读出请求的连接；返回后连接被关闭
type Handler func(c *Conn, request string)

// Server 监听 127.0.0.1 随机端口的假服务器
type Server struct {
	ln      net.Listener
	handler Handler
	wg      sync.WaitGroup

	mu       sync.Mutex
	conns    map[net.Conn]struct{}
	requests []string
	accepted int
	closed   bool
}

// NewServer 启动服务器，测试结束时自动关闭
func NewServer(t testing.TB, handler Handler) *Server {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	s := &Server{ln: ln, handler: handler, conns: make(map[net.Conn]struct{})}
	s.wg.Add(1)
	go s.serve()
	t.Cleanup(s.Close)
	return s
}

func (s *Server) serve() {
	defer s.wg.Done()
	for {
		nc, err := s.ln.Accept()
		if err != nil {
			return
		}
		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			nc.Close()
			return
		}
		s.accepted++
		s.conns[nc] = struct{}{}
		s.mu.Unlock()

		s.wg.Add(1)
		go s.handle(nc)
	}
}

func (s *Server) handle(nc net.Conn) {
	defer s.wg.Done()
	defer func() {
		nc.Close()
		s.mu.Lock()
		delete(s.conns, nc)
		s.mu.Unlock()
	}()

	c := &Conn{Conn: nc}
	req, err := c.ReadRequest()
	if err != nil {
		return
	}
	s.mu.Lock()
	s.requests = append(s.requests, req)
	s.mu.Unlock()
	s.handler(c, req)
}

// Close 停止监听并关闭所有活动连接
func (s *Server) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.ln.Close()
	for nc := range s.conns {
		nc.Close()
	}
	s.mu.Unlock()
	s.wg.Wait()
}

// Host 监听地址
func (s *Server) Host() string {
	return s.ln.Addr().(*net.TCPAddr).IP.String()
}

// Port 监听端口
func (s *Server) Port() int {
	return s.ln.Addr().(*net.TCPAddr).Port
}

// Requests 已收到的请求文本
func (s *Server) Requests() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.requests...)
}

// Accepted 已接受的连接数
func (s *Server) Accepted() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accepted
}

// Conn 服务端一侧的连接
type Conn struct {
	net.Conn
}

// ReadRequest 读取一个带长度前缀的请求
func (c *Conn) ReadRequest() (string, error) {
	var prefix [4]byte
	if _, err := io.ReadFull(c, prefix[:]); err != nil {
		return "", err
	}
	n, err := strconv.ParseUint(string(prefix[:]), 16, 16)
	if err != nil {
		return "", fmt.Errorf("bad length prefix %q", prefix[:])
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(c, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

// Okay 只发送 OKAY
func (c *Conn) Okay() error {
	return c.WriteRaw([]byte("OKAY"))
}

// OkayValue 发送 OKAY 以及一个数据块
func (c *Conn) OkayValue(payload string) error {
	if err := c.Okay(); err != nil {
		return err
	}
	return c.WriteValue(payload)
}

// Fail 发送 FAIL 以及错误文本
func (c *Conn) Fail(message string) error {
	if err := c.WriteRaw([]byte("FAIL")); err != nil {
		return err
	}
	return c.WriteValue(message)
}

// WriteValue 发送一个带长度前缀的数据块
func (c *Conn) WriteValue(payload string) error {
	return c.WriteRaw([]byte(fmt.Sprintf("%04x%s", len(payload), payload)))
}

// WriteRaw 原样写出
func (c *Conn) WriteRaw(b []byte) error {
	_, err := c.Write(b)
	return err
}

// WaitClosed 等待客户端关闭连接，超时返回 false
func (c *Conn) WaitClosed(timeout time.Duration) bool {
	c.SetReadDeadline(time.Now().Add(timeout))
	var buf [64]byte
	for {
		_, err := c.Read(buf[:])
		if err == nil {
			continue
		}
		var ne net.Error
		if errors.As(err, &ne) && ne.Timeout() {
			return false
		}
		return true
	}
}
