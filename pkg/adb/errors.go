package adb

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"syscall"
)

// Kind 错误类别，调用方按类别决定如何恢复
type Kind uint8

const (
	KindUnknown Kind = iota
	KindIO
	KindConnectionClosed
	KindProtocol
	KindRemote
	KindInvalidArgument
	KindTimeout
	KindEncoding
)

func (k Kind) String() string {
	switch k {
	case KindIO:
		return "io error"
	case KindConnectionClosed:
		return "connection closed"
	case KindProtocol:
		return "protocol error"
	case KindRemote:
		return "remote error"
	case KindInvalidArgument:
		return "invalid argument"
	case KindTimeout:
		return "timeout"
	case KindEncoding:
		return "encoding error"
	default:
		return "unknown error"
	}
}

// Error 是本包返回的唯一错误类型
type Error struct {
	Kind    Kind
	Op      string // 触发错误的请求，例如 host:devices
	Message string // KindRemote 时为服务器原样返回的文本
	Err     error
}

// 哨兵错误，仅用于 errors.Is 按类别匹配
var (
	ErrIO               = &Error{Kind: KindIO}
	ErrConnectionClosed = &Error{Kind: KindConnectionClosed}
	ErrProtocol         = &Error{Kind: KindProtocol}
	ErrRemote           = &Error{Kind: KindRemote}
	ErrInvalidArgument  = &Error{Kind: KindInvalidArgument}
	ErrTimeout          = &Error{Kind: KindTimeout}
	ErrEncoding         = &Error{Kind: KindEncoding}
)

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is 只比较类别
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf 返回错误链中第一个 *Error 的类别
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// RemoteMessage 返回服务器 FAIL 时携带的原始文本
func RemoteMessage(err error) (string, bool) {
	var e *Error
	if errors.As(err, &e) && e.Kind == KindRemote {
		return e.Message, true
	}
	return "", false
}

func newError(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

func remoteError(op, message string) *Error {
	return &Error{Kind: KindRemote, Op: op, Message: message}
}

func protocolErrorf(op, format string, args ...interface{}) *Error {
	return &Error{Kind: KindProtocol, Op: op, Err: fmt.Errorf(format, args...)}
}

// classify 把底层网络错误归入错误类别
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		if e.Op == "" {
			e.Op = op
		}
		return e
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return newError(KindTimeout, op, err)
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return newError(KindTimeout, op, err)
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, net.ErrClosed) || errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EPIPE) || errors.Is(err, context.Canceled) {
		return newError(KindConnectionClosed, op, err)
	}
	return newError(KindIO, op, err)
}

type (
	// PrematureEOFError 数据未读满时对端关闭
	PrematureEOFError struct {
		MissingBytes int
	}

	// UnexpectedDataError 收到不符合协议的数据
	UnexpectedDataError struct {
		Unexpected string
		Expected   string
	}
)

func (e *PrematureEOFError) Error() string {
	return fmt.Sprintf("premature end of stream, needed %d more bytes", e.MissingBytes)
}

func (e *UnexpectedDataError) Error() string {
	return fmt.Sprintf("unexpected %q, was expecting %s", e.Unexpected, e.Expected)
}
