package adb

import (
	"errors"
	"io"
)

// Parser ADB数据解析器
type Parser struct {
	stream io.Reader
}

// NewParser 创建新的解析器
func NewParser(stream io.Reader) *Parser {
	return &Parser{stream: stream}
}

// ReadAscii 读取指定长度的ASCII字符串
func (p *Parser) ReadAscii(length int) (string, error) {
	data, err := p.ReadBytes(length)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// ReadBytes 读取指定长度的字节，短读时循环直到读满或连接关闭。
// 一个字节都没读到就遇到关闭时，错误包装 io.EOF 而不是 PrematureEOFError
func (p *Parser) ReadBytes(length int) ([]byte, error) {
	if length == 0 {
		return []byte{}, nil
	}

	buffer := make([]byte, length)
	n, err := io.ReadFull(p.stream, buffer)
	if err != nil {
		if n == 0 && errors.Is(err, io.EOF) {
			return nil, &Error{Kind: KindConnectionClosed, Err: io.EOF}
		}
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, &Error{
				Kind: KindConnectionClosed,
				Err:  &PrematureEOFError{MissingBytes: length - n},
			}
		}
		return nil, err
	}
	return buffer, nil
}

// ReadLength 读取4字节十六进制长度前缀
func (p *Parser) ReadLength() (int, error) {
	lenBytes, err := p.ReadAscii(4)
	if err != nil {
		return 0, err
	}
	return DecodeLength(lenBytes)
}

// ReadValue 读取长度前缀及其后的数据；前缀之后的关闭总是 PrematureEOFError
func (p *Parser) ReadValue() ([]byte, error) {
	length, err := p.ReadLength()
	if err != nil {
		return nil, err
	}
	value, err := p.ReadBytes(length)
	if err != nil && !isPremature(err) && errors.Is(err, io.EOF) {
		return nil, &Error{
			Kind: KindConnectionClosed,
			Err:  &PrematureEOFError{MissingBytes: length},
		}
	}
	return value, err
}

func isPremature(err error) bool {
	var eof *PrematureEOFError
	return errors.As(err, &eof)
}

// ReadError 读取 FAIL 之后的错误文本
func (p *Parser) ReadError() error {
	value, err := p.ReadValue()
	if err != nil {
		return err
	}
	return &Error{Kind: KindRemote, Message: string(value)}
}

// ReadStatus 读取 OKAY / FAIL 状态字
func (p *Parser) ReadStatus() error {
	reply, err := p.ReadAscii(4)
	if err != nil {
		return err
	}
	switch reply {
	case OKAY:
		return nil
	case FAIL:
		return p.ReadError()
	default:
		return p.Unexpected([]byte(reply), "OKAY or FAIL")
	}
}

// Unexpected 生成意外数据错误
func (p *Parser) Unexpected(data []byte, expected string) error {
	return &Error{
		Kind: KindProtocol,
		Err:  &UnexpectedDataError{Unexpected: string(data), Expected: expected},
	}
}
