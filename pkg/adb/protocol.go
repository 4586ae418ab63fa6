package adb

import (
	"fmt"
)

// 协议常量
const (
	OKAY = "OKAY"
	FAIL = "FAIL"

	// MaxPayloadLength 4 位十六进制长度前缀能表示的最大值
	MaxPayloadLength = 0xFFFF
)

// EncodeLength 编码长度值（4 位大写十六进制，左补零）
func EncodeLength(length int) (string, error) {
	if length < 0 || length > MaxPayloadLength {
		return "", &Error{
			Kind: KindEncoding,
			Err:  fmt.Errorf("payload length %d exceeds %d", length, MaxPayloadLength),
		}
	}
	return fmt.Sprintf("%04X", length), nil
}

// DecodeLength 解码 4 字符十六进制长度，大小写均可
func DecodeLength(length string) (int, error) {
	if len(length) != 4 {
		return 0, &Error{
			Kind: KindProtocol,
			Err:  &UnexpectedDataError{Unexpected: length, Expected: "4 hex digits"},
		}
	}
	n := 0
	for i := 0; i < 4; i++ {
		v, ok := hexValue(length[i])
		if !ok {
			return 0, &Error{
				Kind: KindProtocol,
				Err:  &UnexpectedDataError{Unexpected: length, Expected: "4 hex digits"},
			}
		}
		n = n<<4 | v
	}
	return n, nil
}

// strconv.ParseInt 会接受 "+0FF" 这类前缀，这里逐字符校验
func hexValue(c byte) (int, bool) {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0'), true
	case c >= 'a' && c <= 'f':
		return int(c-'a') + 10, true
	case c >= 'A' && c <= 'F':
		return int(c-'A') + 10, true
	}
	return 0, false
}

// EncodeData 编码数据（添加长度前缀）
func EncodeData(data []byte) ([]byte, error) {
	prefix, err := EncodeLength(len(data))
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, 4+len(data))
	out = append(out, prefix...)
	return append(out, data...), nil
}
