package adb

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFramingRoundTrip(t *testing.T) {
	payloads := []string{
		"",
		"host:version",
		"emulator-5554\tdevice\n",
		"ünïcödé ✓",
		strings.Repeat("a", MaxPayloadLength),
	}
	for _, payload := range payloads {
		framed, err := EncodeData([]byte(payload))
		require.NoError(t, err)

		// 每次只返回一个字节，验证短读时循环读取
		p := NewParser(iotest.OneByteReader(bytes.NewReader(framed)))
		value, err := p.ReadValue()
		require.NoError(t, err)
		assert.Equal(t, payload, string(value))
	}
}

func TestReadStatus(t *testing.T) {
	p := NewParser(strings.NewReader("OKAY"))
	assert.NoError(t, p.ReadStatus())

	p = NewParser(strings.NewReader("FAIL0014device 'x' not found"))
	err := p.ReadStatus()
	require.ErrorIs(t, err, ErrRemote)
	msg, ok := RemoteMessage(err)
	require.True(t, ok)
	assert.Equal(t, "device 'x' not found", msg)
}

func TestReadStatusFailMessageIsVerbatim(t *testing.T) {
	message := "échec: appareil «introuvable»"
	framed, err := EncodeData([]byte(message))
	require.NoError(t, err)

	p := NewParser(bytes.NewReader(append([]byte("FAIL"), framed...)))
	msg, ok := RemoteMessage(p.ReadStatus())
	require.True(t, ok)
	assert.Equal(t, message, msg)
}

func TestReadStatusRejectsUnknownStatus(t *testing.T) {
	for _, status := range []string{"OKAX", "okay", "0004", "DATA"} {
		p := NewParser(strings.NewReader(status + "0000"))
		err := p.ReadStatus()
		require.ErrorIs(t, err, ErrProtocol, status)

		var unexpected *UnexpectedDataError
		require.True(t, errors.As(err, &unexpected))
		assert.Equal(t, status, unexpected.Unexpected)
	}
}

func TestShortReadIsConnectionClosed(t *testing.T) {
	p := NewParser(strings.NewReader("OK"))
	err := p.ReadStatus()
	require.ErrorIs(t, err, ErrConnectionClosed)

	var eof *PrematureEOFError
	require.True(t, errors.As(err, &eof))
	assert.Equal(t, 2, eof.MissingBytes)

	p = NewParser(strings.NewReader("000Ahost"))
	_, err = p.ReadValue()
	assert.ErrorIs(t, err, ErrConnectionClosed)
}

func TestCloseOnFrameBoundary(t *testing.T) {
	p := NewParser(strings.NewReader(""))
	_, err := p.ReadValue()
	require.ErrorIs(t, err, ErrConnectionClosed)
	assert.ErrorIs(t, err, io.EOF)
	assert.False(t, isPremature(err))

	// 前缀已读完、负载一个字节都没有，仍然是帧内关闭
	p = NewParser(strings.NewReader("0004"))
	_, err = p.ReadValue()
	require.ErrorIs(t, err, ErrConnectionClosed)
	var eof *PrematureEOFError
	require.True(t, errors.As(err, &eof))
	assert.Equal(t, 4, eof.MissingBytes)
}

func TestReadValueRejectsNonHexPrefix(t *testing.T) {
	p := NewParser(strings.NewReader("zz10whatever"))
	_, err := p.ReadValue()
	assert.ErrorIs(t, err, ErrProtocol)
}
