package adb

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeLength(t *testing.T) {
	s, err := EncodeLength(0)
	require.NoError(t, err)
	assert.Equal(t, "0000", s)

	s, err = EncodeLength(0x0c)
	require.NoError(t, err)
	assert.Equal(t, "000C", s)

	s, err = EncodeLength(MaxPayloadLength)
	require.NoError(t, err)
	assert.Equal(t, "FFFF", s)

	_, err = EncodeLength(MaxPayloadLength + 1)
	assert.ErrorIs(t, err, ErrEncoding)
}

func TestDecodeLengthAcceptsBothCases(t *testing.T) {
	for _, s := range []string{"00ff", "00FF", "00fF"} {
		n, err := DecodeLength(s)
		require.NoError(t, err, s)
		assert.Equal(t, 255, n)
	}
}

func TestDecodeLengthRejectsNonHex(t *testing.T) {
	for _, s := range []string{"00G0", "+0FF", "-001", " 0FF", "0x1F", "12", "", "00000", "\x00\x00\x00\x00"} {
		assert.NotPanics(t, func() {
			_, err := DecodeLength(s)
			assert.ErrorIs(t, err, ErrProtocol, "%q", s)
		})
	}
}

func TestEncodeData(t *testing.T) {
	data, err := EncodeData([]byte("host:version"))
	require.NoError(t, err)
	assert.Equal(t, "000Chost:version", string(data))

	_, err = EncodeData([]byte(strings.Repeat("x", MaxPayloadLength+1)))
	assert.ErrorIs(t, err, ErrEncoding)
}
