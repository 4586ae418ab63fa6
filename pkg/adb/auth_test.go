package adb

import (
	"crypto/md5"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/binary"
	"encoding/pem"
	"math/big"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"
)

// androidPublicKey 按 adbkey.pub 的格式编码公钥
func androidPublicKey(t *testing.T, key *rsa.PublicKey, exponent uint32) []byte {
	t.Helper()
	size := key.Size()
	words := size / 4

	n := key.N.FillBytes(make([]byte, size))
	reverseBytes(n)

	r := new(big.Int).Lsh(big.NewInt(1), uint(size*8))
	rr := new(big.Int).Exp(r, big.NewInt(2), key.N).FillBytes(make([]byte, size))
	reverseBytes(rr)

	word0 := new(big.Int).SetUint64(uint64(binary.LittleEndian.Uint32(n)))
	mod := new(big.Int).Lsh(big.NewInt(1), 32)
	n0inv := new(big.Int).Sub(mod, new(big.Int).ModInverse(word0, mod))

	buf := binary.LittleEndian.AppendUint32(nil, uint32(words))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(n0inv.Uint64()))
	buf = append(buf, n...)
	buf = append(buf, rr...)
	buf = binary.LittleEndian.AppendUint32(buf, exponent)
	return buf
}

func TestParsePublicKey(t *testing.T) {
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	raw := androidPublicKey(t, &priv.PublicKey, 65537)
	data := base64.StdEncoding.EncodeToString(raw) + " user@workstation\n"

	key, err := ParsePublicKey([]byte(data))
	require.NoError(t, err)
	assert.Equal(t, 0, key.Key.N.Cmp(priv.N))
	assert.Equal(t, 65537, key.Key.E)
	assert.Equal(t, "user@workstation", key.Comment)

	sum := md5.Sum(raw)
	assert.Len(t, key.Fingerprint, len(sum)*3-1)
	assert.Equal(t, strings.ToLower(key.Fingerprint), key.Fingerprint)
	assert.Equal(t, 15, strings.Count(key.Fingerprint, ":"))
	assert.Equal(t, colonHex(sum[:]), key.Fingerprint)

	pemText, err := key.PEM()
	require.NoError(t, err)
	block, _ := pem.Decode([]byte(pemText))
	require.NotNil(t, block)
	parsed, err := x509.ParsePKIXPublicKey(block.Bytes)
	require.NoError(t, err)
	assert.True(t, priv.PublicKey.Equal(parsed))

	line, err := key.AuthorizedKey()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(line, "ssh-rsa "))
	assert.True(t, strings.HasSuffix(line, " user@workstation"))
	sshKey, comment, _, _, err := ssh.ParseAuthorizedKey([]byte(line))
	require.NoError(t, err)
	assert.Equal(t, "user@workstation", comment)
	assert.Equal(t, "ssh-rsa", sshKey.Type())
}

func TestParsePublicKeyWithoutComment(t *testing.T) {
	priv, err := rsa.GenerateKey(rand.Reader, 1024)
	require.NoError(t, err)
	data := base64.StdEncoding.EncodeToString(androidPublicKey(t, &priv.PublicKey, 3)) + "\x00"

	key, err := ParsePublicKey([]byte(data))
	require.NoError(t, err)
	assert.Equal(t, 3, key.Key.E)
	assert.Empty(t, key.Comment)

	line, err := key.AuthorizedKey()
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(line, " "))
}

func TestParsePublicKeyRejects(t *testing.T) {
	priv, err := rsa.GenerateKey(rand.Reader, 1024)
	require.NoError(t, err)
	raw := androidPublicKey(t, &priv.PublicKey, 17)

	tests := map[string]string{
		"empty":        "",
		"not base64":   "!!!! comment",
		"bad exponent": base64.StdEncoding.EncodeToString(raw),
		"truncated":    base64.StdEncoding.EncodeToString(raw[:len(raw)-8]),
		"zero words":   base64.StdEncoding.EncodeToString(make([]byte, 16)),
	}
	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParsePublicKey([]byte(data))
			assert.ErrorIs(t, err, ErrInvalidArgument)
		})
	}
}
