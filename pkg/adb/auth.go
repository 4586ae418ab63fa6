package adb

import (
	"bytes"
	"crypto/md5"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/binary"
	"encoding/hex"
	"encoding/pem"
	"fmt"
	"math/big"
	"strings"

	"golang.org/x/crypto/ssh"
)

// PublicKey adbkey.pub 中的 RSA 公钥
type PublicKey struct {
	Key         *rsa.PublicKey
	Fingerprint string // 原始结构体的 md5，冒号分隔
	Comment     string
}

// ParsePublicKey 解析 adbkey.pub 内容: base64(RSAPublicKey 结构体) [注释]
func ParsePublicKey(data []byte) (*PublicKey, error) {
	data = bytes.TrimRight(bytes.TrimSpace(data), "\x00")
	if len(data) == 0 {
		return nil, &Error{Kind: KindInvalidArgument, Err: fmt.Errorf("empty public key")}
	}

	encoded, comment, _ := strings.Cut(string(data), " ")
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, &Error{Kind: KindInvalidArgument, Err: fmt.Errorf("decode base64: %v", err)}
	}

	key, err := parsePublicKeyStruct(raw)
	if err != nil {
		return nil, &Error{Kind: KindInvalidArgument, Err: err}
	}

	// 计算指纹
	sum := md5.Sum(raw)
	return &PublicKey{
		Key:         key,
		Fingerprint: colonHex(sum[:]),
		Comment:     strings.TrimSpace(comment),
	}, nil
}

// parsePublicKeyStruct 解析 Android 的 RSAPublicKey 结构体:
// len | n0inv | n[len] | rr[len] | exponent，全部为小端 uint32
func parsePublicKeyStruct(data []byte) (*rsa.PublicKey, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("public key too short")
	}
	words := binary.LittleEndian.Uint32(data)
	if words == 0 || words > 1024 {
		return nil, fmt.Errorf("invalid modulus size %d", words)
	}

	// 验证数据长度
	expected := 4 + 4 + int(words)*4*2 + 4
	if len(data) != expected {
		return nil, fmt.Errorf("invalid public key length %d, expected %d", len(data), expected)
	}

	offset := 8
	nBytes := make([]byte, words*4)
	copy(nBytes, data[offset:offset+int(words)*4])
	reverseBytes(nBytes) // 小端转大端
	offset += int(words) * 4 * 2

	e := binary.LittleEndian.Uint32(data[offset:])
	if e != 3 && e != 65537 {
		return nil, fmt.Errorf("invalid exponent %d, only 3 and 65537 are supported", e)
	}

	return &rsa.PublicKey{
		N: new(big.Int).SetBytes(nBytes),
		E: int(e),
	}, nil
}

// reverseBytes 反转字节序列
func reverseBytes(b []byte) {
	for i := 0; i < len(b)/2; i++ {
		j := len(b) - i - 1
		b[i], b[j] = b[j], b[i]
	}
}

func colonHex(sum []byte) string {
	parts := make([]string, len(sum))
	for i, b := range sum {
		parts[i] = hex.EncodeToString([]byte{b})
	}
	return strings.Join(parts, ":")
}

// PEM 以 PKIX PEM 格式输出
func (k *PublicKey) PEM() (string, error) {
	der, err := x509.MarshalPKIXPublicKey(k.Key)
	if err != nil {
		return "", err
	}
	return string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})), nil
}

// AuthorizedKey 以 OpenSSH authorized_keys 格式输出，附带注释
func (k *PublicKey) AuthorizedKey() (string, error) {
	pub, err := ssh.NewPublicKey(k.Key)
	if err != nil {
		return "", err
	}
	line := strings.TrimSuffix(string(ssh.MarshalAuthorizedKey(pub)), "\n")
	if k.Comment != "" {
		line += " " + k.Comment
	}
	return line, nil
}
