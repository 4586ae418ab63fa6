// Package host 构造发往 ADB 服务器本身的 host: 请求。
// 请求只能通过本包的构造函数得到，参数在构造时校验。
package host

import (
	"strings"
)

// Verb host 命令动词
type Verb string

const (
	VerbVersion      Verb = "version"
	VerbKill         Verb = "kill"
	VerbDevices      Verb = "devices"
	VerbDevicesLong  Verb = "devices-l"
	VerbTrackDevices Verb = "track-devices"
	VerbServerStatus Verb = "server-status"
	VerbMdnsCheck    Verb = "mdns:check"
	VerbMdnsServices Verb = "mdns:services"
	VerbConnect      Verb = "connect"
	VerbDisconnect   Verb = "disconnect"
	VerbPair         Verb = "pair"
	VerbWaitFor      Verb = "wait-for"
)

// Request 一个已校验的 host 请求
type Request struct {
	verb Verb
	args []string
	raw  string
	op   string
}

func newRequest(verb Verb, args ...string) Request {
	var b strings.Builder
	b.WriteString("host:")
	b.WriteString(string(verb))
	for _, arg := range args {
		b.WriteByte(':')
		b.WriteString(arg)
	}
	return Request{verb: verb, args: args, raw: b.String(), op: b.String()}
}

// Verb 返回请求动词
func (r Request) Verb() Verb {
	return r.verb
}

// Args 返回请求参数的副本
func (r Request) Args() []string {
	return append([]string(nil), r.args...)
}

// String 返回线上发送的命令文本
func (r Request) String() string {
	return r.raw
}

// Op 用于错误与日志的请求名；含有机密参数的请求只给出动词
func (r Request) Op() string {
	return r.op
}

// IsZero 未通过构造函数得到的请求
func (r Request) IsZero() bool {
	return r.raw == ""
}

func Version() Request      { return newRequest(VerbVersion) }
func Kill() Request         { return newRequest(VerbKill) }
func ServerStatus() Request { return newRequest(VerbServerStatus) }
func MdnsCheck() Request    { return newRequest(VerbMdnsCheck) }
func MdnsServices() Request { return newRequest(VerbMdnsServices) }

// Connect host:connect:<host:port>
func Connect(addr string) (Request, error) {
	a, err := ParseAddress(addr)
	if err != nil {
		return Request{}, err
	}
	return newRequest(VerbConnect, a.String()), nil
}

// Disconnect host:disconnect:<host:port>
func Disconnect(addr string) (Request, error) {
	a, err := ParseAddress(addr)
	if err != nil {
		return Request{}, err
	}
	return newRequest(VerbDisconnect, a.String()), nil
}

// Pair host:pair:<code>:<host:port>
func Pair(code, addr string) (Request, error) {
	if err := ValidatePairingCode(code); err != nil {
		return Request{}, err
	}
	a, err := ParseAddress(addr)
	if err != nil {
		return Request{}, err
	}
	r := newRequest(VerbPair, code, a.String())
	r.op = "host:" + string(VerbPair)
	return r, nil
}
