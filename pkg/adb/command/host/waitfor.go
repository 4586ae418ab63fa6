package host

// Transport wait-for 命令的传输过滤
type Transport string

const (
	TransportAny   Transport = "any"
	TransportUSB   Transport = "usb"
	TransportLocal Transport = "local"
)

// State wait-for 命令等待的目标状态
type State string

const (
	StateDevice     State = "device"
	StateRecovery   State = "recovery"
	StateRescue     State = "rescue"
	StateSideload   State = "sideload"
	StateBootloader State = "bootloader"
	StateDisconnect State = "disconnect"
)

// ParseTransport 解析传输名，空字符串视为 any
func ParseTransport(s string) (Transport, error) {
	switch t := Transport(s); t {
	case "":
		return TransportAny, nil
	case TransportAny, TransportUSB, TransportLocal:
		return t, nil
	}
	return "", &ArgumentError{Arg: "transport", Value: s, Reason: "must be one of any, usb, local"}
}

// ParseState 解析目标状态名
func ParseState(s string) (State, error) {
	switch st := State(s); st {
	case StateDevice, StateRecovery, StateRescue, StateSideload, StateBootloader, StateDisconnect:
		return st, nil
	}
	return "", &ArgumentError{Arg: "state", Value: s, Reason: "unknown device state"}
}

// WaitFor host:wait-for-<transport>-<state>
func WaitFor(transport Transport, state State) (Request, error) {
	t, err := ParseTransport(string(transport))
	if err != nil {
		return Request{}, err
	}
	st, err := ParseState(string(state))
	if err != nil {
		return Request{}, err
	}
	r := newRequest(VerbWaitFor)
	r.args = []string{string(t), string(st)}
	r.raw = "host:wait-for-" + string(t) + "-" + string(st)
	r.op = r.raw
	return r, nil
}
