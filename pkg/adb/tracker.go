package adb

import (
	"context"
	"errors"
	"io"
	"iter"
	"sync"

	"adb-host-go/pkg/adb/command/host"
)

// DeviceStream host:track-devices 的设备列表快照流，独占一个连接。
// 服务器每次设备变化都会推送一份完整列表；消费方按自己的节奏调用 Next
type DeviceStream struct {
	conn *Connection
	op   string

	mu   sync.Mutex
	done bool
	err  error
}

// TrackDevices 开始跟踪设备变化；返回的流必须 Close
func (c *Client) TrackDevices(ctx context.Context) (*DeviceStream, error) {
	req := host.TrackDevices()
	conn, err := c.open(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := conn.ReadStatus(); err != nil {
		conn.Close()
		return nil, err
	}
	return &DeviceStream{conn: conn, op: req.Op()}, nil
}

// Next 阻塞读取下一份快照。服务器在两帧之间关闭连接时返回 io.EOF
func (s *DeviceStream) Next() ([]Device, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done {
		return nil, s.err
	}

	value, err := s.conn.ReadValue()
	if err != nil {
		if isCleanEnd(err) {
			err = io.EOF
		}
		s.finish(err)
		return nil, err
	}
	devices, err := parseDevices(value)
	if err != nil {
		err = classify(s.op, err)
		s.finish(err)
		return nil, err
	}
	return devices, nil
}

// All 以迭代器形式消费快照；提前 break 会关闭流
func (s *DeviceStream) All() iter.Seq2[[]Device, error] {
	return func(yield func([]Device, error) bool) {
		defer s.Close()
		for {
			devices, err := s.Next()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				yield(nil, err)
				return
			}
			if !yield(devices, nil) {
				return
			}
		}
	}
}

// Close 结束跟踪并关闭连接
func (s *DeviceStream) Close() error {
	return s.conn.Close()
}

func (s *DeviceStream) finish(err error) {
	s.done = true
	s.err = err
	s.conn.Close()
}

// isCleanEnd 帧边界上（一个字节都没读到）对端关闭连接
func isCleanEnd(err error) bool {
	return KindOf(err) == KindConnectionClosed && errors.Is(err, io.EOF) && !isPremature(err)
}

// ChangeSet 相邻两份快照之间的变化
type ChangeSet struct {
	Removed []Device
	Changed []Device
	Added   []Device
}

// Empty 没有任何变化
func (cs ChangeSet) Empty() bool {
	return len(cs.Added) == 0 && len(cs.Changed) == 0 && len(cs.Removed) == 0
}

// Diff 计算从 prev 到 next 的变化，结果按 next / prev 中的顺序排列
func Diff(prev, next []Device) ChangeSet {
	changes := ChangeSet{}
	oldMap := make(map[string]Device, len(prev))
	for _, d := range prev {
		oldMap[d.Serial] = d
	}
	newMap := make(map[string]Device, len(next))

	// 检查新增和变更的设备
	for _, device := range next {
		newMap[device.Serial] = device
		if old, exists := oldMap[device.Serial]; exists {
			if old.State != device.State {
				changes.Changed = append(changes.Changed, device)
			}
		} else {
			changes.Added = append(changes.Added, device)
		}
	}

	// 检查移除的设备
	for _, device := range prev {
		if _, exists := newMap[device.Serial]; !exists {
			changes.Removed = append(changes.Removed, device)
		}
	}
	return changes
}
