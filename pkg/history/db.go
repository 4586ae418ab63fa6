// Package history 把 track-devices 得到的快照和状态变化写入本地 SQLite
package history

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	_ "modernc.org/sqlite"

	"adb-host-go/pkg/adb"
)

// FileName 数据库文件名
const FileName = "history.db"

// EventType 设备事件类型
type EventType string

const (
	EventAdded   EventType = "added"
	EventChanged EventType = "changed"
	EventRemoved EventType = "removed"
)

// Event 一条设备事件
type Event struct {
	SessionID string
	Serial    string
	Type      EventType
	State     adb.DeviceState
	At        time.Time
}

// DB 设备历史数据库
type DB struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// Open 打开（不存在时创建）dir 下的历史数据库
func Open(dir string) (*DB, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "create db dir")
	}
	dbPath := filepath.Join(dir, FileName)
	sqlDB, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, errors.Wrap(err, "open db")
	}
	if _, err := sqlDB.Exec("PRAGMA journal_mode=WAL"); err != nil {
		sqlDB.Close()
		return nil, errors.Wrap(err, "set WAL mode")
	}
	h := &DB{db: sqlDB, path: dbPath, now: func() time.Time { return time.Now().UTC() }}
	if err := h.migrate(); err != nil {
		sqlDB.Close()
		return nil, err
	}
	return h, nil
}

// Close 关闭数据库
func (h *DB) Close() error {
	return h.db.Close()
}

// Path 数据库文件路径
func (h *DB) Path() string {
	return h.path
}

func (h *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		server TEXT NOT NULL,
		started_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS snapshots (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		taken_at INTEGER NOT NULL,
		device_count INTEGER NOT NULL,
		FOREIGN KEY (session_id) REFERENCES sessions(id)
	);

	CREATE TABLE IF NOT EXISTS snapshot_devices (
		snapshot_id INTEGER NOT NULL,
		serial TEXT NOT NULL,
		state TEXT NOT NULL,
		FOREIGN KEY (snapshot_id) REFERENCES snapshots(id)
	);

	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		serial TEXT NOT NULL,
		type TEXT NOT NULL,
		state TEXT NOT NULL,
		at INTEGER NOT NULL,
		FOREIGN KEY (session_id) REFERENCES sessions(id)
	);

	CREATE INDEX IF NOT EXISTS idx_events_serial ON events(serial);
	CREATE INDEX IF NOT EXISTS idx_snapshot_devices_snapshot ON snapshot_devices(snapshot_id);
	`
	if _, err := h.db.Exec(schema); err != nil {
		return errors.Wrap(err, "migrate")
	}
	return nil
}

// BeginSession 记录一次跟踪会话，返回会话 id
func (h *DB) BeginSession(ctx context.Context, server string) (string, error) {
	id := uuid.NewString()
	_, err := h.db.ExecContext(ctx,
		`INSERT INTO sessions (id, server, started_at) VALUES (?, ?, ?)`,
		id, server, h.now().UnixNano())
	if err != nil {
		return "", errors.Wrap(err, "insert session")
	}
	return id, nil
}

// RecordSnapshot 在一个事务里写入一份完整设备列表
func (h *DB) RecordSnapshot(ctx context.Context, sessionID string, devices []adb.Device) error {
	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin snapshot")
	}
	defer tx.Rollback() //nolint:errcheck

	res, err := tx.ExecContext(ctx,
		`INSERT INTO snapshots (session_id, taken_at, device_count) VALUES (?, ?, ?)`,
		sessionID, h.now().UnixNano(), len(devices))
	if err != nil {
		return errors.Wrap(err, "insert snapshot")
	}
	snapshotID, err := res.LastInsertId()
	if err != nil {
		return errors.Wrap(err, "snapshot id")
	}
	for _, d := range devices {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO snapshot_devices (snapshot_id, serial, state) VALUES (?, ?, ?)`,
			snapshotID, d.Serial, string(d.State)); err != nil {
			return errors.Wrapf(err, "insert device %s", d.Serial)
		}
	}
	return errors.Wrap(tx.Commit(), "commit snapshot")
}

// RecordChanges 把一次变化拆成逐设备事件写入
func (h *DB) RecordChanges(ctx context.Context, sessionID string, changes adb.ChangeSet) error {
	if changes.Empty() {
		return nil
	}
	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin events")
	}
	defer tx.Rollback() //nolint:errcheck

	at := h.now().UnixNano()
	insert := func(typ EventType, devices []adb.Device) error {
		for _, d := range devices {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO events (session_id, serial, type, state, at) VALUES (?, ?, ?, ?, ?)`,
				sessionID, d.Serial, string(typ), string(d.State), at); err != nil {
				return errors.Wrapf(err, "insert %s event for %s", typ, d.Serial)
			}
		}
		return nil
	}
	if err := insert(EventAdded, changes.Added); err != nil {
		return err
	}
	if err := insert(EventChanged, changes.Changed); err != nil {
		return err
	}
	if err := insert(EventRemoved, changes.Removed); err != nil {
		return err
	}
	return errors.Wrap(tx.Commit(), "commit events")
}

// Events 按时间倒序返回事件；serial 为空时返回所有设备
func (h *DB) Events(ctx context.Context, serial string, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `SELECT session_id, serial, type, state, at FROM events`
	args := []interface{}{}
	if serial != "" {
		query += ` WHERE serial = ?`
		args = append(args, serial)
	}
	query += ` ORDER BY at DESC, id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := h.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "query events")
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		var typ, state string
		var at int64
		if err := rows.Scan(&e.SessionID, &e.Serial, &typ, &state, &at); err != nil {
			return nil, errors.Wrap(err, "scan event")
		}
		e.Type = EventType(typ)
		e.State = adb.DeviceState(state)
		e.At = time.Unix(0, at).UTC()
		events = append(events, e)
	}
	return events, errors.Wrap(rows.Err(), "iterate events")
}

// LastSnapshot 返回某会话最近一次快照；sessionID 为空时不限会话。没有快照时返回 nil
func (h *DB) LastSnapshot(ctx context.Context, sessionID string) ([]adb.Device, error) {
	query := `SELECT id FROM snapshots`
	args := []interface{}{}
	if sessionID != "" {
		query += ` WHERE session_id = ?`
		args = append(args, sessionID)
	}
	query += ` ORDER BY id DESC LIMIT 1`

	var snapshotID int64
	err := h.db.QueryRowContext(ctx, query, args...).Scan(&snapshotID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "query snapshot")
	}
	rows, err := h.db.QueryContext(ctx,
		`SELECT serial, state FROM snapshot_devices WHERE snapshot_id = ? ORDER BY rowid`, snapshotID)
	if err != nil {
		return nil, errors.Wrap(err, "query snapshot devices")
	}
	defer rows.Close()

	devices := make([]adb.Device, 0)
	for rows.Next() {
		var serial, state string
		if err := rows.Scan(&serial, &state); err != nil {
			return nil, errors.Wrap(err, "scan snapshot device")
		}
		devices = append(devices, adb.Device{Serial: serial, State: adb.DeviceState(state)})
	}
	return devices, errors.Wrap(rows.Err(), "iterate snapshot devices")
}
