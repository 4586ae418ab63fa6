package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"adb-host-go/pkg/adb"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	clock := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	db.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	return db
}

func TestOpenCreatesDatabase(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested")
	db, err := Open(dir)
	require.NoError(t, err)
	defer db.Close()
	assert.Equal(t, filepath.Join(dir, FileName), db.Path())

	// 重复打开时迁移是幂等的
	db2, err := Open(dir)
	require.NoError(t, err)
	db2.Close()
}

func TestSnapshots(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	session, err := db.BeginSession(ctx, "127.0.0.1:5037")
	require.NoError(t, err)
	_, err = uuid.Parse(session)
	require.NoError(t, err)

	devices, err := db.LastSnapshot(ctx, session)
	require.NoError(t, err)
	assert.Nil(t, devices)

	first := []adb.Device{{Serial: "emulator-5554", State: adb.StateOffline}}
	second := []adb.Device{
		{Serial: "emulator-5554", State: adb.StateDevice},
		{Serial: "R58M12345", State: adb.StateUnauthorized},
	}
	require.NoError(t, db.RecordSnapshot(ctx, session, first))
	require.NoError(t, db.RecordSnapshot(ctx, session, second))

	devices, err = db.LastSnapshot(ctx, session)
	require.NoError(t, err)
	assert.Equal(t, second, devices)

	require.NoError(t, db.RecordSnapshot(ctx, session, nil))
	devices, err = db.LastSnapshot(ctx, session)
	require.NoError(t, err)
	assert.Empty(t, devices)
	assert.NotNil(t, devices)
}

func TestLastSnapshotAcrossSessions(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	devices, err := db.LastSnapshot(ctx, "")
	require.NoError(t, err)
	assert.Nil(t, devices)

	older, err := db.BeginSession(ctx, "127.0.0.1:5037")
	require.NoError(t, err)
	newer, err := db.BeginSession(ctx, "127.0.0.1:5037")
	require.NoError(t, err)

	olderList := []adb.Device{{Serial: "emulator-5554", State: adb.StateDevice}}
	newerList := []adb.Device{{Serial: "R58M12345", State: adb.StateRecovery}}
	require.NoError(t, db.RecordSnapshot(ctx, older, olderList))
	require.NoError(t, db.RecordSnapshot(ctx, newer, newerList))

	devices, err = db.LastSnapshot(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, newerList, devices)

	devices, err = db.LastSnapshot(ctx, older)
	require.NoError(t, err)
	assert.Equal(t, olderList, devices)
}

func TestEvents(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	session, err := db.BeginSession(ctx, "127.0.0.1:5037")
	require.NoError(t, err)

	var prev []adb.Device
	for _, next := range [][]adb.Device{
		{{Serial: "emulator-5554", State: adb.StateOffline}},
		{{Serial: "emulator-5554", State: adb.StateDevice}, {Serial: "R58M12345", State: adb.StateDevice}},
		{{Serial: "R58M12345", State: adb.StateDevice}},
	} {
		require.NoError(t, db.RecordChanges(ctx, session, adb.Diff(prev, next)))
		prev = next
	}
	require.NoError(t, db.RecordChanges(ctx, session, adb.ChangeSet{}))

	events, err := db.Events(ctx, "emulator-5554", 0)
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, EventRemoved, events[0].Type)
	assert.Equal(t, EventChanged, events[1].Type)
	assert.Equal(t, adb.StateDevice, events[1].State)
	assert.Equal(t, EventAdded, events[2].Type)
	assert.Equal(t, adb.StateOffline, events[2].State)
	assert.True(t, events[0].At.After(events[2].At))
	for _, e := range events {
		assert.Equal(t, session, e.SessionID)
	}

	all, err := db.Events(ctx, "", 0)
	require.NoError(t, err)
	assert.Len(t, all, 4)

	limited, err := db.Events(ctx, "", 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, "emulator-5554", limited[0].Serial)
	assert.Equal(t, EventRemoved, limited[0].Type)
}
