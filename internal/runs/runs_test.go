package runs

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/storefront/internal/core"
)

func TestFileLock_Exclusive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", ".storefront.lock")

	first, err := AcquireFile(path)
	require.NoError(t, err)

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, strconv.Itoa(os.Getpid()), strings.TrimSpace(string(b)))

	_, err = AcquireFile(path)
	assert.ErrorIs(t, err, core.ErrLockHeld)
	assert.Equal(t, core.ExitLock, core.ExitCode(core.Fail(core.KindLock, "lock", err)))

	require.NoError(t, first.Release())
	assert.NoFileExists(t, path)

	second, err := AcquireFile(path)
	require.NoError(t, err)
	require.NoError(t, second.Release())
}

func TestFileLock_StaleTakeover(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".storefront.lock")
	require.NoError(t, os.WriteFile(path, []byte("99999999\n"), 0o644))

	l, err := AcquireFile(path)
	require.NoError(t, err)
	defer l.Release()

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, strconv.Itoa(os.Getpid()), strings.TrimSpace(string(b)))
}

func TestFileLock_UnreadableHolder(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".storefront.lock")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	_, err := AcquireFile(path)
	assert.ErrorIs(t, err, core.ErrLockHeld)
}

func TestFileLock_ReleaseTwice(t *testing.T) {
	l, err := AcquireFile(filepath.Join(t.TempDir(), ".lock"))
	require.NoError(t, err)
	require.NoError(t, l.Release())
	assert.NoError(t, l.Release())
}

// fakeDB records Exec calls.
type fakeDB struct {
	sql      []string
	args     [][]interface{}
	affected int64
}

func (f *fakeDB) Exec(_ context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error) {
	f.sql = append(f.sql, sql)
	f.args = append(f.args, args)
	return pgconn.NewCommandTag("UPDATE " + strconv.FormatInt(f.affected, 10)), nil
}

func (f *fakeDB) QueryRow(context.Context, string, ...interface{}) pgx.Row {
	return noRow{}
}

type noRow struct{}

func (noRow) Scan(...any) error { return pgx.ErrNoRows }

func TestLedger_StartFinish(t *testing.T) {
	db := &fakeDB{affected: 1}
	l := NewLedger(db)
	fixed := time.Date(2024, 9, 30, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return fixed }

	id := uuid.New()
	ctx := context.Background()
	require.NoError(t, l.Start(ctx, id, "acquire"))
	require.NoError(t, l.Finish(ctx, id, StatusSucceeded, map[string]int{"partitions": 17}))

	require.Len(t, db.sql, 2)
	assert.Contains(t, db.sql[0], "INSERT INTO pipeline_runs")
	assert.Equal(t, []interface{}{id, "acquire", StatusRunning, fixed}, db.args[0])

	assert.Contains(t, db.sql[1], "UPDATE pipeline_runs")
	assert.Equal(t, id, db.args[1][0])
	assert.Equal(t, StatusSucceeded, db.args[1][1])
	var detail map[string]int
	require.NoError(t, json.Unmarshal(db.args[1][3].([]byte), &detail))
	assert.Equal(t, 17, detail["partitions"])
}

func TestLedger_FinishUnknownRun(t *testing.T) {
	l := NewLedger(&fakeDB{affected: 0})
	err := l.Finish(context.Background(), uuid.New(), StatusFailed, nil)
	assert.ErrorContains(t, err, "not found")
}

func TestLedger_LastStatusNoRows(t *testing.T) {
	status, err := NewLedger(&fakeDB{}).LastStatus(context.Background(), "normalize")
	require.NoError(t, err)
	assert.Empty(t, status)
}

func TestLedger_LockNeedsPool(t *testing.T) {
	_, err := NewLedger(&fakeDB{}).Lock(context.Background())
	assert.Error(t, err)
}
