package storage

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gastos/internal/core"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := NewOpener().Open(context.Background(), filepath.Join(t.TempDir(), "gastos.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// stepClock returns a strictly increasing time on every call.
type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

func newStepClock() *stepClock {
	return &stepClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

func TestOpenRunsAllMigrations(t *testing.T) {
	db := openTestDB(t)

	latest, err := LatestVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(5), latest)
	assert.Equal(t, latest, db.Version())

	again, err := RunMigrations(db.Path())
	require.NoError(t, err)
	assert.Equal(t, latest, again, "rerunning is a no-op")
}

func TestOpenRejectsNewerSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gastos.db")
	db, err := NewOpener().Open(context.Background(), path)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	raw, err := sql.Open("sqlite", dsn(path))
	require.NoError(t, err)
	_, err = raw.Exec(`UPDATE schema_migrations SET version = 99`)
	require.NoError(t, err)
	require.NoError(t, raw.Close())

	_, err = RunMigrations(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "newer than this build")

	_, err = NewOpener().Open(context.Background(), path)
	assert.ErrorIs(t, err, core.ErrStorageUnavailable)

	_, err = MigrateTo(filepath.Join(t.TempDir(), "fresh.db"), 42)
	assert.Error(t, err)
}

func TestOpenIsMemoized(t *testing.T) {
	opener := NewOpener()
	path := filepath.Join(t.TempDir(), "shared.db")

	const callers = 8
	handles := make([]*DB, callers)
	errs := make([]error, callers)

	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			handles[i], errs[i] = opener.Open(context.Background(), path)
		}(i)
	}
	wg.Wait()

	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Same(t, handles[0], handles[i])
	}
	assert.Equal(t, int32(1), opener.opened.Load())

	require.NoError(t, handles[0].Close())

	reopened, err := opener.Open(context.Background(), path)
	require.NoError(t, err)
	defer reopened.Close()
	assert.NotSame(t, handles[0], reopened)
	assert.Equal(t, int32(2), opener.opened.Load())
}

func TestOpenCancelledCallerGetsContextError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	opener := NewOpener()
	path := filepath.Join(t.TempDir(), "cancel.db")

	db, err := opener.Open(ctx, path)
	if err == nil {
		// The open won the race with the cancelled wait.
		require.NoError(t, db.Close())
		return
	}
	assert.ErrorIs(t, err, context.Canceled)
}

func TestOpenUnavailable(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	_, err := NewOpener().Open(context.Background(), filepath.Join(blocker, "sub", "gastos.db"))
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrStorageUnavailable)

	var sue *core.StorageUnavailableError
	require.ErrorAs(t, err, &sue)
	assert.Equal(t, "create db directory", sue.Op)
}

func TestMigrateRefusesDown(t *testing.T) {
	db := openTestDB(t)

	_, err := MigrateTo(db.Path(), 2)
	assert.Error(t, err)
}

func TestLegacyDatesAreNormalized(t *testing.T) {
	path := filepath.Join(t.TempDir(), "legacy.db")

	v, err := MigrateTo(path, 3)
	require.NoError(t, err)
	require.Equal(t, uint(3), v)

	raw, err := sql.Open("sqlite", dsn(path))
	require.NoError(t, err)
	_, err = raw.Exec(`INSERT INTO expenses (amount, category, date, description) VALUES ('12.5', '1', '2024-11-05', 'pan')`)
	require.NoError(t, err)
	require.NoError(t, raw.Close())

	v, err = RunMigrations(path)
	require.NoError(t, err)
	assert.Equal(t, uint(5), v)

	raw, err = sql.Open("sqlite", dsn(path))
	require.NoError(t, err)
	defer raw.Close()

	var date string
	var createdAt, updatedAt sql.NullString
	require.NoError(t, raw.QueryRow(`SELECT date, created_at, updated_at FROM expenses`).Scan(&date, &createdAt, &updatedAt))

	assert.Len(t, date, len(core.TimestampLayout))
	assert.Equal(t, byte('Z'), date[len(date)-1])
	assert.True(t, createdAt.Valid)
	assert.True(t, updatedAt.Valid)

	_, err = core.ParseTimestamp(date, time.UTC)
	assert.NoError(t, err)
}
