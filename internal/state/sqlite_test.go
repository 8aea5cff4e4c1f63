package state

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/leapstack-labs/fidgetstar/internal/engine"
	"github.com/leapstack-labs/fidgetstar/internal/testutil"
	"github.com/leapstack-labs/fidgetstar/internal/worker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store := NewSQLiteStore(testutil.NewTestLogger(t))
	require.NoError(t, store.Open(":memory:"))
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLiteStore_OpenMigrates(t *testing.T) {
	store := setupTestStore(t)
	version, err := store.MigrationVersion()
	require.NoError(t, err)
	assert.Equal(t, int64(1), version)

	// Migrating again is a no-op.
	require.NoError(t, store.Migrate())
}

func TestSQLiteStore_OpenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "history.db")
	store := NewSQLiteStore(nil)
	require.NoError(t, store.Open(path))
	require.NoError(t, store.RecordRun(context.Background(), &Run{Source: "draw(x)", Status: RunStatusSucceeded}))
	require.NoError(t, store.Close())

	reopened := NewSQLiteStore(nil)
	require.NoError(t, reopened.Open(path))
	defer reopened.Close()
	runs, err := reopened.ListRuns(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestSQLiteStore_NotOpened(t *testing.T) {
	store := NewSQLiteStore(nil)
	err := store.RecordRun(context.Background(), &Run{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database not opened")
	_, err = store.ListRuns(context.Background(), 1)
	assert.Error(t, err)
	_, err = store.GetRun(context.Background(), "x")
	assert.Error(t, err)
	assert.Error(t, store.Migrate())
	assert.NoError(t, store.Close(), "closing an unopened store is a no-op")
}

func TestSQLiteStore_RecordAndList(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	first := &Run{Name: "ring", Source: "draw(x)", Status: RunStatusSucceeded, ShapeCount: 1, Duration: 1500 * time.Microsecond, StartedAt: base}
	second := &Run{Source: "x < y", Status: RunStatusFailed, Error: "unsupported operation <", StartedAt: base.Add(time.Second)}
	require.NoError(t, store.RecordRun(ctx, first))
	require.NoError(t, store.RecordRun(ctx, second))
	assert.NotEmpty(t, first.ID)
	assert.NotEqual(t, first.ID, second.ID)

	runs, err := store.ListRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, second.ID, runs[0].ID)
	assert.Equal(t, RunStatusFailed, runs[0].Status)
	assert.Equal(t, "unsupported operation <", runs[0].Error)
	assert.Equal(t, first.ID, runs[1].ID)
	assert.Equal(t, "ring", runs[1].Name)
	assert.Equal(t, 1, runs[1].ShapeCount)
	assert.Equal(t, 1500*time.Microsecond, runs[1].Duration)
	assert.True(t, base.Equal(runs[1].StartedAt))
	assert.Empty(t, runs[1].Error)

	limited, err := store.ListRuns(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	got, err := store.GetRun(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "draw(x)", got.Source)

	_, err = store.GetRun(ctx, "missing")
	assert.Error(t, err)
}

func TestSQLiteStore_RecordsWorkerRuns(t *testing.T) {
	store := setupTestStore(t)
	w := worker.New(worker.Config{
		Settings: engine.DefaultSettings(),
		Recorder: store,
		Logger:   testutil.NewTestLogger(t),
	})
	w.Start(context.Background())
	defer w.Close()

	ctx := context.Background()
	res, err := w.SubmitFile(ctx, "two.star", "draw(x)\ndraw(y)")
	require.NoError(t, err)
	require.True(t, res.OK())
	res, err = w.Submit(ctx, "draw(")
	require.NoError(t, err)
	require.False(t, res.OK())

	runs, err := store.ListRuns(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 2)

	byStatus := map[RunStatus]*Run{}
	for _, r := range runs {
		byStatus[r.Status] = r
	}
	ok := byStatus[RunStatusSucceeded]
	require.NotNil(t, ok)
	assert.Equal(t, "two.star", ok.Name)
	assert.Equal(t, 2, ok.ShapeCount)

	failed := byStatus[RunStatusFailed]
	require.NotNil(t, failed)
	assert.Contains(t, failed.Error, "compile")
	assert.Equal(t, res.ID, failed.ID)
}

func TestRecord_MapsErrors(t *testing.T) {
	store := setupTestStore(t)
	c := worker.Completion{ID: "abc", Script: "s", Err: errors.New("boom"), StartedAt: time.Now()}
	require.NoError(t, store.Record(context.Background(), c))
	run, err := store.GetRun(context.Background(), "abc")
	require.NoError(t, err)
	assert.Equal(t, RunStatusFailed, run.Status)
	assert.Equal(t, "boom", run.Error)
}
