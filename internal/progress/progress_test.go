package progress

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewWritesRunningSnapshotAndClearsStaleCancelFlag(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, RequestCancel(dir))

	w, err := New(dir, "incremental", 10)
	require.NoError(t, err)
	require.NotNil(t, w)

	require.False(t, IsCancelRequested(dir), "New must clear a pre-existing cancel flag")

	snap, err := Read(dir)
	require.NoError(t, err)
	require.Equal(t, StatusRunning, snap.Status)
	require.Equal(t, 10, snap.Total)
	require.Equal(t, 0, snap.Processed)
}

func TestTickAccumulatesCountersAndFlushes(t *testing.T) {
	dir := t.TempDir()
	w, err := New(dir, "detail_backfill", 2)
	require.NoError(t, err)

	require.NoError(t, w.Tick(true, false, false, "/annonce/1.html"))
	require.NoError(t, w.Tick(false, true, false, "/annonce/2.html"))

	snap, err := Read(dir)
	require.NoError(t, err)
	require.Equal(t, 2, snap.Processed)
	require.Equal(t, 1, snap.Updated)
	require.Equal(t, 1, snap.Errors)
	require.Equal(t, 0, snap.Remaining)
	require.InDelta(t, 100.0, snap.ProgressPct, 1e-6)
	require.Equal(t, "/annonce/2.html", snap.CurrentItem)
}

func TestFinishCancelAbortAreSticky(t *testing.T) {
	dir := t.TempDir()
	w, err := New(dir, "history", 1)
	require.NoError(t, err)

	require.NoError(t, w.Abort("boom"))
	snap, err := Read(dir)
	require.NoError(t, err)
	require.Equal(t, StatusError, snap.Status)
	require.Equal(t, "boom", snap.ErrorMessage)

	// Once terminal, later transitions and ticks leave the record unchanged.
	require.NoError(t, w.Finish())
	require.NoError(t, w.Tick(true, false, false, "late"))
	snap, err = Read(dir)
	require.NoError(t, err)
	require.Equal(t, StatusError, snap.Status)
	require.Equal(t, 0, snap.Processed)
}

func TestRequestCancelIsObservedAndClearable(t *testing.T) {
	dir := t.TempDir()
	require.False(t, IsCancelRequested(dir))
	require.NoError(t, RequestCancel(dir))
	require.True(t, IsCancelRequested(dir))

	require.NoError(t, ClearCancelFlag(dir))
	require.False(t, IsCancelRequested(dir))
}

func TestIsJobRunningFalseWhenSnapshotStale(t *testing.T) {
	dir := t.TempDir()
	w, err := New(dir, "incremental", 1)
	require.NoError(t, err)
	require.NoError(t, w.Tick(false, false, false, "x"))

	require.True(t, IsJobRunning(dir, time.Hour))
	require.False(t, IsJobRunning(dir, 0))
}

func TestClearRemovesBothFiles(t *testing.T) {
	dir := t.TempDir()
	_, err := New(dir, "incremental", 1)
	require.NoError(t, err)
	require.NoError(t, RequestCancel(dir))

	require.NoError(t, Clear(dir))
	_, err = Read(dir)
	require.Error(t, err)
	require.False(t, IsCancelRequested(dir))
}
