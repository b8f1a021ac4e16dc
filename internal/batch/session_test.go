package batch

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ytdlpanel/internal/download"
	"ytdlpanel/internal/models"
)

func waitDone(t *testing.T, s *Session) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, s.Wait(ctx))
}

func TestSessionLifecycle(t *testing.T) {
	h := newHarness(t, succeed(5*time.Millisecond))
	sink := &recordingSink{}
	s := NewSession(h.orch, RunConfig{MaxConcurrency: 2}, sink)

	_, ok := s.Snapshot()
	assert.False(t, ok)

	first, err := s.Start(urls(3), models.DefaultOptions(), RunConfig{})
	require.NoError(t, err)
	assert.NotEmpty(t, first.ID)
	assert.Equal(t, 3, first.Total)
	waitDone(t, s)

	snap, ok := s.Snapshot()
	require.True(t, ok)
	assert.True(t, snap.Done)
	assert.Equal(t, 3, snap.SuccessCount)
	assert.False(t, s.Running())

	f, ok := s.File(0)
	require.True(t, ok)
	assert.Equal(t, snap.Files[0], f)
	_, ok = s.File(3)
	assert.False(t, ok)
	_, ok = s.File(-1)
	assert.False(t, ok)

	second, err := s.Start(urls(1), models.DefaultOptions(), RunConfig{})
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
	assert.NoDirExists(t, first.WorkspaceRoot)
	waitDone(t, s)

	ok, err = s.Cleanup()
	assert.True(t, ok)
	assert.NoError(t, err)
	assert.NoDirExists(t, second.WorkspaceRoot)

	ok, err = s.Cleanup()
	assert.True(t, ok)
	assert.NoError(t, err)
	_, ok = s.Snapshot()
	assert.False(t, ok)
}

func TestSessionRejectsConcurrentBatch(t *testing.T) {
	release := make(chan struct{})
	h := newHarness(t, func(ctx context.Context, req download.ExtractRequest, _ download.ProgressFunc) (download.ExtractInfo, error) {
		select {
		case <-release:
		case <-ctx.Done():
			return download.ExtractInfo{}, ctx.Err()
		}
		return download.ExtractInfo{}, produce(req, "x.mp4", 1)
	})
	s := NewSession(h.orch, RunConfig{}, nil)

	_, err := s.Start(urls(2), models.DefaultOptions(), RunConfig{})
	require.NoError(t, err)
	assert.True(t, s.Running())

	_, err = s.Start(urls(1), models.DefaultOptions(), RunConfig{})
	assert.ErrorIs(t, err, ErrBatchRunning)

	_, err = s.Cleanup()
	assert.ErrorIs(t, err, ErrBatchRunning)

	close(release)
	waitDone(t, s)
	assert.False(t, s.Running())
}

func TestSessionCancel(t *testing.T) {
	h := newHarness(t, func(ctx context.Context, _ download.ExtractRequest, _ download.ProgressFunc) (download.ExtractInfo, error) {
		<-ctx.Done()
		return download.ExtractInfo{}, ctx.Err()
	})
	s := NewSession(h.orch, RunConfig{MaxConcurrency: 1}, nil)

	assert.False(t, s.Cancel())

	_, err := s.Start(urls(4), models.DefaultOptions(), RunConfig{})
	require.NoError(t, err)
	assert.True(t, s.Cancel())
	waitDone(t, s)

	snap, ok := s.Snapshot()
	require.True(t, ok)
	assert.True(t, snap.Cancelled)
	assert.Equal(t, 4, snap.Completed)
	assert.GreaterOrEqual(t, snap.SkippedCount, 3)
	assert.False(t, s.Cancel())
}

func TestSessionClose(t *testing.T) {
	h := newHarness(t, func(ctx context.Context, _ download.ExtractRequest, _ download.ProgressFunc) (download.ExtractInfo, error) {
		<-ctx.Done()
		return download.ExtractInfo{}, ctx.Err()
	})
	s := NewSession(h.orch, RunConfig{}, nil)

	snap, err := s.Start(urls(2), models.DefaultOptions(), RunConfig{})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, s.Close(ctx))
	assert.NoDirExists(t, snap.WorkspaceRoot)
}

func TestSessionStartInvalidOptions(t *testing.T) {
	h := newHarness(t, succeed(0))
	s := NewSession(h.orch, RunConfig{}, nil)

	_, err := s.Start(urls(1), models.OptionSet{AudioCodec: "wav"}, RunConfig{})
	assert.ErrorIs(t, err, models.ErrInvalidOption)
	assert.False(t, s.Running())
}

func TestSessionRejectedStartKeepsPreviousBatch(t *testing.T) {
	h := newHarness(t, succeed(0))
	s := NewSession(h.orch, RunConfig{}, nil)

	first, err := s.Start(urls(2), models.DefaultOptions(), RunConfig{})
	require.NoError(t, err)
	waitDone(t, s)

	_, err = s.Start(urls(1), models.OptionSet{MediaMode: "hologram"}, RunConfig{})
	assert.ErrorIs(t, err, models.ErrInvalidOption)
	_, err = s.Start(nil, models.DefaultOptions(), RunConfig{})
	assert.ErrorIs(t, err, ErrNoURLs)

	assert.DirExists(t, first.WorkspaceRoot)
	snap, ok := s.Snapshot()
	require.True(t, ok)
	assert.Equal(t, first.ID, snap.ID)
	assert.Equal(t, 2, snap.SuccessCount)

	f, ok := s.File(0)
	require.True(t, ok)
	assert.FileExists(t, f.AbsolutePath)
}
