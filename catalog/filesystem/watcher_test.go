package filesystem_test

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shareui/packit-repo/catalog/filesystem"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestDirWatcher_DebouncesChanges(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	batches := make(chan []string, 4)
	w := filesystem.NewDirWatcher(filesystem.WithDebounce(100*time.Millisecond), filesystem.WithWatcherLogger(newTestLogger()))

	done := make(chan error, 1)
	go func() {
		done <- w.Watch(ctx, dir, func(paths []string) { batches <- paths })
	}()

	// Let the watcher register before writing.
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.plugin"), []byte("1"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.plugin"), []byte("2"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".hidden"), []byte("3"), 0o600))

	select {
	case paths := <-batches:
		assert.Contains(t, paths, filepath.Join(dir, "a.plugin"))
		assert.Contains(t, paths, filepath.Join(dir, "b.plugin"))
		assert.NotContains(t, paths, filepath.Join(dir, ".hidden"))
	case <-time.After(5 * time.Second):
		t.Fatal("no change batch delivered")
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop")
	}
}

func TestDirWatcher_NoCallbackAfterReturn(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls atomic.Int32
	var running atomic.Bool
	started := make(chan struct{}, 1)
	w := filesystem.NewDirWatcher(filesystem.WithDebounce(50*time.Millisecond), filesystem.WithWatcherLogger(newTestLogger()))

	done := make(chan error, 1)
	go func() {
		done <- w.Watch(ctx, dir, func([]string) {
			calls.Add(1)
			running.Store(true)
			select {
			case started <- struct{}{}:
			default:
			}
			time.Sleep(200 * time.Millisecond)
			running.Store(false)
		})
	}()

	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.plugin"), []byte("1"), 0o600))

	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("no change batch delivered")
	}
	// A change pending its debounce when the context ends must not fire.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.plugin"), []byte("2"), 0o600))
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop")
	}
	assert.False(t, running.Load(), "callback still running after Watch returned")
	after := calls.Load()

	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, after, calls.Load(), "callback started after Watch returned")
}

func TestDirWatcher_MissingDir(t *testing.T) {
	t.Parallel()
	err := filesystem.NewDirWatcher().Watch(context.Background(), filepath.Join(t.TempDir(), "nope"), func([]string) {})
	assert.Error(t, err)
}
