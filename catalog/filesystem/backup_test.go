package filesystem_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shareui/packit-repo/catalog/filesystem"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock() time.Time {
	return time.Date(2026, 10, 14, 12, 30, 5, 0, time.UTC)
}

func TestFileBackupSink(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	catalogPath := filepath.Join(dir, "plugins.json")
	backupDir := filepath.Join(dir, "backups")
	sink := filesystem.NewFileBackupSink().WithClock(fixedClock)
	ctx := context.Background()

	t.Run("missing source is a no-op", func(t *testing.T) {
		got, err := sink.CreateBackup(ctx, filepath.Join(dir, "absent.json"), backupDir, true)
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	writeFile(t, catalogPath, `{"plugins":[]}`)

	t.Run("disabled", func(t *testing.T) {
		got, err := sink.CreateBackup(ctx, catalogPath, backupDir, false)
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("timestamped copies", func(t *testing.T) {
		first, err := sink.CreateBackup(ctx, catalogPath, backupDir, true)
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(backupDir, "plugins_20261014_123005.json"), first)

		content, err := os.ReadFile(first)
		require.NoError(t, err)
		assert.Equal(t, `{"plugins":[]}`, string(content))

		second, err := sink.CreateBackup(ctx, catalogPath, backupDir, true)
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(backupDir, "plugins_20261014_123005_1.json"), second)
	})
}
