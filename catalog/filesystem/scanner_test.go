package filesystem_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/shareui/packit-repo/catalog/filesystem"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirScanner_Scan(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	for _, name := range []string{
		"a.plugin", "B.ELYX", "c.eaf", "notes.txt", ".hidden.plugin",
		"Thumbs.db", "skip_me.plugin",
		"unpacked/refmap.yml", "plain/readme.md",
	} {
		writeFile(t, filepath.Join(dir, filepath.FromSlash(name)), "x")
	}

	s, err := filesystem.NewDirScanner(filesystem.WithIgnorePatterns("skip_*"))
	require.NoError(t, err)

	paths, err := s.Scan(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "B.ELYX"),
		filepath.Join(dir, "a.plugin"),
		filepath.Join(dir, "c.eaf"),
		filepath.Join(dir, "unpacked"),
	}, paths)
}

func TestDirScanner_MissingDir(t *testing.T) {
	t.Parallel()

	s, err := filesystem.NewDirScanner()
	require.NoError(t, err)
	paths, err := s.Scan(context.Background(), filepath.Join(t.TempDir(), "nope"))
	require.NoError(t, err)
	assert.Empty(t, paths)
}

func TestNewDirScanner_InvalidPattern(t *testing.T) {
	t.Parallel()

	_, err := filesystem.NewDirScanner(filesystem.WithIgnorePatterns("[unclosed"))
	assert.Error(t, err)
}

func TestIsPluginFile(t *testing.T) {
	t.Parallel()

	assert.True(t, filesystem.IsPluginFile("x.Plugin"))
	assert.True(t, filesystem.IsPluginFile("x.eaf"))
	assert.False(t, filesystem.IsPluginFile("x.plugin.bak"))
	assert.False(t, filesystem.IsPluginFile("plugin"))
}

func TestFindManifest_Precedence(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "refmap.json"), "{}")
	writeFile(t, filepath.Join(dir, "refmap.yaml"), "id: x")

	got, ok := filesystem.FindManifest(dir)
	require.True(t, ok)
	assert.Equal(t, filepath.Join(dir, "refmap.yaml"), got)
}
