package archive_test

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"packsync/internal/archive"
)

type zipEntry struct {
	name  string
	body  string
	isDir bool
}

func buildZip(t *testing.T, path string, entries []zipEntry) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	w := zip.NewWriter(f)
	for _, e := range entries {
		name := e.name
		if e.isDir && name[len(name)-1] != '/' {
			name += "/"
		}
		hdr := &zip.FileHeader{Name: name}
		if e.isDir {
			hdr.SetMode(os.ModeDir | 0755)
		} else {
			hdr.SetMode(0644)
		}
		fw, err := w.CreateHeader(hdr)
		require.NoError(t, err)
		if !e.isDir {
			_, err = fw.Write([]byte(e.body))
			require.NoError(t, err)
		}
	}
	require.NoError(t, w.Close())
}

func TestApplyOverrides_Basic(t *testing.T) {
	dir := t.TempDir()
	zipPath := filepath.Join(dir, "pack.zip")
	buildZip(t, zipPath, []zipEntry{
		{name: "overrides/config/app.toml", body: "key=1"},
		{name: "manifest.json", body: "{}"},
	})

	a, err := archive.Open(zipPath)
	require.NoError(t, err)
	defer a.Close()

	outRoot := t.TempDir()
	result, err := archive.ApplyOverrides(a, outRoot, "overrides", archive.LevelFromUnset, false, zap.NewNop().Sugar())
	require.NoError(t, err)
	assert.Len(t, result.Paths, 1)
	assert.Nil(t, result.LevelName)

	data, err := os.ReadFile(filepath.Join(outRoot, "config", "app.toml"))
	require.NoError(t, err)
	assert.Equal(t, "key=1", string(data))
}

func TestApplyOverrides_PreservesExistingWorldDir(t *testing.T) {
	dir := t.TempDir()
	zipPath := filepath.Join(dir, "pack.zip")
	buildZip(t, zipPath, []zipEntry{
		{name: "overrides/world/level.dat", body: "binary-level-data"},
		{name: "overrides/world/region/r.0.0.mca", body: "region-data"},
		{name: "overrides/config/app.toml", body: "key=1"},
	})

	outRoot := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(outRoot, "world"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(outRoot, "world", "level.dat"), []byte("operator-save"), 0644))

	a, err := archive.Open(zipPath)
	require.NoError(t, err)
	defer a.Close()

	result, err := archive.ApplyOverrides(a, outRoot, "overrides", archive.LevelFromOverrides, false, zap.NewNop().Sugar())
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(outRoot, "world", "level.dat"))
	require.NoError(t, err)
	assert.Equal(t, "operator-save", string(data), "existing world data must not be overwritten")

	for _, p := range result.Paths {
		assert.NotContains(t, p, filepath.Join(outRoot, "world"), "world entries must not be tracked")
	}
	require.NotNil(t, result.LevelName)
	assert.Equal(t, "world", *result.LevelName)
}

func TestExtractWorld_FlattensTopDir(t *testing.T) {
	dir := t.TempDir()
	zipPath := filepath.Join(dir, "world.zip")
	buildZip(t, zipPath, []zipEntry{
		{name: "mypack_world/", isDir: true},
		{name: "mypack_world/level.dat", body: "level"},
		{name: "mypack_world/region/r.0.0.mca", body: "region"},
	})

	target := filepath.Join(t.TempDir(), "saves", "my-slug")
	extracted, err := archive.ExtractWorld(zipPath, target)
	require.NoError(t, err)
	assert.True(t, extracted)

	data, err := os.ReadFile(filepath.Join(target, "level.dat"))
	require.NoError(t, err)
	assert.Equal(t, "level", string(data))
}

func TestExtractWorld_SkipsIfTargetExists(t *testing.T) {
	dir := t.TempDir()
	zipPath := filepath.Join(dir, "world.zip")
	buildZip(t, zipPath, []zipEntry{
		{name: "mypack_world/", isDir: true},
		{name: "mypack_world/level.dat", body: "level"},
	})

	target := filepath.Join(t.TempDir(), "saves", "my-slug")
	require.NoError(t, os.MkdirAll(target, 0755))

	extracted, err := archive.ExtractWorld(zipPath, target)
	require.NoError(t, err)
	assert.False(t, extracted)
}

func TestExtractWorld_FailsWithoutLeadingDirEntry(t *testing.T) {
	dir := t.TempDir()
	zipPath := filepath.Join(dir, "world.zip")
	buildZip(t, zipPath, []zipEntry{
		{name: "level.dat", body: "level"},
	})

	target := filepath.Join(t.TempDir(), "saves", "my-slug")
	_, err := archive.ExtractWorld(zipPath, target)
	require.Error(t, err)
}
