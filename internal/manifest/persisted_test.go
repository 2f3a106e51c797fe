package manifest_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"packsync/internal/manifest"
)

func TestLoad_Missing(t *testing.T) {
	pm, err := manifest.Load(t.TempDir())
	require.NoError(t, err)
	assert.Nil(t, pm)
}

func TestSaveAndLoad_RoundTrip(t *testing.T) {
	root := t.TempDir()
	level := "saves/world"
	pm := &manifest.PersistedManifest{
		Slug:             "test-pack",
		ModID:            1,
		FileID:           2,
		MinecraftVersion: "1.20.1",
		ModLoaderID:      "forge-47.1.0",
		LevelName:        &level,
		Files:            []string{"mods/a.jar", "config/app.toml"},
	}
	require.NoError(t, manifest.Save(root, pm))

	loaded, err := manifest.Load(root)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, pm.Slug, loaded.Slug)
	assert.ElementsMatch(t, pm.Files, loaded.Files)
}

func TestLoad_StripsEmbeddedWorldEntries(t *testing.T) {
	root := t.TempDir()
	pm := &manifest.PersistedManifest{
		Files: []string{
			"mods/a.jar",
			"saves/world/level.dat",
			"saves/world/region/r.0.0.mca",
		},
	}
	require.NoError(t, manifest.Save(root, pm))

	loaded, err := manifest.Load(root)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"mods/a.jar"}, loaded.Files)
}

func TestAllFilesPresent(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "mods"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "mods", "a.jar"), []byte("x"), 0644))

	present := &manifest.PersistedManifest{Files: []string{"mods/a.jar"}}
	assert.True(t, manifest.AllFilesPresent(root, present))

	missing := &manifest.PersistedManifest{Files: []string{"mods/a.jar", "mods/b.jar"}}
	assert.False(t, manifest.AllFilesPresent(root, missing))
}

func TestCleanup_RemovesStaleFiles(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "mods"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "mods", "old.jar"), []byte("x"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "mods", "keep.jar"), []byte("x"), 0644))

	prior := &manifest.PersistedManifest{Files: []string{"mods/old.jar", "mods/keep.jar"}}
	fresh := &manifest.PersistedManifest{Files: []string{"mods/keep.jar"}}

	require.NoError(t, manifest.Cleanup(root, prior, fresh))

	_, err := os.Stat(filepath.Join(root, "mods", "old.jar"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(root, "mods", "keep.jar"))
	assert.NoError(t, err)
}
