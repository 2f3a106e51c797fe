package mmcconfig_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Jeffail/gabs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"packsync/internal/mmcconfig"
)

func TestGenerate_WritesInstanceCfgAndPack(t *testing.T) {
	dir := t.TempDir()

	err := mmcconfig.Generate(dir, "Test Pack", "1.20.1", "forge-47.1.0")
	require.NoError(t, err)

	cfg, err := os.ReadFile(filepath.Join(dir, "instance.cfg"))
	require.NoError(t, err)
	assert.Contains(t, string(cfg), "name=Test Pack")

	raw, err := os.ReadFile(filepath.Join(dir, "mmc-pack.json"))
	require.NoError(t, err)

	parsed, err := gabs.ParseJSON(raw)
	require.NoError(t, err)

	components, err := parsed.Path("components").Children()
	require.NoError(t, err)
	require.Len(t, components, 2)
	assert.Equal(t, "net.minecraft", components[0].Path("uid").Data())
	assert.Equal(t, "1.20.1", components[0].Path("version").Data())
	assert.Equal(t, "net.minecraftforge", components[1].Path("uid").Data())
	assert.Equal(t, "47.1.0", components[1].Path("version").Data())
}

func TestGenerate_FabricLoaderUsesFabricComponent(t *testing.T) {
	dir := t.TempDir()

	err := mmcconfig.Generate(dir, "Test Pack", "1.20.1", "fabric-0.15.0")
	require.NoError(t, err)

	raw, err := os.ReadFile(filepath.Join(dir, "mmc-pack.json"))
	require.NoError(t, err)
	parsed, err := gabs.ParseJSON(raw)
	require.NoError(t, err)

	components, err := parsed.Path("components").Children()
	require.NoError(t, err)
	assert.Equal(t, "net.fabricmc.fabric-loader", components[1].Path("uid").Data())
}

func TestGenerate_UnrecognizedFamilyFails(t *testing.T) {
	dir := t.TempDir()
	err := mmcconfig.Generate(dir, "Test Pack", "1.20.1", "quilt-1.0.0")
	require.Error(t, err)
}

func TestGenerate_SkipsExistingFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, mmcconfig.Generate(dir, "Test Pack", "1.20.1", "forge-47.1.0"))

	packPath := filepath.Join(dir, "mmc-pack.json")
	before, err := os.ReadFile(packPath)
	require.NoError(t, err)

	require.NoError(t, mmcconfig.Generate(dir, "Different Name", "1.19.2", "forge-40.0.0"))

	after, err := os.ReadFile(packPath)
	require.NoError(t, err)
	assert.Equal(t, before, after, "an existing mmc-pack.json must not be overwritten")
}
