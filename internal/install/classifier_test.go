package install

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"packsync/internal/config"
	"packsync/internal/manifest"
	"packsync/internal/registry"
)

type fakeClient struct {
	registry.Client
	mods  map[int]registry.Mod
	files map[string]registry.File // key "projectID/fileID"

	downloadCalls int
}

func (f *fakeClient) GetModInfo(projectID int) (registry.Mod, error) {
	m, ok := f.mods[projectID]
	if !ok {
		return registry.Mod{}, registry.ErrNotFound
	}
	return m, nil
}

func (f *fakeClient) GetModFileInfo(modID, fileID int) (*registry.File, error) {
	key := key(modID, fileID)
	file, ok := f.files[key]
	if !ok {
		return nil, registry.ErrNotFound
	}
	return &file, nil
}

func (f *fakeClient) Download(file registry.File, baseDir string, cb registry.StatusCallback) (string, error) {
	f.downloadCalls++
	path := filepath.Join(baseDir, file.FileName)
	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, []byte("jar"), 0644); err != nil {
		return "", err
	}
	cb(registry.StatusDownloaded, file)
	return path, nil
}

func (f *fakeClient) LoadCategoryInfo(classSlugs []string, packCategorySlug string) (registry.CategoryInfo, error) {
	return testCategoryInfo(), nil
}

func (f *fakeClient) Close() error { return nil }

func key(a, b int) string {
	return fmt.Sprintf("%d/%d", a, b)
}

func testCategoryInfo() registry.CategoryInfo {
	return registry.CategoryInfo{ContentClassIDs: map[int]registry.Category{
		1: {ID: 1, Slug: "mc-mods"},
		2: {ID: 2, Slug: "worlds"},
	}}
}

func TestClassifyOne_SkipsUnrequired(t *testing.T) {
	ref := manifest.FileRef{ProjectID: 1, FileID: 1, Required: false}
	_, skip, err := classifyOne(ref, excludeIncludeIDs{Excludes: map[int]bool{}, ForceIncludes: map[int]bool{}}, &Context{}, "", config.LevelFromUnset, zap.NewNop().Sugar())
	require.NoError(t, err)
	assert.True(t, skip)
}

func TestClassifyOne_SkipsExcluded(t *testing.T) {
	ref := manifest.FileRef{ProjectID: 1, FileID: 1, Required: true}
	ids := excludeIncludeIDs{Excludes: map[int]bool{1: true}, ForceIncludes: map[int]bool{}}
	_, skip, err := classifyOne(ref, ids, &Context{}, "", config.LevelFromUnset, zap.NewNop().Sugar())
	require.NoError(t, err)
	assert.True(t, skip)
}

func TestClassifyOne_ClientOnlyModSkippedUnlessForceIncluded(t *testing.T) {
	client := &fakeClient{
		mods: map[int]registry.Mod{1: {ID: 1, Slug: "a-mod", ClassID: 1}},
		files: map[string]registry.File{
			key(1, 1): {ID: 1, ModID: 1, FileName: "a.jar", DownloadURL: "http://x/a.jar", GameVersions: []string{"client"}},
		},
	}
	ctx := &Context{Client: client, CategoryInfo: testCategoryInfo()}
	ref := manifest.FileRef{ProjectID: 1, FileID: 1, Required: true}

	_, skip, err := classifyOne(ref, excludeIncludeIDs{Excludes: map[int]bool{}, ForceIncludes: map[int]bool{}}, ctx, t.TempDir(), config.LevelFromUnset, zap.NewNop().Sugar())
	require.NoError(t, err)
	assert.True(t, skip)
	assert.Equal(t, 0, client.downloadCalls)
}

func TestClassifyOne_ClientOnlyModKeptWhenForceIncluded(t *testing.T) {
	client := &fakeClient{
		mods: map[int]registry.Mod{1: {ID: 1, Slug: "a-mod", ClassID: 1}},
		files: map[string]registry.File{
			key(1, 1): {ID: 1, ModID: 1, FileName: "a.jar", DownloadURL: "http://x/a.jar", GameVersions: []string{"client"}},
		},
	}
	ctx := &Context{Client: client, CategoryInfo: testCategoryInfo()}
	ref := manifest.FileRef{ProjectID: 1, FileID: 1, Required: true}

	pwi, skip, err := classifyOne(ref, excludeIncludeIDs{Excludes: map[int]bool{}, ForceIncludes: map[int]bool{1: true}}, ctx, t.TempDir(), config.LevelFromUnset, zap.NewNop().Sugar())
	require.NoError(t, err)
	assert.False(t, skip)
	assert.Equal(t, 1, client.downloadCalls)
	assert.Contains(t, pwi.Path, "a.jar")
}

func TestClassifyOne_ServerAndClientGameVersionsKept(t *testing.T) {
	client := &fakeClient{
		mods: map[int]registry.Mod{1: {ID: 1, Slug: "a-mod", ClassID: 1}},
		files: map[string]registry.File{
			key(1, 1): {ID: 1, ModID: 1, FileName: "a.jar", DownloadURL: "http://x/a.jar", GameVersions: []string{"server", "client"}},
		},
	}
	ctx := &Context{Client: client, CategoryInfo: testCategoryInfo()}
	ref := manifest.FileRef{ProjectID: 1, FileID: 1, Required: true}

	_, skip, err := classifyOne(ref, excludeIncludeIDs{Excludes: map[int]bool{}, ForceIncludes: map[int]bool{}}, ctx, t.TempDir(), config.LevelFromUnset, zap.NewNop().Sugar())
	require.NoError(t, err)
	assert.False(t, skip)
}

func TestClassifyOne_EmptyGameVersionsKept(t *testing.T) {
	client := &fakeClient{
		mods: map[int]registry.Mod{1: {ID: 1, Slug: "a-mod", ClassID: 1}},
		files: map[string]registry.File{
			key(1, 1): {ID: 1, ModID: 1, FileName: "a.jar", DownloadURL: "http://x/a.jar"},
		},
	}
	ctx := &Context{Client: client, CategoryInfo: testCategoryInfo()}
	ref := manifest.FileRef{ProjectID: 1, FileID: 1, Required: true}

	_, skip, err := classifyOne(ref, excludeIncludeIDs{Excludes: map[int]bool{}, ForceIncludes: map[int]bool{}}, ctx, t.TempDir(), config.LevelFromUnset, zap.NewNop().Sugar())
	require.NoError(t, err)
	assert.False(t, skip)
}

func TestClassifyOne_MissingDownloadUrlIsSkippedWithWarning(t *testing.T) {
	client := &fakeClient{
		mods: map[int]registry.Mod{1: {ID: 1, Slug: "a-mod", ClassID: 1}},
		files: map[string]registry.File{
			key(1, 1): {ID: 1, ModID: 1, FileName: "a.jar", GameVersions: []string{"server"}},
		},
	}
	ctx := &Context{Client: client, CategoryInfo: testCategoryInfo()}
	ref := manifest.FileRef{ProjectID: 1, FileID: 1, Required: true}

	_, skip, err := classifyOne(ref, excludeIncludeIDs{Excludes: map[int]bool{}, ForceIncludes: map[int]bool{}}, ctx, t.TempDir(), config.LevelFromUnset, zap.NewNop().Sugar())
	require.NoError(t, err)
	assert.True(t, skip)
	assert.Equal(t, 0, client.downloadCalls)
}

func TestDestinationFor(t *testing.T) {
	dir, isWorld, err := destinationFor("mc-mods")
	require.NoError(t, err)
	assert.Equal(t, "mods", dir)
	assert.False(t, isWorld)

	dir, isWorld, err = destinationFor("bukkit-plugins")
	require.NoError(t, err)
	assert.Equal(t, "plugins", dir)
	assert.False(t, isWorld)

	dir, isWorld, err = destinationFor("worlds")
	require.NoError(t, err)
	assert.Equal(t, "saves", dir)
	assert.True(t, isWorld)

	_, _, err = destinationFor("something-else")
	require.Error(t, err)
}
