package modcache_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"packsync/internal/modcache"
	"packsync/internal/registry"
)

type fakeClient struct {
	registry.Client
	slugToIDCalls int
	id            int
}

func (f *fakeClient) SlugToID(categoryInfo registry.CategoryInfo, slug string) (int, error) {
	f.slugToIDCalls++
	return f.id, nil
}

func TestCache_StoreThenLookup(t *testing.T) {
	c, err := modcache.Open(filepath.Join(t.TempDir(), "modcache.dat"))
	require.NoError(t, err)
	defer c.Close()

	_, found, err := c.Lookup("some-slug")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, c.Store("some-slug", 1234))

	id, found, err := c.Lookup("some-slug")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 1234, id)
}

func TestCache_StoreOverwritesPriorEntry(t *testing.T) {
	c, err := modcache.Open(filepath.Join(t.TempDir(), "modcache.dat"))
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.Store("some-slug", 1))
	require.NoError(t, c.Store("some-slug", 2))

	id, found, err := c.Lookup("some-slug")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 2, id)
}

func TestWrap_CachesSlugToIDAcrossCalls(t *testing.T) {
	c, err := modcache.Open(filepath.Join(t.TempDir(), "modcache.dat"))
	require.NoError(t, err)
	defer c.Close()

	inner := &fakeClient{id: 555}
	client := modcache.Wrap(inner, c, zap.NewNop().Sugar())

	id, err := client.SlugToID(registry.CategoryInfo{}, "a-mod")
	require.NoError(t, err)
	assert.Equal(t, 555, id)
	assert.Equal(t, 1, inner.slugToIDCalls)

	id, err = client.SlugToID(registry.CategoryInfo{}, "a-mod")
	require.NoError(t, err)
	assert.Equal(t, 555, id)
	assert.Equal(t, 1, inner.slugToIDCalls, "second lookup should be served from cache")
}

func TestWrap_DistinctSlugsEachHitUnderlyingOnce(t *testing.T) {
	c, err := modcache.Open(filepath.Join(t.TempDir(), "modcache.dat"))
	require.NoError(t, err)
	defer c.Close()

	inner := &fakeClient{id: 7}
	client := modcache.Wrap(inner, c, zap.NewNop().Sugar())

	_, err = client.SlugToID(registry.CategoryInfo{}, "mod-a")
	require.NoError(t, err)
	_, err = client.SlugToID(registry.CategoryInfo{}, "mod-b")
	require.NoError(t, err)

	assert.Equal(t, 2, inner.slugToIDCalls)
}
