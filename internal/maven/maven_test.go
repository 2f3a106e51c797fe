package maven

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewModule_Plain(t *testing.T) {
	m, err := NewModule("net.fabricmc:fabric-installer:0.11.2")
	require.NoError(t, err)
	assert.Equal(t, "net.fabricmc", m.GroupID)
	assert.Equal(t, "fabric-installer", m.ArtifactID)
	assert.Equal(t, "0.11.2", m.Version)
	assert.Equal(t, "jar", m.Extension)
}

func TestNewModule_ExtensionAndSuffix(t *testing.T) {
	m, err := NewModule("net.fabricmc:fabric-installer:0.11.2:sources@zip")
	require.NoError(t, err)
	assert.Equal(t, "sources", m.Suffix)
	assert.Equal(t, "zip", m.Extension)
}

func TestNewModule_MissingArtifact(t *testing.T) {
	_, err := NewModule("net.fabricmc")
	require.Error(t, err)
}

func TestRepositoryPath(t *testing.T) {
	m, _ := NewModule("net.fabricmc:fabric-installer:0.11.2")
	got, err := m.RepositoryPath("https://maven.fabricmc.net")
	require.NoError(t, err)
	assert.Equal(t, "https://maven.fabricmc.net/net/fabricmc/fabric-installer/0.11.2/fabric-installer-0.11.2.jar", got)
}

func TestRepositoryPath_MissingVersion(t *testing.T) {
	m, _ := NewModule("net.fabricmc:fabric-installer")
	_, err := m.RepositoryPath("https://maven.fabricmc.net")
	require.Error(t, err)
}
