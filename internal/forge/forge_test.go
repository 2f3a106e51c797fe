package forge

import (
	"encoding/binary"
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArtifactToPath_Plain(t *testing.T) {
	got := artifactToPath("net.minecraftforge:forge:1.20.1-47.1.0")
	assert.Equal(t, "net/minecraftforge/forge/1.20.1-47.1.0/forge-1.20.1-47.1.0.jar", got)
}

func TestArtifactToPath_AlternateExtension(t *testing.T) {
	got := artifactToPath("net.minecraftforge:forge:1.20.1-47.1.0@zip")
	assert.Equal(t, "net/minecraftforge/forge/1.20.1-47.1.0/forge-1.20.1-47.1.0.zip", got)
}

func TestArtifactToPath_Suffix(t *testing.T) {
	got := artifactToPath("net.minecraftforge:forge:1.20.1-47.1.0:sources")
	assert.Equal(t, "net/minecraftforge/forge/1.20.1-47.1.0/forge-1.20.1-47.1.0-sources.jar", got)
}

func TestArtifactToPath_NotMavenCoordinate(t *testing.T) {
	assert.Equal(t, "plain-string", artifactToPath("plain-string"))
}

func TestSignatureLen(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteString("payload")
	binary.Write(&buf, binary.LittleEndian, uint32(12))
	buf.WriteString("SIGN")

	n, err := signatureLen(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, int64(20), n)
}

func TestSignatureLen_MissingFooter(t *testing.T) {
	_, err := signatureLen([]byte("nope"))
	require.Error(t, err)
}

func TestForgeInstallerURL_LegacyMinecraftVersion(t *testing.T) {
	url := forgeInstallerURL("1.7.10", "10.13.4.1614")
	assert.Contains(t, url, "1.7.10-10.13.4.1614-1.7.10")
}

func TestForgeInstallerURL_ModernMinecraftVersion(t *testing.T) {
	url := forgeInstallerURL("1.20.1", "47.1.0")
	assert.Contains(t, url, "1.20.1-47.1.0/forge-1.20.1-47.1.0-installer.jar")
}
