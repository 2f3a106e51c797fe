package install

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"packsync/internal/manifest"
)

func TestDecide_NoPrior(t *testing.T) {
	got := decide(nil, "my-pack", 1, 2, t.TempDir(), false)
	assert.Equal(t, decisionFullInstall, got)
}

func TestDecide_MatchingAndAllFilesPresent_FinalizesExisting(t *testing.T) {
	root := t.TempDir()
	os.MkdirAll(filepath.Join(root, "mods"), 0700)
	os.WriteFile(filepath.Join(root, "mods", "a.jar"), []byte("x"), 0644)

	prior := &manifest.PersistedManifest{Slug: "my-pack", ModID: 1, FileID: 2, Files: []string{"mods/a.jar"}}
	got := decide(prior, "my-pack", 1, 2, root, false)
	assert.Equal(t, decisionFinalizeExisting, got)
}

func TestDecide_ForceSyncOverridesShortCircuit(t *testing.T) {
	root := t.TempDir()
	os.MkdirAll(filepath.Join(root, "mods"), 0700)
	os.WriteFile(filepath.Join(root, "mods", "a.jar"), []byte("x"), 0644)

	prior := &manifest.PersistedManifest{Slug: "my-pack", ModID: 1, FileID: 2, Files: []string{"mods/a.jar"}}
	got := decide(prior, "my-pack", 1, 2, root, true)
	assert.Equal(t, decisionFullInstall, got)
}

func TestDecide_MissingFileForcesReinstall(t *testing.T) {
	root := t.TempDir()
	prior := &manifest.PersistedManifest{Slug: "my-pack", ModID: 1, FileID: 2, Files: []string{"mods/missing.jar"}}
	got := decide(prior, "my-pack", 1, 2, root, false)
	assert.Equal(t, decisionFullInstall, got)
}

func TestDecide_DifferentFileIdForcesReinstall(t *testing.T) {
	root := t.TempDir()
	prior := &manifest.PersistedManifest{Slug: "my-pack", ModID: 1, FileID: 2, Files: nil}
	got := decide(prior, "my-pack", 1, 99, root, false)
	assert.Equal(t, decisionFullInstall, got)
}

func TestDecide_MatchesBySlugWhenModIdDiffers(t *testing.T) {
	root := t.TempDir()
	prior := &manifest.PersistedManifest{Slug: "my-pack", ModID: 999, FileID: 2, Files: nil}
	got := decide(prior, "my-pack", 1, 2, root, false)
	assert.Equal(t, decisionFinalizeExisting, got)
}
