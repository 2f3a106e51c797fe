package fabric

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoaderID(t *testing.T) {
	assert.Equal(t, "fabric-loader-0.14.21-1.20.1", loaderID("1.20.1", "0.14.21"))
}

func TestIsInstalled_AbsentDirectory(t *testing.T) {
	assert.False(t, isInstalled(t.TempDir()))
}
