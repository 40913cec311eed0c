package testutil

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/slicecore/internal/domain/config"
	"github.com/felixgeelhaar/slicecore/internal/domain/model"
)

func TestWriteTempFile(t *testing.T) {
	t.Parallel()

	path := WriteTempFile(t, t.TempDir(), "a.txt", "content")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "content", string(data))
}

func TestFixtures(t *testing.T) {
	t.Parallel()

	scene, err := model.LoadScene(WriteFixture(t, "two_cubes.yaml"))
	require.NoError(t, err)
	assert.Len(t, scene.Objects, 2)

	b, err := config.Load(WriteFixture(t, "two_extruders.ini"))
	require.NoError(t, err)
	assert.True(t, b.Print.HasWipeTower())
}

func TestRunContext(t *testing.T) {
	t.Parallel()

	rc := RunContext(t)
	assert.NoError(t, rc.Err())
}
