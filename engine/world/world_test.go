package world

import (
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorldWithoutLevel(t *testing.T) {
	w := NewWorld()

	_, ok := w.ActiveLevel()
	assert.False(t, ok)
	assert.Nil(t, w.Octree())
	assert.Nil(t, w.ActiveLevelData())
	assert.ErrorIs(t, w.LoadObjects(boxObject(1, 0, mgl32.Vec3{1, 1, 1}, 1)), ErrNoActiveLevel)
}

func TestWorldSetActiveLevelReplacesData(t *testing.T) {
	w := NewWorld(WithOctreeOptions(WithSplitThreshold(2)))

	require.NoError(t, w.SetActiveLevel(Level{Name: "first", Bounds: worldBounds}))
	require.NoError(t, w.LoadObjects(
		boxObject(1, 0, mgl32.Vec3{10, 10, 10}, 1),
		boxObject(2, 0, mgl32.Vec3{20, 10, 10}, 1),
		boxObject(3, 0, mgl32.Vec3{900, 10, 10}, 1),
	))
	first := w.Octree()
	assert.Equal(t, 3, first.Len())
	assert.Positive(t, first.Depth())

	require.NoError(t, w.SetActiveLevel(Level{Name: "second", Bounds: worldBounds}))
	level, ok := w.ActiveLevel()
	require.True(t, ok)
	assert.Equal(t, "second", level.Name)
	assert.NotSame(t, first, w.Octree())
	assert.Zero(t, w.Octree().Len())

	w.UnloadLevel()
	assert.Nil(t, w.Octree())
}

func TestWorldLoadObjectsJoinsErrors(t *testing.T) {
	w := NewWorld()
	require.NoError(t, w.SetActiveLevel(Level{Name: "test", Bounds: worldBounds}))

	err := w.LoadObjects(
		boxObject(1, 0, mgl32.Vec3{10, 10, 10}, 1),
		boxObject(1, 0, mgl32.Vec3{20, 20, 20}, 1),
		boxObject(2, 0, mgl32.Vec3{-50, 0, 0}, 1),
		boxObject(3, 0, mgl32.Vec3{30, 30, 30}, 1),
	)
	assert.ErrorIs(t, err, ErrDuplicateObject)
	assert.ErrorIs(t, err, ErrOutOfBounds)
	assert.Equal(t, []ObjectID{1, 3}, ids(slices.Collect(w.Octree().Query(worldBounds))))
}

func TestWorldLoadsHeightmap(t *testing.T) {
	path := filepath.Join(t.TempDir(), "heightmap.hmp")
	require.NoError(t, os.WriteFile(path, sequentialHeightmap(), 0o644))

	w := NewWorld()
	require.NoError(t, w.SetActiveLevel(Level{Name: "terrain", Bounds: worldBounds, HeightmapPath: path}))
	data := w.ActiveLevelData()
	require.NotNil(t, data)
	require.NotNil(t, data.Heightmap)
	assert.Equal(t, uint16(1), data.Heightmap.At(1, 0))
}

func TestWorldSetActiveLevelFailureKeepsPrevious(t *testing.T) {
	w := NewWorld()
	require.NoError(t, w.SetActiveLevel(Level{Name: "good", Bounds: worldBounds}))

	err := w.SetActiveLevel(Level{Name: "bad", Bounds: worldBounds, HeightmapPath: filepath.Join(t.TempDir(), "nope.hmp")})
	assert.Error(t, err)
	level, _ := w.ActiveLevel()
	assert.Equal(t, "good", level.Name)

	invalid := worldBounds
	invalid.Min, invalid.Max = invalid.Max, invalid.Min
	assert.Error(t, w.SetActiveLevel(Level{Name: "inverted", Bounds: invalid}))
}
