package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-world/engine/streaming"
	"github.com/Carmen-Shannon/oxy-world/engine/world"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	p, err := cfg.LOD.Policy()
	require.NoError(t, err)
	assert.Equal(t, streaming.DistanceLODPolicy{BaseDistance: streaming.DefaultLODBaseDistance}, p)
	assert.True(t, cfg.Octree.Bounds().Valid())
	assert.Len(t, cfg.Octree.Options(), 2)
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Window.Title = "round trip"
	cfg.Streaming.CullWorkers = 3
	cfg.LOD.Thresholds = []float32{25, 60, 150}
	cfg.Level = LevelConfig{Name: "canyon", Heightmap: "data/canyon.hm"}

	var buf bytes.Buffer
	require.NoError(t, cfg.Encode(&buf))

	got, err := Decode(&buf)
	require.NoError(t, err)
	assert.True(t, cfg.Equal(got), "decoded %+v", got)
}

func TestDecodeKeepsDefaultsForMissingKeys(t *testing.T) {
	src := `
[window]
width = 1920

[octree]
split_threshold = 12
bounds_min = [0.0, 0.0, 0.0]
bounds_max = [1000.0, 1000.0, 1000.0]
`
	cfg, err := Decode(strings.NewReader(src))
	require.NoError(t, err)

	def := Default()
	assert.Equal(t, uint32(1920), cfg.Window.Width)
	assert.Equal(t, def.Window.Height, cfg.Window.Height)
	assert.Equal(t, def.Window.Title, cfg.Window.Title)
	assert.Equal(t, 12, cfg.Octree.SplitThreshold)
	assert.Equal(t, def.Octree.MaxDepth, cfg.Octree.MaxDepth)
	assert.Equal(t, def.Streaming, cfg.Streaming)

	lvl := cfg.StartupLevel()
	assert.Equal(t, "default", lvl.Name)
	assert.Equal(t, float32(1000), lvl.Bounds.Max.X())
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{name: "unknown key", src: "[window]\nfullscreen = true\n", want: "unknown config keys"},
		{name: "malformed", src: "[window\n", want: "failed to parse config"},
		{name: "zero window", src: "[window]\nwidth = 0\n", want: "window size"},
		{name: "tiny buffer", src: "[streaming]\ncapacity = 16\n", want: "cannot hold one instance"},
		{name: "inverted bounds", src: "[octree]\nbounds_min = [10.0, 0.0, 0.0]\nbounds_max = [0.0, 1.0, 1.0]\n", want: "octree bounds"},
		{name: "descending thresholds", src: "[lod]\nthresholds = [50.0, 20.0]\n", want: "lod thresholds"},
		{name: "negative base", src: "[lod]\nbase_distance = -1.0\n", want: "base_distance"},
		{name: "zero split threshold", src: "[octree]\nsplit_threshold = 0\n", want: "split_threshold"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(tt.src))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestValidateJoinsEveryProblem(t *testing.T) {
	cfg := Default()
	cfg.Window.Width = 0
	cfg.Octree.SplitThreshold = 0
	cfg.Streaming.CullWorkers = -1

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "window size")
	assert.Contains(t, err.Error(), "split_threshold")
	assert.Contains(t, err.Error(), "cull_workers")
}

func TestLODPolicySelection(t *testing.T) {
	table, err := LODConfig{Thresholds: []float32{10, 20}}.Policy()
	require.NoError(t, err)
	assert.IsType(t, streaming.TableLODPolicy{}, table)
	assert.Equal(t, 0, table.Select(5, 3))
	assert.Equal(t, 2, table.Select(25, 3))

	dist, err := LODConfig{BaseDistance: 16}.Policy()
	require.NoError(t, err)
	assert.Equal(t, 1, dist.Select(20, 4))
}

func TestOctreeOptionsApply(t *testing.T) {
	cfg := Default()
	cfg.Octree.SplitThreshold = 1
	cfg.Octree.MaxDepth = 2

	w := world.NewWorld(world.WithOctreeOptions(cfg.Octree.Options()...))
	require.NoError(t, w.SetActiveLevel(cfg.StartupLevel()))
	assert.Equal(t, cfg.Octree.Bounds(), w.Octree().Bounds())
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "engine.toml")
	require.NoError(t, os.WriteFile(path, []byte("[level]\nname = \"harbor\"\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "harbor", cfg.Level.Name)

	_, err = Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestWatchReloadsOnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "engine.toml")
	require.NoError(t, os.WriteFile(path, []byte("[window]\nwidth = 800\n"), 0o644))

	changes := make(chan Config, 16)
	w, err := Watch(path, func(c Config) { changes <- c })
	require.NoError(t, err)
	defer w.Close()

	// An invalid rewrite is skipped; the valid one after it is delivered.
	require.NoError(t, os.WriteFile(path, []byte("[window]\nwidth = 0\n"), 0o644))
	require.NoError(t, os.WriteFile(path, []byte("[window]\nwidth = 1024\n"), 0o644))

	deadline := time.After(5 * time.Second)
	for {
		select {
		case c := <-changes:
			if c.Window.Width == 1024 {
				require.NoError(t, w.Close())
				require.NoError(t, w.Close())
				return
			}
			assert.NotZero(t, c.Window.Width)
		case <-deadline:
			t.Fatal("no reload observed")
		}
	}
}
