// Package config loads the engine configuration from a TOML file and keeps it current while the
// file changes on disk.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/Carmen-Shannon/oxy-world/common"
	"github.com/Carmen-Shannon/oxy-world/engine/streaming"
	"github.com/Carmen-Shannon/oxy-world/engine/world"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/pelletier/go-toml/v2"
)

// Config is the engine configuration.
type Config struct {
	Window    WindowConfig    `toml:"window"`
	Streaming StreamingConfig `toml:"streaming"`
	Octree    OctreeConfig    `toml:"octree"`
	LOD       LODConfig       `toml:"lod"`
	Level     LevelConfig     `toml:"level"`
}

// WindowConfig holds the initial window settings.
type WindowConfig struct {
	Title  string `toml:"title"`
	Width  uint32 `toml:"width"`
	Height uint32 `toml:"height"`
}

// StreamingConfig holds the per-frame streaming settings.
type StreamingConfig struct {
	// Capacity is the instance buffer size in bytes.
	Capacity uint64 `toml:"capacity"`
	// CullWorkers is the number of frustum culling workers, 0 for one per CPU.
	CullWorkers int `toml:"cull_workers"`
}

// OctreeConfig holds the spatial index settings of every level.
type OctreeConfig struct {
	SplitThreshold int        `toml:"split_threshold"`
	MaxDepth       int        `toml:"max_depth"`
	BoundsMin      [3]float32 `toml:"bounds_min"`
	BoundsMax      [3]float32 `toml:"bounds_max"`
}

// LODConfig selects the LOD policy. Non-empty Thresholds select a table policy, otherwise one
// level is dropped per doubling of distance past BaseDistance.
type LODConfig struct {
	BaseDistance float32   `toml:"base_distance"`
	Thresholds   []float32 `toml:"thresholds,omitempty"`
}

// LevelConfig names the level loaded at startup.
type LevelConfig struct {
	Name      string `toml:"name"`
	Heightmap string `toml:"heightmap,omitempty"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Window: WindowConfig{
			Title:  "oxy-world",
			Width:  1280,
			Height: 720,
		},
		Streaming: StreamingConfig{
			Capacity: streaming.DefaultStreamingCapacity,
		},
		Octree: OctreeConfig{
			SplitThreshold: 8,
			MaxDepth:       8,
			BoundsMin:      [3]float32{-4096, -1024, -4096},
			BoundsMax:      [3]float32{4096, 1024, 4096},
		},
		LOD: LODConfig{
			BaseDistance: streaming.DefaultLODBaseDistance,
		},
		Level: LevelConfig{
			Name: "default",
		},
	}
}

// Load reads a configuration file. Keys missing from the file keep their Default values.
//
// Parameters:
//   - path: the TOML file
//
// Returns:
//   - Config: the loaded configuration
//   - error: error if the file cannot be read, has unknown keys, or fails validation
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config: %w", err)
	}
	cfg, err := Decode(bytes.NewReader(data))
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Decode parses a configuration over the defaults and validates it.
//
// Parameters:
//   - r: the TOML source
//
// Returns:
//   - Config: the decoded configuration
//   - error: error on malformed TOML, unknown keys or invalid values
func Decode(r io.Reader) (Config, error) {
	cfg := Default()
	dec := toml.NewDecoder(r).DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return Config{}, fmt.Errorf("unknown config keys:\n%s", strict.String())
		}
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Encode writes the configuration as TOML.
func (c Config) Encode(w io.Writer) error {
	return toml.NewEncoder(w).SetIndentTables(true).Encode(c)
}

// Validate reports every invalid value, joined.
func (c Config) Validate() error {
	var errs []error
	if c.Window.Width == 0 || c.Window.Height == 0 {
		errs = append(errs, fmt.Errorf("window size %dx%d must be positive", c.Window.Width, c.Window.Height))
	}
	if c.Streaming.Capacity < uint64(common.Mat4Size) {
		errs = append(errs, fmt.Errorf("streaming capacity %d cannot hold one instance", c.Streaming.Capacity))
	}
	if c.Streaming.CullWorkers < 0 {
		errs = append(errs, fmt.Errorf("cull_workers %d is negative", c.Streaming.CullWorkers))
	}
	if c.Octree.SplitThreshold < 1 {
		errs = append(errs, fmt.Errorf("octree split_threshold %d must be at least 1", c.Octree.SplitThreshold))
	}
	if c.Octree.MaxDepth < 0 {
		errs = append(errs, fmt.Errorf("octree max_depth %d is negative", c.Octree.MaxDepth))
	}
	if !c.Octree.Bounds().Valid() {
		errs = append(errs, fmt.Errorf("octree bounds %v..%v are empty or inverted", c.Octree.BoundsMin, c.Octree.BoundsMax))
	}
	if _, err := c.LOD.Policy(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Bounds returns the level bounds as an AABB.
func (o OctreeConfig) Bounds() common.AABB {
	return common.AABB{Min: mgl32.Vec3(o.BoundsMin), Max: mgl32.Vec3(o.BoundsMax)}
}

// Options returns the octree builder options.
func (o OctreeConfig) Options() []world.OctreeBuilderOption {
	return []world.OctreeBuilderOption{
		world.WithSplitThreshold(o.SplitThreshold),
		world.WithMaxDepth(o.MaxDepth),
	}
}

// Policy builds the configured LOD policy.
//
// Returns:
//   - streaming.LODPolicy: the policy
//   - error: error if the thresholds are not strictly ascending and positive, or the base distance is negative
func (l LODConfig) Policy() (streaming.LODPolicy, error) {
	if len(l.Thresholds) > 0 {
		p, err := streaming.NewTableLODPolicy(l.Thresholds...)
		if err != nil {
			return nil, fmt.Errorf("lod thresholds: %w", err)
		}
		return p, nil
	}
	if l.BaseDistance < 0 {
		return nil, fmt.Errorf("lod base_distance %v is negative", l.BaseDistance)
	}
	return streaming.DistanceLODPolicy{BaseDistance: l.BaseDistance}, nil
}

// StartupLevel returns the description of the level loaded at startup.
func (c Config) StartupLevel() world.Level {
	return world.Level{
		Name:          c.Level.Name,
		Bounds:        c.Octree.Bounds(),
		HeightmapPath: c.Level.Heightmap,
	}
}

// Equal reports whether two configurations hold the same values.
func (c Config) Equal(other Config) bool {
	return c.Window == other.Window &&
		c.Streaming == other.Streaming &&
		c.Octree == other.Octree &&
		c.Level == other.Level &&
		c.LOD.BaseDistance == other.LOD.BaseDistance &&
		slices.Equal(c.LOD.Thresholds, other.LOD.Thresholds)
}
