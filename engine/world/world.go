package world

import (
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/Carmen-Shannon/oxy-world/common"
)

// ErrNoActiveLevel is returned by operations that need an active level when none is set.
var ErrNoActiveLevel = errors.New("world: no active level")

// Level describes a playable level.
type Level struct {
	Name string
	// Bounds is the region covered by the level's octree.
	Bounds common.AABB
	// HeightmapPath is the heightmap file of the level, empty for none.
	HeightmapPath string
}

// LevelData is the runtime state of the active level. It is created when the level becomes
// active and dropped when another level replaces it.
type LevelData struct {
	Level     Level
	Octree    Octree
	Heightmap *Heightmap
}

// WorldBuilderOption is a functional option applied to a world during construction via NewWorld.
type WorldBuilderOption func(*world)

// WithOctreeOptions sets the options used for every level octree the world creates.
//
// Parameters:
//   - opts: the octree options
//
// Returns:
//   - WorldBuilderOption: a function that applies the octree options to a world
func WithOctreeOptions(opts ...OctreeBuilderOption) WorldBuilderOption {
	return func(w *world) {
		w.octreeOpts = append(w.octreeOpts, opts...)
	}
}

// world is the implementation of the World interface.
type world struct {
	mu         *sync.RWMutex
	active     *LevelData
	octreeOpts []OctreeBuilderOption
}

// World owns the active level and its data.
type World interface {
	// SetActiveLevel makes level active. The previous level's data is dropped and a new empty
	// octree covering level.Bounds is created. If the level names a heightmap it is loaded;
	// on failure the previous level stays active.
	//
	// Parameters:
	//   - level: the level to activate
	//
	// Returns:
	//   - error: error if the bounds are invalid or the heightmap cannot be loaded
	SetActiveLevel(level Level) error

	// ActiveLevel returns the active level.
	//
	// Returns:
	//   - Level: the active level
	//   - bool: false if no level is active
	ActiveLevel() (Level, bool)

	// ActiveLevelData returns the data of the active level, or nil.
	ActiveLevelData() *LevelData

	// Octree returns the octree of the active level, or nil.
	Octree() Octree

	// LoadObjects inserts objects into the active level's octree. Every object is attempted;
	// failures are joined into the returned error.
	//
	// Parameters:
	//   - objs: the objects to insert
	//
	// Returns:
	//   - error: ErrNoActiveLevel, or the joined insertion errors
	LoadObjects(objs ...StaticObject) error

	// UnloadLevel drops the active level.
	UnloadLevel()
}

var _ World = &world{}

// NewWorld creates a World with no active level.
//
// Parameters:
//   - opts: optional WorldBuilderOption functions
//
// Returns:
//   - World: the new world
func NewWorld(opts ...WorldBuilderOption) World {
	w := &world{mu: &sync.RWMutex{}}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func (w *world) SetActiveLevel(level Level) error {
	if !level.Bounds.Valid() {
		return fmt.Errorf("level %q has invalid bounds", level.Name)
	}

	data := &LevelData{
		Level:  level,
		Octree: NewOctree(level.Bounds, w.octreeOpts...),
	}
	if level.HeightmapPath != "" {
		hm, err := LoadHeightmap(level.HeightmapPath)
		if err != nil {
			return fmt.Errorf("level %q: %w", level.Name, err)
		}
		data.Heightmap = hm
	}

	w.mu.Lock()
	prev := w.active
	w.active = data
	w.mu.Unlock()

	if prev != nil {
		log.Printf("[World] replaced level %q (%d objects) with %q", prev.Level.Name, prev.Octree.Len(), level.Name)
	} else {
		log.Printf("[World] active level %q", level.Name)
	}
	return nil
}

func (w *world) ActiveLevel() (Level, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if w.active == nil {
		return Level{}, false
	}
	return w.active.Level, true
}

func (w *world) ActiveLevelData() *LevelData {
	w.mu.RLock()
	defer w.mu.RUnlock()

	return w.active
}

func (w *world) Octree() Octree {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if w.active == nil {
		return nil
	}
	return w.active.Octree
}

func (w *world) LoadObjects(objs ...StaticObject) error {
	tree := w.Octree()
	if tree == nil {
		return ErrNoActiveLevel
	}

	var errs []error
	for _, obj := range objs {
		if err := tree.Insert(obj); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		log.Printf("[World] %d of %d objects rejected", len(errs), len(objs))
	}
	return errors.Join(errs...)
}

func (w *world) UnloadLevel() {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.active = nil
}
