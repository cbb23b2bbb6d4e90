package engine

import (
	"time"

	"github.com/Carmen-Shannon/oxy-world/engine/camera"
	"github.com/Carmen-Shannon/oxy-world/engine/config"
	"github.com/Carmen-Shannon/oxy-world/engine/profiler"
	"github.com/Carmen-Shannon/oxy-world/engine/renderer"
	"github.com/Carmen-Shannon/oxy-world/engine/resource"
	"github.com/Carmen-Shannon/oxy-world/engine/window"
	"github.com/Carmen-Shannon/oxy-world/engine/world"
)

// EngineBuilderOption is a functional option for configuring an Engine.
// Use the With* functions to create options that are applied directly to the engine instance.
type EngineBuilderOption func(*engine)

// WithProfiling enables or disables performance profiling output.
//
// Parameters:
//   - enabled: if true, enables performance profiling
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithProfiling(enabled bool) EngineBuilderOption {
	return func(e *engine) {
		e.profilingEnabled = enabled
	}
}

// WithTickRate sets the engine tick rate in frames per second.
// The tick callback will be called at this rate for game logic updates.
// Values <= 0 will be treated as the default (60Hz).
//
// Parameters:
//   - fps: target ticks per second (default 60)
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithTickRate(fps float64) EngineBuilderOption {
	return func(e *engine) {
		if fps <= 0 {
			fps = 60.0
		}
		e.engineTickRate = time.Second / time.Duration(fps)
	}
}

// WithWindow sets a custom configured window for the engine to use rather than allowing the engine
// to create and manage one internally.
//
// Parameters:
//   - w: a pre-configured Window instance
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithWindow(w window.Window) EngineBuilderOption {
	return func(e *engine) {
		e.window = w
	}
}

// WithDevice sets the GPU device the world renderer allocates on. The engine does not release a
// device supplied this way.
//
// Parameters:
//   - dev: the device to use
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithDevice(dev renderer.Device) EngineBuilderOption {
	return func(e *engine) {
		e.device = dev
	}
}

// WithConfig sets the engine configuration. It sizes the window, the streaming buffer and the
// octree, and names the level activated by Init.
//
// Parameters:
//   - cfg: the configuration, typically from config.Load
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithConfig(cfg config.Config) EngineBuilderOption {
	return func(e *engine) {
		e.cfg = cfg
	}
}

// WithConfigWatch reloads the configuration file at path whenever it changes while the engine runs.
// A changed level is activated on the next frame.
//
// Parameters:
//   - path: the configuration file to watch
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithConfigWatch(path string) EngineBuilderOption {
	return func(e *engine) {
		e.configPath = path
	}
}

// WithWorld sets the world rendered by the engine.
//
// Parameters:
//   - w: the world
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithWorld(w world.World) EngineBuilderOption {
	return func(e *engine) {
		e.world = w
	}
}

// WithRegistry sets the registry resolving the mesh and material names of world objects.
//
// Parameters:
//   - reg: the registry
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithRegistry(reg resource.Registry) EngineBuilderOption {
	return func(e *engine) {
		e.registry = reg
	}
}

// WithCamera sets the camera the world is rendered from instead of the default orbit camera.
//
// Parameters:
//   - cam: the camera
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithCamera(cam camera.Camera) EngineBuilderOption {
	return func(e *engine) {
		e.camera = cam
	}
}

// WithProfilerOptions configures the engine profiler.
func WithProfilerOptions(opts ...profiler.ProfilerBuilderOption) EngineBuilderOption {
	return func(e *engine) {
		e.profiler = profiler.NewProfiler(opts...)
	}
}

// WithRenderFrameLimit sets an optional render frame rate cap in frames per second.
// Pass 0 to uncap the render loop (default).
//
// Parameters:
//   - fps: maximum render frames per second (0 = uncapped)
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithRenderFrameLimit(fps float64) EngineBuilderOption {
	return func(e *engine) {
		if fps <= 0 {
			e.renderFrameLimit = 0
			return
		}
		e.renderFrameLimit = time.Second / time.Duration(fps)
	}
}
