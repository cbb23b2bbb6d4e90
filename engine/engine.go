package engine

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-world/common"
	"github.com/Carmen-Shannon/oxy-world/engine/camera"
	"github.com/Carmen-Shannon/oxy-world/engine/config"
	"github.com/Carmen-Shannon/oxy-world/engine/profiler"
	"github.com/Carmen-Shannon/oxy-world/engine/renderer"
	"github.com/Carmen-Shannon/oxy-world/engine/resource"
	"github.com/Carmen-Shannon/oxy-world/engine/streaming"
	"github.com/Carmen-Shannon/oxy-world/engine/window"
	"github.com/Carmen-Shannon/oxy-world/engine/world"
	"github.com/Carmen-Shannon/oxy-world/engine/world_renderer"
)

// engine implements the Engine interface.
// Coordinates engine, render, and window threads.
type engine struct {
	tickRateChannel chan time.Duration // Channel for dynamic tick rate updates
	configChannel   chan config.Config // Latest reloaded configuration, applied by the render loop

	running bool
	wg      sync.WaitGroup

	quitChannel chan struct{}
	quitOnce    sync.Once // Ensures quitChannel is only closed once

	window     window.Window
	device     renderer.Device
	ownsDevice bool

	cfg        config.Config
	configPath string
	watcher    config.Watcher

	world         world.World
	registry      resource.Registry
	camera        camera.Camera
	worldRenderer world_renderer.WorldRenderer
	dims          common.Dimensions

	profiler         *profiler.Profiler
	profilingEnabled bool

	engineTickRate time.Duration
	tickCallback   func(deltaTime float32)
	renderCallback func(deltaTime float32)

	renderFrameLimit time.Duration // minimum frame duration; 0 = uncapped
}

// Engine is the main entry point for the engine.
// It orchestrates the engine loop, the world render loop, and window management.
type Engine interface {
	// Init creates everything the render loop needs that was not supplied through options: the
	// window, the WebGPU device, the startup level from the configuration, the world renderer
	// and a default orbit camera over the level. Run calls Init when it has not been called.
	//
	// Returns:
	//   - error: error if the engine is already initialized or any step fails
	Init() error

	// Window returns the underlying window.
	//
	// Returns:
	//   - window.Window: the window instance, nil before Init unless supplied with WithWindow
	Window() window.Window

	// Device returns the GPU device, nil before Init unless supplied with WithDevice.
	Device() renderer.Device

	// World returns the world whose active level is rendered.
	World() world.World

	// Registry returns the registry resolving the mesh and material names of world objects.
	Registry() resource.Registry

	// Camera returns the camera the world is rendered from, nil before Init unless supplied
	// with WithCamera.
	Camera() camera.Camera

	// WorldRenderer returns the world renderer, nil before Init.
	WorldRenderer() world_renderer.WorldRenderer

	// Config returns the configuration in effect.
	Config() config.Config

	// EnableProfiler enables performance profiling output to the log.
	EnableProfiler()

	// DisableProfiler disables performance profiling output.
	DisableProfiler()

	// SetTickRate sets the engine tick rate in frames per second.
	// The tick callback will be called at this rate for game logic updates.
	//
	// Parameters:
	//   - fps: target frames per second (defaults to 60 if <= 0)
	SetTickRate(fps float64)

	// SetTickCallback registers the function called each engine tick.
	// Use this for game logic, input processing, and loading or unloading world objects.
	//
	// Parameters:
	//   - callback: function to call at the configured tick rate, receiving the delta time in seconds
	SetTickCallback(callback func(deltaTime float32))

	// SetRenderCallback registers the function called after each render frame is submitted.
	//
	// Parameters:
	//   - callback: function to call each render frame, receiving the delta time in seconds
	SetRenderCallback(callback func(deltaTime float32))

	// SetRenderFrameLimit sets an optional render frame rate cap in frames per second.
	// Pass 0 to uncap the render loop (default).
	//
	// Parameters:
	//   - fps: maximum render frames per second (0 = uncapped)
	SetRenderFrameLimit(fps float64)

	// Run starts the engine and render loops and blocks in the window message loop until the
	// window closes. It then stops both loops and releases the world renderer.
	//
	// Returns:
	//   - error: the Init error
	Run() error

	// Quit signals all engine goroutines to stop.
	// Safe to call multiple times; subsequent calls are no-ops.
	Quit()
}

var _ Engine = &engine{}

// NewEngine creates a new Engine instance with the provided options.
// Without WithWorld a world is created using the octree settings of the configuration, and
// without WithRegistry an empty registry is created, so both can be populated before Run.
//
// Parameters:
//   - options: functional options for engine configuration (profiling, tick rate, etc.)
//
// Returns:
//   - Engine: the newly created engine
func NewEngine(options ...EngineBuilderOption) Engine {
	e := &engine{
		tickRateChannel:  make(chan time.Duration, 1),
		configChannel:    make(chan config.Config, 1),
		quitChannel:      make(chan struct{}),
		running:          false,
		wg:               sync.WaitGroup{},
		cfg:              config.Default(),
		profilingEnabled: false,
		engineTickRate:   time.Second / 60,
	}

	for _, opt := range options {
		opt(e)
	}

	if e.world == nil {
		e.world = world.NewWorld(world.WithOctreeOptions(e.cfg.Octree.Options()...))
	}
	if e.registry == nil {
		e.registry = resource.NewRegistry()
	}
	if e.profiler == nil {
		e.profiler = profiler.NewProfiler()
	}

	return e
}

func (e *engine) Init() error {
	if e.worldRenderer != nil {
		return fmt.Errorf("engine: %w", world_renderer.ErrAlreadyInitialized)
	}

	title := common.Coalesce(e.cfg.Window.Title, "oxy-world")
	if e.window == nil {
		e.window = window.NewWindow(
			window.WithTitle(title),
			window.WithWidth(int(e.cfg.Window.Width)),
			window.WithHeight(int(e.cfg.Window.Height)),
		)
	}
	if e.device == nil {
		dev, err := renderer.NewWGPUDevice(
			renderer.WithCompatibleSurface(e.window.SurfaceDescriptor()),
			renderer.WithDeviceLabel(title),
		)
		if err != nil {
			return fmt.Errorf("failed to create device: %w", err)
		}
		e.device = dev
		e.ownsDevice = true
	}

	if _, ok := e.world.ActiveLevel(); !ok {
		if err := e.world.SetActiveLevel(e.cfg.StartupLevel()); err != nil {
			return fmt.Errorf("failed to load startup level: %w", err)
		}
	}

	policy, err := e.cfg.LOD.Policy()
	if err != nil {
		return fmt.Errorf("invalid lod config: %w", err)
	}

	e.dims = e.window.Dimensions()
	if e.dims.Empty() {
		e.dims = common.Dimensions{Width: e.cfg.Window.Width, Height: e.cfg.Window.Height}
	}

	wr := world_renderer.NewWorldRenderer(e.device, e.world, e.registry,
		world_renderer.WithStreamingCapacity(e.cfg.Streaming.Capacity),
		world_renderer.WithLODPolicy(policy),
		world_renderer.WithCullWorkers(e.cfg.Streaming.CullWorkers),
		world_renderer.WithEventBus(e.window.Events(), e.window.ID()),
	)
	if err := wr.Init(e.dims); err != nil {
		return fmt.Errorf("failed to initialize world renderer: %w", err)
	}
	e.worldRenderer = wr

	if e.camera == nil {
		level, _ := e.world.ActiveLevel()
		e.camera = defaultCamera(level.Bounds, e.dims)
	} else {
		e.camera.SetAspect(e.dims.Aspect())
	}

	if e.configPath != "" {
		w, err := config.Watch(e.configPath, e.pushConfig)
		if err != nil {
			log.Printf("[Engine] config hot reload disabled: %v", err)
		} else {
			e.watcher = w
		}
	}

	level, _ := e.world.ActiveLevel()
	log.Printf("[Engine] initialized at %dx%d with level %q", e.dims.Width, e.dims.Height, level.Name)
	return nil
}

// defaultCamera orbits the center of bounds, with the far plane covering the whole level.
func defaultCamera(bounds common.AABB, dims common.Dimensions) camera.Camera {
	ctrl := camera.NewOrbitController(
		camera.WithTarget(bounds.Center()),
		camera.WithRadius(64),
		camera.WithElevation(0.3),
	)
	return camera.NewCamera(
		camera.WithController(ctrl),
		camera.WithAspect(dims.Aspect()),
		camera.WithClipPlanes(0.1, max(bounds.Size().Len(), 1000)),
	)
}

func (e *engine) Window() window.Window {
	return e.window
}

func (e *engine) Device() renderer.Device {
	return e.device
}

func (e *engine) World() world.World {
	return e.world
}

func (e *engine) Registry() resource.Registry {
	return e.registry
}

func (e *engine) Camera() camera.Camera {
	return e.camera
}

func (e *engine) WorldRenderer() world_renderer.WorldRenderer {
	return e.worldRenderer
}

func (e *engine) Config() config.Config {
	return e.cfg
}

func (e *engine) Run() error {
	if e.worldRenderer == nil {
		if err := e.Init(); err != nil {
			return err
		}
	}
	e.running = true
	e.handle()
	e.window.ProcessMessages()

	e.signalQuit()
	e.wg.Wait()
	e.shutdown()
	return nil
}

// Quit signals all engine goroutines to stop and shuts down the engine.
// Safe to call multiple times; subsequent calls are no-ops due to sync.Once.
func (e *engine) Quit() {
	e.signalQuit()
}

// signalQuit closes the quit channel to signal all goroutines to exit.
// Uses sync.Once to ensure the channel is only closed once.
func (e *engine) signalQuit() {
	e.quitOnce.Do(func() {
		e.running = false
		close(e.quitChannel)
	})
}

// shutdown stops the config watcher and releases the world renderer, then the device if the
// engine created it. Called once the render loop has exited.
func (e *engine) shutdown() {
	if e.watcher != nil {
		if err := e.watcher.Close(); err != nil {
			log.Printf("[Engine] failed to close config watcher: %v", err)
		}
		e.watcher = nil
	}
	if e.worldRenderer != nil && e.worldRenderer.State() != world_renderer.StateDestroyed {
		e.worldRenderer.Destroy()
	}
	if e.ownsDevice && e.device != nil {
		e.device.Release()
		e.device = nil
	}
}

// handle launches the engine, render, and quit goroutines.
// Each goroutine is tracked by the engine's WaitGroup.
func (e *engine) handle() {
	e.wg.Add(3)
	go e.handleEngine()
	go e.handleRender()
	go e.handleQuit()
}

// handleEngine runs the fixed-rate engine tick loop in its own goroutine.
// Fires the tick callback at the configured tick rate and listens for dynamic rate changes
// via tickRateChannel. Exits when the quit channel is closed.
func (e *engine) handleEngine() {
	defer e.wg.Done()

	ticker := time.NewTicker(e.engineTickRate)
	defer ticker.Stop()

	lastTick := time.Now()

	for {
		select {
		case <-e.quitChannel:
			return
		case <-ticker.C:
			now := time.Now()
			dt := float32(now.Sub(lastTick).Seconds())
			lastTick = now

			if e.tickCallback != nil {
				e.tickCallback(dt)
			}
		case newRate := <-e.tickRateChannel:
			ticker.Reset(newRate)
			e.engineTickRate = newRate
		}
	}
}

// handleRender runs the uncapped (or frame-limited) render loop in its own goroutine.
// The render goroutine is the frame thread: it alone touches the world renderer and the device.
// Recovers from panics to avoid crashing the process and signals quit on recovery.
func (e *engine) handleRender() {
	defer e.wg.Done()
	// Recover from panics inside the render goroutine to avoid crashing the whole process.
	defer func() {
		if r := recover(); r != nil {
			log.Printf("render goroutine recovered from panic: %v", r)
			e.signalQuit()
		}
	}()

	lastRender := time.Now()

	for {
		select {
		case <-e.quitChannel:
			return
		default:
			now := time.Now()
			dt := float32(now.Sub(lastRender).Seconds())
			lastRender = now

			if err := e.renderFrame(); err != nil {
				log.Printf("[Engine] frame failed: %v", err)
			}

			if e.renderCallback != nil {
				e.renderCallback(dt)
			}

			if e.profilingEnabled && e.profiler != nil {
				e.profiler.Tick()
			}

			// Frame rate limiting
			if e.renderFrameLimit > 0 {
				elapsed := time.Since(lastRender)
				if remaining := e.renderFrameLimit - elapsed; remaining > 0 {
					time.Sleep(remaining)
				}
			}
		}
	}
}

// renderFrame applies pending configuration and resizes, then records and submits one G-buffer
// frame. A dropped frame is counted by the profiler and nothing is submitted.
//
// Returns:
//   - error: error if the frame could not be recorded or submitted for a reason other than a drop
func (e *engine) renderFrame() error {
	e.applyPendingConfig()

	if err := e.worldRenderer.PollEvents(); err != nil {
		return fmt.Errorf("failed to apply resize: %w", err)
	}
	if dims := e.worldRenderer.Dimensions(); dims != e.dims {
		e.dims = dims
		e.camera.SetAspect(dims.Aspect())
	}
	e.camera.Update()

	cmd, err := e.device.NewCommandBuffer()
	if err != nil {
		return fmt.Errorf("failed to create command buffer: %w", err)
	}
	defer cmd.Release()
	if err := cmd.Begin(); err != nil {
		return fmt.Errorf("failed to begin command buffer: %w", err)
	}

	frameErr := e.worldRenderer.BuildAndRecordFrame(e.camera, cmd)
	var dropped *world_renderer.FrameError
	if frameErr != nil && !errors.As(frameErr, &dropped) {
		return abandonFrame(cmd, frameErr)
	}
	if e.profilingEnabled {
		e.profiler.ObserveFrame(frameSample(frameErr, e.worldRenderer.Stats()))
	}

	if err := cmd.End(); err != nil {
		return fmt.Errorf("failed to end command buffer: %w", err)
	}
	if dropped != nil {
		return nil
	}
	if err := e.device.SubmitToQueue(cmd); err != nil {
		return fmt.Errorf("failed to submit frame: %w", err)
	}
	return nil
}

// abandonFrame ends the recording of a frame that failed outright. An End failure is joined to
// the frame error.
func abandonFrame(cmd renderer.CommandBuffer, frameErr error) error {
	if err := cmd.End(); err != nil {
		return errors.Join(frameErr, fmt.Errorf("failed to end command buffer: %w", err))
	}
	return frameErr
}

// frameSample converts the outcome of BuildAndRecordFrame into a profiler sample.
func frameSample(frameErr error, s world_renderer.Stats) profiler.FrameSample {
	if frameErr != nil {
		return profiler.FrameSample{
			Dropped:     true,
			Overflow:    errors.Is(frameErr, streaming.ErrStreamingOverflow),
			ResourceKey: errors.Is(frameErr, resource.ErrResourceKey),
		}
	}
	return profiler.FrameSample{
		Instances:      s.LastInstances,
		DrawCalls:      s.LastDrawCalls,
		StreamingBytes: uint64(s.LastInstances) * common.Mat4Size,
	}
}

// pushConfig queues a reloaded configuration for the render loop, replacing any configuration
// still pending. It runs on the config watcher goroutine.
func (e *engine) pushConfig(cfg config.Config) {
	select {
	case e.configChannel <- cfg:
	default:
		select {
		case <-e.configChannel:
		default:
		}
		e.configChannel <- cfg
	}
}

// applyPendingConfig applies the latest reloaded configuration, if any. A changed level is
// activated immediately; the other sections size long-lived resources and are only logged.
func (e *engine) applyPendingConfig() {
	var next config.Config
	select {
	case next = <-e.configChannel:
	default:
		return
	}

	if next.Level != e.cfg.Level {
		level := next.StartupLevel()
		if err := e.world.SetActiveLevel(level); err != nil {
			log.Printf("[Engine] failed to switch to level %q: %v", level.Name, err)
			next.Level = e.cfg.Level
		} else {
			log.Printf("[Engine] switched to level %q", level.Name)
		}
	}
	if next.Window != e.cfg.Window || next.Streaming != e.cfg.Streaming || next.Octree != e.cfg.Octree {
		log.Printf("[Engine] only level changes apply without a restart")
	}
	e.cfg = next
}

// handleQuit blocks until the quit channel is closed, then decrements the WaitGroup.
func (e *engine) handleQuit() {
	defer e.wg.Done()
	<-e.quitChannel
}

// EnableProfiler enables performance profiling output to the log.
func (e *engine) EnableProfiler() {
	e.profilingEnabled = true
}

// DisableProfiler disables performance profiling output.
func (e *engine) DisableProfiler() {
	e.profilingEnabled = false
}

// SetTickRate sets the engine tick rate in frames per second.
// If the engine is running, the change takes effect immediately.
func (e *engine) SetTickRate(fps float64) {
	if fps <= 0 {
		fps = 60
	}
	newRate := time.Second / time.Duration(fps)

	if e.running {
		// Non-blocking send - if channel is full, replace the pending value
		select {
		case e.tickRateChannel <- newRate:
		default:
			select {
			case <-e.tickRateChannel:
			default:
			}
			e.tickRateChannel <- newRate
		}
	} else {
		e.engineTickRate = newRate
	}
}

// SetTickCallback registers the function called each engine tick.
func (e *engine) SetTickCallback(callback func(deltaTime float32)) {
	e.tickCallback = callback
}

// SetRenderCallback registers the function called each render frame.
func (e *engine) SetRenderCallback(callback func(deltaTime float32)) {
	e.renderCallback = callback
}

// SetRenderFrameLimit sets an optional render frame rate cap.
// Pass 0 to uncap the render loop.
func (e *engine) SetRenderFrameLimit(fps float64) {
	if fps <= 0 {
		e.renderFrameLimit = 0
		return
	}
	e.renderFrameLimit = time.Second / time.Duration(fps)
}
