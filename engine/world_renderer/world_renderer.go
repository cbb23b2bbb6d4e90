package world_renderer

import (
	"errors"
	"fmt"
	"log"
	"slices"

	"github.com/Carmen-Shannon/oxy-world/common"
	"github.com/Carmen-Shannon/oxy-world/engine/camera"
	"github.com/Carmen-Shannon/oxy-world/engine/draw"
	"github.com/Carmen-Shannon/oxy-world/engine/events"
	"github.com/Carmen-Shannon/oxy-world/engine/renderer"
	"github.com/Carmen-Shannon/oxy-world/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-world/engine/resource"
	"github.com/Carmen-Shannon/oxy-world/engine/streaming"
	"github.com/Carmen-Shannon/oxy-world/engine/world"
)

// Stats are the frame counters of a WorldRenderer.
type Stats struct {
	FramesBuilt   uint64
	FramesDropped uint64
	// DroppedOverflow and DroppedResourceKey split FramesDropped by cause.
	DroppedOverflow    uint64
	DroppedResourceKey uint64

	LastVisible   int
	LastInstances int
	LastDrawCalls int

	Resizes   uint64
	Streaming streaming.StreamingStats
}

// worldRenderer is the implementation of the WorldRenderer interface.
type worldRenderer struct {
	device   renderer.Device
	world    world.World
	registry resource.Registry

	state State
	dims  common.Dimensions

	// Configuration applied by the builder options.

	streamingCapacity uint64
	lodPolicy         streaming.LODPolicy
	bus               events.Bus
	windowID          events.WindowID
	cullWorkers       int
	pipelineOpts      []pipeline.PipelineBuilderOption
	clearColors       [2][4]float32

	// GPU resources, in creation order.

	sampler  renderer.Sampler
	pass     renderer.RenderPass
	gbuf     *gbuffer
	pipeline renderer.Pipeline
	stream   streaming.StreamingBuffer

	clear    []renderer.ClearValue
	builder  streaming.Builder
	recorder draw.Recorder
	sub      *events.Subscription

	culler   world.Culler
	cullTree world.Octree
	visible  []world.StaticObject

	stats Stats
}

// WorldRenderer drives the deferred geometry pass of the static world. It owns the G-buffer and
// the streaming instance buffer, and every frame culls the active level against the camera,
// batches the visible objects, streams their transforms and records the G-buffer draws.
//
// A WorldRenderer moves from Uninitialized to Ready through Init, stays Ready across resizes and
// ends in Destroyed. Every method except State panics with ErrUseAfterDestroy once destroyed.
// It is owned by the frame thread.
type WorldRenderer interface {
	// Init creates the sampler, render pass, G-buffer, pipeline and streaming buffer, and
	// subscribes to resize events when an event bus was configured. On failure every resource
	// created so far is released and the renderer stays Uninitialized.
	//
	// Parameters:
	//   - dims: the initial G-buffer size, normally the window framebuffer size
	//
	// Returns:
	//   - error: ErrAlreadyInitialized, or the creation error
	Init(dims common.Dimensions) error

	// OnResize recreates the G-buffer textures, views and framebuffer at the new size after
	// waiting for the GPU to go idle. Unchanged or empty sizes are ignored.
	//
	// Parameters:
	//   - width: the new width in pixels
	//   - height: the new height in pixels
	//
	// Returns:
	//   - error: ErrNotInitialized, or the wait or creation error
	OnResize(width, height uint32) error

	// PollEvents drains the resize subscription and applies the latest resize of the owning
	// window. It does nothing without an event bus.
	//
	// Returns:
	//   - error: the OnResize error
	PollEvents() error

	// BuildAndRecordFrame culls the active level with the camera frustum, builds and streams the
	// batch, and records the G-buffer pass into cmd. cmd must be recording. Frames that cannot be
	// built are dropped: a *FrameError is returned and nothing is recorded into cmd.
	//
	// Parameters:
	//   - cam: the camera to render from
	//   - cmd: the command buffer to record into
	//
	// Returns:
	//   - error: ErrNotInitialized, or a *FrameError for a dropped frame
	BuildAndRecordFrame(cam camera.Camera, cmd renderer.CommandBuffer) error

	// GBufferViews returns the sampled G-buffer views. They change on every resize.
	GBufferViews() GBufferViews

	// Sampler returns the sampler used to read the G-buffer.
	Sampler() renderer.Sampler

	// Pipeline returns the G-buffer pipeline handle, for allocating material descriptor sets.
	Pipeline() renderer.Pipeline

	// Dimensions returns the current G-buffer size.
	Dimensions() common.Dimensions

	// State returns the lifecycle state. It is safe to call after Destroy.
	State() State

	// Stats returns the frame counters.
	Stats() Stats

	// Destroy unsubscribes from resize events, waits for the GPU and releases every resource in
	// reverse creation order.
	Destroy()
}

var _ WorldRenderer = &worldRenderer{}

// NewWorldRenderer creates an Uninitialized WorldRenderer. No GPU resources are created until Init.
//
// Parameters:
//   - dev: the device to allocate on
//   - w: the world whose active level is rendered
//   - reg: the registry resolving material and mesh names
//   - opts: optional WorldRendererBuilderOption functions
//
// Returns:
//   - WorldRenderer: the new world renderer
func NewWorldRenderer(dev renderer.Device, w world.World, reg resource.Registry, opts ...WorldRendererBuilderOption) WorldRenderer {
	wr := &worldRenderer{
		device:            dev,
		world:             w,
		registry:          reg,
		streamingCapacity: streaming.DefaultStreamingCapacity,
	}
	for _, opt := range opts {
		opt(wr)
	}
	return wr
}

func (w *worldRenderer) mustBeAlive() {
	if w.state == StateDestroyed {
		panic(ErrUseAfterDestroy)
	}
}

func (w *worldRenderer) Init(dims common.Dimensions) error {
	w.mustBeAlive()
	if w.state == StateReady {
		return ErrAlreadyInitialized
	}
	if dims.Empty() {
		return fmt.Errorf("cannot initialize G-buffer with size %dx%d", dims.Width, dims.Height)
	}

	if err := w.createResources(dims); err != nil {
		w.releaseResources()
		return err
	}

	w.builder = streaming.NewBuilder(w.registry, streaming.WithLODPolicy(w.lodPolicy))
	w.recorder = draw.NewRecorder(w.registry, w.pipeline)
	if w.bus != nil {
		w.sub = w.bus.Subscribe()
	}

	w.dims = dims
	w.state = StateReady
	log.Printf("[WorldRenderer] initialized %dx%d, streaming capacity %d bytes", dims.Width, dims.Height, w.stream.Capacity())
	return nil
}

func (w *worldRenderer) createResources(dims common.Dimensions) error {
	var err error

	w.sampler, err = w.device.CreateSampler(renderer.SamplerDescriptor{
		Label:       "GBufferSampler",
		MagFilter:   renderer.FilterModeLinear,
		MinFilter:   renderer.FilterModeLinear,
		AddressMode: renderer.AddressModeClampToEdge,
	})
	if err != nil {
		return fmt.Errorf("failed to create G-buffer sampler: %w", err)
	}

	w.pass, err = w.device.CreateRenderPass(gbufferPassDescriptor())
	if err != nil {
		return fmt.Errorf("failed to create G-buffer render pass: %w", err)
	}

	w.gbuf, err = createGBuffer(w.device, w.pass, dims)
	if err != nil {
		return err
	}

	p := pipeline.NewPipeline(w.pipelineOpts...)
	w.pipeline, err = p.Create(w.device, w.pass)
	if err != nil {
		return err
	}
	w.clear = clearValues(w.clearColors, p.DepthCompare())

	w.stream, err = streaming.NewStreamingBuffer(w.device, streaming.WithCapacity(w.streamingCapacity))
	if err != nil {
		return err
	}
	return nil
}

// clearValues returns one clear value per attachment. Depth clears to the far plane of the
// configured comparison: 1 for less-than tests, 0 for reversed depth.
func clearValues(colors [2][4]float32, cmp renderer.CompareOp) []renderer.ClearValue {
	far := float32(1)
	if cmp == renderer.CompareOpGreater || cmp == renderer.CompareOpGreaterEqual {
		far = 0
	}
	values := make([]renderer.ClearValue, attachmentCount)
	values[AttachmentAlbedoRoughness].Color = colors[0]
	values[AttachmentNormalMetalness].Color = colors[1]
	values[AttachmentDepth].Depth = far
	return values
}

// releaseResources destroys every GPU resource in reverse creation order and resets the handles.
func (w *worldRenderer) releaseResources() {
	if w.stream != nil {
		w.stream.Destroy()
		w.stream = nil
	}
	w.device.DestroyPipeline(w.pipeline)
	w.pipeline = 0
	if w.gbuf != nil {
		w.gbuf.destroy(w.device)
		w.gbuf = nil
	}
	w.device.DestroyRenderPass(w.pass)
	w.pass = 0
	w.device.DestroySampler(w.sampler)
	w.sampler = 0
}

func (w *worldRenderer) OnResize(width, height uint32) error {
	w.mustBeAlive()
	if w.state != StateReady {
		return ErrNotInitialized
	}

	dims := common.Dimensions{Width: width, Height: height}
	if dims == w.dims && w.gbuf != nil {
		return nil
	}
	if dims.Empty() {
		// Minimized windows keep the previous G-buffer until they are restored.
		return nil
	}

	if err := w.device.WaitForQueueIdle(); err != nil {
		return fmt.Errorf("waiting for GPU before resize: %w", err)
	}
	if w.gbuf != nil {
		w.gbuf.destroy(w.device)
		w.gbuf = nil
	}
	g, err := createGBuffer(w.device, w.pass, dims)
	if err != nil {
		return fmt.Errorf("resizing G-buffer to %dx%d: %w", width, height, err)
	}
	w.gbuf = g
	w.dims = dims
	w.stats.Resizes++
	log.Printf("[WorldRenderer] resized G-buffer to %dx%d", width, height)
	return nil
}

func (w *worldRenderer) PollEvents() error {
	w.mustBeAlive()
	if w.state != StateReady {
		return ErrNotInitialized
	}
	if w.sub == nil {
		return nil
	}
	e, ok := w.sub.Latest(w.windowID)
	if !ok {
		return nil
	}
	return w.OnResize(e.Width, e.Height)
}

func (w *worldRenderer) BuildAndRecordFrame(cam camera.Camera, cmd renderer.CommandBuffer) error {
	w.mustBeAlive()
	if w.state != StateReady {
		return ErrNotInitialized
	}
	if w.gbuf == nil {
		return fmt.Errorf("G-buffer unavailable after failed resize: %w", ErrNotInitialized)
	}

	w.visible = w.cull(cam.Frustum())

	batch, err := w.builder.Build(cam.Position(), slices.Values(w.visible))
	if err != nil {
		return w.drop(StageBuild, err)
	}

	// The previous frame's draws read the streaming buffer until the queue drains.
	if err := w.device.WaitForQueueIdle(); err != nil {
		return w.drop(StageSync, err)
	}
	w.stream.BeginFrame()
	offs, err := streaming.Pack(w.stream, batch)
	if err != nil {
		return w.drop(StagePack, err)
	}
	if err := w.stream.Flush(); err != nil {
		return w.drop(StagePack, err)
	}

	w.recorder.SetViewProjection(cam.ViewProjectionMatrix())
	if err := w.recorder.Prepare(batch, offs, w.stream.Buffer()); err != nil {
		return w.drop(StageRecord, err)
	}

	area := renderer.Rect{Width: w.dims.Width, Height: w.dims.Height}
	cmd.BeginRenderPass(w.pass, w.gbuf.framebuffer, area, w.clear)
	cmd.SetViewport(renderer.Viewport{
		Width:    float32(w.dims.Width),
		Height:   float32(w.dims.Height),
		MaxDepth: 1,
	})
	cmd.SetScissor(area)
	w.recorder.Emit(cmd)
	cmd.EndRenderPass()

	w.stats.FramesBuilt++
	w.stats.LastVisible = len(w.visible)
	w.stats.LastInstances = batch.InstanceCount()
	w.stats.LastDrawCalls = w.recorder.Stats().DrawCalls
	w.stats.Streaming = w.stream.Stats()
	return nil
}

// cull gathers the objects of the active level inside the frustum. The culler is rebuilt whenever
// the active level, and with it the octree, changes.
func (w *worldRenderer) cull(frustum common.Frustum) []world.StaticObject {
	tree := w.world.Octree()
	if tree == nil {
		w.culler, w.cullTree = nil, nil
		return w.visible[:0]
	}
	if tree != w.cullTree {
		var opts []world.CullerBuilderOption
		if w.cullWorkers > 0 {
			opts = append(opts, world.WithCullWorkers(w.cullWorkers))
		}
		w.culler = world.NewCuller(tree, opts...)
		w.cullTree = tree
	}
	return w.culler.Cull(w.visible[:0], frustum)
}

// drop counts and logs a dropped frame.
func (w *worldRenderer) drop(stage FrameStage, err error) error {
	w.stats.FramesDropped++
	switch {
	case errors.Is(err, streaming.ErrStreamingOverflow):
		w.stats.DroppedOverflow++
	case errors.Is(err, resource.ErrResourceKey):
		w.stats.DroppedResourceKey++
	}
	if w.stream != nil {
		w.stats.Streaming = w.stream.Stats()
	}
	log.Printf("[WorldRenderer] dropped frame at %s: %v", stage, err)
	return &FrameError{Stage: stage, Err: err}
}

func (w *worldRenderer) GBufferViews() GBufferViews {
	w.mustBeAlive()
	if w.gbuf == nil {
		return GBufferViews{}
	}
	return w.gbuf.sampledViews()
}

func (w *worldRenderer) Sampler() renderer.Sampler {
	w.mustBeAlive()
	return w.sampler
}

func (w *worldRenderer) Pipeline() renderer.Pipeline {
	w.mustBeAlive()
	return w.pipeline
}

func (w *worldRenderer) Dimensions() common.Dimensions {
	w.mustBeAlive()
	return w.dims
}

func (w *worldRenderer) State() State {
	return w.state
}

func (w *worldRenderer) Stats() Stats {
	w.mustBeAlive()
	return w.stats
}

func (w *worldRenderer) Destroy() {
	w.mustBeAlive()

	if w.sub != nil {
		w.bus.Unsubscribe(w.sub)
		w.sub = nil
	}
	if w.state == StateReady {
		if err := w.device.WaitForQueueIdle(); err != nil {
			log.Printf("[WorldRenderer] waiting for GPU before destroy: %v", err)
		}
	}
	w.releaseResources()

	w.culler, w.cullTree, w.visible = nil, nil, nil
	w.builder, w.recorder = nil, nil
	w.state = StateDestroyed
	log.Printf("[WorldRenderer] destroyed")
}
