package world_renderer

import (
	"github.com/Carmen-Shannon/oxy-world/engine/events"
	"github.com/Carmen-Shannon/oxy-world/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-world/engine/streaming"
)

// WorldRendererBuilderOption is a functional option applied to a world renderer during
// construction via NewWorldRenderer.
type WorldRendererBuilderOption func(*worldRenderer)

// WithStreamingCapacity sets the byte capacity of the per-frame instance buffer.
//
// Parameters:
//   - bytes: the capacity in bytes
//
// Returns:
//   - WorldRendererBuilderOption: a function that applies the capacity to a world renderer
func WithStreamingCapacity(bytes uint64) WorldRendererBuilderOption {
	return func(w *worldRenderer) {
		w.streamingCapacity = bytes
	}
}

// WithLODPolicy sets the policy used to pick mesh LOD levels.
//
// Parameters:
//   - p: the LOD policy
//
// Returns:
//   - WorldRendererBuilderOption: a function that applies the policy to a world renderer
func WithLODPolicy(p streaming.LODPolicy) WorldRendererBuilderOption {
	return func(w *worldRenderer) {
		w.lodPolicy = p
	}
}

// WithEventBus subscribes the renderer to resize events of one window. The subscription is made
// by Init and released by Destroy.
//
// Parameters:
//   - bus: the event bus
//   - window: the window whose resizes are applied
//
// Returns:
//   - WorldRendererBuilderOption: a function that applies the bus to a world renderer
func WithEventBus(bus events.Bus, window events.WindowID) WorldRendererBuilderOption {
	return func(w *worldRenderer) {
		w.bus = bus
		w.windowID = window
	}
}

// WithCullWorkers sets the number of workers used for frustum culling. 1 culls on the frame thread.
func WithCullWorkers(n int) WorldRendererBuilderOption {
	return func(w *worldRenderer) {
		w.cullWorkers = n
	}
}

// WithPipelineOptions passes options to the G-buffer pipeline.
//
// Parameters:
//   - opts: the pipeline options
//
// Returns:
//   - WorldRendererBuilderOption: a function that applies the pipeline options to a world renderer
func WithPipelineOptions(opts ...pipeline.PipelineBuilderOption) WorldRendererBuilderOption {
	return func(w *worldRenderer) {
		w.pipelineOpts = append(w.pipelineOpts, opts...)
	}
}

// WithClearColors sets the clear colors of the two color attachments.
//
// Parameters:
//   - albedoRoughness: the clear color of the albedo and roughness attachment
//   - normalMetalness: the clear color of the normal and metalness attachment
//
// Returns:
//   - WorldRendererBuilderOption: a function that applies the clear colors to a world renderer
func WithClearColors(albedoRoughness, normalMetalness [4]float32) WorldRendererBuilderOption {
	return func(w *worldRenderer) {
		w.clearColors = [2][4]float32{albedoRoughness, normalMetalness}
	}
}
