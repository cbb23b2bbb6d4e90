package pipeline

import (
	"github.com/Carmen-Shannon/oxy-world/engine/renderer"
)

// PipelineBuilderOption is a functional option used to configure a Pipeline during construction.
type PipelineBuilderOption func(*pipeline)

// WithPipelineKey sets the unique key of this pipeline.
//
// Parameters:
//   - key: the pipeline key
//
// Returns:
//   - PipelineBuilderOption: a function that sets the key for this pipeline
func WithPipelineKey(key string) PipelineBuilderOption {
	return func(p *pipeline) {
		p.pipelineKey = key
	}
}

// WithShaderSource replaces the embedded G-buffer shader. The source must expose the given
// vertex and fragment entry points and read the same vertex, instance and push constant layout.
//
// Parameters:
//   - source: the WGSL source
//   - vertexEntry: the vertex entry point
//   - fragmentEntry: the fragment entry point
//
// Returns:
//   - PipelineBuilderOption: a function that sets the shader source for this pipeline
func WithShaderSource(source, vertexEntry, fragmentEntry string) PipelineBuilderOption {
	return func(p *pipeline) {
		p.shaderSource = source
		p.vertexEntry = vertexEntry
		p.fragmentEntry = fragmentEntry
	}
}

// WithDepthTestEnabled sets whether depth testing is enabled for this pipeline.
//
// Parameters:
//   - enabled: a boolean indicating whether depth testing should be enabled
//
// Returns:
//   - PipelineBuilderOption: a function that sets the depth test enabled state for this pipeline
func WithDepthTestEnabled(enabled bool) PipelineBuilderOption {
	return func(p *pipeline) {
		p.depthTestEnabled = enabled
	}
}

// WithDepthWriteEnabled sets whether depth writing is enabled for this pipeline.
//
// Parameters:
//   - enabled: a boolean indicating whether depth writing should be enabled
//
// Returns:
//   - PipelineBuilderOption: a function that sets the depth write enabled state for this pipeline
func WithDepthWriteEnabled(enabled bool) PipelineBuilderOption {
	return func(p *pipeline) {
		p.depthWriteEnabled = enabled
	}
}

// WithDepthCompare sets the depth comparison. Use renderer.CompareOpGreater together with a
// reversed-Z projection and a depth clear value of 0.
//
// Parameters:
//   - op: the depth comparison
//
// Returns:
//   - PipelineBuilderOption: a function that sets the depth comparison for this pipeline
func WithDepthCompare(op renderer.CompareOp) PipelineBuilderOption {
	return func(p *pipeline) {
		p.depthCompare = op
	}
}

// WithCullMode sets the cull mode for this pipeline.
//
// Parameters:
//   - mode: the cull mode to use
//
// Returns:
//   - PipelineBuilderOption: a function that sets the cull mode for this pipeline
func WithCullMode(mode renderer.CullMode) PipelineBuilderOption {
	return func(p *pipeline) {
		p.cullMode = mode
	}
}

// WithClockwiseFrontFace sets whether clockwise triangles are front facing.
//
// Parameters:
//   - clockwise: true for clockwise front faces
//
// Returns:
//   - PipelineBuilderOption: a function that sets the front face winding for this pipeline
func WithClockwiseFrontFace(clockwise bool) PipelineBuilderOption {
	return func(p *pipeline) {
		p.clockwiseFront = clockwise
	}
}

// WithVertexStride sets the mesh vertex stride, for meshes that interleave extra attributes
// after the tangent.
//
// Parameters:
//   - stride: the vertex stride in bytes
//
// Returns:
//   - PipelineBuilderOption: a function that sets the vertex stride for this pipeline
func WithVertexStride(stride uint32) PipelineBuilderOption {
	return func(p *pipeline) {
		p.vertexStride = stride
	}
}

// WithPushConstantSize sets the push constant block size.
//
// Parameters:
//   - size: the push constant size in bytes
//
// Returns:
//   - PipelineBuilderOption: a function that sets the push constant size for this pipeline
func WithPushConstantSize(size uint32) PipelineBuilderOption {
	return func(p *pipeline) {
		p.pushConstSize = size
	}
}
