package pipeline

import (
	_ "embed"
	"fmt"

	"github.com/Carmen-Shannon/oxy-world/common"
	"github.com/Carmen-Shannon/oxy-world/engine/renderer"
)

//go:embed assets/gbuffer.wgsl
var gbufferShaderSource string

// Layout constants shared by the G-buffer pipeline, the draw recorder and the frame orchestrator.
const (
	// VertexStride is the byte stride of a static mesh vertex: position vec3, uv vec2, normal vec3, tangent vec3.
	VertexStride uint32 = 44
	// InstanceStride is the byte stride of one streamed instance record (a column-major model matrix).
	InstanceStride uint32 = common.Mat4Size

	// VertexSlot and InstanceSlot are the vertex buffer slots for mesh vertices and streamed instances.
	VertexSlot   uint32 = 0
	InstanceSlot uint32 = 1

	// MaterialSet is the descriptor set index holding per-material bindings.
	MaterialSet uint32 = 0

	// ViewProjectionOffset is the push constant offset of the per-frame view-projection matrix.
	ViewProjectionOffset uint32 = 0
	// DrawParamsOffset is the push constant offset of the per-draw parameters.
	DrawParamsOffset uint32 = common.Mat4Size
	// DrawParamsSize is the byte size of the per-draw push constant block.
	DrawParamsSize uint32 = 16
	// PushConstantSize is the total push constant block size.
	PushConstantSize = DrawParamsOffset + DrawParamsSize

	// MaterialAlbedoBinding, MaterialSamplerBinding and MaterialParamsBinding are the bindings of the material set.
	MaterialAlbedoBinding  uint32 = 0
	MaterialSamplerBinding uint32 = 1
	MaterialParamsBinding  uint32 = 2
)

// pipeline is the implementation of the Pipeline interface.
// It holds the configuration used to build a renderer.PipelineDescriptor for the G-buffer geometry pass.
type pipeline struct {
	// pipelineKey is the unique identifier for this pipeline, used as its debug label
	pipelineKey string

	shaderSource   string
	vertexEntry    string
	fragmentEntry  string
	vertexStride   uint32
	pushConstSize  uint32
	pushConstStage renderer.ShaderStage

	// The following properties are toggled with the builder options.

	depthTestEnabled  bool
	depthWriteEnabled bool
	depthCompare      renderer.CompareOp
	cullMode          renderer.CullMode
	clockwiseFront    bool
}

// Pipeline describes the G-buffer geometry pipeline: one vertex binding for mesh vertices, one
// per-instance binding for streamed model matrices, a material descriptor set with an albedo
// texture, its sampler and a uniform block of surface parameters, and a push constant block holding the view-projection matrix followed by
// per-draw parameters.
type Pipeline interface {
	// PipelineKey returns the unique key associated with this pipeline.
	//
	// Returns:
	//   - string: the unique key for this pipeline
	PipelineKey() string

	// DepthTestEnabled returns whether depth testing is enabled for this pipeline.
	//
	// Returns:
	//   - bool: true if depth testing is enabled, false otherwise
	DepthTestEnabled() bool

	// DepthWriteEnabled returns whether depth writing is enabled for this pipeline.
	//
	// Returns:
	//   - bool: true if depth writing is enabled, false otherwise
	DepthWriteEnabled() bool

	// DepthCompare returns the depth comparison used when depth testing is enabled.
	//
	// Returns:
	//   - renderer.CompareOp: the depth comparison
	DepthCompare() renderer.CompareOp

	// CullMode returns the cull mode configured for this pipeline.
	//
	// Returns:
	//   - renderer.CullMode: the cull mode for this pipeline
	CullMode() renderer.CullMode

	// VertexStride returns the byte stride of the mesh vertex binding.
	//
	// Returns:
	//   - uint32: the vertex stride
	VertexStride() uint32

	// PushConstantSize returns the size of the push constant block.
	//
	// Returns:
	//   - uint32: the push constant size in bytes
	PushConstantSize() uint32

	// Descriptor builds the device-level pipeline description.
	//
	// Returns:
	//   - renderer.PipelineDescriptor: the pipeline description
	Descriptor() renderer.PipelineDescriptor

	// Create validates the configuration and creates the pipeline on the given device.
	//
	// Parameters:
	//   - dev: the device to create the pipeline on
	//   - pass: the G-buffer render pass the pipeline renders into
	//
	// Returns:
	//   - renderer.Pipeline: the created pipeline handle
	//   - error: error if the configuration is invalid or creation fails
	Create(dev renderer.Device, pass renderer.RenderPass) (renderer.Pipeline, error)
}

var _ Pipeline = &pipeline{}

// NewPipeline creates a new G-buffer Pipeline configured with the given options.
// Defaults: back-face culling with clockwise front faces, depth test and write enabled with a
// less-than comparison, the embedded G-buffer shader and a 44-byte vertex stride.
//
// Parameters:
//   - options: optional PipelineBuilderOption functions
//
// Returns:
//   - Pipeline: the configured pipeline description
func NewPipeline(options ...PipelineBuilderOption) Pipeline {
	p := &pipeline{
		pipelineKey:       "GBuffer",
		shaderSource:      gbufferShaderSource,
		vertexEntry:       "vs_main",
		fragmentEntry:     "fs_main",
		vertexStride:      VertexStride,
		pushConstSize:     PushConstantSize,
		pushConstStage:    renderer.ShaderStageVertex,
		depthTestEnabled:  true,
		depthWriteEnabled: true,
		depthCompare:      renderer.CompareOpLess,
		cullMode:          renderer.CullModeBack,
		clockwiseFront:    true,
	}

	for _, option := range options {
		option(p)
	}

	return p
}

func (p *pipeline) PipelineKey() string {
	return p.pipelineKey
}

func (p *pipeline) DepthTestEnabled() bool {
	return p.depthTestEnabled
}

func (p *pipeline) DepthWriteEnabled() bool {
	return p.depthWriteEnabled
}

func (p *pipeline) DepthCompare() renderer.CompareOp {
	return p.depthCompare
}

func (p *pipeline) CullMode() renderer.CullMode {
	return p.cullMode
}

func (p *pipeline) VertexStride() uint32 {
	return p.vertexStride
}

func (p *pipeline) PushConstantSize() uint32 {
	return p.pushConstSize
}

func (p *pipeline) Descriptor() renderer.PipelineDescriptor {
	return renderer.PipelineDescriptor{
		Label:         p.pipelineKey,
		ShaderSource:  p.shaderSource,
		VertexEntry:   p.vertexEntry,
		FragmentEntry: p.fragmentEntry,
		VertexBindings: []renderer.VertexBinding{
			{
				Stride:    p.vertexStride,
				InputRate: renderer.VertexInputRateVertex,
				Attributes: []renderer.VertexAttribute{
					{Location: 0, Format: renderer.FormatFloat32x3, Offset: 0},
					{Location: 1, Format: renderer.FormatFloat32x2, Offset: 12},
					{Location: 2, Format: renderer.FormatFloat32x3, Offset: 20},
					{Location: 3, Format: renderer.FormatFloat32x3, Offset: 32},
				},
			},
			{
				Stride:    InstanceStride,
				InputRate: renderer.VertexInputRateInstance,
				Attributes: []renderer.VertexAttribute{
					{Location: 4, Format: renderer.FormatFloat32x4, Offset: 0},
					{Location: 5, Format: renderer.FormatFloat32x4, Offset: 16},
					{Location: 6, Format: renderer.FormatFloat32x4, Offset: 32},
					{Location: 7, Format: renderer.FormatFloat32x4, Offset: 48},
				},
			},
		},
		CullMode:       p.cullMode,
		ClockwiseFront: p.clockwiseFront,
		DepthTest:      p.depthTestEnabled,
		DepthWrite:     p.depthWriteEnabled,
		DepthCompare:   p.depthCompare,
		SetLayouts: [][]renderer.DescriptorBinding{
			{
				{Binding: MaterialAlbedoBinding, Type: renderer.DescriptorTypeSampledTexture, Stages: renderer.ShaderStageFragment},
				{Binding: MaterialSamplerBinding, Type: renderer.DescriptorTypeSampler, Stages: renderer.ShaderStageFragment},
				{Binding: MaterialParamsBinding, Type: renderer.DescriptorTypeUniformBuffer, Stages: renderer.ShaderStageFragment},
			},
		},
		PushConstantSize:   p.pushConstSize,
		PushConstantStages: p.pushConstStage,
	}
}

func (p *pipeline) Create(dev renderer.Device, pass renderer.RenderPass) (renderer.Pipeline, error) {
	if p.shaderSource == "" {
		return 0, fmt.Errorf("pipeline %q has no shader source", p.pipelineKey)
	}
	if p.vertexStride < 44 {
		return 0, fmt.Errorf("pipeline %q vertex stride %d is smaller than the vertex layout", p.pipelineKey, p.vertexStride)
	}
	if p.pushConstSize < PushConstantSize {
		return 0, fmt.Errorf("pipeline %q push constant size %d is smaller than %d", p.pipelineKey, p.pushConstSize, PushConstantSize)
	}

	handle, err := dev.CreatePipeline(p.Descriptor(), pass)
	if err != nil {
		return 0, fmt.Errorf("failed to create pipeline %q: %w", p.pipelineKey, err)
	}
	return handle, nil
}
