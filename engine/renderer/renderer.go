package renderer

import (
	"errors"

	"github.com/Carmen-Shannon/oxy-world/common"
)

// Opaque GPU object handles. The zero value of every handle is invalid and never returned by a
// successful Create call, so an unset field can be detected without a separate flag.
type (
	Texture       uint64
	TextureView   uint64
	Buffer        uint64
	Sampler       uint64
	RenderPass    uint64
	Framebuffer   uint64
	Pipeline      uint64
	DescriptorSet uint64
)

// ErrInvalidHandle is returned when a handle is zero, already destroyed, or belongs to another Device.
var ErrInvalidHandle = errors.New("renderer: invalid handle")

// ErrNotMappable is returned by MapBuffer for buffers created without HostVisible.
var ErrNotMappable = errors.New("renderer: buffer is not host visible")

// TextureDescriptor describes a 2D texture.
type TextureDescriptor struct {
	Label  string
	Width  uint32
	Height uint32
	Format Format
	Usage  TextureUsage
}

// BufferDescriptor describes a GPU buffer. HostVisible buffers can be mapped with MapBuffer and
// stay mapped for their whole lifetime.
type BufferDescriptor struct {
	Label       string
	Size        uint64
	Usage       BufferUsage
	HostVisible bool
}

// SamplerDescriptor describes a texture sampler.
type SamplerDescriptor struct {
	Label       string
	MagFilter   FilterMode
	MinFilter   FilterMode
	AddressMode AddressMode
}

// AttachmentDescription describes one render pass attachment. Color attachments are listed in
// shader output order; at most one depth attachment may appear, anywhere in the list.
type AttachmentDescription struct {
	Format        Format
	LoadOp        LoadOp
	StoreOp       StoreOp
	InitialLayout TextureLayout
	FinalLayout   TextureLayout
}

// RenderPassDescriptor describes a single-subpass render pass.
type RenderPassDescriptor struct {
	Label       string
	Attachments []AttachmentDescription
}

// FramebufferDescriptor binds one view per render pass attachment, in attachment order.
type FramebufferDescriptor struct {
	Label       string
	Pass        RenderPass
	Attachments []TextureView
	Width       uint32
	Height      uint32
}

// VertexAttribute is one shader input read from a vertex binding.
type VertexAttribute struct {
	Location uint32
	Format   Format
	Offset   uint32
}

// VertexBinding describes one vertex buffer slot.
type VertexBinding struct {
	Stride     uint32
	InputRate  VertexInputRate
	Attributes []VertexAttribute
}

// DescriptorBinding is one entry of a descriptor set layout.
type DescriptorBinding struct {
	Binding uint32
	Type    DescriptorType
	Stages  ShaderStage
}

// PipelineDescriptor describes a graphics pipeline. The color target and depth formats are
// taken from the render pass the pipeline is created against.
type PipelineDescriptor struct {
	Label          string
	ShaderSource   string
	VertexEntry    string
	FragmentEntry  string
	VertexBindings []VertexBinding
	CullMode       CullMode
	ClockwiseFront bool
	DepthTest      bool
	DepthWrite     bool
	DepthCompare   CompareOp
	// SetLayouts holds one layout per descriptor set index.
	SetLayouts [][]DescriptorBinding
	// PushConstantSize is the byte size of the push constant block, 0 for none.
	PushConstantSize   uint32
	PushConstantStages ShaderStage
}

// DescriptorWrite fills one binding of a descriptor set. Exactly one resource field is used,
// selected by the layout's DescriptorType.
type DescriptorWrite struct {
	Binding     uint32
	TextureView TextureView
	Sampler     Sampler
	Buffer      Buffer
	Range       common.Range
}

// DescriptorSetDescriptor describes a descriptor set allocated against set index Set of Pipeline.
type DescriptorSetDescriptor struct {
	Label    string
	Pipeline Pipeline
	Set      uint32
	Writes   []DescriptorWrite
}

// ClearValue is the clear color or depth for one attachment, in attachment order.
type ClearValue struct {
	Color [4]float32
	Depth float32
}

// Viewport is a viewport transform.
type Viewport struct {
	X, Y, Width, Height float32
	MinDepth, MaxDepth  float32
}

// Rect is an integer rectangle used for scissors and render areas.
type Rect struct {
	X, Y          int32
	Width, Height uint32
}

// Device is the narrow GPU resource API consumed by the streaming core.
// Every Create call returns an opaque handle that must be released with the matching Destroy
// call. Destroying a zero handle is a no-op. Device methods are safe to call from the frame
// thread only unless an implementation states otherwise.
type Device interface {
	// Backend returns the backend type implementing this device.
	Backend() RendererBackendType

	// CreateTexture allocates a 2D texture.
	//
	// Parameters:
	//   - desc: the texture description
	//
	// Returns:
	//   - Texture: the texture handle
	//   - error: error if allocation fails
	CreateTexture(desc TextureDescriptor) (Texture, error)
	DestroyTexture(t Texture)

	// CreateTextureView creates a view covering the whole texture.
	//
	// Parameters:
	//   - t: the texture to view
	//
	// Returns:
	//   - TextureView: the view handle
	//   - error: error if the texture is invalid or view creation fails
	CreateTextureView(t Texture) (TextureView, error)
	DestroyTextureView(v TextureView)

	// CreateBuffer allocates a buffer.
	//
	// Parameters:
	//   - desc: the buffer description
	//
	// Returns:
	//   - Buffer: the buffer handle
	//   - error: error if allocation fails
	CreateBuffer(desc BufferDescriptor) (Buffer, error)
	DestroyBuffer(b Buffer)

	// MapBuffer returns the persistent host mapping of a HostVisible buffer. The returned slice
	// has exactly the buffer's size and stays valid until the buffer is destroyed. Writes become
	// visible to the GPU after FlushMappedRange.
	//
	// Parameters:
	//   - b: the buffer to map
	//
	// Returns:
	//   - []byte: the mapped bytes
	//   - error: ErrNotMappable or ErrInvalidHandle
	MapBuffer(b Buffer) ([]byte, error)

	// FlushMappedRange makes host writes to the given span of a mapped buffer visible to the GPU.
	//
	// Parameters:
	//   - b: the mapped buffer
	//   - r: the span to flush
	//
	// Returns:
	//   - error: error if the buffer is not mapped or the span is out of range
	FlushMappedRange(b Buffer, r common.Range) error

	CreateSampler(desc SamplerDescriptor) (Sampler, error)
	DestroySampler(s Sampler)

	CreateRenderPass(desc RenderPassDescriptor) (RenderPass, error)
	DestroyRenderPass(p RenderPass)

	CreateFramebuffer(desc FramebufferDescriptor) (Framebuffer, error)
	DestroyFramebuffer(f Framebuffer)

	// CreatePipeline creates a graphics pipeline compatible with the given render pass.
	//
	// Parameters:
	//   - desc: the pipeline description
	//   - pass: the render pass whose attachments define the output formats
	//
	// Returns:
	//   - Pipeline: the pipeline handle
	//   - error: error if shader or pipeline creation fails
	CreatePipeline(desc PipelineDescriptor, pass RenderPass) (Pipeline, error)
	DestroyPipeline(p Pipeline)

	CreateDescriptorSet(desc DescriptorSetDescriptor) (DescriptorSet, error)
	DestroyDescriptorSet(s DescriptorSet)

	// NewCommandBuffer allocates a command buffer for recording.
	//
	// Returns:
	//   - CommandBuffer: the command buffer
	//   - error: error if allocation fails
	NewCommandBuffer() (CommandBuffer, error)

	// SubmitToQueue submits ended command buffers to the graphics queue in order.
	//
	// Parameters:
	//   - cmds: the command buffers to submit
	//
	// Returns:
	//   - error: error if a command buffer is still recording or submission fails
	SubmitToQueue(cmds ...CommandBuffer) error

	// WaitForQueueIdle blocks until all submitted work has completed. Callers use it as the
	// fence that guards reuse of the streaming buffer.
	//
	// Returns:
	//   - error: error if the device was lost
	WaitForQueueIdle() error

	// Release destroys the device. Every handle created from it becomes invalid.
	Release()
}

// CommandBuffer records GPU commands. Recording follows Begin, then any number of render passes
// (BeginRenderPass, state and draw commands, EndRenderPass), then End. Draw-state commands issued
// outside a render pass are programming errors and are ignored by implementations.
type CommandBuffer interface {
	// Begin resets the buffer and starts recording.
	//
	// Returns:
	//   - error: error if the buffer cannot be reset
	Begin() error

	// End finishes recording.
	//
	// Returns:
	//   - error: error if a render pass is still open or recording was not started
	End() error

	// Release frees the buffer and any recording it still holds. Submitted work is unaffected.
	// The buffer must not be used afterwards; a second Release is a no-op.
	Release()

	BeginRenderPass(pass RenderPass, fb Framebuffer, area Rect, clear []ClearValue)
	EndRenderPass()

	BeginDebugRegion(label string, color [4]float32)
	EndDebugRegion()

	BindPipeline(p Pipeline)
	SetViewport(v Viewport)
	SetScissor(r Rect)
	BindDescriptorSet(index uint32, set DescriptorSet)
	BindVertexBuffer(slot uint32, b Buffer, r common.Range)
	BindIndexBuffer(b Buffer, r common.Range)
	PushConstants(stages ShaderStage, offset uint32, data []byte)
	DrawIndexed(indexCount, instanceCount, firstIndex uint32, baseVertex int32, firstInstance uint32)
}
