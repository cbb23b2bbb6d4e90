package renderer

// RendererBackendType identifies the GPU backend implementation behind a Device.
type RendererBackendType int

const (
	// BackendTypeWGPU selects the WebGPU-based rendering backend.
	BackendTypeWGPU RendererBackendType = iota
)

// Format is a texel or vertex attribute format.
type Format int

const (
	FormatUndefined Format = iota
	// FormatRGBA8Unorm is used by both color G-buffer attachments.
	FormatRGBA8Unorm
	FormatRGBA16Float
	// FormatDepth32Float is used by the G-buffer depth attachment.
	FormatDepth32Float
	FormatFloat32x2
	FormatFloat32x3
	FormatFloat32x4
)

// IsDepth reports whether the format is a depth format.
func (f Format) IsDepth() bool {
	return f == FormatDepth32Float
}

// Size returns the byte size of one element of a vertex attribute format, or 0 for texel formats.
func (f Format) Size() uint32 {
	switch f {
	case FormatFloat32x2:
		return 8
	case FormatFloat32x3:
		return 12
	case FormatFloat32x4:
		return 16
	}
	return 0
}

// TextureUsage is a bit set describing how a texture will be used.
type TextureUsage uint32

const (
	TextureUsageColorAttachment TextureUsage = 1 << iota
	TextureUsageDepthStencilAttachment
	TextureUsageSampled
	TextureUsageTransferDst
)

// BufferUsage is a bit set describing how a buffer will be used.
type BufferUsage uint32

const (
	BufferUsageVertex BufferUsage = 1 << iota
	BufferUsageIndex
	BufferUsageUniform
	BufferUsageStorage
	BufferUsageTransferDst
)

// TextureLayout names the explicit image layouts an attachment moves through in a render pass.
// Backends without explicit layouts ignore them.
type TextureLayout int

const (
	TextureLayoutUndefined TextureLayout = iota
	TextureLayoutColorAttachment
	TextureLayoutDepthStencilAttachment
	TextureLayoutShaderReadOnly
)

// LoadOp selects what happens to attachment contents at the start of a render pass.
type LoadOp int

const (
	LoadOpClear LoadOp = iota
	LoadOpLoad
	LoadOpDontCare
)

// StoreOp selects what happens to attachment contents at the end of a render pass.
type StoreOp int

const (
	StoreOpStore StoreOp = iota
	StoreOpDontCare
)

// CullMode selects which triangle faces are discarded.
type CullMode int

const (
	CullModeBack CullMode = iota
	CullModeFront
	CullModeNone
)

// CompareOp is a depth comparison function.
type CompareOp int

const (
	CompareOpLess CompareOp = iota
	CompareOpLessEqual
	CompareOpGreater
	CompareOpGreaterEqual
	CompareOpAlways
)

// ShaderStage is a bit set of programmable pipeline stages.
type ShaderStage uint32

const (
	ShaderStageVertex ShaderStage = 1 << iota
	ShaderStageFragment
)

// VertexInputRate selects whether a vertex binding advances per vertex or per instance.
type VertexInputRate int

const (
	VertexInputRateVertex VertexInputRate = iota
	VertexInputRateInstance
)

// DescriptorType is the kind of resource bound at a descriptor binding.
type DescriptorType int

const (
	DescriptorTypeSampledTexture DescriptorType = iota
	DescriptorTypeSampler
	DescriptorTypeUniformBuffer
)

// FilterMode selects texture filtering.
type FilterMode int

const (
	FilterModeLinear FilterMode = iota
	FilterModeNearest
)

// AddressMode selects texture coordinate wrapping.
type AddressMode int

const (
	AddressModeRepeat AddressMode = iota
	AddressModeClampToEdge
)
