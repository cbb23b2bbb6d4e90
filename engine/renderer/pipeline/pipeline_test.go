package pipeline

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-world/engine/renderer"
	"github.com/Carmen-Shannon/oxy-world/engine/renderer/renderertest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPipelineDefaults(t *testing.T) {
	p := NewPipeline()

	assert.Equal(t, "GBuffer", p.PipelineKey())
	assert.True(t, p.DepthTestEnabled())
	assert.True(t, p.DepthWriteEnabled())
	assert.Equal(t, renderer.CompareOpLess, p.DepthCompare())
	assert.Equal(t, renderer.CullModeBack, p.CullMode())
	assert.Equal(t, uint32(44), p.VertexStride())
	assert.Equal(t, uint32(80), p.PushConstantSize())
}

func TestDescriptorLayout(t *testing.T) {
	desc := NewPipeline().Descriptor()

	require.Len(t, desc.VertexBindings, 2)
	vertex := desc.VertexBindings[VertexSlot]
	assert.Equal(t, uint32(44), vertex.Stride)
	assert.Equal(t, renderer.VertexInputRateVertex, vertex.InputRate)
	require.Len(t, vertex.Attributes, 4)
	last := vertex.Attributes[3]
	assert.Equal(t, vertex.Stride, last.Offset+last.Format.Size())

	instance := desc.VertexBindings[InstanceSlot]
	assert.Equal(t, InstanceStride, instance.Stride)
	assert.Equal(t, renderer.VertexInputRateInstance, instance.InputRate)

	require.Len(t, desc.SetLayouts, 1)
	require.Len(t, desc.SetLayouts[MaterialSet], 3)
	assert.Equal(t, renderer.DescriptorTypeUniformBuffer, desc.SetLayouts[MaterialSet][MaterialParamsBinding].Type)
	assert.True(t, desc.ClockwiseFront)
	assert.NotEmpty(t, desc.ShaderSource)
	assert.Contains(t, desc.ShaderSource, desc.VertexEntry)
	assert.Contains(t, desc.ShaderSource, desc.FragmentEntry)
}

func TestBuilderOptions(t *testing.T) {
	p := NewPipeline(
		WithPipelineKey("Terrain"),
		WithCullMode(renderer.CullModeNone),
		WithDepthCompare(renderer.CompareOpGreater),
		WithDepthWriteEnabled(false),
		WithVertexStride(48),
		WithClockwiseFrontFace(false),
	)
	desc := p.Descriptor()

	assert.Equal(t, "Terrain", desc.Label)
	assert.Equal(t, renderer.CullModeNone, desc.CullMode)
	assert.Equal(t, renderer.CompareOpGreater, desc.DepthCompare)
	assert.False(t, desc.DepthWrite)
	assert.False(t, desc.ClockwiseFront)
	assert.Equal(t, uint32(48), desc.VertexBindings[0].Stride)
}

func TestCreate(t *testing.T) {
	dev := renderertest.NewDevice()
	pass, err := dev.CreateRenderPass(renderer.RenderPassDescriptor{Label: "GBuffer Pass"})
	require.NoError(t, err)

	h, err := NewPipeline().Create(dev, pass)
	require.NoError(t, err)
	assert.NotZero(t, h)
	assert.Equal(t, 1, dev.Live(renderertest.KindPipeline))

	got, ok := dev.Pipeline(h)
	require.True(t, ok)
	assert.Equal(t, PushConstantSize, got.PushConstantSize)
}

func TestCreateRejectsInvalidConfig(t *testing.T) {
	dev := renderertest.NewDevice()
	pass, err := dev.CreateRenderPass(renderer.RenderPassDescriptor{})
	require.NoError(t, err)

	tests := []struct {
		name string
		opts []PipelineBuilderOption
	}{
		{"empty shader", []PipelineBuilderOption{WithShaderSource("", "vs", "fs")}},
		{"short stride", []PipelineBuilderOption{WithVertexStride(32)}},
		{"small push constants", []PipelineBuilderOption{WithPushConstantSize(64)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewPipeline(tt.opts...).Create(dev, pass)
			assert.Error(t, err)
		})
	}
	assert.Zero(t, dev.Live(renderertest.KindPipeline))
}
