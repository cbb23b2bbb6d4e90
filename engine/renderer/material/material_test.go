package material

import (
	"encoding/binary"
	"errors"
	"math"
	"testing"

	"github.com/Carmen-Shannon/oxy-world/engine/renderer"
	"github.com/Carmen-Shannon/oxy-world/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-world/engine/renderer/renderertest"
	"github.com/Carmen-Shannon/oxy-world/engine/resource"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	dev     *renderertest.Device
	pipe    renderer.Pipeline
	sampler renderer.Sampler
	albedo  renderer.TextureView
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	dev := renderertest.NewDevice()
	pass, err := dev.CreateRenderPass(renderer.RenderPassDescriptor{Label: "GBufferPass"})
	require.NoError(t, err)
	pipe, err := pipeline.NewPipeline().Create(dev, pass)
	require.NoError(t, err)
	sampler, err := dev.CreateSampler(renderer.SamplerDescriptor{Label: "Albedo"})
	require.NoError(t, err)
	tex, err := dev.CreateTexture(renderer.TextureDescriptor{Label: "stone", Width: 4, Height: 4, Format: renderer.FormatRGBA8Unorm, Usage: renderer.TextureUsageSampled})
	require.NoError(t, err)
	view, err := dev.CreateTextureView(tex)
	require.NoError(t, err)
	return fixture{dev: dev, pipe: pipe, sampler: sampler, albedo: view}
}

func TestNewMaterialDefaults(t *testing.T) {
	m := NewMaterial(WithName("stone"))

	assert.Equal(t, "stone", m.Name())
	assert.Equal(t, [4]float32{1, 1, 1, 1}, m.BaseColor())
	assert.Zero(t, m.Metallic())
	assert.Equal(t, float32(1), m.Roughness())
	assert.Zero(t, m.DescriptorSet())
}

func TestParamsMarshal(t *testing.T) {
	p := NewMaterial(
		WithBaseColor([4]float32{0.5, 0.25, 1, 1}),
		WithRoughness(0.75),
		WithMetallic(0.125),
	).Params()

	assert.Equal(t, 32, p.Size())
	buf := p.Marshal()
	require.Len(t, buf, 32)
	f := func(off int) float32 { return math.Float32frombits(binary.LittleEndian.Uint32(buf[off:])) }
	assert.Equal(t, float32(0.5), f(0))
	assert.Equal(t, float32(0.25), f(4))
	assert.Equal(t, float32(0.75), f(16))
	assert.Equal(t, float32(0.125), f(20))
	assert.Zero(t, f(24))
}

func TestCreateAndRegister(t *testing.T) {
	fx := newFixture(t)
	reg := resource.NewRegistry()
	m := NewMaterial(WithName("stone"), WithAlbedo(fx.albedo), WithRoughness(0.5))

	_, err := m.Register(reg)
	require.Error(t, err)

	set, err := m.Create(fx.dev, fx.pipe, fx.sampler)
	require.NoError(t, err)
	assert.Equal(t, set, m.DescriptorSet())

	desc, ok := fx.dev.DescriptorSet(set)
	require.True(t, ok)
	assert.Equal(t, pipeline.MaterialSet, desc.Set)
	require.Len(t, desc.Writes, 3)
	assert.Equal(t, fx.albedo, desc.Writes[0].TextureView)
	assert.Equal(t, fx.sampler, desc.Writes[1].Sampler)
	params := desc.Writes[2]
	assert.Equal(t, pipeline.MaterialParamsBinding, params.Binding)
	assert.Equal(t, uint64(32), params.Range.Size)
	p := m.Params()
	assert.Equal(t, p.Marshal(), fx.dev.Mapped(params.Buffer))
	require.Len(t, fx.dev.Flushes(), 1)

	key, err := m.Register(reg)
	require.NoError(t, err)
	assert.Equal(t, resource.MaterialKeyOf("stone"), key)
	got, err := reg.ResolveMaterial(key)
	require.NoError(t, err)
	assert.Equal(t, set, got)

	_, err = m.Create(fx.dev, fx.pipe, fx.sampler)
	assert.Error(t, err)

	m.Destroy(fx.dev, reg)
	_, err = reg.ResolveMaterial(key)
	assert.ErrorIs(t, err, resource.ErrResourceKey)
	assert.Zero(t, fx.dev.Live(renderertest.KindDescriptorSet))
	assert.Zero(t, fx.dev.Live(renderertest.KindBuffer))
	assert.Zero(t, fx.dev.InvalidDestroys())
}

func TestCreateValidation(t *testing.T) {
	fx := newFixture(t)

	_, err := NewMaterial(WithAlbedo(fx.albedo)).Create(fx.dev, fx.pipe, fx.sampler)
	assert.ErrorContains(t, err, "no name")
	_, err = NewMaterial(WithName("bare")).Create(fx.dev, fx.pipe, fx.sampler)
	assert.ErrorContains(t, err, "no albedo")
	assert.Zero(t, fx.dev.Live(renderertest.KindBuffer))
}

func TestCreateFailureReleasesBuffer(t *testing.T) {
	fx := newFixture(t)
	boom := errors.New("out of descriptors")
	fx.dev.Fail(renderertest.KindDescriptorSet, boom)

	m := NewMaterial(WithName("stone"), WithAlbedo(fx.albedo))
	_, err := m.Create(fx.dev, fx.pipe, fx.sampler)
	assert.ErrorIs(t, err, boom)
	assert.Zero(t, m.DescriptorSet())
	assert.Zero(t, fx.dev.Live(renderertest.KindBuffer))
}
