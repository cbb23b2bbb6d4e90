package material

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-world/common"
	"github.com/Carmen-Shannon/oxy-world/engine/renderer"
	"github.com/Carmen-Shannon/oxy-world/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-world/engine/resource"
)

// material is the implementation of the Material interface.
type material struct {
	name      string
	baseColor [4]float32
	metallic  float32
	roughness float32
	albedo    renderer.TextureView

	params renderer.Buffer
	set    renderer.DescriptorSet
	key    resource.MaterialKey
}

// Material is a G-buffer surface: an albedo texture tinted by a base color, plus the roughness
// and metallic factors written to the alpha channels of the G-buffer color targets.
//
// Surface properties are fixed at construction. Create uploads them and builds the descriptor
// set the draw recorder binds for every batch of the material; Register publishes that set to a
// resource.Registry under the material name.
type Material interface {
	// Name retrieves the material identifier.
	//
	// Returns:
	//   - string: the name of the material
	Name() string

	// BaseColor retrieves the RGBA color multiplied with the albedo texture.
	//
	// Returns:
	//   - [4]float32: the base color as RGBA values
	BaseColor() [4]float32

	// Metallic retrieves the metallic factor of the material.
	//
	// Returns:
	//   - float32: the metallic factor
	Metallic() float32

	// Roughness retrieves the roughness factor of the material.
	//
	// Returns:
	//   - float32: the roughness factor
	Roughness() float32

	// Albedo retrieves the albedo texture view.
	//
	// Returns:
	//   - renderer.TextureView: the view, zero if none was set
	Albedo() renderer.TextureView

	// Params returns the uniform block uploaded by Create.
	//
	// Returns:
	//   - GPUMaterialParams: the material parameters
	Params() GPUMaterialParams

	// DescriptorSet returns the descriptor set built by Create, or zero before Create.
	DescriptorSet() renderer.DescriptorSet

	// Create uploads the material parameters into a uniform buffer and allocates the material
	// descriptor set against the G-buffer pipeline. On failure nothing stays allocated.
	//
	// Parameters:
	//   - dev: the device to allocate on
	//   - pipe: the G-buffer pipeline whose material set layout is used
	//   - sampler: the sampler reading the albedo texture
	//
	// Returns:
	//   - renderer.DescriptorSet: the material descriptor set
	//   - error: error if the material has no name or albedo, was already created, or allocation fails
	Create(dev renderer.Device, pipe renderer.Pipeline, sampler renderer.Sampler) (renderer.DescriptorSet, error)

	// Register publishes the descriptor set under the material name.
	//
	// Parameters:
	//   - reg: the registry world objects resolve materials through
	//
	// Returns:
	//   - resource.MaterialKey: the key of the material
	//   - error: error if Create has not succeeded
	Register(reg resource.Registry) (resource.MaterialKey, error)

	// Destroy unregisters the material from reg, when non-nil, and releases its GPU resources.
	//
	// Parameters:
	//   - dev: the device the material was created on
	//   - reg: the registry passed to Register, or nil
	Destroy(dev renderer.Device, reg resource.Registry)
}

var _ Material = &material{}

// NewMaterial creates a new Material instance configured with the provided options.
// Defaults: white base color, dielectric, fully rough.
//
// Parameters:
//   - options: variadic list of MaterialBuilderOption functions to configure the material
//
// Returns:
//   - Material: a new Material instance
func NewMaterial(options ...MaterialBuilderOption) Material {
	m := &material{
		baseColor: [4]float32{1, 1, 1, 1},
		metallic:  0.0,
		roughness: 1.0,
	}
	for _, opt := range options {
		opt(m)
	}
	return m
}

func (m *material) Name() string {
	return m.name
}

func (m *material) BaseColor() [4]float32 {
	return m.baseColor
}

func (m *material) Metallic() float32 {
	return m.metallic
}

func (m *material) Roughness() float32 {
	return m.roughness
}

func (m *material) Albedo() renderer.TextureView {
	return m.albedo
}

func (m *material) Params() GPUMaterialParams {
	return GPUMaterialParams{
		BaseColor: m.baseColor,
		Roughness: m.roughness,
		Metalness: m.metallic,
	}
}

func (m *material) DescriptorSet() renderer.DescriptorSet {
	return m.set
}

func (m *material) Create(dev renderer.Device, pipe renderer.Pipeline, sampler renderer.Sampler) (renderer.DescriptorSet, error) {
	if m.name == "" {
		return 0, fmt.Errorf("material has no name")
	}
	if m.albedo == 0 {
		return 0, fmt.Errorf("material %q has no albedo texture", m.name)
	}
	if m.set != 0 {
		return 0, fmt.Errorf("material %q is already created", m.name)
	}

	params := m.Params()
	data := params.Marshal()
	buf, err := dev.CreateBuffer(renderer.BufferDescriptor{
		Label:       m.name + " Params",
		Size:        uint64(len(data)),
		Usage:       renderer.BufferUsageUniform,
		HostVisible: true,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to create params buffer of material %q: %w", m.name, err)
	}
	mapped, err := dev.MapBuffer(buf)
	if err != nil {
		dev.DestroyBuffer(buf)
		return 0, fmt.Errorf("failed to map params buffer of material %q: %w", m.name, err)
	}
	copy(mapped, data)
	span := common.Range{Size: uint64(len(data))}
	if err := dev.FlushMappedRange(buf, span); err != nil {
		dev.DestroyBuffer(buf)
		return 0, fmt.Errorf("failed to upload params of material %q: %w", m.name, err)
	}

	set, err := dev.CreateDescriptorSet(renderer.DescriptorSetDescriptor{
		Label:    m.name,
		Pipeline: pipe,
		Set:      pipeline.MaterialSet,
		Writes: []renderer.DescriptorWrite{
			{Binding: pipeline.MaterialAlbedoBinding, TextureView: m.albedo},
			{Binding: pipeline.MaterialSamplerBinding, Sampler: sampler},
			{Binding: pipeline.MaterialParamsBinding, Buffer: buf, Range: span},
		},
	})
	if err != nil {
		dev.DestroyBuffer(buf)
		return 0, fmt.Errorf("failed to create descriptor set of material %q: %w", m.name, err)
	}

	m.params = buf
	m.set = set
	return set, nil
}

func (m *material) Register(reg resource.Registry) (resource.MaterialKey, error) {
	if m.set == 0 {
		return 0, fmt.Errorf("material %q must be created before it is registered", m.name)
	}
	m.key = reg.RegisterMaterial(m.name, m.set)
	return m.key, nil
}

func (m *material) Destroy(dev renderer.Device, reg resource.Registry) {
	if reg != nil && m.key != 0 {
		reg.UnregisterMaterial(m.key)
		m.key = 0
	}
	dev.DestroyDescriptorSet(m.set)
	dev.DestroyBuffer(m.params)
	m.set = 0
	m.params = 0
}
