package draw

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-world/common"
	"github.com/Carmen-Shannon/oxy-world/engine/renderer"
	"github.com/Carmen-Shannon/oxy-world/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-world/engine/resource"
	"github.com/Carmen-Shannon/oxy-world/engine/streaming"
	"github.com/go-gl/mathgl/mgl32"
)

// ErrMissingOffsets is returned when a non-empty LOD group has no matching streaming buffer range.
var ErrMissingOffsets = errors.New("draw: missing instance offsets")

// Stats describes the most recent Record call.
type Stats struct {
	DrawCalls       int
	DescriptorBinds int
	Instances       int
}

// step is one resolved draw, computed before any command is emitted.
type step struct {
	bindSet   bool
	set       renderer.DescriptorSet
	lod       resource.MeshLOD
	instances common.Range
	params    streaming.GPUDrawParams
}

// recorder is the implementation of the Recorder interface.
type recorder struct {
	registry resource.Registry
	pipeline renderer.Pipeline
	stages   renderer.ShaderStage
	label    string

	viewProj  [common.Mat4Size]byte
	plan      []step
	instances renderer.Buffer
	stats     Stats
}

// Recorder turns a packed batch into G-buffer draw commands.
//
// Every material set and mesh LOD is resolved before the first command is written, so a failed
// Record leaves the command buffer untouched. A Recorder is owned by one goroutine.
type Recorder interface {
	// SetViewProjection sets the view-projection matrix pushed at the start of the next Record.
	//
	// Parameters:
	//   - m: the combined view-projection matrix
	SetViewProjection(m mgl32.Mat4)

	// Prepare resolves every draw of b without touching any command buffer. Emit writes the
	// prepared draws.
	//
	// Parameters:
	//   - b: the batch to draw
	//   - offs: the packed instance ranges of b
	//   - instances: the streaming buffer the ranges refer to
	//
	// Returns:
	//   - error: a *resource.KeyError for unresolvable resources, ErrMissingOffsets, or
	//     renderer.ErrInvalidHandle for a zero instance buffer
	Prepare(b *streaming.Batch, offs streaming.Offsets, instances renderer.Buffer) error

	// Emit records the draws resolved by the last successful Prepare. It writes nothing when the
	// prepared batch had no instances.
	//
	// Parameters:
	//   - cmd: the command buffer, inside the G-buffer render pass
	Emit(cmd renderer.CommandBuffer)

	// Record is Prepare followed by Emit. It binds the pipeline, pushes the view-projection matrix and draws every non-empty LOD
	// group of b. Materials are bound once each in ascending key order; within a material, meshes
	// are drawn in ascending key order and LOD 0 first. Each draw binds the mesh's vertex range to
	// the vertex slot, the group's instance range to the instance slot, the mesh's index range,
	// pushes the group's GPUDrawParams and issues one instanced indexed draw.
	//
	// Parameters:
	//   - cmd: the command buffer, inside the G-buffer render pass
	//   - b: the batch to draw
	//   - offs: the packed instance ranges of b
	//   - instances: the streaming buffer the ranges refer to
	//
	// Returns:
	//   - error: a *resource.KeyError for unresolvable resources, ErrMissingOffsets, or
	//     renderer.ErrInvalidHandle for a zero instance buffer
	Record(cmd renderer.CommandBuffer, b *streaming.Batch, offs streaming.Offsets, instances renderer.Buffer) error

	// Stats returns the counters of the last Emit.
	Stats() Stats
}

var _ Recorder = &recorder{}

// NewRecorder creates a Recorder drawing with pipeline.
//
// Parameters:
//   - reg: the registry materials and meshes are resolved through
//   - p: the G-buffer pipeline
//   - opts: optional RecorderBuilderOption functions
//
// Returns:
//   - Recorder: the new recorder
func NewRecorder(reg resource.Registry, p renderer.Pipeline, opts ...RecorderBuilderOption) Recorder {
	r := &recorder{
		registry: reg,
		pipeline: p,
		stages:   renderer.ShaderStageVertex,
		label:    "StaticObjects",
	}
	common.PutMat4(r.viewProj[:], mgl32.Ident4())
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *recorder) SetViewProjection(m mgl32.Mat4) {
	common.PutMat4(r.viewProj[:], m)
}

func (r *recorder) Record(cmd renderer.CommandBuffer, b *streaming.Batch, offs streaming.Offsets, instances renderer.Buffer) error {
	if err := r.Prepare(b, offs, instances); err != nil {
		return err
	}
	r.Emit(cmd)
	return nil
}

func (r *recorder) Emit(cmd renderer.CommandBuffer) {
	r.stats = Stats{}
	if len(r.plan) == 0 {
		return
	}

	if r.label != "" {
		cmd.BeginDebugRegion(r.label, [4]float32{0.2, 0.6, 0.2, 1})
		defer cmd.EndDebugRegion()
	}
	cmd.BindPipeline(r.pipeline)
	cmd.PushConstants(r.stages, pipeline.ViewProjectionOffset, r.viewProj[:])

	for _, s := range r.plan {
		if s.bindSet {
			cmd.BindDescriptorSet(pipeline.MaterialSet, s.set)
			r.stats.DescriptorBinds++
		}
		cmd.BindVertexBuffer(pipeline.VertexSlot, s.lod.VertexBuffer, s.lod.Vertex)
		cmd.BindVertexBuffer(pipeline.InstanceSlot, r.instances, s.instances)
		cmd.BindIndexBuffer(s.lod.IndexBuffer, s.lod.Index)
		cmd.PushConstants(r.stages, pipeline.DrawParamsOffset, s.params.Marshal())
		cmd.DrawIndexed(s.lod.IndexCount, s.params.InstanceCount, 0, 0, 0)

		r.stats.DrawCalls++
		r.stats.Instances += int(s.params.InstanceCount)
	}
}

// Prepare builds the draw plan for b. Materials with no non-empty group are skipped entirely.
func (r *recorder) Prepare(b *streaming.Batch, offs streaming.Offsets, instances renderer.Buffer) error {
	r.plan = r.plan[:0]
	r.instances = instances

	for _, mg := range b.Materials() {
		first := true
		var set renderer.DescriptorSet
		for _, m := range b.Meshes(mg) {
			for _, g := range b.LODs(m) {
				if g.Empty() {
					continue
				}
				if first {
					s, err := r.registry.ResolveMaterial(mg.Key)
					if err != nil {
						r.plan = r.plan[:0]
						return fmt.Errorf("resolving material: %w", resource.NameKeyError(err, mg.Name))
					}
					set = s
				}
				lod, err := r.registry.ResolveMesh(m.Key, g.Level)
				if err != nil {
					r.plan = r.plan[:0]
					return fmt.Errorf("resolving mesh: %w", resource.NameKeyError(err, m.Name))
				}
				rng := offs.Of(g)
				if want := uint64(g.Len()) * uint64(pipeline.InstanceStride); rng.Size != want {
					r.plan = r.plan[:0]
					return fmt.Errorf("%w: lod group %d has %d bytes, want %d", ErrMissingOffsets, g.Index, rng.Size, want)
				}
				r.plan = append(r.plan, step{
					bindSet:   first,
					set:       set,
					lod:       lod,
					instances: rng,
					params:    streaming.NewGPUDrawParams(g),
				})
				first = false
			}
		}
	}

	if len(r.plan) > 0 && instances == 0 {
		r.plan = r.plan[:0]
		return fmt.Errorf("instance buffer: %w", renderer.ErrInvalidHandle)
	}
	return nil
}

func (r *recorder) Stats() Stats {
	return r.stats
}
