package streaming

import (
	"cmp"
	"iter"
	"slices"

	"github.com/Carmen-Shannon/oxy-world/common"
	"github.com/Carmen-Shannon/oxy-world/engine/resource"
	"github.com/Carmen-Shannon/oxy-world/engine/world"
	"github.com/go-gl/mathgl/mgl32"
)

// pending is one visible object resolved to its group keys, kept in traversal order until sorted.
type pending struct {
	material     resource.MaterialKey
	mesh         resource.MeshKey
	level        int
	inst         Instance
	materialName string
	meshName     string
}

func comparePending(a, b pending) int {
	return cmp.Or(
		cmp.Compare(a.material, b.material),
		cmp.Compare(a.mesh, b.mesh),
		cmp.Compare(a.level, b.level),
	)
}

// builder is the implementation of the Builder interface.
type builder struct {
	registry resource.Registry
	policy   LODPolicy

	batch     Batch
	scratch   []pending
	lodCounts map[resource.MeshKey]int
	materials map[resource.MaterialKey]struct{}
}

// Builder groups visible objects into a Batch.
//
// A Builder reuses its batch and scratch storage between frames and is owned by a single goroutine.
type Builder interface {
	// Build groups the visible objects by material, mesh and LOD. Keys come from the resource
	// names, the LOD from the policy applied to the distance between cameraPos and the object's
	// bounds center. The result depends only on the inputs and the registry contents.
	//
	// The returned batch is owned by the builder and stays valid until the next call to Build.
	//
	// Parameters:
	//   - cameraPos: the world-space camera position
	//   - visible: the visible objects in traversal order
	//
	// Returns:
	//   - *Batch: the grouped batch
	//   - error: a *resource.KeyError if an object names an unregistered material or mesh
	Build(cameraPos mgl32.Vec3, visible iter.Seq[world.StaticObject]) (*Batch, error)
}

var _ Builder = &builder{}

// NewBuilder creates a Builder resolving resources through reg.
//
// Parameters:
//   - reg: the resource registry
//   - opts: optional BuilderOption functions
//
// Returns:
//   - Builder: the new builder
func NewBuilder(reg resource.Registry, opts ...BuilderOption) Builder {
	b := &builder{
		registry:  reg,
		policy:    DistanceLODPolicy{BaseDistance: DefaultLODBaseDistance},
		lodCounts: make(map[resource.MeshKey]int),
		materials: make(map[resource.MaterialKey]struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *builder) Build(cameraPos mgl32.Vec3, visible iter.Seq[world.StaticObject]) (*Batch, error) {
	b.batch.Reset()
	b.scratch = b.scratch[:0]
	clear(b.lodCounts)
	clear(b.materials)

	for obj := range visible {
		p, err := b.resolve(cameraPos, obj)
		if err != nil {
			b.scratch = b.scratch[:0]
			return nil, err
		}
		b.scratch = append(b.scratch, p)
	}

	// Stable sorting keeps traversal order inside every LOD group.
	slices.SortStableFunc(b.scratch, comparePending)
	b.emit()
	return &b.batch, nil
}

// resolve computes the group keys and LOD of obj, caching registry lookups for the frame.
func (b *builder) resolve(cameraPos mgl32.Vec3, obj world.StaticObject) (pending, error) {
	mat := resource.MaterialKeyOf(obj.Material)
	if _, ok := b.materials[mat]; !ok {
		if _, err := b.registry.ResolveMaterial(mat); err != nil {
			return pending{}, resource.NameKeyError(err, obj.Material)
		}
		b.materials[mat] = struct{}{}
	}

	mesh := resource.MeshKeyOf(obj.Mesh)
	count, ok := b.lodCounts[mesh]
	if !ok {
		n, err := b.registry.LODCount(mesh)
		if err != nil {
			return pending{}, resource.NameKeyError(err, obj.Mesh)
		}
		count = n
		b.lodCounts[mesh] = n
	}

	// Clamped so a misbehaving policy cannot produce a level outside the mesh's groups.
	level := common.Clamp(b.policy.Select(obj.Bounds.DistanceToCenter(cameraPos), count), 0, count-1)
	return pending{
		material:     mat,
		mesh:         mesh,
		level:        level,
		inst:         Instance{ID: obj.ID, Transform: obj.Transform},
		materialName: obj.Material,
		meshName:     obj.Mesh,
	}, nil
}

// emit fills the batch arenas from the sorted scratch records. Every mesh group receives one LOD
// group per registered level, empty groups included.
func (b *builder) emit() {
	bt := &b.batch
	for _, p := range b.scratch {
		bt.instances = append(bt.instances, p.inst)
	}

	i := 0
	for i < len(b.scratch) {
		mat := b.scratch[i].material
		mg := MaterialGroup{Key: mat, Name: b.scratch[i].materialName, meshes: span{start: len(bt.meshes)}}

		for i < len(b.scratch) && b.scratch[i].material == mat {
			mesh := b.scratch[i].mesh
			meshGroup := MeshGroup{Material: mat, Key: mesh, Name: b.scratch[i].meshName, lods: span{start: len(bt.lods)}}

			for level := range b.lodCounts[mesh] {
				start := i
				for i < len(b.scratch) && b.scratch[i].material == mat && b.scratch[i].mesh == mesh && b.scratch[i].level == level {
					i++
				}
				bt.lods = append(bt.lods, LODGroup{
					Material:  mat,
					Mesh:      mesh,
					Level:     level,
					Index:     len(bt.lods),
					instances: span{start: start, end: i},
				})
			}

			meshGroup.lods.end = len(bt.lods)
			bt.meshes = append(bt.meshes, meshGroup)
		}

		mg.meshes.end = len(bt.meshes)
		bt.materials = append(bt.materials, mg)
	}
}
