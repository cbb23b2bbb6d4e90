package streaming

import (
	"github.com/Carmen-Shannon/oxy-world/engine/resource"
	"github.com/Carmen-Shannon/oxy-world/engine/world"
	"github.com/go-gl/mathgl/mgl32"
)

// Instance is one placed object inside a LOD group.
type Instance struct {
	ID        world.ObjectID
	Transform mgl32.Mat4
}

// span is a half-open index range into one of the batch arenas.
type span struct {
	start, end int
}

func (s span) len() int {
	return s.end - s.start
}

// MaterialGroup is the top level of a batch: every mesh drawn with one material.
type MaterialGroup struct {
	Key    resource.MaterialKey
	Name   string
	meshes span
}

// MeshCount returns the number of mesh groups under the material.
func (g MaterialGroup) MeshCount() int {
	return g.meshes.len()
}

// MeshGroup holds one LOD group per level of detail of a mesh, LOD 0 first.
type MeshGroup struct {
	Material resource.MaterialKey
	Key      resource.MeshKey
	Name     string
	lods     span
}

// LODCount returns the number of LOD groups, which equals the mesh's registered level count.
func (g MeshGroup) LODCount() int {
	return g.lods.len()
}

// LODGroup is the list of instances of a mesh drawn at one level of detail.
type LODGroup struct {
	Material resource.MaterialKey
	Mesh     resource.MeshKey
	Level    int
	// Index is the position of the group among all LOD groups of the batch; Offsets are indexed by it.
	Index     int
	instances span
}

// Len returns the number of instances in the group.
func (g LODGroup) Len() int {
	return g.instances.len()
}

// Empty reports whether the group has no instances.
func (g LODGroup) Empty() bool {
	return g.instances.len() == 0
}

// Batch is the per-frame grouping material -> mesh -> LOD -> instances, stored as flat arenas.
// Materials and meshes are in ascending key order, LOD groups run from LOD 0, and instances keep
// the traversal order they were visited in. A Batch is rebuilt every frame; Reset keeps the
// allocated arenas for reuse.
type Batch struct {
	materials []MaterialGroup
	meshes    []MeshGroup
	lods      []LODGroup
	instances []Instance
}

// Materials returns the material groups in ascending key order.
func (b *Batch) Materials() []MaterialGroup {
	return b.materials
}

// Meshes returns the mesh groups of a material in ascending key order.
func (b *Batch) Meshes(mg MaterialGroup) []MeshGroup {
	return b.meshes[mg.meshes.start:mg.meshes.end]
}

// LODs returns every LOD group of a mesh, including empty ones, LOD 0 first.
func (b *Batch) LODs(m MeshGroup) []LODGroup {
	return b.lods[m.lods.start:m.lods.end]
}

// Instances returns the instances of a LOD group in traversal order.
func (b *Batch) Instances(l LODGroup) []Instance {
	return b.instances[l.instances.start:l.instances.end]
}

// LODGroups returns every LOD group of the batch in draw order.
func (b *Batch) LODGroups() []LODGroup {
	return b.lods
}

// InstanceCount returns the total number of instances in the batch.
func (b *Batch) InstanceCount() int {
	return len(b.instances)
}

// Empty reports whether the batch holds no instances.
func (b *Batch) Empty() bool {
	return len(b.instances) == 0
}

// Reset empties the batch while keeping its arenas.
func (b *Batch) Reset() {
	b.materials = b.materials[:0]
	b.meshes = b.meshes[:0]
	b.lods = b.lods[:0]
	b.instances = b.instances[:0]
}
