package world

import (
	"github.com/Carmen-Shannon/oxy-world/common"
	"github.com/go-gl/mathgl/mgl32"
)

// ObjectID uniquely identifies a placed static object within a level.
type ObjectID uint64

// ObjectType groups static objects of the same kind (rock, tree, wall...). Octree nodes keep
// their objects ordered by type so objects sharing meshes and materials are visited together.
type ObjectType uint32

// StaticObject is an immutable placement record of a static object in world space.
// To move an object, remove it from the octree and insert a new record.
type StaticObject struct {
	ID       ObjectID
	Type     ObjectType
	Mesh     string
	Material string
	// Transform is the model matrix.
	Transform mgl32.Mat4
	// Bounds is the world-space bounding box.
	Bounds common.AABB
}

// NewStaticObject builds a placement record, deriving its world bounds from the mesh's
// model-space bounds and the transform.
//
// Parameters:
//   - id: the object id
//   - typ: the object type
//   - mesh: the mesh name
//   - material: the material name
//   - transform: the model matrix
//   - localBounds: the model-space bounds of the mesh
//
// Returns:
//   - StaticObject: the placement record
func NewStaticObject(id ObjectID, typ ObjectType, mesh, material string, transform mgl32.Mat4, localBounds common.AABB) StaticObject {
	return StaticObject{
		ID:        id,
		Type:      typ,
		Mesh:      mesh,
		Material:  material,
		Transform: transform,
		Bounds:    common.TransformAABB(localBounds, transform),
	}
}

// Position returns the translation part of the transform.
func (o StaticObject) Position() mgl32.Vec3 {
	return o.Transform.Col(3).Vec3()
}
