package common

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// Volume is any region of space that can be tested against an axis-aligned box.
// Spatial queries accept a Volume so the same traversal serves box and frustum culling.
type Volume interface {
	// IntersectsAABB reports whether the volume overlaps the given box.
	// Implementations may be conservative (report overlap that does not exist) but must never
	// report false for a box that actually overlaps the volume.
	//
	// Parameters:
	//   - box: the box to test
	//
	// Returns:
	//   - bool: true if the volume and box overlap
	IntersectsAABB(box AABB) bool
}

// AABB is an axis-aligned bounding box described by its minimum and maximum corners.
// Bounds are closed: a box touching another on a face is considered intersecting.
type AABB struct {
	Min mgl32.Vec3
	Max mgl32.Vec3
}

var _ Volume = AABB{}

// NewAABB builds a box from two arbitrary corners, ordering each axis so Min <= Max.
//
// Parameters:
//   - a: the first corner
//   - b: the second corner
//
// Returns:
//   - AABB: the box spanning both corners
func NewAABB(a, b mgl32.Vec3) AABB {
	return AABB{
		Min: mgl32.Vec3{min(a[0], b[0]), min(a[1], b[1]), min(a[2], b[2])},
		Max: mgl32.Vec3{max(a[0], b[0]), max(a[1], b[1]), max(a[2], b[2])},
	}
}

// AABBFromCenter builds a box centered on c with the given half extents.
//
// Parameters:
//   - c: the box center
//   - halfExtent: half the size of the box along each axis
//
// Returns:
//   - AABB: the centered box
func AABBFromCenter(c, halfExtent mgl32.Vec3) AABB {
	return NewAABB(c.Sub(halfExtent), c.Add(halfExtent))
}

// Center returns the midpoint of the box.
func (b AABB) Center() mgl32.Vec3 {
	return b.Min.Add(b.Max).Mul(0.5)
}

// Size returns the edge lengths of the box along each axis.
func (b AABB) Size() mgl32.Vec3 {
	return b.Max.Sub(b.Min)
}

// Valid reports whether Min <= Max on every axis and no component is NaN.
func (b AABB) Valid() bool {
	for i := range 3 {
		if math32.IsNaN(b.Min[i]) || math32.IsNaN(b.Max[i]) || b.Min[i] > b.Max[i] {
			return false
		}
	}
	return true
}

// Contains reports whether other lies entirely inside b (boundaries inclusive).
//
// Parameters:
//   - other: the box to test
//
// Returns:
//   - bool: true if other is fully contained
func (b AABB) Contains(other AABB) bool {
	for i := range 3 {
		if other.Min[i] < b.Min[i] || other.Max[i] > b.Max[i] {
			return false
		}
	}
	return true
}

// ContainsPoint reports whether p lies inside b (boundaries inclusive).
func (b AABB) ContainsPoint(p mgl32.Vec3) bool {
	for i := range 3 {
		if p[i] < b.Min[i] || p[i] > b.Max[i] {
			return false
		}
	}
	return true
}

// IntersectsAABB reports whether b and other overlap (boundaries inclusive).
func (b AABB) IntersectsAABB(other AABB) bool {
	for i := range 3 {
		if other.Max[i] < b.Min[i] || other.Min[i] > b.Max[i] {
			return false
		}
	}
	return true
}

// Octant returns one of the eight equal sub-boxes of b.
// Bit 0 of index selects the upper half on X, bit 1 on Y and bit 2 on Z.
//
// Parameters:
//   - index: the octant index in [0, 8)
//
// Returns:
//   - AABB: the octant's region
func (b AABB) Octant(index int) AABB {
	c := b.Center()
	o := AABB{Min: b.Min, Max: c}
	for axis := range 3 {
		if index&(1<<axis) != 0 {
			o.Min[axis] = c[axis]
			o.Max[axis] = b.Max[axis]
		}
	}
	return o
}

// DistanceToCenter returns the euclidean distance from p to the center of b.
//
// Parameters:
//   - p: the point to measure from
//
// Returns:
//   - float32: the distance in world units
func (b AABB) DistanceToCenter(p mgl32.Vec3) float32 {
	d := b.Center().Sub(p)
	return math32.Sqrt(d.Dot(d))
}
