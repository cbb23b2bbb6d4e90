package common

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
)

func TestAABBContainsAndIntersects(t *testing.T) {
	box := NewAABB(mgl32.Vec3{10, 10, 10}, mgl32.Vec3{0, 0, 0})
	assert.Equal(t, mgl32.Vec3{0, 0, 0}, box.Min)
	assert.Equal(t, mgl32.Vec3{10, 10, 10}, box.Max)

	inner := NewAABB(mgl32.Vec3{1, 1, 1}, mgl32.Vec3{2, 2, 2})
	straddling := NewAABB(mgl32.Vec3{9, 9, 9}, mgl32.Vec3{11, 11, 11})
	outside := NewAABB(mgl32.Vec3{20, 20, 20}, mgl32.Vec3{21, 21, 21})
	touching := NewAABB(mgl32.Vec3{10, 0, 0}, mgl32.Vec3{12, 1, 1})

	assert.True(t, box.Contains(box))
	assert.True(t, box.Contains(inner))
	assert.False(t, box.Contains(straddling))
	assert.True(t, box.IntersectsAABB(straddling))
	assert.False(t, box.IntersectsAABB(outside))
	assert.True(t, box.IntersectsAABB(touching))
}

func TestAABBOctantsPartitionParent(t *testing.T) {
	box := NewAABB(mgl32.Vec3{0, 0, 0}, mgl32.Vec3{8, 8, 8})
	var volume float32
	for i := range 8 {
		o := box.Octant(i)
		assert.True(t, box.Contains(o), "octant %d escapes parent", i)
		s := o.Size()
		volume += s[0] * s[1] * s[2]
	}
	assert.InDelta(t, 512, volume, 1e-3)
	assert.Equal(t, mgl32.Vec3{4, 4, 4}, box.Octant(7).Min)
	assert.Equal(t, mgl32.Vec3{4, 0, 0}, box.Octant(1).Min)
	assert.Equal(t, mgl32.Vec3{0, 4, 0}, box.Octant(2).Min)
	assert.Equal(t, mgl32.Vec3{0, 0, 4}, box.Octant(4).Min)
}

func TestTransformAABB(t *testing.T) {
	local := NewAABB(mgl32.Vec3{-1, -1, -1}, mgl32.Vec3{1, 1, 1})
	m := mgl32.Translate3D(5, 0, 0).Mul4(mgl32.Scale3D(2, 1, 1))
	world := TransformAABB(local, m)
	assert.InDelta(t, 3, world.Min[0], 1e-5)
	assert.InDelta(t, 7, world.Max[0], 1e-5)
	assert.InDelta(t, -1, world.Min[1], 1e-5)

	rot := TransformAABB(local, mgl32.HomogRotate3DY(mgl32.DegToRad(45)))
	assert.InDelta(t, 1.41421, rot.Max[0], 1e-4)
	assert.InDelta(t, -1.41421, rot.Min[2], 1e-4)
}

func TestFrustumIntersectsAABB(t *testing.T) {
	proj := mgl32.Perspective(mgl32.DegToRad(60), 1, 0.1, 100)
	view := mgl32.LookAtV(mgl32.Vec3{0, 0, 0}, mgl32.Vec3{0, 0, -1}, mgl32.Vec3{0, 1, 0})
	f := ExtractFrustumFromMatrix(proj.Mul4(view))

	ahead := AABBFromCenter(mgl32.Vec3{0, 0, -10}, mgl32.Vec3{1, 1, 1})
	behind := AABBFromCenter(mgl32.Vec3{0, 0, 10}, mgl32.Vec3{1, 1, 1})
	tooFar := AABBFromCenter(mgl32.Vec3{0, 0, -500}, mgl32.Vec3{1, 1, 1})
	left := AABBFromCenter(mgl32.Vec3{-100, 0, -10}, mgl32.Vec3{1, 1, 1})

	assert.True(t, f.IntersectsAABB(ahead))
	assert.False(t, f.IntersectsAABB(behind))
	assert.False(t, f.IntersectsAABB(tooFar))
	assert.False(t, f.IntersectsAABB(left))
}

func TestPutMat4RoundTrip(t *testing.T) {
	m := mgl32.Translate3D(1, 2, 3)
	buf := make([]byte, Mat4Size)
	PutMat4(buf, m)
	assert.Equal(t, m, Mat4FromBytes(buf))
	// Translation lives in column 3 (elements 12..14).
	assert.Equal(t, []byte{0, 0, 0x80, 0x3f}, buf[48:52])
}

func TestLog2Floor(t *testing.T) {
	cases := map[float32]int{0.5: 0, 1: 0, 1.9: 0, 2: 1, 3.99: 1, 4: 2, 1024: 10}
	for in, want := range cases {
		assert.Equal(t, want, Log2Floor(in), "Log2Floor(%v)", in)
	}
}
