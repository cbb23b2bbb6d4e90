package common

import (
	"encoding/binary"
	"math"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// Mat4Size is the byte size of a column-major 4x4 float32 matrix.
const Mat4Size = 64

// TransformAABB returns the world-space box enclosing local after transformation by m.
// Uses Arvo's method: each output axis accumulates the min/max contributions of every
// matrix column, which is exact for affine transforms.
//
// Parameters:
//   - local: the model-space box
//   - m: the affine model matrix
//
// Returns:
//   - AABB: the enclosing world-space box
func TransformAABB(local AABB, m mgl32.Mat4) AABB {
	translation := m.Col(3).Vec3()
	out := AABB{Min: translation, Max: translation}
	for col := range 3 {
		for row := range 3 {
			e := m.At(row, col)
			a := e * local.Min[col]
			b := e * local.Max[col]
			out.Min[row] += min(a, b)
			out.Max[row] += max(a, b)
		}
	}
	return out
}

// PutMat4 writes m into dst as 16 little-endian float32 values in column-major order.
// dst must be at least Mat4Size bytes long.
//
// Parameters:
//   - dst: destination byte slice
//   - m: the matrix to serialize
func PutMat4(dst []byte, m mgl32.Mat4) {
	_ = dst[Mat4Size-1]
	for i, v := range m {
		binary.LittleEndian.PutUint32(dst[i*4:], math.Float32bits(v))
	}
}

// Mat4FromBytes is the inverse of PutMat4.
func Mat4FromBytes(src []byte) mgl32.Mat4 {
	var m mgl32.Mat4
	for i := range m {
		m[i] = math.Float32frombits(binary.LittleEndian.Uint32(src[i*4:]))
	}
	return m
}

// Log2Floor returns floor(log2(x)) for x >= 1 and 0 otherwise.
func Log2Floor(x float32) int {
	if x < 1 {
		return 0
	}
	return int(math32.Floor(math32.Log2(x)))
}
