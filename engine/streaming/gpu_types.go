package streaming

import (
	"encoding/binary"
	"unsafe"

	"github.com/Carmen-Shannon/oxy-world/common"
	"github.com/go-gl/mathgl/mgl32"
)

// GPUInstance is the GPU-aligned representation of one streamed instance.
// Matches the InstanceInput locations 4..7 of the G-buffer shader (four vec4<f32> columns).
// Size: 64 bytes.
type GPUInstance struct {
	Model mgl32.Mat4 // offset 0: column-major model matrix
}

// Size returns the size of the GPUInstance struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (64)
func (g *GPUInstance) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUInstance struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: the serialized byte buffer
func (g *GPUInstance) Marshal() []byte {
	buf := make([]byte, common.Mat4Size)
	g.Put(buf)
	return buf
}

// Put serializes the instance into the first 64 bytes of dst.
func (g *GPUInstance) Put(dst []byte) {
	common.PutMat4(dst, g.Model)
}

// GPUDrawParams is the per-draw push constant block that follows the view-projection matrix.
// Matches the lod..mesh_key_lo members of the shader's PushConstants struct.
// Size: 16 bytes.
type GPUDrawParams struct {
	LOD           uint32 // offset  0: level of detail being drawn
	InstanceCount uint32 // offset  4: instances in the draw
	MaterialKeyLo uint32 // offset  8: low 32 bits of the material key
	MeshKeyLo     uint32 // offset 12: low 32 bits of the mesh key
}

// NewGPUDrawParams builds the draw parameters of a LOD group.
//
// Parameters:
//   - g: the LOD group being drawn
//
// Returns:
//   - GPUDrawParams: the push constant block
func NewGPUDrawParams(g LODGroup) GPUDrawParams {
	return GPUDrawParams{
		LOD:           uint32(g.Level),
		InstanceCount: uint32(g.Len()),
		MaterialKeyLo: lo32(uint64(g.Material)),
		MeshKeyLo:     lo32(uint64(g.Mesh)),
	}
}

func lo32(k uint64) uint32 {
	return uint32(k & 0xffffffff)
}

// Size returns the size of the GPUDrawParams struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (16)
func (g *GPUDrawParams) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUDrawParams struct into a byte buffer suitable for a push constant upload.
//
// Returns:
//   - []byte: the serialized byte buffer
func (g *GPUDrawParams) Marshal() []byte {
	buf := make([]byte, 16)
	binary.LittleEndian.PutUint32(buf[0:4], g.LOD)
	binary.LittleEndian.PutUint32(buf[4:8], g.InstanceCount)
	binary.LittleEndian.PutUint32(buf[8:12], g.MaterialKeyLo)
	binary.LittleEndian.PutUint32(buf[12:16], g.MeshKeyLo)
	return buf
}

