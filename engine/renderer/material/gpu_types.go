package material

import (
	"encoding/binary"
	"math"
	"unsafe"
)

// GPUMaterialParams is the uniform block bound at pipeline.MaterialParamsBinding.
// Matches the WGSL MaterialParams struct of the G-buffer shader.
// Size: 32 bytes (std140 aligned).
type GPUMaterialParams struct {
	BaseColor [4]float32 // offset  0: multiplied with the albedo texture (16 bytes)
	Roughness float32    // offset 16: written to the alpha of the albedo-roughness target
	Metalness float32    // offset 20: written to the alpha of the normal-metalness target
	_         [2]float32 // offset 24: padding to a 16-byte multiple
}

// Size returns the size of the GPUMaterialParams struct in bytes.
//
// Returns:
//   - int: the size of the struct in bytes.
func (g *GPUMaterialParams) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUMaterialParams struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 32-byte buffer ready for GPU upload.
func (g *GPUMaterialParams) Marshal() []byte {
	buf := make([]byte, 32)
	for i, c := range g.BaseColor {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(c))
	}
	binary.LittleEndian.PutUint32(buf[16:20], math.Float32bits(g.Roughness))
	binary.LittleEndian.PutUint32(buf[20:24], math.Float32bits(g.Metalness))
	return buf
}
