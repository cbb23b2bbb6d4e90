package streaming

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-world/common"
)

// Offsets holds the streaming buffer range of every LOD group of a batch, indexed by
// LODGroup.Index. Empty groups have a zero range.
type Offsets []common.Range

// Of returns the range of g.
func (o Offsets) Of(g LODGroup) common.Range {
	if g.Index < 0 || g.Index >= len(o) {
		return common.Range{}
	}
	return o[g.Index]
}

// Pack serializes every non-empty LOD group of b as one contiguous run of GPUInstance records and
// writes it to sb. The caller must have called BeginFrame. Packing stops at the first overflow and
// the whole frame's offsets are discarded.
//
// Parameters:
//   - sb: the streaming buffer to write to
//   - b: the batch to pack
//
// Returns:
//   - Offsets: the range of each LOD group
//   - error: a wrapped *OverflowError if the batch does not fit
func Pack(sb StreamingBuffer, b *Batch) (Offsets, error) {
	groups := b.LODGroups()
	offs := make(Offsets, len(groups))

	largest := 0
	for _, g := range groups {
		largest = max(largest, g.Len())
	}
	scratch := make([]byte, largest*common.Mat4Size)

	for _, g := range groups {
		if g.Empty() {
			continue
		}
		data := scratch[:g.Len()*common.Mat4Size]
		for i, inst := range b.Instances(g) {
			gi := GPUInstance{Model: inst.Transform}
			gi.Put(data[i*common.Mat4Size:])
		}
		at, err := sb.Write(data)
		if err != nil {
			return nil, fmt.Errorf("packing lod %d of mesh %#016x: %w", g.Level, uint64(g.Mesh), err)
		}
		offs[g.Index] = common.Range{Offset: at, Size: uint64(len(data))}
	}
	return offs, nil
}
