package streaming

import (
	"slices"
	"testing"

	"github.com/Carmen-Shannon/oxy-world/common"
	"github.com/Carmen-Shannon/oxy-world/engine/renderer/renderertest"
	"github.com/Carmen-Shannon/oxy-world/engine/world"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPackWritesEveryNonEmptyGroup(t *testing.T) {
	objs := []world.StaticObject{
		placed(1, "rock", "stone", mgl32.Vec3{1, 0, 0}),
		placed(2, "rock", "stone", mgl32.Vec3{0, 2, 0}),
		placed(3, "rock", "stone", mgl32.Vec3{0, 0, 200}),
		placed(4, "tree", "bark", mgl32.Vec3{0, 40, 0}),
	}
	b, err := NewBuilder(testRegistry()).Build(mgl32.Vec3{}, slices.Values(objs))
	require.NoError(t, err)

	dev := renderertest.NewDevice()
	sb, err := NewStreamingBuffer(dev, WithCapacity(4096))
	require.NoError(t, err)
	sb.BeginFrame()

	offs, err := Pack(sb, b)
	require.NoError(t, err)
	require.Len(t, offs, len(b.LODGroups()))
	assert.Equal(t, uint64(len(objs)*common.Mat4Size), sb.Offset())

	mapped := dev.Mapped(sb.Buffer())
	var next uint64
	for _, g := range b.LODGroups() {
		r := offs.Of(g)
		if g.Empty() {
			assert.Equal(t, common.Range{}, r)
			continue
		}
		assert.Equal(t, next, r.Offset, "groups are packed back to back in draw order")
		assert.Equal(t, uint64(g.Len()*common.Mat4Size), r.Size)
		for i, inst := range b.Instances(g) {
			at := r.Offset + uint64(i*common.Mat4Size)
			assert.Equal(t, inst.Transform, common.Mat4FromBytes(mapped[at:at+common.Mat4Size]))
		}
		next = r.End()
	}
}

func TestPackOverflowFailsWholeFrame(t *testing.T) {
	objs := []world.StaticObject{
		placed(1, "rock", "stone", mgl32.Vec3{1, 0, 0}),
		placed(2, "rock", "stone", mgl32.Vec3{2, 0, 0}),
		placed(3, "tree", "bark", mgl32.Vec3{3, 0, 0}),
	}
	b, err := NewBuilder(testRegistry()).Build(mgl32.Vec3{}, slices.Values(objs))
	require.NoError(t, err)

	dev := renderertest.NewDevice()
	sb, err := NewStreamingBuffer(dev, WithCapacity(2*common.Mat4Size))
	require.NoError(t, err)
	sb.BeginFrame()

	offs, err := Pack(sb, b)
	assert.Nil(t, offs)
	require.ErrorIs(t, err, ErrStreamingOverflow)
	var oe *OverflowError
	require.ErrorAs(t, err, &oe)
	assert.Greater(t, oe.Offset+oe.Requested, oe.Capacity)
	assert.LessOrEqual(t, sb.Offset(), sb.Capacity())
	assert.Equal(t, uint64(1), sb.Stats().Overflows)
}

func TestPackEmptyBatch(t *testing.T) {
	dev := renderertest.NewDevice()
	sb, err := NewStreamingBuffer(dev, WithCapacity(64))
	require.NoError(t, err)
	sb.BeginFrame()

	offs, err := Pack(sb, &Batch{})
	require.NoError(t, err)
	assert.Empty(t, offs)
	assert.Zero(t, sb.Offset())
}

func TestGPUTypesLayout(t *testing.T) {
	m := mgl32.Translate3D(1, 2, 3)
	inst := GPUInstance{Model: m}
	assert.Equal(t, 64, inst.Size())
	assert.Equal(t, m, common.Mat4FromBytes(inst.Marshal()))

	params := GPUDrawParams{LOD: 2, InstanceCount: 7, MaterialKeyLo: 0xdeadbeef, MeshKeyLo: 1}
	assert.Equal(t, 16, params.Size())
	assert.Equal(t, []byte{
		2, 0, 0, 0,
		7, 0, 0, 0,
		0xef, 0xbe, 0xad, 0xde,
		1, 0, 0, 0,
	}, params.Marshal())
}

func TestNewGPUDrawParams(t *testing.T) {
	g := LODGroup{Material: 0x1122334455667788, Mesh: 0xaabbccdd00000042, Level: 1, instances: span{start: 3, end: 8}}
	assert.Equal(t, GPUDrawParams{LOD: 1, InstanceCount: 5, MaterialKeyLo: 0x55667788, MeshKeyLo: 0x42}, NewGPUDrawParams(g))
}
