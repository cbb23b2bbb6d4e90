package streaming

import (
	"slices"
	"testing"

	"github.com/Carmen-Shannon/oxy-world/engine/resource"
	"github.com/Carmen-Shannon/oxy-world/engine/world"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildGroupsByMaterialMeshAndLOD(t *testing.T) {
	reg := testRegistry()
	objs := []world.StaticObject{
		placed(1, "rock", "stone", mgl32.Vec3{10, 0, 0}),  // lod 0
		placed(2, "tree", "bark", mgl32.Vec3{0, 0, 40}),   // lod 1
		placed(3, "rock", "stone", mgl32.Vec3{0, 100, 0}), // lod 2
		placed(4, "rock", "bark", mgl32.Vec3{5, 0, 0}),    // lod 0
		placed(5, "rock", "stone", mgl32.Vec3{0, 0, 12}),  // lod 0
		placed(6, "tree", "bark", mgl32.Vec3{900, 0, 0}),  // lod 1 (clamped)
	}

	b, err := NewBuilder(reg).Build(mgl32.Vec3{}, slices.Values(objs))
	require.NoError(t, err)
	assert.Equal(t, 6, b.InstanceCount())

	mats := b.Materials()
	require.Len(t, mats, 2)
	assert.Less(t, mats[0].Key, mats[1].Key)

	for _, mg := range mats {
		meshes := b.Meshes(mg)
		assert.Equal(t, len(meshes), mg.MeshCount())
		for i := 1; i < len(meshes); i++ {
			assert.Less(t, meshes[i-1].Key, meshes[i].Key)
		}
		assert.Equal(t, mg.Key, resource.MaterialKeyOf(mg.Name))
		for _, m := range meshes {
			assert.Equal(t, m.Key, resource.MeshKeyOf(m.Name))
			count, err := reg.LODCount(m.Key)
			require.NoError(t, err)
			lods := b.LODs(m)
			require.Len(t, lods, count, "every level gets a group")
			assert.Equal(t, count, m.LODCount())
			for level, l := range lods {
				assert.Equal(t, level, l.Level)
				assert.Equal(t, mg.Key, l.Material)
				assert.Equal(t, m.Key, l.Mesh)
			}
		}
	}

	stone := resource.MaterialKeyOf("stone")
	bark := resource.MaterialKeyOf("bark")
	rock := resource.MeshKeyOf("rock")
	tree := resource.MeshKeyOf("tree")
	byKey := map[flatGroupKey][]world.ObjectID{}
	for _, g := range flatten(b) {
		byKey[flatGroupKey{g.Material, g.Mesh, g.Level}] = g.IDs
	}
	assert.Equal(t, []world.ObjectID{1, 5}, byKey[flatGroupKey{stone, rock, 0}])
	assert.Empty(t, byKey[flatGroupKey{stone, rock, 1}])
	assert.Equal(t, []world.ObjectID{3}, byKey[flatGroupKey{stone, rock, 2}])
	assert.Equal(t, []world.ObjectID{4}, byKey[flatGroupKey{bark, rock, 0}])
	assert.Empty(t, byKey[flatGroupKey{bark, tree, 0}])
	assert.Equal(t, []world.ObjectID{2, 6}, byKey[flatGroupKey{bark, tree, 1}])

	// Group indexes follow draw order.
	for i, l := range b.LODGroups() {
		assert.Equal(t, i, l.Index)
	}
}

type flatGroupKey struct {
	Material resource.MaterialKey
	Mesh     resource.MeshKey
	Level    int
}

func TestBuildIsDeterministic(t *testing.T) {
	reg := testRegistry()
	var objs []world.StaticObject
	names := []struct{ mesh, mat string }{{"rock", "stone"}, {"tree", "bark"}, {"rock", "bark"}, {"tree", "stone"}}
	for i := range 200 {
		n := names[i%len(names)]
		objs = append(objs, placed(world.ObjectID(i+1), n.mesh, n.mat, mgl32.Vec3{float32(i * 3), 0, float32(i % 7)}))
	}

	cam := mgl32.Vec3{50, 10, 0}
	first, err := NewBuilder(reg).Build(cam, slices.Values(objs))
	require.NoError(t, err)
	want := flatten(first)

	other, err := NewBuilder(reg).Build(cam, slices.Values(objs))
	require.NoError(t, err)
	assert.Equal(t, want, flatten(other))

	// Reusing a builder across frames yields the same result.
	b := NewBuilder(reg)
	for range 3 {
		got, err := b.Build(cam, slices.Values(objs))
		require.NoError(t, err)
		assert.Equal(t, want, flatten(got))
		assert.Equal(t, len(objs), got.InstanceCount())
	}
}

func TestBuildKeepsTraversalOrderInsideGroups(t *testing.T) {
	reg := testRegistry()
	objs := []world.StaticObject{
		placed(9, "rock", "stone", mgl32.Vec3{1, 0, 0}),
		placed(3, "rock", "stone", mgl32.Vec3{2, 0, 0}),
		placed(7, "rock", "stone", mgl32.Vec3{3, 0, 0}),
	}
	b, err := NewBuilder(reg).Build(mgl32.Vec3{}, slices.Values(objs))
	require.NoError(t, err)

	groups := flatten(b)
	require.Len(t, groups, 3)
	assert.Equal(t, []world.ObjectID{9, 3, 7}, groups[0].IDs)
	inst := b.Instances(b.LODGroups()[0])
	assert.Equal(t, objs[1].Transform, inst[1].Transform)
}

func TestBuildUnknownResources(t *testing.T) {
	reg := testRegistry()
	tests := []struct {
		name string
		obj  world.StaticObject
		kind resource.KeyKind
	}{
		{"material", placed(1, "rock", "marble", mgl32.Vec3{}), resource.KeyKindMaterial},
		{"mesh", placed(1, "boulder", "stone", mgl32.Vec3{}), resource.KeyKindMesh},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBuilder(reg)
			objs := []world.StaticObject{placed(2, "rock", "stone", mgl32.Vec3{}), tt.obj}
			batch, err := b.Build(mgl32.Vec3{}, slices.Values(objs))
			assert.Nil(t, batch)
			require.ErrorIs(t, err, resource.ErrResourceKey)

			var ke *resource.KeyError
			require.ErrorAs(t, err, &ke)
			assert.Equal(t, tt.kind, ke.Kind)
			assert.NotEmpty(t, ke.Name)
			assert.Contains(t, err.Error(), ke.Name)
		})
	}
}

func TestBuildWithLODPolicy(t *testing.T) {
	reg := testRegistry()
	objs := []world.StaticObject{placed(1, "rock", "stone", mgl32.Vec3{1, 0, 0})}

	far := LODPolicyFunc(func(float32, int) int { return 99 })
	b, err := NewBuilder(reg, WithLODPolicy(far)).Build(mgl32.Vec3{}, slices.Values(objs))
	require.NoError(t, err)
	groups := flatten(b)
	require.Len(t, groups, 3)
	assert.Equal(t, []world.ObjectID{1}, groups[2].IDs)

	// A policy that ignores the clamp contract is still kept in range.
	b2, err := NewBuilder(reg, WithLODPolicy(rogue{})).Build(mgl32.Vec3{}, slices.Values(objs))
	require.NoError(t, err)
	assert.Equal(t, []world.ObjectID{1}, flatten(b2)[0].IDs)
}

type rogue struct{}

func (rogue) Select(float32, int) int { return -3 }

func TestBuildEmpty(t *testing.T) {
	b, err := NewBuilder(testRegistry()).Build(mgl32.Vec3{}, slices.Values([]world.StaticObject(nil)))
	require.NoError(t, err)
	assert.True(t, b.Empty())
	assert.Empty(t, b.Materials())
	assert.Empty(t, b.LODGroups())
}
