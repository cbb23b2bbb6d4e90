package streaming

import (
	"github.com/Carmen-Shannon/oxy-world/common"
	"github.com/Carmen-Shannon/oxy-world/engine/renderer"
	"github.com/Carmen-Shannon/oxy-world/engine/resource"
	"github.com/Carmen-Shannon/oxy-world/engine/world"
	"github.com/go-gl/mathgl/mgl32"
)

// testRegistry registers two materials and two meshes: rock with three levels, tree with two.
func testRegistry() resource.Registry {
	reg := resource.NewRegistry()
	reg.RegisterMaterial("stone", renderer.DescriptorSet(100))
	reg.RegisterMaterial("bark", renderer.DescriptorSet(101))
	lods := func(n int) []resource.MeshLOD {
		out := make([]resource.MeshLOD, n)
		for i := range out {
			out[i] = resource.MeshLOD{
				VertexBuffer: renderer.Buffer(200),
				Vertex:       common.Range{Offset: uint64(i) * 4400, Size: 4400},
				IndexBuffer:  renderer.Buffer(201),
				Index:        common.Range{Offset: uint64(i) * 600, Size: 600},
				IndexCount:   300,
			}
		}
		return out
	}
	if _, err := reg.RegisterMesh("rock", lods(3)); err != nil {
		panic(err)
	}
	if _, err := reg.RegisterMesh("tree", lods(2)); err != nil {
		panic(err)
	}
	return reg
}

func placed(id world.ObjectID, mesh, material string, pos mgl32.Vec3) world.StaticObject {
	return world.NewStaticObject(id, 0, mesh, material, mgl32.Translate3D(pos[0], pos[1], pos[2]),
		common.AABB{Min: mgl32.Vec3{-1, -1, -1}, Max: mgl32.Vec3{1, 1, 1}})
}

type flatGroup struct {
	Material resource.MaterialKey
	Mesh     resource.MeshKey
	Level    int
	IDs      []world.ObjectID
}

// flatten walks the batch through its public views.
func flatten(b *Batch) []flatGroup {
	var out []flatGroup
	for _, mg := range b.Materials() {
		for _, m := range b.Meshes(mg) {
			for _, l := range b.LODs(m) {
				g := flatGroup{Material: mg.Key, Mesh: m.Key, Level: l.Level}
				for _, inst := range b.Instances(l) {
					g.IDs = append(g.IDs, inst.ID)
				}
				out = append(out, g)
			}
		}
	}
	return out
}
