package resource

import (
	"errors"
	"fmt"
	"hash/fnv"
	"slices"
	"sync"

	"github.com/Carmen-Shannon/oxy-world/common"
	"github.com/Carmen-Shannon/oxy-world/engine/renderer"
)

// ErrResourceKey is the sentinel wrapped by every *KeyError.
var ErrResourceKey = errors.New("resource: unknown resource key")

// MaterialKey is the stable 64-bit hash of a material name.
type MaterialKey uint64

// MeshKey is the stable 64-bit hash of a mesh name.
type MeshKey uint64

// KeyKind names the kind of resource a KeyError refers to.
type KeyKind string

const (
	KeyKindMaterial KeyKind = "material"
	KeyKindMesh     KeyKind = "mesh"
)

// KeyError reports a material or mesh key that could not be resolved. LOD is -1 unless the
// mesh exists and the requested level is out of range.
type KeyError struct {
	Kind KeyKind
	Key  uint64
	Name string
	LOD  int
}

func (e *KeyError) Error() string {
	name := e.Name
	if name == "" {
		name = "?"
	}
	if e.LOD >= 0 {
		return fmt.Sprintf("resource: %s %q (key %#016x) has no lod %d", e.Kind, name, e.Key, e.LOD)
	}
	return fmt.Sprintf("resource: unknown %s %q (key %#016x)", e.Kind, name, e.Key)
}

func (e *KeyError) Unwrap() error {
	return ErrResourceKey
}

// NameKeyError fills in the resource name of a *KeyError wrapped by err when the registry could
// not supply one. Any other error is returned unchanged.
//
// Parameters:
//   - err: the error returned by a registry lookup
//   - name: the material or mesh name that was looked up
//
// Returns:
//   - error: err, with its KeyError named
func NameKeyError(err error, name string) error {
	var ke *KeyError
	if errors.As(err, &ke) && ke.Name == "" {
		ke.Name = name
	}
	return err
}

// MeshLOD locates one level of detail of a mesh inside shared vertex and index buffers.
type MeshLOD struct {
	VertexBuffer renderer.Buffer
	Vertex       common.Range
	IndexBuffer  renderer.Buffer
	Index        common.Range
	IndexCount   uint32
}

// MaterialKeyOf returns the FNV-1a hash of a material name.
func MaterialKeyOf(name string) MaterialKey {
	return MaterialKey(hashName(name))
}

// MeshKeyOf returns the FNV-1a hash of a mesh name.
func MeshKeyOf(name string) MeshKey {
	return MeshKey(hashName(name))
}

func hashName(name string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(name))
	return h.Sum64()
}

type material struct {
	name string
	set  renderer.DescriptorSet
}

type mesh struct {
	name string
	lods []MeshLOD
}

// registry is the implementation of the Registry interface.
type registry struct {
	mu        *sync.RWMutex
	materials map[MaterialKey]material
	meshes    map[MeshKey]mesh
}

// Registry maps material and mesh names to GPU resources. Keys are content hashes of the names,
// so they are stable across runs and never depend on allocation addresses. Each engine owns its
// own Registry; there is no package-level instance.
//
// All methods are safe for concurrent use.
type Registry interface {
	// RegisterMaterial binds a material name to its descriptor set, replacing any previous binding.
	//
	// Parameters:
	//   - name: the material name
	//   - set: the descriptor set bound once per material when drawing
	//
	// Returns:
	//   - MaterialKey: the key of the material
	RegisterMaterial(name string, set renderer.DescriptorSet) MaterialKey

	// RegisterMesh binds a mesh name to its LOD ranges, highest detail first, replacing any
	// previous binding.
	//
	// Parameters:
	//   - name: the mesh name
	//   - lods: one entry per level of detail
	//
	// Returns:
	//   - MeshKey: the key of the mesh
	//   - error: error if lods is empty or a level has no indices
	RegisterMesh(name string, lods []MeshLOD) (MeshKey, error)

	// UnregisterMaterial removes a material. Unknown keys are ignored.
	UnregisterMaterial(key MaterialKey)

	// UnregisterMesh removes a mesh. Unknown keys are ignored.
	UnregisterMesh(key MeshKey)

	// ResolveMaterial returns the descriptor set of a material.
	//
	// Parameters:
	//   - key: the material key
	//
	// Returns:
	//   - renderer.DescriptorSet: the descriptor set
	//   - error: a *KeyError if the key is unknown
	ResolveMaterial(key MaterialKey) (renderer.DescriptorSet, error)

	// ResolveMesh returns one LOD of a mesh.
	//
	// Parameters:
	//   - key: the mesh key
	//   - lod: the level of detail, 0 is the highest
	//
	// Returns:
	//   - MeshLOD: the buffer ranges of the level
	//   - error: a *KeyError if the key or level is unknown
	ResolveMesh(key MeshKey, lod int) (MeshLOD, error)

	// LODCount returns the number of levels of detail of a mesh.
	//
	// Parameters:
	//   - key: the mesh key
	//
	// Returns:
	//   - int: the LOD count
	//   - error: a *KeyError if the key is unknown
	LODCount(key MeshKey) (int, error)

	// MaterialName returns the registered name of a material, or "" if unknown.
	MaterialName(key MaterialKey) string

	// MeshName returns the registered name of a mesh, or "" if unknown.
	MeshName(key MeshKey) string

	// MaterialKeyOf returns the key a material name hashes to, whether or not it is registered.
	MaterialKeyOf(name string) MaterialKey

	// MeshKeyOf returns the key a mesh name hashes to, whether or not it is registered.
	MeshKeyOf(name string) MeshKey

	// Materials returns every registered material key in ascending order.
	Materials() []MaterialKey

	// Meshes returns every registered mesh key in ascending order.
	Meshes() []MeshKey
}

var _ Registry = &registry{}

// NewRegistry creates an empty Registry.
//
// Returns:
//   - Registry: the new registry
func NewRegistry() Registry {
	return &registry{
		mu:        &sync.RWMutex{},
		materials: make(map[MaterialKey]material),
		meshes:    make(map[MeshKey]mesh),
	}
}

func (r *registry) RegisterMaterial(name string, set renderer.DescriptorSet) MaterialKey {
	key := MaterialKeyOf(name)

	r.mu.Lock()
	defer r.mu.Unlock()

	r.materials[key] = material{name: name, set: set}
	return key
}

func (r *registry) RegisterMesh(name string, lods []MeshLOD) (MeshKey, error) {
	if len(lods) == 0 {
		return 0, fmt.Errorf("mesh %q has no levels of detail", name)
	}
	for i, l := range lods {
		if l.IndexCount == 0 {
			return 0, fmt.Errorf("mesh %q lod %d has no indices", name, i)
		}
	}
	key := MeshKeyOf(name)

	r.mu.Lock()
	defer r.mu.Unlock()

	r.meshes[key] = mesh{name: name, lods: slices.Clone(lods)}
	return key, nil
}

func (r *registry) UnregisterMaterial(key MaterialKey) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.materials, key)
}

func (r *registry) UnregisterMesh(key MeshKey) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.meshes, key)
}

func (r *registry) ResolveMaterial(key MaterialKey) (renderer.DescriptorSet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.materials[key]
	if !ok {
		return 0, &KeyError{Kind: KeyKindMaterial, Key: uint64(key), LOD: -1}
	}
	return m.set, nil
}

func (r *registry) ResolveMesh(key MeshKey, lod int) (MeshLOD, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.meshes[key]
	if !ok {
		return MeshLOD{}, &KeyError{Kind: KeyKindMesh, Key: uint64(key), LOD: -1}
	}
	if lod < 0 || lod >= len(m.lods) {
		return MeshLOD{}, &KeyError{Kind: KeyKindMesh, Key: uint64(key), Name: m.name, LOD: lod}
	}
	return m.lods[lod], nil
}

func (r *registry) LODCount(key MeshKey) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.meshes[key]
	if !ok {
		return 0, &KeyError{Kind: KeyKindMesh, Key: uint64(key), LOD: -1}
	}
	return len(m.lods), nil
}

func (r *registry) MaterialName(key MaterialKey) string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.materials[key].name
}

func (r *registry) MeshName(key MeshKey) string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.meshes[key].name
}

func (r *registry) MaterialKeyOf(name string) MaterialKey {
	return MaterialKeyOf(name)
}

func (r *registry) MeshKeyOf(name string) MeshKey {
	return MeshKeyOf(name)
}

func (r *registry) Materials() []MaterialKey {
	r.mu.RLock()
	defer r.mu.RUnlock()

	keys := make([]MaterialKey, 0, len(r.materials))
	for k := range r.materials {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func (r *registry) Meshes() []MeshKey {
	r.mu.RLock()
	defer r.mu.RUnlock()

	keys := make([]MeshKey, 0, len(r.meshes))
	for k := range r.meshes {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
