package world

import (
	"cmp"
	"errors"
	"fmt"
	"iter"
	"slices"
	"sync"

	"github.com/Carmen-Shannon/oxy-world/common"
)

var (
	// ErrOutOfBounds is returned when an object's bounds are not contained in the octree region.
	ErrOutOfBounds = errors.New("world: object bounds outside octree region")
	// ErrDuplicateObject is returned when inserting an id that is already present.
	ErrDuplicateObject = errors.New("world: duplicate object id")
	// ErrNotFound is returned when removing an id that is not present.
	ErrNotFound = errors.New("world: object not found")
)

const (
	defaultSplitThreshold = 8
	defaultMaxDepth       = 8
)

type entry struct {
	obj StaticObject
	seq uint64
}

func compareEntries(a, b entry) int {
	return cmp.Or(cmp.Compare(a.obj.Type, b.obj.Type), cmp.Compare(a.seq, b.seq))
}

type node struct {
	region   common.AABB
	depth    int
	parent   *node
	entries  []entry
	children *[8]*node
	// count is the number of objects in the subtree rooted at this node.
	count int
}

// insertSorted keeps entries ordered by type, then insertion sequence.
func (n *node) insertSorted(e entry) {
	i, _ := slices.BinarySearchFunc(n.entries, e, compareEntries)
	n.entries = slices.Insert(n.entries, i, e)
}

// childFor returns the index of the first child whose region fully contains b, or -1.
func (n *node) childFor(b common.AABB) int {
	for i, c := range n.children {
		if c.region.Contains(b) {
			return i
		}
	}
	return -1
}

func (n *node) collect(dst []entry) []entry {
	dst = append(dst, n.entries...)
	if n.children != nil {
		for _, c := range n.children {
			dst = c.collect(dst)
		}
	}
	return dst
}

// visit walks the subtree in pre-order, descending only into regions the volume intersects.
// It returns false once yield asks to stop.
func (n *node) visit(region common.Volume, yield func(StaticObject) bool) bool {
	if !region.IntersectsAABB(n.region) {
		return true
	}
	for _, e := range n.entries {
		if region.IntersectsAABB(e.obj.Bounds) {
			if !yield(e.obj) {
				return false
			}
		}
	}
	if n.children != nil {
		for _, c := range n.children {
			if !c.visit(region, yield) {
				return false
			}
		}
	}
	return true
}

// octree is the implementation of the Octree interface.
type octree struct {
	mu *sync.RWMutex

	root  *node
	index map[ObjectID]*node
	seq   uint64

	splitThreshold int
	maxDepth       int
}

// Octree is a spatial index of static objects. Every object lives in the smallest
// node whose region fully contains its bounds; objects straddling child boundaries stay at the
// parent. Leaves subdivide once they hold more than the split threshold.
//
// Readers may run concurrently with each other; Insert and Remove are exclusive.
type Octree interface {
	// Insert adds an object to the tree.
	//
	// Parameters:
	//   - obj: the object to insert
	//
	// Returns:
	//   - error: ErrOutOfBounds if the bounds are invalid or not contained in the root region,
	//     ErrDuplicateObject if the id is already present
	Insert(obj StaticObject) error

	// Remove deletes an object by id. Subtrees left with no more objects than the split
	// threshold collapse back into their parent.
	//
	// Parameters:
	//   - id: the object id
	//
	// Returns:
	//   - error: ErrNotFound if the id is not present
	Remove(id ObjectID) error

	// Query returns a lazy sequence of every object whose bounds intersect region. Objects are
	// yielded in node pre-order (children in octant order 0..7), and within a node by type then
	// insertion order, so identical trees and regions always yield identical sequences. The
	// sequence may be iterated any number of times. The read lock is held while iterating:
	// calling Insert or Remove from the loop body deadlocks.
	//
	// Parameters:
	//   - region: the volume to query, typically a common.AABB or common.Frustum
	//
	// Returns:
	//   - iter.Seq[StaticObject]: the matching objects
	Query(region common.Volume) iter.Seq[StaticObject]

	// Get returns an object by id.
	Get(id ObjectID) (StaticObject, bool)

	// Len returns the number of objects in the tree.
	Len() int

	// Bounds returns the root region.
	Bounds() common.AABB

	// Depth returns the depth of the deepest node, 0 for a tree that never split.
	Depth() int
}

var _ Octree = &octree{}

// NewOctree creates an empty octree covering bounds.
//
// Parameters:
//   - bounds: the root region; every inserted object must lie inside it
//   - opts: optional OctreeBuilderOption functions
//
// Returns:
//   - Octree: the new octree
func NewOctree(bounds common.AABB, opts ...OctreeBuilderOption) Octree {
	o := &octree{
		mu:             &sync.RWMutex{},
		root:           &node{region: bounds},
		index:          make(map[ObjectID]*node),
		splitThreshold: defaultSplitThreshold,
		maxDepth:       defaultMaxDepth,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (o *octree) Insert(obj StaticObject) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !obj.Bounds.Valid() || !o.root.region.Contains(obj.Bounds) {
		return fmt.Errorf("insert object %d: %w", obj.ID, ErrOutOfBounds)
	}
	if _, ok := o.index[obj.ID]; ok {
		return fmt.Errorf("insert object %d: %w", obj.ID, ErrDuplicateObject)
	}

	o.seq++
	e := entry{obj: obj, seq: o.seq}

	n := o.root
	n.count++
	for n.children != nil {
		i := n.childFor(obj.Bounds)
		if i < 0 {
			break
		}
		n = n.children[i]
		n.count++
	}
	n.insertSorted(e)
	o.index[obj.ID] = n

	o.maybeSplit(n)
	return nil
}

// maybeSplit subdivides a leaf that exceeds the threshold, pushing down every object that fits
// a single child, and recurses into children that end up over the threshold.
func (o *octree) maybeSplit(n *node) {
	if n.children != nil || len(n.entries) <= o.splitThreshold || n.depth >= o.maxDepth {
		return
	}

	var children [8]*node
	for i := range children {
		children[i] = &node{
			region: n.region.Octant(i),
			depth:  n.depth + 1,
			parent: n,
		}
	}
	n.children = &children

	kept := n.entries[:0]
	for _, e := range n.entries {
		i := n.childFor(e.obj.Bounds)
		if i < 0 {
			kept = append(kept, e)
			continue
		}
		// n.entries is sorted, so appending keeps each child sorted too.
		children[i].entries = append(children[i].entries, e)
		children[i].count++
		o.index[e.obj.ID] = children[i]
	}
	clear(n.entries[len(kept):])
	n.entries = kept

	for _, c := range children {
		o.maybeSplit(c)
	}
}

func (o *octree) Remove(id ObjectID) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	n, ok := o.index[id]
	if !ok {
		return fmt.Errorf("remove object %d: %w", id, ErrNotFound)
	}
	i := slices.IndexFunc(n.entries, func(e entry) bool { return e.obj.ID == id })
	n.entries = slices.Delete(n.entries, i, i+1)
	delete(o.index, id)
	for p := n; p != nil; p = p.parent {
		p.count--
	}

	o.collapse(n)
	return nil
}

// collapse walks up from n and folds the highest ancestor subtree that no longer exceeds the
// split threshold back into a single leaf. Counts never shrink going up, so the walk stops at the
// first ancestor over the threshold.
func (o *octree) collapse(n *node) {
	var target *node
	for p := n; p != nil && p.count <= o.splitThreshold; p = p.parent {
		if p.children != nil {
			target = p
		}
	}
	if target == nil {
		return
	}

	all := target.collect(nil)
	slices.SortFunc(all, compareEntries)
	target.entries = all
	target.children = nil
	for _, e := range all {
		o.index[e.obj.ID] = target
	}
}

func (o *octree) Query(region common.Volume) iter.Seq[StaticObject] {
	return func(yield func(StaticObject) bool) {
		o.mu.RLock()
		defer o.mu.RUnlock()

		o.root.visit(region, yield)
	}
}

func (o *octree) Get(id ObjectID) (StaticObject, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	n, ok := o.index[id]
	if !ok {
		return StaticObject{}, false
	}
	for _, e := range n.entries {
		if e.obj.ID == id {
			return e.obj, true
		}
	}
	return StaticObject{}, false
}

func (o *octree) Len() int {
	o.mu.RLock()
	defer o.mu.RUnlock()

	return len(o.index)
}

func (o *octree) Bounds() common.AABB {
	return o.root.region
}

func (o *octree) Depth() int {
	o.mu.RLock()
	defer o.mu.RUnlock()

	var deepest func(n *node) int
	deepest = func(n *node) int {
		d := n.depth
		if n.children != nil {
			for _, c := range n.children {
				d = max(d, deepest(c))
			}
		}
		return d
	}
	return deepest(o.root)
}
