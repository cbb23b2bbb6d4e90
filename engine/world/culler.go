package world

import (
	"runtime"
	"slices"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-world/common"
)

// CullerBuilderOption is a functional option applied to a culler during construction via NewCuller.
type CullerBuilderOption func(*culler)

// WithCullWorkers sets the maximum number of pool workers. Values below 1 are ignored.
//
// Parameters:
//   - n: the worker count
//
// Returns:
//   - CullerBuilderOption: a function that applies the worker count to a culler
func WithCullWorkers(n int) CullerBuilderOption {
	return func(c *culler) {
		if n >= 1 {
			c.workers = n
		}
	}
}

// culler is the implementation of the Culler interface.
type culler struct {
	tree    Octree
	workers int
	pool    worker.DynamicWorkerPool
	buckets [8][]StaticObject
}

// Culler gathers visible objects from an octree in parallel, one pool task per root octant.
// Results are concatenated in octant order so the output always equals the serial
// Octree.Query order. A Culler is owned by one goroutine.
type Culler interface {
	// Cull returns every object whose bounds intersect region, appended to dst.
	//
	// Parameters:
	//   - dst: the slice to append to, reused across frames by the caller
	//   - region: the volume to query
	//
	// Returns:
	//   - []StaticObject: dst extended with the visible objects
	Cull(dst []StaticObject, region common.Volume) []StaticObject
}

var _ Culler = &culler{}

// NewCuller creates a Culler over tree. Trees not created by NewOctree are culled serially.
//
// Parameters:
//   - tree: the octree to cull
//   - opts: optional CullerBuilderOption functions
//
// Returns:
//   - Culler: the new culler
func NewCuller(tree Octree, opts ...CullerBuilderOption) Culler {
	c := &culler{
		tree:    tree,
		workers: min(runtime.NumCPU(), 8),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.workers > 1 {
		c.pool = worker.NewDynamicWorkerPool(c.workers, 256, 1*time.Second)
	}
	return c
}

func (c *culler) Cull(dst []StaticObject, region common.Volume) []StaticObject {
	o, ok := c.tree.(*octree)
	if !ok || c.pool == nil {
		return slices.AppendSeq(dst, c.tree.Query(region))
	}

	o.mu.RLock()
	defer o.mu.RUnlock()

	root := o.root
	if !region.IntersectsAABB(root.region) {
		return dst
	}
	for _, e := range root.entries {
		if region.IntersectsAABB(e.obj.Bounds) {
			dst = append(dst, e.obj)
		}
	}
	if root.children == nil {
		return dst
	}

	// Octant subtrees are disjoint and the read lock is held for the whole gather, so tasks
	// only read shared nodes and each writes its own bucket.
	var wg sync.WaitGroup
	for i, child := range root.children {
		c.buckets[i] = c.buckets[i][:0]
		if !region.IntersectsAABB(child.region) {
			continue
		}
		wg.Add(1)
		idx, n := i, child
		c.pool.SubmitTask(worker.Task{
			ID: idx,
			Do: func() (any, error) {
				defer wg.Done()
				n.visit(region, func(obj StaticObject) bool {
					c.buckets[idx] = append(c.buckets[idx], obj)
					return true
				})
				return nil, nil
			},
		})
	}
	wg.Wait()

	for i := range c.buckets {
		dst = append(dst, c.buckets[i]...)
	}
	return dst
}
