package world

// OctreeBuilderOption is a functional option applied to an octree during construction via NewOctree.
type OctreeBuilderOption func(*octree)

// WithSplitThreshold sets how many objects a leaf may hold before it subdivides.
// Values below 1 are ignored.
//
// Parameters:
//   - n: the split threshold
//
// Returns:
//   - OctreeBuilderOption: a function that applies the split threshold to an octree
func WithSplitThreshold(n int) OctreeBuilderOption {
	return func(o *octree) {
		if n >= 1 {
			o.splitThreshold = n
		}
	}
}

// WithMaxDepth caps subdivision depth. Nodes at the maximum depth never split, which bounds
// the tree when many objects share the same position.
//
// Parameters:
//   - depth: the maximum depth, the root being depth 0
//
// Returns:
//   - OctreeBuilderOption: a function that applies the maximum depth to an octree
func WithMaxDepth(depth int) OctreeBuilderOption {
	return func(o *octree) {
		if depth >= 0 {
			o.maxDepth = depth
		}
	}
}
