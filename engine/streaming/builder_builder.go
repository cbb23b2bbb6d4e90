package streaming

// BuilderOption is a functional option applied to a builder during construction via NewBuilder.
type BuilderOption func(*builder)

// WithLODPolicy sets the policy used to pick each object's level of detail.
// A nil policy keeps the default DistanceLODPolicy.
//
// Parameters:
//   - p: the LOD policy
//
// Returns:
//   - BuilderOption: a function that applies the policy to a builder
func WithLODPolicy(p LODPolicy) BuilderOption {
	return func(b *builder) {
		if p != nil {
			b.policy = p
		}
	}
}
