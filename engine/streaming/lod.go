package streaming

import (
	"fmt"
	"sort"

	"github.com/Carmen-Shannon/oxy-world/common"
	"github.com/chewxy/math32"
)

// DefaultLODBaseDistance is the distance, in world units, below which DistanceLODPolicy keeps LOD 0.
const DefaultLODBaseDistance float32 = 32

// LODPolicy picks the level of detail for an object at a given camera distance.
type LODPolicy interface {
	// Select returns the LOD level for distance. The result is always in [0, lodCount-1] and never
	// decreases as distance grows.
	//
	// Parameters:
	//   - distance: the camera distance in world units
	//   - lodCount: the number of levels the mesh has, at least 1
	//
	// Returns:
	//   - int: the selected level, 0 being the most detailed
	Select(distance float32, lodCount int) int
}

// LODPolicyFunc adapts an ordinary function to the LODPolicy interface. The result is clamped to
// the valid level range.
type LODPolicyFunc func(distance float32, lodCount int) int

// Select calls f and clamps the result to [0, lodCount-1].
func (f LODPolicyFunc) Select(distance float32, lodCount int) int {
	if lodCount <= 1 {
		return 0
	}
	return common.Clamp(f(distance, lodCount), 0, lodCount-1)
}

// DistanceLODPolicy drops one level per doubling of distance past BaseDistance: level 0 below
// BaseDistance, otherwise floor(log2(distance/BaseDistance))+1, clamped to the last level.
type DistanceLODPolicy struct {
	// BaseDistance is the LOD 0 radius. Zero or negative values use DefaultLODBaseDistance.
	BaseDistance float32
}

// Select implements LODPolicy.
func (p DistanceLODPolicy) Select(distance float32, lodCount int) int {
	if lodCount <= 1 || math32.IsNaN(distance) {
		return 0
	}
	base := p.BaseDistance
	if base <= 0 {
		base = DefaultLODBaseDistance
	}
	if distance < base {
		return 0
	}
	if math32.IsInf(distance, 1) {
		return lodCount - 1
	}
	return min(common.Log2Floor(distance/base)+1, lodCount-1)
}

// TableLODPolicy selects the level as the number of thresholds not greater than the distance.
// With thresholds {50, 150}, distances below 50 select LOD 0, [50, 150) LOD 1 and the rest LOD 2.
type TableLODPolicy struct {
	thresholds []float32
}

// NewTableLODPolicy creates a TableLODPolicy.
//
// Parameters:
//   - thresholds: the distances at which each following level starts, strictly ascending
//
// Returns:
//   - TableLODPolicy: the policy
//   - error: error if the thresholds are not strictly ascending positive numbers
func NewTableLODPolicy(thresholds ...float32) (TableLODPolicy, error) {
	for i, t := range thresholds {
		if math32.IsNaN(t) || t <= 0 {
			return TableLODPolicy{}, fmt.Errorf("lod threshold %d is not positive: %v", i, t)
		}
		if i > 0 && t <= thresholds[i-1] {
			return TableLODPolicy{}, fmt.Errorf("lod thresholds not ascending at %d: %v <= %v", i, t, thresholds[i-1])
		}
	}
	return TableLODPolicy{thresholds: append([]float32(nil), thresholds...)}, nil
}

// Thresholds returns a copy of the configured thresholds.
func (p TableLODPolicy) Thresholds() []float32 {
	return append([]float32(nil), p.thresholds...)
}

// Select implements LODPolicy.
func (p TableLODPolicy) Select(distance float32, lodCount int) int {
	if lodCount <= 1 || math32.IsNaN(distance) {
		return 0
	}
	level := sort.Search(len(p.thresholds), func(i int) bool {
		return p.thresholds[i] > distance
	})
	return min(level, lodCount-1)
}
