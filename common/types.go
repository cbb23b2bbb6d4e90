// package common contains common types that are used throughout this engine. They are not interface-wrapped structs, just plain structs that express
// commonly used data-types.
package common

// Dimensions is a pixel size of a window, surface or render target.
type Dimensions struct {
	Width  uint32
	Height uint32
}

// Empty reports whether either side is zero. Minimized windows report empty dimensions and
// dimension-dependent GPU resources cannot be created for them.
func (d Dimensions) Empty() bool {
	return d.Width == 0 || d.Height == 0
}

// Aspect returns Width / Height, or 1 for empty dimensions.
func (d Dimensions) Aspect() float32 {
	if d.Empty() {
		return 1
	}
	return float32(d.Width) / float32(d.Height)
}

// Range is a byte span inside a GPU buffer.
type Range struct {
	// Offset is the byte offset of the first byte of the span.
	Offset uint64
	// Size is the length of the span in bytes.
	Size uint64
}

// End returns the first byte offset past the span.
func (r Range) End() uint64 {
	return r.Offset + r.Size
}
