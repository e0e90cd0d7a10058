package math

// Vec4 represents a 4D vector
type Vec4 struct {
	X, Y, Z, W float32
}

func NewVec4(x, y, z, w float32) Vec4 {
	return Vec4{X: x, Y: y, Z: z, W: w}
}

// Elements returns the vector as an array, the order GPU clear values expect.
func (v Vec4) Elements() [4]float32 {
	return [4]float32{v.X, v.Y, v.Z, v.W}
}

/**
 * @brief Represents the extents of a 2d integer region, used for render areas.
 */
type Extents2D struct {
	/** @brief The offset of the region. */
	X, Y int32
	/** @brief The size of the region. */
	Width, Height uint32
}

func (e Extents2D) Empty() bool {
	return e.Width == 0 || e.Height == 0
}
