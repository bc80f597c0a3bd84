package volume

// Mask is a volume-shaped array of booleans, produced by thresholding and
// by the colocalization scorer. It shares the row-major indexing convention
// of Volume.
type Mask struct {
	// Bits holds one flag per voxel in row-major order
	Bits []bool

	// Width, Height and Depth are the X, Y and Z extents in voxels
	Width  int
	Height int
	Depth  int
}

// NewMask creates an all-false mask with the given extents.
func NewMask(width, height, depth int) *Mask {
	return &Mask{
		Bits:   make([]bool, width*height*depth),
		Width:  width,
		Height: height,
		Depth:  depth,
	}
}

// Idx returns the flat index of the voxel at (x, y, z).
func (m *Mask) Idx(x, y, z int) int {
	return z*m.Width*m.Height + y*m.Width + x
}

// At reports whether the voxel at (x, y, z) is set.
func (m *Mask) At(x, y, z int) bool {
	return m.Bits[m.Idx(x, y, z)]
}

// Set assigns the flag of the voxel at (x, y, z).
func (m *Mask) Set(x, y, z int, value bool) {
	m.Bits[m.Idx(x, y, z)] = value
}

// NumVoxels returns the total number of voxels covered by the mask.
func (m *Mask) NumVoxels() int {
	return m.Width * m.Height * m.Depth
}

// Count returns the number of set voxels.
func (m *Mask) Count() int {
	n := 0
	for _, b := range m.Bits {
		if b {
			n++
		}
	}
	return n
}

// Float converts the mask to a 0/1-valued volume. This is the numeric view
// consumed by the density mapper and by patch-level density statistics.
func (m *Mask) Float() *Volume {
	v := New(m.Width, m.Height, m.Depth)
	for i, b := range m.Bits {
		if b {
			v.Data[i] = 1
		}
	}
	return v
}

// And returns the element-wise logical AND of two equally-shaped masks.
func And(a, b *Mask) *Mask {
	out := NewMask(a.Width, a.Height, a.Depth)
	for i := range out.Bits {
		out.Bits[i] = a.Bits[i] && b.Bits[i]
	}
	return out
}
