// Package density builds a local co-localization density field over a
// volume. Each cell of the field counts the co-localized voxels inside a
// box-shaped neighborhood around it, which is the convolution of the
// binary mask with an all-ones kernel under zero-padding boundary
// conditions. The counts are computed exactly with a summed-volume table,
// so the result is bit-identical to the naive windowed sum at a fraction
// of the cost.
package density

import (
	"fmt"

	"colocpatch/pkg/patch"
	"colocpatch/pkg/volume"
)

// KernelExtent derives the per-axis box kernel size from the requested
// patch size: half the patch extent, floored.
func KernelExtent(size patch.Size) (kz, ky, kx int) {
	return size.Depth / 2, size.Height / 2, size.Width / 2
}

// Map convolves the mask with an all-ones box kernel whose per-axis size
// is half the requested patch size. Out-of-bounds contributions count as
// zero. The window for an even kernel size k spans [p-(k-1)/2, p+k/2] per
// axis, matching constant-mode convolution of an all-ones kernel; for odd
// k the window is symmetric.
func Map(mask *volume.Mask, size patch.Size) (*volume.Volume, error) {
	if mask == nil || mask.NumVoxels() == 0 {
		return nil, fmt.Errorf("%w: empty mask", volume.ErrInvalidInput)
	}
	if err := size.Validate(); err != nil {
		return nil, err
	}

	kz, ky, kx := KernelExtent(size)

	out := volume.New(mask.Width, mask.Height, mask.Depth)
	if kz == 0 || ky == 0 || kx == 0 {
		// Degenerate kernel: the convolution of an empty box is zero
		// everywhere, so no hotspot can be found.
		return out, nil
	}

	table := newSummedVolume(mask)

	w, h, d := mask.Width, mask.Height, mask.Depth
	for z := 0; z < d; z++ {
		z0, z1 := clampWindow(z, kz, d)
		for y := 0; y < h; y++ {
			y0, y1 := clampWindow(y, ky, h)
			for x := 0; x < w; x++ {
				x0, x1 := clampWindow(x, kx, w)
				out.Data[out.Idx(x, y, z)] = float64(table.boxSum(x0, x1, y0, y1, z0, z1))
			}
		}
	}
	return out, nil
}

// clampWindow returns the half-open [lo, hi) index range of a length-k
// window centered at p, clamped to [0, extent).
func clampWindow(p, k, extent int) (lo, hi int) {
	lo = p - (k-1)/2
	hi = p + k/2 + 1
	if lo < 0 {
		lo = 0
	}
	if hi > extent {
		hi = extent
	}
	return lo, hi
}

// summedVolume is a 3D summed-area (integral) table over a binary mask.
// sums has extents (w+1, h+1, d+1); sums[z][y][x] holds the count of set
// voxels in the prefix box [0,x) x [0,y) x [0,z).
type summedVolume struct {
	sums    []int64
	w, h, d int
}

func newSummedVolume(mask *volume.Mask) *summedVolume {
	w, h, d := mask.Width, mask.Height, mask.Depth
	s := &summedVolume{
		sums: make([]int64, (w+1)*(h+1)*(d+1)),
		w:    w,
		h:    h,
		d:    d,
	}

	for z := 1; z <= d; z++ {
		for y := 1; y <= h; y++ {
			for x := 1; x <= w; x++ {
				var bit int64
				if mask.At(x-1, y-1, z-1) {
					bit = 1
				}
				s.setSum(x, y, z, bit+
					s.sum(x-1, y, z)+s.sum(x, y-1, z)+s.sum(x, y, z-1)-
					s.sum(x-1, y-1, z)-s.sum(x-1, y, z-1)-s.sum(x, y-1, z-1)+
					s.sum(x-1, y-1, z-1))
			}
		}
	}
	return s
}

func (s *summedVolume) idx(x, y, z int) int {
	return z*(s.w+1)*(s.h+1) + y*(s.w+1) + x
}

func (s *summedVolume) sum(x, y, z int) int64 {
	return s.sums[s.idx(x, y, z)]
}

func (s *summedVolume) setSum(x, y, z int, v int64) {
	s.sums[s.idx(x, y, z)] = v
}

// boxSum returns the count of set voxels in the half-open box
// [x0,x1) x [y0,y1) x [z0,z1) by inclusion-exclusion over the table
// corners.
func (s *summedVolume) boxSum(x0, x1, y0, y1, z0, z1 int) int64 {
	return s.sum(x1, y1, z1) - s.sum(x0, y1, z1) - s.sum(x1, y0, z1) - s.sum(x1, y1, z0) +
		s.sum(x0, y0, z1) + s.sum(x0, y1, z0) + s.sum(x1, y0, z0) -
		s.sum(x0, y0, z0)
}
