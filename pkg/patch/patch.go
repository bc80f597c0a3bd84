// Package patch carves fixed-size sub-volumes out of larger volumes.
// Every extracted patch has exactly the requested extents regardless of
// how close its center lies to a volume boundary: the source slice is
// clamped to the array bounds and copied into a zero-filled buffer at the
// origin, so any padding ends up at the high-index end of each axis.
// Downstream consumers rely on the fixed shape, so the asymmetric padding
// is kept deliberately.
package patch

import (
	"fmt"

	"colocpatch/pkg/volume"
)

// Size is the fixed spatial extent of every patch in one extraction run,
// given as (depth, height, width) to mirror the (Z, Y, X) axis order of
// the volumes.
type Size struct {
	Depth  int `yaml:"depth" json:"depth"`
	Height int `yaml:"height" json:"height"`
	Width  int `yaml:"width" json:"width"`
}

// Validate checks that all extents are positive.
func (s Size) Validate() error {
	if s.Depth <= 0 || s.Height <= 0 || s.Width <= 0 {
		return fmt.Errorf("%w: patch size must be positive on every axis, got %dx%dx%d",
			volume.ErrInvalidInput, s.Depth, s.Height, s.Width)
	}
	return nil
}

// NumVoxels returns the number of voxels in a patch of this size.
func (s Size) NumVoxels() int {
	return s.Depth * s.Height * s.Width
}

// HalfExtent returns the per-axis half extents (floored), which drive both
// the hotspot validity margin and the extraction bounds.
func (s Size) HalfExtent() (hz, hy, hx int) {
	return s.Depth / 2, s.Height / 2, s.Width / 2
}

// Center is a voxel coordinate (z, y, x) within a source volume.
type Center struct {
	Z int `json:"z"`
	Y int `json:"y"`
	X int `json:"x"`
}

// Extract carves a patch of exactly the given size centered at c out of
// the source volume. The copied region is clamped to the volume bounds;
// if the clamped region is smaller than the patch on any axis the
// remainder of the patch stays zero. The returned flag reports whether
// any padding was applied.
func Extract(src *volume.Volume, c Center, size Size) (*volume.Volume, bool) {
	hz, hy, hx := size.HalfExtent()

	z0, z1 := clamp(c.Z-hz, c.Z+hz, src.Depth)
	y0, y1 := clamp(c.Y-hy, c.Y+hy, src.Height)
	x0, x1 := clamp(c.X-hx, c.X+hx, src.Width)

	out := volume.New(size.Width, size.Height, size.Depth)
	for z := z0; z < z1; z++ {
		for y := y0; y < y1; y++ {
			srcRow := src.Idx(x0, y, z)
			dstRow := out.Idx(0, y-y0, z-z0)
			copy(out.Data[dstRow:dstRow+(x1-x0)], src.Data[srcRow:srcRow+(x1-x0)])
		}
	}

	padded := (z1-z0) != size.Depth || (y1-y0) != size.Height || (x1-x0) != size.Width
	return out, padded
}

// ExtractMulti extracts the same patch from every channel of a
// multichannel volume, preserving channel order. The channel axis is
// untouched: the output has one patch per input channel.
func ExtractMulti(src *volume.MultiVolume, c Center, size Size) (*volume.MultiVolume, bool) {
	channels := make([]*volume.Volume, src.NumChannels())
	padded := false
	for i, ch := range src.Channels {
		p, clamped := Extract(ch, c, size)
		channels[i] = p
		padded = padded || clamped
	}
	return &volume.MultiVolume{Channels: channels}, padded
}

// clamp restricts the half-open range [lo, hi) to [0, extent).
func clamp(lo, hi, extent int) (int, int) {
	if lo < 0 {
		lo = 0
	}
	if hi > extent {
		hi = extent
	}
	return lo, hi
}
