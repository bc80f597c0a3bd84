// Package volume provides the in-memory representation of 3D image volumes
// used throughout the colocalization pipeline. Volumes are stored as flat
// float64 arrays in row-major order with explicit spatial dimensions, which
// keeps the numeric code simple and cache-friendly.
package volume

import (
	"errors"
	"fmt"
)

// ErrInvalidInput is returned for inputs that make a computation impossible:
// empty volumes, shape mismatches, and non-positive sizes or counts.
// Callers can test for it with errors.Is.
var ErrInvalidInput = errors.New("invalid input")

// Volume represents a single-channel 3D intensity volume.
//
// The voxel at spatial coordinate (z, y, x) is stored at
// Data[z*Width*Height + y*Width + x], matching the slice-stacking order of
// the acquisition (z indexes slices, y rows, x columns).
type Volume struct {
	// Data is the voxel intensities as a 1D array in row-major order
	Data []float64

	// Width, Height and Depth are the X, Y and Z extents in voxels
	Width  int
	Height int
	Depth  int
}

// New creates a zero-filled volume with the given extents.
func New(width, height, depth int) *Volume {
	return &Volume{
		Data:   make([]float64, width*height*depth),
		Width:  width,
		Height: height,
		Depth:  depth,
	}
}

// Idx returns the flat index of the voxel at (x, y, z).
// No bounds checking is performed.
func (v *Volume) Idx(x, y, z int) int {
	return z*v.Width*v.Height + y*v.Width + x
}

// At returns the intensity of the voxel at (x, y, z).
func (v *Volume) At(x, y, z int) float64 {
	return v.Data[v.Idx(x, y, z)]
}

// Set assigns the intensity of the voxel at (x, y, z).
func (v *Volume) Set(x, y, z int, value float64) {
	v.Data[v.Idx(x, y, z)] = value
}

// NumVoxels returns the total number of voxels in the volume.
func (v *Volume) NumVoxels() int {
	return v.Width * v.Height * v.Depth
}

// Validate checks that the volume is usable: positive extents and a data
// array of matching length.
func (v *Volume) Validate() error {
	if v == nil {
		return fmt.Errorf("%w: nil volume", ErrInvalidInput)
	}
	if v.Width <= 0 || v.Height <= 0 || v.Depth <= 0 {
		return fmt.Errorf("%w: volume extents must be positive, got %dx%dx%d",
			ErrInvalidInput, v.Width, v.Height, v.Depth)
	}
	if len(v.Data) != v.NumVoxels() {
		return fmt.Errorf("%w: volume data length %d does not match extents %dx%dx%d",
			ErrInvalidInput, len(v.Data), v.Width, v.Height, v.Depth)
	}
	return nil
}

// Clone returns a deep copy of the volume.
func (v *Volume) Clone() *Volume {
	data := make([]float64, len(v.Data))
	copy(data, v.Data)
	return &Volume{Data: data, Width: v.Width, Height: v.Height, Depth: v.Depth}
}

// SameShape reports whether two volumes have identical spatial extents.
func SameShape(a, b *Volume) bool {
	return a.Width == b.Width && a.Height == b.Height && a.Depth == b.Depth
}
