// Package hotspot selects patch centers from a co-localization density
// field by greedy non-maximum suppression: take the global peak, zero out
// a patch-sized box around it, repeat. Suppression makes the search
// order-dependent, so the loop is strictly sequential.
package hotspot

import (
	"fmt"

	"colocpatch/pkg/patch"
	"colocpatch/pkg/volume"
)

// Hotspot is one selected patch center together with the density value
// observed at selection time. Peaks are non-increasing in selection order.
type Hotspot struct {
	Center patch.Center
	Peak   float64
}

// Select picks up to count non-overlapping hotspot centers from the
// density field. The field is mutated in place by suppression and must be
// owned by the caller for the duration of the call; pass a fresh map to
// restart the search.
//
// Each iteration finds the current global maximum (ties broken by first
// occurrence in row-major scan order), rejects it if it lies within half a
// patch extent of any volume boundary, and zeroes the patch-sized box
// around it either way so the search can move past invalid regions.
// Exactly count iterations run unless the remaining peak reaches zero
// first, so fewer than count centers may be returned; that is a condition
// for the caller to report, not an error.
func Select(density *volume.Volume, count int, size patch.Size) ([]Hotspot, error) {
	if err := density.Validate(); err != nil {
		return nil, err
	}
	if count <= 0 {
		return nil, fmt.Errorf("%w: hotspot count must be positive, got %d",
			volume.ErrInvalidInput, count)
	}
	if err := size.Validate(); err != nil {
		return nil, err
	}

	hz, hy, hx := size.HalfExtent()

	var selected []Hotspot
	for i := 0; i < count; i++ {
		idx, peak := argmax(density.Data)
		if peak <= 0 {
			break
		}

		c := unravel(idx, density)
		if validCenter(c, density, hz, hy, hx) {
			selected = append(selected, Hotspot{Center: c, Peak: peak})
		}

		suppress(density, c, hz, hy, hx)
	}
	return selected, nil
}

// argmax returns the flat index and value of the first maximum in
// row-major order.
func argmax(data []float64) (int, float64) {
	best := 0
	bestVal := data[0]
	for i, v := range data {
		if v > bestVal {
			best = i
			bestVal = v
		}
	}
	return best, bestVal
}

// unravel converts a flat row-major index back to (z, y, x) coordinates.
func unravel(idx int, v *volume.Volume) patch.Center {
	plane := v.Width * v.Height
	z := idx / plane
	rem := idx % plane
	return patch.Center{Z: z, Y: rem / v.Width, X: rem % v.Width}
}

// validCenter rejects candidates whose patch would reach past a volume
// boundary: closer than a half extent to the low edge, or past
// extent-half on the high edge.
func validCenter(c patch.Center, v *volume.Volume, hz, hy, hx int) bool {
	if c.Z < hz || c.Z > v.Depth-hz {
		return false
	}
	if c.Y < hy || c.Y > v.Height-hy {
		return false
	}
	if c.X < hx || c.X > v.Width-hx {
		return false
	}
	return true
}

// suppress zeroes the half-open box [c-half, c+half) around the candidate,
// clamped to the volume bounds, so the region cannot be picked again.
func suppress(density *volume.Volume, c patch.Center, hz, hy, hx int) {
	z0, z1 := clamp(c.Z-hz, c.Z+hz, density.Depth)
	y0, y1 := clamp(c.Y-hy, c.Y+hy, density.Height)
	x0, x1 := clamp(c.X-hx, c.X+hx, density.Width)

	for z := z0; z < z1; z++ {
		for y := y0; y < y1; y++ {
			row := density.Idx(x0, y, z)
			for x := x0; x < x1; x++ {
				density.Data[row+x-x0] = 0
			}
		}
	}
}

func clamp(lo, hi, extent int) (int, int) {
	if lo < 0 {
		lo = 0
	}
	if hi > extent {
		hi = extent
	}
	return lo, hi
}
