// Package colocalization scores spatial co-localization between two
// co-registered fluorescence channels. Each channel is independently
// rescaled to [0,1] and thresholded at a percentile of its own intensity
// distribution; the co-localization mask is the logical AND of the two
// binary masks, and the Manders-style coefficient measures what fraction
// of the first channel's above-threshold signal falls inside the second
// channel's above-threshold region.
package colocalization

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"

	"colocpatch/pkg/volume"
)

// normEpsilon guards the normalization against division by zero on a
// constant channel. A constant channel normalizes to uniformly ~0.
const normEpsilon = 1e-10

// DefaultPercentile is the threshold percentile used when the caller does
// not specify one (the whole-volume median).
const DefaultPercentile = 50.0

// Result holds the outcome of one colocalization computation.
// It is immutable once produced.
type Result struct {
	// Coefficient is the Manders-style overlap fraction in [0,1]. It is
	// defined as 0 when the reference channel's mask is empty, so it is
	// never NaN.
	Coefficient float64

	// Mask marks the voxels where both channels are above their thresholds.
	Mask *volume.Mask
}

// Normalize rescales a channel's intensities to [0,1] using its own
// observed minimum and maximum. The input is not modified.
func Normalize(ch *volume.Volume) (*volume.Volume, error) {
	if err := ch.Validate(); err != nil {
		return nil, err
	}

	min := floats.Min(ch.Data)
	max := floats.Max(ch.Data)

	out := volume.New(ch.Width, ch.Height, ch.Depth)
	scale := 1.0 / (max - min + normEpsilon)
	for i, v := range ch.Data {
		out.Data[i] = (v - min) * scale
	}
	return out, nil
}

// ThresholdMask converts a normalized channel into a binary mask. The
// cutoff is the given percentile of the whole volume's intensity
// distribution; voxels strictly greater than the cutoff are set, voxels
// exactly at the cutoff are excluded.
func ThresholdMask(normalized *volume.Volume, percentile float64) (*volume.Mask, error) {
	if err := normalized.Validate(); err != nil {
		return nil, err
	}
	if percentile < 0 || percentile > 100 {
		return nil, fmt.Errorf("%w: percentile must be in [0,100], got %g",
			volume.ErrInvalidInput, percentile)
	}

	cutoff := percentileValue(normalized.Data, percentile)

	mask := volume.NewMask(normalized.Width, normalized.Height, normalized.Depth)
	for i, v := range normalized.Data {
		mask.Bits[i] = v > cutoff
	}
	return mask, nil
}

// percentileValue computes the percentile of the data with linear
// interpolation between adjacent order statistics. The fractional rank is
// percentile/100*(n-1), so percentile 50 of an odd-length sample is its
// exact median.
func percentileValue(data []float64, percentile float64) float64 {
	sorted := make([]float64, len(data))
	copy(sorted, data)
	sort.Float64s(sorted)

	rank := percentile / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	if lo >= len(sorted)-1 {
		return sorted[len(sorted)-1]
	}
	return sorted[lo] + (rank-float64(lo))*(sorted[lo+1]-sorted[lo])
}

// Score computes the co-localization between two equally-shaped channels.
// Both channels are normalized and thresholded independently at the given
// percentile. The coefficient is asymmetric: it is the fraction of ch1's
// above-threshold signal that also falls in ch2's above-threshold region.
func Score(ch1, ch2 *volume.Volume, percentile float64) (*Result, error) {
	if err := ch1.Validate(); err != nil {
		return nil, fmt.Errorf("channel 1: %w", err)
	}
	if err := ch2.Validate(); err != nil {
		return nil, fmt.Errorf("channel 2: %w", err)
	}
	if !volume.SameShape(ch1, ch2) {
		return nil, fmt.Errorf("%w: channel extents differ, %dx%dx%d vs %dx%dx%d",
			volume.ErrInvalidInput,
			ch1.Width, ch1.Height, ch1.Depth,
			ch2.Width, ch2.Height, ch2.Depth)
	}

	norm1, err := Normalize(ch1)
	if err != nil {
		return nil, err
	}
	norm2, err := Normalize(ch2)
	if err != nil {
		return nil, err
	}

	mask1, err := ThresholdMask(norm1, percentile)
	if err != nil {
		return nil, err
	}
	mask2, err := ThresholdMask(norm2, percentile)
	if err != nil {
		return nil, err
	}

	colocMask := volume.And(mask1, mask2)

	// Fraction of ch1's above-threshold signal inside the overlap region.
	var colocSum, refSum float64
	for i, bit := range mask1.Bits {
		if bit {
			refSum += norm1.Data[i]
			if colocMask.Bits[i] {
				colocSum += norm1.Data[i]
			}
		}
	}

	coefficient := 0.0
	if refSum > 0 {
		coefficient = colocSum / refSum
	}

	return &Result{Coefficient: coefficient, Mask: colocMask}, nil
}
