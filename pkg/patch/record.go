package patch

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"colocpatch/pkg/volume"
)

// ChannelStats summarizes the raw intensities of one channel of an
// extracted patch.
type ChannelStats struct {
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
	Mean float64 `json:"mean"`
}

// Record is the authoritative output unit of the pipeline: one extracted
// patch with its provenance and summary statistics. Records are created
// once per selected hotspot and never mutated.
type Record struct {
	// ID is the 1-based ordinal of the patch in selection order.
	ID int `json:"id"`

	// Center is the hotspot coordinate the patch was extracted around.
	Center Center `json:"center"`

	// Density is the co-localization density of the patch as a percentage
	// in [0,100]: set voxels of the co-localization mask patch over the
	// total patch volume.
	Density float64 `json:"density"`

	// Clamped reports whether boundary padding was applied to any channel.
	Clamped bool `json:"clamped"`

	// Patch holds the extracted multichannel data, channel order matching
	// the pipeline input (channel A first, then B).
	Patch *volume.MultiVolume `json:"-"`

	// MaskPatch is the co-localization mask patch extracted around the
	// same center with the same extractor, as a 0/1-valued volume. Density
	// is computed from it.
	MaskPatch *volume.Volume `json:"-"`

	// Stats holds per-channel intensity summaries of the patch.
	Stats []ChannelStats `json:"stats"`
}

// Summarize computes the intensity statistics of one patch channel.
func Summarize(ch *volume.Volume) ChannelStats {
	return ChannelStats{
		Min:  floats.Min(ch.Data),
		Max:  floats.Max(ch.Data),
		Mean: stat.Mean(ch.Data, nil),
	}
}
