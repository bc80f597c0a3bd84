// Package pipeline wires the colocalization stages into the complete
// patch-extraction flow: score the two channels, build the density field
// from the co-localization mask, select hotspot centers, and extract a
// fixed-size multichannel patch around each center.
//
// The pipeline is a sequential, deterministic computation over in-memory
// arrays: given identical inputs, every output is bit-identical across
// runs. Input validation fails fast; every later condition degrades
// gracefully and is reported on the result.
package pipeline

import (
	"fmt"

	"github.com/rs/zerolog"

	"colocpatch/pkg/colocalization"
	"colocpatch/pkg/density"
	"colocpatch/pkg/hotspot"
	"colocpatch/pkg/patch"
	"colocpatch/pkg/volume"
)

// Params holds the extraction configuration.
type Params struct {
	// PatchCount is the number of patches to extract.
	PatchCount int

	// PatchSize is the fixed (Z, Y, X) extent of every patch.
	PatchSize patch.Size

	// Percentile is the threshold percentile applied to each channel,
	// in [0,100]. Zero is a valid cutoff (everything above the minimum);
	// DefaultParams supplies the median default.
	Percentile float64

	// ChannelNames label the two input channels in exported records,
	// first channel A then channel B.
	ChannelNames [2]string
}

// Result is the complete output of one pipeline run.
type Result struct {
	// Colocalization holds the coefficient and the whole-volume mask.
	Colocalization *colocalization.Result

	// ColocPercentage is the fraction of co-localized voxels over the
	// whole volume, in percent.
	ColocPercentage float64

	// Patches are the extracted records in hotspot selection order.
	Patches []*patch.Record

	// Requested and Found report how many patches were asked for versus
	// how many valid hotspots were available. Found < Requested is a
	// warning-level condition, not an error.
	Requested int
	Found     int
}

// Pipeline runs the colocalization patch extraction.
type Pipeline struct {
	params Params
	log    zerolog.Logger
}

// DefaultParams returns the extraction defaults: three 64-voxel cubes at
// the median threshold.
func DefaultParams() Params {
	return Params{
		PatchCount: 3,
		PatchSize:  patch.Size{Depth: 64, Height: 64, Width: 64},
		Percentile: colocalization.DefaultPercentile,
	}
}

// New creates a pipeline with the given parameters. Parameters are taken
// as given and validated on Run; a disabled logger is used unless one is
// set with WithLogger.
func New(params Params) *Pipeline {
	return &Pipeline{params: params, log: zerolog.Nop()}
}

// WithLogger sets the logger used for progress and warning events.
func (p *Pipeline) WithLogger(log zerolog.Logger) *Pipeline {
	p.log = log
	return p
}

// validate applies the input contract before any computation proceeds.
func (p *Pipeline) validate(chA, chB *volume.Volume) error {
	if err := chA.Validate(); err != nil {
		return fmt.Errorf("channel A: %w", err)
	}
	if err := chB.Validate(); err != nil {
		return fmt.Errorf("channel B: %w", err)
	}
	if !volume.SameShape(chA, chB) {
		return fmt.Errorf("%w: channel extents differ, %dx%dx%d vs %dx%dx%d",
			volume.ErrInvalidInput,
			chA.Width, chA.Height, chA.Depth,
			chB.Width, chB.Height, chB.Depth)
	}
	if p.params.PatchCount <= 0 {
		return fmt.Errorf("%w: patch count must be positive, got %d",
			volume.ErrInvalidInput, p.params.PatchCount)
	}
	if err := p.params.PatchSize.Validate(); err != nil {
		return err
	}
	if p.params.Percentile < 0 || p.params.Percentile > 100 {
		return fmt.Errorf("%w: percentile must be in [0,100], got %g",
			volume.ErrInvalidInput, p.params.Percentile)
	}
	return nil
}

// Run executes the full extraction over the two channel volumes. Channel
// order is preserved in every patch: A first, then B.
func (p *Pipeline) Run(chA, chB *volume.Volume) (*Result, error) {
	if err := p.validate(chA, chB); err != nil {
		return nil, err
	}

	// Step 1: score co-localization between the channels.
	p.log.Info().
		Int("width", chA.Width).Int("height", chA.Height).Int("depth", chA.Depth).
		Float64("percentile", p.params.Percentile).
		Msg("scoring colocalization")
	coloc, err := colocalization.Score(chA, chB, p.params.Percentile)
	if err != nil {
		return nil, fmt.Errorf("colocalization scoring failed: %w", err)
	}

	colocPct := 100 * float64(coloc.Mask.Count()) / float64(coloc.Mask.NumVoxels())
	p.log.Info().
		Float64("coefficient", coloc.Coefficient).
		Float64("colocPercent", colocPct).
		Msg("colocalization scored")

	// Step 2: build the density field from the co-localization mask.
	densityMap, err := density.Map(coloc.Mask, p.params.PatchSize)
	if err != nil {
		return nil, fmt.Errorf("density map construction failed: %w", err)
	}

	// Step 3: select hotspot centers. The density map is owned by this
	// call and consumed by suppression.
	hotspots, err := hotspot.Select(densityMap, p.params.PatchCount, p.params.PatchSize)
	if err != nil {
		return nil, fmt.Errorf("hotspot selection failed: %w", err)
	}
	if len(hotspots) < p.params.PatchCount {
		p.log.Warn().
			Int("requested", p.params.PatchCount).
			Int("found", len(hotspots)).
			Msg("fewer valid hotspot regions than requested")
	}

	// Step 4: extract a multichannel patch around each center, plus the
	// matching co-localization mask patch for the density statistic. The
	// mask patch uses the identical extractor so padding affects both the
	// same way.
	stack, err := volume.Stack(chA, chB)
	if err != nil {
		return nil, err
	}
	maskVolume := coloc.Mask.Float()

	records := make([]*patch.Record, 0, len(hotspots))
	for i, h := range hotspots {
		data, clamped := patch.ExtractMulti(stack, h.Center, p.params.PatchSize)
		maskPatch, _ := patch.Extract(maskVolume, h.Center, p.params.PatchSize)

		var colocCount float64
		for _, v := range maskPatch.Data {
			colocCount += v
		}
		densityPct := 100 * colocCount / float64(p.params.PatchSize.NumVoxels())

		stats := make([]patch.ChannelStats, data.NumChannels())
		for c, ch := range data.Channels {
			stats[c] = patch.Summarize(ch)
		}

		rec := &patch.Record{
			ID:        i + 1,
			Center:    h.Center,
			Density:   densityPct,
			Clamped:   clamped,
			Patch:     data,
			MaskPatch: maskPatch,
			Stats:     stats,
		}
		records = append(records, rec)

		p.log.Info().
			Int("patch", rec.ID).
			Int("z", h.Center.Z).Int("y", h.Center.Y).Int("x", h.Center.X).
			Float64("densityPercent", densityPct).
			Bool("clamped", clamped).
			Msg("patch extracted")
	}

	return &Result{
		Colocalization:  coloc,
		ColocPercentage: colocPct,
		Patches:         records,
		Requested:       p.params.PatchCount,
		Found:           len(hotspots),
	}, nil
}
