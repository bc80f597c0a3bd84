// Package export persists the output of a pipeline run to durable storage:
// raw float64 dumps of every patch channel, per-slice TIFF previews, TIFF
// slices of the co-localization mask, and a structured metadata record
// describing the run. The raw dumps are the authoritative patch data; the
// TIFF sequences exist for quick visual inspection.
package export

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"golang.org/x/image/tiff"

	"colocpatch/pkg/colocalization"
	"colocpatch/pkg/patch"
	"colocpatch/pkg/pipeline"
	"colocpatch/pkg/volume"
)

// Writer persists pipeline results under a single output directory.
type Writer struct {
	outputDir string
	log       zerolog.Logger
}

// NewWriter creates a writer rooted at outputDir. The directory is created
// on first use.
func NewWriter(outputDir string, log zerolog.Logger) *Writer {
	return &Writer{outputDir: outputDir, log: log}
}

// metadata is the structured record describing one extraction run.
type metadata struct {
	PatchSize          patch.Size  `json:"patch_size"`
	Percentile         float64     `json:"threshold_percentile"`
	MandersCoefficient float64     `json:"manders_coefficient"`
	ColocPercentage    float64     `json:"total_colocalization_percentage"`
	Requested          int         `json:"patches_requested"`
	Found              int         `json:"patches_found"`
	Channels           []string    `json:"channels"`
	Patches            []patchMeta `json:"patches"`
}

type patchMeta struct {
	ID      int           `json:"patch_id"`
	Center  patch.Center  `json:"center"`
	Density float64       `json:"coloc_density"`
	Clamped bool          `json:"clamped"`
	Stats   []channelMeta `json:"channels"`
	MaskDir string        `json:"coloc_mask_dir"`
}

type channelMeta struct {
	Name    string             `json:"name"`
	RawPath string             `json:"raw_path"`
	Stats   patch.ChannelStats `json:"stats"`
}

// WriteRun saves the complete result of a pipeline run: one directory per
// patch, the whole-volume co-localization map, and metadata.json.
func (w *Writer) WriteRun(res *pipeline.Result, params pipeline.Params) error {
	if err := os.MkdirAll(w.outputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	meta := metadata{
		PatchSize:          params.PatchSize,
		Percentile:         params.Percentile,
		MandersCoefficient: res.Colocalization.Coefficient,
		ColocPercentage:    res.ColocPercentage,
		Requested:          res.Requested,
		Found:              res.Found,
		Channels:           []string{params.ChannelNames[0], params.ChannelNames[1]},
	}

	for _, rec := range res.Patches {
		pm, err := w.writePatch(rec, params)
		if err != nil {
			return err
		}
		meta.Patches = append(meta.Patches, pm)
	}

	metaPath := filepath.Join(w.outputDir, "metadata.json")
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}
	if err := os.WriteFile(metaPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write metadata: %w", err)
	}

	w.log.Info().Str("path", metaPath).Int("patches", len(res.Patches)).Msg("run exported")
	return nil
}

// writePatch saves one patch: a raw dump and a TIFF preview sequence per
// channel, plus the co-localization mask patch slices.
func (w *Writer) writePatch(rec *patch.Record, params pipeline.Params) (patchMeta, error) {
	patchDir := filepath.Join(w.outputDir, fmt.Sprintf("patch_%02d", rec.ID))
	if err := os.MkdirAll(patchDir, 0755); err != nil {
		return patchMeta{}, fmt.Errorf("failed to create patch directory: %w", err)
	}

	pm := patchMeta{
		ID:      rec.ID,
		Center:  rec.Center,
		Density: rec.Density,
		Clamped: rec.Clamped,
	}

	for c, ch := range rec.Patch.Channels {
		name := params.ChannelNames[c]

		rawPath := filepath.Join(patchDir, fmt.Sprintf("%s.bin", name))
		if err := writeRaw(rawPath, ch); err != nil {
			return patchMeta{}, err
		}

		// Previews are normalized per patch so faint signal stays visible.
		preview, err := colocalization.Normalize(ch)
		if err != nil {
			return patchMeta{}, err
		}
		previewDir := filepath.Join(patchDir, name)
		if err := writeSliceSequence(previewDir, preview); err != nil {
			return patchMeta{}, err
		}

		pm.Stats = append(pm.Stats, channelMeta{
			Name:    name,
			RawPath: rawPath,
			Stats:   rec.Stats[c],
		})
	}

	maskDir := filepath.Join(patchDir, "coloc_mask")
	if err := writeMaskSequence(maskDir, rec.MaskPatch); err != nil {
		return patchMeta{}, err
	}
	pm.MaskDir = maskDir

	return pm, nil
}

// writeMaskSequence saves a 0/1-valued volume as numbered 8-bit TIFF
// slices, set voxels mapped to full white.
func writeMaskSequence(dir string, vol *volume.Volume) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create mask directory: %w", err)
	}

	for z := 0; z < vol.Depth; z++ {
		img := image.NewGray(image.Rect(0, 0, vol.Width, vol.Height))
		for y := 0; y < vol.Height; y++ {
			for x := 0; x < vol.Width; x++ {
				if vol.At(x, y, z) > 0 {
					img.SetGray(x, y, color.Gray{Y: 255})
				}
			}
		}
		if err := saveTIFF(filepath.Join(dir, fmt.Sprintf("slice_%03d.tif", z)), img); err != nil {
			return err
		}
	}
	return nil
}

// WriteColocMap saves the whole-volume co-localization mask as a z-slice
// TIFF sequence, set voxels mapped to full white.
func (w *Writer) WriteColocMap(mask *volume.Mask) error {
	dir := filepath.Join(w.outputDir, "colocalization_map")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create map directory: %w", err)
	}

	for z := 0; z < mask.Depth; z++ {
		img := image.NewGray(image.Rect(0, 0, mask.Width, mask.Height))
		for y := 0; y < mask.Height; y++ {
			for x := 0; x < mask.Width; x++ {
				if mask.At(x, y, z) {
					img.SetGray(x, y, color.Gray{Y: 255})
				}
			}
		}
		if err := saveTIFF(filepath.Join(dir, fmt.Sprintf("slice_%03d.tif", z)), img); err != nil {
			return err
		}
	}
	return nil
}

// writeSliceSequence saves a volume as numbered 16-bit grayscale TIFF
// slices along the z axis. Values are expected in the 0-1 range.
func writeSliceSequence(dir string, vol *volume.Volume) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create slice directory: %w", err)
	}

	for z := 0; z < vol.Depth; z++ {
		img := image.NewGray16(image.Rect(0, 0, vol.Width, vol.Height))
		for y := 0; y < vol.Height; y++ {
			for x := 0; x < vol.Width; x++ {
				v := vol.At(x, y, z)
				if v < 0 {
					v = 0
				} else if v > 1 {
					v = 1
				}
				img.SetGray16(x, y, color.Gray16{Y: uint16(v * 65535)})
			}
		}
		if err := saveTIFF(filepath.Join(dir, fmt.Sprintf("slice_%03d.tif", z)), img); err != nil {
			return err
		}
	}
	return nil
}

// writeRaw dumps a volume as little-endian float64 values, the
// authoritative lossless form of the patch data.
func writeRaw(path string, vol *volume.Volume) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create raw file: %w", err)
	}
	defer file.Close()

	if err := binary.Write(file, binary.LittleEndian, vol.Data); err != nil {
		return fmt.Errorf("failed to write raw data: %w", err)
	}
	return nil
}

// saveTIFF encodes one slice image with deflate compression.
func saveTIFF(path string, img image.Image) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create image file: %w", err)
	}
	defer file.Close()

	if err := tiff.Encode(file, img, &tiff.Options{Compression: tiff.Deflate}); err != nil {
		return fmt.Errorf("failed to encode image: %w", err)
	}
	return nil
}
