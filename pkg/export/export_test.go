package export

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"colocpatch/pkg/patch"
	"colocpatch/pkg/pipeline"
	"colocpatch/pkg/volume"
)

// runSmallPipeline produces a real result to export: one bright cube
// shared by both channels
func runSmallPipeline(t *testing.T) (*pipeline.Result, pipeline.Params) {
	extent, origin, side := 20, 8, 4
	ch := volume.New(extent, extent, extent)
	for z := origin; z < origin+side; z++ {
		for y := origin; y < origin+side; y++ {
			for x := origin; x < origin+side; x++ {
				ch.Set(x, y, z, 1)
			}
		}
	}

	params := pipeline.Params{
		PatchCount:   1,
		PatchSize:    patch.Size{Depth: 8, Height: 8, Width: 8},
		Percentile:   50,
		ChannelNames: [2]string{"Iba1", "Abeta"},
	}

	result, err := pipeline.New(params).Run(ch, ch.Clone())
	if err != nil {
		t.Fatalf("Pipeline run failed: %v", err)
	}
	if len(result.Patches) == 0 {
		t.Fatal("Expected the pipeline to produce a patch")
	}
	return result, params
}

// TestWriteRun verifies the exported directory layout and metadata record
func TestWriteRun(t *testing.T) {
	result, params := runSmallPipeline(t)
	dir := t.TempDir()

	writer := NewWriter(dir, zerolog.Nop())
	if err := writer.WriteRun(result, params); err != nil {
		t.Fatalf("WriteRun failed: %v", err)
	}

	// Per-channel raw dumps and preview sequences must exist.
	patchDir := filepath.Join(dir, "patch_01")
	for _, name := range []string{"Iba1", "Abeta"} {
		rawPath := filepath.Join(patchDir, name+".bin")
		info, err := os.Stat(rawPath)
		if err != nil {
			t.Fatalf("Missing raw dump %s: %v", rawPath, err)
		}
		// 8x8x8 float64 voxels.
		if wantSize := int64(8 * 8 * 8 * 8); info.Size() != wantSize {
			t.Errorf("Raw dump %s: expected %d bytes, got %d", rawPath, wantSize, info.Size())
		}

		previewDir := filepath.Join(patchDir, name)
		slices, err := filepath.Glob(filepath.Join(previewDir, "slice_*.tif"))
		if err != nil || len(slices) != 8 {
			t.Errorf("Expected 8 preview slices in %s, got %d (err=%v)", previewDir, len(slices), err)
		}
	}

	maskSlices, err := filepath.Glob(filepath.Join(patchDir, "coloc_mask", "slice_*.tif"))
	if err != nil || len(maskSlices) != 8 {
		t.Errorf("Expected 8 mask slices, got %d (err=%v)", len(maskSlices), err)
	}

	// The metadata record must parse and describe the run.
	data, err := os.ReadFile(filepath.Join(dir, "metadata.json"))
	if err != nil {
		t.Fatalf("Missing metadata.json: %v", err)
	}

	var meta struct {
		PatchSize          patch.Size `json:"patch_size"`
		MandersCoefficient float64    `json:"manders_coefficient"`
		Requested          int        `json:"patches_requested"`
		Found              int        `json:"patches_found"`
		Channels           []string   `json:"channels"`
		Patches            []struct {
			ID      int          `json:"patch_id"`
			Center  patch.Center `json:"center"`
			Density float64      `json:"coloc_density"`
			Stats   []struct {
				Name string `json:"name"`
			} `json:"channels"`
		} `json:"patches"`
	}
	if err := json.Unmarshal(data, &meta); err != nil {
		t.Fatalf("Failed to parse metadata.json: %v", err)
	}

	if meta.PatchSize != params.PatchSize {
		t.Errorf("Metadata patch size %+v does not match params %+v", meta.PatchSize, params.PatchSize)
	}
	if meta.Requested != 1 || meta.Found != 1 {
		t.Errorf("Metadata counts requested=%d found=%d, expected 1/1", meta.Requested, meta.Found)
	}
	if len(meta.Channels) != 2 || meta.Channels[0] != "Iba1" {
		t.Errorf("Unexpected metadata channels %v", meta.Channels)
	}
	if len(meta.Patches) != 1 {
		t.Fatalf("Expected 1 patch entry, got %d", len(meta.Patches))
	}
	if meta.Patches[0].ID != 1 {
		t.Errorf("Expected patch_id 1, got %d", meta.Patches[0].ID)
	}
	// Channel labels must map one-to-one onto the record's channels, in
	// order and without repetition.
	if got := meta.Patches[0].Stats; len(got) != 2 || got[0].Name != "Iba1" || got[1].Name != "Abeta" {
		t.Errorf("Unexpected per-channel labels in metadata: %+v", got)
	}
	if meta.Patches[0].Density != result.Patches[0].Density {
		t.Errorf("Metadata density %g does not match record %g",
			meta.Patches[0].Density, result.Patches[0].Density)
	}
}

// TestWriteColocMap verifies the whole-volume mask export
func TestWriteColocMap(t *testing.T) {
	result, _ := runSmallPipeline(t)
	dir := t.TempDir()

	writer := NewWriter(dir, zerolog.Nop())
	if err := writer.WriteColocMap(result.Colocalization.Mask); err != nil {
		t.Fatalf("WriteColocMap failed: %v", err)
	}

	slices, err := filepath.Glob(filepath.Join(dir, "colocalization_map", "slice_*.tif"))
	if err != nil || len(slices) != result.Colocalization.Mask.Depth {
		t.Errorf("Expected %d map slices, got %d (err=%v)",
			result.Colocalization.Mask.Depth, len(slices), err)
	}
}
