// Package loader reads channel volumes from directories of 2D slice
// images. Slices are ordered by the numeric part of their filenames so the
// anatomical z-order of the acquisition is preserved, then stacked into a
// single flat volume. JPEG, PNG and TIFF slices are supported.
package loader

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/tiff"

	"colocpatch/pkg/volume"
)

// LoadSliceDir loads every slice image in dir into a single-channel volume.
// All slices must share identical dimensions; slice order follows the
// numeric part of the filenames.
func LoadSliceDir(dir string) (*volume.Volume, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read slice directory: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".jpg", ".jpeg", ".png", ".tif", ".tiff":
			files = append(files, entry.Name())
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: no slice images found in %s", volume.ErrInvalidInput, dir)
	}

	// Sort by the numeric part of the filename to keep slice order.
	sort.Slice(files, func(i, j int) bool {
		return extractNumber(files[i]) < extractNumber(files[j])
	})

	var vol *volume.Volume
	for z, name := range files {
		img, err := loadImage(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("failed to load slice %s: %w", name, err)
		}

		bounds := img.Bounds()
		if vol == nil {
			vol = volume.New(bounds.Dx(), bounds.Dy(), len(files))
		} else if bounds.Dx() != vol.Width || bounds.Dy() != vol.Height {
			return nil, fmt.Errorf("%w: slice %s is %dx%d, expected %dx%d",
				volume.ErrInvalidInput, name, bounds.Dx(), bounds.Dy(), vol.Width, vol.Height)
		}

		sliceToFloat(img, vol, z)
	}
	return vol, nil
}

// extractNumber extracts the numeric part from a filename
func extractNumber(filename string) int {
	base := filepath.Base(filename)
	numStr := ""
	for _, c := range base {
		if c >= '0' && c <= '9' {
			numStr += string(c)
		}
	}

	if numStr != "" {
		num, err := strconv.Atoi(numStr)
		if err == nil {
			return num
		}
	}
	return 0
}

// loadImage loads an image from a file
func loadImage(path string) (image.Image, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return nil, err
	}
	return img, nil
}

// sliceToFloat writes one decoded slice into the z-plane of the volume,
// converting 16-bit grayscale to the 0-1 range.
func sliceToFloat(img image.Image, vol *volume.Volume, z int) {
	bounds := img.Bounds()
	for y := 0; y < vol.Height; y++ {
		for x := 0; x < vol.Width; x++ {
			r, _, _, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			vol.Set(x, y, z, float64(r)/65535.0)
		}
	}
}
