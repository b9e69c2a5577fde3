// Package visualization renders 2D grayscale sections of a scalar volume
// (SPR or WET) for visual inspection, mirroring the slice views the
// planning workflow shows next to its numeric report.
package visualization

import (
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"

	"beamrange/pkg/geometry"
)

// Viewer extracts and saves planar slices of a volume.
type Viewer struct {
	data []float64
	grid geometry.Grid

	// value range used to map voxel values onto the grayscale ramp
	lo, hi float64
}

// NewViewer creates a viewer over a flat volume laid out per grid.Index.
// The grayscale window spans the data's own min and max, so both
// dimensionless SPR fields and mm-valued WET fields display with full
// contrast.
func NewViewer(data []float64, grid geometry.Grid) *Viewer {
	lo, hi := 0.0, 0.0
	if len(data) > 0 {
		lo, hi = data[0], data[0]
		for _, v := range data {
			if v < lo {
				lo = v
			}
			if v > hi {
				hi = v
			}
		}
	}
	return &Viewer{data: data, grid: grid, lo: lo, hi: hi}
}

// gray maps a voxel value onto the 16-bit grayscale ramp.
func (v *Viewer) gray(value float64) color.Gray16 {
	if v.hi <= v.lo {
		return color.Gray16{}
	}
	t := (value - v.lo) / (v.hi - v.lo)
	return color.Gray16{Y: uint16(t * 65535)}
}

// ExtractSlice extracts the 2D section of the volume perpendicular to the
// given axis ("x", "y" or "z") at the given voxel position.
func (v *Viewer) ExtractSlice(axis string, position int) (image.Image, error) {
	if position < 0 {
		return nil, fmt.Errorf("position must be non-negative")
	}

	nx, ny, nz := v.grid.Size[0], v.grid.Size[1], v.grid.Size[2]
	var img *image.Gray16

	switch axis {
	case "x", "X":
		if position >= nx {
			return nil, fmt.Errorf("position %d exceeds grid size %d on x", position, nx)
		}
		img = image.NewGray16(image.Rect(0, 0, ny, nz))
		for k := 0; k < nz; k++ {
			for j := 0; j < ny; j++ {
				img.SetGray16(j, k, v.gray(v.data[v.grid.Index(position, j, k)]))
			}
		}

	case "y", "Y":
		if position >= ny {
			return nil, fmt.Errorf("position %d exceeds grid size %d on y", position, ny)
		}
		img = image.NewGray16(image.Rect(0, 0, nx, nz))
		for k := 0; k < nz; k++ {
			for i := 0; i < nx; i++ {
				img.SetGray16(i, k, v.gray(v.data[v.grid.Index(i, position, k)]))
			}
		}

	case "z", "Z":
		if position >= nz {
			return nil, fmt.Errorf("position %d exceeds grid size %d on z", position, nz)
		}
		img = image.NewGray16(image.Rect(0, 0, nx, ny))
		for j := 0; j < ny; j++ {
			for i := 0; i < nx; i++ {
				img.SetGray16(i, j, v.gray(v.data[v.grid.Index(i, j, position)]))
			}
		}

	default:
		return nil, fmt.Errorf("invalid axis: %s (must be x, y, or z)", axis)
	}

	return img, nil
}

// SaveSlice saves an extracted slice as a JPEG image.
func (v *Viewer) SaveSlice(img image.Image, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	return jpeg.Encode(file, img, &jpeg.Options{Quality: 90})
}

// SaveSliceSequence extracts and saves every slice along the given axis
// into outputDir, one JPEG per position.
func (v *Viewer) SaveSliceSequence(axis string, outputDir string) error {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return err
	}

	var maxPos int
	switch axis {
	case "x", "X":
		maxPos = v.grid.Size[0]
	case "y", "Y":
		maxPos = v.grid.Size[1]
	case "z", "Z":
		maxPos = v.grid.Size[2]
	default:
		return fmt.Errorf("invalid axis: %s (must be x, y, or z)", axis)
	}

	for pos := 0; pos < maxPos; pos++ {
		img, err := v.ExtractSlice(axis, pos)
		if err != nil {
			return err
		}

		filename := filepath.Join(outputDir, fmt.Sprintf("slice_%s_%03d.jpg", axis, pos))
		if err := v.SaveSlice(img, filename); err != nil {
			return err
		}
	}

	return nil
}
