package visualization

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"beamrange/pkg/geometry"
)

func rampVolume(grid geometry.Grid) []float64 {
	data := make([]float64, grid.NumVoxels())
	for j := 0; j < grid.Size[1]; j++ {
		for i := 0; i < grid.Size[0]; i++ {
			for k := 0; k < grid.Size[2]; k++ {
				data[grid.Index(i, j, k)] = float64(i + j + k)
			}
		}
	}
	return data
}

// TestExtractSlice verifies slice dimensions and the grayscale mapping of
// the data extremes
func TestExtractSlice(t *testing.T) {
	grid := geometry.Grid{
		Size:    [3]int{10, 8, 5},
		Spacing: [3]float64{1, 1, 1},
	}
	viewer := NewViewer(rampVolume(grid), grid)

	img, err := viewer.ExtractSlice("z", 4)
	if err != nil {
		t.Fatalf("ExtractSlice failed: %v", err)
	}

	bounds := img.Bounds()
	if bounds.Dx() != grid.Size[0] || bounds.Dy() != grid.Size[1] {
		t.Errorf("z slice is %dx%d, want %dx%d", bounds.Dx(), bounds.Dy(), grid.Size[0], grid.Size[1])
	}

	// the global maximum (9+7+4) lives on this slice and must map to white
	max := img.At(9, 7).(color.Gray16)
	if max.Y != 65535 {
		t.Errorf("maximum voxel maps to %d, want 65535", max.Y)
	}

	// the slice along x has (ny, nz) extent
	img, err = viewer.ExtractSlice("x", 0)
	if err != nil {
		t.Fatalf("ExtractSlice failed: %v", err)
	}
	bounds = img.Bounds()
	if bounds.Dx() != grid.Size[1] || bounds.Dy() != grid.Size[2] {
		t.Errorf("x slice is %dx%d, want %dx%d", bounds.Dx(), bounds.Dy(), grid.Size[1], grid.Size[2])
	}

	// the global minimum sits at the origin of the x=0 slice
	min := img.At(0, 0).(color.Gray16)
	if min.Y != 0 {
		t.Errorf("minimum voxel maps to %d, want 0", min.Y)
	}
}

// TestExtractSliceErrors verifies rejection of invalid axes and positions
func TestExtractSliceErrors(t *testing.T) {
	grid := geometry.Grid{
		Size:    [3]int{4, 4, 4},
		Spacing: [3]float64{1, 1, 1},
	}
	viewer := NewViewer(rampVolume(grid), grid)

	if _, err := viewer.ExtractSlice("w", 0); err == nil {
		t.Error("invalid axis accepted")
	}
	if _, err := viewer.ExtractSlice("z", -1); err == nil {
		t.Error("negative position accepted")
	}
	if _, err := viewer.ExtractSlice("y", 4); err == nil {
		t.Error("out-of-range position accepted")
	}
}

// TestSaveSliceSequence verifies that one JPEG per position is written
func TestSaveSliceSequence(t *testing.T) {
	grid := geometry.Grid{
		Size:    [3]int{3, 3, 6},
		Spacing: [3]float64{1, 1, 1},
	}
	viewer := NewViewer(rampVolume(grid), grid)

	dir := filepath.Join(t.TempDir(), "slices")
	if err := viewer.SaveSliceSequence("z", dir); err != nil {
		t.Fatalf("SaveSliceSequence failed: %v", err)
	}

	for pos := 0; pos < grid.Size[2]; pos++ {
		name := filepath.Join(dir, fmt.Sprintf("slice_z_%03d.jpg", pos))
		info, err := os.Stat(name)
		if err != nil {
			t.Fatalf("missing slice file %s: %v", name, err)
		}
		if info.Size() == 0 {
			t.Errorf("slice file %s is empty", name)
		}
	}
}
