// Package geometry describes the uniform voxel grid shared by the SPR, ROI
// and WET arrays and centralizes the conversions between voxel indices and
// physical (mm) coordinates.
package geometry

import (
	"fmt"
	"math"
)

// Grid describes a uniform 3D voxel grid. Size holds the number of voxels
// per axis (nx, ny, nz), Spacing the per-axis voxel size in mm, and Offset
// the coordinate of the geometric origin corner of the grid (not the center
// of the first voxel).
type Grid struct {
	// Size is the number of voxels along each axis
	Size [3]int

	// Spacing is the voxel size along each axis in mm
	Spacing [3]float64

	// Offset is the position of the grid origin corner in mm
	Offset [3]float64
}

// Validate checks that the grid describes a non-empty volume with strictly
// positive spacing. Callers are expected to validate once up front; the
// per-voxel hot path does not re-check.
func (g Grid) Validate() error {
	for axis := 0; axis < 3; axis++ {
		if g.Size[axis] < 1 {
			return fmt.Errorf("grid size must be at least 1 on axis %d, got %d", axis, g.Size[axis])
		}
		if g.Spacing[axis] <= 0 {
			return fmt.Errorf("grid spacing must be positive on axis %d, got %g", axis, g.Spacing[axis])
		}
	}
	return nil
}

// NumVoxels returns the total number of voxels in the grid.
func (g Grid) NumVoxels() int {
	return g.Size[0] * g.Size[1] * g.Size[2]
}

// VoxelCenter returns the physical coordinate of the center of voxel idx
// along the given axis.
func (g Grid) VoxelCenter(axis, idx int) float64 {
	return g.Offset[axis] + float64(idx)*g.Spacing[axis] + 0.5*g.Spacing[axis]
}

// VoxelIndex returns the index of the voxel containing coordinate x along
// the given axis. For any x strictly inside voxel k, VoxelIndex returns k,
// making it the inverse of VoxelCenter up to the voxel width.
func (g Grid) VoxelIndex(axis int, x float64) int {
	return int(math.Floor((x - g.Offset[axis]) / g.Spacing[axis]))
}

// Index returns the flat array index of voxel (i, j, k), where i indexes
// the x axis, j the y axis and k the z axis. The layout fixes the z axis
// as the fastest-varying one (row-major [y][x][z]); the SPR, ROI mask and
// WET arrays all share this single helper so the three stay byte-for-byte
// consistent.
func (g Grid) Index(i, j, k int) int {
	return k + g.Size[2]*(i+g.Size[0]*j)
}

// CenterBounds returns the coordinates of the first and last voxel centers
// along the given axis. Rays are considered to have left the grid once
// they pass these bounds in their direction of travel.
func (g Grid) CenterBounds(axis int) (lo, hi float64) {
	return g.VoxelCenter(axis, 0), g.VoxelCenter(axis, g.Size[axis]-1)
}
