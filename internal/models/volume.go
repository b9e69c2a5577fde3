// Package models holds the in-memory containers passed between the I/O
// layer, the ray-tracing kernel and the command line tool: dense scalar
// volumes and boolean region-of-interest masks over a shared grid.
package models

import (
	"beamrange/pkg/geometry"
)

// Volume is a dense scalar field (SPR, WET, ...) over a voxel grid. Data
// is flat, laid out as geometry.Grid.Index describes.
type Volume struct {
	Grid geometry.Grid
	Data []float64
}

// NewVolume allocates a zero-filled volume over the given grid.
func NewVolume(grid geometry.Grid) *Volume {
	return &Volume{
		Grid: grid,
		Data: make([]float64, grid.NumVoxels()),
	}
}

// NewUniformVolume allocates a volume with every voxel set to value.
func NewUniformVolume(grid geometry.Grid, value float64) *Volume {
	v := NewVolume(grid)
	v.Fill(value)
	return v
}

// Fill sets every voxel to value.
func (v *Volume) Fill(value float64) {
	for i := range v.Data {
		v.Data[i] = value
	}
}

// SetBox assigns value to every voxel with lo[axis] <= index < hi[axis] on
// all three axes, clamping the box to the grid. Used to build slab and
// insert phantoms for demos and tests.
func (v *Volume) SetBox(lo, hi [3]int, value float64) {
	lo, hi = clampBox(v.Grid, lo, hi)
	for j := lo[1]; j < hi[1]; j++ {
		for i := lo[0]; i < hi[0]; i++ {
			for k := lo[2]; k < hi[2]; k++ {
				v.Data[v.Grid.Index(i, j, k)] = value
			}
		}
	}
}

// ROI is a boolean mask over a voxel grid, marking the voxels for which a
// computation is requested. Same layout as Volume.Data.
type ROI struct {
	Grid geometry.Grid
	Mask []bool
}

// NewROI allocates an all-false mask over the given grid.
func NewROI(grid geometry.Grid) *ROI {
	return &ROI{
		Grid: grid,
		Mask: make([]bool, grid.NumVoxels()),
	}
}

// FullROI allocates a mask selecting every voxel of the grid.
func FullROI(grid geometry.Grid) *ROI {
	r := NewROI(grid)
	for i := range r.Mask {
		r.Mask[i] = true
	}
	return r
}

// SetBox marks every voxel inside the (clamped) box as selected or not.
func (r *ROI) SetBox(lo, hi [3]int, selected bool) {
	lo, hi = clampBox(r.Grid, lo, hi)
	for j := lo[1]; j < hi[1]; j++ {
		for i := lo[0]; i < hi[0]; i++ {
			for k := lo[2]; k < hi[2]; k++ {
				r.Mask[r.Grid.Index(i, j, k)] = selected
			}
		}
	}
}

// Count returns the number of selected voxels.
func (r *ROI) Count() int {
	n := 0
	for _, m := range r.Mask {
		if m {
			n++
		}
	}
	return n
}

func clampBox(grid geometry.Grid, lo, hi [3]int) ([3]int, [3]int) {
	for axis := 0; axis < 3; axis++ {
		if lo[axis] < 0 {
			lo[axis] = 0
		}
		if hi[axis] > grid.Size[axis] {
			hi[axis] = grid.Size[axis]
		}
	}
	return lo, hi
}
