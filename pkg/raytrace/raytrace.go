// Package raytrace implements the water-equivalent thickness (WET) kernel:
// for every voxel selected by a region-of-interest mask it integrates the
// stopping-power ratio (SPR) along a ray traced from the voxel back toward
// the radiation source, yielding the radiological path length in mm of
// water.
//
// The traversal is an incremental voxel-stepping scheme over a uniform
// grid: at each iteration the ray advances by the distance to the nearest
// voxel face crossing (plus a small fixed margin so the step strictly
// enters the next voxel), accumulating SPR(current voxel) times the step
// length. Each voxel therefore contributes its own SPR over the distance
// the ray spends inside it, using the value of the voxel the ray is
// leaving.
package raytrace

import (
	"fmt"
	"math"
	"runtime"
	"sync"

	"beamrange/pkg/geometry"
)

const (
	// DefaultStepMargin is the fixed length in mm added to every step so
	// that the ray strictly crosses into the next voxel even when a
	// floating-point boundary coincidence would otherwise stall it.
	DefaultStepMargin = 1e-3

	// DefaultDirectionEpsilon is the magnitude below which a direction
	// component is treated as zero: the corresponding axis never
	// constrains the step length and never terminates the ray.
	DefaultDirectionEpsilon = 1e-9
)

// Params configures a Tracer. Zero values select the defaults.
type Params struct {
	// NumWorkers is the number of goroutines used to fan the per-voxel
	// work out. Defaults to runtime.NumCPU().
	NumWorkers int

	// StepMargin overrides DefaultStepMargin when positive.
	StepMargin float64

	// DirectionEpsilon overrides DefaultDirectionEpsilon when positive.
	DirectionEpsilon float64
}

// Tracer computes WET fields over a fixed grid.
type Tracer struct {
	grid   geometry.Grid
	params Params

	// per-axis first/last voxel center coordinates, precomputed once
	lower [3]float64
	upper [3]float64
}

// NewTracer creates a tracer for the given grid. The grid is validated
// once here; ComputeWET assumes it is well-formed.
func NewTracer(grid geometry.Grid, params Params) (*Tracer, error) {
	if err := grid.Validate(); err != nil {
		return nil, fmt.Errorf("invalid grid: %w", err)
	}
	if params.NumWorkers <= 0 {
		params.NumWorkers = runtime.NumCPU()
	}
	if params.StepMargin <= 0 {
		params.StepMargin = DefaultStepMargin
	}
	if params.DirectionEpsilon <= 0 {
		params.DirectionEpsilon = DefaultDirectionEpsilon
	}

	t := &Tracer{grid: grid, params: params}
	for axis := 0; axis < 3; axis++ {
		t.lower[axis], t.upper[axis] = grid.CenterBounds(axis)
	}
	return t, nil
}

// Grid returns the grid the tracer was built for.
func (t *Tracer) Grid() geometry.Grid {
	return t.grid
}

// ComputeWET fills wet with the water-equivalent thickness of every voxel
// whose mask cell is true, integrating spr along the reversed beam
// direction until the ray leaves the grid. Voxels outside the mask are
// left untouched, so the caller should pre-initialize wet (conventionally
// to zero).
//
// spr, mask and wet must all have exactly grid.NumVoxels() elements and
// share the layout of geometry.Grid.Index. direction points from the
// source toward the patient and must be non-degenerate; it does not need
// to be normalized, but WET values are only in mm when it is a unit
// vector.
//
// The call blocks until every masked voxel has been computed. Workers
// share only the read-only inputs and write disjoint wet cells, so the
// result does not depend on the worker count.
func (t *Tracer) ComputeWET(spr []float64, mask []bool, wet []float64, direction [3]float64) error {
	n := t.grid.NumVoxels()
	if len(spr) != n || len(mask) != n || len(wet) != n {
		return fmt.Errorf("array length mismatch: grid has %d voxels, got spr=%d mask=%d wet=%d",
			n, len(spr), len(mask), len(wet))
	}

	// trace source-ward: reverse the beam direction. Components below the
	// epsilon are flattened to exactly zero so they neither advance the
	// position nor trip the termination check.
	var dir [3]float64
	degenerate := true
	for axis := 0; axis < 3; axis++ {
		dir[axis] = -direction[axis]
		if math.Abs(dir[axis]) < t.params.DirectionEpsilon {
			dir[axis] = 0
		} else {
			degenerate = false
		}
	}
	if degenerate {
		return fmt.Errorf("degenerate beam direction %v", direction)
	}

	nx, ny := t.grid.Size[0], t.grid.Size[1]
	numWorkers := t.params.NumWorkers
	if numWorkers > ny {
		numWorkers = ny
	}
	rowsPerWorker := (ny + numWorkers - 1) / numWorkers

	var wg sync.WaitGroup
	for w := 0; w < numWorkers; w++ {
		startRow := w * rowsPerWorker
		endRow := startRow + rowsPerWorker
		if endRow > ny {
			endRow = ny
		}
		if startRow >= endRow {
			break
		}

		wg.Add(1)
		go func(startRow, endRow int) {
			defer wg.Done()
			for j := startRow; j < endRow; j++ {
				for i := 0; i < nx; i++ {
					for k := 0; k < t.grid.Size[2]; k++ {
						idx := t.grid.Index(i, j, k)
						if !mask[idx] {
							continue
						}
						start := [3]float64{
							t.grid.VoxelCenter(0, i),
							t.grid.VoxelCenter(1, j),
							t.grid.VoxelCenter(2, k),
						}
						wet[idx] = t.traceVoxel(spr, start, dir)
					}
				}
			}
		}(startRow, endRow)
	}
	wg.Wait()

	return nil
}

// traceVoxel marches a single ray from pos along dir until it passes the
// first or last voxel center on any axis it is heading toward, and returns
// the accumulated SPR-weighted path length. The termination check runs
// before every array lookup, which keeps each lookup in bounds without
// per-access guards.
func (t *Tracer) traceVoxel(spr []float64, pos [3]float64, dir [3]float64) float64 {
	eps := t.params.DirectionEpsilon
	margin := t.params.StepMargin
	total := 0.0

	for {
		if (pos[0] < t.lower[0] && dir[0] < 0) || (pos[0] > t.upper[0] && dir[0] > 0) ||
			(pos[1] < t.lower[1] && dir[1] < 0) || (pos[1] > t.upper[1] && dir[1] > 0) ||
			(pos[2] < t.lower[2] && dir[2] < 0) || (pos[2] > t.upper[2] && dir[2] > 0) {
			break
		}

		// distance to the nearest voxel face crossing; axes with a
		// near-zero direction component never constrain the step
		step := math.MaxFloat64
		for axis := 0; axis < 3; axis++ {
			d := dir[axis]
			if math.Abs(d) < eps {
				continue
			}
			face := math.Floor((pos[axis] - t.grid.Offset[axis]) / t.grid.Spacing[axis])
			if d > 0 {
				face++
			}
			dist := math.Abs((face*t.grid.Spacing[axis] + t.grid.Offset[axis] - pos[axis]) / d)
			if dist < step {
				step = dist
			}
		}
		step += margin

		i := t.grid.VoxelIndex(0, pos[0])
		j := t.grid.VoxelIndex(1, pos[1])
		k := t.grid.VoxelIndex(2, pos[2])
		total += spr[t.grid.Index(i, j, k)] * step

		pos[0] += step * dir[0]
		pos[1] += step * dir[1]
		pos[2] += step * dir[2]
	}

	return total
}
