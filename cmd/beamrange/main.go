package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"beamrange/internal/models"
	"beamrange/pkg/analysis"
	"beamrange/pkg/beam"
	"beamrange/pkg/config"
	"beamrange/pkg/geometry"
	"beamrange/pkg/mhd"
	"beamrange/pkg/raytrace"
	"beamrange/pkg/visualization"
)

func main() {
	// Parse command line arguments
	sprPath := flag.String("spr", "", "SPR volume in MetaImage format (.mhd)")
	roiPath := flag.String("roi", "", "Optional ROI mask in MetaImage format (.mhd); defaults to the full grid")
	outputPath := flag.String("output", "wet.mhd", "Output WET volume filename (.mhd)")
	configPath := flag.String("config", "beamrange.yaml", "Configuration file (optional)")
	gantry := flag.Float64("gantry", 0, "Gantry angle in degrees")
	couch := flag.Float64("couch", 0, "Couch angle in degrees")
	direction := flag.String("direction", "", "Explicit beam direction as \"u,v,w\" (overrides gantry/couch)")
	cores := flag.Int("cores", 0, "Number of CPU cores to use (default: config value or all available)")
	phantom := flag.Bool("phantom", false, "Run on a built-in water phantom instead of an SPR file")
	exportSlices := flag.Bool("export-slices", false, "Export WET slices as JPEG along all axes")
	slicesDir := flag.String("slices-dir", "", "Directory to save exported slices (default: config value)")
	flag.Parse()

	if *sprPath == "" && !*phantom {
		flag.Usage()
		os.Exit(1)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *cores > 0 {
		cfg.Processing.NumCores = *cores
	}
	if *exportSlices {
		cfg.Output.ExportSlices = true
	}
	if *slicesDir != "" {
		cfg.Output.SlicesDir = *slicesDir
	}

	// Load or synthesize the SPR volume
	var spr *models.Volume
	if *phantom {
		fmt.Println("Using built-in water phantom (60x60x60 voxels, 2 mm spacing)")
		spr = waterPhantom()
	} else {
		fmt.Printf("Loading SPR volume: %s\n", *sprPath)
		spr, err = mhd.ReadVolume(*sprPath)
		if err != nil {
			log.Fatalf("Failed to load SPR volume: %v", err)
		}
	}
	grid := spr.Grid
	fmt.Printf("Grid: %dx%dx%d voxels, spacing %g %g %g mm\n",
		grid.Size[0], grid.Size[1], grid.Size[2],
		grid.Spacing[0], grid.Spacing[1], grid.Spacing[2])

	// Load the ROI mask, or select every voxel
	var roi *models.ROI
	if *roiPath != "" {
		fmt.Printf("Loading ROI mask: %s\n", *roiPath)
		roi, err = mhd.ReadMask(*roiPath)
		if err != nil {
			log.Fatalf("Failed to load ROI mask: %v", err)
		}
		if roi.Grid != grid {
			log.Fatalf("ROI grid %v does not match SPR grid %v", roi.Grid, grid)
		}
	} else {
		roi = models.FullROI(grid)
	}
	fmt.Printf("ROI: %d of %d voxels selected\n", roi.Count(), grid.NumVoxels())

	// Resolve the beam direction
	var dir [3]float64
	if *direction != "" {
		dir, err = parseDirection(*direction)
		if err != nil {
			log.Fatalf("Invalid -direction: %v", err)
		}
	} else {
		dir = beam.DirectionFromAngles(*gantry, *couch)
		fmt.Printf("Beam: gantry %.1f deg, couch %.1f deg\n", *gantry, *couch)
	}
	fmt.Printf("Beam direction: (%.4f, %.4f, %.4f)\n", dir[0], dir[1], dir[2])

	tracer, err := raytrace.NewTracer(grid, raytrace.Params{
		NumWorkers:       cfg.Processing.NumCores,
		StepMargin:       cfg.Processing.StepMargin,
		DirectionEpsilon: cfg.Processing.DirectionEpsilon,
	})
	if err != nil {
		log.Fatalf("Failed to create tracer: %v", err)
	}

	wet := models.NewVolume(grid)
	fmt.Printf("Computing WET over %d ROI voxels on %d cores...\n", roi.Count(), cfg.Processing.NumCores)
	startTime := time.Now()
	if err := tracer.ComputeWET(spr.Data, roi.Mask, wet.Data, dir); err != nil {
		log.Fatalf("Ray tracing failed: %v", err)
	}
	fmt.Printf("Done in %.2f seconds\n", time.Since(startTime).Seconds())

	if err := mhd.WriteVolume(*outputPath, wet); err != nil {
		log.Fatalf("Failed to write WET volume: %v", err)
	}
	fmt.Printf("WET volume saved to: %s\n", *outputPath)

	summary := analysis.Summarize(wet.Data, roi.Mask)
	fmt.Printf("\nWET inside ROI (%d voxels):\n", summary.Count)
	fmt.Printf("  Minimum WET: %.3f mm\n", summary.Min)
	fmt.Printf("  Maximum WET: %.3f mm\n", summary.Max)
	fmt.Printf("  Mean WET:    %.3f mm (std %.3f)\n", summary.Mean, summary.StdDev)
	fmt.Printf("  Median WET:  %.3f mm (q05 %.3f, q95 %.3f)\n", summary.Median, summary.Q05, summary.Q95)

	// Equivalent proton energy for the deepest ROI voxel, WET in mm -> cm
	fmt.Printf("  Proton energy to reach max WET: %.1f MeV\n", beam.RangeToEnergy(summary.Max/10))

	if cfg.Output.ExportSlices {
		fmt.Printf("\nExporting WET slices to: %s\n", cfg.Output.SlicesDir)
		viewer := visualization.NewViewer(wet.Data, grid)
		for _, axis := range []string{"x", "y", "z"} {
			if err := viewer.SaveSliceSequence(axis, filepath.Join(cfg.Output.SlicesDir, axis)); err != nil {
				log.Printf("Warning: Failed to save %s-axis slices: %v", axis, err)
			}
		}
	}
}

// waterPhantom builds a demo SPR volume: a water cube with a bone slab and
// an air cavity, centered on the origin.
func waterPhantom() *models.Volume {
	grid := geometry.Grid{
		Size:    [3]int{60, 60, 60},
		Spacing: [3]float64{2, 2, 2},
		Offset:  [3]float64{-60, -60, -60},
	}
	spr := models.NewUniformVolume(grid, 1.0)
	spr.SetBox([3]int{10, 20, 0}, [3]int{50, 26, 60}, 1.7)    // cortical bone slab
	spr.SetBox([3]int{24, 36, 24}, [3]int{36, 44, 36}, 0.001) // air cavity
	return spr
}

// parseDirection parses "u,v,w" into a direction vector.
func parseDirection(s string) ([3]float64, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return [3]float64{}, fmt.Errorf("expected 3 comma-separated components, got %d", len(parts))
	}
	var d [3]float64
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return d, fmt.Errorf("component %d: %w", i, err)
		}
		d[i] = v
	}
	return beam.Normalize(d)
}
