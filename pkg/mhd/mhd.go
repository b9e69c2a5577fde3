// Package mhd reads and writes volumes in the MetaImage format: a small
// plain-text header (.mhd) describing grid size, spacing, offset and
// element type, next to a raw little-endian binary payload (.raw). This is
// the exchange format the dose-computation toolchain uses for SPR, mask
// and WET volumes.
package mhd

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"beamrange/internal/models"
	"beamrange/pkg/geometry"
)

// Header holds the subset of MetaImage keys this package understands.
type Header struct {
	NDims                   int
	ElementNumberOfChannels int
	DimSize                 [3]int
	ElementSpacing          [3]float64
	Offset                  [3]float64
	ElementType             string
	ElementByteOrderMSB     bool
	// ElementDataFile is resolved relative to the header file
	ElementDataFile string
}

// Grid returns the voxel grid described by the header.
func (h Header) Grid() geometry.Grid {
	return geometry.Grid{
		Size:    h.DimSize,
		Spacing: h.ElementSpacing,
		Offset:  h.Offset,
	}
}

// ReadHeader parses a .mhd header file. Unknown keys are ignored; '#'
// starts a comment anywhere on a line.
func ReadHeader(path string) (Header, error) {
	h := Header{
		NDims:                   3,
		ElementNumberOfChannels: 1,
		ElementSpacing:          [3]float64{1, 1, 1},
		ElementType:             "MET_FLOAT",
	}

	file, err := os.Open(path)
	if err != nil {
		return h, fmt.Errorf("failed to open MHD header: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := scanner.Text()
		if idx := strings.Index(line, "#"); idx >= 0 {
			line = line[:idx]
		}

		key, value, found := strings.Cut(line, "=")
		if !found {
			continue
		}
		key = strings.TrimSpace(key)
		fields := strings.Fields(value)
		if len(fields) == 0 {
			continue
		}

		switch key {
		case "NDims":
			h.NDims, err = strconv.Atoi(fields[0])
		case "ElementNumberOfChannels":
			h.ElementNumberOfChannels, err = strconv.Atoi(fields[0])
		case "DimSize":
			err = parseInts(fields, h.DimSize[:])
		case "ElementSpacing", "PixelSpacing":
			err = parseFloats(fields, h.ElementSpacing[:])
		case "Offset", "Position", "Origin":
			err = parseFloats(fields, h.Offset[:])
		case "ElementType":
			h.ElementType = fields[0]
		case "ElementByteOrderMSB", "BinaryDataByteOrderMSB":
			h.ElementByteOrderMSB = strings.EqualFold(fields[0], "true") || fields[0] == "1"
		case "ElementDataFile":
			if filepath.IsAbs(fields[0]) {
				h.ElementDataFile = fields[0]
			} else {
				h.ElementDataFile = filepath.Join(filepath.Dir(path), fields[0])
			}
		}
		if err != nil {
			return h, fmt.Errorf("failed to parse MHD key %s: %w", key, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return h, fmt.Errorf("failed to read MHD header: %w", err)
	}

	if h.NDims != 3 {
		return h, fmt.Errorf("unsupported NDims %d, expected 3", h.NDims)
	}
	if h.ElementNumberOfChannels != 1 {
		return h, fmt.Errorf("unsupported ElementNumberOfChannels %d, expected 1", h.ElementNumberOfChannels)
	}
	if h.ElementByteOrderMSB {
		return h, fmt.Errorf("big-endian MHD data is not supported")
	}
	if h.ElementDataFile == "" {
		return h, fmt.Errorf("MHD header has no ElementDataFile")
	}
	if err := h.Grid().Validate(); err != nil {
		return h, fmt.Errorf("invalid MHD geometry: %w", err)
	}
	return h, nil
}

func parseInts(fields []string, out []int) error {
	if len(fields) < len(out) {
		return fmt.Errorf("expected %d values, got %d", len(out), len(fields))
	}
	for i := range out {
		v, err := strconv.Atoi(fields[i])
		if err != nil {
			return err
		}
		out[i] = v
	}
	return nil
}

func parseFloats(fields []string, out []float64) error {
	if len(fields) < len(out) {
		return fmt.Errorf("expected %d values, got %d", len(out), len(fields))
	}
	for i := range out {
		v, err := strconv.ParseFloat(fields[i], 64)
		if err != nil {
			return err
		}
		out[i] = v
	}
	return nil
}

// ReadVolume loads a scalar volume (MET_FLOAT, MET_DOUBLE, MET_SHORT or
// MET_UCHAR payloads) from a .mhd header path.
func ReadVolume(path string) (*models.Volume, error) {
	h, err := ReadHeader(path)
	if err != nil {
		return nil, err
	}

	data, err := readElements(h)
	if err != nil {
		return nil, err
	}

	return &models.Volume{Grid: h.Grid(), Data: data}, nil
}

// ReadMask loads an ROI mask from a .mhd header path. Any non-zero element
// selects the voxel.
func ReadMask(path string) (*models.ROI, error) {
	vol, err := ReadVolume(path)
	if err != nil {
		return nil, err
	}

	roi := models.NewROI(vol.Grid)
	for i, v := range vol.Data {
		roi.Mask[i] = v != 0
	}
	return roi, nil
}

// WriteVolume saves a volume as a MET_FLOAT .mhd/.raw pair. The path may
// be given with or without the .mhd extension.
func WriteVolume(path string, vol *models.Volume) error {
	data := make([]float32, len(vol.Data))
	for i, v := range vol.Data {
		data[i] = float32(v)
	}
	return write(path, vol.Grid, "MET_FLOAT", data)
}

// WriteMask saves an ROI mask as a MET_UCHAR .mhd/.raw pair, 1 for
// selected voxels and 0 otherwise.
func WriteMask(path string, roi *models.ROI) error {
	data := make([]uint8, len(roi.Mask))
	for i, m := range roi.Mask {
		if m {
			data[i] = 1
		}
	}
	return write(path, roi.Grid, "MET_UCHAR", data)
}

func write(path string, grid geometry.Grid, elementType string, data any) error {
	dir, base := filepath.Split(path)
	base = strings.TrimSuffix(strings.TrimSuffix(base, ".mhd"), ".MHD")
	mhdPath := filepath.Join(dir, base+".mhd")
	rawName := base + ".raw"

	var header strings.Builder
	fmt.Fprintf(&header, "ObjectType = Image\n")
	fmt.Fprintf(&header, "NDims = 3\n")
	fmt.Fprintf(&header, "DimSize = %d %d %d\n", grid.Size[0], grid.Size[1], grid.Size[2])
	fmt.Fprintf(&header, "ElementSpacing = %g %g %g\n", grid.Spacing[0], grid.Spacing[1], grid.Spacing[2])
	fmt.Fprintf(&header, "Offset = %g %g %g\n", grid.Offset[0], grid.Offset[1], grid.Offset[2])
	fmt.Fprintf(&header, "ElementNumberOfChannels = 1\n")
	fmt.Fprintf(&header, "ElementType = %s\n", elementType)
	fmt.Fprintf(&header, "ElementByteOrderMSB = False\n")
	fmt.Fprintf(&header, "ElementDataFile = %s\n", rawName)

	if err := os.WriteFile(mhdPath, []byte(header.String()), 0644); err != nil {
		return fmt.Errorf("failed to write MHD header: %w", err)
	}

	rawFile, err := os.Create(filepath.Join(dir, rawName))
	if err != nil {
		return fmt.Errorf("failed to create raw data file: %w", err)
	}
	defer rawFile.Close()

	writer := bufio.NewWriter(rawFile)
	if err := binary.Write(writer, binary.LittleEndian, data); err != nil {
		return fmt.Errorf("failed to write raw data: %w", err)
	}
	return writer.Flush()
}

func readElements(h Header) ([]float64, error) {
	file, err := os.Open(h.ElementDataFile)
	if err != nil {
		return nil, fmt.Errorf("failed to open raw data file: %w", err)
	}
	defer file.Close()

	n := h.DimSize[0] * h.DimSize[1] * h.DimSize[2]
	reader := bufio.NewReader(file)
	data := make([]float64, n)

	switch h.ElementType {
	case "MET_FLOAT":
		buf := make([]float32, n)
		if err := binary.Read(reader, binary.LittleEndian, buf); err != nil {
			return nil, fmt.Errorf("failed to read raw data: %w", err)
		}
		for i, v := range buf {
			data[i] = float64(v)
		}
	case "MET_DOUBLE":
		if err := binary.Read(reader, binary.LittleEndian, data); err != nil {
			return nil, fmt.Errorf("failed to read raw data: %w", err)
		}
	case "MET_SHORT":
		buf := make([]int16, n)
		if err := binary.Read(reader, binary.LittleEndian, buf); err != nil {
			return nil, fmt.Errorf("failed to read raw data: %w", err)
		}
		for i, v := range buf {
			data[i] = float64(v)
		}
	case "MET_UCHAR", "MET_BOOL":
		// both are one byte per element
		buf := make([]uint8, n)
		if err := binary.Read(reader, binary.LittleEndian, buf); err != nil {
			return nil, fmt.Errorf("failed to read raw data: %w", err)
		}
		for i, v := range buf {
			data[i] = float64(v)
		}
	default:
		return nil, fmt.Errorf("unsupported ElementType %s", h.ElementType)
	}

	return data, nil
}
