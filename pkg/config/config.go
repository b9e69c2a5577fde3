// Package config provides configuration loading and management for
// beamrange. It handles loading configuration from YAML files and provides
// default values.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"

	"beamrange/pkg/raytrace"
)

// Config represents the application configuration loaded from YAML
type Config struct {
	// Processing parameters for the ray-tracing kernel
	Processing struct {
		// NumCores specifies how many CPU cores to use for the parallel
		// per-voxel fan-out
		NumCores int `yaml:"numCores"`

		// StepMargin is the fixed length in mm added to every traversal
		// step to guarantee the ray crosses into the next voxel
		StepMargin float64 `yaml:"stepMargin"`

		// DirectionEpsilon is the magnitude below which a beam direction
		// component is treated as zero
		DirectionEpsilon float64 `yaml:"directionEpsilon"`
	} `yaml:"processing"`

	// Beam geometry parameters
	Beam struct {
		// GantryAngle is the gantry rotation in degrees
		GantryAngle float64 `yaml:"gantryAngle"`

		// CouchAngle is the couch rotation in degrees
		CouchAngle float64 `yaml:"couchAngle"`
	} `yaml:"beam"`

	// Output parameters
	Output struct {
		// Verbose controls the level of logging output
		Verbose bool `yaml:"verbose"`

		// ExportSlices saves grayscale JPEG sections of the WET field
		ExportSlices bool `yaml:"exportSlices"`

		// SlicesDir is the directory slice sequences are written to
		SlicesDir string `yaml:"slicesDir"`
	} `yaml:"output"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Processing.NumCores = runtime.NumCPU()
	cfg.Processing.StepMargin = raytrace.DefaultStepMargin
	cfg.Processing.DirectionEpsilon = raytrace.DefaultDirectionEpsilon

	cfg.Beam.GantryAngle = 0
	cfg.Beam.CouchAngle = 0

	cfg.Output.Verbose = true
	cfg.Output.ExportSlices = false
	cfg.Output.SlicesDir = "wet_slices"

	return cfg
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	return SaveConfig(DefaultConfig(), configPath)
}
