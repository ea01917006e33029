// Package config provides configuration loading and management for
// bioimagelab. It handles loading configuration from YAML files and provides
// default values.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration loaded from YAML.
type Config struct {
	// Normalization parameters
	Normalize struct {
		// Strategy selects the normalization scope: global, zref, zslice,
		// tref or tslice.
		Strategy string `yaml:"strategy"`

		// Method selects the transform: max, minmax, percentile or zscore.
		Method string `yaml:"method"`

		// ZRef is the reference z-stack for the zref strategy.
		ZRef int `yaml:"zRef"`

		// TRef is the reference timepoint for the tref strategy.
		TRef int `yaml:"tRef"`

		// PercentileLow/PercentileHigh are the clip bounds for the
		// percentile method, in percent.
		PercentileLow  float64 `yaml:"percentileLow"`
		PercentileHigh float64 `yaml:"percentileHigh"`
	} `yaml:"normalize"`

	// Binarization parameters
	Binarize struct {
		// Threshold applied to normalized samples; values above it become 255.
		Threshold float64 `yaml:"threshold"`
	} `yaml:"binarize"`

	// Filter parameters for the preprocessing operations
	Filters struct {
		// GaussianRadius is the blur radius for Gaussian smoothing.
		GaussianRadius float64 `yaml:"gaussianRadius"`

		// MedianRadius is the neighborhood radius for the median filter.
		MedianRadius float64 `yaml:"medianRadius"`

		// FlatFieldRadius is the estimating blur radius for reference-free
		// flat-field correction.
		FlatFieldRadius float64 `yaml:"flatFieldRadius"`

		// SurfaceDegree is the polynomial degree for background surface fits.
		SurfaceDegree int `yaml:"surfaceDegree"`
	} `yaml:"filters"`

	// Render parameters
	Render struct {
		// Fluorophore tag selecting the display tint (gfp, dapi, ...).
		Fluorophore string `yaml:"fluorophore"`

		// OutputDir is where rendered slice images are written.
		OutputDir string `yaml:"outputDir"`
	} `yaml:"render"`

	// Output parameters
	Output struct {
		// Verbose controls the level of diagnostic output.
		Verbose bool `yaml:"verbose"`
	} `yaml:"output"`
}

// DefaultConfig returns a configuration with default values.
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Normalize.Strategy = "global"
	cfg.Normalize.Method = "max"
	cfg.Normalize.ZRef = 0
	cfg.Normalize.TRef = 0
	cfg.Normalize.PercentileLow = 2
	cfg.Normalize.PercentileHigh = 98

	cfg.Binarize.Threshold = 0.5

	cfg.Filters.GaussianRadius = 3
	cfg.Filters.MedianRadius = 3
	cfg.Filters.FlatFieldRadius = 100
	cfg.Filters.SurfaceDegree = 2

	cfg.Render.Fluorophore = ""
	cfg.Render.OutputDir = "rendered_slices"

	cfg.Output.Verbose = true

	return cfg
}

// LoadConfig loads configuration from a YAML file. If the file doesn't
// exist, it returns the default configuration.
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

// SaveConfig saves the configuration to a YAML file.
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

// CreateDefaultConfigFile creates a default configuration file at the
// specified path.
func CreateDefaultConfigFile(configPath string) error {
	return SaveConfig(DefaultConfig(), configPath)
}
