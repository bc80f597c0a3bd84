// Package config provides configuration loading and management for
// colocpatch. It handles loading configuration from YAML files and
// provides default values.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"colocpatch/pkg/colocalization"
	"colocpatch/pkg/patch"
)

// Config represents the application configuration loaded from YAML
type Config struct {
	// Extraction parameters
	Extraction struct {
		// PatchCount is the number of patches to extract
		PatchCount int `yaml:"patchCount"`

		// PatchSize is the fixed (Z, Y, X) extent of every patch
		PatchSize patch.Size `yaml:"patchSize"`

		// Percentile is the threshold percentile applied to each channel
		Percentile float64 `yaml:"percentile"`
	} `yaml:"extraction"`

	// Channels names the two input stains, channel A first
	Channels struct {
		NameA string `yaml:"nameA"`
		NameB string `yaml:"nameB"`
	} `yaml:"channels"`

	// Output parameters
	Output struct {
		// Dir is the directory where patches and metadata are written
		Dir string `yaml:"dir"`

		// SaveColocMap controls whether the whole-volume mask is exported
		SaveColocMap bool `yaml:"saveColocMap"`

		// Verbose controls the level of logging output
		Verbose bool `yaml:"verbose"`
	} `yaml:"output"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	// Defaults match the annotation workflow: three 64-voxel cubes at the
	// median threshold.
	cfg.Extraction.PatchCount = 3
	cfg.Extraction.PatchSize = patch.Size{Depth: 64, Height: 64, Width: 64}
	cfg.Extraction.Percentile = colocalization.DefaultPercentile

	cfg.Channels.NameA = "Iba1"
	cfg.Channels.NameB = "Abeta"

	cfg.Output.Dir = "colocalization_patches"
	cfg.Output.SaveColocMap = true
	cfg.Output.Verbose = true

	return cfg
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	// Check if config file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	// Read config file
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	// Parse YAML
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	// Marshal config to YAML
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	// Write to file
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}
