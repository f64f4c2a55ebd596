package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/banshee-data/lidarloc/internal/lidar"
)

// DefaultConfigPath is the path to the canonical tuning defaults file.
const DefaultConfigPath = "config/tuning.defaults.json"

// TuningConfig is the on-disk form of the localization parameters. Every
// field is optional; Get* accessors fall back to the built-in defaults so
// partial files are safe.
type TuningConfig struct {
	// Clustering
	Eps        *float64 `json:"eps,omitempty"`
	MinSamples *int     `json:"min_samples,omitempty"`

	// Landmark acceptance bands
	MinPoint  *int     `json:"min_point,omitempty"`
	MaxPoint  *int     `json:"max_point,omitempty"`
	MinRadius *float64 `json:"min_radius,omitempty"`
	MaxRadius *float64 `json:"max_radius,omitempty"`

	// Per-scan diagnostic logging
	Diagnostics *bool `json:"diagnostics,omitempty"`
}

func ptrFloat64(v float64) *float64 { return &v }
func ptrInt(v int) *int             { return &v }
func ptrBool(v bool) *bool          { return &v }

// EmptyTuningConfig returns a TuningConfig with all fields unset.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// DefaultTuningConfig returns a TuningConfig with every field populated
// from the built-in defaults.
func DefaultTuningConfig() *TuningConfig {
	p := lidar.DefaultParams()
	return &TuningConfig{
		Eps:         ptrFloat64(p.Eps),
		MinSamples:  ptrInt(p.MinSamples),
		MinPoint:    ptrInt(p.MinPoint),
		MaxPoint:    ptrInt(p.MaxPoint),
		MinRadius:   ptrFloat64(p.MinRadius),
		MaxRadius:   ptrFloat64(p.MaxRadius),
		Diagnostics: ptrBool(false),
	}
}

// LoadTuningConfig loads a TuningConfig from a JSON file.
// The file must have a .json extension and be under 1MB. The resulting
// parameters are validated, so a loaded config is always usable.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads DefaultConfigPath, searching the current
// directory and its parents up to the repository root. Panics if the file
// cannot be loaded; intended for test setup.
func MustLoadDefaultConfig() *TuningConfig {
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath,       // from internal/config/
		"../../../" + DefaultConfigPath,    // from internal/lidar/pipeline/
		"../../../../" + DefaultConfigPath, // deeper packages
	}
	for _, path := range candidates {
		if cfg, err := LoadTuningConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks the merged parameters for consistency.
func (c *TuningConfig) Validate() error {
	return c.Params().Validate()
}

// GetEps returns the eps value or the default.
func (c *TuningConfig) GetEps() float64 {
	if c.Eps == nil {
		return lidar.DefaultEps
	}
	return *c.Eps
}

// GetMinSamples returns the min_samples value or the default.
func (c *TuningConfig) GetMinSamples() int {
	if c.MinSamples == nil {
		return lidar.DefaultMinSamples
	}
	return *c.MinSamples
}

// GetMinPoint returns the min_point value or the default.
func (c *TuningConfig) GetMinPoint() int {
	if c.MinPoint == nil {
		return lidar.DefaultMinPoint
	}
	return *c.MinPoint
}

// GetMaxPoint returns the max_point value or the default.
func (c *TuningConfig) GetMaxPoint() int {
	if c.MaxPoint == nil {
		return lidar.DefaultMaxPoint
	}
	return *c.MaxPoint
}

// GetMinRadius returns the min_radius value or the default.
func (c *TuningConfig) GetMinRadius() float64 {
	if c.MinRadius == nil {
		return lidar.DefaultMinRadius
	}
	return *c.MinRadius
}

// GetMaxRadius returns the max_radius value or the default.
func (c *TuningConfig) GetMaxRadius() float64 {
	if c.MaxRadius == nil {
		return lidar.DefaultMaxRadius
	}
	return *c.MaxRadius
}

// GetDiagnostics returns the diagnostics value or the default (off).
func (c *TuningConfig) GetDiagnostics() bool {
	if c.Diagnostics == nil {
		return false
	}
	return *c.Diagnostics
}

// Params converts the config into the immutable pipeline parameters.
func (c *TuningConfig) Params() lidar.Params {
	return lidar.Params{
		Eps:        c.GetEps(),
		MinSamples: c.GetMinSamples(),
		MinPoint:   c.GetMinPoint(),
		MaxPoint:   c.GetMaxPoint(),
		MinRadius:  c.GetMinRadius(),
		MaxRadius:  c.GetMaxRadius(),
	}
}
