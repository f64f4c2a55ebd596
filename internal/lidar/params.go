package lidar

import (
	"errors"
	"fmt"
	"math"
)

// Defaults for landmark localization, tuned for ~0.1 m radius posts seen
// by a 2D rangefinder.
const (
	// DefaultEps is the DBSCAN neighbourhood radius in meters.
	DefaultEps = 0.25
	// DefaultMinSamples is the number of other points within Eps that
	// makes a point a core point.
	DefaultMinSamples = 7
	// DefaultMinPoint and DefaultMaxPoint bound (exclusive) the cluster
	// sizes that are considered landmark candidates.
	DefaultMinPoint = 7
	DefaultMaxPoint = 105
	// DefaultMinRadius and DefaultMaxRadius bound (inclusive) the fitted
	// landmark radius in meters.
	DefaultMinRadius = 0.04
	DefaultMaxRadius = 0.19

	// MinEps is the smallest accepted neighbourhood radius (1 mm), well
	// below the range resolution of any supported sensor.
	MinEps = 1e-3
)

// ErrInvalidParams is wrapped by every Params validation failure.
var ErrInvalidParams = errors.New("invalid localization params")

// Params is the immutable configuration of the localization pipeline.
// Build one with DefaultParams or config.TuningConfig.Params and validate
// it once before processing any scan.
type Params struct {
	Eps        float64 `json:"eps"`
	MinSamples int     `json:"min_samples"`
	MinPoint   int     `json:"min_point"`
	MaxPoint   int     `json:"max_point"`
	MinRadius  float64 `json:"min_radius"`
	MaxRadius  float64 `json:"max_radius"`
}

// DefaultParams returns the default pipeline parameters.
func DefaultParams() Params {
	return Params{
		Eps:        DefaultEps,
		MinSamples: DefaultMinSamples,
		MinPoint:   DefaultMinPoint,
		MaxPoint:   DefaultMaxPoint,
		MinRadius:  DefaultMinRadius,
		MaxRadius:  DefaultMaxRadius,
	}
}

// Validate reports the first inconsistency in p.
func (p Params) Validate() error {
	if !(p.Eps >= MinEps) || math.IsInf(p.Eps, 0) {
		return fmt.Errorf("%w: eps must be finite and at least %v, got %v", ErrInvalidParams, MinEps, p.Eps)
	}
	if p.MinSamples < 0 {
		return fmt.Errorf("%w: min_samples must be non-negative, got %d", ErrInvalidParams, p.MinSamples)
	}
	if p.MinPoint < 0 {
		return fmt.Errorf("%w: min_point must be non-negative, got %d", ErrInvalidParams, p.MinPoint)
	}
	if p.MinPoint >= p.MaxPoint {
		return fmt.Errorf("%w: min_point (%d) must be less than max_point (%d)", ErrInvalidParams, p.MinPoint, p.MaxPoint)
	}
	if math.IsNaN(p.MinRadius) || math.IsNaN(p.MaxRadius) || p.MinRadius < 0 {
		return fmt.Errorf("%w: radius band [%v, %v] must be non-negative numbers", ErrInvalidParams, p.MinRadius, p.MaxRadius)
	}
	if p.MinRadius > p.MaxRadius {
		return fmt.Errorf("%w: min_radius (%v) must not exceed max_radius (%v)", ErrInvalidParams, p.MinRadius, p.MaxRadius)
	}
	return nil
}

// ClusterSizeAccepted reports whether a cluster with n members may be
// fitted as a landmark. Both bounds are exclusive.
func (p Params) ClusterSizeAccepted(n int) bool {
	return n > p.MinPoint && n < p.MaxPoint
}

// RadiusAccepted reports whether a fitted radius lies inside the
// inclusive landmark band.
func (p Params) RadiusAccepted(r float64) bool {
	return r >= p.MinRadius && r <= p.MaxRadius
}
