package lidar

import (
	"encoding/json"
	"math"
	"time"
)

// Scan is a single revolution of a 2D rotating rangefinder.
//
// Angles is optional: when it is empty the angle of sample i is
// AngleMin + i*AngleIncrement. When it is present only the prefix shared
// with Ranges is used.
type Scan struct {
	Seq            uint64    `json:"seq,omitempty"`
	Stamp          time.Time `json:"stamp,omitempty"`
	Ranges         Samples   `json:"ranges"`
	Angles         Samples   `json:"angles,omitempty"`
	RangeMin       float64   `json:"range_min"`
	RangeMax       float64   `json:"range_max"`
	AngleMin       float64   `json:"angle_min"`
	AngleIncrement float64   `json:"angle_increment"`
}

// Samples is a per-beam series of ranges or bearings. Beams with no
// return are reported as +Inf or NaN, which JSON cannot carry, so
// non-finite values are encoded as null and decode back as NaN.
type Samples []float64

// MarshalJSON implements json.Marshaler.
func (s Samples) MarshalJSON() ([]byte, error) {
	if s == nil {
		return []byte("null"), nil
	}
	out := make([]*float64, len(s))
	for i, v := range s {
		if finite(v) {
			out[i] = &s[i]
		}
	}
	return json.Marshal(out)
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *Samples) UnmarshalJSON(data []byte) error {
	var raw []*float64
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == nil {
		*s = nil
		return nil
	}
	out := make(Samples, len(raw))
	for i, v := range raw {
		if v == nil {
			out[i] = math.NaN()
			continue
		}
		out[i] = *v
	}
	*s = out
	return nil
}

// ScanPoint is a range sample converted to sensor-frame Cartesian
// coordinates (meters).
type ScanPoint struct {
	X, Y float64
}

// Dist2 returns the squared Euclidean distance between p and q.
func (p ScanPoint) Dist2(q ScanPoint) float64 {
	dx := p.X - q.X
	dy := p.Y - q.Y
	return dx*dx + dy*dy
}

// PointCloud is the ordered set of valid points from one scan.
type PointCloud []ScanPoint

// SampleCount returns the number of (angle, distance) pairs the scan
// carries after reconciling Angles against Ranges.
func (s *Scan) SampleCount() int {
	if len(s.Angles) == 0 {
		return len(s.Ranges)
	}
	return min(len(s.Angles), len(s.Ranges))
}

// AngleAt returns the bearing of sample i in radians.
func (s *Scan) AngleAt(i int) float64 {
	if len(s.Angles) > 0 {
		return s.Angles[i]
	}
	return s.AngleMin + float64(i)*s.AngleIncrement
}

// PolarToCartesian converts a bearing (radians) and range into x, y.
func PolarToCartesian(angle, distance float64) (x, y float64) {
	return distance * math.Cos(angle), distance * math.Sin(angle)
}

// BuildPointCloud converts the scan's polar samples into Cartesian points.
//
// A sample is kept only if its distance lies within [RangeMin, RangeMax]
// and both resulting coordinates are finite. Everything else is dropped
// silently; an empty cloud is a valid result.
func BuildPointCloud(s *Scan) PointCloud {
	n := s.SampleCount()
	if n == 0 {
		return nil
	}

	cloud := make(PointCloud, 0, n)
	for i := 0; i < n; i++ {
		d := s.Ranges[i]
		// NaN fails both comparisons and is dropped here.
		if !(d >= s.RangeMin && d <= s.RangeMax) {
			continue
		}
		x, y := PolarToCartesian(s.AngleAt(i), d)
		if !finite(x) || !finite(y) {
			continue
		}
		cloud = append(cloud, ScanPoint{X: x, Y: y})
	}
	return cloud
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
