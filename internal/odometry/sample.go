// Package odometry records wheel-encoder position reports read from a
// serial odometry board, for comparison against lidar position fixes.
package odometry

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrMalformedLine is returned by ParseLine for lines that are not
// position reports.
var ErrMalformedLine = errors.New("malformed odometry line")

// Sample is one odometry report. Theta is in degrees and only meaningful
// when HasTheta is set.
type Sample struct {
	X        float64   `json:"x"`
	Y        float64   `json:"y"`
	Theta    float64   `json:"theta,omitempty"`
	HasTheta bool      `json:"has_theta,omitempty"`
	Time     time.Time `json:"time"`
}

// ParseLine parses a board report such as
//
//	x: 1.23 m, y: 2.34 m, theta: 45.67
//
// Fields are positional: the first is x, the second y and the optional
// third theta. A trailing unit of "m" is ignored.
func ParseLine(line string) (Sample, error) {
	parts := strings.Split(strings.TrimSpace(line), ",")
	if len(parts) < 2 {
		return Sample{}, fmt.Errorf("%w: %q", ErrMalformedLine, line)
	}

	x, err := parseField(parts[0])
	if err != nil {
		return Sample{}, fmt.Errorf("%w: x: %v", ErrMalformedLine, err)
	}
	y, err := parseField(parts[1])
	if err != nil {
		return Sample{}, fmt.Errorf("%w: y: %v", ErrMalformedLine, err)
	}

	s := Sample{X: x, Y: y}
	if len(parts) > 2 {
		if theta, err := parseField(parts[2]); err == nil {
			s.Theta, s.HasTheta = theta, true
		}
	}
	return s, nil
}

func parseField(field string) (float64, error) {
	_, value, ok := strings.Cut(field, ":")
	if !ok {
		return 0, fmt.Errorf("missing ':' in %q", strings.TrimSpace(field))
	}
	value = strings.TrimSpace(value)
	value = strings.TrimSpace(strings.TrimSuffix(value, "m"))
	return strconv.ParseFloat(value, 64)
}
