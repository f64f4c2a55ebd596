package l5locate

import (
	"math"

	"github.com/banshee-data/lidarloc/internal/lidar/l4perception"
)

// Anchor is a reference point of known position and measured range.
type Anchor struct {
	X, Y     float64
	Distance float64
}

// AnchorFromLandmark uses the landmark's fitted center as the reference
// point and its range from the sensor origin as the distance.
func AnchorFromLandmark(l l4perception.Landmark) Anchor {
	return Anchor{X: l.CenterX, Y: l.CenterY, Distance: l.DistanceFromOrigin}
}

// Position is a sensor position estimate in meters.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Trilaterate intersects the circle of radius a.Distance around a with the
// circle of radius b.Distance around b.
//
// The result is expressed in the local frame where a sits at the origin and
// b lies at distance D along the +x axis; of the two intersections the one
// with negative y is returned. It is not transformed back into the frame
// the anchors were given in.
//
// ok is false when the anchors coincide or the circles do not intersect.
func Trilaterate(a, b Anchor) (pos Position, ok bool) {
	d := math.Hypot(b.X-a.X, b.Y-a.Y)
	d1, d2 := a.Distance, b.Distance

	if d == 0 || d > d1+d2 || d < math.Abs(d1-d2) || math.IsNaN(d) {
		return Position{}, false
	}

	x := (d1*d1 - d2*d2 + d*d) / (2 * d)
	// Tangent circles can leave a tiny negative radicand after rounding.
	h2 := math.Max(d1*d1-x*x, 0)
	return Position{X: x, Y: -math.Sqrt(h2)}, true
}

// LocatePair orders a ranked landmark pair and trilaterates it. ranked[0]
// is the larger landmark; it becomes the second anchor, so the local frame
// is rooted at the smaller one.
func LocatePair(ranked []l4perception.Landmark) (Position, bool) {
	if len(ranked) < 2 {
		return Position{}, false
	}
	return Trilaterate(AnchorFromLandmark(ranked[1]), AnchorFromLandmark(ranked[0]))
}
