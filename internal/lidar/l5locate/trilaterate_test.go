package l5locate

import (
	"math"
	"testing"

	"github.com/banshee-data/lidarloc/internal/lidar/l4perception"
)

func TestTrilaterate(t *testing.T) {
	tests := []struct {
		name   string
		a, b   Anchor
		wantOK bool
		want   Position
	}{
		{
			name:   "3-4-5 intersection",
			a:      Anchor{X: 0, Y: 0, Distance: 5},
			b:      Anchor{X: 8, Y: 0, Distance: 5},
			wantOK: true,
			want:   Position{X: 4, Y: -3},
		},
		{
			name: "circles too far apart",
			a:    Anchor{X: 0, Y: 0, Distance: 1},
			b:    Anchor{X: 5, Y: 0, Distance: 1},
		},
		{
			name: "coincident centers",
			a:    Anchor{X: 0, Y: 0, Distance: 2},
			b:    Anchor{X: 0, Y: 0, Distance: 3},
		},
		{
			name: "coincident centers equal distances",
			a:    Anchor{X: 1, Y: 1, Distance: 2},
			b:    Anchor{X: 1, Y: 1, Distance: 2},
		},
		{
			name: "one circle inside the other",
			a:    Anchor{X: 0, Y: 0, Distance: 10},
			b:    Anchor{X: 1, Y: 0, Distance: 1},
		},
		{
			name:   "externally tangent",
			a:      Anchor{X: 0, Y: 0, Distance: 2},
			b:      Anchor{X: 5, Y: 0, Distance: 3},
			wantOK: true,
			want:   Position{X: 2, Y: 0},
		},
		{
			name:   "internally tangent",
			a:      Anchor{X: 0, Y: 0, Distance: 3},
			b:      Anchor{X: 1, Y: 0, Distance: 2},
			wantOK: true,
			want:   Position{X: 3, Y: 0},
		},
		{
			// Local frame: the rotated baseline has the same length as
			// the 3-4-5 case, so the local answer is identical.
			name:   "rotated baseline stays in local frame",
			a:      Anchor{X: 1, Y: 1, Distance: 5},
			b:      Anchor{X: 1, Y: 9, Distance: 5},
			wantOK: true,
			want:   Position{X: 4, Y: -3},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Trilaterate(tt.a, tt.b)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v (pos %+v)", ok, tt.wantOK, got)
			}
			if !ok {
				return
			}
			if math.Abs(got.X-tt.want.X) > 1e-9 || math.Abs(got.Y-tt.want.Y) > 1e-9 {
				t.Errorf("position = (%v, %v), want (%v, %v)", got.X, got.Y, tt.want.X, tt.want.Y)
			}
			if math.IsNaN(got.X) || math.IsNaN(got.Y) {
				t.Errorf("position has NaN: %+v", got)
			}
		})
	}
}

func TestTrilaterate_SolutionLiesOnBothCircles(t *testing.T) {
	a := Anchor{X: 0.3, Y: 1.2, Distance: 1.5}
	b := Anchor{X: 1.1, Y: -0.4, Distance: 1.3}

	pos, ok := Trilaterate(a, b)
	if !ok {
		t.Fatal("expected a solution")
	}

	// Distances are frame independent: in the local frame a is at the
	// origin and b at (D, 0).
	d := math.Hypot(b.X-a.X, b.Y-a.Y)
	if r := math.Hypot(pos.X, pos.Y); math.Abs(r-a.Distance) > 1e-9 {
		t.Errorf("distance to a = %v, want %v", r, a.Distance)
	}
	if r := math.Hypot(pos.X-d, pos.Y); math.Abs(r-b.Distance) > 1e-9 {
		t.Errorf("distance to b = %v, want %v", r, b.Distance)
	}
	if pos.Y > 0 {
		t.Errorf("expected the negative-y intersection, got %v", pos.Y)
	}
}

func TestLocatePair_OrdersLargerLandmarkSecond(t *testing.T) {
	larger := l4perception.NewLandmark(l4perception.Circle{CenterX: 8, CenterY: 0, Radius: 0.15}, 1, 10)
	smaller := l4perception.NewLandmark(l4perception.Circle{CenterX: 0, CenterY: 6, Radius: 0.1}, 0, 10)

	pos, ok := LocatePair([]l4perception.Landmark{larger, smaller})
	if !ok {
		t.Fatal("expected a solution")
	}

	want, _ := Trilaterate(AnchorFromLandmark(smaller), AnchorFromLandmark(larger))
	if pos != want {
		t.Errorf("LocatePair = %+v, want %+v", pos, want)
	}
}

func TestLocatePair_NeedsTwo(t *testing.T) {
	one := []l4perception.Landmark{l4perception.NewLandmark(l4perception.Circle{CenterX: 1, Radius: 0.1}, 0, 10)}
	if _, ok := LocatePair(one); ok {
		t.Error("LocatePair with one landmark should fail")
	}
	if _, ok := LocatePair(nil); ok {
		t.Error("LocatePair with no landmarks should fail")
	}
}
