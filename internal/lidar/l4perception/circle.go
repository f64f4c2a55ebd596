package l4perception

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/banshee-data/lidarloc/internal/lidar"
)

// MaxFitCondition is the largest 2-norm condition number of the Kasa design
// matrix that is still treated as a well-posed fit. Collinear clusters
// produce a rank-deficient matrix whose condition number is at or near
// infinity.
const MaxFitCondition = 1e10

// ErrDegenerateFit is returned when a cluster cannot define a circle.
var ErrDegenerateFit = errors.New("degenerate circle fit")

// Circle is a fitted landmark candidate.
type Circle struct {
	CenterX float64 `json:"center_x"`
	CenterY float64 `json:"center_y"`
	Radius  float64 `json:"radius"`
}

// FitCircle fits a circle to the points using the Kasa algebraic
// least-squares method.
//
// Each point contributes a row [x, y, 1] with target x²+y². The least
// squares solution (a, b, c) gives the center (a/2, b/2) and radius
// sqrt(c + cx² + cy²).
func FitCircle(points []lidar.ScanPoint) (Circle, error) {
	n := len(points)
	if n < 3 {
		return Circle{}, fmt.Errorf("%w: need at least 3 points, got %d", ErrDegenerateFit, n)
	}

	a := mat.NewDense(n, 3, nil)
	b := mat.NewVecDense(n, nil)
	for i, p := range points {
		a.Set(i, 0, p.X)
		a.Set(i, 1, p.Y)
		a.Set(i, 2, 1)
		b.SetVec(i, p.X*p.X+p.Y*p.Y)
	}

	if cond := mat.Cond(a, 2); math.IsNaN(cond) || cond > MaxFitCondition {
		return Circle{}, fmt.Errorf("%w: design matrix condition %g", ErrDegenerateFit, cond)
	}

	var coef mat.VecDense
	if err := coef.SolveVec(a, b); err != nil {
		return Circle{}, fmt.Errorf("%w: %v", ErrDegenerateFit, err)
	}

	cx := coef.AtVec(0) / 2
	cy := coef.AtVec(1) / 2
	r2 := coef.AtVec(2) + cx*cx + cy*cy
	if !(r2 >= 0) || math.IsInf(r2, 0) {
		return Circle{}, fmt.Errorf("%w: squared radius %g", ErrDegenerateFit, r2)
	}

	return Circle{CenterX: cx, CenterY: cy, Radius: math.Sqrt(r2)}, nil
}

// FitCluster gathers the members of a cluster from the cloud and fits them.
func FitCluster(cloud lidar.PointCloud, members []int) (Circle, error) {
	pts := make([]lidar.ScanPoint, len(members))
	for i, idx := range members {
		pts[i] = cloud[idx]
	}
	return FitCircle(pts)
}
