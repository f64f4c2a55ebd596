package l4perception

import (
	"fmt"
	"math"
	"sort"

	"github.com/banshee-data/lidarloc/internal/lidar"
)

// Landmark is a fitted circle accepted by the radius band.
type Landmark struct {
	Circle
	Label              ClusterLabel `json:"label"`
	PointCount         int          `json:"point_count"`
	DistanceFromOrigin float64      `json:"distance"`
}

// NewLandmark wraps a fitted circle with its range from the sensor.
func NewLandmark(c Circle, label ClusterLabel, pointCount int) Landmark {
	return Landmark{
		Circle:             c,
		Label:              label,
		PointCount:         pointCount,
		DistanceFromOrigin: math.Hypot(c.CenterX, c.CenterY),
	}
}

// RejectStage names the filter that discarded a cluster.
type RejectStage string

const (
	RejectClusterSize RejectStage = "cluster_size"
	RejectFit         RejectStage = "fit"
	RejectRadius      RejectStage = "radius"
)

// Rejection records why a cluster did not become a landmark.
type Rejection struct {
	Label      ClusterLabel
	Stage      RejectStage
	PointCount int
	Radius     float64 // set for RejectRadius
	Err        error   // set for RejectFit
}

func (r Rejection) String() string {
	switch r.Stage {
	case RejectClusterSize:
		return fmt.Sprintf("cluster %d: rejected, %d points outside size band", r.Label, r.PointCount)
	case RejectFit:
		return fmt.Sprintf("cluster %d: rejected, %v", r.Label, r.Err)
	default:
		return fmt.Sprintf("cluster %d: rejected due to radius %.3f outside range", r.Label, r.Radius)
	}
}

// ExtractLandmarks fits every cluster inside the size band and keeps the
// circles inside the radius band. Landmarks are returned in label order,
// which is the order clusters were first encountered in the cloud.
func ExtractLandmarks(cloud lidar.PointCloud, clustering *Clustering, params lidar.Params) ([]Landmark, []Rejection) {
	var (
		landmarks []Landmark
		rejected  []Rejection
	)
	for _, c := range clustering.Clusters() {
		n := len(c.Members)
		if !params.ClusterSizeAccepted(n) {
			rejected = append(rejected, Rejection{Label: c.Label, Stage: RejectClusterSize, PointCount: n})
			continue
		}
		circle, err := FitCluster(cloud, c.Members)
		if err != nil {
			rejected = append(rejected, Rejection{Label: c.Label, Stage: RejectFit, PointCount: n, Err: err})
			continue
		}
		if !params.RadiusAccepted(circle.Radius) {
			rejected = append(rejected, Rejection{Label: c.Label, Stage: RejectRadius, PointCount: n, Radius: circle.Radius})
			continue
		}
		landmarks = append(landmarks, NewLandmark(circle, c.Label, n))
	}
	return landmarks, rejected
}

// FilterByRadius returns the landmarks whose radius lies inside the band.
func FilterByRadius(landmarks []Landmark, params lidar.Params) []Landmark {
	out := make([]Landmark, 0, len(landmarks))
	for _, l := range landmarks {
		if params.RadiusAccepted(l.Radius) {
			out = append(out, l)
		}
	}
	return out
}

// RankByRadius returns a copy sorted by radius, largest first. Equal radii
// keep their input order.
func RankByRadius(landmarks []Landmark) []Landmark {
	ranked := make([]Landmark, len(landmarks))
	copy(ranked, landmarks)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Radius > ranked[j].Radius
	})
	return ranked
}

// SelectTopTwo returns at most the two largest-radius landmarks.
func SelectTopTwo(landmarks []Landmark) []Landmark {
	ranked := RankByRadius(landmarks)
	if len(ranked) > 2 {
		ranked = ranked[:2]
	}
	return ranked
}
