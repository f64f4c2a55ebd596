package l4perception

import (
	"math"

	"github.com/banshee-data/lidarloc/internal/lidar"
)

// ClusterLabel identifies the cluster a point belongs to. Labels of real
// clusters start at 0 and are dense; Noise marks points in no cluster.
type ClusterLabel int

// Noise is the label of points that are not density-reachable from any
// core point.
const Noise ClusterLabel = -1

// Cluster is one group of point indices sharing a label.
type Cluster struct {
	Label   ClusterLabel
	Members []int
}

// Clustering is the result of DBSCAN over a point cloud.
type Clustering struct {
	// Labels has one entry per input point.
	Labels []ClusterLabel
	// Counts[l] is the population of cluster l.
	Counts []int
	// NoiseCount is the number of points labelled Noise.
	NoiseCount int
}

// NumClusters returns the number of non-noise clusters.
func (c *Clustering) NumClusters() int {
	return len(c.Counts)
}

// Clusters returns the member indices of every cluster in label order.
// Members are listed in input order.
func (c *Clustering) Clusters() []Cluster {
	out := make([]Cluster, len(c.Counts))
	for l, n := range c.Counts {
		out[l] = Cluster{Label: ClusterLabel(l), Members: make([]int, 0, n)}
	}
	for i, l := range c.Labels {
		if l != Noise {
			out[l].Members = append(out[l].Members, i)
		}
	}
	return out
}

// DBSCANParams holds the two density thresholds.
type DBSCANParams struct {
	Eps        float64 // neighbourhood radius in meters (inclusive)
	MinSamples int     // other points required within Eps for a core point
}

// cellKey addresses one square of the spatial grid.
type cellKey struct {
	X, Y int64
}

// SpatialIndex buckets points into a regular grid so that a radius query
// only inspects the 3x3 block of cells around the query point. With the
// cell size equal to eps every neighbour is guaranteed to be found.
type SpatialIndex struct {
	CellSize float64
	Grid     map[cellKey][]int
}

// NewSpatialIndex creates an empty index with the given cell size.
func NewSpatialIndex(cellSize float64) *SpatialIndex {
	return &SpatialIndex{
		CellSize: cellSize,
		Grid:     make(map[cellKey][]int),
	}
}

// maxCell bounds cell coordinates so the float to int64 conversion stays
// defined and the ±1 neighbour offsets cannot overflow. Clamping never
// separates two points that share or touch a cell, and RegionQuery checks
// exact distances, so far-away points only cost extra comparisons.
const maxCell = 1 << 52

func (si *SpatialIndex) cellOf(p lidar.ScanPoint) cellKey {
	return cellKey{
		X: cellCoord(p.X, si.CellSize),
		Y: cellCoord(p.Y, si.CellSize),
	}
}

func cellCoord(v, size float64) int64 {
	c := math.Floor(v / size)
	switch {
	case c >= maxCell:
		return maxCell
	case c <= -maxCell:
		return -maxCell
	case math.IsNaN(c):
		return 0
	}
	return int64(c)
}

// Build indexes points. Indices within each cell stay in input order.
func (si *SpatialIndex) Build(points lidar.PointCloud) {
	si.Grid = make(map[cellKey][]int, len(points))
	for i, p := range points {
		k := si.cellOf(p)
		si.Grid[k] = append(si.Grid[k], i)
	}
}

// RegionQuery returns the indices of all points within eps of points[idx],
// including idx itself.
func (si *SpatialIndex) RegionQuery(points lidar.PointCloud, idx int, eps float64) []int {
	p := points[idx]
	eps2 := eps * eps
	base := si.cellOf(p)

	var neighbors []int
	for dx := int64(-1); dx <= 1; dx++ {
		for dy := int64(-1); dy <= 1; dy++ {
			for _, j := range si.Grid[cellKey{X: base.X + dx, Y: base.Y + dy}] {
				if points[j].Dist2(p) <= eps2 {
					neighbors = append(neighbors, j)
				}
			}
		}
	}
	return neighbors
}

// DBSCAN labels every point of the cloud.
//
// A point is a core point when at least MinSamples other points lie within
// Eps. Core points reachable from each other share a cluster; non-core
// points within Eps of a core point join the first cluster that reaches
// them while scanning in input order. Everything else is Noise.
func DBSCAN(points lidar.PointCloud, params DBSCANParams) *Clustering {
	n := len(points)
	result := &Clustering{Labels: make([]ClusterLabel, n)}
	if n == 0 {
		return result
	}

	// 0=unvisited, -1=noise, >0=cluster id + 1
	state := make([]int, n)
	clusterID := 0

	si := NewSpatialIndex(params.Eps)
	si.Build(points)

	// The query result includes the point itself.
	isCore := func(neighbors []int) bool {
		return len(neighbors)-1 >= params.MinSamples
	}

	for i := 0; i < n; i++ {
		if state[i] != 0 {
			continue
		}

		neighbors := si.RegionQuery(points, i, params.Eps)
		if !isCore(neighbors) {
			state[i] = -1
			continue
		}

		clusterID++
		state[i] = clusterID

		// Breadth-first expansion; the queue grows as core points are found.
		for j := 0; j < len(neighbors); j++ {
			idx := neighbors[j]
			if state[idx] == -1 {
				state[idx] = clusterID // border point
			}
			if state[idx] != 0 {
				continue
			}
			state[idx] = clusterID
			next := si.RegionQuery(points, idx, params.Eps)
			if isCore(next) {
				neighbors = append(neighbors, next...)
			}
		}
	}

	result.Counts = make([]int, clusterID)
	for i, s := range state {
		if s < 0 {
			result.Labels[i] = Noise
			result.NoiseCount++
			continue
		}
		l := s - 1
		result.Labels[i] = ClusterLabel(l)
		result.Counts[l]++
	}
	return result
}
