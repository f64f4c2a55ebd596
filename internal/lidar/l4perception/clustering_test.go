package l4perception

import (
	"math"
	"math/rand"
	"testing"

	"github.com/banshee-data/lidarloc/internal/lidar"
)

// arcPoints samples n points evenly on the full circle of radius r around
// (cx, cy), starting at phase.
func arcPoints(cx, cy, r float64, n int, phase float64) []lidar.ScanPoint {
	pts := make([]lidar.ScanPoint, n)
	for i := range pts {
		a := phase + 2*math.Pi*float64(i)/float64(n)
		pts[i] = lidar.ScanPoint{X: cx + r*math.Cos(a), Y: cy + r*math.Sin(a)}
	}
	return pts
}

// sparsePoints lays out n points on a grid with the given spacing, offset
// from the origin so they never touch test clusters near it.
func sparsePoints(n int, spacing float64) []lidar.ScanPoint {
	pts := make([]lidar.ScanPoint, n)
	for i := range pts {
		pts[i] = lidar.ScanPoint{X: 5 + spacing*float64(i%5), Y: -5 + spacing*float64(i/5)}
	}
	return pts
}

func assertPartition(t *testing.T, c *Clustering, n int) {
	t.Helper()
	if len(c.Labels) != n {
		t.Fatalf("expected %d labels, got %d", n, len(c.Labels))
	}
	counts := make([]int, len(c.Counts))
	noise := 0
	for i, l := range c.Labels {
		switch {
		case l == Noise:
			noise++
		case int(l) >= 0 && int(l) < len(c.Counts):
			counts[l]++
		default:
			t.Fatalf("point %d has out-of-range label %d", i, l)
		}
	}
	if noise != c.NoiseCount {
		t.Errorf("NoiseCount = %d, counted %d", c.NoiseCount, noise)
	}
	for l := range counts {
		if counts[l] != c.Counts[l] {
			t.Errorf("Counts[%d] = %d, counted %d", l, c.Counts[l], counts[l])
		}
		if counts[l] == 0 {
			t.Errorf("cluster %d is empty", l)
		}
	}
}

// =============================================================================
// Tests: Spatial Index
// =============================================================================

func TestSpatialIndex_Build(t *testing.T) {
	points := lidar.PointCloud{
		{X: 0.0, Y: 0.0},
		{X: 0.5, Y: 0.5},
		{X: 10.0, Y: 10.0},
		{X: -0.5, Y: -0.5},
	}

	si := NewSpatialIndex(1.0)
	si.Build(points)

	if len(si.Grid) != 3 {
		t.Errorf("expected 3 cells, got %d", len(si.Grid))
	}
}

func TestSpatialIndex_RegionQuery(t *testing.T) {
	points := lidar.PointCloud{
		{X: 0.0, Y: 0.0},
		{X: 0.3, Y: 0.3},
		{X: 10.0, Y: 10.0},
		{X: -0.49, Y: 0.0}, // neighbouring cell, still within eps
	}

	si := NewSpatialIndex(0.5)
	si.Build(points)

	neighbors := si.RegionQuery(points, 0, 0.5)
	if len(neighbors) != 3 {
		t.Errorf("expected 3 neighbors (including self), got %d: %v", len(neighbors), neighbors)
	}

	neighbors = si.RegionQuery(points, 2, 0.5)
	if len(neighbors) != 1 || neighbors[0] != 2 {
		t.Errorf("expected only self, got %v", neighbors)
	}
}

func TestSpatialIndex_RegionQueryInclusiveBoundary(t *testing.T) {
	points := lidar.PointCloud{{X: 0, Y: 0}, {X: 0.25, Y: 0}}

	si := NewSpatialIndex(0.25)
	si.Build(points)

	if n := len(si.RegionQuery(points, 0, 0.25)); n != 2 {
		t.Errorf("point exactly eps away should be a neighbour, got %d results", n)
	}
}

func TestCellCoord_Clamped(t *testing.T) {
	tests := []struct {
		name string
		v    float64
		size float64
		want int64
	}{
		{"origin", 0, 0.25, 0},
		{"negative floors down", -0.1, 0.25, -1},
		{"ordinary", 1.3, 0.25, 5},
		{"overflowing positive", 1e6, 1e-300, maxCell},
		{"overflowing negative", -1e6, 1e-300, -maxCell},
		{"huge coordinate", math.MaxFloat64, 0.25, maxCell},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cellCoord(tt.v, tt.size); got != tt.want {
				t.Errorf("cellCoord(%v, %v) = %d, want %d", tt.v, tt.size, got, tt.want)
			}
		})
	}
}

func TestSpatialIndex_TinyCellsStillFindNeighbours(t *testing.T) {
	// With a vanishing cell size every coordinate overflows int64 and is
	// clamped; points that share a clamped cell are still compared exactly.
	points := lidar.PointCloud{{X: 1, Y: 1}, {X: 1, Y: 1}, {X: 2, Y: 1}}

	si := NewSpatialIndex(1e-300)
	si.Build(points)

	got := si.RegionQuery(points, 0, 1e-300)
	if len(got) != 2 || got[0] != 0 || got[1] != 1 {
		t.Errorf("RegionQuery = %v, want [0 1]", got)
	}
}

// =============================================================================
// Tests: DBSCAN
// =============================================================================

func TestDBSCAN_EmptyInput(t *testing.T) {
	c := DBSCAN(nil, DBSCANParams{Eps: 0.25, MinSamples: 7})
	if len(c.Labels) != 0 || c.NumClusters() != 0 || c.NoiseCount != 0 {
		t.Errorf("expected empty clustering, got %+v", c)
	}
}

func TestDBSCAN_DenseCircleWithSparseNoise(t *testing.T) {
	cloud := lidar.PointCloud(arcPoints(1.0, 0.2, 0.1, 10, 0))
	cloud = append(cloud, sparsePoints(20, 1.0)...)

	c := DBSCAN(cloud, DBSCANParams{Eps: 0.25, MinSamples: 7})
	assertPartition(t, c, len(cloud))

	if c.NumClusters() != 1 {
		t.Fatalf("expected 1 cluster, got %d", c.NumClusters())
	}
	if c.Counts[0] != 10 {
		t.Errorf("expected 10 points in cluster, got %d", c.Counts[0])
	}
	if c.NoiseCount != 20 {
		t.Errorf("expected 20 noise points, got %d", c.NoiseCount)
	}
	for i := 0; i < 10; i++ {
		if c.Labels[i] != 0 {
			t.Errorf("circle point %d labelled %d, want 0", i, c.Labels[i])
		}
	}
}

func TestDBSCAN_MinSamplesCountsOtherPoints(t *testing.T) {
	// 7 points all within eps of each other: each has 6 others.
	cloud := lidar.PointCloud(arcPoints(0, 0, 0.05, 7, 0))

	c := DBSCAN(cloud, DBSCANParams{Eps: 0.25, MinSamples: 7})
	if c.NumClusters() != 0 || c.NoiseCount != 7 {
		t.Errorf("7 points should not satisfy min_samples=7, got %d clusters", c.NumClusters())
	}

	c = DBSCAN(cloud, DBSCANParams{Eps: 0.25, MinSamples: 6})
	if c.NumClusters() != 1 || c.Counts[0] != 7 {
		t.Errorf("7 points should satisfy min_samples=6, got %+v", c.Counts)
	}
}

func TestDBSCAN_TwoSeparateClusters(t *testing.T) {
	var cloud lidar.PointCloud
	for i := 0; i < 20; i++ {
		cloud = append(cloud, lidar.ScanPoint{X: 0.1 * float64(i%5), Y: 0.1 * float64(i/5)})
	}
	for i := 0; i < 20; i++ {
		cloud = append(cloud, lidar.ScanPoint{X: 10 + 0.1*float64(i%5), Y: 0.1 * float64(i/5)})
	}

	c := DBSCAN(cloud, DBSCANParams{Eps: 0.25, MinSamples: 3})
	assertPartition(t, c, len(cloud))

	if c.NumClusters() != 2 {
		t.Fatalf("expected 2 clusters, got %d", c.NumClusters())
	}
	// Labels follow encounter order.
	if c.Labels[0] != 0 || c.Labels[20] != 1 {
		t.Errorf("expected first group label 0 and second label 1, got %d and %d", c.Labels[0], c.Labels[20])
	}
	if c.Counts[0] != 20 || c.Counts[1] != 20 {
		t.Errorf("expected 20/20 split, got %v", c.Counts)
	}
}

func TestDBSCAN_DuplicatePoints(t *testing.T) {
	cloud := make(lidar.PointCloud, 8)
	for i := range cloud {
		cloud[i] = lidar.ScanPoint{X: 1, Y: 1}
	}

	c := DBSCAN(cloud, DBSCANParams{Eps: 0.25, MinSamples: 7})
	assertPartition(t, c, len(cloud))
	if c.NumClusters() != 1 || c.Counts[0] != 8 {
		t.Errorf("expected one cluster of 8 duplicates, got %v (noise %d)", c.Counts, c.NoiseCount)
	}
}

func TestDBSCAN_BorderPointJoinsFirstCluster(t *testing.T) {
	left := lidar.PointCloud{{X: 0, Y: 0}, {X: 0.1, Y: 0}, {X: 0.2, Y: 0}, {X: 0.3, Y: 0}}
	right := lidar.PointCloud{{X: 2.2, Y: 0}, {X: 2.3, Y: 0}, {X: 2.4, Y: 0}, {X: 2.5, Y: 0}}
	border := lidar.ScanPoint{X: 1.25, Y: 0} // 0.95 from both inner ends

	params := DBSCANParams{Eps: 1.0, MinSamples: 3}

	for _, order := range []struct {
		name        string
		first, last lidar.PointCloud
	}{
		{"left first", left, right},
		{"right first", right, left},
	} {
		t.Run(order.name, func(t *testing.T) {
			var cloud lidar.PointCloud
			cloud = append(cloud, order.first...)
			cloud = append(cloud, border)
			cloud = append(cloud, order.last...)

			c := DBSCAN(cloud, params)
			assertPartition(t, c, len(cloud))

			if c.NumClusters() != 2 {
				t.Fatalf("expected 2 clusters, got %d", c.NumClusters())
			}
			if c.Labels[4] != c.Labels[0] {
				t.Errorf("border point labelled %d, want first cluster %d", c.Labels[4], c.Labels[0])
			}
			if c.Counts[0] != 5 || c.Counts[1] != 4 {
				t.Errorf("expected counts [5 4], got %v", c.Counts)
			}
		})
	}
}

func TestDBSCAN_AllNoise(t *testing.T) {
	cloud := lidar.PointCloud(sparsePoints(25, 1.0))

	c := DBSCAN(cloud, DBSCANParams{Eps: 0.25, MinSamples: 1})
	if c.NumClusters() != 0 || c.NoiseCount != 25 {
		t.Errorf("expected all noise, got %d clusters and %d noise", c.NumClusters(), c.NoiseCount)
	}
	for i, l := range c.Labels {
		if l != Noise {
			t.Errorf("point %d labelled %d, want Noise", i, l)
		}
	}
}

func TestDBSCAN_RandomCloudIsPartitioned(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	cloud := make(lidar.PointCloud, 400)
	for i := range cloud {
		cloud[i] = lidar.ScanPoint{X: rng.Float64() * 4, Y: rng.Float64() * 4}
	}

	c := DBSCAN(cloud, DBSCANParams{Eps: 0.25, MinSamples: 4})
	assertPartition(t, c, len(cloud))
}

func TestDBSCAN_Deterministic(t *testing.T) {
	cloud := lidar.PointCloud(arcPoints(0, 0, 0.1, 30, 0))
	cloud = append(cloud, arcPoints(0.5, 0, 0.1, 30, 0.1)...)

	params := DBSCANParams{Eps: 0.1, MinSamples: 2}
	a := DBSCAN(cloud, params)
	b := DBSCAN(cloud, params)
	for i := range a.Labels {
		if a.Labels[i] != b.Labels[i] {
			t.Fatalf("label mismatch at %d: %d vs %d", i, a.Labels[i], b.Labels[i])
		}
	}
}

func TestClustering_Clusters(t *testing.T) {
	c := &Clustering{
		Labels:     []ClusterLabel{0, Noise, 1, 0, 1, Noise},
		Counts:     []int{2, 2},
		NoiseCount: 2,
	}

	clusters := c.Clusters()
	if len(clusters) != 2 {
		t.Fatalf("expected 2 clusters, got %d", len(clusters))
	}
	if got := clusters[0].Members; len(got) != 2 || got[0] != 0 || got[1] != 3 {
		t.Errorf("cluster 0 members = %v, want [0 3]", got)
	}
	if got := clusters[1].Members; len(got) != 2 || got[0] != 2 || got[1] != 4 {
		t.Errorf("cluster 1 members = %v, want [2 4]", got)
	}
}
