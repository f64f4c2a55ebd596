package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/banshee-data/lidarloc/internal/lidar"
	"github.com/banshee-data/lidarloc/internal/lidar/l4perception"
	"github.com/banshee-data/lidarloc/internal/lidar/l5locate"
	"github.com/banshee-data/lidarloc/internal/monitoring"
)

// Reason explains why a scan produced no position estimate.
type Reason string

const (
	ReasonNone            Reason = ""
	ReasonEmptyCloud      Reason = "empty_cloud"
	ReasonTooFewLandmarks Reason = "too_few_landmarks"
	ReasonNoIntersection  Reason = "no_intersection"
)

// Fix is one successful position estimate together with the landmark
// pair it was computed from. Pair[0] is the larger landmark.
type Fix struct {
	Seq      uint64                   `json:"seq"`
	Stamp    time.Time                `json:"stamp"`
	Position l5locate.Position        `json:"position"`
	Pair     [2]l4perception.Landmark `json:"pair"`
}

// Outcome is the result of processing one scan. Fix is nil when the scan
// yielded no estimate, in which case Reason is set.
type Outcome struct {
	Seq         uint64
	CloudSize   int
	NumClusters int
	NoisePoints int
	Landmarks   []l4perception.Landmark
	Rejections  []l4perception.Rejection
	Fix         *Fix
	Reason      Reason
}

// OK reports whether the scan produced a position.
func (o Outcome) OK() bool {
	return o.Fix != nil
}

// Localizer runs the single-scan localization pipeline. It holds only the
// validated params and the sink, so it keeps nothing between scans.
type Localizer struct {
	params lidar.Params
	sink   Sink
	now    func() time.Time
}

// NewLocalizer validates params and returns a Localizer that hands every
// successful fix to sink. A nil sink discards fixes.
func NewLocalizer(params lidar.Params, sink Sink) (*Localizer, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if sink == nil {
		sink = Discard
	}
	return &Localizer{params: params, sink: sink, now: time.Now}, nil
}

// Params returns the configuration the localizer was built with.
func (l *Localizer) Params() lidar.Params {
	return l.params
}

// Locate runs point cloud, clustering, fitting, selection and
// trilateration for one scan without touching the sink.
func (l *Localizer) Locate(scan *lidar.Scan) Outcome {
	out := Outcome{Seq: scan.Seq}

	cloud := lidar.BuildPointCloud(scan)
	out.CloudSize = len(cloud)
	if len(cloud) == 0 {
		out.Reason = ReasonEmptyCloud
		return out
	}

	clustering := l4perception.DBSCAN(cloud, l4perception.DBSCANParams{
		Eps:        l.params.Eps,
		MinSamples: l.params.MinSamples,
	})
	out.NumClusters = clustering.NumClusters()
	out.NoisePoints = clustering.NoiseCount

	out.Landmarks, out.Rejections = l4perception.ExtractLandmarks(cloud, clustering, l.params)
	pair := l4perception.SelectTopTwo(out.Landmarks)
	if len(pair) < 2 {
		out.Reason = ReasonTooFewLandmarks
		return out
	}

	pos, ok := l5locate.LocatePair(pair)
	if !ok {
		out.Reason = ReasonNoIntersection
		return out
	}

	stamp := scan.Stamp
	if stamp.IsZero() {
		stamp = l.now()
	}
	out.Fix = &Fix{
		Seq:      scan.Seq,
		Stamp:    stamp,
		Position: pos,
		Pair:     [2]l4perception.Landmark{pair[0], pair[1]},
	}
	return out
}

// Process locates one scan and, on success, records the fix to the sink
// exactly once. The returned error is non-nil only when the sink fails;
// a scan without an estimate is reported through the Outcome.
func (l *Localizer) Process(ctx context.Context, scan *lidar.Scan) (Outcome, error) {
	out := l.Locate(scan)
	logOutcome(out)
	if !out.OK() {
		return out, nil
	}
	if err := l.sink.Record(ctx, *out.Fix); err != nil {
		return out, fmt.Errorf("record fix for scan %d: %w", out.Seq, err)
	}
	return out, nil
}

func logOutcome(out Outcome) {
	if !monitoring.DiagnosticsEnabled() {
		return
	}
	monitoring.Diagf("scan %d: %d points, %d clusters, %d noise", out.Seq, out.CloudSize, out.NumClusters, out.NoisePoints)
	for _, r := range out.Rejections {
		monitoring.Diagf("scan %d: %s", out.Seq, r)
	}
	for _, lm := range out.Landmarks {
		monitoring.Diagf("scan %d: cluster %d: center=(%.2f, %.2f), radius=%.2f, distance=%.2f",
			out.Seq, lm.Label, lm.CenterX, lm.CenterY, lm.Radius, lm.DistanceFromOrigin)
	}
	if out.OK() {
		monitoring.Diagf("scan %d: position (%.2f, %.2f)", out.Seq, out.Fix.Position.X, out.Fix.Position.Y)
	} else {
		monitoring.Diagf("scan %d: no estimate (%s)", out.Seq, out.Reason)
	}
}

// RunStats summarises a Run.
type RunStats struct {
	Scans      int
	Fixes      int
	SinkErrors int
	NoEstimate map[Reason]int
}

// Run pulls scans from src one at a time until it returns io.EOF or ctx is
// cancelled. A scan that is already being processed runs to completion.
// Sink failures are logged and counted but do not stop the loop.
func (l *Localizer) Run(ctx context.Context, src Source) (RunStats, error) {
	stats := RunStats{NoEstimate: make(map[Reason]int)}
	for {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		scan, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			return stats, nil
		}
		if err != nil {
			return stats, fmt.Errorf("next scan: %w", err)
		}

		stats.Scans++
		// The in-flight scan is finished even if ctx is cancelled meanwhile.
		out, err := l.Process(context.WithoutCancel(ctx), &scan)
		if err != nil {
			stats.SinkErrors++
			monitoring.Logf("failed to record position: %v", err)
		}
		if out.OK() {
			stats.Fixes++
		} else {
			stats.NoEstimate[out.Reason]++
		}
	}
}
