package odometry

import (
	"context"
	"errors"
	"time"

	"github.com/banshee-data/lidarloc/internal/lidar/adapters"
	"github.com/banshee-data/lidarloc/internal/monitoring"
	"github.com/banshee-data/lidarloc/internal/serialmux"
)

// Sink stores odometry samples.
type Sink interface {
	Record(ctx context.Context, s Sample) error
}

// MultiSink records to every sink and joins their errors.
type MultiSink []Sink

// Record records s to each sink in order.
func (m MultiSink) Record(ctx context.Context, s Sample) error {
	var errs []error
	for _, sink := range m {
		if err := sink.Record(ctx, s); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// CSVSink writes samples as "x (m),y (m)" rows.
type CSVSink struct {
	*adapters.XYWriter
}

// NewCSVSink appends samples to the file at path, writing the header when
// the file is new.
func NewCSVSink(path string) (*CSVSink, error) {
	xw, err := adapters.CreateXYFile(path, adapters.OdometryHeader)
	if err != nil {
		return nil, err
	}
	return &CSVSink{XYWriter: xw}, nil
}

// Record writes the sample position.
func (c *CSVSink) Record(_ context.Context, s Sample) error {
	return c.WriteXY(s.X, s.Y)
}

// Stats counts what a Recorder has seen.
type Stats struct {
	Lines      int
	Samples    int
	Malformed  int
	SinkErrors int
}

// Recorder subscribes to a serial mux and records every parsed sample.
type Recorder struct {
	mux   serialmux.SerialMuxInterface
	sink  Sink
	id    string
	lines chan string
	now   func() time.Time
}

// NewRecorder subscribes to mux immediately, so no line is missed once the
// mux's Monitor loop starts, and writes samples to sink.
func NewRecorder(mux serialmux.SerialMuxInterface, sink Sink) *Recorder {
	id, lines := mux.Subscribe()
	return &Recorder{mux: mux, sink: sink, id: id, lines: lines, now: time.Now}
}

// Run consumes lines until ctx is done or the mux closes the subscription.
// The mux's Monitor loop must be running separately. Run unsubscribes on
// return.
func (r *Recorder) Run(ctx context.Context) (Stats, error) {
	defer r.mux.Unsubscribe(r.id)

	var stats Stats
	for {
		select {
		case <-ctx.Done():
			return stats, ctx.Err()
		case line, ok := <-r.lines:
			if !ok {
				return stats, nil
			}
			stats.Lines++
			r.handle(ctx, line, &stats)
		}
	}
}

func (r *Recorder) handle(ctx context.Context, line string, stats *Stats) {
	s, err := ParseLine(line)
	if err != nil {
		stats.Malformed++
		monitoring.Logf("odometry: error parsing line %q: %v", line, err)
		return
	}
	s.Time = r.now()
	stats.Samples++
	if err := r.sink.Record(ctx, s); err != nil {
		stats.SinkErrors++
		monitoring.Logf("odometry: failed to record sample: %v", err)
		return
	}
	monitoring.Diagf("odometry: logged x=%g, y=%g", s.X, s.Y)
}
