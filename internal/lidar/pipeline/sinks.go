package pipeline

import (
	"context"
	"errors"
	"io"

	"github.com/banshee-data/lidarloc/internal/lidar"
)

// Sink receives one Fix per successful scan.
type Sink interface {
	Record(ctx context.Context, fix Fix) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, fix Fix) error

// Record calls f.
func (f SinkFunc) Record(ctx context.Context, fix Fix) error {
	return f(ctx, fix)
}

// Discard drops every fix.
var Discard Sink = SinkFunc(func(context.Context, Fix) error { return nil })

// MultiSink fans a fix out to every sink. All sinks are attempted; their
// errors are joined.
type MultiSink []Sink

// Record records fix to each sink in order.
func (m MultiSink) Record(ctx context.Context, fix Fix) error {
	var errs []error
	for _, s := range m {
		if err := s.Record(ctx, fix); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Source yields scans in order. Next returns io.EOF when the stream ends.
type Source interface {
	Next(ctx context.Context) (lidar.Scan, error)
}

// SliceSource replays a fixed list of scans.
type SliceSource struct {
	scans []lidar.Scan
	pos   int
}

// NewSliceSource returns a Source over scans.
func NewSliceSource(scans ...lidar.Scan) *SliceSource {
	return &SliceSource{scans: scans}
}

// Next returns the next scan or io.EOF.
func (s *SliceSource) Next(ctx context.Context) (lidar.Scan, error) {
	if err := ctx.Err(); err != nil {
		return lidar.Scan{}, err
	}
	if s.pos >= len(s.scans) {
		return lidar.Scan{}, io.EOF
	}
	scan := s.scans[s.pos]
	s.pos++
	return scan, nil
}
