package transport

import (
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/nats-io/nats.go"

	"github.com/banshee-data/lidarloc/internal/lidar"
	"github.com/banshee-data/lidarloc/internal/monitoring"
)

// DefaultScanBuffer is the number of scans buffered between the NATS
// callback and the consumer.
const DefaultScanBuffer = 16

// ScanSubscriber is a pipeline.Source fed by scans published on a NATS
// subject. When the buffer is full new scans are dropped, so a slow
// consumer works on the freshest data it can keep up with.
type ScanSubscriber struct {
	sub     *nats.Subscription
	scans   chan lidar.Scan
	done    chan struct{}
	once    sync.Once
	dropped atomic.Int64
}

// NewScanSubscriber subscribes to subject (DefaultScanSubject when empty)
// with room for buffer pending scans.
func NewScanSubscriber(nc *nats.Conn, subject string, buffer int) (*ScanSubscriber, error) {
	if subject == "" {
		subject = DefaultScanSubject
	}
	if buffer <= 0 {
		buffer = DefaultScanBuffer
	}
	s := &ScanSubscriber{
		scans: make(chan lidar.Scan, buffer),
		done:  make(chan struct{}),
	}
	sub, err := Subscribe(nc, subject, func(_ context.Context, scan lidar.Scan) {
		select {
		case <-s.done:
		case s.scans <- scan:
		default:
			if n := s.dropped.Add(1); n == 1 || n%100 == 0 {
				monitoring.Logf("transport: scan buffer full, dropped %d scans so far", n)
			}
		}
	})
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", subject, err)
	}
	s.sub = sub
	return s, nil
}

// Next blocks until a scan arrives, ctx is done, or the subscriber is
// closed. Scans already buffered at Close are still returned before io.EOF.
func (s *ScanSubscriber) Next(ctx context.Context) (lidar.Scan, error) {
	select {
	case scan := <-s.scans:
		return scan, nil
	default:
	}
	select {
	case scan := <-s.scans:
		return scan, nil
	case <-ctx.Done():
		return lidar.Scan{}, ctx.Err()
	case <-s.done:
		select {
		case scan := <-s.scans:
			return scan, nil
		default:
			return lidar.Scan{}, io.EOF
		}
	}
}

// Dropped returns how many scans were discarded because the buffer was full.
func (s *ScanSubscriber) Dropped() int64 {
	return s.dropped.Load()
}

// Close unsubscribes. Subsequent calls to Next drain the buffer and then
// return io.EOF.
func (s *ScanSubscriber) Close() error {
	var err error
	s.once.Do(func() {
		close(s.done)
		err = s.sub.Unsubscribe()
	})
	return err
}
