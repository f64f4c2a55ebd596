package transport

import (
	"context"

	"github.com/nats-io/nats.go"

	"github.com/banshee-data/lidarloc/internal/lidar/pipeline"
)

// PositionPublisher is a pipeline.Sink that publishes each fix as JSON.
type PositionPublisher struct {
	nc      *nats.Conn
	subject string
}

// NewPositionPublisher publishes fixes on subject, or on
// DefaultPositionSubject when subject is empty.
func NewPositionPublisher(nc *nats.Conn, subject string) *PositionPublisher {
	if subject == "" {
		subject = DefaultPositionSubject
	}
	return &PositionPublisher{nc: nc, subject: subject}
}

// Subject returns the subject fixes are published on.
func (p *PositionPublisher) Subject() string {
	return p.subject
}

// Record publishes fix.
func (p *PositionPublisher) Record(ctx context.Context, fix pipeline.Fix) error {
	return Publish(ctx, p.nc, p.subject, fix)
}
