package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/lidarloc/internal/odometry"
)

// OdometryStore is an odometry.Sink writing to odometry_samples. Each store
// records under its own session ID.
type OdometryStore struct {
	db        *DB
	sessionID string
}

// NewOdometryStore starts a new odometry session.
func NewOdometryStore(db *DB) *OdometryStore {
	return &OdometryStore{db: db, sessionID: uuid.New().String()}
}

// SessionID identifies the samples written by this store.
func (s *OdometryStore) SessionID() string {
	return s.sessionID
}

// Record inserts sample. A zero sample time is replaced with the current
// time.
func (s *OdometryStore) Record(ctx context.Context, sample odometry.Sample) error {
	at := sample.Time
	if at.IsZero() {
		at = time.Now()
	}
	var theta sql.NullFloat64
	if sample.HasTheta {
		theta = sql.NullFloat64{Float64: sample.Theta, Valid: true}
	}
	return retryOnBusy(func() error {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO odometry_samples (session_id, x, y, theta, recorded_at)
			VALUES (?, ?, ?, ?, ?)`,
			s.sessionID, sample.X, sample.Y, theta, at.UnixNano(),
		)
		return err
	})
}

// ListOdometry returns the samples of a session in recording order.
func (db *DB) ListOdometry(sessionID string) ([]odometry.Sample, error) {
	rows, err := db.Query(`
		SELECT x, y, theta, recorded_at
		FROM odometry_samples
		WHERE session_id = ?
		ORDER BY recorded_at, sample_id`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query odometry: %w", err)
	}
	defer rows.Close()

	var samples []odometry.Sample
	for rows.Next() {
		var s odometry.Sample
		var theta sql.NullFloat64
		var at int64
		if err := rows.Scan(&s.X, &s.Y, &theta, &at); err != nil {
			return nil, fmt.Errorf("scan odometry sample: %w", err)
		}
		if theta.Valid {
			s.Theta, s.HasTheta = theta.Float64, true
		}
		s.Time = time.Unix(0, at).UTC()
		samples = append(samples, s)
	}
	return samples, rows.Err()
}
