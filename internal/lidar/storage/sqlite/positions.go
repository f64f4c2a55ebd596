package sqlite

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/lidarloc/internal/lidar"
	"github.com/banshee-data/lidarloc/internal/lidar/pipeline"
)

// Run describes one localization session: the parameters it used and where
// its scans came from.
type Run struct {
	RunID     string       `json:"run_id"`
	StartedAt time.Time    `json:"started_at"`
	Version   string       `json:"version"`
	Source    string       `json:"source"`
	Params    lidar.Params `json:"params"`
}

// FixRecord is a stored position fix with the anchors it was computed from.
// Anchor 1 is the smaller landmark, anchor 2 the larger one.
type FixRecord struct {
	FixID           int64     `json:"fix_id"`
	RunID           string    `json:"run_id"`
	ScanSeq         uint64    `json:"scan_seq"`
	Stamp           time.Time `json:"stamp"`
	X               float64   `json:"x"`
	Y               float64   `json:"y"`
	Anchor1X        float64   `json:"anchor1_x"`
	Anchor1Y        float64   `json:"anchor1_y"`
	Anchor1Radius   float64   `json:"anchor1_radius"`
	Anchor1Distance float64   `json:"anchor1_distance"`
	Anchor2X        float64   `json:"anchor2_x"`
	Anchor2Y        float64   `json:"anchor2_y"`
	Anchor2Radius   float64   `json:"anchor2_radius"`
	Anchor2Distance float64   `json:"anchor2_distance"`
	RecordedAt      time.Time `json:"recorded_at"`
}

// PositionStore is a pipeline.Sink that writes each fix to position_fixes
// under a single run.
type PositionStore struct {
	db  *DB
	run Run
	now func() time.Time
}

// NewPositionStore starts a new run with the given parameters and returns
// a store recording fixes against it.
func NewPositionStore(db *DB, params lidar.Params, version, source string) (*PositionStore, error) {
	s := &PositionStore{db: db, now: time.Now}
	s.run = Run{
		RunID:     uuid.New().String(),
		StartedAt: s.now(),
		Version:   version,
		Source:    source,
		Params:    params,
	}

	paramsJSON, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("encode params: %w", err)
	}
	err = retryOnBusy(func() error {
		_, err := db.Exec(`
			INSERT INTO localization_runs (run_id, started_at, version, source, params_json)
			VALUES (?, ?, ?, ?, ?)`,
			s.run.RunID, s.run.StartedAt.UnixNano(), version, source, string(paramsJSON),
		)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("insert run: %w", err)
	}
	return s, nil
}

// Run returns the run this store records to.
func (s *PositionStore) Run() Run {
	return s.run
}

// Record inserts fix.
func (s *PositionStore) Record(ctx context.Context, fix pipeline.Fix) error {
	big, small := fix.Pair[0], fix.Pair[1]
	return retryOnBusy(func() error {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO position_fixes (
				run_id, scan_seq, stamp, x, y,
				anchor1_x, anchor1_y, anchor1_radius, anchor1_distance,
				anchor2_x, anchor2_y, anchor2_radius, anchor2_distance,
				recorded_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			s.run.RunID, int64(fix.Seq), fix.Stamp.UnixNano(), fix.Position.X, fix.Position.Y,
			small.CenterX, small.CenterY, small.Radius, small.DistanceFromOrigin,
			big.CenterX, big.CenterY, big.Radius, big.DistanceFromOrigin,
			s.now().UnixNano(),
		)
		return err
	})
}

// ListFixes returns the fixes of a run in scan order.
func (db *DB) ListFixes(runID string) ([]FixRecord, error) {
	rows, err := db.Query(`
		SELECT fix_id, run_id, scan_seq, stamp, x, y,
		       anchor1_x, anchor1_y, anchor1_radius, anchor1_distance,
		       anchor2_x, anchor2_y, anchor2_radius, anchor2_distance,
		       recorded_at
		FROM position_fixes
		WHERE run_id = ?
		ORDER BY scan_seq, fix_id`, runID)
	if err != nil {
		return nil, fmt.Errorf("query fixes: %w", err)
	}
	defer rows.Close()

	var fixes []FixRecord
	for rows.Next() {
		var f FixRecord
		var seq, stamp, recorded int64
		if err := rows.Scan(
			&f.FixID, &f.RunID, &seq, &stamp, &f.X, &f.Y,
			&f.Anchor1X, &f.Anchor1Y, &f.Anchor1Radius, &f.Anchor1Distance,
			&f.Anchor2X, &f.Anchor2Y, &f.Anchor2Radius, &f.Anchor2Distance,
			&recorded,
		); err != nil {
			return nil, fmt.Errorf("scan fix: %w", err)
		}
		f.ScanSeq = uint64(seq)
		f.Stamp = time.Unix(0, stamp).UTC()
		f.RecordedAt = time.Unix(0, recorded).UTC()
		fixes = append(fixes, f)
	}
	return fixes, rows.Err()
}

// ListRuns returns all runs, most recent first.
func (db *DB) ListRuns() ([]Run, error) {
	rows, err := db.Query(`
		SELECT run_id, started_at, version, source, params_json
		FROM localization_runs
		ORDER BY started_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var started int64
		var paramsJSON string
		if err := rows.Scan(&r.RunID, &started, &r.Version, &r.Source, &paramsJSON); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if err := json.Unmarshal([]byte(paramsJSON), &r.Params); err != nil {
			return nil, fmt.Errorf("decode params for run %s: %w", r.RunID, err)
		}
		r.StartedAt = time.Unix(0, started).UTC()
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
