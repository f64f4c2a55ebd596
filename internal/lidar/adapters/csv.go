package adapters

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"sync"

	"github.com/banshee-data/lidarloc/internal/lidar/pipeline"
)

// OdometryHeader is the header row of wheel-odometry CSV logs.
var OdometryHeader = []string{"x (m)", "y (m)"}

// XYWriter appends x,y rows to a CSV stream. It is safe for concurrent use
// and flushes after every row so a crash loses at most the current row.
type XYWriter struct {
	mu     sync.Mutex
	w      *csv.Writer
	closer io.Closer
}

// NewXYWriter wraps w. When header is non-empty it is written first.
func NewXYWriter(w io.Writer, header []string) (*XYWriter, error) {
	xw := &XYWriter{w: csv.NewWriter(w)}
	if len(header) > 0 {
		if err := xw.writeRow(header); err != nil {
			return nil, err
		}
	}
	return xw, nil
}

// CreateXYFile opens path for appending, creating it if needed. The header
// is only written when the file is empty, so restarting a logger keeps a
// single header row.
func CreateXYFile(path string, header []string) (*XYWriter, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.Size() > 0 {
		header = nil
	}
	xw, err := NewXYWriter(f, header)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("write header to %s: %w", path, err)
	}
	xw.closer = f
	return xw, nil
}

// WriteXY appends one row.
func (xw *XYWriter) WriteXY(x, y float64) error {
	return xw.writeRow([]string{formatFloat(x), formatFloat(y)})
}

func (xw *XYWriter) writeRow(row []string) error {
	xw.mu.Lock()
	defer xw.mu.Unlock()
	if err := xw.w.Write(row); err != nil {
		return err
	}
	xw.w.Flush()
	return xw.w.Error()
}

// Close flushes and closes the underlying file, if CreateXYFile opened it.
func (xw *XYWriter) Close() error {
	xw.mu.Lock()
	defer xw.mu.Unlock()
	xw.w.Flush()
	err := xw.w.Error()
	if xw.closer != nil {
		if cerr := xw.closer.Close(); err == nil {
			err = cerr
		}
		xw.closer = nil
	}
	return err
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// PositionCSV is a pipeline.Sink writing one x,y row per fix, without a
// header, matching the long-standing position log format.
type PositionCSV struct {
	*XYWriter
}

// NewPositionCSV appends fixes to the file at path.
func NewPositionCSV(path string) (*PositionCSV, error) {
	xw, err := CreateXYFile(path, nil)
	if err != nil {
		return nil, err
	}
	return &PositionCSV{XYWriter: xw}, nil
}

// Record writes the fix position.
func (p *PositionCSV) Record(_ context.Context, fix pipeline.Fix) error {
	return p.WriteXY(fix.Position.X, fix.Position.Y)
}
