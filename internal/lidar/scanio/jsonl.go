// Package scanio reads and writes scans as JSON lines, one scan object per
// line, for offline replay of recorded sessions.
package scanio

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/banshee-data/lidarloc/internal/lidar"
	"github.com/banshee-data/lidarloc/internal/lidar/pipeline"
	"github.com/banshee-data/lidarloc/internal/monitoring"
)

// maxLineBytes bounds a single scan line; a 2000-sample scan with explicit
// angles is well under 100 KB.
const maxLineBytes = 4 << 20

// Reader is a pipeline.Source over a JSON-lines stream. Malformed lines are
// logged and skipped.
type Reader struct {
	sc      *bufio.Scanner
	closer  io.Closer
	line    int
	seq     uint64
	skipped int
}

// NewReader reads scans from r.
func NewReader(r io.Reader) *Reader {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxLineBytes)
	return &Reader{sc: sc}
}

// Open reads scans from the file at path.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open scan file: %w", err)
	}
	r := NewReader(f)
	r.closer = f
	return r, nil
}

// Next returns the next well-formed scan, or io.EOF at the end of the
// stream. Scans without a sequence number are numbered by position.
func (r *Reader) Next(ctx context.Context) (lidar.Scan, error) {
	for {
		if err := ctx.Err(); err != nil {
			return lidar.Scan{}, err
		}
		if !r.sc.Scan() {
			if err := r.sc.Err(); err != nil {
				return lidar.Scan{}, fmt.Errorf("read line %d: %w", r.line+1, err)
			}
			return lidar.Scan{}, io.EOF
		}
		r.line++
		data := r.sc.Bytes()
		if len(data) == 0 {
			continue
		}
		r.seq++

		var scan lidar.Scan
		if err := json.Unmarshal(data, &scan); err != nil {
			r.skipped++
			monitoring.Logf("scanio: skipping malformed scan on line %d: %v", r.line, err)
			continue
		}
		if scan.Seq == 0 {
			scan.Seq = r.seq
		}
		return scan, nil
	}
}

// Skipped returns the number of malformed lines seen so far.
func (r *Reader) Skipped() int {
	return r.skipped
}

// Close closes the underlying file when the reader was opened with Open.
func (r *Reader) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer.Close()
}

// Writer appends scans as JSON lines. It is safe for concurrent use.
type Writer struct {
	mu     sync.Mutex
	bw     *bufio.Writer
	enc    *json.Encoder
	closer io.Closer
}

// NewWriter writes scans to w.
func NewWriter(w io.Writer) *Writer {
	bw := bufio.NewWriter(w)
	return &Writer{bw: bw, enc: json.NewEncoder(bw)}
}

// Create appends scans to the file at path, creating it if needed.
func Create(path string) (*Writer, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("create scan file: %w", err)
	}
	w := NewWriter(f)
	w.closer = f
	return w, nil
}

// Write appends one scan and flushes it.
func (w *Writer) Write(scan lidar.Scan) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.enc.Encode(scan); err != nil {
		return fmt.Errorf("encode scan %d: %w", scan.Seq, err)
	}
	return w.bw.Flush()
}

// Close flushes and closes the underlying file, if Create opened it.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	err := w.bw.Flush()
	if w.closer != nil {
		if cerr := w.closer.Close(); err == nil {
			err = cerr
		}
		w.closer = nil
	}
	return err
}

// Tee wraps src so every scan it yields is also appended to w. Write
// failures are logged and do not interrupt the stream.
func Tee(src pipeline.Source, w *Writer) *TeeSource {
	return &TeeSource{src: src, w: w}
}

// TeeSource records scans as they pass through.
type TeeSource struct {
	src pipeline.Source
	w   *Writer
}

// Next reads from the wrapped source and records the scan.
func (t *TeeSource) Next(ctx context.Context) (lidar.Scan, error) {
	scan, err := t.src.Next(ctx)
	if err != nil {
		return scan, err
	}
	if werr := t.w.Write(scan); werr != nil {
		monitoring.Logf("scanio: failed to record scan %d: %v", scan.Seq, werr)
	}
	return scan, nil
}
