package serialmux

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"sync"
	"time"
)

// ReplayPort is a SerialPorter that plays back fixture lines at a fixed
// interval, as a stand-in for a connected odometry board.
type ReplayPort struct {
	r *io.PipeReader
	w *io.PipeWriter

	done chan struct{}
	once sync.Once
}

// NewReplayPort starts replaying lines every interval. When loop is false
// the port reports EOF after the last line.
func NewReplayPort(lines []string, interval time.Duration, loop bool) *ReplayPort {
	r, w := io.Pipe()
	p := &ReplayPort{r: r, w: w, done: make(chan struct{})}

	go func() {
		defer w.Close()
		var ticker *time.Ticker
		if interval > 0 {
			ticker = time.NewTicker(interval)
			defer ticker.Stop()
		}
		for {
			for _, line := range lines {
				if ticker != nil {
					select {
					case <-ticker.C:
					case <-p.done:
						return
					}
				}
				if !strings.HasSuffix(line, "\n") {
					line += "\n"
				}
				if _, err := w.Write([]byte(line)); err != nil {
					return
				}
			}
			if !loop || len(lines) == 0 {
				return
			}
		}
	}()
	return p
}

func (p *ReplayPort) Read(b []byte) (int, error) {
	return p.r.Read(b)
}

// Close stops the replay and unblocks readers.
func (p *ReplayPort) Close() error {
	p.once.Do(func() {
		close(p.done)
		p.r.Close()
	})
	return nil
}

// NewReplaySerialMux returns a SerialMux backed by a ReplayPort.
func NewReplaySerialMux(lines []string, interval time.Duration, loop bool) *SerialMux[*ReplayPort] {
	return NewSerialMux(NewReplayPort(lines, interval, loop))
}

// TestableSerialPort implements SerialPorter with configurable behaviour
// for tests that need to inject read failures.
type TestableSerialPort struct {
	mu sync.Mutex

	// ReadBuffer holds data to be returned by Read calls.
	ReadBuffer *bytes.Buffer

	// ReadError is returned once by the next Read call if set.
	ReadError error
	// CloseError is returned by Close if set.
	CloseError error

	// Closed indicates whether Close was called.
	Closed bool
	// BlockReads makes Read wait for data or Close instead of returning EOF.
	BlockReads bool

	readCond *sync.Cond
}

// NewTestableSerialPort creates a TestableSerialPort.
func NewTestableSerialPort() *TestableSerialPort {
	tsp := &TestableSerialPort{
		ReadBuffer: bytes.NewBuffer(nil),
	}
	tsp.readCond = sync.NewCond(&tsp.mu)
	return tsp
}

func (t *TestableSerialPort) Read(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.ReadError != nil {
		err := t.ReadError
		t.ReadError = nil
		return 0, err
	}
	for t.BlockReads && !t.Closed && t.ReadBuffer.Len() == 0 {
		t.readCond.Wait()
	}
	if t.Closed {
		return 0, errors.New("serial port closed")
	}
	return t.ReadBuffer.Read(p)
}

// Close marks the port as closed and wakes blocked readers.
func (t *TestableSerialPort) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.Closed = true
	t.readCond.Broadcast()
	return t.CloseError
}

// AddReadData queues data for subsequent Read calls.
func (t *TestableSerialPort) AddReadData(data []byte) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.ReadBuffer.Write(data)
	t.readCond.Broadcast()
}
