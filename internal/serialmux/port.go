package serialmux

import "io"

// SerialPorter is the minimal interface needed for a serial port. The
// odometry board only streams, so nothing is ever written back. It lets
// tests and the replay mode run without hardware.
type SerialPorter interface {
	io.ReadCloser
}
