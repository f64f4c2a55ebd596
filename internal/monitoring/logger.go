package monitoring

import (
	"log"
	"sync/atomic"
)

// Logf is the package-level logger for operational messages. It defaults to
// log.Printf and may be replaced by SetLogger.
var Logf func(format string, v ...interface{}) = log.Printf

// Diagf receives per-scan diagnostics (cluster sizes, rejected landmarks,
// failed trilateration). It is a no-op until EnableDiagnostics is called.
var Diagf func(format string, v ...interface{}) = nop

var diagEnabled atomic.Bool

func nop(string, ...interface{}) {}

// SetLogger replaces the package logger. Passing nil installs a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = nop
		return
	}
	Logf = f
}

// EnableDiagnostics routes Diagf through Logf with a "[diag] " prefix, or
// silences it again when on is false.
func EnableDiagnostics(on bool) {
	diagEnabled.Store(on)
	if !on {
		Diagf = nop
		return
	}
	Diagf = func(format string, v ...interface{}) {
		Logf("[diag] "+format, v...)
	}
}

// DiagnosticsEnabled reports whether Diagf currently emits anything.
func DiagnosticsEnabled() bool {
	return diagEnabled.Load()
}
