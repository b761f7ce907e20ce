// Package debug provides conditional debug logging for bu.
//
// Debug logging is enabled by setting the BU_DEBUG environment variable:
//
//	BU_DEBUG=1 bu --log-file /tmp/bu.log
//
// Output goes to stderr until SetOutput redirects it; the TUI points it at
// the log file so the alternate screen stays clean. When disabled, every
// function is a no-op.
package debug

import (
	"io"
	"log"
	"os"
	"sync"
	"time"
)

const prefix = "[BU_DEBUG] "

var (
	mu      sync.Mutex
	enabled bool
	logger  *log.Logger
)

func init() {
	if os.Getenv("BU_DEBUG") != "" {
		enabled = true
		logger = log.New(os.Stderr, prefix, log.Ltime|log.Lmicroseconds)
	}
}

// Enabled returns whether debug logging is enabled.
func Enabled() bool {
	mu.Lock()
	defer mu.Unlock()
	return enabled
}

// SetEnabled allows programmatic control of debug logging.
func SetEnabled(e bool) {
	mu.Lock()
	defer mu.Unlock()
	enabled = e
	if e && logger == nil {
		logger = log.New(os.Stderr, prefix, log.Ltime|log.Lmicroseconds)
	}
}

// SetOutput redirects debug output.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	if logger == nil {
		logger = log.New(w, prefix, log.Ltime|log.Lmicroseconds)
		return
	}
	logger.SetOutput(w)
}

func active() *log.Logger {
	mu.Lock()
	defer mu.Unlock()
	if !enabled {
		return nil
	}
	return logger
}

// Log writes a debug message if debug logging is enabled.
// Uses printf-style formatting.
func Log(format string, args ...any) {
	if l := active(); l != nil {
		l.Printf(format, args...)
	}
}

// LogIf writes a debug message only if the condition is true.
func LogIf(cond bool, format string, args ...any) {
	if cond {
		Log(format, args...)
	}
}

// LogTiming returns a function that logs the time elapsed since the call.
//
//	defer debug.LogTiming("ReadSnapshot")()
func LogTiming(name string) func() {
	if active() == nil {
		return func() {}
	}
	start := time.Now()
	return func() {
		Log("%s took %v", name, time.Since(start))
	}
}

// LogEnterExit logs function entry and exit with timing.
func LogEnterExit(name string) func() {
	if active() == nil {
		return func() {}
	}
	Log("-> %s", name)
	start := time.Now()
	return func() {
		Log("<- %s (%v)", name, time.Since(start))
	}
}

// Dump logs a value with its type for debugging complex structures.
func Dump(name string, v any) {
	Log("%s: %T = %+v", name, v, v)
}
