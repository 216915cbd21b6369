// Package telemetry provides conditional debug logging for goddo.
//
// Debug logging is enabled by setting the GODDO_DEBUG environment variable:
//
//	GODDO_DEBUG=1 goddo-solve -problem knapsack
//
// When enabled, debug messages are written to stderr with timestamps. When
// disabled (the default), every function in this package is a no-op with
// zero allocation overhead — solver hot loops can call telemetry.Log
// unconditionally without a guard.
//
// Grounded on vanderheijden86-beadwork/pkg/debug/debug.go, renamed to the
// goddo domain.
package telemetry

import (
	"fmt"
	"log"
	"os"
	"time"
)

var (
	enabled bool
	logger  *log.Logger
)

func init() {
	if os.Getenv("GODDO_DEBUG") != "" {
		enable()
	}
}

func enable() {
	enabled = true
	logger = log.New(os.Stderr, "[GODDO_DEBUG] ", log.Ltime|log.Lmicroseconds)
}

// Enabled returns whether debug logging is currently enabled.
func Enabled() bool { return enabled }

// SetEnabled allows programmatic control of debug logging, e.g. from a
// --debug CLI flag without requiring the environment variable.
func SetEnabled(e bool) {
	if e {
		enable()
		return
	}
	enabled = false
}

// Log writes a debug message if debug logging is enabled.
func Log(format string, args ...any) {
	if !enabled {
		return
	}
	logger.Printf(format, args...)
}

// LogTiming writes a timing message if debug logging is enabled.
func LogTiming(name string, d time.Duration) {
	if !enabled {
		return
	}
	logger.Printf("%s took %v", name, d)
}

// LogIf writes a debug message only if cond is true.
func LogIf(cond bool, format string, args ...any) {
	if !enabled || !cond {
		return
	}
	logger.Printf(format, args...)
}

// LogEnterExit logs function entry and exit with timing. Usage:
//
//	func compile() {
//	    defer telemetry.LogEnterExit("compile")()
//	}
func LogEnterExit(name string) func() {
	if !enabled {
		return func() {}
	}
	logger.Printf("-> %s", name)
	start := time.Now()
	return func() {
		logger.Printf("<- %s (%v)", name, time.Since(start))
	}
}

// Trace is an alias for LogEnterExit.
var Trace = LogEnterExit

// Dump logs a value with its type, for inspecting a diagram or subproblem
// mid-solve.
func Dump(name string, v any) {
	if !enabled {
		return
	}
	logger.Printf("%s: %T = %+v", name, v, v)
}

// Section logs a section header for visual organization in debug output.
func Section(name string) {
	if !enabled {
		return
	}
	logger.Printf("=== %s ===", name)
}

// Assert logs a message and panics if cond is false. Only active when
// debug logging is enabled, so assertions never run in production builds.
func Assert(cond bool, msg string) {
	if !enabled || cond {
		return
	}
	logger.Printf("ASSERTION FAILED: %s", msg)
	panic(fmt.Sprintf("telemetry assertion failed: %s", msg))
}

// AssertNoError logs and panics if err is not nil. Only active when debug
// logging is enabled.
func AssertNoError(err error, context string) {
	if !enabled || err == nil {
		return
	}
	logger.Printf("ASSERTION FAILED: %s: %v", context, err)
	panic(fmt.Sprintf("telemetry assertion failed: %s: %v", context, err))
}
