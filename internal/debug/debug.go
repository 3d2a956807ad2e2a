package debug

import (
	"fmt"
	"io"
	"log"
	"os"
)

// Debug levels
const (
	LevelOff     = 0 // No output
	LevelInfo    = 1 // Important info (run lifecycle, cycle counts)
	LevelLive    = 2 // Live info (stage moves, captures, waits)
	LevelVerbose = 3 // Verbose (range math, phase selection, file I/O)
	LevelTrace   = 4 // Trace (serial bytes, GPIO, very low level)
)

var (
	level  int
	logger *log.Logger
)

// Init initializes the debug system with a level (0-4).
// 0 = no output
// 1 = important info (run lifecycle, cycle counts)
// 2 = live info (stage moves, captures, waits)
// 3 = verbose (sweep ranges, phase selection, persistence)
// 4 = trace (serial writes, GPIO, very low level)
func Init(debugLevel int) {
	level = debugLevel
	if level > LevelOff {
		logger = log.New(os.Stdout, "[xystage] ", log.LstdFlags|log.Lmicroseconds)
	}
}

// Level returns the current debug level.
func Level() int {
	return level
}

// IsEnabled returns true if debug level is >= the requested level.
func IsEnabled(minLevel int) bool {
	return level >= minLevel
}

// SetOutput redirects all debug output to w (e.g. a MultiWriter that also
// feeds the web status stream).
func SetOutput(w io.Writer) {
	if logger != nil {
		logger.SetOutput(w)
	}
}

// --- Level 1 functions (Info): important info ---

// Info prints a level 1 message (important info).
func Info(format string, args ...interface{}) {
	if level >= LevelInfo && logger != nil {
		logger.Printf("[INFO] "+format, args...)
	}
}

// Summary prints an important summary (level 1).
func Summary(title string) {
	if level >= LevelOff && logger != nil {
		logger.Printf("═══════════════════════════════════════")
		logger.Printf("  %s", title)
		logger.Printf("═══════════════════════════════════════")
	}
}

// Run prints run parameters (level 1).
func Run(sampleSize, skipRow int) {
	if level >= LevelInfo && logger != nil {
		logger.Printf("[INFO] Run: %d samples, skip_row=%d", sampleSize, skipRow)
	}
}

// Value prints a named value in formatted form (level 1).
func Value(name string, value interface{}) {
	if level >= LevelInfo && logger != nil {
		logger.Printf("[INFO]   %s = %v", name, value)
	}
}

// --- Level 2 functions (Live): real-time info ---

// Live prints a level 2 message (live info).
func Live(format string, args ...interface{}) {
	if level >= LevelLive && logger != nil {
		logger.Printf("[LIVE] "+format, args...)
	}
}

// Cycle prints the start of a run cycle (level 2).
func Cycle(n int) {
	if level >= LevelLive && logger != nil {
		logger.Printf("[LIVE] Starting cycle %d", n)
	}
}

// Sweep prints the index range of a sweep (level 2).
func Sweep(camera string, start, end int) {
	if level >= LevelLive && logger != nil {
		logger.Printf("[LIVE] Sweeping %s camera slots [%d,%d)", camera, start, end)
	}
}

// Move prints a stage move command (level 2).
func Move(cmd string) {
	if level >= LevelLive && logger != nil {
		logger.Printf("[LIVE] Stage move: %s", cmd)
	}
}

// Capture prints a photo capture (level 2).
func Capture(sample, port int) {
	if level >= LevelLive && logger != nil {
		logger.Printf("[LIVE] Captured sample %d (camera port %d)", sample, port)
	}
}

// Wait prints an inter-cycle wait (level 2).
func Wait(phase string, seconds float64) {
	if level >= LevelLive && logger != nil {
		logger.Printf("[LIVE] Waiting %.0fs (%s phase)", seconds, phase)
	}
}

// --- Level 3 functions (Verbose): everything ---

// Verbose prints a level 3 message (verbose).
func Verbose(format string, args ...interface{}) {
	if level >= LevelVerbose && logger != nil {
		logger.Printf("[VERBOSE] "+format, args...)
	}
}

// Print prints a level 3 message (alias for Verbose).
func Print(format string, args ...interface{}) {
	Verbose(format, args...)
}

// Printf is an alias for Print for compatibility.
func Printf(format string, args ...interface{}) {
	Verbose(format, args...)
}

// PrintStruct prints a struct in formatted form (level 3).
func PrintStruct(name string, v interface{}) {
	if level >= LevelVerbose && logger != nil {
		logger.Printf("[VERBOSE] %s: %+v", name, v)
	}
}

// Section prints a section separator (level 3).
func Section(name string) {
	if level >= LevelVerbose && logger != nil {
		logger.Printf("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
		logger.Printf("  %s", name)
		logger.Printf("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	}
}

// Step prints a numbered step (level 3).
func Step(num int, description string) {
	if level >= LevelVerbose && logger != nil {
		logger.Printf("[VERBOSE] Step %d: %s", num, description)
	}
}

// --- Level 4 functions (Trace): very low level ---

// Trace prints a level 4 message (trace, serial/GPIO).
func Trace(format string, args ...interface{}) {
	if level >= LevelTrace && logger != nil {
		logger.Printf("[TRACE] "+format, args...)
	}
}

// Serial prints a serial transmission (level 4).
func Serial(op string, data []byte) {
	if level >= LevelTrace && logger != nil {
		logger.Printf("[SERIAL] %s %q", op, data)
	}
}

// GPIO prints a GPIO operation (level 4).
func GPIO(operation string, pin int, value interface{}) {
	if level >= LevelTrace && logger != nil {
		logger.Printf("[GPIO] %s pin=%d value=%v", operation, pin, value)
	}
}

// --- General functions ---

// Error prints a debug error (level 1+).
func Error(err error) {
	if level >= LevelInfo && logger != nil {
		logger.Printf("[ERROR] %v", err)
	}
}

// Fmt is a helper function that returns a formatted string
// only if debug is enabled (to avoid unnecessary allocations).
func Fmt(format string, args ...interface{}) string {
	if level > 0 {
		return fmt.Sprintf(format, args...)
	}
	return ""
}
