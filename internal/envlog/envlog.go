// Package envlog polls humidity/temperature devices over serial lines and
// appends timestamped readings to per-device log files. It is independent
// of the run scheduler and shares only the serial stack with it.
package envlog

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/afmlab/xystage/internal/debug"
)

const (
	timestampFormat = "2006-01-02 15:04:05.000000"
	filenameFormat  = "2006-01-02_15:04:05"
)

// Set-point commands understood by the environmental controller firmware.
const (
	CmdHumidity    = "sh"
	CmdTemperature = "st"
)

// Filename returns the log file path for a device, stamped with the poll
// start time: <dir>/<device>-YYYY-MM-DD_HH:MM:SS.log
func Filename(dir, device string, t time.Time) string {
	return filepath.Join(dir, fmt.Sprintf("%s-%s.log", device, t.Format(filenameFormat)))
}

// Source is one polled device: a name and its line-oriented reader.
type Source struct {
	Name  string
	lines *bufio.Reader
}

// NewSource wraps a device's serial reader.
func NewSource(name string, r io.Reader) Source {
	return Source{Name: name, lines: bufio.NewReader(r)}
}

// Record appends one timestamped reading to the device's log file, creating
// it if needed.
func Record(path string, now time.Time, line string) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()
	if _, err := fmt.Fprintf(f, "%s, %s\n", now.Format(timestampFormat), line); err != nil {
		return fmt.Errorf("append to log file: %w", err)
	}
	return nil
}

// Run polls every source in turn, appending each non-empty reading to the
// device's log file, until the duration elapses, the context is cancelled,
// or every source is exhausted. It returns the per-device log file paths.
func Run(ctx context.Context, dir string, sources []Source, d time.Duration) (map[string]string, error) {
	start := time.Now()
	paths := make(map[string]string, len(sources))
	for _, src := range sources {
		paths[src.Name] = Filename(dir, src.Name, start)
	}

	deadline := start.Add(d)
	exhausted := make(map[string]bool, len(sources))

	for time.Now().Before(deadline) && len(exhausted) < len(sources) {
		if err := ctx.Err(); err != nil {
			return paths, err
		}
		for _, src := range sources {
			if exhausted[src.Name] {
				continue
			}
			line, err := src.lines.ReadString('\n')
			line = strings.TrimRight(line, "\r\n")
			if line != "" {
				debug.Live("Reading %s: %s", src.Name, line)
				if werr := Record(paths[src.Name], time.Now(), line); werr != nil {
					return paths, werr
				}
			}
			if err != nil {
				debug.Verbose("Device %s: %v, no further readings", src.Name, err)
				exhausted[src.Name] = true
			}
		}
	}
	return paths, nil
}

// SetPoint writes a humidity or temperature set-point command to the
// device: the command prefix, the value, CRLF.
func SetPoint(w io.Writer, command, value string) error {
	if command != CmdHumidity && command != CmdTemperature {
		return fmt.Errorf("command must be %q (humidity) or %q (temperature), got %q", CmdHumidity, CmdTemperature, command)
	}
	if value == "" {
		return fmt.Errorf("set-point value is required")
	}
	if _, err := w.Write([]byte(command + value + "\r\n")); err != nil {
		return fmt.Errorf("write set-point: %w", err)
	}
	return nil
}
