// Package serialport provides the byte-oriented transport to the XY stage
// firmware. Commands are fire-and-forget: nothing is read back and no
// acknowledgement exists at this layer.
package serialport

import (
	"fmt"
	"sync"

	"github.com/albenik/go-serial/v2"

	"github.com/afmlab/xystage/internal/debug"
)

// Transport is the write-only command channel to the stage.
type Transport interface {
	Write(p []byte) (int, error)
	Close() error
}

// Open creates a transport. With mock true it returns a Mock that only logs
// and records writes, for development without the stage attached.
func Open(mock bool, path string, baudrate int) (Transport, error) {
	if mock {
		debug.Info("Using MOCK serial transport (development mode)")
		return &Mock{}, nil
	}
	return OpenPort(path, baudrate)
}

// Port is the real serial transport.
type Port struct {
	port *serial.Port
}

// OpenPort opens the stage's serial device.
func OpenPort(path string, baudrate int) (*Port, error) {
	debug.Info("Opening serial port %s at %d baud", path, baudrate)
	p, err := serial.Open(path,
		serial.WithBaudrate(baudrate),
		serial.WithReadTimeout(1000),
	)
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", path, err)
	}
	return &Port{port: p}, nil
}

func (p *Port) Write(b []byte) (int, error) {
	debug.Serial("write", b)
	return p.port.Write(b)
}

func (p *Port) Close() error {
	debug.Trace("Serial close")
	return p.port.Close()
}

// Mock records every write. Safe for concurrent use.
type Mock struct {
	mu     sync.Mutex
	writes [][]byte
	failed error
}

func (m *Mock) Write(b []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failed != nil {
		return 0, m.failed
	}
	debug.Serial("write (mock)", b)
	cp := make([]byte, len(b))
	copy(cp, b)
	m.writes = append(m.writes, cp)
	return len(b), nil
}

func (m *Mock) Close() error {
	debug.Trace("Serial close (mock)")
	return nil
}

// Writes returns a copy of everything written so far.
func (m *Mock) Writes() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]byte, len(m.writes))
	copy(out, m.writes)
	return out
}

// FailWith makes every subsequent write return err.
func (m *Mock) FailWith(err error) {
	m.mu.Lock()
	m.failed = err
	m.mu.Unlock()
}
