package gpio

import (
	"github.com/afmlab/xystage/internal/debug"
)

// Level represents the logical state of a GPIO pin.
type Level bool

const (
	Low  Level = false
	High Level = true
)

// PinMode indicates whether a GPIO is input or output.
type PinMode int

const (
	Input PinMode = iota
	Output
)

// Driver is the abstract interface for the GPIO lines driving the camera
// trigger. A real Raspberry Pi implementation and a mock are provided.
type Driver interface {
	SetupPin(pin int, mode PinMode) error
	WritePin(pin int, level Level) error
	Close() error
}

// NewDriver creates a GPIO driver. If mock is true, returns a MockDriver
// (for dev/test); otherwise the real Raspberry Pi driver.
func NewDriver(mock bool) (Driver, error) {
	if mock {
		debug.Info("Using MOCK GPIO driver (development mode)")
		return &MockDriver{}, nil
	}
	return NewRPiDriver()
}

// MockDriver logs pin operations and remembers the last level written to
// each pin, so tests can assert on trigger sequences.
type MockDriver struct {
	Ops []PinOp
}

// PinOp is one recorded WritePin call.
type PinOp struct {
	Pin   int
	Level Level
}

func (m *MockDriver) SetupPin(pin int, mode PinMode) error {
	debug.GPIO("SetupPin", pin, mode)
	return nil
}

func (m *MockDriver) WritePin(pin int, level Level) error {
	debug.GPIO("WritePin", pin, level)
	m.Ops = append(m.Ops, PinOp{Pin: pin, Level: level})
	return nil
}

func (m *MockDriver) Close() error {
	debug.Trace("GPIO Close (mock)")
	return nil
}
