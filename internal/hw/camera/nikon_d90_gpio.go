package camera

import (
	"time"

	"github.com/afmlab/xystage/internal/debug"
	"github.com/afmlab/xystage/internal/hw/gpio"
)

// NikonD90GPIO is a Trigger for a Nikon D90 controlled via the 3-pin remote
// connector:
// - GND: connected to Raspberry Pi ground
// - FOCUS: autofocus (activate by setting to LOW)
// - SHUTTER: trigger (activate by setting to LOW)
//
// Trigger sequence:
// 1. FOCUS to LOW (activates autofocus)
// 2. Wait for autofocus to complete
// 3. SHUTTER to LOW (triggers the shot)
// 4. Hold for a moment
// 5. Set SHUTTER and FOCUS back to HIGH
type NikonD90GPIO struct {
	gpio         gpio.Driver
	focusPin     int
	shutterPin   int
	focusDelay   time.Duration // time for autofocus
	shutterDelay time.Duration // shutter hold time
}

// NewNikonD90GPIO creates a GPIO-controlled Nikon D90 trigger.
// focusPin and shutterPin are the GPIO pin numbers for FOCUS and SHUTTER.
func NewNikonD90GPIO(g gpio.Driver, focusPin, shutterPin int, focusDelay, shutterDelay time.Duration) *NikonD90GPIO {
	// Configure pins as outputs; lines idle HIGH (inactive).
	_ = g.SetupPin(focusPin, gpio.Output)
	_ = g.SetupPin(shutterPin, gpio.Output)
	_ = g.WritePin(focusPin, gpio.High)
	_ = g.WritePin(shutterPin, gpio.High)

	return &NikonD90GPIO{
		gpio:         g,
		focusPin:     focusPin,
		shutterPin:   shutterPin,
		focusDelay:   focusDelay,
		shutterDelay: shutterDelay,
	}
}

// Capture takes the photo for one sample.
// Sequence: FOCUS -> wait for AF -> SHUTTER -> hold -> release.
func (n *NikonD90GPIO) Capture(sample, port int) error {
	debug.Printf("Camera: capturing sample %d on port %d (focus=%d, shutter=%d)",
		sample, port, n.focusPin, n.shutterPin)

	if err := n.gpio.WritePin(n.focusPin, gpio.Low); err != nil {
		return err
	}

	debug.Verbose("Camera: waiting for autofocus (%v)", n.focusDelay)
	time.Sleep(n.focusDelay)

	if err := n.gpio.WritePin(n.shutterPin, gpio.Low); err != nil {
		// Release FOCUS on error.
		_ = n.gpio.WritePin(n.focusPin, gpio.High)
		return err
	}

	debug.Verbose("Camera: holding shutter (%v)", n.shutterDelay)
	time.Sleep(n.shutterDelay)

	if err := n.gpio.WritePin(n.shutterPin, gpio.High); err != nil {
		return err
	}
	if err := n.gpio.WritePin(n.focusPin, gpio.High); err != nil {
		return err
	}

	debug.Capture(sample, port)
	return nil
}

// MockTrigger records captures without touching hardware.
type MockTrigger struct {
	Captures []int // sample ordinals in capture order
	Port     int   // port of the last capture
}

func (m *MockTrigger) Capture(sample, port int) error {
	debug.Capture(sample, port)
	m.Captures = append(m.Captures, sample)
	m.Port = port
	return nil
}
