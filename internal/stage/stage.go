// Package stage defines the coordinate model and the text command protocol
// understood by the XY stage firmware.
package stage

import "fmt"

// Stage travel limits in firmware units.
const (
	MaxX = 59000
	MaxY = 29000
)

// Slots is the number of positions in a sample carrier.
const Slots = 12

// Camera identifies one of the two optical paths. Each camera has its own
// 12-slot location table.
type Camera int

const (
	Left Camera = iota
	Right
)

func (c Camera) String() string {
	switch c {
	case Left:
		return "left"
	case Right:
		return "right"
	}
	return fmt.Sprintf("camera(%d)", int(c))
}

// ParseCamera converts a textual camera selection to a Camera.
func ParseCamera(s string) (Camera, error) {
	switch s {
	case "left", "Left":
		return Left, nil
	case "right", "Right":
		return Right, nil
	}
	return 0, fmt.Errorf("unknown camera %q", s)
}

// Coordinate is a stage position. X and Y are non-negative firmware units,
// bounded by the stage travel limits.
type Coordinate struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Validate checks the coordinate against the stage travel limits.
func (c Coordinate) Validate() error {
	if c.X < 0 || c.X > MaxX {
		return fmt.Errorf("x must be between 0 and %d, got %d", MaxX, c.X)
	}
	if c.Y < 0 || c.Y > MaxY {
		return fmt.Errorf("y must be between 0 and %d, got %d", MaxY, c.Y)
	}
	return nil
}

func (c Coordinate) String() string {
	return fmt.Sprintf("(%d, %d)", c.X, c.Y)
}
