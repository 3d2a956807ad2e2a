package stage

import (
	"fmt"
	"strconv"
	"strings"
)

// Wire command prefixes. The firmware addresses the Y axis as "row" (g2) and
// the X axis as "column" (g1). Commands are ASCII, CRLF-terminated on the
// wire and in the location files.
const (
	rowPrefix = "g2"
	colPrefix = "g1"
	zeroCmd   = "z"
	crlf      = "\r\n"
)

// EncodeMove renders a coordinate as its wire command pair. The returned
// commands carry no terminator; use Frame before transmitting or persisting.
func EncodeMove(c Coordinate) (row, col string) {
	return rowPrefix + strconv.Itoa(c.Y), colPrefix + strconv.Itoa(c.X)
}

// EncodeZero returns the framed stage zeroing command.
func EncodeZero() []byte {
	return []byte(zeroCmd + crlf)
}

// Frame terminates a command with CRLF for transmission or persistence.
func Frame(cmd string) []byte {
	return []byte(cmd + crlf)
}

// DecodeDisplay recovers a plain coordinate from a stored command pair for
// display and editing. Trailing CR/LF is tolerated, as are the zero-padded
// digit strings found in legacy location files.
func DecodeDisplay(row, col string) (Coordinate, error) {
	y, err := decodeAxis(row, rowPrefix)
	if err != nil {
		return Coordinate{}, fmt.Errorf("row command: %w", err)
	}
	x, err := decodeAxis(col, colPrefix)
	if err != nil {
		return Coordinate{}, fmt.Errorf("col command: %w", err)
	}
	return Coordinate{X: x, Y: y}, nil
}

func decodeAxis(cmd, prefix string) (int, error) {
	s := strings.TrimRight(cmd, crlf)
	digits, ok := strings.CutPrefix(s, prefix)
	if !ok {
		return 0, fmt.Errorf("%q lacks %q prefix", cmd, prefix)
	}
	v, err := strconv.Atoi(digits)
	if err != nil {
		return 0, fmt.Errorf("%q is not a numeric position", digits)
	}
	if v < 0 {
		return 0, fmt.Errorf("position must be non-negative, got %d", v)
	}
	return v, nil
}
