package locations

import "github.com/afmlab/xystage/internal/stage"

// The preset carrier layout: two Y rows of six X columns, visited in a
// serpentine order (row one left to right, row two right to left). Both
// cameras share the same preset. The legacy files stored these with
// zero-padded digits; the canonical form keeps plain decimal values.
const (
	rowOneY = 29000
	rowTwoY = 22100
)

var presetColumns = [stage.Slots / 2]int{500, 10400, 20200, 30400, 40400, 50500}

// DefaultTable returns the built-in location table used when a camera has
// no location file yet.
func DefaultTable() Table {
	var t Table
	n := len(presetColumns)
	for i, x := range presetColumns {
		t[i] = stage.Coordinate{X: x, Y: rowOneY}
		t[2*n-1-i] = stage.Coordinate{X: x, Y: rowTwoY}
	}
	return t
}
