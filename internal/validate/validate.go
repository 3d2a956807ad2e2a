// Package validate holds the pure input predicate used by every numeric
// text field on the presentation surface.
package validate

import "strconv"

// IntInRange reports whether text is an integer within [low, high].
// Empty text is always accepted: it means the field is being cleared,
// not that a value has been entered.
func IntInRange(text string, low, high int) bool {
	if text == "" {
		return true
	}
	v, err := strconv.Atoi(text)
	if err != nil {
		return false
	}
	return low <= v && v <= high
}
