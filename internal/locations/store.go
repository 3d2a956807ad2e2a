// Package locations owns the per-camera sample location tables and their
// file persistence.
package locations

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/afmlab/xystage/internal/debug"
	"github.com/afmlab/xystage/internal/stage"
)

// Table is one camera's ordered coordinate set. Index i addresses carrier
// position i+1, with position 1 nearest the carrier reference edge.
type Table [stage.Slots]stage.Coordinate

// ErrCorrupt marks a location file that exists but cannot be rebuilt into
// exactly 12 coordinate pairs. This is not recoverable; defaults are used
// only when the file is absent.
var ErrCorrupt = errors.New("location file corrupt")

// Store holds one location table per camera, each backed by its own file.
// Edits are write-through: SetEntry persists the whole table immediately.
type Store struct {
	paths  [2]string
	tables [2]Table
}

// Open loads both camera tables. A missing file seeds the camera with the
// built-in default table; a malformed file is a fatal load error.
func Open(leftPath, rightPath string) (*Store, error) {
	s := &Store{paths: [2]string{leftPath, rightPath}}
	for cam, path := range s.paths {
		table, err := load(path)
		if err != nil {
			return nil, fmt.Errorf("load %s camera locations: %w", stage.Camera(cam), err)
		}
		s.tables[cam] = table
	}
	return s, nil
}

// Table returns a copy of the camera's location table.
func (s *Store) Table(cam stage.Camera) Table {
	return s.tables[cam]
}

// Get returns the coordinate stored at index for the camera.
func (s *Store) Get(cam stage.Camera, index int) (stage.Coordinate, error) {
	if index < 0 || index >= stage.Slots {
		return stage.Coordinate{}, fmt.Errorf("location index must be between 0 and %d, got %d", stage.Slots-1, index)
	}
	return s.tables[cam][index], nil
}

// SetEntry replaces the coordinate at index for the camera and immediately
// re-persists the camera's table.
func (s *Store) SetEntry(cam stage.Camera, index int, c stage.Coordinate) error {
	if index < 0 || index >= stage.Slots {
		return fmt.Errorf("location index must be between 0 and %d, got %d", stage.Slots-1, index)
	}
	if err := c.Validate(); err != nil {
		return err
	}
	s.tables[cam][index] = c
	debug.Verbose("Set %s camera location %d to %v", cam, index+1, c)
	return s.Save(cam)
}

// Save rewrites the camera's location file: for each of the 12 entries the
// row command line then the column command line, CRLF-terminated. This is a
// full-file rewrite, not an append, and is not atomic.
func (s *Store) Save(cam stage.Camera) error {
	var b strings.Builder
	for _, c := range s.tables[cam] {
		row, col := stage.EncodeMove(c)
		b.Write(stage.Frame(row))
		b.Write(stage.Frame(col))
	}
	path := s.paths[cam]
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("save %s camera locations: %w", cam, err)
	}
	debug.Verbose("Saved %s camera locations to %s", cam, path)
	return nil
}

// load reads a location file into a table. The file is a flat sequence of
// command lines consumed positionally in (row, col) pairs; blank lines are
// filtered before pairing.
func load(path string) (Table, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		debug.Info("Location file %s not found, loading preset locations", path)
		return DefaultTable(), nil
	}
	if err != nil {
		return Table{}, err
	}

	var lines []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimRight(line, "\r")
		if line != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) != 2*stage.Slots {
		return Table{}, fmt.Errorf("%w: %s has %d non-empty lines, want %d", ErrCorrupt, path, len(lines), 2*stage.Slots)
	}

	var t Table
	for i := 0; i < stage.Slots; i++ {
		c, err := stage.DecodeDisplay(lines[2*i], lines[2*i+1])
		if err != nil {
			return Table{}, fmt.Errorf("%w: %s entry %d: %v", ErrCorrupt, path, i+1, err)
		}
		t[i] = c
	}
	return t, nil
}
