package run

import (
	"fmt"
	"time"

	"github.com/afmlab/xystage/internal/stage"
)

// PerSampleOverhead is the estimated time already spent photographing one
// sample when computing the next inter-cycle wait.
const PerSampleOverhead = 25 * time.Second

// Timing groups the fixed delays of the run loop. Tests shrink these to
// microseconds; production uses DefaultTiming.
type Timing struct {
	RowSettle time.Duration // pause after the row (Y) move command
	ColSettle time.Duration // pause after the column (X) move command
	CycleTick time.Duration // fixed scheduling tick between cycles
}

// DefaultTiming returns the stage settle delays and scheduling tick used
// against real hardware.
func DefaultTiming() Timing {
	return Timing{
		RowSettle: 500 * time.Millisecond,
		ColSettle: 1 * time.Second,
		CycleTick: 1 * time.Second,
	}
}

// Config selects which carrier slots a run visits.
type Config struct {
	SampleSize int // number of samples per cycle: 4, 6, 8, 10 or 12
	SkipRow    int // 1 shifts both sweeps by one slot to skip carrier row 1
}

// Validate checks the enumerated run parameters.
func (c Config) Validate() error {
	switch c.SampleSize {
	case 4, 6, 8, 10, 12:
	default:
		return fmt.Errorf("sample_size must be one of 4/6/8/10/12, got %d", c.SampleSize)
	}
	if c.SkipRow != 0 && c.SkipRow != 1 {
		return fmt.Errorf("skip_row must be 0 or 1, got %d", c.SkipRow)
	}
	return nil
}

// PhaseConfig sets the fast/slow phase boundary and the revisit interval of
// each phase. Editable only while the scheduler is idle.
type PhaseConfig struct {
	PhaseDurationHours int // elapsed-time threshold between fast and slow phase
	Phase1IntervalMin  int // fast-phase revisit interval, minutes
	Phase2IntervalMin  int // slow-phase revisit interval, minutes
}

// PhaseBound is the inclusive upper limit for every phase parameter.
const PhaseBound = 1000000

// Validate checks the phase parameters against their inclusive bounds.
func (p PhaseConfig) Validate() error {
	check := func(name string, v int) error {
		if v < 0 || v > PhaseBound {
			return fmt.Errorf("%s must be between 0 and %d, got %d", name, PhaseBound, v)
		}
		return nil
	}
	if err := check("phase_duration_hours", p.PhaseDurationHours); err != nil {
		return err
	}
	if err := check("phase1_interval_min", p.Phase1IntervalMin); err != nil {
		return err
	}
	return check("phase2_interval_min", p.Phase2IntervalMin)
}

// Phase names the active revisit interval.
type Phase int

const (
	FastPhase Phase = iota
	SlowPhase
)

func (p Phase) String() string {
	if p == FastPhase {
		return "fast"
	}
	return "slow"
}

// PhaseFor selects the phase for a given elapsed run time.
func PhaseFor(elapsed time.Duration, pc PhaseConfig) Phase {
	if elapsed < time.Duration(pc.PhaseDurationHours)*time.Hour {
		return FastPhase
	}
	return SlowPhase
}

// NextWait computes the inter-cycle wait: the active phase's interval minus
// the capture overhead already spent on this cycle's samples, floored at zero.
func NextWait(elapsed time.Duration, pc PhaseConfig, sampleSize int) time.Duration {
	interval := time.Duration(pc.Phase1IntervalMin) * time.Minute
	if PhaseFor(elapsed, pc) == SlowPhase {
		interval = time.Duration(pc.Phase2IntervalMin) * time.Minute
	}
	wait := interval - time.Duration(sampleSize)*PerSampleOverhead
	if wait < 0 {
		return 0
	}
	return wait
}

// Range is a half-open slot index range [Start, End).
type Range struct {
	Start, End int
}

// Empty reports whether the range visits no slots.
func (r Range) Empty() bool {
	return r.Start >= r.End
}

// Len returns the number of slots the range visits.
func (r Range) Len() int {
	if r.Empty() {
		return 0
	}
	return r.End - r.Start
}

// SweepRanges computes the two index ranges a cycle visits. The first sweep
// covers the front carrier row, the second the back row. A range that would
// leave the 12-slot grid collapses to an empty sweep rather than failing.
func SweepRanges(sampleSize, skipRow int) (first, second Range) {
	cols := sampleSize / 2
	first = clamp(Range{Start: skipRow, End: cols + skipRow})
	second = clamp(Range{Start: stage.Slots - skipRow - cols, End: stage.Slots - skipRow})
	return first, second
}

func clamp(r Range) Range {
	if r.Start < 0 || r.End > stage.Slots || r.Start > r.End {
		return Range{}
	}
	return r
}
