package run

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSweepRanges(t *testing.T) {
	cases := []struct {
		name          string
		sampleSize    int
		skipRow       int
		first, second Range
	}{
		{"8 samples no skip", 8, 0, Range{0, 4}, Range{4, 8}},
		{"4 samples skip row", 4, 1, Range{1, 3}, Range{7, 9}},
		{"4 samples no skip", 4, 0, Range{0, 2}, Range{10, 12}},
		{"12 samples no skip", 12, 0, Range{0, 6}, Range{6, 12}},
		{"12 samples skip row", 12, 1, Range{1, 7}, Range{5, 11}},
		{"6 samples skip row", 6, 1, Range{1, 4}, Range{8, 11}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			first, second := SweepRanges(tc.sampleSize, tc.skipRow)
			assert.Equal(t, tc.first, first)
			assert.Equal(t, tc.second, second)
		})
	}
}

func TestSweepRanges_EightNoSkipCoverage(t *testing.T) {
	first, second := SweepRanges(8, 0)
	visited := map[int]bool{}
	for i := first.Start; i < first.End; i++ {
		visited[i] = true
	}
	for i := second.Start; i < second.End; i++ {
		assert.False(t, visited[i], "slot %d visited twice", i)
		visited[i] = true
	}
	assert.Len(t, visited, 8)
	for i := 8; i < 12; i++ {
		assert.False(t, visited[i], "slot %d should not be visited", i)
	}
}

func TestSweepRanges_InvalidCollapsesToEmpty(t *testing.T) {
	// Out-of-grid arithmetic must yield empty sweeps, never panics or
	// out-of-range indices.
	first, second := SweepRanges(26, 0)
	assert.True(t, first.Empty())
	assert.True(t, second.Empty())

	first, second = SweepRanges(24, 1)
	assert.True(t, first.Empty())
	assert.True(t, second.Empty())
}

func TestRangeLen(t *testing.T) {
	assert.Equal(t, 0, Range{}.Len())
	assert.Equal(t, 0, Range{5, 3}.Len())
	assert.Equal(t, 4, Range{0, 4}.Len())
}

func TestPhaseFor(t *testing.T) {
	pc := PhaseConfig{PhaseDurationHours: 30, Phase1IntervalMin: 5, Phase2IntervalMin: 30}
	assert.Equal(t, FastPhase, PhaseFor(0, pc))
	assert.Equal(t, FastPhase, PhaseFor(29*time.Hour, pc))
	assert.Equal(t, SlowPhase, PhaseFor(30*time.Hour, pc))
	assert.Equal(t, SlowPhase, PhaseFor(31*time.Hour, pc))

	// Zero duration: slow phase from the first cycle.
	pc.PhaseDurationHours = 0
	assert.Equal(t, SlowPhase, PhaseFor(0, pc))

	// Huge duration: always fast phase.
	pc.PhaseDurationHours = PhaseBound
	assert.Equal(t, FastPhase, PhaseFor(10000*time.Hour, pc))
}

func TestNextWait(t *testing.T) {
	pc := PhaseConfig{PhaseDurationHours: 30, Phase1IntervalMin: 5, Phase2IntervalMin: 30}

	// Fast phase: 5 min - 4*25s = 200s.
	assert.Equal(t, 200*time.Second, NextWait(0, pc, 4))
	// Slow phase: 30 min - 4*25s = 1700s.
	assert.Equal(t, 1700*time.Second, NextWait(31*time.Hour, pc, 4))
	// Overhead swallows the whole interval: 300s - 12*25s = 0.
	assert.Equal(t, time.Duration(0), NextWait(0, pc, 12))
	// Never negative.
	pc.Phase1IntervalMin = 0
	assert.Equal(t, time.Duration(0), NextWait(0, pc, 4))
}

func TestNextWait_PhaseSwitchMidRun(t *testing.T) {
	pc := PhaseConfig{PhaseDurationHours: 1, Phase1IntervalMin: 5, Phase2IntervalMin: 30}
	before := NextWait(59*time.Minute, pc, 4)
	after := NextWait(61*time.Minute, pc, 4)
	assert.Equal(t, 5*time.Minute-100*time.Second, before)
	assert.Equal(t, 30*time.Minute-100*time.Second, after)
}

func TestConfigValidate(t *testing.T) {
	for _, size := range []int{4, 6, 8, 10, 12} {
		assert.NoError(t, Config{SampleSize: size}.Validate())
	}
	for _, size := range []int{0, 2, 5, 13, -4} {
		assert.Error(t, Config{SampleSize: size}.Validate(), "size %d", size)
	}
	assert.NoError(t, Config{SampleSize: 4, SkipRow: 1}.Validate())
	assert.Error(t, Config{SampleSize: 4, SkipRow: 2}.Validate())
	assert.Error(t, Config{SampleSize: 4, SkipRow: -1}.Validate())
}

func TestPhaseConfigValidate(t *testing.T) {
	assert.NoError(t, PhaseConfig{}.Validate())
	assert.NoError(t, PhaseConfig{PhaseBound, PhaseBound, PhaseBound}.Validate())
	assert.Error(t, PhaseConfig{PhaseDurationHours: -1}.Validate())
	assert.Error(t, PhaseConfig{Phase1IntervalMin: PhaseBound + 1}.Validate())
	assert.Error(t, PhaseConfig{Phase2IntervalMin: -5}.Validate())
}
