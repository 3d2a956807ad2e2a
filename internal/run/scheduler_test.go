package run

import (
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/afmlab/xystage/internal/hw/serialport"
	"github.com/afmlab/xystage/internal/locations"
	"github.com/afmlab/xystage/internal/stage"
)

func testTiming() Timing {
	return Timing{
		RowSettle: time.Microsecond,
		ColSettle: time.Microsecond,
		CycleTick: time.Microsecond,
	}
}

func testStore(t *testing.T) *locations.Store {
	t.Helper()
	dir := t.TempDir()
	s, err := locations.Open(filepath.Join(dir, "left.txt"), filepath.Join(dir, "right.txt"))
	require.NoError(t, err)
	return s
}

// recordingTrigger records captured sample ordinals and can be told to stop
// the scheduler or fail after a given capture.
type recordingTrigger struct {
	mu        sync.Mutex
	samples   []int
	port      int
	stopAfter int // stop the scheduler after this many captures (0 = never)
	failAfter int // fail on the capture after this many successes (0 = never)
	sched     *Scheduler
}

func (r *recordingTrigger) Capture(sample, port int) error {
	r.mu.Lock()
	if r.failAfter > 0 && len(r.samples) >= r.failAfter {
		r.mu.Unlock()
		return errors.New("shutter jammed")
	}
	r.samples = append(r.samples, sample)
	r.port = port
	n := len(r.samples)
	sched := r.sched
	stopAt := r.stopAfter
	r.mu.Unlock()

	if stopAt > 0 && n == stopAt && sched != nil {
		_ = sched.Stop()
	}
	return nil
}

func (r *recordingTrigger) captured() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]int, len(r.samples))
	copy(out, r.samples)
	return out
}

// eventLog collects scheduler events.
type eventLog struct {
	mu     sync.Mutex
	events []Event
	cycle  chan Event
}

func newEventLog() *eventLog {
	return &eventLog{cycle: make(chan Event, 64)}
}

func (l *eventLog) notify(ev Event) {
	l.mu.Lock()
	l.events = append(l.events, ev)
	l.mu.Unlock()
	if ev.Kind == CycleCompleted {
		select {
		case l.cycle <- ev:
		default:
		}
	}
}

func (l *eventLog) kinds() []EventKind {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]EventKind, len(l.events))
	for i, ev := range l.events {
		out[i] = ev.Kind
	}
	return out
}

func waitDone(t *testing.T, s *Scheduler) {
	t.Helper()
	select {
	case <-s.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler did not stop in time")
	}
}

func TestScheduler_OneCycle(t *testing.T) {
	store := testStore(t)
	port := &serialport.Mock{}
	trig := &recordingTrigger{}
	events := newEventLog()

	// Slow phase from the start with a long interval, so the scheduler
	// parks in the inter-cycle wait after the first cycle.
	s := New(store, port, trig, stage.Right, 3, testTiming(), events.notify)
	require.NoError(t, s.Start(
		Config{SampleSize: 8, SkipRow: 0},
		PhaseConfig{PhaseDurationHours: 0, Phase1IntervalMin: 0, Phase2IntervalMin: PhaseBound},
	))

	select {
	case ev := <-events.cycle:
		assert.Equal(t, 1, ev.Cycle)
		assert.Equal(t, SlowPhase, ev.Phase)
		assert.NotEmpty(t, ev.RunID)
	case <-time.After(5 * time.Second):
		t.Fatal("no cycle completed")
	}

	require.NoError(t, s.Stop())
	waitDone(t, s)

	// 8 samples visited: slots [0,4) then [4,8), ordinals 1..8.
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6, 7, 8}, trig.captured())
	assert.Equal(t, 3, trig.port)

	// Each slot gets a row command then a col command, CRLF-framed.
	writes := port.Writes()
	require.Len(t, writes, 16)
	table := store.Table(stage.Right)
	for i := 0; i < 8; i++ {
		row, col := stage.EncodeMove(table[i])
		assert.Equal(t, string(stage.Frame(row)), string(writes[2*i]), "slot %d row", i)
		assert.Equal(t, string(stage.Frame(col)), string(writes[2*i+1]), "slot %d col", i)
	}

	cycles, _ := s.Counters()
	assert.Equal(t, 1, cycles)
}

func TestScheduler_SkipRowRanges(t *testing.T) {
	store := testStore(t)
	port := &serialport.Mock{}
	trig := &recordingTrigger{}
	events := newEventLog()

	s := New(store, port, trig, stage.Right, 0, testTiming(), events.notify)
	require.NoError(t, s.Start(
		Config{SampleSize: 4, SkipRow: 1},
		PhaseConfig{PhaseDurationHours: 0, Phase2IntervalMin: PhaseBound},
	))

	select {
	case <-events.cycle:
	case <-time.After(5 * time.Second):
		t.Fatal("no cycle completed")
	}
	require.NoError(t, s.Stop())
	waitDone(t, s)

	// Sweeps [1,3) and [7,9): slots 2,3 then 8,9 of the carrier.
	table := store.Table(stage.Right)
	var wantWrites []string
	for _, i := range []int{1, 2, 7, 8} {
		row, col := stage.EncodeMove(table[i])
		wantWrites = append(wantWrites, string(stage.Frame(row)), string(stage.Frame(col)))
	}
	var gotWrites []string
	for _, w := range port.Writes() {
		gotWrites = append(gotWrites, string(w))
	}
	assert.Equal(t, wantWrites, gotWrites)
	assert.Equal(t, []int{1, 2, 3, 4}, trig.captured())
}

func TestScheduler_SampleOrdinalResetsEachCycle(t *testing.T) {
	store := testStore(t)
	port := &serialport.Mock{}
	trig := &recordingTrigger{}
	events := newEventLog()

	// Zero intervals: cycles free-run with only the scheduling tick between.
	s := New(store, port, trig, stage.Right, 0, testTiming(), events.notify)
	require.NoError(t, s.Start(Config{SampleSize: 4, SkipRow: 0}, PhaseConfig{}))

	for i := 0; i < 2; i++ {
		select {
		case <-events.cycle:
		case <-time.After(5 * time.Second):
			t.Fatal("cycles did not complete")
		}
	}
	require.NoError(t, s.Stop())
	waitDone(t, s)

	got := trig.captured()
	require.GreaterOrEqual(t, len(got), 8)
	assert.Equal(t, []int{1, 2, 3, 4, 1, 2, 3, 4}, got[:8])
}

func TestScheduler_StopMidSweep(t *testing.T) {
	store := testStore(t)
	port := &serialport.Mock{}
	trig := &recordingTrigger{stopAfter: 2}
	events := newEventLog()

	s := New(store, port, trig, stage.Right, 0, testTiming(), events.notify)
	trig.sched = s
	require.NoError(t, s.Start(Config{SampleSize: 8, SkipRow: 0}, PhaseConfig{}))
	waitDone(t, s)

	// Stop landed at the yield after the second capture: exactly two
	// command pairs were transmitted and no further captures happened.
	assert.Equal(t, []int{1, 2}, trig.captured())
	assert.Len(t, port.Writes(), 4)

	// The aborted cycle is not counted.
	cycles, _ := s.Counters()
	assert.Equal(t, 0, cycles)

	kinds := events.kinds()
	require.NotEmpty(t, kinds)
	assert.Equal(t, RunStopped, kinds[len(kinds)-1])
	assert.False(t, s.Running())
}

func TestScheduler_TransportFailureEndsRun(t *testing.T) {
	store := testStore(t)
	port := &serialport.Mock{}
	port.FailWith(errors.New("stage unplugged"))
	trig := &recordingTrigger{}
	events := newEventLog()

	s := New(store, port, trig, stage.Right, 0, testTiming(), events.notify)
	require.NoError(t, s.Start(Config{SampleSize: 4, SkipRow: 0}, PhaseConfig{}))
	waitDone(t, s)

	assert.Empty(t, trig.captured())
	assert.False(t, s.Running())

	kinds := events.kinds()
	require.NotEmpty(t, kinds)
	assert.Equal(t, RunFailed, kinds[len(kinds)-1])
}

func TestScheduler_CaptureFailureEndsRun(t *testing.T) {
	store := testStore(t)
	port := &serialport.Mock{}
	trig := &recordingTrigger{failAfter: 1}
	events := newEventLog()

	s := New(store, port, trig, stage.Right, 0, testTiming(), events.notify)
	require.NoError(t, s.Start(Config{SampleSize: 4, SkipRow: 0}, PhaseConfig{}))
	waitDone(t, s)

	assert.Equal(t, []int{1}, trig.captured())
	kinds := events.kinds()
	require.NotEmpty(t, kinds)
	assert.Equal(t, RunFailed, kinds[len(kinds)-1])
}

func TestScheduler_StartValidation(t *testing.T) {
	store := testStore(t)
	s := New(store, &serialport.Mock{}, &recordingTrigger{}, stage.Right, 0, testTiming(), nil)

	assert.Error(t, s.Start(Config{SampleSize: 5}, PhaseConfig{}))
	assert.Error(t, s.Start(Config{SampleSize: 4, SkipRow: 3}, PhaseConfig{}))
	assert.Error(t, s.Start(Config{SampleSize: 4}, PhaseConfig{Phase1IntervalMin: -1}))
	assert.False(t, s.Running())
}

func TestScheduler_OneShot(t *testing.T) {
	store := testStore(t)
	trig := &recordingTrigger{}
	s := New(store, &serialport.Mock{}, trig, stage.Right, 0, testTiming(), nil)

	require.NoError(t, s.Start(Config{SampleSize: 4}, PhaseConfig{Phase2IntervalMin: PhaseBound}))
	// Second start while running is rejected.
	assert.ErrorIs(t, s.Start(Config{SampleSize: 4}, PhaseConfig{}), ErrAlreadyStarted)

	require.NoError(t, s.Stop())
	waitDone(t, s)

	// A stopped scheduler cannot be restarted; a fresh instance is required.
	assert.ErrorIs(t, s.Start(Config{SampleSize: 4}, PhaseConfig{}), ErrAlreadyStarted)
	assert.ErrorIs(t, s.Stop(), ErrNotRunning)
}

func TestScheduler_StopWhenIdle(t *testing.T) {
	store := testStore(t)
	s := New(store, &serialport.Mock{}, &recordingTrigger{}, stage.Right, 0, testTiming(), nil)
	assert.ErrorIs(t, s.Stop(), ErrNotRunning)
}
