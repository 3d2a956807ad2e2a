// Package run contains the cycle scheduler: the cancellable state machine
// that repeatedly sweeps the stored sample locations, photographs each one,
// and waits out the phase-dependent revisit interval.
package run

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/afmlab/xystage/internal/debug"
	"github.com/afmlab/xystage/internal/hw/camera"
	"github.com/afmlab/xystage/internal/hw/serialport"
	"github.com/afmlab/xystage/internal/locations"
	"github.com/afmlab/xystage/internal/stage"
)

var (
	// ErrAlreadyStarted is returned by Start on a scheduler that is running
	// or has already completed a run. Schedulers are one-shot: construct a
	// fresh instance for each run so no counters leak between runs.
	ErrAlreadyStarted = errors.New("scheduler already started")
	// ErrNotRunning is returned by Stop when no run is in progress.
	ErrNotRunning = errors.New("scheduler not running")
)

// EventKind tags a progress event.
type EventKind int

const (
	RunStarted EventKind = iota
	SampleCaptured
	CycleCompleted
	RunStopped
	RunFailed
)

func (k EventKind) String() string {
	switch k {
	case RunStarted:
		return "started"
	case SampleCaptured:
		return "sample"
	case CycleCompleted:
		return "cycle"
	case RunStopped:
		return "stopped"
	case RunFailed:
		return "failed"
	}
	return "unknown"
}

// Event is a progress notification delivered to the observer. The observer
// is called from the run goroutine and must not block.
type Event struct {
	RunID  string
	Kind   EventKind
	Cycle  int   // cycles completed so far
	Sample int   // sample ordinal within the current cycle
	Phase  Phase // active phase at the time of the event
	Err    error // set for RunFailed
}

// NotifyFunc receives progress events. May be nil.
type NotifyFunc func(Event)

type schedState int

const (
	stateIdle schedState = iota
	stateRunning
	stateStopped
)

// Scheduler drives the run cycles for one camera. It is one-shot:
// Idle -> Running -> stopped, with Stop effective at any suspension point
// (settle delay, inter-cycle wait, scheduling tick, or the zero-length yield
// after each capture). No stage or capture command is issued after a stop is
// observed.
type Scheduler struct {
	store      *locations.Store
	transport  serialport.Transport
	trigger    camera.Trigger
	camera     stage.Camera
	cameraPort int
	timing     Timing
	notify     NotifyFunc

	mu        sync.Mutex
	state     schedState
	cancel    context.CancelFunc
	done      chan struct{}
	runID     string
	cycles    int
	sample    int
	startTime time.Time
}

// New creates an idle scheduler. cam is the camera whose location table the
// run sweeps; port is the capture port identifier passed to the trigger.
func New(store *locations.Store, transport serialport.Transport, trigger camera.Trigger, cam stage.Camera, port int, timing Timing, notify NotifyFunc) *Scheduler {
	return &Scheduler{
		store:      store,
		transport:  transport,
		trigger:    trigger,
		camera:     cam,
		cameraPort: port,
		timing:     timing,
		notify:     notify,
		done:       make(chan struct{}),
	}
}

// Start begins the run. Legal only once, from Idle.
func (s *Scheduler) Start(rc Config, pc PhaseConfig) error {
	if err := rc.Validate(); err != nil {
		return err
	}
	if err := pc.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	if s.state != stateIdle {
		s.mu.Unlock()
		return ErrAlreadyStarted
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.state = stateRunning
	s.cancel = cancel
	s.runID = uuid.NewString()
	s.cycles = 0
	s.sample = 0
	s.startTime = time.Now()
	runID := s.runID
	s.mu.Unlock()

	debug.Section("Starting run cycle")
	debug.Run(rc.SampleSize, rc.SkipRow)
	debug.PrintStruct("Phase config", pc)
	s.emit(Event{RunID: runID, Kind: RunStarted})

	go s.loop(ctx, rc, pc)
	return nil
}

// Stop requests cancellation. The run goroutine observes it at the next
// suspension point; there is no grace period and no further commands are
// issued for the aborted cycle. Stop does not wait; use Done to join.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if s.state != stateRunning {
		s.mu.Unlock()
		return ErrNotRunning
	}
	cancel := s.cancel
	s.mu.Unlock()

	debug.Info("Stop requested")
	cancel()
	return nil
}

// Running reports whether a run is in progress.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == stateRunning
}

// Done is closed when the run goroutine has fully exited.
func (s *Scheduler) Done() <-chan struct{} {
	return s.done
}

// Counters returns the progress counters: completed cycles and the sample
// ordinal within the current cycle.
func (s *Scheduler) Counters() (cycles, sample int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cycles, s.sample
}

func (s *Scheduler) loop(ctx context.Context, rc Config, pc PhaseConfig) {
	defer close(s.done)

	err := s.run(ctx, rc, pc)

	s.mu.Lock()
	s.state = stateStopped
	runID := s.runID
	cycles := s.cycles
	s.mu.Unlock()

	if err != nil && !errors.Is(err, context.Canceled) {
		debug.Error(err)
		s.emit(Event{RunID: runID, Kind: RunFailed, Cycle: cycles, Err: err})
		return
	}
	debug.Info("Run stopped after %d cycles", cycles)
	s.emit(Event{RunID: runID, Kind: RunStopped, Cycle: cycles})
}

func (s *Scheduler) run(ctx context.Context, rc Config, pc PhaseConfig) error {
	first, second := SweepRanges(rc.SampleSize, rc.SkipRow)
	debug.Verbose("Sweep ranges: [%d,%d) and [%d,%d)", first.Start, first.End, second.Start, second.End)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		s.setSample(1)
		cycles, _ := s.Counters()
		debug.Cycle(cycles + 1)

		if err := s.sweep(ctx, first); err != nil {
			return err
		}
		if err := s.sweep(ctx, second); err != nil {
			return err
		}

		// A cycle aborted mid-sweep is not counted.
		if err := ctx.Err(); err != nil {
			return err
		}

		cycle, elapsed := s.completeCycle()
		phase := PhaseFor(elapsed, pc)
		s.emit(Event{RunID: s.id(), Kind: CycleCompleted, Cycle: cycle, Phase: phase})

		wait := NextWait(elapsed, pc, rc.SampleSize)
		debug.Wait(phase.String(), wait.Seconds())
		if err := sleep(ctx, wait); err != nil {
			return err
		}
		if err := sleep(ctx, s.timing.CycleTick); err != nil {
			return err
		}
	}
}

// sweep visits each slot of r in ascending order: move row, settle, move
// column, settle, capture, advance the sample ordinal, yield. The range is
// assumed to lie inside the grid; an empty range is a no-op.
func (s *Scheduler) sweep(ctx context.Context, r Range) error {
	if r.Empty() {
		return nil
	}
	debug.Sweep(s.camera.String(), r.Start, r.End)

	for i := r.Start; i < r.End; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		c, err := s.store.Get(s.camera, i)
		if err != nil {
			return err
		}
		row, col := stage.EncodeMove(c)

		debug.Move(row)
		if _, err := s.transport.Write(stage.Frame(row)); err != nil {
			return fmt.Errorf("transmit row command for slot %d: %w", i+1, err)
		}
		if err := sleep(ctx, s.timing.RowSettle); err != nil {
			return err
		}

		debug.Move(col)
		if _, err := s.transport.Write(stage.Frame(col)); err != nil {
			return fmt.Errorf("transmit col command for slot %d: %w", i+1, err)
		}
		if err := sleep(ctx, s.timing.ColSettle); err != nil {
			return err
		}

		sample := s.sampleOrdinal()
		if err := s.trigger.Capture(sample, s.cameraPort); err != nil {
			return fmt.Errorf("capture sample %d: %w", sample, err)
		}
		cycles, _ := s.Counters()
		s.emit(Event{RunID: s.id(), Kind: SampleCaptured, Cycle: cycles, Sample: sample})
		s.advanceSample()

		// Zero-length yield so a stop lands before the next slot.
		if err := sleep(ctx, 0); err != nil {
			return err
		}
	}
	return nil
}

func (s *Scheduler) emit(ev Event) {
	if s.notify != nil {
		s.notify(ev)
	}
}

func (s *Scheduler) id() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runID
}

func (s *Scheduler) setSample(n int) {
	s.mu.Lock()
	s.sample = n
	s.mu.Unlock()
}

func (s *Scheduler) sampleOrdinal() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sample
}

func (s *Scheduler) advanceSample() {
	s.mu.Lock()
	s.sample++
	s.mu.Unlock()
}

func (s *Scheduler) completeCycle() (cycles int, elapsed time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cycles++
	return s.cycles, time.Since(s.startTime)
}

// sleep suspends until d elapses or ctx is cancelled. A non-positive d is a
// pure cancellation check, the legal zero-length yield of the run loop.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			return nil
		}
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
