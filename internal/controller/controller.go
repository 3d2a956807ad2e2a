// Package controller ties the location store, the stage transport, the
// capture trigger and the current run scheduler together under one owner.
// The presentation layer only ever talks to the Controller and subscribes
// to its progress events; it never reaches into scheduler internals.
package controller

import (
	"errors"
	"fmt"
	"sync"

	"github.com/afmlab/xystage/internal/debug"
	"github.com/afmlab/xystage/internal/hw/camera"
	"github.com/afmlab/xystage/internal/hw/serialport"
	"github.com/afmlab/xystage/internal/locations"
	"github.com/afmlab/xystage/internal/run"
	"github.com/afmlab/xystage/internal/stage"
)

// ErrRunInProgress is returned by StartRun while a run is active.
var ErrRunInProgress = errors.New("a run is already in progress")

// Controller owns the long-lived stage resources and the per-run scheduler.
// A fresh scheduler instance is constructed for every run start, so counters
// can never leak from a previous run.
type Controller struct {
	store      *locations.Store
	transport  serialport.Transport
	trigger    camera.Trigger
	cameraPort int
	timing     run.Timing
	notify     run.NotifyFunc

	mu    sync.Mutex
	sched *run.Scheduler
}

// New creates a controller. notify receives progress events from every run
// started through this controller; it may be nil.
func New(store *locations.Store, transport serialport.Transport, trigger camera.Trigger, cameraPort int, timing run.Timing, notify run.NotifyFunc) *Controller {
	return &Controller{
		store:      store,
		transport:  transport,
		trigger:    trigger,
		cameraPort: cameraPort,
		timing:     timing,
		notify:     notify,
	}
}

// StartRun builds a fresh scheduler and starts the run cycle. The run always
// sweeps the Right camera's table, matching the stage's sample carrier
// orientation.
func (c *Controller) StartRun(rc run.Config, pc run.PhaseConfig) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sched != nil && c.sched.Running() {
		return ErrRunInProgress
	}

	s := run.New(c.store, c.transport, c.trigger, stage.Right, c.cameraPort, c.timing, c.notify)
	if err := s.Start(rc, pc); err != nil {
		return err
	}
	c.sched = s
	return nil
}

// StopRun cancels the active run at its next suspension point.
func (c *Controller) StopRun() error {
	c.mu.Lock()
	sched := c.sched
	c.mu.Unlock()
	if sched == nil {
		return run.ErrNotRunning
	}
	return sched.Stop()
}

// Running reports whether a run is in progress.
func (c *Controller) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sched != nil && c.sched.Running()
}

// Done returns a channel closed once the current run's goroutine has exited.
// With no run ever started it returns an already-closed channel.
func (c *Controller) Done() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sched == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return c.sched.Done()
}

// Counters returns the progress counters of the current (or last) run.
func (c *Controller) Counters() (cycles, sample int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sched == nil {
		return 0, 0
	}
	return c.sched.Counters()
}

// GoTo transmits the move command pair for a coordinate. Fire-and-forget:
// the stage sends no acknowledgement.
func (c *Controller) GoTo(coord stage.Coordinate) error {
	if err := coord.Validate(); err != nil {
		return err
	}
	row, col := stage.EncodeMove(coord)
	debug.Move(row)
	if _, err := c.transport.Write(stage.Frame(row)); err != nil {
		return fmt.Errorf("transmit row command: %w", err)
	}
	debug.Move(col)
	if _, err := c.transport.Write(stage.Frame(col)); err != nil {
		return fmt.Errorf("transmit col command: %w", err)
	}
	return nil
}

// Zero transmits the stage zeroing command.
func (c *Controller) Zero() error {
	debug.Live("Zeroing stage")
	if _, err := c.transport.Write(stage.EncodeZero()); err != nil {
		return fmt.Errorf("transmit zero command: %w", err)
	}
	return nil
}

// Locations returns a copy of the camera's location table.
func (c *Controller) Locations(cam stage.Camera) locations.Table {
	return c.store.Table(cam)
}

// Location returns one stored coordinate.
func (c *Controller) Location(cam stage.Camera, index int) (stage.Coordinate, error) {
	return c.store.Get(cam, index)
}

// SetLocation replaces one stored coordinate and persists the table.
func (c *Controller) SetLocation(cam stage.Camera, index int, coord stage.Coordinate) error {
	return c.store.SetEntry(cam, index, coord)
}
