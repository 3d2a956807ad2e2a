package web

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"net/http"
	"strconv"
	"time"

	"github.com/afmlab/xystage/internal/controller"
	"github.com/afmlab/xystage/internal/run"
	"github.com/afmlab/xystage/internal/stage"
	"github.com/afmlab/xystage/internal/validate"
)

// FormConfig holds default values for the run form (from config). Empty form
// fields fall back to these.
type FormConfig struct {
	SampleSize         int `json:"sample_size"`
	SkipRow            int `json:"skip_row"`
	PhaseDurationHours int `json:"phase_duration_hours"`
	Phase1IntervalMin  int `json:"phase1_interval_min"`
	Phase2IntervalMin  int `json:"phase2_interval_min"`
}

// Handlers holds dependencies for HTTP handlers.
type Handlers struct {
	Broadcaster  *StatusBroadcaster
	Controller   *controller.Controller
	FormDefaults FormConfig
	staticFS     fs.FS
}

// NewHandlers creates handlers with the given dependencies.
func NewHandlers(broadcaster *StatusBroadcaster, ctrl *controller.Controller, formDefaults FormConfig, staticFS fs.FS) *Handlers {
	return &Handlers{
		Broadcaster:  broadcaster,
		Controller:   ctrl,
		FormDefaults: formDefaults,
		staticFS:     staticFS,
	}
}

// formInt reads a form field as an integer. The field arrives as free text;
// it is range-checked before conversion. An empty field yields def, which may
// be -1 to mark the field required.
func formInt(r *http.Request, name string, low, high, def int) (int, error) {
	text := r.FormValue(name)
	if !validate.IntInRange(text, low, high) {
		return 0, fmt.Errorf("%s must be an integer between %d and %d", name, low, high)
	}
	if text == "" {
		if def < 0 {
			return 0, fmt.Errorf("%s is required", name)
		}
		return def, nil
	}
	v, err := strconv.Atoi(text)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer", name)
	}
	return v, nil
}

func formCamera(r *http.Request) (stage.Camera, error) {
	return stage.ParseCamera(r.FormValue("camera"))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// HandleConfig returns the run form default values (from config) as JSON.
func (h *Handlers) HandleConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.FormDefaults)
}

// ServeIndex serves the main HTML page (root path only).
func (h *Handlers) ServeIndex(w http.ResponseWriter, r *http.Request) {
	data, err := fs.ReadFile(h.staticFS, "index.html")
	if err != nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(data)
}

// HandleRun handles POST /run to start a run cycle. Fields are form-encoded
// text; empty fields take the config defaults.
func (h *Handlers) HandleRun(w http.ResponseWriter, r *http.Request) {
	sampleSize, err := formInt(r, "sample_size", 4, stage.Slots, h.FormDefaults.SampleSize)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	skipRow, err := formInt(r, "skip_row", 0, 1, h.FormDefaults.SkipRow)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	phaseDuration, err := formInt(r, "phase_duration_hours", 0, run.PhaseBound, h.FormDefaults.PhaseDurationHours)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	phase1, err := formInt(r, "phase1_interval_min", 0, run.PhaseBound, h.FormDefaults.Phase1IntervalMin)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	phase2, err := formInt(r, "phase2_interval_min", 0, run.PhaseBound, h.FormDefaults.Phase2IntervalMin)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	rc := run.Config{SampleSize: sampleSize, SkipRow: skipRow}
	pc := run.PhaseConfig{
		PhaseDurationHours: phaseDuration,
		Phase1IntervalMin:  phase1,
		Phase2IntervalMin:  phase2,
	}
	if err := rc.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	switch err := h.Controller.StartRun(rc, pc); {
	case err == nil:
		h.Broadcaster.BroadcastMsg(fmt.Sprintf("Run started: %d samples, skip row %d", sampleSize, skipRow))
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "started"})
	case err == controller.ErrRunInProgress:
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		http.Error(w, err.Error(), http.StatusBadRequest)
	}
}

// HandleStop handles POST /stop to cancel the active run.
func (h *Handlers) HandleStop(w http.ResponseWriter, r *http.Request) {
	switch err := h.Controller.StopRun(); {
	case err == nil:
		h.Broadcaster.BroadcastMsg("Run stop requested")
		writeJSON(w, http.StatusOK, map[string]string{"status": "stopping"})
	case err == run.ErrNotRunning:
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// HandleStatus handles GET /status: current run state and counters.
func (h *Handlers) HandleStatus(w http.ResponseWriter, r *http.Request) {
	cycles, sample := h.Controller.Counters()
	writeJSON(w, http.StatusOK, map[string]any{
		"running": h.Controller.Running(),
		"cycles":  cycles,
		"sample":  sample,
	})
}

// HandleGoTo handles POST /goto: move the stage to an absolute coordinate.
// Both fields are required.
func (h *Handlers) HandleGoTo(w http.ResponseWriter, r *http.Request) {
	x, err := formInt(r, "x", 0, stage.MaxX, -1)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	y, err := formInt(r, "y", 0, stage.MaxY, -1)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.Controller.GoTo(stage.Coordinate{X: x, Y: y}); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "moved"})
}

// HandleZero handles POST /zero: re-home the stage to its origin.
func (h *Handlers) HandleZero(w http.ResponseWriter, r *http.Request) {
	if err := h.Controller.Zero(); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.Broadcaster.BroadcastMsg("Stage zeroed")
	writeJSON(w, http.StatusOK, map[string]string{"status": "zeroed"})
}

type locationEntry struct {
	Sample int `json:"sample"`
	X      int `json:"x"`
	Y      int `json:"y"`
}

// HandleLocations handles GET /locations?camera=left|right: the stored
// sample location table.
func (h *Handlers) HandleLocations(w http.ResponseWriter, r *http.Request) {
	cam, err := stage.ParseCamera(r.URL.Query().Get("camera"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	table := h.Controller.Locations(cam)
	entries := make([]locationEntry, len(table))
	for i, c := range table {
		entries[i] = locationEntry{Sample: i + 1, X: c.X, Y: c.Y}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"camera":    cam.String(),
		"locations": entries,
	})
}

// HandleSetLocation handles POST /locations: replace one stored coordinate.
// Samples are numbered 1 to 12 on the wire, as on the carrier plate.
func (h *Handlers) HandleSetLocation(w http.ResponseWriter, r *http.Request) {
	cam, err := formCamera(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	sample, err := formInt(r, "sample", 1, stage.Slots, -1)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	x, err := formInt(r, "x", 0, stage.MaxX, -1)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	y, err := formInt(r, "y", 0, stage.MaxY, -1)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.Controller.SetLocation(cam, sample-1, stage.Coordinate{X: x, Y: y}); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.Broadcaster.BroadcastMsg(fmt.Sprintf("Location %d (%s) set to x=%d y=%d", sample, cam, x, y))
	writeJSON(w, http.StatusOK, map[string]string{"status": "saved"})
}

// HandleStatusStream handles GET /status/stream for SSE.
func (h *Handlers) HandleStatusStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // nginx

	ch, unsub := h.Broadcaster.Subscribe()
	defer unsub()

	// Send initial comment to establish connection
	w.Write([]byte(": connected\n\n"))
	flusher.Flush()

	// Heartbeat while idle
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return
			}
			w.Write([]byte("data: " + msg + "\n\n"))
			flusher.Flush()

		case <-ticker.C:
			w.Write([]byte(": heartbeat\n\n"))
			flusher.Flush()

		case <-r.Context().Done():
			return
		}
	}
}
