package web

import (
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/afmlab/xystage/internal/run"
)

// StatusEvent is a single SSE message: either a log line or a run progress
// notification.
type StatusEvent struct {
	Time   string `json:"t"`
	Level  string `json:"l,omitempty"`
	Msg    string `json:"msg,omitempty"`
	Kind   string `json:"kind,omitempty"`
	RunID  string `json:"run_id,omitempty"`
	Cycle  int    `json:"cycle,omitempty"`
	Sample int    `json:"sample,omitempty"`
	Phase  string `json:"phase,omitempty"`
}

// StatusBroadcaster distributes status messages to multiple SSE clients.
type StatusBroadcaster struct {
	mu      sync.RWMutex
	clients map[chan string]struct{}
}

// NewStatusBroadcaster creates a new broadcaster.
func NewStatusBroadcaster() *StatusBroadcaster {
	return &StatusBroadcaster{
		clients: make(map[chan string]struct{}),
	}
}

// Subscribe returns a channel that receives broadcast messages and a cleanup
// function. The caller must call the returned cleanup when done (e.g. on
// client disconnect).
func (b *StatusBroadcaster) Subscribe() (<-chan string, func()) {
	ch := make(chan string, 64)
	b.mu.Lock()
	b.clients[ch] = struct{}{}
	b.mu.Unlock()

	unsub := func() {
		b.mu.Lock()
		delete(b.clients, ch)
		b.mu.Unlock()
		close(ch)
	}
	return ch, unsub
}

// Broadcast sends a log message to all subscribed clients.
func (b *StatusBroadcaster) Broadcast(level, msg string) {
	b.send(StatusEvent{
		Time:  time.Now().Format(time.RFC3339),
		Level: level,
		Msg:   msg,
	})
}

// BroadcastMsg is a convenience for level "info".
func (b *StatusBroadcaster) BroadcastMsg(msg string) {
	b.Broadcast("info", msg)
}

// BroadcastRunEvent forwards a scheduler progress event to all clients.
func (b *StatusBroadcaster) BroadcastRunEvent(ev run.Event) {
	out := StatusEvent{
		Time:   time.Now().Format(time.RFC3339),
		Kind:   ev.Kind.String(),
		RunID:  ev.RunID,
		Cycle:  ev.Cycle,
		Sample: ev.Sample,
		Phase:  ev.Phase.String(),
	}
	if ev.Err != nil {
		out.Level = "error"
		out.Msg = ev.Err.Error()
	}
	b.send(out)
}

// send marshals and fans out an event. Slow clients may miss messages
// (non-blocking, buffered).
func (b *StatusBroadcaster) send(evt StatusEvent) {
	data, err := json.Marshal(evt)
	if err != nil {
		return
	}
	payload := string(data)

	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.clients {
		select {
		case ch <- payload:
		default:
			// channel full, skip
		}
	}
}

// BroadcastWriter implements io.Writer; each Write broadcasts the content to
// SSE clients. Used to mirror debug output to the web surface.
func BroadcastWriter(b *StatusBroadcaster) *broadcastWriter {
	return &broadcastWriter{b: b}
}

type broadcastWriter struct {
	b *StatusBroadcaster
}

func (w *broadcastWriter) Write(p []byte) (n int, err error) {
	msg := strings.TrimSpace(string(p))
	if msg != "" {
		w.b.BroadcastMsg(msg)
	}
	return len(p), nil
}
