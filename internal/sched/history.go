package sched

import (
	"sync"

	"github.com/gammazero/deque"
)

// History keeps the most recent events in memory.
type History struct {
	mu     sync.Mutex
	limit  int
	ticks  bool
	events deque.Deque[StatusEvent]
}

// NewHistory keeps at most limit events. Tick events are dropped unless
// withTicks is set.
func NewHistory(limit int, withTicks bool) *History {
	if limit <= 0 {
		limit = 1
	}
	return &History{limit: limit, ticks: withTicks}
}

func (h *History) Emit(ev StatusEvent) {
	if ev.Kind == StatusTick && !h.ticks {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	h.events.PushBack(ev)
	for h.events.Len() > h.limit {
		h.events.PopFront()
	}
}

// Events returns the retained events, oldest first.
func (h *History) Events() []StatusEvent {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]StatusEvent, h.events.Len())
	for i := range out {
		out[i] = h.events.At(i)
	}
	return out
}

// Count returns how many retained events are of the given kind.
func (h *History) Count(kind StatusKind) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	n := 0
	for i := 0; i < h.events.Len(); i++ {
		if h.events.At(i).Kind == kind {
			n++
		}
	}
	return n
}

// Len returns the number of retained events.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.events.Len()
}
