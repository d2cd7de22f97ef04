package tracker

import (
	"log"
	"sync"

	"github.com/luaflow/luaflow/internal/ports"
)

// Tuple is one asset-tracking report: which category forwarded which asset
// through which stage kind.
type Tuple struct {
	Category string
	Asset    string
	Event    string
}

// MemTracker collects tuples in memory. The default for embedded hosts and
// the double used by the stage tests.
type MemTracker struct {
	mu     sync.Mutex
	tuples []Tuple
}

func NewMemTracker() *MemTracker {
	return &MemTracker{}
}

func (t *MemTracker) AddTrackingTuple(category, asset, event string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.tuples = append(t.tuples, Tuple{Category: category, Asset: asset, Event: event})
}

// Tuples returns a copy of everything reported so far.
func (t *MemTracker) Tuples() []Tuple {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Tuple, len(t.tuples))
	copy(out, t.tuples)
	return out
}

// LogTracker prints each tuple; useful when no tracking service is wired.
type LogTracker struct{}

func (LogTracker) AddTrackingTuple(category, asset, event string) {
	log.Printf("asset tracking: category=%s asset=%s event=%s", category, asset, event)
}

var (
	_ ports.AssetTracker = (*MemTracker)(nil)
	_ ports.AssetTracker = LogTracker{}
)
