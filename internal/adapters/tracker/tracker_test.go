package tracker

import (
	"sync"
	"testing"
)

func TestMemTrackerCollectsTuples(t *testing.T) {
	tr := NewMemTracker()

	tr.AddTrackingTuple("cat1", "temp1", "Filter")
	tr.AddTrackingTuple("cat1", "temp2", "Filter")

	tuples := tr.Tuples()
	if len(tuples) != 2 {
		t.Fatalf("expected 2 tuples, got %d", len(tuples))
	}
	if tuples[0] != (Tuple{Category: "cat1", Asset: "temp1", Event: "Filter"}) {
		t.Fatalf("unexpected tuple %+v", tuples[0])
	}

	// Returned slice is a copy.
	tuples[0].Asset = "mutated"
	if tr.Tuples()[0].Asset != "temp1" {
		t.Fatalf("Tuples leaked internal state")
	}
}

func TestMemTrackerConcurrent(t *testing.T) {
	tr := NewMemTracker()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				tr.AddTrackingTuple("cat", "asset", "Filter")
			}
		}()
	}
	wg.Wait()

	if got := len(tr.Tuples()); got != 800 {
		t.Fatalf("expected 800 tuples, got %d", got)
	}
}
