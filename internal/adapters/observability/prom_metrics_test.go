package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestPromObsMetrics(t *testing.T) {
	origReg := prometheus.DefaultRegisterer
	origGatherer := prometheus.DefaultGatherer
	t.Cleanup(func() {
		prometheus.DefaultRegisterer = origReg
		prometheus.DefaultGatherer = origGatherer
	})

	reg := prometheus.NewRegistry()
	prometheus.DefaultRegisterer = reg
	prometheus.DefaultGatherer = reg

	obs := NewPromObs()

	obs.IncCounter("luaflow_records_forwarded_total", 5)
	if got := testutil.ToFloat64(obs.counters["luaflow_records_forwarded_total"]); got != 5 {
		t.Fatalf("expected forwarded counter 5, got %f", got)
	}

	obs.IncCounter("luaflow_passthrough_total", 2)
	if got := testutil.ToFloat64(obs.counters["luaflow_passthrough_total"]); got != 2 {
		t.Fatalf("expected passthrough counter 2, got %f", got)
	}

	obs.IncCounter("luaflow_batches_filtered_total", 1)
	if got := testutil.ToFloat64(obs.counters["luaflow_batches_filtered_total"]); got != 1 {
		t.Fatalf("expected filtered counter 1, got %f", got)
	}

	obs.SetGauge("luaflow_runtime_refs", 3)
	if got := testutil.ToFloat64(obs.gauges["luaflow_runtime_refs"]); got != 3 {
		t.Fatalf("expected refs gauge 3, got %f", got)
	}

	obs.ObserveLatency("luaflow_script_latency_seconds", 0.002)
	hCollector := obs.histos["luaflow_script_latency_seconds"].(prometheus.Collector)
	if samples := testutil.CollectAndCount(hCollector); samples != 1 {
		t.Fatalf("expected latency histogram to record 1 sample, got %d", samples)
	}

	// Unknown names are ignored rather than panicking.
	obs.IncCounter("luaflow_unknown_total", 1)
	obs.SetGauge("luaflow_unknown", 1)
	obs.ObserveLatency("luaflow_unknown_seconds", 1)
}
