package observability

import (
	"fmt"
	"log"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/luaflow/luaflow/internal/ports"
)

type PromObs struct {
	counters map[string]prometheus.Counter
	gauges   map[string]prometheus.Gauge
	histos   map[string]prometheus.Observer
}

func NewPromObs() *PromObs {
	forwarded := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "luaflow_records_forwarded_total",
		Help: "Total records forwarded to the output sink, filtered or not.",
	})
	filtered := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "luaflow_batches_filtered_total",
		Help: "Batches successfully transformed by the script.",
	})
	passthrough := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "luaflow_passthrough_total",
		Help: "Batches forwarded untouched because marshalling or the script call failed.",
	})
	refsGauge := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "luaflow_runtime_refs",
		Help: "Live stage acquisitions of the embedded interpreter.",
	})
	latency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "luaflow_script_latency_seconds",
		Help:    "Wall time of one scripted filter pass over a batch.",
		Buckets: prometheus.ExponentialBuckets(0.0001, 2, 14),
	})

	prometheus.MustRegister(forwarded, filtered, passthrough, refsGauge, latency)

	return &PromObs{
		counters: map[string]prometheus.Counter{
			"luaflow_records_forwarded_total": forwarded,
			"luaflow_batches_filtered_total":  filtered,
			"luaflow_passthrough_total":       passthrough,
		},
		gauges: map[string]prometheus.Gauge{
			"luaflow_runtime_refs": refsGauge,
		},
		histos: map[string]prometheus.Observer{
			"luaflow_script_latency_seconds": latency,
		},
	}
}

func (p *PromObs) LogInfo(msg string, fields ...ports.Field) {
	log.Printf("INFO: %s%s", msg, formatFields(fields))
}

func (p *PromObs) LogError(msg string, err error, fields ...ports.Field) {
	if err != nil {
		log.Printf("ERROR: %s: %v%s", msg, err, formatFields(fields))
		return
	}
	log.Printf("ERROR: %s%s", msg, formatFields(fields))
}

func (p *PromObs) LogCritical(msg string, err error, fields ...ports.Field) {
	if err != nil {
		log.Printf("CRITICAL: %s: %v%s", msg, err, formatFields(fields))
	}
}

func (p *PromObs) IncCounter(name string, v float64) {
	if c, ok := p.counters[name]; ok {
		c.Add(v)
	}
}

func (p *PromObs) ObserveLatency(name string, seconds float64) {
	if h, ok := p.histos[name]; ok {
		h.Observe(seconds)
	}
}

func (p *PromObs) SetGauge(name string, v float64) {
	if g, ok := p.gauges[name]; ok {
		g.Set(v)
	}
}

func formatFields(fields []ports.Field) string {
	if len(fields) == 0 {
		return ""
	}
	var b strings.Builder
	for _, f := range fields {
		fmt.Fprintf(&b, " %s=%v", f.Key, f.Value)
	}
	return b.String()
}

var _ ports.Observability = (*PromObs)(nil)
