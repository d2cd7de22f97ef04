package stage

import (
	"fmt"
	"sync"
	"time"

	"github.com/luaflow/luaflow/internal/app/config"
	"github.com/luaflow/luaflow/internal/domain"
	"github.com/luaflow/luaflow/internal/luart"
	"github.com/luaflow/luaflow/internal/ports"
)

// State tracks where a stage is in its lifecycle.
type State int

const (
	StateUninitialized State = iota
	StateAwaitingScript
	StateDisabled
	StateActive
	StateShuttingDown
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateAwaitingScript:
		return "awaiting-script"
	case StateDisabled:
		return "disabled"
	case StateActive:
		return "active"
	case StateShuttingDown:
		return "shutting-down"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// trackingEvent is the stage-kind label reported with every tracking tuple.
const trackingEvent = "Filter"

// Deps are the collaborators a stage is wired with.
type Deps struct {
	Runtime *luart.Runtime
	Sink    ports.BatchSink
	Tracker ports.AssetTracker
	Obs     ports.Observability
}

// Stage is one filter instance: it owns a script binding into the shared
// interpreter and pushes every ingested batch through it, degrading to
// passthrough whenever the scripted path fails. The stage mutex guards the
// lifecycle fields only; it is never held across an interpreter call, so
// activity checks do not wait on a running script.
type Stage struct {
	mu         sync.Mutex
	state      State
	enabled    bool
	scriptName string
	configBlob string

	category   string
	scriptsDir string
	binding    *luart.Binding

	rt      *luart.Runtime
	sink    ports.BatchSink
	tracker ports.AssetTracker
	obs     ports.Observability
}

// New builds and configures a stage from a parsed category document.
//
// A missing script name or a script that fails to load leaves the stage
// permanently disabled but construction still succeeds: the stage forwards
// everything untouched. Only an unavailable runtime or a failing
// configuration entry point abort construction.
func New(cat config.Category, scriptsDir string, deps Deps) (*Stage, error) {
	if deps.Runtime == nil || deps.Sink == nil || deps.Tracker == nil || deps.Obs == nil {
		return nil, fmt.Errorf("stage %q: missing dependencies", cat.Name)
	}

	st := &Stage{
		state:      StateUninitialized,
		enabled:    cat.Enable,
		scriptName: cat.Script,
		configBlob: cat.Config,
		category:   cat.Name,
		scriptsDir: scriptsDir,
		rt:         deps.Runtime,
		sink:       deps.Sink,
		tracker:    deps.Tracker,
		obs:        deps.Obs,
	}

	if err := st.rt.Acquire(); err != nil {
		return nil, fmt.Errorf("stage %q: embedded runtime unavailable: %w", st.category, err)
	}
	st.obs.SetGauge("luaflow_runtime_refs", float64(st.rt.Refs()))
	st.state = StateAwaitingScript

	if st.scriptName == "" {
		st.disable("no script module configured")
		return st, nil
	}

	s, err := st.rt.Enter()
	if err != nil {
		st.rt.Release()
		return nil, fmt.Errorf("stage %q: %w", st.category, err)
	}
	defer s.Exit()

	binding, err := luart.ResolveBinding(s, scriptsDir, st.scriptName)
	if err != nil {
		st.obs.LogError("script_load_failed", err,
			ports.Field{Key: "stage", Value: st.category},
			ports.Field{Key: "script", Value: st.scriptName})
		st.disable("script load failed")
		return st, nil
	}

	if err := binding.CallConfigure(s, st.configBlob); err != nil {
		binding.Release(s)
		s.Exit()
		st.rt.Release()
		st.state = StateTerminated
		return nil, fmt.Errorf("stage %q: script %q configuration failed: %w", st.category, st.scriptName, err)
	}

	st.binding = binding
	st.state = StateActive
	st.obs.LogInfo("script_bound",
		ports.Field{Key: "stage", Value: st.category},
		ports.Field{Key: "script", Value: st.scriptName})
	return st, nil
}

// Ingest pushes one batch through the stage. Some batch — the scripted
// result or, on any failure, the untouched input — is always forwarded to
// the sink; data is never dropped here. Forwarding and asset tracking
// happen outside the execution lock.
func (st *Stage) Ingest(batch *domain.RecordBatch) {
	st.mu.Lock()
	active := st.enabled && st.binding != nil
	binding := st.binding
	st.mu.Unlock()

	if !active {
		st.forward(batch)
		return
	}

	start := time.Now()
	out := st.applyScript(binding, batch)
	st.obs.ObserveLatency("luaflow_script_latency_seconds", time.Since(start).Seconds())
	st.forward(out)
}

// applyScript runs the batch through the script under the execution lock.
// It returns the input batch unchanged on any marshalling or invocation
// failure.
func (st *Stage) applyScript(binding *luart.Binding, batch *domain.RecordBatch) *domain.RecordBatch {
	s, err := st.rt.Enter()
	if err != nil {
		st.logPassthrough("runtime_unavailable", err)
		return batch
	}
	defer s.Exit()

	native, err := luart.ToNative(s, batch)
	if err != nil {
		st.logPassthrough("marshal_failed", err)
		return batch
	}

	ret, err := binding.CallFilter(s, native)
	if err != nil {
		st.logPassthrough("filter_call_failed", err)
		return batch
	}

	filtered, err := luart.FromNative(s, ret, batch.Origin, batch.Seq)
	if err != nil {
		st.logPassthrough("result_unmarshal_failed", err)
		return batch
	}

	st.obs.IncCounter("luaflow_batches_filtered_total", 1)
	return filtered
}

// Reconfigure re-invokes the script's configuration entry point with the
// new document. On a stage without a binding it is a no-op toward the
// interpreter; a failing configuration call leaves the previous
// configuration in effect and is reported, not fatal.
func (st *Stage) Reconfigure(doc string) error {
	cat, err := config.ParseCategory(doc)
	if err != nil {
		st.obs.LogError("reconfigure_invalid_document", err,
			ports.Field{Key: "stage", Value: st.category})
		return err
	}

	st.mu.Lock()
	binding := st.binding
	if binding == nil {
		st.mu.Unlock()
		st.obs.LogInfo("reconfigure_ignored",
			ports.Field{Key: "stage", Value: st.category},
			ports.Field{Key: "reason", Value: "stage disabled"})
		return nil
	}
	if cat.Script != "" && cat.Script != st.scriptName {
		st.obs.LogError("script_change_requires_restart", nil,
			ports.Field{Key: "stage", Value: st.category},
			ports.Field{Key: "script", Value: cat.Script})
	}
	prevEnabled, prevBlob := st.enabled, st.configBlob
	st.enabled = cat.Enable
	st.configBlob = cat.Config
	st.mu.Unlock()

	s, err := st.rt.Enter()
	if err != nil {
		st.restore(prevEnabled, prevBlob)
		return fmt.Errorf("stage %q: %w", st.category, err)
	}
	defer s.Exit()

	if err := binding.CallConfigure(s, cat.Config); err != nil {
		st.restore(prevEnabled, prevBlob)
		st.obs.LogError("reconfigure_script_failed", err,
			ports.Field{Key: "stage", Value: st.category},
			ports.Field{Key: "script", Value: st.scriptName})
		return fmt.Errorf("stage %q: %w", st.category, err)
	}
	return nil
}

// Shutdown releases the script binding under the execution lock, then the
// runtime handle. It is safe after an init that never bound a script, and
// idempotent.
func (st *Stage) Shutdown() error {
	st.mu.Lock()
	if st.state == StateShuttingDown || st.state == StateTerminated {
		st.mu.Unlock()
		return nil
	}
	st.state = StateShuttingDown
	binding := st.binding
	st.binding = nil
	st.enabled = false
	st.mu.Unlock()

	if binding != nil {
		s, err := st.rt.Enter()
		if err != nil {
			return fmt.Errorf("stage %q: %w", st.category, err)
		}
		binding.Release(s)
		s.Exit()
	}

	st.rt.Release()
	st.obs.SetGauge("luaflow_runtime_refs", float64(st.rt.Refs()))

	st.mu.Lock()
	st.state = StateTerminated
	st.mu.Unlock()
	return nil
}

// State reports the current lifecycle state.
func (st *Stage) State() State {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.state
}

// Enabled reports whether ingested batches currently reach the script.
func (st *Stage) Enabled() bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.enabled && st.binding != nil
}

// Category returns the configuration category name the stage was built for.
func (st *Stage) Category() string { return st.category }

func (st *Stage) forward(batch *domain.RecordBatch) {
	for _, rec := range batch.Records {
		st.tracker.AddTrackingTuple(st.category, rec.Asset, trackingEvent)
	}
	if err := st.sink.Forward(batch); err != nil {
		st.obs.LogError("forward_failed", err,
			ports.Field{Key: "stage", Value: st.category},
			ports.Field{Key: "sink", Value: st.sink.Name()})
		return
	}
	st.obs.IncCounter("luaflow_records_forwarded_total", float64(batch.Len()))
}

func (st *Stage) logPassthrough(msg string, err error) {
	st.obs.IncCounter("luaflow_passthrough_total", 1)
	st.obs.LogError(msg, err,
		ports.Field{Key: "stage", Value: st.category},
		ports.Field{Key: "script", Value: st.scriptName},
		ports.Field{Key: "action", Value: "pass unfiltered data onwards"})
}

func (st *Stage) restore(enabled bool, blob string) {
	st.mu.Lock()
	st.enabled = enabled
	st.configBlob = blob
	st.mu.Unlock()
}

func (st *Stage) disable(reason string) {
	st.mu.Lock()
	st.state = StateDisabled
	st.enabled = false
	st.binding = nil
	st.mu.Unlock()
	st.obs.LogInfo("stage_disabled",
		ports.Field{Key: "stage", Value: st.category},
		ports.Field{Key: "script", Value: st.scriptName},
		ports.Field{Key: "reason", Value: reason})
}
