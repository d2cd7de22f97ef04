package luaflow

import (
	"path/filepath"
	"sync"

	"github.com/luaflow/luaflow/internal/adapters/observability"
	"github.com/luaflow/luaflow/internal/adapters/tracker"
	"github.com/luaflow/luaflow/internal/app/config"
	"github.com/luaflow/luaflow/internal/app/stage"
	"github.com/luaflow/luaflow/internal/domain"
	"github.com/luaflow/luaflow/internal/luart"
	"github.com/luaflow/luaflow/internal/ports"
)

// Version of the filter plugin.
const Version = "1.0.0"

// PluginInfo is the static metadata the host asks for before constructing
// any stage.
type PluginInfo struct {
	Name          string
	Version       string
	Type          string
	Interface     string
	DefaultConfig string
}

// Info describes the plugin and its default configuration document. The
// document carries the fields the host protocol defines: plugin, enable,
// config and script.
func Info() PluginInfo {
	return PluginInfo{
		Name:          config.PluginName,
		Version:       Version,
		Type:          "filter",
		Interface:     "1.0.0",
		DefaultConfig: config.DefaultCategory,
	}
}

// Option customizes the collaborators a stage is built with.
type Option func(*options)

type options struct {
	runtime *luart.Runtime
	tracker ports.AssetTracker
	obs     ports.Observability
	dataDir string
}

// WithRuntime substitutes the process-wide interpreter runtime, mainly so
// tests can use an isolated instance.
func WithRuntime(rt *luart.Runtime) Option {
	return func(o *options) { o.runtime = rt }
}

// WithTracker wires the host's asset-tracking collaborator.
func WithTracker(t ports.AssetTracker) Option {
	return func(o *options) { o.tracker = t }
}

// WithObservability replaces the default Prometheus-backed observability.
func WithObservability(obs ports.Observability) Option {
	return func(o *options) { o.obs = obs }
}

// WithDataDir points the stage at the host data directory; script modules
// are resolved from its scripts/ subdirectory.
func WithDataDir(dir string) Option {
	return func(o *options) { o.dataDir = dir }
}

var (
	defaultObsOnce sync.Once
	defaultObs     *observability.PromObs
)

// DefaultObservability returns the process-wide Prometheus-backed
// observability used when no override is supplied. Lazily constructed so
// hosts that inject their own never register the default collectors.
func DefaultObservability() ports.Observability {
	defaultObsOnce.Do(func() { defaultObs = observability.NewPromObs() })
	return defaultObs
}

// Init builds a stage from a JSON category document and an output sink. It
// returns the opaque handle the host passes to Ingest, Reconfigure and
// Shutdown, or an error that aborts pipeline construction.
func Init(configDoc string, sink ports.BatchSink, opts ...Option) (*Stage, error) {
	cat, err := config.ParseCategory(configDoc)
	if err != nil {
		return nil, err
	}

	o := options{
		runtime: luart.Shared(),
		dataDir: "./data",
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	if o.tracker == nil {
		o.tracker = tracker.LogTracker{}
	}
	if o.obs == nil {
		o.obs = DefaultObservability()
	}

	return stage.New(cat, filepath.Join(o.dataDir, config.ScriptsSubdir), stage.Deps{
		Runtime: o.runtime,
		Sink:    sink,
		Tracker: o.tracker,
		Obs:     o.obs,
	})
}

// Ingest pushes one batch through the stage; some batch always reaches the
// sink.
func Ingest(st *Stage, batch *domain.RecordBatch) {
	st.Ingest(batch)
}

// Reconfigure applies a new category document to a running stage.
func Reconfigure(st *Stage, configDoc string) error {
	return st.Reconfigure(configDoc)
}

// Shutdown releases the stage's script binding and its hold on the
// interpreter runtime.
func Shutdown(st *Stage) error {
	return st.Shutdown()
}
