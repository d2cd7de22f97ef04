package luaflow

import (
	base "github.com/luaflow/luaflow/pkg/luaflow"
)

// Re-exported errors for convenience.
var ErrChannelSinkClosed = base.ErrChannelSinkClosed

// Type aliases so consumers can import github.com/luaflow/luaflow directly.
type (
	PluginInfo    = base.PluginInfo
	Option        = base.Option
	Stage         = base.Stage
	State         = base.State
	Record        = base.Record
	Datapoint     = base.Datapoint
	RecordBatch   = base.RecordBatch
	BatchSink     = base.BatchSink
	BatchFunc     = base.BatchFunc
	AssetTracker  = base.AssetTracker
	Observability = base.Observability
	Field         = base.Field
	Category      = base.Category
)

// Re-exported lifecycle states.
const (
	StateDisabled   = base.StateDisabled
	StateActive     = base.StateActive
	StateTerminated = base.StateTerminated
)

// Info returns the plugin's static metadata and default configuration.
func Info() PluginInfo { return base.Info() }

// Init builds a filter stage; see pkg/luaflow.Init.
func Init(configDoc string, sink BatchSink, opts ...Option) (*Stage, error) {
	return base.Init(configDoc, sink, opts...)
}

// Ingest pushes a batch through a stage.
func Ingest(st *Stage, batch *RecordBatch) { base.Ingest(st, batch) }

// Reconfigure applies a new category document to a running stage.
func Reconfigure(st *Stage, configDoc string) error { return base.Reconfigure(st, configDoc) }

// Shutdown releases the stage's resources.
func Shutdown(st *Stage) error { return base.Shutdown(st) }

// Stage construction options.
var (
	WithTracker       = base.WithTracker
	WithObservability = base.WithObservability
	WithDataDir       = base.WithDataDir
)

// Sink adapters and constructors.
var (
	NewCallbackSink = base.NewCallbackSink
	NewChannelSink  = base.NewChannelSink
	NewRecord       = base.NewRecord
)

// ParseCategory parses a JSON category document.
func ParseCategory(doc string) (Category, error) { return base.ParseCategory(doc) }
