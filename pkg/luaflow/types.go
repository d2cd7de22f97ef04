package luaflow

import (
	"github.com/luaflow/luaflow/internal/app/config"
	"github.com/luaflow/luaflow/internal/app/stage"
	"github.com/luaflow/luaflow/internal/domain"
	"github.com/luaflow/luaflow/internal/ports"
)

// Record is one telemetry sample: asset identifier plus named measurements.
type Record = domain.Record

// Datapoint is a single named measurement inside a Record.
type Datapoint = domain.Datapoint

// RecordBatch is an ordered collection of records moving together through
// the pipeline.
type RecordBatch = domain.RecordBatch

// NewRecord builds a record stamped with the current time.
var NewRecord = domain.NewRecord

// Stage is the opaque handle returned by Init.
type Stage = stage.Stage

// State is the stage lifecycle state.
type State = stage.State

const (
	StateDisabled   = stage.StateDisabled
	StateActive     = stage.StateActive
	StateTerminated = stage.StateTerminated
)

// BatchSink is the downstream end of the stage.
type BatchSink = ports.BatchSink

// AssetTracker receives one tuple per forwarded record.
type AssetTracker = ports.AssetTracker

// Observability emits metrics and logs for the stage.
type Observability = ports.Observability

// Field is a structured log field used by Observability implementations.
type Field = ports.Field

// Category is the parsed plugin configuration document.
type Category = config.Category

// ParseCategory parses a JSON category document.
func ParseCategory(doc string) (Category, error) {
	return config.ParseCategory(doc)
}
