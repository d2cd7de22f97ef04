package ports

import "github.com/luaflow/luaflow/internal/domain"

// BatchSink is the downstream end of the filter stage: the next element of
// the host pipeline. Ingest always forwards some batch to it, original or
// transformed.
type BatchSink interface {
	Forward(batch *domain.RecordBatch) error
	Name() string
}
