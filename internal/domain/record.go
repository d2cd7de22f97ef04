package domain

import "time"

// Record is the canonical unit of telemetry in LuaFlow: one sample taken
// from one asset, carrying an ordered set of named measurements.
type Record struct {
	Asset      string      `json:"asset"`
	Timestamp  time.Time   `json:"ts"`
	Datapoints []Datapoint `json:"readings"`
}

// Datapoint is a single named measurement. Value must be one of float64,
// int, int64, string or bool; anything else cannot cross the script
// boundary and fails marshalling.
type Datapoint struct {
	Name  string `json:"name"`
	Value any    `json:"value"`
}

// RecordBatch is an ordered collection of records moving together through
// the pipeline. A batch has exactly one owner at a time: a transformation
// produces a new batch and the input reference is dropped at the swap
// point.
type RecordBatch struct {
	Records []*Record `json:"records"`
	Origin  string    `json:"origin"`
	Seq     uint64    `json:"seq"`
}

// NewRecord builds a record stamped with the current time.
func NewRecord(asset string, dps ...Datapoint) *Record {
	return &Record{Asset: asset, Timestamp: time.Now().UTC(), Datapoints: dps}
}

// Value returns the measurement with the given name, or nil when absent.
func (r *Record) Value(name string) any {
	for _, dp := range r.Datapoints {
		if dp.Name == name {
			return dp.Value
		}
	}
	return nil
}

// Len returns the number of records in the batch; nil-safe.
func (b *RecordBatch) Len() int {
	if b == nil {
		return 0
	}
	return len(b.Records)
}
