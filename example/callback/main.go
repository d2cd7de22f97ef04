package main

import (
	"fmt"
	"log"
	"time"

	"github.com/luaflow/luaflow/pkg/luaflow"
)

func main() {
	callback := func(batch *luaflow.RecordBatch) error {
		for _, rec := range batch.Records {
			fmt.Printf("%s asset=%s seq=%d readings=%v\n",
				rec.Timestamp.Format(time.RFC3339Nano),
				rec.Asset,
				batch.Seq,
				rec.Datapoints,
			)
		}
		return nil
	}

	// The default document describes an inert filter: everything ingested is
	// forwarded untouched until a reconfigure names a script.
	st, err := luaflow.Init(luaflow.Info().DefaultConfig, luaflow.NewCallbackSink("stdout", callback))
	if err != nil {
		log.Fatalf("init filter stage: %v", err)
	}
	defer luaflow.Shutdown(st)

	for seq := uint64(1); seq <= 3; seq++ {
		luaflow.Ingest(st, &luaflow.RecordBatch{
			Origin:  "example",
			Seq:     seq,
			Records: []*luaflow.Record{luaflow.NewRecord("pump1", luaflow.Datapoint{Name: "rpm", Value: 1480.0})},
		})
	}
}
