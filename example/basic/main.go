package main

import (
	"log"

	"github.com/luaflow/luaflow"
)

func main() {
	snk := luaflow.NewCallbackSink("stdout", func(batch *luaflow.RecordBatch) error {
		for _, rec := range batch.Records {
			log.Printf("%s %v", rec.Asset, rec.Datapoints)
		}
		return nil
	})

	doc := `{"plugin":"luafilter","enable":true,"script":"scale","config":{"factor":2}}`
	st, err := luaflow.Init(doc, snk, luaflow.WithDataDir("../../data"))
	if err != nil {
		log.Fatalf("init filter stage: %v", err)
	}
	defer luaflow.Shutdown(st)

	batch := &luaflow.RecordBatch{
		Origin: "example",
		Seq:    1,
		Records: []*luaflow.Record{
			luaflow.NewRecord("temp1", luaflow.Datapoint{Name: "c", Value: 21.5}),
			luaflow.NewRecord("temp2", luaflow.Datapoint{Name: "c", Value: 30.0}),
		},
	}
	luaflow.Ingest(st, batch)
}
