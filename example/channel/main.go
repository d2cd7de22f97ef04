package main

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/luaflow/luaflow"
)

func main() {
	snk, batches, closeBatches := luaflow.NewChannelSink("fanout", 32)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		fanoutWorker("ingest", batches)
	}()

	doc := `{"plugin":"luafilter","enable":true,"script":"scale","config":{"factor":10}}`
	st, err := luaflow.Init(doc, snk, luaflow.WithDataDir("../../data"))
	if err != nil {
		log.Fatalf("init filter stage: %v", err)
	}

	for seq := uint64(1); seq <= 5; seq++ {
		luaflow.Ingest(st, &luaflow.RecordBatch{
			Origin:  "example",
			Seq:     seq,
			Records: []*luaflow.Record{luaflow.NewRecord("flow1", luaflow.Datapoint{Name: "l_per_min", Value: 2.5})},
		})
	}

	if err := luaflow.Shutdown(st); err != nil {
		log.Fatalf("shutdown: %v", err)
	}
	closeBatches()
	wg.Wait()
}

func fanoutWorker(name string, batches <-chan *luaflow.RecordBatch) {
	for batch := range batches {
		fmt.Printf("[%s] forwarding %d records at %s\n", name, batch.Len(), time.Now().Format(time.RFC3339))
	}
}
