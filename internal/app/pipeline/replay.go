package pipeline

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"

	"github.com/luaflow/luaflow/internal/app/stage"
	"github.com/luaflow/luaflow/internal/domain"
	"github.com/luaflow/luaflow/internal/ports"
)

// RunReplay feeds newline-delimited JSON record batches from r through the
// stage. Malformed lines are logged and skipped; everything parseable is
// ingested. Returns the number of batches pushed.
func RunReplay(r io.Reader, st *stage.Stage, obs ports.Observability) (int, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4<<20)

	var (
		batches int
		seq     uint64
	)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var batch domain.RecordBatch
		if err := json.Unmarshal(line, &batch); err != nil {
			obs.LogError("replay_bad_batch", err,
				ports.Field{Key: "stage", Value: st.Category()})
			continue
		}

		seq++
		if batch.Seq == 0 {
			batch.Seq = seq
		}
		if batch.Origin == "" {
			batch.Origin = "replay"
		}

		st.Ingest(&batch)
		batches++
	}
	return batches, scanner.Err()
}
