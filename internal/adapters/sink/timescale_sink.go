package sink

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/luaflow/luaflow/internal/domain"
	"github.com/luaflow/luaflow/internal/ports"
)

type TimescaleSink struct {
	db        *sql.DB
	tableName string
}

func NewTimescaleSink(db *sql.DB, table string) *TimescaleSink {
	return &TimescaleSink{db: db, tableName: table}
}

func (t *TimescaleSink) Name() string { return "timescaledb" }

func (t *TimescaleSink) Forward(batch *domain.RecordBatch) error {
	if batch.Len() == 0 {
		return nil
	}

	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(t.tableName)
	b.WriteString(" (asset, ts, origin, seq, readings) VALUES ")

	args := make([]any, 0, batch.Len()*5)
	for i, rec := range batch.Records {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString(fmt.Sprintf("($%d,$%d,$%d,$%d,$%d)",
			len(args)+1, len(args)+2, len(args)+3, len(args)+4, len(args)+5))

		readings := make(map[string]any, len(rec.Datapoints))
		for _, dp := range rec.Datapoints {
			readings[dp.Name] = dp.Value
		}
		vals, err := json.Marshal(readings)
		if err != nil {
			return fmt.Errorf("marshal readings: %w", err)
		}

		args = append(args,
			rec.Asset,
			rec.Timestamp,
			batch.Origin,
			batch.Seq,
			vals,
		)
	}

	b.WriteString(" ON CONFLICT (asset, ts, seq) DO NOTHING")

	_, err := t.db.Exec(b.String(), args...)
	return err
}

var _ ports.BatchSink = (*TimescaleSink)(nil)
