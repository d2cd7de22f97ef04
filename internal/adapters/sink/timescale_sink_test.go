package sink

import (
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/luaflow/luaflow/internal/domain"
)

func TestTimescaleSinkForward(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	sink := NewTimescaleSink(db, "records")
	ts := time.Now()

	batch := &domain.RecordBatch{
		Origin: "replay",
		Seq:    9,
		Records: []*domain.Record{
			{
				Asset:     "temp1",
				Timestamp: ts,
				Datapoints: []domain.Datapoint{
					{Name: "c", Value: 21.5},
				},
			},
		},
	}

	expectedQuery := regexp.QuoteMeta("INSERT INTO records (asset, ts, origin, seq, readings) VALUES ($1,$2,$3,$4,$5) ON CONFLICT (asset, ts, seq) DO NOTHING")
	mock.ExpectExec(expectedQuery).
		WithArgs("temp1", ts, "replay", uint64(9), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := sink.Forward(batch); err != nil {
		t.Fatalf("forward batch: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestTimescaleSinkForwardEmptyBatch(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	sink := NewTimescaleSink(db, "records")
	if err := sink.Forward(&domain.RecordBatch{}); err != nil {
		t.Fatalf("expected nil error for empty batch, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestTimescaleSinkName(t *testing.T) {
	db, _, _ := sqlmock.New()
	defer db.Close()

	sink := NewTimescaleSink(db, "records")
	if sink.Name() != "timescaledb" {
		t.Fatalf("expected sink name timescaledb, got %s", sink.Name())
	}
}
