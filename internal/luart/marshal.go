package luart

import (
	"fmt"
	"sort"
	"time"

	lua "github.com/yuin/gopher-lua"

	"github.com/luaflow/luaflow/internal/domain"
)

// ToNative converts a record batch into a Lua array of per-record tables
// shaped {asset=<string>, readings={name=value, ...}}. Record order is
// preserved. Any datapoint whose value cannot be represented fails the
// whole conversion; no partial table is returned. The input batch is not
// mutated, and the returned table is transient to the Session.
func ToNative(s *Session, batch *domain.RecordBatch) (*lua.LTable, error) {
	list := s.L.NewTable()
	for _, rec := range batch.Records {
		entry := s.L.NewTable()
		entry.RawSetString("asset", lua.LString(rec.Asset))
		readings := s.L.NewTable()
		for _, dp := range rec.Datapoints {
			lv, err := toLValue(dp.Value)
			if err != nil {
				return nil, fmt.Errorf("asset %q, datapoint %q: %w", rec.Asset, dp.Name, err)
			}
			readings.RawSetString(dp.Name, lv)
		}
		entry.RawSetString("readings", readings)
		list.Append(entry)
	}
	return list, nil
}

// FromNative rebuilds a record batch from a script return value. The value
// must be an array of per-record tables in the ToNative shape; any
// deviation is a marshalling failure, never a partial batch. Reconstructed
// records are stamped with the current time. Datapoints come back sorted
// by name since Lua tables carry no field order.
func FromNative(s *Session, lv lua.LValue, origin string, seq uint64) (*domain.RecordBatch, error) {
	list, ok := lv.(*lua.LTable)
	if !ok {
		return nil, fmt.Errorf("script returned %s, want table", lv.Type())
	}

	out := &domain.RecordBatch{Origin: origin, Seq: seq}
	n := list.Len()
	for i := 1; i <= n; i++ {
		entry, ok := list.RawGetInt(i).(*lua.LTable)
		if !ok {
			return nil, fmt.Errorf("element %d: got %s, want table", i, list.RawGetInt(i).Type())
		}
		asset, ok := entry.RawGetString("asset").(lua.LString)
		if !ok {
			return nil, fmt.Errorf("element %d: asset missing or not a string", i)
		}

		rec := &domain.Record{Asset: string(asset), Timestamp: time.Now().UTC()}
		switch readings := entry.RawGetString("readings").(type) {
		case *lua.LTable:
			dps, err := datapointsFromTable(readings)
			if err != nil {
				return nil, fmt.Errorf("element %d (%s): %w", i, asset, err)
			}
			rec.Datapoints = dps
		case *lua.LNilType:
			// a record with no measurements is still a record
		default:
			return nil, fmt.Errorf("element %d (%s): readings is not a table", i, asset)
		}
		out.Records = append(out.Records, rec)
	}
	return out, nil
}

func datapointsFromTable(tbl *lua.LTable) ([]domain.Datapoint, error) {
	var dps []domain.Datapoint
	var convErr error
	tbl.ForEach(func(k, v lua.LValue) {
		if convErr != nil {
			return
		}
		name, ok := k.(lua.LString)
		if !ok {
			convErr = fmt.Errorf("reading key %s is not a string", k.Type())
			return
		}
		gv, err := fromLValue(v)
		if err != nil {
			convErr = fmt.Errorf("reading %q: %w", string(name), err)
			return
		}
		dps = append(dps, domain.Datapoint{Name: string(name), Value: gv})
	})
	if convErr != nil {
		return nil, convErr
	}
	sort.Slice(dps, func(i, j int) bool { return dps[i].Name < dps[j].Name })
	return dps, nil
}

func toLValue(v any) (lua.LValue, error) {
	switch x := v.(type) {
	case float64:
		return lua.LNumber(x), nil
	case float32:
		return lua.LNumber(x), nil
	case int:
		return lua.LNumber(x), nil
	case int64:
		return lua.LNumber(x), nil
	case string:
		return lua.LString(x), nil
	case bool:
		return lua.LBool(x), nil
	default:
		return nil, fmt.Errorf("unsupported value type %T", v)
	}
}

func fromLValue(v lua.LValue) (any, error) {
	switch x := v.(type) {
	case lua.LNumber:
		return float64(x), nil
	case lua.LString:
		return string(x), nil
	case lua.LBool:
		return bool(x), nil
	default:
		return nil, fmt.Errorf("unsupported script value type %s", v.Type())
	}
}
