package exec

import (
	"github.com/reifydb/reifydb/pkg/column"
	"github.com/reifydb/reifydb/pkg/key"
	"github.com/reifydb/reifydb/pkg/keycode"
	"github.com/reifydb/reifydb/pkg/row"
)

// Scan iterates the full row range of one primitive (table or ring buffer)
// on the MV plane at the transaction's snapshot, decodes rows through the
// primitive's Schema, and yields columnar batches of ctx.batchSize rows.
type Scan struct {
	PrimitiveID uint64
	Schema      row.Schema

	ctx     *ExecutionContext
	rows    [][]any
	cursor  int
	started bool
}

func (s *Scan) Initialize(ctx *ExecutionContext) error {
	s.ctx = ctx
	return nil
}

func (s *Scan) load() error {
	prefix := keycode.PutUint64(nil, s.PrimitiveID)
	r := key.PrefixScan(key.KindRow, prefix)

	entries, err := s.ctx.Reader.Range(r)
	if err != nil {
		return err
	}

	rows := make([][]any, 0, len(entries))
	for _, e := range entries {
		if e.Tombstone {
			continue
		}
		values, err := row.Decode(s.Schema, e.Value)
		if err != nil {
			return err
		}
		rows = append(rows, values)
	}
	s.rows = rows
	s.started = true
	return nil
}

func (s *Scan) Next() (column.Columns, bool, error) {
	if !s.started {
		if err := s.load(); err != nil {
			return column.Columns{}, false, err
		}
	}
	if s.cursor >= len(s.rows) {
		return column.Columns{}, false, nil
	}

	size := s.ctx.batchSize()
	end := s.cursor + size
	if end > len(s.rows) {
		end = len(s.rows)
	}
	batch := rowsToColumns(s.Schema, s.rows[s.cursor:end])
	s.cursor = end
	return batch, true, nil
}

func (s *Scan) Headers() ([]string, bool) {
	names := make([]string, len(s.Schema.Fields))
	for i, f := range s.Schema.Fields {
		names[i] = f.Name
	}
	return names, true
}

func rowsToColumns(schema row.Schema, rows [][]any) column.Columns {
	cols := make([]column.Column, len(schema.Fields))
	for fi, f := range schema.Fields {
		d := column.Undefined(0)
		for _, r := range rows {
			pushValue(&d, f.Type, r[fi])
		}
		cols[fi] = column.Column{Name: f.Name, Data: d}
	}
	return column.Columns{Items: cols}
}

func pushValue(d *column.ColumnData, t row.Type, v any) {
	if v == nil {
		d.PushInt(t, 0, false)
		return
	}
	switch t {
	case row.TypeBool:
		d.PushBool(v.(bool), true)
	case row.TypeUtf8, row.TypeDecimal:
		d.PushString(t, v.(string), true)
	case row.TypeBlob:
		d.PushBlob(v.([]byte), true)
	case row.TypeFloat32, row.TypeFloat64:
		d.PushFloat(t, toFloat64(v), true)
	case row.TypeInt8, row.TypeInt16, row.TypeInt32, row.TypeInt64, row.TypeDate, row.TypeTime:
		d.PushInt(t, toInt64(v), true)
	default:
		d.PushUint(t, toUint64(v), true)
	}
}

func toFloat64(v any) float64 {
	switch x := v.(type) {
	case float32:
		return float64(x)
	case float64:
		return x
	default:
		return 0
	}
}

func toInt64(v any) int64 {
	switch x := v.(type) {
	case int8:
		return int64(x)
	case int16:
		return int64(x)
	case int32:
		return int64(x)
	case int64:
		return x
	default:
		return 0
	}
}

func toUint64(v any) uint64 {
	switch x := v.(type) {
	case uint8:
		return uint64(x)
	case uint16:
		return uint64(x)
	case uint32:
		return uint64(x)
	case uint64:
		return x
	default:
		return 0
	}
}
