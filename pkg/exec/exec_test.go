package exec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reifydb/reifydb/pkg/eval"
	"github.com/reifydb/reifydb/pkg/key"
	"github.com/reifydb/reifydb/pkg/kv"
	"github.com/reifydb/reifydb/pkg/row"
	"github.com/reifydb/reifydb/pkg/txn"
)

type fixedClock struct{ ms int64 }

func (c fixedClock) NowMillis() int64 { return c.ms }

func seedRows(t *testing.T, m *txn.Manager, tableID uint64, schema row.Schema, rows [][]any) {
	t.Helper()
	tx := m.BeginCommand(false)
	for i, values := range rows {
		encoded, err := row.Encode(schema, values)
		require.NoError(t, err)
		tx.Set(key.Encode(key.Row{PrimitiveID: tableID, Number: key.RowNumber(i + 1)}), encoded)
	}
	require.NoError(t, tx.Commit())
}

func eventSchema() row.Schema {
	return row.Schema{Fields: []row.Field{
		{Name: "id", Type: row.TypeInt64},
		{Name: "amount", Type: row.TypeFloat64},
	}}
}

func newTestManager(t *testing.T) *txn.Manager {
	t.Helper()
	backend := kv.NewMemory()
	m, err := txn.NewManager(backend, fixedClock{ms: 1})
	require.NoError(t, err)
	return m
}

func TestScanYieldsAllRows(t *testing.T) {
	m := newTestManager(t)
	schema := eventSchema()
	seedRows(t, m, 1, schema, [][]any{
		{int64(1), 10.0},
		{int64(2), 20.0},
		{int64(3), 30.0},
	})

	q := m.BeginQuery()
	ctx := &ExecutionContext{Reader: FromQuery(q), BatchSize: 10}
	scan := &Scan{PrimitiveID: 1, Schema: schema}
	require.NoError(t, scan.Initialize(ctx))

	batch, ok, err := scan.Next()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 3, batch.RowCount())

	_, ok, err = scan.Next()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFilterKeepsMatchingRows(t *testing.T) {
	m := newTestManager(t)
	schema := eventSchema()
	seedRows(t, m, 1, schema, [][]any{
		{int64(1), 10.0},
		{int64(2), 25.0},
		{int64(3), 30.0},
	})

	q := m.BeginQuery()
	ctx := &ExecutionContext{Reader: FromQuery(q), BatchSize: 10}
	scan := &Scan{PrimitiveID: 1, Schema: schema}
	filter := &Filter{
		Input: scan,
		Predicate: eval.BinaryOp{
			Op:    eval.OpGt,
			Left:  eval.ColumnRef{Name: "amount"},
			Right: eval.Constant{Value: float64(15)},
		},
	}
	require.NoError(t, filter.Initialize(ctx))

	batch, ok, err := filter.Next()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 2, batch.RowCount())
}

func TestTakeRejectsNegativeCount(t *testing.T) {
	_, err := NewTake(nil, -1)
	require.Error(t, err)
}

func TestTakeStopsAtN(t *testing.T) {
	m := newTestManager(t)
	schema := eventSchema()
	seedRows(t, m, 1, schema, [][]any{
		{int64(1), 10.0},
		{int64(2), 20.0},
		{int64(3), 30.0},
	})

	q := m.BeginQuery()
	ctx := &ExecutionContext{Reader: FromQuery(q), BatchSize: 10}
	scan := &Scan{PrimitiveID: 1, Schema: schema}
	take, err := NewTake(scan, 2)
	require.NoError(t, err)
	require.NoError(t, take.Initialize(ctx))

	batch, ok, err := take.Next()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 2, batch.RowCount())

	_, ok, err = take.Next()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSortOrdersByKeyDescending(t *testing.T) {
	m := newTestManager(t)
	schema := eventSchema()
	seedRows(t, m, 1, schema, [][]any{
		{int64(1), 30.0},
		{int64(2), 10.0},
		{int64(3), 20.0},
	})

	q := m.BeginQuery()
	ctx := &ExecutionContext{Reader: FromQuery(q), BatchSize: 10}
	scan := &Scan{PrimitiveID: 1, Schema: schema}
	s := &Sort{Input: scan, Keys: []SortKey{{Column: "amount", Descending: true}}}
	require.NoError(t, s.Initialize(ctx))

	batch, ok, err := s.Next()
	require.NoError(t, err)
	require.True(t, ok)
	v0, _ := batch.Items[1].Data.Float(0)
	v1, _ := batch.Items[1].Data.Float(1)
	v2, _ := batch.Items[1].Data.Float(2)
	assert.Equal(t, []float64{30, 20, 10}, []float64{v0, v1, v2})
}

func TestAggregateSumGroupsByKey(t *testing.T) {
	m := newTestManager(t)
	schema := row.Schema{Fields: []row.Field{
		{Name: "category", Type: row.TypeUtf8},
		{Name: "amount", Type: row.TypeFloat64},
	}}
	seedRows(t, m, 1, schema, [][]any{
		{"a", 10.0},
		{"b", 5.0},
		{"a", 20.0},
	})

	q := m.BeginQuery()
	ctx := &ExecutionContext{Reader: FromQuery(q), BatchSize: 10}
	scan := &Scan{PrimitiveID: 1, Schema: schema}
	agg := &Aggregate{
		Input: scan,
		By:    []ProjectExpr{{Name: "category", Value: eval.ColumnRef{Name: "category"}}},
		Map:   []AggregateExpr{{Name: "total", Function: AggSum, Column: "amount"}},
	}
	require.NoError(t, agg.Initialize(ctx))

	batch, ok, err := agg.Next()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 2, batch.RowCount())

	totals := map[string]float64{}
	for i := 0; i < batch.RowCount(); i++ {
		cat, _ := batch.Items[0].Data.String(i)
		total, _ := batch.Items[1].Data.Float(i)
		totals[cat] = total
	}
	assert.Equal(t, 30.0, totals["a"])
	assert.Equal(t, 5.0, totals["b"])
}

func TestLetBindsVariableForSubsequentRead(t *testing.T) {
	ctx := &ExecutionContext{Variables: map[string]eval.VariableBinding{}}
	let := &Let{Name: "x", Value: eval.Constant{Value: int64(42)}}
	require.NoError(t, let.Initialize(ctx))
	_, ok, err := let.Next()
	require.NoError(t, err)
	require.True(t, ok)

	v := &Variable{Name: "x", RowCount: 3}
	require.NoError(t, v.Initialize(ctx))
	batch, ok, err := v.Next()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 3, batch.RowCount())
	val, _ := batch.Items[0].Data.Int(0)
	assert.Equal(t, int64(42), val)
}
