package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reifydb/reifydb/config"
	"github.com/reifydb/reifydb/pkg/catalog"
	"github.com/reifydb/reifydb/pkg/column"
	"github.com/reifydb/reifydb/pkg/eval"
	"github.com/reifydb/reifydb/pkg/exec"
	"github.com/reifydb/reifydb/pkg/key"
	"github.com/reifydb/reifydb/pkg/row"
)

func seedRows(t *testing.T, e *Engine, tableID uint64, schema row.Schema, rows [][]any) {
	t.Helper()
	ct := e.manager.BeginCommand(false)
	for i, values := range rows {
		encoded, err := row.Encode(schema, values)
		require.NoError(t, err)
		ct.Set(key.Encode(key.Row{PrimitiveID: tableID, Number: key.RowNumber(i + 1)}), encoded)
	}
	require.NoError(t, ct.Commit())
}

func TestSessionQueryScansSeededRows(t *testing.T) {
	e, err := New(config.Default())
	require.NoError(t, err)
	defer e.Close()

	txc := catalog.NewTx(e.manager.BeginCommand(false))
	ns, err := e.store.CreateNamespace(txc, "analytics")
	require.NoError(t, err)
	table, err := e.store.CreateTable(txc, ns.ID, "events", []catalog.ColumnDef{
		{Name: "id", Type: row.TypeInt64},
		{Name: "amount", Type: row.TypeFloat64},
	})
	require.NoError(t, err)
	require.NoError(t, txc.Txn.Commit())

	schema := row.Schema{Fields: []row.Field{
		{Name: "id", Type: row.TypeInt64},
		{Name: "amount", Type: row.TypeFloat64},
	}}
	seedRows(t, e, table.ID, schema, [][]any{
		{int64(1), 10.0},
		{int64(2), 20.0},
	})

	sess := e.NewSession(Principal{Name: "tester"}, SessionConfig{AllowFullScan: true})
	scan := &exec.Scan{PrimitiveID: table.ID, Schema: schema}
	result, err := sess.Query(context.Background(), scan, eval.Params{})
	require.NoError(t, err)
	require.Len(t, result, 1)
	assert.Equal(t, 2, result[0].RowCount())
}

// bulkInsertPlan stages n row writes into the command transaction it runs
// under, then reports exhausted. It stands in for a real insert operator
// (out of scope here) just to exercise Command's write path.
type bulkInsertPlan struct {
	tableID uint64
	schema  row.Schema
	n       int
	ectx    *exec.ExecutionContext
	done    bool
}

func (p *bulkInsertPlan) Initialize(ctx *exec.ExecutionContext) error {
	p.ectx = ctx
	return nil
}

func (p *bulkInsertPlan) Next() (column.Columns, bool, error) {
	if p.done {
		return column.Columns{}, false, nil
	}
	p.done = true
	for i := 0; i < p.n; i++ {
		encoded, err := row.Encode(p.schema, []any{int64(i)})
		if err != nil {
			return column.Columns{}, false, err
		}
		p.ectx.CatalogTx.Txn.Set(key.Encode(key.Row{PrimitiveID: p.tableID, Number: key.RowNumber(i + 1)}), encoded)
	}
	return column.Columns{}, false, nil
}

func (p *bulkInsertPlan) Headers() ([]string, bool) { return nil, false }

func TestSessionCommandEnforcesMaxTransactionKeys(t *testing.T) {
	e, err := New(config.Default())
	require.NoError(t, err)
	defer e.Close()

	schema := row.Schema{Fields: []row.Field{{Name: "id", Type: row.TypeInt64}}}

	sess := e.NewSession(Principal{Name: "tester"}, SessionConfig{MaxTransactionKeys: 5})
	_, err = sess.Command(context.Background(), &bulkInsertPlan{tableID: 1, schema: schema, n: 10}, eval.Params{})
	require.Error(t, err)

	sess = e.NewSession(Principal{Name: "tester"}, SessionConfig{MaxTransactionKeys: 0})
	_, err = sess.Command(context.Background(), &bulkInsertPlan{tableID: 1, schema: schema, n: 10}, eval.Params{})
	require.NoError(t, err)
}

func TestSystemScanListsTables(t *testing.T) {
	e, err := New(config.Default())
	require.NoError(t, err)
	defer e.Close()

	txc := catalog.NewTx(e.manager.BeginCommand(false))
	ns, err := e.store.CreateNamespace(txc, "analytics")
	require.NoError(t, err)
	_, err = e.store.CreateTable(txc, ns.ID, "events", []catalog.ColumnDef{
		{Name: "id", Type: row.TypeInt64},
	})
	require.NoError(t, err)
	require.NoError(t, txc.Txn.Commit())

	sess := e.NewSession(Principal{Name: "tester"}, SessionConfig{AllowFullScan: true})
	plan, ok := sess.SystemScan("system.tables")
	require.True(t, ok)

	result, err := sess.Query(context.Background(), plan, eval.Params{})
	require.NoError(t, err)
	require.Len(t, result, 1)
	assert.Equal(t, 1, result[0].RowCount())
}

func TestSystemScanUnknownNameFails(t *testing.T) {
	e, err := New(config.Default())
	require.NoError(t, err)
	defer e.Close()

	sess := e.NewSession(Principal{Name: "tester"}, SessionConfig{})
	_, ok := sess.SystemScan("system.nonsense")
	assert.False(t, ok)
}

func TestSubscriptionCursorReturnsMatchingChanges(t *testing.T) {
	e, err := New(config.Default())
	require.NoError(t, err)
	defer e.Close()

	schema := row.Schema{Fields: []row.Field{{Name: "id", Type: row.TypeInt64}}}
	seedRows(t, e, 7, schema, [][]any{{int64(1)}})

	sess := e.NewSession(Principal{Name: "tester"}, SessionConfig{})
	cursor, err := sess.Subscribe(context.Background(), 7, 10)
	require.NoError(t, err)

	changes, ok, err := cursor.Next(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, changes, 1)

	_, ok, err = cursor.Next(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}
