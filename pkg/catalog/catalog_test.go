package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reifydb/reifydb/pkg/diagnostic"
	"github.com/reifydb/reifydb/pkg/kv"
	"github.com/reifydb/reifydb/pkg/row"
	"github.com/reifydb/reifydb/pkg/txn"
)

type fixedClock struct{ ms int64 }

func (c fixedClock) NowMillis() int64 { return c.ms }

func newManager(t *testing.T) *txn.Manager {
	t.Helper()
	backend := kv.NewMemory()
	m, err := txn.NewManager(backend, fixedClock{ms: 1000})
	require.NoError(t, err)
	return m
}

func TestCreateNamespaceRejectsDuplicate(t *testing.T) {
	m := newManager(t)
	store := NewStore()

	txc := NewTx(m.BeginCommand(false))
	_, err := store.CreateNamespace(txc, "analytics")
	require.NoError(t, err)

	_, err = store.CreateNamespace(txc, "analytics")
	require.Error(t, err)
	d, ok := err.(*diagnostic.Diagnostic)
	require.True(t, ok)
	assert.Equal(t, diagnostic.CodeNamespaceExists, d.Code)
}

func TestCreateTableAndFindAcrossCommit(t *testing.T) {
	m := newManager(t)
	store := NewStore()

	txc := NewTx(m.BeginCommand(false))
	ns, err := store.CreateNamespace(txc, "analytics")
	require.NoError(t, err)

	table, err := store.CreateTable(txc, ns.ID, "events", []ColumnDef{
		{Name: "id", Type: row.TypeUint64},
		{Name: "payload", Type: row.TypeUtf8},
	})
	require.NoError(t, err)
	require.Len(t, table.Columns, 2)

	found, ok, err := store.FindTable(txc, table.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "events", found.Name)
	require.NoError(t, txc.Txn.Commit())

	txc2 := NewTx(m.BeginCommand(false))
	found2, ok, err := store.FindTable(txc2, table.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, table.Columns[1].Name, found2.Columns[1].Name)
	assert.Equal(t, row.TypeUtf8, found2.Columns[1].Type)
}

func TestCreateViewLinksFlow(t *testing.T) {
	m := newManager(t)
	store := NewStore()

	txc := NewTx(m.BeginCommand(false))
	ns, err := store.CreateNamespace(txc, "analytics")
	require.NoError(t, err)

	view := store.CreateView(txc, ns.ID, "daily_totals", 42, []ColumnDef{
		{Name: "total", Type: row.TypeInt64},
	})
	require.NoError(t, txc.Txn.Commit())

	txc2 := NewTx(m.BeginCommand(false))
	found, ok, err := store.FindView(txc2, view.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, uint64(42), found.FlowID)
	require.Len(t, found.Columns, 1)
}

func TestRingBufferHeadTailRoundTrip(t *testing.T) {
	m := newManager(t)
	store := NewStore()

	txc := NewTx(m.BeginCommand(false))
	ns, err := store.CreateNamespace(txc, "analytics")
	require.NoError(t, err)

	rb := store.CreateRingBuffer(txc, ns.ID, "recent_events", 100, []ColumnDef{
		{Name: "id", Type: row.TypeUint64},
	})

	head, tail, err := store.RingBufferHeadTail(txc, rb.ID)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), head)
	assert.Equal(t, uint64(0), tail)

	store.SetRingBufferHeadTail(txc, rb.ID, 1, 50)
	head, tail, err = store.RingBufferHeadTail(txc, rb.ID)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), head)
	assert.Equal(t, uint64(50), tail)
}

func TestRingBufferRowsReadNewestFirstAndEvictOldest(t *testing.T) {
	m := newManager(t)
	store := NewStore()

	txc := NewTx(m.BeginCommand(false))
	ns, err := store.CreateNamespace(txc, "analytics")
	require.NoError(t, err)

	rb := store.CreateRingBuffer(txc, ns.ID, "recent_events", 3, []ColumnDef{
		{Name: "seq", Type: row.TypeInt64},
	})
	schema := row.Schema{Fields: []row.Field{{Name: "seq", Type: row.TypeInt64}}}

	for i := int64(1); i <= 4; i++ {
		require.NoError(t, store.InsertRingBufferRow(txc, rb.ID, rb.Capacity, schema, []any{i}))
	}

	rows, err := store.RingBufferRows(txc, rb.ID, schema, 0)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, int64(4), rows[0][0])
	assert.Equal(t, int64(3), rows[1][0])
	assert.Equal(t, int64(2), rows[2][0])

	head, tail, err := store.RingBufferHeadTail(txc, rb.ID)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), head)
	assert.Equal(t, uint64(4), tail)

	limited, err := store.RingBufferRows(txc, rb.ID, schema, 2)
	require.NoError(t, err)
	require.Len(t, limited, 2)
	assert.Equal(t, int64(4), limited[0][0])
	assert.Equal(t, int64(3), limited[1][0])
}

func TestPolicyEvaluationDeniesUndefined(t *testing.T) {
	m := newManager(t)
	store := NewStore()

	txc := NewTx(m.BeginCommand(false))
	_, err := store.EvaluatePolicy(txc, 999)
	require.Error(t, err)
	d, ok := err.(*diagnostic.Diagnostic)
	require.True(t, ok)
	assert.Equal(t, diagnostic.CodePolicyUndefined, d.Code)

	policy := store.CreatePolicy(txc, []PolicyOpDef{
		{Position: 0, Kind: "overflow", Argument: "saturate"},
	})
	found, err := store.EvaluatePolicy(txc, policy.ID)
	require.NoError(t, err)
	require.Len(t, found.Ops, 1)
	assert.Equal(t, "saturate", found.Ops[0].Argument)
}

func TestMigrationAppendAndFind(t *testing.T) {
	m := newManager(t)
	store := NewStore()

	txc := NewTx(m.BeginCommand(false))
	mig := store.CreateMigration(txc, "add events table", 1000)
	require.NoError(t, txc.Txn.Commit())

	txc2 := NewTx(m.BeginCommand(false))
	found, ok, err := store.FindMigration(txc2, mig.Sequence)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "add events table", found.Description)
}

func TestSecurityPolicyAllowsNamedSubjectOnly(t *testing.T) {
	m := newManager(t)
	store := NewStore()

	txc := NewTx(m.BeginCommand(false))
	policy := store.CreateSecurityPolicy(txc, []SecurityPolicyOpDef{
		{Position: 0, Action: "allow", Subject: "admin"},
	})
	require.NoError(t, txc.Txn.Commit())

	txc2 := NewTx(m.BeginCommand(false))
	permitted, err := store.EvaluateSecurityPolicy(txc2, policy.ID, "admin")
	require.NoError(t, err)
	assert.True(t, permitted)

	permitted, err = store.EvaluateSecurityPolicy(txc2, policy.ID, "guest")
	require.NoError(t, err)
	assert.False(t, permitted)

	require.Error(t, DenyIfNotPermitted(permitted, "guest"))
}

func TestFlowCreateAndPause(t *testing.T) {
	m := newManager(t)
	store := NewStore()

	txc := NewTx(m.BeginCommand(false))
	ns, err := store.CreateNamespace(txc, "analytics")
	require.NoError(t, err)
	view := store.CreateView(txc, ns.ID, "daily_totals", 0, []ColumnDef{
		{Name: "total", Type: row.TypeInt64},
	})

	fl := store.CreateFlow(txc, view.ID, 7, []FlowNodeDef{
		{NodeID: 1, Kind: 0, TableID: 7},
		{NodeID: 2, Kind: 2, Variant: 0, Inputs: []uint64{1}},
		{NodeID: 3, Kind: 1, ViewID: view.ID, Inputs: []uint64{2}},
	})
	require.NoError(t, txc.Txn.Commit())

	txc2 := NewTx(m.BeginCommand(false))
	nodes, err := store.FlowNodes(txc2, fl.ID)
	require.NoError(t, err)
	require.Len(t, nodes, 3)

	paused, err := store.SetFlowPaused(txc2, fl.ID, true)
	require.NoError(t, err)
	assert.True(t, paused.Paused)

	found, ok, err := store.FindFlow(txc2, fl.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, found.Paused)
}

func TestSubscriptionWatermarkAdvances(t *testing.T) {
	m := newManager(t)
	store := NewStore()

	txc := NewTx(m.BeginCommand(false))
	sub := store.CreateSubscription(txc)
	assert.Equal(t, uint64(0), sub.AcknowledgedVersion)

	advanced := store.AcknowledgeSubscription(txc, sub, 7)
	assert.Equal(t, uint64(7), advanced.AcknowledgedVersion)
}
