package flow

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reifydb/reifydb/pkg/key"
	"github.com/reifydb/reifydb/pkg/kv"
	"github.com/reifydb/reifydb/pkg/row"
	"github.com/reifydb/reifydb/pkg/txn"
)

type fixedClock struct{ ms int64 }

func (c fixedClock) NowMillis() int64 { return c.ms }

func TestFilterOperatorDropsAndRewritesOnUpdate(t *testing.T) {
	f := &FilterOperator{Predicate: func(r []any) bool { return r[0].(int64) > 10 }}

	out, err := f.Apply(nil, Change{Diffs: []Diff{
		{Kind: DiffInsert, Post: []any{int64(5)}},
		{Kind: DiffInsert, Post: []any{int64(20)}},
		{Kind: DiffUpdate, Pre: []any{int64(20)}, Post: []any{int64(5)}},
	}})
	require.NoError(t, err)
	require.Len(t, out.Diffs, 2)
	assert.Equal(t, DiffInsert, out.Diffs[0].Kind)
	assert.Equal(t, DiffRemove, out.Diffs[1].Kind)
}

type memState struct{ m map[string][]byte }

func (s *memState) Get(k []byte) ([]byte, bool, error) {
	v, ok := s.m[string(k)]
	return v, ok, nil
}
func (s *memState) Set(k []byte, v []byte) error { s.m[string(k)] = v; return nil }
func (s *memState) Delete(k []byte) error         { delete(s.m, string(k)); return nil }

func TestDistinctOperatorSuppressesRepeatedInserts(t *testing.T) {
	d := &DistinctOperator{Key: func(r []any) string { return r[0].(string) }}
	state := &memState{m: map[string][]byte{}}

	out1, err := d.Apply(state, Change{Diffs: []Diff{{Kind: DiffInsert, Post: []any{"a"}}}})
	require.NoError(t, err)
	assert.Len(t, out1.Diffs, 1)

	out2, err := d.Apply(state, Change{Diffs: []Diff{{Kind: DiffInsert, Post: []any{"a"}}}})
	require.NoError(t, err)
	assert.Len(t, out2.Diffs, 0)
}

type fakeRegistry struct {
	defs        map[uint64]Def
	byTable     map[uint64][]uint64
	operators   map[uint64]Operator
	schemas     map[uint64]row.Schema
	viewSchemas map[uint64]row.Schema
	materialize map[uint64]Change
	states      map[string]*memState
	paused      map[uint64]bool
}

func newFakeRegistry() *fakeRegistry {
	return &fakeRegistry{
		defs:        map[uint64]Def{},
		byTable:     map[uint64][]uint64{},
		operators:   map[uint64]Operator{},
		schemas:     map[uint64]row.Schema{},
		viewSchemas: map[uint64]row.Schema{},
		materialize: map[uint64]Change{},
		states:      map[string]*memState{},
		paused:      map[uint64]bool{},
	}
}

func (r *fakeRegistry) FlowsForTable(tableID uint64) []uint64 { return r.byTable[tableID] }
func (r *fakeRegistry) Flow(flowID uint64) (Def, bool) {
	d, ok := r.defs[flowID]
	d.Paused = r.paused[flowID]
	return d, ok
}
func (r *fakeRegistry) Operator(n Node, schema row.Schema) (Operator, bool) {
	op, ok := r.operators[n.ID]
	return op, ok
}
func (r *fakeRegistry) State(flowID, nodeID uint64) State {
	key := keyFor(flowID, nodeID)
	if _, ok := r.states[key]; !ok {
		r.states[key] = &memState{m: map[string][]byte{}}
	}
	return r.states[key]
}
func (r *fakeRegistry) SetPaused(flowID uint64, paused bool) error {
	r.paused[flowID] = paused
	return nil
}
func (r *fakeRegistry) Schema(tableID uint64) (row.Schema, bool) {
	s, ok := r.schemas[tableID]
	return s, ok
}
func (r *fakeRegistry) ViewSchema(viewID uint64) (row.Schema, bool) {
	s, ok := r.viewSchemas[viewID]
	return s, ok
}
func (r *fakeRegistry) Materialize(viewID uint64, schema row.Schema, change Change) error {
	r.materialize[viewID] = change
	return nil
}

func keyFor(flowID, nodeID uint64) string {
	return string(rune(flowID)) + ":" + string(rune(nodeID))
}

func TestSchedulerAppliesInsertThroughFilterToSink(t *testing.T) {
	backend := kv.NewMemory()
	m, err := txn.NewManager(backend, fixedClock{ms: 1})
	require.NoError(t, err)

	schema := row.Schema{Fields: []row.Field{
		{Name: "id", Type: row.TypeInt64},
		{Name: "amount", Type: row.TypeFloat64},
	}}

	tx := m.BeginCommand(false)
	encoded, err := row.Encode(schema, []any{int64(1), 25.0})
	require.NoError(t, err)
	tx.Set(key.Encode(key.Row{PrimitiveID: 7, Number: 1}), encoded)
	require.NoError(t, tx.Commit())

	reg := newFakeRegistry()
	reg.schemas[7] = schema
	reg.viewSchemas[9] = schema
	reg.byTable[7] = []uint64{100}
	reg.defs[100] = Def{
		ID: 100,
		Nodes: map[uint64]Node{
			1: {ID: 1, Kind: NodeSourceTable, TableID: 7},
			2: {ID: 2, Kind: NodeOperator, Variant: OpFilter, Inputs: []uint64{1}},
			3: {ID: 3, Kind: NodeSinkView, ViewID: 9, Inputs: []uint64{2}},
		},
	}
	reg.operators[2] = &FilterOperator{Predicate: func(r []any) bool { return r[1].(float64) > 10 }}

	sched := NewScheduler(reg, backend.CDC(), 2, zerolog.Nop())
	require.NoError(t, sched.Drain(1, 1))

	captured := reg.materialize[9]
	require.Len(t, captured.Diffs, 1)
	assert.Equal(t, DiffInsert, captured.Diffs[0].Kind)
}
