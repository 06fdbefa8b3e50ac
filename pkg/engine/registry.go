package engine

import (
	"hash/fnv"
	"sync"

	"github.com/rs/zerolog"

	"github.com/reifydb/reifydb/pkg/catalog"
	"github.com/reifydb/reifydb/pkg/flow"
	"github.com/reifydb/reifydb/pkg/key"
	"github.com/reifydb/reifydb/pkg/row"
	"github.com/reifydb/reifydb/pkg/txn"
)

// registry implements flow.Registry by reading flow definitions from the
// catalog and keeping a state subspace per (flowID, nodeID) in the MV
// plane, written through a dedicated internal transaction per unit of
// work. It also caches a table-id-to-flow-ids index, rebuilt on demand.
type registry struct {
	store   *catalog.Store
	manager *txn.Manager
	log     zerolog.Logger

	mu      sync.RWMutex
	byTable map[uint64][]uint64
	indexed bool
}

func newRegistry(store *catalog.Store, manager *txn.Manager, log zerolog.Logger) *registry {
	return &registry{store: store, manager: manager, log: log, byTable: map[uint64][]uint64{}}
}

func (r *registry) rebuildIndex() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.indexed {
		return nil
	}

	txc := catalog.NewTx(r.manager.BeginCommand(false))
	flows, err := r.store.ListFlows(txc)
	if err != nil {
		return err
	}

	byTable := map[uint64][]uint64{}
	for _, f := range flows {
		byTable[f.SourceID] = append(byTable[f.SourceID], f.ID)
	}
	r.byTable = byTable
	r.indexed = true
	return nil
}

// invalidate forces the next FlowsForTable/Flow call to rebuild state from
// the catalog; called after a new flow is registered.
func (r *registry) invalidate() {
	r.mu.Lock()
	r.indexed = false
	r.mu.Unlock()
}

func (r *registry) FlowsForTable(tableID uint64) []uint64 {
	if err := r.rebuildIndex(); err != nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]uint64(nil), r.byTable[tableID]...)
}

func (r *registry) Flow(flowID uint64) (flow.Def, bool) {
	txc := catalog.NewTx(r.manager.BeginCommand(false))
	def, found, err := r.store.FindFlow(txc, flowID)
	if err != nil || !found {
		return flow.Def{}, false
	}

	nodeDefs, err := r.store.FlowNodes(txc, flowID)
	if err != nil {
		return flow.Def{}, false
	}

	nodes := make(map[uint64]flow.Node, len(nodeDefs))
	for _, n := range nodeDefs {
		nodes[n.NodeID] = flow.Node{
			ID:      n.NodeID,
			Kind:    flow.NodeKind(n.Kind),
			Variant: flow.OperatorVariant(n.Variant),
			TableID: n.TableID,
			ViewID:  n.ViewID,
			Inputs:  n.Inputs,
			Expr:    n.Expr,
		}
	}
	return flow.Def{ID: def.ID, Nodes: nodes, Paused: def.Paused}, true
}

// Operator builds the node-local operator for n.Variant. Union needs no
// expression; Filter/Extend/Distinct decode their persisted expression (see
// pkg/eval/codec.go) and evaluate it row-at-a-time against schema, the
// source table's row schema; Aggregate/Join/TopK fall back to pass-through
// until FlowNodeDef carries the richer definition those need (see
// buildOperator's doc comment).
func (r *registry) Operator(n flow.Node, schema row.Schema) (flow.Operator, bool) {
	return r.buildOperator(n, schema), true
}

// ViewSchema reads the output schema of the view a NodeSinkView node
// materializes into, for Materialize to encode rows against.
func (r *registry) ViewSchema(viewID uint64) (row.Schema, bool) {
	txc := catalog.NewTx(r.manager.BeginCommand(false))
	view, found, err := r.store.FindView(txc, viewID)
	if err != nil || !found {
		return row.Schema{}, false
	}
	fields := make([]row.Field, len(view.Columns))
	for i, c := range view.Columns {
		fields[i] = row.Field{Name: c.Name, Type: c.Type}
	}
	return row.Schema{Fields: fields}, true
}

// Materialize applies change's diffs to the view's row keyspace: inserted
// and post-update rows are written, removed and pre-update rows are
// deleted. A materialized row has no declared primary key, so its row
// number is the FNV-1a hash of its encoded content, stable across repeated
// writes of identical values and recoverable from a diff's pre-image alone
// for deletes.
func (r *registry) Materialize(viewID uint64, schema row.Schema, change flow.Change) error {
	if len(change.Diffs) == 0 {
		return nil
	}

	ct := r.manager.BeginCommand(false)
	for _, d := range change.Diffs {
		switch d.Kind {
		case flow.DiffInsert:
			if err := putMaterializedRow(ct, schema, viewID, d.Post); err != nil {
				ct.Rollback()
				return err
			}
		case flow.DiffUpdate:
			if err := removeMaterializedRow(ct, schema, viewID, d.Pre); err != nil {
				ct.Rollback()
				return err
			}
			if err := putMaterializedRow(ct, schema, viewID, d.Post); err != nil {
				ct.Rollback()
				return err
			}
		case flow.DiffRemove:
			if err := removeMaterializedRow(ct, schema, viewID, d.Pre); err != nil {
				ct.Rollback()
				return err
			}
		}
	}
	return ct.Commit()
}

func putMaterializedRow(ct *txn.CommandTransaction, schema row.Schema, viewID uint64, values []any) error {
	encoded, err := row.Encode(schema, values)
	if err != nil {
		return err
	}
	ct.Set(key.Encode(key.Row{PrimitiveID: viewID, Number: materializedRowNumber(encoded)}), encoded)
	return nil
}

func removeMaterializedRow(ct *txn.CommandTransaction, schema row.Schema, viewID uint64, values []any) error {
	encoded, err := row.Encode(schema, values)
	if err != nil {
		return err
	}
	ct.Remove(key.Encode(key.Row{PrimitiveID: viewID, Number: materializedRowNumber(encoded)}))
	return nil
}

func materializedRowNumber(encoded []byte) key.RowNumber {
	h := fnv.New64a()
	h.Write(encoded)
	return key.RowNumber(h.Sum64())
}

func (r *registry) State(flowID, nodeID uint64) flow.State {
	return &txnState{registry: r, flowID: flowID, nodeID: nodeID}
}

func (r *registry) SetPaused(flowID uint64, paused bool) error {
	txc := catalog.NewTx(r.manager.BeginCommand(false))
	if _, err := r.store.SetFlowPaused(txc, flowID, paused); err != nil {
		return err
	}
	return txc.Txn.Commit()
}

func (r *registry) Schema(tableID uint64) (row.Schema, bool) {
	txc := catalog.NewTx(r.manager.BeginCommand(false))
	table, found, err := r.store.FindTable(txc, tableID)
	if err != nil || !found {
		return row.Schema{}, false
	}
	fields := make([]row.Field, len(table.Columns))
	for i, c := range table.Columns {
		fields[i] = row.Field{Name: c.Name, Type: c.Type}
	}
	return row.Schema{Fields: fields}, true
}

// passThroughOperator forwards Change unchanged; used where no node-local
// expression is registered (see Operator's doc comment).
type passThroughOperator struct{}

func (passThroughOperator) Apply(_ flow.State, in flow.Change) (flow.Change, error) { return in, nil }

// txnState persists a stateful node's keyed state in the MV plane under a
// FlowNodeState key, one internal command transaction per access. This is
// adequate for the scheduler's one-unit-at-a-time-per-flow discipline but
// not for concurrent access to the same node from outside it.
type txnState struct {
	registry *registry
	flowID   uint64
	nodeID   uint64
}

func encodeStateKey(flowID, nodeID uint64, k []byte) key.EncodedKey {
	prefix := key.Encode(key.FlowNodeState{FlowID: flowID, NodeID: nodeID})
	return append(append(key.EncodedKey{}, prefix...), k...)
}

func (s *txnState) Get(k []byte) ([]byte, bool, error) {
	txc := s.registry.manager.BeginQuery()
	v, found, err := txc.Get(encodeStateKey(s.flowID, s.nodeID, k))
	if err != nil || !found {
		return nil, found, err
	}
	return v.Value, true, nil
}

func (s *txnState) Set(k []byte, v []byte) error {
	tx := s.registry.manager.BeginCommand(false)
	tx.Set(encodeStateKey(s.flowID, s.nodeID, k), v)
	return tx.Commit()
}

func (s *txnState) Delete(k []byte) error {
	tx := s.registry.manager.BeginCommand(false)
	tx.Remove(encodeStateKey(s.flowID, s.nodeID, k))
	return tx.Commit()
}
