// Package flow implements incremental view maintenance: a flow is a
// persisted DAG of source, sink, and operator nodes that consumes CDC
// changes from its source tables and re-derives its sink view.
package flow

// NodeKind distinguishes the three kinds of DAG node a flow can contain.
type NodeKind uint8

const (
	NodeSourceTable NodeKind = iota
	NodeSinkView
	NodeOperator
)

// OperatorVariant enumerates the stateful/stateless operator kinds a flow
// node can run.
type OperatorVariant uint8

const (
	OpFilter OperatorVariant = iota
	OpExtend
	OpAggregate
	OpJoin
	OpUnion
	OpTopK
	OpDistinct
)

// Stateful reports whether variant owns a keyed state subspace in the MV
// plane; filter/map/union are stateless, everything else carries running
// state across commits.
func (v OperatorVariant) Stateful() bool {
	switch v {
	case OpAggregate, OpJoin, OpTopK, OpDistinct:
		return true
	default:
		return false
	}
}

// Node is one node of a flow's DAG.
type Node struct {
	ID      uint64
	Kind    NodeKind
	Variant OperatorVariant
	TableID uint64 // for NodeSourceTable
	ViewID  uint64 // for NodeSinkView
	Inputs  []uint64
	Expr    []byte // encoded predicate/projection, for OpFilter/OpExtend/OpDistinct
}

// Def is the full definition of a flow: its nodes, indexed by id, plus
// which nodes are sources (so the scheduler can map a changed table to the
// flows that must react).
type Def struct {
	ID     uint64
	Nodes  map[uint64]Node
	Paused bool
}

// SourceTableIDs returns the set of table ids this flow reads from.
func (d Def) SourceTableIDs() []uint64 {
	var ids []uint64
	for _, n := range d.Nodes {
		if n.Kind == NodeSourceTable {
			ids = append(ids, n.TableID)
		}
	}
	return ids
}

// SinkViewID returns the view id this flow maintains, or 0 if it has none
// (not expected in a well-formed flow, but the scheduler should not panic
// on a malformed one).
func (d Def) SinkViewID() uint64 {
	for _, n := range d.Nodes {
		if n.Kind == NodeSinkView {
			return n.ViewID
		}
	}
	return 0
}
