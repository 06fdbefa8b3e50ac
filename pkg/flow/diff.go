package flow

// DiffKind enumerates the three things a row change inside a flow can be.
type DiffKind uint8

const (
	DiffInsert DiffKind = iota
	DiffUpdate
	DiffRemove
)

// Diff is one row-level change flowing through the DAG: Pre/Post carry
// decoded row values (as []any, matching row.Decode's shape), not raw
// bytes, since operators need to inspect fields.
type Diff struct {
	Kind DiffKind
	Pre  []any
	Post []any
}

// Change is a commit-versioned batch of Diffs entering or leaving a flow
// node.
type Change struct {
	Version uint64
	Diffs   []Diff
}

// Operator is what every flow node's variant-specific logic implements:
// given the incoming change, produce the outgoing change this node emits
// to its downstream nodes. Stateful operators read and write their keyed
// state subspace through State.
type Operator interface {
	Apply(state State, in Change) (Change, error)
}

// State is the keyed state subspace a stateful operator owns, indexed by
// (FlowNodeId, state key) in the MV plane. Implementations live in
// pkg/engine, which has the transaction handle; Operator implementations
// in this package only see this narrow interface.
type State interface {
	Get(key []byte) ([]byte, bool, error)
	Set(key []byte, value []byte) error
	Delete(key []byte) error
}
