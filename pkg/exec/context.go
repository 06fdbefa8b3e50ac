package exec

import (
	"github.com/reifydb/reifydb/pkg/catalog"
	"github.com/reifydb/reifydb/pkg/eval"
	"github.com/reifydb/reifydb/pkg/key"
	"github.com/reifydb/reifydb/pkg/kv"
)

// DefaultBatchSize is used when a plan doesn't configure one; in the low
// thousands, matching the pull model's natural backpressure granularity.
const DefaultBatchSize = 2048

// Reader is the read surface Scan needs; both QueryTransaction (via
// FromQuery) and CommandTransaction satisfy it, so a plan can run under
// either a read-only session or inside a command.
type Reader interface {
	Range(r key.EncodedKeyRange) ([]kv.MultiVersionValues, error)
}

// QueryRanger is satisfied by *txn.QueryTransaction.
type QueryRanger interface {
	Range(r key.EncodedKeyRange) (kv.Iterator[kv.MultiVersionValues], error)
}

type queryReader struct{ qt QueryRanger }

func (q queryReader) Range(r key.EncodedKeyRange) ([]kv.MultiVersionValues, error) {
	it, err := q.qt.Range(r)
	if err != nil {
		return nil, err
	}
	defer it.Close()
	var out []kv.MultiVersionValues
	for it.Next() {
		out = append(out, it.Value())
	}
	return out, it.Err()
}

// FromQuery adapts a QueryTransaction (whose Range returns an Iterator) to
// the Reader contract Scan expects (whose Range returns a materialized
// slice), since a single-batch-at-a-time volcano scan doesn't need lazy
// iteration the way the backend's own Range does.
func FromQuery(qt QueryRanger) Reader {
	return queryReader{qt: qt}
}

// ExecutionContext is cloned (by reference) into every operator: params,
// the variable stack, a catalog handle, and the evaluator's function
// registry. Interior mutability of the variable stack is limited to Let.
type ExecutionContext struct {
	Reader    Reader
	Catalog   *catalog.Store
	CatalogTx *catalog.Tx
	Functions *eval.Functions
	Params    eval.Params
	Variables map[string]eval.VariableBinding
	BatchSize int
}

func (c *ExecutionContext) batchSize() int {
	if c.BatchSize <= 0 {
		return DefaultBatchSize
	}
	return c.BatchSize
}
