package eval

import (
	"github.com/reifydb/reifydb/pkg/column"
	"github.com/reifydb/reifydb/pkg/row"
)

// Target describes the downstream column type and overflow policy that
// should direct numeric coercion, when the expression is feeding a
// specific catalog column rather than producing an ad-hoc result.
type Target struct {
	Name   string
	Type   row.Type
	Policy OverflowPolicy
}

// ScalarFunc is a registered scalar function: given evaluated argument
// columns and the ambient row count, it produces a result column.
type ScalarFunc func(args []column.ColumnData, rowCount int) (column.ColumnData, error)

// Functions is the registry of callable scalar functions, looked up by
// name from a Call expression.
type Functions struct {
	Scalars map[string]ScalarFunc
}

// Params holds externally supplied parameter values, bound by position
// ("$1") or name ("$name").
type Params struct {
	Positional []any
	Named      map[string]any
}

// ColumnEvaluationContext carries everything Evaluate needs besides the
// expression tree itself: the current batch, optional target-column
// coercion hints, bound parameters, the function registry, and the
// transaction-local variable stack Variable expressions read from.
type ColumnEvaluationContext struct {
	Batch     column.Columns
	RowCount  int
	Target    *Target
	Params    Params
	Functions *Functions
	Variables map[string]VariableBinding
}

// VariableBinding is what Let stores: either a scalar value broadcast to
// every row, or a tabular Columns value streamed as-is.
type VariableBinding struct {
	Scalar  any
	IsTable bool
	Table   column.Columns
}

func (c *ColumnEvaluationContext) lookupColumn(name string) (column.ColumnData, bool) {
	for _, item := range c.Batch.Items {
		if item.Name == name {
			return item.Data, true
		}
	}
	return column.ColumnData{}, false
}

func (c *ColumnEvaluationContext) overflowPolicy() OverflowPolicy {
	if c.Target != nil {
		return c.Target.Policy
	}
	return OverflowUndefined
}

func (c *ColumnEvaluationContext) targetName() string {
	if c.Target != nil {
		return c.Target.Name
	}
	return ""
}
