package exec

import (
	"fmt"

	"github.com/reifydb/reifydb/pkg/column"
	"github.com/reifydb/reifydb/pkg/diagnostic"
	"github.com/reifydb/reifydb/pkg/eval"
	"github.com/reifydb/reifydb/pkg/row"
)

func unboundVariableErr(name string) error {
	return diagnostic.New(diagnostic.CodeInternal, fmt.Sprintf("unbound variable %q", name))
}

func inferType(v any) row.Type {
	switch v.(type) {
	case bool:
		return row.TypeBool
	case float64:
		return row.TypeFloat64
	case int64:
		return row.TypeInt64
	case uint64:
		return row.TypeUint64
	default:
		return row.TypeUtf8
	}
}

// Let evaluates Value once, binds it into the execution context's variable
// stack under Name, and produces one diagnostic batch, then None. Interior
// mutability of the variable stack is limited to Let.
type Let struct {
	Name    string
	Value   eval.Expression
	Mutable bool

	ctx      *ExecutionContext
	executed bool
}

func (l *Let) Initialize(ctx *ExecutionContext) error {
	l.ctx = ctx
	return nil
}

func (l *Let) Next() (column.Columns, bool, error) {
	if l.executed {
		return column.Columns{}, false, nil
	}
	l.executed = true

	evalCtx := &eval.ColumnEvaluationContext{
		Batch:     column.Columns{},
		RowCount:  1,
		Params:    l.ctx.Params,
		Functions: l.ctx.Functions,
		Variables: l.ctx.Variables,
	}
	result, err := eval.Evaluate(evalCtx, l.Value)
	if err != nil {
		return column.Columns{}, false, err
	}

	if l.ctx.Variables == nil {
		l.ctx.Variables = map[string]eval.VariableBinding{}
	}
	scalar, _ := rawValue(result, 0)
	l.ctx.Variables[l.Name] = eval.VariableBinding{Scalar: scalar}

	return column.Columns{Items: []column.Column{{Name: l.Name, Data: result}}}, true, nil
}

func (l *Let) Headers() ([]string, bool) { return nil, false }

// Variable reads a previously bound transaction-local variable: for
// scalar variables it broadcasts the scalar to the ambient row count; for
// tabular variables it streams the stored Columns once.
type Variable struct {
	Name     string
	RowCount int

	ctx      *ExecutionContext
	executed bool
}

func (v *Variable) Initialize(ctx *ExecutionContext) error {
	v.ctx = ctx
	return nil
}

func (v *Variable) Next() (column.Columns, bool, error) {
	if v.executed {
		return column.Columns{}, false, nil
	}
	v.executed = true

	binding, ok := v.ctx.Variables[v.Name]
	if !ok {
		return column.Columns{}, false, unboundVariableErr(v.Name)
	}
	if binding.IsTable {
		return binding.Table, true, nil
	}

	d := column.Undefined(0)
	n := v.RowCount
	if n == 0 {
		n = 1
	}
	for i := 0; i < n; i++ {
		pushRaw(&d, inferType(binding.Scalar), binding.Scalar)
	}
	return column.Columns{Items: []column.Column{{Name: v.Name, Data: d}}}, true, nil
}

func (v *Variable) Headers() ([]string, bool) { return nil, false }
