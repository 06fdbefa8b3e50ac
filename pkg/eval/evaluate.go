package eval

import (
	"fmt"
	"strconv"

	"github.com/reifydb/reifydb/pkg/column"
	"github.com/reifydb/reifydb/pkg/diagnostic"
	"github.com/reifydb/reifydb/pkg/row"
)

// Evaluate walks expr against ctx and returns the resulting column, aligned
// to ctx.RowCount.
func Evaluate(ctx *ColumnEvaluationContext, expr Expression) (column.ColumnData, error) {
	switch e := expr.(type) {
	case ColumnRef:
		data, ok := ctx.lookupColumn(e.Name)
		if !ok {
			return column.ColumnData{}, diagnostic.New(diagnostic.CodeInternal, fmt.Sprintf("unknown column %q", e.Name))
		}
		return data, nil

	case Constant:
		return broadcastConstant(e.Value, ctx.RowCount), nil

	case Param:
		v, err := ctx.resolveParam(e.Name)
		if err != nil {
			return column.ColumnData{}, err
		}
		return broadcastConstant(v, ctx.RowCount), nil

	case BinaryOp:
		return evalBinary(ctx, e)

	case UnaryOp:
		return evalUnary(ctx, e)

	case Between:
		return evalBetween(ctx, e)

	case Alias:
		return Evaluate(ctx, e.Inner)

	case Call:
		return evalCall(ctx, e)

	case Variable:
		return evalVariable(ctx, e)

	case RowNumberRef:
		return rowNumberColumn(ctx.RowCount), nil

	case Cast:
		inner, err := Evaluate(ctx, e.Inner)
		if err != nil {
			return column.ColumnData{}, err
		}
		return castColumn(inner, e.Target, ctx.overflowPolicy(), ctx.targetName())

	default:
		return column.ColumnData{}, diagnostic.New(diagnostic.CodeInternal, fmt.Sprintf("unsupported expression %T", expr))
	}
}

func (ctx *ColumnEvaluationContext) resolveParam(name string) (any, error) {
	if idx, ok := positionalIndex(name); ok {
		if idx >= 1 && idx <= len(ctx.Params.Positional) {
			return ctx.Params.Positional[idx-1], nil
		}
		return nil, diagnostic.New(diagnostic.CodeInternal, fmt.Sprintf("unbound parameter \"$%d\"", idx))
	}
	if v, ok := ctx.Params.Named[name]; ok {
		return v, nil
	}
	return nil, diagnostic.New(diagnostic.CodeInternal, fmt.Sprintf("unbound parameter %q", name))
}

// positionalIndex reports whether name is a purely numeric parameter name
// ("1" for "$1"), as produced by a Param built from positional syntax, and
// its 1-based index if so.
func positionalIndex(name string) (int, bool) {
	n, err := strconv.Atoi(name)
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}

func broadcastConstant(v any, n int) column.ColumnData {
	switch val := v.(type) {
	case bool:
		d := column.Undefined(0)
		for i := 0; i < n; i++ {
			d.PushBool(val, true)
		}
		return d
	case int64:
		d := column.Undefined(0)
		for i := 0; i < n; i++ {
			d.PushInt(row.TypeInt64, val, true)
		}
		return d
	case float64:
		d := column.Undefined(0)
		for i := 0; i < n; i++ {
			d.PushFloat(row.TypeFloat64, val, true)
		}
		return d
	case string:
		d := column.Undefined(0)
		for i := 0; i < n; i++ {
			d.PushString(row.TypeUtf8, val, true)
		}
		return d
	default:
		return column.Undefined(n)
	}
}

func rowNumberColumn(n int) column.ColumnData {
	d := column.Undefined(0)
	for i := 0; i < n; i++ {
		d.PushUint(row.TypeUint64, uint64(i+1), true)
	}
	return d
}

func evalVariable(ctx *ColumnEvaluationContext, e Variable) (column.ColumnData, error) {
	binding, ok := ctx.Variables[e.Name]
	if !ok {
		return column.ColumnData{}, diagnostic.New(diagnostic.CodeInternal, fmt.Sprintf("unbound variable %q", e.Name))
	}
	if binding.IsTable {
		if len(binding.Table.Items) == 0 {
			return column.Undefined(ctx.RowCount), nil
		}
		return binding.Table.Items[0].Data, nil
	}
	return broadcastConstant(binding.Scalar, ctx.RowCount), nil
}

func evalCall(ctx *ColumnEvaluationContext, e Call) (column.ColumnData, error) {
	if ctx.Functions == nil {
		return column.ColumnData{}, diagnostic.New(diagnostic.CodeInternal, "no function registry bound to evaluation context")
	}
	fn, ok := ctx.Functions.Scalars[e.Function]
	if !ok {
		return column.ColumnData{}, diagnostic.New(diagnostic.CodeInternal, fmt.Sprintf("unknown function %q", e.Function))
	}
	args := make([]column.ColumnData, len(e.Args))
	for i, a := range e.Args {
		v, err := Evaluate(ctx, a)
		if err != nil {
			return column.ColumnData{}, err
		}
		args[i] = v
	}
	return fn(args, ctx.RowCount)
}

// evalBetween expands to value >= lower AND value <= upper, per the
// evaluator's BETWEEN contract.
func evalBetween(ctx *ColumnEvaluationContext, e Between) (column.ColumnData, error) {
	expanded := BinaryOp{
		Op:   OpAnd,
		Left: BinaryOp{Op: OpGte, Left: e.Value, Right: e.Lower},
		Right: BinaryOp{Op: OpLte, Left: e.Value, Right: e.Upper},
	}
	return Evaluate(ctx, expanded)
}
