package engine

import (
	"fmt"

	"github.com/reifydb/reifydb/pkg/column"
	"github.com/reifydb/reifydb/pkg/eval"
	"github.com/reifydb/reifydb/pkg/flow"
	"github.com/reifydb/reifydb/pkg/row"
)

// rowToColumns builds a 1-row columnar batch from a decoded row, the shape
// pkg/eval.Evaluate needs to resolve a Filter/Extend node's ColumnRef
// expressions by name, adapted from pkg/exec/scan.go's rowsToColumns for
// the single-row case a flow diff evaluates.
func rowToColumns(schema row.Schema, values []any) column.Columns {
	cols := make([]column.Column, len(schema.Fields))
	for i, f := range schema.Fields {
		d := column.Undefined(0)
		pushRowValue(&d, f.Type, values[i])
		cols[i] = column.Column{Name: f.Name, Data: d}
	}
	return column.Columns{Items: cols}
}

func pushRowValue(d *column.ColumnData, t row.Type, v any) {
	if v == nil {
		d.PushInt(t, 0, false)
		return
	}
	switch t {
	case row.TypeBool:
		d.PushBool(v.(bool), true)
	case row.TypeUtf8, row.TypeDecimal:
		d.PushString(t, v.(string), true)
	case row.TypeBlob:
		d.PushBlob(v.([]byte), true)
	case row.TypeFloat32, row.TypeFloat64:
		d.PushFloat(t, toFloat64(v), true)
	case row.TypeInt8, row.TypeInt16, row.TypeInt32, row.TypeInt64, row.TypeDate, row.TypeTime:
		d.PushInt(t, toInt64(v), true)
	default:
		d.PushUint(t, toUint64(v), true)
	}
}

func toFloat64(v any) float64 {
	switch x := v.(type) {
	case float32:
		return float64(x)
	case float64:
		return x
	default:
		return 0
	}
}

func toInt64(v any) int64 {
	switch x := v.(type) {
	case int8:
		return int64(x)
	case int16:
		return int64(x)
	case int32:
		return int64(x)
	case int64:
		return x
	default:
		return 0
	}
}

func toUint64(v any) uint64 {
	switch x := v.(type) {
	case uint8:
		return uint64(x)
	case uint16:
		return uint64(x)
	case uint32:
		return uint64(x)
	case uint64:
		return x
	default:
		return 0
	}
}

// scalarAt reads column 0, row 0 of d back out as an any, the inverse of
// pushRowValue, used to pull a single evaluated result out of the 1-row
// batch Evaluate returns.
func scalarAt(d column.ColumnData) any {
	if d.IsUndefined() || !d.IsDefined(0) {
		return nil
	}
	switch d.Type {
	case row.TypeBool:
		v, _ := d.Bool(0)
		return v
	case row.TypeUtf8, row.TypeDecimal:
		v, _ := d.String(0)
		return v
	case row.TypeBlob:
		v, _ := d.Blob(0)
		return v
	case row.TypeFloat32, row.TypeFloat64:
		v, _ := d.Float(0)
		return v
	case row.TypeInt8, row.TypeInt16, row.TypeInt32, row.TypeInt64, row.TypeDate, row.TypeTime:
		v, _ := d.Int(0)
		return v
	default:
		v, _ := d.Uint(0)
		return v
	}
}

// evaluateRowExpr runs expr against one decoded row under schema, returning
// the scalar result. Errors surface through the caller's closure, which
// logs them (Predicate/Compute have no error return of their own).
func evaluateRowExpr(schema row.Schema, expr eval.Expression, values []any) (any, error) {
	ctx := &eval.ColumnEvaluationContext{Batch: rowToColumns(schema, values), RowCount: 1}
	data, err := eval.Evaluate(ctx, expr)
	if err != nil {
		return nil, err
	}
	return scalarAt(data), nil
}

// rowPredicate decodes expr once and returns a flow.FilterOperator
// Predicate that evaluates it per row, logging (and treating as non-match)
// any row that fails to evaluate rather than propagating the failure
// through FilterOperator's bool-only Predicate signature.
func (r *registry) rowPredicate(schema row.Schema, expr eval.Expression) func(values []any) bool {
	return func(values []any) bool {
		v, err := evaluateRowExpr(schema, expr, values)
		if err != nil {
			r.log.Warn().Err(err).Msg("flow filter predicate failed to evaluate; dropping row")
			return false
		}
		b, ok := v.(bool)
		if !ok {
			r.log.Warn().Msg("flow filter predicate did not evaluate to a boolean; dropping row")
			return false
		}
		return b
	}
}

// rowCompute decodes expr once and returns a flow.ExtendOperator Compute
// that appends the expression's evaluated result as one extra field.
func (r *registry) rowCompute(schema row.Schema, expr eval.Expression) func(values []any) []any {
	return func(values []any) []any {
		v, err := evaluateRowExpr(schema, expr, values)
		if err != nil {
			r.log.Warn().Err(err).Msg("flow extend expression failed to evaluate; emitting null")
			return []any{nil}
		}
		return []any{v}
	}
}

// rowDistinctKey decodes expr once and returns a flow.DistinctOperator Key
// that stringifies the expression's evaluated result.
func (r *registry) rowDistinctKey(schema row.Schema, expr eval.Expression) func(values []any) string {
	return func(values []any) string {
		v, err := evaluateRowExpr(schema, expr, values)
		if err != nil {
			r.log.Warn().Err(err).Msg("flow distinct key failed to evaluate; using row fingerprint")
			return fmt.Sprintf("%v", values)
		}
		return fmt.Sprintf("%v", v)
	}
}

// buildOperator decodes n.Expr (if present) and constructs the real
// operator for n.Variant, falling back to a pass-through when no
// expression is persisted (Union needs none; Aggregate/Join/TopK are not
// expression-driven here and remain pass-through).
func (r *registry) buildOperator(n flow.Node, schema row.Schema) flow.Operator {
	switch n.Variant {
	case flow.OpUnion:
		return flow.UnionOperator{}

	case flow.OpFilter:
		expr, ok := r.decodeExpr(n)
		if !ok {
			return passThroughOperator{}
		}
		return &flow.FilterOperator{Predicate: r.rowPredicate(schema, expr)}

	case flow.OpExtend:
		expr, ok := r.decodeExpr(n)
		if !ok {
			return passThroughOperator{}
		}
		return &flow.ExtendOperator{Compute: r.rowCompute(schema, expr)}

	case flow.OpDistinct:
		if expr, ok := r.decodeExpr(n); ok {
			return &flow.DistinctOperator{Key: r.rowDistinctKey(schema, expr)}
		}
		return &flow.DistinctOperator{Key: func(values []any) string { return fmt.Sprintf("%v", values) }}

	default:
		// Aggregate/Join/TopK need more than a single expression
		// (group keys, join predicates, ranking) to resolve from the
		// catalog; they stay pass-through until FlowNodeDef carries
		// that richer definition.
		return passThroughOperator{}
	}
}

func (r *registry) decodeExpr(n flow.Node) (eval.Expression, bool) {
	if len(n.Expr) == 0 {
		return nil, false
	}
	expr, err := eval.DecodeExpression(n.Expr)
	if err != nil {
		r.log.Warn().Uint64("node", n.ID).Err(err).Msg("flow node expression failed to decode")
		return nil, false
	}
	return expr, true
}
