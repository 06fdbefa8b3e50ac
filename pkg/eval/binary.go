package eval

import (
	"fmt"

	"github.com/reifydb/reifydb/pkg/column"
	"github.com/reifydb/reifydb/pkg/diagnostic"
	"github.com/reifydb/reifydb/pkg/row"
)

// evalBinary implements the "unwrap, combine bitmaps, evaluate on defined
// pairs, rewrap" contract: if either operand is all-null, it short-circuits
// to an all-null result without touching either side's inner storage.
func evalBinary(ctx *ColumnEvaluationContext, e BinaryOp) (column.ColumnData, error) {
	left, err := Evaluate(ctx, e.Left)
	if err != nil {
		return column.ColumnData{}, err
	}
	right, err := Evaluate(ctx, e.Right)
	if err != nil {
		return column.ColumnData{}, err
	}

	lo := column.UnwrapOption(left)
	ro := column.UnwrapOption(right)

	n := ctx.RowCount
	if lo.IsAllNull() || ro.IsAllNull() {
		return column.Undefined(n), nil
	}

	bitvec := column.CombineBitvecs(lo, ro, n)

	switch e.Op {
	case OpAnd, OpOr:
		return evalLogical(e.Op, left, right, bitvec, n)
	case OpEq, OpNeq, OpLt, OpLte, OpGt, OpGte:
		return evalCompare(e.Op, left, right, bitvec, n)
	default:
		return evalArithmetic(ctx, e.Op, left, right, bitvec, n)
	}
}

func evalLogical(op BinaryOperator, left, right column.ColumnData, bitvec []uint64, n int) (column.ColumnData, error) {
	out := make([]bool, n)
	for i := 0; i < n; i++ {
		a, _ := left.Bool(i)
		b, _ := right.Bool(i)
		if op == OpAnd {
			out[i] = a && b
		} else {
			out[i] = a || b
		}
	}
	return column.RewrapBool(out, bitvec), nil
}

func evalCompare(op BinaryOperator, left, right column.ColumnData, bitvec []uint64, n int) (column.ColumnData, error) {
	out := make([]bool, n)
	for i := 0; i < n; i++ {
		c, err := compareAt(left, right, i)
		if err != nil {
			return column.ColumnData{}, err
		}
		switch op {
		case OpEq:
			out[i] = c == 0
		case OpNeq:
			out[i] = c != 0
		case OpLt:
			out[i] = c < 0
		case OpLte:
			out[i] = c <= 0
		case OpGt:
			out[i] = c > 0
		case OpGte:
			out[i] = c >= 0
		}
	}
	return column.RewrapBool(out, bitvec), nil
}

// CompareRows compares row i and row j of the same column, using the total
// float order and null-last convention: an undefined value sorts after
// every defined value, matching most SQL dialects' NULLS LAST default.
func CompareRows(d column.ColumnData, i, j int) (int, error) {
	di, dj := d.IsDefined(i), d.IsDefined(j)
	switch {
	case !di && !dj:
		return 0, nil
	case !di:
		return 1, nil
	case !dj:
		return -1, nil
	}
	if isFloatType(d.Type) {
		fi, _ := NewOrderedFloat(asFloat(d, i))
		fj, _ := NewOrderedFloat(asFloat(d, j))
		return fi.Compare(fj), nil
	}
	if isStringType(d.Type) {
		si, _ := d.String(i)
		sj, _ := d.String(j)
		switch {
		case si < sj:
			return -1, nil
		case si > sj:
			return 1, nil
		default:
			return 0, nil
		}
	}
	if d.Type == row.TypeBool {
		bi, _ := d.Bool(i)
		bj, _ := d.Bool(j)
		switch {
		case bi == bj:
			return 0, nil
		case !bi:
			return -1, nil
		default:
			return 1, nil
		}
	}
	vi, vj := asInt64(d, i), asInt64(d, j)
	switch {
	case vi < vj:
		return -1, nil
	case vi > vj:
		return 1, nil
	default:
		return 0, nil
	}
}

// compareAt compares row i of two operands after promoting them to a
// common representation; mismatched incomparable types are a diagnostic,
// never a silent coercion.
func compareAt(left, right column.ColumnData, i int) (int, error) {
	if isFloatType(left.Type) || isFloatType(right.Type) {
		lf, rf := asFloat(left, i), asFloat(right, i)
		lof, err := NewOrderedFloat(lf)
		if err != nil {
			return 0, err
		}
		rof, err := NewOrderedFloat(rf)
		if err != nil {
			return 0, err
		}
		return lof.Compare(rof), nil
	}
	if isStringType(left.Type) && isStringType(right.Type) {
		ls, _ := left.String(i)
		rs, _ := right.String(i)
		switch {
		case ls < rs:
			return -1, nil
		case ls > rs:
			return 1, nil
		default:
			return 0, nil
		}
	}
	if isIntegerType(left.Type) && isIntegerType(right.Type) {
		li, ri := asInt64(left, i), asInt64(right, i)
		switch {
		case li < ri:
			return -1, nil
		case li > ri:
			return 1, nil
		default:
			return 0, nil
		}
	}
	return 0, diagnostic.New(diagnostic.CodeInternal, fmt.Sprintf("cannot compare %v with %v", left.Type, right.Type))
}

func evalArithmetic(ctx *ColumnEvaluationContext, op BinaryOperator, left, right column.ColumnData, bitvec []uint64, n int) (column.ColumnData, error) {
	promoted := promote(left.Type, right.Type)
	policy := ctx.overflowPolicy()
	name := ctx.targetName()

	if promoted == row.TypeFloat64 {
		out := make([]float64, n)
		for i := 0; i < n; i++ {
			a, b := asFloat(left, i), asFloat(right, i)
			out[i] = applyFloatOp(op, a, b)
		}
		d := column.Undefined(0)
		for i := 0; i < n; i++ {
			d.PushFloat(row.TypeFloat64, out[i], bitAt(bitvec, i))
		}
		return d, nil
	}

	out := make([]int64, n)
	defined := make([]bool, n)
	for i := 0; i < n; i++ {
		if !bitAt(bitvec, i) {
			defined[i] = false
			continue
		}
		a, b := asInt64(left, i), asInt64(right, i)
		v, ok, err := applyIntOp(op, policy, a, b, name)
		if err != nil {
			return column.ColumnData{}, err
		}
		out[i] = v
		defined[i] = ok
	}
	d := column.Undefined(0)
	for i := 0; i < n; i++ {
		d.PushInt(row.TypeInt64, out[i], defined[i])
	}
	return d, nil
}

func applyFloatOp(op BinaryOperator, a, b float64) float64 {
	switch op {
	case OpAdd:
		return a + b
	case OpSub:
		return a - b
	case OpMul:
		return a * b
	case OpDiv:
		if b == 0 {
			return 0
		}
		return a / b
	default:
		return 0
	}
}

func applyIntOp(op BinaryOperator, policy OverflowPolicy, a, b int64, name string) (int64, bool, error) {
	switch op {
	case OpAdd:
		return AddInt64(policy, a, b, name)
	case OpSub:
		return AddInt64(policy, a, -b, name)
	case OpMul:
		return MulInt64(policy, a, b, name)
	case OpDiv:
		if b == 0 {
			if policy == OverflowError {
				return 0, false, diagnostic.New(diagnostic.CodeNumberOutOfRange, fmt.Sprintf("division by zero in column %q", name))
			}
			return 0, false, nil
		}
		return a / b, true, nil
	default:
		return 0, false, nil
	}
}

func evalUnary(ctx *ColumnEvaluationContext, e UnaryOp) (column.ColumnData, error) {
	operand, err := Evaluate(ctx, e.Operand)
	if err != nil {
		return column.ColumnData{}, err
	}
	n := ctx.RowCount

	switch e.Op {
	case OpIsNull:
		out := make([]bool, n)
		for i := 0; i < n; i++ {
			out[i] = !operand.IsDefined(i)
		}
		return column.RewrapBool(out, nil), nil
	case OpIsNotNull:
		out := make([]bool, n)
		for i := 0; i < n; i++ {
			out[i] = operand.IsDefined(i)
		}
		return column.RewrapBool(out, nil), nil
	}

	opt := column.UnwrapOption(operand)
	if opt.IsAllNull() {
		return column.Undefined(n), nil
	}

	switch e.Op {
	case OpNot:
		out := make([]bool, n)
		for i := 0; i < n; i++ {
			v, _ := operand.Bool(i)
			out[i] = !v
		}
		return column.RewrapBool(out, opt.Bitvec), nil
	case OpNeg:
		d := column.Undefined(0)
		for i := 0; i < n; i++ {
			if !operand.IsDefined(i) {
				d.PushInt(row.TypeInt64, 0, false)
				continue
			}
			d.PushInt(row.TypeInt64, -asInt64(operand, i), true)
		}
		return d, nil
	default:
		return column.ColumnData{}, diagnostic.New(diagnostic.CodeInternal, "unsupported unary operator")
	}
}
