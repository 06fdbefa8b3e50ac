package eval

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reifydb/reifydb/pkg/column"
	"github.com/reifydb/reifydb/pkg/row"
)

func intColumn(values []int64, defined []bool) column.ColumnData {
	d := column.Undefined(0)
	for i, v := range values {
		d.PushInt(row.TypeInt64, v, defined[i])
	}
	return d
}

func allDefined(n int) []bool {
	out := make([]bool, n)
	for i := range out {
		out[i] = true
	}
	return out
}

func ctxWithColumns(items []column.Column, rowCount int) *ColumnEvaluationContext {
	return &ColumnEvaluationContext{Batch: column.Columns{Items: items}, RowCount: rowCount}
}

func TestBinaryOpAddition(t *testing.T) {
	a := intColumn([]int64{1, 2, 3}, allDefined(3))
	b := intColumn([]int64{10, 20, 30}, allDefined(3))
	ctx := ctxWithColumns([]column.Column{{Name: "a", Data: a}, {Name: "b", Data: b}}, 3)

	result, err := Evaluate(ctx, BinaryOp{Op: OpAdd, Left: ColumnRef{Name: "a"}, Right: ColumnRef{Name: "b"}})
	require.NoError(t, err)
	v, ok := result.Int(1)
	require.True(t, ok)
	assert.Equal(t, int64(22), v)
}

func TestBinaryOpShortCircuitsOnAllNull(t *testing.T) {
	a := column.Undefined(3)
	b := intColumn([]int64{1, 2, 3}, allDefined(3))
	ctx := ctxWithColumns([]column.Column{{Name: "a", Data: a}, {Name: "b", Data: b}}, 3)

	result, err := Evaluate(ctx, BinaryOp{Op: OpAdd, Left: ColumnRef{Name: "a"}, Right: ColumnRef{Name: "b"}})
	require.NoError(t, err)
	assert.True(t, result.IsUndefined())
}

func TestBinaryOpCombinesBitmaps(t *testing.T) {
	a := intColumn([]int64{1, 2, 3}, []bool{true, false, true})
	b := intColumn([]int64{10, 20, 30}, []bool{true, true, false})
	ctx := ctxWithColumns([]column.Column{{Name: "a", Data: a}, {Name: "b", Data: b}}, 3)

	result, err := Evaluate(ctx, BinaryOp{Op: OpAdd, Left: ColumnRef{Name: "a"}, Right: ColumnRef{Name: "b"}})
	require.NoError(t, err)
	assert.True(t, result.IsDefined(0))
	assert.False(t, result.IsDefined(1))
	assert.False(t, result.IsDefined(2))
}

func TestBetweenExpandsToRangeComparison(t *testing.T) {
	a := intColumn([]int64{1, 5, 10}, allDefined(3))
	ctx := ctxWithColumns([]column.Column{{Name: "a", Data: a}}, 3)

	result, err := Evaluate(ctx, Between{
		Value: ColumnRef{Name: "a"},
		Lower: Constant{Value: int64(3)},
		Upper: Constant{Value: int64(8)},
	})
	require.NoError(t, err)
	v0, _ := result.Bool(0)
	v1, _ := result.Bool(1)
	v2, _ := result.Bool(2)
	assert.False(t, v0)
	assert.True(t, v1)
	assert.False(t, v2)
}

func TestOverflowErrorPolicyRejectsAddition(t *testing.T) {
	_, _, err := AddInt64(OverflowError, 1<<62, 1<<62, "total")
	require.Error(t, err)
}

func TestOverflowSaturatePolicyClampsAddition(t *testing.T) {
	v, ok, err := AddInt64(OverflowSaturate, 1<<62, 1<<62, "total")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(1<<63-1), v)
}

func TestOverflowUndefinedPolicyPushesUndefined(t *testing.T) {
	_, ok, err := AddInt64(OverflowUndefined, 1<<62, 1<<62, "total")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestOrderedFloatRejectsNaN(t *testing.T) {
	nan := float64(0)
	nan = nan / nan
	_, err := NewOrderedFloat(nan)
	require.Error(t, err)
}

func TestOrderedFloatNormalizesNegativeZero(t *testing.T) {
	neg, err := NewOrderedFloat(-0.0)
	require.NoError(t, err)
	pos, err := NewOrderedFloat(0.0)
	require.NoError(t, err)
	assert.Equal(t, 0, neg.Compare(pos))
}

func TestParamResolvesPositionalBinding(t *testing.T) {
	ctx := ctxWithColumns(nil, 2)
	ctx.Params = Params{Positional: []any{int64(7), int64(8)}}

	result, err := Evaluate(ctx, Param{Name: "1"})
	require.NoError(t, err)
	v, ok := result.Int(0)
	require.True(t, ok)
	assert.Equal(t, int64(7), v)
}

func TestParamResolvesNamedBinding(t *testing.T) {
	ctx := ctxWithColumns(nil, 2)
	ctx.Params = Params{Named: map[string]any{"limit": int64(42)}}

	result, err := Evaluate(ctx, Param{Name: "limit"})
	require.NoError(t, err)
	v, ok := result.Int(1)
	require.True(t, ok)
	assert.Equal(t, int64(42), v)
}

func TestParamReportsUnboundPositional(t *testing.T) {
	ctx := ctxWithColumns(nil, 1)
	ctx.Params = Params{Positional: []any{int64(1)}}

	_, err := Evaluate(ctx, Param{Name: "2"})
	require.Error(t, err)
}

func TestOrderedFloatTotalOrder(t *testing.T) {
	vals := []float64{10, -5, 0, 3.5, -100}
	ordered := make([]OrderedFloat, len(vals))
	for i, v := range vals {
		of, err := NewOrderedFloat(v)
		require.NoError(t, err)
		ordered[i] = of
	}
	for i := 0; i < len(ordered)-1; i++ {
		for j := i + 1; j < len(ordered); j++ {
			if vals[i] < vals[j] {
				assert.Equal(t, -1, ordered[i].Compare(ordered[j]))
			}
		}
	}
}
