package column

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reifydb/reifydb/pkg/row"
)

func TestUndefinedUpgradesInPlacePreservingLeadingSlots(t *testing.T) {
	d := Undefined(3)
	require.True(t, d.IsUndefined())
	assert.Equal(t, 3, d.Len())

	d.PushInt(row.TypeInt64, 42, true)
	assert.False(t, d.IsUndefined())
	assert.Equal(t, 4, d.Len())

	for i := 0; i < 3; i++ {
		assert.False(t, d.IsDefined(i))
	}
	v, ok := d.Int(3)
	require.True(t, ok)
	assert.Equal(t, int64(42), v)
}

func TestNullPreservedAcrossPush(t *testing.T) {
	d := Undefined(0)
	d.PushInt(row.TypeInt64, 1, true)
	d.PushInt(row.TypeInt64, 0, false)
	d.PushInt(row.TypeInt64, 3, true)

	_, ok := d.Int(1)
	assert.False(t, ok)
	v, ok := d.Int(2)
	require.True(t, ok)
	assert.Equal(t, int64(3), v)
}

func TestColumnsRowCountFromFirstColumn(t *testing.T) {
	a := Undefined(0)
	a.PushBool(true, true)
	a.PushBool(false, true)

	cols := Columns{Items: []Column{{Name: "flag", Data: a}}}
	assert.Equal(t, 2, cols.RowCount())
}

func TestUnwrapOptionAllNullShortCircuits(t *testing.T) {
	d := Undefined(5)
	opt := UnwrapOption(d)
	assert.True(t, opt.IsAllNull())
}

func TestCombineBitvecsRequiresBothDefined(t *testing.T) {
	a := Undefined(0)
	a.PushInt(row.TypeInt64, 1, true)
	a.PushInt(row.TypeInt64, 0, false)

	b := Undefined(0)
	b.PushInt(row.TypeInt64, 1, true)
	b.PushInt(row.TypeInt64, 1, true)

	oa, ob := UnwrapOption(a), UnwrapOption(b)
	combined := CombineBitvecs(oa, ob, 2)
	assert.True(t, bitSet(combined, 0))
	assert.False(t, bitSet(combined, 1))
}
