package key

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRowRoundTrip(t *testing.T) {
	k := Row{PrimitiveID: 7, Number: 42}
	enc := Encode(k)

	got, err := DecodeRow(enc)
	require.NoError(t, err)
	assert.Equal(t, k, got)
}

func TestRowOrderPreservesRowNumber(t *testing.T) {
	a := Encode(Row{PrimitiveID: 1, Number: 1})
	b := Encode(Row{PrimitiveID: 1, Number: 2})
	assert.Less(t, string(a), string(b))
}

func TestDecodeRejectsWrongKind(t *testing.T) {
	enc := Encode(Table{TableID: 1})
	_, err := DecodeRow(enc)
	assert.Error(t, err)
}

func TestDecodeRejectsVersionMismatch(t *testing.T) {
	enc := Encode(Row{PrimitiveID: 1, Number: 1})
	enc[0] = 0xFF
	_, err := DecodeRow(enc)
	assert.Error(t, err)
}

func TestFullScanBoundsAllKeysOfKind(t *testing.T) {
	r := FullScan(KindTable)
	k1 := Encode(Table{TableID: 0})
	k2 := Encode(Table{TableID: 1 << 40})
	assert.True(t, r.Contains(k1))
	assert.True(t, r.Contains(k2))

	other := Encode(View{ViewID: 0})
	assert.False(t, r.Contains(other))
}

func TestRingBufferRowRoundTrip(t *testing.T) {
	k := RingBufferRow{RingBufferID: 7, Number: 42}
	enc := Encode(k)

	got, err := DecodeRingBufferRow(enc)
	require.NoError(t, err)
	assert.Equal(t, k, got)
}

func TestRingBufferRowOrdersDescendingByNumber(t *testing.T) {
	older := Encode(RingBufferRow{RingBufferID: 1, Number: 1})
	newer := Encode(RingBufferRow{RingBufferID: 1, Number: 2})
	assert.Less(t, string(newer), string(older))
}

func TestPrefixScanNarrowsToPrimitive(t *testing.T) {
	r := PrefixScan(KindTableColumn, func() []byte {
		var b []byte
		b = Encode(Table{TableID: 5})[2:]
		return b
	}())
	in := Encode(TableColumn{TableID: 5, Position: 3})
	out := Encode(TableColumn{TableID: 6, Position: 0})
	assert.True(t, r.Contains(in))
	assert.False(t, r.Contains(out))
}
