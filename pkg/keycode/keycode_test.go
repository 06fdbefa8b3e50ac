package keycode

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUint64RoundTrip(t *testing.T) {
	for _, v := range []uint64{0, 1, 255, 256, 1 << 32, ^uint64(0)} {
		encoded := PutUint64(nil, v)
		got, rest, err := DecodeUint64(encoded)
		require.NoError(t, err)
		assert.Empty(t, rest)
		assert.Equal(t, v, got)
	}
}

func TestInt64PreservesOrder(t *testing.T) {
	values := []int64{-1 << 62, -1000, -1, 0, 1, 1000, 1 << 62}
	var encoded [][]byte
	for _, v := range values {
		encoded = append(encoded, PutInt64(nil, v))
	}
	for i := 1; i < len(encoded); i++ {
		assert.Less(t, string(encoded[i-1]), string(encoded[i]))
	}
	for i, v := range values {
		got, _, err := DecodeInt64(encoded[i])
		require.NoError(t, err)
		assert.Equal(t, v, got)
	}
}

func TestComplementReversesOrder(t *testing.T) {
	a := PutUint64(nil, 1)
	b := PutUint64(nil, 2)
	require.Less(t, string(a), string(b))
	assert.Greater(t, string(Complement(a)), string(Complement(b)))
}

func TestBytesOrderedRoundTripAndOrder(t *testing.T) {
	inputs := [][]byte{
		[]byte("a"),
		[]byte("ab"),
		{0x00, 0x01},
		[]byte("b"),
	}
	var encoded [][]byte
	for _, in := range inputs {
		encoded = append(encoded, PutBytesOrdered(nil, in))
	}
	// the encodings must compare the same way the inputs do
	for i := range inputs {
		for j := range inputs {
			assert.Equal(t, bytes.Compare(inputs[i], inputs[j]), bytes.Compare(encoded[i], encoded[j]))
		}
	}
	for i, in := range inputs {
		got, rest, err := DecodeBytesOrdered(encoded[i])
		require.NoError(t, err)
		assert.Empty(t, rest)
		assert.Equal(t, in, got)
	}
}

func TestDecodeTruncated(t *testing.T) {
	_, _, err := DecodeUint64([]byte{1, 2, 3})
	assert.ErrorIs(t, err, ErrTruncated)

	_, _, err = DecodeBytesOrdered([]byte{0x01, 0x02})
	assert.ErrorIs(t, err, ErrTruncated)
}
